// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/discordump/internal/network"
)

// base is the creation time of the newest test message; message i was
// created i minutes before it.
var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// msg creates a test message.  Smaller i means newer.
func msg(i int, author, authorID, content string, attachments int) *discordgo.Message {
	m := &discordgo.Message{
		ID:        fmt.Sprintf("%d", 1_000_000-i),
		Content:   content,
		Timestamp: base.Add(-time.Duration(i) * time.Minute),
		Author:    &discordgo.User{Username: author, ID: authorID},
	}
	for j := 0; j < attachments; j++ {
		m.Attachments = append(m.Attachments, &discordgo.MessageAttachment{
			ID:       fmt.Sprintf("a%d-%d", i, j),
			Filename: fmt.Sprintf("file%d.png", j),
			Size:     1024,
		})
	}
	return m
}

// fetchCall records the parameters of one Messages call.
type fetchCall struct {
	limit         int
	before, after string
}

// fakeFetcher serves pre-canned batches in order, regardless of the cursor,
// and records every call.  After the canned batches run out it returns
// empty batches.  If failOn is non-zero, the failOn-th call returns err.
type fakeFetcher struct {
	batches [][]*discordgo.Message
	calls   []fetchCall
	failOn  int
	err     error
}

func (f *fakeFetcher) Messages(_ context.Context, _ string, limit int, before, after string) ([]*discordgo.Message, error) {
	f.calls = append(f.calls, fetchCall{limit: limit, before: before, after: after})
	if f.failOn != 0 && len(f.calls) == f.failOn {
		return nil, f.err
	}
	if len(f.calls) > len(f.batches) {
		return nil, nil
	}
	return f.batches[len(f.calls)-1], nil
}

// testLimits makes multi-batch scenarios cheap to express.
func testLimits(maxBatches, batchSize int) network.Limits {
	return network.Limits{MaxBatches: maxBatches, BatchSize: batchSize}
}

func TestScan_ordering(t *testing.T) {
	// Batches arrive unsorted; the result must be non-increasing in
	// timestamp.
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(2, "alice", "1", "b", 0), msg(0, "alice", "1", "a", 0), msg(1, "bob", "2", "c", 0)},
		{msg(4, "alice", "1", "d", 0), msg(5, "bob", "2", "e", 0), msg(3, "alice", "1", "f", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Messages, 6)
	for i := 1; i < len(res.Messages); i++ {
		prev, cur := res.Messages[i-1].Timestamp, res.Messages[i].Timestamp
		assert.GreaterOrEqual(t, prev, cur, "message %d is newer than its predecessor", i)
	}
}

func TestScan_targetBound(t *testing.T) {
	// The result never exceeds the target count, and reaching it
	// terminates the walk.
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "x", 0), msg(1, "a", "1", "x", 0), msg(2, "a", "1", "x", 0)},
		{msg(3, "a", "1", "x", 0), msg(4, "a", "1", "x", 0), msg(5, "a", "1", "x", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 2)
	assert.Equal(t, TargetReached, res.State)
	assert.Len(t, f.calls, 1, "no batch should be fetched past the target")
}

func TestScan_startDateShortCircuit(t *testing.T) {
	// Once a message predates the start bound, the scan terminates without
	// issuing another fetch, even though further batches with in-window
	// matches exist.
	since := base.Add(-90 * time.Second) // between message 1 and message 2
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "x", 0), msg(1, "a", "1", "x", 0), msg(2, "a", "1", "x", 0)},
		{msg(0, "a", "1", "would match", 0)}, // never reached
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10, Since: since})
	require.NoError(t, err)
	assert.Equal(t, StartBoundary, res.State)
	require.Len(t, res.Messages, 2)
	for _, m := range res.Messages {
		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		require.NoError(t, err)
		assert.False(t, ts.Before(since))
	}
	assert.Len(t, f.calls, 1, "scan must not fetch past the start boundary")
}

func TestScan_endDateSkipsNotStops(t *testing.T) {
	// Messages newer than the end bound are skipped, but the walk goes on
	// to older messages.
	until := base.Add(-90 * time.Second) // messages 0 and 1 are too new
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "new", 0), msg(1, "a", "1", "new", 0), msg(2, "a", "1", "old enough", 0)},
		{msg(3, "a", "1", "older", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10, Until: until})
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "old enough", res.Messages[0].Content)
	assert.Equal(t, "older", res.Messages[1].Content)
}

func TestScan_iterationBudget(t *testing.T) {
	// A filter that matches nothing must not loop unboundedly: the walk
	// issues at most MaxBatches fetches and returns an empty result with a
	// populated summary.
	var batches [][]*discordgo.Message
	for b := 0; b < 20; b++ {
		batch := make([]*discordgo.Message, 0, 3)
		for i := 0; i < 3; i++ {
			batch = append(batch, msg(b*3+i, "a", "1", "nothing to see", 0))
		}
		batches = append(batches, batch)
	}
	f := &fakeFetcher{batches: batches}
	s := New(f, WithLimits(testLimits(4, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10, Keyword: "unobtainium"})
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	assert.Equal(t, BudgetExceeded, res.State)
	assert.Len(t, f.calls, 4)
	assert.Equal(t, 12, res.Summary.TotalFetched)
	assert.Equal(t, "unobtainium", res.Summary.Keyword)
}

func TestScan_exhaustion(t *testing.T) {
	// A batch shorter than the batch size means the history ran out; the
	// scan stops after processing it even though the target is not
	// reached.
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "x", 0), msg(1, "a", "1", "x", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 2)
	assert.Equal(t, Exhausted, res.State)
	assert.Len(t, f.calls, 1)
}

func TestScan_emptyBatch(t *testing.T) {
	f := &fakeFetcher{}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
	assert.Equal(t, Exhausted, res.State)
	assert.Zero(t, res.TotalFetched)
}

func TestScan_keywordCaseInsensitive(t *testing.T) {
	// Messages 3 and 7 (newest first) contain "ERROR"; the query keyword
	// is lowercase.
	var batch []*discordgo.Message
	for i := 0; i < 10; i++ {
		content := "all quiet"
		if i == 3 || i == 7 {
			content = "an ERROR occurred"
		}
		batch = append(batch, msg(i, "a", "1", content, 0))
	}
	f := &fakeFetcher{batches: [][]*discordgo.Message{batch}}
	s := New(f, WithLimits(testLimits(10, 10)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 5, Keyword: "error"})
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, fmt.Sprintf("%d", 1_000_000-3), res.Messages[0].ID)
	assert.Equal(t, fmt.Sprintf("%d", 1_000_000-7), res.Messages[1].ID)
	assert.Equal(t, "error", res.Summary.Keyword)
}

func TestScan_hasAttachments(t *testing.T) {
	// Only even-indexed messages carry attachments.
	var batch []*discordgo.Message
	for i := 0; i < 8; i++ {
		attachments := 0
		if i%2 == 0 {
			attachments = 1
		}
		batch = append(batch, msg(i, "a", "1", "x", attachments))
	}
	f := &fakeFetcher{batches: [][]*discordgo.Message{batch}}
	s := New(f, WithLimits(testLimits(10, 8)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10, HasAttachments: true})
	require.NoError(t, err)
	require.Len(t, res.Messages, 4)
	for _, m := range res.Messages {
		assert.NotEmpty(t, m.Attachments)
	}
	assert.True(t, res.Summary.HasAttachments)
}

func TestScan_authorByNameOrID(t *testing.T) {
	// The author filter matches the display name or the user ID.
	batch := []*discordgo.Message{
		msg(0, "alice", "111", "by name", 0),
		msg(1, "bob", "alice", "by id", 0),
		msg(2, "carol", "333", "neither", 0),
	}
	f := &fakeFetcher{batches: [][]*discordgo.Message{batch}}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 10, Author: Author("alice")})
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "by name", res.Messages[0].Content)
	assert.Equal(t, "by id", res.Messages[1].Content)
	assert.Equal(t, "alice", res.Summary.Author)
}

func TestScan_cursorAdvance(t *testing.T) {
	// The cursor of the next fetch is the ID of the oldest message of the
	// previous batch; the initial cursor is the caller's Before value.
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "x", 0), msg(1, "a", "1", "x", 0), msg(2, "a", "1", "x", 0)},
		{msg(3, "a", "1", "x", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	_, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 50, Before: "B0", After: "A0"})
	require.NoError(t, err)
	require.Len(t, f.calls, 2)
	assert.Equal(t, fetchCall{limit: 3, before: "B0", after: "A0"}, f.calls[0])
	assert.Equal(t, fetchCall{limit: 3, before: fmt.Sprintf("%d", 1_000_000-2), after: "A0"}, f.calls[1])
}

func TestScan_fetchErrorAborts(t *testing.T) {
	// A hard fetch failure aborts the whole scan; matches accumulated
	// before the failing batch are discarded.
	f := &fakeFetcher{
		batches: [][]*discordgo.Message{
			{msg(0, "a", "1", "x", 0), msg(1, "a", "1", "x", 0), msg(2, "a", "1", "x", 0)},
		},
		failOn: 2,
		err:    errors.New("boom"),
	}
	s := New(f, WithLimits(testLimits(10, 3)))

	res, err := s.Scan(t.Context(), Query{ChannelID: "C1", Limit: 50})
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Nil(t, res)
}

func TestScan_contextCancelled(t *testing.T) {
	f := &fakeFetcher{batches: [][]*discordgo.Message{
		{msg(0, "a", "1", "x", 0)},
	}}
	s := New(f, WithLimits(testLimits(10, 3)))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := s.Scan(ctx, Query{ChannelID: "C1", Limit: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.calls)
}

func TestScan_defaultAndCap(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"zero means default", 0, DefTarget},
		{"negative means default", -1, DefTarget},
		{"in range kept", 7, 7},
		{"over cap clamped", 500, MaxTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Query{Limit: tt.limit}
			q.normalize()
			assert.Equal(t, tt.wantLimit, q.Limit)
		})
	}
}

func TestMatches_consumerStop(t *testing.T) {
	// The lazy sequence can be stopped by the consumer mid-batch.
	var batch []*discordgo.Message
	for i := 0; i < 5; i++ {
		batch = append(batch, msg(i, "a", "1", "x", 0))
	}
	f := &fakeFetcher{batches: [][]*discordgo.Message{batch}}
	s := New(f, WithLimits(testLimits(10, 5)))

	var got []Message
	for m, err := range s.Matches(t.Context(), Query{ChannelID: "C1", Limit: 5}) {
		require.NoError(t, err)
		got = append(got, m)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
	assert.Len(t, f.calls, 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "target reached", TargetReached.String())
	assert.Equal(t, "history exhausted", Exhausted.String())
	assert.Equal(t, "start boundary reached", StartBoundary.String())
	assert.Equal(t, "iteration budget exceeded", BudgetExceeded.String())
	assert.Equal(t, "State(99)", State(99).String())
}
