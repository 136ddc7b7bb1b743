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

// Package scan implements the paginated filtered history scanner.  It walks
// a channel's message history strictly backward in time in batches,
// applying a compound filter (time window, keyword, author, attachment
// presence) to each message, and accumulates matches until the target count
// is reached or the history or the iteration budget is exhausted.
//
// The walk is exposed both as a lazy sequence (Scanner.Matches) that the
// consumer may stop at any point, and as a collecting call (Scanner.Scan)
// that returns the matches together with a summary of the applied filters.
package scan

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/rusq/discordump/internal/network"
)

// Fetcher is the collaborator interface consumed by the scanner: one
// remote call's worth of history, at most limit messages, strictly older
// than beforeID and newer than afterID.  Order is not guaranteed.
type Fetcher interface {
	Messages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error)
}

// State is the terminal state of a walk.
type State uint8

const (
	// Running means the walk has not terminated.
	Running State = iota
	// TargetReached means the target match count was collected.
	TargetReached
	// Exhausted means the remote history ran out before the target was
	// reached.
	Exhausted
	// StartBoundary means a message older than the start of the time
	// window was reached; no older message can be in the window.
	StartBoundary
	// BudgetExceeded means the batch iteration budget was spent.
	BudgetExceeded
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case TargetReached:
		return "target reached"
	case Exhausted:
		return "history exhausted"
	case StartBoundary:
		return "start boundary reached"
	case BudgetExceeded:
		return "iteration budget exceeded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Scanner walks channel histories.  It holds no cross-call state and is
// safe for concurrent use as long as the Fetcher is.
type Scanner struct {
	client     Fetcher
	maxBatches int
	batchSize  int
	lg         *slog.Logger
}

// New creates a Scanner over the given Fetcher.
func New(cl Fetcher, opt ...Option) *Scanner {
	s := &Scanner{
		client:     cl,
		maxBatches: network.DefLimits.MaxBatches,
		batchSize:  network.DefLimits.BatchSize,
		lg:         slog.Default(),
	}
	for _, o := range opt {
		o(s)
	}
	return s
}

// Option is the signature of the scanner option function.
type Option func(*Scanner)

// WithLimits sets the iteration budget and the batch size from limits.
func WithLimits(limits network.Limits) Option {
	return func(s *Scanner) {
		if limits.MaxBatches > 0 {
			s.maxBatches = limits.MaxBatches
		}
		if limits.BatchSize > 0 {
			s.batchSize = limits.BatchSize
		}
	}
}

// WithLogger sets the logger.  Nil falls back to slog.Default().
func WithLogger(lg *slog.Logger) Option {
	return func(s *Scanner) {
		if lg == nil {
			lg = slog.Default()
		}
		s.lg = lg
	}
}

// Scan runs the full walk for q and collects the result.  Any batch fetch
// failure aborts the scan: the error is returned and whatever was
// accumulated is discarded.
func (s *Scanner) Scan(ctx context.Context, q Query) (*Result, error) {
	q.normalize()
	w := &walk{s: s, q: q}
	msgs := make([]Message, 0, q.Limit)
	for m, err := range w.seq(ctx) {
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	s.lg.DebugContext(ctx, "scan finished",
		"channel", q.ChannelID, "state", w.state.String(),
		"matched", len(msgs), "fetched", w.fetched, "batches", w.batches)
	return &Result{
		Messages:     msgs,
		Summary:      newSummary(q, w.fetched),
		TotalFetched: w.fetched,
		State:        w.state,
	}, nil
}

// Matches returns the walk for q as a lazy sequence of matching messages.
// The sequence terminates on its own once the target count is reached, the
// history or the iteration budget is exhausted, or the start boundary is
// crossed; the consumer may stop it earlier.  A fetch failure is yielded
// as the second element, after which the sequence ends.
func (s *Scanner) Matches(ctx context.Context, q Query) iter.Seq2[Message, error] {
	q.normalize()
	return (&walk{s: s, q: q}).seq(ctx)
}

// walk holds the mutable state of one scan invocation.
type walk struct {
	s       *Scanner
	q       Query
	fetched int // raw messages fetched, before filtering
	batches int // batch fetch calls issued
	state   State
}

func (w *walk) seq(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		cursor := w.q.Before
		matched := 0
		for w.state == Running {
			if err := ctx.Err(); err != nil {
				yield(Message{}, err)
				return
			}
			if w.batches >= w.s.maxBatches {
				w.state = BudgetExceeded
				return
			}
			batch, err := w.s.client.Messages(ctx, w.q.ChannelID, w.s.batchSize, cursor, w.q.After)
			if err != nil {
				yield(Message{}, fmt.Errorf("fetch batch %d: %w", w.batches+1, err))
				return
			}
			w.batches++
			if len(batch) == 0 {
				w.state = Exhausted
				return
			}
			// The batch is not guaranteed to be pre-sorted.
			slices.SortFunc(batch, func(a, b *discordgo.Message) int {
				return b.Timestamp.Compare(a.Timestamp)
			})
			for _, m := range batch {
				if !w.q.Since.IsZero() && m.Timestamp.Before(w.q.Since) {
					// The walk is strictly backward in time: once a
					// message predates the window start, no message in
					// this or any later batch can be in the window.
					w.state = StartBoundary
					return
				}
				if !w.q.Until.IsZero() && m.Timestamp.After(w.q.Until) {
					// Too new: later messages of the walk may still be
					// in the window, skip just this one.
					continue
				}
				if !w.q.matches(m) {
					continue
				}
				if !yield(Project(m), nil) {
					return
				}
				matched++
				if matched >= w.q.Limit {
					w.state = TargetReached
					break
				}
			}
			cursor = batch[len(batch)-1].ID // oldest of the batch
			w.fetched += len(batch)
			if w.state == Running && len(batch) < w.s.batchSize {
				w.state = Exhausted
			}
		}
	}
}
