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

// In this file: scan query and date parsing.

import (
	"errors"
	"time"
)

const (
	// DefTarget is the default number of matches a scan collects when the
	// caller does not specify a limit.
	DefTarget = 50
	// MaxTarget is the hard cap on the number of matches per scan.
	MaxTarget = 100
)

// Query describes one scan invocation.  A Query and its Result are
// transient: constructed per invocation and discarded once the response is
// serialised.
type Query struct {
	// ChannelID is the channel to scan.
	ChannelID string
	// Limit is the target match count, 1..MaxTarget.  Zero means DefTarget.
	Limit int
	// Before and After are opaque message ID cursors, passed to the
	// collaborator as-is.
	Before, After string
	// Since and Until bound the creation time of matching messages,
	// inclusive.  Zero values mean unbounded.  A message older than Since
	// terminates the scan, because the walk is strictly backward in time.
	Since, Until time.Time
	// Keyword is a case-insensitive substring filter on message content.
	Keyword string
	// Author filters by message author.
	Author AuthorMatch
	// HasAttachments, when true, requires at least one attachment.
	HasAttachments bool
}

// normalize clamps the target count to its allowed range.
func (q *Query) normalize() {
	if q.Limit <= 0 {
		q.Limit = DefTarget
	}
	if q.Limit > MaxTarget {
		q.Limit = MaxTarget
	}
}

// timeLayouts are the layouts accepted by ParseTime, in the order of
// preference.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ErrBadTime is returned by ParseTime when none of the accepted layouts
// match.
var ErrBadTime = errors.New("unrecognised time format")

// ParseTime parses a caller supplied timestamp.  It accepts RFC3339 and a
// few common date and datetime layouts.  Layouts without a zone are
// interpreted as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrBadTime
}
