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

// In this file: per-message filter predicates.

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// authorField identifies the message author attribute an AuthorMatch term
// is compared against.
type authorField uint8

const (
	byName authorField = iota // display name
	byID                      // opaque user ID
)

// authorFields is the closed set of attributes checked by AuthorMatch.
var authorFields = []authorField{byName, byID}

// AuthorMatch matches a message author by exact equality of the term
// against either the display name or the user ID.  The zero value matches
// any author.
type AuthorMatch struct {
	term string
}

// Author returns an AuthorMatch for the given term.
func Author(term string) AuthorMatch {
	return AuthorMatch{term: term}
}

// IsZero reports whether the match is unconstrained.
func (a AuthorMatch) IsZero() bool {
	return a.term == ""
}

func (a AuthorMatch) String() string {
	if a.IsZero() {
		return "any"
	}
	return a.term
}

func (a AuthorMatch) matchField(f authorField, u *discordgo.User) bool {
	switch f {
	case byName:
		return u.Username == a.term
	case byID:
		return u.ID == a.term
	}
	return false
}

// Matches reports whether the author satisfies the match.  A message
// without an author only satisfies the unconstrained match.
func (a AuthorMatch) Matches(u *discordgo.User) bool {
	if a.IsZero() {
		return true
	}
	if u == nil {
		return false
	}
	for _, f := range authorFields {
		if a.matchField(f, u) {
			return true
		}
	}
	return false
}

// matches applies the keyword, author and attachment filters, in that
// order, short-circuiting on the first failing one.  Time bounds are not
// checked here: they control the walk itself (see walk.seq).
func (q *Query) matches(m *discordgo.Message) bool {
	if q.Keyword != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(q.Keyword)) {
		return false
	}
	if !q.Author.Matches(m.Author) {
		return false
	}
	if q.HasAttachments && len(m.Attachments) == 0 {
		return false
	}
	return true
}
