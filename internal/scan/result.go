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

// In this file: message and attachment projections, summary, and result.

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Message is a read-only projection of a Discord message, snapshotted at
// fetch time.
type Message struct {
	ID          string       `json:"id"`
	Author      string       `json:"author"`
	AuthorID    string       `json:"author_id"`
	Content     string       `json:"content"`
	Timestamp   string       `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Embeds      int          `json:"embeds,omitempty"`
	Reactions   int          `json:"reactions,omitempty"`
}

// Attachment is a projection of a message attachment.
type Attachment struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Project converts a discordgo message into its projection.
func Project(m *discordgo.Message) Message {
	msg := Message{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		Embeds:    len(m.Embeds),
		Reactions: len(m.Reactions), // distinct reaction types, not total reacts
	}
	if m.Author != nil {
		msg.Author = m.Author.Username
		msg.AuthorID = m.Author.ID
	}
	if len(m.Attachments) > 0 {
		msg.Attachments = make([]Attachment, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:    a.Filename,
				URL:         a.URL,
				Size:        a.Size,
				ContentType: a.ContentType,
			})
		}
	}
	return msg
}

// Summary echoes the effective filters of a finished scan and the total
// number of messages fetched from the remote before filtering.
type Summary struct {
	DateRange      string `json:"date_range"`
	Keyword        string `json:"keyword"`
	Author         string `json:"author"`
	HasAttachments bool   `json:"has_attachments"`
	Before         string `json:"before,omitempty"`
	After          string `json:"after,omitempty"`
	TotalFetched   int    `json:"total_messages_fetched"`
}

func newSummary(q Query, fetched int) Summary {
	s := Summary{
		DateRange:      "none",
		Keyword:        "none",
		Author:         q.Author.String(),
		HasAttachments: q.HasAttachments,
		Before:         q.Before,
		After:          q.After,
		TotalFetched:   fetched,
	}
	switch {
	case !q.Since.IsZero() && !q.Until.IsZero():
		s.DateRange = q.Since.Format(time.RFC3339) + " to " + q.Until.Format(time.RFC3339)
	case !q.Since.IsZero():
		s.DateRange = "from " + q.Since.Format(time.RFC3339)
	case !q.Until.IsZero():
		s.DateRange = "until " + q.Until.Format(time.RFC3339)
	}
	if q.Keyword != "" {
		s.Keyword = q.Keyword
	}
	return s
}

// Result is the outcome of one scan: matches in newest-first order, the
// filter summary, and the terminal state of the walk.
type Result struct {
	Messages     []Message `json:"messages"`
	Summary      Summary   `json:"summary"`
	TotalFetched int       `json:"total_fetched"`
	State        State     `json:"-"`
}
