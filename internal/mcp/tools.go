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

package mcp

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/discordump/internal/client"
	"github.com/rusq/discordump/internal/scan"
)

// errNotReady is returned by tool handlers when the Discord session is not
// available; the process owner is responsible for session bootstrap before
// tools are invoked.
var errNotReady = errors.New("discord client is not ready yet")

// textChannel fetches the channel and verifies it can host messages.
func (s *Server) textChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	ch, err := s.cl.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !client.IsText(ch) {
		return nil, fmt.Errorf("channel %q: %w", channelID, client.ErrNotTextChannel)
	}
	return ch, nil
}

// ─── discord_send_message ─────────────────────────────────────────────────────

func (s *Server) toolSendMessage() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_send_message",
		mcplib.WithDescription("Send a text message to a Discord channel."),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID to send the message to"),
			mcplib.Required(),
		),
		mcplib.WithString("content",
			mcplib.Description("The message text to send (up to 2000 characters)"),
			mcplib.Required(),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSendMessage}
}

func (s *Server) handleSendMessage(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}
	content, ok := stringArg(req, "content")
	if !ok || content == "" {
		return errText(errors.New("content is required")), nil
	}

	if _, err := s.textChannel(ctx, channelID); err != nil {
		return errText(err), nil
	}
	msg, err := s.cl.SendMessage(ctx, channelID, content)
	if err != nil {
		return errText(err), nil
	}

	s.logger.InfoContext(ctx, "mcp: message sent", "channel", channelID, "message_id", msg.ID)
	return resultText(fmt.Sprintf("Message sent successfully. Message ID: %s", msg.ID)), nil
}

// ─── discord_send_file ────────────────────────────────────────────────────────

func (s *Server) toolSendFile() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_send_file",
		mcplib.WithDescription("Upload a file from the local filesystem to a Discord channel, with an optional text message."),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID to upload the file to"),
			mcplib.Required(),
		),
		mcplib.WithString("file_path",
			mcplib.Description("Filesystem path of the file to upload"),
			mcplib.Required(),
		),
		mcplib.WithString("content",
			mcplib.Description("Optional message text to send along with the file"),
		),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSendFile}
}

func (s *Server) handleSendFile(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}
	filePath, ok := stringArg(req, "file_path")
	if !ok || filePath == "" {
		return errText(errors.New("file_path is required")), nil
	}
	content, _ := stringArg(req, "content")

	if _, err := s.textChannel(ctx, channelID); err != nil {
		return errText(err), nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return errText(err), nil
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return errText(err), nil
	}

	name := filepath.Base(filePath)
	msg, err := s.cl.SendFile(ctx, channelID, content, name, f)
	if err != nil {
		return errText(err), nil
	}

	s.logger.InfoContext(ctx, "mcp: file uploaded", "channel", channelID, "file", name, "size", fi.Size())
	return resultText(fmt.Sprintf(
		"File %q (%s) uploaded successfully. Message ID: %s",
		name, humanize.Bytes(uint64(fi.Size())), msg.ID,
	)), nil
}

// ─── discord_read_messages ────────────────────────────────────────────────────

func (s *Server) toolReadMessages() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_read_messages",
		mcplib.WithDescription("Read recent messages from a Discord channel, newest first, without filtering."),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID to read messages from"),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of messages to return (1–100, default 50)"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleReadMessages}
}

func (s *Server) handleReadMessages(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}
	limit := clampLimit(intArg(req, "limit", scan.DefTarget))

	if _, err := s.textChannel(ctx, channelID); err != nil {
		return errText(err), nil
	}
	raw, err := s.cl.Messages(ctx, channelID, limit, "", "")
	if err != nil {
		return errText(err), nil
	}

	msgs := make([]scan.Message, 0, len(raw))
	for _, m := range raw {
		msgs = append(msgs, scan.Project(m))
	}
	body, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return errText(err), nil
	}
	return resultText(fmt.Sprintf("Retrieved %d messages:\n\n%s", len(msgs), body)), nil
}

// ─── discord_get_attachments ──────────────────────────────────────────────────

// attachmentInfo is an attachment projection annotated with its message of
// origin.
type attachmentInfo struct {
	MessageID string `json:"message_id"`
	Author    string `json:"author,omitempty"`
	Timestamp string `json:"timestamp"`
	scan.Attachment
}

func (s *Server) toolGetAttachments() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_get_attachments",
		mcplib.WithDescription("List attachments of the most recent messages in a Discord channel, with filenames, sizes and download URLs."),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID to inspect"),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Number of recent messages to inspect for attachments (1–100, default 50)"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetAttachments}
}

func (s *Server) handleGetAttachments(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}
	limit := clampLimit(intArg(req, "limit", scan.DefTarget))

	if _, err := s.textChannel(ctx, channelID); err != nil {
		return errText(err), nil
	}
	raw, err := s.cl.Messages(ctx, channelID, limit, "", "")
	if err != nil {
		return errText(err), nil
	}

	attachments := make([]attachmentInfo, 0)
	for _, m := range raw {
		proj := scan.Project(m)
		for _, a := range proj.Attachments {
			attachments = append(attachments, attachmentInfo{
				MessageID:  proj.ID,
				Author:     proj.Author,
				Timestamp:  proj.Timestamp,
				Attachment: a,
			})
		}
	}
	body, err := json.MarshalIndent(attachments, "", "  ")
	if err != nil {
		return errText(err), nil
	}
	return resultText(fmt.Sprintf(
		"Found %d attachments in the last %d messages:\n\n%s",
		len(attachments), len(raw), body,
	)), nil
}

// ─── discord_get_channel_info ─────────────────────────────────────────────────

// channelSummary is a JSON-serialisable summary of a Discord channel.
type channelSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id,omitempty"`
	NSFW    bool   `json:"nsfw,omitempty"`
}

func (s *Server) toolGetChannelInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_get_channel_info",
		mcplib.WithDescription("Get information about a Discord channel: name, topic, type and guild."),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID"),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetChannelInfo}
}

func (s *Server) handleGetChannelInfo(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}

	ch, err := s.cl.Channel(ctx, channelID)
	if err != nil {
		return errText(err), nil
	}
	body, err := json.MarshalIndent(channelSummary{
		ID:      ch.ID,
		Name:    ch.Name,
		Topic:   ch.Topic,
		Type:    int(ch.Type),
		GuildID: ch.GuildID,
		NSFW:    ch.NSFW,
	}, "", "  ")
	if err != nil {
		return errText(err), nil
	}
	return resultText(string(body)), nil
}

// ─── discord_get_messages_advanced ────────────────────────────────────────────

func (s *Server) toolGetMessagesAdvanced() mcpsrv.ServerTool {
	tool := mcplib.NewTool("discord_get_messages_advanced",
		mcplib.WithDescription(`Retrieve messages from a Discord channel with advanced filtering.

Walks the channel history backwards in batches, starting from 'before' (or
the most recent message), applying every supplied filter to each message,
until 'limit' matches are collected or the history is exhausted.  Returns
the matches newest first, together with a summary of the applied filters
and the total number of messages scanned.`),
		mcplib.WithString("channel_id",
			mcplib.Description("The Discord channel ID to retrieve messages from"),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of matching messages to return (1–100, default 50)"),
		),
		mcplib.WithString("before",
			mcplib.Description("Only consider messages older than this message ID (pagination cursor)"),
		),
		mcplib.WithString("after",
			mcplib.Description("Only consider messages newer than this message ID"),
		),
		mcplib.WithString("start_date",
			mcplib.Description("Only return messages created at or after this time (RFC3339 or YYYY-MM-DD)"),
		),
		mcplib.WithString("end_date",
			mcplib.Description("Only return messages created at or before this time (RFC3339 or YYYY-MM-DD)"),
		),
		mcplib.WithString("keyword",
			mcplib.Description("Only return messages whose content contains this keyword (case-insensitive)"),
		),
		mcplib.WithString("author",
			mcplib.Description("Only return messages whose author has this exact username or user ID"),
		),
		mcplib.WithBoolean("has_attachments",
			mcplib.Description("When true, only return messages that carry at least one attachment"),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetMessagesAdvanced}
}

func (s *Server) handleGetMessagesAdvanced(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.cl == nil {
		return errText(errNotReady), nil
	}
	channelID, ok := stringArg(req, "channel_id")
	if !ok || channelID == "" {
		return errText(errors.New("channel_id is required")), nil
	}

	q := scan.Query{
		ChannelID:      channelID,
		Limit:          intArg(req, "limit", scan.DefTarget),
		HasAttachments: boolArg(req, "has_attachments", false),
	}
	q.Before, _ = stringArg(req, "before")
	q.After, _ = stringArg(req, "after")
	q.Keyword, _ = stringArg(req, "keyword")
	if author, _ := stringArg(req, "author"); author != "" {
		q.Author = scan.Author(author)
	}
	// An unparseable date is treated as an absent bound, not an error.
	if sd, _ := stringArg(req, "start_date"); sd != "" {
		t, err := scan.ParseTime(sd)
		if err != nil {
			s.logger.DebugContext(ctx, "mcp: ignoring unparseable start_date", "value", sd)
		} else {
			q.Since = t
		}
	}
	if ed, _ := stringArg(req, "end_date"); ed != "" {
		t, err := scan.ParseTime(ed)
		if err != nil {
			s.logger.DebugContext(ctx, "mcp: ignoring unparseable end_date", "value", ed)
		} else {
			q.Until = t
		}
	}

	if _, err := s.textChannel(ctx, channelID); err != nil {
		return errText(err), nil
	}

	res, err := s.scanner.Scan(ctx, q)
	if err != nil {
		return errText(err), nil
	}
	s.logger.InfoContext(ctx, "mcp: advanced scan done",
		"channel", channelID, "matched", len(res.Messages),
		"fetched", res.TotalFetched, "state", res.State.String())

	summary, err := json.MarshalIndent(res.Summary, "", "  ")
	if err != nil {
		return errText(err), nil
	}
	body, err := json.MarshalIndent(res.Messages, "", "  ")
	if err != nil {
		return errText(err), nil
	}
	// Literal payload order: count line, summary, matches.
	return resultText(fmt.Sprintf(
		"Found %d matching messages (scanned %d):\n\nFilters applied:\n%s\n\nMessages:\n%s",
		len(res.Messages), res.TotalFetched, summary, body,
	)), nil
}

// clampLimit bounds a per-request message count to 1..100.
func clampLimit(limit int) int {
	return max(min(limit, scan.MaxTarget), 1)
}
