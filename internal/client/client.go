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

// Package client wraps the Discord REST client behind a narrow interface,
// adding rate limiting and retries to every remote call.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/rusq/discordump/internal/network"
)

//go:generate mockgen -destination mock_client/mock_client.go . Discord

// Discord is the interface with the functions of the Discord client that
// this program consumes.
type Discord interface {
	// Channel returns the channel information for the given channel ID.
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	// Messages returns up to limit messages from the channel history,
	// strictly older than beforeID and newer than afterID, if set.
	Messages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error)
	// SendMessage posts a text message to the channel.
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)
	// SendFile uploads a file to the channel, with an optional text message.
	SendFile(ctx context.Context, channelID, content, filename string, r io.Reader) (*discordgo.Message, error)
	// Me returns the authenticated bot user.
	Me(ctx context.Context) (*discordgo.User, error)
}

var (
	// ErrNotReady is returned when the Discord session has not been
	// initialised, i.e. when the bot token is missing or invalid.
	ErrNotReady = errors.New("discord session is not ready, check the bot token")
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotTextChannel is returned when the channel can not host text
	// messages.
	ErrNotTextChannel = errors.New("not a text channel")
)

var _ Discord = (*Client)(nil)

// Client wraps *discordgo.Session.  All remote calls go through the
// rate limiter and the retry wrapper, so that the Discord 429 handling is
// owned by this package and not by discordgo's built-in retry.
type Client struct {
	s        *discordgo.Session
	lim      *rate.Limiter
	attempts int
}

// New creates a new Client with the given bot token.  The session is not
// opened: this client only speaks REST, it holds no gateway connection.
func New(token string, opt ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrNotReady)
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	// 429s are handled by network.WithRetry.
	session.ShouldRetryOnRateLimit = false
	return Wrap(session, opt...), nil
}

// Wrap wraps an initialised *discordgo.Session.  Intended for testing.
func Wrap(session *discordgo.Session, opt ...Option) *Client {
	c := &Client{
		s:        session,
		lim:      network.DefLimits.NewLimiter(),
		attempts: network.DefLimits.RetryAttempts,
	}
	for _, o := range opt {
		o(c)
	}
	return c
}

// Option is the signature of the client option function.
type Option func(*Client)

// WithLimits sets the request rate and retry attempts from limits.
func WithLimits(limits network.Limits) Option {
	return func(c *Client) {
		c.lim = limits.NewLimiter()
		c.attempts = limits.RetryAttempts
	}
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	if c.s == nil {
		return ErrNotReady
	}
	return network.WithRetry(ctx, c.lim, c.attempts, fn)
}

func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	var ch *discordgo.Channel
	err := c.withRetry(ctx, func() error {
		var err error
		ch, err = c.s.Channel(channelID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("channel %q: %w", channelID, ErrNotFound)
		}
		return nil, err
	}
	return ch, nil
}

func (c *Client) Messages(ctx context.Context, channelID string, limit int, beforeID, afterID string) ([]*discordgo.Message, error) {
	var msgs []*discordgo.Message
	err := c.withRetry(ctx, func() error {
		var err error
		msgs, err = c.s.ChannelMessages(channelID, limit, beforeID, afterID, "", discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("channel %q: %w", channelID, ErrNotFound)
		}
		return nil, err
	}
	return msgs, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	var msg *discordgo.Message
	err := c.withRetry(ctx, func() error {
		var err error
		msg, err = c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("channel %q: %w", channelID, ErrNotFound)
		}
		return nil, err
	}
	return msg, nil
}

func (c *Client) SendFile(ctx context.Context, channelID, content, filename string, r io.Reader) (*discordgo.Message, error) {
	var msg *discordgo.Message
	err := c.withRetry(ctx, func() error {
		// rewind the file between attempts, if possible.
		if sk, ok := r.(io.Seeker); ok {
			if _, err := sk.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		var err error
		msg, err = c.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: content,
			Files: []*discordgo.File{
				{Name: filename, Reader: r},
			},
		}, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("channel %q: %w", channelID, ErrNotFound)
		}
		return nil, err
	}
	return msg, nil
}

func (c *Client) Me(ctx context.Context) (*discordgo.User, error) {
	var u *discordgo.User
	err := c.withRetry(ctx, func() error {
		var err error
		u, err = c.s.User("@me", discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return u, nil
}

// isNotFound returns true if err is a Discord REST 404.
func isNotFound(err error) bool {
	var re *discordgo.RESTError
	return errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == http.StatusNotFound
}

// IsText reports whether the channel can host text messages.
func IsText(ch *discordgo.Channel) bool {
	if ch == nil {
		return false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	}
	return false
}
