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

// In this file: MCP server construction and transport management.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/discordump/internal/client"
	"github.com/rusq/discordump/internal/network"
	"github.com/rusq/discordump/internal/scan"
)

const (
	serverName    = "discordump-mcp"
	serverVersion = "1.0.0"
)

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout for communication (default, suitable
	// for local agent integrations such as Claude Desktop).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses Streamable HTTP transport (suitable for remote
	// agents or when multiple concurrent clients are needed).
	TransportHTTP Transport = "http"
)

// Server wraps an MCP server, the Discord client it operates, and the
// history scanner.
type Server struct {
	mcp     *mcpsrv.MCPServer
	cl      client.Discord
	scanner *scan.Scanner
	limits  network.Limits
	logger  *slog.Logger
}

// New creates a new MCP server backed by the given Discord client.  The
// server is populated with all available tools but does not start listening
// until one of the Serve* methods is called.
func New(cl client.Discord, opt ...ServerOption) *Server {
	s := &Server{
		cl:     cl,
		logger: slog.Default(),
		limits: network.DefLimits,
	}
	for _, o := range opt {
		o(s)
	}
	s.scanner = scan.New(cl, scan.WithLimits(s.limits), scan.WithLogger(s.logger))

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithInstructions(instructions()),
	)

	// Register all tools.
	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}

	s.mcp = mcpServer
	return s
}

// ServerOption is the signature of the server option function.
type ServerOption func(*Server)

// WithLogger sets the logger.  Nil falls back to slog.Default().
func WithLogger(lg *slog.Logger) ServerOption {
	return func(s *Server) {
		if lg == nil {
			lg = slog.Default()
		}
		s.logger = lg
	}
}

// WithLimits sets the API limits used by the scanner.
func WithLimits(limits network.Limits) ServerOption {
	return func(s *Server) {
		s.limits = limits
	}
}

// instructions returns the server instructions that describe this server to
// the connecting agent.
func instructions() string {
	return `You are connected to a Discord MCP server.

Available tools allow you to:
- Send a text message to a channel
- Upload a file to a channel
- Read recent messages from a channel
- List attachments of recent messages
- Get channel information
- Retrieve messages with advanced filtering (time window, keyword, author,
  attachment presence), paginated backwards through the channel history

Message and channel IDs are Discord snowflakes (decimal strings).  A failed
tool call returns a text payload starting with "Error:".
`
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the standard transport used by local agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until
// ctx is cancelled.  addr should be a host:port string such as "127.0.0.1:8618".
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr}
	streamSrv := mcpsrv.NewStreamableHTTPServer(s.mcp,
		mcpsrv.WithStreamableHTTPServer(httpSrv),
	)

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := streamSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		if err := streamSrv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// tools returns all MCP tools that this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolSendMessage(),
		s.toolSendFile(),
		s.toolReadMessages(),
		s.toolGetAttachments(),
		s.toolGetChannelInfo(),
		s.toolGetMessagesAdvanced(),
	}
}

// resultText is a helper that wraps text in a successful CallToolResult.
func resultText(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}

// errText encodes a handler failure.  Failures never cross the tool
// boundary as transport errors: they are successful results whose payload
// is the literal "Error: <message>".
func errText(err error) *mcplib.CallToolResult {
	return mcplib.NewToolResultText("Error: " + err.Error())
}

// stringArg extracts a named string argument from a tool call request.
// Returns ("", false) if the argument is absent or not a string.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg extracts a named int argument from a tool call request.  The MCP
// protocol serialises numbers as float64, so we convert accordingly.
func intArg(req mcplib.CallToolRequest, name string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// boolArg extracts a named bool argument from a tool call request.
func boolArg(req mcplib.CallToolRequest, name string, defaultVal bool) bool {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}
