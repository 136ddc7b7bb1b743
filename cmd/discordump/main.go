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

// Command discordump starts a Discord MCP tool server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"

	"github.com/rusq/discordump/internal/client"
	"github.com/rusq/discordump/internal/mcp"
	"github.com/rusq/discordump/internal/network"
)

const envToken = "DISCORD_TOKEN"

var build = "dev"

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

// params is the command line parameters.
type params struct {
	token      string
	transport  string
	listenAddr string
	limitsFile string

	printVersion bool
	verbose      bool
}

func main() {
	loadSecrets(secrets)

	p, err := parseCmdLine(os.Args[1:])
	if err != nil {
		slog.Error("invalid parameters", "error", err)
		os.Exit(2)
	}
	if p.printVersion {
		fmt.Println(build)
		return
	}
	initLog(p.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, p); err != nil {
		slog.Error("run", "error", err)
		os.Exit(1)
	}
}

// run starts the server with the given parameters.
func run(ctx context.Context, p params) error {
	limits := network.DefLimits
	if p.limitsFile != "" {
		var err error
		if limits, err = network.LoadLimits(p.limitsFile); err != nil {
			return err
		}
	}

	cl, err := client.New(p.token, client.WithLimits(limits))
	if err != nil {
		return err
	}
	// Probe the token before accepting tool calls.
	me, err := cl.Me(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "authenticated", "bot", me.Username, "id", me.ID)

	srv := mcp.New(cl, mcp.WithLimits(limits))
	switch mcp.Transport(p.transport) {
	case mcp.TransportStdio:
		return srv.ServeStdio(ctx)
	case mcp.TransportHTTP:
		return srv.ServeHTTP(ctx, p.listenAddr)
	default:
		return fmt.Errorf("unknown transport: %q", p.transport)
	}
}

// parseCmdLine parses the command line arguments.
func parseCmdLine(args []string) (params, error) {
	fs := flag.NewFlagSet("discordump", flag.ContinueOnError)

	var p params
	fs.StringVar(&p.token, "token", osenv.Secret(envToken, ""), "Discord bot `token` (environment: "+envToken+")")
	fs.StringVar(&p.transport, "transport", "stdio", "MCP transport: \"stdio\" or \"http\"")
	fs.StringVar(&p.listenAddr, "listen", "127.0.0.1:8618", "address to listen on when -transport=http")
	fs.StringVar(&p.limitsFile, "limits", osenv.Value("DISCORDUMP_LIMITS", ""), "TOML `file` with API limits overrides")
	fs.BoolVar(&p.verbose, "v", osenv.Value("DEBUG", false), "verbose messages")
	fs.BoolVar(&p.printVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return p, err
	}
	if !p.printVersion && p.token == "" {
		return p, fmt.Errorf("no token: set %s or pass -token", envToken)
	}
	return p, nil
}

// initLog initialises the logger.  Stdout belongs to the MCP stdio
// transport, so all log output goes to stderr.
func initLog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}
