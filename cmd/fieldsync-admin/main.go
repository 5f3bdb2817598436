// Command fieldsync-admin provides operator tooling for the record store:
// listing records, inspecting one record, retrying failed records, running a
// retention sweep, and reporting storage usage.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"list": {
			name:        "list",
			description: "List records, optionally filtered by status",
			run:         runList,
		},
		"show": {
			name:        "show",
			description: "Show one record by id",
			run:         runShow,
		},
		"retry": {
			name:        "retry",
			description: "Re-queue a failed record for delivery",
			run:         runRetry,
		},
		"gc": {
			name:        "gc",
			description: "Run one retention sweep over delivered records",
			run:         runGC,
		},
		"usage": {
			name:        "usage",
			description: "Report durable store usage against the configured quota",
			run:         runUsage,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stderr, "usage: fieldsync-admin <command> [flags]\n\ncommands:\n"); err != nil {
		return err
	}
	for _, cmd := range commands() {
		if err := writef(os.Stderr, "  %-8s %s\n", cmd.name, cmd.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
