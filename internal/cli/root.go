package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hongminglow/fieldops-dashboard/internal/config"
)

// testAppOverride lets tests inject a pre-wired App.
// When set, commands use it instead of building one from the environment.
var testAppOverride *App

// NewRootCommand builds the fieldops command tree.
func NewRootCommand() *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:   "fieldops",
		Short: "Offline-first dashboard client for field operations",
		Long: `fieldops keeps a local copy of the field-operations dashboard.

It signs in against the field-data API, caches the last dashboard snapshot
on disk so it is available without a connection, and purges every cached
record when a different user signs in on the same device.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if testAppOverride != nil {
				app = testAppOverride
				return nil
			}
			_ = godotenv.Load()
			cfg, err := config.LoadClient()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			slog.SetDefault(logger)
			app, err = NewApp(cmd.Context(), cfg, logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil || app == testAppOverride {
				return nil
			}
			return app.Close()
		},
	}

	current := func() *App { return app }
	root.AddCommand(
		newLoginCmd(current),
		newLogoutCmd(current),
		newLoadCmd(current),
		newCachedCmd(current),
		newAddUserCmd(current),
		newClearCmd(current),
		newSwitchIdentityCmd(current),
		newServeCmd(current),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes text to an interactive terminal and JSON otherwise, so
// piped runs stay machine-readable.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
