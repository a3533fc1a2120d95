// Command storyctl manages the saved Story Universe artifacts from a terminal.
// It reads the same configuration and storage as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/app"
	"github.com/yangwenmai/storyverse/internal/config"
	"github.com/yangwenmai/storyverse/internal/logger"
	"github.com/yangwenmai/storyverse/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	yes      bool
	jsonOut  bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "storyctl",
		Short: "Manage saved Story Universe artifacts",
		Long: `storyctl lists, searches and prunes the characters, storyboards and
search history saved by the Story Universe server, and runs searches and
generations against the configured backend.

Storage and backend settings are read from the environment and from
.env.local / .env in the working directory.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation prompts")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	characters := galleryCmd(opts, charactersGallery)
	characters.AddCommand(newCharacterGenerateCmd(opts))
	storyboards := galleryCmd(opts, storyboardsGallery)
	storyboards.AddCommand(newStoryboardGenerateCmd(opts))

	root.AddCommand(
		characters,
		storyboards,
		galleryCmd(opts, historyGallery),
		newRecentCmd(opts),
		newSearchCmd(opts),
		newTopicsCmd(opts),
		newOutlineCmd(opts),
		newGenerateCmd(opts),
	)
	return root
}

// env is what a subcommand runs against.
type env struct {
	cfg config.Config
	log *zap.Logger
	app *app.App
}

func (o *rootOptions) open(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Config{Level: o.logLevel, Encoding: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, err
	}

	var confirm store.Confirmer = store.NewPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	if o.yes {
		confirm = store.AlwaysConfirm
	}
	a, err := app.Open(cmd.Context(), cfg, confirm, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, app: a}, nil
}

func (e *env) Close() {
	if err := e.app.Close(); err != nil {
		e.log.Warn("close storage", zap.Error(err))
	}
	_ = e.log.Sync()
}

// ---------------------------------------------------------------------------
// Output helpers
// ---------------------------------------------------------------------------

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func star(fav bool) string {
	if fav {
		return "*"
	}
	return ""
}
