package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/origolabs/origo/internal/services"
	"github.com/origolabs/origo/internal/watcher"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		format   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:     "watch <dir>",
		Aliases: []string{"w"},
		Short:   "Audit and preview archives as they appear in a directory",
		Long: `Watch a directory tree for .zip archives. Each created or modified
archive is audited and, when the audit passes, previewed under the id taken
from its file name: drops/shop.zip becomes previews/shop.html.

Examples:
  origo watch ./drops
  origo watch ./drops --debounce 1s --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			svc, err := a.services()
			if err != nil {
				return err
			}

			fw, err := watcher.NewFileWatcher(debounce, a.logger)
			if err != nil {
				return err
			}
			defer fw.Stop()

			fw.AddFilter(watcher.ZipFilter)
			fw.AddFilter(watcher.NoHiddenFilter)
			fw.AddFilter(watcher.NoGitFilter)
			if err := fw.AddRecursive(args[0]); err != nil {
				return fmt.Errorf("failed to watch %s: %w", args[0], err)
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
				mu.Lock()
				defer mu.Unlock()
				return processChanges(ctx, svc, out, format, events)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := fw.Start(ctx); err != nil {
				return err
			}
			a.logger.Info(ctx, "watching for archives", "dir", args[0])
			<-ctx.Done()

			return nil
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before an archive is processed")

	return cmd
}

// processChanges runs every archive that still exists through the audit and
// preview pipeline and reports each outcome.
func processChanges(ctx context.Context, svc *services.Services, w io.Writer, format string, events []watcher.ChangeEvent) error {
	for _, e := range events {
		if !e.Exists() {
			continue
		}
		result := svc.ProcessArchive(ctx, e.Path)
		err := render(w, format, result, func(w io.Writer) {
			switch {
			case result.Error != "":
				fmt.Fprintf(w, "%s: error: %s\n", result.Path, result.Error)
			case !result.Audit.OK:
				fmt.Fprintf(w, "%s: audit failed\n", result.Path)
				writeIssues(w, "  ", result.Audit.Issues)
			default:
				fmt.Fprintf(w, "%s: preview %s\n", result.Path, result.Preview)
			}
		})
		if err != nil {
			return err
		}
	}

	return nil
}
