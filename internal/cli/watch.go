package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/swirl/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve whenever records change",
		Long: `Resolve the record directory, then watch it and resolve again after
every batch of record file changes. A failed resolve is reported and
leaves the previous cache in place.

Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, rootOpts, cmd)
		},
	}
}

func runWatch(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ws, err := openWorkspace(opts)
	if err != nil {
		return formatter.Fail(err)
	}
	defer ws.Close()

	w, err := watch.New(ws.store.Dir(), opts.Config.Debounce)
	if err != nil {
		return formatter.Fail(err)
	}
	if err := w.Start(); err != nil {
		return formatter.Fail(err)
	}
	defer w.Stop()

	reresolve := func() {
		res, err := ws.resolve(ctx)
		if err != nil {
			code := ErrorCode(err)
			slog.Warn("resolve failed", "code", code, "error", err)
			_ = formatter.Error(code, err.Error(), nil)
			return
		}
		_ = outputResolve(formatter, res)
	}

	reresolve()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-w.Changes:
			if !ok {
				return nil
			}
			formatter.VerboseLog("%d record file(s) changed", len(batch.Files))
			reresolve()
		}
	}
}
