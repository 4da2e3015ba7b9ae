package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/blogdraft/internal/adapters/draftfile"
	"github.com/jsamuelsen/blogdraft/internal/app/autosave"
)

const exitSaveTimeout = 10 * time.Second

type watchOptions struct {
	debounce   time.Duration
	interval   time.Duration
	saveOnExit bool
}

func newWatchCmd(e *env) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Auto-save a draft file while you edit it",
		Long: `Watch <file> and save it as a draft whenever editing pauses, and
periodically while editing continues. Drafts with an empty title and content
are never sent; unchanged drafts are not sent twice.

The id of a newly created post is written back to the file's front matter.
Send SIGUSR1 to save immediately. On exit the latest revision is saved once
more unless --save-on-exit=false.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.debounce <= 0 {
				opts.debounce = e.cfg.AutoSave.Debounce
			}

			if opts.interval <= 0 {
				opts.interval = e.cfg.AutoSave.Interval
			}

			return e.watch(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.debounce, "debounce", 0, "quiet period after an edit before saving (default autosave.debounce)")
	f.DurationVar(&opts.interval, "interval", 0, "periodic save while editing (default autosave.interval)")
	f.BoolVar(&opts.saveOnExit, "save-on-exit", true, "save the latest revision before exiting")

	return cmd
}

func (e *env) watch(ctx context.Context, out io.Writer, path string, opts watchOptions) error {
	doc, err := draftfile.Read(path)
	if err != nil {
		return err
	}

	w, err := draftfile.NewWatcher(path, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	saveNow := make(chan os.Signal, 1)
	if len(saveSignals) > 0 {
		signal.Notify(saveNow, saveSignals...)
		defer signal.Stop(saveNow)
	}

	if err := e.blogs.Check(ctx); err != nil {
		e.logger.WarnContext(ctx, "blog API not reachable, saves will fail until it is", slog.Any("error", err))
	}

	coord := autosave.New(e.blogs,
		autosave.WithDebounce(opts.debounce),
		autosave.WithInterval(opts.interval),
		autosave.WithTimeout(e.cfg.AutoSave.RequestTimeout),
		autosave.WithID(doc.ID),
		autosave.WithLogger(e.logger),
	)

	rep := &reporter{out: out, path: w.Path(), known: doc.ID, logger: e.logger}
	rep.printf("watching %s\n", path)

	reported := make(chan struct{})

	go func() {
		defer close(reported)

		for res := range coord.Results() {
			rep.report(res)
		}
	}()

	watchErr := make(chan error, 1)

	go func() {
		watchErr <- w.Run(ctx, func(d *draftfile.Document) { coord.Update(d.Draft) })
	}()

	coord.Update(doc.Draft)

	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case runErr = <-watchErr:
			break loop
		case <-saveNow:
			rep.report(coord.Save(ctx))
		}
	}

	if opts.saveOnExit {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exitSaveTimeout)
		rep.report(coord.Save(saveCtx))
		cancel()
	}

	coord.Close()
	<-reported

	return runErr
}

// reporter prints save outcomes and records new post ids in the file.
type reporter struct {
	mu     sync.Mutex
	out    io.Writer
	path   string
	known  string
	logger *slog.Logger
}

// printf writes a status line; reporter owns every write to out once the
// watch starts.
func (r *reporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, format, args...)
}

func (r *reporter) report(res autosave.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch res.Outcome {
	case autosave.Saved:
		fmt.Fprintf(r.out, "saved %q (%s, %s)\n", res.Post.Title, res.Trigger, res.Post.UpdatedAt.Local().Format(time.TimeOnly))

		if err := recordID(r.path, r.known, res.Post.ID); err != nil {
			r.logger.Error("recording post id failed", slog.Any("error", err))
			return
		}

		r.known = res.Post.ID

	case autosave.Failed:
		fmt.Fprintf(r.out, "save failed (%s): %s\n", res.Trigger, res.Message())
		r.logger.Warn("save failed", slog.String("trigger", string(res.Trigger)), slog.Any("error", res.Err))

	case autosave.SkippedEmpty:
		fmt.Fprintln(r.out, "nothing to save: title or content is empty")

	case autosave.SkippedUnchanged:
		if res.Trigger == autosave.TriggerManual {
			fmt.Fprintln(r.out, "no changes since the last save")
		}
	}
}
