package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"threadlist/internal/format"
	"threadlist/internal/listview"
	"threadlist/internal/reconcile"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

type watchEvent struct {
	Event   string             `json:"event"`
	Seq     int64              `json:"seq,omitempty"`
	Outcome *reconcile.Outcome `json:"outcome,omitempty"`
	Op      *listview.Op       `json:"op,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// watcher drives a reconcile controller over an off-screen list and streams
// what happens as one record per line.
type watcher struct {
	store  *store.Store
	ctrl   *reconcile.Controller
	list   *listview.List
	out    *format.Stream
	log    logrus.FieldLogger
	cursor int64
}

func newWatcher(s *store.Store, mode renderstate.Mode, out *format.Stream, log logrus.FieldLogger, showOps bool) *watcher {
	w := &watcher{store: s, out: out, log: log}
	w.list = listview.New(nil)
	if showOps {
		w.list.SetObserver(func(op listview.Op) {
			w.emit(watchEvent{Event: "op", Op: &op})
		})
	}
	w.ctrl = reconcile.New(s, w.list, nil, reconcile.WithLogger(log), reconcile.WithMode(mode))
	return w
}

func (w *watcher) emit(ev watchEvent) {
	if err := w.out.Emit(ev); err != nil {
		w.log.WithError(err).Warn("watch: write failed")
	}
}

func (w *watcher) start(ctx context.Context) error {
	cursor, err := w.store.LatestSeq(ctx)
	if err != nil {
		return err
	}
	w.cursor = cursor
	out, err := w.ctrl.Reset(ctx)
	if err != nil {
		return err
	}
	w.emitOutcome(out)
	return nil
}

func (w *watcher) emitOutcome(out reconcile.Outcome) {
	ev := watchEvent{Event: "outcome", Seq: w.cursor, Outcome: &out}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	w.emit(ev)
}

// poll feeds new change log entries to the controller. It reports whether
// anything was reconciled.
func (w *watcher) poll(ctx context.Context) (bool, error) {
	batch, err := w.store.ChangesSince(ctx, w.cursor)
	if err != nil {
		return false, err
	}
	if batch.Empty() {
		return false, nil
	}
	w.cursor = batch.Cursor
	out, err := w.ctrl.Notify(ctx, batch.Identities())
	if err != nil {
		return false, err
	}
	w.emitOutcome(out)
	return true, nil
}

func (w *watcher) run(ctx context.Context, every time.Duration) error {
	if err := w.start(ctx); err != nil {
		return err
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := w.poll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.log.WithError(err).Warn("watch: poll failed")
				w.emit(watchEvent{Event: "error", Error: err.Error()})
			}
		}
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var (
		archive bool
		showOps bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the list headlessly, printing every reconciliation as a JSON line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.withStore(cmd, func(_ context.Context, s *store.Store) error {
				mode := modeFor(archive)
				if !cmd.Flags().Changed("archive") {
					if m, err := app.cfg.ParsedMode(); err == nil {
						mode = m
					}
				}
				out := format.NewStream(cmd.OutOrStdout(), app.cfg.Format)
				w := newWatcher(s, mode, out, app.log, showOps)
				return w.run(ctx, app.cfg.PollInterval)
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "Watch the archive view")
	cmd.Flags().BoolVar(&showOps, "ops", true, "Also print every widget operation")
	return cmd
}
