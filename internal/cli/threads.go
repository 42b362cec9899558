package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"threadlist/internal/model"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

func newAddCmd(app *App) *cobra.Command {
	var body string
	var pin bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a thread",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return writeErr(cmd, errUsage("title is required"))
			}
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				t, err := s.AddThread(ctx, title, body)
				if err != nil {
					return err
				}
				if pin {
					if err := s.SetPinned(ctx, t.ID, true); err != nil {
						return err
					}
					if t, err = s.Thread(ctx, t.ID); err != nil {
						return err
					}
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "Thread body (markdown)")
	cmd.Flags().BoolVar(&pin, "pin", false, "Pin the new thread")
	return cmd
}

type listSection struct {
	Kind    renderstate.SectionKind `json:"kind"`
	Threads []model.Thread          `json:"threads"`
}

func newListCmd(app *App) *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				mode := modeFor(archive)
				st, err := s.ReadRenderState(ctx, mode)
				if err != nil {
					return err
				}
				ids := make([]string, 0, st.RowCount())
				for _, id := range st.Flatten() {
					if id != renderstate.ArchivedNoticeID {
						ids = append(ids, string(id))
					}
				}
				byID, err := s.Threads(ctx, ids)
				if err != nil {
					return err
				}
				counts, err := s.Counts(ctx)
				if err != nil {
					return err
				}

				sections := make([]listSection, 0, len(st.Sections))
				for _, sec := range st.Sections {
					if sec.Kind == renderstate.SectionArchivedNotice {
						continue
					}
					out := listSection{Kind: sec.Kind, Threads: []model.Thread{}}
					for _, id := range sec.Items {
						if t, ok := byID[string(id)]; ok {
							out.Threads = append(out.Threads, t)
						}
					}
					sections = append(sections, out)
				}
				return writeOut(cmd, app, map[string]any{
					"data": sections,
					"meta": map[string]any{"mode": mode.String(), "counts": counts},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "List archived threads")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				t, err := s.Thread(ctx, id)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": t})
			})
		},
	}
}

func newPinCmd(app *App, pin bool) *cobra.Command {
	var (
		before string
		last   bool
	)
	use, short := "unpin <thread-id>", "Unpin a thread"
	if pin {
		use, short = "pin <thread-id>", "Pin a thread (or reorder a pinned one with --before/--last)"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if before != "" && last {
				return writeErr(cmd, errUsage("--before and --last are mutually exclusive"))
			}
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.SetPinned(ctx, id, pin); err != nil {
					return err
				}
				switch {
				case before != "":
					target, err := s.ResolveID(ctx, before)
					if err != nil {
						return err
					}
					if err := s.MovePinned(ctx, id, target); err != nil {
						return err
					}
				case last:
					if err := s.MovePinned(ctx, id, ""); err != nil {
						return err
					}
				}
				return showThread(ctx, cmd, app, s, id)
			})
		},
	}
	if pin {
		cmd.Flags().StringVar(&before, "before", "", "Place the thread directly before this pinned thread")
		cmd.Flags().BoolVar(&last, "last", false, "Place the thread at the end of the pinned section")
	}
	return cmd
}

func newArchiveCmd(app *App, archive bool) *cobra.Command {
	use, short := "unarchive <thread-id>", "Restore an archived thread"
	if archive {
		use, short = "archive <thread-id>", "Archive a thread"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.SetArchived(ctx, id, archive); err != nil {
					return err
				}
				return showThread(ctx, cmd, app, s, id)
			})
		},
	}
}

func newTouchCmd(app *App) *cobra.Command {
	var body string

	cmd := &cobra.Command{
		Use:   "touch <thread-id>",
		Short: "Record activity on a thread (moves it to the top of its section)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.Touch(ctx, id, body); err != nil {
					return err
				}
				return showThread(ctx, cmd, app, s, id)
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "Replace the thread body")
	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <thread-id> <title>",
		Short: "Change a thread title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.Rename(ctx, id, strings.Join(args[1:], " ")); err != nil {
					return err
				}
				return showThread(ctx, cmd, app, s, id)
			})
		},
	}
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <thread-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a thread",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				id, err := s.ResolveID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.DeleteThread(ctx, id); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
			})
		},
	}
}

func showThread(ctx context.Context, cmd *cobra.Command, app *App, s *store.Store, id string) error {
	t, err := s.Thread(ctx, id)
	if err != nil {
		return err
	}
	return writeOut(cmd, app, map[string]any{"data": t})
}

func modeFor(archive bool) renderstate.Mode {
	if archive {
		return renderstate.ModeArchive
	}
	return renderstate.ModeActive
}
