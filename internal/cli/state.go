package cli

import (
	"context"

	"github.com/spf13/cobra"

	"threadlist/internal/diff"
	"threadlist/internal/store"
)

func newStateCmd(app *App) *cobra.Command {
	var (
		archive  bool
		withDiff bool
	)

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the render state the list is built from",
		Long: `Print the render state the list is built from.

With --diff the state is compared against the one saved by the previous
"state --diff" call for the same mode, and then saved in its place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
				mode := modeFor(archive)
				snap, err := s.ReadSnapshot(ctx, mode)
				if err != nil {
					return err
				}
				if err := snap.State.Validate(); err != nil {
					return err
				}
				meta := map[string]any{"mode": mode.String(), "seq": snap.Seq, "rows": snap.State.RowCount()}
				if !withDiff {
					return writeOut(cmd, app, map[string]any{"data": snap.State, "meta": meta})
				}

				data := map[string]any{"state": snap.State}
				prev, ok, err := s.LoadSnapshot(ctx, mode)
				if err != nil {
					return err
				}
				if ok {
					batch, err := s.ChangesSince(ctx, prev.Seq)
					if err != nil {
						return err
					}
					d, err := diff.Compute(prev.State, snap.State, batch.Identities())
					if err != nil {
						return err
					}
					data["diff"] = d
					meta["since"] = prev.Seq
				}
				if err := s.SaveSnapshot(ctx, snap); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": data, "meta": meta})
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive view instead of the active view")
	cmd.Flags().BoolVar(&withDiff, "diff", false, "Include the diff against the previously saved state")
	return cmd
}
