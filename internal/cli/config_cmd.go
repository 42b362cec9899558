package cli

import (
	"github.com/spf13/cobra"

	"threadlist/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.dir()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfgDir, _ := config.Dir()
			return writeOut(cmd, app, map[string]any{
				"data": app.cfg,
				"meta": map[string]any{"storeDir": dir, "configDir": cfgDir},
			})
		},
	}
}
