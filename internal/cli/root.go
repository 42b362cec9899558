package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"threadlist/internal/config"
	"threadlist/internal/diag"
	"threadlist/internal/format"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
	"threadlist/internal/tui"
)

type App struct {
	v   *viper.Viper
	cfg config.Config

	log    *logrus.Logger
	closer io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:          "threadlist",
		Short:        "Local thread inbox (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  threadlist

  # Scriptable commands
  threadlist add "Quarterly planning"
  threadlist pin 7k3q
  threadlist list --archive

  # Follow the list from another terminal
  threadlist watch
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.closer != nil {
			return app.closer.Close()
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.String("dir", "", "Path to store dir (default: nearest .threadlist above the working directory, else ~/.threadlist)")
	pf.String("mode", renderstate.ModeActive.String(), "Start mode (active|archive)")
	pf.Duration("poll-interval", config.DefaultPollInterval, "How often the TUI and watch poll for changes")
	pf.String("log-level", "info", "Log level (debug|info|warn|error)")
	pf.String("log-file", "", "Write logs to this file (the TUI logs nowhere else)")
	pf.Bool("pretty", false, "Pretty-print JSON output")
	pf.String("format", format.JSON, "Output format (json|edn)")

	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newPinCmd(app, true))
	cmd.AddCommand(newPinCmd(app, false))
	cmd.AddCommand(newArchiveCmd(app, true))
	cmd.AddCommand(newArchiveCmd(app, false))
	cmd.AddCommand(newTouchCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// init resolves the configuration and the logger for the running command.
func (app *App) init(cmd *cobra.Command) error {
	if err := config.BindFlags(app.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(app.v)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg

	// The TUI owns the terminal: without a log file its logs are dropped.
	quiet := cmd.Root() == cmd
	log, closer, err := diag.New(diag.Options{Level: cfg.LogLevel, File: cfg.LogFile, Quiet: quiet})
	if err != nil {
		return writeErr(cmd, err)
	}
	if !quiet && cfg.LogFile == "" {
		log.SetOutput(cmd.ErrOrStderr())
	}
	app.log, app.closer = log, closer
	app.log.WithFields(logrus.Fields{"cmd": cmd.CommandPath(), "config": cfg.File}).Debug("starting")
	return nil
}

func (app *App) dir() (string, error) {
	if app.cfg.Dir != "" {
		return app.cfg.Dir, nil
	}
	return store.DefaultDir()
}

func (app *App) openStore(ctx context.Context) (*store.Store, error) {
	dir, err := app.dir()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, dir)
}

// withStore opens the store for the duration of fn and reports failures on
// stderr.
func (app *App) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := app.openStore(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()
	if err := fn(ctx, s); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	mode, err := app.cfg.ParsedMode()
	if err != nil {
		return writeErr(cmd, err)
	}
	return app.withStore(cmd, func(ctx context.Context, s *store.Store) error {
		return tui.Run(ctx, tui.Options{
			Store:        s,
			Mode:         mode,
			PollInterval: app.cfg.PollInterval,
			Log:          app.log,
			Glyphs:       app.cfg.TUI.Glyphs,
			Theme:        app.cfg.TUI.Theme,
			RestoreMode:  !cmd.Flags().Changed("mode"),
		})
	})
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.cfg.Format, app.cfg.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
