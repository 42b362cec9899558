// Package tui is the interactive thread list.
package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

type Options struct {
	Store        *store.Store
	Mode         renderstate.Mode
	PollInterval time.Duration
	Log          logrus.FieldLogger
	Glyphs       string
	Theme        string
	Now          func() time.Time

	// RestoreMode starts in the mode the TUI was last left in instead of
	// Mode.
	RestoreMode bool
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 750 * time.Millisecond
	}
	if o.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Log = l
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return errors.New("tui: no store")
	}
	applyColorProfilePreference()
	applyThemePreference(opts.Theme)
	applyGlyphPreference(opts.Glyphs)

	opts = opts.withDefaults()
	saved, err := opts.Store.LoadTUIState()
	if err != nil {
		opts.Log.WithError(err).Warn("tui: failed to load saved state")
		saved = &store.TUIState{}
	}
	if opts.RestoreMode && saved.Mode != "" {
		if mode, err := renderstate.ParseMode(saved.Mode); err == nil {
			opts.Mode = mode
		}
	}

	m, err := newAppModel(ctx, opts)
	if err != nil {
		return err
	}
	if saved.Mode == opts.Mode.String() && saved.SelectedID != "" {
		selectByID(&m.list, renderstate.Identity(saved.SelectedID), m.list.Index())
		m.skipHeaders(false)
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if fm, ok := final.(appModel); ok {
		if serr := opts.Store.SaveTUIState(fm.savedState()); serr != nil {
			opts.Log.WithError(serr).Warn("tui: failed to save state")
		}
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
