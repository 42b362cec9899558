// Package reconcile keeps a list widget in step with a data source. Each
// change notification reads a fresh render state, diffs it against the last
// one the widget was given and replays the diff; anything that cannot be
// replayed safely falls back to a full reload.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"threadlist/internal/apply"
	"threadlist/internal/diff"
	"threadlist/internal/renderstate"
)

// ErrReentrant is returned when a pass is started while another one is still
// running. Callers must serialize notifications.
var ErrReentrant = errors.New("reconcile: pass already in progress")

// DataSource produces a consistent render state for a mode.
type DataSource interface {
	ReadRenderState(ctx context.Context, mode renderstate.Mode) (renderstate.State, error)
}

// ViewStateUpdater refreshes everything around the list that depends on the
// state (empty-state banners, counters). It is called once per pass.
type ViewStateUpdater interface {
	UpdateViewState(s renderstate.State)
}

type ViewStateFunc func(s renderstate.State)

func (f ViewStateFunc) UpdateViewState(s renderstate.State) { f(s) }

type Option func(*Controller)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMode(m renderstate.Mode) Option {
	return func(c *Controller) { c.mode = m }
}

type Controller struct {
	source DataSource
	widget apply.ListWidget
	view   ViewStateUpdater
	log    logrus.FieldLogger
	now    func() time.Time

	mode       renderstate.Mode
	phase      Phase
	baseline   renderstate.State
	loaded     bool
	lastReload time.Time
	stats      Stats
}

func New(source DataSource, widget apply.ListWidget, view ViewStateUpdater, opts ...Option) *Controller {
	c := &Controller{
		source: source,
		widget: widget,
		view:   view,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.view == nil {
		c.view = ViewStateFunc(func(renderstate.State) {})
	}
	return c
}

func (c *Controller) Phase() Phase               { return c.phase }
func (c *Controller) Mode() renderstate.Mode     { return c.mode }
func (c *Controller) Current() renderstate.State { return c.baseline }
func (c *Controller) Loaded() bool               { return c.loaded }
func (c *Controller) LastReload() time.Time      { return c.lastReload }
func (c *Controller) Stats() Stats               { return c.stats }

// Reset reads the current mode's state and replaces the widget content with
// it, bypassing the diff.
func (c *Controller) Reset(ctx context.Context) (Outcome, error) {
	return c.pass(func() (Outcome, error) {
		return c.reset(ctx, ReasonReset)
	})
}

// SetMode switches between the active and archive view. A mode switch always
// resets, even when the mode does not change.
func (c *Controller) SetMode(ctx context.Context, m renderstate.Mode) (Outcome, error) {
	return c.pass(func() (Outcome, error) {
		prev := c.mode
		c.mode = m
		out, err := c.reset(ctx, ReasonModeSwitch)
		if err != nil {
			c.mode = prev
		}
		return out, err
	})
}

// Notify reconciles after the data source reported changes to the given
// identities.
func (c *Controller) Notify(ctx context.Context, changed renderstate.IdentitySet) (Outcome, error) {
	return c.pass(func() (Outcome, error) {
		return c.notify(ctx, changed)
	})
}

func (c *Controller) pass(run func() (Outcome, error)) (Outcome, error) {
	if c.phase != PhaseIdle {
		return Outcome{}, ErrReentrant
	}
	c.phase = PhaseReconciling
	defer func() { c.phase = PhaseIdle }()

	start := c.now()
	out, err := run()
	if err != nil {
		return out, err
	}
	out.Duration = c.now().Sub(start)
	c.stats.record(out)
	return out, nil
}

func (c *Controller) notify(ctx context.Context, changed renderstate.IdentitySet) (Outcome, error) {
	if !c.loaded {
		return c.reset(ctx, ReasonReset)
	}
	if changed.Len() == 0 {
		c.view.UpdateViewState(c.baseline)
		return Outcome{Kind: Ignored, Rows: c.baseline.RowCount()}, nil
	}

	next, err := c.source.ReadRenderState(ctx, c.mode)
	if err != nil {
		c.log.WithError(err).WithField("mode", c.mode).Warn("reconcile: read failed, resetting")
		out, rerr := c.reset(ctx, ReasonReadFailed)
		if rerr != nil {
			return out, fmt.Errorf("reconcile: read %s state: %w", c.mode, err)
		}
		out.Err = err
		return out, nil
	}

	c.view.UpdateViewState(next)

	d, err := diff.Compute(c.baseline, next, changed)
	if err != nil {
		c.phase = PhaseFailed
		c.log.WithError(err).WithFields(logrus.Fields{
			"mode":    c.mode,
			"changed": changed.Sorted(),
		}).Warn("reconcile: diff rejected, reloading")
		out := c.reload(next, ReasonInconsistent)
		out.Err = err
		return out, nil
	}

	if d.IsEmpty() {
		c.baseline = next
		return Outcome{Kind: Unchanged, Diff: &d, Rows: next.RowCount()}, nil
	}

	if sectionShapeChanged(c.baseline, next, d) {
		out := c.reload(next, ReasonSectionShape)
		out.Diff = &d
		return out, nil
	}

	if err := apply.Apply(d, c.widget); err != nil {
		reason := ReasonRequiresFullLoad
		entry := c.log.WithError(err).WithField("mode", c.mode)
		if errors.Is(err, apply.ErrWidgetRejected) {
			reason = ReasonWidgetRejected
			entry.WithFields(logrus.Fields{
				"diff":     d,
				"old":      c.baseline.Content(),
				"new":      next.Content(),
				"counts":   d.Counts(),
				"changed":  changed.Sorted(),
				"baseline": c.baseline.RowCount(),
			}).Error("reconcile: widget rejected batch, reloading")
		} else {
			entry.Warn("reconcile: diff not applicable, reloading")
		}
		out := c.reload(next, reason)
		out.Diff = &d
		out.Err = err
		return out, nil
	}

	c.baseline = next
	return Outcome{Kind: Applied, Diff: &d, Rows: next.RowCount()}, nil
}

// reset is the read-and-reload path used for first load, mode switches and
// read failures.
func (c *Controller) reset(ctx context.Context, reason Reason) (Outcome, error) {
	s, err := c.source.ReadRenderState(ctx, c.mode)
	if err != nil {
		return Outcome{}, fmt.Errorf("reconcile: reset %s: %w", c.mode, err)
	}
	c.view.UpdateViewState(s)
	return c.reload(s, reason), nil
}

// reload replaces the widget content with s. It never diffs and cannot fail.
func (c *Controller) reload(s renderstate.State, reason Reason) Outcome {
	c.widget.ReloadAll(s)
	c.baseline = s
	c.loaded = true
	c.lastReload = c.now()
	return Outcome{Kind: Reloaded, Reason: reason, Rows: s.RowCount()}
}

// sectionShapeChanged reports whether the widget needs a different section
// layout. The archived-notice section flips whenever the archived set becomes
// empty or non-empty.
func sectionShapeChanged(old, next renderstate.State, d diff.MappingDiff) bool {
	if len(d.SectionChanges) > 0 {
		return true
	}
	return old.HasSection(renderstate.SectionArchivedNotice) != next.HasSection(renderstate.SectionArchivedNotice)
}
