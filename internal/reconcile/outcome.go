package reconcile

import (
	"time"

	"threadlist/internal/diff"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReconciling
	// PhaseFailed is only observable from inside a pass, between a rejected
	// diff and the full reload that recovers from it.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReconciling:
		return "reconciling"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type OutcomeKind string

const (
	// Ignored: the notification carried no changed identities.
	Ignored OutcomeKind = "ignored"
	// Unchanged: the new state equals the baseline; the widget was not touched.
	Unchanged OutcomeKind = "unchanged"
	// Applied: the diff was replayed as one animated batch.
	Applied OutcomeKind = "applied"
	// Reloaded: the widget content was replaced wholesale.
	Reloaded OutcomeKind = "reloaded"
)

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonReset            Reason = "reset"
	ReasonModeSwitch       Reason = "mode-switch"
	ReasonReadFailed       Reason = "read-failed"
	ReasonSectionShape     Reason = "section-shape"
	ReasonInconsistent     Reason = "inconsistent-state"
	ReasonWidgetRejected   Reason = "widget-rejected"
	ReasonRequiresFullLoad Reason = "requires-full-reload"
)

// Outcome describes one reconciliation pass.
type Outcome struct {
	Kind     OutcomeKind       `json:"outcome"`
	Reason   Reason            `json:"reason,omitempty"`
	Diff     *diff.MappingDiff `json:"diff,omitempty"`
	Rows     int               `json:"rows"`
	Duration time.Duration     `json:"duration_ns"`
	// Err is the recovered error that caused a fallback reload, if any.
	Err error `json:"-"`
}

// Stats are cumulative counters since the controller was created.
type Stats struct {
	Passes    int `json:"passes"`
	Ignored   int `json:"ignored"`
	Unchanged int `json:"unchanged"`
	Applied   int `json:"applied"`
	Reloads   int `json:"reloads"`
	Failures  int `json:"failures"`
}

func (s *Stats) record(o Outcome) {
	s.Passes++
	switch o.Kind {
	case Ignored:
		s.Ignored++
	case Unchanged:
		s.Unchanged++
	case Applied:
		s.Applied++
	case Reloaded:
		s.Reloads++
	}
	if o.Err != nil {
		s.Failures++
	}
}
