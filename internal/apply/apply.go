// Package apply replays a diff.MappingDiff against a stateful list widget.
package apply

import (
	"fmt"
	"sort"

	"threadlist/internal/diff"
	"threadlist/internal/renderstate"
)

// ListWidget is the contract of the mutable list. Inside a batch, delete,
// move-source and reload positions refer to the content before the batch,
// insert and move-destination positions to the content after it. The widget
// resolves the batch atomically in EndBatch.
type ListWidget interface {
	BeginBatch() error
	DeleteRow(p renderstate.Position) error
	InsertRow(p renderstate.Position, id renderstate.Identity) error
	MoveRow(from, to renderstate.Position) error
	ReloadRow(p renderstate.Position) error
	EndBatch() error
	AbortBatch()
	ReloadAll(s renderstate.State)
}

type StepKind string

const (
	StepReload StepKind = "reload"
	StepDelete StepKind = "delete"
	StepMove   StepKind = "move"
	StepInsert StepKind = "insert"
)

// Step is one widget primitive in emission order.
type Step struct {
	Kind StepKind              `json:"step"`
	ID   renderstate.Identity  `json:"id"`
	From *renderstate.Position `json:"from,omitempty"`
	To   *renderstate.Position `json:"to,omitempty"`
}

func (s Step) String() string {
	switch {
	case s.From != nil && s.To != nil:
		return fmt.Sprintf("%s %s %s->%s", s.Kind, s.ID, s.From, s.To)
	case s.From != nil:
		return fmt.Sprintf("%s %s %s", s.Kind, s.ID, s.From)
	case s.To != nil:
		return fmt.Sprintf("%s %s %s", s.Kind, s.ID, s.To)
	default:
		return fmt.Sprintf("%s %s", s.Kind, s.ID)
	}
}

// Plan orders the row changes of d into widget primitives:
//
//  1. reloads at their old positions, ascending;
//  2. removals at old positions, highest first: deletes, the delete half of
//     same-section moves, and cross-section moves;
//  3. insertions at new positions, lowest first: inserts and the insert half
//     of same-section moves.
//
// A move whose old and new section index differ stays a single move so the
// widget relocates the existing cell. A move inside one section is split into
// delete and insert so the cell is rebuilt; a plain move would keep showing
// the stale content.
func Plan(d diff.MappingDiff) ([]Step, error) {
	if len(d.SectionChanges) > 0 {
		return nil, &ApplyError{Kind: RequiresFullReload}
	}

	type removal struct {
		at   renderstate.Position
		step Step
	}
	type insertion struct {
		at   renderstate.Position
		step Step
	}
	var reloads []Step
	var removals []removal
	var insertions []insertion

	for _, c := range d.RowChanges {
		switch c := c.(type) {
		case diff.RowDelete:
			old := c.Old
			removals = append(removals, removal{at: old, step: Step{Kind: StepDelete, ID: c.ID, From: &old}})
		case diff.RowInsert:
			nw := c.New
			insertions = append(insertions, insertion{at: nw, step: Step{Kind: StepInsert, ID: c.ID, To: &nw}})
		case diff.RowMove:
			old, nw := c.Old, c.New
			if c.SameSection() {
				removals = append(removals, removal{at: old, step: Step{Kind: StepDelete, ID: c.ID, From: &old}})
				insertions = append(insertions, insertion{at: nw, step: Step{Kind: StepInsert, ID: c.ID, To: &nw}})
			} else {
				removals = append(removals, removal{at: old, step: Step{Kind: StepMove, ID: c.ID, From: &old, To: &nw}})
			}
		case diff.RowUpdate:
			old := c.Old
			reloads = append(reloads, Step{Kind: StepReload, ID: c.ID, From: &old})
		default:
			return nil, fmt.Errorf("apply: unknown row change %T", c)
		}
	}

	sort.SliceStable(reloads, func(i, j int) bool { return reloads[i].From.Less(*reloads[j].From) })
	sort.SliceStable(removals, func(i, j int) bool { return removals[j].at.Less(removals[i].at) })
	sort.SliceStable(insertions, func(i, j int) bool { return insertions[i].at.Less(insertions[j].at) })

	out := make([]Step, 0, len(reloads)+len(removals)+len(insertions))
	out = append(out, reloads...)
	for _, r := range removals {
		out = append(out, r.step)
	}
	for _, in := range insertions {
		out = append(out, in.step)
	}
	return out, nil
}

// Apply replays d on w as one batch. A diff with section changes is refused
// with ErrRequiresFullReload before the widget is touched. If the widget
// rejects any primitive the batch is aborted and ErrWidgetRejected is
// returned; the caller is expected to fully reload the widget.
func Apply(d diff.MappingDiff, w ListWidget) error {
	steps, err := Plan(d)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	if err := w.BeginBatch(); err != nil {
		return &ApplyError{Kind: WidgetRejectedOperation, Step: "begin", Err: err}
	}
	for _, s := range steps {
		var err error
		switch s.Kind {
		case StepReload:
			err = w.ReloadRow(*s.From)
		case StepDelete:
			err = w.DeleteRow(*s.From)
		case StepMove:
			err = w.MoveRow(*s.From, *s.To)
		case StepInsert:
			err = w.InsertRow(*s.To, s.ID)
		}
		if err != nil {
			w.AbortBatch()
			return &ApplyError{Kind: WidgetRejectedOperation, Step: string(s.Kind), Err: err}
		}
	}
	if err := w.EndBatch(); err != nil {
		w.AbortBatch()
		return &ApplyError{Kind: WidgetRejectedOperation, Step: "end", Err: err}
	}
	return nil
}
