// Package listview is a stateful sectioned list: the widget the reconciler
// mutates. Cells cache their rendered content; a cell is only rebuilt from the
// CellProvider when it is inserted, reloaded, or the whole list is reloaded.
package listview

import (
	"errors"
	"fmt"
	"time"

	"threadlist/internal/renderstate"
)

type Cell struct {
	ID     renderstate.Identity `json:"id"`
	Title  string               `json:"title"`
	Detail string               `json:"detail,omitempty"`
	Badge  string               `json:"badge,omitempty"`

	// Gen is the list generation in which the cell was last built.
	Gen uint64 `json:"gen"`
}

// CellProvider builds the content of one cell.
type CellProvider func(id renderstate.Identity) Cell

type Section struct {
	Kind  renderstate.SectionKind `json:"kind"`
	Cells []Cell                  `json:"cells"`
}

type OpKind string

const (
	OpDelete    OpKind = "delete"
	OpInsert    OpKind = "insert"
	OpMove      OpKind = "move"
	OpReload    OpKind = "reload"
	OpCommit    OpKind = "commit"
	OpAbort     OpKind = "abort"
	OpReloadAll OpKind = "reload-all"
)

// Op is reported to the Observer for every committed primitive.
type Op struct {
	Kind OpKind                `json:"op"`
	ID   renderstate.Identity  `json:"id,omitempty"`
	From *renderstate.Position `json:"from,omitempty"`
	To   *renderstate.Position `json:"to,omitempty"`
	Rows int                   `json:"rows,omitempty"`
}

type Observer func(Op)

// RejectedError reports a primitive the list cannot perform without
// corrupting its bookkeeping.
type RejectedError struct {
	Op     OpKind
	Pos    renderstate.Position
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("listview: %s at %s rejected: %s", e.Op, e.Pos, e.Reason)
}

var ErrNoBatch = errors.New("listview: no batch in progress")

type List struct {
	sections []Section
	provider CellProvider
	observer Observer
	batch    *batch

	gen        uint64
	lastReload time.Time
	builds     int
}

func New(provider CellProvider) *List {
	if provider == nil {
		provider = func(id renderstate.Identity) Cell { return Cell{ID: id, Title: string(id)} }
	}
	return &List{provider: provider}
}

func (l *List) SetObserver(o Observer) { l.observer = o }

func (l *List) SetProvider(p CellProvider) {
	if p != nil {
		l.provider = p
	}
}

func (l *List) build(id renderstate.Identity) Cell {
	c := l.provider(id)
	c.ID = id
	c.Gen = l.gen
	l.builds++
	return c
}

func (l *List) notify(op Op) {
	if l.observer != nil {
		l.observer(op)
	}
}

// ReloadAll replaces every section and cell with the content of s. Any open
// batch is discarded.
func (l *List) ReloadAll(s renderstate.State) {
	l.batch = nil
	l.gen++
	sections := make([]Section, len(s.Sections))
	for i, sec := range s.Sections {
		cells := make([]Cell, len(sec.Items))
		for j, id := range sec.Items {
			cells[j] = l.build(id)
		}
		sections[i] = Section{Kind: sec.Kind, Cells: cells}
	}
	l.sections = sections
	l.lastReload = time.Now()
	l.notify(Op{Kind: OpReloadAll, Rows: s.RowCount()})
}

func (l *List) LastReload() time.Time { return l.lastReload }

// Generation increases on every commit and full reload.
func (l *List) Generation() uint64 { return l.gen }

// Builds counts cell constructions since the list was created.
func (l *List) Builds() int { return l.builds }

func (l *List) InBatch() bool { return l.batch != nil }

func (l *List) Sections() []Section {
	out := make([]Section, len(l.sections))
	for i, s := range l.sections {
		out[i] = Section{Kind: s.Kind, Cells: append([]Cell{}, s.Cells...)}
	}
	return out
}

func (l *List) Content() [][]renderstate.Identity {
	out := make([][]renderstate.Identity, len(l.sections))
	for i, s := range l.sections {
		ids := make([]renderstate.Identity, len(s.Cells))
		for j, c := range s.Cells {
			ids[j] = c.ID
		}
		out[i] = ids
	}
	return out
}

func (l *List) Flatten() []renderstate.Identity {
	var out []renderstate.Identity
	for _, s := range l.sections {
		for _, c := range s.Cells {
			out = append(out, c.ID)
		}
	}
	return out
}

func (l *List) RowCount() int {
	n := 0
	for _, s := range l.sections {
		n += len(s.Cells)
	}
	return n
}

func (l *List) Cell(p renderstate.Position) (Cell, bool) {
	if !l.inBounds(p) {
		return Cell{}, false
	}
	return l.sections[p.Section].Cells[p.Row], true
}

// Matches reports whether the visible content equals s, section kinds included.
func (l *List) Matches(s renderstate.State) bool {
	if len(l.sections) != len(s.Sections) {
		return false
	}
	for i, sec := range s.Sections {
		if l.sections[i].Kind != sec.Kind || len(l.sections[i].Cells) != len(sec.Items) {
			return false
		}
		for j, id := range sec.Items {
			if l.sections[i].Cells[j].ID != id {
				return false
			}
		}
	}
	return true
}

func (l *List) inBounds(p renderstate.Position) bool {
	if p.Section < 0 || p.Section >= len(l.sections) {
		return false
	}
	return p.Row >= 0 && p.Row < len(l.sections[p.Section].Cells)
}
