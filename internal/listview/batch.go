package listview

import (
	"errors"

	"threadlist/internal/renderstate"
)

// Batch semantics follow the usual table-view contract: delete, reload and
// move sources address the content as it was when the batch began; insert and
// move destinations address the content as it will be once the batch is
// committed. Nothing is visible until EndBatch, which either commits the whole
// batch or leaves the list untouched.

type dest struct {
	insert renderstate.Identity
	from   *renderstate.Position
}

type batch struct {
	removed map[renderstate.Position]OpKind
	reloads map[renderstate.Position]bool
	dests   map[renderstate.Position]dest
	ops     []Op
}

func (l *List) BeginBatch() error {
	if l.batch != nil {
		return errors.New("listview: batch already in progress")
	}
	l.batch = &batch{
		removed: map[renderstate.Position]OpKind{},
		reloads: map[renderstate.Position]bool{},
		dests:   map[renderstate.Position]dest{},
	}
	return nil
}

// AbortBatch drops every pending primitive.
func (l *List) AbortBatch() {
	if l.batch == nil {
		return
	}
	n := len(l.batch.ops)
	l.batch = nil
	l.notify(Op{Kind: OpAbort, Rows: n})
}

func (l *List) checkSource(op OpKind, p renderstate.Position) error {
	if l.batch == nil {
		return ErrNoBatch
	}
	if !l.inBounds(p) {
		return &RejectedError{Op: op, Pos: p, Reason: "position out of range"}
	}
	if prev, ok := l.batch.removed[p]; ok {
		return &RejectedError{Op: op, Pos: p, Reason: "row already removed by " + string(prev)}
	}
	return nil
}

func (l *List) checkDest(op OpKind, p renderstate.Position) error {
	if p.Section < 0 || p.Section >= len(l.sections) {
		return &RejectedError{Op: op, Pos: p, Reason: "section out of range"}
	}
	if p.Row < 0 {
		return &RejectedError{Op: op, Pos: p, Reason: "negative row"}
	}
	if _, ok := l.batch.dests[p]; ok {
		return &RejectedError{Op: op, Pos: p, Reason: "destination already used"}
	}
	return nil
}

func (l *List) DeleteRow(p renderstate.Position) error {
	if err := l.checkSource(OpDelete, p); err != nil {
		return err
	}
	if l.batch.reloads[p] {
		return &RejectedError{Op: OpDelete, Pos: p, Reason: "row is being reloaded"}
	}
	l.batch.removed[p] = OpDelete
	from := p
	l.batch.ops = append(l.batch.ops, Op{Kind: OpDelete, ID: l.sections[p.Section].Cells[p.Row].ID, From: &from})
	return nil
}

func (l *List) InsertRow(p renderstate.Position, id renderstate.Identity) error {
	if l.batch == nil {
		return ErrNoBatch
	}
	if id == "" {
		return &RejectedError{Op: OpInsert, Pos: p, Reason: "empty identity"}
	}
	if err := l.checkDest(OpInsert, p); err != nil {
		return err
	}
	l.batch.dests[p] = dest{insert: id}
	to := p
	l.batch.ops = append(l.batch.ops, Op{Kind: OpInsert, ID: id, To: &to})
	return nil
}

// MoveRow relocates a row and keeps its cell as is.
func (l *List) MoveRow(from, to renderstate.Position) error {
	if err := l.checkSource(OpMove, from); err != nil {
		return err
	}
	if l.batch.reloads[from] {
		return &RejectedError{Op: OpMove, Pos: from, Reason: "row is being reloaded"}
	}
	if err := l.checkDest(OpMove, to); err != nil {
		return err
	}
	f, t := from, to
	l.batch.removed[from] = OpMove
	l.batch.dests[to] = dest{from: &f}
	l.batch.ops = append(l.batch.ops, Op{Kind: OpMove, ID: l.sections[from.Section].Cells[from.Row].ID, From: &f, To: &t})
	return nil
}

// ReloadRow rebuilds the cell at p without moving it.
func (l *List) ReloadRow(p renderstate.Position) error {
	if err := l.checkSource(OpReload, p); err != nil {
		return err
	}
	l.batch.reloads[p] = true
	from := p
	l.batch.ops = append(l.batch.ops, Op{Kind: OpReload, ID: l.sections[p.Section].Cells[p.Row].ID, From: &from})
	return nil
}

// EndBatch resolves and commits the batch. On error the batch is dropped and
// the list keeps its pre-batch content.
func (l *List) EndBatch() error {
	b := l.batch
	if b == nil {
		return ErrNoBatch
	}
	l.batch = nil

	gen := l.gen + 1
	build := func(id renderstate.Identity) Cell {
		c := l.provider(id)
		c.ID = id
		c.Gen = gen
		return c
	}
	built := 0

	next := make([]Section, len(l.sections))
	seen := map[renderstate.Identity]renderstate.Position{}
	for si, sec := range l.sections {
		var survivors []Cell
		for ri, c := range sec.Cells {
			p := renderstate.Position{Section: si, Row: ri}
			if _, gone := b.removed[p]; gone {
				continue
			}
			if b.reloads[p] {
				c = build(c.ID)
				built++
			}
			survivors = append(survivors, c)
		}

		placed := map[int]Cell{}
		for p, d := range b.dests {
			if p.Section != si {
				continue
			}
			if d.from != nil {
				placed[p.Row] = l.sections[d.from.Section].Cells[d.from.Row]
			} else {
				placed[p.Row] = build(d.insert)
				built++
			}
		}

		n := len(survivors) + len(placed)
		cells := make([]Cell, n)
		k := 0
		for r := 0; r < n; r++ {
			if c, ok := placed[r]; ok {
				cells[r] = c
				continue
			}
			if k >= len(survivors) {
				return &RejectedError{Op: OpCommit, Pos: renderstate.Position{Section: si, Row: r}, Reason: "destination beyond section end"}
			}
			cells[r] = survivors[k]
			k++
		}
		for r, c := range cells {
			if prev, dup := seen[c.ID]; dup {
				return &RejectedError{Op: OpCommit, Pos: renderstate.Position{Section: si, Row: r}, Reason: "identity " + string(c.ID) + " already at " + prev.String()}
			}
			seen[c.ID] = renderstate.Position{Section: si, Row: r}
		}
		next[si] = Section{Kind: sec.Kind, Cells: cells}
	}

	l.sections = next
	l.gen = gen
	l.builds += built
	for _, op := range b.ops {
		l.notify(op)
	}
	l.notify(Op{Kind: OpCommit, Rows: len(b.ops)})
	return nil
}
