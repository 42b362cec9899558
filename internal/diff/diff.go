package diff

import (
	"sort"

	"threadlist/internal/renderstate"
)

// Compute returns the edit script that turns old into next.
//
// changed is a hint from the data source: it only decides which rows that
// kept their place get an update. Inserts, deletes and moves are derived from
// the two states alone, so a wrong hint can never hide a positional change.
//
// Rows are enumerated only inside sections whose kind exists in both states.
// A row that leaves a persisting section for a section that is being inserted
// is reported as a delete; a row that arrives from a section that is being
// deleted is reported as an insert. Rows that live entirely in an inserted or
// deleted section are covered by the section change.
func Compute(old, next renderstate.State, changed renderstate.IdentitySet) (MappingDiff, error) {
	if old.ArchiveMode != next.ArchiveMode {
		return MappingDiff{}, inconsistent(nil, "mode changed from %s to %s", old.Mode(), next.Mode())
	}
	if err := old.Validate(); err != nil {
		return MappingDiff{}, inconsistent(err, "old state")
	}
	if err := next.Validate(); err != nil {
		return MappingDiff{}, inconsistent(err, "new state")
	}

	d := MappingDiff{Old: old, New: next}
	d.SectionChanges = diffSections(old, next)
	d.RowChanges = diffRows(old, next, changed)

	if err := checkBounds(d); err != nil {
		return MappingDiff{}, err
	}
	return d, nil
}

func diffSections(old, next renderstate.State) []SectionChange {
	oldKinds, newKinds := old.Kinds(), next.Kinds()
	oldIdx := indexOf(oldKinds)
	newIdx := indexOf(newKinds)

	var deletes, moves, inserts []SectionChange
	var oldPersist, newPersist []renderstate.SectionKind
	for i, k := range oldKinds {
		if _, ok := newIdx[k]; !ok {
			deletes = append(deletes, SectionDelete{Kind: k, Old: i})
			continue
		}
		oldPersist = append(oldPersist, k)
	}
	for i, k := range newKinds {
		if _, ok := oldIdx[k]; !ok {
			inserts = append(inserts, SectionInsert{Kind: k, New: i})
			continue
		}
		newPersist = append(newPersist, k)
	}

	kept := keptInOrder(oldPersist, newPersist, func(k renderstate.SectionKind) bool {
		return oldIdx[k] == newIdx[k]
	})
	for _, k := range newPersist {
		if !kept[k] {
			moves = append(moves, SectionMove{Kind: k, Old: oldIdx[k], New: newIdx[k]})
		}
	}

	out := make([]SectionChange, 0, len(deletes)+len(moves)+len(inserts))
	out = append(out, deletes...)
	out = append(out, moves...)
	out = append(out, inserts...)
	return out
}

func diffRows(old, next renderstate.State, changed renderstate.IdentitySet) []RowChange {
	oldPos := old.Index()
	newPos := next.Index()

	oldKindIdx := indexOf(old.Kinds())
	newKindIdx := indexOf(next.Kinds())
	persistsInNew := func(oldSection int) bool {
		_, ok := newKindIdx[old.Sections[oldSection].Kind]
		return ok
	}
	persistsInOld := func(newSection int) bool {
		_, ok := oldKindIdx[next.Sections[newSection].Kind]
		return ok
	}
	sameKind := func(op, np renderstate.Position) bool {
		return old.Sections[op.Section].Kind == next.Sections[np.Section].Kind
	}
	// A row at the same index of the same section kind has not moved.
	inPlace := func(id renderstate.Identity) bool {
		op, ok := oldPos[id]
		if !ok {
			return false
		}
		np, ok := newPos[id]
		return ok && op.Row == np.Row && sameKind(op, np)
	}

	var deletes, moves, inserts, updates []RowChange

	for si, sec := range old.Sections {
		if !persistsInNew(si) {
			continue
		}
		for ri, id := range sec.Items {
			op := renderstate.Position{Section: si, Row: ri}
			np, ok := newPos[id]
			if !ok || !persistsInOld(np.Section) {
				deletes = append(deletes, RowDelete{ID: id, Old: op})
			}
		}
	}

	for nsi, nsec := range next.Sections {
		osi, ok := oldKindIdx[nsec.Kind]
		if !ok {
			continue
		}
		osec := old.Sections[osi]

		// Rows that stay within this section kind, in old and in new order.
		var oldSeq, newSeq []renderstate.Identity
		for _, id := range osec.Items {
			if np, ok := newPos[id]; ok && next.Sections[np.Section].Kind == nsec.Kind {
				oldSeq = append(oldSeq, id)
			}
		}
		for _, id := range nsec.Items {
			if op, ok := oldPos[id]; ok && old.Sections[op.Section].Kind == nsec.Kind {
				newSeq = append(newSeq, id)
			}
		}
		kept := keptInOrder(oldSeq, newSeq, inPlace)

		for ri, id := range nsec.Items {
			np := renderstate.Position{Section: nsi, Row: ri}
			op, ok := oldPos[id]
			switch {
			case !ok || !persistsInNew(op.Section):
				inserts = append(inserts, RowInsert{ID: id, New: np})
			case !sameKind(op, np) || !kept[id]:
				moves = append(moves, RowMove{ID: id, Old: op, New: np})
			case changed.Has(id):
				updates = append(updates, RowUpdate{ID: id, Old: op})
			}
		}
	}

	sort.SliceStable(deletes, func(i, j int) bool {
		return deletes[i].(RowDelete).Old.Less(deletes[j].(RowDelete).Old)
	})
	sort.SliceStable(moves, func(i, j int) bool {
		return moves[i].(RowMove).New.Less(moves[j].(RowMove).New)
	})
	sort.SliceStable(inserts, func(i, j int) bool {
		return inserts[i].(RowInsert).New.Less(inserts[j].(RowInsert).New)
	})
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].(RowUpdate).Old.Less(updates[j].(RowUpdate).Old)
	})

	out := make([]RowChange, 0, len(deletes)+len(moves)+len(inserts)+len(updates))
	out = append(out, deletes...)
	out = append(out, moves...)
	out = append(out, inserts...)
	out = append(out, updates...)
	return out
}

// checkBounds verifies every emitted position against the state it refers to
// and that the change agrees with the identity found there.
func checkBounds(d MappingDiff) error {
	checkOld := func(id renderstate.Identity, p renderstate.Position) error {
		if got := d.Old.At(p); got != id {
			return inconsistent(nil, "old position %s holds %q, want %q", p, got, id)
		}
		return nil
	}
	checkNew := func(id renderstate.Identity, p renderstate.Position) error {
		if got := d.New.At(p); got != id {
			return inconsistent(nil, "new position %s holds %q, want %q", p, got, id)
		}
		return nil
	}

	for _, c := range d.RowChanges {
		var err error
		switch c := c.(type) {
		case RowDelete:
			err = checkOld(c.ID, c.Old)
		case RowInsert:
			err = checkNew(c.ID, c.New)
		case RowMove:
			if err = checkOld(c.ID, c.Old); err == nil {
				err = checkNew(c.ID, c.New)
			}
		case RowUpdate:
			err = checkOld(c.ID, c.Old)
		default:
			err = inconsistent(nil, "unknown row change %T", c)
		}
		if err != nil {
			return err
		}
	}

	for _, c := range d.SectionChanges {
		switch c := c.(type) {
		case SectionDelete:
			if c.Old < 0 || c.Old >= len(d.Old.Sections) {
				return inconsistent(nil, "section delete %d out of range", c.Old)
			}
		case SectionInsert:
			if c.New < 0 || c.New >= len(d.New.Sections) {
				return inconsistent(nil, "section insert %d out of range", c.New)
			}
		case SectionMove:
			if c.Old < 0 || c.Old >= len(d.Old.Sections) || c.New < 0 || c.New >= len(d.New.Sections) {
				return inconsistent(nil, "section move %d->%d out of range", c.Old, c.New)
			}
		default:
			return inconsistent(nil, "unknown section change %T", c)
		}
	}
	return nil
}

func indexOf(kinds []renderstate.SectionKind) map[renderstate.SectionKind]int {
	out := make(map[renderstate.SectionKind]int, len(kinds))
	for i, k := range kinds {
		out[k] = i
	}
	return out
}
