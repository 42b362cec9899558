package diff

import (
	"encoding/json"

	"threadlist/internal/renderstate"
)

// ChangeType is the stable tag of a row or section change. The numeric values
// are part of the `watch` output and must not be renumbered.
type ChangeType int

const (
	ChangeDelete ChangeType = 1
	ChangeInsert ChangeType = 2
	ChangeMove   ChangeType = 3
	ChangeUpdate ChangeType = 4
)

func (t ChangeType) String() string {
	switch t {
	case ChangeDelete:
		return "delete"
	case ChangeInsert:
		return "insert"
	case ChangeMove:
		return "move"
	case ChangeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// RowChange is one of RowDelete, RowInsert, RowMove or RowUpdate. The set is
// closed: the unexported marker keeps other packages from adding variants.
type RowChange interface {
	Type() ChangeType
	Identity() renderstate.Identity
	rowChange()
}

// RowDelete removes the row at Old (old state coordinates).
type RowDelete struct {
	ID  renderstate.Identity
	Old renderstate.Position
}

// RowInsert adds a row at New (new state coordinates).
type RowInsert struct {
	ID  renderstate.Identity
	New renderstate.Position
}

// RowMove relocates a row from Old (old state) to New (new state).
type RowMove struct {
	ID  renderstate.Identity
	Old renderstate.Position
	New renderstate.Position
}

// RowUpdate refreshes a row whose identity and relative position are unchanged.
type RowUpdate struct {
	ID  renderstate.Identity
	Old renderstate.Position
}

func (RowDelete) Type() ChangeType { return ChangeDelete }
func (RowInsert) Type() ChangeType { return ChangeInsert }
func (RowMove) Type() ChangeType   { return ChangeMove }
func (RowUpdate) Type() ChangeType { return ChangeUpdate }

func (c RowDelete) Identity() renderstate.Identity { return c.ID }
func (c RowInsert) Identity() renderstate.Identity { return c.ID }
func (c RowMove) Identity() renderstate.Identity   { return c.ID }
func (c RowUpdate) Identity() renderstate.Identity { return c.ID }

func (RowDelete) rowChange() {}
func (RowInsert) rowChange() {}
func (RowMove) rowChange()   {}
func (RowUpdate) rowChange() {}

// SameSection reports whether the move stays within one section index.
func (c RowMove) SameSection() bool { return c.Old.Section == c.New.Section }

type changeJSON struct {
	Type ChangeType              `json:"type"`
	Name string                  `json:"name"`
	ID   renderstate.Identity    `json:"id,omitempty"`
	Kind renderstate.SectionKind `json:"kind,omitempty"`
	Old  *renderstate.Position   `json:"old,omitempty"`
	New  *renderstate.Position   `json:"new,omitempty"`
	OldS *int                    `json:"oldSection,omitempty"`
	NewS *int                    `json:"newSection,omitempty"`
}

func (c RowDelete) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeDelete, Name: ChangeDelete.String(), ID: c.ID, Old: &c.Old})
}

func (c RowInsert) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeInsert, Name: ChangeInsert.String(), ID: c.ID, New: &c.New})
}

func (c RowMove) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeMove, Name: ChangeMove.String(), ID: c.ID, Old: &c.Old, New: &c.New})
}

func (c RowUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeUpdate, Name: ChangeUpdate.String(), ID: c.ID, Old: &c.Old})
}

// SectionChange is one of SectionDelete, SectionInsert or SectionMove.
type SectionChange interface {
	Type() ChangeType
	SectionKind() renderstate.SectionKind
	sectionChange()
}

type SectionDelete struct {
	Kind renderstate.SectionKind
	Old  int
}

type SectionInsert struct {
	Kind renderstate.SectionKind
	New  int
}

type SectionMove struct {
	Kind renderstate.SectionKind
	Old  int
	New  int
}

func (SectionDelete) Type() ChangeType { return ChangeDelete }
func (SectionInsert) Type() ChangeType { return ChangeInsert }
func (SectionMove) Type() ChangeType   { return ChangeMove }

func (c SectionDelete) SectionKind() renderstate.SectionKind { return c.Kind }
func (c SectionInsert) SectionKind() renderstate.SectionKind { return c.Kind }
func (c SectionMove) SectionKind() renderstate.SectionKind   { return c.Kind }

func (SectionDelete) sectionChange() {}
func (SectionInsert) sectionChange() {}
func (SectionMove) sectionChange()   {}

func (c SectionDelete) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeDelete, Name: ChangeDelete.String(), Kind: c.Kind, OldS: &c.Old})
}

func (c SectionInsert) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeInsert, Name: ChangeInsert.String(), Kind: c.Kind, NewS: &c.New})
}

func (c SectionMove) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeJSON{Type: ChangeMove, Name: ChangeMove.String(), Kind: c.Kind, OldS: &c.Old, NewS: &c.New})
}

// MappingDiff is the edit script between Old and New. It is only meaningful
// for that exact pair.
type MappingDiff struct {
	SectionChanges []SectionChange `json:"sectionChanges"`
	RowChanges     []RowChange     `json:"rowChanges"`

	Old renderstate.State `json:"-"`
	New renderstate.State `json:"-"`
}

func (d MappingDiff) IsEmpty() bool {
	return len(d.SectionChanges) == 0 && len(d.RowChanges) == 0
}

// Counts tallies row changes per type.
func (d MappingDiff) Counts() map[ChangeType]int {
	out := map[ChangeType]int{}
	for _, c := range d.RowChanges {
		out[c.Type()]++
	}
	return out
}
