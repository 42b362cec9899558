package renderstate

import (
	"fmt"
	"sort"
	"strings"
)

// Identity is the stable id of one list row (a thread id, or a synthetic id
// for indicator rows).
type Identity string

type SectionKind string

const (
	SectionPinned         SectionKind = "pinned"
	SectionRegular        SectionKind = "regular"
	SectionArchivedNotice SectionKind = "archived-notice"
	SectionArchived       SectionKind = "archived"
)

// ArchivedNoticeID is the synthetic row shown in the archived-notice section.
const ArchivedNoticeID Identity = "archived-notice"

type Mode int

const (
	ModeActive Mode = iota
	ModeArchive
)

func (m Mode) String() string {
	if m == ModeArchive {
		return "archive"
	}
	return "active"
}

// ParseMode accepts "active" and "archive" (case-insensitive). Empty means active.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "inbox":
		return ModeActive, nil
	case "archive", "archived":
		return ModeArchive, nil
	default:
		return ModeActive, fmt.Errorf("unknown mode: %s", s)
	}
}

// Position addresses a row inside a specific State.
type Position struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Section, p.Row)
}

// Less orders positions section-major.
func (p Position) Less(o Position) bool {
	if p.Section != o.Section {
		return p.Section < o.Section
	}
	return p.Row < o.Row
}

type Section struct {
	Kind  SectionKind `json:"kind"`
	Items []Identity  `json:"items"`
}

func NewSection(kind SectionKind, ids ...Identity) Section {
	items := make([]Identity, len(ids))
	copy(items, ids)
	return Section{Kind: kind, Items: items}
}

// State is an immutable snapshot of the sectioned list. Callers must not
// mutate the slices of a State they did not build themselves.
type State struct {
	Sections    []Section `json:"sections"`
	ArchiveMode bool      `json:"archiveMode"`
}

func New(mode Mode, sections ...Section) State {
	out := State{ArchiveMode: mode == ModeArchive}
	out.Sections = make([]Section, len(sections))
	for i, s := range sections {
		out.Sections[i] = NewSection(s.Kind, s.Items...)
	}
	return out
}

func (s State) Mode() Mode {
	if s.ArchiveMode {
		return ModeArchive
	}
	return ModeActive
}

// Validate checks the structural invariants: non-empty identities that are
// unique across the whole state and section kinds that appear at most once.
func (s State) Validate() error {
	seenKinds := make(map[SectionKind]int, len(s.Sections))
	seenIDs := map[Identity]Position{}
	for si, sec := range s.Sections {
		if strings.TrimSpace(string(sec.Kind)) == "" {
			return fmt.Errorf("section %d has no kind", si)
		}
		if prev, ok := seenKinds[sec.Kind]; ok {
			return fmt.Errorf("section kind %q appears at %d and %d", sec.Kind, prev, si)
		}
		seenKinds[sec.Kind] = si
		for ri, id := range sec.Items {
			if id == "" {
				return fmt.Errorf("empty identity at %s", Position{Section: si, Row: ri})
			}
			if prev, ok := seenIDs[id]; ok {
				return fmt.Errorf("duplicate identity %q at %s and %s", id, prev, Position{Section: si, Row: ri})
			}
			seenIDs[id] = Position{Section: si, Row: ri}
		}
	}
	return nil
}

func (s State) SectionIndex(kind SectionKind) int {
	for i, sec := range s.Sections {
		if sec.Kind == kind {
			return i
		}
	}
	return -1
}

func (s State) HasSection(kind SectionKind) bool { return s.SectionIndex(kind) >= 0 }

// InBounds reports whether p addresses an existing row.
func (s State) InBounds(p Position) bool {
	if p.Section < 0 || p.Section >= len(s.Sections) {
		return false
	}
	return p.Row >= 0 && p.Row < len(s.Sections[p.Section].Items)
}

// At returns the identity at p, or "" when p is out of range.
func (s State) At(p Position) Identity {
	if !s.InBounds(p) {
		return ""
	}
	return s.Sections[p.Section].Items[p.Row]
}

func (s State) Locate(id Identity) (Position, bool) {
	for si, sec := range s.Sections {
		for ri, it := range sec.Items {
			if it == id {
				return Position{Section: si, Row: ri}, true
			}
		}
	}
	return Position{}, false
}

// Index maps every identity to its position.
func (s State) Index() map[Identity]Position {
	out := make(map[Identity]Position, s.RowCount())
	for si, sec := range s.Sections {
		for ri, id := range sec.Items {
			out[id] = Position{Section: si, Row: ri}
		}
	}
	return out
}

func (s State) RowCount() int {
	n := 0
	for _, sec := range s.Sections {
		n += len(sec.Items)
	}
	return n
}

func (s State) IsEmpty() bool { return s.RowCount() == 0 }

// Flatten returns all identities in display order.
func (s State) Flatten() []Identity {
	out := make([]Identity, 0, s.RowCount())
	for _, sec := range s.Sections {
		out = append(out, sec.Items...)
	}
	return out
}

// Content returns a deep copy of the per-section identities.
func (s State) Content() [][]Identity {
	out := make([][]Identity, len(s.Sections))
	for i, sec := range s.Sections {
		out[i] = append([]Identity{}, sec.Items...)
	}
	return out
}

func (s State) Kinds() []SectionKind {
	out := make([]SectionKind, len(s.Sections))
	for i, sec := range s.Sections {
		out[i] = sec.Kind
	}
	return out
}

func (s State) Equal(o State) bool {
	if s.ArchiveMode != o.ArchiveMode || len(s.Sections) != len(o.Sections) {
		return false
	}
	for i := range s.Sections {
		a, b := s.Sections[i], o.Sections[i]
		if a.Kind != b.Kind || len(a.Items) != len(b.Items) {
			return false
		}
		for j := range a.Items {
			if a.Items[j] != b.Items[j] {
				return false
			}
		}
	}
	return true
}

// IdentitySet is the set of identities reported as changed by the data source.
type IdentitySet map[Identity]struct{}

func NewIdentitySet(ids ...Identity) IdentitySet {
	out := make(IdentitySet, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Add inserts id, allocating the set on first use.
func (s *IdentitySet) Add(id Identity) {
	if *s == nil {
		*s = IdentitySet{}
	}
	(*s)[id] = struct{}{}
}

func (s IdentitySet) Has(id Identity) bool {
	_, ok := s[id]
	return ok
}

func (s IdentitySet) Len() int { return len(s) }

func (s IdentitySet) Sorted() []Identity {
	out := make([]Identity, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
