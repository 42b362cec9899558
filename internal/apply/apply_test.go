package apply

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"threadlist/internal/diff"
	"threadlist/internal/listview"
	rs "threadlist/internal/renderstate"
)

func pos(s, r int) rs.Position { return rs.Position{Section: s, Row: r} }

func active(sections ...rs.Section) rs.State { return rs.New(rs.ModeActive, sections...) }

func loaded(s rs.State) *listview.List {
	l := listview.New(nil)
	l.ReloadAll(s)
	return l
}

func mustDiff(t *testing.T, old, next rs.State, changed rs.IdentitySet) diff.MappingDiff {
	t.Helper()
	d, err := diff.Compute(old, next, changed)
	require.NoError(t, err)
	return d
}

func TestApply_DeleteHeadAppendTail(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "A", "B", "C"))
	next := active(rs.NewSection(rs.SectionRegular, "B", "C", "D"))
	l := loaded(old)

	require.NoError(t, Apply(mustDiff(t, old, next, nil), l))
	require.Equal(t, []rs.Identity{"B", "C", "D"}, l.Flatten())
}

func TestApply_Swap(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "A", "B"))
	next := active(rs.NewSection(rs.SectionRegular, "B", "A"))
	l := loaded(old)

	require.NoError(t, Apply(mustDiff(t, old, next, nil), l))
	require.Equal(t, []rs.Identity{"B", "A"}, l.Flatten())
}

func TestPlan_Ordering(t *testing.T) {
	old := active(
		rs.NewSection(rs.SectionPinned, "p1", "p2"),
		rs.NewSection(rs.SectionRegular, "a", "b", "c", "d", "e"),
	)
	next := active(
		rs.NewSection(rs.SectionPinned, "p1", "p2", "d"),
		rs.NewSection(rs.SectionRegular, "x", "a", "e", "c"),
	)
	d := mustDiff(t, old, next, rs.NewIdentitySet("a"))

	steps, err := Plan(d)
	require.NoError(t, err)

	var got []string
	for _, s := range steps {
		got = append(got, s.String())
	}
	// b deleted, d pinned (cross-section move), c moved down inside regular.
	require.Equal(t, []string{
		"reload a (1,0)",
		"move d (1,3)->(0,2)",
		"delete c (1,2)",
		"delete b (1,1)",
		"insert x (1,0)",
		"insert c (1,3)",
	}, got)

	l := loaded(old)
	require.NoError(t, Apply(d, l))
	require.True(t, l.Matches(next), "got %v", l.Content())
}

func TestApply_SameSectionMoveRebuildsCell(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "a", "b", "c"))
	next := active(rs.NewSection(rs.SectionRegular, "c", "a", "b"))

	titles := map[rs.Identity]string{"a": "A", "b": "B", "c": "C"}
	l := listview.New(func(id rs.Identity) listview.Cell { return listview.Cell{Title: titles[id]} })
	l.ReloadAll(old)

	titles["c"] = "C (new message)"
	require.NoError(t, Apply(mustDiff(t, old, next, rs.NewIdentitySet("c")), l))

	cell, ok := l.Cell(pos(0, 0))
	require.True(t, ok)
	require.Equal(t, rs.Identity("c"), cell.ID)
	require.Equal(t, "C (new message)", cell.Title)
	require.Equal(t, l.Generation(), cell.Gen)

	untouched, _ := l.Cell(pos(0, 1))
	require.Less(t, untouched.Gen, l.Generation())
}

func TestApply_CrossSectionMoveKeepsCell(t *testing.T) {
	old := active(rs.NewSection(rs.SectionPinned), rs.NewSection(rs.SectionRegular, "a", "b"))
	next := active(rs.NewSection(rs.SectionPinned, "b"), rs.NewSection(rs.SectionRegular, "a"))

	l := loaded(old)
	before, _ := l.Cell(pos(1, 1))
	builds := l.Builds()

	require.NoError(t, Apply(mustDiff(t, old, next, nil), l))
	after, ok := l.Cell(pos(0, 0))
	require.True(t, ok)
	require.Equal(t, before, after)
	require.Equal(t, builds, l.Builds())
}

func TestApply_UpdateReloadsInPlace(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "a", "b"))
	l := loaded(old)
	builds := l.Builds()

	require.NoError(t, Apply(mustDiff(t, old, old, rs.NewIdentitySet("b")), l))
	require.Equal(t, []rs.Identity{"a", "b"}, l.Flatten())
	require.Equal(t, builds+1, l.Builds())
}

func TestApply_SectionChangesRequireFullReload(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "a"))
	next := active(rs.NewSection(rs.SectionRegular, "a"), rs.NewSection(rs.SectionArchivedNotice, rs.ArchivedNoticeID))
	w := &recordingWidget{}

	err := Apply(mustDiff(t, old, next, nil), w)
	require.True(t, errors.Is(err, ErrRequiresFullReload))
	require.Empty(t, w.calls, "widget must not be touched")
}

func TestApply_WidgetRejectionAbortsBatch(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "a", "b", "c"))
	next := active(rs.NewSection(rs.SectionRegular, "c", "x"))
	w := &recordingWidget{failOn: "insert"}

	err := Apply(mustDiff(t, old, next, nil), w)
	require.True(t, errors.Is(err, ErrWidgetRejected))
	var ae *ApplyError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, "insert", ae.Step)
	require.Equal(t, "abort", w.calls[len(w.calls)-1])
	require.NotContains(t, w.calls, "end")
}

func TestApply_RejectedBatchLeavesListUntouched(t *testing.T) {
	old := active(rs.NewSection(rs.SectionRegular, "a", "b"))
	stale := active(rs.NewSection(rs.SectionRegular, "a", "b", "c"))
	next := active(rs.NewSection(rs.SectionRegular, "a"))

	// A diff computed against a different baseline than what the list shows.
	l := loaded(old)
	err := Apply(mustDiff(t, stale, next, nil), l)
	require.True(t, errors.Is(err, ErrWidgetRejected))
	require.Equal(t, []rs.Identity{"a", "b"}, l.Flatten())
	require.False(t, l.InBatch())
}

func TestApply_RandomPairsNeverCorrupt(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		old, next, changed := randomPair(r)
		d, err := diff.Compute(old, next, changed)
		require.NoError(t, err)

		l := loaded(old)
		require.NoError(t, Apply(d, l), "iteration %d\nold=%v\nnew=%v", i, old.Content(), next.Content())
		require.True(t, l.Matches(next), "iteration %d\nold=%v\nnew=%v\ngot=%v", i, old.Content(), next.Content(), l.Content())
	}
}

// randomPair builds an old/new pair with the same section kinds so the diff
// stays row-level.
func randomPair(r *rand.Rand) (rs.State, rs.State, rs.IdentitySet) {
	nextID := 0
	fresh := func() rs.Identity {
		nextID++
		return rs.Identity(fmt.Sprintf("t%d", nextID))
	}

	kinds := []rs.SectionKind{rs.SectionPinned, rs.SectionRegular}
	oldSecs := make([][]rs.Identity, len(kinds))
	for i := range kinds {
		n := r.Intn(7)
		for j := 0; j < n; j++ {
			oldSecs[i] = append(oldSecs[i], fresh())
		}
	}

	newSecs := make([][]rs.Identity, len(kinds))
	changed := rs.NewIdentitySet()
	for i := range kinds {
		for _, id := range oldSecs[i] {
			switch r.Intn(6) {
			case 0:
				// deleted
			case 1:
				other := r.Intn(len(kinds))
				newSecs[other] = append(newSecs[other], id)
			default:
				newSecs[i] = append(newSecs[i], id)
			}
			if r.Intn(4) == 0 {
				changed.Add(id)
			}
		}
	}
	for i := range kinds {
		for j := r.Intn(3); j > 0; j-- {
			newSecs[i] = append(newSecs[i], fresh())
		}
		r.Shuffle(len(newSecs[i]), func(a, b int) {
			if r.Intn(3) == 0 {
				newSecs[i][a], newSecs[i][b] = newSecs[i][b], newSecs[i][a]
			}
		})
	}

	build := func(secs [][]rs.Identity) rs.State {
		out := make([]rs.Section, len(kinds))
		for i, k := range kinds {
			out[i] = rs.NewSection(k, secs[i]...)
		}
		return active(out...)
	}
	return build(oldSecs), build(newSecs), changed
}

type recordingWidget struct {
	failOn string
	calls  []string
}

func (w *recordingWidget) step(name string) error {
	w.calls = append(w.calls, name)
	if name == w.failOn {
		return errors.New("boom")
	}
	return nil
}

func (w *recordingWidget) BeginBatch() error                        { return w.step("begin") }
func (w *recordingWidget) DeleteRow(rs.Position) error              { return w.step("delete") }
func (w *recordingWidget) InsertRow(rs.Position, rs.Identity) error { return w.step("insert") }
func (w *recordingWidget) MoveRow(_, _ rs.Position) error           { return w.step("move") }
func (w *recordingWidget) ReloadRow(rs.Position) error              { return w.step("reload") }
func (w *recordingWidget) EndBatch() error                          { return w.step("end") }
func (w *recordingWidget) AbortBatch()                              { w.calls = append(w.calls, "abort") }
func (w *recordingWidget) ReloadAll(rs.State)                       { w.calls = append(w.calls, "reload-all") }
