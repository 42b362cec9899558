package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"threadlist/internal/apply"
	"threadlist/internal/listview"
	rs "threadlist/internal/renderstate"
)

type fakeSource struct {
	states map[rs.Mode]rs.State
	err    error
	reads  int
}

func (f *fakeSource) ReadRenderState(_ context.Context, m rs.Mode) (rs.State, error) {
	f.reads++
	if f.err != nil {
		return rs.State{}, f.err
	}
	return f.states[m], nil
}

func (f *fakeSource) set(s rs.State) { f.states[s.Mode()] = s }

type viewRecorder struct{ seen []rs.State }

func (v *viewRecorder) UpdateViewState(s rs.State) { v.seen = append(v.seen, s) }

func activeState(pinned []rs.Identity, regular []rs.Identity, archived bool) rs.State {
	secs := []rs.Section{
		rs.NewSection(rs.SectionPinned, pinned...),
		rs.NewSection(rs.SectionRegular, regular...),
	}
	if archived {
		secs = append(secs, rs.NewSection(rs.SectionArchivedNotice, rs.ArchivedNoticeID))
	}
	return rs.New(rs.ModeActive, secs...)
}

func ids(v ...rs.Identity) []rs.Identity { return v }

type harness struct {
	src  *fakeSource
	list *listview.List
	view *viewRecorder
	hook *logtest.Hook
	c    *Controller
}

func newHarness(t *testing.T, initial rs.State) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		src:  &fakeSource{states: map[rs.Mode]rs.State{}},
		list: listview.New(nil),
		view: &viewRecorder{},
		hook: hook,
	}
	h.src.set(initial)
	h.src.set(rs.New(rs.ModeArchive, rs.NewSection(rs.SectionArchived)))
	h.c = New(h.src, h.list, h.view, WithLogger(logger))

	out, err := h.c.Reset(context.Background())
	require.NoError(t, err)
	require.Equal(t, Reloaded, out.Kind)
	require.True(t, h.list.Matches(initial))
	return h
}

func (h *harness) notify(t *testing.T, next rs.State, changed ...rs.Identity) Outcome {
	t.Helper()
	h.src.set(next)
	out, err := h.c.Notify(context.Background(), rs.NewIdentitySet(changed...))
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, h.c.Phase())
	return out
}

func TestReset_IsIdempotent(t *testing.T) {
	s := activeState(ids("p"), ids("a", "b"), true)
	h := newHarness(t, s)
	once := h.list.Content()

	out, err := h.c.Reset(context.Background())
	require.NoError(t, err)
	require.Equal(t, ReasonReset, out.Reason)
	require.Equal(t, once, h.list.Content())
	require.True(t, h.c.Current().Equal(s))
	require.False(t, h.c.LastReload().IsZero())
}

func TestNotify_AppliesRowChanges(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("A", "B", "C"), false))
	next := activeState(nil, ids("B", "C", "D"), false)

	out := h.notify(t, next, "A", "D")
	require.Equal(t, Applied, out.Kind)
	require.NotNil(t, out.Diff)
	require.Len(t, out.Diff.RowChanges, 2)
	require.True(t, h.list.Matches(next))
	require.True(t, h.c.Current().Equal(next))
}

func TestNotify_EmptyHintOnlyUpdatesViewState(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), false))
	reads, gen := h.src.reads, h.list.Generation()

	out, err := h.c.Notify(context.Background(), rs.NewIdentitySet())
	require.NoError(t, err)
	require.Equal(t, Ignored, out.Kind)
	require.Equal(t, reads, h.src.reads, "no read for an empty hint")
	require.Equal(t, gen, h.list.Generation(), "widget untouched")
	require.Len(t, h.view.seen, 2)
}

func TestNotify_UnchangedLeavesWidgetAlone(t *testing.T) {
	s := activeState(nil, ids("a", "b"), false)
	h := newHarness(t, s)
	gen := h.list.Generation()

	out := h.notify(t, s, "zzz")
	require.Equal(t, Unchanged, out.Kind)
	require.Equal(t, gen, h.list.Generation())
}

func TestNotify_ArchiveIndicatorForcesReload(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a", "b"), false))
	before := h.list.LastReload()

	// b gets archived: the regular section shrinks and the notice appears.
	next := activeState(nil, ids("a"), true)
	out := h.notify(t, next, "b")

	require.Equal(t, Reloaded, out.Kind)
	require.Equal(t, ReasonSectionShape, out.Reason)
	require.NotNil(t, out.Diff)
	require.NotEmpty(t, out.Diff.SectionChanges)
	require.True(t, h.list.Matches(next))
	require.False(t, h.list.LastReload().Before(before))

	// And back again once nothing is archived.
	prev := activeState(nil, ids("a", "b"), false)
	out = h.notify(t, prev, "b")
	require.Equal(t, ReasonSectionShape, out.Reason)
	require.True(t, h.list.Matches(prev))
}

func TestNotify_InconsistentStateFallsBackToReload(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a", "b"), false))
	bad := activeState(ids("a"), ids("a", "b"), false)

	out := h.notify(t, bad, "a")
	require.Equal(t, Reloaded, out.Kind)
	require.Equal(t, ReasonInconsistent, out.Reason)
	require.Error(t, out.Err)
	require.Equal(t, bad.Content(), h.list.Content(), "full reload shows the new state as is")
	require.Equal(t, 1, h.c.Stats().Failures)

	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestNotify_WidgetRejectionFallsBackToReload(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a", "b"), false))
	w := &rejectingWidget{List: h.list}
	h.c.widget = w

	next := activeState(nil, ids("b", "a", "c"), false)
	out := h.notify(t, next, "c")
	require.Equal(t, Reloaded, out.Kind)
	require.Equal(t, ReasonWidgetRejected, out.Reason)
	require.True(t, errors.Is(out.Err, apply.ErrWidgetRejected))
	require.True(t, h.list.Matches(next))
	require.False(t, h.list.InBatch())

	entry := h.hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.ErrorLevel, entry.Level)
	require.Contains(t, entry.Data, "diff")
}

func TestNotify_ReadFailureResets(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), false))
	h.src.err = errors.New("disk on fire")

	_, err := h.c.Notify(context.Background(), rs.NewIdentitySet("a"))
	require.Error(t, err)
	require.Equal(t, PhaseIdle, h.c.Phase())
	require.Equal(t, [][]rs.Identity{{}, {"a"}}, h.list.Content(), "widget keeps its last good content")

	h.src.err = nil
	next := activeState(nil, ids("a", "b"), false)
	out := h.notify(t, next, "b")
	require.Equal(t, Applied, out.Kind)
	require.True(t, h.list.Matches(next))
}

func TestNotify_BeforeFirstLoadResets(t *testing.T) {
	src := &fakeSource{states: map[rs.Mode]rs.State{}}
	src.set(activeState(nil, ids("a"), false))
	list := listview.New(nil)
	c := New(src, list, nil, WithLogger(logrus.New()))

	out, err := c.Notify(context.Background(), rs.NewIdentitySet("a"))
	require.NoError(t, err)
	require.Equal(t, Reloaded, out.Kind)
	require.True(t, c.Loaded())
	require.Equal(t, []rs.Identity{"a"}, list.Flatten())
}

func TestSetMode_Resets(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), true))
	archived := rs.New(rs.ModeArchive, rs.NewSection(rs.SectionArchived, "z"))
	h.src.set(archived)

	out, err := h.c.SetMode(context.Background(), rs.ModeArchive)
	require.NoError(t, err)
	require.Equal(t, ReasonModeSwitch, out.Reason)
	require.Equal(t, rs.ModeArchive, h.c.Mode())
	require.True(t, h.list.Matches(archived))

	// Notifications now diff within the archive view.
	next := rs.New(rs.ModeArchive, rs.NewSection(rs.SectionArchived, "y", "z"))
	out = h.notify(t, next, "y")
	require.Equal(t, Applied, out.Kind)
	require.True(t, h.list.Matches(next))
}

func TestNotify_ReentrantCallIsRejected(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), false))
	var inner error
	h.c.view = ViewStateFunc(func(rs.State) {
		_, inner = h.c.Notify(context.Background(), rs.NewIdentitySet("a"))
	})

	h.notify(t, activeState(nil, ids("a", "b"), false), "b")
	require.ErrorIs(t, inner, ErrReentrant)
}

func TestOutcome_DurationUsesClock(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), false))
	t0 := time.Unix(100, 0)
	calls := 0
	h.c.now = func() time.Time {
		calls++
		return t0.Add(time.Duration(calls) * time.Millisecond)
	}

	out := h.notify(t, activeState(nil, ids("b", "a"), false), "b")
	require.Equal(t, Applied, out.Kind)
	require.Equal(t, time.Millisecond, out.Duration)
}

func TestStats_CountPasses(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a"), false))
	h.notify(t, activeState(nil, ids("a", "b"), false), "b")
	// A hint for an identity that is not shown produces an empty diff.
	h.notify(t, activeState(nil, ids("a", "b"), false), "zzz")
	_, _ = h.c.Notify(context.Background(), nil)

	st := h.c.Stats()
	require.Equal(t, 4, st.Passes)
	require.Equal(t, 1, st.Reloads)
	require.Equal(t, 1, st.Applied)
	require.Equal(t, 1, st.Unchanged)
	require.Equal(t, 1, st.Ignored)
	require.Zero(t, st.Failures)
}

func TestStats_HintedRowInPlaceIsApplied(t *testing.T) {
	h := newHarness(t, activeState(nil, ids("a", "b"), false))
	out := h.notify(t, activeState(nil, ids("a", "b"), false), "b")
	require.Equal(t, Applied, out.Kind)

	st := h.c.Stats()
	require.Equal(t, 1, st.Applied)
	require.Zero(t, st.Unchanged)
}

// rejectingWidget wraps a real list but refuses every insert.
type rejectingWidget struct {
	*listview.List
}

func (w *rejectingWidget) InsertRow(rs.Position, rs.Identity) error {
	return errors.New("insert refused")
}
