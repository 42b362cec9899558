package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"threadlist/internal/listview"
	"threadlist/internal/model"
	"threadlist/internal/reconcile"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestModel(t *testing.T, s *store.Store) appModel {
	t.Helper()
	setGlyphs(glyphSetASCII)
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })
	m, err := newAppModel(context.Background(), Options{Store: s})
	if err != nil {
		t.Fatalf("newAppModel: %v", err)
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(appModel)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m appModel, keys ...string) appModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(appModel)
	}
	return m
}

func titles(m appModel) []string {
	var out []string
	for _, it := range m.list.Items() {
		switch r := it.(type) {
		case headerRow:
			out = append(out, "["+r.Title()+"]")
		case threadRow:
			out = append(out, r.cell.Title)
		}
	}
	return out
}

func addThread(t *testing.T, s *store.Store, title string) model.Thread {
	t.Helper()
	th, err := s.AddThread(context.Background(), title, "")
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	return th
}

func TestApp_InitialLoadShowsSections(t *testing.T) {
	s := openStore(t)
	a := addThread(t, s, "alpha")
	addThread(t, s, "beta")
	if err := s.SetPinned(context.Background(), a.ID, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	m := newTestModel(t, s)
	got := strings.Join(titles(m), ",")
	if got != "[Pinned],alpha,[Inbox],beta" {
		t.Fatalf("rows = %s", got)
	}
	if r, ok := m.selectedRow(); !ok || r.cell.Title != "alpha" {
		t.Fatalf("cursor should skip the header, got %+v", r)
	}
	if m.last.Kind != reconcile.Reloaded {
		t.Fatalf("first load should be a full reload, got %s", m.last.Kind)
	}
}

func TestApp_PollAppliesExternalChanges(t *testing.T) {
	s := openStore(t)
	addThread(t, s, "alpha")
	m := newTestModel(t, s)

	// Another process adds a thread.
	addThread(t, s, "beta")
	next, cmd := m.Update(pollTickMsg{})
	m = next.(appModel)
	if cmd == nil {
		t.Fatalf("poll must schedule the next tick")
	}
	if got := strings.Join(titles(m), ","); got != "[Inbox],beta,alpha" {
		t.Fatalf("rows = %s", got)
	}
	if m.last.Kind != reconcile.Applied {
		t.Fatalf("expected an incremental update, got %s (%s)", m.last.Kind, m.last.Reason)
	}
}

func TestApp_ArchiveShowsNoticeAndSwitchesMode(t *testing.T) {
	s := openStore(t)
	addThread(t, s, "alpha")
	addThread(t, s, "beta")
	m := newTestModel(t, s)

	// Cursor is on beta (newest first); archive it.
	m = press(m, "e")
	if got := strings.Join(titles(m), ","); got != "[Inbox],alpha,Archived threads (1)" {
		t.Fatalf("rows = %s", got)
	}
	if m.last.Reason != reconcile.ReasonSectionShape {
		t.Fatalf("archived notice must force a reload, got %s", m.last.Reason)
	}

	m = press(m, "a")
	if m.ctrl.Mode() != renderstate.ModeArchive {
		t.Fatalf("mode = %s", m.ctrl.Mode())
	}
	if got := strings.Join(titles(m), ","); got != "[Archive],beta" {
		t.Fatalf("archive rows = %s", got)
	}

	// Restore it from the archive view.
	m = press(m, "e")
	if len(m.list.Items()) != 0 || m.view.banner != "No archived threads." {
		t.Fatalf("archive should be empty, rows=%v banner=%q", titles(m), m.view.banner)
	}
}

func TestApp_AddPinTouchDelete(t *testing.T) {
	s := openStore(t)
	m := newTestModel(t, s)
	if m.view.banner == "" {
		t.Fatalf("expected empty-state banner")
	}

	m = press(m, "n", "h", "i", "enter")
	if got := strings.Join(titles(m), ","); got != "[Inbox],hi" {
		t.Fatalf("rows = %s", got)
	}
	if m.view.banner != "" {
		t.Fatalf("banner should clear, got %q", m.view.banner)
	}

	addThread(t, s, "second")
	m = press(m, "p")
	if got := strings.Join(titles(m), ","); got != "[Pinned],hi,[Inbox],second" {
		t.Fatalf("rows after pin = %s", got)
	}

	m = press(m, "down", "d")
	if got := strings.Join(titles(m), ","); got != "[Pinned],hi" {
		t.Fatalf("rows after delete = %s", got)
	}
	if c, _ := s.Counts(context.Background()); c.Total() != 1 {
		t.Fatalf("counts = %+v", c)
	}
}

func TestApp_EscCancelsAdd(t *testing.T) {
	s := openStore(t)
	m := newTestModel(t, s)
	m = press(m, "n", "x", "esc")
	if m.adding || len(m.list.Items()) != 0 {
		t.Fatalf("add should be cancelled, adding=%v rows=%v", m.adding, titles(m))
	}
}

func TestApp_ViewRendersBannerAndHelp(t *testing.T) {
	s := openStore(t)
	m := newTestModel(t, s)
	out := m.View()
	if !strings.Contains(out, "No threads yet") || !strings.Contains(out, "q quit") {
		t.Fatalf("view = %q", out)
	}
}

func TestRowsFrom_SkipsEmptySections(t *testing.T) {
	w := listview.New(nil)
	w.ReloadAll(renderstate.New(renderstate.ModeActive,
		renderstate.NewSection(renderstate.SectionPinned),
		renderstate.NewSection(renderstate.SectionRegular, "a"),
		renderstate.NewSection(renderstate.SectionArchivedNotice, renderstate.ArchivedNoticeID),
	))
	items := rowsFrom(w)
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	if _, ok := items[0].(headerRow); !ok {
		t.Fatalf("first item should be a header")
	}
	notice, ok := items[2].(threadRow)
	if !ok || !notice.isNotice() || notice.pos != (renderstate.Position{Section: 2, Row: 0}) {
		t.Fatalf("notice = %+v", items[2])
	}
}

func TestRenderThreadRow_FitsWidth(t *testing.T) {
	setGlyphs(glyphSetASCII)
	defer setGlyphs(glyphSetUnicode)
	r := threadRow{cell: listview.Cell{ID: "x", Title: strings.Repeat("long ", 30), Detail: "2h", Badge: glyphPin()}, kind: renderstate.SectionPinned}
	for _, w := range []int{10, 40, 80} {
		if got := renderThreadRow(r, w, false); xansi.StringWidth(got) != w {
			t.Fatalf("width %d: got %d", w, xansi.StringWidth(got))
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Second:   "now",
		5 * time.Minute:    "5m",
		3 * time.Hour:      "3h",
		2 * 24 * time.Hour: "2d",
	}
	for d, want := range cases {
		if got := relativeTime(now, now.Add(-d)); got != want {
			t.Fatalf("relativeTime(-%s) = %q, want %q", d, got, want)
		}
	}
}

func TestEmptyBanner(t *testing.T) {
	active := func(secs ...renderstate.Section) renderstate.State {
		return renderstate.New(renderstate.ModeActive, secs...)
	}
	pinned := renderstate.NewSection(renderstate.SectionPinned)
	regular := renderstate.NewSection(renderstate.SectionRegular)
	notice := renderstate.NewSection(renderstate.SectionArchivedNotice, renderstate.ArchivedNoticeID)

	if b := emptyBanner(active(pinned, regular)); !strings.Contains(b, "No threads yet") {
		t.Fatalf("banner = %q", b)
	}
	if b := emptyBanner(active(pinned, regular, notice)); !strings.Contains(b, "Inbox zero") {
		t.Fatalf("banner = %q", b)
	}
	if b := emptyBanner(active(pinned, renderstate.NewSection(renderstate.SectionRegular, "a"))); b != "" {
		t.Fatalf("banner = %q", b)
	}
}

var _ list.ItemDelegate = rowDelegate{}

func TestApp_SavedStateKeepsModeAndSelection(t *testing.T) {
	s := openStore(t)
	a := addThread(t, s, "alpha")
	m := newTestModel(t, s)

	st := m.savedState()
	if st.Mode != "active" || st.SelectedID != a.ID {
		t.Fatalf("state = %+v", st)
	}
	m = press(m, "a")
	if st := m.savedState(); st.Mode != "archive" || st.SelectedID != "" {
		t.Fatalf("state = %+v", st)
	}
}
