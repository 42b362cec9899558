package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"threadlist/internal/listview"
	"threadlist/internal/renderstate"
)

// headerRow labels a section. It is display only.
type headerRow struct {
	kind renderstate.SectionKind
}

func (h headerRow) FilterValue() string { return "" }

func (h headerRow) Title() string {
	switch h.kind {
	case renderstate.SectionPinned:
		return "Pinned"
	case renderstate.SectionRegular:
		return "Inbox"
	case renderstate.SectionArchived:
		return "Archive"
	default:
		return ""
	}
}

// threadRow is one widget cell.
type threadRow struct {
	cell listview.Cell
	pos  renderstate.Position
	kind renderstate.SectionKind
}

func (r threadRow) FilterValue() string      { return r.cell.Title }
func (r threadRow) Title() string            { return r.cell.Title }
func (r threadRow) ID() renderstate.Identity { return r.cell.ID }

func (r threadRow) isNotice() bool { return r.cell.ID == renderstate.ArchivedNoticeID }

// rowsFrom flattens the widget content into list items, with a header in
// front of every non-empty titled section.
func rowsFrom(w *listview.List) []list.Item {
	var items []list.Item
	for si, sec := range w.Sections() {
		if len(sec.Cells) == 0 {
			continue
		}
		if h := (headerRow{kind: sec.Kind}); h.Title() != "" {
			items = append(items, h)
		}
		for ri, c := range sec.Cells {
			items = append(items, threadRow{cell: c, pos: renderstate.Position{Section: si, Row: ri}, kind: sec.Kind})
		}
	}
	return items
}

type rowDelegate struct{}

func (d rowDelegate) Height() int                             { return 1 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width < 4 {
		return
	}

	switch it := item.(type) {
	case headerRow:
		fmt.Fprint(w, styleSectionHeader().Render(fit(it.Title(), width)))
	case threadRow:
		selected := index == m.Index()
		fmt.Fprint(w, renderThreadRow(it, width, selected))
	}
}

func renderThreadRow(r threadRow, width int, selected bool) string {
	lead := "  "
	if selected {
		lead = glyphCursor() + " "
	}
	badge := ""
	if r.cell.Badge != "" {
		badge = r.cell.Badge + " "
	}

	title := r.cell.Title
	if r.isNotice() {
		title = styleMuted().Render(title)
	} else if r.cell.Badge != "" && r.kind == renderstate.SectionPinned {
		badge = lipgloss.NewStyle().Foreground(colorPinned).Render(badge)
	}

	left := lead + badge + title
	detail := r.cell.Detail
	if detail != "" {
		room := width - xansi.StringWidth(left) - 2
		if room >= 8 {
			detail = xansi.Truncate(detail, room, "…")
			gap := width - xansi.StringWidth(left) - xansi.StringWidth(detail)
			left += strings.Repeat(" ", gap) + styleMuted().Render(detail)
		}
	}

	line := fit(left, width)
	if selected {
		return styleSelected().Render(line)
	}
	return line
}

// fit pads or cuts s to exactly width cells.
func fit(s string, width int) string {
	w := xansi.StringWidth(s)
	switch {
	case w < width:
		return s + strings.Repeat(" ", width-w)
	case w > width:
		return xansi.Cut(s, 0, width)
	default:
		return s
	}
}

func newList() list.Model {
	l := list.New(nil, rowDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	up := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	l.KeyMap.CursorUp.SetKeys(append(up, "ctrl+p")...)
	down := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	l.KeyMap.CursorDown.SetKeys(append(down, "ctrl+n")...)
	return l
}

// selectByID moves the cursor to id, or keeps the index within bounds when
// the row is gone.
func selectByID(l *list.Model, id renderstate.Identity, fallback int) {
	items := l.Items()
	for i, it := range items {
		if r, ok := it.(threadRow); ok && r.cell.ID == id {
			l.Select(i)
			return
		}
	}
	if fallback >= len(items) {
		fallback = len(items) - 1
	}
	if fallback < 0 {
		fallback = 0
	}
	l.Select(fallback)
}
