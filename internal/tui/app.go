package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"threadlist/internal/listview"
	"threadlist/internal/reconcile"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

type pollTickMsg struct{}

type appModel struct {
	ctx   context.Context
	store *store.Store
	log   logrus.FieldLogger
	poll  time.Duration

	widget *listview.List
	ctrl   *reconcile.Controller
	view   *viewState
	cursor int64

	list   list.Model
	input  textinput.Model
	adding bool

	width  int
	height int

	last   reconcile.Outcome
	status string
	err    error

	previewID  renderstate.Identity
	previewGen uint64
	previewW   int
	preview    string
}

func newAppModel(ctx context.Context, opts Options) (appModel, error) {
	opts = opts.withDefaults()

	widget := listview.New(newCellProvider(ctx, opts.Store, opts.Now))
	view := &viewState{ctx: ctx, store: opts.Store}
	ctrl := reconcile.New(opts.Store, widget, view,
		reconcile.WithLogger(opts.Log),
		reconcile.WithMode(opts.Mode),
	)

	in := textinput.New()
	in.Placeholder = "Thread title"
	in.Prompt = "New thread: "
	in.CharLimit = 200

	m := appModel{
		ctx:    ctx,
		store:  opts.Store,
		log:    opts.Log,
		poll:   opts.PollInterval,
		widget: widget,
		ctrl:   ctrl,
		view:   view,
		list:   newList(),
		input:  in,
	}

	// Take the cursor before the first read so no change can slip between.
	cursor, err := opts.Store.LatestSeq(ctx)
	if err != nil {
		return m, err
	}
	m.cursor = cursor
	out, err := ctrl.Reset(ctx)
	if err != nil {
		return m, err
	}
	m.last = out
	m.syncList()
	return m, nil
}

func (m appModel) Init() tea.Cmd { return tickPoll(m.poll) }

func tickPoll(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case pollTickMsg:
		m.pollChanges()
		cmd = tickPoll(m.poll)

	case tea.KeyMsg:
		if m.adding {
			cmd = m.updateAdding(msg)
		} else {
			var quit bool
			cmd, quit = m.updateKeys(msg)
			if quit {
				return m, tea.Quit
			}
		}
	}
	m.refreshPreview()
	return m, cmd
}

func (m *appModel) updateAdding(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		return nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		if title == "" {
			return nil
		}
		t, err := m.store.AddThread(m.ctx, title, "")
		m.after(err, "added "+title)
		if err == nil {
			selectByID(&m.list, renderstate.Identity(t.ID), m.list.Index())
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *appModel) updateKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "q":
		return nil, true
	case "a":
		m.setMode(otherMode(m.ctrl.Mode()))
		return nil, false
	case "r":
		out, err := m.ctrl.Reset(m.ctx)
		if err == nil {
			m.last = out
			m.syncList()
		}
		m.after(err, "reloaded")
		return nil, false
	case "n":
		m.adding = true
		return m.input.Focus(), false
	case "enter":
		if r, ok := m.selectedRow(); ok && r.isNotice() {
			m.setMode(renderstate.ModeArchive)
		}
		return nil, false
	case "p", "e", "t", "d":
		m.act(msg.String())
		return nil, false
	}

	var cmd tea.Cmd
	prev := m.list.Index()
	m.list, cmd = m.list.Update(msg)
	m.skipHeaders(m.list.Index() < prev)
	return cmd, false
}

// act runs a thread mutation on the selected row and reconciles right away
// instead of waiting for the next poll.
func (m *appModel) act(key string) {
	r, ok := m.selectedRow()
	if !ok || r.isNotice() {
		return
	}
	id := string(r.cell.ID)
	var (
		err  error
		what string
	)
	switch key {
	case "p":
		pin := r.kind != renderstate.SectionPinned
		err = m.store.SetPinned(m.ctx, id, pin)
		what = map[bool]string{true: "pinned", false: "unpinned"}[pin]
	case "e":
		archive := r.kind != renderstate.SectionArchived
		err = m.store.SetArchived(m.ctx, id, archive)
		what = map[bool]string{true: "archived", false: "restored"}[archive]
	case "t":
		err = m.store.Touch(m.ctx, id, "")
		what = "touched"
	case "d":
		err = m.store.DeleteThread(m.ctx, id)
		what = "deleted"
	}
	m.after(err, what+" "+r.cell.Title)
}

func (m *appModel) after(err error, ok string) {
	if err != nil {
		m.err = err
		m.log.WithError(err).Warn("tui: action failed")
		return
	}
	m.err = nil
	m.status = ok
	m.pollChanges()
}

func (m *appModel) setMode(mode renderstate.Mode) {
	out, err := m.ctrl.SetMode(m.ctx, mode)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.last = out
	m.status = "showing " + mode.String()
	m.syncList()
	m.list.Select(0)
	m.skipHeaders(false)
}

func otherMode(mode renderstate.Mode) renderstate.Mode {
	if mode == renderstate.ModeArchive {
		return renderstate.ModeActive
	}
	return renderstate.ModeArchive
}

// pollChanges feeds new change log entries to the controller.
func (m *appModel) pollChanges() {
	batch, err := m.store.ChangesSince(m.ctx, m.cursor)
	if err != nil {
		m.err = err
		m.log.WithError(err).Warn("tui: poll failed")
		return
	}
	if batch.Empty() {
		return
	}
	m.cursor = batch.Cursor
	out, err := m.ctrl.Notify(m.ctx, batch.Identities())
	if err != nil {
		m.err = err
		return
	}
	m.last = out
	m.syncList()
}

// syncList rebuilds the visible rows from the widget and keeps the cursor on
// the same thread when it still exists.
func (m *appModel) syncList() {
	var keep renderstate.Identity
	if r, ok := m.selectedRow(); ok {
		keep = r.cell.ID
	}
	prev := m.list.Index()
	m.list.SetItems(rowsFrom(m.widget))
	selectByID(&m.list, keep, prev)
	m.skipHeaders(false)
}

func (m *appModel) selectedRow() (threadRow, bool) {
	r, ok := m.list.SelectedItem().(threadRow)
	return r, ok
}

// skipHeaders moves the cursor off a header row, preferring the direction
// of travel.
func (m *appModel) skipHeaders(up bool) {
	items := m.list.Items()
	start := m.list.Index()
	for _, dir := range []bool{up, !up} {
		for i := start; i >= 0 && i < len(items); {
			if _, header := items[i].(headerRow); !header {
				m.list.Select(i)
				return
			}
			if dir {
				i--
			} else {
				i++
			}
		}
	}
}

func (m *appModel) refreshPreview() {
	r, ok := m.selectedRow()
	if !ok || r.isNotice() {
		m.previewID, m.preview = "", ""
		return
	}
	w := m.previewWidth()
	if r.cell.ID == m.previewID && r.cell.Gen == m.previewGen && w == m.previewW {
		return
	}
	m.previewID, m.previewGen, m.previewW = r.cell.ID, r.cell.Gen, w
	t, err := m.store.Thread(m.ctx, string(r.cell.ID))
	if err != nil {
		m.preview = ""
		return
	}
	body := "# " + t.Title
	if strings.TrimSpace(t.Body) != "" {
		body += "\n\n" + t.Body
	}
	m.preview = renderMarkdown(body, w)
}

func (m *appModel) bodyHeight() int {
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	return h
}

func (m *appModel) listWidth() int {
	if m.width >= 90 {
		return m.width / 2
	}
	if m.width < 20 {
		return 20
	}
	return m.width
}

func (m *appModel) previewWidth() int {
	if m.width < 90 {
		return 0
	}
	return m.width - m.listWidth() - 2
}

func (m *appModel) resize() {
	m.list.SetSize(m.listWidth(), m.bodyHeight())
	m.input.Width = m.width - len(m.input.Prompt) - 2
}

func (m appModel) View() string {
	header := styleTitleBar().Render("threadlist") + "  " + m.modeLabel()

	var body string
	if m.view.banner != "" && len(m.list.Items()) == 0 {
		body = lipgloss.NewStyle().Width(m.listWidth()).Height(m.bodyHeight()).Render(styleMuted().Render(m.view.banner))
	} else {
		body = m.list.View()
		if m.view.banner != "" {
			body = styleMuted().Render(m.view.banner) + "\n" + body
		}
	}
	if pw := m.previewWidth(); pw > 0 {
		preview := lipgloss.NewStyle().Width(pw).Height(m.bodyHeight()).PaddingLeft(2).Render(m.preview)
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, preview)
	}

	var footer string
	switch {
	case m.adding:
		footer = m.input.View()
	case m.err != nil:
		footer = styleError().Render("error: " + m.err.Error())
	default:
		footer = styleMuted().Render(m.statusLine())
	}
	help := styleMuted().Render("n new  p pin  e archive  t touch  d delete  a " + otherMode(m.ctrl.Mode()).String() + "  r reload  q quit")
	return strings.Join([]string{header, body, footer, help}, "\n")
}

func (m appModel) savedState() *store.TUIState {
	st := &store.TUIState{Mode: m.ctrl.Mode().String()}
	if r, ok := m.selectedRow(); ok && !r.isNotice() {
		st.SelectedID = string(r.cell.ID)
	}
	return st
}

func (m appModel) modeLabel() string {
	c := m.view.counts
	sep := " " + glyphSeparator() + " "
	if m.ctrl.Mode() == renderstate.ModeArchive {
		return styleMuted().Render(fmt.Sprintf("archive%s%d threads", sep, c.Archived))
	}
	return styleMuted().Render(fmt.Sprintf("inbox%s%d pinned%s%d threads%s%d archived", sep, c.Pinned, sep, c.Regular, sep, c.Archived))
}

func (m appModel) statusLine() string {
	parts := []string{}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.last.Kind != "" {
		s := string(m.last.Kind)
		if m.last.Reason != "" {
			s += " (" + string(m.last.Reason) + ")"
		}
		parts = append(parts, fmt.Sprintf("%s in %s", s, m.last.Duration.Round(time.Microsecond)))
	}
	return strings.Join(parts, "  "+glyphBullet()+"  ")
}
