package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threadlist/internal/listview"
	"threadlist/internal/model"
	"threadlist/internal/renderstate"
	"threadlist/internal/store"
)

// newCellProvider builds list cells from the store. A cell is only built when
// the row is inserted or reloaded, so a thread that changes without being
// reloaded keeps showing its old content.
func newCellProvider(ctx context.Context, s *store.Store, now func() time.Time) listview.CellProvider {
	return func(id renderstate.Identity) listview.Cell {
		if id == renderstate.ArchivedNoticeID {
			n := 0
			if c, err := s.Counts(ctx); err == nil {
				n = c.Archived
			}
			return listview.Cell{Title: fmt.Sprintf("Archived threads (%d)", n), Badge: glyphArchive()}
		}
		t, err := s.Thread(ctx, string(id))
		if err != nil {
			return listview.Cell{Title: string(id), Detail: "unavailable"}
		}
		return threadCell(t, now())
	}
}

func threadCell(t model.Thread, now time.Time) listview.Cell {
	c := listview.Cell{
		Title:  t.Title,
		Detail: relativeTime(now, t.UpdatedAt),
	}
	if snippet := firstLine(t.Body); snippet != "" {
		c.Detail = snippet + " " + glyphSeparator() + " " + c.Detail
	}
	if t.Pinned && !t.Archived {
		c.Badge = glyphPin()
	}
	return c
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimLeft(s, "#>*- ")
}

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// viewState is everything around the list that depends on the current render
// state. The reconcile controller refreshes it once per pass.
type viewState struct {
	ctx   context.Context
	store *store.Store

	mode     renderstate.Mode
	rows     int
	counts   model.Counts
	banner   string
	updates  int
	countErr error
}

func (v *viewState) UpdateViewState(s renderstate.State) {
	v.updates++
	v.mode = s.Mode()
	v.rows = s.RowCount()
	v.counts, v.countErr = v.store.Counts(v.ctx)
	v.banner = emptyBanner(s)
}

func emptyBanner(s renderstate.State) string {
	if s.Mode() == renderstate.ModeArchive {
		if s.IsEmpty() {
			return "No archived threads."
		}
		return ""
	}
	threads := 0
	for _, sec := range s.Sections {
		if sec.Kind == renderstate.SectionPinned || sec.Kind == renderstate.SectionRegular {
			threads += len(sec.Items)
		}
	}
	switch {
	case threads > 0:
		return ""
	case s.HasSection(renderstate.SectionArchivedNotice):
		return "Inbox zero. Archived threads are one key away."
	default:
		return "No threads yet. Press n to start one."
	}
}
