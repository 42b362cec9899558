package listview

import (
	"errors"
	"testing"

	"threadlist/internal/renderstate"
)

func p(s, r int) renderstate.Position { return renderstate.Position{Section: s, Row: r} }

func newLoaded(ids ...renderstate.Identity) *List {
	l := New(nil)
	l.ReloadAll(renderstate.New(renderstate.ModeActive,
		renderstate.NewSection(renderstate.SectionPinned),
		renderstate.NewSection(renderstate.SectionRegular, ids...),
	))
	return l
}

func TestReloadAll_ReplacesContent(t *testing.T) {
	l := newLoaded("a", "b")
	s := renderstate.New(renderstate.ModeArchive, renderstate.NewSection(renderstate.SectionArchived, "x"))
	l.ReloadAll(s)
	if !l.Matches(s) {
		t.Fatalf("expected content to match, got %v", l.Content())
	}
	if l.LastReload().IsZero() {
		t.Fatalf("expected last reload to be recorded")
	}

	// Reloading twice is indistinguishable from reloading once.
	before := l.Content()
	l.ReloadAll(s)
	after := l.Content()
	if len(before) != len(after) || len(after[0]) != 1 || after[0][0] != "x" {
		t.Fatalf("unexpected content after second reload: %v", after)
	}
}

func TestBatch_UsesPreAndPostCoordinates(t *testing.T) {
	l := newLoaded("a", "b", "c", "d")

	if err := l.BeginBatch(); err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	// Remove a (0) and c (2) by their original rows, insert x at final row 1,
	// and pin d by its original row.
	for _, err := range []error{
		l.DeleteRow(p(1, 0)),
		l.DeleteRow(p(1, 2)),
		l.MoveRow(p(1, 3), p(0, 0)),
		l.InsertRow(p(1, 1), "x"),
	} {
		if err != nil {
			t.Fatalf("primitive: %v", err)
		}
	}
	if got := l.Flatten(); len(got) != 4 {
		t.Fatalf("content must not change before EndBatch: %v", got)
	}
	if err := l.EndBatch(); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	got := l.Content()
	if len(got[0]) != 1 || got[0][0] != "d" {
		t.Fatalf("pinned = %v", got[0])
	}
	if len(got[1]) != 2 || got[1][0] != "b" || got[1][1] != "x" {
		t.Fatalf("regular = %v", got[1])
	}
}

func TestBatch_Rejections(t *testing.T) {
	cases := []struct {
		name string
		run  func(l *List) error
	}{
		{"delete out of range", func(l *List) error { return l.DeleteRow(p(1, 9)) }},
		{"delete twice", func(l *List) error {
			_ = l.DeleteRow(p(1, 0))
			return l.DeleteRow(p(1, 0))
		}},
		{"reload deleted row", func(l *List) error {
			_ = l.DeleteRow(p(1, 0))
			return l.ReloadRow(p(1, 0))
		}},
		{"delete reloaded row", func(l *List) error {
			_ = l.ReloadRow(p(1, 0))
			return l.DeleteRow(p(1, 0))
		}},
		{"insert into missing section", func(l *List) error { return l.InsertRow(p(5, 0), "x") }},
		{"two inserts at one destination", func(l *List) error {
			_ = l.InsertRow(p(1, 0), "x")
			return l.InsertRow(p(1, 0), "y")
		}},
		{"insert empty identity", func(l *List) error { return l.InsertRow(p(1, 0), "") }},
		{"insert beyond end", func(l *List) error {
			if err := l.InsertRow(p(1, 7), "x"); err != nil {
				return err
			}
			return l.EndBatch()
		}},
		{"insert duplicate identity", func(l *List) error {
			if err := l.InsertRow(p(1, 0), "b"); err != nil {
				return err
			}
			return l.EndBatch()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLoaded("a", "b")
			if err := l.BeginBatch(); err != nil {
				t.Fatalf("BeginBatch: %v", err)
			}
			err := tc.run(l)
			var rej *RejectedError
			if !errors.As(err, &rej) {
				t.Fatalf("expected RejectedError, got %v", err)
			}
			l.AbortBatch()
			if got := l.Flatten(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
				t.Fatalf("content changed after rejection: %v", got)
			}
		})
	}
}

func TestBatch_RequiresBegin(t *testing.T) {
	l := newLoaded("a")
	if err := l.DeleteRow(p(1, 0)); !errors.Is(err, ErrNoBatch) {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
	if err := l.EndBatch(); !errors.Is(err, ErrNoBatch) {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
	if err := l.BeginBatch(); err != nil {
		t.Fatalf("BeginBatch: %v", err)
	}
	if err := l.BeginBatch(); err == nil {
		t.Fatalf("expected nested batch to fail")
	}
}

func TestObserver_SeesCommittedOpsOnly(t *testing.T) {
	l := newLoaded("a", "b")
	var ops []OpKind
	l.SetObserver(func(op Op) { ops = append(ops, op.Kind) })

	_ = l.BeginBatch()
	_ = l.DeleteRow(p(1, 0))
	l.AbortBatch()

	_ = l.BeginBatch()
	_ = l.ReloadRow(p(1, 1))
	if err := l.EndBatch(); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	want := []OpKind{OpAbort, OpReload, OpCommit}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
}

func TestReloadRow_RebuildsFromProvider(t *testing.T) {
	title := "old"
	l := New(func(id renderstate.Identity) Cell { return Cell{Title: title} })
	l.ReloadAll(renderstate.New(renderstate.ModeActive, renderstate.NewSection(renderstate.SectionRegular, "a", "b")))

	title = "new"
	_ = l.BeginBatch()
	_ = l.ReloadRow(p(0, 1))
	if err := l.EndBatch(); err != nil {
		t.Fatalf("EndBatch: %v", err)
	}

	a, _ := l.Cell(p(0, 0))
	b, _ := l.Cell(p(0, 1))
	if a.Title != "old" || b.Title != "new" {
		t.Fatalf("titles = %q, %q", a.Title, b.Title)
	}
	if b.Gen != l.Generation() || a.Gen == l.Generation() {
		t.Fatalf("unexpected generations a=%d b=%d list=%d", a.Gen, b.Gen, l.Generation())
	}
}
