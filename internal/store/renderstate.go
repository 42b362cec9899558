package store

import (
	"context"
	"database/sql"
	"fmt"

	"threadlist/internal/renderstate"
)

// ReadRenderState builds the list content for mode from a single read
// transaction, so concurrent writers never produce a torn state.
//
// The active view always has a pinned and a regular section, followed by
// the archived-notice section while at least one thread is archived. The
// archive view has a single archived section.
func (s *Store) ReadRenderState(ctx context.Context, mode renderstate.Mode) (renderstate.State, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return renderstate.State{}, err
	}
	defer func() { _ = tx.Rollback() }()

	switch mode {
	case renderstate.ModeArchive:
		archived, err := readIDs(ctx, tx, `SELECT id FROM threads WHERE archived = 1 ORDER BY updated_at_unixms DESC, id DESC`)
		if err != nil {
			return renderstate.State{}, err
		}
		return renderstate.New(mode, renderstate.NewSection(renderstate.SectionArchived, archived...)), nil

	case renderstate.ModeActive:
		pinned, err := readIDs(ctx, tx, `SELECT id FROM threads WHERE archived = 0 AND pinned = 1 ORDER BY pin_rank ASC, id ASC`)
		if err != nil {
			return renderstate.State{}, err
		}
		regular, err := readIDs(ctx, tx, `SELECT id FROM threads WHERE archived = 0 AND pinned = 0 ORDER BY updated_at_unixms DESC, id DESC`)
		if err != nil {
			return renderstate.State{}, err
		}
		var archivedCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads WHERE archived = 1`).Scan(&archivedCount); err != nil {
			return renderstate.State{}, err
		}

		sections := []renderstate.Section{
			renderstate.NewSection(renderstate.SectionPinned, pinned...),
			renderstate.NewSection(renderstate.SectionRegular, regular...),
		}
		if archivedCount > 0 {
			sections = append(sections, renderstate.NewSection(renderstate.SectionArchivedNotice, renderstate.ArchivedNoticeID))
		}
		return renderstate.New(mode, sections...), nil

	default:
		return renderstate.State{}, fmt.Errorf("store: unknown mode %v", mode)
	}
}

func readIDs(ctx context.Context, tx *sql.Tx, query string) ([]renderstate.Identity, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []renderstate.Identity
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, renderstate.Identity(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
