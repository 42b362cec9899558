package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"threadlist/internal/model"
)

const threadColumns = `id, title, body, pinned, pin_rank, archived, created_at_unixms, updated_at_unixms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(r rowScanner) (model.Thread, error) {
	var (
		t                  model.Thread
		pinned, archived   int
		createdMs, updated int64
	)
	if err := r.Scan(&t.ID, &t.Title, &t.Body, &pinned, &t.PinRank, &archived, &createdMs, &updated); err != nil {
		return model.Thread{}, err
	}
	t.Pinned = pinned != 0
	t.Archived = archived != 0
	t.CreatedAt = fromMs(createdMs)
	t.UpdatedAt = fromMs(updated)
	return t, nil
}

// write runs fn in a transaction and appends one change row for id.
func (s *Store) write(ctx context.Context, id string, kind model.ChangeKind, fn func(tx *sql.Tx, nowMs int64) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	nowMs := s.nowMs()
	if err := fn(tx, nowMs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO changes(thread_id, kind, at_unixms) VALUES(?, ?, ?)`, id, string(kind), nowMs); err != nil {
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errThreadNotFound(id)
	}
	return nil
}

func (s *Store) AddThread(ctx context.Context, title, body string) (model.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Thread{}, errors.New("store: empty title")
	}
	id := newThreadID()
	err := s.write(ctx, id, model.ChangeAdd, func(tx *sql.Tx, nowMs int64) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO threads(id, title, body, created_at_unixms, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			id, title, body, nowMs, nowMs)
		return err
	})
	if err != nil {
		return model.Thread{}, err
	}
	return s.Thread(ctx, id)
}

// SetPinned pins a thread after the last pinned one, or unpins it. Pinning an
// already pinned thread keeps its rank.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	kind := model.ChangeUnpin
	if pinned {
		kind = model.ChangePin
	}
	return s.write(ctx, id, kind, func(tx *sql.Tx, nowMs int64) error {
		if !pinned {
			res, err := tx.ExecContext(ctx, `UPDATE threads SET pinned = 0, pin_rank = '' WHERE id = ?`, id)
			if err != nil {
				return err
			}
			return requireRow(res, id)
		}

		var already int
		if err := tx.QueryRowContext(ctx, `SELECT pinned FROM threads WHERE id = ?`, id).Scan(&already); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errThreadNotFound(id)
			}
			return err
		}
		if already != 0 {
			return nil
		}
		var last string
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(pin_rank), '') FROM threads WHERE pinned = 1`).Scan(&last); err != nil {
			return err
		}
		rank, err := RankAfter(last)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE threads SET pinned = 1, pin_rank = ? WHERE id = ?`, rank, id)
		return err
	})
}

// MovePinned moves a pinned thread directly before another pinned thread, or
// to the end when before is empty.
func (s *Store) MovePinned(ctx context.Context, id, before string) error {
	return s.write(ctx, id, model.ChangePin, func(tx *sql.Tx, nowMs int64) error {
		ranks, err := pinRanks(ctx, tx)
		if err != nil {
			return err
		}
		if _, ok := ranks[id]; !ok {
			return errThreadNotFound(id)
		}
		if before == id {
			return nil
		}

		var lower, upper string
		if before == "" {
			for other, r := range ranks {
				if other != id && r > lower {
					lower = r
				}
			}
		} else {
			var ok bool
			upper, ok = ranks[before]
			if !ok {
				return errThreadNotFound(before)
			}
			for other, r := range ranks {
				if other != id && other != before && r < upper && r > lower {
					lower = r
				}
			}
		}
		rank, err := RankBetween(lower, upper)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE threads SET pin_rank = ? WHERE id = ?`, rank, id)
		return err
	})
}

func pinRanks(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, pin_rank FROM threads WHERE pinned = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var id, rank string
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		out[id] = rank
	}
	return out, rows.Err()
}

// SetArchived archives or restores a thread. Archiving keeps the pin so an
// unarchived thread returns to its pinned slot.
func (s *Store) SetArchived(ctx context.Context, id string, archived bool) error {
	kind := model.ChangeUnarchive
	if archived {
		kind = model.ChangeArchive
	}
	return s.write(ctx, id, kind, func(tx *sql.Tx, nowMs int64) error {
		res, err := tx.ExecContext(ctx, `UPDATE threads SET archived = ? WHERE id = ?`, boolToInt(archived), id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

// Touch records new activity on a thread: the body is replaced when non-empty
// and the thread moves to the top of its section.
func (s *Store) Touch(ctx context.Context, id, body string) error {
	return s.write(ctx, id, model.ChangeTouch, func(tx *sql.Tx, nowMs int64) error {
		var (
			res sql.Result
			err error
		)
		if body != "" {
			res, err = tx.ExecContext(ctx, `UPDATE threads SET body = ?, updated_at_unixms = ? WHERE id = ?`, body, nowMs, id)
		} else {
			res, err = tx.ExecContext(ctx, `UPDATE threads SET updated_at_unixms = ? WHERE id = ?`, nowMs, id)
		}
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

// Rename changes the title without counting as activity.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("store: empty title")
	}
	return s.write(ctx, id, model.ChangeTouch, func(tx *sql.Tx, nowMs int64) error {
		res, err := tx.ExecContext(ctx, `UPDATE threads SET title = ? WHERE id = ?`, title, id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

func (s *Store) DeleteThread(ctx context.Context, id string) error {
	return s.write(ctx, id, model.ChangeDelete, func(tx *sql.Tx, nowMs int64) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

func (s *Store) Thread(ctx context.Context, id string) (model.Thread, error) {
	t, err := scanThread(s.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Thread{}, errThreadNotFound(id)
	}
	return t, err
}

// Threads returns the threads among ids that still exist, keyed by id.
func (s *Store) Threads(ctx context.Context, ids []string) (map[string]model.Thread, error) {
	out := make(map[string]model.Thread, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + threadColumns + ` FROM threads WHERE id IN (?` + strings.Repeat(`, ?`, len(ids)-1) + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out[t.ID] = t
	}
	return out, rows.Err()
}

// ResolveID accepts a full thread id or a unique suffix of one.
func (s *Store) ResolveID(ctx context.Context, ref string) (string, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return "", errThreadNotFound(ref)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM threads WHERE id = ? OR id LIKE ? LIMIT 2`, ref, "%"+ref)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(found) {
	case 0:
		return "", errThreadNotFound(ref)
	case 1:
		return found[0], nil
	default:
		for _, id := range found {
			if id == ref {
				return id, nil
			}
		}
		return "", errors.New("ambiguous thread id: " + ref)
	}
}

func (s *Store) Counts(ctx context.Context) (model.Counts, error) {
	var c model.Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN archived = 0 AND pinned = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN archived = 0 AND pinned = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN archived = 1 THEN 1 ELSE 0 END), 0)
		FROM threads`).Scan(&c.Pinned, &c.Regular, &c.Archived)
	return c, err
}
