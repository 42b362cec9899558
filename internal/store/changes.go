package store

import (
	"context"

	"threadlist/internal/model"
	"threadlist/internal/renderstate"
)

// ChangeBatch is the result of polling the change log.
type ChangeBatch struct {
	Changes []model.Change
	// Cursor is the highest sequence number seen; pass it to the next call.
	Cursor int64
}

// Identities is the set of threads touched by the batch.
func (b ChangeBatch) Identities() renderstate.IdentitySet {
	set := renderstate.NewIdentitySet()
	for _, c := range b.Changes {
		set.Add(renderstate.Identity(c.ThreadID))
	}
	return set
}

func (b ChangeBatch) Empty() bool { return len(b.Changes) == 0 }

// ChangesSince returns every change with a sequence number above cursor, in
// order.
func (s *Store) ChangesSince(ctx context.Context, cursor int64) (ChangeBatch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, thread_id, kind, at_unixms FROM changes WHERE seq > ? ORDER BY seq ASC`, cursor)
	if err != nil {
		return ChangeBatch{}, err
	}
	defer rows.Close()

	out := ChangeBatch{Cursor: cursor}
	for rows.Next() {
		var (
			c    model.Change
			kind string
			atMs int64
		)
		if err := rows.Scan(&c.Seq, &c.ThreadID, &kind, &atMs); err != nil {
			return ChangeBatch{}, err
		}
		c.Kind = model.ChangeKind(kind)
		c.At = fromMs(atMs)
		out.Changes = append(out.Changes, c)
		if c.Seq > out.Cursor {
			out.Cursor = c.Seq
		}
	}
	if err := rows.Err(); err != nil {
		return ChangeBatch{}, err
	}
	return out, nil
}

// LatestSeq is the cursor a fresh reader starts from.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&seq)
	return seq, err
}
