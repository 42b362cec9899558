package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"threadlist/internal/renderstate"
)

// Snapshot is a render state saved together with the change log position it
// was read at. `threadlist state --diff` compares against it.
type Snapshot struct {
	Seq   int64             `json:"seq"`
	State renderstate.State `json:"state"`
}

func snapshotKey(mode renderstate.Mode) string { return "snapshot." + mode.String() }

// ReadSnapshot reads the change log position, then the render state for mode.
func (s *Store) ReadSnapshot(ctx context.Context, mode renderstate.Mode) (Snapshot, error) {
	seq, err := s.LatestSeq(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	st, err := s.ReadRenderState(ctx, mode)
	if err != nil {
		return Snapshot{}, err
	}
	// A write landing between the two reads shows up again in the next diff.
	return Snapshot{Seq: seq, State: st}, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO meta(k, v) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		snapshotKey(snap.State.Mode()), string(b))
	return err
}

// LoadSnapshot returns the last saved snapshot for mode. ok is false when
// none was saved.
func (s *Store) LoadSnapshot(ctx context.Context, mode renderstate.Mode) (snap Snapshot, ok bool, err error) {
	var v string
	err = s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, snapshotKey(mode)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if err := json.Unmarshal([]byte(v), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: decode %s: %w", snapshotKey(mode), err)
	}
	return snap, true, nil
}
