package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps drafts in the service database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a draft store backed by db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts the snapshot for id.
func (s *SQLiteStore) Save(ctx context.Context, id string, snap Snapshot) error {
	data, err := json.Marshal(snap.Record)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, record_json, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET record_json = excluded.record_json, saved_at = excluded.saved_at`,
		id, string(data), snap.SavedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Load returns the snapshot for id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (Snapshot, error) {
	var data string
	var snap Snapshot

	err := s.db.QueryRowContext(ctx,
		"SELECT record_json, saved_at FROM drafts WHERE id = ?", id,
	).Scan(&data, &snap.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading draft: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &snap.Record); err != nil {
		return Snapshot{}, fmt.Errorf("decoding draft: %w", err)
	}
	return snap, nil
}

// Delete removes the draft for id. Deleting a missing draft is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

// Purge removes drafts saved before cutoff and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE saved_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}
	return n, nil
}
