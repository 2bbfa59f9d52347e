package state

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// GetCheckpoint returns the value stored under key and whether it exists.
func (s *Store) GetCheckpoint(ctx context.Context, key string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM checkpoints WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeError("get_checkpoint", key, err)
	}
	return value, true, nil
}

// SetCheckpoint upserts value under key.
func (s *Store) SetCheckpoint(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("set checkpoint: key is required")
	}
	ctx = ensureContext(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.timestamp(),
	)
	return storeError("set_checkpoint", key, err)
}

// Checkpoints returns every stored checkpoint ordered by key.
func (s *Store) Checkpoints(ctx context.Context) ([]Checkpoint, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, updated_at FROM checkpoints ORDER BY key")
	if err != nil {
		return nil, storeError("checkpoints", "", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var (
			cp      Checkpoint
			updated sql.NullString
		)
		if err := rows.Scan(&cp.Key, &cp.Value, &updated); err != nil {
			return nil, storeError("checkpoints", "", err)
		}
		cp.UpdatedAt = parseTime(updated)
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("checkpoints", "", err)
	}
	return out, nil
}
