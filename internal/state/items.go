package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const itemColumns = "id, status, detail_ref, ref, created_at, updated_at"

// IsProcessed reports whether id has a record with status ok.
func (s *Store) IsProcessed(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM processed WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError("is_processed", id, err)
	}
	return Status(status) == StatusOK, nil
}

// MarkSeen records id as seen when no record exists yet and reports whether one
// was created. Existing records are left untouched, so a settled item is never
// downgraded. ref is the listing snapshot kept for later retries and may be nil.
func (s *Store) MarkSeen(ctx context.Context, id string, ref []byte) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, errors.New("mark seen: id is required")
	}
	ctx = ensureContext(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processed (id, status, detail_ref, ref, created_at, updated_at)
		 VALUES (?, ?, NULL, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, string(StatusSeen), nullableBytes(ref), now, now,
	)
	if err != nil {
		return false, storeError("mark_seen", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeError("mark_seen", id, err)
	}
	return affected > 0, nil
}

// UpsertProcessed settles id with status ok or error. Status, detail reference,
// and update time are overwritten unconditionally; the record is created when
// absent. An empty detailRef clears the stored reference.
func (s *Store) UpsertProcessed(ctx context.Context, id string, status Status, detailRef string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("upsert processed: id is required")
	}
	if !status.Terminal() {
		return fmt.Errorf("upsert processed %q: %w: %q (want ok or error)", id, ErrInvalidStatus, status)
	}
	ctx = ensureContext(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed (id, status, detail_ref, ref, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     status = excluded.status,
		     detail_ref = excluded.detail_ref,
		     updated_at = excluded.updated_at`,
		id, string(status), nullableString(detailRef), now, now,
	)
	return storeError("upsert_processed", id, err)
}

// Get returns the record for id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM processed WHERE id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", id, err)
	}
	return item, nil
}

// List returns records filtered by status (all when none given), oldest update first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + itemColumns + " FROM processed"
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			if !status.Valid() {
				return nil, fmt.Errorf("list: %w: %q", ErrInvalidStatus, status)
			}
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY updated_at, id"
	return s.queryItems(ctx, "list", query, args...)
}

// Pending returns unsettled or failed records that carry a listing snapshot,
// oldest first. These are the candidates for a retry pass.
func (s *Store) Pending(ctx context.Context) ([]*Item, error) {
	ctx = ensureContext(ctx)
	return s.queryItems(ctx, "pending",
		"SELECT "+itemColumns+" FROM processed WHERE status IN (?, ?) AND ref IS NOT NULL ORDER BY updated_at, id",
		string(StatusSeen), string(StatusError),
	)
}

func (s *Store) queryItems(ctx context.Context, op, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(op, "", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeError(op, "", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, "", err)
	}
	return items, nil
}

// Stats returns record counts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM processed GROUP BY status")
	if err != nil {
		return nil, storeError("stats", "", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storeError("stats", "", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("stats", "", err)
	}
	return stats, nil
}

// Health aggregates counts into a summary for status displays.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Seen:   stats[StatusSeen],
		OK:     stats[StatusOK],
		Failed: stats[StatusError],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id         string
		statusStr  string
		detailRef  sql.NullString
		ref        sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &statusStr, &detailRef, &ref, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	item := &Item{
		ID:        id,
		Status:    Status(statusStr),
		DetailRef: detailRef.String,
		CreatedAt: parseTime(createdRaw),
		UpdatedAt: parseTime(updatedRaw),
	}
	if ref.Valid && ref.String != "" {
		item.Ref = []byte(ref.String)
	}
	return item, nil
}
