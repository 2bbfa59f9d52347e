package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"harvester/internal/crawl"
	"harvester/internal/logging"
)

const maxNameLength = 180

var unsafeChars = regexp.MustCompile(`[^0-9A-Za-z._-]+`)

// Meta is the JSON document written for every failure.
type Meta struct {
	ItemID      string `json:"notice_id"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Page        int    `json:"page,omitempty"`
	Status      int    `json:"http_status,omitempty"`
	Error       string `json:"error"`
	RunID       string `json:"run_id,omitempty"`
	CollectedAt string `json:"collected_at_utc"`
	Snapshot    string `json:"snapshot,omitempty"`
}

// Recorder writes failure artifacts into one directory.
type Recorder struct {
	dir    string
	runID  string
	logger *slog.Logger
	now    func() time.Time
}

var _ crawl.EvidenceRecorder = (*Recorder)(nil)

// NewRecorder returns a recorder writing into dir.
func NewRecorder(dir, runID string, logger *slog.Logger) *Recorder {
	return &Recorder{
		dir:    dir,
		runID:  runID,
		logger: logging.NewComponentLogger(logger, "evidence"),
		now:    time.Now,
	}
}

// Record saves metadata for ref and its failure cause.
func (r *Recorder) Record(ctx context.Context, ref crawl.ItemRef, cause error) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create evidence directory: %w", err)
	}
	now := r.now().UTC()
	base := fmt.Sprintf("%s_%s_%s", SafeFilename(ref.ID), now.Format("20060102T150405Z"), uuid.NewString()[:8])

	meta := Meta{
		ItemID:      ref.ID,
		Title:       ref.Title,
		URL:         ref.DetailURL,
		Page:        ref.Page,
		RunID:       r.runID,
		CollectedAt: now.Format(time.RFC3339),
	}
	if cause != nil {
		meta.Error = cause.Error()
	}

	var detailErr *crawl.DetailError
	if errors.As(cause, &detailErr) {
		meta.Status = detailErr.Status
		if len(detailErr.Snapshot) > 0 {
			snapshot := base + ".html"
			if err := os.WriteFile(filepath.Join(r.dir, snapshot), detailErr.Snapshot, 0o644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			meta.Snapshot = snapshot
		}
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode evidence: %w", err)
	}
	path := filepath.Join(r.dir, base+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write evidence: %w", err)
	}
	logging.WithContext(ctx, r.logger).Debug("evidence saved",
		logging.String(logging.FieldItemID, ref.ID),
		logging.String("path", path),
	)
	return nil
}

// SafeFilename replaces runs of characters outside [0-9A-Za-z._-] with an
// underscore and truncates the result.
func SafeFilename(value string) string {
	cleaned := unsafeChars.ReplaceAllString(value, "_")
	if cleaned == "" {
		cleaned = "item"
	}
	if len(cleaned) > maxNameLength {
		cleaned = cleaned[:maxNameLength]
	}
	return cleaned
}
