package state

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the processing state of a harvested item.
type Status string

const (
	// StatusSeen marks an item observed in a listing but not yet settled.
	StatusSeen Status = "seen"
	// StatusOK marks an item whose detail was fetched and written.
	StatusOK Status = "ok"
	// StatusError marks an item whose detail fetch failed; it is retried on a later run.
	StatusError Status = "error"
)

var allStatuses = []Status{StatusSeen, StatusOK, StatusError}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the closed set of statuses in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied value into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return status, nil
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the status settles an item for the current run.
func (s Status) Terminal() bool {
	return s == StatusOK || s == StatusError
}

// Item is a processed-item record.
type Item struct {
	ID        string
	Status    Status
	DetailRef string
	// Ref is the JSON listing snapshot captured when the id was first seen.
	Ref       []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checkpoint is a named progress marker.
type Checkpoint struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthSummary describes aggregated item counts per status.
type HealthSummary struct {
	Total  int
	Seen   int
	OK     int
	Failed int
}

// DatabaseHealth captures diagnostic information about the state database.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TablesPresent    []string `json:"tables_present,omitempty"`
	MissingTables    []string `json:"missing_tables,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error,omitempty"`
}
