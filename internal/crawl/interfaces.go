package crawl

import (
	"context"

	"harvester/internal/state"
)

// ListSource returns the ordered items of one listing page. An empty slice
// means the source has no more pages.
type ListSource interface {
	FetchPage(ctx context.Context, page int) ([]ItemRef, error)
}

// DetailFetcher fetches and extracts one item's detail page.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, ref ItemRef) DetailResult
}

// Sink appends a record to a named output stream.
type Sink interface {
	Append(ctx context.Context, stream string, record any) error
}

// EvidenceRecorder captures diagnostic artifacts for a failed item.
type EvidenceRecorder interface {
	Record(ctx context.Context, ref ItemRef, cause error) error
}

// Store is the persistence the orchestrator depends on. *state.Store satisfies it.
type Store interface {
	IsProcessed(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, id string, ref []byte) (bool, error)
	UpsertProcessed(ctx context.Context, id string, status state.Status, detailRef string) error
	GetCheckpoint(ctx context.Context, key string) (string, bool, error)
	SetCheckpoint(ctx context.Context, key, value string) error
	Pending(ctx context.Context) ([]*state.Item, error)
}

var _ Store = (*state.Store)(nil)
