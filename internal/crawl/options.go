package crawl

import (
	"log/slog"
	"time"
)

const (
	// DefaultCheckpointKey names the listing page checkpoint.
	DefaultCheckpointKey = "list.page"
	// StreamRaw receives one ListingRecord per item seen.
	StreamRaw = "raw"
	// StreamNormalized receives one NoticeRecord per item settled ok.
	StreamNormalized = "normalized"
)

// RunConfig bounds and shapes one orchestrator run. Zero values select the
// documented defaults.
type RunConfig struct {
	// MaxPages is the highest page index visited; 0 means no bound.
	MaxPages int
	// MaxItems caps the items collected per run; 0 means no bound. It is
	// checked between pages, so the page that crosses it still settles.
	MaxItems int
	// Keywords keeps only items whose title or raw text contains one of them.
	Keywords []string
	// ListOnly records listings without detail work or the retry pass.
	ListOnly bool
	// StartPage is the first page when no checkpoint exists. Default 1.
	StartPage int
	// CheckpointKey defaults to DefaultCheckpointKey.
	CheckpointKey string
	// RawStream and NormalizedStream default to StreamRaw and StreamNormalized.
	RawStream        string
	NormalizedStream string
	// DetailConcurrency bounds in-flight detail fetches per page. Default 1.
	DetailConcurrency int
	// SkipRetry disables the retry pass over items left unsettled by earlier runs.
	SkipRetry bool
	// RunID is stamped into every output record.
	RunID string
}

func (c RunConfig) withDefaults() RunConfig {
	if c.StartPage <= 0 {
		c.StartPage = 1
	}
	if c.CheckpointKey == "" {
		c.CheckpointKey = DefaultCheckpointKey
	}
	if c.RawStream == "" {
		c.RawStream = StreamRaw
	}
	if c.NormalizedStream == "" {
		c.NormalizedStream = StreamNormalized
	}
	if c.DetailConcurrency <= 0 {
		c.DetailConcurrency = 1
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	if c.MaxItems < 0 {
		c.MaxItems = 0
	}
	return c
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger; a nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithEvidence records artifacts for failed items.
func WithEvidence(recorder EvidenceRecorder) Option {
	return func(o *Orchestrator) {
		o.evidence = recorder
	}
}

// WithClock overrides the time source used for collected_at stamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSite sets the site name stamped into output records.
func WithSite(site string) Option {
	return func(o *Orchestrator) {
		o.site = site
	}
}
