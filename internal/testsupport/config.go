package testsupport

import (
	"path/filepath"
	"testing"

	"harvester/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ErrorsDir = filepath.Join(base, "data", "errors")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Source.ListURL = "http://127.0.0.1:0/list?page={page}"
	cfgVal.Source.RequestsPerSecond = 0
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithListURL points the source at a listing URL template, typically an httptest server.
func WithListURL(template string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Source.ListURL = template
	}
}

// WithColumns sets the listing column names and the title column.
func WithColumns(title string, columns ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Source.Columns = columns
		b.cfg.Source.TitleColumn = title
	}
}

// WithCrawl mutates the crawl section of the test config.
func WithCrawl(fn func(*config.Crawl)) ConfigOption {
	return func(b *configBuilder) {
		fn(&b.cfg.Crawl)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
