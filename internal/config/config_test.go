package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"harvester/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfigRequiresListURL(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected validation error without source.list_url")
	}
	if !strings.Contains(err.Error(), "source.list_url") {
		t.Fatalf("expected list_url error, got %v", err)
	}
}

func TestLoadExpandsPathsAndAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, tempHome, `
[source]
list_url = "https://example.test/list?page={page}"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	wantState := filepath.Join(tempHome, ".local", "share", "harvester", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.StateDBPath() != filepath.Join(wantState, "state.sqlite") {
		t.Fatalf("unexpected db path: %q", cfg.StateDBPath())
	}
	if cfg.State.CheckpointKey != "list.page" {
		t.Fatalf("unexpected checkpoint key: %q", cfg.State.CheckpointKey)
	}
	if cfg.Crawl.Mode != config.ModeOnce {
		t.Fatalf("unexpected mode: %q", cfg.Crawl.Mode)
	}
	if cfg.Crawl.MaxPages != config.Default().Crawl.MaxPages {
		t.Fatalf("unexpected max pages: %d", cfg.Crawl.MaxPages)
	}
	if !cfg.Crawl.RetryPending {
		t.Fatal("expected retry_pending enabled by default")
	}
	if cfg.Crawl.DetailConcurrency != 1 {
		t.Fatalf("expected sequential detail work by default, got %d", cfg.Crawl.DetailConcurrency)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadNormalizesKeywordsAndUserAgentEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HARVESTER_USER_AGENT", "  custom-agent/1.0 ")
	path := writeConfig(t, dir, `
[source]
list_url = "https://example.test/list?page={page}"

[crawl]
mode = " INTERVAL "
interval_minutes = 5
keywords = [" 용역 ", "", "용역", "software"]
detail_concurrency = 0
`)

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Crawl.Mode != config.ModeInterval {
		t.Fatalf("expected interval mode, got %q", cfg.Crawl.Mode)
	}
	if got := strings.Join(cfg.Crawl.Keywords, ","); got != "용역,software" {
		t.Fatalf("unexpected keywords: %q", got)
	}
	if cfg.Crawl.DetailConcurrency != 1 {
		t.Fatalf("expected concurrency clamp to 1, got %d", cfg.Crawl.DetailConcurrency)
	}
	if cfg.Source.UserAgent != "custom-agent/1.0" {
		t.Fatalf("expected env user agent, got %q", cfg.Source.UserAgent)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing placeholder", func(c *config.Config) { c.Source.ListURL = "https://example.test/list" }, "{page}"},
		{"bad mode", func(c *config.Config) { c.Crawl.Mode = "forever" }, "crawl.mode"},
		{"interval without minutes", func(c *config.Config) {
			c.Crawl.Mode = config.ModeInterval
			c.Crawl.IntervalMinutes = 0
		}, "crawl.interval_minutes"},
		{"negative max pages", func(c *config.Config) { c.Crawl.MaxPages = -1 }, "crawl.max_pages"},
		{"negative max items", func(c *config.Config) { c.Crawl.MaxItems = -3 }, "crawl.max_items"},
		{"unknown title column", func(c *config.Config) {
			c.Source.Columns = []string{"a", "b"}
			c.Source.TitleColumn = "c"
		}, "source.title_column"},
		{"negative rps", func(c *config.Config) { c.Source.RequestsPerSecond = -1 }, "requests_per_second"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Source.ListURL = "https://example.test/list?page={page}"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestOutputPathsResolveAgainstDataDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/var/lib/harvester"
	if got := cfg.RawOutputPath("20250101"); got != "/var/lib/harvester/raw/list_20250101.jsonl" {
		t.Fatalf("unexpected raw path: %q", got)
	}
	cfg.Output.NormalizedFile = "/tmp/out.jsonl"
	if got := cfg.NormalizedOutputPath("20250101"); got != "/tmp/out.jsonl" {
		t.Fatalf("unexpected normalized path: %q", got)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Source.TitleColumn == "" || len(cfg.Source.Columns) == 0 {
		t.Fatalf("expected sample columns, got %#v", cfg.Source)
	}

	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(encoded, "list_url") {
		t.Fatalf("expected encoded config to include list_url, got %q", encoded)
	}
}
