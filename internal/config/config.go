package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	StateDir  string `toml:"state_dir"`
	ErrorsDir string `toml:"errors_dir"`
	LogDir    string `toml:"log_dir"`
}

// State contains persistence settings for the crawl state database.
type State struct {
	DBName        string `toml:"db_name"`
	CheckpointKey string `toml:"checkpoint_key"`
}

// Source describes the listing site and how to read its pages.
type Source struct {
	Site                string   `toml:"site"`
	BaseURL             string   `toml:"base_url"`
	ListURL             string   `toml:"list_url"`
	RowSelector         string   `toml:"row_selector"`
	LinkSelector        string   `toml:"link_selector"`
	CellSelector        string   `toml:"cell_selector"`
	Columns             []string `toml:"columns"`
	TitleColumn         string   `toml:"title_column"`
	OrgColumn           string   `toml:"org_column"`
	PostedColumn        string   `toml:"posted_column"`
	DeadlineColumn      string   `toml:"deadline_column"`
	DetailReadySelector string   `toml:"detail_ready_selector"`
	UserAgent           string   `toml:"user_agent"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
	RequestsPerSecond   float64  `toml:"requests_per_second"`
}

// Crawl contains run parameters for the orchestrator.
//
// Mode is "once" or "interval". MaxPages is the highest page index visited and
// MaxItems a soft per-run cap checked at page boundaries; 0 disables either bound.
type Crawl struct {
	Mode              string   `toml:"mode"`
	IntervalMinutes   int      `toml:"interval_minutes"`
	MaxPages          int      `toml:"max_pages"`
	MaxItems          int      `toml:"max_items"`
	Keywords          []string `toml:"keywords"`
	ListOnly          bool     `toml:"list_only"`
	StartPage         int      `toml:"start_page"`
	DetailConcurrency int      `toml:"detail_concurrency"`
	RetryPending      bool     `toml:"retry_pending"`
}

// Output contains the JSONL output file locations. Relative paths resolve
// against paths.data_dir; "{date}" expands to the UTC run date (YYYYMMDD).
type Output struct {
	RawFile        string `toml:"raw_file"`
	NormalizedFile string `toml:"normalized_file"`
}

// Preflight contains environment checks run before crawling.
type Preflight struct {
	OnRun      bool `toml:"on_run"`
	MinFreeMiB int  `toml:"min_free_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the harvester.
//
// Configuration sections by subsystem:
//   - Paths: data, state, evidence and log directories
//   - State: state database file name and pagination checkpoint key
//   - Source: listing URL template, selectors, and HTTP client settings
//   - Crawl: run mode and orchestrator limits
//   - Output: raw and normalized JSONL files
//   - Preflight: environment checks
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	State     State     `toml:"state"`
	Source    Source    `toml:"source"`
	Crawl     Crawl     `toml:"crawl"`
	Output    Output    `toml:"output"`
	Preflight Preflight `toml:"preflight"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("harvester.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a crawl run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StateDir, c.Paths.ErrorsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StateDBPath returns the absolute path of the crawl state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, c.State.DBName)
}

// LockPath returns the path of the single-writer run lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "harvester.lock")
}

// RawOutputPath resolves the raw listing stream file for the given run date.
func (c *Config) RawOutputPath(date string) string {
	return c.outputPath(c.Output.RawFile, date)
}

// NormalizedOutputPath resolves the normalized detail stream file for the given run date.
func (c *Config) NormalizedOutputPath(date string) string {
	return c.outputPath(c.Output.NormalizedFile, date)
}

func (c *Config) outputPath(pattern, date string) string {
	resolved := strings.ReplaceAll(pattern, "{date}", date)
	if filepath.IsAbs(resolved) {
		return resolved
	}
	return filepath.Join(c.Paths.DataDir, resolved)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	encoder := toml.NewEncoder(&b)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
