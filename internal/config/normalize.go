package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeState()
	c.normalizeSource()
	c.normalizeCrawl()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ErrorsDir) == "" {
		c.Paths.ErrorsDir = defaultErrorsDir
	}
	if c.Paths.ErrorsDir, err = expandPath(strings.TrimSpace(c.Paths.ErrorsDir)); err != nil {
		return fmt.Errorf("paths.errors_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeState() {
	c.State.DBName = strings.TrimSpace(c.State.DBName)
	if c.State.DBName == "" {
		c.State.DBName = defaultDBName
	}
	c.State.CheckpointKey = strings.TrimSpace(c.State.CheckpointKey)
	if c.State.CheckpointKey == "" {
		c.State.CheckpointKey = defaultCheckpointKey
	}
}

func (c *Config) normalizeSource() {
	c.Source.Site = strings.TrimSpace(c.Source.Site)
	c.Source.BaseURL = strings.TrimSpace(c.Source.BaseURL)
	c.Source.ListURL = strings.TrimSpace(c.Source.ListURL)
	if c.Source.Site == "" {
		c.Source.Site = defaultSite
	}
	if strings.TrimSpace(c.Source.RowSelector) == "" {
		c.Source.RowSelector = defaultRowSelector
	}
	if strings.TrimSpace(c.Source.LinkSelector) == "" {
		c.Source.LinkSelector = defaultLinkSelector
	}
	if strings.TrimSpace(c.Source.CellSelector) == "" {
		c.Source.CellSelector = defaultCellSelector
	}
	if strings.TrimSpace(c.Source.DetailReadySelector) == "" {
		c.Source.DetailReadySelector = defaultDetailReadySelector
	}
	columns := make([]string, 0, len(c.Source.Columns))
	for _, column := range c.Source.Columns {
		columns = append(columns, strings.TrimSpace(column))
	}
	c.Source.Columns = columns
	c.Source.TitleColumn = strings.TrimSpace(c.Source.TitleColumn)
	c.Source.OrgColumn = strings.TrimSpace(c.Source.OrgColumn)
	c.Source.PostedColumn = strings.TrimSpace(c.Source.PostedColumn)
	c.Source.DeadlineColumn = strings.TrimSpace(c.Source.DeadlineColumn)

	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if value, ok := os.LookupEnv("HARVESTER_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.Source.UserAgent = strings.TrimSpace(value)
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
	if c.Source.TimeoutSeconds <= 0 {
		c.Source.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeCrawl() {
	c.Crawl.Mode = strings.ToLower(strings.TrimSpace(c.Crawl.Mode))
	if c.Crawl.Mode == "" {
		c.Crawl.Mode = defaultMode
	}
	if c.Crawl.StartPage <= 0 {
		c.Crawl.StartPage = defaultStartPage
	}
	if c.Crawl.DetailConcurrency <= 0 {
		c.Crawl.DetailConcurrency = defaultDetailConcurrency
	}
	if len(c.Crawl.Keywords) > 0 {
		keywords := make([]string, 0, len(c.Crawl.Keywords))
		seen := make(map[string]struct{}, len(c.Crawl.Keywords))
		for _, keyword := range c.Crawl.Keywords {
			trimmed := strings.TrimSpace(keyword)
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			keywords = append(keywords, trimmed)
		}
		c.Crawl.Keywords = keywords
	}
}

func (c *Config) normalizeOutput() {
	c.Output.RawFile = strings.TrimSpace(c.Output.RawFile)
	if c.Output.RawFile == "" {
		c.Output.RawFile = defaultRawFile
	}
	c.Output.NormalizedFile = strings.TrimSpace(c.Output.NormalizedFile)
	if c.Output.NormalizedFile == "" {
		c.Output.NormalizedFile = defaultNormalizedFile
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
