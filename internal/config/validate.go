package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateCrawl(); err != nil {
		return err
	}
	if err := c.validatePreflight(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.ListURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("source.list_url is required. Edit %s (create with 'harvester config init')", defaultPath)
	}
	if !strings.Contains(c.Source.ListURL, "{page}") {
		return errors.New("source.list_url must contain the {page} placeholder")
	}
	if _, err := url.Parse(strings.ReplaceAll(c.Source.ListURL, "{page}", "1")); err != nil {
		return fmt.Errorf("source.list_url: %w", err)
	}
	if c.Source.BaseURL != "" {
		if _, err := url.Parse(c.Source.BaseURL); err != nil {
			return fmt.Errorf("source.base_url: %w", err)
		}
	}
	if c.Source.RequestsPerSecond < 0 {
		return errors.New("source.requests_per_second must be >= 0")
	}
	for _, named := range []struct {
		key    string
		column string
	}{
		{"source.title_column", c.Source.TitleColumn},
		{"source.org_column", c.Source.OrgColumn},
		{"source.posted_column", c.Source.PostedColumn},
		{"source.deadline_column", c.Source.DeadlineColumn},
	} {
		if named.column == "" {
			continue
		}
		if !containsString(c.Source.Columns, named.column) {
			return fmt.Errorf("%s %q is not listed in source.columns", named.key, named.column)
		}
	}
	return nil
}

func (c *Config) validateCrawl() error {
	switch c.Crawl.Mode {
	case ModeOnce:
	case ModeInterval:
		if c.Crawl.IntervalMinutes <= 0 {
			return errors.New("crawl.interval_minutes must be positive when crawl.mode is interval")
		}
	default:
		return fmt.Errorf("crawl.mode: unsupported value %q (want once or interval)", c.Crawl.Mode)
	}
	if c.Crawl.MaxPages < 0 {
		return errors.New("crawl.max_pages must be >= 0")
	}
	if c.Crawl.MaxItems < 0 {
		return errors.New("crawl.max_items must be >= 0")
	}
	return nil
}

func (c *Config) validatePreflight() error {
	if c.Preflight.MinFreeMiB < 0 {
		return errors.New("preflight.min_free_mib must be >= 0")
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
