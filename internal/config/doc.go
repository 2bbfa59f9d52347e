// Package config loads, normalizes, and validates harvester configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HARVESTER_USER_AGENT. The Config type centralizes every knob the crawl runner
// and CLI need, so the state database, output streams, and listing source are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
