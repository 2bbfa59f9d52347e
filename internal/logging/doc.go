// Package logging assembles structured slog loggers used across the harvester.
//
// It owns the console and JSON handlers, level and output plumbing, daily log
// files, and retention pruning. Context helpers tag lines with the run id and
// listing page so a crawl can be followed end to end.
package logging
