// Package main hosts the harvester CLI entrypoint and command graph.
//
// The Cobra-based command tree runs crawls, inspects the state database,
// adjusts the pagination checkpoint, runs preflight checks, and scaffolds
// configuration. Crawl behaviour lives in internal packages; commands here
// only resolve configuration and render results.
package main
