// Package preflight provides readiness checks for the directories, database,
// and listing site the harvester depends on.
//
// These checks run in two contexts:
//   - "harvester check" runs RunAll and prints every result.
//   - The harvest runner calls RunAll before each crawl when preflight.on_run
//     is set, and skips the crawl if any check fails.
package preflight
