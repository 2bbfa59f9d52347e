// Package evidence saves artifacts for items whose detail fetch failed.
//
// Each failure produces a JSON metadata file and, when the failing response
// body was captured, an HTML snapshot beside it. Recording is best effort: the
// orchestrator logs a recorder error and moves on.
package evidence
