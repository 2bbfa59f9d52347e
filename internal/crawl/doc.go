// Package crawl drives checkpointed pagination over a listing source.
//
// An Orchestrator reads the saved page checkpoint, walks listing pages in
// order, records every item it sees, fetches details for items not yet
// settled, and advances the checkpoint only after a page is fully recorded.
// Re-running after an interruption resumes at the unsettled page, and items
// already marked ok are never fetched again.
//
// Items that failed or never settled in an earlier run are retried first from
// the listing snapshot saved when they were seen, so a failure on a page
// behind the checkpoint still gets another attempt.
//
// The page source, detail fetcher, sink, evidence recorder, and state store
// are interfaces; the concrete HTTP, JSONL, and SQLite implementations live in
// their own packages.
package crawl
