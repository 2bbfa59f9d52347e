// Package source reads listing and detail pages over HTTP.
//
// Client implements crawl.ListSource and crawl.DetailFetcher on top of a resty
// client. Pages are parsed with goquery using the selectors and column names
// from the [source] config section, and requests are paced by a token bucket
// so the crawl stays polite. There is no retry here: a failed request surfaces
// to the orchestrator, which decides what it means.
package source
