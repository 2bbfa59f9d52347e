// Package harvest wires configuration, the state database, the listing
// client, output sinks, and evidence capture into crawl runs.
//
// Run holds an exclusive file lock for its lifetime so only one process
// writes the state database. In "once" mode it executes a single crawl and
// returns its error. In "interval" mode it repeats the crawl on a ticker until
// the context is cancelled, logging failed cycles without exiting.
package harvest
