// Package sink writes harvested records to append-only JSONL files.
//
// Each named stream maps to one file. A record is marshaled to a single line
// and written with one append call, so a crash leaves at most a truncated last
// line and never interleaves two records.
package sink
