package crawl

import "errors"

// ItemRef is one row of a listing page.
type ItemRef struct {
	ID        string            `json:"notice_id"`
	Title     string            `json:"title"`
	Org       string            `json:"organization,omitempty"`
	PostedAt  string            `json:"posted_at,omitempty"`
	Deadline  string            `json:"deadline_at,omitempty"`
	DetailURL string            `json:"detail_url,omitempty"`
	RawText   string            `json:"raw_text,omitempty"`
	Fields    map[string]string `json:"raw,omitempty"`
	Page      int               `json:"page"`
	Index     int               `json:"index"`
}

// Field is an ordered key/value pair extracted from a detail page.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Table is a detail page table with optional header row.
type Table struct {
	Headers []string   `json:"headers,omitempty"`
	Rows    [][]string `json:"rows"`
}

// DetailRecord holds the fields extracted from an item's detail page.
type DetailRecord struct {
	ID          string            `json:"notice_id"`
	Title       string            `json:"title"`
	DetailURL   string            `json:"detail_url,omitempty"`
	ListFields  map[string]string `json:"list_fields,omitempty"`
	Fields      []Field           `json:"fields"`
	Tables      []Table           `json:"tables,omitempty"`
	ContentHash string            `json:"content_sha256"`
}

// SourceInfo stamps where and when a record was collected.
type SourceInfo struct {
	Site        string `json:"site"`
	CollectedAt string `json:"collected_at_utc"`
	RunID       string `json:"run_id"`
}

// NoticeRecord is written to the normalized stream for every settled item.
type NoticeRecord struct {
	Source   SourceInfo   `json:"source"`
	Notice   DetailRecord `json:"notice"`
	ListItem ItemRef      `json:"list_item"`
}

// ListingRecord is written to the raw stream for every item seen on a page.
type ListingRecord struct {
	Source SourceInfo `json:"source"`
	Item   ItemRef    `json:"item"`
}

var errNoCause = errors.New("detail fetch failed without a cause")

// DetailResult is the outcome of a detail fetch: either a record or an error.
type DetailResult struct {
	record DetailRecord
	err    error
}

// Succeeded wraps a successfully extracted record.
func Succeeded(record DetailRecord) DetailResult {
	return DetailResult{record: record}
}

// Failed wraps a detail failure. A nil cause is replaced with a generic error
// so the result never reads as a success.
func Failed(cause error) DetailResult {
	if cause == nil {
		cause = errNoCause
	}
	return DetailResult{err: cause}
}

// OK reports whether the fetch succeeded.
func (r DetailResult) OK() bool { return r.err == nil }

// Record returns the extracted record; it is zero for failures.
func (r DetailResult) Record() DetailRecord { return r.record }

// Err returns the failure cause, or nil on success.
func (r DetailResult) Err() error { return r.err }
