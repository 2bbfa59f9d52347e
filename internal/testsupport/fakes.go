package testsupport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"harvester/internal/crawl"
)

// Ref builds a listing item with a deterministic detail URL.
func Ref(id, title string) crawl.ItemRef {
	return crawl.ItemRef{
		ID:        id,
		Title:     title,
		DetailURL: "https://example.test/detail/" + id,
		RawText:   title,
	}
}

// FakeList serves canned listing pages. Pages absent from the map are empty,
// which ends a crawl.
type FakeList struct {
	mu    sync.Mutex
	Pages map[int][]crawl.ItemRef
	Errs  map[int]error
	calls []int
}

// FetchPage implements crawl.ListSource.
func (f *FakeList) FetchPage(ctx context.Context, page int) ([]crawl.ItemRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, page)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.Errs[page]; ok {
		return nil, err
	}
	refs := f.Pages[page]
	out := make([]crawl.ItemRef, len(refs))
	copy(out, refs)
	return out, nil
}

// Calls returns the page indexes requested so far.
func (f *FakeList) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// FakeDetail returns a record for every ref unless a failure is configured
// for its id. It tracks per-id call counts and peak concurrency.
type FakeDetail struct {
	mu        sync.Mutex
	Failures  map[string]error
	Delay     time.Duration
	Hook      func(ctx context.Context, ref crawl.ItemRef)
	calls     map[string]int
	inFlight  map[string]int
	active    int
	maxActive int
	maxPerID  int
}

// FetchDetail implements crawl.DetailFetcher.
func (f *FakeDetail) FetchDetail(ctx context.Context, ref crawl.ItemRef) crawl.DetailResult {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
		f.inFlight = make(map[string]int)
	}
	f.calls[ref.ID]++
	f.inFlight[ref.ID]++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	if f.inFlight[ref.ID] > f.maxPerID {
		f.maxPerID = f.inFlight[ref.ID]
	}
	failure := f.Failures[ref.ID]
	hook := f.Hook
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight[ref.ID]--
		f.active--
		f.mu.Unlock()
	}()

	if hook != nil {
		hook(ctx, ref)
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return crawl.Failed(ctx.Err())
		}
	}
	if failure != nil {
		return crawl.Failed(&crawl.DetailError{ID: ref.ID, URL: ref.DetailURL, Snapshot: []byte("<html>broken</html>"), Err: failure})
	}
	sum := sha256.Sum256([]byte(ref.ID + ref.Title))
	return crawl.Succeeded(crawl.DetailRecord{
		ID:          ref.ID,
		Title:       ref.Title,
		DetailURL:   ref.DetailURL,
		Fields:      []crawl.Field{{Key: "title", Value: ref.Title}},
		ContentHash: hex.EncodeToString(sum[:]),
	})
}

// SetFailure configures (or clears, with nil) the failure returned for id.
func (f *FakeDetail) SetFailure(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Failures == nil {
		f.Failures = make(map[string]error)
	}
	if err == nil {
		delete(f.Failures, id)
		return
	}
	f.Failures[id] = err
}

// Calls returns how many times id was fetched.
func (f *FakeDetail) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// TotalCalls returns the number of fetches across all ids.
func (f *FakeDetail) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Peak returns the highest overall and per-id concurrency observed.
func (f *FakeDetail) Peak() (overall, perID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive, f.maxPerID
}

// MemorySink keeps appended records per stream. FailStream makes appends to
// that stream fail.
type MemorySink struct {
	mu         sync.Mutex
	FailStream string
	records    map[string][]any
}

// Append implements crawl.Sink.
func (s *MemorySink) Append(_ context.Context, stream string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailStream != "" && stream == s.FailStream {
		return fmt.Errorf("disk full writing %s", stream)
	}
	if s.records == nil {
		s.records = make(map[string][]any)
	}
	s.records[stream] = append(s.records[stream], record)
	return nil
}

// Records returns what was appended to stream.
func (s *MemorySink) Records(stream string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.records[stream]...)
}

// NoticeIDs returns the item ids of NoticeRecords appended to stream, in order.
func (s *MemorySink) NoticeIDs(stream string) []string {
	var ids []string
	for _, record := range s.Records(stream) {
		if notice, ok := record.(crawl.NoticeRecord); ok {
			ids = append(ids, notice.Notice.ID)
		}
	}
	return ids
}

// FakeEvidence remembers the ids it was asked to record and optionally fails.
type FakeEvidence struct {
	mu  sync.Mutex
	Err error
	ids []string
}

// Record implements crawl.EvidenceRecorder.
func (e *FakeEvidence) Record(_ context.Context, ref crawl.ItemRef, _ error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, ref.ID)
	return e.Err
}

// IDs returns the recorded ids.
func (e *FakeEvidence) IDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ids...)
}
