package crawl

import "sync"

// Stop reasons recorded in Report.StopReason.
const (
	StopMaxPages  = "max_pages"
	StopMaxItems  = "max_items"
	StopExhausted = "exhausted"
)

// Report summarizes one orchestrator run.
type Report struct {
	RunID           string `json:"run_id"`
	StartPage       int    `json:"start_page"`
	FinalCheckpoint int    `json:"final_checkpoint"`
	PagesVisited    int    `json:"pages_visited"`
	PagesSettled    int    `json:"pages_settled"`
	ItemsCollected  int    `json:"items_collected"`
	NewItems        int    `json:"new_items"`
	Filtered        int    `json:"filtered"`
	Skipped         int    `json:"skipped"`
	Duplicates      int    `json:"duplicates"`
	Retried         int    `json:"retried"`
	Succeeded       int    `json:"succeeded"`
	Failed          int    `json:"failed"`
	StopReason      string `json:"stop_reason,omitempty"`
}

// tally guards the detail outcome counters, which concurrent workers update.
type tally struct {
	mu        sync.Mutex
	succeeded int
	failed    int
}

func (t *tally) success() {
	t.mu.Lock()
	t.succeeded++
	t.mu.Unlock()
}

func (t *tally) failure() {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
}

func (t *tally) apply(r *Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.Succeeded = t.succeeded
	r.Failed = t.failed
}
