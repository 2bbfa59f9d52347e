package harvest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/harvest"
	"harvester/internal/logging"
	"harvester/internal/state"
	"harvester/internal/testsupport"
)

const (
	pageOne = `<html><body><table><tbody>
<tr><td>1</td><td><a href="/detail?id=1">서버 유지보수</a></td><td>조달청</td></tr>
<tr><td>2</td><td><a href="/detail?id=2">네트워크 구축</a></td><td>국방부</td></tr>
</tbody></table></body></html>`
	pageTwo = `<html><body><table><tbody>
<tr><td>3</td><td><a href="/detail?id=3">보안 점검</a></td><td>행정안전부</td></tr>
</tbody></table></body></html>`
	emptyPage = `<html><body><table><tbody></tbody></table></body></html>`
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(pageOne))
		case "2":
			_, _ = w.Write([]byte(pageTwo))
		default:
			_, _ = w.Write([]byte(emptyPage))
		}
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "3" {
			http.Error(w, "<html>maintenance</html>", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`<html><body><table><tr><th>공고번호</th><td>N-` + id + `</td></tr></table></body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newConfig(t *testing.T, server *httptest.Server) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithListURL(server.URL+"/list?page={page}"),
		testsupport.WithCrawl(func(c *config.Crawl) {
			c.MaxPages = 0
			c.MaxItems = 0
		}),
	)
	cfg.Source.BaseURL = server.URL + "/"
	return cfg
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestRunOnceCollectsAndResumes(t *testing.T) {
	server := newSite(t)
	cfg := newConfig(t, server)

	var reports []crawl.Report
	opts := harvest.Options{
		Logger:   logging.NewNop(),
		Now:      fixedClock,
		OnReport: func(r crawl.Report) { reports = append(reports, r) },
	}

	if err := harvest.Run(context.Background(), cfg, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	first := reports[0]
	if first.RunID != "20250102T030405Z" {
		t.Fatalf("unexpected run id %q", first.RunID)
	}
	if first.Succeeded != 2 || first.Failed != 1 {
		t.Fatalf("unexpected outcomes: %+v", first)
	}
	if first.StopReason != crawl.StopExhausted || first.FinalCheckpoint != 3 {
		t.Fatalf("unexpected stop: %+v", first)
	}

	raw := testsupport.ReadJSONLines(t, cfg.RawOutputPath("20250102"))
	if len(raw) != 3 {
		t.Fatalf("expected 3 raw records, got %d", len(raw))
	}
	normalized := testsupport.ReadJSONLines(t, cfg.NormalizedOutputPath("20250102"))
	if len(normalized) != 2 {
		t.Fatalf("expected 2 normalized records, got %d", len(normalized))
	}

	evidenceFiles, err := filepath.Glob(filepath.Join(cfg.Paths.ErrorsDir, "*.json"))
	if err != nil {
		t.Fatalf("glob evidence: %v", err)
	}
	if len(evidenceFiles) != 1 {
		t.Fatalf("expected one evidence file, got %v", evidenceFiles)
	}

	if err := harvest.Run(context.Background(), cfg, opts); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second := reports[1]
	if second.Retried != 1 || second.Failed != 1 || second.PagesSettled != 0 {
		t.Fatalf("unexpected resume report: %+v", second)
	}

	store := testsupport.MustOpenStore(t, cfg)
	if got := testsupport.MustCheckpoint(t, store, cfg.State.CheckpointKey); got != "3" {
		t.Fatalf("checkpoint = %q, want 3", got)
	}
	failed, err := store.List(context.Background(), state.StatusError)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected one failed item, got %d", len(failed))
	}
}

func TestRunRefusesConcurrentInstance(t *testing.T) {
	cfg := newConfig(t, newSite(t))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(cfg.LockPath())
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock failed: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	err = harvest.Run(context.Background(), cfg, harvest.Options{Logger: logging.NewNop()})
	if !errors.Is(err, harvest.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunIntervalStopsOnCancel(t *testing.T) {
	cfg := newConfig(t, newSite(t))
	cfg.Crawl.Mode = config.ModeInterval
	cfg.Crawl.IntervalMinutes = 60

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycles := 0
	err := harvest.Run(ctx, cfg, harvest.Options{
		Logger: logging.NewNop(),
		OnReport: func(crawl.Report) {
			cycles++
			cancel()
		},
	})
	if err != nil {
		t.Fatalf("interval Run returned %v", err)
	}
	if cycles != 1 {
		t.Fatalf("expected one cycle before cancel, got %d", cycles)
	}
}

func TestRunStopsWhenPreflightFails(t *testing.T) {
	cfg := newConfig(t, newSite(t))
	cfg.Preflight.OnRun = true
	cfg.Preflight.MinFreeMiB = 1 << 40

	called := false
	err := harvest.Run(context.Background(), cfg, harvest.Options{
		Logger:   logging.NewNop(),
		OnReport: func(crawl.Report) { called = true },
	})
	if err == nil || !strings.Contains(err.Error(), "preflight failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if called {
		t.Fatal("crawl should not run after a failed preflight")
	}
}

func TestRunConfigMapsCrawlSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Crawl.RetryPending = false
	cfg.Crawl.Keywords = []string{"용역"}
	cfg.State.CheckpointKey = "list.custom"

	rc := harvest.RunConfig(&cfg, "run-1")
	if !rc.SkipRetry || rc.CheckpointKey != "list.custom" || rc.RunID != "run-1" || len(rc.Keywords) != 1 {
		t.Fatalf("unexpected run config: %+v", rc)
	}
}
