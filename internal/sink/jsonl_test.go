package sink_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"harvester/internal/sink"
	"harvester/internal/testsupport"
)

func TestJSONLAppendsOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw", "list_20250101.jsonl")
	s, err := sink.NewJSONL(map[string]string{"raw": rawPath})
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, "raw", map[string]any{"n": i, "title": fmt.Sprintf("공고 %d", i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := testsupport.ReadJSONLines(t, rawPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[2]["title"] != "공고 2" {
		t.Fatalf("unexpected last line: %v", lines[2])
	}

	reopened, err := sink.NewJSONL(map[string]string{"raw": rawPath})
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	if err := reopened.Append(ctx, "raw", map[string]any{"n": 3}); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	reopened.Close()
	if got := len(testsupport.ReadJSONLines(t, rawPath)); got != 4 {
		t.Fatalf("expected append across reopen, got %d lines", got)
	}
}

func TestJSONLRejectsUnknownStream(t *testing.T) {
	s, err := sink.NewJSONL(map[string]string{"raw": filepath.Join(t.TempDir(), "raw.jsonl")})
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}
	defer s.Close()
	if err := s.Append(context.Background(), "normalized", map[string]any{}); !errors.Is(err, sink.ErrUnknownStream) {
		t.Fatalf("expected ErrUnknownStream, got %v", err)
	}
}

func TestJSONLConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normalized.jsonl")
	s, err := sink.NewJSONL(map[string]string{"normalized": path})
	if err != nil {
		t.Fatalf("NewJSONL: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.Append(context.Background(), "normalized", map[string]int{"n": n}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()
	s.Close()

	if got := len(testsupport.ReadJSONLines(t, path)); got != 20 {
		t.Fatalf("expected 20 lines, got %d", got)
	}
}

func TestNewJSONLValidatesStreams(t *testing.T) {
	if _, err := sink.NewJSONL(nil); err == nil {
		t.Fatal("expected error for empty stream map")
	}
	if _, err := sink.NewJSONL(map[string]string{"raw": ""}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
