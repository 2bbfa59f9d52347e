package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"harvester/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Failed", statusError, "3", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Failed:", "[ERROR] 3")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Items", statusOK, "12", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "State directory", Passed: true, Detail: "/tmp/state (read/write ok)"},
		{Name: "Source", Passed: false, Detail: "timed out (site unresponsive)"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK]") {
		t.Fatalf("expected ok line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] timed out") {
		t.Fatalf("expected error detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "1 of 2 checks failed") {
		t.Fatalf("expected failure summary, got %q", lines[2])
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable(tableSpec{
		title:   "Checkpoints",
		headers: []string{"Key", "Value"},
		aligns:  []columnAlignment{alignLeft, alignRight},
	}, [][]string{{"list.page", "4"}, {"short"}})
	for _, want := range []string{"checkpoints", "list.page", "short"} {
		if !strings.Contains(strings.ToLower(got), want) {
			t.Fatalf("expected %q in table:\n%s", want, got)
		}
	}
	if renderTable(tableSpec{}, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
