package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testListing = `<html><body><table><tbody>
<tr><td>1</td><td><a href="/detail?id=1">서버 유지보수</a></td></tr>
<tr><td>2</td><td><a href="/detail?id=2">청사 보안 점검</a></td></tr>
</tbody></table></body></html>`

type cliEnv struct {
	configPath string
	baseDir    string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>home</body></html>`))
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(testListing))
			return
		}
		_, _ = w.Write([]byte(`<html><body><table><tbody></tbody></table></body></html>`))
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "2" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<html><body><table><tr><th>공고번호</th><td>A-1</td></tr></table></body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	base := t.TempDir()
	t.Setenv("HOME", base)
	configPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`
[paths]
data_dir = %q
state_dir = %q
errors_dir = %q
log_dir = %q

[source]
base_url = %q
list_url = %q
requests_per_second = 0

[crawl]
max_pages = 0
max_items = 0

[logging]
level = "error"
retention_days = 0
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "state"),
		filepath.Join(base, "data", "errors"),
		filepath.Join(base, "logs"),
		server.URL+"/",
		server.URL+"/list?page={page}",
	)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{configPath: configPath, baseDir: base}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunThenStatusAndItems(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := env.run(t, "run", "--json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	var report struct {
		Succeeded       int    `json:"succeeded"`
		Failed          int    `json:"failed"`
		FinalCheckpoint int    `json:"final_checkpoint"`
		StopReason      string `json:"stop_reason"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Succeeded != 1 || report.Failed != 1 || report.FinalCheckpoint != 2 || report.StopReason != "exhausted" {
		t.Fatalf("unexpected report: %+v", report)
	}

	out, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	var status statusView
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if status.Total != 2 || status.Counts["ok"] != 1 || status.Counts["error"] != 1 {
		t.Fatalf("unexpected counts: %+v", status)
	}
	if len(status.Checkpoints) != 1 || status.Checkpoints[0].Value != "2" {
		t.Fatalf("unexpected checkpoints: %+v", status.Checkpoints)
	}

	out, err = env.run(t, "items", "--status", "error", "--json")
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	var items []itemView
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode items: %v\n%s", err, out)
	}
	if len(items) != 1 || items[0].Title != "청사 보안 점검" || items[0].Page != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}

	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status text failed: %v", err)
	}
	if !strings.Contains(out, "[ERROR] 1") || !strings.Contains(strings.ToLower(out), "checkpoints") {
		t.Fatalf("unexpected status output:\n%s", out)
	}
}

func TestCheckpointSetAndGet(t *testing.T) {
	env := setupCLIEnv(t)

	if _, err := env.run(t, "checkpoint", "get"); err == nil {
		t.Fatal("expected error for unset checkpoint")
	}
	if out, err := env.run(t, "checkpoint", "set", "7"); err != nil {
		t.Fatalf("set failed: %v\n%s", err, out)
	}
	out, err := env.run(t, "checkpoint", "get")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if strings.TrimSpace(out) != "7" {
		t.Fatalf("checkpoint = %q, want 7", out)
	}
	if _, err := env.run(t, "checkpoint", "set", "zero"); err == nil {
		t.Fatal("expected error for non-numeric checkpoint")
	}
}

func TestCheckReportsPreflight(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "State database") || !strings.Contains(out, "checks passed") {
		t.Fatalf("unexpected check output:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "conf", "harvester.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config at %s: %v", target, err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", target, "config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), "list_url") {
		t.Fatalf("expected encoded config, got:\n%s", out.String())
	}
}
