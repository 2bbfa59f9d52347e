package preflight

import (
	"context"
	"fmt"
	"strings"

	"harvester/internal/config"
	"harvester/internal/state"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Pinger checks that the listing site answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports state database diagnostics.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (state.DatabaseHealth, error)
}

// RunAll executes every applicable preflight check. A nil pinger or store
// skips the corresponding check.
func RunAll(ctx context.Context, cfg *config.Config, pinger Pinger, store HealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Data free space", cfg.Paths.DataDir, uint64(cfg.Preflight.MinFreeMiB)),
	}
	if store != nil {
		results = append(results, CheckStateDatabase(ctx, store))
	}
	if pinger != nil {
		results = append(results, CheckSource(ctx, cfg.Source.Site, pinger))
	}
	return results
}

// Failed returns an error naming every failed check, or nil when all passed.
func Failed(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
