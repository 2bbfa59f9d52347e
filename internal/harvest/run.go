package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/evidence"
	"harvester/internal/logging"
	"harvester/internal/preflight"
	"harvester/internal/sink"
	"harvester/internal/source"
	"harvester/internal/state"
)

// ErrLocked reports that another harvester process holds the run lock.
var ErrLocked = errors.New("another harvester run holds the state lock")

// Options configures a harvest invocation.
type Options struct {
	// Logger overrides the logger built from cfg.Logging.
	Logger *slog.Logger
	// OnReport receives the report of every crawl cycle, including failed ones.
	OnReport func(crawl.Report)
	// Now overrides the clock used for run ids and output dates.
	Now func() time.Time
}

type runtime struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	store  *state.Store
	client *source.Client
}

// Run executes crawls according to cfg.Crawl.Mode.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	lock, err := AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, opts.Now(),
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "harvester-*.log", Exclude: []string{logging.LogFilePath(cfg.Paths.LogDir, opts.Now())}},
		logging.RetentionTarget{Dir: cfg.Paths.ErrorsDir, Pattern: "*.json"},
		logging.RetentionTarget{Dir: cfg.Paths.ErrorsDir, Pattern: "*.html"},
	)

	store, err := state.OpenConfig(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open state database", "state_open_failed",
			logging.Error(err),
			logging.String("path", cfg.StateDBPath()),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or remove a database from an incompatible version"),
		)
		return err
	}
	defer store.Close()

	client, err := source.NewClient(cfg.Source, logger)
	if err != nil {
		return fmt.Errorf("create source client: %w", err)
	}

	rt := &runtime{cfg: cfg, opts: opts, logger: logger, store: store, client: client}
	if cfg.Crawl.Mode == config.ModeInterval {
		return rt.loop(ctx)
	}
	return rt.cycle(ctx)
}

func (rt *runtime) loop(ctx context.Context) error {
	interval := time.Duration(rt.cfg.Crawl.IntervalMinutes) * time.Minute
	rt.logger.Info("interval mode started",
		logging.String(logging.FieldEventType, "interval_started"),
		logging.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := rt.cycle(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(rt.logger, "crawl cycle failed; retrying next interval", "cycle_failed",
				logging.Error(err),
				logging.Duration("next_in", interval),
				logging.String(logging.FieldImpact, "no new items collected this cycle"),
			)
		}
		select {
		case <-ctx.Done():
			rt.logger.Info("interval mode stopped", logging.String(logging.FieldEventType, "interval_stopped"))
			return nil
		case <-ticker.C:
		}
	}
}

func (rt *runtime) cycle(ctx context.Context) (err error) {
	now := rt.opts.Now().UTC()
	runID := now.Format("20060102T150405Z")
	date := now.Format("20060102")

	if rt.cfg.Preflight.OnRun {
		results := preflight.RunAll(ctx, rt.cfg, rt.client, rt.store)
		if err := preflight.Failed(results); err != nil {
			return err
		}
	}

	sinks, err := sink.NewJSONL(map[string]string{
		crawl.StreamRaw:        rt.cfg.RawOutputPath(date),
		crawl.StreamNormalized: rt.cfg.NormalizedOutputPath(date),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sinks.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	orchestrator, err := crawl.New(rt.store, rt.client, rt.client, sinks,
		crawl.WithLogger(rt.logger),
		crawl.WithEvidence(evidence.NewRecorder(rt.cfg.Paths.ErrorsDir, runID, rt.logger)),
		crawl.WithSite(rt.cfg.Source.Site),
	)
	if err != nil {
		return err
	}

	report, err := orchestrator.Run(ctx, RunConfig(rt.cfg, runID))
	if rt.opts.OnReport != nil {
		rt.opts.OnReport(report)
	}
	return err
}

// AcquireLock takes the exclusive run lock under the state directory. Callers
// release it with Unlock. It fails with ErrLocked while another process holds it.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, cfg.LockPath())
	}
	return lock, nil
}

// RunConfig maps configuration onto orchestrator run bounds.
func RunConfig(cfg *config.Config, runID string) crawl.RunConfig {
	return crawl.RunConfig{
		MaxPages:          cfg.Crawl.MaxPages,
		MaxItems:          cfg.Crawl.MaxItems,
		Keywords:          cfg.Crawl.Keywords,
		ListOnly:          cfg.Crawl.ListOnly,
		StartPage:         cfg.Crawl.StartPage,
		CheckpointKey:     cfg.State.CheckpointKey,
		DetailConcurrency: cfg.Crawl.DetailConcurrency,
		SkipRetry:         !cfg.Crawl.RetryPending,
		RunID:             runID,
	}
}
