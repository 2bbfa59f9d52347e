package config

const (
	defaultConfigPath          = "~/.config/harvester/config.toml"
	defaultDataDir             = "~/.local/share/harvester/data"
	defaultStateDir            = "~/.local/share/harvester/state"
	defaultErrorsDir           = "~/.local/share/harvester/data/errors"
	defaultLogDir              = "~/.local/share/harvester/logs"
	defaultDBName              = "state.sqlite"
	defaultCheckpointKey       = "list.page"
	defaultSite                = "nuri.g2b.go.kr"
	defaultBaseURL             = "https://nuri.g2b.go.kr/"
	defaultRowSelector         = "tbody tr"
	defaultLinkSelector        = "a"
	defaultCellSelector        = "td"
	defaultDetailReadySelector = "body"
	defaultUserAgent           = "Mozilla/5.0 (compatible; harvester)"
	defaultTimeoutSeconds      = 20
	defaultRequestsPerSecond   = 2.0
	defaultMode                = ModeOnce
	defaultIntervalMinutes     = 60
	defaultMaxPages            = 1
	defaultMaxItems            = 30
	defaultStartPage           = 1
	defaultDetailConcurrency   = 1
	defaultRawFile             = "raw/list_{date}.jsonl"
	defaultNormalizedFile      = "normalized/notices.jsonl"
	defaultMinFreeMiB          = 64
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Run modes accepted by crawl.mode.
const (
	ModeOnce     = "once"
	ModeInterval = "interval"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			StateDir:  defaultStateDir,
			ErrorsDir: defaultErrorsDir,
			LogDir:    defaultLogDir,
		},
		State: State{
			DBName:        defaultDBName,
			CheckpointKey: defaultCheckpointKey,
		},
		Source: Source{
			Site:                defaultSite,
			BaseURL:             defaultBaseURL,
			RowSelector:         defaultRowSelector,
			LinkSelector:        defaultLinkSelector,
			CellSelector:        defaultCellSelector,
			DetailReadySelector: defaultDetailReadySelector,
			UserAgent:           defaultUserAgent,
			TimeoutSeconds:      defaultTimeoutSeconds,
			RequestsPerSecond:   defaultRequestsPerSecond,
		},
		Crawl: Crawl{
			Mode:              defaultMode,
			IntervalMinutes:   defaultIntervalMinutes,
			MaxPages:          defaultMaxPages,
			MaxItems:          defaultMaxItems,
			StartPage:         defaultStartPage,
			DetailConcurrency: defaultDetailConcurrency,
			RetryPending:      true,
		},
		Output: Output{
			RawFile:        defaultRawFile,
			NormalizedFile: defaultNormalizedFile,
		},
		Preflight: Preflight{
			OnRun:      false,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
