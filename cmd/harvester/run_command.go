package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"harvester/internal/config"
	"harvester/internal/crawl"
	"harvester/internal/harvest"
	"harvester/internal/logging"
)

type runFlags struct {
	maxPages    int
	maxItems    int
	keywords    []string
	listOnly    bool
	noRetry     bool
	startPage   int
	mode        string
	intervalMin int
	concurrency int
	logLevel    string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl listing pages from the saved checkpoint",
		Long: "Crawl listing pages from the saved checkpoint, fetching details for new items.\n" +
			"Items left unsettled by earlier runs are retried first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			out := cmd.OutOrStdout()
			return harvest.Run(cmd.Context(), cfg, harvest.Options{
				Logger: logger,
				OnReport: func(report crawl.Report) {
					if ctx.JSONMode() {
						_ = writeJSON(cmd, report)
						return
					}
					writeReport(out, report)
				},
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.maxPages, "max-pages", 0, "Highest page index to visit (0 = unbounded)")
	f.IntVar(&flags.maxItems, "max-items", 0, "Soft cap on items collected per run (0 = unbounded)")
	f.StringSliceVarP(&flags.keywords, "keyword", "k", nil, "Only collect items whose title contains a keyword (repeatable)")
	f.BoolVar(&flags.listOnly, "list-only", false, "Record listings without fetching details")
	f.BoolVar(&flags.noRetry, "no-retry", false, "Skip the retry pass over unsettled items")
	f.IntVar(&flags.startPage, "start-page", 0, "First page when no checkpoint exists")
	f.StringVar(&flags.mode, "mode", "", "Run mode: once or interval")
	f.IntVar(&flags.intervalMin, "interval-min", 0, "Minutes between runs in interval mode")
	f.IntVar(&flags.concurrency, "concurrency", 0, "Concurrent detail fetches per page")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	return cmd
}

// applyRunFlags overlays explicitly set flags onto the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	changed := cmd.Flags().Changed
	if changed("max-pages") {
		cfg.Crawl.MaxPages = flags.maxPages
	}
	if changed("max-items") {
		cfg.Crawl.MaxItems = flags.maxItems
	}
	if changed("keyword") {
		cfg.Crawl.Keywords = flags.keywords
	}
	if changed("list-only") {
		cfg.Crawl.ListOnly = flags.listOnly
	}
	if changed("no-retry") {
		cfg.Crawl.RetryPending = !flags.noRetry
	}
	if changed("start-page") && flags.startPage > 0 {
		cfg.Crawl.StartPage = flags.startPage
	}
	if changed("mode") {
		cfg.Crawl.Mode = strings.ToLower(strings.TrimSpace(flags.mode))
	}
	if changed("interval-min") {
		cfg.Crawl.IntervalMinutes = flags.intervalMin
	}
	if changed("concurrency") && flags.concurrency > 0 {
		cfg.Crawl.DetailConcurrency = flags.concurrency
	}
	if changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
}

func writeReport(out io.Writer, report crawl.Report) {
	rows := [][]string{
		{"Run", report.RunID},
		{"Pages", fmt.Sprintf("%d -> %d (%d settled)", report.StartPage, report.FinalCheckpoint, report.PagesSettled)},
		{"Collected", strconv.Itoa(report.ItemsCollected)},
		{"New", strconv.Itoa(report.NewItems)},
		{"Retried", strconv.Itoa(report.Retried)},
		{"Succeeded", strconv.Itoa(report.Succeeded)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Skipped", strconv.Itoa(report.Skipped + report.Duplicates)},
		{"Filtered", strconv.Itoa(report.Filtered)},
	}
	if report.StopReason != "" {
		rows = append(rows, []string{"Stopped", report.StopReason})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		title:   "Crawl report",
		headers: []string{"Field", "Value"},
		aligns:  []columnAlignment{alignLeft, alignRight},
	}, rows))
}
