package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"harvester/internal/logging"
	"harvester/internal/state"
)

// Orchestrator runs the checkpointed crawl state machine.
type Orchestrator struct {
	store    Store
	list     ListSource
	detail   DetailFetcher
	sink     Sink
	evidence EvidenceRecorder
	logger   *slog.Logger
	now      func() time.Time
	site     string
}

// New wires an orchestrator from its collaborators.
func New(store Store, list ListSource, detail DetailFetcher, sink Sink, opts ...Option) (*Orchestrator, error) {
	switch {
	case store == nil:
		return nil, errors.New("crawl: store is required")
	case list == nil:
		return nil, errors.New("crawl: list source is required")
	case detail == nil:
		return nil, errors.New("crawl: detail fetcher is required")
	case sink == nil:
		return nil, errors.New("crawl: sink is required")
	}
	o := &Orchestrator{
		store:  store,
		list:   list,
		detail: detail,
		sink:   sink,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "crawl")
	return o, nil
}

// run carries the per-run state. Nothing here outlives Run.
type run struct {
	cfg       RunConfig
	filter    *keywordFilter
	attempted map[string]struct{}
	report    Report
	outcomes  tally
	logger    *slog.Logger
}

// Run executes one crawl: retry pass, then pages from the checkpoint until a
// bound is hit or the source runs dry. The returned report is valid even when
// err is non-nil and reflects the work settled before the failure.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (Report, error) {
	cfg = cfg.withDefaults()
	if cfg.RunID != "" {
		ctx = logging.WithRunID(ctx, cfg.RunID)
	}
	r := &run{
		cfg:       cfg,
		filter:    newKeywordFilter(cfg.Keywords),
		attempted: make(map[string]struct{}),
		report:    Report{RunID: cfg.RunID},
		logger:    logging.WithContext(ctx, o.logger),
	}
	err := o.run(ctx, r)
	r.outcomes.apply(&r.report)

	attrs := []logging.Attr{
		logging.Int("start_page", r.report.StartPage),
		logging.Int("final_checkpoint", r.report.FinalCheckpoint),
		logging.Int("pages_settled", r.report.PagesSettled),
		logging.Int("items_collected", r.report.ItemsCollected),
		logging.Int("succeeded", r.report.Succeeded),
		logging.Int("failed", r.report.Failed),
		logging.Int("skipped", r.report.Skipped),
		logging.Int("retried", r.report.Retried),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
		logging.ErrorWithContext(r.logger, "crawl run aborted; checkpoint left at last settled page", "crawl_run_aborted",
			append(attrs, logging.String(logging.FieldErrorHint, errorHint(err)))...)
		return r.report, err
	}
	if r.report.StopReason != "" {
		attrs = append(attrs, logging.String("stop_reason", r.report.StopReason))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "crawl_run_complete"))
	r.logger.Info("crawl run complete", logging.Args(attrs...)...)
	return r.report, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run) error {
	page, err := o.loadCheckpoint(ctx, r.cfg)
	if err != nil {
		return err
	}
	r.report.StartPage = page
	r.report.FinalCheckpoint = page

	if !r.cfg.ListOnly && !r.cfg.SkipRetry {
		if err := o.retryPending(ctx, r); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.cfg.MaxPages > 0 && page > r.cfg.MaxPages {
			r.report.StopReason = StopMaxPages
			return nil
		}
		if r.cfg.MaxItems > 0 && r.report.ItemsCollected >= r.cfg.MaxItems {
			r.report.StopReason = StopMaxItems
			return nil
		}

		refs, err := o.list.FetchPage(ctx, page)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				err = &FetchError{Page: page, Err: err}
			}
			return err
		}
		r.report.PagesVisited++
		if len(refs) == 0 {
			r.report.StopReason = StopExhausted
			r.logger.Info("listing exhausted", logging.Int(logging.FieldPage, page))
			return nil
		}

		if err := o.processPage(logging.WithPage(ctx, page), r, page, refs); err != nil {
			return err
		}

		next := page + 1
		if err := o.store.SetCheckpoint(ctx, r.cfg.CheckpointKey, strconv.Itoa(next)); err != nil {
			return err
		}
		r.report.PagesSettled++
		r.report.FinalCheckpoint = next
		page = next
	}
}

func (o *Orchestrator) loadCheckpoint(ctx context.Context, cfg RunConfig) (int, error) {
	value, ok, err := o.store.GetCheckpoint(ctx, cfg.CheckpointKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return cfg.StartPage, nil
	}
	page, convErr := strconv.Atoi(strings.TrimSpace(value))
	if convErr != nil || page < 1 {
		return 0, fmt.Errorf("%w: %s = %q (want a page number >= 1)", ErrInvalidCheckpoint, cfg.CheckpointKey, value)
	}
	return page, nil
}

// retryPending re-attempts detail work for items an earlier run saw but did
// not settle ok, using the listing snapshot stored with the record.
func (o *Orchestrator) retryPending(ctx context.Context, r *run) error {
	items, err := o.store.Pending(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	work := make([]ItemRef, 0, len(items))
	for _, item := range items {
		var ref ItemRef
		if err := json.Unmarshal(item.Ref, &ref); err != nil {
			logging.WarnWithContext(r.logger, "stored listing snapshot unreadable; item left for its page", "retry_snapshot_invalid",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item is retried only when its listing page is visited again"),
			)
			continue
		}
		ref.ID = item.ID
		r.attempted[ref.ID] = struct{}{}
		work = append(work, ref)
	}
	r.report.Retried = len(work)
	r.logger.Info("retrying unsettled items",
		logging.Int("count", len(work)),
		logging.String(logging.FieldEventType, "retry_pass"),
	)
	return o.dispatch(ctx, r, work)
}

// processPage records and settles every listed item. Sequential runs settle
// each item before looking at the next; concurrent runs record the whole page
// first and then fan out the detail work. The caller advances the checkpoint
// only when this returns nil.
func (o *Orchestrator) processPage(ctx context.Context, r *run, page int, refs []ItemRef) error {
	logger := logging.WithContext(ctx, o.logger)
	var (
		work       []ItemRef
		dispatched int
	)
	for idx, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(ref.ID) == "" {
			logging.WarnWithContext(logger, "listing row without id skipped", "item_missing_id",
				logging.Int("index", idx),
				logging.String("title", ref.Title),
				logging.String(logging.FieldImpact, "row is not recorded"),
			)
			continue
		}
		if ref.Page == 0 {
			ref.Page = page
		}
		if ref.Index == 0 {
			ref.Index = idx
		}
		if !r.filter.Match(ref) {
			r.report.Filtered++
			continue
		}

		snapshot, err := json.Marshal(ref)
		if err != nil {
			return fmt.Errorf("encode listing snapshot for %s: %w", ref.ID, err)
		}
		created, err := o.store.MarkSeen(ctx, ref.ID, snapshot)
		if err != nil {
			return err
		}
		if created {
			r.report.NewItems++
		}
		if err := o.append(ctx, r.cfg.RawStream, ref.ID, ListingRecord{Source: o.sourceInfo(r), Item: ref}); err != nil {
			return err
		}
		r.report.ItemsCollected++

		if r.cfg.ListOnly {
			continue
		}
		processed, err := o.store.IsProcessed(ctx, ref.ID)
		if err != nil {
			return err
		}
		if processed {
			r.report.Skipped++
			continue
		}
		if _, seen := r.attempted[ref.ID]; seen {
			r.report.Duplicates++
			continue
		}
		r.attempted[ref.ID] = struct{}{}
		dispatched++
		if r.cfg.DetailConcurrency <= 1 {
			if err := o.settle(ctx, r, ref); err != nil {
				return err
			}
			continue
		}
		work = append(work, ref)
	}

	if err := o.dispatch(ctx, r, work); err != nil {
		return err
	}
	logger.Info("page settled",
		logging.Int("items", len(refs)),
		logging.Int("dispatched", dispatched),
		logging.String(logging.FieldEventType, "page_settled"),
	)
	return nil
}

// dispatch settles detail work sequentially or on a bounded worker group.
// Every ref is unique, so at most one fetch per id is ever in flight.
func (o *Orchestrator) dispatch(ctx context.Context, r *run, work []ItemRef) error {
	if len(work) == 0 {
		return nil
	}
	if r.cfg.DetailConcurrency <= 1 || len(work) == 1 {
		for _, ref := range work {
			if err := o.settle(ctx, r, ref); err != nil {
				return err
			}
		}
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.DetailConcurrency)
	for _, ref := range work {
		group.Go(func() error {
			return o.settle(groupCtx, r, ref)
		})
	}
	return group.Wait()
}

// settle fetches one item's detail and records the outcome. Detail failures
// are recorded and swallowed; store, sink, and cancellation errors are returned.
func (o *Orchestrator) settle(ctx context.Context, r *run, ref ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result := o.detail.FetchDetail(ctx, ref)
	if !result.OK() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return o.recordFailure(ctx, r, ref, result.Err())
	}

	record := result.Record()
	if record.ID == "" {
		record.ID = ref.ID
	}
	if record.Title == "" {
		record.Title = ref.Title
	}
	if record.DetailURL == "" {
		record.DetailURL = ref.DetailURL
	}
	notice := NoticeRecord{Source: o.sourceInfo(r), Notice: record, ListItem: ref}
	if err := o.append(ctx, r.cfg.NormalizedStream, ref.ID, notice); err != nil {
		return err
	}
	if err := o.store.UpsertProcessed(ctx, ref.ID, state.StatusOK, record.ContentHash); err != nil {
		return err
	}
	r.outcomes.success()
	r.logger.Debug("item settled",
		logging.String(logging.FieldItemID, ref.ID),
		logging.String("title", ref.Title),
	)
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, r *run, ref ItemRef, cause error) error {
	if o.evidence != nil {
		if err := o.evidence.Record(ctx, ref, cause); err != nil {
			logging.WarnWithContext(r.logger, "evidence capture failed", "evidence_failed",
				logging.String(logging.FieldItemID, ref.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check errors_dir permissions and free space"),
				logging.String(logging.FieldImpact, "no artifacts saved for this failure"),
			)
		}
	}
	if err := o.store.UpsertProcessed(ctx, ref.ID, state.StatusError, ""); err != nil {
		return err
	}
	r.outcomes.failure()
	logging.WarnWithContext(r.logger, "detail fetch failed; item marked error", "item_failed",
		logging.String(logging.FieldItemID, ref.ID),
		logging.String("detail_url", ref.DetailURL),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "the next run retries this item"),
		logging.String(logging.FieldImpact, "item has no normalized record yet"),
	)
	return nil
}

func (o *Orchestrator) append(ctx context.Context, stream, id string, record any) error {
	if err := o.sink.Append(ctx, stream, record); err != nil {
		var sinkErr *SinkError
		if errors.As(err, &sinkErr) {
			return err
		}
		return &SinkError{Stream: stream, ID: id, Err: err}
	}
	return nil
}

func (o *Orchestrator) sourceInfo(r *run) SourceInfo {
	return SourceInfo{
		Site:        o.site,
		CollectedAt: o.now().UTC().Format(time.RFC3339),
		RunID:       r.cfg.RunID,
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, ErrFetch):
		return "check source reachability with 'harvester check'; the same page is retried next run"
	case errors.Is(err, ErrSink):
		return "check data_dir free space and permissions"
	case errors.Is(err, state.ErrStore):
		return "check state_dir permissions; run 'harvester status' to inspect the database"
	case errors.Is(err, ErrInvalidCheckpoint):
		return "reset the checkpoint with 'harvester checkpoint set'"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "run interrupted; re-run to resume from the checkpoint"
	default:
		return "check logs for details"
	}
}
