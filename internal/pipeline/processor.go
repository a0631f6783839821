package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rebately/offersync/internal/contentstore"
	"github.com/rebately/offersync/internal/enrich"
	"github.com/rebately/offersync/internal/store"
	"github.com/rebately/offersync/internal/upstream"
)

// Outcome of one chunk invocation.
type Outcome string

const (
	// OutcomeContinue means more items remain; re-enter after the chunk
	// delay.
	OutcomeContinue Outcome = "continue"
	// OutcomePaused means the window closed mid-run; state is preserved.
	OutcomePaused Outcome = "paused"
	// OutcomeCompleted means the run finished and today is marked done.
	OutcomeCompleted Outcome = "completed"
	// OutcomeStopped means a stop request ended the run; state discarded.
	OutcomeStopped Outcome = "stopped"
	// OutcomeFailed means a fatal error aborted the run.
	OutcomeFailed Outcome = "failed"
	// OutcomeDenied means the scheduler gate refused the invocation.
	OutcomeDenied Outcome = "denied"
)

// CampaignSource is the network A fetch surface.
type CampaignSource interface {
	Advertisers(ctx context.Context) ([]upstream.Advertiser, error)
	Campaigns(ctx context.Context) ([]upstream.Campaign, error)
}

// PromotionSource is the network B fetch surface. ProgrammeDetail is
// quota-sensitive and is only called through the rate limiter.
type PromotionSource interface {
	Promotions(ctx context.Context, region string) ([]upstream.Promotion, error)
	ProgrammeDetail(ctx context.Context, advertiserID int64) (*upstream.ProgrammeInfo, error)
}

// BrandResolver matches advertiser names to brands.
type BrandResolver interface {
	Resolve(ctx context.Context, rawName string) (*contentstore.Brand, error)
}

// ContentEnricher generates missing content. A pending result means the
// call was deferred to the retry queue.
type ContentEnricher interface {
	Title(ctx context.Context, inputs map[string]string) (string, bool)
	Terms(ctx context.Context, inputs map[string]string) ([]string, bool)
	BrandDescription(ctx context.Context, inputs map[string]string, brandID int64) (string, bool)
	WhyWeLove(ctx context.Context, inputs map[string]string) ([]enrich.Highlight, bool)
}

// URLShortener shortens tracking URLs; failures fall back to the long URL.
type URLShortener interface {
	CreateShortURL(ctx context.Context, longURL, keyword string) (string, error)
}

// RateLimiter throttles quota-sensitive upstream calls.
type RateLimiter interface {
	Acquire(ctx context.Context) error
}

// Config carries the processor's tunables.
type Config struct {
	Market      string
	BatchSize   int
	WindowStart int
	WindowEnd   int
	ChunkDelay  time.Duration
}

// Result summarizes one chunk invocation.
type Result struct {
	Outcome   Outcome
	Reason    string
	Processed int
	Created   int
	Skipped   int
	Deferred  int
	Failed    int
	Cursor    int
	Total     int
	Err       error
}

// Processor drives the chunked state machine over the durable sync state.
// All item work within an invocation runs sequentially on the calling
// goroutine; per-item network calls must stay throttled and ordered.
type Processor struct {
	cfg       Config
	store     *store.Store
	content   contentstore.Store
	campaigns CampaignSource
	promos    PromotionSource
	resolver  BrandResolver
	enricher  ContentEnricher
	shortener URLShortener
	limiter   RateLimiter
	logger    *slog.Logger
}

// ProcessorDeps holds the processor's collaborators.
type ProcessorDeps struct {
	Store     *store.Store
	Content   contentstore.Store
	Campaigns CampaignSource
	Promos    PromotionSource
	Resolver  BrandResolver
	Enricher  ContentEnricher
	Shortener URLShortener
	Limiter   RateLimiter
	Logger    *slog.Logger
}

// NewProcessor creates a processor.
func NewProcessor(cfg Config, deps ProcessorDeps) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = 45 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:       cfg,
		store:     deps.Store,
		content:   deps.Content,
		campaigns: deps.Campaigns,
		promos:    deps.Promos,
		resolver:  deps.Resolver,
		enricher:  deps.Enricher,
		shortener: deps.Shortener,
		limiter:   deps.Limiter,
		logger:    logger,
	}
}

// ChunkDelay is the configured inter-chunk re-enqueue delay.
func (p *Processor) ChunkDelay() time.Duration { return p.cfg.ChunkDelay }

// RunChunk executes one invocation of the state machine: initialize the run
// if no valid state exists for today, process one chunk, then decide the
// transition. Fatal errors abort the run and leave today unmarked so a
// later invocation may retry.
func (p *Processor) RunChunk(ctx context.Context, now time.Time, manual bool) *Result {
	today := now.Format("2006-01-02")

	rec, err := p.store.GetSyncState()
	switch {
	case errors.Is(err, store.ErrNotFound):
		rec = nil
	case err != nil:
		return p.fail(fmt.Errorf("failed to load sync state: %w", err))
	case rec.ForDate != today:
		// Leftover state from an earlier day; a new daily run begins.
		if err := p.store.ClearSyncState(); err != nil {
			return p.fail(fmt.Errorf("failed to clear stale sync state: %w", err))
		}
		rec = nil
	}

	if rec == nil {
		rec, err = p.initialize(ctx, now, today)
		if err != nil {
			return p.fail(err)
		}
		if rec.Total == 0 {
			p.logger.Info("no work items for today, completing")
			return p.complete(now, today, &Result{})
		}
	}

	items, err := DecodeItems(rec.ItemsJSON)
	if err != nil {
		return p.fail(fmt.Errorf("corrupt sync state: %w", err))
	}

	if err := p.store.SetStatus(store.StatusRunning); err != nil {
		return p.fail(fmt.Errorf("failed to set status: %w", err))
	}

	res := &Result{Cursor: rec.Cursor, Total: rec.Total}
	end := rec.Cursor + p.cfg.BatchSize
	if end > rec.Total {
		end = rec.Total
	}

	for i := rec.Cursor; i < end; i++ {
		itemRes, err := p.processItem(ctx, items[i])
		if err != nil {
			res.Failed++
			p.logger.Error("item processing failed",
				"external_id", items[i].ExternalID(),
				"advertiser", items[i].AdvertiserName(),
				"error", err)
			continue
		}
		res.Processed++
		switch itemRes {
		case itemCreated:
			res.Created++
		case itemSkipped:
			res.Skipped++
		case itemDeferred:
			res.Deferred++
		}
	}
	res.Cursor = end

	// Transition decision, checked only at chunk boundaries.
	stop, err := p.store.StopRequested()
	if err != nil {
		return p.fail(fmt.Errorf("failed to read stop flag: %w", err))
	}
	if stop {
		return p.stop(res)
	}

	if !manual && !inWindow(now, p.cfg.WindowStart, p.cfg.WindowEnd) {
		return p.pause(res)
	}

	if res.Cursor >= rec.Total {
		return p.complete(now, today, res)
	}

	if err := p.store.UpdateCursor(res.Cursor); err != nil {
		return p.fail(fmt.Errorf("failed to persist cursor: %w", err))
	}
	if err := p.store.RefreshLock(now); err != nil {
		return p.fail(fmt.Errorf("failed to refresh lock: %w", err))
	}
	res.Outcome = OutcomeContinue
	p.logger.Info("chunk processed",
		"cursor", res.Cursor, "total", res.Total,
		"created", res.Created, "failed", res.Failed)
	return res
}

// initialize fetches and normalizes upstream data for a new daily run.
// A failed bulk fetch yields zero items for that source; only store faults
// are fatal here.
func (p *Processor) initialize(ctx context.Context, now time.Time, today string) (*store.SyncRecord, error) {
	advertisers, err := p.campaigns.Advertisers(ctx)
	if err != nil {
		p.logger.Warn("advertiser fetch failed, continuing without network A", "error", err)
		advertisers = nil
	}
	campaigns, err := p.campaigns.Campaigns(ctx)
	if err != nil {
		p.logger.Warn("campaign fetch failed, continuing without network A", "error", err)
		campaigns = nil
	}

	promotions, err := p.promos.Promotions(ctx, p.cfg.Market)
	if err != nil {
		p.logger.Warn("promotion fetch failed, continuing without network B", "error", err)
		promotions = nil
	}

	items := Normalize(advertisers, campaigns, promotions, p.cfg.Market)
	itemsJSON, err := EncodeItems(items)
	if err != nil {
		return nil, err
	}

	rec := &store.SyncRecord{
		ItemsJSON: itemsJSON,
		Cursor:    0,
		Total:     len(items),
		StartedAt: now,
		ForDate:   today,
	}
	if rec.Total > 0 {
		if err := p.store.SaveSyncState(rec); err != nil {
			return nil, fmt.Errorf("failed to save sync state: %w", err)
		}
	}
	p.logger.Info("sync initialized",
		"total", rec.Total,
		"campaigns", len(campaigns),
		"promotions", len(promotions))
	return rec, nil
}

func (p *Processor) complete(now time.Time, today string, res *Result) *Result {
	res.Outcome = OutcomeCompleted
	if err := p.store.RecordCompletion(now, today); err != nil {
		return p.fail(fmt.Errorf("failed to record completion: %w", err))
	}
	p.teardown(store.StatusCompleted)
	p.logger.Info("sync completed", "created", res.Created, "failed", res.Failed)
	return res
}

func (p *Processor) stop(res *Result) *Result {
	res.Outcome = OutcomeStopped
	// The stop request is consumed by stopping.
	if err := p.store.SetStopRequested(false); err != nil {
		p.logger.Error("failed to clear stop flag", "error", err)
	}
	p.teardown(store.StatusStopped)
	p.logger.Info("sync stopped", "cursor", res.Cursor, "total", res.Total)
	return res
}

// pause preserves state as-is; only the lock is released so the next
// in-window invocation can resume at the same cursor.
func (p *Processor) pause(res *Result) *Result {
	res.Outcome = OutcomePaused
	if err := p.store.UpdateCursor(res.Cursor); err != nil {
		return p.fail(fmt.Errorf("failed to persist cursor on pause: %w", err))
	}
	if err := p.store.ReleaseLock(); err != nil {
		p.logger.Error("failed to release lock on pause", "error", err)
	}
	if err := p.store.SetStatus(store.StatusIdle); err != nil {
		p.logger.Error("failed to set status on pause", "error", err)
	}
	p.logger.Info("sync paused outside window", "cursor", res.Cursor, "total", res.Total)
	return res
}

func (p *Processor) fail(err error) *Result {
	p.logger.Error("sync run failed", "error", err)
	if serr := p.store.SetMarker(store.MarkerLastError, err.Error()); serr != nil {
		p.logger.Error("failed to record last error", "error", serr)
	}
	p.teardown(store.StatusFailed)
	return &Result{Outcome: OutcomeFailed, Err: err}
}

// teardown releases the lock and clears sync state for every terminal
// transition.
func (p *Processor) teardown(status string) {
	if err := p.store.ClearSyncState(); err != nil {
		p.logger.Error("failed to clear sync state", "error", err)
	}
	if err := p.store.ReleaseLock(); err != nil {
		p.logger.Error("failed to release lock", "error", err)
	}
	if err := p.store.SetStatus(status); err != nil {
		p.logger.Error("failed to set status", "error", err)
	}
}

func inWindow(now time.Time, start, end int) bool {
	h := now.Hour()
	if start <= end {
		return h >= start && h < end
	}
	return h >= start || h < end
}
