package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/rebately/offersync/internal/store"
)

// Pipeline ties the scheduler gate and the chunk processor together. One
// Run is a complete gated invocation: if the gate allows, chunks are
// processed with a timer re-enqueue between them until the state machine
// reaches a non-continue outcome.
type Pipeline struct {
	gate      *Gate
	processor *Processor
	store     *store.Store
	logger    *slog.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a pipeline from a gate and processor sharing the same ops
// store.
func New(gate *Gate, processor *Processor, s *store.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gate:      gate,
		processor: processor,
		store:     s,
		logger:    logger,
		now:       time.Now,
		wait:      waitCtx,
	}
}

// SetClock overrides the time source (tests).
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// SetWait overrides the inter-chunk timer (tests).
func (p *Pipeline) SetWait(wait func(ctx context.Context, d time.Duration) error) { p.wait = wait }

// Tick is the scheduled entry point. A pending manual-start request is
// consumed and upgrades the tick to a manual trigger.
func (p *Pipeline) Tick(ctx context.Context) (*Result, error) {
	manual, err := p.store.ManualStartRequested()
	if err != nil {
		return nil, err
	}
	if manual {
		if err := p.store.SetManualStart(false); err != nil {
			return nil, err
		}
	}
	return p.Run(ctx, manual)
}

// Run executes one gated invocation to its terminal outcome.
func (p *Pipeline) Run(ctx context.Context, manual bool) (*Result, error) {
	decision, err := p.gate.ShouldRun(p.now(), manual)
	if err != nil {
		return nil, err
	}
	if !decision.Allow {
		p.logger.Debug("sync denied", "reason", decision.Reason)
		return &Result{Outcome: OutcomeDenied, Reason: decision.Reason}, nil
	}

	res := p.processor.RunChunk(ctx, p.now(), manual)
	for res.Outcome == OutcomeContinue {
		if err := p.wait(ctx, p.processor.ChunkDelay()); err != nil {
			// Shutdown between chunks: leave state for the next tick to
			// resume; the lock goes with us.
			if rerr := p.store.ReleaseLock(); rerr != nil {
				p.logger.Error("failed to release lock on shutdown", "error", rerr)
			}
			res.Outcome = OutcomePaused
			return res, nil
		}
		res = p.processor.RunChunk(ctx, p.now(), manual)
	}
	return res, nil
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
