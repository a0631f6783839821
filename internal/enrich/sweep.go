package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/rebately/offersync/internal/contentstore"
	"github.com/rebately/offersync/internal/store"
)

// SweepQueue is the slice of the ops store the sweeper needs.
type SweepQueue interface {
	DueRetries(now time.Time) ([]*store.RetryRecord, error)
	DeleteRetry(id string) error
}

// Sweeper consumes due retry entries. Each entry is deleted before the
// re-attempt, so it is consumed exactly once regardless of outcome.
type Sweeper struct {
	enricher *Enricher
	queue    SweepQueue
	content  contentstore.Store
	now      func() time.Time
	logger   *slog.Logger
}

// NewSweeper creates a sweeper.
func NewSweeper(enricher *Enricher, queue SweepQueue, content contentstore.Store, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		enricher: enricher,
		queue:    queue,
		content:  content,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides the time source (tests).
func (s *Sweeper) SetClock(now func() time.Time) { s.now = now }

// Sweep processes all due entries and returns how many were consumed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	due, err := s.queue.DueRetries(s.now())
	if err != nil {
		return 0, err
	}

	consumed := 0
	for _, rec := range due {
		if err := s.queue.DeleteRetry(rec.ID); err != nil {
			s.logger.Error("failed to consume retry entry", "id", rec.ID, "error", err)
			continue
		}
		consumed++
		s.process(ctx, rec)
	}
	return consumed, nil
}

func (s *Sweeper) process(ctx context.Context, rec *store.RetryRecord) {
	payload, err := payloadFromJSON(rec.PayloadJSON)
	if err != nil {
		s.logger.Warn("dropping retry entry with bad payload", "id", rec.ID, "error", err)
		return
	}

	out, err := s.enricher.provider.Complete(ctx, s.enricher.buildPrompt(rec.Kind, payload.Inputs))
	if err != nil {
		// Consumed regardless of outcome; the failure is terminal for this
		// entry.
		s.logger.Warn("retried enrichment failed", "id", rec.ID, "kind", rec.Kind, "error", err)
		return
	}

	switch rec.Kind {
	case KindBrandDescription:
		if payload.BrandID == 0 || s.content == nil {
			return
		}
		desc := CleanBrandDescription(out, payload.Inputs["advertiser"])
		if err := s.content.UpdateBrandField(ctx, payload.BrandID, "description", desc); err != nil {
			s.logger.Warn("failed to apply retried brand description",
				"brand_id", payload.BrandID, "error", err)
			return
		}
		s.logger.Info("applied retried brand description", "brand_id", payload.BrandID)
	default:
		// Offer-level content for an offer that was deferred last run; the
		// next daily run recreates the offer and regenerates it.
		s.logger.Info("retried enrichment succeeded with no target",
			"id", rec.ID, "kind", rec.Kind)
	}
}
