package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rebately/offersync/internal/store"
)

// Content kinds the enricher generates.
const (
	KindTitle            = "title"
	KindTerms            = "terms"
	KindBrandDescription = "brand_description"
	KindWhyWeLove        = "why_we_love"
)

// RetryDelay is how far in the future a failed call is rescheduled.
// Deliberately a single fixed delay consumed exactly once — no backoff, no
// retry budget.
const RetryDelay = time.Hour

// Prompts holds the per-kind prompt templates. Placeholders of the form
// {field} are substituted from the call's inputs.
type Prompts struct {
	Title            string
	Terms            string
	BrandDescription string
	WhyWeLove        string
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Title:            "Write a short, catchy coupon title (max 8 words) for this offer from {advertiser}: {description}",
		Terms:            "List the three most important terms and conditions for this offer, one per line: {description}",
		BrandDescription: "Write a two-paragraph store description for the brand {advertiser}. Plain HTML with <p> and <strong> only.",
		WhyWeLove:        "Give three short reasons (max 3 words each, one per line) why shoppers love {advertiser}.",
	}
}

// RetryQueue is the slice of the ops store the enricher needs.
type RetryQueue interface {
	EnqueueRetry(rec *store.RetryRecord) error
}

// retryPayload is persisted with each deferred call.
type retryPayload struct {
	Inputs  map[string]string `json:"inputs"`
	BrandID int64             `json:"brand_id,omitempty"`
}

// Enricher generates content with deferred-retry semantics: provider
// failures are never surfaced as errors, they become queue entries due in an
// hour.
type Enricher struct {
	provider Provider
	queue    RetryQueue
	prompts  Prompts
	now      func() time.Time
	logger   *slog.Logger
	icons    *iconPicker
}

// New creates an enricher.
func New(provider Provider, queue RetryQueue, prompts Prompts, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		provider: provider,
		queue:    queue,
		prompts:  prompts,
		now:      time.Now,
		logger:   logger,
		icons:    newIconPicker(),
	}
}

// SetClock overrides the time source (tests).
func (e *Enricher) SetClock(now func() time.Time) { e.now = now }

// Title generates an offer title. pending=true means the call failed and a
// retry entry was scheduled.
func (e *Enricher) Title(ctx context.Context, inputs map[string]string) (string, bool) {
	raw, ok := e.generate(ctx, KindTitle, inputs, 0)
	if !ok {
		return "", true
	}
	return CleanTitle(raw), false
}

// Terms generates exactly three term bullets.
func (e *Enricher) Terms(ctx context.Context, inputs map[string]string) ([]string, bool) {
	raw, ok := e.generate(ctx, KindTerms, inputs, 0)
	if !ok {
		return nil, true
	}
	return NormalizeTerms(raw), false
}

// BrandDescription generates an HTML description for a brand. brandID is
// carried in the retry payload so a later sweep can apply the result.
func (e *Enricher) BrandDescription(ctx context.Context, inputs map[string]string, brandID int64) (string, bool) {
	raw, ok := e.generate(ctx, KindBrandDescription, inputs, brandID)
	if !ok {
		return "", true
	}
	return CleanBrandDescription(raw, inputs["advertiser"]), false
}

// WhyWeLove generates up to three themed highlight phrases with icons.
func (e *Enricher) WhyWeLove(ctx context.Context, inputs map[string]string) ([]Highlight, bool) {
	raw, ok := e.generate(ctx, KindWhyWeLove, inputs, 0)
	if !ok {
		return nil, true
	}
	return e.icons.highlights(raw), false
}

// generate runs one provider call for kind. On failure it schedules a retry
// entry and reports ok=false.
func (e *Enricher) generate(ctx context.Context, kind string, inputs map[string]string, brandID int64) (string, bool) {
	prompt := e.buildPrompt(kind, inputs)

	out, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("enrichment call failed, deferring",
			"kind", kind, "error", err)
		e.scheduleRetry(kind, inputs, brandID)
		return "", false
	}
	return out, true
}

func (e *Enricher) scheduleRetry(kind string, inputs map[string]string, brandID int64) {
	if e.queue == nil {
		return
	}
	payload, err := json.Marshal(retryPayload{Inputs: inputs, BrandID: brandID})
	if err != nil {
		e.logger.Error("failed to marshal retry payload", "kind", kind, "error", err)
		return
	}
	rec := &store.RetryRecord{
		ID:          uuid.NewString(),
		Kind:        kind,
		PayloadJSON: string(payload),
		NotBefore:   e.now().Add(RetryDelay),
	}
	if err := e.queue.EnqueueRetry(rec); err != nil {
		e.logger.Error("failed to enqueue retry", "kind", kind, "error", err)
	}
}

func (e *Enricher) buildPrompt(kind string, inputs map[string]string) string {
	var tpl string
	switch kind {
	case KindTitle:
		tpl = e.prompts.Title
	case KindTerms:
		tpl = e.prompts.Terms
	case KindBrandDescription:
		tpl = e.prompts.BrandDescription
	case KindWhyWeLove:
		tpl = e.prompts.WhyWeLove
	default:
		tpl = "{description}"
	}

	pairs := make([]string, 0, len(inputs)*2)
	for k, v := range inputs {
		pairs = append(pairs, "{"+k+"}", sanitizeInput(v))
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// sanitizeInput strips markup and collapses whitespace before a field is
// interpolated into a prompt.
func sanitizeInput(s string) string {
	s = stripTags(s)
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// payloadFromJSON decodes a persisted retry payload.
func payloadFromJSON(raw string) (*retryPayload, error) {
	var p retryPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("invalid retry payload: %w", err)
	}
	return &p, nil
}
