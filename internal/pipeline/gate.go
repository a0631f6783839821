package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rebately/offersync/internal/store"
)

// LockStaleAfter is the age past which a processing lock is treated as
// abandoned by a crashed run.
const LockStaleAfter = 30 * time.Minute

// Denial reasons surfaced on the status endpoint.
const (
	ReasonCompletedToday = "already completed today"
	ReasonStopRequested  = "stop requested"
	ReasonOutsideWindow  = "outside window"
	ReasonAlreadyRunning = "already running"
)

// Decision is the gate's verdict for one invocation.
type Decision struct {
	Allow  bool
	Reason string
}

// Gate decides whether a sync invocation may start or continue, and owns
// lock acquisition. Denials never mutate sync state.
type Gate struct {
	store       *store.Store
	windowStart int // inclusive hour
	windowEnd   int // exclusive hour
}

// NewGate creates a gate processing within [windowStart, windowEnd) local
// hours.
func NewGate(s *store.Store, windowStart, windowEnd int) *Gate {
	return &Gate{store: s, windowStart: windowStart, windowEnd: windowEnd}
}

// ShouldRun applies the denial rules in order: completed-today, stop
// request (cleared when hit), time window (bypassed for manual triggers),
// live lock. Allowing acquires the lock at now.
func (g *Gate) ShouldRun(now time.Time, manual bool) (Decision, error) {
	today := now.Format("2006-01-02")

	completed, err := g.store.Marker(store.MarkerCompletedDate)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read completion marker: %w", err)
	}
	if completed == today {
		return Decision{Reason: ReasonCompletedToday}, nil
	}

	stop, err := g.store.StopRequested()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read stop flag: %w", err)
	}
	if stop {
		if err := g.store.SetStopRequested(false); err != nil {
			return Decision{}, fmt.Errorf("failed to clear stop flag: %w", err)
		}
		return Decision{Reason: ReasonStopRequested}, nil
	}

	if !manual && !inWindow(now, g.windowStart, g.windowEnd) {
		return Decision{Reason: ReasonOutsideWindow}, nil
	}

	acquiredAt, err := g.store.LockAcquiredAt()
	switch {
	case err == nil:
		if now.Sub(acquiredAt) <= LockStaleAfter {
			return Decision{Reason: ReasonAlreadyRunning}, nil
		}
		// Stale lock from a crashed run: eligible for pre-emption.
	case errors.Is(err, store.ErrNotFound):
	default:
		return Decision{}, fmt.Errorf("failed to read lock: %w", err)
	}

	if err := g.store.AcquireLock(now); err != nil {
		return Decision{}, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return Decision{Allow: true}, nil
}

// InWindow reports whether processing is allowed at now without a manual
// override.
func (g *Gate) InWindow(now time.Time) bool {
	return inWindow(now, g.windowStart, g.windowEnd)
}
