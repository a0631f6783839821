package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/rebately/offersync/internal/store"
)

func TestGateShouldRun(t *testing.T) {
	t.Run("allows inside window and acquires the lock", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		now := nightTime()

		dec, err := env.gate.ShouldRun(now, false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if !dec.Allow {
			t.Fatalf("expected allow, got denial %q", dec.Reason)
		}
		acquiredAt, err := env.store.LockAcquiredAt()
		if err != nil {
			t.Fatalf("expected lock to be held: %v", err)
		}
		if !acquiredAt.Equal(now) {
			t.Errorf("lock acquired at %v, want %v", acquiredAt, now)
		}
	})

	t.Run("denies when today is already completed", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		now := nightTime()
		if err := env.store.RecordCompletion(now.Add(-time.Hour), now.Format("2006-01-02")); err != nil {
			t.Fatalf("RecordCompletion failed: %v", err)
		}

		dec, err := env.gate.ShouldRun(now, true)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if dec.Allow || dec.Reason != ReasonCompletedToday {
			t.Errorf("got (%v, %q), want denial %q", dec.Allow, dec.Reason, ReasonCompletedToday)
		}
	})

	t.Run("allows again the day after a completion", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		yesterday := nightTime().AddDate(0, 0, -1)
		if err := env.store.RecordCompletion(yesterday, yesterday.Format("2006-01-02")); err != nil {
			t.Fatalf("RecordCompletion failed: %v", err)
		}

		dec, err := env.gate.ShouldRun(nightTime(), false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if !dec.Allow {
			t.Errorf("expected allow, got denial %q", dec.Reason)
		}
	})

	t.Run("denies and clears a pending stop request", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		if err := env.store.SetStopRequested(true); err != nil {
			t.Fatalf("SetStopRequested failed: %v", err)
		}

		dec, err := env.gate.ShouldRun(nightTime(), false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if dec.Allow || dec.Reason != ReasonStopRequested {
			t.Errorf("got (%v, %q), want denial %q", dec.Allow, dec.Reason, ReasonStopRequested)
		}
		stop, err := env.store.StopRequested()
		if err != nil {
			t.Fatalf("StopRequested failed: %v", err)
		}
		if stop {
			t.Error("stop flag should be cleared by the denial")
		}
	})

	t.Run("denies outside the window unless manual", func(t *testing.T) {
		env := newTestEnv(t, Config{})

		dec, err := env.gate.ShouldRun(dayTime(), false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if dec.Allow || dec.Reason != ReasonOutsideWindow {
			t.Errorf("got (%v, %q), want denial %q", dec.Allow, dec.Reason, ReasonOutsideWindow)
		}

		dec, err = env.gate.ShouldRun(dayTime(), true)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if !dec.Allow {
			t.Errorf("manual trigger should bypass the window, got denial %q", dec.Reason)
		}
	})

	t.Run("denies while a fresh lock is held", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		now := nightTime()
		if err := env.store.AcquireLock(now.Add(-5 * time.Minute)); err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		dec, err := env.gate.ShouldRun(now, false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if dec.Allow || dec.Reason != ReasonAlreadyRunning {
			t.Errorf("got (%v, %q), want denial %q", dec.Allow, dec.Reason, ReasonAlreadyRunning)
		}
	})

	t.Run("treats a lock older than the staleness bound as absent", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		now := nightTime()
		if err := env.store.AcquireLock(now.Add(-31 * time.Minute)); err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		dec, err := env.gate.ShouldRun(now, false)
		if err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}
		if !dec.Allow {
			t.Fatalf("stale lock should be pre-empted, got denial %q", dec.Reason)
		}
		acquiredAt, err := env.store.LockAcquiredAt()
		if err != nil {
			t.Fatalf("expected lock to be re-acquired: %v", err)
		}
		if !acquiredAt.Equal(now) {
			t.Errorf("lock re-acquired at %v, want %v", acquiredAt, now)
		}
	})

	t.Run("denials leave sync state untouched", func(t *testing.T) {
		env := newTestEnv(t, Config{})
		rec := &store.SyncRecord{
			ItemsJSON: "[]",
			Cursor:    3,
			Total:     10,
			StartedAt: nightTime(),
			ForDate:   nightTime().Format("2006-01-02"),
		}
		if err := env.store.SaveSyncState(rec); err != nil {
			t.Fatalf("SaveSyncState failed: %v", err)
		}

		if _, err := env.gate.ShouldRun(dayTime(), false); err != nil {
			t.Fatalf("ShouldRun failed: %v", err)
		}

		got, err := env.store.GetSyncState()
		if err != nil {
			t.Fatalf("GetSyncState failed: %v", err)
		}
		if got.Cursor != 3 || got.Total != 10 {
			t.Errorf("sync state mutated by denial: cursor=%d total=%d", got.Cursor, got.Total)
		}
	})
}

func TestGateInWindow(t *testing.T) {
	g := NewGate(nil, 0, 6)
	if !g.InWindow(nightTime()) {
		t.Error("02:00 should be inside [0,6)")
	}
	if g.InWindow(time.Date(2025, 3, 1, 6, 0, 0, 0, time.Local)) {
		t.Error("06:00 should be outside [0,6)")
	}
	if g.InWindow(dayTime()) {
		t.Error("14:00 should be outside [0,6)")
	}

	wrapped := NewGate(nil, 22, 4)
	if !wrapped.InWindow(time.Date(2025, 3, 1, 23, 0, 0, 0, time.Local)) {
		t.Error("23:00 should be inside the wrapped [22,4) window")
	}
	if wrapped.InWindow(time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)) {
		t.Error("12:00 should be outside the wrapped [22,4) window")
	}
}

func TestGateErrNotFoundPassthrough(t *testing.T) {
	// LockAcquiredAt's not-found sentinel must be the one the gate matches
	// on, otherwise a missing lock would read as a store fault.
	env := newTestEnv(t, Config{})
	if _, err := env.store.LockAcquiredAt(); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing lock, got %v", err)
	}
}
