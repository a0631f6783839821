package store

import (
	"errors"
	"time"
)

// StatusSnapshot is the read-only operational view assembled from persisted
// state. External tooling distinguishes idle/running/completed/failed/stopped
// from this alone.
type StatusSnapshot struct {
	Status       string `json:"status"`
	Running      bool   `json:"running"`
	Cursor       int    `json:"cursor"`
	Total        int    `json:"total"`
	ForDate      string `json:"for_date,omitempty"`
	LastSync     string `json:"last_sync,omitempty"`
	LastSyncDate string `json:"last_sync_date,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// Snapshot assembles the operational status from markers and sync state.
func (s *Store) Snapshot() (*StatusSnapshot, error) {
	snap := &StatusSnapshot{Status: StatusIdle}

	if v, err := s.Marker(MarkerStatus); err != nil {
		return nil, err
	} else if v != "" {
		snap.Status = v
	}
	snap.Running = snap.Status == StatusRunning

	for key, dst := range map[string]*string{
		MarkerLastSync:     &snap.LastSync,
		MarkerLastSyncDate: &snap.LastSyncDate,
		MarkerLastError:    &snap.LastError,
	} {
		v, err := s.Marker(key)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	rec, err := s.GetSyncState()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return snap, nil
		}
		return nil, err
	}
	snap.Cursor = rec.Cursor
	snap.Total = rec.Total
	snap.ForDate = rec.ForDate
	return snap, nil
}

// SetStatus persists the status enum together with the running flag.
func (s *Store) SetStatus(status string) error {
	if err := s.SetMarker(MarkerStatus, status); err != nil {
		return err
	}
	running := "0"
	if status == StatusRunning {
		running = "1"
	}
	return s.SetMarker(MarkerRunning, running)
}

// RecordCompletion writes the completion marker and success timestamps for
// the given date.
func (s *Store) RecordCompletion(now time.Time, forDate string) error {
	if err := s.SetMarker(MarkerCompletedDate, forDate); err != nil {
		return err
	}
	if err := s.SetMarker(MarkerLastSync, now.Format(time.RFC3339)); err != nil {
		return err
	}
	return s.SetMarker(MarkerLastSyncDate, forDate)
}

// StopRequested reports whether the stop-request flag is set.
func (s *Store) StopRequested() (bool, error) {
	v, err := s.Marker(MarkerStopRequested)
	return v == "1", err
}

// SetStopRequested sets or clears the stop-request flag.
func (s *Store) SetStopRequested(on bool) error {
	if !on {
		return s.DeleteMarker(MarkerStopRequested)
	}
	return s.SetMarker(MarkerStopRequested, "1")
}

// ManualStartRequested reports whether a manual trigger is pending.
func (s *Store) ManualStartRequested() (bool, error) {
	v, err := s.Marker(MarkerManualStart)
	return v == "1", err
}

// SetManualStart sets or clears the pending manual trigger.
func (s *Store) SetManualStart(on bool) error {
	if !on {
		return s.DeleteMarker(MarkerManualStart)
	}
	return s.SetMarker(MarkerManualStart, "1")
}
