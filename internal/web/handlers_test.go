package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rebately/offersync/internal/store"
)

var errMockStore = errors.New("store error")

// MockOpsStore implements OpsStore for testing
type MockOpsStore struct {
	SnapshotFunc         func() (*store.StatusSnapshot, error)
	SetManualStartFunc   func(on bool) error
	SetStopRequestedFunc func(on bool) error

	manualStart   bool
	stopRequested bool
}

func (m *MockOpsStore) Snapshot() (*store.StatusSnapshot, error) {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc()
	}
	return &store.StatusSnapshot{Status: store.StatusIdle}, nil
}

func (m *MockOpsStore) SetManualStart(on bool) error {
	if m.SetManualStartFunc != nil {
		return m.SetManualStartFunc(on)
	}
	m.manualStart = on
	return nil
}

func (m *MockOpsStore) SetStopRequested(on bool) error {
	if m.SetStopRequestedFunc != nil {
		return m.SetStopRequestedFunc(on)
	}
	m.stopRequested = on
	return nil
}

func newTestServer(ops OpsStore) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(ops)
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&MockOpsStore{})

	w := doRequest(s, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	t.Run("returns the snapshot", func(t *testing.T) {
		ops := &MockOpsStore{
			SnapshotFunc: func() (*store.StatusSnapshot, error) {
				return &store.StatusSnapshot{
					Status:  store.StatusRunning,
					Running: true,
					Cursor:  37,
					Total:   120,
					ForDate: "2025-03-01",
				}, nil
			},
		}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodGet, "/api/status", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var resp struct {
			Success bool                 `json:"success"`
			Status  store.StatusSnapshot `json:"status"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Success {
			t.Error("expected success")
		}
		if resp.Status.Cursor != 37 || resp.Status.Total != 120 {
			t.Errorf("snapshot = %+v, want cursor 37 of 120", resp.Status)
		}
		if !resp.Status.Running {
			t.Error("expected running snapshot")
		}
	})

	t.Run("maps store faults to 500", func(t *testing.T) {
		ops := &MockOpsStore{
			SnapshotFunc: func() (*store.StatusSnapshot, error) {
				return nil, errMockStore
			},
		}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodGet, "/api/status", nil)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

func TestHandleTrigger(t *testing.T) {
	t.Run("startNow records a manual start", func(t *testing.T) {
		ops := &MockOpsStore{}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodPost, "/api/trigger", TriggerRequest{StartNow: true})
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", w.Code)
		}
		if !ops.manualStart {
			t.Error("manual start should be recorded")
		}
		if ops.stopRequested {
			t.Error("stop flag should be untouched")
		}
	})

	t.Run("stopNow records a stop request", func(t *testing.T) {
		ops := &MockOpsStore{}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodPost, "/api/trigger", TriggerRequest{StopNow: true})
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", w.Code)
		}
		if !ops.stopRequested {
			t.Error("stop request should be recorded")
		}
	})

	t.Run("stop wins over a simultaneous start", func(t *testing.T) {
		ops := &MockOpsStore{}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodPost, "/api/trigger", TriggerRequest{StartNow: true, StopNow: true})
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", w.Code)
		}
		if ops.manualStart {
			t.Error("start should be dropped when stop is requested")
		}
		if !ops.stopRequested {
			t.Error("stop request should be recorded")
		}
	})

	t.Run("rejects an empty trigger", func(t *testing.T) {
		s := newTestServer(&MockOpsStore{})

		w := doRequest(s, http.MethodPost, "/api/trigger", TriggerRequest{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		s := newTestServer(&MockOpsStore{})

		req := httptest.NewRequest(http.MethodPost, "/api/trigger", bytes.NewBufferString("{broken"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("maps store faults to 500", func(t *testing.T) {
		ops := &MockOpsStore{
			SetStopRequestedFunc: func(on bool) error { return errMockStore },
		}
		s := newTestServer(ops)

		w := doRequest(s, http.MethodPost, "/api/trigger", TriggerRequest{StopNow: true})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}
