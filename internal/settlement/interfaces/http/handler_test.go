package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

type stubEngine struct {
	lastAsOf    time.Time
	lastTrig    string
	lastSweepAt time.Time
	runResult   *domain.Run
	sweepCount  int
	runs        []domain.Run
}

func (s *stubEngine) Run(_ context.Context, asOf time.Time, trigger string) (*domain.Run, error) {
	s.lastAsOf = asOf
	s.lastTrig = trigger
	return s.runResult, nil
}

func (s *stubEngine) SweepExpired(_ context.Context, asOf time.Time) (int, error) {
	s.lastSweepAt = asOf
	return s.sweepCount, nil
}

func (s *stubEngine) ListRuns(context.Context, int) ([]domain.Run, error) {
	return s.runs, nil
}

func newTestHandler(t *testing.T, engine *stubEngine) *http.ServeMux {
	t.Helper()
	handler, err := NewHandler(engine, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func TestTriggerRunWithAsOfOverride(t *testing.T) {
	engine := &stubEngine{runResult: &domain.Run{
		ID:             "run-abc",
		AsOf:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Trigger:        domain.TriggerManual,
		Status:         domain.RunStatusCompleted,
		PassesCredited: 3,
		TotalCredited:  2600,
	}}
	mux := newTestHandler(t, engine)

	body := strings.NewReader(`{"as_of":"2026-03-01"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/settlement/run", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if engine.lastTrig != domain.TriggerManual {
		t.Fatalf("trigger = %s", engine.lastTrig)
	}
	if !engine.lastAsOf.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("as_of = %v", engine.lastAsOf)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "completed" || resp["total_credited"] != float64(2600) {
		t.Fatalf("response = %v", resp)
	}
}

func TestTriggerRunRejectsBadDate(t *testing.T) {
	engine := &stubEngine{runResult: &domain.Run{}}
	mux := newTestHandler(t, engine)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/settlement/run", strings.NewReader(`{"as_of":"01/03/2026"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListRunsLimitValidation(t *testing.T) {
	engine := &stubEngine{runs: []domain.Run{{ID: "run-1", Status: domain.RunStatusCompleted}}}
	mux := newTestHandler(t, engine)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/settlement/runs?limit=0", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/settlement/runs", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "run-1") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestTriggerSweep(t *testing.T) {
	engine := &stubEngine{sweepCount: 4}
	mux := newTestHandler(t, engine)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/settlement/sweep", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["expired"] != 4 {
		t.Fatalf("expired = %d", resp["expired"])
	}
	if !engine.lastSweepAt.IsZero() {
		t.Fatalf("as_of = %v, want zero for a plain sweep", engine.lastSweepAt)
	}
}

func TestTriggerSweepWithAsOfOverride(t *testing.T) {
	engine := &stubEngine{sweepCount: 2}
	mux := newTestHandler(t, engine)

	body := strings.NewReader(`{"as_of":"2026-03-05"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/settlement/sweep", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !engine.lastSweepAt.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("as_of = %v", engine.lastSweepAt)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/settlement/sweep", strings.NewReader(`{"as_of":"05/03/2026"}`))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", w.Code)
	}
}
