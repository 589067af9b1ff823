// Package http exposes the settlement admin endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/audit"
	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

// Engine is the application surface the handler needs.
type Engine interface {
	Run(ctx context.Context, asOf time.Time, trigger string) (*domain.Run, error)
	SweepExpired(ctx context.Context, asOf time.Time) (int, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

// Auditor records admin actions.
type Auditor interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Handler serves the settlement admin API.
type Handler struct {
	engine  Engine
	auditor Auditor
	logger  *zap.Logger
}

// NewHandler constructs the settlement handler.
func NewHandler(engine Engine, auditor Auditor, logger *zap.Logger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("settlement http: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, auditor: auditor, logger: logger}, nil
}

// Register mounts the settlement routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/settlement/run", h.triggerRun)
	mux.HandleFunc("POST /api/v1/settlement/sweep", h.triggerSweep)
	mux.HandleFunc("GET /api/v1/settlement/runs", h.listRuns)
}

type runRequest struct {
	AsOf string `json:"as_of"`
}

type runResponse struct {
	ID             string `json:"id"`
	AsOf           string `json:"as_of"`
	Trigger        string `json:"trigger"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at"`
	Status         string `json:"status"`
	PassesCredited int    `json:"passes_credited"`
	PassesSkipped  int    `json:"passes_skipped"`
	PassesFailed   int    `json:"passes_failed"`
	TotalCredited  int64  `json:"total_credited"`
	ErrorSummary   string `json:"error_summary,omitempty"`
}

func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	run, err := h.engine.Run(r.Context(), asOf, domain.TriggerManual)
	if err != nil {
		h.logger.Error("manual settlement run failed", zap.Error(err))
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, toRunResponse(*run))
			return
		}
		writeError(w, http.StatusInternalServerError, "settlement run failed")
		return
	}

	h.auditAction(r, "settlement.run", run.ID, map[string]string{
		"as_of":  domain.DateKey(run.AsOf),
		"status": run.Status,
	})
	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

func (h *Handler) triggerSweep(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	expired, err := h.engine.SweepExpired(r.Context(), asOf)
	if err != nil {
		h.logger.Error("manual expiry sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "expiry sweep failed")
		return
	}
	details := map[string]string{"expired": strconv.Itoa(expired)}
	if !asOf.IsZero() {
		details["as_of"] = domain.DateKey(asOf)
	}
	h.auditAction(r, "settlement.sweep", "", details)
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.engine.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing settlement runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (h *Handler) auditAction(r *http.Request, action, resourceID string, metadata map[string]string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        auth.EmailFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "settlement_run",
		ResourceID:   resourceID,
		Metadata:     metadata,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func toRunResponse(run domain.Run) runResponse {
	return runResponse{
		ID:             run.ID,
		AsOf:           run.AsOf.Format("2006-01-02"),
		Trigger:        run.Trigger,
		StartedAt:      run.StartedAt.Format(time.RFC3339),
		FinishedAt:     run.FinishedAt.Format(time.RFC3339),
		Status:         run.Status,
		PassesCredited: run.PassesCredited,
		PassesSkipped:  run.PassesSkipped,
		PassesFailed:   run.PassesFailed,
		TotalCredited:  run.TotalCredited,
		ErrorSummary:   run.ErrorSummary,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
