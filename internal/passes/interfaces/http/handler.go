// Package http exposes the pass catalogue and purchase endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/passes/application"
	"github.com/xhris2006/moninvest/internal/passes/domain"
)

// Handler serves the pass API.
type Handler struct {
	service *application.Service
	logger  *zap.Logger
}

// NewHandler constructs the pass handler.
func NewHandler(service *application.Service, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("passes http: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the pass routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/passes", h.catalogue)
	mux.HandleFunc("GET /api/v1/passes/{id}", h.details)
	mux.HandleFunc("POST /api/v1/passes/calculate", h.calculate)
	mux.HandleFunc("POST /api/v1/passes/purchase", h.purchase)
	mux.HandleFunc("GET /api/v1/passes/active", h.active)
	mux.HandleFunc("GET /api/v1/passes/history", h.history)
}

type passResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	DailyRateBp  int64  `json:"daily_rate_bp"`
	DurationDays int    `json:"duration_days"`
}

type userPassResponse struct {
	ID            int64  `json:"id"`
	PassID        int64  `json:"pass_id"`
	PassName      string `json:"pass_name"`
	Principal     int64  `json:"principal"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"`
	DaysRemaining int    `json:"days_remaining"`
}

func (h *Handler) catalogue(w http.ResponseWriter, r *http.Request) {
	passes, err := h.service.Catalogue(r.Context())
	if err != nil {
		h.logger.Error("listing catalogue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing passes failed")
		return
	}
	out := make([]passResponse, 0, len(passes))
	for _, pass := range passes {
		out = append(out, passResponse{
			ID:           pass.ID,
			Name:         pass.Name,
			Price:        pass.Price,
			DailyRateBp:  pass.DailyRateBp,
			DurationDays: pass.DurationDays,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"passes": out})
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request) {
	passID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || passID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid pass id")
		return
	}
	pass, err := h.service.Details(r.Context(), passID)
	if err != nil {
		if errors.Is(err, domain.ErrPassNotFound) {
			writeError(w, http.StatusNotFound, "pass not found")
			return
		}
		h.logger.Error("loading pass failed", zap.Int64("pass_id", passID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading pass failed")
		return
	}
	writeJSON(w, http.StatusOK, passResponse{
		ID:           pass.ID,
		Name:         pass.Name,
		Price:        pass.Price,
		DailyRateBp:  pass.DailyRateBp,
		DurationDays: pass.DurationDays,
	})
}

type calculateRequest struct {
	PassID int64 `json:"pass_id"`
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PassID <= 0 {
		writeError(w, http.StatusBadRequest, "pass_id is required")
		return
	}
	projection, err := h.service.Calculate(r.Context(), req.PassID)
	if err != nil {
		if errors.Is(err, domain.ErrPassNotFound) {
			writeError(w, http.StatusNotFound, "pass not found")
			return
		}
		h.logger.Error("projection failed", zap.Int64("pass_id", req.PassID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "projection failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"principal":    projection.Principal,
		"daily_gain":   projection.DailyGain,
		"days":         projection.Days,
		"total_gain":   projection.TotalGain,
		"total_return": projection.TotalReturn,
	})
}

type purchaseRequest struct {
	PassID int64 `json:"pass_id"`
}

func (h *Handler) purchase(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PassID <= 0 {
		writeError(w, http.StatusBadRequest, "pass_id is required")
		return
	}

	userPass, err := h.service.Purchase(r.Context(), userID, req.PassID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPassNotFound):
			writeError(w, http.StatusNotFound, "pass not found")
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
		default:
			h.logger.Error("purchase failed", zap.Int64("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "purchase failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, h.toUserPassResponse(*userPass))
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	h.listUserPasses(w, r, true)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	h.listUserPasses(w, r, false)
}

func (h *Handler) listUserPasses(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var (
		passes []domain.UserPass
		err    error
	)
	if activeOnly {
		passes, err = h.service.Active(r.Context(), userID)
	} else {
		passes, err = h.service.History(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error("listing user passes failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing passes failed")
		return
	}

	out := make([]userPassResponse, 0, len(passes))
	for _, up := range passes {
		out = append(out, h.toUserPassResponse(up))
	}
	writeJSON(w, http.StatusOK, map[string]any{"passes": out})
}

func (h *Handler) toUserPassResponse(up domain.UserPass) userPassResponse {
	return userPassResponse{
		ID:            up.ID,
		PassID:        up.PassID,
		PassName:      up.PassName,
		Principal:     up.Principal,
		StartDate:     up.StartDate.Format("2006-01-02"),
		EndDate:       up.EndDate.Format("2006-01-02"),
		Status:        up.Status,
		DaysRemaining: up.DaysRemaining(h.service.Now()),
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
