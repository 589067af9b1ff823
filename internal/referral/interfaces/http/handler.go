// Package http exposes the referral endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/referral/application"
)

// Handler serves the referral API.
type Handler struct {
	service *application.Service
	logger  *zap.Logger
}

// NewHandler constructs the referral handler.
func NewHandler(service *application.Service, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("referral http: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the referral routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/referrals/stats", h.stats)
	mux.HandleFunc("GET /api/v1/referrals/referees", h.referees)
	mux.HandleFunc("GET /api/v1/referrals/commissions", h.commissions)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		h.logger.Error("referral stats failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "referral stats failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"referee_count":    stats.RefereeCount,
		"commission_count": stats.CommissionCount,
		"total_commission": stats.TotalCommission,
	})
}

func (h *Handler) referees(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	referees, err := h.service.Referees(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing referees failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing referees failed")
		return
	}

	type refereeResponse struct {
		UserID          int64  `json:"user_id"`
		Name            string `json:"name"`
		JoinedAt        string `json:"joined_at"`
		TotalCommission int64  `json:"total_commission"`
	}
	out := make([]refereeResponse, 0, len(referees))
	for _, referee := range referees {
		out = append(out, refereeResponse{
			UserID:          referee.UserID,
			Name:            referee.Name,
			JoinedAt:        referee.JoinedAt.Format(time.RFC3339),
			TotalCommission: referee.TotalCommission,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"referees": out})
}

func (h *Handler) commissions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	commissions, err := h.service.Commissions(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing commissions failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing commissions failed")
		return
	}

	type commissionResponse struct {
		ID         int64  `json:"id"`
		RefereeID  int64  `json:"referee_id"`
		UserPassID int64  `json:"user_pass_id"`
		Amount     int64  `json:"amount"`
		Status     string `json:"status"`
		CreatedAt  string `json:"created_at"`
	}
	out := make([]commissionResponse, 0, len(commissions))
	for _, c := range commissions {
		out = append(out, commissionResponse{
			ID:         c.ID,
			RefereeID:  c.RefereeID,
			UserPassID: c.UserPassID,
			Amount:     c.Amount,
			Status:     c.Status,
			CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"commissions": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
