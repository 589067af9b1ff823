// Package http exposes the claims endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/claims/application"
	"github.com/xhris2006/moninvest/internal/claims/domain"
)

// Handler serves the claims API.
type Handler struct {
	service *application.Service
	logger  *zap.Logger
}

// NewHandler constructs the claims handler.
func NewHandler(service *application.Service, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("claims http: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the claims routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/claims", h.create)
	mux.HandleFunc("GET /api/v1/claims", h.list)
	mux.HandleFunc("GET /api/v1/claims/{reference}", h.get)
	mux.HandleFunc("PUT /api/v1/claims/{id}", h.update)
}

type createRequest struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

type claimResponse struct {
	ID            int64  `json:"id"`
	Reference     string `json:"reference"`
	Category      string `json:"category"`
	Priority      string `json:"priority"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	Status        string `json:"status"`
	AdminResponse string `json:"admin_response,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := h.service.Create(r.Context(), application.CreateInput{
		UserID:   userID,
		Category: req.Category,
		Priority: req.Priority,
		Subject:  req.Subject,
		Body:     req.Body,
	})
	if err != nil {
		h.logger.Warn("filing claim failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toClaimResponse(*claim))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var (
		claims []domain.Claim
		err    error
	)
	// admins see the whole open queue with ?queue=open
	if r.URL.Query().Get("queue") == "open" && auth.RoleAtLeast(auth.RoleFromContext(r.Context()), auth.RoleAdmin) {
		claims, err = h.service.ListOpen(r.Context())
	} else {
		claims, err = h.service.ListByUser(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error("listing claims failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing claims failed")
		return
	}

	out := make([]claimResponse, 0, len(claims))
	for _, claim := range claims {
		out = append(out, toClaimResponse(claim))
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	reference := r.PathValue("reference")
	admin := auth.RoleAtLeast(auth.RoleFromContext(r.Context()), auth.RoleAdmin)

	claim, err := h.service.GetByReference(r.Context(), reference, userID, admin)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "claim not found")
			return
		}
		h.logger.Error("fetching claim failed", zap.String("reference", reference), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching claim failed")
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(*claim))
}

type updateRequest struct {
	Status   string `json:"status"`
	Response string `json:"response"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	claimID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || claimID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	claim, err := h.service.UpdateStatus(r.Context(), claimID, req.Status, req.Response)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "claim not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid status transition")
		default:
			h.logger.Error("updating claim failed", zap.Int64("claim_id", claimID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "updating claim failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(*claim))
}

func toClaimResponse(claim domain.Claim) claimResponse {
	return claimResponse{
		ID:            claim.ID,
		Reference:     claim.Reference,
		Category:      claim.Category,
		Priority:      claim.Priority,
		Subject:       claim.Subject,
		Body:          claim.Body,
		Status:        claim.Status,
		AdminResponse: claim.AdminResponse,
		CreatedAt:     claim.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     claim.UpdatedAt.Format(time.RFC3339),
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
