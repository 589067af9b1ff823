// Package http exposes the in-app notification endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/notify"
)

// Inbox reads and updates stored notifications.
type Inbox interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]notify.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

// Handler serves the notification API.
type Handler struct {
	inbox  Inbox
	logger *zap.Logger
}

// NewHandler constructs the notification handler.
func NewHandler(inbox Inbox, logger *zap.Logger) (*Handler, error) {
	if inbox == nil {
		return nil, errors.New("notify http: nil inbox")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: inbox, logger: logger}, nil
}

// Register mounts the notification routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/notifications", h.list)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	notifications, err := h.inbox.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("listing notifications failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing notifications failed")
		return
	}

	type notificationResponse struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Body      string `json:"body"`
		Read      bool   `json:"read"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	notificationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || notificationID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.inbox.MarkRead(r.Context(), userID, notificationID); err != nil {
		h.logger.Error("marking notification read failed",
			zap.Int64("user_id", userID),
			zap.Int64("notification_id", notificationID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "marking notification read failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
