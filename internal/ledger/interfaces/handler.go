// Package interfaces exposes the transaction and statement endpoints.
package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/ledger/application"
	"github.com/xhris2006/moninvest/internal/ledger/domain"
	"github.com/xhris2006/moninvest/internal/observability/metrics"
)

// Handler serves the ledger API.
type Handler struct {
	service *application.StatementService
	logger  *zap.Logger
}

// NewHandler constructs the ledger handler.
func NewHandler(service *application.StatementService, logger *zap.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("ledger http: nil service")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}, nil
}

// Register mounts the ledger routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/transactions", h.transactions)
	mux.HandleFunc("GET /api/v1/statements", h.statement)
	mux.HandleFunc("GET /api/v1/exports/statement", h.exportStatement)
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	UserPassID  int64  `json:"user_pass_id,omitempty"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	GainDate    string `json:"gain_date,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter := domain.Filter{Type: r.URL.Query().Get("type")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}

	transactions, err := h.service.Transactions(r.Context(), userID, filter)
	if err != nil {
		h.logger.Error("listing transactions failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing transactions failed")
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	month := r.URL.Query().Get("month")

	stmt, items, err := h.service.Statement(r.Context(), userID, month)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMonth) {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		h.logger.Error("building statement failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "building statement failed")
		return
	}

	lines := make([]transactionResponse, 0, len(items))
	for _, tx := range items {
		lines = append(lines, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":         stmt.Month.Format("2006-01"),
		"currency":      stmt.Currency,
		"total_credits": stmt.TotalCredits,
		"total_debits":  stmt.TotalDebits,
		"net_change":    stmt.NetChange,
		"lines":         lines,
	})
}

func (h *Handler) exportStatement(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	month := r.URL.Query().Get("month")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveStatementExport(format, result, time.Since(start))
	}()

	stmt, items, err := h.service.Statement(r.Context(), userID, month)
	if err != nil {
		result = metrics.ResultError
		if errors.Is(err, domain.ErrInvalidMonth) {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		h.logger.Error("building statement failed", zap.Int64("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "building statement failed")
		return
	}

	var (
		payload     []byte
		contentType string
		extension   string
	)
	switch format {
	case "csv":
		payload, err = BuildStatementCSV(stmt, items)
		contentType, extension = "text/csv", "csv"
	case "pdf":
		payload, err = BuildStatementPDF(stmt, items)
		contentType, extension = "application/pdf", "pdf"
	case "xlsx":
		payload, err = BuildStatementXLSX(stmt, items)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		extension = "xlsx"
	default:
		result = metrics.ResultError
		writeError(w, http.StatusBadRequest, "format must be csv, pdf or xlsx")
		return
	}
	if err != nil {
		result = metrics.ResultError
		h.logger.Error("rendering statement failed",
			zap.Int64("user_id", userID),
			zap.String("format", format),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "rendering statement failed")
		return
	}

	filename := fmt.Sprintf("statement-%s.%s", stmt.Month.Format("2006-01"), extension)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	out := transactionResponse{
		ID:          tx.ID,
		UserPassID:  tx.UserPassID,
		Type:        tx.Type,
		Amount:      tx.Amount,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
	if !tx.GainDate.IsZero() {
		out.GainDate = tx.GainDate.Format("2006-01-02")
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
