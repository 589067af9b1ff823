package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/ledger/domain"
)

// StatementService builds monthly account statements.
type StatementService struct {
	repo     domain.Repository
	currency string
	logger   *zap.Logger
}

// NewStatementService constructs a statement service.
func NewStatementService(repo domain.Repository, currency string, logger *zap.Logger) (*StatementService, error) {
	if repo == nil {
		return nil, errors.New("ledger: nil repository")
	}
	if currency == "" {
		currency = "XOF"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementService{repo: repo, currency: currency, logger: logger}, nil
}

// Transactions lists the user's ledger rows, newest first.
func (s *StatementService) Transactions(ctx context.Context, userID int64, filter domain.Filter) ([]domain.Transaction, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.ListByUser(ctx, userID, filter)
}

// Statement builds the summary plus line items for one month.
func (s *StatementService) Statement(ctx context.Context, userID int64, month string) (domain.Statement, []domain.Transaction, error) {
	monthStart, err := domain.ParseMonth(month)
	if err != nil {
		return domain.Statement{}, nil, err
	}
	transactions, err := s.repo.ListForMonth(ctx, userID, monthStart)
	if err != nil {
		return domain.Statement{}, nil, err
	}
	stmt := domain.BuildStatement(userID, monthStart, s.currency, transactions, time.Now())
	return stmt, transactions, nil
}
