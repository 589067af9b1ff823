package domain

import (
	"errors"
	"time"
)

// Transaction types.
const (
	TypeDailyGain  = "daily_gain"
	TypePurchase   = "purchase"
	TypeCommission = "commission"
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
)

// Transaction is one ledger row. Amount is signed integer FCFA:
// credits positive, debits negative.
type Transaction struct {
	ID          int64
	UserID      int64
	UserPassID  int64 // 0 when not tied to a pass
	Type        string
	Amount      int64
	Description string
	GainDate    time.Time // zero unless Type is daily_gain
	CreatedAt   time.Time
}

// Statement summarizes one user month.
type Statement struct {
	UserID       int64
	Month        time.Time
	Currency     string
	TotalCredits int64
	TotalDebits  int64
	NetChange    int64
	Lines        int
	GeneratedAt  time.Time
}

// Filter narrows transaction listings.
type Filter struct {
	Type  string
	Limit int
}

// ErrInvalidMonth is returned for malformed statement months.
var ErrInvalidMonth = errors.New("ledger: month must be YYYY-MM")

// ParseMonth parses YYYY-MM into the first day of the month, UTC.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
}

// BuildStatement folds transactions into a monthly summary.
func BuildStatement(userID int64, month time.Time, currency string, transactions []Transaction, now time.Time) Statement {
	stmt := Statement{
		UserID:      userID,
		Month:       month,
		Currency:    currency,
		Lines:       len(transactions),
		GeneratedAt: now.UTC(),
	}
	for _, tx := range transactions {
		if tx.Amount >= 0 {
			stmt.TotalCredits += tx.Amount
		} else {
			stmt.TotalDebits += -tx.Amount
		}
		stmt.NetChange += tx.Amount
	}
	return stmt
}
