package interfaces

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhris2006/moninvest/internal/ledger/domain"
)

func sampleStatement() (domain.Statement, []domain.Transaction) {
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.Transaction{
		{ID: 1, UserID: 7, Type: domain.TypePurchase, Amount: -4000, Description: "Achat Pass Bronze", CreatedAt: march},
		{ID: 2, UserID: 7, Type: domain.TypeDailyGain, Amount: 400, Description: "Gain journalier Pass Bronze", CreatedAt: march.AddDate(0, 0, 1)},
	}
	stmt := domain.BuildStatement(7, march, "XOF", items, march.AddDate(0, 1, 0))
	return stmt, items
}

func TestBuildStatementCSV(t *testing.T) {
	stmt, items := sampleStatement()
	payload, err := BuildStatementCSV(stmt, items)
	require.NoError(t, err)

	content := string(payload)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	// header + 2 items + summary
	assert.Len(t, lines, 4)
	assert.Equal(t, "date,type,amount,description", lines[0])
	assert.Contains(t, lines[1], "purchase")
	assert.Contains(t, lines[1], "-4000")
	assert.Contains(t, lines[2], "daily_gain")
	assert.Contains(t, lines[3], "net_change")
	assert.Contains(t, lines[3], "-3600")
}

func TestBuildStatementPDF(t *testing.T) {
	stmt, items := sampleStatement()
	payload, err := BuildStatementPDF(stmt, items)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")), "payload must be a PDF document")
}

func TestBuildStatementXLSX(t *testing.T) {
	stmt, items := sampleStatement()
	payload, err := BuildStatementXLSX(stmt, items)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(payload, []byte("PK")), "payload must be a zip archive")
}
