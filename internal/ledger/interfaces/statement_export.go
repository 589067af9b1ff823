package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	ledger "github.com/xhris2006/moninvest/internal/ledger/domain"
)

// BuildStatementCSV renders the statement lines as CSV.
func BuildStatementCSV(stmt ledger.Statement, items []ledger.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"date", "type", "amount", "description"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, item := range items {
		record := []string{
			item.CreatedAt.Format("2006-01-02"),
			item.Type,
			strconv.FormatInt(item.Amount, 10),
			item.Description,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	summary := []string{
		stmt.Month.Format("2006-01"),
		"net_change",
		strconv.FormatInt(stmt.NetChange, 10),
		fmt.Sprintf("credits %d / debits %d (%s)", stmt.TotalCredits, stmt.TotalDebits, stmt.Currency),
	}
	if err := writer.Write(summary); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementPDF renders a minimal PDF for a monthly statement.
func BuildStatementPDF(stmt ledger.Statement, items []ledger.Transaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Account Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("User: %d", stmt.UserID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Month: %s", stmt.Month.Format("2006-01")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", stmt.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Credits (%s): %d", stmt.Currency, stmt.TotalCredits))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Debits (%s): %d", stmt.Currency, stmt.TotalDebits))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Net change (%s): %d", stmt.Currency, stmt.NetChange))
	pdf.Ln(8)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.CellFormat(90, 6, "Description", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		pdf.CellFormat(30, 6, item.CreatedAt.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, item.Type, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, strconv.FormatInt(item.Amount, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(90, 6, item.Description, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStatementXLSX renders a minimal XLSX for a monthly statement.
func BuildStatementXLSX(stmt ledger.Statement, items []ledger.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	itemsSheet := "items"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Account Statement")
	_ = f.SetCellValue(summarySheet, "A3", "User")
	_ = f.SetCellValue(summarySheet, "B3", stmt.UserID)
	_ = f.SetCellValue(summarySheet, "A4", "Month")
	_ = f.SetCellValue(summarySheet, "B4", stmt.Month.Format("2006-01"))
	_ = f.SetCellValue(summarySheet, "A5", "Currency")
	_ = f.SetCellValue(summarySheet, "B5", stmt.Currency)
	_ = f.SetCellValue(summarySheet, "A6", "Total Credits")
	_ = f.SetCellValue(summarySheet, "B6", stmt.TotalCredits)
	_ = f.SetCellValue(summarySheet, "A7", "Total Debits")
	_ = f.SetCellValue(summarySheet, "B7", stmt.TotalDebits)
	_ = f.SetCellValue(summarySheet, "A8", "Net Change")
	_ = f.SetCellValue(summarySheet, "B8", stmt.NetChange)

	_ = f.SetCellValue(itemsSheet, "A1", "Date")
	_ = f.SetCellValue(itemsSheet, "B1", "Type")
	_ = f.SetCellValue(itemsSheet, "C1", "Amount")
	_ = f.SetCellValue(itemsSheet, "D1", "Description")
	for i, item := range items {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), item.CreatedAt.Format("2006-01-02"))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), item.Type)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), item.Amount)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), item.Description)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
