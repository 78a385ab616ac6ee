// Package export renders reviewer listings as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const claimsSheet = "Claims"

// ClaimsHeader is the column order of the claims export.
var ClaimsHeader = []string{
	"Claim ID",
	"Claimant",
	"Claim Type",
	"Status",
	"Start Date",
	"End Date",
	"Days",
	"Salary",
	"Submitted At",
	"Case Number",
	"Filing Date",
	"Paid",
	"Documents Complete",
	"Rejection Message",
}

var claimsColumnWidths = []float64{10, 28, 24, 12, 12, 12, 8, 14, 20, 16, 12, 8, 18, 40}

// ClaimRow is one exported claim with display names already resolved.
type ClaimRow struct {
	ClaimID           int64
	ClaimantName      string
	ClaimTypeName     string
	StatusName        string
	StartDate         time.Time
	EndDate           time.Time
	Days              int
	Salary            decimal.Decimal
	SubmittedAt       time.Time
	CaseNumber        *string
	FilingDate        *time.Time
	Paid              *bool
	DocumentsComplete bool
	RejectionMessage  string
}

// ClaimsWorkbook writes rows into a single-sheet .xlsx file.
func ClaimsWorkbook(rows []ClaimRow) ([]byte, error) {
	f := excelize.NewFile()
	// f stays open until WriteTo has run

	index, err := f.NewSheet(claimsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ClaimsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(claimsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(claimsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(claimsSheet, name, name, claimsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.ClaimID,
			r.ClaimantName,
			r.ClaimTypeName,
			r.StatusName,
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			r.Days,
			r.Salary.InexactFloat64(),
			r.SubmittedAt.Format("2006-01-02 15:04:05"),
			deref(r.CaseNumber),
			dateOrEmpty(r.FilingDate),
			yesNo(r.Paid),
			yesNo(&r.DocumentsComplete),
			r.RejectionMessage,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(claimsSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(claimsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return ""
	case *b:
		return "Yes"
	default:
		return "No"
	}
}
