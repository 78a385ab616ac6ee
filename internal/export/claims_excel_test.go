package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestClaimsWorkbook(t *testing.T) {
	paid := true
	caseNo := "RAD-77"
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []ClaimRow{
		{
			ClaimID:           7,
			ClaimantName:      "Eva Employee",
			ClaimTypeName:     "General illness",
			StatusName:        "PAID",
			StartDate:         start,
			EndDate:           start.AddDate(0, 0, 4),
			Days:              5,
			Salary:            decimal.RequireFromString("1500.50"),
			SubmittedAt:       start.Add(10 * time.Hour),
			CaseNumber:        &caseNo,
			Paid:              &paid,
			DocumentsComplete: false,
		},
	}

	data, err := ClaimsWorkbook(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{claimsSheet}, f.GetSheetList())
	got, err := f.GetRows(claimsSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ClaimsHeader, got[0])
	assert.Equal(t, "7", got[1][0])
	assert.Equal(t, "Eva Employee", got[1][1])
	assert.Equal(t, "2024-03-05", got[1][5])
	assert.Equal(t, "RAD-77", got[1][9])
	assert.Equal(t, "Yes", got[1][11])
	assert.Equal(t, "No", got[1][12])
}

func TestClaimsWorkbook_Empty(t *testing.T) {
	data, err := ClaimsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(claimsSheet)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
