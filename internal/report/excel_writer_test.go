package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

func TestExcelWriterWritesOneRowPerHolder(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	holders := []*models.Holder{
		{
			ID:                1,
			Name:              "Acme Deli",
			Type:              models.HolderTenant,
			PropertyName:      "Main Street Plaza",
			Status:            models.StatusCompliant,
			COIExpirationDate: "2025-07-01",
		},
		{
			ID:     2,
			Name:   "Roof Co",
			Type:   models.HolderVendor,
			Status: models.StatusNonCompliant,
		},
	}
	results := map[int64]*models.ComplianceResult{
		2: {
			OverallStatus: models.StatusNonCompliant,
			Issues: []models.ComplianceIssue{
				{Type: models.IssueError, Message: "General Liability $500,000 below required $1,000,000"},
			},
			EvaluatedAt: now,
		},
	}

	w := NewExcelWriter(t.TempDir(), zap.NewNop())
	path, err := w.Write(holders, results, now)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Acme Deli", name)

	days, err := f.GetCellValue(sheetName, "F2")
	require.NoError(t, err)
	assert.Equal(t, "16", days)

	issues, err := f.GetCellValue(sheetName, "G3")
	require.NoError(t, err)
	assert.Contains(t, issues, "below required $1,000,000")

	status, err := f.GetCellValue(sheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "non-compliant", status)
}

func TestExcelWriterEmptyPortfolio(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	w := NewExcelWriter(t.TempDir(), zap.NewNop())

	path, err := w.Write(nil, nil, now)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
