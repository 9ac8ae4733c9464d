// Package report renders portfolio compliance snapshots as Excel workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/compliance"
	"github.com/certwatch/coi-compliance/internal/models"
)

const sheetName = "Compliance"

// ExcelWriter writes portfolio compliance reports.
type ExcelWriter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExcelWriter creates a new Excel report writer.
func NewExcelWriter(outputDir string, logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{
		outputDir: outputDir,
		logger:    logger,
	}
}

// Write renders one row per holder with its latest evaluation and saves the
// workbook under the output directory. Returns the saved file path.
func (w *ExcelWriter) Write(holders []*models.Holder, results map[int64]*models.ComplianceResult, now time.Time) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheetName)

	headers := []string{
		"Name", "Type", "Property", "Status",
		"COI Expiration", "Days Until Expiration", "Issues", "Last Evaluated",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		w.setCell(f, cell, h)
	}

	for i, holder := range holders {
		row := i + 2
		result := results[holder.ID]

		w.setCell(f, w.cell(1, row), holder.Name)
		w.setCell(f, w.cell(2, row), string(holder.Type))
		w.setCell(f, w.cell(3, row), holder.PropertyName)
		w.setCell(f, w.cell(4, row), string(holder.Status))
		w.setCell(f, w.cell(5, row), holder.COIExpirationDate)

		if days, ok := compliance.DaysUntil(holder.COIExpirationDate, now); ok {
			w.setCell(f, w.cell(6, row), days)
		}
		if result != nil {
			w.setCell(f, w.cell(7, row), issueSummary(result.Issues))
			w.setCell(f, w.cell(8, row), result.EvaluatedAt.Format("2006-01-02"))
		}
	}

	if err := f.SetColWidth(sheetName, "A", "C", 24); err != nil {
		w.logger.Warn("Failed to set column width", zap.Error(err))
	}
	if err := f.SetColWidth(sheetName, "G", "G", 48); err != nil {
		w.logger.Warn("Failed to set column width", zap.Error(err))
	}

	outputPath := filepath.Join(w.outputDir,
		fmt.Sprintf("compliance_report_%s.xlsx", now.Format("20060102_150405")))
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	w.logger.Info("Compliance report written",
		zap.String("output_path", outputPath),
		zap.Int("holders", len(holders)))
	return outputPath, nil
}

func (w *ExcelWriter) cell(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}

// setCell sets a cell value in the Excel file
func (w *ExcelWriter) setCell(f *excelize.File, cell string, value any) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func issueSummary(issues []models.ComplianceIssue) string {
	if len(issues) == 0 {
		return ""
	}
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return strings.Join(messages, "; ")
}
