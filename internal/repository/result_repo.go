package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

// ResultRepository persists evaluation results. Every evaluation appends a
// new row so the compliance history stays auditable.
type ResultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sql.DB, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an evaluation result for a holder
func (r *ResultRepository) Create(tx *sql.Tx, holderID int64, result *models.ComplianceResult) error {
	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	issuesJSON, err := json.Marshal(result.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}

	query := `
		INSERT INTO compliance_results (holder_id, overall_status, fields_json, issues_json, evaluated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	args := []any{holderID, result.OverallStatus, string(fieldsJSON), string(issuesJSON), result.EvaluatedAt}
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to store result", zap.Int64("holder_id", holderID), zap.Error(err))
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// GetLatestByHolderID returns the most recent evaluation, or nil when the
// holder has never been evaluated.
func (r *ResultRepository) GetLatestByHolderID(holderID int64) (*models.ComplianceResult, error) {
	var result models.ComplianceResult
	var fieldsJSON, issuesJSON string

	err := r.db.QueryRow(`
		SELECT overall_status, fields_json, issues_json, evaluated_at
		FROM compliance_results
		WHERE holder_id = ?
		ORDER BY evaluated_at DESC, id DESC
		LIMIT 1
	`, holderID).Scan(&result.OverallStatus, &fieldsJSON, &issuesJSON, &result.EvaluatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result: %w", err)
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &result.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	if err := json.Unmarshal([]byte(issuesJSON), &result.Issues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
	}
	return &result, nil
}
