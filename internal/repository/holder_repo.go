package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

// HolderRepository handles holder database operations
type HolderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHolderRepository creates a new holder repository
func NewHolderRepository(db *sql.DB, logger *zap.Logger) *HolderRepository {
	return &HolderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new holder record
func (r *HolderRepository) Create(tx *sql.Tx, h *models.Holder) error {
	query := `
		INSERT INTO holders (name, type, email, property_name, portal_token, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if h.Status == "" {
		h.Status = models.StatusPending
	}

	var result sql.Result
	var err error
	args := []any{h.Name, h.Type, h.Email, h.PropertyName, h.PortalToken, h.Status}
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to create holder", zap.Error(err))
		return fmt.Errorf("failed to create holder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// GetByID fetches one holder
func (r *HolderRepository) GetByID(id int64) (*models.Holder, error) {
	return r.getOne("SELECT "+holderColumns+" FROM holders WHERE id = ?", id)
}

// GetByPortalToken fetches a vendor by its public portal upload token
func (r *HolderRepository) GetByPortalToken(token string) (*models.Holder, error) {
	return r.getOne("SELECT "+holderColumns+" FROM holders WHERE portal_token = ? AND portal_token != ''", token)
}

// List returns all holders, optionally filtered by type
func (r *HolderRepository) List(holderType models.HolderType) ([]*models.Holder, error) {
	query := "SELECT " + holderColumns + " FROM holders"
	var args []any
	if holderType != "" {
		query += " WHERE type = ?"
		args = append(args, holderType)
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list holders: %w", err)
	}
	defer rows.Close()

	var holders []*models.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// UpdateCoverage stores freshly extracted coverage and upload bookkeeping
func (r *HolderRepository) UpdateCoverage(tx *sql.Tx, id int64, coverage *models.ExtractedCOIData, expirationDate string, uploadedAt time.Time) error {
	coverageJSON, err := json.Marshal(coverage)
	if err != nil {
		return fmt.Errorf("failed to marshal coverage: %w", err)
	}

	query := `
		UPDATE holders
		SET coverage_json = ?, coi_expiration_date = ?, coi_uploaded_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	args := []any{string(coverageJSON), expirationDate, uploadedAt, id}
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to update holder coverage", zap.Int64("holder_id", id), zap.Error(err))
		return fmt.Errorf("failed to update holder coverage: %w", err)
	}
	return nil
}

// UpdateStatus writes back the evaluated overall status
func (r *HolderRepository) UpdateStatus(tx *sql.Tx, id int64, status models.OverallStatus) error {
	query := `UPDATE holders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, status, id)
	} else {
		_, err = r.db.Exec(query, status, id)
	}
	if err != nil {
		r.logger.Error("Failed to update holder status", zap.Int64("holder_id", id), zap.Error(err))
		return fmt.Errorf("failed to update holder status: %w", err)
	}
	return nil
}

const holderColumns = `id, name, type, email, property_name, portal_token, status,
	coverage_json, coi_expiration_date, coi_uploaded_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *HolderRepository) getOne(query string, args ...any) (*models.Holder, error) {
	h, err := scanHolder(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holder: %w", err)
	}
	return h, nil
}

func scanHolder(row rowScanner) (*models.Holder, error) {
	var h models.Holder
	var coverageJSON sql.NullString
	var uploadedAt sql.NullTime

	err := row.Scan(&h.ID, &h.Name, &h.Type, &h.Email, &h.PropertyName, &h.PortalToken,
		&h.Status, &coverageJSON, &h.COIExpirationDate, &uploadedAt, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if coverageJSON.Valid && coverageJSON.String != "" {
		var coverage models.ExtractedCOIData
		if err := json.Unmarshal([]byte(coverageJSON.String), &coverage); err != nil {
			return nil, fmt.Errorf("failed to unmarshal coverage for holder %d: %w", h.ID, err)
		}
		h.Coverage = &coverage
	}
	if uploadedAt.Valid {
		h.COIUploadedAt = &uploadedAt.Time
	}
	return &h, nil
}
