package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

// ProfileRepository handles requirement profile persistence. The profile is
// stored as one JSON blob per holder; it is read-modify-written as a unit
// and never queried field by field.
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert creates or replaces the holder's requirement profile
func (r *ProfileRepository) Upsert(tx *sql.Tx, holderID int64, profile *models.RequirementProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `
		INSERT INTO requirement_profiles (holder_id, profile_json)
		VALUES (?, ?)
		ON CONFLICT(holder_id) DO UPDATE SET
			profile_json = excluded.profile_json,
			updated_at = CURRENT_TIMESTAMP
	`
	if tx != nil {
		_, err = tx.Exec(query, holderID, string(profileJSON))
	} else {
		_, err = r.db.Exec(query, holderID, string(profileJSON))
	}
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.Int64("holder_id", holderID), zap.Error(err))
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetByHolderID returns the holder's profile, or nil when none is set. A
// missing profile is a normal state, not an error.
func (r *ProfileRepository) GetByHolderID(holderID int64) (*models.RequirementProfile, error) {
	var id int64
	var profileJSON string
	err := r.db.QueryRow(
		"SELECT id, profile_json FROM requirement_profiles WHERE holder_id = ?",
		holderID,
	).Scan(&id, &profileJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	var profile models.RequirementProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for holder %d: %w", holderID, err)
	}
	profile.ID = id
	profile.HolderID = holderID
	return &profile, nil
}
