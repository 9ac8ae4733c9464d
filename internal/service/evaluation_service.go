// Package service wires the extraction client, the compliance engine, and
// the persistence layer into the operations the HTTP surface and the
// background worker call.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/compliance"
	"github.com/certwatch/coi-compliance/internal/models"
)

// Extractor is the AI extraction boundary.
type Extractor interface {
	ExtractCOI(ctx context.Context, path string) (*models.ExtractedCOIData, error)
	ExtractRequirements(ctx context.Context, path string) (*models.RequirementProfile, error)
}

// HolderStore is the holder persistence boundary.
type HolderStore interface {
	GetByID(id int64) (*models.Holder, error)
	GetByPortalToken(token string) (*models.Holder, error)
	List(holderType models.HolderType) ([]*models.Holder, error)
	UpdateCoverage(tx *sql.Tx, id int64, coverage *models.ExtractedCOIData, expirationDate string, uploadedAt time.Time) error
	UpdateStatus(tx *sql.Tx, id int64, status models.OverallStatus) error
}

// ProfileStore is the requirement profile persistence boundary.
type ProfileStore interface {
	GetByHolderID(holderID int64) (*models.RequirementProfile, error)
	Upsert(tx *sql.Tx, holderID int64, profile *models.RequirementProfile) error
}

// ResultStore is the evaluation result persistence boundary.
type ResultStore interface {
	Create(tx *sql.Tx, holderID int64, result *models.ComplianceResult) error
	GetLatestByHolderID(holderID int64) (*models.ComplianceResult, error)
}

// DocumentSaver stores uploaded files and records them.
type DocumentSaver interface {
	Save(holderID int64, kind models.DocumentKind, fileName string, content []byte) (string, error)
}

// DocumentStore records uploaded documents in the database.
type DocumentStore interface {
	Create(tx *sql.Tx, doc *models.Document) error
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTransaction(fn func(*sql.Tx) error) error
}

// EvaluationService runs COI uploads through extraction and the compliance
// engine and writes the verdicts back.
type EvaluationService struct {
	extractor Extractor
	holders   HolderStore
	profiles  ProfileStore
	results   ResultStore
	files     DocumentSaver
	documents DocumentStore
	tx        TxRunner

	thresholdDays int
	now           func() time.Time
	logger        *zap.Logger
}

// NewEvaluationService creates a new evaluation service. now is injectable
// so tests control the evaluation's "today".
func NewEvaluationService(
	extractor Extractor,
	holders HolderStore,
	profiles ProfileStore,
	results ResultStore,
	files DocumentSaver,
	documents DocumentStore,
	tx TxRunner,
	thresholdDays int,
	now func() time.Time,
	logger *zap.Logger,
) *EvaluationService {
	if now == nil {
		now = time.Now
	}
	return &EvaluationService{
		extractor:     extractor,
		holders:       holders,
		profiles:      profiles,
		results:       results,
		files:         files,
		documents:     documents,
		tx:            tx,
		thresholdDays: thresholdDays,
		now:           now,
		logger:        logger,
	}
}

// UploadCOI stores an uploaded certificate for a holder, extracts its
// coverage, evaluates compliance, and persists the verdict.
func (s *EvaluationService) UploadCOI(ctx context.Context, holderID int64, fileName string, content []byte) (*models.ComplianceResult, error) {
	holder, err := s.holders.GetByID(holderID)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return nil, fmt.Errorf("holder %d not found", holderID)
	}
	return s.processUpload(ctx, holder, fileName, content)
}

// PortalUploadCOI handles a vendor self-serve upload identified by the
// public portal token.
func (s *EvaluationService) PortalUploadCOI(ctx context.Context, token, fileName string, content []byte) (*models.Holder, *models.ComplianceResult, error) {
	holder, err := s.holders.GetByPortalToken(token)
	if err != nil {
		return nil, nil, err
	}
	if holder == nil {
		return nil, nil, fmt.Errorf("invalid portal token")
	}
	result, err := s.processUpload(ctx, holder, fileName, content)
	return holder, result, err
}

func (s *EvaluationService) processUpload(ctx context.Context, holder *models.Holder, fileName string, content []byte) (*models.ComplianceResult, error) {
	path, err := s.files.Save(holder.ID, models.DocumentCOI, fileName, content)
	if err != nil {
		return nil, err
	}

	uploadedAt := s.now()
	if err := s.documents.Create(nil, &models.Document{
		HolderID:   holder.ID,
		Kind:       models.DocumentCOI,
		FileName:   fileName,
		FilePath:   path,
		FileSize:   int64(len(content)),
		UploadedAt: uploadedAt,
	}); err != nil {
		return nil, err
	}

	coverage, err := s.extractor.ExtractCOI(ctx, path)
	if err != nil {
		return nil, err
	}

	holder.Coverage = coverage
	holder.COIExpirationDate = coverage.ExpirationDate
	holder.COIUploadedAt = &uploadedAt
	if err := s.holders.UpdateCoverage(nil, holder.ID, coverage, coverage.ExpirationDate, uploadedAt); err != nil {
		return nil, err
	}

	return s.evaluate(holder)
}

// Reevaluate reruns the engine on a holder's stored coverage with a fresh
// "today", so expiring and expired statuses roll over without a new upload.
func (s *EvaluationService) Reevaluate(ctx context.Context, holderID int64) (*models.ComplianceResult, error) {
	holder, err := s.holders.GetByID(holderID)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return nil, fmt.Errorf("holder %d not found", holderID)
	}
	return s.evaluate(holder)
}

// ReevaluateAll reruns the engine for every holder. Returns how many
// holders changed status.
func (s *EvaluationService) ReevaluateAll(ctx context.Context) (int, error) {
	holders, err := s.holders.List("")
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, holder := range holders {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		previous := holder.Status
		result, err := s.evaluate(holder)
		if err != nil {
			s.logger.Error("Failed to reevaluate holder",
				zap.Int64("holder_id", holder.ID),
				zap.Error(err))
			continue
		}
		if result.OverallStatus != previous {
			changed++
			s.logger.Info("Holder status changed",
				zap.Int64("holder_id", holder.ID),
				zap.String("from", string(previous)),
				zap.String("to", string(result.OverallStatus)))
		}
	}
	return changed, nil
}

// ExtractLeaseRequirements extracts a requirement profile from an uploaded
// lease and stores it for the holder.
func (s *EvaluationService) ExtractLeaseRequirements(ctx context.Context, holderID int64, fileName string, content []byte) (*models.RequirementProfile, error) {
	holder, err := s.holders.GetByID(holderID)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return nil, fmt.Errorf("holder %d not found", holderID)
	}

	path, err := s.files.Save(holderID, models.DocumentLease, fileName, content)
	if err != nil {
		return nil, err
	}
	if err := s.documents.Create(nil, &models.Document{
		HolderID:   holderID,
		Kind:       models.DocumentLease,
		FileName:   fileName,
		FilePath:   path,
		FileSize:   int64(len(content)),
		UploadedAt: s.now(),
	}); err != nil {
		return nil, err
	}

	profile, err := s.extractor.ExtractRequirements(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Upsert(nil, holderID, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SetProfile stores a manually entered requirement profile.
func (s *EvaluationService) SetProfile(holderID int64, profile *models.RequirementProfile) error {
	holder, err := s.holders.GetByID(holderID)
	if err != nil {
		return err
	}
	if holder == nil {
		return fmt.Errorf("holder %d not found", holderID)
	}
	return s.profiles.Upsert(nil, holderID, profile)
}

// LatestResult returns the most recent stored evaluation for a holder.
func (s *EvaluationService) LatestResult(holderID int64) (*models.ComplianceResult, error) {
	return s.results.GetLatestByHolderID(holderID)
}

// evaluate runs the engine for one holder and persists status and result.
// Tenants go through the full requirement aggregation; vendors through the
// profile-free classifier.
func (s *EvaluationService) evaluate(holder *models.Holder) (*models.ComplianceResult, error) {
	evaluator := compliance.NewEvaluator(s.now(), s.thresholdDays)
	evaluator.ClassifyAll(holder.Coverage)

	var result *models.ComplianceResult
	switch holder.Type {
	case models.HolderTenant:
		profile, err := s.profiles.GetByHolderID(holder.ID)
		if err != nil {
			return nil, err
		}
		result = evaluator.EvaluateTenant(holder, profile)
	default:
		result = &models.ComplianceResult{
			OverallStatus: compliance.ClassifyVendor(holder.Coverage),
			Fields:        []models.ComplianceField{},
			Issues:        []models.ComplianceIssue{},
		}
		if holder.Coverage != nil {
			for _, msg := range holder.Coverage.Issues {
				result.Issues = append(result.Issues, models.ComplianceIssue{
					Type:    models.IssueError,
					Message: msg,
				})
			}
		}
	}
	result.EvaluatedAt = s.now()

	// Result and status land together or not at all.
	err := s.tx.WithTransaction(func(tx *sql.Tx) error {
		if err := s.results.Create(tx, holder.ID, result); err != nil {
			return err
		}
		return s.holders.UpdateStatus(tx, holder.ID, result.OverallStatus)
	})
	if err != nil {
		return nil, err
	}
	holder.Status = result.OverallStatus

	s.logger.Info("Compliance evaluated",
		zap.Int64("holder_id", holder.ID),
		zap.String("holder_type", string(holder.Type)),
		zap.String("status", string(result.OverallStatus)),
		zap.Int("fields", len(result.Fields)),
		zap.Int("issues", len(result.Issues)))
	return result, nil
}
