package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

// DocumentRepository tracks uploaded files kept on disk.
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create records an uploaded document
func (r *DocumentRepository) Create(tx *sql.Tx, doc *models.Document) error {
	query := `
		INSERT INTO documents (holder_id, kind, file_name, file_path, file_size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error
	args := []any{doc.HolderID, doc.Kind, doc.FileName, doc.FilePath, doc.FileSize, doc.UploadedAt}
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to record document", zap.Int64("holder_id", doc.HolderID), zap.Error(err))
		return fmt.Errorf("failed to record document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	doc.ID = id
	return nil
}

// ListByHolder returns a holder's documents, newest first
func (r *DocumentRepository) ListByHolder(holderID int64) ([]*models.Document, error) {
	rows, err := r.db.Query(`
		SELECT id, holder_id, kind, file_name, file_path, file_size, uploaded_at
		FROM documents
		WHERE holder_id = ?
		ORDER BY uploaded_at DESC
	`, holderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.HolderID, &d.Kind, &d.FileName, &d.FilePath, &d.FileSize, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}
