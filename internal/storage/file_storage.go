// Package storage keeps uploaded COI and lease documents on local disk,
// organized per holder.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

// DocumentStore persists uploaded documents to the local filesystem under
// uploadDir/{holderID}/{kind}/.
type DocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewDocumentStore creates a new document store rooted at baseDir
func NewDocumentStore(baseDir string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes an uploaded document and returns its full path. The stored
// name is timestamped so repeat uploads never clobber each other.
func (s *DocumentStore) Save(holderID int64, kind models.DocumentKind, fileName string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty upload: %s", fileName)
	}

	dir := filepath.Join(s.baseDir, fmt.Sprintf("%d", holderID), string(kind))
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error("Failed to create document directory",
			zap.String("dir", dir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	stored := fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), sanitizeFileName(fileName))
	fullPath := filepath.Join(dir, stored)

	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Document saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return fullPath, nil
}

// validatePath ensures the resolved path stays inside the base directory.
func (s *DocumentStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFileName strips path separators and anything else unsafe from a
// client-supplied file name.
func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	name = unsafeFileChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "document"
	}
	return name
}
