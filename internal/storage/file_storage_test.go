package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

func TestDocumentStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewDocumentStore(dir, zap.NewNop())

	path, err := store.Save(42, models.DocumentCOI, "acord25.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, "42", "coi")))
	assert.True(t, strings.HasSuffix(path, "_acord25.pdf"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), content)
}

func TestDocumentStoreRejectsEmptyUpload(t *testing.T) {
	store := NewDocumentStore(t.TempDir(), zap.NewNop())

	_, err := store.Save(1, models.DocumentCOI, "empty.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty upload")
}

func TestDocumentStoreSanitizesFileName(t *testing.T) {
	dir := t.TempDir()
	store := NewDocumentStore(dir, zap.NewNop())

	path, err := store.Save(7, models.DocumentLease, "../../etc/pass wd.pdf", []byte("data"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, "7", "lease")))
	assert.NotContains(t, filepath.Base(path), "/")
	assert.NotContains(t, filepath.Base(path), " ")
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"certificate.pdf", "certificate.pdf"},
		{"../../evil.pdf", "evil.pdf"},
		{"a b c.pdf", "a_b_c.pdf"},
		{"..", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeFileName(tt.in))
	}
}
