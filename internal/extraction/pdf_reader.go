// Package extraction talks to the AI extraction service: it renders
// uploaded documents to page images, sends them to a vision model, and
// normalizes the returned JSON into the engine's input shapes.
package extraction

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// maxPages caps how many pages go to the vision model per document. COIs
// are almost always a single ACORD 25 page; leases get a few more.
const (
	maxCOIPages   = 2
	maxLeasePages = 8
)

// PDFRenderer converts uploaded documents into JPEG page images for the
// vision model.
type PDFRenderer struct {
	logger *zap.Logger
}

// NewPDFRenderer creates a new renderer
func NewPDFRenderer(logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

// RenderPages converts a PDF (or a single JPEG/PNG) into JPEG page images,
// keeping at most maxPages pages.
func (r *PDFRenderer) RenderPages(path string, maxPages int) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("document not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		// handled below
	case ".jpg", ".jpeg", ".png":
		return r.readImageFile(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	var images [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to render page",
				zap.String("path", path),
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		imgBytes, err := encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		images = append(images, imgBytes)
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", path)
	}

	r.logger.Debug("Rendered document pages",
		zap.String("path", path),
		zap.Int("pages", len(images)))
	return images, nil
}

// readImageFile re-encodes a standalone image upload as JPEG
func (r *PDFRenderer) readImageFile(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	imgBytes, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	return [][]byte{imgBytes}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
