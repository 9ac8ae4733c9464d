package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
	"github.com/certwatch/coi-compliance/pkg/utils"
)

// maxUploadBytes bounds uploaded PDFs.
const maxUploadBytes = 20 << 20

// HolderDirectory is the holder persistence surface the handlers need.
type HolderDirectory interface {
	Create(tx *sql.Tx, h *models.Holder) error
	GetByID(id int64) (*models.Holder, error)
	List(holderType models.HolderType) ([]*models.Holder, error)
}

// ProfileReader reads stored requirement profiles.
type ProfileReader interface {
	GetByHolderID(holderID int64) (*models.RequirementProfile, error)
}

// EvaluationService is the evaluation surface the handlers need.
type EvaluationService interface {
	UploadCOI(ctx context.Context, holderID int64, fileName string, content []byte) (*models.ComplianceResult, error)
	PortalUploadCOI(ctx context.Context, token, fileName string, content []byte) (*models.Holder, *models.ComplianceResult, error)
	Reevaluate(ctx context.Context, holderID int64) (*models.ComplianceResult, error)
	ReevaluateAll(ctx context.Context) (int, error)
	ExtractLeaseRequirements(ctx context.Context, holderID int64, fileName string, content []byte) (*models.RequirementProfile, error)
	SetProfile(holderID int64, profile *models.RequirementProfile) error
	LatestResult(holderID int64) (*models.ComplianceResult, error)
}

// ReportWriter renders the portfolio compliance report to disk.
type ReportWriter interface {
	Write(holders []*models.Holder, results map[int64]*models.ComplianceResult, now time.Time) (string, error)
}

// Handlers contains all HTTP request handlers.
type Handlers struct {
	holders  HolderDirectory
	profiles ProfileReader
	eval     EvaluationService
	reports  ReportWriter
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(holders HolderDirectory, profiles ProfileReader, eval EvaluationService, reports ReportWriter, logger *zap.Logger) *Handlers {
	return &Handlers{
		holders:  holders,
		profiles: profiles,
		eval:     eval,
		reports:  reports,
		logger:   logger,
	}
}

// Response represents a standard JSON response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateHolderRequest is the payload for registering a vendor or tenant.
type CreateHolderRequest struct {
	Name         string `json:"name" binding:"required"`
	Type         string `json:"type" binding:"required,oneof=vendor tenant"`
	Email        string `json:"email"`
	PropertyName string `json:"property_name"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateHolder handles POST /api/holders
func (h *Handlers) CreateHolder(c *gin.Context) {
	var req CreateHolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if req.Email != "" {
		if err := utils.ValidateEmail(req.Email); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
	}

	holder := &models.Holder{
		Name:         req.Name,
		Type:         models.HolderType(req.Type),
		Email:        req.Email,
		PropertyName: req.PropertyName,
		PortalToken:  newPortalToken(),
		Status:       models.StatusPending,
	}
	if err := h.holders.Create(nil, holder); err != nil {
		h.logger.Error("Failed to create holder", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create holder"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: holder})
}

// ListHolders handles GET /api/holders
func (h *Handlers) ListHolders(c *gin.Context) {
	holderType := models.HolderType(c.Query("type"))
	if holderType != "" && holderType != models.HolderVendor && holderType != models.HolderTenant {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid holder type"})
		return
	}

	holders, err := h.holders.List(holderType)
	if err != nil {
		h.logger.Error("Failed to list holders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve holders"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: holders})
}

// GetHolder handles GET /api/holders/:id
func (h *Handlers) GetHolder(c *gin.Context) {
	holder, ok := h.lookupHolder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: holder})
}

// SetProfile handles PUT /api/holders/:id/profile
func (h *Handlers) SetProfile(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}

	var profile models.RequirementProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid profile body"})
		return
	}

	if err := h.eval.SetProfile(id, &profile); err != nil {
		h.logger.Error("Failed to store profile", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to store profile"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}

// GetProfile handles GET /api/holders/:id/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}

	profile, err := h.profiles.GetByHolderID(id)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no profile set"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}

// UploadCOI handles POST /api/holders/:id/coi
func (h *Handlers) UploadCOI(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}
	fileName, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.eval.UploadCOI(c.Request.Context(), id, fileName, content)
	if err != nil {
		h.logger.Error("COI upload failed", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "evaluation failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// PortalUploadCOI handles POST /portal/:token/coi
func (h *Handlers) PortalUploadCOI(c *gin.Context) {
	token := c.Param("token")
	fileName, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	holder, result, err := h.eval.PortalUploadCOI(c.Request.Context(), token, fileName, content)
	if err != nil {
		h.logger.Warn("Portal upload rejected", zap.Error(err))
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invalid portal link"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"holder_name": holder.Name,
			"status":      result.OverallStatus,
			"issues":      result.Issues,
		},
	})
}

// UploadLease handles POST /api/holders/:id/lease
func (h *Handlers) UploadLease(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}
	fileName, content, ok := h.readUpload(c)
	if !ok {
		return
	}

	profile, err := h.eval.ExtractLeaseRequirements(c.Request.Context(), id, fileName, content)
	if err != nil {
		h.logger.Error("Lease extraction failed", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "lease extraction failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: profile})
}

// GetCompliance handles GET /api/holders/:id/compliance
func (h *Handlers) GetCompliance(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}

	result, err := h.eval.LatestResult(id)
	if err != nil {
		h.logger.Error("Failed to load result", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load result"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no evaluation yet"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// Reevaluate handles POST /api/holders/:id/reevaluate
func (h *Handlers) Reevaluate(c *gin.Context) {
	id, ok := h.holderID(c)
	if !ok {
		return
	}

	result, err := h.eval.Reevaluate(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Reevaluation failed", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "reevaluation failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ReevaluateAll handles POST /api/reevaluate
func (h *Handlers) ReevaluateAll(c *gin.Context) {
	changed, err := h.eval.ReevaluateAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Portfolio reevaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "reevaluation failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"status_changes": changed}})
}

// DownloadReport handles GET /api/reports/compliance
func (h *Handlers) DownloadReport(c *gin.Context) {
	holders, err := h.holders.List("")
	if err != nil {
		h.logger.Error("Failed to list holders for report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to build report"})
		return
	}

	results := make(map[int64]*models.ComplianceResult, len(holders))
	for _, holder := range holders {
		result, err := h.eval.LatestResult(holder.ID)
		if err != nil {
			h.logger.Error("Failed to load result for report",
				zap.Int64("holder_id", holder.ID), zap.Error(err))
			continue
		}
		if result != nil {
			results[holder.ID] = result
		}
	}

	path, err := h.reports.Write(holders, results, time.Now())
	if err != nil {
		h.logger.Error("Failed to write report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to build report"})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

func (h *Handlers) holderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid holder ID"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) lookupHolder(c *gin.Context) (*models.Holder, bool) {
	id, ok := h.holderID(c)
	if !ok {
		return nil, false
	}

	holder, err := h.holders.GetByID(id)
	if err != nil {
		h.logger.Error("Failed to get holder", zap.Int64("holder_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve holder"})
		return nil, false
	}
	if holder == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "holder not found"})
		return nil, false
	}
	return holder, true
}

// readUpload reads the multipart "file" field, bounded by maxUploadBytes.
func (h *Handlers) readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing file upload"})
		return "", nil, false
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file too large"})
		return "", nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable file upload"})
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unreadable file upload"})
		return "", nil, false
	}
	return fileHeader.Filename, content, true
}

func newPortalToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(buf)
}
