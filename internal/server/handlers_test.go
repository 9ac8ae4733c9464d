package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

type fakeDirectory struct {
	holders map[int64]*models.Holder
	nextID  int64
}

func (d *fakeDirectory) Create(tx *sql.Tx, h *models.Holder) error {
	d.nextID++
	h.ID = d.nextID
	if d.holders == nil {
		d.holders = make(map[int64]*models.Holder)
	}
	d.holders[h.ID] = h
	return nil
}

func (d *fakeDirectory) GetByID(id int64) (*models.Holder, error) {
	return d.holders[id], nil
}

func (d *fakeDirectory) List(holderType models.HolderType) ([]*models.Holder, error) {
	var out []*models.Holder
	for _, h := range d.holders {
		if holderType == "" || h.Type == holderType {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	profile *models.RequirementProfile
}

func (p *fakeProfiles) GetByHolderID(holderID int64) (*models.RequirementProfile, error) {
	return p.profile, nil
}

type fakeEval struct {
	result     *models.ComplianceResult
	holder     *models.Holder
	profile    *models.RequirementProfile
	err        error
	lastUpload string
}

func (e *fakeEval) UploadCOI(ctx context.Context, holderID int64, fileName string, content []byte) (*models.ComplianceResult, error) {
	e.lastUpload = fileName
	return e.result, e.err
}

func (e *fakeEval) PortalUploadCOI(ctx context.Context, token, fileName string, content []byte) (*models.Holder, *models.ComplianceResult, error) {
	if e.holder == nil {
		return nil, nil, fmt.Errorf("invalid portal token")
	}
	return e.holder, e.result, e.err
}

func (e *fakeEval) Reevaluate(ctx context.Context, holderID int64) (*models.ComplianceResult, error) {
	return e.result, e.err
}

func (e *fakeEval) ReevaluateAll(ctx context.Context) (int, error) {
	return 2, e.err
}

func (e *fakeEval) ExtractLeaseRequirements(ctx context.Context, holderID int64, fileName string, content []byte) (*models.RequirementProfile, error) {
	return e.profile, e.err
}

func (e *fakeEval) SetProfile(holderID int64, profile *models.RequirementProfile) error {
	e.profile = profile
	return e.err
}

func (e *fakeEval) LatestResult(holderID int64) (*models.ComplianceResult, error) {
	return e.result, e.err
}

type fakeReports struct{}

func (r *fakeReports) Write(holders []*models.Holder, results map[int64]*models.ComplianceResult, now time.Time) (string, error) {
	return "/tmp/report.xlsx", nil
}

func newTestServer(dir *fakeDirectory, eval *fakeEval) *Server {
	if dir == nil {
		dir = &fakeDirectory{}
	}
	if eval == nil {
		eval = &fakeEval{}
	}
	handlers := NewHandlers(dir, &fakeProfiles{}, eval, &fakeReports{}, zap.NewNop())
	return NewServer(DefaultConfig(), handlers, zap.NewNop())
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "coi.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCreateHolderGeneratesPortalToken(t *testing.T) {
	srv := newTestServer(nil, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/holders",
		`{"name":"Roof Co","type":"vendor","email":"ops@roofco.test"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    models.Holder `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.PortalToken)
	assert.Equal(t, models.StatusPending, resp.Data.Status)
}

func TestCreateHolderRejectsBadEmail(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodPost, "/api/holders",
		`{"name":"Roof Co","type":"vendor","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateHolderRejectsUnknownType(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodPost, "/api/holders",
		`{"name":"X","type":"contractor"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHolderNotFound(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodGet, "/api/holders/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListHoldersRejectsBadTypeFilter(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodGet, "/api/holders?type=landlord", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadCOIReturnsEvaluation(t *testing.T) {
	eval := &fakeEval{result: &models.ComplianceResult{OverallStatus: models.StatusCompliant}}
	srv := newTestServer(nil, eval)

	rec := doUpload(t, srv, "/api/holders/1/coi")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coi.pdf", eval.lastUpload)
	assert.Contains(t, rec.Body.String(), `"compliant"`)
}

func TestUploadCOIRequiresFile(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil), http.MethodPost, "/api/holders/1/coi", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortalUploadInvalidTokenIs404(t *testing.T) {
	rec := doUpload(t, newTestServer(nil, &fakeEval{}), "/portal/bogus/coi")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortalUploadReturnsStatusAndIssues(t *testing.T) {
	eval := &fakeEval{
		holder: &models.Holder{ID: 2, Name: "Roof Co"},
		result: &models.ComplianceResult{
			OverallStatus: models.StatusNonCompliant,
			Issues: []models.ComplianceIssue{
				{Type: models.IssueError, Message: "General Liability not found on COI (required $1,000,000)"},
			},
		},
	}

	rec := doUpload(t, newTestServer(nil, eval), "/portal/tok/coi")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Roof Co")
	assert.Contains(t, rec.Body.String(), "not found on COI")
}

func TestGetComplianceNoEvaluationYet(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, &fakeEval{}), http.MethodGet, "/api/holders/1/compliance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReevaluateAll(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, &fakeEval{}), http.MethodPost, "/api/reevaluate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status_changes":2`)
}
