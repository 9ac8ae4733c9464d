package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
)

var svcNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeExtractor struct {
	coi      *models.ExtractedCOIData
	profile  *models.RequirementProfile
	err      error
	coiCalls int
}

func (f *fakeExtractor) ExtractCOI(ctx context.Context, path string) (*models.ExtractedCOIData, error) {
	f.coiCalls++
	return f.coi, f.err
}

func (f *fakeExtractor) ExtractRequirements(ctx context.Context, path string) (*models.RequirementProfile, error) {
	return f.profile, f.err
}

type fakeHolderStore struct {
	holders  map[int64]*models.Holder
	byToken  map[string]*models.Holder
	statuses map[int64]models.OverallStatus
}

func newFakeHolderStore(holders ...*models.Holder) *fakeHolderStore {
	s := &fakeHolderStore{
		holders:  make(map[int64]*models.Holder),
		byToken:  make(map[string]*models.Holder),
		statuses: make(map[int64]models.OverallStatus),
	}
	for _, h := range holders {
		s.holders[h.ID] = h
		if h.PortalToken != "" {
			s.byToken[h.PortalToken] = h
		}
	}
	return s
}

func (s *fakeHolderStore) GetByID(id int64) (*models.Holder, error) {
	return s.holders[id], nil
}

func (s *fakeHolderStore) GetByPortalToken(token string) (*models.Holder, error) {
	return s.byToken[token], nil
}

func (s *fakeHolderStore) List(holderType models.HolderType) ([]*models.Holder, error) {
	var out []*models.Holder
	for _, h := range s.holders {
		if holderType == "" || h.Type == holderType {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeHolderStore) UpdateCoverage(tx *sql.Tx, id int64, coverage *models.ExtractedCOIData, expirationDate string, uploadedAt time.Time) error {
	h := s.holders[id]
	h.Coverage = coverage
	h.COIExpirationDate = expirationDate
	h.COIUploadedAt = &uploadedAt
	return nil
}

func (s *fakeHolderStore) UpdateStatus(tx *sql.Tx, id int64, status models.OverallStatus) error {
	s.statuses[id] = status
	return nil
}

type fakeProfileStore struct {
	profiles map[int64]*models.RequirementProfile
}

func (s *fakeProfileStore) GetByHolderID(holderID int64) (*models.RequirementProfile, error) {
	return s.profiles[holderID], nil
}

func (s *fakeProfileStore) Upsert(tx *sql.Tx, holderID int64, profile *models.RequirementProfile) error {
	if s.profiles == nil {
		s.profiles = make(map[int64]*models.RequirementProfile)
	}
	s.profiles[holderID] = profile
	return nil
}

type fakeResultStore struct {
	created []*models.ComplianceResult
}

func (s *fakeResultStore) Create(tx *sql.Tx, holderID int64, result *models.ComplianceResult) error {
	s.created = append(s.created, result)
	return nil
}

func (s *fakeResultStore) GetLatestByHolderID(holderID int64) (*models.ComplianceResult, error) {
	if len(s.created) == 0 {
		return nil, nil
	}
	return s.created[len(s.created)-1], nil
}

type fakeFiles struct {
	saved []string
}

func (f *fakeFiles) Save(holderID int64, kind models.DocumentKind, fileName string, content []byte) (string, error) {
	path := fmt.Sprintf("/uploads/%d/%s/%s", holderID, kind, fileName)
	f.saved = append(f.saved, path)
	return path, nil
}

type fakeDocStore struct {
	docs []*models.Document
}

func (s *fakeDocStore) Create(tx *sql.Tx, doc *models.Document) error {
	s.docs = append(s.docs, doc)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(fn func(*sql.Tx) error) error {
	return fn(nil)
}

type testHarness struct {
	svc       *EvaluationService
	extractor *fakeExtractor
	holders   *fakeHolderStore
	profiles  *fakeProfileStore
	results   *fakeResultStore
	files     *fakeFiles
	docs      *fakeDocStore
}

func newHarness(extractor *fakeExtractor, holders *fakeHolderStore, profiles *fakeProfileStore) *testHarness {
	if profiles == nil {
		profiles = &fakeProfileStore{}
	}
	h := &testHarness{
		extractor: extractor,
		holders:   holders,
		profiles:  profiles,
		results:   &fakeResultStore{},
		files:     &fakeFiles{},
		docs:      &fakeDocStore{},
	}
	h.svc = NewEvaluationService(
		extractor, holders, profiles, h.results, h.files, h.docs, fakeTxRunner{},
		30, func() time.Time { return svcNow }, zap.NewNop(),
	)
	return h
}

func glCoverage(amount float64, expiration string) *models.ExtractedCOIData {
	return &models.ExtractedCOIData{
		Coverage: models.CoverageSet{
			GeneralLiability: &models.CoverageRecord{
				Amount:         &models.LimitAmount{Value: amount},
				ExpirationDate: expiration,
			},
		},
		ExpirationDate: expiration,
	}
}

func TestUploadCOITenantEvaluatesAndPersists(t *testing.T) {
	tenant := &models.Holder{ID: 1, Name: "Acme Deli", Type: models.HolderTenant}
	extractor := &fakeExtractor{coi: glCoverage(2000000, "2026-01-01")}
	profiles := &fakeProfileStore{profiles: map[int64]*models.RequirementProfile{
		1: {GLPerOccurrence: &models.RequirementValue{Value: 1000000, Source: models.SourceManual}},
	}}
	h := newHarness(extractor, newFakeHolderStore(tenant), profiles)

	result, err := h.svc.UploadCOI(context.Background(), 1, "coi.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompliant, result.OverallStatus)
	assert.Equal(t, 1, extractor.coiCalls)
	assert.Len(t, h.results.created, 1)
	assert.Equal(t, models.StatusCompliant, h.holders.statuses[1])
	assert.Equal(t, "2026-01-01", tenant.COIExpirationDate)
	require.Len(t, h.docs.docs, 1)
	assert.Equal(t, models.DocumentCOI, h.docs.docs[0].Kind)
	assert.Equal(t, svcNow, result.EvaluatedAt)
}

func TestUploadCOIHolderNotFound(t *testing.T) {
	h := newHarness(&fakeExtractor{}, newFakeHolderStore(), nil)

	_, err := h.svc.UploadCOI(context.Background(), 99, "coi.pdf", []byte("%PDF"))
	assert.ErrorContains(t, err, "not found")
	assert.Zero(t, h.extractor.coiCalls)
}

func TestPortalUploadVendorClassifies(t *testing.T) {
	vendor := &models.Holder{ID: 2, Name: "Roof Co", Type: models.HolderVendor, PortalToken: "tok-abc"}
	coverage := glCoverage(1000000, "2026-01-01")
	coverage.Issues = models.IssueList{"Certificate is a photocopy"}
	h := newHarness(&fakeExtractor{coi: coverage}, newFakeHolderStore(vendor), nil)

	holder, result, err := h.svc.PortalUploadCOI(context.Background(), "tok-abc", "coi.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), holder.ID)
	assert.Equal(t, models.StatusNonCompliant, result.OverallStatus)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueError, result.Issues[0].Type)
	assert.Equal(t, "Certificate is a photocopy", result.Issues[0].Message)
	assert.Empty(t, result.Fields)
}

func TestPortalUploadInvalidToken(t *testing.T) {
	h := newHarness(&fakeExtractor{}, newFakeHolderStore(), nil)

	_, _, err := h.svc.PortalUploadCOI(context.Background(), "bogus", "coi.pdf", []byte("%PDF"))
	assert.ErrorContains(t, err, "invalid portal token")
}

func TestReevaluateUsesStoredCoverage(t *testing.T) {
	uploadedAt := svcNow.Add(-90 * 24 * time.Hour)
	vendor := &models.Holder{
		ID:            3,
		Type:          models.HolderVendor,
		Coverage:      glCoverage(1000000, "2025-06-20"),
		COIUploadedAt: &uploadedAt,
	}
	h := newHarness(&fakeExtractor{}, newFakeHolderStore(vendor), nil)

	result, err := h.svc.Reevaluate(context.Background(), 3)
	require.NoError(t, err)

	assert.Zero(t, h.extractor.coiCalls)
	assert.Equal(t, models.StatusExpiring, result.OverallStatus)
	assert.True(t, vendor.Coverage.Coverage.GeneralLiability.ExpiringSoon)
}

func TestReevaluateAllCountsStatusChanges(t *testing.T) {
	uploadedAt := svcNow.Add(-24 * time.Hour)
	stale := &models.Holder{
		ID:            4,
		Type:          models.HolderVendor,
		Status:        models.StatusCompliant,
		Coverage:      glCoverage(1000000, "2025-06-10"),
		COIUploadedAt: &uploadedAt,
	}
	steady := &models.Holder{
		ID:            5,
		Type:          models.HolderVendor,
		Status:        models.StatusCompliant,
		Coverage:      glCoverage(1000000, "2026-06-10"),
		COIUploadedAt: &uploadedAt,
	}
	h := newHarness(&fakeExtractor{}, newFakeHolderStore(stale, steady), nil)

	changed, err := h.svc.ReevaluateAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, changed)
	assert.Equal(t, models.StatusExpired, h.holders.statuses[4])
	assert.Equal(t, models.StatusCompliant, h.holders.statuses[5])
}

func TestExtractLeaseRequirementsUpserts(t *testing.T) {
	tenant := &models.Holder{ID: 6, Type: models.HolderTenant}
	confidence := 0.9
	extractor := &fakeExtractor{profile: &models.RequirementProfile{
		GLPerOccurrence: &models.RequirementValue{
			Value:      2000000,
			Source:     models.SourceLeaseExtracted,
			Confidence: &confidence,
		},
	}}
	h := newHarness(extractor, newFakeHolderStore(tenant), nil)

	profile, err := h.svc.ExtractLeaseRequirements(context.Background(), 6, "lease.pdf", []byte("%PDF"))
	require.NoError(t, err)

	require.NotNil(t, profile.GLPerOccurrence)
	assert.Equal(t, models.SourceLeaseExtracted, profile.GLPerOccurrence.Source)
	assert.Same(t, profile, h.profiles.profiles[6])
	require.Len(t, h.docs.docs, 1)
	assert.Equal(t, models.DocumentLease, h.docs.docs[0].Kind)
}

func TestSetProfileRequiresHolder(t *testing.T) {
	h := newHarness(&fakeExtractor{}, newFakeHolderStore(), nil)

	err := h.svc.SetProfile(42, &models.RequirementProfile{})
	assert.ErrorContains(t, err, "not found")
}
