package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certwatch/coi-compliance/internal/models"
)

func TestCheckLimitBelowRequirement(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	field, issues := e.CheckLimit("gl_per_occurrence", "General Liability", 1000000, amt(500000), "")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldNonCompliant, field.Status)
	assert.Equal(t, 1000000.0, field.Required)
	assert.Equal(t, 500000.0, field.Actual)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueError, issues[0].Type)
	assert.Equal(t, "General Liability $500,000 below required $1,000,000", issues[0].Message)
}

func TestCheckLimitExpiringSoonKeepsAmountCheck(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	// Expires in 10 days, amount meets the requirement: expiring_soon, one
	// warning, and the passing amount check does not downgrade it.
	field, issues := e.CheckLimit("gl_per_occurrence", "General Liability", 1000000, amt(1000000), "2025-06-25")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldExpiringSoon, field.Status)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueWarning, issues[0].Type)
	assert.Equal(t, "General Liability expiring in 10 days", issues[0].Message)
}

func TestCheckLimitExpiringSoonAndBelowRequirement(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	// Expiring-soon does not short-circuit: the failing amount check still
	// runs and wins the field status.
	field, issues := e.CheckLimit("gl_per_occurrence", "General Liability", 1000000, amt(500000), "2025-06-25")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldNonCompliant, field.Status)
	require.Len(t, issues, 2)
	assert.Equal(t, models.IssueWarning, issues[0].Type)
	assert.Equal(t, models.IssueError, issues[1].Type)
}

func TestCheckLimitExpiredShortCircuits(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	// Expired 5 days ago: the amount check is skipped even though the
	// amount would pass; exactly one critical issue.
	field, issues := e.CheckLimit("gl_per_occurrence", "General Liability", 1000000, amt(1000000), "2025-06-10")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldExpired, field.Status)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueCritical, issues[0].Type)
	assert.Equal(t, "General Liability policy expired", issues[0].Message)
}

func TestCheckLimitExpiredSkipsMissingAmountIssue(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	field, issues := e.CheckLimit("umbrella", "Umbrella Liability", 5000000, nil, "2025-01-01")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldExpired, field.Status)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueCritical, issues[0].Type)
}

func TestCheckLimitMissingCoverage(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	tests := []struct {
		name   string
		actual *models.LimitAmount
	}{
		{"nil amount", nil},
		{"zero amount", amt(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, issues := e.CheckLimit("umbrella", "Umbrella Liability", 2000000, tt.actual, "")
			require.NotNil(t, field)
			assert.Equal(t, models.FieldNonCompliant, field.Status)
			require.Len(t, issues, 1)
			assert.Equal(t, "Umbrella Liability not found on COI (required $2,000,000)", issues[0].Message)
		})
	}
}

func TestCheckLimitZeroRequirementExemption(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	// A requirement of zero means "not required", not "zero dollars
	// required" - the field is never non_compliant.
	for _, required := range []float64{0, -1} {
		field, issues := e.CheckLimit("umbrella", "Umbrella Liability", required, nil, "")
		assert.Nil(t, field)
		assert.Empty(t, issues)

		field, issues = e.CheckLimit("umbrella", "Umbrella Liability", required, amt(1000000), "")
		require.NotNil(t, field)
		assert.Equal(t, models.FieldNotRequired, field.Status)
		assert.Nil(t, field.Required)
		assert.Equal(t, 1000000.0, field.Actual)
		assert.Empty(t, issues)
	}
}

func TestCheckLimitCompliant(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	field, issues := e.CheckLimit("gl_per_occurrence", "General Liability", 1000000, amt(2000000), "2026-06-15")

	require.NotNil(t, field)
	assert.Equal(t, models.FieldCompliant, field.Status)
	assert.Equal(t, "2026-06-15", field.ExpirationDate)
	assert.Empty(t, issues)
}

func TestCheckEndorsement(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	t.Run("not required is a no-op", func(t *testing.T) {
		field, issues := e.CheckEndorsement("waiver_of_subrogation", "Waiver of Subrogation", false, false)
		assert.Nil(t, field)
		assert.Empty(t, issues)
	})

	t.Run("required and present", func(t *testing.T) {
		field, issues := e.CheckEndorsement("waiver_of_subrogation", "Waiver of Subrogation", true, true)
		require.NotNil(t, field)
		assert.Equal(t, models.FieldCompliant, field.Status)
		assert.Equal(t, true, field.Required)
		assert.Equal(t, true, field.Actual)
		assert.Empty(t, issues)
	})

	t.Run("required and missing", func(t *testing.T) {
		field, issues := e.CheckEndorsement("waiver_of_subrogation", "Waiver of Subrogation", true, false)
		require.NotNil(t, field)
		assert.Equal(t, models.FieldNonCompliant, field.Status)
		require.Len(t, issues, 1)
		assert.Equal(t, models.IssueError, issues[0].Type)
		assert.Equal(t, "Waiver of Subrogation required but not found on COI", issues[0].Message)
	})
}

func TestCheckCustomCoverages(t *testing.T) {
	e := NewEvaluator(testNow, 30)

	additional := []models.AdditionalCoverage{
		{Type: "Contractors Pollution Liability", Amount: amt(2000000), ExpirationDate: "2026-01-01"},
		{Type: "Cyber Liability", Amount: amt(500000)},
	}
	customs := []models.CustomCoverage{
		{Name: "Pollution", Limit: 1000000},
		{Name: "cyber", Limit: 1000000},
		{Name: "Liquor Liability", Limit: 1000000},
	}

	fields, issues := e.CheckCustomCoverages(customs, additional)

	require.Len(t, fields, 3)

	// Case-insensitive substring match against the coverage type.
	assert.Equal(t, "custom_Pollution", fields[0].FieldName)
	assert.Equal(t, models.FieldCompliant, fields[0].Status)

	assert.Equal(t, "custom_cyber", fields[1].FieldName)
	assert.Equal(t, models.FieldNonCompliant, fields[1].Status)

	// Unmatched requirement fires the missing-coverage path naturally.
	assert.Equal(t, "custom_Liquor Liability", fields[2].FieldName)
	assert.Equal(t, models.FieldNonCompliant, fields[2].Status)

	require.Len(t, issues, 2)
	assert.Equal(t, "cyber $500,000 below required $1,000,000", issues[0].Message)
	assert.Equal(t, "Liquor Liability not found on COI (required $1,000,000)", issues[1].Message)
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0"},
		{500, "$500"},
		{1000, "$1,000"},
		{500000, "$500,000"},
		{1000000, "$1,000,000"},
		{2500000.75, "$2,500,001"},
		{-1500, "-$1,500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatUSD(tt.amount))
	}
}
