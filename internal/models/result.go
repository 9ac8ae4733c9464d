package models

import "time"

// FieldStatus is the per-requirement verdict.
type FieldStatus string

const (
	FieldCompliant    FieldStatus = "compliant"
	FieldNonCompliant FieldStatus = "non_compliant"
	FieldExpiringSoon FieldStatus = "expiring_soon"
	FieldExpired      FieldStatus = "expired"
	FieldNotRequired  FieldStatus = "not_required"
)

// OverallStatus is the holder-level verdict.
type OverallStatus string

const (
	StatusCompliant    OverallStatus = "compliant"
	StatusNonCompliant OverallStatus = "non-compliant"
	StatusExpiring     OverallStatus = "expiring"
	StatusExpired      OverallStatus = "expired"
	StatusPending      OverallStatus = "pending"
)

// IssueType grades a compliance issue for display.
type IssueType string

const (
	IssueCritical IssueType = "critical"
	IssueError    IssueType = "error"
	IssueWarning  IssueType = "warning"
)

// ComplianceField is one evaluated requirement. Required is a dollar amount
// for limit checks, true for endorsement checks, and nil when the
// requirement is absent but coverage was found anyway. Actual mirrors what
// the COI carried: a dollar amount, a bool, the "Statutory" marker, or nil.
type ComplianceField struct {
	FieldName      string      `json:"field_name"`
	Label          string      `json:"label"`
	Required       any         `json:"required"`
	Actual         any         `json:"actual"`
	Status         FieldStatus `json:"status"`
	ExpirationDate string      `json:"expiration_date,omitempty"`
}

// ComplianceIssue is one human-readable finding surfaced to the UI verbatim.
type ComplianceIssue struct {
	Type    IssueType `json:"type"`
	Message string    `json:"message"`
}

// ComplianceResult is the engine's sole output: the overall verdict plus the
// per-field breakdown and accumulated issues. Recomputed on every
// evaluation, never mutated after return.
type ComplianceResult struct {
	OverallStatus OverallStatus     `json:"overall_status"`
	Fields        []ComplianceField `json:"fields"`
	Issues        []ComplianceIssue `json:"issues"`
	EvaluatedAt   time.Time         `json:"evaluated_at,omitempty"`
}

// HasStatus reports whether any field carries the given status.
func (r *ComplianceResult) HasStatus(status FieldStatus) bool {
	for _, f := range r.Fields {
		if f.Status == status {
			return true
		}
	}
	return false
}
