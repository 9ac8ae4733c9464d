package models

import "time"

// RequirementSource records where a requirement value came from.
type RequirementSource string

const (
	SourceManual          RequirementSource = "manual"
	SourceBuildingDefault RequirementSource = "building_default"
	SourceLeaseExtracted  RequirementSource = "lease_extracted"
)

// RequirementValue is a numeric requirement with optional provenance. A nil
// pointer or a value <= 0 both mean "not required".
type RequirementValue struct {
	Value      float64           `json:"value"`
	Source     RequirementSource `json:"source,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"` // 0-100
}

// Amount returns the required dollar amount, 0 when the requirement is absent.
func (v *RequirementValue) Amount() float64 {
	if v == nil {
		return 0
	}
	return v.Value
}

// RequirementFlag is a boolean requirement with optional provenance.
type RequirementFlag struct {
	Value      bool              `json:"value"`
	Source     RequirementSource `json:"source,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
}

// Set reports whether the flag is present and true.
func (f *RequirementFlag) Set() bool {
	return f != nil && f.Value
}

// CustomCoverage names a coverage a holder must carry beyond the standard
// set, matched case-insensitively against the COI's additional coverages.
type CustomCoverage struct {
	Name  string  `json:"name"`
	Limit float64 `json:"limit"`
}

// RequirementProfile is the set of coverage minimums and endorsement
// requirements one holder must satisfy. Immutable input to an evaluation;
// the engine never mutates it.
type RequirementProfile struct {
	ID       int64 `json:"id,omitempty"`
	HolderID int64 `json:"holder_id,omitempty"`

	GLPerOccurrence       *RequirementValue `json:"gl_per_occurrence,omitempty"`
	GLAggregate           *RequirementValue `json:"gl_aggregate,omitempty"`
	AutoLiability         *RequirementValue `json:"auto_liability,omitempty"`
	EmployersLiability    *RequirementValue `json:"employers_liability,omitempty"`
	PropertyContents      *RequirementValue `json:"property_contents,omitempty"`
	Umbrella              *RequirementValue `json:"umbrella,omitempty"`
	ProfessionalLiability *RequirementValue `json:"professional_liability,omitempty"`

	WorkersCompStatutory        *RequirementFlag `json:"workers_comp_statutory,omitempty"`
	AdditionalInsuredRequired   *RequirementFlag `json:"additional_insured_required,omitempty"`
	WaiverOfSubrogationRequired *RequirementFlag `json:"waiver_of_subrogation_required,omitempty"`

	AdditionalInsuredEntities []string         `json:"additional_insured_entities,omitempty"`
	CustomCoverages           []CustomCoverage `json:"custom_coverages,omitempty"`
	SpecialEndorsements       []string         `json:"special_endorsements,omitempty"`

	CertificateHolderName    string `json:"certificate_holder_name,omitempty"`
	CertificateHolderAddress string `json:"certificate_holder_address,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
