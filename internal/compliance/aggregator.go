package compliance

import (
	"fmt"

	"github.com/certwatch/coi-compliance/internal/models"
)

// EvaluateTenant runs the full requirement profile against a tenant's
// extracted coverage and reduces the field verdicts into one overall status.
//
// The function is total: a missing profile, missing upload, or missing
// coverage are all reportable outcomes, never errors.
func (e *Evaluator) EvaluateTenant(h *models.Holder, profile *models.RequirementProfile) *models.ComplianceResult {
	result := &models.ComplianceResult{
		Fields: []models.ComplianceField{},
		Issues: []models.ComplianceIssue{},
	}

	if profile == nil {
		result.OverallStatus = models.StatusPending
		result.Issues = append(result.Issues, models.ComplianceIssue{
			Type:    models.IssueWarning,
			Message: "No requirement profile set for this tenant",
		})
		return result
	}

	var cov models.CoverageSet
	var additional []models.AdditionalCoverage
	hasAI, hasWaiver := false, false
	if h.Coverage != nil {
		cov = h.Coverage.Coverage
		additional = h.Coverage.AdditionalCoverages
		hasAI = h.Coverage.HasAdditionalInsured
		hasWaiver = h.Coverage.HasWaiverOfSubrogation
	}

	collect := func(field *models.ComplianceField, issues []models.ComplianceIssue) {
		if field != nil {
			result.Fields = append(result.Fields, *field)
		}
		result.Issues = append(result.Issues, issues...)
	}

	// Field order affects presentation only; the status reduction below is
	// order-independent.
	collect(e.CheckLimit("gl_per_occurrence", "General Liability (per occurrence)",
		profile.GLPerOccurrence.Amount(), coverageAmount(cov.GeneralLiability), coverageExpiration(cov.GeneralLiability)))
	collect(e.CheckLimit("gl_aggregate", "General Liability (aggregate)",
		profile.GLAggregate.Amount(), aggregateAmount(cov.GeneralLiability), coverageExpiration(cov.GeneralLiability)))
	collect(e.CheckLimit("property_contents", "Property/Contents Coverage",
		profile.PropertyContents.Amount(), coverageAmount(cov.PropertyContents), coverageExpiration(cov.PropertyContents)))
	collect(e.CheckLimit("umbrella", "Umbrella Liability",
		profile.Umbrella.Amount(), coverageAmount(cov.Umbrella), coverageExpiration(cov.Umbrella)))
	collect(e.checkWorkersComp(profile.WorkersCompStatutory.Set(), cov.WorkersComp))
	collect(e.CheckLimit("employers_liability", "Employers Liability",
		profile.EmployersLiability.Amount(), coverageAmount(cov.EmployersLiability), coverageExpiration(cov.EmployersLiability)))
	collect(e.CheckLimit("commercial_auto", "Commercial Auto Liability",
		profile.AutoLiability.Amount(), coverageAmount(cov.AutoLiability), coverageExpiration(cov.AutoLiability)))
	collect(e.CheckLimit("professional_liability", "Professional Liability",
		profile.ProfessionalLiability.Amount(), coverageAmount(cov.ProfessionalLiability), coverageExpiration(cov.ProfessionalLiability)))
	collect(e.CheckEndorsement("additional_insured", "Additional Insured endorsement",
		requiresAdditionalInsured(profile), hasAI))
	collect(e.CheckEndorsement("waiver_of_subrogation", "Waiver of Subrogation",
		profile.WaiverOfSubrogationRequired.Set(), hasWaiver))

	customFields, customIssues := e.CheckCustomCoverages(profile.CustomCoverages, additional)
	result.Fields = append(result.Fields, customFields...)
	result.Issues = append(result.Issues, customIssues...)

	holderDays, holderHasDate := DaysUntil(h.COIExpirationDate, e.Now)
	if holderHasDate {
		if holderDays < 0 {
			result.Issues = append(result.Issues, models.ComplianceIssue{
				Type:    models.IssueCritical,
				Message: "COI expired",
			})
		} else if holderDays <= e.ThresholdDays {
			result.Issues = append(result.Issues, models.ComplianceIssue{
				Type:    models.IssueWarning,
				Message: fmt.Sprintf("COI expires in %d days", holderDays),
			})
		}
	}

	result.OverallStatus = e.reduceOverall(result, h, holderDays, holderHasDate)
	return result
}

// reduceOverall resolves the overall status from the field verdicts and the
// holder's own document expiration. The rules are an ordered priority table
// evaluated top-down; a holder with one non-compliant field and one expired
// field is expired, not non-compliant.
func (e *Evaluator) reduceOverall(result *models.ComplianceResult, h *models.Holder, holderDays int, holderHasDate bool) models.OverallStatus {
	rules := []struct {
		status  models.OverallStatus
		applies func() bool
	}{
		{models.StatusExpired, func() bool {
			return result.HasStatus(models.FieldExpired) || (holderHasDate && holderDays < 0)
		}},
		{models.StatusNonCompliant, func() bool {
			return result.HasStatus(models.FieldNonCompliant)
		}},
		{models.StatusExpiring, func() bool {
			return result.HasStatus(models.FieldExpiringSoon) || (holderHasDate && holderDays <= e.ThresholdDays)
		}},
		{models.StatusPending, func() bool {
			return !h.HasUpload()
		}},
	}

	for _, rule := range rules {
		if rule.applies() {
			return rule.status
		}
	}
	return models.StatusCompliant
}

// checkWorkersComp is the boolean-with-expiration hybrid: "has coverage" is
// a Statutory marker or any positive amount, but the expiration rules match
// the numeric path (expired short-circuits, expiring-soon does not).
func (e *Evaluator) checkWorkersComp(required bool, rec *models.CoverageRecord) (*models.ComplianceField, []models.ComplianceIssue) {
	if !required {
		return nil, nil
	}

	const label = "Workers Compensation"
	field := &models.ComplianceField{
		FieldName:      "workers_comp",
		Label:          label,
		Required:       true,
		Actual:         amountValue(coverageAmount(rec)),
		Status:         models.FieldCompliant,
		ExpirationDate: coverageExpiration(rec),
	}

	var issues []models.ComplianceIssue
	if days, ok := DaysUntil(field.ExpirationDate, e.Now); ok {
		if days < 0 {
			field.Status = models.FieldExpired
			issues = append(issues, models.ComplianceIssue{
				Type:    models.IssueCritical,
				Message: fmt.Sprintf("%s policy expired", label),
			})
			return field, issues
		}
		if days <= e.ThresholdDays {
			field.Status = models.FieldExpiringSoon
			issues = append(issues, models.ComplianceIssue{
				Type:    models.IssueWarning,
				Message: fmt.Sprintf("%s expiring in %d days", label, days),
			})
		}
	}

	if !coverageAmount(rec).HasCoverage() {
		field.Status = models.FieldNonCompliant
		issues = append(issues, models.ComplianceIssue{
			Type:    models.IssueError,
			Message: fmt.Sprintf("%s required but not found on COI", label),
		})
	}

	return field, issues
}

// requiresAdditionalInsured: either the explicit flag or a non-empty entity
// list makes the endorsement required.
func requiresAdditionalInsured(profile *models.RequirementProfile) bool {
	return profile.AdditionalInsuredRequired.Set() || len(profile.AdditionalInsuredEntities) > 0
}

func coverageAmount(rec *models.CoverageRecord) *models.LimitAmount {
	if rec == nil {
		return nil
	}
	return rec.Amount
}

func coverageExpiration(rec *models.CoverageRecord) string {
	if rec == nil {
		return ""
	}
	return rec.ExpirationDate
}

func aggregateAmount(rec *models.CoverageRecord) *models.LimitAmount {
	if rec == nil || rec.Aggregate == nil {
		return nil
	}
	return &models.LimitAmount{Value: *rec.Aggregate}
}
