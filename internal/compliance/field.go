package compliance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/certwatch/coi-compliance/internal/models"
)

// CheckLimit evaluates one numeric coverage requirement against the amount
// extracted from the COI.
//
// A requirement that is absent or <= 0 means "not required", not "zero
// dollars required": if the COI carries the coverage anyway the field is
// recorded as not_required with a nil requirement, otherwise nothing is
// produced. An expired policy short-circuits the amount check; an
// expiring-soon policy does not.
func (e *Evaluator) CheckLimit(fieldName, label string, required float64, actual *models.LimitAmount, expirationDate string) (*models.ComplianceField, []models.ComplianceIssue) {
	if required <= 0 {
		if actual.HasCoverage() {
			return &models.ComplianceField{
				FieldName:      fieldName,
				Label:          label,
				Required:       nil,
				Actual:         amountValue(actual),
				Status:         models.FieldNotRequired,
				ExpirationDate: expirationDate,
			}, nil
		}
		return nil, nil
	}

	field := &models.ComplianceField{
		FieldName:      fieldName,
		Label:          label,
		Required:       required,
		Actual:         amountValue(actual),
		Status:         models.FieldCompliant,
		ExpirationDate: expirationDate,
	}

	var issues []models.ComplianceIssue
	if days, ok := DaysUntil(expirationDate, e.Now); ok {
		if days < 0 {
			// Expiration takes precedence over the amount check for
			// reporting; the field is still recorded.
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

	amount, has := actual.Dollars()
	switch {
	case !has || amount <= 0:
		field.Status = models.FieldNonCompliant
		issues = append(issues, models.ComplianceIssue{
			Type:    models.IssueError,
			Message: fmt.Sprintf("%s not found on COI (required %s)", label, FormatUSD(required)),
		})
	case amount < required:
		field.Status = models.FieldNonCompliant
		issues = append(issues, models.ComplianceIssue{
			Type:    models.IssueError,
			Message: fmt.Sprintf("%s %s below required %s", label, FormatUSD(amount), FormatUSD(required)),
		})
	}

	return field, issues
}

// CheckEndorsement evaluates a boolean requirement such as an
// additional-insured or waiver-of-subrogation endorsement. No-op when the
// endorsement is not required.
func (e *Evaluator) CheckEndorsement(fieldName, label string, required, actual bool) (*models.ComplianceField, []models.ComplianceIssue) {
	if !required {
		return nil, nil
	}

	field := &models.ComplianceField{
		FieldName: fieldName,
		Label:     label,
		Required:  true,
		Actual:    actual,
		Status:    models.FieldCompliant,
	}
	if actual {
		return field, nil
	}

	field.Status = models.FieldNonCompliant
	return field, []models.ComplianceIssue{{
		Type:    models.IssueError,
		Message: fmt.Sprintf("%s required but not found on COI", label),
	}}
}

// CheckCustomCoverages evaluates every named custom coverage in the profile
// against the COI's additional-coverages list. Matching is a
// case-insensitive substring search on the coverage type; an unmatched
// requirement falls through the limit check's missing-coverage path.
func (e *Evaluator) CheckCustomCoverages(customs []models.CustomCoverage, additional []models.AdditionalCoverage) ([]models.ComplianceField, []models.ComplianceIssue) {
	var fields []models.ComplianceField
	var issues []models.ComplianceIssue

	for _, custom := range customs {
		var actual *models.LimitAmount
		var expiration string
		for i := range additional {
			if strings.Contains(strings.ToLower(additional[i].Type), strings.ToLower(custom.Name)) {
				actual = additional[i].Amount
				expiration = additional[i].ExpirationDate
				break
			}
		}

		field, fieldIssues := e.CheckLimit("custom_"+custom.Name, custom.Name, custom.Limit, actual, expiration)
		if field != nil {
			fields = append(fields, *field)
		}
		issues = append(issues, fieldIssues...)
	}

	return fields, issues
}

// amountValue converts an extracted limit into the value recorded on a
// compliance field: a dollar figure, the statutory marker, or nil.
func amountValue(a *models.LimitAmount) any {
	if a == nil {
		return nil
	}
	if a.Statutory {
		return models.StatutoryMarker
	}
	return a.Value
}

// FormatUSD renders a whole-dollar USD amount with thousands separators,
// e.g. 1000000 -> "$1,000,000".
func FormatUSD(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}
