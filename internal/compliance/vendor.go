package compliance

import "github.com/certwatch/coi-compliance/internal/models"

// ClassifyVendor derives a status for a vendor self-serve upload. Vendors
// upload through the public portal without a persisted requirement profile,
// so the verdict comes straight from the classifier's expiration flags on
// the core coverage lines plus the extraction's own issues list.
//
// Precedence here is expired > expiring > non-compliant > compliant, and
// unlike the tenant path there is no interaction with an overall document
// expiration date; the two behaviors are intentionally kept separate.
func ClassifyVendor(data *models.ExtractedCOIData) models.OverallStatus {
	if data == nil {
		return models.StatusPending
	}

	core := []*models.CoverageRecord{
		data.Coverage.GeneralLiability,
		data.Coverage.AutoLiability,
		data.Coverage.WorkersComp,
		data.Coverage.EmployersLiability,
	}

	for _, rec := range core {
		if rec != nil && rec.Expired {
			return models.StatusExpired
		}
	}
	for _, rec := range core {
		if rec != nil && rec.ExpiringSoon {
			return models.StatusExpiring
		}
	}
	if len(data.Issues) > 0 {
		return models.StatusNonCompliant
	}
	return models.StatusCompliant
}
