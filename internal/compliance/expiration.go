package compliance

import (
	"time"

	"github.com/certwatch/coi-compliance/internal/models"
)

// DefaultExpiringThresholdDays is used when no threshold is configured.
const DefaultExpiringThresholdDays = 30

// Evaluator carries the evaluation context: the reference "today" and the
// expiring-soon window. Evaluations are pure functions of their inputs plus
// this context, so one Evaluator can serve concurrent holders.
type Evaluator struct {
	Now           time.Time
	ThresholdDays int
}

// NewEvaluator builds an evaluator for the given reference time. A
// non-positive threshold falls back to the 30-day default.
func NewEvaluator(now time.Time, thresholdDays int) *Evaluator {
	if thresholdDays <= 0 {
		thresholdDays = DefaultExpiringThresholdDays
	}
	return &Evaluator{Now: now, ThresholdDays: thresholdDays}
}

// ClassifyCoverage annotates a coverage record's Expired/ExpiringSoon flags
// from its expiration date. Records without an expiration date are left
// untouched. Re-running with the same "today" is idempotent: both flags are
// recomputed, not accumulated.
func (e *Evaluator) ClassifyCoverage(rec *models.CoverageRecord) {
	if rec == nil {
		return
	}
	days, ok := DaysUntil(rec.ExpirationDate, e.Now)
	if !ok {
		return
	}
	rec.Expired = days < 0
	rec.ExpiringSoon = days >= 0 && days <= e.ThresholdDays
}

// ClassifyAll annotates every coverage line in an extraction payload,
// standard and additional alike.
func (e *Evaluator) ClassifyAll(data *models.ExtractedCOIData) {
	if data == nil {
		return
	}
	for _, rec := range data.Coverage.Records() {
		e.ClassifyCoverage(rec)
	}
	for i := range data.AdditionalCoverages {
		ac := &data.AdditionalCoverages[i]
		days, ok := DaysUntil(ac.ExpirationDate, e.Now)
		if !ok {
			continue
		}
		ac.Expired = days < 0
		ac.ExpiringSoon = days >= 0 && days <= e.ThresholdDays
	}
}
