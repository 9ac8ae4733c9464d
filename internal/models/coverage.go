package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StatutoryMarker is the literal amount value insurers print on a COI for
// workers compensation limits that are set by state law rather than a dollar
// figure.
const StatutoryMarker = "Statutory"

// LimitAmount is a coverage limit extracted from a COI. It is either a dollar
// amount, the "Statutory" marker, or absent (JSON null). The extraction
// service is free to return any of the three, so the JSON codec accepts
// numbers, numeric strings, the statutory marker, and null.
type LimitAmount struct {
	Value     float64
	Statutory bool
}

// HasCoverage reports whether the amount represents actual coverage: a
// positive dollar figure or the statutory marker.
func (a *LimitAmount) HasCoverage() bool {
	if a == nil {
		return false
	}
	return a.Statutory || a.Value > 0
}

// Dollars returns the numeric value and whether one is present. Statutory
// amounts carry no numeric value.
func (a *LimitAmount) Dollars() (float64, bool) {
	if a == nil || a.Statutory {
		return 0, false
	}
	return a.Value, true
}

// UnmarshalJSON accepts a JSON number, a numeric string (with optional "$"
// and thousands separators), the statutory marker, or null.
func (a *LimitAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, StatutoryMarker) {
			a.Statutory = true
			return nil
		}
		s = strings.NewReplacer("$", "", ",", "").Replace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		a.Value = v
		return nil
	}

	return json.Unmarshal(data, &a.Value)
}

// MarshalJSON writes back the shape the extraction service uses.
func (a LimitAmount) MarshalJSON() ([]byte, error) {
	if a.Statutory {
		return json.Marshal(StatutoryMarker)
	}
	return json.Marshal(a.Value)
}

// CoverageRecord is one coverage line extracted from a COI. The expiration
// classifier annotates Expired/ExpiringSoon in place; the engine never
// creates records, only annotates them.
type CoverageRecord struct {
	Amount         *LimitAmount `json:"amount"`
	Aggregate      *float64     `json:"aggregate,omitempty"`
	ExpirationDate string       `json:"expirationDate,omitempty"` // YYYY-MM-DD
	Expired        bool         `json:"expired,omitempty"`
	ExpiringSoon   bool         `json:"expiringSoon,omitempty"`
}

// AdditionalCoverage is a named coverage outside the standard set, matched
// against the requirement profile's custom coverages by type name.
type AdditionalCoverage struct {
	Type           string       `json:"type"`
	Amount         *LimitAmount `json:"amount"`
	ExpirationDate string       `json:"expirationDate,omitempty"`
	Expired        bool         `json:"expired,omitempty"`
	ExpiringSoon   bool         `json:"expiringSoon,omitempty"`
}

// CoverageSet holds the standard coverage lines keyed the way the extraction
// service returns them.
type CoverageSet struct {
	GeneralLiability      *CoverageRecord `json:"generalLiability,omitempty"`
	AutoLiability         *CoverageRecord `json:"autoLiability,omitempty"`
	WorkersComp           *CoverageRecord `json:"workersComp,omitempty"`
	EmployersLiability    *CoverageRecord `json:"employersLiability,omitempty"`
	PropertyContents      *CoverageRecord `json:"propertyContents,omitempty"`
	Umbrella              *CoverageRecord `json:"umbrella,omitempty"`
	ProfessionalLiability *CoverageRecord `json:"professionalLiability,omitempty"`
}

// Records returns the non-nil standard coverage lines for bulk annotation.
func (c *CoverageSet) Records() []*CoverageRecord {
	if c == nil {
		return nil
	}
	all := []*CoverageRecord{
		c.GeneralLiability,
		c.AutoLiability,
		c.WorkersComp,
		c.EmployersLiability,
		c.PropertyContents,
		c.Umbrella,
		c.ProfessionalLiability,
	}
	out := all[:0]
	for _, r := range all {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// IssueList normalizes the extraction service's loosely shaped issues array.
// Upstream may return plain strings, {"message": ...} or {"description": ...}
// objects; everything is flattened to strings at the boundary so the engine
// never branches on shape.
type IssueList []string

// UnmarshalJSON flattens string and object issue entries. Entries with no
// usable text are dropped.
func (l *IssueList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}
		if entry[0] == '"' {
			var s string
			if err := json.Unmarshal(entry, &s); err != nil {
				return err
			}
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil {
			return err
		}
		switch {
		case obj.Message != "":
			out = append(out, obj.Message)
		case obj.Description != "":
			out = append(out, obj.Description)
		}
	}
	*l = out
	return nil
}

// ExtractedCOIData is the payload returned by the AI extraction service for
// one certificate, after boundary normalization.
type ExtractedCOIData struct {
	Coverage               CoverageSet          `json:"coverage"`
	AdditionalCoverages    []AdditionalCoverage `json:"additionalCoverages,omitempty"`
	HasAdditionalInsured   bool                 `json:"hasAdditionalInsured"`
	HasWaiverOfSubrogation bool                 `json:"hasWaiverOfSubrogation"`
	ExpirationDate         string               `json:"expirationDate,omitempty"` // earliest policy expiration, YYYY-MM-DD
	InsuredName            string               `json:"insuredName,omitempty"`
	ProducerName           string               `json:"producerName,omitempty"`
	Issues                 IssueList            `json:"issues,omitempty"`
}
