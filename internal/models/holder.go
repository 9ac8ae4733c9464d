package models

import "time"

// HolderType distinguishes the two kinds of tracked parties.
type HolderType string

const (
	HolderVendor HolderType = "vendor"
	HolderTenant HolderType = "tenant"
)

// Holder is a vendor or tenant whose insurance is being tracked.
type Holder struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Type         HolderType `json:"type"`
	Email        string     `json:"email,omitempty"`
	PropertyName string     `json:"property_name,omitempty"`
	PortalToken  string     `json:"portal_token,omitempty"` // vendor self-serve upload token

	Status            OverallStatus     `json:"status"`
	Coverage          *ExtractedCOIData `json:"coverage,omitempty"`
	COIExpirationDate string            `json:"coi_expiration_date,omitempty"` // YYYY-MM-DD
	COIUploadedAt     *time.Time        `json:"coi_uploaded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasUpload reports whether a COI has ever been received for this holder.
func (h *Holder) HasUpload() bool {
	return h.COIUploadedAt != nil || h.Coverage != nil
}

// DocumentKind classifies stored files.
type DocumentKind string

const (
	DocumentCOI   DocumentKind = "coi"
	DocumentLease DocumentKind = "lease"
)

// Document is an uploaded file kept on disk and referenced from the database.
type Document struct {
	ID         int64        `json:"id"`
	HolderID   int64        `json:"holder_id"`
	Kind       DocumentKind `json:"kind"`
	FileName   string       `json:"file_name"`
	FilePath   string       `json:"file_path"`
	FileSize   int64        `json:"file_size"`
	UploadedAt time.Time    `json:"uploaded_at"`
}
