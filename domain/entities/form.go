package entities

import "time"

// FormStatus is the lifecycle state of a form.
type FormStatus string

const (
	FormStatusDraft    FormStatus = "draft"
	FormStatusActive   FormStatus = "active"
	FormStatusArchived FormStatus = "archived"
)

// Valid reports whether the status is one of the known values.
func (s FormStatus) Valid() bool {
	switch s {
	case FormStatusDraft, FormStatusActive, FormStatusArchived:
		return true
	}
	return false
}

// Form is the metadata of an episode form. Its field set is stored as
// separate items in the same partition.
//
// Version starts at 1 and increments by exactly one on every successful
// metadata or field-set change.
type Form struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    FormStatus `json:"status"`
	Version   int        `json:"version"`
	CreatedBy string     `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewForm carries the attributes accepted when creating a form.
type NewForm struct {
	Title     string
	Status    FormStatus
	CreatedBy string
}

// FormPatch is a partial update to form metadata. Nil fields are left
// untouched; Version is managed by the repository and never patched directly.
type FormPatch struct {
	Title  *string
	Status *FormStatus
}
