// Package ports defines the backend-agnostic repository contracts consumed by
// business logic. Two implementations exist: the durable DynamoDB backend and
// the in-memory development backend. Both must behave identically for every
// operation here.
//
// "Not found" is reported as a typed error checked with errors.IsNotFound,
// never as a panic or a nil-entity success. Backend connectivity failures are
// a distinct Unavailable error so callers can tell the two apart.
package ports

import (
	"context"
	"time"

	"carelog-backend/domain/entities"
)

// FormRepository provides CRUD over forms and their field sub-resources.
type FormRepository interface {
	// List returns all forms. No ordering is guaranteed beyond insertion
	// order on the in-memory backend.
	List(ctx context.Context) ([]entities.Form, error)

	// Get returns the form with the given ID.
	Get(ctx context.Context, id string) (*entities.Form, error)

	// Create persists a new form at version 1 with a fresh UUID and returns
	// the persisted shape.
	Create(ctx context.Context, input entities.NewForm) (*entities.Form, error)

	// Update merges the patch into the form and increments its version by
	// exactly one. Only non-nil patch fields are written.
	Update(ctx context.Context, id string, patch entities.FormPatch) (*entities.Form, error)

	// Remove deletes the form metadata and returns the pre-deletion
	// snapshot. A second call for the same ID reports not found.
	Remove(ctx context.Context, id string) (*entities.Form, error)

	// ListFields returns the form's fields sorted ascending by Order, ties
	// broken by insertion order.
	ListFields(ctx context.Context, formID string) ([]entities.FormField, error)

	// CreateField adds a field to the form and increments the form version.
	// An absent Order appends after the existing fields; an absent FieldID is
	// generated. A caller-supplied FieldID already taken on the form is a
	// Conflict, field IDs are unique within their form.
	CreateField(ctx context.Context, formID string, input entities.NewFormField) (*entities.FormField, error)

	// UpdateField merges the patch into the field and increments the form
	// version.
	UpdateField(ctx context.Context, formID, fieldID string, patch entities.FormFieldPatch) (*entities.FormField, error)

	// RemoveField deletes the field, increments the form version and
	// returns the pre-deletion snapshot.
	RemoveField(ctx context.Context, formID, fieldID string) (*entities.FormField, error)

	// ReplaceFields swaps the form's whole field set. On the durable
	// backend this is a chunked, non-transactional batch; a mid-flight
	// failure surfaces as a distinct PartialBatch error.
	ReplaceFields(ctx context.Context, formID string, fields []entities.NewFormField) ([]entities.FormField, error)
}

// EpisodeFilter narrows an episode listing. At most one of FormID and
// SubmittedBy drives the lookup; FormID wins when both are set. A filter with
// neither lists everything, which the durable backend serves with a full scan
// (the expensive fallback). From/To bound the episode timestamp (inclusive)
// and Context matches the episode's context exactly; both apply on top of
// whichever lookup was chosen.
type EpisodeFilter struct {
	FormID      string
	SubmittedBy string
	From        *time.Time
	To          *time.Time
	Context     string
}

// EpisodeRepository provides CRUD over episodes.
type EpisodeRepository interface {
	List(ctx context.Context, filter EpisodeFilter) ([]entities.Episode, error)
	Get(ctx context.Context, id string) (*entities.Episode, error)
	Create(ctx context.Context, input entities.NewEpisode) (*entities.Episode, error)

	// Update merges the patch. Episodes carry no version counter; overlapping
	// updates are last-write-wins.
	Update(ctx context.Context, id string, patch entities.EpisodePatch) (*entities.Episode, error)
	Remove(ctx context.Context, id string) (*entities.Episode, error)
}

// UserRepository provides CRUD over user accounts.
type UserRepository interface {
	List(ctx context.Context) ([]entities.User, error)
	Get(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail is the login lookup. Emails are unique.
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Create(ctx context.Context, input entities.NewUser) (*entities.User, error)
	Update(ctx context.Context, id string, patch entities.UserPatch) (*entities.User, error)
	Remove(ctx context.Context, id string) (*entities.User, error)
}

// AuditRecorder persists write-only audit records of privileged actions.
type AuditRecorder interface {
	Record(ctx context.Context, rec entities.AuditRecord) error
	ListByDate(ctx context.Context, date string) ([]entities.AuditRecord, error)
}

// Repositories bundles one backend's repository set. Backend names the
// selected implementation ("dynamodb" or "memory").
type Repositories struct {
	Backend  string
	Forms    FormRepository
	Episodes EpisodeRepository
	Users    UserRepository
	Audit    AuditRecorder
}
