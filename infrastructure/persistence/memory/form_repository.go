package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"carelog-backend/domain/entities"
	"carelog-backend/pkg/errors"
)

// FormRepository is the in-memory FormRepository implementation.
type FormRepository struct {
	store *Store
}

// NewFormRepository creates a form repository over the given store.
func NewFormRepository(store *Store) *FormRepository {
	return &FormRepository{store: store}
}

// List returns all forms in insertion order.
func (r *FormRepository) List(ctx context.Context) ([]entities.Form, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]entities.Form, len(r.store.forms))
	copy(out, r.store.forms)
	return out, nil
}

// Get returns the form with the given ID.
func (r *FormRepository) Get(ctx context.Context, id string) (*entities.Form, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	f := r.store.findForm(id)
	if f == nil {
		return nil, errors.NewNotFoundError("form")
	}
	out := *f
	return &out, nil
}

// Create persists a new form at version 1.
func (r *FormRepository) Create(ctx context.Context, input entities.NewForm) (*entities.Form, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.store.now()
	status := input.Status
	if status == "" {
		status = entities.FormStatusActive
	}
	form := entities.Form{
		ID:        uuid.NewString(),
		Title:     input.Title,
		Status:    status,
		Version:   1,
		CreatedBy: input.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store.forms = append(r.store.forms, form)
	return &form, nil
}

// Update merges the patch and increments the version by one.
func (r *FormRepository) Update(ctx context.Context, id string, patch entities.FormPatch) (*entities.Form, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	f := r.store.findForm(id)
	if f == nil {
		return nil, errors.NewNotFoundError("form")
	}
	if patch.Title != nil {
		f.Title = *patch.Title
	}
	if patch.Status != nil {
		f.Status = *patch.Status
	}
	f.Version++
	f.UpdatedAt = r.store.now()
	out := *f
	return &out, nil
}

// Remove deletes the form metadata and returns the pre-deletion snapshot.
// Field items are left behind, matching the durable backend's
// metadata-only delete.
func (r *FormRepository) Remove(ctx context.Context, id string) (*entities.Form, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.forms {
		if r.store.forms[i].ID == id {
			removed := r.store.forms[i]
			r.store.forms = append(r.store.forms[:i], r.store.forms[i+1:]...)
			return &removed, nil
		}
	}
	return nil, errors.NewNotFoundError("form")
}

// ListFields returns the form's fields sorted ascending by Order, ties
// preserving insertion order.
func (r *FormRepository) ListFields(ctx context.Context, formID string) ([]entities.FormField, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	fields := r.store.fields[formID]
	out := make([]entities.FormField, 0, len(fields))
	for _, f := range fields {
		out = append(out, cloneField(f))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// CreateField adds a field to the form and bumps the form version.
func (r *FormRepository) CreateField(ctx context.Context, formID string, input entities.NewFormField) (*entities.FormField, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	form := r.store.findForm(formID)
	if form == nil {
		return nil, errors.NewNotFoundError("form")
	}
	if input.FieldID != "" {
		for _, f := range r.store.fields[formID] {
			if f.FieldID == input.FieldID {
				return nil, errors.NewConflictError("field ID already exists on this form")
			}
		}
	}

	field := newField(input, len(r.store.fields[formID]))
	r.store.fields[formID] = append(r.store.fields[formID], field)
	form.Version++
	form.UpdatedAt = r.store.now()

	out := cloneField(field)
	return &out, nil
}

// UpdateField merges the patch into the field and bumps the form version.
func (r *FormRepository) UpdateField(ctx context.Context, formID, fieldID string, patch entities.FormFieldPatch) (*entities.FormField, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	form := r.store.findForm(formID)
	if form == nil {
		return nil, errors.NewNotFoundError("form")
	}

	fields := r.store.fields[formID]
	for i := range fields {
		if fields[i].FieldID != fieldID {
			continue
		}
		f := &fields[i]
		if patch.Label != nil {
			f.Label = *patch.Label
		}
		if patch.Type != nil {
			f.Type = *patch.Type
		}
		if patch.Required != nil {
			f.Required = *patch.Required
		}
		if patch.Order != nil {
			f.Order = *patch.Order
		}
		if patch.Options != nil {
			f.Options = cloneStrings(*patch.Options)
		}
		if patch.Default != nil {
			f.Default = *patch.Default
		}
		if patch.Validation != nil {
			v := *patch.Validation
			f.Validation = &v
		}
		form.Version++
		form.UpdatedAt = r.store.now()
		out := cloneField(*f)
		return &out, nil
	}
	return nil, errors.NewNotFoundError("field")
}

// RemoveField deletes the field, bumps the form version and returns the
// pre-deletion snapshot.
func (r *FormRepository) RemoveField(ctx context.Context, formID, fieldID string) (*entities.FormField, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	form := r.store.findForm(formID)
	if form == nil {
		return nil, errors.NewNotFoundError("form")
	}

	fields := r.store.fields[formID]
	for i := range fields {
		if fields[i].FieldID == fieldID {
			removed := fields[i]
			r.store.fields[formID] = append(fields[:i], fields[i+1:]...)
			form.Version++
			form.UpdatedAt = r.store.now()
			out := cloneField(removed)
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("field")
}

// ReplaceFields swaps the form's whole field set and bumps the form version.
func (r *FormRepository) ReplaceFields(ctx context.Context, formID string, inputs []entities.NewFormField) ([]entities.FormField, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	form := r.store.findForm(formID)
	if form == nil {
		return nil, errors.NewNotFoundError("form")
	}

	fields := make([]entities.FormField, 0, len(inputs))
	for i, input := range inputs {
		fields = append(fields, newField(input, i))
	}
	r.store.fields[formID] = fields
	form.Version++
	form.UpdatedAt = r.store.now()

	out := make([]entities.FormField, 0, len(fields))
	for _, f := range fields {
		out = append(out, cloneField(f))
	}
	return out, nil
}

// newField materializes a field from creation input. existing is the count of
// fields already in place, used to append when no order is given.
func newField(input entities.NewFormField, existing int) entities.FormField {
	fieldID := input.FieldID
	if fieldID == "" {
		fieldID = uuid.NewString()
	}
	order := existing + 1
	if input.Order != nil {
		order = *input.Order
	}
	field := entities.FormField{
		FieldID:  fieldID,
		Label:    input.Label,
		Type:     input.Type,
		Required: input.Required,
		Order:    order,
		Options:  cloneStrings(input.Options),
		Default:  input.Default,
	}
	if input.Validation != nil {
		v := *input.Validation
		field.Validation = &v
	}
	return field
}
