package memory

import (
	"context"

	"github.com/google/uuid"

	"carelog-backend/domain/entities"
	"carelog-backend/pkg/errors"
)

// UserRepository is the in-memory UserRepository implementation. Unlike the
// durable backend's archival-leaning design, Remove here is a hard delete;
// that is a deliberate simplification for the dev backend.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a user repository over the given store.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// List returns all users in insertion order.
func (r *UserRepository) List(ctx context.Context) ([]entities.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]entities.User, len(r.store.users))
	copy(out, r.store.users)
	return out, nil
}

// Get returns the user with the given ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*entities.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("user")
}

// GetByEmail is the login lookup.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, errors.NewNotFoundError("user")
}

// Create persists a new user. Emails are unique; a duplicate is a conflict.
func (r *UserRepository) Create(ctx context.Context, input entities.NewUser) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email == input.Email {
			return nil, errors.NewConflictError("email already in use")
		}
	}

	now := r.store.now()
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	role := input.Role
	if role == "" {
		role = entities.RoleTeacher
	}
	user := entities.User{
		ID:           id,
		Email:        input.Email,
		Role:         role,
		Active:       true,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Locale:       input.Locale,
		Timezone:     input.Timezone,
		PasswordHash: input.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.store.users = append(r.store.users, user)
	return &user, nil
}

// Update merges the patch. Users are not versioned.
func (r *UserRepository) Update(ctx context.Context, id string, patch entities.UserPatch) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.users {
		if r.store.users[i].ID != id {
			continue
		}
		u := &r.store.users[i]
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if patch.Active != nil {
			u.Active = *patch.Active
		}
		if patch.FirstName != nil {
			u.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			u.LastName = *patch.LastName
		}
		if patch.Phone != nil {
			u.Phone = *patch.Phone
		}
		if patch.Locale != nil {
			u.Locale = *patch.Locale
		}
		if patch.Timezone != nil {
			u.Timezone = *patch.Timezone
		}
		if patch.PasswordHash != nil {
			u.PasswordHash = *patch.PasswordHash
		}
		u.UpdatedAt = r.store.now()
		out := *u
		return &out, nil
	}
	return nil, errors.NewNotFoundError("user")
}

// Remove hard-deletes the user and returns the pre-deletion snapshot.
func (r *UserRepository) Remove(ctx context.Context, id string) (*entities.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.users {
		if r.store.users[i].ID == id {
			removed := r.store.users[i]
			r.store.users = append(r.store.users[:i], r.store.users[i+1:]...)
			return &removed, nil
		}
	}
	return nil, errors.NewNotFoundError("user")
}
