package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	"carelog-backend/pkg/auth"
	"carelog-backend/pkg/errors"
)

func TestStoreSeed(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	users, err := NewUserRepository(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	forms, err := NewFormRepository(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "Baseline Episode", forms[0].Title)

	fields, err := NewFormRepository(store).ListFields(ctx, "f-1")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "fld-ctx", fields[0].FieldID)
	assert.Equal(t, "fld-notes", fields[1].FieldID)

	// Same option list the seed command writes to the durable backend, so
	// submissions valid against one fixture are valid against the other.
	assert.Equal(t, SeedContextOptions, fields[0].Options)
}

func TestStoreResetRestoresSeed(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	forms := NewFormRepository(store)
	episodes := NewEpisodeRepository(store)

	_, err := forms.Create(ctx, entities.NewForm{Title: "Extra"})
	require.NoError(t, err)
	_, err = episodes.Create(ctx, entities.NewEpisode{FormID: "f-1", CreatedBy: "t@x.com"})
	require.NoError(t, err)

	store.Reset()

	listed, err := forms.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	eps, err := episodes.List(ctx, ports.EpisodeFilter{})
	require.NoError(t, err)
	assert.Empty(t, eps)
}

func TestSeededUsersCanLogIn(t *testing.T) {
	store := NewStore()

	user, err := NewUserRepository(store).GetByEmail(context.Background(), "teach@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "changeme"))
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(NewStore())

	_, err := repo.Create(context.Background(), entities.NewUser{Email: "teach@example.com", Role: entities.RoleTeacher})
	assert.True(t, errors.IsConflict(err))
}

func TestUserDeactivateViaUpdate(t *testing.T) {
	repo := NewUserRepository(NewStore())
	ctx := context.Background()

	inactive := false
	updated, err := repo.Update(ctx, "u-teach", entities.UserPatch{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	// Other profile fields untouched.
	assert.Equal(t, "teach@example.com", updated.Email)
	assert.Equal(t, entities.RoleTeacher, updated.Role)
}

func TestAuditRecorderRoundTrip(t *testing.T) {
	store := NewStore()
	recorder := NewAuditRecorder(store)
	ctx := context.Background()

	err := recorder.Record(ctx, entities.AuditRecord{
		Action: entities.AuditActionDeleted,
		Actor:  "sys@example.com",
		Entity: "form:f-1",
	})
	require.NoError(t, err)

	date := store.now().UTC().Format("2006-01-02")
	records, err := recorder.ListByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entities.AuditActionDeleted, records[0].Action)
	assert.False(t, records[0].Timestamp.IsZero())
}
