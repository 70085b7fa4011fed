package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelog-backend/domain/entities"
	"carelog-backend/pkg/errors"
)

func intPtr(v int) *int                                    { return &v }
func strPtr(v string) *string                              { return &v }
func statusPtr(v entities.FormStatus) *entities.FormStatus { return &v }

func TestFormCreateGetRoundTrip(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	created, err := repo.Create(ctx, entities.NewForm{Title: "Baseline", Status: entities.FormStatusActive, CreatedBy: "clin@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, entities.FormStatusActive, created.Status)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestFormCreateDefaultsStatusToActive(t *testing.T) {
	repo := NewFormRepository(NewStore())

	created, err := repo.Create(context.Background(), entities.NewForm{Title: "No status"})
	require.NoError(t, err)
	assert.Equal(t, entities.FormStatusActive, created.Status)
}

func TestFormVersionMonotonicity(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	created, err := repo.Create(ctx, entities.NewForm{Title: "Versioned"})
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := repo.Update(ctx, created.ID, entities.FormPatch{Title: strPtr("Versioned")})
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Version+n, got.Version)
}

func TestFormUpdateMergesOnlyPresentFields(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	updated, err := repo.Update(ctx, "f-1", entities.FormPatch{Status: statusPtr(entities.FormStatusArchived)})
	require.NoError(t, err)
	assert.Equal(t, "Baseline Episode", updated.Title)
	assert.Equal(t, entities.FormStatusArchived, updated.Status)
	assert.Equal(t, 2, updated.Version)
}

func TestFormUpdateNotFound(t *testing.T) {
	repo := NewFormRepository(NewStore())

	_, err := repo.Update(context.Background(), "missing", entities.FormPatch{Title: strPtr("x")})
	assert.True(t, errors.IsNotFound(err))
}

func TestFormRemoveIsIdempotentFromCallerView(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	removed, err := repo.Remove(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Baseline Episode", removed.Title)

	_, err = repo.Remove(ctx, "f-1")
	assert.True(t, errors.IsNotFound(err))
}

func TestListFieldsSortsByOrderWithStableTies(t *testing.T) {
	store := NewStore()
	repo := NewFormRepository(store)
	ctx := context.Background()

	form, err := repo.Create(ctx, entities.NewForm{Title: "Ordering"})
	require.NoError(t, err)

	// Create out of order, including an order tie.
	for _, f := range []entities.NewFormField{
		{FieldID: "c", Label: "C", Type: entities.FieldTypeText, Order: intPtr(3)},
		{FieldID: "a1", Label: "A first", Type: entities.FieldTypeText, Order: intPtr(1)},
		{FieldID: "a2", Label: "A second", Type: entities.FieldTypeText, Order: intPtr(1)},
		{FieldID: "b", Label: "B", Type: entities.FieldTypeText, Order: intPtr(2)},
	} {
		_, err := repo.CreateField(ctx, form.ID, f)
		require.NoError(t, err)
	}

	fields, err := repo.ListFields(ctx, form.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.FieldID)
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, ids)
}

func TestCreateFieldAppendsWhenOrderAbsent(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	field, err := repo.CreateField(ctx, "f-1", entities.NewFormField{Label: "Extra", Type: entities.FieldTypeText})
	require.NoError(t, err)
	assert.NotEmpty(t, field.FieldID)
	assert.Equal(t, 3, field.Order) // seed form has two fields
}

func TestCreateFieldRejectsDuplicateFieldID(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	_, err := repo.CreateField(ctx, "f-1", entities.NewFormField{FieldID: "fld-x", Label: "X", Type: entities.FieldTypeText})
	require.NoError(t, err)

	_, err = repo.CreateField(ctx, "f-1", entities.NewFormField{FieldID: "fld-x", Label: "X again", Type: entities.FieldTypeText})
	assert.True(t, errors.IsConflict(err))

	// The losing write left nothing behind.
	fields, err := repo.ListFields(ctx, "f-1")
	require.NoError(t, err)
	count := 0
	for _, f := range fields {
		if f.FieldID == "fld-x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFieldMutationsBumpFormVersion(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	field, err := repo.CreateField(ctx, "f-1", entities.NewFormField{Label: "Extra", Type: entities.FieldTypeText})
	require.NoError(t, err)

	_, err = repo.UpdateField(ctx, "f-1", field.FieldID, entities.FormFieldPatch{Required: boolPtr(true)})
	require.NoError(t, err)

	_, err = repo.RemoveField(ctx, "f-1", field.FieldID)
	require.NoError(t, err)

	form, err := repo.Get(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, 4, form.Version) // seed v1 + create + update + remove
}

func TestFieldOpsOnMissingFormReportNotFound(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	_, err := repo.CreateField(ctx, "missing", entities.NewFormField{Label: "x", Type: entities.FieldTypeText})
	assert.True(t, errors.IsNotFound(err))

	_, err = repo.UpdateField(ctx, "missing", "fld", entities.FormFieldPatch{})
	assert.True(t, errors.IsNotFound(err))
}

func TestReplaceFieldsSwapsWholeSet(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	fields, err := repo.ReplaceFields(ctx, "f-1", []entities.NewFormField{
		{Label: "Severity", Type: entities.FieldTypeScale, Order: intPtr(1)},
	})
	require.NoError(t, err)
	require.Len(t, fields, 1)

	listed, err := repo.ListFields(ctx, "f-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Severity", listed[0].Label)

	form, err := repo.Get(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, 2, form.Version)
}

func TestSelectFieldKeepsOptions(t *testing.T) {
	repo := NewFormRepository(NewStore())
	ctx := context.Background()

	field, err := repo.CreateField(ctx, "f-1", entities.NewFormField{
		Label:    "Context",
		Type:     entities.FieldTypeSelect,
		Required: true,
		Options:  []string{"class", "recess"},
		Order:    intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"class", "recess"}, field.Options)
}

func boolPtr(v bool) *bool { return &v }
