package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelog-backend/domain/entities"
	"carelog-backend/infrastructure/persistence/memory"
	apperrors "carelog-backend/pkg/errors"
)

// fixture builds a validator over the in-memory store with one form covering
// the field types under test.
func fixture(t *testing.T) (*EpisodeValidator, string) {
	t.Helper()
	store := memory.NewStore()
	forms := memory.NewFormRepository(store)

	ctx := context.Background()
	form, err := forms.Create(ctx, entities.NewForm{Title: "Test Form"})
	require.NoError(t, err)

	min, max := 1.0, 5.0
	maxLen := 10
	inputs := []entities.NewFormField{
		{FieldID: "mood", Label: "Mood", Type: entities.FieldTypeSelect, Required: true,
			Options: []string{"calm", "anxious", "upset"}},
		{FieldID: "intensity", Label: "Intensity", Type: entities.FieldTypeScale,
			Validation: &entities.FieldValidation{Min: &min, Max: &max}},
		{FieldID: "notes", Label: "Notes", Type: entities.FieldTypeText,
			Validation: &entities.FieldValidation{MaxLength: &maxLen, Regex: "^[a-z ]*$"}},
		{FieldID: "triggers", Label: "Triggers", Type: entities.FieldTypeCheckbox,
			Options: []string{"noise", "light", "crowd"}},
		{FieldID: "observed", Label: "Observed On", Type: entities.FieldTypeDate},
		{FieldID: "at", Label: "At", Type: entities.FieldTypeTime},
	}
	_, err = forms.ReplaceFields(ctx, form.ID, inputs)
	require.NoError(t, err)

	return NewEpisodeValidator(forms), form.ID
}

func TestValidateData_AcceptsValidSubmission(t *testing.T) {
	v, formID := fixture(t)

	err := v.ValidateData(context.Background(), formID, map[string]any{
		"mood":      "calm",
		"intensity": 3.0,
		"notes":     "quiet day",
		"triggers":  []any{"noise", "light"},
		"observed":  "2025-06-01",
		"at":        "09:30",
	})
	assert.NoError(t, err)
}

func TestValidateData_MissingRequiredField(t *testing.T) {
	v, formID := fixture(t)

	err := v.ValidateData(context.Background(), formID, map[string]any{})
	require.True(t, apperrors.IsValidation(err))
	assert.Contains(t, fieldProblems(t, err), "mood: required")
}

func TestValidateData_EmptyStringCountsAsMissing(t *testing.T) {
	v, formID := fixture(t)

	err := v.ValidateData(context.Background(), formID, map[string]any{"mood": "  "})
	require.True(t, apperrors.IsValidation(err))
	assert.Contains(t, fieldProblems(t, err), "mood: required")
}

func TestValidateData_UnknownFieldRejected(t *testing.T) {
	v, formID := fixture(t)

	err := v.ValidateData(context.Background(), formID, map[string]any{
		"mood":     "calm",
		"invented": "x",
	})
	require.True(t, apperrors.IsValidation(err))
	assert.Contains(t, fieldProblems(t, err), "invented: no such field")
}

func TestValidateData_OptionMembership(t *testing.T) {
	v, formID := fixture(t)
	ctx := context.Background()

	err := v.ValidateData(ctx, formID, map[string]any{"mood": "furious"})
	require.True(t, apperrors.IsValidation(err))

	err = v.ValidateData(ctx, formID, map[string]any{
		"mood":     "calm",
		"triggers": []any{"noise", "rain"},
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestValidateData_NumericBounds(t *testing.T) {
	v, formID := fixture(t)
	ctx := context.Background()

	base := map[string]any{"mood": "calm"}

	for _, bad := range []any{0.5, 6.0, "three"} {
		data := map[string]any{"mood": "calm", "intensity": bad}
		err := v.ValidateData(ctx, formID, data)
		assert.True(t, apperrors.IsValidation(err), "expected rejection for %v", bad)
	}

	base["intensity"] = 5.0
	assert.NoError(t, v.ValidateData(ctx, formID, base))
}

func TestValidateData_StringConstraints(t *testing.T) {
	v, formID := fixture(t)
	ctx := context.Background()

	err := v.ValidateData(ctx, formID, map[string]any{
		"mood":  "calm",
		"notes": "far too long for ten",
	})
	require.True(t, apperrors.IsValidation(err))

	err = v.ValidateData(ctx, formID, map[string]any{
		"mood":  "calm",
		"notes": "UPPER",
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestValidateData_DateAndTimeFormats(t *testing.T) {
	v, formID := fixture(t)
	ctx := context.Background()

	err := v.ValidateData(ctx, formID, map[string]any{
		"mood":     "calm",
		"observed": "01/06/2025",
	})
	require.True(t, apperrors.IsValidation(err))

	err = v.ValidateData(ctx, formID, map[string]any{
		"mood": "calm",
		"at":   "9:3",
	})
	require.True(t, apperrors.IsValidation(err))
}

func TestValidateData_ReportsAllProblemsAtOnce(t *testing.T) {
	v, formID := fixture(t)

	err := v.ValidateData(context.Background(), formID, map[string]any{
		"intensity": 9.0,
		"invented":  true,
	})
	require.True(t, apperrors.IsValidation(err))
	assert.GreaterOrEqual(t, len(fieldProblems(t, err)), 3)
}

func TestValidateData_UnknownFormNotFound(t *testing.T) {
	v, _ := fixture(t)

	err := v.ValidateData(context.Background(), "f-missing", map[string]any{})
	assert.True(t, apperrors.IsNotFound(err))
}

func fieldProblems(t *testing.T, err error) []string {
	t.Helper()
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	problems, ok := appErr.Details["fields"].([]string)
	require.True(t, ok)
	return problems
}
