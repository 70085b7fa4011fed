// Package services holds the business logic that sits between the HTTP layer
// and the repositories.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"carelog-backend/application/ports"
	"carelog-backend/domain/entities"
	apperrors "carelog-backend/pkg/errors"
)

// EpisodeValidator checks submitted episode data against the owning form's
// field definitions before anything reaches storage. Structural value checks
// (numbers, date/time formats) go through the shared validator engine; the
// per-field constraints come from the form.
type EpisodeValidator struct {
	forms    ports.FormRepository
	validate *validator.Validate
}

// NewEpisodeValidator creates a validator bound to the form repository.
func NewEpisodeValidator(forms ports.FormRepository) *EpisodeValidator {
	return &EpisodeValidator{
		forms:    forms,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateData checks the data map against the form's fields. It returns a
// Validation error naming every failing field at once rather than stopping
// at the first, so a client can fix a submission in one round trip.
func (v *EpisodeValidator) ValidateData(ctx context.Context, formID string, data map[string]any) error {
	if _, err := v.forms.Get(ctx, formID); err != nil {
		return err
	}
	fields, err := v.forms.ListFields(ctx, formID)
	if err != nil {
		return err
	}

	known := make(map[string]entities.FormField, len(fields))
	for _, f := range fields {
		known[f.FieldID] = f
	}

	var problems []string

	for key := range data {
		if _, ok := known[key]; !ok {
			problems = append(problems, fmt.Sprintf("%s: no such field", key))
		}
	}

	for _, field := range fields {
		value, present := data[field.FieldID]
		if !present || isEmpty(value) {
			if field.Required {
				problems = append(problems, fmt.Sprintf("%s: required", field.FieldID))
			}
			continue
		}
		if msg := v.checkValue(field, value); msg != "" {
			problems = append(problems, fmt.Sprintf("%s: %s", field.FieldID, msg))
		}
	}

	if len(problems) > 0 {
		return apperrors.NewValidationError("episode data invalid").
			WithDetails(map[string]interface{}{"fields": problems})
	}
	return nil
}

// checkValue applies the field's type and constraint checks to one value.
func (v *EpisodeValidator) checkValue(field entities.FormField, value any) string {
	switch field.Type {
	case entities.FieldTypeText, entities.FieldTypeTextarea:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		return v.checkString(field, s)

	case entities.FieldTypeSelect, entities.FieldTypeRadio:
		s, ok := value.(string)
		if !ok {
			return "expected a string"
		}
		if !containsOption(field.Options, s) {
			return fmt.Sprintf("%q is not one of the allowed options", s)
		}

	case entities.FieldTypeCheckbox:
		values, ok := asStringSlice(value)
		if !ok {
			return "expected a list of strings"
		}
		for _, s := range values {
			if !containsOption(field.Options, s) {
				return fmt.Sprintf("%q is not one of the allowed options", s)
			}
		}

	case entities.FieldTypeNumber, entities.FieldTypeScale:
		n, ok := asNumber(value)
		if !ok {
			return "expected a number"
		}
		if fv := field.Validation; fv != nil {
			if fv.Min != nil && n < *fv.Min {
				return fmt.Sprintf("must be at least %v", *fv.Min)
			}
			if fv.Max != nil && n > *fv.Max {
				return fmt.Sprintf("must be at most %v", *fv.Max)
			}
		}

	case entities.FieldTypeDate:
		s, ok := value.(string)
		if !ok {
			return "expected a date string"
		}
		if err := v.validate.Var(s, "datetime=2006-01-02"); err != nil {
			return "expected a YYYY-MM-DD date"
		}

	case entities.FieldTypeTime:
		s, ok := value.(string)
		if !ok {
			return "expected a time string"
		}
		if err := v.validate.Var(s, "datetime=15:04"); err != nil {
			return "expected an HH:MM time"
		}
	}

	return ""
}

func (v *EpisodeValidator) checkString(field entities.FormField, s string) string {
	fv := field.Validation
	if fv == nil {
		return ""
	}
	if fv.MaxLength != nil && len(s) > *fv.MaxLength {
		return fmt.Sprintf("must be at most %d characters", *fv.MaxLength)
	}
	if fv.Regex != "" {
		re, err := regexp.Compile(fv.Regex)
		if err != nil {
			// A broken pattern on the form must not block submissions.
			return ""
		}
		if !re.MatchString(s) {
			return "does not match the required pattern"
		}
	}
	return ""
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func containsOption(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

// asNumber accepts the numeric shapes JSON decoding produces.
func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// asStringSlice accepts both a decoded []any of strings and a native
// []string.
func asStringSlice(value any) ([]string, bool) {
	switch vs := value.(type) {
	case []string:
		return vs, true
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
