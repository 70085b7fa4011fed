package entities

// FieldType is the input type of a form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeTime     FieldType = "time"
	FieldTypeScale    FieldType = "scale"
)

// Valid reports whether the field type is one of the known values.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeSelect, FieldTypeRadio,
		FieldTypeCheckbox, FieldTypeNumber, FieldTypeDate, FieldTypeTime, FieldTypeScale:
		return true
	}
	return false
}

// HasOptions reports whether the field type carries a fixed option list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeRadio || t == FieldTypeCheckbox
}

// FieldValidation holds the optional per-field constraints applied to
// submitted values.
type FieldValidation struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Regex     string   `json:"regex,omitempty"`
}

// FormField is one field of a form. FieldID is unique within its form.
// Order defines the display and validation sequence.
type FormField struct {
	FieldID    string           `json:"fieldId"`
	Label      string           `json:"label"`
	Type       FieldType        `json:"type"`
	Required   bool             `json:"required"`
	Order      int              `json:"order"`
	Options    []string         `json:"options,omitempty"`
	Default    string           `json:"default,omitempty"`
	Validation *FieldValidation `json:"validation,omitempty"`
}

// NewFormField carries the attributes accepted when creating a field.
// FieldID is optional; repositories assign a fresh UUID when it is empty.
// Order is optional; when nil the field is appended after the existing ones.
type NewFormField struct {
	FieldID    string           `json:"fieldId,omitempty"`
	Label      string           `json:"label"`
	Type       FieldType        `json:"type"`
	Required   bool             `json:"required,omitempty"`
	Order      *int             `json:"order,omitempty"`
	Options    []string         `json:"options,omitempty"`
	Default    string           `json:"default,omitempty"`
	Validation *FieldValidation `json:"validation,omitempty"`
}

// FormFieldPatch is a partial update to a field. Nil fields are left
// untouched; Options replaces the whole list when present.
type FormFieldPatch struct {
	Label      *string          `json:"label,omitempty"`
	Type       *FieldType       `json:"type,omitempty"`
	Required   *bool            `json:"required,omitempty"`
	Order      *int             `json:"order,omitempty"`
	Options    *[]string        `json:"options,omitempty"`
	Default    *string          `json:"default,omitempty"`
	Validation *FieldValidation `json:"validation,omitempty"`
}
