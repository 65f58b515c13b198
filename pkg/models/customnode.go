package models

import "time"

// FieldType enumerates the supported custom field kinds
type FieldType string

const (
	// FieldTypeText is a single-line text field
	FieldTypeText FieldType = "text"

	// FieldTypeNumber is a numeric field
	FieldTypeNumber FieldType = "number"

	// FieldTypeSelect is a field constrained to a list of options
	FieldTypeSelect FieldType = "select"

	// FieldTypeTextarea is a multi-line text field
	FieldTypeTextarea FieldType = "textarea"

	// FieldTypeURL is a text field holding a URL
	FieldTypeURL FieldType = "url"

	// FieldTypeEmail is a text field holding an email address
	FieldTypeEmail FieldType = "email"
)

// FieldValidation holds the optional validation rules for a field
type FieldValidation struct {
	// Required indicates the field must be non-empty
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// MinLength is the minimum length for text/textarea fields
	MinLength *int `json:"minLength,omitempty" yaml:"minLength,omitempty"`

	// MaxLength is the maximum length for text/textarea fields
	MaxLength *int `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`

	// Min is the minimum value for number fields
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`

	// Max is the maximum value for number fields
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// FieldDefinition describes one field of a custom node type
type FieldDefinition struct {
	// ID is unique within the definition
	ID string `json:"id" yaml:"id"`

	// Label shown for the field
	Label string `json:"label" yaml:"label"`

	// Type of the field
	Type FieldType `json:"type" yaml:"type"`

	// Placeholder text for empty fields
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// Options is the allowed value list for select fields
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// Validation rules for the field
	Validation *FieldValidation `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// CustomNodeDefinition is a user-authored node type schema
type CustomNodeDefinition struct {
	// ID of the definition
	ID string `json:"id" yaml:"id"`

	// Name of the node type
	Name string `json:"name" yaml:"name"`

	// Icon is a symbolic icon identifier
	Icon string `json:"icon" yaml:"icon"`

	// Color is the node's hex color
	Color string `json:"color" yaml:"color"`

	// Fields of the node type, in display order
	Fields []FieldDefinition `json:"fields" yaml:"fields"`

	// CreatedAt is when the definition was created
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
}

// CustomNodeStorage is the durable custom node type state, independent of
// the flows document
type CustomNodeStorage struct {
	// CustomNodes holds every registered definition
	CustomNodes []CustomNodeDefinition `json:"customNodes"`
}

// Clone returns a deep copy of the definition
func (d CustomNodeDefinition) Clone() CustomNodeDefinition {
	out := d
	out.Fields = make([]FieldDefinition, len(d.Fields))
	for i, f := range d.Fields {
		cf := f
		if f.Options != nil {
			cf.Options = append([]string(nil), f.Options...)
		}
		if f.Validation != nil {
			v := *f.Validation
			cf.Validation = &v
		}
		out.Fields[i] = cf
	}
	return out
}
