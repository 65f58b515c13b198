package registry

import (
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/probelab/flowboard/pkg/models"
)

// validFieldTypes is the closed set of supported field kinds
var validFieldTypes = map[models.FieldType]bool{
	models.FieldTypeText:     true,
	models.FieldTypeNumber:   true,
	models.FieldTypeSelect:   true,
	models.FieldTypeTextarea: true,
	models.FieldTypeURL:      true,
	models.FieldTypeEmail:    true,
}

// ValidateDefinition checks a custom node type definition for structural
// problems before it is stored
func ValidateDefinition(def models.CustomNodeDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}

	seen := make(map[string]bool, len(def.Fields))
	for i, field := range def.Fields {
		if strings.TrimSpace(field.ID) == "" {
			return fmt.Errorf("field %d: id must not be empty", i)
		}
		if seen[field.ID] {
			return fmt.Errorf("field %d: duplicate id %q", i, field.ID)
		}
		seen[field.ID] = true

		if strings.TrimSpace(field.Label) == "" {
			return fmt.Errorf("field %q: label must not be empty", field.ID)
		}
		if !validFieldTypes[field.Type] {
			return fmt.Errorf("field %q: unknown type %q", field.ID, field.Type)
		}
		if field.Type == models.FieldTypeSelect && len(field.Options) == 0 {
			return fmt.Errorf("field %q: select fields must declare options", field.ID)
		}

		if v := field.Validation; v != nil {
			if err := validateRules(field, v); err != nil {
				return fmt.Errorf("field %q: %v", field.ID, err)
			}
		}
	}

	return nil
}

// validateRules checks that validation rules fit the field's type
func validateRules(field models.FieldDefinition, v *models.FieldValidation) error {
	textual := field.Type == models.FieldTypeText || field.Type == models.FieldTypeTextarea

	if (v.MinLength != nil || v.MaxLength != nil) && !textual {
		return fmt.Errorf("length bounds only apply to text and textarea fields")
	}
	if (v.Min != nil || v.Max != nil) && field.Type != models.FieldTypeNumber {
		return fmt.Errorf("numeric bounds only apply to number fields")
	}
	if v.MinLength != nil && *v.MinLength < 0 {
		return fmt.Errorf("minLength must not be negative")
	}
	if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
		return fmt.Errorf("minLength exceeds maxLength")
	}
	if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		return fmt.Errorf("min exceeds max")
	}
	return nil
}

// ValidateFieldValue checks one field value against its definition. This is
// the single rule set shared by builtin and custom edit forms.
func ValidateFieldValue(field models.FieldDefinition, value interface{}) error {
	v := field.Validation
	required := v != nil && v.Required

	if isEmptyValue(value) {
		if required {
			return fmt.Errorf("%s is required", field.Label)
		}
		return nil
	}

	switch field.Type {
	case models.FieldTypeText, models.FieldTypeTextarea:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be text", field.Label)
		}
		if v != nil && v.MinLength != nil && len(s) < *v.MinLength {
			return fmt.Errorf("%s must be at least %d characters", field.Label, *v.MinLength)
		}
		if v != nil && v.MaxLength != nil && len(s) > *v.MaxLength {
			return fmt.Errorf("%s must be at most %d characters", field.Label, *v.MaxLength)
		}

	case models.FieldTypeNumber:
		n, err := numericValue(value)
		if err != nil {
			return fmt.Errorf("%s must be a number", field.Label)
		}
		if v != nil && v.Min != nil && n < *v.Min {
			return fmt.Errorf("%s must be at least %v", field.Label, *v.Min)
		}
		if v != nil && v.Max != nil && n > *v.Max {
			return fmt.Errorf("%s must be at most %v", field.Label, *v.Max)
		}

	case models.FieldTypeSelect:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be one of the declared options", field.Label)
		}
		for _, option := range field.Options {
			if s == option {
				return nil
			}
		}
		return fmt.Errorf("%s must be one of the declared options", field.Label)

	case models.FieldTypeURL:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be a URL", field.Label)
		}
		parsed, err := url.Parse(s)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be a valid URL", field.Label)
		}

	case models.FieldTypeEmail:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be an email address", field.Label)
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return fmt.Errorf("%s must be a valid email address", field.Label)
		}
	}

	return nil
}

// isEmptyValue reports whether a field value counts as unset
func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// numericValue coerces the JSON-decoded representations of a number
func numericValue(value interface{}) (float64, error) {
	switch n := value.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number")
	}
}
