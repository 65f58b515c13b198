package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/probelab/flowboard/pkg/models"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func TestValidateFieldValueRequired(t *testing.T) {
	field := models.FieldDefinition{
		ID:         "name",
		Label:      "Name",
		Type:       models.FieldTypeText,
		Validation: &models.FieldValidation{Required: true},
	}

	assert.Error(t, ValidateFieldValue(field, nil))
	assert.Error(t, ValidateFieldValue(field, ""))
	assert.Error(t, ValidateFieldValue(field, "   "))
	assert.NoError(t, ValidateFieldValue(field, "ok"))

	// Optional fields accept emptiness
	field.Validation.Required = false
	assert.NoError(t, ValidateFieldValue(field, ""))
}

func TestValidateFieldValueLengthBounds(t *testing.T) {
	field := models.FieldDefinition{
		ID:    "notes",
		Label: "Notes",
		Type:  models.FieldTypeTextarea,
		Validation: &models.FieldValidation{
			MinLength: intPtr(3),
			MaxLength: intPtr(5),
		},
	}

	assert.Error(t, ValidateFieldValue(field, "ab"))
	assert.NoError(t, ValidateFieldValue(field, "abc"))
	assert.NoError(t, ValidateFieldValue(field, "abcde"))
	assert.Error(t, ValidateFieldValue(field, "abcdef"))
}

func TestValidateFieldValueNumericBounds(t *testing.T) {
	field := models.FieldDefinition{
		ID:    "port",
		Label: "Port",
		Type:  models.FieldTypeNumber,
		Validation: &models.FieldValidation{
			Min: floatPtr(1),
			Max: floatPtr(65535),
		},
	}

	assert.NoError(t, ValidateFieldValue(field, 22))
	assert.NoError(t, ValidateFieldValue(field, 8080.0))
	assert.NoError(t, ValidateFieldValue(field, "443"))
	assert.Error(t, ValidateFieldValue(field, 0))
	assert.Error(t, ValidateFieldValue(field, 70000.0))
	assert.Error(t, ValidateFieldValue(field, "not-a-number"))
}

func TestValidateFieldValueSelectEnforcesOptions(t *testing.T) {
	field := models.FieldDefinition{
		ID:      "severity",
		Label:   "Severity",
		Type:    models.FieldTypeSelect,
		Options: []string{"low", "medium", "high"},
	}

	assert.NoError(t, ValidateFieldValue(field, "medium"))
	assert.Error(t, ValidateFieldValue(field, "critical"))
	assert.Error(t, ValidateFieldValue(field, 3))
}

func TestValidateFieldValueURL(t *testing.T) {
	field := models.FieldDefinition{ID: "target", Label: "Target", Type: models.FieldTypeURL}

	assert.NoError(t, ValidateFieldValue(field, "https://api.target.com/v1"))
	assert.Error(t, ValidateFieldValue(field, "not a url"))
	assert.Error(t, ValidateFieldValue(field, "relative/path"))
}

func TestValidateFieldValueEmail(t *testing.T) {
	field := models.FieldDefinition{ID: "contact", Label: "Contact", Type: models.FieldTypeEmail}

	assert.NoError(t, ValidateFieldValue(field, "analyst@example.com"))
	assert.Error(t, ValidateFieldValue(field, "analyst@"))
	assert.Error(t, ValidateFieldValue(field, "nope"))
}

func TestParseDefinitionYAML(t *testing.T) {
	data := []byte(`
name: Database Server
icon: database
color: "#336699"
fields:
  - id: hostname
    label: Hostname
    type: text
    validation:
      required: true
      maxLength: 64
  - id: engine
    label: Engine
    type: select
    options:
      - postgres
      - mysql
`)

	def, err := ParseDefinitionYAML(data)
	assert.NoError(t, err)
	assert.Equal(t, "Database Server", def.Name)
	assert.Len(t, def.Fields, 2)
	assert.True(t, def.Fields[0].Validation.Required)
	assert.Equal(t, 64, *def.Fields[0].Validation.MaxLength)

	// Round-trip through the encoder
	encoded, err := EncodeDefinitionYAML(def)
	assert.NoError(t, err)
	again, err := ParseDefinitionYAML(encoded)
	assert.NoError(t, err)
	assert.Equal(t, def.Name, again.Name)
	assert.Equal(t, def.Fields, again.Fields)
}

func TestParseDefinitionYAMLRejectsBadInput(t *testing.T) {
	_, err := ParseDefinitionYAML([]byte("{{not yaml"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = ParseDefinitionYAML([]byte("name: ''\nfields: []\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}
