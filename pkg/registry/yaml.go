package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/probelab/flowboard/pkg/models"
)

// ParseDefinitionYAML parses a custom node type definition authored as
// YAML and validates it. This is the on-disk authoring format used by the
// CLI; ids and creation times are filled in by Upsert when absent.
func ParseDefinitionYAML(data []byte) (models.CustomNodeDefinition, error) {
	var def models.CustomNodeDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return models.CustomNodeDefinition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	if err := ValidateDefinition(def); err != nil {
		return models.CustomNodeDefinition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	return def, nil
}

// EncodeDefinitionYAML renders a definition in the YAML authoring format
func EncodeDefinitionYAML(def models.CustomNodeDefinition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}
	return data, nil
}
