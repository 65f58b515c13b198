package registry

import "github.com/probelab/flowboard/pkg/models"

// Builtin node type tags
const (
	TypeWeb        = "web"
	TypeSSH        = "ssh"
	TypeRDP        = "rdp"
	TypeCredential = "credential"
	TypeArtifact   = "artifact"
)

// NodeType describes a resolved node type: how it is labeled and what a
// freshly created node of this type carries as data.
type NodeType struct {
	// Tag is the builtin tag or custom definition id
	Tag string

	// Name is the human-readable type name
	Name string

	// Builtin indicates a built-in tag rather than a custom definition
	Builtin bool

	// Known is false when the tag resolved to neither a builtin nor a
	// registered custom type; such nodes render as a fallback placeholder
	Known bool

	// DefaultData builds the initial data for a new node of this type
	DefaultData func() map[string]interface{}
}

// builtinNodeTypes is the closed dispatch table of built-in tags. Custom
// definitions join the same lookup through ResolveType.
var builtinNodeTypes = map[string]NodeType{
	TypeWeb: {
		Tag:     TypeWeb,
		Name:    "Web Endpoint",
		Builtin: true,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":    "New Endpoint",
				"url":      "https://example.com",
				"method":   "GET",
				"authType": "none",
			}
		},
	},
	TypeSSH: {
		Tag:     TypeSSH,
		Name:    "SSH Access",
		Builtin: true,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":    "SSH Connection",
				"host":     "192.168.1.1",
				"port":     22,
				"username": "root",
				"authType": "key",
			}
		},
	},
	TypeRDP: {
		Tag:     TypeRDP,
		Name:    "RDP Access",
		Builtin: true,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":    "RDP Connection",
				"host":     "192.168.1.1",
				"port":     3389,
				"username": "Administrator",
			}
		},
	},
	TypeCredential: {
		Tag:     TypeCredential,
		Name:    "Credential",
		Builtin: true,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":    "New Credential",
				"type":     "password",
				"username": "user",
				"value":    "password123",
			}
		},
	},
	TypeArtifact: {
		Tag:     TypeArtifact,
		Name:    "Artifact",
		Builtin: true,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":    "Evidence File",
				"filePath": "/var/log/evidence.txt",
				"fileType": "text",
				"hash":     "sha256:abcdef1234567890",
				"size":     2048,
			}
		},
	},
}

// ResolveType maps a type tag to its descriptor: builtin tags first, then
// registered custom definitions. Unresolved tags return a fallback
// descriptor with Known=false rather than an error.
func (r *CustomNodeRegistry) ResolveType(tag string) NodeType {
	if nt, ok := builtinNodeTypes[tag]; ok {
		return nt
	}

	if def, err := r.Resolve(tag); err == nil {
		return customNodeType(def)
	}

	return NodeType{
		Tag:   tag,
		Name:  "Unknown",
		Known: false,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{"label": "New Node"}
		},
	}
}

// BuiltinTypes returns the builtin tags in palette order
func BuiltinTypes() []string {
	return []string{TypeWeb, TypeSSH, TypeRDP, TypeCredential, TypeArtifact}
}

// customNodeType builds a type descriptor from a custom definition
func customNodeType(def models.CustomNodeDefinition) NodeType {
	name := def.Name
	return NodeType{
		Tag:     def.ID,
		Name:    name,
		Builtin: false,
		Known:   true,
		DefaultData: func() map[string]interface{} {
			return map[string]interface{}{
				"label":      "New " + name,
				"customData": map[string]interface{}{},
			}
		},
	}
}
