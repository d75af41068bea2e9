package cast

import (
	"github.com/invopop/jsonschema"
)

// JSONSchema describes the params accepted by the caster as a JSON Schema
// object. Undeclared keys are dropped by Cast, so additional properties are
// allowed rather than rejected.
func (c *Caster) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, f := range c.fields {
		s := typeSchema(f.Type)
		if f.Default != nil {
			s.Default = f.Default
		}
		props.Set(f.key, s)
	}

	return &jsonschema.Schema{
		Version:    jsonschema.Version,
		Type:       "object",
		Properties: props,
		Required:   c.Required(),
	}
}

func typeSchema(t Type) *jsonschema.Schema {
	if elem, ok := t.Elem(); ok {
		return &jsonschema.Schema{Type: "array", Items: typeSchema(elem)}
	}

	switch t {
	case String:
		return &jsonschema.Schema{Type: "string"}
	case Integer:
		return &jsonschema.Schema{Type: "integer"}
	case Float:
		return &jsonschema.Schema{Type: "number"}
	case Boolean:
		return &jsonschema.Schema{Type: "boolean"}
	case Map:
		return &jsonschema.Schema{Type: "object"}
	case Array:
		return &jsonschema.Schema{Type: "array"}
	case Time:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case Duration:
		return &jsonschema.Schema{Type: "string", Format: "duration"}
	case UUID:
		return &jsonschema.Schema{Type: "string", Format: "uuid"}
	default:
		return &jsonschema.Schema{}
	}
}
