package cast

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/davidroman0O/goaction/store"
)

// RequiredMarker suffixes a schema key to mark the field required.
const RequiredMarker = "!"

var (
	// ErrInvalidSchema is wrapped by every schema compilation failure.
	ErrInvalidSchema = errors.New("invalid schema")
)

// Spec is either a bare Type or a Field.
type Spec interface {
	spec() Field
}

// Field is the long form of a schema entry.
type Field struct {
	// Type is the declared type tag.
	Type Type
	// Default is applied to an optional field absent after casting. Nil means
	// no default. Unless Cast is set it is coerced to Type at compile time.
	// Every cast receives its own deep copy.
	Default any
	// Cast overrides the coercion of Type.
	Cast CastFunc
}

func (f Field) spec() Field {
	return f
}

// Schema maps field names, optionally suffixed with RequiredMarker, to specs.
type Schema map[string]Spec

type fieldDef struct {
	key      string
	required bool
	Field
}

// Caster is a compiled Schema. It is safe for concurrent use.
type Caster struct {
	fields   []fieldDef
	types    map[string]Type
	required []string
}

// Compile checks the schema and prepares it for casting.
func Compile(s Schema) (*Caster, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: schema has no fields", ErrInvalidSchema)
	}

	c := &Caster{types: make(map[string]Type, len(s))}
	for name, sp := range s {
		if sp == nil {
			return nil, fmt.Errorf("%w: field %q has no spec", ErrInvalidSchema, name)
		}
		key, required := splitKey(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty field name %q", ErrInvalidSchema, name)
		}
		if _, dup := c.types[key]; dup {
			return nil, fmt.Errorf("%w: field %q declared twice", ErrInvalidSchema, key)
		}

		f := sp.spec()
		if f.Type == "" {
			f.Type = Any
		}
		if !f.Type.Valid() {
			return nil, fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidSchema, key, f.Type)
		}
		if f.Default != nil && f.Cast == nil {
			def, err := coerce(f.Type, f.Default)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q default: %v", ErrInvalidSchema, key, err)
			}
			f.Default = def
		}
		f.Default = store.DeepCopy(f.Default)

		c.types[key] = f.Type
		c.fields = append(c.fields, fieldDef{key: key, required: required, Field: f})
		if required {
			c.required = append(c.required, key)
		}
	}

	slices.SortFunc(c.fields, func(a, b fieldDef) int { return strings.Compare(a.key, b.key) })
	slices.Sort(c.required)
	return c, nil
}

// MustCompile is Compile that panics on error. Intended for package-level
// schema declarations.
func MustCompile(s Schema) *Caster {
	c, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return c
}

func splitKey(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if key, ok := strings.CutSuffix(name, RequiredMarker); ok {
		return key, true
	}
	return name, false
}

// Types returns the canonical field names mapped to their types.
func (c *Caster) Types() map[string]Type {
	out := make(map[string]Type, len(c.types))
	for k, v := range c.types {
		out[k] = v
	}
	return out
}

// Required returns the sorted required field names.
func (c *Caster) Required() []string {
	return slices.Clone(c.required)
}

// Cast coerces params against the schema. Undeclared keys are dropped, nil
// values count as absent. Required fields still absent are reported, then
// defaults fill the remaining optional gaps.
func (c *Caster) Cast(params map[string]any) *Record {
	rec := newRecord(params, c.types, c.required)

	for _, f := range c.fields {
		raw, ok := params[f.key]
		if !ok || raw == nil {
			continue
		}

		var (
			v   any
			err error
		)
		if f.Cast != nil {
			v, err = f.Cast(raw)
		} else {
			v, err = coerce(f.Type, raw)
		}
		if err != nil {
			rec.AddFieldError(FieldError{
				Field:   f.key,
				Kind:    KindCast,
				Type:    f.Type,
				Message: "is invalid",
				Cause:   err,
			})
			continue
		}
		rec.changes[f.key] = v
	}

	for _, f := range c.fields {
		if !f.required || rec.has(f.key) || rec.HasErrorOn(f.key) {
			continue
		}
		rec.AddFieldError(FieldError{
			Field:   f.key,
			Kind:    KindRequired,
			Type:    f.Type,
			Message: "is required",
		})
	}

	for _, f := range c.fields {
		if f.required || f.Default == nil || rec.has(f.key) || rec.HasErrorOn(f.key) {
			continue
		}
		rec.changes[f.key] = store.DeepCopy(f.Default)
	}

	return rec
}

// ParseSchema builds a Schema from generic data, as found in definition
// files. Values are either a type name or a map with "type" and optional
// "default" keys.
func ParseSchema(raw map[string]any) (Schema, error) {
	s := make(Schema, len(raw))
	for name, v := range raw {
		switch spec := v.(type) {
		case Spec:
			s[name] = spec
		case string:
			s[name] = Type(spec)
		case map[string]any:
			f := Field{Default: spec["default"]}
			if t, ok := spec["type"]; ok {
				tag, isString := t.(string)
				if !isString {
					return nil, fmt.Errorf("%w: field %q type must be a string, got %T", ErrInvalidSchema, name, t)
				}
				f.Type = Type(tag)
			}
			s[name] = f
		default:
			return nil, fmt.Errorf("%w: field %q has unsupported spec %T", ErrInvalidSchema, name, v)
		}
	}
	return s, nil
}
