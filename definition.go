package goaction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidroman0O/goaction/cast"
)

// DefinitionFormat is the encoding of a definitions document.
type DefinitionFormat string

const (
	FormatJSON DefinitionFormat = "json"
	FormatYAML DefinitionFormat = "yaml"
)

// ErrInvalidDefinition is wrapped by every definition loading failure.
var ErrInvalidDefinition = errors.New("invalid definition")

// Definitions is a serializable set of action declarations:
//
//	actions:
//	  - name: create
//	    steps:
//	      - step: goaction.cast_params
//	        options:
//	          schema:
//	            name!: string
//	            age: {type: integer, default: 18}
//	      - step: insert
//	      - provider: mailer
//	        step: welcome
type Definitions struct {
	// Owner is informative; the builder's owner is authoritative.
	Owner   string      `json:"owner,omitempty" yaml:"owner,omitempty"`
	Actions []ActionDef `json:"actions" yaml:"actions"`
}

// ActionDef is a serializable action declaration.
type ActionDef struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []StepDef `json:"steps" yaml:"steps"`
}

// StepDef is a serializable step entry. Step "goaction.cast_params" names
// the built-in parameter caster, a Provider makes the ref external.
type StepDef struct {
	Step     string     `json:"step" yaml:"step"`
	Provider string     `json:"provider,omitempty" yaml:"provider,omitempty"`
	Options  OptionsDef `json:"options,omitempty" yaml:"options,omitempty"`
}

// OptionsDef decodes a mapping into Options, keeping the document order.
type OptionsDef Options

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionsDef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: options must be an object", ErrInvalidDefinition)
	}

	var opts OptionsDef
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		opts = append(opts, Option{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = opts
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OptionsDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: options must be a mapping (line %d)", ErrInvalidDefinition, node.Line)
	}

	opts := make(OptionsDef, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("option %q: %w", key, err)
		}
		opts = append(opts, Option{Key: key, Value: value})
	}

	*o = opts
	return nil
}

// LoadDefinitions decodes a definitions document.
func LoadDefinitions(data []byte, format DefinitionFormat) (*Definitions, error) {
	var defs Definitions
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
	case FormatYAML, "yml":
		if err := yaml.Unmarshal(data, &defs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDefinition, format)
	}

	for i, a := range defs.Actions {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: action %d has no name", ErrInvalidDefinition, i)
		}
		for j, s := range a.Steps {
			if s.Step == "" {
				return nil, fmt.Errorf("%w: action %s step %d has no name", ErrInvalidDefinition, a.Name, j)
			}
		}
	}
	return &defs, nil
}

// Entry converts the definition to a StepEntry.
func (d StepDef) Entry() (StepEntry, error) {
	opts := Options(d.Options)

	switch {
	case d.Provider != "":
		return Use(External(d.Provider, d.Step), opts...), nil
	case d.Step == CastParams.String():
		converted, err := castOptions(opts)
		if err != nil {
			return StepEntry{}, err
		}
		return Use(CastParams, converted...), nil
	default:
		return Use(Local(d.Step), opts...), nil
	}
}

// castOptions turns the generic rule list of a definition into []cast.Rule.
// The schema map is left for the cast step, which parses generic schemas.
func castOptions(opts Options) (Options, error) {
	out := make(Options, len(opts))
	copy(out, opts)

	for i, opt := range out {
		if opt.Key != OptRules {
			continue
		}
		list, ok := opt.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a list", ErrInvalidDefinition, OptRules)
		}
		rules := make([]cast.Rule, 0, len(list))
		for j, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: rule %d must be a mapping", ErrInvalidDefinition, j)
			}
			field, _ := m["field"].(string)
			expr, _ := m["expr"].(string)
			message, _ := m["message"].(string)
			rules = append(rules, cast.Rule{
				Field:   strings.TrimSpace(field),
				Expr:    expr,
				Message: message,
			})
		}
		out[i] = Option{Key: OptRules, Value: rules}
	}
	return out, nil
}

// Define declares the actions of defs on the builder.
func (b *Builder) Define(defs ...ActionDef) *Builder {
	for _, def := range defs {
		steps := make([]StepEntry, 0, len(def.Steps))
		for i, sd := range def.Steps {
			entry, err := sd.Entry()
			if err != nil {
				b.errs = append(b.errs, fmt.Errorf("action %s step %d: %w", def.Name, i, err))
				continue
			}
			steps = append(steps, entry)
		}
		b.Action(def.Name, steps, WithDescription(def.Description))
	}
	return b
}
