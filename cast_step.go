package goaction

import (
	"fmt"

	"github.com/davidroman0O/goaction/cast"
)

// Options understood by the CastParams step.
const (
	// OptSchema is the cast.Schema, *cast.Caster or generic map describing
	// the params. Required.
	OptSchema = "schema"
	// OptValidate is an optional ValidateFunc.
	OptValidate = "validate"
	// OptRules is an optional []cast.Rule list evaluated after OptValidate.
	OptRules = "rules"
)

// ValidateFunc layers cross-field or context-dependent checks on a cast
// record. It must return the record, typically the one it was given after
// AddError calls.
type ValidateFunc func(rec *cast.Record, ctx Context) *cast.Record

// Cast is a shorthand for a CastParams step entry.
func Cast(schema cast.Schema, opts ...Option) StepEntry {
	return Use(CastParams, append([]Option{Opt(OptSchema, schema)}, opts...)...)
}

type castStep struct {
	caster   *cast.Caster
	validate ValidateFunc
	rules    *cast.Rules
}

func newCastStep(opts Options) (*castStep, error) {
	raw, ok := opts.Get(OptSchema)
	if !ok {
		return nil, fmt.Errorf("%w: %s requires a %q option", ErrInvalidStep, CastParams, OptSchema)
	}

	cs := &castStep{}
	var err error
	switch schema := raw.(type) {
	case *cast.Caster:
		cs.caster = schema
	case cast.Schema:
		cs.caster, err = cast.Compile(schema)
	case map[string]any:
		var parsed cast.Schema
		if parsed, err = cast.ParseSchema(schema); err == nil {
			cs.caster, err = cast.Compile(parsed)
		}
	default:
		err = fmt.Errorf("%w: %s option %q has unsupported type %T", ErrInvalidStep, CastParams, OptSchema, raw)
	}
	if err != nil {
		return nil, err
	}

	if v, ok := opts.Get(OptValidate); ok && v != nil {
		switch fn := v.(type) {
		case ValidateFunc:
			cs.validate = fn
		case func(*cast.Record, Context) *cast.Record:
			cs.validate = fn
		default:
			return nil, fmt.Errorf("%w: %s option %q has unsupported type %T", ErrInvalidStep, CastParams, OptValidate, v)
		}
	}

	if v, ok := opts.Get(OptRules); ok && v != nil {
		switch rules := v.(type) {
		case *cast.Rules:
			cs.rules = rules
		case []cast.Rule:
			if cs.rules, err = cast.CompileRules(rules); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s option %q has unsupported type %T", ErrInvalidStep, CastParams, OptRules, v)
		}
	}

	types := cs.caster.Types()
	for _, field := range cs.rules.Fields() {
		if _, ok := types[field]; !ok {
			return nil, fmt.Errorf("%w: %s rule bound to undeclared field %q", ErrInvalidStep, CastParams, field)
		}
	}

	return cs, nil
}

// run casts the params. On success the casted map replaces the params and
// the record is kept under PrivateValidation; otherwise the step halts with
// *InvalidParams.
func (cs *castStep) run(ctx Context, _ Options) Signal {
	rec := cs.caster.Cast(ctx.Params().Map())

	if cs.validate != nil {
		rec = cs.validate(rec, ctx)
		if rec == nil {
			return HaltError(&StepException{Message: "validate returned a nil record"})
		}
	}

	if cs.rules.Len() > 0 {
		rec = cs.rules.Apply(rec, map[string]any{
			"action":  ctx.Action(),
			"assigns": ctx.Assigns().Map(),
		})
	}

	if !rec.Valid() {
		return HaltError(&InvalidParams{Record: rec})
	}

	return Continue(ctx.WithParams(rec.Apply()).WithPrivate(PrivateValidation, rec))
}

// CastParamsStep runs the parameter caster with opts, compiling the schema
// on every call. Use the CastParams ref in action declarations, where the
// schema is compiled once at Build; this is for steps that cast on their
// own. Invalid options halt with a *StepException.
func CastParamsStep(ctx Context, opts Options) Signal {
	cs, err := newCastStep(opts)
	if err != nil {
		return HaltError(&StepException{Message: err.Error()})
	}
	return cs.run(ctx, opts)
}
