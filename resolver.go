package goaction

import "fmt"

// ResolvedStep is a step entry bound to its function. Middleware receives it
// for every invocation.
type ResolvedStep struct {
	Action string
	Index  int
	Entry  StepEntry
	fn     StepFunc
	found  bool
}

// Ref returns the step identifier.
func (r *ResolvedStep) Ref() StepRef { return r.Entry.Ref }

// Found reports whether the ref resolved to a registered step.
func (r *ResolvedStep) Found() bool { return r.found }

// Call invokes the step with the options of its entry.
func (r *ResolvedStep) Call(ctx Context) Signal {
	return r.fn(ctx, r.Entry.Options)
}

// resolve binds entry. Built-in refs go first, then local names, then
// provider steps. A ref that matches nothing is bound to a step halting with
// step_not_found, whichever table it missed.
func (b *Builder) resolve(actionName string, index int, entry StepEntry) (*ResolvedStep, error) {
	step := &ResolvedStep{Action: actionName, Index: index, Entry: entry}
	ref := entry.Ref

	var bind binding
	switch ref.kind {
	case refBuiltin:
		fn, err := builtin(ref, entry.Options)
		if err != nil {
			return nil, fmt.Errorf("action %s.%s step %d: %w", b.owner, actionName, index, err)
		}
		step.fn, step.found = fn, true
		return step, nil
	case refLocal:
		bind = b.steps[ref.name]
	case refExternal:
		if p, ok := b.providers[ref.provider]; ok {
			bind = p.steps[ref.name]
		}
	default:
		return nil, fmt.Errorf("%w: action %s.%s step %d has an empty ref", ErrInvalidStep, b.owner, actionName, index)
	}

	if fn, ok := bind.fn(); ok {
		step.fn, step.found = fn, true
		return step, nil
	}

	b.logger.Warn("Step %s of action %s.%s is not registered", ref, b.owner, actionName)
	step.fn = stepNotFound
	return step, nil
}

func builtin(ref StepRef, opts Options) (StepFunc, error) {
	switch ref.name {
	case CastParams.name:
		cs, err := newCastStep(opts)
		if err != nil {
			return nil, err
		}
		return cs.run, nil
	default:
		return nil, fmt.Errorf("%w: unknown built-in step %q", ErrInvalidStep, ref.name)
	}
}

func stepNotFound(Context, Options) Signal {
	return HaltError(ReasonStepNotFound)
}
