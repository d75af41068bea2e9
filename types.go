package goaction

import "fmt"

// Logger provides a simple logging interface for actions and the engine
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// StepFunc is a step that receives the options of its step entry.
type StepFunc func(ctx Context, opts Options) Signal

// SimpleStepFunc is a step that ignores options.
type SimpleStepFunc func(ctx Context) Signal

// MetadataFunc computes span metadata from a Context. It is called once
// before the pipeline runs and once after, with the final context.
type MetadataFunc func(ctx Context) map[string]any

type signalKind uint8

const (
	signalNone signalKind = iota
	signalContinue
	signalHalt
)

// Signal is what a step returns: either continue with a new context or halt
// with a result. The zero Signal is invalid and is reported as a
// step_exception.
type Signal struct {
	kind   signalKind
	ctx    Context
	result Result
}

// Continue proceeds to the next step with ctx.
func Continue(ctx Context) Signal {
	return Signal{kind: signalContinue, ctx: ctx}
}

// Halt stops the pipeline with r as the final result.
func Halt(r Result) Signal {
	return Signal{kind: signalHalt, result: r}
}

// HaltOK stops the pipeline with a successful result.
func HaltOK(value any) Signal {
	return Halt(OK(value))
}

// HaltError stops the pipeline with a failure. The reason is opaque to the
// engine: a Reason tag, an error or any structured value.
func HaltError(reason any) Signal {
	return Halt(Error(reason))
}

// Halted reports whether the signal stops the pipeline.
func (s Signal) Halted() bool { return s.kind == signalHalt }

// Continued reports whether the signal proceeds to the next step.
func (s Signal) Continued() bool { return s.kind == signalContinue }

// Context returns the context carried by a continue signal.
func (s Signal) Context() Context { return s.ctx }

// Result returns the result carried by a halt signal.
func (s Signal) Result() Result { return s.result }

// Result is the two-armed outcome of an action: success with a value or
// failure with a reason. The zero Result is OK(nil).
type Result struct {
	failed bool
	value  any
	reason any
}

// OK returns a successful result.
func OK(value any) Result {
	return Result{value: value}
}

// Error returns a failed result.
func Error(reason any) Result {
	return Result{failed: true, reason: reason}
}

// IsOK reports whether the result is a success.
func (r Result) IsOK() bool { return !r.failed }

// Value returns the success value.
func (r Result) Value() any { return r.value }

// Reason returns the failure reason.
func (r Result) Reason() any { return r.reason }

// Err returns nil for a success. For a failure it returns the reason itself
// when it is an error, otherwise a *ReasonError wrapping it.
func (r Result) Err() error {
	if !r.failed {
		return nil
	}
	if err, ok := r.reason.(error); ok {
		return err
	}
	return &ReasonError{Reason: r.reason}
}

func (r Result) String() string {
	if r.failed {
		return fmt.Sprintf("error(%v)", r.reason)
	}
	return fmt.Sprintf("ok(%v)", r.value)
}

// Option is one key-value pair of a step entry's options.
type Option struct {
	Key   string
	Value any
}

// Opt builds an Option.
func Opt(key string, value any) Option {
	return Option{Key: key, Value: value}
}

// Options is the ordered option list of a step entry. It is passed to the
// step verbatim.
type Options []Option

// Get returns the value of the first option named key.
func (o Options) Get(key string) (any, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Value, true
		}
	}
	return nil, false
}

// Has reports whether an option named key is present.
func (o Options) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// OptionValue returns the first option named key if it holds a T.
func OptionValue[T any](o Options, key string) (T, bool) {
	var zero T
	v, ok := o.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

type refKind uint8

const (
	refLocal refKind = iota + 1
	refExternal
	refBuiltin
)

// StepRef identifies a step: a local name owned by the action set, a name
// on an external Provider, or a built-in step.
type StepRef struct {
	kind     refKind
	provider string
	name     string
}

// Local refers to a step registered on the same builder.
func Local(name string) StepRef {
	return StepRef{kind: refLocal, name: name}
}

// External refers to a step registered on the provider named provider.
func External(provider, name string) StepRef {
	return StepRef{kind: refExternal, provider: provider, name: name}
}

// CastParams refers to the built-in parameter caster.
var CastParams = StepRef{kind: refBuiltin, name: "cast_params"}

// Name returns the step name.
func (r StepRef) Name() string { return r.name }

// Provider returns the provider name of an external ref.
func (r StepRef) Provider() string { return r.provider }

// IsExternal reports whether the ref crosses a provider boundary.
func (r StepRef) IsExternal() bool { return r.kind == refExternal }

// IsBuiltin reports whether the ref names a built-in step.
func (r StepRef) IsBuiltin() bool { return r.kind == refBuiltin }

func (r StepRef) String() string {
	switch r.kind {
	case refExternal:
		return r.provider + "." + r.name
	case refBuiltin:
		return "goaction." + r.name
	default:
		return r.name
	}
}

// StepEntry is one element of an action's step list.
type StepEntry struct {
	Ref     StepRef
	Options Options
}

// Use builds a StepEntry.
func Use(ref StepRef, opts ...Option) StepEntry {
	return StepEntry{Ref: ref, Options: opts}
}
