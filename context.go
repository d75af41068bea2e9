package goaction

import (
	"context"

	"github.com/davidroman0O/goaction/store"
)

// Keys the engine uses in the private bag.
const (
	// PrivateValidation holds the *cast.Record of the last successful cast.
	PrivateValidation = "validation"
	// PrivateSource holds the original source passed to Run when it was not
	// a plain map.
	PrivateSource = "source"
)

// Context is the value threaded through a pipeline. It is immutable: every
// With method returns a new Context and leaves the receiver untouched, so a
// step can never change what an earlier step saw.
type Context struct {
	action    string
	assigns   store.Bag
	params    store.Bag
	private   store.Bag
	result    Result
	hasResult bool
	goctx     context.Context
}

// NewContext builds a Context for action. Run does this for every
// invocation; steps can use it directly in unit tests.
func NewContext(goctx context.Context, action string, params, assigns map[string]any) Context {
	if goctx == nil {
		goctx = context.Background()
	}
	return Context{
		action:  action,
		assigns: store.New(assigns),
		params:  store.New(params),
		goctx:   goctx,
	}
}

// Action returns the name of the running action.
func (c Context) Action() string { return c.action }

// Assigns returns the ambient data bag.
func (c Context) Assigns() store.Bag { return c.assigns }

// Assign returns one assign.
func (c Context) Assign(key string) (any, bool) { return c.assigns.Get(key) }

// WithAssign publishes value under key for later steps.
func (c Context) WithAssign(key string, value any) Context {
	c.assigns = c.assigns.With(key, value)
	return c
}

// Params returns the action input.
func (c Context) Params() store.Bag { return c.params }

// Param returns one param.
func (c Context) Param(key string) (any, bool) { return c.params.Get(key) }

// WithParams replaces the params wholesale.
func (c Context) WithParams(params map[string]any) Context {
	c.params = store.New(params)
	return c
}

// WithParam sets a single param, keeping the others.
func (c Context) WithParam(key string, value any) Context {
	c.params = c.params.With(key, value)
	return c
}

// Private returns the bookkeeping bag.
func (c Context) Private() store.Bag { return c.private }

// WithPrivate stores value under key in the bookkeeping bag.
func (c Context) WithPrivate(key string, value any) Context {
	c.private = c.private.With(key, value)
	return c
}

// Result returns the result set by a halting step, if any.
func (c Context) Result() (Result, bool) { return c.result, c.hasResult }

// WithResult sets the result. A Result is stored as is, any other value is
// treated as OK(value).
func (c Context) WithResult(v any) Context {
	r, ok := v.(Result)
	if !ok {
		r = OK(v)
	}
	c.result = r
	c.hasResult = true
	return c
}

// GoContext returns the caller's context.Context. The engine never waits on
// it; honoring cancellation is up to the steps.
func (c Context) GoContext() context.Context {
	if c.goctx == nil {
		return context.Background()
	}
	return c.goctx
}

func (c Context) withGoContext(goctx context.Context) Context {
	c.goctx = goctx
	return c
}
