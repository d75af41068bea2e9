package goaction

import "context"

// Assigner is a source that carries its own assigns, such as a request or a
// session. Run keeps the source itself in the private bag under
// PrivateSource.
type Assigner interface {
	Assigns() map[string]any
}

// Run executes action with params. source supplies the assigns: nil, a
// map[string]any used as is, or an Assigner.
//
// A panicking step never reaches the caller. A pipeline that ends without a
// result yields OK(nil), a missing action yields Error(ReasonActionNotFound)
// without emitting any event.
func (s *ActionSet) Run(ctx context.Context, actionName string, params map[string]any, source any) Result {
	a, ok := s.actions[actionName]
	if !ok {
		s.logger.Warn("Action %s.%s not found", s.owner, actionName)
		return Error(ReasonActionNotFound)
	}

	assigns, keep := adaptSource(source)
	c := NewContext(ctx, actionName, params, assigns)
	if keep {
		c = c.WithPrivate(PrivateSource, source)
	}

	final := s.execute(c, a)

	res, _ := final.Result()
	return res
}

// adaptSource extracts the assigns of source and reports whether the source
// should be kept in private.
func adaptSource(source any) (map[string]any, bool) {
	switch src := source.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return src, false
	case Assigner:
		return src.Assigns(), true
	default:
		return nil, true
	}
}
