package goaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davidroman0O/goaction/cast"
)

// Reason is a symbolic failure tag.
type Reason string

const (
	ReasonActionNotFound Reason = "action_not_found"
	ReasonStepNotFound   Reason = "step_not_found"
	ReasonInvalidParams  Reason = "invalid_params"
	ReasonStepException  Reason = "step_exception"
)

// Build errors.
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrDuplicateStep   = errors.New("step already registered")
	ErrDuplicateAction = errors.New("action already registered")
	ErrInvalidStep     = errors.New("invalid step")
)

// Reasoner is implemented by structured failure reasons.
type Reasoner interface {
	Reason() Reason
}

// ReasonOf extracts the tag of a failure reason. It returns "" for reasons
// that carry no tag.
func ReasonOf(reason any) Reason {
	switch r := reason.(type) {
	case Reason:
		return r
	case Reasoner:
		return r.Reason()
	case *ReasonError:
		return ReasonOf(r.Reason)
	case string:
		return Reason(r)
	case error:
		var rs Reasoner
		if errors.As(r, &rs) {
			return rs.Reason()
		}
	}
	return ""
}

// ReasonError adapts a failure reason that is not an error.
type ReasonError struct {
	Reason any
}

func (e *ReasonError) Error() string {
	return fmt.Sprintf("action failed: %v", e.Reason)
}

// InvalidParams is the failure reason of the parameter caster.
type InvalidParams struct {
	Record *cast.Record
}

func (e *InvalidParams) Reason() Reason { return ReasonInvalidParams }

func (e *InvalidParams) Error() string {
	errs := e.Record.Errors()
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid params: %s", strings.Join(msgs, "; "))
}

// StepException is the failure reason of a step that panicked or broke the
// step contract. Message is sanitized.
type StepException struct {
	Message string
}

func (e *StepException) Reason() Reason { return ReasonStepException }

func (e *StepException) Error() string {
	return "step exception: " + e.Message
}
