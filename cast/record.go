package cast

import (
	"fmt"
	"maps"
	"slices"
)

// ErrorKind classifies a FieldError.
type ErrorKind string

const (
	KindRequired   ErrorKind = "required"
	KindCast       ErrorKind = "cast"
	KindValidation ErrorKind = "validation"
)

// FieldError is one problem with one field. Type is the declared type of
// the field and Cause the coercion error behind a cast failure.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Type    Type
	Message string
	Cause   error
}

// Error implements the error interface.
func (e FieldError) Error() string {
	if e.Kind == KindCast && e.Type != "" {
		return fmt.Sprintf("%s %s (expected %s)", e.Field, e.Message, e.Type)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the coercion error.
func (e FieldError) Unwrap() error {
	return e.Cause
}

// Record accumulates the casted values and field errors of one cast.
// Validators receive it, add errors and hand it back.
type Record struct {
	params   map[string]any
	changes  map[string]any
	types    map[string]Type
	required []string
	errors   []FieldError
}

func newRecord(params map[string]any, types map[string]Type, required []string) *Record {
	return &Record{
		params:   maps.Clone(params),
		changes:  make(map[string]any, len(types)),
		types:    types,
		required: required,
	}
}

// Valid reports whether no errors were recorded.
func (r *Record) Valid() bool {
	return len(r.errors) == 0
}

// Errors returns the recorded errors in insertion order.
func (r *Record) Errors() []FieldError {
	return slices.Clone(r.errors)
}

// ErrorsOn returns the errors recorded for field.
func (r *Record) ErrorsOn(field string) []FieldError {
	var out []FieldError
	for _, e := range r.errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// HasErrorOn reports whether field has at least one error.
func (r *Record) HasErrorOn(field string) bool {
	for _, e := range r.errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// ErrorMap groups error messages by field, for rendering.
func (r *Record) ErrorMap() map[string][]string {
	out := make(map[string][]string)
	for _, e := range r.errors {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Get returns a casted value.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.changes[field]
	return v, ok
}

// Raw returns the value as it was received, before casting.
func (r *Record) Raw(field string) (any, bool) {
	v, ok := r.params[field]
	return v, ok
}

func (r *Record) has(field string) bool {
	_, ok := r.changes[field]
	return ok
}

// Changes returns a copy of the casted values, defaults included.
func (r *Record) Changes() map[string]any {
	return maps.Clone(r.changes)
}

// Types returns the declared type of every schema field.
func (r *Record) Types() map[string]Type {
	return maps.Clone(r.types)
}

// Required returns the required field names.
func (r *Record) Required() []string {
	return slices.Clone(r.required)
}

// Put sets a casted value, letting validators normalise data.
func (r *Record) Put(field string, value any) *Record {
	r.changes[field] = value
	return r
}

// AddError records a validation error on field.
func (r *Record) AddError(field, message string) *Record {
	return r.AddFieldError(FieldError{
		Field:   field,
		Kind:    KindValidation,
		Type:    r.types[field],
		Message: message,
	})
}

// AddFieldError records e as is.
func (r *Record) AddFieldError(e FieldError) *Record {
	r.errors = append(r.errors, e)
	return r
}

// Apply materialises the casted params. Callers should check Valid first.
func (r *Record) Apply() map[string]any {
	return r.Changes()
}

// Clone returns an independent copy of r.
func (r *Record) Clone() *Record {
	return &Record{
		params:   maps.Clone(r.params),
		changes:  maps.Clone(r.changes),
		types:    maps.Clone(r.types),
		required: slices.Clone(r.required),
		errors:   slices.Clone(r.errors),
	}
}

// String summarises the record for logs.
func (r *Record) String() string {
	if r.Valid() {
		return fmt.Sprintf("valid record (%d fields)", len(r.changes))
	}
	return fmt.Sprintf("invalid record (%d errors)", len(r.errors))
}
