package telemetry

import (
	"context"
	"strings"
	"time"
)

// EventKind is the position of an event within a span.
type EventKind string

const (
	KindStart     EventKind = "start"
	KindStop      EventKind = "stop"
	KindException EventKind = "exception"
)

// Status is the outcome carried by stop and exception events.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Metadata keys every action span carries.
const (
	KeyOwner  = "owner"
	KeyAction = "action"
)

// Metadata is the key-value payload attached to an event.
type Metadata map[string]any

// String returns the value under key if it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Measurements holds the timing of an event. Duration is zero on start
// events.
type Measurements struct {
	SystemTime time.Time
	Duration   time.Duration
}

// DurationMicros returns Duration in microseconds.
func (m Measurements) DurationMicros() int64 {
	return m.Duration.Microseconds()
}

// Scope identifies the action a span instruments. Owner and Action are
// fixed for the span and do not depend on the metadata.
type Scope struct {
	Name   []string
	Owner  string
	Action string
}

// Event is one instrumentation event. Start, stop and exception events of
// the same span share an ID.
type Event struct {
	ID           string
	Kind         EventKind
	Name         []string
	Owner        string
	Action       string
	Measurements Measurements
	Metadata     Metadata
	Status       Status
	// Reason is the failure reason of a stop event or the recovered value of
	// an exception event.
	Reason any
}

// FullName joins the event name and kind with dots, for example
// "goaction.action.accounts.create.stop".
func (e Event) FullName() string {
	parts := make([]string, 0, len(e.Name)+1)
	parts = append(parts, e.Name...)
	parts = append(parts, string(e.Kind))
	return strings.Join(parts, ".")
}

// Handler consumes events. Handlers run synchronously on the goroutine that
// executes the action and must not block.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event)

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}
