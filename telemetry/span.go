package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of spans and instruments.
const ScopeName = "github.com/davidroman0O/goaction"

// Outcome is what a spanned function reports back: the stop metadata and
// whether it succeeded.
type Outcome struct {
	Metadata Metadata
	Status   Status
	Reason   any
}

// Telemetry opens spans and emits their events.
type Telemetry struct {
	tracer     trace.Tracer
	dispatcher *Dispatcher
	now        func() time.Time
}

// Option configures Telemetry.
type Option func(*Telemetry)

// WithTracerProvider sets the OpenTelemetry tracer provider. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Telemetry) {
		t.tracer = tp.Tracer(ScopeName)
	}
}

// WithDispatcher sets the dispatcher events are sent to.
func WithDispatcher(d *Dispatcher) Option {
	return func(t *Telemetry) {
		t.dispatcher = d
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Telemetry) {
		t.now = now
	}
}

// New creates a Telemetry. Without options it traces through the global
// tracer provider and dispatches to a fresh Dispatcher.
func New(opts ...Option) *Telemetry {
	t := &Telemetry{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.GetTracerProvider().Tracer(ScopeName)
	}
	if t.dispatcher == nil {
		t.dispatcher = NewDispatcher()
	}
	return t
}

// Dispatcher returns the dispatcher events are sent to.
func (t *Telemetry) Dispatcher() *Dispatcher {
	return t.dispatcher
}

// Span emits a start event with start metadata, runs fn, then emits a stop
// event carrying the outcome metadata and the elapsed time. If fn panics an
// exception event is emitted instead and the panic continues.
func (t *Telemetry) Span(ctx context.Context, scope Scope, start Metadata, fn func(ctx context.Context) Outcome) Outcome {
	id := uuid.NewString()
	begin := t.now()

	ctx, span := t.tracer.Start(ctx, strings.Join(scope.Name, "."),
		trace.WithTimestamp(begin),
		trace.WithAttributes(Attributes(start)...),
	)
	span.SetAttributes(attrEventID.String(id))

	t.dispatcher.Dispatch(ctx, Event{
		ID:           id,
		Kind:         KindStart,
		Name:         scope.Name,
		Owner:        scope.Owner,
		Action:       scope.Action,
		Measurements: Measurements{SystemTime: begin},
		Metadata:     start,
	})

	completed := false
	defer func() {
		if completed {
			return
		}
		r := recover()
		end := t.now()
		err := fmt.Errorf("panic: %v", r)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End(trace.WithTimestamp(end))

		t.dispatcher.Dispatch(ctx, Event{
			ID:           id,
			Kind:         KindException,
			Name:         scope.Name,
			Owner:        scope.Owner,
			Action:       scope.Action,
			Measurements: Measurements{SystemTime: end, Duration: end.Sub(begin)},
			Metadata:     start,
			Status:       StatusError,
			Reason:       r,
		})
		panic(r)
	}()

	out := fn(ctx)
	completed = true

	end := t.now()
	if out.Status == "" {
		out.Status = StatusOK
	}
	span.SetAttributes(Attributes(out.Metadata)...)
	span.SetAttributes(attrStatus.String(string(out.Status)))
	if out.Status == StatusError {
		span.SetStatus(codes.Error, fmt.Sprint(out.Reason))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))

	t.dispatcher.Dispatch(ctx, Event{
		ID:           id,
		Kind:         KindStop,
		Name:         scope.Name,
		Owner:        scope.Owner,
		Action:       scope.Action,
		Measurements: Measurements{SystemTime: end, Duration: end.Sub(begin)},
		Metadata:     out.Metadata,
		Status:       out.Status,
		Reason:       out.Reason,
	})
	return out
}
