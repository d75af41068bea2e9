package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sasha-s/go-deadlock"
)

var (
	// ErrAlreadyAttached is returned when a handler ID is reused.
	ErrAlreadyAttached = errors.New("handler already attached")
	// ErrInvalidHandler is returned for an empty ID or a nil handler.
	ErrInvalidHandler = errors.New("invalid handler")
)

type attachment struct {
	id      string
	prefix  []string
	handler Handler
}

// Dispatcher routes events to the handlers attached to a matching name
// prefix. It is safe for concurrent use.
type Dispatcher struct {
	mu       deadlock.RWMutex
	handlers map[string]attachment
	order    []string
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used to report failing handlers.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]attachment),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach registers h under id for every event whose name starts with
// prefix. An empty prefix matches all events.
func (d *Dispatcher) Attach(id string, prefix []string, h Handler) error {
	if id == "" || h == nil {
		return ErrInvalidHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, id)
	}
	d.handlers[id] = attachment{id: id, prefix: slices.Clone(prefix), handler: h}
	d.order = append(d.order, id)
	return nil
}

// Detach removes the handler registered under id and reports whether it
// was attached.
func (d *Dispatcher) Detach(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[id]; !exists {
		return false
	}
	delete(d.handlers, id)
	d.order = slices.DeleteFunc(d.order, func(s string) bool { return s == id })
	return true
}

// Handlers returns the attached handler IDs in attachment order.
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.order)
}

// Dispatch delivers ev to matching handlers in attachment order. A handler
// that panics is detached and the remaining handlers still run.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	targets := make([]attachment, 0, len(d.order))
	for _, id := range d.order {
		a := d.handlers[id]
		if hasPrefix(ev.Name, a.prefix) {
			targets = append(targets, a)
		}
	}
	d.mu.RUnlock()

	for _, a := range targets {
		if err := deliver(ctx, a.handler, ev); err != nil {
			d.logger.Error("telemetry handler failed, detaching",
				"handler", a.id,
				"event", ev.FullName(),
				"error", err)
			d.Detach(a.id)
		}
	}
}

func deliver(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h.HandleEvent(ctx, ev)
	return nil
}

func hasPrefix(name, prefix []string) bool {
	if len(prefix) > len(name) {
		return false
	}
	for i, p := range prefix {
		if name[i] != p {
			return false
		}
	}
	return true
}
