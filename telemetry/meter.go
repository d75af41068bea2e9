package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterHandler records action events as OpenTelemetry metrics.
type MeterHandler struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewMeterHandler creates the instruments from mp.
func NewMeterHandler(mp metric.MeterProvider) (*MeterHandler, error) {
	meter := mp.Meter(ScopeName)

	invocations, err := meter.Int64Counter(
		"goaction_action_invocations_total",
		metric.WithDescription("Total number of completed action invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"goaction_action_duration_seconds",
		metric.WithDescription("Action execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MeterHandler{invocations: invocations, duration: duration}, nil
}

// HandleEvent implements Handler. Start events are ignored.
func (h *MeterHandler) HandleEvent(ctx context.Context, ev Event) {
	if ev.Kind == KindStart {
		return
	}

	status := string(ev.Status)
	if ev.Kind == KindException {
		status = string(KindException)
	}
	attrs := metric.WithAttributes(
		attribute.String("owner", ev.Owner),
		attribute.String("action", ev.Action),
		attribute.String("status", status),
	)
	h.invocations.Add(ctx, 1, attrs)
	h.duration.Record(ctx, ev.Measurements.Duration.Seconds(), attrs)
}
