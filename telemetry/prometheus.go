package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHandler maintains Prometheus collectors from action events:
// an invocation counter, a duration histogram and an in-flight gauge, all
// labelled by owner and action.
type PrometheusHandler struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inflight    *prometheus.GaugeVec
}

// NewPrometheusHandler creates the collectors under namespace and registers
// them with reg.
func NewPrometheusHandler(reg prometheus.Registerer, namespace string) (*PrometheusHandler, error) {
	h := &PrometheusHandler{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_invocations_total",
			Help:      "Total number of completed action invocations.",
		}, []string{"owner", "action", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Action execution duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"owner", "action"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "action_inflight",
			Help:      "Number of actions currently executing.",
		}, []string{"owner", "action"}),
	}

	for _, c := range []prometheus.Collector{h.invocations, h.duration, h.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// HandleEvent implements Handler.
func (h *PrometheusHandler) HandleEvent(_ context.Context, ev Event) {
	owner, action := ev.Owner, ev.Action

	switch ev.Kind {
	case KindStart:
		h.inflight.WithLabelValues(owner, action).Inc()
	case KindStop:
		h.inflight.WithLabelValues(owner, action).Dec()
		h.invocations.WithLabelValues(owner, action, string(ev.Status)).Inc()
		h.duration.WithLabelValues(owner, action).Observe(ev.Measurements.Duration.Seconds())
	case KindException:
		h.inflight.WithLabelValues(owner, action).Dec()
		h.invocations.WithLabelValues(owner, action, string(KindException)).Inc()
		h.duration.WithLabelValues(owner, action).Observe(ev.Measurements.Duration.Seconds())
	}
}
