package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by NewMetricsHooks.
type Metrics struct {
	Calls        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	CallDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"tool", "action", "outcome"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_step_duration_seconds",
				Help:    "Duration of dispatch pipeline steps",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"tool", "step"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_call_duration_seconds",
				Help:    "Duration of tool calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool", "action"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.StepDuration, m.CallDuration)
	}
	return m
}

// NewMetricsHooks records step and call durations and counts calls by
// outcome: "ok" or the error kind of the response.
func NewMetricsHooks(m *Metrics) Hooks {
	return Hooks{
		OnStep: func(ctx context.Context, e *Event) {
			m.StepDuration.WithLabelValues(e.Tool, string(e.Step)).Observe(e.Duration.Seconds())
		},
		OnCallEnd: func(ctx context.Context, e *Event) {
			outcome := "ok"
			if !e.OK {
				outcome = e.ErrorKind
				if outcome == "" {
					outcome = "error"
				}
			}
			m.Calls.WithLabelValues(e.Tool, e.Action, outcome).Inc()
			m.CallDuration.WithLabelValues(e.Tool, e.Action).Observe(e.Duration.Seconds())
		},
	}
}
