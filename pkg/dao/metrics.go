package dao

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fluentdao"

// Metrics counts executed statements by operation and outcome and records
// their latency.
type Metrics struct {
	Statements *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Statements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "statements_total",
				Help:      "Number of SQL statements executed, by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "statement_duration_seconds",
				Help:      "Time spent executing SQL statements, by operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Statements, m.Duration)
	}
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Statements.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
