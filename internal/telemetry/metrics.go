// Package telemetry holds the bot's Prometheus metrics and Sentry error reporting.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry     *prometheus.Registry
	Ticks        *prometheus.CounterVec
	RepliesSent  *prometheus.CounterVec
	SendFailures *prometheus.CounterVec
	TBARequests  *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frcbot_ticks_total",
			Help: "Scheduled lookups by outcome",
		}, []string{"outcome"}),
		RepliesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frcbot_reply_sequences_total",
			Help: "Canned reply sequences sent, by rule",
		}, []string{"rule"}),
		SendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frcbot_send_failures_total",
			Help: "Chat sends that returned an error, by source",
		}, []string{"source"}),
		TBARequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frcbot_tba_request_duration_seconds",
			Help:    "The Blue Alliance request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
	m.Registry.MustRegister(m.Ticks, m.RepliesSent, m.SendFailures, m.TBARequests)
	return m
}

// All methods are nil-safe so tests can pass a nil *Metrics.

func (m *Metrics) ObserveTick(outcome string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReply(rule string) {
	if m == nil {
		return
	}
	m.RepliesSent.WithLabelValues(rule).Inc()
}

func (m *Metrics) ObserveSendFailure(source string) {
	if m == nil {
		return
	}
	m.SendFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveTBARequest(endpoint string, status string, started time.Time) {
	if m == nil {
		return
	}
	m.TBARequests.WithLabelValues(endpoint, status).Observe(time.Since(started).Seconds())
}
