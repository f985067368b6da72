// Package metrics exposes Prometheus counters for the polling pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec
	NoticesTotal     *prometheus.CounterVec
	AlertsSentTotal  prometheus.Counter
	AlertFailedTotal prometheus.Counter
}

// New creates and registers all pipeline metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noticebot_cycles_total",
			Help: "Completed polling cycles by outcome.",
		}, []string{"outcome"}),
		NoticesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noticebot_notices_total",
			Help: "Processed notices by terminal state.",
		}, []string{"result"}),
		AlertsSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noticebot_alerts_sent_total",
			Help: "Notices fanned out to subscribers.",
		}),
		AlertFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "noticebot_alert_failures_total",
			Help: "Recipients that received an incomplete alert.",
		}),
	}

	reg.MustRegister(m.CyclesTotal, m.NoticesTotal, m.AlertsSentTotal, m.AlertFailedTotal)
	return m
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
