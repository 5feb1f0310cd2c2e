// ABOUTME: Prometheus instrumentation for outbound API calls and session refreshes
// ABOUTME: Each client owns a private registry so tests and commands can inspect counts

package client

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts requests, refresh attempts and queued replays
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	queued    prometheus.Counter
	replays   *prometheus.CounterVec
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carportal_client_requests_total",
				Help: "Outbound API requests by method and status.",
			},
			[]string{"method", "status"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carportal_client_session_refreshes_total",
				Help: "Session refresh attempts by outcome.",
			},
			[]string{"outcome"},
		),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carportal_client_refresh_queued_total",
			Help: "Requests that waited on an in-flight session refresh.",
		}),
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carportal_client_replays_total",
				Help: "Requests replayed after a session refresh, by result.",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.requests, m.refreshes, m.queued, m.replays)
	return m
}

// Registry returns the registry holding the client's collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeRequest(method string, status int) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
}

func (m *Metrics) observeRefresh(ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeReplay(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.replays.WithLabelValues(result).Inc()
}
