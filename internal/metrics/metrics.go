// Package metrics exposes daemon counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// Metrics implements service.Observer. Each instance owns its registry so
// tests can create as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	samples      prometheus.Counter
	malformed    prometheus.Counter
	locks        *prometheus.CounterVec
	lockFailures *prometheus.CounterVec
	handshakes   *prometheus.CounterVec
	lastDistance prometheus.Gauge
	pollErrors   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deauth_samples_total",
			Help: "Distance samples accepted.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deauth_malformed_samples_total",
			Help: "Distance samples rejected as malformed.",
		}),
		locks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deauth_locks_total",
			Help: "Automatic session locks by reason.",
		}, []string{"reason"}),
		lockFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deauth_lock_failures_total",
			Help: "Lock actuation failures by stage.",
		}, []string{"stage"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deauth_handshakes_total",
			Help: "Pairing handshakes by result.",
		}, []string{"result"}),
		lastDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deauth_last_distance_meters",
			Help: "Most recent accepted distance sample.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deauth_session_poll_errors_total",
			Help: "Failed session lock-state polls.",
		}),
	}

	m.reg.MustRegister(
		m.samples, m.malformed, m.locks, m.lockFailures,
		m.handshakes, m.lastDistance, m.pollErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) SampleAccepted(meters float64) {
	m.samples.Inc()
	m.lastDistance.Set(meters)
}

func (m *Metrics) SampleRejected() { m.malformed.Inc() }
func (m *Metrics) Locked(reason types.LockReason) { m.locks.WithLabelValues(string(reason)).Inc() }
func (m *Metrics) LockFailed(stage string) { m.lockFailures.WithLabelValues(stage).Inc() }
func (m *Metrics) Handshake(result string) { m.handshakes.WithLabelValues(result).Inc() }
func (m *Metrics) SessionPollFailed() { m.pollErrors.Inc() }
