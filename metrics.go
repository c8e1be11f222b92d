package dtls

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional, nil-safe bundle of handshake counters. A caller
// that doesn't want Prometheus instrumentation simply leaves the *Metrics
// field on ConnConfig nil; every method here tolerates a nil receiver.
//
// Grounded on the instrumentation pattern in caddyserver-caddy and
// tgragnato-snowflake, both of which register prometheus/client_golang
// collectors against an injected registry rather than the global default
// one, so multiple connections/tests don't collide on registration.
type Metrics struct {
	flightTransitions *prometheus.CounterVec
	handshakeFailures *prometheus.CounterVec
	handshakeDuration prometheus.Histogram
}

// NewMetrics registers the handshake counters against reg and returns a
// Metrics ready to pass on ConnConfig.Metrics. Passing a nil registry
// panics, matching prometheus.MustRegister's own contract.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		flightTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtls",
			Name:      "flight_transitions_total",
			Help:      "Number of times the server flight engine advanced to a new flight.",
		}, []string{"flight"}),
		handshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtls",
			Name:      "handshake_failures_total",
			Help:      "Number of fatal alerts raised while parsing or generating a flight.",
		}, []string{"alert"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dtls",
			Name:      "handshake_duration_seconds",
			Help:      "Wall-clock time from Flight0 to the connection reaching Flight6.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.flightTransitions, m.handshakeFailures, m.handshakeDuration)
	return m
}

func (m *Metrics) recordTransition(flight flightVal) {
	if m == nil {
		return
	}
	m.flightTransitions.WithLabelValues(flight.String()).Inc()
}

func (m *Metrics) recordFailure(desc AlertDescription) {
	if m == nil {
		return
	}
	m.handshakeFailures.WithLabelValues(desc.String()).Inc()
}

func (m *Metrics) observeHandshakeDuration(seconds float64) {
	if m == nil {
		return
	}
	m.handshakeDuration.Observe(seconds)
}
