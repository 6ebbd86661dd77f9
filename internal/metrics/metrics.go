package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the client-side counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	APICalls     *prometheus.CounterVec
	Toggles      *prometheus.CounterVec
	PollTicks    prometheus.Counter
	StaleDropped *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillshare_api_calls_total",
				Help: "Backend API calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		Toggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillshare_toggles_total",
				Help: "Optimistic toggles by kind and outcome (applied, reverted, rejected)",
			},
			[]string{"kind", "outcome"},
		),
		PollTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "skillshare_poll_ticks_total",
				Help: "Notification poll ticks",
			},
		),
		StaleDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillshare_poll_stale_dropped_total",
				Help: "Poll responses dropped because a newer one was already applied",
			},
			[]string{"stream"},
		),
	}

	reg.MustRegister(m.APICalls)
	reg.MustRegister(m.Toggles)
	reg.MustRegister(m.PollTicks)
	reg.MustRegister(m.StaleDropped)

	return m
}

// APICall counts one backend call.
func (m *Metrics) APICall(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.APICalls.WithLabelValues(op, outcome).Inc()
}

// Toggle counts one toggle outcome.
func (m *Metrics) Toggle(kind, outcome string) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(kind, outcome).Inc()
}

// Tick counts one poll tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.PollTicks.Inc()
}

// Stale counts one dropped poll response.
func (m *Metrics) Stale(stream string) {
	if m == nil {
		return
	}
	m.StaleDropped.WithLabelValues(stream).Inc()
}
