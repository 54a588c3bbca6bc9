package metrics

import (
	"github.com/AlexZinkM/exam-admin/internal/errs"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the workflow counters. It satisfies wallet.Observer and gateway.Observer.
type Collector struct {
	handshakes *prometheus.CounterVec
	operations *prometheus.CounterVec
	sessions   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examadmin",
			Name:      "handshake_steps_total",
			Help:      "Connection handshake steps by step and outcome.",
		}, []string{"step", "outcome"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "examadmin",
			Name:      "operations_total",
			Help:      "Submission gateway operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "examadmin",
			Name:      "sessions_active",
			Help:      "Live operator sessions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.handshakes, c.operations, c.sessions)
	}
	return c
}

// HandshakeStep records a handshake step outcome.
func (c *Collector) HandshakeStep(step string, err error) {
	c.handshakes.WithLabelValues(step, outcome(err)).Inc()
}

// Operation records a gateway operation outcome.
func (c *Collector) Operation(op string, err error) {
	c.operations.WithLabelValues(op, outcome(err)).Inc()
}

// SessionOpened increments the live session gauge.
func (c *Collector) SessionOpened() {
	c.sessions.Inc()
}

// SessionClosed decrements the live session gauge.
func (c *Collector) SessionClosed() {
	c.sessions.Dec()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := errs.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
