package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker telemetry for the store backend dependency. Registered at package
// init so the breaker can record state before the HTTP metrics stack is up.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kasir",
			Subsystem: "backend",
			Name:      "breaker_state",
			Help:      "Current store backend breaker state: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kasir",
			Subsystem: "backend",
			Name:      "breaker_transition_total",
			Help:      "Count of store backend breaker state transitions",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kasir",
			Subsystem: "backend",
			Name:      "breaker_open_total",
			Help:      "Number of times the store backend breaker opened",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
