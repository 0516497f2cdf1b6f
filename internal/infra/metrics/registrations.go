package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(registrationsTotal) }

var registrationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Registration verifications by outcome (materialized/replayed/failed/orphaned).",
	},
	[]string{"outcome"},
)

func IncRegistration(outcome string) {
	registrationsTotal.WithLabelValues(norm(outcome)).Inc()
}
