package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayRequestsTotal,
		gatewayRequestSeconds,
	)
}

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Calls to the payment provider by endpoint and outcome.",
		},
		[]string{"call", "outcome"},
	)

	gatewayRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_seconds",
			Help:    "Latency of payment provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)
)

func ObserveGatewayRequest(call string, ok bool, d time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	gatewayRequestsTotal.WithLabelValues(norm(call), outcome).Inc()
	gatewayRequestSeconds.WithLabelValues(norm(call)).Observe(d.Seconds())
}
