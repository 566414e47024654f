package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentVerifications counts verifier outcomes by result label
	// (verified, not_paid, missing_parameters, misconfigured, gateway_failed, update_failed).
	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farah_payment_verifications_total",
		Help: "Payment verification requests by outcome.",
	}, []string{"outcome"})

	Refunds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farah_refunds_total",
		Help: "Refund requests by outcome.",
	}, []string{"outcome"})

	GatewayRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farah_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation", "result"})

	StatusPageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farah_status_page_renders_total",
		Help: "Payment status page renders by final state.",
	}, []string{"state"})
)
