package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Dispatch outcomes by category and outcome.",
	}, []string{"category", "outcome"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_provider_latency_seconds",
		Help:    "Latency of delivery provider calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	retryBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_retry_backlog",
		Help: "FAILED delivery records below the retry ceiling at last sweep.",
	})
)

const (
	outcomeSent             = "sent"
	outcomeSkippedPolicy    = "skipped_policy"
	outcomeSkippedDuplicate = "skipped_duplicate"
	outcomeInvalid          = "invalid"
	outcomeProviderError    = "provider_error"
	outcomeRetryExhausted   = "retry_exhausted"
)
