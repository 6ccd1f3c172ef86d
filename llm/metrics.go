package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway outcomes used as metric label values.
const (
	outcomeOK           = "ok"
	outcomeService      = "service_error"
	outcomeMalformed    = "malformed_response"
	outcomeInvalidShape = "invalid_shape"
)

var (
	gatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Structured completion calls by intent and outcome.",
		},
		[]string{"intent", "outcome"},
	)

	gatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casegen",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Latency of structured completion calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"intent"},
	)
)
