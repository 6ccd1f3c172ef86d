package generationorchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Generation runs by terminal state.",
		},
		[]string{"state"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "casegen",
			Subsystem: "generation",
			Name:      "run_duration_seconds",
			Help:      "Wall time of generation runs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	testCasesProduced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casegen",
			Subsystem: "generation",
			Name:      "test_cases_total",
			Help:      "Test cases produced by successful runs.",
		},
	)
)
