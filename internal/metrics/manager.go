package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRuns          *prometheus.CounterVec
	CounterReps          *prometheus.CounterVec
	CounterFramesSkipped prometheus.Counter
	CounterCacheHits     prometheus.Counter

	// gauges
	GaugeActiveRuns prometheus.Gauge

	// histograms
	HistRunDuration prometheus.Histogram
}

// NewStandaloneManager registers into a private registry, for callers that
// never expose the metrics.
func NewStandaloneManager(namespace, subsystem string) *Manager {
	return NewManager(namespace, subsystem, prometheus.NewRegistry())
}

func NewTestManager() *Manager {
	return NewStandaloneManager("rep_analyzer", "test")
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("rep_analyzer", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRuns := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "runs",
		Help:      "The total number of analysis runs by exercise and outcome",
	}, []string{"exercise", "outcome"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps",
		Help:      "The total number of graded reps by exercise and status",
	}, []string{"exercise", "status"})
	counterFramesSkipped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_skipped",
		Help:      "Frames without a person or the joints an exercise needs",
	})
	counterCacheHits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "result_cache_hits",
		Help:      "Runs served from the result cache",
	})

	gaugeActiveRuns := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_runs",
		Help:      "Current number of runs in progress",
	})

	histRunDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.05, 0.1, 0.5,
				1, 2, 5, 10, 30, 60, 120,
			},
			Name: "run_duration_seconds",
			Help: "Duration of a single analysis run in seconds",
		},
	)

	return &Manager{
		CounterRuns:          counterRuns,
		CounterReps:          counterReps,
		CounterFramesSkipped: counterFramesSkipped,
		CounterCacheHits:     counterCacheHits,
		GaugeActiveRuns:      gaugeActiveRuns,
		HistRunDuration:      histRunDuration,
	}
}
