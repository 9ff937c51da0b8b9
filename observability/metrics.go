package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type commandMetrics struct {
	runs    *prometheus.CounterVec
	errors  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	commandMetricsOnce sync.Once
	commandRegistry    *commandMetrics
)

// Commands returns the lazily-initialised registry recording CLI command
// activity.
func Commands() *commandMetrics {
	commandMetricsOnce.Do(func() {
		commandRegistry = &commandMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "soulbound",
				Subsystem: "command",
				Name:      "runs_total",
				Help:      "Total commands run segmented by command and outcome.",
			}, []string{"command", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "soulbound",
				Subsystem: "command",
				Name:      "errors_total",
				Help:      "Total failed commands segmented by command and error class.",
			}, []string{"command", "class"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "soulbound",
				Subsystem: "command",
				Name:      "duration_seconds",
				Help:      "Latency distribution for commands.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"command"}),
		}
		prometheus.MustRegister(
			commandRegistry.runs,
			commandRegistry.errors,
			commandRegistry.latency,
		)
	})
	return commandRegistry
}

// Observe records the outcome of a command. classify maps an error to a
// stable label such as "not_owner"; it may be nil.
func (m *commandMetrics) Observe(command string, err error, duration time.Duration, classify func(error) string) {
	if m == nil {
		return
	}
	if command == "" {
		command = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		class := "unclassified"
		if classify != nil {
			if c := classify(err); c != "" {
				class = c
			}
		}
		m.errors.WithLabelValues(command, class).Inc()
	}
	m.runs.WithLabelValues(command, outcome).Inc()
	m.latency.WithLabelValues(command).Observe(duration.Seconds())
}

// ErrorClass pairs a metrics label with the sentinel it stands for.
type ErrorClass struct {
	Label string
	Err   error
}

// Classify returns the label of the first class err matches.
func Classify(err error, classes []ErrorClass) string {
	for _, class := range classes {
		if errors.Is(err, class.Err) {
			return class.Label
		}
	}
	return ""
}
