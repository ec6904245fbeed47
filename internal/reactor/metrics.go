package reactor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for scheduler runs. A nil *Metrics
// disables recording.
type Metrics struct {
	// Progress counters
	tagsProcessed     *prometheus.CounterVec // By program
	reactionsExecuted *prometheus.CounterVec // By program
	reactionFailures  *prometheus.CounterVec // By program and code
	physicalEvents    prometheus.Counter
	runs              *prometheus.CounterVec // By program and reason

	// Queue state
	queueDepth prometheus.Gauge

	// Performance metrics
	tagDuration *prometheus.HistogramVec // By program
	levelWidth  prometheus.Histogram
}

// NewMetrics creates scheduler metrics and registers them with reg.
// A nil registerer returns nil metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &Metrics{
		tagsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "tags_processed_total",
			Help:      "Total number of tags processed",
		}, []string{"program"}),

		reactionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "reactions_executed_total",
			Help:      "Total number of reaction invocations",
		}, []string{"program"}),

		reactionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "reaction_failures_total",
			Help:      "Total number of reactions that ended a run with an error",
		}, []string{"program", "code"}),

		physicalEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "physical_events_total",
			Help:      "Total number of physical actions scheduled from outside the scheduler",
		}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of finished runs by termination reason",
		}, []string{"program", "reason"}), // reason: exhausted, shutdown, timeout, error

		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Number of pending tags in the event queue",
		}),

		tagDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "tag_duration_seconds",
			Help:      "Wall-clock time spent executing one tag",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"program"}),

		levelWidth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reactorrt",
			Subsystem: "scheduler",
			Name:      "level_width",
			Help:      "Number of reactions executed in one level",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.tagsProcessed, m.reactionsExecuted, m.reactionFailures, m.physicalEvents,
		m.runs, m.queueDepth, m.tagDuration, m.levelWidth,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// recordTag records one processed tag.
func (m *Metrics) recordTag(program string, reactions int, duration time.Duration, depth int) {
	if m == nil {
		return
	}
	m.tagsProcessed.WithLabelValues(program).Inc()
	m.reactionsExecuted.WithLabelValues(program).Add(float64(reactions))
	m.tagDuration.WithLabelValues(program).Observe(duration.Seconds())
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) recordLevel(width int) {
	if m == nil {
		return
	}
	m.levelWidth.Observe(float64(width))
}

func (m *Metrics) recordFailure(program string, code RuntimeErrorCode) {
	if m == nil {
		return
	}
	m.reactionFailures.WithLabelValues(program, string(code)).Inc()
}

func (m *Metrics) recordPhysical() {
	if m == nil {
		return
	}
	m.physicalEvents.Inc()
}

func (m *Metrics) recordRun(program string, reason Reason) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(program, string(reason)).Inc()
	m.queueDepth.Set(0)
}
