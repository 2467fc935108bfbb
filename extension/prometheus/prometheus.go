package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hellofresh/bankengine"
)

const namespace = "bankengine"

var _ bankengine.Metrics = &Metrics{}

// Metrics exposes the engine metrics to prometheus
type Metrics struct {
	eventsAppended       *prometheus.CounterVec
	concurrencyConflicts *prometheus.CounterVec
	matchDuration        *prometheus.HistogramVec
	executions           *prometheus.CounterVec
	failedExecutions     *prometheus.CounterVec
}

// NewMetrics instantiate and return an object of Metrics
func NewMetrics() *Metrics {
	return &Metrics{
		eventsAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_appended_total",
				Help:      "number of events appended to the event store",
			},
			[]string{"aggregate_type"},
		),
		concurrencyConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "concurrency_conflicts_total",
				Help:      "number of appends rejected because of a version mismatch",
			},
			[]string{"aggregate_type"},
		),
		matchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_duration_seconds",
				Help:      "histogram of matching run latencies",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1},
			},
			[]string{"security_id", "matched"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "number of executions settled by the matching engine",
			},
			[]string{"security_id"},
		),
		failedExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_executions_total",
				Help:      "number of executions that could not be settled",
			},
			[]string{"security_id"},
		),
	}
}

// RegisterMetrics registers all collectors on the given registry
func (m *Metrics) RegisterMetrics(registry prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.eventsAppended,
		m.concurrencyConflicts,
		m.matchDuration,
		m.executions,
		m.failedExecutions,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// EventsAppended counts the events appended for an aggregate type
func (m *Metrics) EventsAppended(aggregateType string, count int) {
	m.eventsAppended.With(prometheus.Labels{"aggregate_type": aggregateType}).Add(float64(count))
}

// ConcurrencyConflict counts a rejected append
func (m *Metrics) ConcurrencyConflict(aggregateType string) {
	m.concurrencyConflicts.With(prometheus.Labels{"aggregate_type": aggregateType}).Inc()
}

// MatchFinished observes the duration of a matching run and counts its executions
func (m *Metrics) MatchFinished(securityID string, executions int, duration time.Duration) {
	labels := prometheus.Labels{"security_id": securityID, "matched": strconv.FormatBool(executions > 0)}
	m.matchDuration.With(labels).Observe(duration.Seconds())
	m.executions.With(prometheus.Labels{"security_id": securityID}).Add(float64(executions))
}

// ExecutionFailed counts an execution that was skipped
func (m *Metrics) ExecutionFailed(securityID string) {
	m.failedExecutions.With(prometheus.Labels{"security_id": securityID}).Inc()
}
