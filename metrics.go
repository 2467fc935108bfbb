package bankengine

import "time"

type (
	// Metrics a structured metrics interface
	Metrics interface {
		EventsAppended(aggregateType string, count int)
		ConcurrencyConflict(aggregateType string)
		MatchFinished(securityID string, executions int, duration time.Duration)
		ExecutionFailed(securityID string)
	}
)

// NopMetrics is a no-op Metrics used when no metrics are configured
var NopMetrics Metrics = &nopMetrics{}

type nopMetrics struct{}

func (*nopMetrics) EventsAppended(string, int) {}

func (*nopMetrics) ConcurrencyConflict(string) {}

func (*nopMetrics) MatchFinished(string, int, time.Duration) {}

func (*nopMetrics) ExecutionFailed(string) {}
