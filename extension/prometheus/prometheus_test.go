//go:build unit
// +build unit

package prometheus_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prometheusExtension "github.com/hellofresh/bankengine/extension/prometheus"
)

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := prometheusExtension.NewMetrics()
	require.NoError(t, metrics.RegisterMetrics(registry))

	metrics.EventsAppended("account", 2)
	metrics.EventsAppended("account", 1)
	metrics.EventsAppended("order", 1)
	metrics.ConcurrencyConflict("account")
	metrics.MatchFinished("ACME", 3, 10*time.Millisecond)
	metrics.MatchFinished("ACME", 0, time.Millisecond)
	metrics.ExecutionFailed("ACME")

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	samples := map[string]int{}
	for _, f := range families {
		names = append(names, f.GetName())
		samples[f.GetName()] = len(f.GetMetric())
	}
	assert.ElementsMatch(t, []string{
		"bankengine_events_appended_total",
		"bankengine_concurrency_conflicts_total",
		"bankengine_match_duration_seconds",
		"bankengine_executions_total",
		"bankengine_failed_executions_total",
	}, names)

	assert.Equal(t, 1, samples["bankengine_concurrency_conflicts_total"])
	assert.Equal(t, 2, samples["bankengine_events_appended_total"])
	assert.Equal(t, 2, samples["bankengine_match_duration_seconds"])
}

func TestMetrics_RegisterTwice(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, prometheusExtension.NewMetrics().RegisterMetrics(registry))

	assert.Error(t, prometheusExtension.NewMetrics().RegisterMetrics(registry))
}
