// Package telemetry provides metrics collection and reporting for
// monitoring the semnotes indexing pipeline.
package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// Metric names for the embedding pipeline
const (
	// Provider call counts by backend
	MetricProviderCallsOpenAI = "embedder.api_calls.openai"
	MetricProviderCallsGoogle = "embedder.api_calls.google"
	MetricProviderCallsVoyage = "embedder.api_calls.voyage"

	// Success/failure metrics
	MetricProviderCallsSuccess = "embedder.api_calls.success"
	MetricProviderCallsFailure = "embedder.api_calls.failure"

	// Sync outcomes by reason
	MetricEmbedsNew     = "sync.embeds.new"
	MetricEmbedsStale   = "sync.embeds.stale"
	MetricEmbedsSkipped = "sync.embeds.skipped"
	MetricEmbedsFailed  = "sync.embeds.failed"

	// Store metrics
	MetricIndexRebuilds = "store.index.rebuilds"
	MetricIndexSize     = "store.index.size"

	// Queue metrics
	MetricQueueFlushes  = "watch.queue.flushes"
	MetricQueueCoalesce = "watch.queue.coalesced"

	// Response times
	MetricProviderLatency = "embedder.response_time"
	MetricSearchLatency   = "search.response_time"

	// Timestamps
	MetricLastSync = "sync.last_run"
)

// ProviderCallMetric returns the per-backend call counter name for the
// named provider.
func ProviderCallMetric(name string) string {
	switch name {
	case "openai":
		return MetricProviderCallsOpenAI
	case "google":
		return MetricProviderCallsGoogle
	case "voyage":
		return MetricProviderCallsVoyage
	default:
		return "embedder.api_calls." + name
	}
}

// MetricsCollector provides a thread-safe interface for collecting
// application metrics for monitoring and troubleshooting.
type MetricsCollector struct {
	counters   map[string]int64
	gauges     map[string]float64
	timers     map[string][]time.Duration
	latestTime map[string]time.Time
	mu         sync.RWMutex
}

// NewMetricsCollector creates a new MetricsCollector instance
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		timers:     make(map[string][]time.Duration),
		latestTime: make(map[string]time.Time),
	}
}

// IncrementCounter increments a named counter by the specified amount
func (m *MetricsCollector) IncrementCounter(name string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[name] += amount
}

// SetGauge sets a named gauge to the specified value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gauges[name] = value
}

// RecordTimer records a duration for the specified timer
func (m *MetricsCollector) RecordTimer(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timers[name] = append(m.timers[name], duration)

	// Limit the number of stored durations to avoid unbounded growth
	if len(m.timers[name]) > 100 {
		m.timers[name] = m.timers[name][1:]
	}
}

// RecordTimestamp records the current time for the specified event
func (m *MetricsCollector) RecordTimestamp(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latestTime[name] = time.Now()
}

// GetCounter retrieves the current value of a counter
func (m *MetricsCollector) GetCounter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counters[name]
}

// GetGauge retrieves the current value of a gauge
func (m *MetricsCollector) GetGauge(name string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.gauges[name]
}

// GetTimerAverage calculates the average duration for a timer
func (m *MetricsCollector) GetTimerAverage(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	durations, exists := m.timers[name]
	if !exists || len(durations) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	return total / time.Duration(len(durations))
}

// GetTimeSince calculates the time elapsed since a recorded timestamp
func (m *MetricsCollector) GetTimeSince(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timestamp, exists := m.latestTime[name]
	if !exists {
		return 0
	}

	return time.Since(timestamp)
}

// GetReport generates a report of all collected metrics
func (m *MetricsCollector) GetReport() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := "Metrics Report:\n"
	report += "==============\n\n"

	report += "Counters:\n"
	for name, value := range m.counters {
		report += fmt.Sprintf("  %s: %d\n", name, value)
	}

	report += "\nGauges:\n"
	for name, value := range m.gauges {
		report += fmt.Sprintf("  %s: %.2f\n", name, value)
	}

	report += "\nTimers (avg):\n"
	for name, durations := range m.timers {
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		avg := total / time.Duration(len(durations))
		report += fmt.Sprintf("  %s: avg=%v count=%d\n", name, avg, len(durations))
	}

	report += "\nTime Since:\n"
	for name, timestamp := range m.latestTime {
		report += fmt.Sprintf("  %s: %v ago (%s)\n",
			name, time.Since(timestamp), timestamp.Format(time.RFC3339))
	}

	return report
}

// Reset clears all collected metrics
func (m *MetricsCollector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timers = make(map[string][]time.Duration)
	m.latestTime = make(map[string]time.Time)
}
