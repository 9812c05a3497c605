package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Update(t *testing.T) {
	monitor := NewMonitor()

	monitor.Update("people", Status{Component: "stale", Status: StateHealthy, Message: "loaded"})

	got, ok := monitor.Get("people")
	require.True(t, ok)
	assert.Equal(t, "people", got.Component, "Update names the status after its key")
	assert.Equal(t, StateHealthy, got.Status)
	assert.False(t, got.Timestamp.IsZero(), "Update stamps statuses without a timestamp")
	require.NotNil(t, got.Metrics)
	assert.Zero(t, got.Metrics.ConsecutiveFailures)
	assert.Equal(t, got.Timestamp, got.Metrics.LastSuccess)
	assert.Equal(t, got.Timestamp, got.Metrics.Since)

	_, ok = monitor.Get("wikidata")
	assert.False(t, ok)
}

func TestMonitor_UpdateConvenienceMethods(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateHealthy("people", "all good")
	monitor.UpdateUnhealthy("upstream", "data source unavailable")
	monitor.UpdateDegraded("cache", "NATS connection lost, serving from sources")

	tests := []struct {
		name    string
		state   string
		message string
	}{
		{"people", StateHealthy, "all good"},
		{"upstream", StateUnhealthy, "data source unavailable"},
		{"cache", StateDegraded, "NATS connection lost, serving from sources"},
	}
	for _, tt := range tests {
		got, ok := monitor.Get(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.state, got.Status, tt.name)
		assert.Equal(t, tt.message, got.Message, tt.name)
		assert.Equal(t, tt.state == StateHealthy, got.Healthy, tt.name)
	}
}

func TestMonitor_FoldsCheckHistory(t *testing.T) {
	monitor := NewMonitor()
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := func(d time.Duration) time.Time { return t0.Add(d) }

	ok := NewHealthy("upstream", "ok")
	ok.Timestamp = at(0)
	monitor.Update("upstream", ok.WithMetrics(&Metrics{Latency: 12 * time.Millisecond}))

	got, _ := monitor.Get("upstream")
	assert.Equal(t, 12*time.Millisecond, got.Metrics.Latency)
	assert.Equal(t, at(0), got.Metrics.LastSuccess)

	for i := 1; i <= 3; i++ {
		failed := NewUnhealthy("upstream", "connection refused")
		failed.Timestamp = at(time.Duration(i) * time.Minute)
		monitor.Update("upstream", failed)
	}

	got, _ = monitor.Get("upstream")
	assert.Equal(t, 3, got.Metrics.ConsecutiveFailures)
	assert.Equal(t, at(0), got.Metrics.LastSuccess)
	assert.Equal(t, at(time.Minute), got.Metrics.Since, "a repeated state keeps its start time")
	assert.Zero(t, got.Metrics.Latency, "an update without latency reports none")

	slow := NewDegraded("upstream", "check did not finish in time")
	slow.Timestamp = at(4 * time.Minute)
	monitor.Update("upstream", slow)

	got, _ = monitor.Get("upstream")
	assert.Equal(t, 4, got.Metrics.ConsecutiveFailures, "degraded is not a success")
	assert.Equal(t, at(4*time.Minute), got.Metrics.Since)

	back := NewHealthy("upstream", "ok")
	back.Timestamp = at(5 * time.Minute)
	monitor.Update("upstream", back)

	got, _ = monitor.Get("upstream")
	assert.Zero(t, got.Metrics.ConsecutiveFailures)
	assert.Equal(t, at(5*time.Minute), got.Metrics.LastSuccess)
	assert.Equal(t, at(5*time.Minute), got.Metrics.Since)
}

func TestMonitor_HistoryIsPerComponent(t *testing.T) {
	monitor := NewMonitor()

	monitor.UpdateUnhealthy("upstream", "down")
	monitor.UpdateUnhealthy("upstream", "down")
	monitor.UpdateUnhealthy("wikidata", "down")

	upstream, _ := monitor.Get("upstream")
	wikidata, _ := monitor.Get("wikidata")
	assert.Equal(t, 2, upstream.Metrics.ConsecutiveFailures)
	assert.Equal(t, 1, wikidata.Metrics.ConsecutiveFailures)
	assert.True(t, wikidata.Metrics.LastSuccess.IsZero(), "never healthy")
}

func TestMonitor_AggregateHealth(t *testing.T) {
	monitor := NewMonitor()

	aggregate := monitor.AggregateHealth("graphdata")
	assert.True(t, aggregate.IsHealthy(), "no sources yet")
	assert.Equal(t, "graphdata", aggregate.Component)

	monitor.UpdateHealthy("people", "ok")
	monitor.UpdateHealthy("wikidata", "ok")
	assert.True(t, monitor.AggregateHealth("graphdata").IsHealthy())

	monitor.UpdateDegraded("cache", "slow")
	aggregate = monitor.AggregateHealth("graphdata")
	assert.True(t, aggregate.IsDegraded())
	assert.Equal(t, "Degraded: cache", aggregate.Message)

	monitor.UpdateUnhealthy("upstream", "error")
	aggregate = monitor.AggregateHealth("graphdata")
	assert.True(t, aggregate.IsUnhealthy())
	assert.Equal(t, "Unhealthy: upstream; degraded: cache", aggregate.Message)

	names := make([]string, 0, len(aggregate.SubStatuses))
	for _, sub := range aggregate.SubStatuses {
		names = append(names, sub.Component)
		assert.NotNil(t, sub.Metrics, sub.Component)
	}
	assert.Equal(t, []string{"cache", "people", "upstream", "wikidata"}, names)

	monitor.UpdateHealthy("upstream", "recovered")
	monitor.UpdateHealthy("cache", "recovered")
	assert.True(t, monitor.AggregateHealth("graphdata").IsHealthy())
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	monitor := NewMonitor()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				switch (i + j) % 4 {
				case 0:
					monitor.UpdateHealthy("upstream", "ok")
				case 1:
					monitor.UpdateUnhealthy("upstream", "down")
				case 2:
					_, _ = monitor.Get("upstream")
				case 3:
					_ = monitor.AggregateHealth("graphdata")
				}
			}
		}()
	}
	wg.Wait()

	monitor.UpdateHealthy("cache", "cache ready")
	status, ok := monitor.Get("cache")
	require.True(t, ok)
	assert.Equal(t, "cache", status.Component)
}
