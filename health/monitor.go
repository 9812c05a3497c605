package health

import (
	"sync"
	"time"
)

// Monitor keeps the latest status of every source and folds each update into
// that source's check history.
type Monitor struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	status      Status
	failures    int
	lastSuccess time.Time
	since       time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{entries: make(map[string]*entry)}
}

// Update records status for name. The stored status carries Metrics built
// from the history of name: the latency status reported, the number of
// consecutive non-healthy updates, the last healthy update and the time the
// current state began.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	switch {
	case !ok:
		e = &entry{since: status.Timestamp}
		m.entries[name] = e
	case e.status.Status != status.Status:
		e.since = status.Timestamp
	}

	if status.IsHealthy() {
		e.failures = 0
		e.lastSuccess = status.Timestamp
	} else {
		e.failures++
	}

	var latency time.Duration
	if status.Metrics != nil {
		latency = status.Metrics.Latency
	}
	status.Metrics = &Metrics{
		Latency:             latency,
		ConsecutiveFailures: e.failures,
		LastSuccess:         e.lastSuccess,
		Since:               e.since,
	}
	e.status = status
}

// UpdateHealthy marks name healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks name unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded marks name degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get returns the latest status of name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok {
		return Status{}, false
	}
	return e.status, true
}

// AggregateHealth aggregates the latest status of every source under
// systemName.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.entries))
	for _, e := range m.entries {
		subs = append(subs, e.status)
	}
	m.mu.RUnlock()

	return Aggregate(systemName, subs)
}
