package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Probe reports whether one dependency can serve requests.
type Probe func(ctx context.Context) error

// Prober runs named probes and records each outcome in a Monitor.
type Prober struct {
	monitor *Monitor
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.RWMutex
	probes   map[string]Probe
	onResult func(name string, status Status)
}

// NewProber creates a prober writing to monitor. Every probe run is bounded by
// timeout.
func NewProber(monitor *Monitor, timeout time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		monitor: monitor,
		timeout: timeout,
		logger:  logger.With("component", "health"),
		probes:  make(map[string]Probe),
	}
}

// Register adds or replaces the probe for name.
func (p *Prober) Register(name string, probe Probe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = probe
}

// OnResult sets a callback invoked after every probe run.
func (p *Prober) OnResult(fn func(name string, status Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = fn
}

// CheckAll runs every probe concurrently and returns the aggregated status.
func (p *Prober) CheckAll(ctx context.Context, systemName string) Status {
	p.mu.RLock()
	probes := make(map[string]Probe, len(p.probes))
	for name, probe := range p.probes {
		probes[name] = probe
	}
	onResult := p.onResult
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := p.run(ctx, name, probe)
			p.monitor.Update(name, status)
			if onResult != nil {
				onResult(name, status)
			}
		}()
	}
	wg.Wait()

	return p.monitor.AggregateHealth(systemName)
}

func (p *Prober) run(ctx context.Context, name string, probe Probe) Status {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := probe(ctx)
	status := FromProbe(name, err, time.Since(start))
	if err != nil {
		p.logger.Warn("Health probe failed", "probe", name, "status", status.Status, "error", err)
	}
	return status
}

// Run probes every interval until ctx is done. The first round runs
// immediately.
func (p *Prober) Run(ctx context.Context, systemName string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.CheckAll(ctx, systemName)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
