package decorated

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/retry"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

// Distribution selects how Delay draws its waiting time.
type Distribution string

const (
	DistributionConstant    Distribution = "constant"
	DistributionUniform     Distribution = "uniform"
	DistributionExponential Distribution = "exponential"
)

// DelayConfig configures the Delay interceptor.
//   - constant waits Mean
//   - uniform waits a value drawn from [Min, Max)
//   - exponential waits a value with mean Mean, capped at Max when Max > 0
type DelayConfig struct {
	Distribution Distribution  `json:"distribution" yaml:"distribution"`
	Mean         time.Duration `json:"mean" yaml:"mean"`
	Min          time.Duration `json:"min" yaml:"min"`
	Max          time.Duration `json:"max" yaml:"max"`
}

// Validate checks the configuration.
func (c DelayConfig) Validate() error {
	if c.Mean < 0 || c.Min < 0 || c.Max < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "DelayConfig", "Validate", "durations cannot be negative")
	}
	switch c.Distribution {
	case DistributionConstant, DistributionExponential:
	case DistributionUniform:
		if c.Max < c.Min {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "DelayConfig", "Validate", "max must be >= min")
		}
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown distribution %q", c.Distribution), "DelayConfig", "Validate", "check distribution")
	}
	return nil
}

// Sample draws one delay.
func (c DelayConfig) Sample() time.Duration {
	switch c.Distribution {
	case DistributionUniform:
		if c.Max <= c.Min {
			return c.Min
		}
		return c.Min + time.Duration(rand.Int64N(int64(c.Max-c.Min)))
	case DistributionExponential:
		d := time.Duration(rand.ExpFloat64() * float64(c.Mean))
		if c.Max > 0 && d > c.Max {
			d = c.Max
		}
		return d
	default:
		return c.Mean
	}
}

// Delay waits a randomized time before delegating, to simulate network
// latency. The wait is cancelled with ctx.
func Delay(cfg DelayConfig) Interceptor {
	return func(ctx context.Context, _ provider.Operation, params any, next Next) (any, error) {
		if err := sleep(ctx, cfg.Sample()); err != nil {
			return nil, err
		}
		return next(ctx, params)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return errors.FromContext(ctx)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.FromContext(ctx)
	case <-timer.C:
		return nil
	}
}

// Retry repeats failed calls with exponential backoff. Only transient errors
// are retried; cancellation and invalid input surface immediately.
func Retry(cfg errors.RetryConfig, logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		rc := cfg.ToRetryConfig()
		rc.Retryable = errors.IsTransient
		rc.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.Warn("Retrying provider call",
				"operation", op, "attempt", attempt, "delay", delay, "error", err)
		}

		result, err := retry.DoWithResult(ctx, rc, func(ctx context.Context) (any, error) {
			return next(ctx, params)
		})
		if err != nil && errors.IsCancelled(err) {
			return nil, errors.Cancelled(err)
		}
		return result, err
	}
}

// RateLimit admits calls at the limiter's rate. Waiting for a token is
// cancelled with ctx.
func RateLimit(limiter *rate.Limiter) Interceptor {
	return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		if err := limiter.Wait(ctx); err != nil {
			if cerr := errors.FromContext(ctx); cerr != nil {
				return nil, cerr
			}
			return nil, errors.WrapTransient(fmt.Errorf("%w: %v", errors.ErrRateLimited, err),
				"decorated", "RateLimit", fmt.Sprintf("admit %s", op))
		}
		return next(ctx, params)
	}
}

// Audit logs every call with a request id, its duration and its outcome.
func Audit(logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		requestID := uuid.NewString()
		start := time.Now()
		logger.Debug("Provider call started", "request_id", requestID, "operation", op, "params", params)

		result, err := next(ctx, params)

		attrs := []any{"request_id", requestID, "operation", op, "duration", time.Since(start), "outcome", Outcome(err)}
		switch {
		case err == nil:
			logger.Info("Provider call completed", attrs...)
		case errors.IsCancelled(err):
			logger.Info("Provider call cancelled", attrs...)
		default:
			logger.Error("Provider call failed", append(attrs, "error", err)...)
		}
		return result, err
	}
}

// Metrics records call counts and latencies under the given provider name.
func Metrics(registry *metric.MetricsRegistry, providerName string) Interceptor {
	if registry == nil {
		return Passthrough
	}
	core := registry.CoreMetrics()
	return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		start := time.Now()
		result, err := next(ctx, params)
		core.RecordProviderCall(providerName, string(op), Outcome(err), time.Since(start).Seconds())
		return result, err
	}
}

// Outcome classifies a call result for logs and metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.IsCancelled(err):
		return "cancelled"
	case errors.IsBackendError(err):
		return "backend_error"
	default:
		return "error"
	}
}
