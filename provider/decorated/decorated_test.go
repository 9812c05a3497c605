package decorated

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	pt "github.com/reactodia/reactodia-workspace-sub004/provider/providertest"
)

func fixture() *pt.Fixture {
	return &pt.Fixture{
		ElementList:  []model.Element{pt.Element("alice", []model.ElementTypeIri{"Person"}, pt.Label("Alice", "en"))},
		LinkTypeList: []model.LinkType{{ID: "knows"}},
	}
}

func TestInterceptorSeesEveryOperation(t *testing.T) {
	var seen []provider.Operation
	p := New(fixture(), func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		seen = append(seen, op)
		return next(ctx, params)
	})
	ctx := context.Background()

	_, _ = p.KnownElementTypes(ctx)
	_, _ = p.KnownLinkTypes(ctx)
	_, _ = p.ElementTypes(ctx, provider.ElementTypesParams{})
	_, _ = p.PropertyTypes(ctx, provider.PropertyTypesParams{})
	_, _ = p.LinkTypes(ctx, provider.LinkTypesParams{})
	els, err := p.Elements(ctx, provider.ElementsParams{Elements: []model.ElementIri{"alice"}})
	require.NoError(t, err)
	_, _ = p.Links(ctx, provider.LinksParams{})
	_, _ = p.ConnectedLinkStats(ctx, provider.ConnectedLinkStatsParams{Element: "alice"})
	_, _ = p.Lookup(ctx, provider.LookupParams{})

	assert.Equal(t, provider.Operations(), seen)
	assert.Contains(t, els, model.ElementIri("alice"))
}

func TestInterceptorRewritesParams(t *testing.T) {
	recorder := pt.NewRecorder(fixture())
	p := New(recorder, func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		if ep, ok := params.(provider.ElementsParams); ok {
			ep.Elements = append(ep.Elements, "extra")
			params = ep
		}
		return next(ctx, params)
	})

	_, err := p.Elements(context.Background(), provider.ElementsParams{Elements: []model.ElementIri{"alice"}})
	require.NoError(t, err)

	calls := recorder.CallsTo(provider.OpElements)
	require.Len(t, calls, 1)
	assert.Equal(t, []model.ElementIri{"alice", "extra"}, calls[0].Params.(provider.ElementsParams).Elements)
}

func TestInterceptorShortCircuit(t *testing.T) {
	recorder := pt.NewRecorder(fixture())
	p := New(recorder, func(context.Context, provider.Operation, any, Next) (any, error) {
		return []model.LinkType{{ID: "stub"}}, nil
	})

	types, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.LinkType{{ID: "stub"}}, types)
	assert.Empty(t, recorder.Calls())
}

func TestInterceptorWrongTypes(t *testing.T) {
	p := New(fixture(), func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		return "not a result", nil
	})
	_, err := p.KnownLinkTypes(context.Background())
	assert.True(t, errors.IsInvalid(err))

	p = New(fixture(), func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		return next(ctx, 42)
	})
	_, err = p.Elements(context.Background(), provider.ElementsParams{})
	assert.True(t, errors.IsInvalid(err))
}

func TestChainOrder(t *testing.T) {
	var trace []string
	mark := func(name string) Interceptor {
		return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
			trace = append(trace, name+">")
			r, err := next(ctx, params)
			trace = append(trace, "<"+name)
			return r, err
		}
	}

	p := New(fixture(), Chain(mark("a"), mark("b"), mark("c")))
	_, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a>", "b>", "c>", "<c", "<b", "<a"}, trace)

	p = New(fixture(), Chain())
	_, err = p.KnownLinkTypes(context.Background())
	assert.NoError(t, err)
}

func TestDelaySample(t *testing.T) {
	constant := DelayConfig{Distribution: DistributionConstant, Mean: 5 * time.Millisecond}
	assert.Equal(t, 5*time.Millisecond, constant.Sample())

	uniform := DelayConfig{Distribution: DistributionUniform, Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	for range 100 {
		d := uniform.Sample()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}

	exponential := DelayConfig{Distribution: DistributionExponential, Mean: time.Millisecond, Max: 3 * time.Millisecond}
	for range 100 {
		d := exponential.Sample()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 3*time.Millisecond)
	}

	assert.NoError(t, uniform.Validate())
	assert.Error(t, DelayConfig{Distribution: "gaussian"}.Validate())
	assert.Error(t, DelayConfig{Distribution: DistributionUniform, Min: 2, Max: 1}.Validate())
}

func TestDelayIsCancellable(t *testing.T) {
	recorder := pt.NewRecorder(fixture())
	p := New(recorder, Delay(DelayConfig{Distribution: DistributionConstant, Mean: time.Hour}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.KnownLinkTypes(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, recorder.Calls(), "cancelled delay must not delegate")
}

func TestDelayDelegates(t *testing.T) {
	p := New(fixture(), Delay(DelayConfig{Distribution: DistributionConstant, Mean: time.Millisecond}))
	types, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func fastRetry() errors.RetryConfig {
	return errors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetryTransient(t *testing.T) {
	var attempts atomic.Int32
	flaky := func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.NewBackendError(fmt.Errorf("connection reset"), "flaky", string(op))
		}
		return next(ctx, params)
	}

	p := New(fixture(), Chain(Retry(fastRetry(), nil), flaky))
	types, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 1)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryNeverRetriesCancellation(t *testing.T) {
	var attempts atomic.Int32
	cancelled := func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		attempts.Add(1)
		return nil, errors.Cancelled(context.Canceled)
	}

	p := New(fixture(), Chain(Retry(fastRetry(), nil), cancelled))
	_, err := p.KnownLinkTypes(context.Background())
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRetryGivesUp(t *testing.T) {
	cause := fmt.Errorf("service unavailable")
	p := New(pt.Failing{Name: "down", Err: cause}, Retry(fastRetry(), nil))

	_, err := p.Elements(context.Background(), provider.ElementsParams{})
	require.Error(t, err)
	assert.True(t, errors.IsBackendError(err))
	assert.ErrorIs(t, err, cause)
}

func TestRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	p := New(fixture(), RateLimit(limiter))

	_, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err, "burst admits the first call")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.KnownLinkTypes(ctx)
	assert.True(t, errors.IsCancelled(err))

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.KnownLinkTypes(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRateLimited)
}

func TestAudit(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := New(pt.Failing{Name: "down", Err: fmt.Errorf("boom")}, Audit(logger))
	_, err := p.Lookup(context.Background(), provider.LookupParams{Text: "alice"})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"operation":"lookup"`)
	assert.Contains(t, out, `"outcome":"backend_error"`)
	assert.Contains(t, out, `"request_id"`)
}

func TestMetricsInterceptor(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p := New(fixture(), Metrics(registry, "local"))

	_, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)

	ok := registry.CoreMetrics().ProviderRequests.WithLabelValues("local", string(provider.OpKnownLinkTypes), "ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(ok))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "cancelled", Outcome(context.Canceled))
	assert.Equal(t, "backend_error", Outcome(errors.NewBackendError(fmt.Errorf("x"), "p", "op")))
	assert.Equal(t, "error", Outcome(fmt.Errorf("x")))
}
