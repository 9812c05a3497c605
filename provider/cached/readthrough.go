package cached

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// readThrough answers a single-key operation from its store, or fetches,
// stores and returns the base result.
func readThrough[T any](
	ctx context.Context,
	p *Provider,
	op provider.Operation,
	key string,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if err := errors.FromContext(ctx); err != nil {
		return zero, err
	}

	store := p.stores[op]
	cached, found, err := readEntry[T](ctx, p, op, store, key)
	if err != nil {
		return zero, err
	}
	p.recordLookup(op, found)
	if found {
		return cached, nil
	}

	v, err := p.shared(ctx, flightKey(op, key), func(ctx context.Context) (any, error) {
		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		p.writeEntry(ctx, op, store, key, result)
		return result, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// readBatch answers a multi-key operation: hits come from the store, the
// missing ids are fetched from the base provider in one call.
func readBatch[K ~string, V any](
	ctx context.Context,
	p *Provider,
	op provider.Operation,
	ids []K,
	fetch func(ctx context.Context, missing []K) (map[K]V, error),
) (map[K]V, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}

	store := p.stores[op]
	result := make(map[K]V, len(ids))
	var missing []K
	for _, id := range ids {
		if _, done := result[id]; done || containsID(missing, id) {
			continue
		}
		v, found, err := readEntry[V](ctx, p, op, store, string(id))
		if err != nil {
			return nil, err
		}
		p.recordLookup(op, found)
		if found {
			result[id] = v
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	keys := make([]string, len(missing))
	for i, id := range missing {
		keys[i] = string(id)
	}
	v, err := p.shared(ctx, flightKey(op, keys...), func(ctx context.Context) (any, error) {
		fetched, err := fetch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for id, entity := range fetched {
			p.writeEntry(ctx, op, store, string(id), entity)
		}
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	for id, entity := range v.(map[K]V) {
		result[id] = entity
	}
	return result, nil
}

func containsID[K comparable](ids []K, id K) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// readEntry returns found=false for misses and for any cache failure. The
// only error it returns is cancellation.
func readEntry[T any](ctx context.Context, p *Provider, op provider.Operation, store kv.Store, key string) (T, bool, error) {
	var zero T
	data, err := store.Get(ctx, key)
	if err != nil {
		if cerr := errors.FromContext(ctx); cerr != nil {
			return zero, false, cerr
		}
		if !stderrors.Is(err, kv.ErrNotFound) {
			p.cacheFailure(op, "read", errors.NewCacheError(err, store.Name(), "get"))
		}
		return zero, false, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		p.cacheFailure(op, "decode", errors.NewCacheError(err, store.Name(), "decode"))
		return zero, false, nil
	}
	return v, true, nil
}

// writeEntry stores v unless ctx is done. The final ctx check is the one
// store.Put makes, so a cancellation that lands after Put has checked ctx
// does not undo the write. Failures are logged only.
func (p *Provider) writeEntry(ctx context.Context, op provider.Operation, store kv.Store, key string, v any) {
	if ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.cacheFailure(op, "encode", errors.NewCacheError(err, store.Name(), "encode"))
		return
	}
	if err := store.Put(ctx, key, data); err != nil {
		if ctx.Err() == nil {
			p.cacheFailure(op, "write", errors.NewCacheError(err, store.Name(), "put"))
		}
		return
	}
	p.writes.Add(1)
	if p.metrics != nil {
		p.metrics.CacheWrites.WithLabelValues(string(op)).Inc()
	}
}

// shared collapses concurrent misses for the same key into one base call.
// A waiter whose own context is still live retries alone when the shared
// call was cancelled by another caller.
func (p *Provider) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := p.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, errors.FromContext(ctx)
	case res := <-ch:
		if res.Err != nil && res.Shared && errors.IsCancelled(res.Err) && ctx.Err() == nil {
			return fn(ctx)
		}
		if res.Err != nil && errors.IsCancelled(res.Err) {
			return nil, errors.Cancelled(res.Err)
		}
		return res.Val, res.Err
	}
}

func (p *Provider) recordLookup(op provider.Operation, hit bool) {
	if hit {
		p.hits.Add(1)
	} else {
		p.misses.Add(1)
	}
	if p.metrics != nil {
		p.metrics.RecordCacheLookup(string(op), hit)
	}
}

func (p *Provider) cacheFailure(op provider.Operation, stage string, err error) {
	p.failures.Add(1)
	if p.metrics != nil {
		p.metrics.CacheErrors.WithLabelValues(string(op), stage).Inc()
	}
	p.logger.Warn("Cache unavailable, falling through", "operation", op, "stage", stage, "error", err)
}

// tupleKey joins key components with a separator that cannot occur in IRIs.
func tupleKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

func flightKey(op provider.Operation, keys ...string) string {
	return string(op) + "\x1e" + tupleKey(keys...)
}
