// Package composite fans each DataProvider operation out to several sources
// concurrently and merges their answers into one normalized result.
//
// Merge rules:
//   - element, link and property types sharing an id are unioned; labels are
//     unioned by structural equality in source order; counts are summed and stay
//     unknown only when every source left them unknown
//   - subtype edges are unioned as a set of (derived, base) pairs
//   - elements sharing an id union their types (sorted), labels and property
//     values, keep the first non-empty image, and gain one
//     vocabulary.SourceProviderProperty value per contributing source
//   - links are de-duplicated by (source, target, link type); the first instance
//     wins and property maps are unioned
//   - link counts sharing a link type are summed
//   - lookup items merge their elements as above and union their link types
//
// The composite is fail-fast: if any source fails, the whole call fails with
// that source's error and no partial result is returned. Cancelling the
// caller's context cancels every branch and yields errors.ErrCancelled.
package composite

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

// Source is one named provider of a composite.
type Source struct {
	Label    string
	Provider provider.DataProvider
}

// Provider is a DataProvider that merges the answers of its sources.
type Provider struct {
	sources []Source
	logger  *slog.Logger
	metrics *metric.Metrics
}

var _ provider.DataProvider = (*Provider)(nil)

// Option configures a composite Provider.
type Option func(*Provider)

// WithLogger sets the logger used for per-branch debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records per-branch latency and failures.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *Provider) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// New creates a composite over sources, queried and merged in the given order.
// An empty source list yields empty results.
func New(sources []Source, opts ...Option) *Provider {
	p := &Provider{
		sources: append([]Source(nil), sources...),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "composite")
	return p
}

// Sources returns the configured sources in order.
func (p *Provider) Sources() []Source {
	return append([]Source(nil), p.sources...)
}

func (p *Provider) labels() []string {
	out := make([]string, len(p.sources))
	for i, s := range p.sources {
		out[i] = s.Label
	}
	return out
}

// fanOut calls fn on every source concurrently and returns the results in
// source order. The first failure cancels the remaining branches.
func fanOut[T any](
	ctx context.Context,
	p *Provider,
	op provider.Operation,
	fn func(ctx context.Context, dp provider.DataProvider) (T, error),
) ([]T, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}

	results := make([]T, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			start := time.Now()
			result, err := fn(gctx, src.Provider)
			elapsed := time.Since(start)

			if p.metrics != nil {
				p.metrics.CompositeBranchDuration.WithLabelValues(src.Label, string(op)).Observe(elapsed.Seconds())
			}
			if err != nil {
				// Only a fired caller or sibling context makes this a cancellation.
				if gctx.Err() != nil {
					return errors.Cancelled(err)
				}
				if p.metrics != nil {
					p.metrics.CompositeBranchErrors.WithLabelValues(src.Label, string(op)).Inc()
				}
				p.logger.Debug("Source failed", "source", src.Label, "operation", op, "duration", elapsed, "error", err)
				return errors.SourceFailed(err, src.Label, string(op))
			}
			p.logger.Debug("Source answered", "source", src.Label, "operation", op, "duration", elapsed)
			results[i] = result
			return nil
		})
	}

	err := g.Wait()
	if cerr := errors.FromContext(ctx); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Provider) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	results, err := fanOut(ctx, p, provider.OpKnownElementTypes,
		func(ctx context.Context, dp provider.DataProvider) (model.ElementTypeGraph, error) {
			return dp.KnownElementTypes(ctx)
		})
	if err != nil {
		return model.ElementTypeGraph{}, err
	}
	return mergeElementTypeGraphs(results), nil
}

func (p *Provider) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	results, err := fanOut(ctx, p, provider.OpKnownLinkTypes,
		func(ctx context.Context, dp provider.DataProvider) ([]model.LinkType, error) {
			return dp.KnownLinkTypes(ctx)
		})
	if err != nil {
		return nil, err
	}
	return mergeLinkTypeList(results), nil
}

func (p *Provider) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	results, err := fanOut(ctx, p, provider.OpElementTypes,
		func(ctx context.Context, dp provider.DataProvider) (map[model.ElementTypeIri]model.ElementType, error) {
			return dp.ElementTypes(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeElementTypes(results), nil
}

func (p *Provider) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	results, err := fanOut(ctx, p, provider.OpPropertyTypes,
		func(ctx context.Context, dp provider.DataProvider) (map[model.PropertyTypeIri]model.PropertyType, error) {
			return dp.PropertyTypes(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergePropertyTypes(results), nil
}

func (p *Provider) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	results, err := fanOut(ctx, p, provider.OpLinkTypes,
		func(ctx context.Context, dp provider.DataProvider) (map[model.LinkTypeIri]model.LinkType, error) {
			return dp.LinkTypes(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeLinkTypes(results), nil
}

func (p *Provider) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	results, err := fanOut(ctx, p, provider.OpElements,
		func(ctx context.Context, dp provider.DataProvider) (map[model.ElementIri]model.Element, error) {
			return dp.Elements(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeElements(results, p.labels()), nil
}

func (p *Provider) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	results, err := fanOut(ctx, p, provider.OpLinks,
		func(ctx context.Context, dp provider.DataProvider) ([]model.Link, error) {
			return dp.Links(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeLinks(results), nil
}

func (p *Provider) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	results, err := fanOut(ctx, p, provider.OpConnectedLinkStats,
		func(ctx context.Context, dp provider.DataProvider) ([]model.LinkCount, error) {
			return dp.ConnectedLinkStats(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeLinkCounts(results), nil
}

// Lookup merges the items of every source. An explicit positive limit caps
// the merged list; the default limit is left to each source.
func (p *Provider) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	results, err := fanOut(ctx, p, provider.OpLookup,
		func(ctx context.Context, dp provider.DataProvider) ([]model.LookupItem, error) {
			return dp.Lookup(ctx, params)
		})
	if err != nil {
		return nil, err
	}
	return mergeLookupItems(results, p.labels(), params.Limit), nil
}
