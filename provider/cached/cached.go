// Package cached wraps a DataProvider with a persistent read-through cache.
//
// Every cacheable operation owns one kv.Store of the backend:
//
//	knownElementTypes, knownLinkTypes   single key
//	connectedLinkStats                  keyed by (element, inexact)
//	lookup                              keyed by the full parameter tuple
//	elementTypes, propertyTypes,
//	linkTypes, elements                 one entry per id
//
// Batch operations fetch only the ids that miss, in one call to the base
// provider, and store each fetched entity on its own. Links are not cached.
//
// Cache failures never fail a call: a store that cannot be read counts as a
// miss and a failed write is logged and dropped. Nothing is written once the
// caller's context is done. Entries are tagged with a schema version kept in
// a meta store; opening a backend written under another version clears it.
package cached

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
)

// SchemaVersion is the layout version of cached entries. Bump it whenever the
// serialized form of a cached result changes.
const SchemaVersion = 1

const (
	metaStore        = "meta"
	schemaVersionKey = "schema_version"
	singleKey        = "all"
)

var storeNames = map[provider.Operation]string{
	provider.OpKnownElementTypes:  "known_element_types",
	provider.OpKnownLinkTypes:     "known_link_types",
	provider.OpElementTypes:       "element_types",
	provider.OpPropertyTypes:      "property_types",
	provider.OpLinkTypes:          "link_types",
	provider.OpElements:           "elements",
	provider.OpConnectedLinkStats: "connected_link_stats",
	provider.OpLookup:             "lookup",
}

// Stats counts cache activity since the provider was created.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Writes int64 `json:"writes"`
	Errors int64 `json:"errors"`
}

// Provider is a DataProvider backed by a kv.Backend.
type Provider struct {
	base     provider.DataProvider
	backend  kv.Backend
	meta     kv.Store
	stores   map[provider.Operation]kv.Store
	logger   *slog.Logger
	metrics  *metric.Metrics
	version  int
	textKeys bool

	group singleflight.Group

	hits, misses, writes, failures atomic.Int64
}

var _ provider.DataProvider = (*Provider)(nil)

// Option configures a cached Provider.
type Option func(*Provider)

// WithLogger sets the logger for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records hits, misses, writes and cache errors.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(p *Provider) {
		if registry != nil {
			p.metrics = registry.CoreMetrics()
		}
	}
}

// WithTextLookupCaching controls whether lookups with free text are cached.
// Text queries are high-cardinality and rarely repeated; they are cached by
// default.
func WithTextLookupCaching(enabled bool) Option {
	return func(p *Provider) {
		p.textKeys = enabled
	}
}

// WithSchemaVersion overrides SchemaVersion.
func WithSchemaVersion(version int) Option {
	return func(p *Provider) {
		p.version = version
	}
}

// New opens one store per cacheable operation on backend and checks the
// schema version, clearing every store on mismatch.
func New(ctx context.Context, base provider.DataProvider, backend kv.Backend, opts ...Option) (*Provider, error) {
	if base == nil || backend == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "cached", "New", "base provider and backend are required")
	}

	p := &Provider{
		base:     base,
		backend:  backend,
		stores:   make(map[provider.Operation]kv.Store, len(storeNames)),
		logger:   slog.Default(),
		version:  SchemaVersion,
		textKeys: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "cached")

	var err error
	if p.meta, err = backend.Open(ctx, metaStore); err != nil {
		return nil, errors.NewCacheError(err, metaStore, "open")
	}
	for op, name := range storeNames {
		store, err := backend.Open(ctx, name)
		if err != nil {
			return nil, errors.NewCacheError(err, name, "open")
		}
		p.stores[op] = store
	}

	if err := p.checkSchemaVersion(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) checkSchemaVersion(ctx context.Context) error {
	want := strconv.Itoa(p.version)
	stored, err := p.meta.Get(ctx, schemaVersionKey)
	switch {
	case err == nil && string(stored) == want:
		return nil
	case err != nil && !stderrors.Is(err, kv.ErrNotFound):
		return errors.NewCacheError(err, metaStore, "read schema version")
	}

	if err == nil {
		p.logger.Info("Cache schema version changed, clearing stores",
			"stored_version", string(stored), "version", want)
	}
	if err := p.Clear(ctx); err != nil {
		return err
	}
	if err := p.meta.Put(ctx, schemaVersionKey, []byte(want)); err != nil {
		return errors.NewCacheError(err, metaStore, "write schema version")
	}
	return nil
}

// Clear removes every cached entry. The schema version is kept.
func (p *Provider) Clear(ctx context.Context) error {
	for _, store := range p.stores {
		if err := store.Clear(ctx); err != nil {
			if cerr := errors.FromContext(ctx); cerr != nil {
				return cerr
			}
			return errors.NewCacheError(err, store.Name(), "clear")
		}
	}
	return nil
}

// Base returns the wrapped provider.
func (p *Provider) Base() provider.DataProvider {
	return p.base
}

// Stats returns a snapshot of the cache counters.
func (p *Provider) Stats() Stats {
	return Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		Writes: p.writes.Load(),
		Errors: p.failures.Load(),
	}
}

func (p *Provider) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	return readThrough(ctx, p, provider.OpKnownElementTypes, singleKey,
		func(ctx context.Context) (model.ElementTypeGraph, error) {
			return p.base.KnownElementTypes(ctx)
		})
}

func (p *Provider) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	return readThrough(ctx, p, provider.OpKnownLinkTypes, singleKey,
		func(ctx context.Context) ([]model.LinkType, error) {
			return p.base.KnownLinkTypes(ctx)
		})
}

func (p *Provider) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	return readBatch(ctx, p, provider.OpElementTypes, params.ClassIDs,
		func(ctx context.Context, missing []model.ElementTypeIri) (map[model.ElementTypeIri]model.ElementType, error) {
			return p.base.ElementTypes(ctx, provider.ElementTypesParams{ClassIDs: missing})
		})
}

func (p *Provider) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	return readBatch(ctx, p, provider.OpPropertyTypes, params.PropertyIDs,
		func(ctx context.Context, missing []model.PropertyTypeIri) (map[model.PropertyTypeIri]model.PropertyType, error) {
			return p.base.PropertyTypes(ctx, provider.PropertyTypesParams{PropertyIDs: missing})
		})
}

func (p *Provider) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	return readBatch(ctx, p, provider.OpLinkTypes, params.LinkTypeIDs,
		func(ctx context.Context, missing []model.LinkTypeIri) (map[model.LinkTypeIri]model.LinkType, error) {
			return p.base.LinkTypes(ctx, provider.LinkTypesParams{LinkTypeIDs: missing})
		})
}

func (p *Provider) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	return readBatch(ctx, p, provider.OpElements, params.Elements,
		func(ctx context.Context, missing []model.ElementIri) (map[model.ElementIri]model.Element, error) {
			return p.base.Elements(ctx, provider.ElementsParams{Elements: missing})
		})
}

// Links is not cached: its answer depends on the whole requested element set.
func (p *Provider) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	return p.base.Links(ctx, params)
}

func (p *Provider) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	key := tupleKey(string(params.Element), strconv.FormatBool(params.InexactCount))
	return readThrough(ctx, p, provider.OpConnectedLinkStats, key,
		func(ctx context.Context) ([]model.LinkCount, error) {
			return p.base.ConnectedLinkStats(ctx, params)
		})
}

func (p *Provider) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	if params.Text != "" && !p.textKeys {
		return p.base.Lookup(ctx, params)
	}
	return readThrough(ctx, p, provider.OpLookup, LookupKey(params),
		func(ctx context.Context) ([]model.LookupItem, error) {
			return p.base.Lookup(ctx, params)
		})
}

// LookupKey is the cache key of a lookup. Absent components encode as empty
// strings, so equal parameters always share a key.
func LookupKey(params provider.LookupParams) string {
	return tupleKey(
		string(params.ElementType),
		string(params.RefElement),
		string(params.RefLinkType),
		string(params.Direction),
		params.Text,
		strconv.Itoa(params.Limit),
	)
}
