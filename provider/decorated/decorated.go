// Package decorated wraps a DataProvider so that every call is routed through
// an interceptor function.
//
// An interceptor receives the operation name, its parameters and next, the
// bound base implementation. It may call next zero or more times, rewrite the
// parameters or the result, delay, short-circuit or retry:
//
//	logged := decorated.New(base, decorated.Chain(
//	    decorated.Audit(logger),
//	    decorated.Retry(errors.DefaultRetryConfig(), logger),
//	    decorated.Delay(decorated.DelayConfig{Distribution: decorated.DistributionUniform, Min: 50 * time.Millisecond, Max: 200 * time.Millisecond}),
//	))
//
// Parameters and results travel as the contract types of the operation (for
// example provider.ElementsParams in, map[model.ElementIri]model.Element out).
// KnownElementTypes and KnownLinkTypes carry nil parameters.
package decorated

import (
	"context"
	"fmt"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

// Next invokes the wrapped implementation of the current operation.
type Next func(ctx context.Context, params any) (any, error)

// Interceptor handles one call. It must honour ctx and return the result type
// of op.
type Interceptor func(ctx context.Context, op provider.Operation, params any, next Next) (any, error)

// Passthrough calls next unchanged.
func Passthrough(ctx context.Context, _ provider.Operation, params any, next Next) (any, error) {
	return next(ctx, params)
}

// Chain composes interceptors into one. The first interceptor is outermost.
func Chain(interceptors ...Interceptor) Interceptor {
	switch len(interceptors) {
	case 0:
		return Passthrough
	case 1:
		return interceptors[0]
	}
	return func(ctx context.Context, op provider.Operation, params any, next Next) (any, error) {
		return interceptors[0](ctx, op, params, func(ctx context.Context, params any) (any, error) {
			return Chain(interceptors[1:]...)(ctx, op, params, next)
		})
	}
}

// Provider routes every DataProvider call through an interceptor.
type Provider struct {
	base        provider.DataProvider
	interceptor Interceptor
}

var _ provider.DataProvider = (*Provider)(nil)

// New wraps base. A nil interceptor passes calls through unchanged.
func New(base provider.DataProvider, interceptor Interceptor) *Provider {
	if interceptor == nil {
		interceptor = Passthrough
	}
	return &Provider{base: base, interceptor: interceptor}
}

// Base returns the wrapped provider.
func (p *Provider) Base() provider.DataProvider {
	return p.base
}

func invoke[P, R any](
	ctx context.Context,
	p *Provider,
	op provider.Operation,
	params P,
	call func(ctx context.Context, params P) (R, error),
) (R, error) {
	var zero R
	next := func(ctx context.Context, raw any) (any, error) {
		typed, ok := raw.(P)
		if !ok && raw != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%s expects %T, got %T", op, zero, raw),
				"decorated", "next", "check params type")
		}
		return call(ctx, typed)
	}

	result, err := p.interceptor(ctx, op, params, next)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(R)
	if !ok {
		return zero, errors.WrapInvalid(fmt.Errorf("%s returns %T, interceptor produced %T", op, zero, result),
			"decorated", "invoke", "check result type")
	}
	return typed, nil
}

func (p *Provider) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	return invoke(ctx, p, provider.OpKnownElementTypes, any(nil),
		func(ctx context.Context, _ any) (model.ElementTypeGraph, error) {
			return p.base.KnownElementTypes(ctx)
		})
}

func (p *Provider) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	return invoke(ctx, p, provider.OpKnownLinkTypes, any(nil),
		func(ctx context.Context, _ any) ([]model.LinkType, error) {
			return p.base.KnownLinkTypes(ctx)
		})
}

func (p *Provider) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	return invoke(ctx, p, provider.OpElementTypes, params, p.base.ElementTypes)
}

func (p *Provider) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	return invoke(ctx, p, provider.OpPropertyTypes, params, p.base.PropertyTypes)
}

func (p *Provider) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	return invoke(ctx, p, provider.OpLinkTypes, params, p.base.LinkTypes)
}

func (p *Provider) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	return invoke(ctx, p, provider.OpElements, params, p.base.Elements)
}

func (p *Provider) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	return invoke(ctx, p, provider.OpLinks, params, p.base.Links)
}

func (p *Provider) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	return invoke(ctx, p, provider.OpConnectedLinkStats, params, p.base.ConnectedLinkStats)
}

func (p *Provider) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	return invoke(ctx, p, provider.OpLookup, params, p.base.Lookup)
}
