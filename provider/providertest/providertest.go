// Package providertest provides DataProvider fakes for tests: a fixture-backed
// provider, a call recorder, a failing provider and a provider that blocks until
// its context is cancelled.
package providertest

import (
	"context"
	"slices"
	"sync"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

// Fixture answers every operation from in-memory maps. Zero value is an empty
// source.
type Fixture struct {
	ElementTypeList  []model.ElementType
	Subtypes         []model.SubtypeEdge
	LinkTypeList     []model.LinkType
	PropertyTypeList []model.PropertyType
	ElementList      []model.Element
	LinkList         []model.Link
	Stats            map[model.ElementIri][]model.LinkCount
	LookupItems      []model.LookupItem
}

var _ provider.DataProvider = (*Fixture)(nil)

func (f *Fixture) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	if err := errors.FromContext(ctx); err != nil {
		return model.ElementTypeGraph{}, err
	}
	return model.ElementTypeGraph{
		ElementTypes: slices.Clone(f.ElementTypeList),
		Subtypes:     slices.Clone(f.Subtypes),
	}, nil
}

func (f *Fixture) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(f.LinkTypeList), nil
}

func (f *Fixture) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.ElementTypeIri]model.ElementType)
	for _, t := range f.ElementTypeList {
		if slices.Contains(params.ClassIDs, t.ID) {
			out[t.ID] = t
		}
	}
	return out, nil
}

func (f *Fixture) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.PropertyTypeIri]model.PropertyType)
	for _, t := range f.PropertyTypeList {
		if slices.Contains(params.PropertyIDs, t.ID) {
			out[t.ID] = t
		}
	}
	return out, nil
}

func (f *Fixture) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.LinkTypeIri]model.LinkType)
	for _, t := range f.LinkTypeList {
		if slices.Contains(params.LinkTypeIDs, t.ID) {
			out[t.ID] = t
		}
	}
	return out, nil
}

func (f *Fixture) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.ElementIri]model.Element)
	for _, e := range f.ElementList {
		if slices.Contains(params.Elements, e.ID) {
			out[e.ID] = e
		}
	}
	return out, nil
}

func (f *Fixture) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	var out []model.Link
	for _, l := range f.LinkList {
		touches := slices.Contains(params.Elements, l.SourceID) || slices.Contains(params.Elements, l.TargetID)
		if !touches {
			continue
		}
		if len(params.LinkTypes) > 0 && !slices.Contains(params.LinkTypes, l.LinkTypeID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *Fixture) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(f.Stats[params.Element]), nil
}

func (f *Fixture) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	items := slices.Clone(f.LookupItems)
	if limit := params.EffectiveLimit(len(items)); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Call is one recorded invocation.
type Call struct {
	Op     provider.Operation
	Params any
}

// Recorder records every call before delegating to Base.
type Recorder struct {
	Base provider.DataProvider

	mu    sync.Mutex
	calls []Call
}

var _ provider.DataProvider = (*Recorder)(nil)

// NewRecorder wraps base.
func NewRecorder(base provider.DataProvider) *Recorder {
	return &Recorder{Base: base}
}

func (r *Recorder) record(op provider.Operation, params any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Params: params})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the recorded calls of one operation.
func (r *Recorder) CallsTo(op provider.Operation) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	r.record(provider.OpKnownElementTypes, nil)
	return r.Base.KnownElementTypes(ctx)
}

func (r *Recorder) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	r.record(provider.OpKnownLinkTypes, nil)
	return r.Base.KnownLinkTypes(ctx)
}

func (r *Recorder) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	r.record(provider.OpElementTypes, params)
	return r.Base.ElementTypes(ctx, params)
}

func (r *Recorder) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	r.record(provider.OpPropertyTypes, params)
	return r.Base.PropertyTypes(ctx, params)
}

func (r *Recorder) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	r.record(provider.OpLinkTypes, params)
	return r.Base.LinkTypes(ctx, params)
}

func (r *Recorder) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	r.record(provider.OpElements, params)
	return r.Base.Elements(ctx, params)
}

func (r *Recorder) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	r.record(provider.OpLinks, params)
	return r.Base.Links(ctx, params)
}

func (r *Recorder) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	r.record(provider.OpConnectedLinkStats, params)
	return r.Base.ConnectedLinkStats(ctx, params)
}

func (r *Recorder) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	r.record(provider.OpLookup, params)
	return r.Base.Lookup(ctx, params)
}

// Failing returns Err from every operation, wrapped as a BackendError named
// Name.
type Failing struct {
	Name string
	Err  error
}

var _ provider.DataProvider = Failing{}

func (f Failing) fail(op provider.Operation) error {
	return errors.NewBackendError(f.Err, f.Name, string(op))
}

func (f Failing) KnownElementTypes(context.Context) (model.ElementTypeGraph, error) {
	return model.ElementTypeGraph{}, f.fail(provider.OpKnownElementTypes)
}

func (f Failing) KnownLinkTypes(context.Context) ([]model.LinkType, error) {
	return nil, f.fail(provider.OpKnownLinkTypes)
}

func (f Failing) ElementTypes(context.Context, provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	return nil, f.fail(provider.OpElementTypes)
}

func (f Failing) PropertyTypes(context.Context, provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	return nil, f.fail(provider.OpPropertyTypes)
}

func (f Failing) LinkTypes(context.Context, provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	return nil, f.fail(provider.OpLinkTypes)
}

func (f Failing) Elements(context.Context, provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	return nil, f.fail(provider.OpElements)
}

func (f Failing) Links(context.Context, provider.LinksParams) ([]model.Link, error) {
	return nil, f.fail(provider.OpLinks)
}

func (f Failing) ConnectedLinkStats(context.Context, provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	return nil, f.fail(provider.OpConnectedLinkStats)
}

func (f Failing) Lookup(context.Context, provider.LookupParams) ([]model.LookupItem, error) {
	return nil, f.fail(provider.OpLookup)
}

// Blocking never answers: every operation waits for its context and returns
// the cancellation. Started receives one value per call that began waiting.
type Blocking struct {
	Started chan provider.Operation
}

var _ provider.DataProvider = (*Blocking)(nil)

// NewBlocking creates a Blocking provider whose Started channel holds up to
// buffer notifications.
func NewBlocking(buffer int) *Blocking {
	return &Blocking{Started: make(chan provider.Operation, buffer)}
}

func (b *Blocking) wait(ctx context.Context, op provider.Operation) error {
	if b.Started != nil {
		select {
		case b.Started <- op:
		default:
		}
	}
	<-ctx.Done()
	return errors.FromContext(ctx)
}

func (b *Blocking) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	return model.ElementTypeGraph{}, b.wait(ctx, provider.OpKnownElementTypes)
}

func (b *Blocking) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	return nil, b.wait(ctx, provider.OpKnownLinkTypes)
}

func (b *Blocking) ElementTypes(ctx context.Context, _ provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	return nil, b.wait(ctx, provider.OpElementTypes)
}

func (b *Blocking) PropertyTypes(ctx context.Context, _ provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	return nil, b.wait(ctx, provider.OpPropertyTypes)
}

func (b *Blocking) LinkTypes(ctx context.Context, _ provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	return nil, b.wait(ctx, provider.OpLinkTypes)
}

func (b *Blocking) Elements(ctx context.Context, _ provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	return nil, b.wait(ctx, provider.OpElements)
}

func (b *Blocking) Links(ctx context.Context, _ provider.LinksParams) ([]model.Link, error) {
	return nil, b.wait(ctx, provider.OpLinks)
}

func (b *Blocking) ConnectedLinkStats(ctx context.Context, _ provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	return nil, b.wait(ctx, provider.OpConnectedLinkStats)
}

func (b *Blocking) Lookup(ctx context.Context, _ provider.LookupParams) ([]model.LookupItem, error) {
	return nil, b.wait(ctx, provider.OpLookup)
}

// Label is shorthand for a language-tagged literal label.
func Label(value, language string) rdf.Literal {
	return rdf.NewLangLiteral(value, language)
}

// ElementType builds an element type fixture. A negative count means unknown.
func ElementType(id model.ElementTypeIri, count int, labels ...rdf.Literal) model.ElementType {
	t := model.ElementType{ID: id, Label: labels}
	if count >= 0 {
		t.Count = model.IntPtr(count)
	}
	return t
}

// Element builds an element fixture.
func Element(id model.ElementIri, types []model.ElementTypeIri, labels ...rdf.Literal) model.Element {
	return model.Element{
		ID:         id,
		Types:      model.NormalizeTypes(types),
		Label:      labels,
		Properties: model.PropertyMap{},
	}
}
