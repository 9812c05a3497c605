package composite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/provider/cached"
	pt "github.com/reactodia/reactodia-workspace-sub004/provider/providertest"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
	kvmemory "github.com/reactodia/reactodia-workspace-sub004/storage/kv/memory"
	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

const person = model.ElementTypeIri("Person")

func personSources() []Source {
	return []Source{
		{Label: "a", Provider: &pt.Fixture{ElementTypeList: []model.ElementType{pt.ElementType(person, 5, pt.Label("Person", "en"))}}},
		{Label: "b", Provider: &pt.Fixture{ElementTypeList: []model.ElementType{pt.ElementType(person, 3, pt.Label("Personne", "fr"))}}},
		{Label: "c", Provider: &pt.Fixture{ElementTypeList: []model.ElementType{pt.ElementType(person, 2, pt.Label("Person", "en"))}}},
	}
}

func TestElementTypes_PersonScenario(t *testing.T) {
	p := New(personSources())

	types, err := p.ElementTypes(context.Background(), provider.ElementTypesParams{ClassIDs: []model.ElementTypeIri{person}})
	require.NoError(t, err)
	require.Contains(t, types, person)

	want := model.ElementType{
		ID:    person,
		Label: []rdf.Literal{pt.Label("Person", "en"), pt.Label("Personne", "fr")},
		Count: model.IntPtr(10),
	}
	assert.True(t, want.Equal(types[person]), "got %+v", types[person])

	graph, err := p.KnownElementTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, graph.ElementTypes, 1)
	assert.True(t, want.Equal(graph.ElementTypes[0]))
}

func TestCountStaysUnknownWhenAllUnknown(t *testing.T) {
	p := New([]Source{
		{Label: "a", Provider: &pt.Fixture{LinkTypeList: []model.LinkType{{ID: "knows"}}}},
		{Label: "b", Provider: &pt.Fixture{LinkTypeList: []model.LinkType{{ID: "knows"}, {ID: "likes", Count: model.IntPtr(4)}}}},
	})

	types, err := p.KnownLinkTypes(context.Background())
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, model.LinkTypeIri("knows"), types[0].ID)
	assert.Nil(t, types[0].Count)
	require.NotNil(t, types[1].Count)
	assert.Equal(t, 4, *types[1].Count)
}

func sampleFixture() *pt.Fixture {
	alice := pt.Element("alice", []model.ElementTypeIri{"Person", "Agent"}, pt.Label("Alice", "en"))
	alice.Image = "http://ex/alice.png"
	alice.Properties = model.PropertyMap{"age": {rdf.NewTypedLiteral("42", vocabulary.XsdInteger)}}

	return &pt.Fixture{
		ElementTypeList: []model.ElementType{
			pt.ElementType("Person", 2, pt.Label("Person", "en")),
			pt.ElementType("Agent", -1),
		},
		Subtypes:         []model.SubtypeEdge{{Derived: "Person", Base: "Agent"}},
		LinkTypeList:     []model.LinkType{{ID: "knows", Label: []rdf.Literal{pt.Label("knows", "en")}, Count: model.IntPtr(1)}},
		PropertyTypeList: []model.PropertyType{{ID: "age", Label: []rdf.Literal{pt.Label("age", "en")}}},
		ElementList: []model.Element{
			alice,
			pt.Element("bob", []model.ElementTypeIri{"Person"}, pt.Label("Bob", "en")),
		},
		LinkList: []model.Link{
			{SourceID: "alice", TargetID: "bob", LinkTypeID: "knows", Properties: model.PropertyMap{"since": {rdf.NewLiteral("2020")}}},
		},
		Stats: map[model.ElementIri][]model.LinkCount{
			"alice": {{ID: "knows", InCount: 0, OutCount: 1}},
		},
		LookupItems: []model.LookupItem{
			{Element: alice, OutLinks: []model.LinkTypeIri{"knows"}, InLinks: []model.LinkTypeIri{}},
		},
	}
}

func withoutProvenance(e model.Element) model.Element {
	props := e.Properties.Clone()
	delete(props, vocabulary.SourceProviderProperty)
	e.Properties = props
	return e
}

func TestMergeIdempotence(t *testing.T) {
	ctx := context.Background()
	fixture := sampleFixture()
	single := New([]Source{{Label: "a", Provider: fixture}})
	double := New([]Source{{Label: "a", Provider: fixture}, {Label: "b", Provider: fixture}})

	g1, err := single.KnownElementTypes(ctx)
	require.NoError(t, err)
	g2, err := double.KnownElementTypes(ctx)
	require.NoError(t, err)
	require.Len(t, g2.ElementTypes, len(g1.ElementTypes))
	assert.Equal(t, g1.Subtypes, g2.Subtypes)
	for i := range g1.ElementTypes {
		assert.True(t, model.EqualLabels(g1.ElementTypes[i].Label, g2.ElementTypes[i].Label))
		if g1.ElementTypes[i].Count == nil {
			assert.Nil(t, g2.ElementTypes[i].Count)
		} else {
			assert.Equal(t, 2*(*g1.ElementTypes[i].Count), *g2.ElementTypes[i].Count, "counts double")
		}
	}

	ids := provider.ElementsParams{Elements: []model.ElementIri{"alice", "bob"}}
	e1, err := single.Elements(ctx, ids)
	require.NoError(t, err)
	e2, err := double.Elements(ctx, ids)
	require.NoError(t, err)
	for id := range e1 {
		assert.True(t, withoutProvenance(e1[id]).Equal(withoutProvenance(e2[id])), "element %s", id)
	}

	links := provider.LinksParams{Elements: []model.ElementIri{"alice"}}
	l1, err := single.Links(ctx, links)
	require.NoError(t, err)
	l2, err := double.Links(ctx, links)
	require.NoError(t, err)
	require.Len(t, l2, 1)
	assert.True(t, l1[0].Equal(l2[0]))

	s2, err := double.ConnectedLinkStats(ctx, provider.ConnectedLinkStatsParams{Element: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []model.LinkCount{{ID: "knows", InCount: 0, OutCount: 2}}, s2)
}

func TestMergeCommutativity(t *testing.T) {
	ctx := context.Background()
	a := &pt.Fixture{
		ElementList: []model.Element{pt.Element("x", []model.ElementTypeIri{"B", "A"}, pt.Label("X", "en"))},
		Subtypes:    []model.SubtypeEdge{{Derived: "B", Base: "A"}},
	}
	b := &pt.Fixture{
		ElementList: []model.Element{pt.Element("x", []model.ElementTypeIri{"C"}, pt.Label("Iks", "pl"), pt.Label("X", "en"))},
		Subtypes:    []model.SubtypeEdge{{Derived: "C", Base: "A"}, {Derived: "B", Base: "A"}},
	}

	ab := New([]Source{{Label: "a", Provider: a}, {Label: "b", Provider: b}})
	ba := New([]Source{{Label: "b", Provider: b}, {Label: "a", Provider: a}})

	params := provider.ElementsParams{Elements: []model.ElementIri{"x"}}
	x1, err := ab.Elements(ctx, params)
	require.NoError(t, err)
	x2, err := ba.Elements(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, []model.ElementTypeIri{"A", "B", "C"}, x1["x"].Types)
	assert.Equal(t, x1["x"].Types, x2["x"].Types)
	assert.ElementsMatch(t, x1["x"].Label, x2["x"].Label)
	assert.Len(t, x1["x"].Label, 2)

	g1, err := ab.KnownElementTypes(ctx)
	require.NoError(t, err)
	g2, err := ba.KnownElementTypes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, g1.Subtypes, g2.Subtypes)
	assert.Len(t, g1.Subtypes, 2)
}

func TestLinkStatsCommutativity(t *testing.T) {
	ctx := context.Background()
	a := &pt.Fixture{Stats: map[model.ElementIri][]model.LinkCount{
		"alice": {{ID: "knows", InCount: 1, OutCount: 2}, {ID: "worksFor", OutCount: 1}},
	}}
	b := &pt.Fixture{Stats: map[model.ElementIri][]model.LinkCount{
		"alice": {{ID: "likes", InCount: 3, Inexact: true}, {ID: "knows", InCount: 4}},
	}}

	params := provider.ConnectedLinkStatsParams{Element: "alice"}
	ab, err := New([]Source{{Label: "a", Provider: a}, {Label: "b", Provider: b}}).ConnectedLinkStats(ctx, params)
	require.NoError(t, err)
	ba, err := New([]Source{{Label: "b", Provider: b}, {Label: "a", Provider: a}}).ConnectedLinkStats(ctx, params)
	require.NoError(t, err)

	byID := cmpopts.SortSlices(func(x, y model.LinkCount) bool { return x.ID < y.ID })
	if diff := cmp.Diff(ab, ba, byID); diff != "" {
		t.Errorf("merge depends on source order (-ab +ba):\n%s", diff)
	}

	want := []model.LinkCount{
		{ID: "knows", InCount: 5, OutCount: 2},
		{ID: "likes", InCount: 3, Inexact: true},
		{ID: "worksFor", OutCount: 1},
	}
	if diff := cmp.Diff(want, ab, byID); diff != "" {
		t.Errorf("merged stats mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkIdentity(t *testing.T) {
	a := &pt.Fixture{LinkList: []model.Link{
		{SourceID: "s", TargetID: "t", LinkTypeID: "p", Properties: model.PropertyMap{"since": {rdf.NewLiteral("2020")}}},
	}}
	b := &pt.Fixture{LinkList: []model.Link{
		{SourceID: "s", TargetID: "t", LinkTypeID: "p", Properties: model.PropertyMap{
			"since": {rdf.NewLiteral("2020"), rdf.NewLiteral("2021")},
			"note":  {rdf.NewLiteral("n")},
		}},
		{SourceID: "t", TargetID: "s", LinkTypeID: "p"},
	}}

	links, err := New([]Source{{Label: "a", Provider: a}, {Label: "b", Provider: b}}).
		Links(context.Background(), provider.LinksParams{Elements: []model.ElementIri{"s"}})
	require.NoError(t, err)
	require.Len(t, links, 2)

	merged := links[0]
	assert.Equal(t, model.LinkKey{Source: "s", Target: "t", LinkType: "p"}, merged.Key())
	assert.Len(t, merged.Properties, 2)
	assert.Len(t, merged.Properties["since"], 2)
}

func TestProvenance(t *testing.T) {
	fixture := sampleFixture()
	p := New([]Source{{Label: "wikidata", Provider: fixture}, {Label: "local", Provider: &pt.Fixture{}}})

	els, err := p.Elements(context.Background(), provider.ElementsParams{Elements: []model.ElementIri{"alice"}})
	require.NoError(t, err)

	sources := els["alice"].Properties[vocabulary.SourceProviderProperty]
	require.Len(t, sources, 1)
	assert.True(t, rdf.EqualTerms(rdf.NewLiteral("wikidata"), sources[0]))
	assert.Equal(t, "http://ex/alice.png", els["alice"].Image)
}

func TestLookupMerge(t *testing.T) {
	a := &pt.Fixture{LookupItems: []model.LookupItem{
		{Element: pt.Element("x", nil), InLinks: []model.LinkTypeIri{"p"}},
		{Element: pt.Element("y", nil)},
	}}
	b := &pt.Fixture{LookupItems: []model.LookupItem{
		{Element: pt.Element("x", nil), InLinks: []model.LinkTypeIri{"q", "p"}, OutLinks: []model.LinkTypeIri{"r"}},
	}}
	p := New([]Source{{Label: "a", Provider: a}, {Label: "b", Provider: b}})

	items, err := p.Lookup(context.Background(), provider.LookupParams{Limit: provider.NoLimit})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.ElementIri("x"), items[0].Element.ID)
	assert.Equal(t, []model.LinkTypeIri{"p", "q"}, items[0].InLinks)
	assert.Equal(t, []model.LinkTypeIri{"r"}, items[0].OutLinks)

	limited, err := p.Lookup(context.Background(), provider.LookupParams{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEmptyComposite(t *testing.T) {
	p := New(nil)
	ctx := context.Background()

	graph, err := p.KnownElementTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, graph.ElementTypes)
	assert.Empty(t, graph.Subtypes)

	els, err := p.Elements(ctx, provider.ElementsParams{Elements: []model.ElementIri{"x"}})
	require.NoError(t, err)
	assert.Empty(t, els)

	links, err := p.Links(ctx, provider.LinksParams{Elements: []model.ElementIri{"x"}})
	require.NoError(t, err)
	assert.NotNil(t, links)
}

func TestFailFast(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	blocking := pt.NewBlocking(1)
	p := New([]Source{
		{Label: "ok", Provider: sampleFixture()},
		{Label: "slow", Provider: blocking},
		{Label: "broken", Provider: pt.Failing{Name: "broken", Err: cause}},
	})

	_, err := p.Elements(context.Background(), provider.ElementsParams{Elements: []model.ElementIri{"alice"}})
	require.Error(t, err)
	assert.True(t, errors.IsBackendError(err))
	assert.False(t, errors.IsCancelled(err))
	assert.ErrorIs(t, err, cause)
}

func TestBackendErrorCarriesSourceLabel(t *testing.T) {
	p := New([]Source{{Label: "remote", Provider: plainErrorProvider{}}})

	_, err := p.KnownLinkTypes(context.Background())
	require.Error(t, err)
	var be *errors.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "remote", be.Provider)
	assert.Equal(t, string(provider.OpKnownLinkTypes), be.Operation)
}

type plainErrorProvider struct{ provider.Empty }

func (plainErrorProvider) KnownLinkTypes(context.Context) ([]model.LinkType, error) {
	return nil, fmt.Errorf("malformed response")
}

func TestCancellation(t *testing.T) {
	blockingA := pt.NewBlocking(1)
	blockingB := pt.NewBlocking(1)
	recorder := pt.NewRecorder(blockingB)
	p := New([]Source{{Label: "a", Provider: blockingA}, {Label: "b", Provider: recorder}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Lookup(ctx, provider.LookupParams{Text: "alice"})
		done <- err
	}()

	<-blockingA.Started
	<-blockingB.Started
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.IsCancelled(err))
		assert.False(t, errors.IsBackendError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("composite did not return after cancellation")
	}
	assert.Len(t, recorder.CallsTo(provider.OpLookup), 1, "the same context reaches every branch")
}

func TestCancelledCachedBranchesWriteNothing(t *testing.T) {
	type branch struct {
		blocking *pt.Blocking
		backend  kv.Backend
		cache    *cached.Provider
	}
	branches := make([]branch, 2)
	sources := make([]Source, 0, len(branches))
	for i := range branches {
		backend, err := kvmemory.New()
		require.NoError(t, err)
		blocking := pt.NewBlocking(1)
		cache, err := cached.New(context.Background(), blocking, backend)
		require.NoError(t, err)
		branches[i] = branch{blocking: blocking, backend: backend, cache: cache}
		sources = append(sources, Source{Label: fmt.Sprintf("cached-%d", i), Provider: cache})
	}
	p := New(sources)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Elements(ctx, provider.ElementsParams{Elements: []model.ElementIri{"alice", "bob"}})
		done <- err
	}()

	for _, b := range branches {
		<-b.blocking.Started
	}
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.IsCancelled(err))
		assert.False(t, errors.IsBackendError(err))
	case <-time.After(2 * time.Second):
		t.Fatal("composite did not return after cancellation")
	}

	for i, b := range branches {
		assert.Zero(t, b.cache.Stats().Writes, "branch %d", i)
		store, err := b.backend.Open(context.Background(), "elements")
		require.NoError(t, err)
		keys, err := store.Keys(context.Background())
		require.NoError(t, err)
		assert.Empty(t, keys, "branch %d", i)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	recorder := pt.NewRecorder(sampleFixture())
	p := New([]Source{{Label: "a", Provider: recorder}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Elements(ctx, provider.ElementsParams{Elements: []model.ElementIri{"alice"}})
	assert.True(t, errors.IsCancelled(err))
	assert.Empty(t, recorder.Calls(), "no branch runs once the context is done")
}

func TestMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p := New([]Source{
		{Label: "ok", Provider: sampleFixture()},
		{Label: "broken", Provider: pt.Failing{Name: "broken", Err: fmt.Errorf("boom")}},
	}, WithMetrics(registry))

	_, err := p.KnownLinkTypes(context.Background())
	require.Error(t, err)

	errorsTotal := registry.CoreMetrics().CompositeBranchErrors.WithLabelValues("broken", string(provider.OpKnownLinkTypes))
	assert.Equal(t, 1.0, testutil.ToFloat64(errorsTotal))
}
