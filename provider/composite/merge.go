package composite

import (
	"slices"

	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/hashmap"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

// Merging works on private mutable builders that are frozen into fresh entity
// values at the end of each pass. Entities received from sources are never
// modified.

// labelSet accumulates labels in first-seen order without structural
// duplicates.
type labelSet struct {
	seen   *hashmap.Set[rdf.Literal]
	values []rdf.Literal
}

func newLabelSet() *labelSet {
	return &labelSet{seen: hashmap.NewSet[rdf.Literal](rdf.LiteralHasher{})}
}

func (s *labelSet) add(labels []rdf.Literal) {
	for _, l := range labels {
		if s.seen.Add(l) {
			s.values = append(s.values, l)
		}
	}
}

func (s *labelSet) freeze() []rdf.Literal {
	return slices.Clone(s.values)
}

// counter sums optional counts. It stays nil until a known count is added.
type counter struct {
	total *int
}

func (c *counter) add(n *int) {
	if n == nil {
		return
	}
	if c.total == nil {
		c.total = new(int)
	}
	*c.total += *n
}

func (c *counter) freeze() *int {
	if c.total == nil {
		return nil
	}
	return model.IntPtr(*c.total)
}

// propertyBuilder unions property values per key in first-seen order.
type propertyBuilder struct {
	keys   []model.PropertyTypeIri
	values map[model.PropertyTypeIri]*termList
}

type termList struct {
	seen   *hashmap.Set[rdf.Term]
	values []rdf.Term
}

func newPropertyBuilder() *propertyBuilder {
	return &propertyBuilder{values: make(map[model.PropertyTypeIri]*termList)}
}

func (b *propertyBuilder) addValues(key model.PropertyTypeIri, values []rdf.Term) {
	list, ok := b.values[key]
	if !ok {
		list = &termList{seen: hashmap.NewSet[rdf.Term](rdf.TermHasher{})}
		b.values[key] = list
		b.keys = append(b.keys, key)
	}
	for _, v := range values {
		if list.seen.Add(v) {
			list.values = append(list.values, v)
		}
	}
}

func (b *propertyBuilder) add(props model.PropertyMap) {
	// Map iteration order is random; sort keys so first-seen order is stable.
	keys := make([]model.PropertyTypeIri, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.addValues(k, props[k])
	}
}

func (b *propertyBuilder) freeze() model.PropertyMap {
	out := make(model.PropertyMap, len(b.keys))
	for _, k := range b.keys {
		out[k] = slices.Clone(b.values[k].values)
	}
	return out
}

// ordered keeps builders by key in first-seen order.
type ordered[K comparable, B any] struct {
	keys  []K
	items map[K]B
}

func newOrdered[K comparable, B any]() *ordered[K, B] {
	return &ordered[K, B]{items: make(map[K]B)}
}

func (o *ordered[K, B]) getOrCreate(key K, create func() B) B {
	if b, ok := o.items[key]; ok {
		return b
	}
	b := create()
	o.items[key] = b
	o.keys = append(o.keys, key)
	return b
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type elementTypeBuilder struct {
	id     model.ElementTypeIri
	labels *labelSet
	count  counter
}

func (b *elementTypeBuilder) add(t model.ElementType) {
	b.labels.add(t.Label)
	b.count.add(t.Count)
}

func (b *elementTypeBuilder) freeze() model.ElementType {
	return model.ElementType{ID: b.id, Label: b.labels.freeze(), Count: b.count.freeze()}
}

type elementTypeMerger struct {
	*ordered[model.ElementTypeIri, *elementTypeBuilder]
}

func newElementTypeMerger() elementTypeMerger {
	return elementTypeMerger{newOrdered[model.ElementTypeIri, *elementTypeBuilder]()}
}

func (m elementTypeMerger) add(t model.ElementType) {
	m.getOrCreate(t.ID, func() *elementTypeBuilder {
		return &elementTypeBuilder{id: t.ID, labels: newLabelSet()}
	}).add(t)
}

func (m elementTypeMerger) list() []model.ElementType {
	out := make([]model.ElementType, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k].freeze())
	}
	return out
}

// mergeElementTypeGraphs unions type nodes and subtype edges across sources.
func mergeElementTypeGraphs(graphs []model.ElementTypeGraph) model.ElementTypeGraph {
	types := newElementTypeMerger()
	edges := hashmap.NewSet[model.SubtypeEdge](model.SubtypeEdgeHasher{})
	subtypes := []model.SubtypeEdge{}
	for _, g := range graphs {
		for _, t := range g.ElementTypes {
			types.add(t)
		}
		for _, e := range g.Subtypes {
			if edges.Add(e) {
				subtypes = append(subtypes, e)
			}
		}
	}
	return model.ElementTypeGraph{ElementTypes: types.list(), Subtypes: subtypes}
}

func mergeElementTypes(results []map[model.ElementTypeIri]model.ElementType) map[model.ElementTypeIri]model.ElementType {
	types := newElementTypeMerger()
	for _, r := range results {
		for _, k := range sortedKeys(r) {
			types.add(r[k])
		}
	}
	out := make(map[model.ElementTypeIri]model.ElementType, len(types.keys))
	for _, t := range types.list() {
		out[t.ID] = t
	}
	return out
}

type linkTypeBuilder struct {
	id     model.LinkTypeIri
	labels *labelSet
	count  counter
}

func (b *linkTypeBuilder) freeze() model.LinkType {
	return model.LinkType{ID: b.id, Label: b.labels.freeze(), Count: b.count.freeze()}
}

func mergeLinkTypeList(results [][]model.LinkType) []model.LinkType {
	merged := newOrdered[model.LinkTypeIri, *linkTypeBuilder]()
	for _, r := range results {
		for _, t := range r {
			b := merged.getOrCreate(t.ID, func() *linkTypeBuilder {
				return &linkTypeBuilder{id: t.ID, labels: newLabelSet()}
			})
			b.labels.add(t.Label)
			b.count.add(t.Count)
		}
	}
	out := make([]model.LinkType, 0, len(merged.keys))
	for _, k := range merged.keys {
		out = append(out, merged.items[k].freeze())
	}
	return out
}

func mergeLinkTypes(results []map[model.LinkTypeIri]model.LinkType) map[model.LinkTypeIri]model.LinkType {
	lists := make([][]model.LinkType, len(results))
	for i, r := range results {
		for _, k := range sortedKeys(r) {
			lists[i] = append(lists[i], r[k])
		}
	}
	out := make(map[model.LinkTypeIri]model.LinkType)
	for _, t := range mergeLinkTypeList(lists) {
		out[t.ID] = t
	}
	return out
}

func mergePropertyTypes(results []map[model.PropertyTypeIri]model.PropertyType) map[model.PropertyTypeIri]model.PropertyType {
	labels := newOrdered[model.PropertyTypeIri, *labelSet]()
	for _, r := range results {
		for _, k := range sortedKeys(r) {
			labels.getOrCreate(k, newLabelSet).add(r[k].Label)
		}
	}
	out := make(map[model.PropertyTypeIri]model.PropertyType, len(labels.keys))
	for _, k := range labels.keys {
		out[k] = model.PropertyType{ID: k, Label: labels.items[k].freeze()}
	}
	return out
}

type elementBuilder struct {
	id      model.ElementIri
	types   []model.ElementTypeIri
	labels  *labelSet
	image   string
	props   *propertyBuilder
	sources []rdf.Term
}

func newElementBuilder(id model.ElementIri) *elementBuilder {
	return &elementBuilder{id: id, labels: newLabelSet(), props: newPropertyBuilder()}
}

func (b *elementBuilder) add(e model.Element, source string) {
	b.types = append(b.types, e.Types...)
	b.labels.add(e.Label)
	if b.image == "" {
		b.image = e.Image
	}
	b.props.add(e.Properties)
	b.sources = append(b.sources, rdf.NewLiteral(source))
}

func (b *elementBuilder) freeze() model.Element {
	b.props.addValues(vocabulary.SourceProviderProperty, b.sources)
	return model.Element{
		ID:         b.id,
		Types:      model.NormalizeTypes(b.types),
		Label:      b.labels.freeze(),
		Image:      b.image,
		Properties: b.props.freeze(),
	}
}

type elementMerger struct {
	*ordered[model.ElementIri, *elementBuilder]
}

func newElementMerger() elementMerger {
	return elementMerger{newOrdered[model.ElementIri, *elementBuilder]()}
}

func (m elementMerger) add(e model.Element, source string) {
	m.getOrCreate(e.ID, func() *elementBuilder { return newElementBuilder(e.ID) }).add(e, source)
}

func mergeElements(results []map[model.ElementIri]model.Element, sources []string) map[model.ElementIri]model.Element {
	merged := newElementMerger()
	for i, r := range results {
		for _, k := range sortedKeys(r) {
			merged.add(r[k], sources[i])
		}
	}
	out := make(map[model.ElementIri]model.Element, len(merged.keys))
	for _, k := range merged.keys {
		out[k] = merged.items[k].freeze()
	}
	return out
}

type linkBuilder struct {
	first model.Link
	props *propertyBuilder
}

// mergeLinks removes duplicates by (source, target, link type). The first
// instance seen supplies the identity; property maps are unioned.
func mergeLinks(results [][]model.Link) []model.Link {
	index := hashmap.NewMap[model.LinkKey, *linkBuilder](model.LinkKeyHasher{})
	var order []*linkBuilder
	for _, r := range results {
		for _, l := range r {
			b, ok := index.Get(l.Key())
			if !ok {
				b = &linkBuilder{first: l, props: newPropertyBuilder()}
				index.Set(l.Key(), b)
				order = append(order, b)
			}
			b.props.add(l.Properties)
		}
	}
	out := make([]model.Link, 0, len(order))
	for _, b := range order {
		out = append(out, model.Link{
			SourceID:   b.first.SourceID,
			TargetID:   b.first.TargetID,
			LinkTypeID: b.first.LinkTypeID,
			Properties: b.props.freeze(),
		})
	}
	return out
}

// mergeLinkCounts sums in and out counts per link type. A merged count is
// inexact when any contributing count is.
func mergeLinkCounts(results [][]model.LinkCount) []model.LinkCount {
	merged := newOrdered[model.LinkTypeIri, *model.LinkCount]()
	for _, r := range results {
		for _, c := range r {
			b := merged.getOrCreate(c.ID, func() *model.LinkCount { return &model.LinkCount{ID: c.ID} })
			b.InCount += c.InCount
			b.OutCount += c.OutCount
			b.Inexact = b.Inexact || c.Inexact
		}
	}
	out := make([]model.LinkCount, 0, len(merged.keys))
	for _, k := range merged.keys {
		out = append(out, *merged.items[k])
	}
	return out
}

type lookupBuilder struct {
	element *elementBuilder
	in      []model.LinkTypeIri
	out     []model.LinkTypeIri
}

func mergeLookupItems(results [][]model.LookupItem, sources []string, limit int) []model.LookupItem {
	merged := newOrdered[model.ElementIri, *lookupBuilder]()
	for i, r := range results {
		for _, item := range r {
			b := merged.getOrCreate(item.Element.ID, func() *lookupBuilder {
				return &lookupBuilder{element: newElementBuilder(item.Element.ID)}
			})
			b.element.add(item.Element, sources[i])
			b.in = append(b.in, item.InLinks...)
			b.out = append(b.out, item.OutLinks...)
		}
	}
	keys := merged.keys
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]model.LookupItem, 0, len(keys))
	for _, k := range keys {
		b := merged.items[k]
		out = append(out, model.LookupItem{
			Element:  b.element.freeze(),
			InLinks:  sortedUnique(b.in),
			OutLinks: sortedUnique(b.out),
		})
	}
	return out
}

func sortedUnique[T ~string](values []T) []T {
	out := slices.Clone(values)
	if out == nil {
		out = []T{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
