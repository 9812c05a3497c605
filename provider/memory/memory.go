// Package memory is the reference DataProvider: it answers every operation by
// pattern matching over an indexed in-memory quad Dataset.
//
// Element types are the objects of the type predicate plus every resource
// declared an rdfs:Class or owl:Class. Subtype edges come from the subtype
// predicate. A quad whose object is a resource is a link unless its predicate
// is the type, image or a label predicate; a quad whose object is a literal is
// an element property unless its predicate is a label or the image predicate.
//
// Every operation except Links reads the subject, object and predicate
// indexes. Links is a full scan of the dataset.
package memory

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/pkg/hashmap"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

// DefaultLookupLimit caps lookups that do not set a limit.
const DefaultLookupLimit = 100

// checkInterval is how many items a loop processes between context checks.
const checkInterval = 256

// Config names the predicates the provider interprets.
type Config struct {
	TypePredicate    string   `json:"type_predicate,omitempty" yaml:"type_predicate,omitempty"`
	LabelPredicates  []string `json:"label_predicates,omitempty" yaml:"label_predicates,omitempty"`
	ImagePredicate   string   `json:"image_predicate,omitempty" yaml:"image_predicate,omitempty"`
	SubtypePredicate string   `json:"subtype_predicate,omitempty" yaml:"subtype_predicate,omitempty"`
	LookupLimit      int      `json:"lookup_limit,omitempty" yaml:"lookup_limit,omitempty"`
}

// DefaultConfig returns rdf:type, the default label predicates,
// schema:thumbnailUrl and rdfs:subClassOf with a lookup limit of 100.
func DefaultConfig() Config {
	return Config{
		TypePredicate:    vocabulary.RdfType,
		LabelPredicates:  vocabulary.DefaultLabelPredicates(),
		ImagePredicate:   vocabulary.SchemaThumbnailURL,
		SubtypePredicate: vocabulary.RdfsSubClassOf,
		LookupLimit:      DefaultLookupLimit,
	}
}

// withDefaults fills every unset field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TypePredicate == "" {
		c.TypePredicate = def.TypePredicate
	}
	if len(c.LabelPredicates) == 0 {
		c.LabelPredicates = def.LabelPredicates
	}
	if c.ImagePredicate == "" {
		c.ImagePredicate = def.ImagePredicate
	}
	if c.SubtypePredicate == "" {
		c.SubtypePredicate = def.SubtypePredicate
	}
	if c.LookupLimit == 0 {
		c.LookupLimit = def.LookupLimit
	}
	return c
}

// Provider answers DataProvider operations from a Dataset.
type Provider struct {
	data   *Dataset
	logger *slog.Logger

	typePred    rdf.NamedNode
	labelPreds  []rdf.NamedNode
	imagePred   rdf.NamedNode
	subtypePred rdf.NamedNode
	limit       int
}

var _ provider.DataProvider = (*Provider)(nil)

// New creates a provider over data. Unset config fields take their defaults;
// a nil logger uses slog.Default().
func New(data *Dataset, config Config, logger *slog.Logger) *Provider {
	if data == nil {
		data = NewDataset()
	}
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()

	labels := make([]rdf.NamedNode, len(config.LabelPredicates))
	for i, l := range config.LabelPredicates {
		labels[i] = rdf.NamedNode(l)
	}
	p := &Provider{
		data:        data,
		logger:      logger.With("component", "memory"),
		typePred:    rdf.NamedNode(config.TypePredicate),
		labelPreds:  labels,
		imagePred:   rdf.NamedNode(config.ImagePredicate),
		subtypePred: rdf.NamedNode(config.SubtypePredicate),
		limit:       config.LookupLimit,
	}
	p.logger.Debug("Memory provider ready", "quads", data.Len())
	return p
}

// Dataset returns the underlying dataset.
func (p *Provider) Dataset() *Dataset {
	return p.data
}

// AddQuads inserts quads into the underlying dataset.
func (p *Provider) AddQuads(quads ...rdf.Quad) (int, error) {
	return p.data.Add(quads...)
}

func (p *Provider) isLabel(pred rdf.NamedNode) bool {
	return slices.Contains(p.labelPreds, pred)
}

// isLink reports whether q connects two elements.
func (p *Provider) isLink(q rdf.Quad) bool {
	if !isResource(q.Object) {
		return false
	}
	pred := q.Predicate.(rdf.NamedNode)
	return pred != p.typePred && pred != p.imagePred && !p.isLabel(pred)
}

func (p *Provider) labels(subject rdf.Term) []rdf.Literal {
	var out []rdf.Literal
	for _, pred := range p.labelPreds {
		for _, q := range p.data.BySubject(subject, pred) {
			if l, ok := q.Object.(rdf.Literal); ok {
				out = append(out, l)
			}
		}
	}
	return model.NormalizeLabels(out)
}

// instances returns the distinct subjects typed with class.
func (p *Provider) instances(class rdf.Term) []model.ElementIri {
	var out []model.ElementIri
	for _, q := range p.data.ByObject(class, p.typePred) {
		if id, err := model.EncodeTerm[model.ElementIri](q.Subject); err == nil {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func checkCtx(ctx context.Context, i int) error {
	if i%checkInterval == 0 {
		return errors.FromContext(ctx)
	}
	return nil
}

func (p *Provider) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	if err := errors.FromContext(ctx); err != nil {
		return model.ElementTypeGraph{}, err
	}

	ids := make(map[model.ElementTypeIri]rdf.Term)
	addType := func(t rdf.Term) {
		if id, err := model.EncodeTerm[model.ElementTypeIri](t); err == nil {
			ids[id] = t
		}
	}
	for i, q := range p.data.ByPredicate(p.typePred) {
		if err := checkCtx(ctx, i); err != nil {
			return model.ElementTypeGraph{}, err
		}
		if obj, ok := q.Object.(rdf.NamedNode); ok && (obj == vocabulary.RdfsClass || obj == vocabulary.OwlClass) {
			addType(q.Subject)
		}
		if isResource(q.Object) {
			addType(q.Object)
		}
	}

	edges := hashmap.NewSet[model.SubtypeEdge](model.SubtypeEdgeHasher{})
	subtypes := []model.SubtypeEdge{}
	for _, q := range p.data.ByPredicate(p.subtypePred) {
		derived, err1 := model.EncodeTerm[model.ElementTypeIri](q.Subject)
		base, err2 := model.EncodeTerm[model.ElementTypeIri](q.Object)
		if err1 != nil || err2 != nil {
			continue
		}
		ids[derived] = q.Subject
		ids[base] = q.Object
		edge := model.SubtypeEdge{Derived: derived, Base: base}
		if edges.Add(edge) {
			subtypes = append(subtypes, edge)
		}
	}
	slices.SortFunc(subtypes, func(a, b model.SubtypeEdge) int {
		return cmp.Or(cmp.Compare(a.Derived, b.Derived), cmp.Compare(a.Base, b.Base))
	})

	types := make([]model.ElementType, 0, len(ids))
	i := 0
	for id, term := range ids {
		if err := checkCtx(ctx, i); err != nil {
			return model.ElementTypeGraph{}, err
		}
		i++
		types = append(types, p.elementType(id, term))
	}
	slices.SortFunc(types, func(a, b model.ElementType) int { return cmp.Compare(a.ID, b.ID) })

	return model.ElementTypeGraph{ElementTypes: types, Subtypes: subtypes}, nil
}

func (p *Provider) elementType(id model.ElementTypeIri, term rdf.Term) model.ElementType {
	return model.ElementType{
		ID:    id,
		Label: p.labels(term),
		Count: model.IntPtr(len(p.instances(term))),
	}
}

func (p *Provider) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := []model.LinkType{}
	for i, pred := range p.data.Predicates() {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		if count := p.linkCount(pred); count > 0 {
			out = append(out, model.LinkType{
				ID:    model.LinkTypeIri(pred),
				Label: p.labels(pred),
				Count: model.IntPtr(count),
			})
		}
	}
	slices.SortFunc(out, func(a, b model.LinkType) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// linkCount counts the distinct links using pred.
func (p *Provider) linkCount(pred rdf.NamedNode) int {
	keys := hashmap.NewSet[model.LinkKey](model.LinkKeyHasher{})
	for _, q := range p.data.ByPredicate(pred) {
		if link, ok := p.toLink(q); ok {
			keys.Add(link.Key())
		}
	}
	return keys.Len()
}

func (p *Provider) toLink(q rdf.Quad) (model.Link, bool) {
	if !p.isLink(q) {
		return model.Link{}, false
	}
	source, err := model.EncodeTerm[model.ElementIri](q.Subject)
	if err != nil {
		return model.Link{}, false
	}
	target, err := model.EncodeTerm[model.ElementIri](q.Object)
	if err != nil {
		return model.Link{}, false
	}
	return model.Link{
		SourceID:   source,
		TargetID:   target,
		LinkTypeID: model.LinkTypeIri(q.Predicate.(rdf.NamedNode)),
		Properties: model.PropertyMap{},
	}, true
}

func (p *Provider) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.ElementTypeIri]model.ElementType, len(params.ClassIDs))
	for i, id := range params.ClassIDs {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		if _, done := out[id]; done {
			continue
		}
		term := model.DecodeTerm(id)
		known := p.data.HasSubject(term) ||
			len(p.data.ByObject(term, p.typePred)) > 0 ||
			len(p.data.ByObject(term, p.subtypePred)) > 0
		if known {
			out[id] = p.elementType(id, term)
		}
	}
	return out, nil
}

func (p *Provider) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.PropertyTypeIri]model.PropertyType, len(params.PropertyIDs))
	for i, id := range params.PropertyIDs {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		term := model.DecodeTerm(id)
		pred, _ := term.(rdf.NamedNode)
		if p.data.HasPredicate(pred) || p.data.HasSubject(term) {
			out[id] = model.PropertyType{ID: id, Label: p.labels(term)}
		}
	}
	return out, nil
}

func (p *Provider) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.LinkTypeIri]model.LinkType, len(params.LinkTypeIDs))
	for i, id := range params.LinkTypeIDs {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		term := model.DecodeTerm(id)
		pred, _ := term.(rdf.NamedNode)
		if !p.data.HasPredicate(pred) && !p.data.HasSubject(term) {
			continue
		}
		out[id] = model.LinkType{
			ID:    id,
			Label: p.labels(term),
			Count: model.IntPtr(p.linkCount(pred)),
		}
	}
	return out, nil
}

func (p *Provider) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	out := make(map[model.ElementIri]model.Element, len(params.Elements))
	for i, id := range params.Elements {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		if _, done := out[id]; done {
			continue
		}
		if el, ok := p.element(id); ok {
			out[id] = el
		}
	}
	return out, nil
}

// element builds the element for id, or reports false when no quad mentions it.
func (p *Provider) element(id model.ElementIri) (model.Element, bool) {
	term := model.DecodeTerm(id)
	if !p.data.HasSubject(term) && !p.data.HasObject(term) {
		return model.Element{}, false
	}

	el := model.Element{
		ID:         id,
		Types:      []model.ElementTypeIri{},
		Label:      p.labels(term),
		Properties: model.PropertyMap{},
	}
	for _, q := range p.data.BySubject(term, p.typePred) {
		if t, err := model.EncodeTerm[model.ElementTypeIri](q.Object); err == nil {
			el.Types = append(el.Types, t)
		}
	}
	for _, q := range p.data.BySubject(term, p.imagePred) {
		if v := rdf.TermValue(q.Object); v != "" {
			el.Image = v
			break
		}
	}
	for _, q := range p.data.BySubject(term, "") {
		pred := q.Predicate.(rdf.NamedNode)
		if _, ok := q.Object.(rdf.Literal); !ok || pred == p.imagePred || p.isLabel(pred) {
			continue
		}
		key := model.PropertyTypeIri(pred)
		el.Properties[key] = append(el.Properties[key], q.Object)
	}
	return el.Normalize(), true
}

// Links scans the whole dataset.
func (p *Provider) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	if len(params.Elements) == 0 {
		return []model.Link{}, nil
	}

	elements := make(map[model.ElementIri]struct{}, len(params.Elements))
	for _, id := range params.Elements {
		elements[id] = struct{}{}
	}
	linkTypes := make(map[model.LinkTypeIri]struct{}, len(params.LinkTypes))
	for _, id := range params.LinkTypes {
		linkTypes[id] = struct{}{}
	}

	seen := hashmap.NewSet[model.LinkKey](model.LinkKeyHasher{})
	out := []model.Link{}
	var err error
	i := 0
	p.data.Scan(func(q rdf.Quad) bool {
		if err = checkCtx(ctx, i); err != nil {
			return false
		}
		i++
		link, ok := p.toLink(q)
		if !ok {
			return true
		}
		_, src := elements[link.SourceID]
		_, dst := elements[link.TargetID]
		if !src && !dst {
			return true
		}
		if len(linkTypes) > 0 {
			if _, ok := linkTypes[link.LinkTypeID]; !ok {
				return true
			}
		}
		if seen.Add(link.Key()) {
			out = append(out, link)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b model.Link) int {
		return cmp.Or(
			cmp.Compare(a.SourceID, b.SourceID),
			cmp.Compare(a.LinkTypeID, b.LinkTypeID),
			cmp.Compare(a.TargetID, b.TargetID),
		)
	})
	return out, nil
}

func (p *Provider) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	term := model.DecodeTerm(params.Element)
	counts := make(map[model.LinkTypeIri]*model.LinkCount)
	countAll := func(quads []rdf.Quad, out bool) {
		seen := hashmap.NewSet[model.LinkKey](model.LinkKeyHasher{})
		for _, q := range quads {
			link, ok := p.toLink(q)
			if !ok || !seen.Add(link.Key()) {
				continue
			}
			c, ok := counts[link.LinkTypeID]
			if !ok {
				c = &model.LinkCount{ID: link.LinkTypeID}
				counts[link.LinkTypeID] = c
			}
			if out {
				c.OutCount++
			} else {
				c.InCount++
			}
		}
	}
	countAll(p.data.BySubject(term, ""), true)
	countAll(p.data.ByObject(term, ""), false)

	out := make([]model.LinkCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b model.LinkCount) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Lookup selects candidates from the reference element's neighbours when one
// is given, otherwise from the instances of ElementType, otherwise from every
// subject. Text matches case-insensitively against ids and labels. Results are
// ordered by id.
//
// For a result element, InLinks holds the link types of links from the
// reference element to it and OutLinks those of links from it to the
// reference element.
func (p *Provider) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	inLinks := make(map[model.ElementIri][]model.LinkTypeIri)
	outLinks := make(map[model.ElementIri][]model.LinkTypeIri)
	var candidates []model.ElementIri

	switch {
	case params.RefElement != "":
		ref := model.DecodeTerm(params.RefElement)
		var pred rdf.NamedNode
		if params.RefLinkType != "" {
			pred = rdf.NamedNode(params.RefLinkType)
		}
		if params.Direction != provider.DirectionIn {
			for _, q := range p.data.BySubject(ref, pred) {
				if link, ok := p.toLink(q); ok {
					inLinks[link.TargetID] = append(inLinks[link.TargetID], link.LinkTypeID)
					candidates = append(candidates, link.TargetID)
				}
			}
		}
		if params.Direction != provider.DirectionOut {
			for _, q := range p.data.ByObject(ref, pred) {
				if link, ok := p.toLink(q); ok {
					outLinks[link.SourceID] = append(outLinks[link.SourceID], link.LinkTypeID)
					candidates = append(candidates, link.SourceID)
				}
			}
		}
	case params.ElementType != "":
		candidates = p.instances(model.DecodeTerm(params.ElementType))
	default:
		for _, s := range p.data.Subjects() {
			if id, err := model.EncodeTerm[model.ElementIri](s); err == nil {
				candidates = append(candidates, id)
			}
		}
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	text := strings.ToLower(strings.TrimSpace(params.Text))
	limit := params.EffectiveLimit(p.limit)
	items := []model.LookupItem{}
	for i, id := range candidates {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		el, ok := p.element(id)
		if !ok {
			continue
		}
		if params.ElementType != "" && !slices.Contains(el.Types, params.ElementType) {
			continue
		}
		if text != "" && !matchesText(el, text) {
			continue
		}
		items = append(items, model.LookupItem{
			Element:  el,
			InLinks:  sortedLinkTypes(inLinks[id]),
			OutLinks: sortedLinkTypes(outLinks[id]),
		})
	}
	return items, nil
}

func matchesText(el model.Element, text string) bool {
	if strings.Contains(strings.ToLower(string(el.ID)), text) {
		return true
	}
	for _, l := range el.Label {
		if strings.Contains(strings.ToLower(l.Value), text) {
			return true
		}
	}
	return false
}

func sortedLinkTypes(ids []model.LinkTypeIri) []model.LinkTypeIri {
	out := append([]model.LinkTypeIri{}, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
