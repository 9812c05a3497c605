package model

import (
	"encoding/json"
	"slices"

	"github.com/reactodia/reactodia-workspace-sub004/pkg/hashmap"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

// PropertyMap maps a property type to its ordered, de-duplicated values. Values
// are named nodes or literals.
type PropertyMap map[PropertyTypeIri][]rdf.Term

// MarshalJSON encodes values in their structural form.
func (p PropertyMap) MarshalJSON() ([]byte, error) {
	plain := make(map[PropertyTypeIri][]rdf.PlainTerm, len(p))
	for k, values := range p {
		plain[k] = rdf.MarshalTerms(values)
	}
	return json.Marshal(plain)
}

// UnmarshalJSON rehydrates structural values into terms.
func (p *PropertyMap) UnmarshalJSON(data []byte) error {
	var plain map[PropertyTypeIri][]rdf.PlainTerm
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	out := make(PropertyMap, len(plain))
	for k, values := range plain {
		terms, err := rdf.UnmarshalTerms(values)
		if err != nil {
			return err
		}
		out[k] = terms
	}
	*p = out
	return nil
}

// Clone returns a copy that shares no slices with p.
func (p PropertyMap) Clone() PropertyMap {
	if p == nil {
		return PropertyMap{}
	}
	out := make(PropertyMap, len(p))
	for k, values := range p {
		out[k] = slices.Clone(values)
	}
	return out
}

// NormalizeLabels removes structurally equal duplicates, keeping first
// occurrences in order. Labels that differ only by language are all kept.
func NormalizeLabels(labels []rdf.Literal) []rdf.Literal {
	seen := hashmap.NewSet[rdf.Literal](rdf.LiteralHasher{})
	out := make([]rdf.Literal, 0, len(labels))
	for _, l := range labels {
		if seen.Add(l) {
			out = append(out, l)
		}
	}
	return out
}

// NormalizeTypes returns the types sorted and unique.
func NormalizeTypes(types []ElementTypeIri) []ElementTypeIri {
	out := slices.Clone(types)
	slices.Sort(out)
	return slices.Compact(out)
}

// NormalizeValues removes structurally equal duplicate values, keeping first
// occurrences in order.
func NormalizeValues(values []rdf.Term) []rdf.Term {
	seen := hashmap.NewSet[rdf.Term](rdf.TermHasher{})
	out := make([]rdf.Term, 0, len(values))
	for _, v := range values {
		if seen.Add(v) {
			out = append(out, v)
		}
	}
	return out
}

// NormalizeProperties de-duplicates the values of every property.
func NormalizeProperties(p PropertyMap) PropertyMap {
	out := make(PropertyMap, len(p))
	for k, values := range p {
		out[k] = NormalizeValues(values)
	}
	return out
}

// Normalize returns a copy of e satisfying the element invariants.
func (e Element) Normalize() Element {
	return Element{
		ID:         e.ID,
		Types:      NormalizeTypes(e.Types),
		Label:      NormalizeLabels(e.Label),
		Image:      e.Image,
		Properties: NormalizeProperties(e.Properties),
	}
}

// Normalize returns a copy of l with de-duplicated property values.
func (l Link) Normalize() Link {
	return Link{
		SourceID:   l.SourceID,
		TargetID:   l.TargetID,
		LinkTypeID: l.LinkTypeID,
		Properties: NormalizeProperties(l.Properties),
	}
}

// LinkKeyHasher hashes link identities for hashmap collections.
type LinkKeyHasher struct{}

func (LinkKeyHasher) Hash(k LinkKey) uint32 {
	h := rdf.HashString(string(k.Source))
	h = rdf.ChainHash(h, rdf.HashString(string(k.Target)))
	h = rdf.ChainHash(h, rdf.HashString(string(k.LinkType)))
	return rdf.DropHighestNonSignBit(h)
}

func (LinkKeyHasher) Equal(a, b LinkKey) bool { return a == b }

// SubtypeEdgeHasher hashes subtype edges by their (derived, base) pair.
type SubtypeEdgeHasher struct{}

func (SubtypeEdgeHasher) Hash(e SubtypeEdge) uint32 {
	h := rdf.ChainHash(rdf.HashString(string(e.Derived)), rdf.HashString(string(e.Base)))
	return rdf.DropHighestNonSignBit(h)
}

func (SubtypeEdgeHasher) Equal(a, b SubtypeEdge) bool { return a == b }

// EqualLabels compares two label lists element-wise by structural equality.
func EqualLabels(a, b []rdf.Literal) bool {
	return slices.EqualFunc(a, b, func(x, y rdf.Literal) bool { return rdf.EqualTerms(x, y) })
}

// EqualProperties compares two property maps by structural equality of values.
func EqualProperties(a, b PropertyMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !slices.EqualFunc(av, bv, rdf.EqualTerms) {
			return false
		}
	}
	return true
}

func equalCount(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Equal reports structural equality.
func (t ElementType) Equal(o ElementType) bool {
	return t.ID == o.ID && EqualLabels(t.Label, o.Label) && equalCount(t.Count, o.Count)
}

// Equal reports structural equality.
func (t LinkType) Equal(o LinkType) bool {
	return t.ID == o.ID && EqualLabels(t.Label, o.Label) && equalCount(t.Count, o.Count)
}

// Equal reports structural equality.
func (t PropertyType) Equal(o PropertyType) bool {
	return t.ID == o.ID && EqualLabels(t.Label, o.Label)
}

// Equal reports structural equality.
func (e Element) Equal(o Element) bool {
	return e.ID == o.ID &&
		slices.Equal(e.Types, o.Types) &&
		EqualLabels(e.Label, o.Label) &&
		e.Image == o.Image &&
		EqualProperties(e.Properties, o.Properties)
}

// Equal reports structural equality.
func (l Link) Equal(o Link) bool {
	return l.Key() == o.Key() && EqualProperties(l.Properties, o.Properties)
}
