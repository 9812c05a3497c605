package rdf

import (
	"encoding/json"
	"fmt"

	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

// PlainTerm is the structural form of a term: plain data that any JSON or
// key-value store can persist. FromPlain rehydrates it into a Term.
type PlainTerm struct {
	TermType  string     `json:"termType"`
	Value     string     `json:"value,omitempty"`
	Language  string     `json:"language,omitempty"`
	Datatype  string     `json:"datatype,omitempty"`
	Subject   *PlainTerm `json:"subject,omitempty"`
	Predicate *PlainTerm `json:"predicate,omitempty"`
	Object    *PlainTerm `json:"object,omitempty"`
	Graph     *PlainTerm `json:"graph,omitempty"`
}

// ToPlain converts t into its structural form.
func ToPlain(t Term) PlainTerm {
	switch v := t.(type) {
	case NamedNode:
		return PlainTerm{TermType: TermNamedNode.String(), Value: string(v)}
	case BlankNode:
		return PlainTerm{TermType: TermBlankNode.String(), Value: string(v)}
	case Variable:
		return PlainTerm{TermType: TermVariable.String(), Value: string(v)}
	case DefaultGraph:
		return PlainTerm{TermType: TermDefaultGraph.String()}
	case Literal:
		return PlainTerm{
			TermType: TermLiteral.String(),
			Value:    v.Value,
			Language: v.Language,
			Datatype: string(v.EffectiveDatatype()),
		}
	case Quad:
		s, p, o, g := ToPlain(v.Subject), ToPlain(v.Predicate), ToPlain(v.Object), ToPlain(v.graph())
		return PlainTerm{
			TermType:  TermQuad.String(),
			Subject:   &s,
			Predicate: &p,
			Object:    &o,
			Graph:     &g,
		}
	default:
		return PlainTerm{}
	}
}

// FromPlain rehydrates a structural term, re-attaching literal language and
// datatype semantics.
func FromPlain(p PlainTerm) (Term, error) {
	tt, ok := ParseTermType(p.TermType)
	if !ok {
		return nil, fmt.Errorf("rdf: unknown term type %q", p.TermType)
	}
	switch tt {
	case TermNamedNode:
		return NamedNode(p.Value), nil
	case TermBlankNode:
		return BlankNode(p.Value), nil
	case TermVariable:
		return Variable(p.Value), nil
	case TermDefaultGraph:
		return DefaultGraph{}, nil
	case TermLiteral:
		if p.Language != "" {
			return Literal{Value: p.Value, Language: p.Language, Datatype: vocabulary.RdfLangString}, nil
		}
		return NewTypedLiteral(p.Value, NamedNode(p.Datatype)), nil
	default:
		if p.Subject == nil || p.Predicate == nil || p.Object == nil {
			return nil, fmt.Errorf("rdf: quad is missing a component")
		}
		s, err := FromPlain(*p.Subject)
		if err != nil {
			return nil, err
		}
		pr, err := FromPlain(*p.Predicate)
		if err != nil {
			return nil, err
		}
		o, err := FromPlain(*p.Object)
		if err != nil {
			return nil, err
		}
		var g Term = DefaultGraph{}
		if p.Graph != nil {
			if g, err = FromPlain(*p.Graph); err != nil {
				return nil, err
			}
		}
		return NewQuad(s, pr, o, g), nil
	}
}

// LiteralFromPlain rehydrates a structural term that must be a literal.
func LiteralFromPlain(p PlainTerm) (Literal, error) {
	t, err := FromPlain(p)
	if err != nil {
		return Literal{}, err
	}
	l, ok := t.(Literal)
	if !ok {
		return Literal{}, fmt.Errorf("rdf: expected Literal, got %s", p.TermType)
	}
	return l, nil
}

// MarshalJSON encodes the literal in its structural form.
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToPlain(l))
}

// UnmarshalJSON decodes a structural literal.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var p PlainTerm
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	v, err := LiteralFromPlain(p)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// MarshalTerms converts a term list to structural form.
func MarshalTerms(terms []Term) []PlainTerm {
	out := make([]PlainTerm, len(terms))
	for i, t := range terms {
		out[i] = ToPlain(t)
	}
	return out
}

// UnmarshalTerms rehydrates a structural term list.
func UnmarshalTerms(plain []PlainTerm) ([]Term, error) {
	out := make([]Term, len(plain))
	for i, p := range plain {
		t, err := FromPlain(p)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
