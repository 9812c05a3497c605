// Package rdf provides the graph term model: named nodes, blank nodes, literals,
// variables, the default graph and quads, with structural hashing and equality.
//
// Terms are plain values. Two independently constructed terms with the same
// content are equal under EqualTerms and hash identically under HashTerm, which
// makes them safe keys for the hash-keyed collections in pkg/hashmap.
package rdf

import (
	"strconv"
	"strings"

	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

// TermType tags the variants of Term.
type TermType uint8

const (
	TermNamedNode TermType = iota + 1
	TermBlankNode
	TermLiteral
	TermVariable
	TermDefaultGraph
	TermQuad
)

// String returns the RDF/JS name of the term type.
func (t TermType) String() string {
	switch t {
	case TermNamedNode:
		return "NamedNode"
	case TermBlankNode:
		return "BlankNode"
	case TermLiteral:
		return "Literal"
	case TermVariable:
		return "Variable"
	case TermDefaultGraph:
		return "DefaultGraph"
	case TermQuad:
		return "Quad"
	default:
		return "Unknown"
	}
}

// ParseTermType is the inverse of TermType.String.
func ParseTermType(s string) (TermType, bool) {
	switch s {
	case "NamedNode":
		return TermNamedNode, true
	case "BlankNode":
		return TermBlankNode, true
	case "Literal":
		return TermLiteral, true
	case "Variable":
		return TermVariable, true
	case "DefaultGraph":
		return TermDefaultGraph, true
	case "Quad":
		return TermQuad, true
	default:
		return 0, false
	}
}

// Term is a graph term. The set of implementations is closed.
type Term interface {
	TermType() TermType
	String() string
	isTerm()
}

// NamedNode is a resource with a global IRI.
type NamedNode string

func (NamedNode) TermType() TermType { return TermNamedNode }
func (n NamedNode) String() string   { return "<" + string(n) + ">" }
func (NamedNode) isTerm()            {}

// BlankNode is a resource with a locally-scoped identifier, stored without
// the "_:" prefix.
type BlankNode string

func (BlankNode) TermType() TermType { return TermBlankNode }
func (b BlankNode) String() string   { return "_:" + string(b) }
func (BlankNode) isTerm()            {}

// Variable is a query variable name without the "?" prefix.
type Variable string

func (Variable) TermType() TermType { return TermVariable }
func (v Variable) String() string   { return "?" + string(v) }
func (Variable) isTerm()            {}

// DefaultGraph is the graph of triples that carry no graph name.
type DefaultGraph struct{}

func (DefaultGraph) TermType() TermType { return TermDefaultGraph }
func (DefaultGraph) String() string     { return "" }
func (DefaultGraph) isTerm()            {}

// Literal is a lexical value with an optional language tag or datatype.
//
// An empty Datatype is read as rdf:langString when Language is set and as
// xsd:string otherwise, so Literal{Value: "x"} equals NewLiteral("x").
type Literal struct {
	Value    string
	Language string
	Datatype NamedNode
}

func (Literal) TermType() TermType { return TermLiteral }
func (Literal) isTerm()            {}

func (l Literal) String() string {
	quoted := strconv.Quote(l.Value)
	if l.Language != "" {
		return quoted + "@" + l.Language
	}
	if dt := l.EffectiveDatatype(); dt != vocabulary.XsdString {
		return quoted + "^^<" + string(dt) + ">"
	}
	return quoted
}

// EffectiveDatatype returns the datatype with the implicit defaults applied.
func (l Literal) EffectiveDatatype() NamedNode {
	if l.Datatype != "" {
		return l.Datatype
	}
	if l.Language != "" {
		return vocabulary.RdfLangString
	}
	return vocabulary.XsdString
}

// NewLiteral creates a plain xsd:string literal.
func NewLiteral(value string) Literal {
	return Literal{Value: value, Datatype: vocabulary.XsdString}
}

// NewLangLiteral creates a language-tagged literal. Tags are lower-cased.
func NewLangLiteral(value, language string) Literal {
	if language == "" {
		return NewLiteral(value)
	}
	return Literal{
		Value:    value,
		Language: strings.ToLower(language),
		Datatype: vocabulary.RdfLangString,
	}
}

// NewTypedLiteral creates a literal with an explicit datatype.
func NewTypedLiteral(value string, datatype NamedNode) Literal {
	if datatype == "" {
		datatype = vocabulary.XsdString
	}
	return Literal{Value: value, Datatype: datatype}
}

// Quad is a statement of four terms. A nil Graph means the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func (Quad) TermType() TermType { return TermQuad }
func (Quad) isTerm()            {}

func (q Quad) String() string {
	var b strings.Builder
	for i, t := range []Term{q.Subject, q.Predicate, q.Object} {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(termString(t))
	}
	if g := q.graph(); g.TermType() != TermDefaultGraph {
		b.WriteByte(' ')
		b.WriteString(g.String())
	}
	b.WriteString(" .")
	return b.String()
}

func (q Quad) graph() Term {
	if q.Graph == nil {
		return DefaultGraph{}
	}
	return q.Graph
}

// NewQuad creates a quad in the given graph; pass nil for the default graph.
func NewQuad(subject, predicate, object, graph Term) Quad {
	if graph == nil {
		graph = DefaultGraph{}
	}
	return Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

func termString(t Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// TermValue returns the lexical payload of a term: the IRI, blank node label,
// literal value or variable name. Default graphs and quads return "".
func TermValue(t Term) string {
	switch v := t.(type) {
	case NamedNode:
		return string(v)
	case BlankNode:
		return string(v)
	case Literal:
		return v.Value
	case Variable:
		return string(v)
	default:
		return ""
	}
}

// IsResource reports whether t is a named or blank node.
func IsResource(t Term) bool {
	if t == nil {
		return false
	}
	k := t.TermType()
	return k == TermNamedNode || k == TermBlankNode
}
