// Package model defines the graph-level entities returned by data providers:
// element types, link types, property types, elements, links, link counts and
// the element-type subtyping graph.
//
// Entities are immutable value snapshots. Code that merges or rewrites them
// builds new values instead of mutating the ones it received.
package model

import (
	"fmt"
	"strings"

	"github.com/reactodia/reactodia-workspace-sub004/rdf"
	"github.com/reactodia/reactodia-workspace-sub004/vocabulary"
)

// ElementTypeIri identifies an element type.
type ElementTypeIri string

// LinkTypeIri identifies a link type.
type LinkTypeIri string

// PropertyTypeIri identifies a property type.
type PropertyTypeIri string

// ElementIri identifies an element.
type ElementIri string

// Iri is the constraint satisfied by every identifier type.
type Iri interface {
	~string
}

// EncodeTerm derives an identifier from a resource term. Named nodes encode as
// their IRI; blank nodes encode with the "_:" prefix.
func EncodeTerm[I Iri](t rdf.Term) (I, error) {
	switch v := t.(type) {
	case rdf.NamedNode:
		return I(v), nil
	case rdf.BlankNode:
		return I(vocabulary.BlankNodePrefix + string(v)), nil
	default:
		var zero I
		if t == nil {
			return zero, fmt.Errorf("model: cannot encode nil term as identifier")
		}
		return zero, fmt.Errorf("model: cannot encode %s as identifier", t.TermType())
	}
}

// DecodeTerm recovers the resource term an identifier was encoded from.
func DecodeTerm[I Iri](id I) rdf.Term {
	s := string(id)
	if strings.HasPrefix(s, vocabulary.BlankNodePrefix) {
		return rdf.BlankNode(s[len(vocabulary.BlankNodePrefix):])
	}
	return rdf.NamedNode(s)
}

// IsBlankIri reports whether id encodes a blank node.
func IsBlankIri[I Iri](id I) bool {
	return strings.HasPrefix(string(id), vocabulary.BlankNodePrefix)
}

// Strings converts an identifier list to plain strings.
func Strings[I Iri](ids []I) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
