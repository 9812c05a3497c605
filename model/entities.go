package model

import (
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

// ElementType describes a class of elements.
type ElementType struct {
	ID    ElementTypeIri `json:"id"`
	Label []rdf.Literal  `json:"label"`
	// Count is the number of instances, nil when unknown.
	Count *int `json:"count,omitempty"`
}

// LinkType describes a kind of link between elements.
type LinkType struct {
	ID    LinkTypeIri   `json:"id"`
	Label []rdf.Literal `json:"label"`
	// Count is the total number of links of this type, nil when unknown.
	Count *int `json:"count,omitempty"`
}

// PropertyType describes a property carried by elements or links.
type PropertyType struct {
	ID    PropertyTypeIri `json:"id"`
	Label []rdf.Literal   `json:"label"`
}

// Element is a node of the graph.
type Element struct {
	ID ElementIri `json:"id"`
	// Types is kept sorted and unique.
	Types      []ElementTypeIri `json:"types"`
	Label      []rdf.Literal    `json:"label"`
	Image      string           `json:"image,omitempty"`
	Properties PropertyMap      `json:"properties"`
}

// Link is a directed edge between two elements. Its identity is Key().
type Link struct {
	SourceID   ElementIri  `json:"sourceId"`
	TargetID   ElementIri  `json:"targetId"`
	LinkTypeID LinkTypeIri `json:"linkTypeId"`
	Properties PropertyMap `json:"properties"`
}

// Key returns the identity of the link.
func (l Link) Key() LinkKey {
	return LinkKey{Source: l.SourceID, Target: l.TargetID, LinkType: l.LinkTypeID}
}

// LinkKey is the (source, target, link type) identity of a link.
type LinkKey struct {
	Source   ElementIri
	Target   ElementIri
	LinkType LinkTypeIri
}

// LinkCount is the number of links of one type connected to an element.
type LinkCount struct {
	ID       LinkTypeIri `json:"id"`
	InCount  int         `json:"inCount"`
	OutCount int         `json:"outCount"`
	// Inexact marks counts the source could not compute exactly.
	Inexact bool `json:"inexact,omitempty"`
}

// SubtypeEdge states that Derived is a subtype of Base.
type SubtypeEdge struct {
	Derived ElementTypeIri `json:"derived"`
	Base    ElementTypeIri `json:"base"`
}

// ElementTypeGraph is a snapshot of every known element type and the
// subtyping edges between them. Cycles are not rejected.
type ElementTypeGraph struct {
	ElementTypes []ElementType `json:"elementTypes"`
	Subtypes     []SubtypeEdge `json:"subtypes"`
}

// LookupItem is one lookup result with the link types connecting it to the
// reference element of the lookup, if there was one.
type LookupItem struct {
	Element  Element       `json:"element"`
	InLinks  []LinkTypeIri `json:"inLinks"`
	OutLinks []LinkTypeIri `json:"outLinks"`
}

// IntPtr returns a pointer to n, for optional counts.
func IntPtr(n int) *int {
	return &n
}
