// Package provider defines DataProvider, the single contract shared by every
// graph-data backend and every composition layer built on top of them.
//
// A caller holds a DataProvider and calls one of its operations with a context
// and a parameter struct. The context is the cancellation token: composition
// layers pass the same context to every call they delegate, so cancelling the
// outer call cancels all inner calls.
//
// Failure semantics:
//   - a fired context yields an error matching errors.ErrCancelled
//   - an unreachable or misbehaving source yields an *errors.BackendError
//     carrying the original cause
//
// Identifiers that are absent from a backend are simply missing from the
// result maps. That is not an error.
//
// Example:
//
//	var p provider.DataProvider = memory.New(dataset, memory.DefaultConfig(), logger)
//	els, err := p.Elements(ctx, provider.ElementsParams{
//	    Elements: []model.ElementIri{"http://example.com/alice"},
//	})
package provider

import (
	"context"

	"github.com/reactodia/reactodia-workspace-sub004/model"
)

// DataProvider is the uniform graph-data contract.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type DataProvider interface {
	// KnownElementTypes returns the full schema snapshot: every element type
	// with the subtyping edges between them.
	KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error)

	// KnownLinkTypes returns every link type the source knows about.
	KnownLinkTypes(ctx context.Context) ([]model.LinkType, error)

	// ElementTypes returns the requested element types.
	ElementTypes(ctx context.Context, params ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error)

	// PropertyTypes returns the requested property types.
	PropertyTypes(ctx context.Context, params PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error)

	// LinkTypes returns the requested link types.
	LinkTypes(ctx context.Context, params LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error)

	// Elements returns the requested elements.
	Elements(ctx context.Context, params ElementsParams) (map[model.ElementIri]model.Element, error)

	// Links returns every link touching any of the given elements, optionally
	// restricted to a set of link types.
	Links(ctx context.Context, params LinksParams) ([]model.Link, error)

	// ConnectedLinkStats returns per link type in/out counts for one element.
	ConnectedLinkStats(ctx context.Context, params ConnectedLinkStatsParams) ([]model.LinkCount, error)

	// Lookup searches elements by type, connectivity and free text.
	Lookup(ctx context.Context, params LookupParams) ([]model.LookupItem, error)
}

// ElementTypesParams selects element types by id.
type ElementTypesParams struct {
	ClassIDs []model.ElementTypeIri `json:"classIds"`
}

// PropertyTypesParams selects property types by id.
type PropertyTypesParams struct {
	PropertyIDs []model.PropertyTypeIri `json:"propertyIds"`
}

// LinkTypesParams selects link types by id.
type LinkTypesParams struct {
	LinkTypeIDs []model.LinkTypeIri `json:"linkTypeIds"`
}

// ElementsParams selects elements by id.
type ElementsParams struct {
	Elements []model.ElementIri `json:"elementIds"`
}

// LinksParams selects links touching any of Elements. An empty LinkTypes
// means every link type.
type LinksParams struct {
	Elements  []model.ElementIri  `json:"elementIds"`
	LinkTypes []model.LinkTypeIri `json:"linkTypeIds,omitempty"`
}

// ConnectedLinkStatsParams selects the element to compute link counts for.
type ConnectedLinkStatsParams struct {
	Element model.ElementIri `json:"elementId"`
	// InexactCount allows the source to return approximate counts.
	InexactCount bool `json:"inexactCount,omitempty"`
}

// LinkDirection orients a lookup relative to its reference element.
type LinkDirection string

const (
	// DirectionAny matches links in both directions.
	DirectionAny LinkDirection = ""
	// DirectionIn matches links from a result element to the reference element.
	DirectionIn LinkDirection = "in"
	// DirectionOut matches links from the reference element to a result element.
	DirectionOut LinkDirection = "out"
)

// Valid reports whether d is a known direction.
func (d LinkDirection) Valid() bool {
	switch d {
	case DirectionAny, DirectionIn, DirectionOut:
		return true
	}
	return false
}

// Lookup limits.
const (
	// DefaultLimit asks the implementation to apply its own default limit.
	DefaultLimit = 0
	// NoLimit explicitly disables the result limit.
	NoLimit = -1
)

// LookupParams filters a lookup. Every filter is optional; zero values mean
// "no constraint".
type LookupParams struct {
	ElementType model.ElementTypeIri `json:"elementTypeId,omitempty"`
	RefElement  model.ElementIri     `json:"refElementId,omitempty"`
	RefLinkType model.LinkTypeIri    `json:"refElementLinkId,omitempty"`
	Direction   LinkDirection        `json:"linkDirection,omitempty"`
	Text        string               `json:"text,omitempty"`
	// Limit caps the number of results. DefaultLimit (0) applies the
	// implementation default; NoLimit (-1) disables the cap.
	Limit int `json:"limit,omitempty"`
}

// EffectiveLimit resolves Limit against an implementation default. A result
// of 0 or less means unlimited.
func (p LookupParams) EffectiveLimit(defaultLimit int) int {
	switch {
	case p.Limit == DefaultLimit:
		return defaultLimit
	case p.Limit < 0:
		return 0
	default:
		return p.Limit
	}
}
