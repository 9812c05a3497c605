package provider

import (
	"context"
	"fmt"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/model"
)

// Operation names one DataProvider operation. The names double as metric
// labels, cache store names and gateway routes.
type Operation string

const (
	OpKnownElementTypes  Operation = "knownElementTypes"
	OpKnownLinkTypes     Operation = "knownLinkTypes"
	OpElementTypes       Operation = "elementTypes"
	OpPropertyTypes      Operation = "propertyTypes"
	OpLinkTypes          Operation = "linkTypes"
	OpElements           Operation = "elements"
	OpLinks              Operation = "links"
	OpConnectedLinkStats Operation = "connectedLinkStats"
	OpLookup             Operation = "lookup"
)

// Operations lists every operation in declaration order.
func Operations() []Operation {
	return []Operation{
		OpKnownElementTypes,
		OpKnownLinkTypes,
		OpElementTypes,
		OpPropertyTypes,
		OpLinkTypes,
		OpElements,
		OpLinks,
		OpConnectedLinkStats,
		OpLookup,
	}
}

// ParseOperation resolves an operation name.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations() {
		if string(op) == s {
			return op, nil
		}
	}
	return "", errors.WrapInvalid(fmt.Errorf("unknown operation %q", s), "provider", "ParseOperation", "parse operation")
}

// Validate checks the parameters that are not expressible in the type system.
func (p LookupParams) Validate() error {
	if !p.Direction.Valid() {
		return errors.WrapInvalid(fmt.Errorf("unknown link direction %q", p.Direction),
			"provider", "LookupParams.Validate", "validate direction")
	}
	if p.Limit < NoLimit {
		return errors.WrapInvalid(fmt.Errorf("limit %d out of range", p.Limit),
			"provider", "LookupParams.Validate", "validate limit")
	}
	return nil
}

// Validate checks that an element was given.
func (p ConnectedLinkStatsParams) Validate() error {
	if p.Element == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "provider", "ConnectedLinkStatsParams.Validate", "validate element id")
	}
	return nil
}

// Empty is a DataProvider with no data. Every operation returns an empty result
// unless ctx is already done.
type Empty struct{}

var _ DataProvider = Empty{}

func (Empty) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	if err := errors.FromContext(ctx); err != nil {
		return model.ElementTypeGraph{}, err
	}
	return model.ElementTypeGraph{ElementTypes: []model.ElementType{}, Subtypes: []model.SubtypeEdge{}}, nil
}

func (Empty) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return []model.LinkType{}, nil
}

func (Empty) ElementTypes(ctx context.Context, _ ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return map[model.ElementTypeIri]model.ElementType{}, nil
}

func (Empty) PropertyTypes(ctx context.Context, _ PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return map[model.PropertyTypeIri]model.PropertyType{}, nil
}

func (Empty) LinkTypes(ctx context.Context, _ LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return map[model.LinkTypeIri]model.LinkType{}, nil
}

func (Empty) Elements(ctx context.Context, _ ElementsParams) (map[model.ElementIri]model.Element, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return map[model.ElementIri]model.Element{}, nil
}

func (Empty) Links(ctx context.Context, _ LinksParams) ([]model.Link, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return []model.Link{}, nil
}

func (Empty) ConnectedLinkStats(ctx context.Context, _ ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return []model.LinkCount{}, nil
}

func (Empty) Lookup(ctx context.Context, _ LookupParams) ([]model.LookupItem, error) {
	if err := errors.FromContext(ctx); err != nil {
		return nil, err
	}
	return []model.LookupItem{}, nil
}
