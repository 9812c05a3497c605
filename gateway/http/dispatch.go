package http

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

// decodeParams unmarshals an operation's params. An empty body is the zero
// value.
func decodeParams[T any](op provider.Operation, body []byte) (T, error) {
	var params T
	if len(bytes.TrimSpace(body)) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(body, &params); err != nil {
		return params, errors.WrapInvalid(err, "Gateway", "decodeParams", "decode "+string(op)+" params")
	}
	return params, nil
}

// dispatch decodes body into the params of op and calls it on p.
func dispatch(ctx context.Context, p provider.DataProvider, op provider.Operation, body []byte) (any, error) {
	switch op {
	case provider.OpKnownElementTypes:
		return p.KnownElementTypes(ctx)
	case provider.OpKnownLinkTypes:
		return p.KnownLinkTypes(ctx)
	case provider.OpElementTypes:
		params, err := decodeParams[provider.ElementTypesParams](op, body)
		if err != nil {
			return nil, err
		}
		return p.ElementTypes(ctx, params)
	case provider.OpPropertyTypes:
		params, err := decodeParams[provider.PropertyTypesParams](op, body)
		if err != nil {
			return nil, err
		}
		return p.PropertyTypes(ctx, params)
	case provider.OpLinkTypes:
		params, err := decodeParams[provider.LinkTypesParams](op, body)
		if err != nil {
			return nil, err
		}
		return p.LinkTypes(ctx, params)
	case provider.OpElements:
		params, err := decodeParams[provider.ElementsParams](op, body)
		if err != nil {
			return nil, err
		}
		return p.Elements(ctx, params)
	case provider.OpLinks:
		params, err := decodeParams[provider.LinksParams](op, body)
		if err != nil {
			return nil, err
		}
		return p.Links(ctx, params)
	case provider.OpConnectedLinkStats:
		params, err := decodeParams[provider.ConnectedLinkStatsParams](op, body)
		if err != nil {
			return nil, err
		}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		return p.ConnectedLinkStats(ctx, params)
	case provider.OpLookup:
		params, err := decodeParams[provider.LookupParams](op, body)
		if err != nil {
			return nil, err
		}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		return p.Lookup(ctx, params)
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Gateway", "dispatch", "unknown operation "+string(op))
	}
}
