// Package remote implements provider.DataProvider as a client of a graphdata
// HTTP gateway. Each operation is one POST to /v1/<operation>.
//
// Only the caller's context produces errors.IsCancelled. An invalid request
// surfaces as errors.IsInvalid. Everything else is a BackendError naming this
// provider, including client timeouts, transport failures, undecodable
// responses and gateway-side timeouts.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/gateway"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

const (
	// DefaultTimeout bounds a whole request when no client is supplied.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps decoded response bodies.
	DefaultMaxResponseSize = 64 << 20

	maxErrorBody = 64 << 10
)

// Provider calls a remote gateway.
type Provider struct {
	name     string
	endpoint *url.URL
	client   *http.Client
	maxBody  int64
	logger   *slog.Logger
}

var _ provider.DataProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithName sets the provider name reported in BackendErrors and logs.
func WithName(name string) Option {
	return func(p *Provider) {
		if name != "" {
			p.name = name
		}
	}
}

// WithMaxResponseSize caps the size of a successful response body.
func WithMaxResponseSize(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a client for the gateway at baseURL, e.g. "http://host:8080".
func New(baseURL string, opts ...Option) (*Provider, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "RemoteProvider", "New", "parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "RemoteProvider", "New",
			fmt.Sprintf("unsupported url scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "RemoteProvider", "New", "url has no host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	p := &Provider{
		name:     "remote:" + u.Host,
		endpoint: u,
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBody:  DefaultMaxResponseSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "remote-provider", "provider", p.name)
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// Ping checks that the gateway answers its health endpoint with a non-5xx
// status.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint.String()+"/healthz", nil)
	if err != nil {
		return errors.WrapInvalid(err, "RemoteProvider", "Ping", "build request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return p.transportError(ctx, err, "ping")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.NewBackendError(fmt.Errorf("health endpoint returned %d", resp.StatusCode), p.name, "ping")
	}
	return nil
}

func (p *Provider) KnownElementTypes(ctx context.Context) (model.ElementTypeGraph, error) {
	return call[model.ElementTypeGraph](ctx, p, provider.OpKnownElementTypes, nil)
}

func (p *Provider) KnownLinkTypes(ctx context.Context) ([]model.LinkType, error) {
	return call[[]model.LinkType](ctx, p, provider.OpKnownLinkTypes, nil)
}

func (p *Provider) ElementTypes(ctx context.Context, params provider.ElementTypesParams) (map[model.ElementTypeIri]model.ElementType, error) {
	return call[map[model.ElementTypeIri]model.ElementType](ctx, p, provider.OpElementTypes, params)
}

func (p *Provider) PropertyTypes(ctx context.Context, params provider.PropertyTypesParams) (map[model.PropertyTypeIri]model.PropertyType, error) {
	return call[map[model.PropertyTypeIri]model.PropertyType](ctx, p, provider.OpPropertyTypes, params)
}

func (p *Provider) LinkTypes(ctx context.Context, params provider.LinkTypesParams) (map[model.LinkTypeIri]model.LinkType, error) {
	return call[map[model.LinkTypeIri]model.LinkType](ctx, p, provider.OpLinkTypes, params)
}

func (p *Provider) Elements(ctx context.Context, params provider.ElementsParams) (map[model.ElementIri]model.Element, error) {
	return call[map[model.ElementIri]model.Element](ctx, p, provider.OpElements, params)
}

func (p *Provider) Links(ctx context.Context, params provider.LinksParams) ([]model.Link, error) {
	return call[[]model.Link](ctx, p, provider.OpLinks, params)
}

func (p *Provider) ConnectedLinkStats(ctx context.Context, params provider.ConnectedLinkStatsParams) ([]model.LinkCount, error) {
	return call[[]model.LinkCount](ctx, p, provider.OpConnectedLinkStats, params)
}

func (p *Provider) Lookup(ctx context.Context, params provider.LookupParams) ([]model.LookupItem, error) {
	return call[[]model.LookupItem](ctx, p, provider.OpLookup, params)
}

// call posts params to the operation route and decodes the result into T.
func call[T any](ctx context.Context, p *Provider, op provider.Operation, params any) (T, error) {
	var zero T
	if err := errors.FromContext(ctx); err != nil {
		return zero, err
	}

	var body io.Reader = http.NoBody
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return zero, errors.WrapInvalid(err, "RemoteProvider", string(op), "encode params")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint.String()+"/v1/"+string(op), body)
	if err != nil {
		return zero, errors.WrapInvalid(err, "RemoteProvider", string(op), "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return zero, p.transportError(ctx, err, string(op))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return zero, p.responseError(ctx, resp, op)
	}

	var result T
	if err := json.NewDecoder(io.LimitReader(resp.Body, p.maxBody)).Decode(&result); err != nil {
		if ctxErr := errors.FromContext(ctx); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, errors.SourceFailed(fmt.Errorf("decode response: %w", err), p.name, string(op))
	}

	p.logger.Debug("Remote call completed", "operation", op, "duration", time.Since(start))
	return result, nil
}

// transportError classifies a failed round trip. Only the caller's context
// makes it a cancellation; a client timeout is a backend failure.
func (p *Provider) transportError(ctx context.Context, err error, op string) error {
	if ctxErr := errors.FromContext(ctx); ctxErr != nil {
		return ctxErr
	}
	p.logger.Warn("Remote call failed", "operation", op, "error", err)
	return errors.SourceFailed(err, p.name, op)
}

// responseError rebuilds a local error from a gateway error response. A
// cancellation reported by the gateway while the caller's context is live
// means the gateway gave up on its own deadline, which is a backend failure.
func (p *Provider) responseError(ctx context.Context, resp *http.Response, op provider.Operation) error {
	if ctxErr := errors.FromContext(ctx); ctxErr != nil {
		return ctxErr
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body gateway.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Kind == "" {
		return errors.NewBackendError(fmt.Errorf("gateway returned %d", resp.StatusCode), p.name, string(op))
	}

	cause := fmt.Errorf("gateway returned %d: %s", resp.StatusCode, body.Error)
	switch body.Kind {
	case gateway.KindCancelled:
		return errors.SourceFailed(errors.Cancelled(cause), p.name, string(op))
	case gateway.KindInvalid:
		return errors.WrapInvalid(cause, "RemoteProvider", string(op), "remote rejected request")
	default:
		return errors.NewBackendError(cause, p.name, string(op))
	}
}
