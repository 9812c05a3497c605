package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/gateway"
	"github.com/reactodia/reactodia-workspace-sub004/health"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	pt "github.com/reactodia/reactodia-workspace-sub004/provider/providertest"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

const (
	alice = model.ElementIri("http://example.com/alice")
	bob   = model.ElementIri("http://example.com/bob")
	knows = model.LinkTypeIri("http://example.com/knows")
)

func fixture() *pt.Fixture {
	return &pt.Fixture{
		LinkTypeList: []model.LinkType{{ID: knows, Label: []rdf.Literal{pt.Label("knows", "en")}, Count: model.IntPtr(1)}},
		ElementList: []model.Element{
			pt.Element(alice, nil, pt.Label("Alice", "en")),
			pt.Element(bob, nil, pt.Label("Bob", "")),
		},
		LinkList: []model.Link{{LinkTypeID: knows, SourceID: alice, TargetID: bob}},
		LookupItems: []model.LookupItem{
			{Element: pt.Element(alice, nil, pt.Label("Alice", "en"))},
		},
	}
}

func newTestGateway(t *testing.T, p provider.DataProvider, config gateway.Config, opts ...Option) *httptest.Server {
	t.Helper()
	g, err := New(p, config, opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(g.Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, op, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/"+op, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) gateway.ErrorResponse {
	t.Helper()
	var body gateway.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, gateway.DefaultConfig())
	assert.Error(t, err)

	_, err = New(fixture(), gateway.Config{RequestTimeout: "nonsense"})
	assert.Error(t, err)

	g, err := New(fixture(), gateway.Config{})
	require.NoError(t, err)
	assert.Equal(t, ":8080", g.Config().Addr)
}

func TestGetOrGenerateRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-12345")
	assert.Equal(t, "existing-request-id-12345", getOrGenerateRequestID(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	first := getOrGenerateRequestID(req)
	second := getOrGenerateRequestID(req)
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestOperations(t *testing.T) {
	srv := newTestGateway(t, fixture(), gateway.DefaultConfig())

	t.Run("knownLinkTypes with empty body", func(t *testing.T) {
		resp := post(t, srv, "knownLinkTypes", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

		var linkTypes []model.LinkType
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&linkTypes))
		require.Len(t, linkTypes, 1)
		assert.Equal(t, knows, linkTypes[0].ID)
		assert.Equal(t, 1, *linkTypes[0].Count)
	})

	t.Run("elements", func(t *testing.T) {
		resp := post(t, srv, "elements", `{"elementIds":["http://example.com/bob","http://example.com/missing"]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var elements map[model.ElementIri]model.Element
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&elements))
		require.Len(t, elements, 1)
		assert.Equal(t, "Bob", elements[bob].Label[0].Value)
	})

	t.Run("links", func(t *testing.T) {
		resp := post(t, srv, "links", `{"elementIds":["http://example.com/alice"],"linkTypeIds":["http://example.com/knows"]}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var links []model.Link
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&links))
		require.Len(t, links, 1)
		assert.Equal(t, model.Link{LinkTypeID: knows, SourceID: alice, TargetID: bob}, links[0])
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/knownLinkTypes", nil)
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "abc-123")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
	})
}

func TestListOperations(t *testing.T) {
	srv := newTestGateway(t, fixture(), gateway.DefaultConfig())

	resp, err := http.Get(srv.URL + "/v1/operations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var ops []provider.Operation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ops))
	assert.Equal(t, provider.Operations(), ops)
}

func TestErrorMapping(t *testing.T) {
	failing := pt.Failing{Name: "upstream", Err: stderrors.New("connection refused to http://10.0.0.1:7200")}

	tests := []struct {
		name     string
		provider provider.DataProvider
		op       string
		body     string
		status   int
		kind     string
	}{
		{"unknown operation", fixture(), "dropTables", "", http.StatusNotFound, gateway.KindInvalid},
		{"malformed body", fixture(), "elements", "{", http.StatusBadRequest, gateway.KindInvalid},
		{"invalid lookup direction", fixture(), "lookup", `{"linkDirection":"sideways"}`, http.StatusBadRequest, gateway.KindInvalid},
		{"backend failure", failing, "elements", `{}`, http.StatusBadGateway, gateway.KindBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestGateway(t, tt.provider, gateway.DefaultConfig())
			resp := post(t, srv, tt.op, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			body := decodeError(t, resp)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotContains(t, body.Error, "10.0.0.1", "internal details must not leak")
		})
	}
}

func TestRequestTimeoutIsClientClosed(t *testing.T) {
	blocking := pt.NewBlocking(1)
	config := gateway.DefaultConfig()
	config.RequestTimeout = "100ms"
	srv := newTestGateway(t, blocking, config)

	resp := post(t, srv, "lookup", `{"text":"alice"}`)
	assert.Equal(t, gateway.StatusClientClosedRequest, resp.StatusCode)
	assert.Equal(t, gateway.KindCancelled, decodeError(t, resp).Kind)
	assert.Equal(t, provider.OpLookup, <-blocking.Started)
}

func TestRequestSizeLimit(t *testing.T) {
	config := gateway.DefaultConfig()
	config.MaxRequestSize = 16
	srv := newTestGateway(t, fixture(), config)

	resp := post(t, srv, "elements", `{"elementIds":["http://example.com/alice"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, gateway.KindInvalid, decodeError(t, resp).Kind)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestGateway(t, fixture(), gateway.DefaultConfig())

	resp, err := http.Get(srv.URL + "/v1/elements")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name          string
		origins       []string
		requestOrigin string
		expectHeader  string
	}{
		{"wildcard allows any origin", []string{"*"}, "http://example.com", "http://example.com"},
		{"specific origin allowed", []string{"http://localhost:3000"}, "http://localhost:3000", "http://localhost:3000"},
		{"origin not allowed", []string{"http://localhost:3000"}, "http://evil.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := gateway.DefaultConfig()
			config.EnableCORS = true
			config.CORSOrigins = tt.origins
			srv := newTestGateway(t, fixture(), config)

			req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/elements", nil)
			require.NoError(t, err)
			req.Header.Set("Origin", tt.requestOrigin)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, tt.expectHeader, resp.Header.Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestHealth(t *testing.T) {
	monitor := health.NewMonitor()
	monitor.UpdateHealthy("memory", "check succeeded")
	srv := newTestGateway(t, fixture(), gateway.DefaultConfig(), WithHealth(monitor))

	get := func() (int, health.Status) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		var status health.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		return resp.StatusCode, status
	}

	code, status := get()
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, status.IsHealthy())

	monitor.UpdateDegraded("remote", "check did not finish in time")
	code, status = get()
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, status.IsDegraded())

	monitor.UpdateUnhealthy("remote", "Connection refused")
	code, status = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "Unhealthy: remote", status.Message)
	require.Len(t, status.SubStatuses, 2)

	remote := status.SubStatuses[1]
	assert.Equal(t, "remote", remote.Component)
	require.NotNil(t, remote.Metrics)
	assert.Equal(t, 2, remote.Metrics.ConsecutiveFailures)
	assert.True(t, remote.Metrics.LastSuccess.IsZero())
}

func TestMetricsAndStats(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	g, err := New(fixture(), gateway.DefaultConfig(), WithMetrics(registry))
	require.NoError(t, err)
	srv := httptest.NewServer(g.Router())
	defer srv.Close()

	post(t, srv, "knownLinkTypes", "")
	post(t, srv, "nope", "")

	stats := g.Stats()
	assert.Equal(t, uint64(2), stats.RequestsTotal)
	assert.Equal(t, uint64(1), stats.RequestsSuccess)
	assert.Equal(t, uint64(1), stats.RequestsFailed)
	assert.NotZero(t, stats.BytesSent)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `graphdata_gateway_requests_total{code="200",operation="knownLinkTypes"} 1`)
	assert.Contains(t, string(text), `graphdata_gateway_requests_total{code="404",operation="unknown"} 1`)

	_, err = New(fixture(), gateway.DefaultConfig(), WithMetrics(registry))
	assert.Error(t, err, "metrics can be registered once per registry")
}

func TestServeListenerShutsDown(t *testing.T) {
	g, err := New(fixture(), gateway.DefaultConfig())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gateway did not stop")
	}
}
