package remote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/gateway"
	gatewayhttp "github.com/reactodia/reactodia-workspace-sub004/gateway/http"
	"github.com/reactodia/reactodia-workspace-sub004/model"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
	"github.com/reactodia/reactodia-workspace-sub004/provider/composite"
	"github.com/reactodia/reactodia-workspace-sub004/provider/decorated"
	"github.com/reactodia/reactodia-workspace-sub004/provider/memory"
	pt "github.com/reactodia/reactodia-workspace-sub004/provider/providertest"
	"github.com/reactodia/reactodia-workspace-sub004/rdf"
)

const (
	ex    = "http://example.com/"
	alice = model.ElementIri(ex + "alice")
	bob   = model.ElementIri(ex + "bob")
	knows = model.LinkTypeIri(ex + "knows")
)

func serve(t *testing.T, p provider.DataProvider, config gateway.Config) *httptest.Server {
	t.Helper()
	g, err := gatewayhttp.New(p, config)
	require.NoError(t, err)
	srv := httptest.NewServer(g.Router())
	t.Cleanup(srv.Close)
	return srv
}

func people(t *testing.T) *memory.Provider {
	t.Helper()
	data := memory.NewDataset()
	_, err := data.LoadFile("../memory/testdata/people.nt")
	require.NoError(t, err)
	return memory.New(data, memory.DefaultConfig(), nil)
}

func assertSameJSON(t *testing.T, expected, actual any) {
	t.Helper()
	e, err := json.Marshal(expected)
	require.NoError(t, err)
	a, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, string(e), string(a))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https with path", "https://graph.example.com/api/", false},
		{"unsupported scheme", "nats://localhost:4222", true},
		{"no host", "http://", true},
		{"unparsable", "http://[::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, p.Name())
		})
	}

	p, err := New("http://localhost:8080", WithName("wikidata"))
	require.NoError(t, err)
	assert.Equal(t, "wikidata", p.Name())
}

func TestRoundTripMatchesLocalProvider(t *testing.T) {
	local := people(t)
	srv := serve(t, local, gateway.DefaultConfig())
	remote, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("knownElementTypes", func(t *testing.T) {
		want, err := local.KnownElementTypes(ctx)
		require.NoError(t, err)
		got, err := remote.KnownElementTypes(ctx)
		require.NoError(t, err)
		assertSameJSON(t, want, got)
	})

	t.Run("knownLinkTypes", func(t *testing.T) {
		want, err := local.KnownLinkTypes(ctx)
		require.NoError(t, err)
		got, err := remote.KnownLinkTypes(ctx)
		require.NoError(t, err)
		assertSameJSON(t, want, got)
	})

	t.Run("elements keep typed and language literals", func(t *testing.T) {
		params := provider.ElementsParams{Elements: []model.ElementIri{alice, bob, "_:carol"}}
		want, err := local.Elements(ctx, params)
		require.NoError(t, err)
		got, err := remote.Elements(ctx, params)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assertSameJSON(t, want, got)

		ages := got[alice].Properties[model.PropertyTypeIri(ex+"age")]
		require.Len(t, ages, 1)
		assert.Equal(t, "42", rdf.TermValue(ages[0]))
	})

	t.Run("links", func(t *testing.T) {
		params := provider.LinksParams{Elements: []model.ElementIri{alice}, LinkTypes: []model.LinkTypeIri{knows}}
		want, err := local.Links(ctx, params)
		require.NoError(t, err)
		got, err := remote.Links(ctx, params)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		assertSameJSON(t, want, got)
	})

	t.Run("connectedLinkStats", func(t *testing.T) {
		params := provider.ConnectedLinkStatsParams{Element: alice}
		want, err := local.ConnectedLinkStats(ctx, params)
		require.NoError(t, err)
		got, err := remote.ConnectedLinkStats(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("lookup", func(t *testing.T) {
		params := provider.LookupParams{Text: "ali"}
		want, err := local.Lookup(ctx, params)
		require.NoError(t, err)
		got, err := remote.Lookup(ctx, params)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assertSameJSON(t, want, got)
	})

	t.Run("types by id", func(t *testing.T) {
		et, err := remote.ElementTypes(ctx, provider.ElementTypesParams{ClassIDs: []model.ElementTypeIri{ex + "Person"}})
		require.NoError(t, err)
		assert.Equal(t, 3, *et[ex+"Person"].Count)

		lt, err := remote.LinkTypes(ctx, provider.LinkTypesParams{LinkTypeIDs: []model.LinkTypeIri{knows}})
		require.NoError(t, err)
		assert.Contains(t, lt, knows)

		props, err := remote.PropertyTypes(ctx, provider.PropertyTypesParams{PropertyIDs: []model.PropertyTypeIri{ex + "age"}})
		require.NoError(t, err)
		assert.Contains(t, props, model.PropertyTypeIri(ex+"age"))
	})
}

func TestErrorKinds(t *testing.T) {
	ctx := context.Background()

	t.Run("backend failure", func(t *testing.T) {
		srv := serve(t, pt.Failing{Name: "upstream", Err: stderrors.New("boom")}, gateway.DefaultConfig())
		remote, err := New(srv.URL, WithName("edge"))
		require.NoError(t, err)

		_, err = remote.KnownLinkTypes(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsBackendError(err))
		assert.False(t, errors.IsCancelled(err))

		var backend *errors.BackendError
		require.True(t, stderrors.As(err, &backend))
		assert.Equal(t, "edge", backend.Provider)
	})

	t.Run("invalid request", func(t *testing.T) {
		srv := serve(t, people(t), gateway.DefaultConfig())
		remote, err := New(srv.URL)
		require.NoError(t, err)

		_, err = remote.Lookup(ctx, provider.LookupParams{Direction: "sideways"})
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.False(t, errors.IsBackendError(err))
	})

	t.Run("gateway timeout is a backend failure", func(t *testing.T) {
		config := gateway.DefaultConfig()
		config.RequestTimeout = "100ms"
		srv := serve(t, pt.NewBlocking(1), config)
		remote, err := New(srv.URL)
		require.NoError(t, err)

		_, err = remote.Elements(ctx, provider.ElementsParams{Elements: []model.ElementIri{alice}})
		require.Error(t, err)
		assert.True(t, errors.IsBackendError(err))
		assert.False(t, errors.IsCancelled(err))
		assert.True(t, errors.IsTransient(err))
	})

	t.Run("caller cancellation", func(t *testing.T) {
		blocking := pt.NewBlocking(1)
		srv := serve(t, blocking, gateway.DefaultConfig())
		remote, err := New(srv.URL)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			<-blocking.Started
			cancel()
		}()
		_, err = remote.Lookup(cctx, provider.LookupParams{Text: "x"})
		require.Error(t, err)
		assert.True(t, errors.IsCancelled(err))
		assert.False(t, errors.IsBackendError(err))
	})

	t.Run("already cancelled sends nothing", func(t *testing.T) {
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
		defer srv.Close()
		remote, err := New(srv.URL)
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = remote.KnownElementTypes(cctx)
		assert.True(t, errors.IsCancelled(err))
		assert.Zero(t, hits)
	})

	t.Run("non-gateway error body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()
		remote, err := New(srv.URL)
		require.NoError(t, err)

		_, err = remote.KnownLinkTypes(ctx)
		assert.True(t, errors.IsBackendError(err))
	})

	t.Run("undecodable response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		}))
		defer srv.Close()
		remote, err := New(srv.URL)
		require.NoError(t, err)

		_, err = remote.KnownLinkTypes(ctx)
		assert.True(t, errors.IsBackendError(err))
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		remote, err := New(url, WithTimeout(time.Second))
		require.NoError(t, err)
		_, err = remote.KnownLinkTypes(ctx)
		assert.True(t, errors.IsBackendError(err))
	})
}

func TestPing(t *testing.T) {
	srv := serve(t, people(t), gateway.DefaultConfig())
	remote, err := New(srv.URL)
	require.NoError(t, err)
	assert.NoError(t, remote.Ping(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	remote, err = New(down.URL)
	require.NoError(t, err)
	assert.True(t, errors.IsBackendError(remote.Ping(context.Background())))
}

// slowServer answers after delay unless the client goes away first.
func slowServer(t *testing.T, delay time.Duration, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(delay):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientTimeoutIsBackendError(t *testing.T) {
	ctx := context.Background()

	t.Run("direct", func(t *testing.T) {
		var hits atomic.Int32
		srv := slowServer(t, 300*time.Millisecond, &hits)
		remote, err := New(srv.URL, WithName("slow"), WithTimeout(50*time.Millisecond))
		require.NoError(t, err)

		_, err = remote.KnownLinkTypes(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsBackendError(err))
		assert.False(t, errors.IsCancelled(err))
		assert.True(t, errors.IsTransient(err))
		assert.NoError(t, ctx.Err())
	})

	t.Run("through composite", func(t *testing.T) {
		var hits atomic.Int32
		srv := slowServer(t, 300*time.Millisecond, &hits)
		remote, err := New(srv.URL, WithTimeout(50*time.Millisecond))
		require.NoError(t, err)

		p := composite.New([]composite.Source{
			{Label: "local", Provider: people(t)},
			{Label: "slow", Provider: remote},
		})
		_, err = p.KnownLinkTypes(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsBackendError(err))
		assert.False(t, errors.IsCancelled(err))

		var backend *errors.BackendError
		require.True(t, stderrors.As(err, &backend))
		assert.Equal(t, "slow", backend.Provider)
	})

	t.Run("retried by decorator", func(t *testing.T) {
		var hits atomic.Int32
		srv := slowServer(t, 300*time.Millisecond, &hits)
		remote, err := New(srv.URL, WithTimeout(50*time.Millisecond))
		require.NoError(t, err)

		p := decorated.New(remote, decorated.Retry(errors.RetryConfig{
			MaxRetries:    2,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2,
		}, nil))
		_, err = p.KnownLinkTypes(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsBackendError(err))
		assert.Equal(t, int32(3), hits.Load())
	})
}
