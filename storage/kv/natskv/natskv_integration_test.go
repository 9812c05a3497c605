//go:build integration

package natskv

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reactodia/reactodia-workspace-sub004/natsclient"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv"
	"github.com/reactodia/reactodia-workspace-sub004/storage/kv/kvtest"
)

var (
	sharedNATS *natsclient.TestClient
	prefixSeq  atomic.Int64
)

func TestMain(m *testing.M) {
	tc, err := natsclient.NewSharedTestClient(natsclient.WithKV())
	if err != nil {
		fmt.Fprintf(os.Stderr, "start NATS: %v\n", err)
		os.Exit(1)
	}
	sharedNATS = tc
	code := m.Run()
	tc.Terminate()
	os.Exit(code)
}

// Each backend gets its own bucket prefix so subtests share the server but
// not the data.
func openBackend(t *testing.T) kv.Backend {
	prefix := fmt.Sprintf("t%d", prefixSeq.Add(1))
	b, err := New(sharedNATS.Client, Config{BucketPrefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackendIntegration(t *testing.T) {
	kvtest.Run(t, openBackend)
}

func TestBucketPerStore(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t).(*Backend)

	s, err := b.Open(ctx, "elements")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "urn:a", []byte("v")))

	bucket, err := sharedNATS.Client.GetKeyValueBucket(ctx, b.BucketName("elements"))
	require.NoError(t, err)
	entry, err := bucket.Get(ctx, encodeKey("urn:a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), entry.Value())
}
