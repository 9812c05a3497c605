// Package natsclient provides a NATS client with circuit breaker protection,
// automatic reconnection, and JetStream key-value support.
//
// The persistent cache store keeps one KV bucket per cached operation; this
// package owns the connection those buckets share.
//
// # Connection Lifecycle
//
// Disconnected → Connecting → Connected → Reconnecting → Connected. After a
// threshold of consecutive connection failures (default 5) the circuit opens
// and calls fail fast with ErrCircuitOpen until the backoff elapses.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "graphdata_elements"})
//	kv := client.NewKVStore(bucket)
//	_, err = kv.Put(ctx, "urn:example:alice", data)
//
// # KVStore
//
// KVStore bounds every call with a timeout, retries failed writes with
// backoff (pkg/retry), maps missing keys to ErrKVKeyNotFound, and purges keys
// on delete so cleared buckets keep no history.
//
// # Testing
//
// NewTestClient starts a NATS server with JetStream in a testcontainers
// container and registers cleanup with the test:
//
//	tc := natsclient.NewTestClient(t, natsclient.WithKV())
//	bucket, err := tc.CreateKVBucket(ctx, "test")
package natsclient
