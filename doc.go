// Package graphdata is a graph data access layer: it answers the questions a
// diagram editor asks of a knowledge graph (which classes, properties and link
// types exist, what an element looks like, how elements connect) over any
// number of backing sources.
//
// # Architecture
//
// Every source implements provider.DataProvider. Providers compose:
//
//	┌─────────────────────────────────────┐
//	│        gateway/http (chi)           │  JSON RPC, /healthz,
//	│                                     │  /metrics
//	└─────────────────────────────────────┘
//	           ↓ calls
//	┌─────────────────────────────────────┐
//	│        provider/cached              │  Persistent answers in a
//	│   (memory, nats, sqlite, badger)    │  storage/kv Backend
//	└─────────────────────────────────────┘
//	           ↓ misses go to
//	┌─────────────────────────────────────┐
//	│        provider/composite           │  Fan-out and merge,
//	│                                     │  fail fast
//	└─────────────────────────────────────┘
//	           ↓ one call per source
//	┌─────────────────────────────────────┐
//	│        provider/decorated           │  Delay, retry, rate limit,
//	│                                     │  audit, metrics
//	└─────────────────────────────────────┘
//	           ↓ wraps
//	┌──────────────────┐ ┌────────────────┐
//	│  provider/memory │ │ provider/remote│  N-Quads files or another
//	│   (quad store)   │ │ (HTTP client)  │  graphdata gateway
//	└──────────────────┘ └────────────────┘
//
// # Packages
//
//   - rdf: terms (IRIs, blank nodes, literals, variables, default graph),
//     quads and N-Triples/N-Quads parsing
//   - model: element, link, class, property and link type records plus
//     normalization helpers
//   - pkg/hashmap: hash-keyed maps and sets for values without a natural
//     comparable key
//   - provider: the DataProvider contract, operation names and parameters
//   - storage/kv: the key/value Backend used by the cache
//   - config: YAML/JSON configuration with layers and env overrides
//   - health, metric, errors: the ambient stack shared by every package
//
// # Running
//
//	graphdata --config configs/graphdata.yaml
//
// A remote source lets one gateway federate another:
//
//	sources:
//	  - name: local
//	    type: memory
//	    files: [data/people.nt]
//	  - name: upstream
//	    type: remote
//	    url: http://graphdata-upstream:8080
//	composite:
//	  enabled: true
//
// # Testing
//
// Unit tests use testify and need nothing external. The natskv backend has
// integration tests that start NATS with testcontainers:
//
//	go test ./...
//	go test -tags=integration ./storage/kv/natskv/...
package graphdata
