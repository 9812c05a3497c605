// Package config loads the graphdata configuration: which sources to serve,
// how to combine and decorate them, whether to cache their answers, and the
// gateway and logging settings.
//
// # Core Components
//
// Config: Main configuration structure. Sources are memory datasets loaded from
// N-Triples/N-Quads files or remote gateways. Composite merges several sources.
// Decorators wrap every source with delay, retry, rate limit, audit and metrics
// interceptors. Cache selects a persistent store (memory, nats, sqlite, badger).
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable overrides for flexible deployment scenarios. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON.
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/production.yaml") // Overrides base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A minimal file:
//
//	version: 1.0.0
//	sources:
//	  - name: people
//	    type: memory
//	    files: [data/people.nt.gz]
//	  - name: wikidata
//	    type: remote
//	    url: http://graphdata-wikidata:8080
//	    timeout: 10s
//	decorators:
//	  retry: {max_attempts: 3, initial_delay: 100ms}
//	  audit: true
//	cache:
//	  enabled: true
//	  store: sqlite
//	  path: /var/lib/graphdata/cache.db
//
// # Environment Overrides
//
//	GRAPHDATA_GATEWAY_ADDR   gateway.addr
//	GRAPHDATA_CACHE_STORE    cache.store (also enables the cache)
//	GRAPHDATA_CACHE_PATH     cache.path
//	GRAPHDATA_NATS_URL       cache.nats_url
//	GRAPHDATA_LOG_LEVEL      log.level
//	GRAPHDATA_LOG_FORMAT     log.format
//
// # Security
//
// Config files are size limited, must be regular files, may not escape the
// working directory through relative paths, and JSON nesting depth is bounded.
// Saved files are written with 0600 permissions.
//
// # Validation
//
// Validate fills defaults and returns an invalid error (errors.IsInvalid) naming
// the first offending field. Durations are strings such as "250ms", "30s" or
// "1d".
package config
