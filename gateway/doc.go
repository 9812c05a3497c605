// Package gateway holds what the HTTP gateway and its remote clients share:
// the gateway configuration, the error body and the mapping from error
// classes to HTTP status codes.
//
// The gateway exposes every DataProvider operation as a JSON RPC:
//
//	POST /v1/{operation}    body: the operation's params, reply: its result
//	GET  /v1/operations     list of operation names
//	GET  /healthz           aggregated source health
//	GET  /metrics           Prometheus exposition
//
// Failed requests reply with an ErrorResponse:
//
//	499  cancelled   the request context was cancelled or timed out
//	502  backend     a source failed (errors.BackendError)
//	400  invalid     malformed params or an invalid request
//	500  internal    anything else
//
// The remote provider reverses this mapping, so errors keep their class
// across a process boundary.
package gateway
