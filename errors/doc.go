// Package errors provides standardized error handling for the graph-data layer.
//
// # Classification
//
// Errors fall into three handling classes: Transient (temporary, retryable),
// Invalid (bad input, do not retry) and Fatal (unrecoverable). Classification is
// preserved through wrapping chains and works with errors.Is and errors.As.
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// Wrapped messages follow the pattern "component.method: action failed: cause".
//
// # Provider outcomes
//
// Data provider operations fail with one of three outcomes:
//
//   - Cancelled: the context fired before or during the call. Match with
//     IsCancelled. Never retried and never reported as a backend failure.
//   - BackendError: the source was unreachable or returned undecodable data.
//     The original cause stays reachable through Unwrap.
//   - CacheError: a persistent store failed. The cached provider treats it as a
//     miss and falls through to its base provider.
//
// Example:
//
//	items, err := p.Lookup(ctx, params)
//	switch {
//	case errors.IsCancelled(err):
//	    return err
//	case errors.IsBackendError(err):
//	    logger.Warn("source failed", "error", err)
//	}
package errors
