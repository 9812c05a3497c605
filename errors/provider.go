package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is the outcome of an operation whose context fired before or
// while it was in flight. It is never wrapped into a BackendError.
var ErrCancelled = errors.New("operation cancelled")

// Cancelled returns an error that matches both ErrCancelled and cause.
func Cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	if errors.Is(cause, ErrCancelled) && IsCancelled(cause) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// FromContext returns a Cancelled error when ctx is done, nil otherwise.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Cancelled(context.Cause(ctx))
	}
	return nil
}

// IsCancelled reports whether err is a cancellation outcome. The outermost
// classification in the chain decides: a BackendError wrapping a source's own
// deadline is a backend failure, not a cancellation.
func IsCancelled(err error) bool {
	cancelled, _ := cancellation(err)
	return cancelled
}

// cancellation walks the chain depth first. decided is false when neither a
// cancellation marker nor a BackendError was found.
func cancellation(err error) (cancelled, decided bool) {
	if err == nil {
		return false, false
	}
	if err == ErrCancelled || err == context.Canceled || err == context.DeadlineExceeded {
		return true, true
	}
	if _, ok := err.(*BackendError); ok {
		return false, true
	}
	if x, ok := err.(interface{ Is(error) bool }); ok &&
		(x.Is(ErrCancelled) || x.Is(context.Canceled) || x.Is(context.DeadlineExceeded)) {
		return true, true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return cancellation(u.Unwrap())
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if c, ok := cancellation(e); ok {
				return c, true
			}
		}
	}
	return false, false
}

// BackendError reports that a data source failed or returned data that could
// not be decoded into the entity model. The original cause is kept in Err.
type BackendError struct {
	Provider  string
	Operation string
	Err       error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("backend %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("backend %q %s failed: %v", e.Provider, e.Operation, e.Err)
}

// Unwrap returns the original cause
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err as a BackendError. Errors already marked with
// ErrCancelled and errors that already are BackendErrors pass through
// unchanged. A bare context error is wrapped: callers that own the caller's
// context must check it first with FromContext.
func NewBackendError(err error, provider, operation string) error {
	if err == nil {
		return nil
	}
	if IsBackendError(err) || (errors.Is(err, ErrCancelled) && IsCancelled(err)) {
		return err
	}
	return &BackendError{Provider: provider, Operation: operation, Err: err}
}

// SourceFailed wraps err as a BackendError unconditionally, keeping an
// existing BackendError as is. Use it when the caller's context is known to
// be live, so that any cancellation in err came from the source itself.
func SourceFailed(err error, provider, operation string) error {
	if err == nil {
		return nil
	}
	if IsBackendError(err) {
		return err
	}
	return &BackendError{Provider: provider, Operation: operation, Err: err}
}

// IsBackendError reports whether err carries a BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// CacheError reports that a persistent store could not serve a request.
// Cache errors are treated as misses by the cached provider.
type CacheError struct {
	Store     string
	Operation string
	Err       error
}

// Error implements the error interface
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache store %q %s failed: %v", e.Store, e.Operation, e.Err)
}

// Unwrap returns the original cause
func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError wraps err as a CacheError.
func NewCacheError(err error, store, operation string) error {
	if err == nil {
		return nil
	}
	var ce *CacheError
	if errors.As(err, &ce) {
		return err
	}
	return &CacheError{Store: store, Operation: operation, Err: err}
}

// IsCacheError reports whether err carries a CacheError.
func IsCacheError(err error) bool {
	var ce *CacheError
	return errors.As(err, &ce)
}
