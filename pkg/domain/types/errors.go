package types

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrConfiguration is fatal: no adapter or configuration matches the request.
	ErrConfiguration = goerr.New("configuration error")

	// ErrTransientProvider is a retryable provider failure (rate limit, 5xx, network).
	ErrTransientProvider = goerr.New("transient provider error")

	// ErrPersistentProvider is fatal for the provider run (auth, not found, malformed payload).
	ErrPersistentProvider = goerr.New("persistent provider error")

	// ErrParse is returned only when a payload is not diff-shaped at all.
	ErrParse = goerr.New("parse error")

	// ErrValidation is a per-item rejection; the item is skipped.
	ErrValidation = goerr.New("validation error")

	// ErrCancelled reports a run stopped by its cancellation signal.
	ErrCancelled = goerr.New("run cancelled")

	ErrInvalidArgument = goerr.New("invalid argument")
	ErrInvalidOption   = goerr.New("invalid option")

	// ErrUnavailable is a retryable backing store failure.
	ErrUnavailable = goerr.New("backing store unavailable")
)

// IsTransient reports whether err may succeed when retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransientProvider) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
