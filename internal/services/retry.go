package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
)

// MaxAttempts bounds every remote operation. Retries are immediate.
const MaxAttempts = 3

// ErrRetriesExhausted wraps the last error once all attempts have failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// permanentError marks a failure that another attempt cannot fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return true
		}
	}
	return false
}

// Retry runs fn up to MaxAttempts times with the same arguments. It returns
// the zero value and an error wrapping ErrRetriesExhausted once every attempt
// has failed. Callers treat that as a failure of that single artifact only.
//
// Not every failure is retried. Errors wrapped with Permanent and Google API
// responses 400, 401 and 404 are returned after the first attempt, without
// ErrRetriesExhausted. 403 is still retried: Drive reports rate limiting with it.
func Retry[T any](ctx context.Context, logCtx *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if isPermanent(err) {
			logCtx.Error("Operation failed with a permanent error.", "op", op, "attempt", attempt, "error", err)
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if attempt < MaxAttempts {
			logCtx.Warn(
				"Operation failed, retrying.",
				"op", op,
				"attempt", attempt,
				"maxAttempts", MaxAttempts,
				"error", err,
			)
		}
	}

	logCtx.Error("Hit max retries, giving up.", "op", op, "error", lastErr)
	return zero, fmt.Errorf("%s: %w: %w", op, ErrRetriesExhausted, lastErr)
}
