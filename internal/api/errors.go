package api

import (
	"context"
	"errors"
	"fmt"
)

// NotFoundError indicates the provider has no resource at the requested
// path. Callers treat it as a skip, never as a failure.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

// AuthError indicates the API token was rejected. It is fatal wherever it
// occurs: an invalid credential cannot be retried away.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (HTTP %d): check the API token", e.StatusCode)
}

// StatusError is any other non-2xx response, surfaced after the retry
// budget is exhausted for retryable statuses.
type StatusError struct {
	StatusCode int
	URL        string
	Attempts   int
}

func (e *StatusError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("HTTP %d from %s after %d attempts", e.StatusCode, e.URL, e.Attempts)
	}
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is a 404 from the provider.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAuth reports whether err is a credential rejection.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// retryableStatus reports whether a status code is worth another attempt:
// rate limits and server-side failures.
func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

// retryableTransport reports whether a transport-level failure (timeout,
// connection reset, DNS hiccup) is worth another attempt. A canceled or
// expired caller context is not.
func retryableTransport(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == nil
}
