package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidQuery signals a malformed or out-of-bounds query, filter or paging parameter.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRateLimited signals that the caller must back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrIndexUnavailable signals that the document catalog failed or timed out.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrPermissionDenied signals filters that reference a scope the caller cannot access.
	ErrPermissionDenied = errors.New("permission denied")
)

// RateLimitedError wraps ErrRateLimited with the time the caller should wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited.Error(), e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// NewRateLimited creates a rate limit error carrying a retry hint.
func NewRateLimited(retryAfter time.Duration) error {
	return &RateLimitedError{RetryAfter: retryAfter}
}

// InvalidQuery wraps ErrInvalidQuery with a formatted reason.
func InvalidQuery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
