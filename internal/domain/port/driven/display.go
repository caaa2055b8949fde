package driven

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by platform adapters when the referenced object
// (display object, role holder) no longer exists.
var ErrNotFound = errors.New("not found")

// ErrPermissionDenied is returned by platform adapters when the service
// lacks access to the target object or channel. Not retryable.
var ErrPermissionDenied = errors.New("permission denied")

// RateLimitedError is returned by a display write that was rejected by the
// platform's rate limiter. RetryAfter is the platform-advised wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// DisplayWriter defines the driven port for the single public display object
// holding the rendered roster.
type DisplayWriter interface {
	// Create publishes a new display object and returns its opaque ID.
	Create(ctx context.Context, content string) (string, error)

	// Edit replaces the content of an existing display object. Returns
	// ErrNotFound if the object was deleted externally.
	Edit(ctx context.Context, id string, content string) error
}
