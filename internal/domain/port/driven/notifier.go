package driven

import "context"

// Notifier defines the driven port for the staff alert channel. Sends are
// fire-and-forget from the core's perspective: failures are logged by the
// caller, never retried inline.
type Notifier interface {
	Send(ctx context.Context, text string) error
}
