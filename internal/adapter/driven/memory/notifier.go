package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier records sent alerts and mirrors them to the log. Used in
// development mode when no webhook URL is configured.
type Notifier struct {
	mu    sync.Mutex
	sent  []string
	quiet bool
}

// NewNotifier creates a Notifier. quiet suppresses log mirroring (tests).
func NewNotifier(quiet bool) *Notifier {
	return &Notifier{quiet: quiet}
}

// Send records the alert text.
func (n *Notifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	n.sent = append(n.sent, text)
	n.mu.Unlock()

	if !n.quiet {
		slog.Info("staff alert", "text", text)
	}
	return nil
}

// Sent returns a copy of all recorded alerts. Test helper.
func (n *Notifier) Sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, len(n.sent))
	copy(out, n.sent)
	return out
}
