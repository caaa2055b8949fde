// Package driven defines the driven ports (outbound dependencies) of the
// application layer: record persistence and the chat-platform surfaces the
// core talks to.
package driven

import (
	"context"
	"errors"

	"github.com/mjoubert/viproster/internal/domain/model"
)

// ErrRecordNotFound is returned by VipStore.Delete when the holder has no
// record. Callers use it to tell "nothing to remove" apart from a storage
// failure.
var ErrRecordNotFound = errors.New("vip record not found")

// VipStore defines the driven port for VIP record persistence. The store is
// the single source of truth; a successful Upsert must be durable before it
// returns, because the expiry engine relies on alert flags persisting between
// passes.
type VipStore interface {
	// Get retrieves a single record by holder ID.
	// Returns nil, nil if no record exists.
	Get(ctx context.Context, holderID string) (*model.VipRecord, error)

	// Upsert inserts or fully replaces the record keyed by rec.HolderID.
	// Alerts are replaced wholesale, never merged, so that extend and
	// set-permanent can reset them explicitly.
	Upsert(ctx context.Context, rec model.VipRecord) error

	// Delete removes a record. Returns an error wrapping ErrRecordNotFound
	// if the record does not exist.
	Delete(ctx context.Context, holderID string) error

	// ListAll returns every record, ordered by holder ID.
	ListAll(ctx context.Context) ([]model.VipRecord, error)

	// ListExpiring returns all non-permanent records with an expiry set,
	// ordered by expiry ascending. This is the working set of an expiry pass.
	ListExpiring(ctx context.Context) ([]model.VipRecord, error)
}
