// Package memory provides in-memory implementations of the chat-platform
// ports, used in development mode and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/mjoubert/viproster/internal/domain/model"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RoleSource = (*RoleSource)(nil)

// RoleSource tracks role membership in a map. Holders granted the role
// without a known display name fall back to their ID for roster ordering.
type RoleSource struct {
	mu      sync.Mutex
	holders map[string]model.Holder
}

// NewRoleSource creates an empty RoleSource.
func NewRoleSource() *RoleSource {
	return &RoleSource{holders: make(map[string]model.Holder)}
}

// Seed replaces the membership with the given holders. Test setup helper.
func (r *RoleSource) Seed(holders ...model.Holder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.holders = make(map[string]model.Holder, len(holders))
	for _, h := range holders {
		r.holders[h.ID] = h
	}
}

// HasRole reports whether the holder currently carries the role.
func (r *RoleSource) HasRole(_ context.Context, holderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.holders[holderID]
	return ok, nil
}

// AddRole grants the role. Idempotent.
func (r *RoleSource) AddRole(_ context.Context, holderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.holders[holderID]; !ok {
		r.holders[holderID] = model.Holder{ID: holderID, DisplayName: holderID}
	}
	return nil
}

// RemoveRole revokes the role. Returns driven.ErrNotFound when the holder
// does not carry it.
func (r *RoleSource) RemoveRole(_ context.Context, holderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.holders[holderID]; !ok {
		return driven.ErrNotFound
	}
	delete(r.holders, holderID)
	return nil
}

// ListHolders returns the current membership in unspecified order.
func (r *RoleSource) ListHolders(_ context.Context) ([]model.Holder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holders := make([]model.Holder, 0, len(r.holders))
	for _, h := range r.holders {
		holders = append(holders, h)
	}
	return holders, nil
}
