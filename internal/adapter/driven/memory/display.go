package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DisplayWriter = (*Display)(nil)

// Display stores display objects in a map keyed by generated UUIDs.
type Display struct {
	mu      sync.Mutex
	objects map[string]string
}

// NewDisplay creates an empty Display.
func NewDisplay() *Display {
	return &Display{objects: make(map[string]string)}
}

// Create publishes a new display object under a fresh UUID.
func (d *Display) Create(_ context.Context, content string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.NewString()
	d.objects[id] = content
	return id, nil
}

// Edit replaces the content of an existing object. Returns driven.ErrNotFound
// when the object does not exist.
func (d *Display) Edit(_ context.Context, id string, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.objects[id]; !ok {
		return driven.ErrNotFound
	}
	d.objects[id] = content
	return nil
}

// Content returns the content of an object and whether it exists. Test helper.
func (d *Display) Content(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	content, ok := d.objects[id]
	return content, ok
}

// Delete removes an object, simulating external deletion. Test helper.
func (d *Display) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.objects, id)
}
