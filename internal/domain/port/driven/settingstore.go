package driven

import "context"

// SettingStore defines the driven port for small operational key-value state,
// such as the ID of the roster display object once created.
type SettingStore interface {
	// Get retrieves the value for the given key.
	// Returns ("", nil) if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value for the given key.
	Set(ctx context.Context, key, value string) error
}
