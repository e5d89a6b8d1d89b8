// internal/storage/storage.go
package storage

// Backend is the interface all storage implementations must satisfy. It
// persists the flattened field records in registry order.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Load returns every stored record. A store that was never saved
	// returns an empty list.
	Load() ([]string, error)

	// Save replaces the stored records with records.
	Save(records []string) error
}
