// internal/storage/memory/memory.go
package memory

import "sync"

// Backend keeps records in process memory. Records are lost on exit.
type Backend struct {
	records []string
	saves   int
	mu      sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Load returns a copy of the last saved records.
func (b *Backend) Load() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.records...), nil
}

// Save replaces the held records with a copy of records.
func (b *Backend) Save(records []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append([]string(nil), records...)
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *Backend) Saves() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.saves
}
