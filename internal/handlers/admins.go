package handlers

import (
	"sync"

	"github.com/google/uuid"
)

// AdminSet is a reloadable registry.Authorizer.
type AdminSet struct {
	mu  sync.RWMutex
	ids map[uuid.UUID]struct{}
}

// NewAdminSet parses ids; invalid entries are returned so the caller can log them.
func NewAdminSet(ids []string) (*AdminSet, []string) {
	a := &AdminSet{}
	return a, a.Replace(ids)
}

// Replace swaps the admin list and returns entries that are not UUIDs.
func (a *AdminSet) Replace(ids []string) (invalid []string) {
	next := make(map[uuid.UUID]struct{}, len(ids))
	for _, s := range ids {
		id, err := uuid.Parse(s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		next[id] = struct{}{}
	}
	a.mu.Lock()
	a.ids = next
	a.mu.Unlock()
	return invalid
}

func (a *AdminSet) IsAdmin(id uuid.UUID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.ids[id]
	return ok
}
