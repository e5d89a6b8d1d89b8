// pkg/core/entity.go
package core

import "github.com/google/uuid"

// Entity is a host-managed mobile object as seen by a spatial query.
type Entity struct {
	ID       uuid.UUID
	Location Location
	Alive    bool
}
