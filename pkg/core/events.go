// pkg/core/events.go
package core

import "github.com/google/uuid"

// EventType distinguishes field membership transitions.
type EventType string

const (
	EventEnter EventType = "field_enter"
	EventExit  EventType = "field_exit"
)

// FieldEvent reports an entity entering or leaving a field's range.
type FieldEvent struct {
	Type   EventType `json:"type"`
	Tick   uint64    `json:"tick"`
	Entity uuid.UUID `json:"entity"`
	Field  Handle    `json:"field"`
	// Index is the field's registry index when the event fired, -1 if the
	// field no longer exists.
	Index    int      `json:"index"`
	Kind     Kind     `json:"kind"`
	Location Location `json:"location"`
}

// RenderRequest asks the host to draw a field. It is fire-and-forget.
type RenderRequest struct {
	Tick      uint64
	Field     Handle
	Kind      Kind
	Location  Location
	Range     float64
	Direction Vec3
}

// TickStats summarizes one simulation pass.
type TickStats struct {
	Tick             uint64 `json:"tick"`
	FieldsTotal      int    `json:"fieldsTotal"`
	FieldsProcessed  int    `json:"fieldsProcessed"`
	FieldsSkipped    int    `json:"fieldsSkipped"`
	FieldsFailed     int    `json:"fieldsFailed"`
	FieldsExpired    int    `json:"fieldsExpired"`
	EntitiesAffected int    `json:"entitiesAffected"`
	Enters           int    `json:"enters"`
	Exits            int    `json:"exits"`
	DurationMicros   int64  `json:"durationMicros"`
}
