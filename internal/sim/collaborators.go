package sim

import (
	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// SpatialQuery returns the entities inside an axis-aligned box.
type SpatialQuery interface {
	EntitiesNear(world string, center core.Vec3, halfExtent float64) []core.Entity
}

// RegionChecker reports whether a region may be queried this tick.
type RegionChecker interface {
	IsLoaded(loc core.Location) bool
}

// ForceApplier applies an aggregated force to an entity's motion.
type ForceApplier interface {
	ApplyForce(entity uuid.UUID, force core.Vec3)
}

// Renderer draws a field. Calls are fire-and-forget.
type Renderer interface {
	Render(req core.RenderRequest)
}

// Notifier receives enter and exit events.
type Notifier interface {
	Notify(ev core.FieldEvent)
}

// World bundles the host capabilities the tick needs.
type World interface {
	SpatialQuery
	RegionChecker
	ForceApplier
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(core.FieldEvent)

func (f NotifierFunc) Notify(ev core.FieldEvent) { f(ev) }

// Notifiers fans an event out to several notifiers in order.
type Notifiers []Notifier

func (n Notifiers) Notify(ev core.FieldEvent) {
	for _, x := range n {
		x.Notify(ev)
	}
}

type nopRenderer struct{}

func (nopRenderer) Render(core.RenderRequest) {}

type nopNotifier struct{}

func (nopNotifier) Notify(core.FieldEvent) {}
