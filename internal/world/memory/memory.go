// Package memory is an in-process host world. The host pushes entity
// snapshots and region state into it; forces are integrated into velocity
// and forwarded to an optional hook.
package memory

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

type body struct {
	entity   core.Entity
	velocity core.Vec3
}

// World implements sim.World.
type World struct {
	mu       sync.RWMutex
	bodies   map[uuid.UUID]*body
	unloaded map[string]bool
	onForce  func(id uuid.UUID, force core.Vec3)
}

func New() *World {
	return &World{
		bodies:   make(map[uuid.UUID]*body),
		unloaded: make(map[string]bool),
	}
}

// OnForce registers a hook called for every applied force.
func (w *World) OnForce(fn func(id uuid.UUID, force core.Vec3)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onForce = fn
}

// Upsert stores an entity snapshot, keeping its accumulated velocity.
func (w *World) Upsert(e core.Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[e.ID]; ok {
		b.entity = e
		return
	}
	w.bodies[e.ID] = &body{entity: e}
}

func (w *World) Remove(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
}

// SetWorldLoaded marks a whole world as loaded or unloaded.
func (w *World) SetWorldLoaded(world string, loaded bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if loaded {
		delete(w.unloaded, world)
	} else {
		w.unloaded[world] = true
	}
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bodies)
}

// EntitiesNear returns entities inside the axis-aligned box, ordered by id.
func (w *World) EntitiesNear(world string, center core.Vec3, halfExtent float64) []core.Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []core.Entity
	for _, b := range w.bodies {
		e := b.entity
		if e.Location.World != world {
			continue
		}
		p := e.Location.Position
		if math.Abs(p.X-center.X) > halfExtent || math.Abs(p.Y-center.Y) > halfExtent || math.Abs(p.Z-center.Z) > halfExtent {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].ID[:]) < string(out[j].ID[:])
	})
	return out
}

func (w *World) IsLoaded(loc core.Location) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.unloaded[loc.World]
}

// ApplyForce adds force to the entity's velocity. Unknown entities are ignored.
func (w *World) ApplyForce(id uuid.UUID, force core.Vec3) {
	w.mu.Lock()
	b, ok := w.bodies[id]
	if ok {
		b.velocity = b.velocity.Add(force)
	}
	hook := w.onForce
	w.mu.Unlock()

	if ok && hook != nil {
		hook(id, force)
	}
}

// Velocity returns the accumulated velocity of an entity.
func (w *World) Velocity(id uuid.UUID) (core.Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bodies[id]
	if !ok {
		return core.Vec3{}, false
	}
	return b.velocity, true
}

// Advance moves every living entity by its velocity.
func (w *World) Advance() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, b := range w.bodies {
		if b.entity.Alive {
			b.entity.Location.Position = b.entity.Location.Position.Add(b.velocity)
		}
	}
}
