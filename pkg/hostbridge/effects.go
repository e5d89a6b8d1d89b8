package hostbridge

import (
	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// Callback names emitted by Effects.
const (
	CallbackParticle = ":FX:PARTICLE:"
	CallbackSound    = ":FX:SOUND:"
	CallbackForce    = ":FX:FORCE:"
)

// Effects forwards render and force output to the host as callbacks.
type Effects struct {
	Bridge *Bridge
}

type particle struct {
	World    string     `json:"world"`
	Position [3]float64 `json:"position"`
	Particle string     `json:"particle"`
}

type sound struct {
	World    string     `json:"world"`
	Position [3]float64 `json:"position"`
	Sound    string     `json:"sound"`
	Volume   float32    `json:"volume"`
	Pitch    float32    `json:"pitch"`
}

type force struct {
	Entity string     `json:"entity"`
	Force  [3]float64 `json:"force"`
}

func vec(v core.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// SpawnParticle implements render.Effects.
func (e Effects) SpawnParticle(loc core.Location, name string) {
	e.send(CallbackParticle, particle{World: loc.World, Position: vec(loc.Position), Particle: name})
}

// PlaySound implements render.Effects.
func (e Effects) PlaySound(loc core.Location, name string, volume, pitch float32) {
	e.send(CallbackSound, sound{World: loc.World, Position: vec(loc.Position), Sound: name, Volume: volume, Pitch: pitch})
}

// Force reports a force applied to an entity.
func (e Effects) Force(id uuid.UUID, f core.Vec3) {
	e.send(CallbackForce, force{Entity: id.String(), Force: vec(f)})
}

func (e Effects) send(name string, data any) {
	if err := e.Bridge.Callback(name, data); err != nil {
		e.Bridge.log.Debug("callback failed", "callback", name, "error", err)
	}
}
