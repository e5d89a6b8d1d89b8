// Package render turns render requests into particle and sound effects on a
// fixed cadence.
package render

import (
	"log/slog"
	"math"
	"sync"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/pkg/core"
)

const (
	defaultDensity = 0.5
	// maxPoints bounds a single pattern so huge ranges cannot flood the host.
	maxPoints = 2048

	LeavesParticle = "minecraft:falling_obsidian_tear"
)

// Effects is implemented by the host integration.
type Effects interface {
	SpawnParticle(loc core.Location, particle string)
	PlaySound(loc core.Location, sound string, volume, pitch float32)
}

// Renderer implements sim.Renderer. Its counter is shared by all fields:
// every particleInterval-th request draws, every soundInterval-th plays a sound.
type Renderer struct {
	mu      sync.Mutex
	cfg     config.RenderConfig
	fx      Effects
	log     *slog.Logger
	counter uint64
}

func New(cfg config.RenderConfig, fx Effects, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{cfg: cfg, fx: fx, log: log}
}

// SetConfig swaps the render settings, e.g. after a config reload.
func (r *Renderer) SetConfig(cfg config.RenderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

func (r *Renderer) Render(req core.RenderRequest) {
	r.mu.Lock()
	r.counter++
	n := r.counter
	cfg := r.cfg
	r.mu.Unlock()

	if !due(n, cfg.ParticleInterval) {
		return
	}

	kind := req.Kind.String()
	particle := cfg.ParticleTypes[kind]
	for _, p := range Pattern(req.Kind, req.Range, req.Direction, cfg.ParticleDensity) {
		r.fx.SpawnParticle(core.Location{World: req.Location.World, Position: req.Location.Position.Add(p)}, particle)
	}
	if req.Kind == core.KindVortex && cfg.VortexLeaves {
		r.fx.SpawnParticle(req.Location, LeavesParticle)
	}
	if due(n, cfg.SoundInterval) {
		if sound := cfg.SoundEffects[kind]; sound != "" {
			r.fx.PlaySound(req.Location, sound, 1, 1)
		}
	}
}

func due(n uint64, every int) bool {
	if every <= 1 {
		return true
	}
	return n%uint64(every) == 0
}

// Pattern returns particle offsets from the field center.
//
//	radial: flat spiral out to range
//	linear: ray of length range along direction
//	vortex: helix of radius range/2 rising over range turns
func Pattern(kind core.Kind, rng float64, dir core.Vec3, density float64) []core.Vec3 {
	if density <= 0 || math.IsNaN(density) {
		density = defaultDensity
	}
	if rng <= 0 || math.IsNaN(rng) || math.IsInf(rng, 0) {
		return nil
	}

	var out []core.Vec3
	switch kind {
	case core.KindRadial:
		for i := 0.0; i < rng && len(out) < maxPoints; i += density {
			out = append(out, core.Vec3{X: math.Cos(i) * i, Z: math.Sin(i) * i})
		}
	case core.KindLinear:
		step := dir.Normalize().Scale(density)
		cur := core.Vec3{}
		for i := 0.0; i < rng && len(out) < maxPoints; i += density {
			out = append(out, cur)
			cur = cur.Add(step)
		}
	case core.KindVortex:
		radius := rng / 2
		for i := 0.0; i < rng*2*math.Pi && len(out) < maxPoints; i += density {
			out = append(out, core.Vec3{X: math.Cos(i) * radius, Y: i / 2, Z: math.Sin(i) * radius})
		}
	}
	return out
}
