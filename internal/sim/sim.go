// Package sim runs one simulation pass over the fields: it queries nearby
// entities, sums and clamps forces, tracks field membership and emits
// enter/exit events and render requests.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/internal/force"
	"github.com/OCAP2/fieldforge/pkg/core"
)

// DefaultMaxForce caps the aggregated force magnitude per entity.
const DefaultMaxForce = 5.0

// Options configures a Simulator.
type Options struct {
	World    World
	Renderer Renderer
	Notifier Notifier
	MaxForce float64
	Logger   *slog.Logger
}

// Simulator holds the membership table between ticks. It is not safe for
// concurrent use; one tick runs at a time.
type Simulator struct {
	world    World
	renderer Renderer
	notifier Notifier
	maxForce float64
	log      *slog.Logger
	members  *Membership
	metrics  *metrics
}

func New(opts Options) (*Simulator, error) {
	if opts.World == nil {
		return nil, errNoWorld
	}
	s := &Simulator{
		world:    opts.World,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		maxForce: opts.MaxForce,
		log:      opts.Logger,
		members:  NewMembership(),
	}
	if s.renderer == nil {
		s.renderer = nopRenderer{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.maxForce <= 0 {
		s.maxForce = DefaultMaxForce
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

// SetMaxForce changes the clamp for subsequent ticks.
func (s *Simulator) SetMaxForce(max float64) {
	if max > 0 {
		s.maxForce = max
	}
}

func (s *Simulator) MaxForce() float64 { return s.maxForce }

// Membership exposes the table for inspection.
func (s *Simulator) Membership() *Membership { return s.members }

// Reset forgets all membership without emitting exits.
func (s *Simulator) Reset() { s.members.Reset() }

// contribution is one field's force on one entity.
type contribution struct {
	entity uuid.UUID
	force  core.Vec3
}

// Step runs one pass over fields, which must be in registry order.
func (s *Simulator) Step(tick uint64, fields []core.Field) core.TickStats {
	start := time.Now()
	stats := core.TickStats{Tick: tick, FieldsTotal: len(fields)}

	index := make(map[core.Handle]int, len(fields))
	for i, f := range fields {
		index[f.Handle] = i
	}

	// Fields that vanished or were deactivated since last tick let go of
	// their members first.
	for _, h := range s.members.Fields() {
		i, ok := index[h]
		if ok && fields[i].Active {
			continue
		}
		ev := core.FieldEvent{Type: core.EventExit, Tick: tick, Field: h, Index: -1}
		if ok {
			ev.Index = i
			ev.Kind = fields[i].Kind
			ev.Location = fields[i].Location
		}
		for _, id := range s.members.Release(h) {
			ev.Entity = id
			s.emit(ev)
			stats.Exits++
		}
	}

	totals := make(map[uuid.UUID]core.Vec3)
	var order []uuid.UUID

	for i, f := range fields {
		if !f.Active {
			continue
		}
		contribs, entered, exited, err := s.stepField(tick, i, f)
		if errors.Is(err, errRegionUnloaded) {
			stats.FieldsSkipped++
			continue
		}
		if err != nil {
			stats.FieldsFailed++
			stats.Exits += exited
			s.log.Warn("field skipped this tick", "tick", tick, "index", i, "field", f.Handle, "error", err)
			continue
		}
		stats.FieldsProcessed++
		stats.Enters += entered
		stats.Exits += exited

		for _, c := range contribs {
			if _, seen := totals[c.entity]; !seen {
				order = append(order, c.entity)
			}
			totals[c.entity] = totals[c.entity].Add(c.force)
		}
	}

	for _, id := range order {
		v := totals[id]
		if v.IsZero() {
			continue
		}
		s.apply(id, v.ClampLength(s.maxForce))
		stats.EntitiesAffected++
	}

	elapsed := time.Since(start)
	stats.DurationMicros = elapsed.Microseconds()
	s.record(stats, elapsed)
	return stats
}

var (
	errNoWorld        = errors.New("sim: world is required")
	errRegionUnloaded = errors.New("region not loaded")
)

// stepField processes one field. Panics from collaborators are converted to
// errors so the remaining fields still run. Membership and events are only
// committed once the field's forces are computed.
func (s *Simulator) stepField(tick uint64, index int, f core.Field) (contribs []contribution, entered, exited int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := f.Validate(); err != nil {
		// a corrupt field keeps failing, so its members are let go now
		for _, id := range s.members.Release(f.Handle) {
			s.emit(core.FieldEvent{Type: core.EventExit, Tick: tick, Entity: id, Field: f.Handle, Index: index, Kind: f.Kind, Location: f.Location})
			exited++
		}
		return nil, 0, exited, err
	}
	if !s.world.IsLoaded(f.Location) {
		return nil, 0, 0, errRegionUnloaded
	}

	candidates := s.world.EntitiesNear(f.Location.World, f.Location.Position, f.Range)
	inside := make([]uuid.UUID, 0, len(candidates))
	for _, e := range candidates {
		if !e.Alive {
			continue
		}
		v, ok, cErr := force.Compute(f, e.Location)
		if cErr != nil {
			s.log.Debug("entity ignored", "field", f.Handle, "entity", e.ID, "error", cErr)
			continue
		}
		if !ok {
			continue
		}
		inside = append(inside, e.ID)
		contribs = append(contribs, contribution{entity: e.ID, force: v})
	}

	in, out := s.members.Reconcile(f.Handle, inside)
	for _, id := range in {
		s.emit(core.FieldEvent{Type: core.EventEnter, Tick: tick, Entity: id, Field: f.Handle, Index: index, Kind: f.Kind, Location: f.Location})
	}
	for _, id := range out {
		s.emit(core.FieldEvent{Type: core.EventExit, Tick: tick, Entity: id, Field: f.Handle, Index: index, Kind: f.Kind, Location: f.Location})
	}

	if f.VisualsEnabled {
		s.render(core.RenderRequest{
			Tick:      tick,
			Field:     f.Handle,
			Kind:      f.Kind,
			Location:  f.Location,
			Range:     f.Range,
			Direction: f.Direction,
		})
	}
	return contribs, len(in), len(out), nil
}

func (s *Simulator) emit(ev core.FieldEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notifier panicked", "event", ev.Type, "field", ev.Field, "panic", r)
		}
	}()
	s.notifier.Notify(ev)
}

func (s *Simulator) render(req core.RenderRequest) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("renderer panicked", "field", req.Field, "panic", r)
		}
	}()
	s.renderer.Render(req)
}

func (s *Simulator) apply(id uuid.UUID, v core.Vec3) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("force application panicked", "entity", id, "panic", r)
		}
	}()
	s.world.ApplyForce(id, v)
}

func (s *Simulator) record(stats core.TickStats, elapsed time.Duration) {
	ctx := context.Background()
	s.metrics.ticks.Add(ctx, 1)
	if stats.FieldsSkipped > 0 {
		s.metrics.skipped.Add(ctx, int64(stats.FieldsSkipped))
	}
	if stats.EntitiesAffected > 0 {
		s.metrics.applied.Add(ctx, int64(stats.EntitiesAffected))
	}
	if stats.Enters > 0 {
		s.metrics.enters.Add(ctx, int64(stats.Enters))
	}
	if stats.Exits > 0 {
		s.metrics.exits.Add(ctx, int64(stats.Exits))
	}
	s.metrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000)
}
