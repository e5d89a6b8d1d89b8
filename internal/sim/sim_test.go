package sim

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldforge/pkg/core"
)

type applied struct {
	id    uuid.UUID
	force core.Vec3
}

type fakeWorld struct {
	entities []core.Entity
	unloaded map[string]bool
	applied  []applied
	queries  int
	panicOn  string
}

func (w *fakeWorld) EntitiesNear(world string, center core.Vec3, half float64) []core.Entity {
	w.queries++
	if world == w.panicOn {
		panic("query exploded")
	}
	var out []core.Entity
	for _, e := range w.entities {
		p := e.Location.Position
		if e.Location.World != world ||
			math.Abs(p.X-center.X) > half || math.Abs(p.Y-center.Y) > half || math.Abs(p.Z-center.Z) > half {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (w *fakeWorld) IsLoaded(loc core.Location) bool { return !w.unloaded[loc.World] }

func (w *fakeWorld) ApplyForce(id uuid.UUID, v core.Vec3) {
	w.applied = append(w.applied, applied{id, v})
}

func (w *fakeWorld) move(id uuid.UUID, x, y, z float64) {
	for i := range w.entities {
		if w.entities[i].ID == id {
			w.entities[i].Location.Position = core.Vec3{X: x, Y: y, Z: z}
		}
	}
}

type recorder struct {
	events  []core.FieldEvent
	renders []core.RenderRequest
}

func (r *recorder) Notify(ev core.FieldEvent)     { r.events = append(r.events, ev) }
func (r *recorder) Render(req core.RenderRequest) { r.renders = append(r.renders, req) }

func (r *recorder) count(t core.EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func entity(n byte, world string, x, y, z float64) core.Entity {
	var id uuid.UUID
	id[15] = n
	return core.Entity{ID: id, Location: core.Location{World: world, Position: core.Vec3{X: x, Y: y, Z: z}}, Alive: true}
}

func field(t *testing.T, h core.Handle, kind core.Kind, world string, strength, rng float64) core.Field {
	t.Helper()
	spec := core.Spec{Kind: kind, Location: core.Location{World: world}, Strength: strength, Range: rng}
	if kind == core.KindLinear {
		spec.Direction = core.Vec3{X: 1}
	}
	f, err := core.NewField(spec, uuid.Nil)
	require.NoError(t, err)
	f.Handle = h
	return f
}

func newSim(t *testing.T, w *fakeWorld, rec *recorder, maxForce float64) *Simulator {
	t.Helper()
	s, err := New(Options{World: w, Renderer: rec, Notifier: rec, MaxForce: maxForce})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresWorld(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStep_AggregatesAcrossFields(t *testing.T) {
	e := entity(1, "w", 2, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}}
	rec := &recorder{}
	s := newSim(t, w, rec, 100)

	radial := field(t, 1, core.KindRadial, "w", 8, 5)  // 8/4 = 2 toward origin: (-2,0,0)
	linear := field(t, 2, core.KindLinear, "w", 0.5, 5) // (0.5,0,0)

	stats := s.Step(1, []core.Field{radial, linear})

	require.Len(t, w.applied, 1, "one force request per entity")
	assert.Equal(t, e.ID, w.applied[0].id)
	assert.InDelta(t, -1.5, w.applied[0].force.X, 1e-12)
	assert.Equal(t, 1, stats.EntitiesAffected)
	assert.Equal(t, 2, stats.FieldsProcessed)
	assert.Equal(t, 2, stats.Enters)
}

func TestStep_ClampsToExactCapPreservingDirection(t *testing.T) {
	e := entity(1, "w", 0.5, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}}
	s := newSim(t, w, &recorder{}, 5)

	s.Step(1, []core.Field{field(t, 1, core.KindRadial, "w", 10, 5)}) // raw 40

	require.Len(t, w.applied, 1)
	v := w.applied[0].force
	assert.InDelta(t, 5, v.Length(), 1e-12)
	assert.InDelta(t, -5, v.X, 1e-12)

	w.applied = nil
	w.move(e.ID, 3, 0, 0)
	s.Step(2, []core.Field{field(t, 1, core.KindRadial, "w", 10, 5)}) // raw 10/9

	require.Len(t, w.applied, 1)
	assert.InDelta(t, -10.0/9.0, w.applied[0].force.X, 1e-12, "below the cap is untouched")
}

func TestStep_NoRequestForUntouchedOrCancelled(t *testing.T) {
	inside := entity(1, "w", 1, 0, 0)
	far := entity(2, "w", 4, 4, 4) // in the box but beyond range 5
	w := &fakeWorld{entities: []core.Entity{inside, far}}
	s := newSim(t, w, &recorder{}, 100)

	plus := field(t, 1, core.KindLinear, "w", 1, 5)
	minus := field(t, 2, core.KindLinear, "w", -1, 5)

	stats := s.Step(1, []core.Field{plus, minus})

	assert.Empty(t, w.applied, "sum is zero and the far entity is out of range")
	assert.Equal(t, 0, stats.EntitiesAffected)
	assert.True(t, s.Membership().Inside(inside.ID, 1))
	assert.False(t, s.Membership().Inside(far.ID, 1))
}

func TestStep_EnterExitExactlyOnce(t *testing.T) {
	e := entity(1, "w", 10, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)
	fields := []core.Field{field(t, 7, core.KindRadial, "w", 1, 5)}

	s.Step(1, fields)
	assert.Empty(t, rec.events)

	w.move(e.ID, 3, 0, 0)
	s.Step(2, fields)
	s.Step(3, fields)
	s.Step(4, fields)
	require.Len(t, rec.events, 1)
	assert.Equal(t, core.EventEnter, rec.events[0].Type)
	assert.Equal(t, uint64(2), rec.events[0].Tick)
	assert.Equal(t, core.Handle(7), rec.events[0].Field)
	assert.Equal(t, 0, rec.events[0].Index)

	w.move(e.ID, 6, 0, 0)
	s.Step(5, fields)
	s.Step(6, fields)
	require.Len(t, rec.events, 2)
	assert.Equal(t, core.EventExit, rec.events[1].Type)
	assert.Equal(t, 0, s.Membership().Entities(), "empty entries are dropped")
}

func TestStep_PerFieldTransitionsNotDeduplicated(t *testing.T) {
	e := entity(1, "w", 1, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	fields := []core.Field{
		field(t, 1, core.KindRadial, "w", 1, 5),
		field(t, 2, core.KindVortex, "w", 1, 5),
	}
	s.Step(1, fields)
	assert.Equal(t, 2, rec.count(core.EventEnter))
	assert.Equal(t, []core.Handle{1, 2}, s.Membership().FieldsOf(e.ID))

	// leaves field 2 only
	fields[1] = field(t, 2, core.KindVortex, "w", 1, 0.5)
	s.Step(2, fields)
	assert.Equal(t, 1, rec.count(core.EventExit))
	assert.Equal(t, []core.Handle{1}, s.Membership().FieldsOf(e.ID))
}

func TestStep_RemovedAndDeactivatedFieldsReleaseMembers(t *testing.T) {
	a := entity(1, "w", 1, 0, 0)
	b := entity(2, "w", 0, 1, 0)
	w := &fakeWorld{entities: []core.Entity{a, b}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	f1 := field(t, 1, core.KindRadial, "w", 1, 5)
	f2 := field(t, 2, core.KindRadial, "w", 1, 5)
	s.Step(1, []core.Field{f1, f2})
	require.Equal(t, 4, rec.count(core.EventEnter))

	f2.Active = false
	s.Step(2, []core.Field{f2}) // f1 removed, f2 deactivated
	assert.Equal(t, 4, rec.count(core.EventExit))
	assert.Equal(t, 0, s.Membership().Entities())
	for _, ev := range rec.events[4:] {
		if ev.Field == 1 {
			assert.Equal(t, -1, ev.Index, "removed field has no index")
		} else {
			assert.Equal(t, 0, ev.Index)
		}
	}

	s.Step(3, []core.Field{f2})
	assert.Len(t, rec.events, 8, "no repeated exits")
	assert.Empty(t, w.applied[2:], "inactive field contributes nothing")
}

func TestStep_CorruptFieldReleasesMembers(t *testing.T) {
	a := entity(1, "w", 1, 0, 0)
	b := entity(2, "w", 0, 1, 0)
	w := &fakeWorld{entities: []core.Entity{a, b}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	f := field(t, 1, core.KindRadial, "w", 1, 5)
	s.Step(1, []core.Field{f})
	require.Equal(t, 2, rec.count(core.EventEnter))

	f.Range = -1
	stats := s.Step(2, []core.Field{f})
	assert.Equal(t, 1, stats.FieldsFailed)
	assert.Equal(t, 2, stats.Exits)
	assert.Equal(t, 2, rec.count(core.EventExit))
	assert.Equal(t, 0, s.Membership().Entities())
	for _, ev := range rec.events[2:] {
		assert.Equal(t, core.Handle(1), ev.Field)
		assert.Equal(t, 0, ev.Index)
		assert.Equal(t, uint64(2), ev.Tick)
	}

	stats = s.Step(3, []core.Field{f})
	assert.Equal(t, 1, stats.FieldsFailed)
	assert.Zero(t, stats.Exits)
	assert.Len(t, rec.events, 4, "no repeated exits")
}

func TestStep_UnloadedRegionSkippedAndKeepsMembers(t *testing.T) {
	e := entity(1, "w", 1, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}, unloaded: map[string]bool{}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)
	fields := []core.Field{field(t, 1, core.KindRadial, "w", 1, 5)}

	s.Step(1, fields)
	w.unloaded["w"] = true
	queries := w.queries
	stats := s.Step(2, fields)

	assert.Equal(t, 1, stats.FieldsSkipped)
	assert.Equal(t, queries, w.queries, "no query for an unloaded region")
	assert.Len(t, rec.events, 1)
	assert.True(t, s.Membership().Inside(e.ID, 1))
	assert.Len(t, rec.renders, 1)
}

func TestStep_DeadEntitiesFilteredBeforeForce(t *testing.T) {
	e := entity(1, "w", 1, 0, 0)
	e.Alive = false
	w := &fakeWorld{entities: []core.Entity{e}}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	s.Step(1, []core.Field{field(t, 1, core.KindRadial, "w", 1, 5)})
	assert.Empty(t, w.applied)
	assert.Empty(t, rec.events)
}

func TestStep_FailingFieldIsolated(t *testing.T) {
	good := entity(1, "w", 1, 0, 0)
	w := &fakeWorld{entities: []core.Entity{good}, panicOn: "boom"}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	corrupt := field(t, 1, core.KindRadial, "w", 1, 5)
	corrupt.Range = -1
	exploding := field(t, 2, core.KindRadial, "boom", 1, 5)
	ok := field(t, 3, core.KindRadial, "w", 1, 5)

	stats := s.Step(1, []core.Field{corrupt, exploding, ok})

	assert.Equal(t, 2, stats.FieldsFailed)
	assert.Equal(t, 1, stats.FieldsProcessed)
	require.Len(t, w.applied, 1)
	assert.Equal(t, good.ID, w.applied[0].id)
}

func TestStep_RenderOnlyWhenVisualsEnabled(t *testing.T) {
	w := &fakeWorld{}
	rec := &recorder{}
	s := newSim(t, w, rec, 5)

	visible := field(t, 1, core.KindLinear, "w", 1, 5)
	hidden := field(t, 2, core.KindLinear, "w", 1, 5)
	hidden.VisualsEnabled = false
	inactive := field(t, 3, core.KindLinear, "w", 1, 5)
	inactive.Active = false

	s.Step(1, []core.Field{visible, hidden, inactive})

	require.Len(t, rec.renders, 1)
	assert.Equal(t, core.Handle(1), rec.renders[0].Field)
	assert.Equal(t, core.Vec3{X: 1}, rec.renders[0].Direction)
}

func TestStep_PanickingRendererDoesNotAffectSimulation(t *testing.T) {
	e := entity(1, "w", 1, 0, 0)
	w := &fakeWorld{entities: []core.Entity{e}}
	s, err := New(Options{World: w, Renderer: panicRenderer{}})
	require.NoError(t, err)

	stats := s.Step(1, []core.Field{field(t, 1, core.KindRadial, "w", 1, 5)})
	assert.Equal(t, 1, stats.FieldsProcessed)
	assert.Len(t, w.applied, 1)
}

type panicRenderer struct{}

func (panicRenderer) Render(core.RenderRequest) { panic("no particles today") }

func TestStep_ForceOrderFollowsFirstTouch(t *testing.T) {
	a := entity(1, "w", 1, 0, 0)
	b := entity(2, "w", 20, 0, 0)
	w := &fakeWorld{entities: []core.Entity{a, b}}
	s := newSim(t, w, &recorder{}, 5)

	far := field(t, 1, core.KindLinear, "w", 1, 5)
	far.Location.Position = core.Vec3{X: 20}
	near := field(t, 2, core.KindLinear, "w", 1, 5)

	s.Step(1, []core.Field{far, near})
	require.Len(t, w.applied, 2)
	assert.Equal(t, b.ID, w.applied[0].id)
	assert.Equal(t, a.ID, w.applied[1].id)
}

func TestNotifiers_FanOut(t *testing.T) {
	var n1, n2 int
	n := Notifiers{
		NotifierFunc(func(core.FieldEvent) { n1++ }),
		NotifierFunc(func(core.FieldEvent) { n2++ }),
	}
	n.Notify(core.FieldEvent{})
	assert.Equal(t, 1, n1)
	assert.Equal(t, 1, n2)
}
