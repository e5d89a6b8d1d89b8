package engine

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldforge/internal/registry"
	"github.com/OCAP2/fieldforge/pkg/core"
)

type world struct {
	mu       sync.Mutex
	entities []core.Entity
	applied  map[uuid.UUID]core.Vec3
}

func (w *world) EntitiesNear(name string, c core.Vec3, half float64) []core.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []core.Entity
	for _, e := range w.entities {
		p := e.Location.Position
		if e.Location.World == name && math.Abs(p.X-c.X) <= half && math.Abs(p.Y-c.Y) <= half && math.Abs(p.Z-c.Z) <= half {
			out = append(out, e)
		}
	}
	return out
}

func (w *world) IsLoaded(core.Location) bool { return true }

func (w *world) ApplyForce(id uuid.UUID, v core.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.applied == nil {
		w.applied = map[uuid.UUID]core.Vec3{}
	}
	w.applied[id] = v
}

type events struct {
	mu  sync.Mutex
	all []core.FieldEvent
}

func (e *events) Notify(ev core.FieldEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, ev)
}

type memStore struct {
	records []string
	failing error
}

func (m *memStore) Load() ([]string, error) { return m.records, m.failing }

func (m *memStore) Save(r []string) error {
	if m.failing != nil {
		return m.failing
	}
	m.records = append([]string(nil), r...)
	return nil
}

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	admin = uuid.MustParse("00000000-0000-0000-0000-0000000000ad")
)

func radial(x, strength, rng float64) core.Spec {
	return core.Spec{
		Kind:     core.KindRadial,
		Location: core.Location{World: "altis", Position: core.Vec3{X: x}},
		Strength: strength,
		Range:    rng,
	}
}

func newService(t *testing.T, w *world, ev *events, store Store) *Service {
	t.Helper()
	opts := Options{
		World:        w,
		Authorizer:   registry.AuthorizerFunc(func(id uuid.UUID) bool { return id == admin }),
		Store:        store,
		MaxPerPlayer: -1,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if ev != nil {
		opts.Notifier = ev
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresWorld(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestCreateField_QuotaAndBool(t *testing.T) {
	s := newService(t, &world{}, nil, nil)

	for i := 0; i < registry.DefaultMaxPerPlayer; i++ {
		assert.True(t, s.CreateField(radial(float64(i), 1, 5), alice))
	}
	assert.False(t, s.CreateField(radial(9, 1, 5), alice))
	_, err := s.DoCreateField(radial(9, 1, 5), alice)
	assert.ErrorIs(t, err, registry.ErrQuotaExceeded)

	assert.False(t, s.CreateField(radial(0, 1, -1), bob), "invalid range")
	assert.Equal(t, 3, s.FieldCount())
	assert.Len(t, s.ListByOwner(alice), 3)
	assert.Empty(t, s.ListByOwner(bob))
}

func TestCreateField_RejectsUnstorableWorld(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	spec := radial(0, 1, 5)
	spec.Location.World = "world,nether"
	assert.False(t, s.CreateField(spec, uuid.Nil))
	spec.Location.World = " world"
	_, err := s.DoCreateField(spec, uuid.Nil)
	assert.ErrorIs(t, err, core.ErrInvalidField)
	assert.Zero(t, s.FieldCount())
}

func TestZeroQuota(t *testing.T) {
	s, err := New(Options{World: &world{}, MaxPerPlayer: 0, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	assert.Zero(t, s.Status().Quota)
	assert.False(t, s.CreateField(radial(0, 1, 5), alice))
	assert.True(t, s.CreateField(radial(0, 1, 5), uuid.Nil), "system fields ignore the quota")

	s.SetLimits(2, 0)
	assert.True(t, s.CreateField(radial(1, 1, 5), alice))
	s.SetLimits(0, 0)
	assert.Zero(t, s.Status().Quota)
	assert.False(t, s.CreateField(radial(2, 1, 5), bob))
	s.SetLimits(-1, 0)
	assert.Equal(t, registry.DefaultMaxPerPlayer, s.Status().Quota)
}

func TestDoCreateField_ReturnsIndex(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	e1, err := s.DoCreateField(radial(0, 1, 5), alice)
	require.NoError(t, err)
	e2, err := s.DoCreateField(radial(1, 1, 5), bob)
	require.NoError(t, err)

	assert.Equal(t, 0, e1.Index)
	assert.Equal(t, 1, e2.Index)
	assert.NotEqual(t, e1.Field.Handle, e2.Field.Handle)
}

func TestMutations_Permissions(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	require.True(t, s.CreateField(radial(0, 1, 5), alice))

	assert.False(t, s.ModifyStrength(0, 5, bob))
	_, err := s.DoToggleActive(0, bob)
	assert.ErrorIs(t, err, registry.ErrPermissionDenied)

	assert.True(t, s.ModifyStrength(0, 5, alice))
	assert.True(t, s.ToggleVisuals(0, admin))
	assert.True(t, s.SetActive(0, false, alice))

	f := s.ListAll()[0]
	assert.Equal(t, 5.0, f.Strength)
	assert.False(t, f.VisualsEnabled)
	assert.False(t, f.Active)

	assert.True(t, s.ToggleActive(0, alice))
	assert.True(t, s.ListAll()[0].Active)

	assert.False(t, s.RemoveField(4, alice), "out of range index")
	assert.False(t, s.RemoveField(0, bob))
	assert.True(t, s.RemoveField(0, admin))
	assert.Zero(t, s.FieldCount())
}

func TestRunOneTick_AppliesForceAndEvents(t *testing.T) {
	id := uuid.New()
	w := &world{entities: []core.Entity{{
		ID:       id,
		Location: core.Location{World: "altis", Position: core.Vec3{X: 3}},
		Alive:    true,
	}}}
	ev := &events{}
	s := newService(t, w, ev, nil)
	require.True(t, s.CreateField(radial(0, 10, 5), uuid.Nil))

	stats := s.RunOneTick()
	assert.Equal(t, uint64(1), stats.Tick)
	assert.Equal(t, 1, stats.FieldsProcessed)
	assert.Equal(t, 1, stats.Enters)
	assert.Equal(t, uint64(1), s.Tick())

	f := w.applied[id]
	assert.InDelta(t, -10.0/9.0, f.X, 1e-9)

	require.Len(t, ev.all, 1)
	assert.Equal(t, core.EventEnter, ev.all[0].Type)

	require.True(t, s.RemoveField(0, uuid.Nil))
	stats = s.RunOneTick()
	assert.Equal(t, 1, stats.Exits)
	require.Len(t, ev.all, 2)
	assert.Equal(t, core.EventExit, ev.all[1].Type)
	assert.Equal(t, -1, ev.all[1].Index)
}

func TestRunOneTick_Expiry(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	spec := radial(0, 1, 5)
	spec.ExpiresAfter = 3
	require.True(t, s.CreateField(spec, alice))
	require.True(t, s.CreateField(radial(1, 1, 5), alice))

	var expired int
	for i := 0; i < 3; i++ {
		expired += s.RunOneTick().FieldsExpired
	}
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, s.FieldCount())
	assert.Len(t, s.ListByOwner(alice), 1)
	assert.True(t, s.CreateField(radial(2, 1, 5), alice), "quota released by expiry")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := &memStore{}
	s := newService(t, &world{}, nil, store)
	require.True(t, s.CreateField(radial(1, 2, 3), alice))
	lin := core.Spec{
		Kind:      core.KindLinear,
		Location:  core.Location{World: "stratis", Position: core.Vec3{X: 1, Y: 2, Z: 3}},
		Strength:  4,
		Range:     8,
		Direction: core.Vec3{Z: 2},
	}
	require.True(t, s.CreateField(lin, uuid.Nil))
	require.True(t, s.ToggleVisuals(1, admin))

	n, err := s.SaveAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.records, 2)

	before := s.ListAll()
	s.Clear()
	assert.Zero(t, s.FieldCount())

	n, err = s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after := s.ListAll()
	require.Len(t, after, 2)
	for i := range before {
		before[i].Handle, after[i].Handle = 0, 0
	}
	assert.Equal(t, before, after)
}

func TestLoadAll_SkipsCorrupt(t *testing.T) {
	store := &memStore{records: []string{"garbage", "radial,altis,0,0,0,1,5,none,none,0,true,true"}}
	s := newService(t, &world{}, nil, store)

	n, err := s.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.FieldCount())
}

func TestLoadAll_StoreErrors(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	_, err := s.LoadAll()
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = s.SaveAll()
	assert.ErrorIs(t, err, ErrNoStore)

	boom := errors.New("disk gone")
	s = newService(t, &world{}, nil, &memStore{failing: boom})
	_, err = s.LoadAll()
	assert.ErrorIs(t, err, boom)
	_, err = s.SaveAll()
	assert.ErrorIs(t, err, boom)
}

func TestEntriesAndStatus(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	spec := radial(0, 1, 5)
	spec.ExpiresAfter = 10
	require.True(t, s.CreateField(spec, alice))
	require.True(t, s.CreateField(radial(1, 1, 5), bob))
	require.True(t, s.SetActive(1, false, bob))

	mine := s.Entries(bob)
	require.Len(t, mine, 1)
	assert.Equal(t, 1, mine[0].Index)

	all := s.Entries(uuid.Nil)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(10), all[0].ExpiresAt)
	assert.Zero(t, all[1].ExpiresAt)

	s.SetLimits(5, 2.5)
	st := s.Status()
	assert.Equal(t, 2, st.Fields)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 2, st.Owners)
	assert.Equal(t, 5, st.Quota)
	assert.Equal(t, 2.5, st.MaxForce)
}

func TestConcurrentMutationsAndTicks(t *testing.T) {
	s := newService(t, &world{}, nil, nil)
	s.SetLimits(1000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.CreateField(radial(float64(j), 1, 5), alice)
				s.RunOneTick()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 160, s.FieldCount())
	assert.Equal(t, uint64(160), s.Tick())
}
