// Package engine is the public surface of the field simulation. It owns the
// registry and simulator and serializes every mutation, tick and
// persistence snapshot behind one lock.
//
// The boolean methods log the failure reason and return false; the Do*
// variants return the error for callers that present it to a player.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/internal/codec"
	"github.com/OCAP2/fieldforge/internal/registry"
	"github.com/OCAP2/fieldforge/internal/sim"
	"github.com/OCAP2/fieldforge/pkg/core"
)

// ErrNoStore is returned by LoadAll and SaveAll without a configured store.
var ErrNoStore = errors.New("no persistent store configured")

// Store reads and writes the flattened record list.
type Store interface {
	Load() ([]string, error)
	Save(records []string) error
}

// Options wires the service to its collaborators.
type Options struct {
	World        sim.World
	Renderer     sim.Renderer
	Notifier     sim.Notifier
	Authorizer   registry.Authorizer
	Store        Store
	// MaxPerPlayer caps fields per owner. Zero forbids owned fields; a
	// negative value selects registry.DefaultMaxPerPlayer.
	MaxPerPlayer int
	MaxForce     float64
	Logger       *slog.Logger
}

// Entry is a field together with its current index and expiry tick.
type Entry struct {
	Index     int        `json:"index"`
	Field     core.Field `json:"field"`
	ExpiresAt uint64     `json:"expiresAt,omitempty"`
}

// Status is a point-in-time summary for monitoring.
type Status struct {
	Tick     uint64         `json:"tick"`
	Fields   int            `json:"fields"`
	Active   int            `json:"active"`
	Owners   int            `json:"owners"`
	Members  int            `json:"members"`
	MaxForce float64        `json:"maxForce"`
	Quota    int            `json:"quota"`
	LastTick core.TickStats `json:"lastTick"`
}

// Service is safe for concurrent use.
type Service struct {
	mu    sync.Mutex
	reg   *registry.Registry
	sim   *sim.Simulator
	store Store
	log   *slog.Logger
	last  core.TickStats

	// readable without the lock, e.g. from a log context provider
	tick   atomic.Uint64
	fields atomic.Int64
}

func New(opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxPerPlayer < 0 {
		opts.MaxPerPlayer = registry.DefaultMaxPerPlayer
	}
	simulator, err := sim.New(sim.Options{
		World:    opts.World,
		Renderer: opts.Renderer,
		Notifier: opts.Notifier,
		MaxForce: opts.MaxForce,
		Logger:   opts.Logger.With("component", "sim"),
	})
	if err != nil {
		return nil, err
	}
	return &Service{
		reg:   registry.New(opts.MaxPerPlayer, opts.Authorizer),
		sim:   simulator,
		store: opts.Store,
		log:   opts.Logger,
	}, nil
}

// Tick returns the number of the last completed tick.
func (s *Service) Tick() uint64 { return s.tick.Load() }

// FieldCount returns the number of fields in the registry.
func (s *Service) FieldCount() int { return int(s.fields.Load()) }

func (s *Service) syncCount() { s.fields.Store(int64(s.reg.Len())) }

// SetLimits updates the quota and force clamp. A negative quota restores the
// default; a non-positive force clamp is ignored.
func (s *Service) SetLimits(maxPerPlayer int, maxForce float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.SetMaxPerPlayer(maxPerPlayer)
	s.sim.SetMaxForce(maxForce)
	s.log.Info("limits updated", "maxPerPlayer", s.reg.MaxPerPlayer(), "maxForce", s.sim.MaxForce())
}

// DoCreateField validates spec, enforces the owner's quota and appends the field.
func (s *Service) DoCreateField(spec core.Spec, owner uuid.UUID) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.reg.Create(spec, owner, s.tick.Load())
	if err != nil {
		return Entry{}, err
	}
	s.syncCount()
	at, _ := s.reg.ExpiresAt(f.Handle)
	e := Entry{Index: s.reg.Len() - 1, Field: f, ExpiresAt: at}
	s.log.Info("field created", "field", f.Handle, "index", e.Index, "kind", f.Kind,
		"world", f.Location.World, "owner", f.Owner, "expiresAt", at)
	return e, nil
}

func (s *Service) CreateField(spec core.Spec, owner uuid.UUID) bool {
	_, err := s.DoCreateField(spec, owner)
	return s.report("create", -1, owner, err)
}

// DoRemoveField removes the field at index; later indices shift down.
func (s *Service) DoRemoveField(index int, requester uuid.UUID) (core.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.reg.Remove(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	s.syncCount()
	s.log.Info("field removed", "field", f.Handle, "index", index, "requester", requester)
	return f, nil
}

func (s *Service) RemoveField(index int, requester uuid.UUID) bool {
	_, err := s.DoRemoveField(index, requester)
	return s.report("remove", index, requester, err)
}

func (s *Service) DoModifyStrength(index int, strength float64, requester uuid.UUID) (core.Field, error) {
	return s.mutate("strength", index, requester, func() (core.Field, error) {
		return s.reg.ModifyStrength(index, strength, requester)
	})
}

func (s *Service) ModifyStrength(index int, strength float64, requester uuid.UUID) bool {
	_, err := s.DoModifyStrength(index, strength, requester)
	return s.report("modify", index, requester, err)
}

func (s *Service) DoToggleActive(index int, requester uuid.UUID) (core.Field, error) {
	return s.mutate("active", index, requester, func() (core.Field, error) {
		return s.reg.ToggleActive(index, requester)
	})
}

func (s *Service) ToggleActive(index int, requester uuid.UUID) bool {
	_, err := s.DoToggleActive(index, requester)
	return s.report("toggleActive", index, requester, err)
}

func (s *Service) DoSetActive(index int, active bool, requester uuid.UUID) (core.Field, error) {
	return s.mutate("active", index, requester, func() (core.Field, error) {
		return s.reg.SetActive(index, active, requester)
	})
}

func (s *Service) SetActive(index int, active bool, requester uuid.UUID) bool {
	_, err := s.DoSetActive(index, active, requester)
	return s.report("setActive", index, requester, err)
}

func (s *Service) DoToggleVisuals(index int, requester uuid.UUID) (core.Field, error) {
	return s.mutate("visuals", index, requester, func() (core.Field, error) {
		return s.reg.ToggleVisuals(index, requester)
	})
}

func (s *Service) ToggleVisuals(index int, requester uuid.UUID) bool {
	_, err := s.DoToggleVisuals(index, requester)
	return s.report("toggleVisuals", index, requester, err)
}

func (s *Service) mutate(what string, index int, requester uuid.UUID, fn func() (core.Field, error)) (core.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := fn()
	if err != nil {
		return core.Field{}, err
	}
	s.log.Info("field updated", "field", f.Handle, "index", index, "change", what,
		"strength", f.Strength, "active", f.Active, "visuals", f.VisualsEnabled, "requester", requester)
	return f, nil
}

// report logs a failed operation with its reason and converts it to a bool.
func (s *Service) report(op string, index int, requester uuid.UUID, err error) bool {
	if err == nil {
		return true
	}
	reason := "validation"
	switch {
	case errors.Is(err, registry.ErrQuotaExceeded):
		reason = "quota"
	case errors.Is(err, registry.ErrPermissionDenied):
		reason = "permission"
	}
	s.log.Warn("field operation rejected", "op", op, "index", index, "requester", requester,
		"reason", reason, "error", err)
	return false
}

// ListAll returns copies of every field in registry order.
func (s *Service) ListAll() []core.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.ListAll()
}

// ListByOwner returns copies of the owner's fields in registry order.
func (s *Service) ListByOwner(owner uuid.UUID) []core.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.ListByOwner(owner)
}

// Entries lists fields with their indices. A zero owner lists everything.
func (s *Service) Entries(owner uuid.UUID) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for i, f := range s.reg.ListAll() {
		if owner != uuid.Nil && f.Owner != owner {
			continue
		}
		at, _ := s.reg.ExpiresAt(f.Handle)
		out = append(out, Entry{Index: i, Field: f, ExpiresAt: at})
	}
	return out
}

// RunOneTick advances the clock, expires due fields and runs one
// simulation pass. Ticks never overlap each other or any mutation.
func (s *Service) RunOneTick() core.TickStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := s.tick.Load() + 1
	expired := s.reg.Expire(tick)
	for _, f := range expired {
		s.log.Info("field expired", "field", f.Handle, "tick", tick, "owner", f.Owner)
	}
	if len(expired) > 0 {
		s.syncCount()
	}

	stats := s.sim.Step(tick, s.reg.ListAll())
	stats.FieldsExpired = len(expired)
	s.last = stats
	s.tick.Store(tick)
	return stats
}

// LoadAll replaces the registry with the store's records. Corrupt records
// are skipped and logged; expiry restarts from the current tick. Members of
// the previous fields receive exit events on the next tick.
func (s *Service) LoadAll() (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	if err != nil {
		return 0, fmt.Errorf("loading field records: %w", err)
	}
	fields, decodeErr := codec.DecodeAll(records, s.log)

	s.reg.Clear()
	n, restoreErr := s.reg.Restore(fields, s.tick.Load())
	s.syncCount()

	if skipped := errors.Join(decodeErr, restoreErr); skipped != nil {
		s.log.Warn("some field records were skipped", "loaded", n, "records", len(records), "error", skipped)
	}
	s.log.Info("fields loaded", "count", n)
	return n, nil
}

// SaveAll writes every field to the store.
func (s *Service) SaveAll() (int, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := codec.EncodeAll(s.reg.ListAll())
	if err := s.store.Save(records); err != nil {
		return 0, fmt.Errorf("saving field records: %w", err)
	}
	s.log.Debug("fields saved", "count", len(records))
	return len(records), nil
}

// Clear removes all fields, quota counts and membership without events.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.Clear()
	s.sim.Reset()
	s.syncCount()
	s.log.Info("fields cleared")
}

// Status returns a monitoring snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Tick:     s.tick.Load(),
		Fields:   s.reg.Len(),
		Owners:   s.reg.Owners(),
		Members:  s.sim.Membership().Entities(),
		MaxForce: s.sim.MaxForce(),
		Quota:    s.reg.MaxPerPlayer(),
		LastTick: s.last,
	}
	for _, f := range s.reg.ListAll() {
		if f.Active {
			st.Active++
		}
	}
	return st
}
