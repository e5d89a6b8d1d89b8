// Package registry owns the ordered set of fields, per-owner quotas,
// permission-gated mutation and tick-based expiry.
//
// External callers address fields by index into the ordered collection.
// Internally every field carries a permanent Handle so expiry and
// membership never resolve to the wrong entry after a removal shifts
// indices. A Registry is not safe for concurrent use; the engine
// serializes access.
package registry

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

var (
	ErrInvalidIndex     = errors.New("invalid field index")
	ErrQuotaExceeded    = errors.New("field quota exceeded")
	ErrPermissionDenied = errors.New("permission denied")
)

// Authorizer reports whether a requester holds administrative override.
type Authorizer interface {
	IsAdmin(requester uuid.UUID) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(uuid.UUID) bool

func (f AuthorizerFunc) IsAdmin(requester uuid.UUID) bool { return f(requester) }

// NoAdmins grants override to nobody.
var NoAdmins = AuthorizerFunc(func(uuid.UUID) bool { return false })

// DefaultMaxPerPlayer is used when no limit is configured.
const DefaultMaxPerPlayer = 3

type entry struct {
	field    core.Field
	expireAt uint64 // absolute tick, 0 never
}

// Registry is the in-memory source of truth for fields.
type Registry struct {
	entries      []*entry
	byHandle     map[core.Handle]*entry
	owners       map[uuid.UUID]int
	next         core.Handle
	maxPerPlayer int
	auth         Authorizer
}

// New creates an empty registry. A nil Authorizer grants override to nobody.
func New(maxPerPlayer int, auth Authorizer) *Registry {
	if auth == nil {
		auth = NoAdmins
	}
	if maxPerPlayer < 0 {
		maxPerPlayer = DefaultMaxPerPlayer
	}
	return &Registry{
		byHandle:     make(map[core.Handle]*entry),
		owners:       make(map[uuid.UUID]int),
		maxPerPlayer: maxPerPlayer,
		auth:         auth,
	}
}

// SetMaxPerPlayer changes the quota for future creations. Owners already
// above the new limit keep their fields.
func (r *Registry) SetMaxPerPlayer(n int) {
	if n < 0 {
		n = DefaultMaxPerPlayer
	}
	r.maxPerPlayer = n
}

func (r *Registry) MaxPerPlayer() int { return r.maxPerPlayer }

// Create validates spec, checks the owner's quota and appends the new field.
// now is the current tick and anchors expiry.
func (r *Registry) Create(spec core.Spec, owner uuid.UUID, now uint64) (core.Field, error) {
	f, err := core.NewField(spec, owner)
	if err != nil {
		return core.Field{}, err
	}
	if owner != uuid.Nil && r.owners[owner] >= r.maxPerPlayer {
		return core.Field{}, fmt.Errorf("%w: owner %s has %d/%d fields",
			ErrQuotaExceeded, owner, r.owners[owner], r.maxPerPlayer)
	}
	return r.insert(f, now), nil
}

// Restore appends previously persisted fields without quota checks. Each
// field gets a fresh handle and its expiry restarts from now. Fields that
// fail validation are returned in the error and skipped.
func (r *Registry) Restore(fields []core.Field, now uint64) (restored int, err error) {
	var errs []error
	for i, f := range fields {
		if vErr := f.Validate(); vErr != nil {
			errs = append(errs, fmt.Errorf("field %d: %w", i, vErr))
			continue
		}
		r.insert(f, now)
		restored++
	}
	return restored, errors.Join(errs...)
}

func (r *Registry) insert(f core.Field, now uint64) core.Field {
	r.next++
	f.Handle = r.next
	e := &entry{field: f}
	if f.ExpiresAfter > 0 {
		if now > math.MaxUint64-f.ExpiresAfter {
			e.expireAt = math.MaxUint64
		} else {
			e.expireAt = now + f.ExpiresAfter
		}
	}
	r.entries = append(r.entries, e)
	r.byHandle[f.Handle] = e
	if f.HasOwner() {
		r.owners[f.Owner]++
	}
	return f
}

// authorize applies the shared permission rule: the system (uuid.Nil) is
// always allowed, players only on their own fields unless admin.
func (r *Registry) authorize(f core.Field, requester uuid.UUID) error {
	if requester == uuid.Nil {
		return nil
	}
	if f.HasOwner() && f.Owner == requester {
		return nil
	}
	if r.auth.IsAdmin(requester) {
		return nil
	}
	return fmt.Errorf("%w: %s may not change field %d", ErrPermissionDenied, requester, f.Handle)
}

func (r *Registry) at(index int, requester uuid.UUID) (*entry, error) {
	if index < 0 || index >= len(r.entries) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrInvalidIndex, index, len(r.entries))
	}
	e := r.entries[index]
	if err := r.authorize(e.field, requester); err != nil {
		return nil, err
	}
	return e, nil
}

// Remove deletes the field at index. Later indices shift down by one.
func (r *Registry) Remove(index int, requester uuid.UUID) (core.Field, error) {
	e, err := r.at(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	r.removeAt(index)
	return e.field, nil
}

func (r *Registry) removeAt(index int) {
	e := r.entries[index]
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	delete(r.byHandle, e.field.Handle)
	if e.field.HasOwner() {
		if n := r.owners[e.field.Owner] - 1; n > 0 {
			r.owners[e.field.Owner] = n
		} else {
			delete(r.owners, e.field.Owner)
		}
	}
}

// ModifyStrength sets a new strength in place.
func (r *Registry) ModifyStrength(index int, strength float64, requester uuid.UUID) (core.Field, error) {
	if math.IsNaN(strength) || math.IsInf(strength, 0) {
		return core.Field{}, fmt.Errorf("%w: strength %v", core.ErrInvalidField, strength)
	}
	e, err := r.at(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	e.field.Strength = strength
	return e.field, nil
}

// ToggleActive flips the active flag and returns the updated field.
func (r *Registry) ToggleActive(index int, requester uuid.UUID) (core.Field, error) {
	e, err := r.at(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	e.field.Active = !e.field.Active
	return e.field, nil
}

// SetActive forces the active flag to the given value.
func (r *Registry) SetActive(index int, active bool, requester uuid.UUID) (core.Field, error) {
	e, err := r.at(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	e.field.Active = active
	return e.field, nil
}

// ToggleVisuals flips visualsEnabled and returns the updated field.
func (r *Registry) ToggleVisuals(index int, requester uuid.UUID) (core.Field, error) {
	e, err := r.at(index, requester)
	if err != nil {
		return core.Field{}, err
	}
	e.field.VisualsEnabled = !e.field.VisualsEnabled
	return e.field, nil
}

// Get returns a copy of the field at index.
func (r *Registry) Get(index int) (core.Field, error) {
	if index < 0 || index >= len(r.entries) {
		return core.Field{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidIndex, index, len(r.entries))
	}
	return r.entries[index].field, nil
}

// Lookup returns the field with the given handle.
func (r *Registry) Lookup(h core.Handle) (core.Field, bool) {
	e, ok := r.byHandle[h]
	if !ok {
		return core.Field{}, false
	}
	return e.field, true
}

// IndexOf returns the current index of a handle or -1.
func (r *Registry) IndexOf(h core.Handle) int {
	if _, ok := r.byHandle[h]; !ok {
		return -1
	}
	for i, e := range r.entries {
		if e.field.Handle == h {
			return i
		}
	}
	return -1
}

// ExpiresAt returns the absolute expiry tick of a handle, 0 if it never expires.
func (r *Registry) ExpiresAt(h core.Handle) (uint64, bool) {
	e, ok := r.byHandle[h]
	if !ok {
		return 0, false
	}
	return e.expireAt, true
}

func (r *Registry) Len() int { return len(r.entries) }

// ListAll returns copies of all fields in registry order.
func (r *Registry) ListAll() []core.Field {
	out := make([]core.Field, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.field
	}
	return out
}

// ListByOwner returns copies of the owner's fields in registry order.
func (r *Registry) ListByOwner(owner uuid.UUID) []core.Field {
	var out []core.Field
	for _, e := range r.entries {
		if e.field.Owner == owner {
			out = append(out, e.field)
		}
	}
	return out
}

// OwnerCount returns how many fields an owner currently holds.
func (r *Registry) OwnerCount(owner uuid.UUID) int {
	return r.owners[owner]
}

// Owners returns the number of distinct owners with at least one field.
func (r *Registry) Owners() int { return len(r.owners) }

// Expire removes every field whose expiry tick is at or before now and
// returns them. A handle that is already gone is simply absent.
func (r *Registry) Expire(now uint64) []core.Field {
	var expired []core.Field
	for i := 0; i < len(r.entries); {
		e := r.entries[i]
		if e.expireAt != 0 && e.expireAt <= now {
			expired = append(expired, e.field)
			r.removeAt(i)
			continue
		}
		i++
	}
	return expired
}

// Clear removes all fields and owner counts. Handles keep increasing.
func (r *Registry) Clear() {
	r.entries = nil
	r.byHandle = make(map[core.Handle]*entry)
	r.owners = make(map[uuid.UUID]int)
}
