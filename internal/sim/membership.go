package sim

import (
	"bytes"
	"slices"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// Membership tracks which entities are inside which fields.
//
// byEntity is the canonical table; byField mirrors it so a field can be
// reconciled without scanning every entity. An entity with no fields has
// no entry.
type Membership struct {
	byEntity map[uuid.UUID]map[core.Handle]struct{}
	byField  map[core.Handle]map[uuid.UUID]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		byEntity: make(map[uuid.UUID]map[core.Handle]struct{}),
		byField:  make(map[core.Handle]map[uuid.UUID]struct{}),
	}
}

// Reconcile replaces the member set of field h with inside and returns the
// entities that entered (in the order given) and exited (sorted by id).
func (m *Membership) Reconcile(h core.Handle, inside []uuid.UUID) (entered, exited []uuid.UUID) {
	prev := m.byField[h]
	now := make(map[uuid.UUID]struct{}, len(inside))
	for _, id := range inside {
		if _, dup := now[id]; dup {
			continue
		}
		now[id] = struct{}{}
		if _, was := prev[id]; !was {
			entered = append(entered, id)
			m.add(id, h)
		}
	}
	for id := range prev {
		if _, still := now[id]; !still {
			exited = append(exited, id)
			m.dropEntity(id, h)
		}
	}
	sortIDs(exited)

	if len(now) == 0 {
		delete(m.byField, h)
	} else {
		m.byField[h] = now
	}
	return entered, exited
}

// Release removes every member of h and returns them sorted by id.
func (m *Membership) Release(h core.Handle) []uuid.UUID {
	prev, ok := m.byField[h]
	if !ok {
		return nil
	}
	out := make([]uuid.UUID, 0, len(prev))
	for id := range prev {
		out = append(out, id)
		m.dropEntity(id, h)
	}
	delete(m.byField, h)
	sortIDs(out)
	return out
}

// Fields returns the handles tracked for any member, sorted.
func (m *Membership) Fields() []core.Handle {
	out := make([]core.Handle, 0, len(m.byField))
	for h := range m.byField {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Inside reports whether entity is inside field h.
func (m *Membership) Inside(entity uuid.UUID, h core.Handle) bool {
	_, ok := m.byEntity[entity][h]
	return ok
}

// FieldsOf returns the handles an entity is inside, sorted.
func (m *Membership) FieldsOf(entity uuid.UUID) []core.Handle {
	set := m.byEntity[entity]
	out := make([]core.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Entities returns the number of entities inside at least one field.
func (m *Membership) Entities() int { return len(m.byEntity) }

// Reset drops all membership without emitting anything.
func (m *Membership) Reset() {
	clear(m.byEntity)
	clear(m.byField)
}

func (m *Membership) add(id uuid.UUID, h core.Handle) {
	set, ok := m.byEntity[id]
	if !ok {
		set = make(map[core.Handle]struct{})
		m.byEntity[id] = set
	}
	set[h] = struct{}{}
}

func (m *Membership) dropEntity(id uuid.UUID, h core.Handle) {
	set := m.byEntity[id]
	delete(set, h)
	if len(set) == 0 {
		delete(m.byEntity, id)
	}
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}
