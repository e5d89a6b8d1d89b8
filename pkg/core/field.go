// pkg/core/field.go
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidField is returned when field parameters fail validation.
var ErrInvalidField = errors.New("invalid field")

// Kind selects the force model of a field.
type Kind uint8

const (
	KindRadial Kind = iota
	KindLinear
	KindVortex
)

var kindNames = map[Kind]string{
	KindRadial: "radial",
	KindLinear: "linear",
	KindVortex: "vortex",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown field kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind converts "radial", "linear" or "vortex" (any case) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "radial":
		return KindRadial, nil
	case "linear":
		return KindLinear, nil
	case "vortex":
		return KindVortex, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Location is a fixed point in a named world.
type Location struct {
	World    string `json:"world"`
	Position Vec3   `json:"position"`
}

// CheckWorld rejects world names that cannot be stored as a single record
// column: empty names, names containing a comma and names with surrounding
// whitespace.
func CheckWorld(world string) error {
	switch {
	case world == "":
		return fmt.Errorf("%w: world is required", ErrInvalidField)
	case strings.ContainsRune(world, ','):
		return fmt.Errorf("%w: world %q contains a comma", ErrInvalidField, world)
	case strings.TrimSpace(world) != world:
		return fmt.Errorf("%w: world %q has surrounding whitespace", ErrInvalidField, world)
	}
	return nil
}

// Handle permanently identifies a field inside a registry. Handles are never reused.
type Handle uint64

// Spec holds the creation parameters of a field.
type Spec struct {
	Kind     Kind
	Location Location
	Strength float64
	Range    float64
	// Direction is only read for KindLinear and is normalized on construction.
	Direction    Vec3
	ExpiresAfter uint64
}

// Field is a configured force source.
//
// Owner, Kind, Location and Range never change after construction; registries
// hand out copies so callers cannot alter them.
type Field struct {
	Handle         Handle    `json:"handle"`
	Kind           Kind      `json:"kind"`
	Location       Location  `json:"location"`
	Direction      Vec3      `json:"direction"`
	Strength       float64   `json:"strength"`
	Range          float64   `json:"range"`
	Owner          uuid.UUID `json:"owner"`        // uuid.Nil for system/API fields
	ExpiresAfter   uint64    `json:"expiresAfter"` // ticks; 0 never expires
	Active         bool      `json:"active"`
	VisualsEnabled bool      `json:"visualsEnabled"`
}

// NewField validates spec and builds an active, visible field.
func NewField(spec Spec, owner uuid.UUID) (Field, error) {
	if !spec.Kind.Valid() {
		return Field{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidField, spec.Kind)
	}
	if err := CheckWorld(spec.Location.World); err != nil {
		return Field{}, err
	}
	if !spec.Location.Position.IsFinite() {
		return Field{}, fmt.Errorf("%w: location is not finite", ErrInvalidField)
	}
	if !isFinite(spec.Strength) {
		return Field{}, fmt.Errorf("%w: strength is not finite", ErrInvalidField)
	}
	if !isFinite(spec.Range) || spec.Range <= 0 {
		return Field{}, fmt.Errorf("%w: range must be positive, got %v", ErrInvalidField, spec.Range)
	}

	f := Field{
		Kind:           spec.Kind,
		Location:       spec.Location,
		Strength:       spec.Strength,
		Range:          spec.Range,
		Owner:          owner,
		ExpiresAfter:   spec.ExpiresAfter,
		Active:         true,
		VisualsEnabled: true,
	}

	if spec.Kind == KindLinear {
		if !spec.Direction.IsFinite() || spec.Direction.IsZero() {
			return Field{}, fmt.Errorf("%w: linear field needs a non-zero direction", ErrInvalidField)
		}
		f.Direction = spec.Direction.Normalize()
	}

	return f, nil
}

// Validate checks the invariants a field must hold while simulated.
func (f Field) Validate() error {
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidField, f.Kind)
	}
	if err := CheckWorld(f.Location.World); err != nil {
		return err
	}
	if !isFinite(f.Range) || f.Range <= 0 {
		return fmt.Errorf("%w: range %v", ErrInvalidField, f.Range)
	}
	if !isFinite(f.Strength) {
		return fmt.Errorf("%w: strength %v", ErrInvalidField, f.Strength)
	}
	if !f.Location.Position.IsFinite() {
		return fmt.Errorf("%w: location %v", ErrInvalidField, f.Location.Position)
	}
	if f.Kind == KindLinear {
		if l := f.Direction.Length(); l < 1-1e-9 || l > 1+1e-9 {
			return fmt.Errorf("%w: direction is not unit length (%v)", ErrInvalidField, l)
		}
	}
	return nil
}

// HasOwner reports whether the field was created by an identified player.
func (f Field) HasOwner() bool {
	return f.Owner != uuid.Nil
}
