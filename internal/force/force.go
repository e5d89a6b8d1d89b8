// Package force maps a field and an entity position to the force the field
// exerts there. All functions are pure and safe for concurrent use.
package force

import (
	"errors"
	"fmt"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// MinDistance is the singularity floor for radial and vortex fields.
const MinDistance = 0.1

// ErrCrossWorld is returned when the entity is not in the field's world.
var ErrCrossWorld = errors.New("locations must be in the same world")

// Distance returns the Euclidean distance between two locations.
func Distance(a, b core.Location) (float64, error) {
	if a.World != b.World {
		return 0, fmt.Errorf("%w: %q vs %q", ErrCrossWorld, a.World, b.World)
	}
	return a.Position.Distance(b.Position), nil
}

// Compute returns the force f exerts on an entity at pos. inRange is false
// when the entity is outside the field's effective region.
func Compute(f core.Field, pos core.Location) (vec core.Vec3, inRange bool, err error) {
	d, err := Distance(f.Location, pos)
	if err != nil {
		return core.Vec3{}, false, err
	}

	switch f.Kind {
	case core.KindRadial:
		v, ok := radial(f, pos.Position, d)
		return v, ok, nil
	case core.KindLinear:
		v, ok := linear(f, d)
		return v, ok, nil
	case core.KindVortex:
		v, ok := vortex(f, pos.Position, d)
		return v, ok, nil
	}
	return core.Vec3{}, false, fmt.Errorf("%w: unknown kind %d", core.ErrInvalidField, f.Kind)
}

// radial: strength / d² toward the center. Negative strength repels.
func radial(f core.Field, pos core.Vec3, d float64) (core.Vec3, bool) {
	if d > f.Range || d < MinDistance {
		return core.Vec3{}, false
	}
	magnitude := f.Strength / (d * d)
	dir := f.Location.Position.Sub(pos).Normalize()
	return dir.Scale(magnitude), true
}

// linear: constant push along the field direction anywhere in range.
func linear(f core.Field, d float64) (core.Vec3, bool) {
	if d > f.Range {
		return core.Vec3{}, false
	}
	return f.Direction.Scale(f.Strength), true
}

// vortex: strength / d along the horizontal tangent around the center.
// An entity straight above or below the center gets a zero push but is
// still inside the field.
func vortex(f core.Field, pos core.Vec3, d float64) (core.Vec3, bool) {
	if d > f.Range || d < MinDistance {
		return core.Vec3{}, false
	}
	toEntity := pos.Sub(f.Location.Position)
	tangential := core.Vec3{X: -toEntity.Z, Y: 0, Z: toEntity.X}.Normalize()
	return tangential.Scale(f.Strength / d), true
}
