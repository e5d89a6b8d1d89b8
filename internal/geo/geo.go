package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// Block-space positions are stored as XYZ points in WKB so both SQLite and
// Postgres can round-trip them through the geometry Scan/Value methods.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseVec3 parses "x,y,z" (commas or whitespace, optional brackets) into a
// vector. A missing z is read as 0.
func ParseVec3(s string) (core.Vec3, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(parts) < 2 || len(parts) > 3 {
		return core.Vec3{}, ErrInvalidCoordinates
	}

	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return core.Vec3{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	return core.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// ParseLocation builds a location in world from a coordinate string.
func ParseLocation(world, coords string) (core.Location, error) {
	world = strings.TrimSpace(world)
	if err := core.CheckWorld(world); err != nil {
		return core.Location{}, err
	}
	pos, err := ParseVec3(coords)
	if err != nil {
		return core.Location{}, err
	}
	return core.Location{World: world, Position: pos}, nil
}

// PointFromVec3 converts a position to an XYZ point.
func PointFromVec3(v core.Vec3) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: v.X, Y: v.Y},
			Z:    v.Z,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// Vec3FromPoint reads a point back. Empty points report false.
func Vec3FromPoint(p geom.Point) (core.Vec3, bool) {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vec3{}, false
	}
	return core.Vec3{X: c.X, Y: c.Y, Z: c.Z}, true
}
