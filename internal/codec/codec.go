// Package codec flattens fields to one comma-separated text record each and
// parses them back.
//
// Record layout:
//
//	kind,world,x,y,z,strength,range,direction,owner,expiresAfter,active,visuals
//
// direction is "dx;dy;dz" or "none", owner is a UUID or "none". Records
// with only the first eleven columns load with visuals enabled.
package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// ErrCorruptRecord wraps every parse failure.
var ErrCorruptRecord = errors.New("corrupt field record")

const (
	none         = "none"
	legacyFields = 11
	recordFields = 12

	unitTolerance = 1e-9
)

// Encode renders one field as a record.
func Encode(f core.Field) string {
	dir := none
	if f.Kind == core.KindLinear {
		dir = formatFloat(f.Direction.X) + ";" + formatFloat(f.Direction.Y) + ";" + formatFloat(f.Direction.Z)
	}
	owner := none
	if f.HasOwner() {
		owner = f.Owner.String()
	}
	return strings.Join([]string{
		f.Kind.String(),
		f.Location.World,
		formatFloat(f.Location.Position.X),
		formatFloat(f.Location.Position.Y),
		formatFloat(f.Location.Position.Z),
		formatFloat(f.Strength),
		formatFloat(f.Range),
		dir,
		owner,
		strconv.FormatUint(f.ExpiresAfter, 10),
		strconv.FormatBool(f.Active),
		strconv.FormatBool(f.VisualsEnabled),
	}, ",")
}

// EncodeAll encodes fields in order.
func EncodeAll(fields []core.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = Encode(f)
	}
	return out
}

// Decode parses one record. The handle of the result is zero.
func Decode(record string) (core.Field, error) {
	parts := strings.Split(strings.TrimSpace(record), ",")
	if len(parts) != legacyFields && len(parts) != recordFields {
		return core.Field{}, fmt.Errorf("%w: expected %d or %d columns, got %d",
			ErrCorruptRecord, legacyFields, recordFields, len(parts))
	}

	kind, err := core.ParseKind(parts[0])
	if err != nil {
		return core.Field{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	world := parts[1]

	var nums [5]float64
	for i := range nums {
		if nums[i], err = parseFloat(parts[2+i]); err != nil {
			return core.Field{}, fmt.Errorf("%w: column %d: %w", ErrCorruptRecord, 3+i, err)
		}
	}

	var dir core.Vec3
	if d := strings.TrimSpace(parts[7]); d != none {
		if dir, err = parseDirection(d); err != nil {
			return core.Field{}, fmt.Errorf("%w: direction: %w", ErrCorruptRecord, err)
		}
	}

	owner := uuid.Nil
	if o := strings.TrimSpace(parts[8]); o != none {
		if owner, err = uuid.Parse(o); err != nil {
			return core.Field{}, fmt.Errorf("%w: owner: %w", ErrCorruptRecord, err)
		}
	}

	expires, err := strconv.ParseUint(strings.TrimSpace(parts[9]), 10, 64)
	if err != nil {
		return core.Field{}, fmt.Errorf("%w: expiresAfter: %w", ErrCorruptRecord, err)
	}
	active, err := strconv.ParseBool(strings.TrimSpace(parts[10]))
	if err != nil {
		return core.Field{}, fmt.Errorf("%w: active: %w", ErrCorruptRecord, err)
	}
	visuals := true
	if len(parts) == recordFields {
		if visuals, err = strconv.ParseBool(strings.TrimSpace(parts[11])); err != nil {
			return core.Field{}, fmt.Errorf("%w: visuals: %w", ErrCorruptRecord, err)
		}
	}

	f, err := core.NewField(core.Spec{
		Kind:         kind,
		Location:     core.Location{World: world, Position: core.Vec3{X: nums[0], Y: nums[1], Z: nums[2]}},
		Strength:     nums[3],
		Range:        nums[4],
		Direction:    dir,
		ExpiresAfter: expires,
	}, owner)
	if err != nil {
		return core.Field{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if kind == core.KindLinear && math.Abs(dir.Length()-1) <= unitTolerance {
		// already unit length; renormalizing could drift in the last bit
		f.Direction = dir
	}
	f.Active = active
	f.VisualsEnabled = visuals
	return f, nil
}

// DecodeAll parses records leniently: corrupt records are logged and
// skipped. The returned error joins every skipped record's reason.
func DecodeAll(records []string, log *slog.Logger) ([]core.Field, error) {
	if log == nil {
		log = slog.Default()
	}
	fields := make([]core.Field, 0, len(records))
	var errs []error
	for i, rec := range records {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		f, err := Decode(rec)
		if err != nil {
			log.Warn("skipping field record", "line", i+1, "record", rec, "error", err)
			errs = append(errs, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		fields = append(fields, f)
	}
	return fields, errors.Join(errs...)
}

func parseDirection(s string) (core.Vec3, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("expected dx;dy;dz, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		x, err := parseFloat(p)
		if err != nil {
			return core.Vec3{}, err
		}
		v[i] = x
	}
	return core.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
