package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func radialSpec() Spec {
	return Spec{
		Kind:     KindRadial,
		Location: Location{World: "world", Position: Vec3{X: 1, Y: 64, Z: -3}},
		Strength: 10,
		Range:    5,
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"radial", KindRadial},
		{"LINEAR", KindLinear},
		{" Vortex ", KindVortex},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKind("magnetic")
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "radial", KindRadial.String())
	assert.Equal(t, "linear", KindLinear.String())
	assert.Equal(t, "vortex", KindVortex.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestNewField_Defaults(t *testing.T) {
	owner := uuid.New()
	f, err := NewField(radialSpec(), owner)
	require.NoError(t, err)

	assert.True(t, f.Active)
	assert.True(t, f.VisualsEnabled)
	assert.Equal(t, owner, f.Owner)
	assert.True(t, f.HasOwner())
	assert.Equal(t, Vec3{}, f.Direction, "non-linear fields carry no direction")
	assert.NoError(t, f.Validate())
}

func TestNewField_RejectsNonPositiveRange(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		spec := radialSpec()
		spec.Range = r
		_, err := NewField(spec, uuid.Nil)
		assert.ErrorIs(t, err, ErrInvalidField, "range %v", r)
	}
}

func TestNewField_RejectsBadInput(t *testing.T) {
	spec := radialSpec()
	spec.Location.World = ""
	_, err := NewField(spec, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidField)

	spec = radialSpec()
	spec.Strength = math.NaN()
	_, err = NewField(spec, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidField)

	spec = radialSpec()
	spec.Kind = Kind(7)
	_, err = NewField(spec, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestNewField_RejectsUnstorableWorld(t *testing.T) {
	for _, w := range []string{"world,nether", ",", " world", "world ", "\tworld"} {
		spec := radialSpec()
		spec.Location.World = w
		_, err := NewField(spec, uuid.Nil)
		assert.ErrorIs(t, err, ErrInvalidField, "world %q", w)
	}

	spec := radialSpec()
	spec.Location.World = "world nether"
	f, err := NewField(spec, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "world nether", f.Location.World)
}

func TestNewField_LinearDirectionNormalized(t *testing.T) {
	spec := radialSpec()
	spec.Kind = KindLinear
	spec.Direction = Vec3{X: 0, Y: 3, Z: 4}

	f, err := NewField(spec, uuid.Nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f.Direction.Length(), 1e-12)
	assert.InDelta(t, 0.6, f.Direction.Y, 1e-12)
	assert.False(t, f.HasOwner())

	spec.Direction = Vec3{}
	_, err = NewField(spec, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestNewField_CopiesLocation(t *testing.T) {
	spec := radialSpec()
	f, err := NewField(spec, uuid.Nil)
	require.NoError(t, err)

	spec.Location.Position.X = 999
	assert.Equal(t, 1.0, f.Location.Position.X)
}

func TestField_ValidateDetectsCorruption(t *testing.T) {
	f, err := NewField(radialSpec(), uuid.Nil)
	require.NoError(t, err)

	f.Range = -2
	assert.ErrorIs(t, f.Validate(), ErrInvalidField)

	spec := radialSpec()
	spec.Kind = KindLinear
	spec.Direction = Vec3{X: 1}
	lin, err := NewField(spec, uuid.Nil)
	require.NoError(t, err)
	lin.Direction = Vec3{X: 2}
	assert.ErrorIs(t, lin.Validate(), ErrInvalidField)
}

func TestField_JSONUsesKindNames(t *testing.T) {
	f, err := NewField(radialSpec(), uuid.Nil)
	require.NoError(t, err)

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"radial"`)

	var back Field
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)

	_, err = json.Marshal(Kind(9))
	assert.Error(t, err)
}
