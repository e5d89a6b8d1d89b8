package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: 4, Y: -1, Z: 0.5}

	assert.Equal(t, Vec3{X: 5, Y: 1, Z: 3.5}, a.Add(b))
	assert.Equal(t, Vec3{X: -3, Y: 3, Z: 2.5}, a.Sub(b))
	assert.Equal(t, Vec3{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.InDelta(t, 3.5, a.Dot(b), 1e-12)
}

func TestVec3_Normalize(t *testing.T) {
	v := Vec3{X: 3, Y: 0, Z: 4}.Normalize()
	assert.InDelta(t, 1.0, v.Length(), 1e-12)
	assert.InDelta(t, 0.6, v.X, 1e-12)
	assert.InDelta(t, 0.8, v.Z, 1e-12)

	assert.Equal(t, Vec3{}, Vec3{}.Normalize(), "zero vector normalizes to zero")
}

func TestVec3_ClampLength(t *testing.T) {
	t.Run("over cap is rescaled to exactly the cap", func(t *testing.T) {
		v := Vec3{X: 30, Y: 0, Z: 40}
		c := v.ClampLength(5)
		assert.InDelta(t, 5.0, c.Length(), 1e-12)
		assert.InDelta(t, 3.0, c.X, 1e-12)
		assert.InDelta(t, 4.0, c.Z, 1e-12)
	})

	t.Run("under cap is untouched", func(t *testing.T) {
		v := Vec3{X: 1, Y: 1, Z: 1}
		assert.Equal(t, v, v.ClampLength(5))
	})

	t.Run("exactly at cap is untouched", func(t *testing.T) {
		v := Vec3{X: 3, Y: 4}
		assert.Equal(t, v, v.ClampLength(5))
	})
}

func TestVec3_IsFinite(t *testing.T) {
	assert.True(t, Vec3{X: 1}.IsFinite())
	assert.False(t, Vec3{X: math.NaN()}.IsFinite())
	assert.False(t, Vec3{Z: math.Inf(-1)}.IsFinite())
}

func TestVec3_Distance(t *testing.T) {
	assert.InDelta(t, 5.0, Vec3{}.Distance(Vec3{X: 3, Y: 4}), 1e-12)
}
