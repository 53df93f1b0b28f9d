package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_Identity(t *testing.T) {
	m := Identity()
	assert.True(t, m.IsIdentity())

	p := Point{X: 3.5, Y: -2}
	assert.Equal(t, p, m.Apply(p))
}

func TestMatrix_InvertRoundTrip(t *testing.T) {
	m := Translate(10, -4).Multiply(Rotate(0.7)).Multiply(Scale(2.5))
	inv := m.Invert()

	p := Point{X: 12, Y: 34}
	back := inv.Apply(m.Apply(p))

	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestMatrix_InvertSingular(t *testing.T) {
	m := Scale(0)
	require.Equal(t, 0.0, m.Determinant())
	assert.True(t, m.Invert().IsIdentity())
}

func TestMatrix_FromPose(t *testing.T) {
	// Pure translation
	m := FromPose(5, 7, 0, 1)
	got := m.Apply(Point{X: 1, Y: 1})
	assert.InDelta(t, 6, got.X, 1e-12)
	assert.InDelta(t, 8, got.Y, 1e-12)

	// Quarter turn maps +x onto +y
	m = FromPose(0, 0, math.Pi/2, 1)
	got = m.Apply(Point{X: 1, Y: 0})
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 1, got.Y, 1e-12)

	// Scale then translate
	m = FromPose(10, 0, 0, 2)
	got = m.Apply(Point{X: 3, Y: 4})
	assert.InDelta(t, 16, got.X, 1e-12)
	assert.InDelta(t, 8, got.Y, 1e-12)
}

func TestPoint_Rotate(t *testing.T) {
	p := Point{X: 1, Y: 0}.Rotate(math.Pi)
	assert.InDelta(t, -1, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
}

func TestRect_Union(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}

	u := a.Union(b)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, u)

	// Union with an empty rect is the other rect
	assert.Equal(t, a, a.Union(Rect{}))
	assert.Equal(t, a, Rect{}.Union(a))
}

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 1, Y: 1, Width: 2, Height: 2}
	assert.True(t, r.Contains(2, 2))
	assert.True(t, r.Contains(1, 1))
	assert.False(t, r.Contains(0.5, 2))
}
