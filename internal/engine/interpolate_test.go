package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

func pose(id string, x, y, rotation, scale float64) document.PointPose {
	return document.PointPose{ID: id, X: x, Y: y, Rotation: rotation, Scale: scale}
}

func twoKeyframeAnim() *document.Animation {
	return &document.Animation{
		ID:       "anim_1",
		Duration: 2,
		FPS:      24,
		Keyframes: []document.Keyframe{
			{ID: "kf_a", Time: 0, Interpolation: document.InterpolationLinear,
				Pose: []document.PointPose{pose("a", 0, 0, 0, 1)}},
			{ID: "kf_b", Time: 2, Interpolation: document.InterpolationLinear,
				Pose: []document.PointPose{pose("a", 10, 0, 0, 1)}},
		},
	}
}

func TestInterpolatePose_Empty(t *testing.T) {
	anim := &document.Animation{}
	assert.Empty(t, InterpolatePose(anim, 0))
	assert.Empty(t, InterpolatePose(anim, 5))
}

func TestInterpolatePose_SingleKeyframe(t *testing.T) {
	anim := &document.Animation{
		Keyframes: []document.Keyframe{
			{ID: "kf", Time: 1, Pose: []document.PointPose{pose("a", 3, 4, 0.5, 2)}},
		},
	}

	for _, tm := range []float64{-5, 0, 100} {
		got := InterpolatePose(anim, tm)
		require.Len(t, got, 1)
		assert.Equal(t, pose("a", 3, 4, 0.5, 2), got[0])
	}
}

func TestInterpolatePose_Midpoint(t *testing.T) {
	anim := twoKeyframeAnim()

	got := InterpolatePose(anim, 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 5, got[0].X, 1e-12)
	assert.InDelta(t, 0, got[0].Y, 1e-12)
}

func TestInterpolatePose_Boundaries(t *testing.T) {
	a := document.Keyframe{ID: "A", Time: 0, Pose: []document.PointPose{pose("p", 1, 2, 0.25, 1)}}
	b := document.Keyframe{ID: "B", Time: 1, Pose: []document.PointPose{pose("p", 5, 6, 0.75, 3)}}
	anim := &document.Animation{Keyframes: []document.Keyframe{a, b}}

	assert.Equal(t, a.Pose, InterpolatePose(anim, 0))
	assert.Equal(t, b.Pose, InterpolatePose(anim, 1))

	mid := InterpolatePose(anim, 0.5)
	require.Len(t, mid, 1)
	assert.InDelta(t, 3, mid[0].X, 1e-12)
	assert.InDelta(t, 4, mid[0].Y, 1e-12)
	assert.InDelta(t, 0.5, mid[0].Rotation, 1e-12)
	assert.InDelta(t, 2, mid[0].Scale, 1e-12)
}

func TestInterpolatePose_ClampOutsideRange(t *testing.T) {
	anim := twoKeyframeAnim()

	before := InterpolatePose(anim, -1)
	require.Len(t, before, 1)
	assert.Equal(t, 0.0, before[0].X)

	after := InterpolatePose(anim, 99)
	require.Len(t, after, 1)
	assert.Equal(t, 10.0, after[0].X)
}

func TestInterpolatePose_MissingPartnerHolds(t *testing.T) {
	anim := &document.Animation{
		Keyframes: []document.Keyframe{
			{Time: 0, Pose: []document.PointPose{pose("a", 0, 0, 0, 1), pose("b", 7, 7, 0, 1)}},
			{Time: 2, Pose: []document.PointPose{pose("a", 10, 0, 0, 1)}},
		},
	}

	got := InterpolatePose(anim, 1)
	require.Len(t, got, 2)

	byID := map[string]document.PointPose{}
	for _, pp := range got {
		byID[pp.ID] = pp
	}
	assert.InDelta(t, 5, byID["a"].X, 1e-12)
	// "b" has no partner in the next keyframe: value held from prev
	assert.Equal(t, 7.0, byID["b"].X)
}

// Rotation blends as a plain scalar with no wraparound handling: going from
// just below +pi to just above -pi takes the long way through zero. This
// pins the current behavior rather than endorsing it.
func TestInterpolatePose_RotationTakesLongWayAround(t *testing.T) {
	anim := &document.Animation{
		Keyframes: []document.Keyframe{
			{Time: 0, Pose: []document.PointPose{pose("a", 0, 0, math.Pi - 0.1, 1)}},
			{Time: 1, Pose: []document.PointPose{pose("a", 0, 0, -math.Pi + 0.1, 1)}},
		},
	}

	got := InterpolatePose(anim, 0.5)
	require.Len(t, got, 1)
	// Scalar midpoint is 0, not the +/- pi the shortest path would give.
	assert.InDelta(t, 0, got[0].Rotation, 1e-12)
}

func TestInterpolatePose_StepHoldsWholeInterval(t *testing.T) {
	anim := &document.Animation{
		Keyframes: []document.Keyframe{
			{Time: 0, Interpolation: document.InterpolationStep,
				Pose: []document.PointPose{pose("a", 0, 0, 0, 1)}},
			{Time: 2, Interpolation: document.InterpolationLinear,
				Pose: []document.PointPose{pose("a", 10, 0, 0, 1)}},
		},
	}

	got := InterpolatePose(anim, 1.9)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].X)
}

func TestInterpolatePose_DuplicateTimesDegenerate(t *testing.T) {
	anim := &document.Animation{
		Keyframes: []document.Keyframe{
			{Time: 1, Pose: []document.PointPose{pose("a", 1, 0, 0, 1)}},
			{Time: 1, Pose: []document.PointPose{pose("a", 9, 0, 0, 1)}},
		},
	}

	// Degenerate interval: factor 0, prev's value wins.
	got := InterpolatePose(anim, 1)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].X)
}

func TestInterpolatePose_Deterministic(t *testing.T) {
	anim := twoKeyframeAnim()
	first := InterpolatePose(anim, 0.73)
	second := InterpolatePose(anim, 0.73)
	assert.Equal(t, first, second)
}
