package engine

import (
	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

// InterpolatePose computes the skeleton pose of an animation at the given
// playback time using bracketing-keyframe interpolation.
//
// With no keyframes the result is empty; with one keyframe that keyframe's
// pose is returned for any time. Outside the keyframe range the pose clamps
// to the first/last keyframe. Rotation is interpolated as a plain scalar,
// with no shortest-path wraparound: two keyframes on opposite sides of the
// +/- pi boundary blend the long way around, matching the authoring surface.
//
// The result is deterministic in (animation, time) and the animation is
// never mutated.
func InterpolatePose(anim *document.Animation, time float64) []document.PointPose {
	kfs := anim.Keyframes
	switch len(kfs) {
	case 0:
		return nil
	case 1:
		return clonePose(kfs[0].Pose)
	}

	prev, next := bracket(kfs, time)

	f := 0.0
	if next.Time > prev.Time {
		f = (time - prev.Time) / (next.Time - prev.Time)
	}
	if prev.Interpolation == document.InterpolationStep {
		// Step keyframes hold their pose for the whole interval.
		f = 0
	}

	nextByID := make(map[string]document.PointPose, len(next.Pose))
	for _, pp := range next.Pose {
		nextByID[pp.ID] = pp
	}

	result := make([]document.PointPose, 0, len(prev.Pose))
	for _, from := range prev.Pose {
		to, ok := nextByID[from.ID]
		if !ok {
			// No interpolation partner in the next keyframe: hold.
			result = append(result, from)
			continue
		}
		result = append(result, document.PointPose{
			ID:       from.ID,
			X:        lerp(from.X, to.X, f),
			Y:        lerp(from.Y, to.Y, f),
			Rotation: lerp(from.Rotation, to.Rotation, f),
			Scale:    lerp(from.Scale, to.Scale, f),
		})
	}
	return result
}

// bracket finds the keyframe pair whose time interval contains t, scanning
// in ascending time order. Outside the range it degenerates to
// (first, first) or (last, last).
func bracket(kfs []document.Keyframe, t float64) (prev, next *document.Keyframe) {
	if t < kfs[0].Time {
		return &kfs[0], &kfs[0]
	}
	last := &kfs[len(kfs)-1]
	if t > last.Time {
		return last, last
	}
	for i := 0; i < len(kfs)-1; i++ {
		if kfs[i].Time <= t && t <= kfs[i+1].Time {
			return &kfs[i], &kfs[i+1]
		}
	}
	return last, last
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

func clonePose(pose []document.PointPose) []document.PointPose {
	out := make([]document.PointPose, len(pose))
	copy(out, pose)
	return out
}
