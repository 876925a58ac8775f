package converter

import (
	gomath "math"

	"github.com/Faultbox/rbxanim/pkg/math"
)

// FilterKeyframes drops interior keyframes whose transform stays within
// epsilon of the previously retained one. The first and last keyframes are
// always kept so the clip's timing boundaries never shrink. Each interior
// keyframe is compared against the last retained keyframe, not its immediate
// neighbor, so a slow drift that eventually exceeds epsilon is still
// represented.
func FilterKeyframes(keys []CompositeKeyframe, epsilon float64) []CompositeKeyframe {
	if len(keys) <= 2 {
		return keys
	}

	retained := make([]CompositeKeyframe, 0, len(keys))
	retained = append(retained, keys[0])

	last := len(keys) - 1
	for i := 1; i < last; i++ {
		if !withinEpsilon(retained[len(retained)-1], keys[i], epsilon) {
			retained = append(retained, keys[i])
		}
	}

	return append(retained, keys[last])
}

// withinEpsilon reports whether two keyframes are numerically
// indistinguishable: every translation and scale axis differs by less than
// epsilon and the rotations differ by less than epsilon in 1-|dot| terms.
// The three comparisons are independent; all must pass for a drop.
func withinEpsilon(a, b CompositeKeyframe, epsilon float64) bool {
	return vectorWithin(a.Translation, b.Translation, epsilon) &&
		rotationWithin(a.Rotation, b.Rotation, epsilon) &&
		vectorWithin(a.Scale, b.Scale, epsilon)
}

func vectorWithin(a, b math.Vec3, epsilon float64) bool {
	return gomath.Abs(float64(a.X-b.X)) < epsilon &&
		gomath.Abs(float64(a.Y-b.Y)) < epsilon &&
		gomath.Abs(float64(a.Z-b.Z)) < epsilon
}

// rotationWithin compares unit quaternions by angular closeness. q and -q
// describe the same rotation, so the dot product is taken absolute.
func rotationWithin(a, b math.Quat, epsilon float64) bool {
	return 1-gomath.Abs(float64(a.Dot(b))) < epsilon
}
