package converter

import (
	"testing"

	"github.com/Faultbox/rbxanim/pkg/math"
)

func TestFilterKeyframesBoundaryPreservation(t *testing.T) {
	keys := driftingKeys([]float32{0, 0.1, 0.1, 0.1, 5})

	for _, epsilon := range []float64{0, 1e-5, 0.01, 1, 1e9} {
		filtered := FilterKeyframes(keys, epsilon)
		if len(filtered) < 2 {
			t.Fatalf("epsilon %v: filtered to %d keyframes, boundaries must survive", epsilon, len(filtered))
		}
		if filtered[0].Time != keys[0].Time {
			t.Errorf("epsilon %v: first time %v, want %v", epsilon, filtered[0].Time, keys[0].Time)
		}
		if filtered[len(filtered)-1].Time != keys[len(keys)-1].Time {
			t.Errorf("epsilon %v: last time %v, want %v", epsilon, filtered[len(filtered)-1].Time, keys[len(keys)-1].Time)
		}
	}
}

func TestFilterKeyframesMonotonicity(t *testing.T) {
	keys := driftingKeys([]float32{0, 0.001, 0.002, 0.05, 0.5, 1, 10})

	prev := len(keys) + 1
	for _, epsilon := range []float64{1e-6, 1e-3, 0.01, 0.1, 1, 100} {
		n := len(FilterKeyframes(keys, epsilon))
		if n > prev {
			t.Errorf("epsilon %v retained %d keyframes, more than %d at a smaller epsilon", epsilon, n, prev)
		}
		prev = n
	}
}

func TestFilterKeyframesDropsIdentical(t *testing.T) {
	keys := driftingKeys([]float32{3, 3, 3, 3, 3})

	filtered := FilterKeyframes(keys, 1e-5)
	if len(filtered) != 2 {
		t.Fatalf("identical keyframes should reduce to the two boundaries, got %d", len(filtered))
	}
	if filtered[0].Time != 0 || filtered[1].Time != 4 {
		t.Errorf("retained times = %v, %v, want 0, 4", filtered[0].Time, filtered[1].Time)
	}
}

func TestFilterKeyframesEpsilonZeroKeepsAll(t *testing.T) {
	keys := driftingKeys([]float32{3, 3, 3, 3})

	filtered := FilterKeyframes(keys, 0)
	if len(filtered) != len(keys) {
		t.Errorf("nothing differs by less than zero, got %d keyframes, want %d", len(filtered), len(keys))
	}
}

func TestFilterKeyframesShortSequences(t *testing.T) {
	if got := FilterKeyframes(nil, 1e-5); len(got) != 0 {
		t.Errorf("empty input should stay empty, got %d", len(got))
	}

	one := driftingKeys([]float32{1})
	if got := FilterKeyframes(one, 1e-5); len(got) != 1 {
		t.Errorf("single keyframe should stay, got %d", len(got))
	}

	two := driftingKeys([]float32{1, 1})
	if got := FilterKeyframes(two, 1e-5); len(got) != 2 {
		t.Errorf("two keyframes are both boundaries, got %d", len(got))
	}
}

func TestFilterKeyframesComparesAgainstRetained(t *testing.T) {
	// Each step is below epsilon relative to its neighbor but the drift
	// accumulates; comparing against the last retained keyframe keeps the
	// ones where the total drift crosses epsilon.
	keys := driftingKeys([]float32{0, 0.4, 0.8, 1.2, 10})

	// t=1 drifts 0.4 from the retained t=0 and is dropped; t=2 has
	// accumulated 0.8 and is kept, becoming the new baseline; t=3 is 0.4
	// from that baseline and is dropped again.
	filtered := FilterKeyframes(keys, 0.5)
	wantTimes := []float64{0, 2, 4}
	if len(filtered) != len(wantTimes) {
		t.Fatalf("got %d keyframes, want %d", len(filtered), len(wantTimes))
	}
	for i, want := range wantTimes {
		if filtered[i].Time != want {
			t.Errorf("filtered[%d].Time = %v, want %v", i, filtered[i].Time, want)
		}
	}
}

func TestFilterKeyframesRotationSign(t *testing.T) {
	// q and -q describe the same rotation and must compare as identical.
	q := math.QuatFromAxisAngle(math.Vec3{Y: 1}, 1)
	neg := math.Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}

	keys := []CompositeKeyframe{
		{Time: 0, Rotation: q, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		{Time: 1, Rotation: neg, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		{Time: 2, Rotation: q, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
	}

	filtered := FilterKeyframes(keys, 1e-5)
	if len(filtered) != 2 {
		t.Errorf("negated rotation should be dropped as identical, got %d keyframes", len(filtered))
	}
}

func TestFilterKeyframesRotationChangeRetained(t *testing.T) {
	identity := math.QuatIdentity()
	turned := math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.5)

	keys := []CompositeKeyframe{
		{Time: 0, Rotation: identity, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		{Time: 1, Rotation: turned, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
		{Time: 2, Rotation: identity, Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
	}

	filtered := FilterKeyframes(keys, 1e-5)
	if len(filtered) != 3 {
		t.Errorf("a real rotation change must be retained, got %d keyframes", len(filtered))
	}
}

// Helper functions for building keyframe sequences

// driftingKeys builds one keyframe per value, at times 0, 1, 2, ..., moving
// only along the translation X axis.
func driftingKeys(xs []float32) []CompositeKeyframe {
	keys := make([]CompositeKeyframe, len(xs))
	for i, x := range xs {
		keys[i] = CompositeKeyframe{
			Time:        float64(i),
			Translation: math.Vec3{X: x},
			Rotation:    math.QuatIdentity(),
			Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		}
	}
	return keys
}
