package converter

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

func TestSampleChannelMergesTimelines(t *testing.T) {
	ch := &scene.Channel{
		Node: "Root",
		PositionKeys: []scene.VectorKey{
			{Time: 0, Value: math.Vec3{X: 1}},
			{Time: 10, Value: math.Vec3{X: 2}},
		},
		RotationKeys: []scene.QuatKey{
			{Time: 5, Value: math.QuatFromAxisAngle(math.Vec3{Y: 1}, float32(gomath.Pi/2))},
		},
		ScaleKeys: []scene.VectorKey{
			{Time: 15, Value: math.Vec3{X: 3, Y: 3, Z: 3}},
		},
	}

	keys, err := SampleChannel(ch, scene.IdentityTransform())
	if err != nil {
		t.Fatalf("SampleChannel failed: %v", err)
	}

	wantTimes := []float64{0, 5, 10, 15}
	if len(keys) != len(wantTimes) {
		t.Fatalf("got %d keyframes, want %d", len(keys), len(wantTimes))
	}
	for i, want := range wantTimes {
		if keys[i].Time != want {
			t.Errorf("keys[%d].Time = %v, want %v", i, keys[i].Time, want)
		}
	}

	// Held value: between position samples the earlier one is carried
	// forward, past the last one the last is carried forward.
	if keys[1].Translation.X != 1 {
		t.Errorf("translation at t=5 should hold the t=0 sample, got %v", keys[1].Translation.X)
	}
	if keys[3].Translation.X != 2 {
		t.Errorf("translation at t=15 should hold the t=10 sample, got %v", keys[3].Translation.X)
	}
}

func TestSampleChannelRestFallback(t *testing.T) {
	rest := scene.Transform{
		Translation: math.Vec3{X: 7},
		Rotation:    math.QuatFromAxisAngle(math.Vec3{Z: 1}, float32(gomath.Pi/2)),
		Scale:       math.Vec3{X: 2, Y: 2, Z: 2},
	}
	ch := &scene.Channel{
		Node: "Arm",
		PositionKeys: []scene.VectorKey{
			{Time: 0, Value: math.Vec3{X: 1}},
		},
		RotationKeys: []scene.QuatKey{
			{Time: 5, Value: math.QuatIdentity()},
		},
	}

	keys, err := SampleChannel(ch, rest)
	if err != nil {
		t.Fatalf("SampleChannel failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keyframes, want 2", len(keys))
	}

	// No rotation sample precedes t=0 and no scale samples exist at all,
	// so both fall back to the rest pose.
	if gomath.Abs(float64(keys[0].Rotation.Dot(rest.Rotation))) < 0.9999 {
		t.Errorf("rotation at t=0 should be the rest rotation, got %v", keys[0].Rotation)
	}
	if keys[0].Scale != rest.Scale || keys[1].Scale != rest.Scale {
		t.Error("scale should fall back to the rest scale at every time")
	}
	if keys[0].Translation.X != 1 {
		t.Errorf("translation at t=0 should use the key, got %v", keys[0].Translation.X)
	}
}

func TestSampleChannelDeduplicatesTimes(t *testing.T) {
	ch := &scene.Channel{
		Node: "Root",
		PositionKeys: []scene.VectorKey{
			{Time: 0, Value: math.Vec3{}},
			{Time: 1, Value: math.Vec3{X: 1}},
		},
		RotationKeys: []scene.QuatKey{
			{Time: 1, Value: math.QuatIdentity()},
		},
	}

	keys, err := SampleChannel(ch, scene.IdentityTransform())
	if err != nil {
		t.Fatalf("SampleChannel failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("shared timestamps should appear once, got %d keyframes", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].Time <= keys[i-1].Time {
			t.Errorf("times should be strictly increasing, got %v then %v", keys[i-1].Time, keys[i].Time)
		}
	}
}

func TestSampleChannelNormalizesRotation(t *testing.T) {
	ch := &scene.Channel{
		Node: "Root",
		RotationKeys: []scene.QuatKey{
			{Time: 0, Value: math.Quat{X: 0, Y: 0, Z: 0, W: 2}},
		},
	}

	keys, err := SampleChannel(ch, scene.IdentityTransform())
	if err != nil {
		t.Fatalf("SampleChannel failed: %v", err)
	}

	q := keys[0].Rotation
	length := gomath.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W))
	if gomath.Abs(length-1) > 0.0001 {
		t.Errorf("sampled rotation should be unit length, got %v", length)
	}
}

func TestSampleChannelEmpty(t *testing.T) {
	keys, err := SampleChannel(&scene.Channel{Node: "Root"}, scene.IdentityTransform())
	if err != nil {
		t.Fatalf("SampleChannel failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("empty channel should produce no keyframes, got %d", len(keys))
	}

	keys, err = SampleChannel(nil, scene.IdentityTransform())
	if err != nil || len(keys) != 0 {
		t.Errorf("nil channel should produce no keyframes, got %d (err %v)", len(keys), err)
	}
}

func TestSampleChannelNonFinite(t *testing.T) {
	ch := &scene.Channel{
		Node: "Root",
		PositionKeys: []scene.VectorKey{
			{Time: 0, Value: math.Vec3{X: float32(gomath.NaN())}},
		},
	}

	_, err := SampleChannel(ch, scene.IdentityTransform())
	if !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("NaN sample should fail with ErrInvalidTransform, got %v", err)
	}
}
