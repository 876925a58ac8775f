package converter

import (
	"fmt"
	"sort"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// CompositeKeyframe is a bone's fully merged transform at one instant,
// combining the position, rotation and scale channels.
type CompositeKeyframe struct {
	Time        float64
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// SampleChannel merges a channel's three independently-timed key lists onto
// one shared timeline. The candidate times are the union of all timestamps
// the channel carries; each component is resolved by held-value lookup (the
// nearest sample at or before the time), falling back to the rest pose when
// no sample precedes. This never invents values between samples, which is
// exactly how the target runtime evaluates discrete keyframes.
func SampleChannel(ch *scene.Channel, rest scene.Transform) ([]CompositeKeyframe, error) {
	if ch == nil || ch.Empty() {
		return nil, nil
	}

	times := candidateTimes(ch)

	keys := make([]CompositeKeyframe, 0, len(times))
	for _, t := range times {
		key := CompositeKeyframe{
			Time:        t,
			Translation: heldVector(ch.PositionKeys, t, rest.Translation),
			Rotation:    heldRotation(ch.RotationKeys, t, rest.Rotation).Normalize(),
			Scale:       heldVector(ch.ScaleKeys, t, rest.Scale),
		}
		if !key.Translation.IsFinite() || !key.Rotation.IsFinite() || !key.Scale.IsFinite() {
			return nil, fmt.Errorf("%w: node %q at t=%v", ErrInvalidTransform, ch.Node, t)
		}
		keys = append(keys, key)
	}

	return keys, nil
}

// candidateTimes returns the union of the channel's timestamps, sorted
// ascending with duplicates removed.
func candidateTimes(ch *scene.Channel) []float64 {
	times := make([]float64, 0, len(ch.PositionKeys)+len(ch.RotationKeys)+len(ch.ScaleKeys))
	for _, k := range ch.PositionKeys {
		times = append(times, k.Time)
	}
	for _, k := range ch.RotationKeys {
		times = append(times, k.Time)
	}
	for _, k := range ch.ScaleKeys {
		times = append(times, k.Time)
	}

	sort.Float64s(times)

	unique := times[:0]
	for i, t := range times {
		if i == 0 || t != unique[len(unique)-1] {
			unique = append(unique, t)
		}
	}
	return unique
}

// heldVector returns the value of the latest key at or before t, or the
// fallback when no key precedes t.
func heldVector(keys []scene.VectorKey, t float64, fallback math.Vec3) math.Vec3 {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	if i == 0 {
		return fallback
	}
	return keys[i-1].Value
}

// heldRotation returns the rotation of the latest key at or before t, or the
// fallback when no key precedes t.
func heldRotation(keys []scene.QuatKey, t float64, fallback math.Quat) math.Quat {
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	if i == 0 {
		return fallback
	}
	return keys[i-1].Value
}
