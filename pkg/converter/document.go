package converter

import (
	"fmt"
	"sort"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// Pose is one bone's resolved transform inside a single keyframe, placed at
// the bone's position in the hierarchy.
type Pose struct {
	Bone        string
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
	Children    []*Pose
}

// Keyframe is one marker of the output document: every bone's pose at one
// instant, with the root poses carrying the hierarchy.
type Keyframe struct {
	Time  float64
	Roots []*Pose
}

// Pose returns the named bone's pose within this keyframe, if present.
func (k *Keyframe) Pose(bone string) (*Pose, bool) {
	stack := append([]*Pose(nil), k.Roots...)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.Bone == bone {
			return p, true
		}
		stack = append(stack, p.Children...)
	}
	return nil, false
}

// Document is the finished keyframe sequence: one keyframe per distinct
// retained time across all bones, each holding a pose tree that mirrors the
// skeleton.
type Document struct {
	Name      string
	Duration  float64
	Loop      bool
	Skeleton  *Skeleton
	Keyframes []Keyframe
}

// BuildDocument assembles the output document from the sampled and filtered
// skeleton. The marker times are the union of every bone's retained keyframe
// times; a bone without a keyframe at a marker contributes its held value,
// or its rest pose before the first key.
func BuildDocument(skel *Skeleton, clip *scene.Clip, loop bool) (*Document, error) {
	if len(skel.Bones) == 0 {
		return nil, fmt.Errorf("%w: clip %q animates no node present in the scene", ErrEmptySkeleton, clip.Name)
	}

	times := markerTimes(skel)

	doc := &Document{
		Name:      clip.Name,
		Duration:  clip.Duration,
		Loop:      loop,
		Skeleton:  skel,
		Keyframes: make([]Keyframe, 0, len(times)),
	}
	if n := len(times); n > 0 && times[n-1] > doc.Duration {
		doc.Duration = times[n-1]
	}

	for _, t := range times {
		doc.Keyframes = append(doc.Keyframes, buildKeyframe(skel, t))
	}

	return doc, nil
}

// markerTimes returns the union of all bones' keyframe times, sorted
// ascending with duplicates removed.
func markerTimes(skel *Skeleton) []float64 {
	var times []float64
	for i := range skel.Bones {
		for _, k := range skel.Bones[i].Keys {
			times = append(times, k.Time)
		}
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

// buildKeyframe resolves every bone's pose at time t and links the poses
// into the skeleton's tree shape. Bones are stored parents first, so a
// parent's pose always exists by the time its children attach to it.
func buildKeyframe(skel *Skeleton, t float64) Keyframe {
	kf := Keyframe{Time: t}

	poses := make([]*Pose, len(skel.Bones))
	for i := range skel.Bones {
		bone := &skel.Bones[i]

		pose := &Pose{Bone: bone.Name}
		pose.Translation, pose.Rotation, pose.Scale = bone.poseAt(t)

		poses[i] = pose
		if bone.Parent >= 0 {
			parent := poses[bone.Parent]
			parent.Children = append(parent.Children, pose)
		} else {
			kf.Roots = append(kf.Roots, pose)
		}
	}

	return kf
}

// poseAt is the held-value lookup over the bone's own keyframes: the latest
// key at or before t, or the rest pose when none precedes.
func (b *Bone) poseAt(t float64) (math.Vec3, math.Quat, math.Vec3) {
	i := sort.Search(len(b.Keys), func(i int) bool { return b.Keys[i].Time > t })
	if i == 0 {
		return b.Rest.Translation, b.Rest.Rotation, b.Rest.Scale
	}
	k := b.Keys[i-1]
	return k.Translation, k.Rotation, k.Scale
}
