// Package scene holds the format-independent model that loaders produce and
// the converter consumes: a node hierarchy with rest transforms plus the
// animation clips that target it.
package scene

import "github.com/Faultbox/rbxanim/pkg/math"

// Transform is a local translation, rotation and scale relative to the
// parent node.
type Transform struct {
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3
}

// IdentityTransform returns a transform with no offset, no rotation and
// unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
	}
}

// Node is a single element of the scene hierarchy. Parent names the parent
// node; it is empty for a root.
type Node struct {
	Name   string
	Parent string
	Rest   Transform
}

// VectorKey is a vector value sampled at a point in time (seconds).
type VectorKey struct {
	Time  float64
	Value math.Vec3
}

// QuatKey is a rotation sampled at a point in time (seconds).
type QuatKey struct {
	Time  float64
	Value math.Quat
}

// Channel carries the raw keys an animation recorded for one node. The three
// key lists are independent: they may differ in length and timing.
type Channel struct {
	Node         string
	PositionKeys []VectorKey
	RotationKeys []QuatKey
	ScaleKeys    []VectorKey
}

// Empty reports whether the channel carries no keys at all.
func (c *Channel) Empty() bool {
	return len(c.PositionKeys) == 0 && len(c.RotationKeys) == 0 && len(c.ScaleKeys) == 0
}

// Clip is a named animation: a duration in seconds and one channel per
// animated node.
type Clip struct {
	Name     string
	Duration float64
	Channels []Channel
}

// ChannelFor returns the channel targeting the named node, if any.
func (c *Clip) ChannelFor(node string) (*Channel, bool) {
	for i := range c.Channels {
		if c.Channels[i].Node == node {
			return &c.Channels[i], true
		}
	}
	return nil, false
}

// Scene is a loader's output: every node of the source hierarchy in source
// order, plus the animation clips found in the file.
type Scene struct {
	Nodes []Node
	Clips []Clip
}

// Node returns the named node, if present.
func (s *Scene) Node(name string) (*Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// Children returns the nodes whose parent is the named node, in scene order.
// Passing the empty string returns the roots.
func (s *Scene) Children(name string) []*Node {
	var children []*Node
	for i := range s.Nodes {
		if s.Nodes[i].Parent == name && s.Nodes[i].Name != name {
			children = append(children, &s.Nodes[i])
		}
	}
	return children
}
