package converter

import (
	"fmt"

	"github.com/Faultbox/rbxanim/pkg/scene"
)

// Bone is one target-side node: its place in the hierarchy, the rest
// transform it falls back to, and the composite keyframes resolved for the
// active clip.
type Bone struct {
	Name   string
	Parent int // index into Skeleton.Bones, -1 for a root
	Rest   scene.Transform
	Keys   []CompositeKeyframe
}

// Skeleton is the bone hierarchy extracted for one clip. Bones are stored
// depth-first, parents before children, so walking the slice in order never
// visits a child before its parent.
type Skeleton struct {
	Bones []Bone
}

// Index returns the position of the named bone, if present.
func (s *Skeleton) Index(name string) (int, bool) {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Children returns the indices of the bones parented to bone i.
func (s *Skeleton) Children(i int) []int {
	var children []int
	for j := range s.Bones {
		if s.Bones[j].Parent == i {
			children = append(children, j)
		}
	}
	return children
}

// BuildSkeleton selects the scene nodes that act as bones for the clip: every
// node targeted by a channel, plus all of its ancestors so the hierarchy stays
// connected up to the root. Channels that target nodes missing from the scene
// are ignored. The result may be empty; the document builder rejects that.
func BuildSkeleton(s *scene.Scene, clip *scene.Clip) (*Skeleton, error) {
	marked := make(map[string]bool, len(clip.Channels))

	for i := range clip.Channels {
		name := clip.Channels[i].Node
		if _, ok := s.Node(name); !ok {
			continue
		}
		if err := markAncestors(s, name, marked); err != nil {
			return nil, err
		}
	}

	skel := &Skeleton{}
	index := make(map[string]int, len(marked))

	var walk func(n *scene.Node, parent int) error
	walk = func(n *scene.Node, parent int) error {
		boneParent := parent
		if marked[n.Name] {
			if !n.Rest.Translation.IsFinite() || !n.Rest.Rotation.IsFinite() || !n.Rest.Scale.IsFinite() {
				return fmt.Errorf("%w: rest pose of node %q", ErrInvalidTransform, n.Name)
			}
			boneParent = len(skel.Bones)
			index[n.Name] = boneParent
			skel.Bones = append(skel.Bones, Bone{
				Name:   n.Name,
				Parent: parent,
				Rest:   n.Rest,
			})
		}
		for _, child := range s.Children(n.Name) {
			if err := walk(child, boneParent); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range s.Children("") {
		if err := walk(root, -1); err != nil {
			return nil, err
		}
	}

	return skel, nil
}

// markAncestors marks the node and every ancestor up to its root. A parent
// name that resolves to no node, or a chain longer than the scene itself,
// means the hierarchy cannot reach a root. The chain is always walked to the
// end: stopping at an already-marked node would let a cycle shared by two
// channels go unnoticed.
func markAncestors(s *scene.Scene, name string, marked map[string]bool) error {
	current := name
	for steps := 0; current != ""; steps++ {
		if steps > len(s.Nodes) {
			return fmt.Errorf("%w: cycle through node %q", ErrDisconnectedSkeleton, name)
		}
		node, ok := s.Node(current)
		if !ok {
			return fmt.Errorf("%w: node %q has unknown parent %q", ErrDisconnectedSkeleton, name, current)
		}
		marked[current] = true
		current = node.Parent
	}
	return nil
}
