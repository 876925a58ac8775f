// Package converter turns a parsed scene's skeletal animation into a
// keyframe sequence document: it selects the bones the clip touches, merges
// each bone's channels onto one timeline, drops redundant poses and emits
// one keyframe per remaining instant with a pose tree mirroring the
// skeleton.
package converter

import (
	"fmt"

	"github.com/Faultbox/rbxanim/pkg/scene"
)

// Config controls a single conversion call.
type Config struct {
	// FilterIdenticalPoses drops keyframes indistinguishable from the
	// previously retained one. Timing boundaries are always kept.
	FilterIdenticalPoses bool
	// Epsilon is the tolerance for pose equality during filtering.
	Epsilon float64
	// Clip selects which animation clip of the scene to convert.
	Clip int
	// Loop marks the resulting sequence as looping.
	Loop bool
}

// DefaultConfig returns the configuration used when the caller has no
// opinion: filtering on with a tolerance snug enough to only drop poses
// that differ by float noise.
func DefaultConfig() Config {
	return Config{
		FilterIdenticalPoses: true,
		Epsilon:              1e-5,
	}
}

// Convert runs the full pipeline on one scene and returns the finished
// document. It is a pure function of its inputs: no state is shared across
// calls, so independent scenes may be converted concurrently. The first
// error encountered halts the conversion; a partial document is never
// returned.
func Convert(s *scene.Scene, cfg Config) (*Document, error) {
	if s == nil || len(s.Nodes) == 0 {
		return nil, ErrEmptyScene
	}
	if len(s.Children("")) == 0 {
		return nil, fmt.Errorf("%w: no root node", ErrEmptyScene)
	}
	if len(s.Clips) == 0 {
		return nil, ErrNoAnimationFound
	}
	if cfg.Clip < 0 || cfg.Clip >= len(s.Clips) {
		return nil, fmt.Errorf("%w: clip index %d out of %d", ErrNoAnimationFound, cfg.Clip, len(s.Clips))
	}
	clip := &s.Clips[cfg.Clip]

	skel, err := BuildSkeleton(s, clip)
	if err != nil {
		return nil, err
	}

	for i := range skel.Bones {
		bone := &skel.Bones[i]
		ch, ok := clip.ChannelFor(bone.Name)
		if !ok {
			continue
		}

		keys, err := SampleChannel(ch, bone.Rest)
		if err != nil {
			return nil, err
		}
		if cfg.FilterIdenticalPoses {
			keys = FilterKeyframes(keys, cfg.Epsilon)
		}
		bone.Keys = keys
	}

	return BuildDocument(skel, clip, cfg.Loop)
}
