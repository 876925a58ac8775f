// Package formats provides loaders for skeletal animation file formats.
// Each loader parses one format and converts it into the shared scene model;
// Open picks the loader from the file extension.
package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/rbxanim/pkg/scene"
)

// ErrUnsupportedFormat marks a file extension no loader claims.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Extensions lists the file extensions Open accepts, in display order.
func Extensions() []string {
	return []string{".gltf", ".glb", ".bvh", ".rsm"}
}

// Open loads an animation file, picking the parser from the extension.
// Clips that carry no name in the file are named after the file itself.
func Open(path string) (*scene.Scene, error) {
	var (
		s   *scene.Scene
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		s, err = LoadGLTFFile(path)
	case ".bvh":
		s, err = LoadBVHFile(path)
	case ".rsm":
		s, err = LoadRSMFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range s.Clips {
		if s.Clips[i].Name == "" {
			s.Clips[i].Name = stem
		}
	}
	return s, nil
}

// uniqueName returns name suffixed to be unique among the names already
// seen, recording the result. Loaders use it to keep node names usable as
// hierarchy keys even when the source file repeats them.
func uniqueName(seen map[string]bool, name string) string {
	if !seen[name] {
		seen[name] = true
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}

// sortChannelKeys restores the monotonic-time contract of the scene model;
// well-formed files carry their keyframes already sorted, so this is
// normally a no-op.
func sortChannelKeys(ch *scene.Channel) {
	sort.SliceStable(ch.PositionKeys, func(i, j int) bool { return ch.PositionKeys[i].Time < ch.PositionKeys[j].Time })
	sort.SliceStable(ch.RotationKeys, func(i, j int) bool { return ch.RotationKeys[i].Time < ch.RotationKeys[j].Time })
	sort.SliceStable(ch.ScaleKeys, func(i, j int) bool { return ch.ScaleKeys[i].Time < ch.ScaleKeys[j].Time })
}
