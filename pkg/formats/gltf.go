package formats

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// glTF loader errors.
var (
	ErrMalformedGLTF       = errors.New("malformed glTF animation")
	ErrUnsupportedAccessor = errors.New("unsupported glTF accessor layout")
)

var identityMatrix = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// LoadGLTFFile loads a .gltf or .glb file and extracts its node hierarchy
// and animation clips.
func LoadGLTFFile(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading glTF file: %w", err)
	}
	return SceneFromGLTF(doc)
}

// SceneFromGLTF converts an in-memory glTF document into the shared scene
// model. Unnamed nodes are named by index and duplicate names are suffixed,
// so every node can act as a hierarchy key. A document with several
// top-level nodes gets a synthetic common root so the skeleton stays one
// tree.
func SceneFromGLTF(doc *gltf.Document) (*scene.Scene, error) {
	seen := make(map[string]bool, len(doc.Nodes))
	names := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		names[i] = uniqueName(seen, name)
	}

	parents := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(parents) {
				parents[c] = names[i]
			}
		}
	}

	s := &scene.Scene{}

	rootCount := 0
	for i := range doc.Nodes {
		if parents[i] == "" {
			rootCount++
		}
	}
	if rootCount > 1 {
		rootName := uniqueName(seen, "RootNode")
		s.Nodes = append(s.Nodes, scene.Node{Name: rootName, Rest: scene.IdentityTransform()})
		for i := range parents {
			if parents[i] == "" {
				parents[i] = rootName
			}
		}
	}

	for i, n := range doc.Nodes {
		s.Nodes = append(s.Nodes, scene.Node{
			Name:   names[i],
			Parent: parents[i],
			Rest:   nodeTransform(n),
		})
	}

	for i, a := range doc.Animations {
		clip, err := clipFromAnimation(doc, a, i, names)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		s.Clips = append(s.Clips, clip)
	}

	return s, nil
}

// nodeTransform resolves a node's rest pose. A node carries either a matrix
// or separate TRS fields; an all-zero rotation or scale means the field was
// absent and the glTF default applies.
func nodeTransform(n *gltf.Node) scene.Transform {
	if n.Matrix != identityMatrix && n.Matrix != ([16]float32{}) {
		t, r, s := math.Mat4(n.Matrix).Decompose()
		return scene.Transform{Translation: t, Rotation: r, Scale: s}
	}

	tr := scene.Transform{
		Translation: math.Vec3{X: n.Translation[0], Y: n.Translation[1], Z: n.Translation[2]},
		Rotation:    math.Quat{X: n.Rotation[0], Y: n.Rotation[1], Z: n.Rotation[2], W: n.Rotation[3]}.Normalize(),
		Scale:       math.Vec3{X: n.Scale[0], Y: n.Scale[1], Z: n.Scale[2]},
	}
	if tr.Scale == (math.Vec3{}) {
		tr.Scale = math.Vec3{X: 1, Y: 1, Z: 1}
	}
	return tr
}

// clipFromAnimation converts one glTF animation. Channels are grouped per
// target node in first-appearance order; morph weight channels are skipped.
// The clip duration is the latest timestamp any sampler carries.
func clipFromAnimation(doc *gltf.Document, a *gltf.Animation, index int, names []string) (scene.Clip, error) {
	clip := scene.Clip{Name: a.Name}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", index)
	}

	byNode := make(map[uint32]int)

	for _, ch := range a.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		if ch.Target.Path == gltf.TRSWeights {
			continue
		}
		nodeIdx := *ch.Target.Node
		if int(nodeIdx) >= len(names) {
			return scene.Clip{}, fmt.Errorf("%w: channel targets node %d of %d", ErrMalformedGLTF, nodeIdx, len(names))
		}
		if int(*ch.Sampler) >= len(a.Samplers) {
			return scene.Clip{}, fmt.Errorf("%w: channel references sampler %d of %d", ErrMalformedGLTF, *ch.Sampler, len(a.Samplers))
		}
		smp := a.Samplers[*ch.Sampler]
		if smp.Input == nil || smp.Output == nil {
			return scene.Clip{}, fmt.Errorf("%w: sampler without input or output", ErrMalformedGLTF)
		}

		times, err := readSamplerTimes(doc, *smp.Input)
		if err != nil {
			return scene.Clip{}, err
		}

		// CUBICSPLINE stores in-tangent, value, out-tangent triples; the
		// converter resamples without interpolating, so only the value
		// matters.
		stride, offset := 1, 0
		if smp.Interpolation == gltf.InterpolationCubicSpline {
			stride, offset = 3, 1
		}

		target, ok := byNode[nodeIdx]
		if !ok {
			clip.Channels = append(clip.Channels, scene.Channel{Node: names[nodeIdx]})
			target = len(clip.Channels) - 1
			byNode[nodeIdx] = target
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			keys, err := vectorKeys(doc, *smp.Output, times, stride, offset)
			if err != nil {
				return scene.Clip{}, fmt.Errorf("%s channel: %w", ch.Target.Path, err)
			}
			if ch.Target.Path == gltf.TRSTranslation {
				clip.Channels[target].PositionKeys = append(clip.Channels[target].PositionKeys, keys...)
			} else {
				clip.Channels[target].ScaleKeys = append(clip.Channels[target].ScaleKeys, keys...)
			}
		case gltf.TRSRotation:
			keys, err := quatKeys(doc, *smp.Output, times, stride, offset)
			if err != nil {
				return scene.Clip{}, fmt.Errorf("rotation channel: %w", err)
			}
			clip.Channels[target].RotationKeys = append(clip.Channels[target].RotationKeys, keys...)
		}

		for _, t := range times {
			if t > clip.Duration {
				clip.Duration = t
			}
		}
	}

	for i := range clip.Channels {
		sortChannelKeys(&clip.Channels[i])
	}

	return clip, nil
}

func readSamplerTimes(doc *gltf.Document, accessor uint32) ([]float64, error) {
	data, err := readAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	floats, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: sampler input is %T, want []float32", ErrUnsupportedAccessor, data)
	}
	times := make([]float64, len(floats))
	for i, f := range floats {
		times[i] = float64(f)
	}
	return times, nil
}

func vectorKeys(doc *gltf.Document, accessor uint32, times []float64, stride, offset int) ([]scene.VectorKey, error) {
	data, err := readAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	vecs, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("%w: sampler output is %T, want [][3]float32", ErrUnsupportedAccessor, data)
	}
	if len(vecs) < len(times)*stride {
		return nil, fmt.Errorf("%w: %d output values for %d keyframes", ErrMalformedGLTF, len(vecs), len(times))
	}

	keys := make([]scene.VectorKey, len(times))
	for i, t := range times {
		v := vecs[i*stride+offset]
		keys[i] = scene.VectorKey{Time: t, Value: math.Vec3{X: v[0], Y: v[1], Z: v[2]}}
	}
	return keys, nil
}

func quatKeys(doc *gltf.Document, accessor uint32, times []float64, stride, offset int) ([]scene.QuatKey, error) {
	data, err := readAccessor(doc, accessor)
	if err != nil {
		return nil, err
	}
	quats, ok := data.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("%w: sampler output is %T, want [][4]float32", ErrUnsupportedAccessor, data)
	}
	if len(quats) < len(times)*stride {
		return nil, fmt.Errorf("%w: %d output values for %d keyframes", ErrMalformedGLTF, len(quats), len(times))
	}

	keys := make([]scene.QuatKey, len(times))
	for i, t := range times {
		q := quats[i*stride+offset]
		keys[i] = scene.QuatKey{Time: t, Value: math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}}
	}
	return keys, nil
}

func readAccessor(doc *gltf.Document, index uint32) (interface{}, error) {
	if int(index) >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrMalformedGLTF, index, len(doc.Accessors))
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, fmt.Errorf("reading accessor %d: %w", index, err)
	}
	return data, nil
}
