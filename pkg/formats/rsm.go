package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidRSMCount       = errors.New("invalid RSM count")
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	if v.Major > major {
		return true
	}
	if v.Major == major && v.Minor >= minor {
		return true
	}
	return false
}

// RSMPosKeyframe represents a position animation keyframe.
type RSMPosKeyframe struct {
	Frame    int32      // Frame time in milliseconds
	Position [3]float32 // X, Y, Z position
}

// RSMRotKeyframe represents a rotation animation keyframe.
type RSMRotKeyframe struct {
	Frame      int32      // Frame time in milliseconds
	Quaternion [4]float32 // X, Y, Z, W quaternion
}

// RSMScaleKeyframe represents a scale animation keyframe.
type RSMScaleKeyframe struct {
	Frame int32      // Frame time in milliseconds
	Scale [3]float32 // X, Y, Z scale
}

// RSMNode is one node of the model hierarchy with its rest transform and
// animation keyframes. Mesh payloads are skipped during parsing; only what
// the animation pipeline consumes is retained.
type RSMNode struct {
	Name   string
	Parent string // parent node name, empty for the root

	// Rest transform. The 3x3 pivot matrix and mesh offset that precede
	// these in the file apply to vertices only and are not inherited by
	// children, so they are not kept.
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	PosKeys   []RSMPosKeyframe   // v < 1.5 only
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe // v >= 1.5 only
}

// RSM represents a parsed RSM (Resource Model) file, reduced to its node
// hierarchy and keyframe animation.
type RSM struct {
	Version    RSMVersion
	AnimLength int32 // animation length in milliseconds
	RootNode   string
	Nodes      []RSMNode
}

// LoadRSMFile parses an RSM file from disk and converts it.
func LoadRSMFile(path string) (*scene.Scene, error) {
	rsm, err := ParseRSMFile(path)
	if err != nil {
		return nil, err
	}
	return rsm.Scene(), nil
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// ParseRSM parses RSM data from a byte slice. Versions 1.1 through 2.1 are
// supported; the layout changes at 2.2 (length-prefixed strings among other
// things), which this parser does not speak.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 14 {
		return nil, ErrTruncatedRSMData
	}

	r := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := r.Read(magic); err != nil {
		return nil, ErrTruncatedRSMData
	}
	if string(magic) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	var verMajor, verMinor uint8
	binary.Read(r, binary.LittleEndian, &verMajor)
	binary.Read(r, binary.LittleEndian, &verMinor)

	rsm := &RSM{
		Version: RSMVersion{Major: verMajor, Minor: verMinor},
	}

	supported := (rsm.Version.Major == 1 && rsm.Version.Minor >= 1) ||
		(rsm.Version.Major == 2 && rsm.Version.Minor <= 1)
	if !supported {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	binary.Read(r, binary.LittleEndian, &rsm.AnimLength)

	// Shading type, render-only.
	if err := skipRSM(r, 4, "shading type"); err != nil {
		return nil, err
	}

	// Global alpha (v1.4+), render-only.
	if rsm.Version.AtLeast(1, 4) {
		if err := skipRSM(r, 1, "alpha"); err != nil {
			return nil, err
		}
	}

	// Reserved bytes.
	if err := skipRSM(r, 16, "reserved header"); err != nil {
		return nil, err
	}

	// Texture table, mesh-only.
	textureCount, err := readRSMCount(r, 1000, "textures")
	if err != nil {
		return nil, err
	}
	if err := skipRSM(r, int(textureCount)*40, "texture names"); err != nil {
		return nil, err
	}

	rsm.RootNode = readString(r, 40)

	nodeCount, err := readRSMCount(r, 10000, "nodes")
	if err != nil {
		return nil, err
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := int32(0); i < nodeCount; i++ {
		node, err := parseRSMNode(r, rsm.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
		rsm.Nodes[i] = *node
	}

	// Volume boxes and anything after them are collision and render
	// concerns; parsing stops here.

	return rsm, nil
}

// parseRSMNode parses a single node from the reader.
func parseRSMNode(r *bytes.Reader, version RSMVersion) (*RSMNode, error) {
	node := &RSMNode{}

	node.Name = readString(r, 40)
	node.Parent = readString(r, 40)

	textureCount, err := readRSMCount(r, 1000, "node textures")
	if err != nil {
		return nil, err
	}
	if err := skipRSM(r, int(textureCount)*4, "node texture ids"); err != nil {
		return nil, err
	}

	// Pivot matrix (9 floats) and mesh offset (3 floats), vertex-only.
	if err := skipRSM(r, 48, "pivot transform"); err != nil {
		return nil, err
	}

	if r.Len() < 40 {
		return nil, fmt.Errorf("%w: node transform", ErrTruncatedRSMData)
	}
	binary.Read(r, binary.LittleEndian, &node.Position)
	binary.Read(r, binary.LittleEndian, &node.RotAngle)
	binary.Read(r, binary.LittleEndian, &node.RotAxis)
	binary.Read(r, binary.LittleEndian, &node.Scale)

	// Vertices.
	vertexCount, err := readRSMCount(r, 100000, "vertices")
	if err != nil {
		return nil, err
	}
	if err := skipRSM(r, int(vertexCount)*12, "vertices"); err != nil {
		return nil, err
	}

	// Texture coordinates: vertex color (v1.2+) plus U, V.
	texCoordCount, err := readRSMCount(r, 100000, "texture coordinates")
	if err != nil {
		return nil, err
	}
	texCoordSize := 8
	if version.AtLeast(1, 2) {
		texCoordSize = 12
	}
	if err := skipRSM(r, int(texCoordCount)*texCoordSize, "texture coordinates"); err != nil {
		return nil, err
	}

	// Faces: vertex/texcoord indices, texture id, padding, two-side flag,
	// plus smooth group (v1.2+).
	faceCount, err := readRSMCount(r, 100000, "faces")
	if err != nil {
		return nil, err
	}
	faceSize := 20
	if version.AtLeast(1, 2) {
		faceSize = 24
	}
	if err := skipRSM(r, int(faceCount)*faceSize, "faces"); err != nil {
		return nil, err
	}

	// Position keyframes (v < 1.5).
	if !version.AtLeast(1, 5) {
		count, err := readRSMCount(r, 10000, "position keyframes")
		if err != nil {
			return nil, err
		}
		if count > 0 {
			node.PosKeys = make([]RSMPosKeyframe, count)
			if err := binary.Read(r, binary.LittleEndian, node.PosKeys); err != nil {
				return nil, fmt.Errorf("%w: position keyframes", ErrTruncatedRSMData)
			}
		}
	}

	// Rotation keyframes.
	rotCount, err := readRSMCount(r, 10000, "rotation keyframes")
	if err != nil {
		return nil, err
	}
	if rotCount > 0 {
		node.RotKeys = make([]RSMRotKeyframe, rotCount)
		if err := binary.Read(r, binary.LittleEndian, node.RotKeys); err != nil {
			return nil, fmt.Errorf("%w: rotation keyframes", ErrTruncatedRSMData)
		}
	}

	// Scale keyframes (v >= 1.5).
	if version.AtLeast(1, 5) {
		count, err := readRSMCount(r, 10000, "scale keyframes")
		if err != nil {
			return nil, err
		}
		if count > 0 {
			node.ScaleKeys = make([]RSMScaleKeyframe, count)
			if err := binary.Read(r, binary.LittleEndian, node.ScaleKeys); err != nil {
				return nil, fmt.Errorf("%w: scale keyframes", ErrTruncatedRSMData)
			}
		}
	}

	return node, nil
}

// readRSMCount reads an int32 element count and validates it against limit.
func readRSMCount(r *bytes.Reader, limit int32, what string) (int32, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("%w: %s count", ErrTruncatedRSMData, what)
	}
	if n < 0 || n > limit {
		return 0, fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	return n, nil
}

// skipRSM advances the reader past n bytes of payload it does not keep.
func skipRSM(r *bytes.Reader, n int, what string) error {
	if r.Len() < n {
		return fmt.Errorf("%w: %s", ErrTruncatedRSMData, what)
	}
	r.Seek(int64(n), io.SeekCurrent)
	return nil
}

// readString reads a fixed-length null-terminated string from a reader.
func readString(r *bytes.Reader, length int) string {
	buf := make([]byte, length)
	r.Read(buf)
	// Find null terminator
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// HasAnimation returns true if the model has any animation keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, node := range rsm.Nodes {
		if len(node.PosKeys) > 0 || len(node.RotKeys) > 0 || len(node.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}

// Scene converts the parsed model into the shared scene model. Node rest
// transforms come from the position, axis-angle rotation and scale fields;
// keyframe times are converted from milliseconds to seconds. A clip is
// produced only when the model carries keyframes.
func (rsm *RSM) Scene() *scene.Scene {
	s := &scene.Scene{}

	for _, n := range rsm.Nodes {
		parent := n.Parent
		// Some models mark the root by naming it as its own parent.
		if parent == n.Name {
			parent = ""
		}
		axis := math.Vec3{X: n.RotAxis[0], Y: n.RotAxis[1], Z: n.RotAxis[2]}
		s.Nodes = append(s.Nodes, scene.Node{
			Name:   n.Name,
			Parent: parent,
			Rest: scene.Transform{
				Translation: math.Vec3{X: n.Position[0], Y: n.Position[1], Z: n.Position[2]},
				Rotation:    math.QuatFromAxisAngle(axis.Normalize(), n.RotAngle).Normalize(),
				Scale:       math.Vec3{X: n.Scale[0], Y: n.Scale[1], Z: n.Scale[2]},
			},
		})
	}

	if !rsm.HasAnimation() {
		return s
	}

	clip := scene.Clip{
		Duration: float64(rsm.AnimLength) / 1000,
	}

	for _, n := range rsm.Nodes {
		if len(n.PosKeys) == 0 && len(n.RotKeys) == 0 && len(n.ScaleKeys) == 0 {
			continue
		}
		ch := scene.Channel{Node: n.Name}
		for _, k := range n.PosKeys {
			ch.PositionKeys = append(ch.PositionKeys, scene.VectorKey{
				Time:  float64(k.Frame) / 1000,
				Value: math.Vec3{X: k.Position[0], Y: k.Position[1], Z: k.Position[2]},
			})
		}
		for _, k := range n.RotKeys {
			ch.RotationKeys = append(ch.RotationKeys, scene.QuatKey{
				Time:  float64(k.Frame) / 1000,
				Value: math.Quat{X: k.Quaternion[0], Y: k.Quaternion[1], Z: k.Quaternion[2], W: k.Quaternion[3]},
			})
		}
		for _, k := range n.ScaleKeys {
			ch.ScaleKeys = append(ch.ScaleKeys, scene.VectorKey{
				Time:  float64(k.Frame) / 1000,
				Value: math.Vec3{X: k.Scale[0], Y: k.Scale[1], Z: k.Scale[2]},
			})
		}
		sortChannelKeys(&ch)
		clip.Channels = append(clip.Channels, ch)
	}

	s.Clips = append(s.Clips, clip)
	return s
}
