package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strconv"

	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// BVH format errors.
var (
	ErrInvalidBVHHeader   = errors.New("invalid BVH header")
	ErrInvalidBVHChannel  = errors.New("invalid BVH channel")
	ErrTruncatedBVHMotion = errors.New("truncated BVH motion data")
)

// BVHJoint is one joint of the hierarchy section: its offset from the
// parent and the motion channels it owns, in file order.
type BVHJoint struct {
	Name     string
	Parent   int // index into BVH.Joints, -1 for a root
	Offset   [3]float32
	Channels []string
}

// BVH is a parsed BVH (Biovision Hierarchy) motion capture file.
type BVH struct {
	Joints    []BVHJoint
	FrameTime float64
	Samples   [][]float32 // one row per frame, columns in joint channel order
}

// FrameCount returns the number of motion frames.
func (b *BVH) FrameCount() int {
	return len(b.Samples)
}

// LoadBVHFile parses a BVH file from disk and converts it.
func LoadBVHFile(path string) (*scene.Scene, error) {
	bvh, err := ParseBVHFile(path)
	if err != nil {
		return nil, err
	}
	return bvh.Scene(), nil
}

// ParseBVHFile parses a BVH file from disk.
func ParseBVHFile(path string) (*BVH, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading BVH file: %w", err)
	}
	return ParseBVH(data)
}

// ParseBVH parses BVH data from a byte slice.
func ParseBVH(data []byte) (*BVH, error) {
	p := &bvhParser{bvh: &BVH{}}
	p.sc = bufio.NewScanner(bytes.NewReader(data))
	p.sc.Split(bufio.ScanWords)

	if err := p.expect("HIERARCHY"); err != nil {
		return nil, err
	}

	tok, ok := p.token()
	if !ok || tok != "ROOT" {
		return nil, fmt.Errorf("%w: expected ROOT, got %q", ErrInvalidBVHHeader, tok)
	}
	for tok == "ROOT" {
		if err := p.parseJoint(-1); err != nil {
			return nil, err
		}
		tok, ok = p.token()
		if !ok {
			return nil, fmt.Errorf("%w: missing MOTION section", ErrInvalidBVHHeader)
		}
	}

	if tok != "MOTION" {
		return nil, fmt.Errorf("%w: expected MOTION, got %q", ErrInvalidBVHHeader, tok)
	}
	return p.bvh, p.parseMotion()
}

type bvhParser struct {
	sc  *bufio.Scanner
	bvh *BVH
}

func (p *bvhParser) token() (string, bool) {
	if !p.sc.Scan() {
		return "", false
	}
	return p.sc.Text(), true
}

func (p *bvhParser) expect(want string) error {
	tok, ok := p.token()
	if !ok {
		return fmt.Errorf("%w: expected %q, got end of data", ErrInvalidBVHHeader, want)
	}
	if tok != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrInvalidBVHHeader, want, tok)
	}
	return nil
}

func (p *bvhParser) float() (float64, error) {
	tok, ok := p.token()
	if !ok {
		return 0, fmt.Errorf("%w: expected a number, got end of data", ErrInvalidBVHHeader)
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidBVHHeader, tok)
	}
	return f, nil
}

func (p *bvhParser) offset() ([3]float32, error) {
	var off [3]float32
	if err := p.expect("OFFSET"); err != nil {
		return off, err
	}
	for i := 0; i < 3; i++ {
		f, err := p.float()
		if err != nil {
			return off, err
		}
		off[i] = float32(f)
	}
	return off, nil
}

// parseJoint reads one joint block: name, offset, channels and nested
// joints. End Sites mark leaf tails and carry no animation; their offsets
// are consumed and dropped.
func (p *bvhParser) parseJoint(parent int) error {
	name, ok := p.token()
	if !ok {
		return fmt.Errorf("%w: expected a joint name, got end of data", ErrInvalidBVHHeader)
	}
	if err := p.expect("{"); err != nil {
		return err
	}

	joint := BVHJoint{Name: name, Parent: parent}

	off, err := p.offset()
	if err != nil {
		return err
	}
	joint.Offset = off

	if err := p.expect("CHANNELS"); err != nil {
		return err
	}
	count, err := p.float()
	if err != nil {
		return err
	}
	if count < 0 || count > 6 {
		return fmt.Errorf("%w: joint %q declares %v channels", ErrInvalidBVHChannel, name, count)
	}
	for i := 0; i < int(count); i++ {
		ch, ok := p.token()
		if !ok {
			return fmt.Errorf("%w: joint %q channel list cut short", ErrInvalidBVHChannel, name)
		}
		switch ch {
		case "Xposition", "Yposition", "Zposition", "Xrotation", "Yrotation", "Zrotation":
			joint.Channels = append(joint.Channels, ch)
		default:
			return fmt.Errorf("%w: joint %q declares %q", ErrInvalidBVHChannel, name, ch)
		}
	}

	self := len(p.bvh.Joints)
	p.bvh.Joints = append(p.bvh.Joints, joint)

	for {
		tok, ok := p.token()
		if !ok {
			return fmt.Errorf("%w: joint %q is not closed", ErrInvalidBVHHeader, name)
		}
		switch tok {
		case "JOINT":
			if err := p.parseJoint(self); err != nil {
				return err
			}
		case "End":
			if err := p.expect("Site"); err != nil {
				return err
			}
			if err := p.expect("{"); err != nil {
				return err
			}
			if _, err := p.offset(); err != nil {
				return err
			}
			if err := p.expect("}"); err != nil {
				return err
			}
		case "}":
			return nil
		default:
			return fmt.Errorf("%w: unexpected %q in joint %q", ErrInvalidBVHHeader, tok, name)
		}
	}
}

func (p *bvhParser) parseMotion() error {
	if err := p.expect("Frames:"); err != nil {
		return err
	}
	frames, err := p.float()
	if err != nil {
		return err
	}
	if frames < 0 || frames != gomath.Trunc(frames) {
		return fmt.Errorf("%w: invalid frame count %v", ErrInvalidBVHHeader, frames)
	}
	if err := p.expect("Frame"); err != nil {
		return err
	}
	if err := p.expect("Time:"); err != nil {
		return err
	}
	p.bvh.FrameTime, err = p.float()
	if err != nil {
		return err
	}

	columns := 0
	for _, j := range p.bvh.Joints {
		columns += len(j.Channels)
	}

	p.bvh.Samples = make([][]float32, int(frames))
	for f := range p.bvh.Samples {
		row := make([]float32, columns)
		for c := range row {
			tok, ok := p.token()
			if !ok {
				return fmt.Errorf("%w: frame %d column %d", ErrTruncatedBVHMotion, f, c)
			}
			v, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return fmt.Errorf("%w: frame %d column %d: %q", ErrTruncatedBVHMotion, f, c, tok)
			}
			row[c] = float32(v)
		}
		p.bvh.Samples[f] = row
	}
	return nil
}

// Scene converts the parsed file into the shared scene model. Joints become
// nodes with their offset as rest translation; every frame becomes one key
// on each animated channel, at frame * FrameTime seconds. Motion
// translations are relative to the joint offset.
func (b *BVH) Scene() *scene.Scene {
	seen := make(map[string]bool, len(b.Joints))
	names := make([]string, len(b.Joints))
	for i, j := range b.Joints {
		name := j.Name
		if name == "" {
			name = fmt.Sprintf("joint_%d", i)
		}
		names[i] = uniqueName(seen, name)
	}

	s := &scene.Scene{}
	for i, j := range b.Joints {
		parent := ""
		if j.Parent >= 0 {
			parent = names[j.Parent]
		}
		s.Nodes = append(s.Nodes, scene.Node{
			Name:   names[i],
			Parent: parent,
			Rest: scene.Transform{
				Translation: math.Vec3{X: j.Offset[0], Y: j.Offset[1], Z: j.Offset[2]},
				Rotation:    math.QuatIdentity(),
				Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
			},
		})
	}

	if len(b.Samples) == 0 {
		return s
	}

	clip := scene.Clip{
		Duration: float64(len(b.Samples)-1) * b.FrameTime,
	}

	column := 0
	for i, j := range b.Joints {
		start := column
		column += len(j.Channels)
		if len(j.Channels) == 0 {
			continue
		}

		hasPosition := false
		hasRotation := false
		for _, ch := range j.Channels {
			switch ch[1:] {
			case "position":
				hasPosition = true
			case "rotation":
				hasRotation = true
			}
		}

		ch := scene.Channel{Node: names[i]}
		for f, row := range b.Samples {
			t := float64(f) * b.FrameTime

			if hasPosition {
				v := math.Vec3{X: j.Offset[0], Y: j.Offset[1], Z: j.Offset[2]}
				for c, name := range j.Channels {
					switch name {
					case "Xposition":
						v.X += row[start+c]
					case "Yposition":
						v.Y += row[start+c]
					case "Zposition":
						v.Z += row[start+c]
					}
				}
				ch.PositionKeys = append(ch.PositionKeys, scene.VectorKey{Time: t, Value: v})
			}

			if hasRotation {
				q := math.QuatIdentity()
				for c, name := range j.Channels {
					angle := float32(float64(row[start+c]) * gomath.Pi / 180)
					switch name {
					case "Xrotation":
						q = q.Mul(math.QuatFromAxisAngle(math.Vec3{X: 1}, angle))
					case "Yrotation":
						q = q.Mul(math.QuatFromAxisAngle(math.Vec3{Y: 1}, angle))
					case "Zrotation":
						q = q.Mul(math.QuatFromAxisAngle(math.Vec3{Z: 1}, angle))
					}
				}
				ch.RotationKeys = append(ch.RotationKeys, scene.QuatKey{Time: t, Value: q})
			}
		}
		clip.Channels = append(clip.Channels, ch)
	}

	s.Clips = append(s.Clips, clip)
	return s
}
