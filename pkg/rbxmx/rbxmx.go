// Package rbxmx encodes conversion documents as Roblox model XML (.rbxmx)
// files holding a KeyframeSequence instance tree.
package rbxmx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/rbxanim/pkg/converter"
	"github.com/Faultbox/rbxanim/pkg/math"
	"github.com/Faultbox/rbxanim/pkg/scene"
)

// robloxVersion is the model schema version Studio emits and accepts.
const robloxVersion = 4

// animationPriorityMovement is the AnimationPriority enum value Movement.
const animationPriorityMovement = 2

type xmlRoblox struct {
	XMLName xml.Name   `xml:"roblox"`
	Version int        `xml:"version,attr"`
	Items   []*xmlItem `xml:"Item"`
}

type xmlItem struct {
	Class      string     `xml:"class,attr"`
	Referent   string     `xml:"referent,attr"`
	Properties xmlProps   `xml:"Properties"`
	Items      []*xmlItem `xml:"Item"`
}

type xmlProps struct {
	Strings []xmlString `xml:"string"`
	Bools   []xmlBool   `xml:"bool"`
	Tokens  []xmlToken  `xml:"token"`
	Floats  []xmlFloat  `xml:"float"`
	CFrames []xmlCFrame `xml:"CoordinateFrame"`
}

type xmlString struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlBool struct {
	Name  string `xml:"name,attr"`
	Value bool   `xml:",chardata"`
}

type xmlToken struct {
	Name  string `xml:"name,attr"`
	Value int    `xml:",chardata"`
}

type xmlFloat struct {
	Name  string  `xml:"name,attr"`
	Value float32 `xml:",chardata"`
}

type xmlCFrame struct {
	Name string  `xml:"name,attr"`
	X    float32 `xml:"X"`
	Y    float32 `xml:"Y"`
	Z    float32 `xml:"Z"`
	R00  float32 `xml:"R00"`
	R01  float32 `xml:"R01"`
	R02  float32 `xml:"R02"`
	R10  float32 `xml:"R10"`
	R11  float32 `xml:"R11"`
	R12  float32 `xml:"R12"`
	R20  float32 `xml:"R20"`
	R21  float32 `xml:"R21"`
	R22  float32 `xml:"R22"`
}

// Encode writes doc as a Roblox model XML document. Items appear in document
// order and properties in a fixed order per class, so encoding the same
// document twice produces identical bytes.
func Encode(w io.Writer, doc *converter.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	model := xmlRoblox{Version: robloxVersion, Items: []*xmlItem{buildSequence(doc)}}
	if err := enc.Encode(model); err != nil {
		return fmt.Errorf("encoding keyframe sequence: %w", err)
	}
	return nil
}

// WriteFile encodes doc and writes it to path in one step, so a failed
// encode never leaves a partial file behind.
func WriteFile(path string, doc *converter.Document) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func buildSequence(doc *converter.Document) *xmlItem {
	ref := 0
	seq := &xmlItem{
		Class:    "KeyframeSequence",
		Referent: nextReferent(&ref),
		Properties: xmlProps{
			Strings: []xmlString{{Name: "Name", Value: doc.Name}},
			Bools:   []xmlBool{{Name: "Loop", Value: doc.Loop}},
			Tokens:  []xmlToken{{Name: "Priority", Value: animationPriorityMovement}},
		},
	}

	for _, kf := range doc.Keyframes {
		item := &xmlItem{
			Class:    "Keyframe",
			Referent: nextReferent(&ref),
			Properties: xmlProps{
				Strings: []xmlString{{Name: "Name", Value: "Keyframe"}},
				Floats:  []xmlFloat{{Name: "Time", Value: float32(kf.Time)}},
			},
		}
		for _, pose := range kf.Roots {
			item.Items = append(item.Items, buildPose(doc.Skeleton, pose, &ref))
		}
		seq.Items = append(seq.Items, item)
	}
	return seq
}

// buildPose emits one Pose item and its children. Roblox poses are
// rest-relative: the offset from the bone's rest translation, and the
// rotation carrying the rest orientation to the sampled one. Scale has no
// KeyframeSequence equivalent and stops here.
func buildPose(skel *converter.Skeleton, pose *converter.Pose, ref *int) *xmlItem {
	rest := scene.IdentityTransform()
	if skel != nil {
		if i, ok := skel.Index(pose.Bone); ok {
			rest = skel.Bones[i].Rest
		}
	}

	offset := pose.Translation.Sub(rest.Translation)
	rel := rest.Rotation.Conjugate().Mul(pose.Rotation).Normalize()
	m := math.Mat3FromQuat(rel)

	item := &xmlItem{
		Class:    "Pose",
		Referent: nextReferent(ref),
		Properties: xmlProps{
			Strings: []xmlString{{Name: "Name", Value: pose.Bone}},
			Tokens: []xmlToken{
				{Name: "EasingDirection", Value: 0},
				{Name: "EasingStyle", Value: 0},
			},
			CFrames: []xmlCFrame{{
				Name: "CFrame",
				X:    offset.X,
				Y:    offset.Y,
				Z:    offset.Z,
				R00:  m[0],
				R01:  m[3],
				R02:  m[6],
				R10:  m[1],
				R11:  m[4],
				R12:  m[7],
				R20:  m[2],
				R21:  m[5],
				R22:  m[8],
			}},
		},
	}

	for _, child := range pose.Children {
		item.Items = append(item.Items, buildPose(skel, child, ref))
	}
	return item
}

func nextReferent(ref *int) string {
	s := fmt.Sprintf("RBX%d", *ref)
	*ref++
	return s
}
