package spine

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// The JSON skeleton is the flattened export of a spine rig: every reference is
// an index and every timeline carries its own key frames.

type AnimationData struct {
	Name      string          `json:"name"`
	Duration  float32         `json:"duration"`
	Timelines []*TimelineData `json:"timelines"`
}

type AttachmentData struct {
	Name           string `json:"name"`
	SlotIndex      int    `json:"slot_index"`
	AttachmentType int    `json:"attachment_type"`
	// shared
	Path  string      `json:"path"`
	Color *mgl32.Vec4 `json:"color"`
	// ATTACHMENT_REGION
	Scale    *mgl32.Vec2 `json:"scale"`
	Rotation float32     `json:"rotation"`
	Offset   mgl32.Vec2  `json:"offset"`
	Size     mgl32.Vec2  `json:"size"`
	// ATTACHMENT_MESH
	UV             []mgl32.Vec2          `json:"uv"`
	VertexIndex    []uint16              `json:"vertex_index"`
	Weight         bool                  `json:"weight"`
	Vertices       []mgl32.Vec2          `json:"vertices"`
	WeightVertices [][]*WeightVertexData `json:"weight_vertices"`
}

type BoneData struct {
	Name          string      `json:"name"`
	ParentIndex   int         `json:"parent_index"`
	Scale         *mgl32.Vec2 `json:"scale"`
	Rotation      float32     `json:"rotation"`
	Pos           mgl32.Vec2  `json:"pos"`
	TransformMode int         `json:"transform_mode"`
}

type HeaderData struct {
	Hash    string     `json:"hash"`
	Version string     `json:"version"`
	Pos     mgl32.Vec2 `json:"pos"`
	Size    mgl32.Vec2 `json:"size"`
}

type CurveData struct {
	Type int           `json:"type"`
	Data [2]mgl32.Vec2 `json:"data"`
}

type KeyFrameData struct {
	Time  float32    `json:"time"`
	Curve *CurveData `json:"curve"`
	// SLOT_ATTACHMENT
	AttachmentName string `json:"attachment_name"`
	// BONE_ROTATE, offset from setup
	Rotation float32 `json:"rotation"`
	// BONE_TRANSLATE, offset from setup
	Offset mgl32.Vec2 `json:"offset"`
	// BONE_SCALE, multiplier of setup
	Scale *mgl32.Vec2 `json:"scale"`
	// SLOT_DRAW_ORDER
	DrawOrder []int `json:"draw_order"`
	// SLOT_DEFORM
	Vertexes       []mgl32.Vec2   `json:"vertexes"`
	WeightVertexes [][]mgl32.Vec2 `json:"weight_vertexes"`
	// SLOT_COLOR
	Color     *mgl32.Vec4 `json:"color"`
	DarkColor *mgl32.Vec4 `json:"dark_color"`
}

type SkinData struct {
	Attachments []*AttachmentData `json:"attachments"`
}

type SlotData struct {
	Name       string      `json:"name"`
	BoneIndex  int         `json:"bone_index"`
	Color      *mgl32.Vec4 `json:"color"`
	DarkColor  *mgl32.Vec4 `json:"dark_color"`
	Attachment string      `json:"attachment"`
	BlendMode  int         `json:"blend_mode"`
}

type TimelineData struct {
	TimelineType int             `json:"timeline_type"`
	KeyFrames    []*KeyFrameData `json:"key_frames"`
	SlotIndex    int             `json:"slot_index"`
	BoneIndex    int             `json:"bone_index"`
	Attachment   string          `json:"attachment"`
}

type WeightVertexData struct {
	BoneIndex int        `json:"bone_index"`
	Offset    mgl32.Vec2 `json:"offset"`
	Weight    float32    `json:"weight"`
}

type SkelData struct {
	Header     *HeaderData      `json:"header"`
	Bones      []*BoneData      `json:"bones"`
	Slots      []*SlotData      `json:"slots"`
	Skin       *SkinData        `json:"skin"`
	Animations []*AnimationData `json:"animations"`
}

var (
	white    = mgl32.Vec4{1, 1, 1, 1}
	unitVec2 = mgl32.Vec2{1, 1}
)

// ParseSkel decodes a JSON skeleton and builds a posed Skeleton from it.
func ParseSkel(r io.Reader) (*Skeleton, error) {
	res := &SkelData{}
	if err := json.NewDecoder(r).Decode(res); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidSkeleton, err)
	}
	return res.Build()
}

// Build converts the decoded data into runtime types, filling omitted colors
// and scales with their identity values.
func (d *SkelData) Build() (*Skeleton, error) {
	header := &Header{}
	if d.Header != nil {
		header = &Header{Hash: d.Header.Hash, Version: d.Header.Version, Pos: d.Header.Pos, Size: d.Header.Size}
	}
	bones := make([]*Bone, 0, len(d.Bones))
	for i, item := range d.Bones {
		parent := item.ParentIndex
		if i == 0 {
			parent = -1
		}
		bones = append(bones, &Bone{
			Name:          item.Name,
			Parent:        parent,
			Rotate:        item.Rotation,
			Pos:           item.Pos,
			Scale:         vec2Or(item.Scale, unitVec2),
			TransformMode: uint8(item.TransformMode),
		})
	}
	slots := make([]*Slot, 0, len(d.Slots))
	for i, item := range d.Slots {
		slots = append(slots, &Slot{
			Name:       item.Name,
			Bone:       item.BoneIndex,
			Color:      vec4Or(item.Color, white),
			DarkColor:  vec4Or(item.DarkColor, white),
			Attachment: item.Attachment,
			BlendMode:  uint8(item.BlendMode),
			Index:      i,
		})
	}
	skin := &Skin{}
	if d.Skin != nil {
		for _, item := range d.Skin.Attachments {
			skin.Attachments = append(skin.Attachments, buildAttachment(item))
		}
	}
	animations := make([]*Animation, 0, len(d.Animations))
	for _, item := range d.Animations {
		animations = append(animations, buildAnimation(item))
	}
	return newSkeleton(header, bones, slots, skin, animations)
}

func buildAttachment(item *AttachmentData) *Attachment {
	res := &Attachment{
		Name:     item.Name,
		Slot:     item.SlotIndex,
		Type:     uint8(item.AttachmentType),
		Path:     item.Path,
		Color:    vec4Or(item.Color, white),
		Weight:   item.Weight,
		Vertices: item.Vertices,
		Rotate:   item.Rotation,
		Pos:      item.Offset,
		Scale:    vec2Or(item.Scale, unitVec2),
		Size:     item.Size,
		UVs:      item.UV,
		Indices:  item.VertexIndex,
	}
	if len(res.Path) == 0 {
		res.Path = res.Name
	}
	for _, items := range item.WeightVertices {
		temp := make([]*WeightVertex, 0, len(items))
		for _, wv := range items {
			temp = append(temp, &WeightVertex{Bone: wv.BoneIndex, Offset: wv.Offset, Weight: wv.Weight})
		}
		res.WeightVertices = append(res.WeightVertices, temp)
	}
	return res
}

func buildAnimation(item *AnimationData) *Animation {
	res := &Animation{Name: item.Name, Duration: item.Duration}
	for _, timeline := range item.Timelines {
		temp := &Timeline{
			Type:       uint8(timeline.TimelineType),
			Slot:       timeline.SlotIndex,
			Bone:       timeline.BoneIndex,
			Attachment: timeline.Attachment,
		}
		for _, frame := range timeline.KeyFrames {
			temp.KeyFrames = append(temp.KeyFrames, buildKeyFrame(frame))
		}
		sort.SliceStable(temp.KeyFrames, func(i, j int) bool {
			return temp.KeyFrames[i].Time < temp.KeyFrames[j].Time
		})
		res.Timelines = append(res.Timelines, temp)
	}
	return res
}

func buildKeyFrame(item *KeyFrameData) *KeyFrame {
	res := &KeyFrame{
		Time:         item.Time,
		Curve:        &Curve{Type: CurveLinear},
		Attachment:   item.AttachmentName,
		Color:        vec4Or(item.Color, white),
		DarkColor:    vec4Or(item.DarkColor, white),
		Rotate:       item.Rotation,
		Offset:       item.Offset,
		Scale:        vec2Or(item.Scale, unitVec2),
		DrawOrder:    item.DrawOrder,
		Deform:       item.Vertexes,
		WeightDeform: item.WeightVertexes,
	}
	if item.Curve != nil {
		res.Curve = &Curve{Type: uint8(item.Curve.Type), Data: item.Curve.Data}
	}
	return res
}

func vec2Or(v *mgl32.Vec2, def mgl32.Vec2) mgl32.Vec2 {
	if v == nil {
		return def
	}
	return *v
}

func vec4Or(v *mgl32.Vec4, def mgl32.Vec4) mgl32.Vec4 {
	if v == nil {
		return def
	}
	return *v
}
