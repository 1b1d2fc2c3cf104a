package spine

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Geometry is the posed, textured triangle list of one slot in skeleton space.
// UVs are normalized to the attachment's region image.
type Geometry struct {
	Attachment *Attachment
	Positions  []mgl32.Vec2
	UVs        []mgl32.Vec2
	Indices    []uint16
	Color      mgl32.Vec4
	Blend      uint8
}

var regionIndices = []uint16{0, 1, 2, 0, 2, 3}

// SlotGeometry returns the geometry of the slot's current attachment, or false
// when the slot shows nothing drawable.
func (s *Skeleton) SlotGeometry(slot *Slot) (Geometry, bool) {
	if len(slot.CurrAttachment) == 0 {
		return Geometry{}, false
	}
	attachment := s.Attachment(slot.CurrAttachment, slot.Index)
	if attachment == nil || !attachment.Drawable() {
		return Geometry{}, false
	}
	res := Geometry{
		Attachment: attachment,
		Color:      Vec4Mul(Vec4Mul(slot.CurrColor, slot.CurrDarkColor), attachment.Color),
		Blend:      slot.BlendMode,
	}
	bone := s.Bones[slot.Bone]
	switch attachment.Type {
	case AttachmentRegion:
		w, h := attachment.Size.X(), attachment.Size.Y()
		worldPos := bone.Mat2.Mul2x1(attachment.Pos).Add(bone.WorldPos)
		mat2 := bone.Mat2.Mul2(Rotate(attachment.Rotate)).Mul2(Scale(attachment.Scale))
		res.Positions = []mgl32.Vec2{
			mat2.Mul2x1(mgl32.Vec2{-w / 2, h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{w / 2, h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{w / 2, -h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{-w / 2, -h / 2}).Add(worldPos),
		}
		res.UVs = []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		res.Indices = regionIndices
	case AttachmentMesh:
		res.Positions = s.meshVertices(attachment, bone)
		res.UVs = attachment.UVs
		res.Indices = attachment.Indices
	}
	return res, true
}

func (s *Skeleton) meshVertices(attachment *Attachment, bone *Bone) []mgl32.Vec2 {
	if !attachment.Weight {
		res := make([]mgl32.Vec2, 0, len(attachment.CurrVertices))
		for _, vertex := range attachment.CurrVertices {
			res = append(res, bone.Mat2.Mul2x1(vertex).Add(bone.WorldPos))
		}
		return res
	}
	res := make([]mgl32.Vec2, 0, len(attachment.CurrWeightVertices))
	for _, items := range attachment.CurrWeightVertices {
		pos := mgl32.Vec2{}
		for _, item := range items {
			weightBone := s.Bones[item.Bone]
			temp := weightBone.Mat2.Mul2x1(item.Offset).Add(weightBone.WorldPos)
			pos = pos.Add(temp.Mul(item.Weight))
		}
		res = append(res, pos)
	}
	return res
}

// Bounds returns the setup bounding box (origin, size) in skeleton space.
// The header box is used when present, otherwise it is measured from the
// current pose's geometry.
func (s *Skeleton) Bounds() (mgl32.Vec2, mgl32.Vec2) {
	if s.Header != nil && s.Header.Size.X() > 0 && s.Header.Size.Y() > 0 {
		return s.Header.Pos, s.Header.Size
	}
	minX, minY := float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY := float32(-math.MaxFloat32), float32(-math.MaxFloat32)
	found := false
	for _, slot := range s.Slots {
		geom, ok := s.SlotGeometry(slot)
		if !ok {
			continue
		}
		for _, pos := range geom.Positions {
			found = true
			minX, minY = min(minX, pos.X()), min(minY, pos.Y())
			maxX, maxY = max(maxX, pos.X()), max(maxY, pos.Y())
		}
	}
	if !found {
		return mgl32.Vec2{}, mgl32.Vec2{}
	}
	return mgl32.Vec2{minX, minY}, mgl32.Vec2{maxX - minX, maxY - minY}
}
