package spine

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

const (
	TransformNormal                 = 0
	TransformOnlyTranslation        = 1
	TransformNoRotationOrReflection = 2
	TransformNoScale                = 3
	TransformNoScaleOrReflection    = 4
)

type Bone struct {
	Name          string
	Parent        int // -1 for the root
	Rotate        float32
	Pos           mgl32.Vec2
	Scale         mgl32.Vec2
	TransformMode uint8 // which parent transforms are inherited
	// runtime
	LocalRotate float32
	LocalPos    mgl32.Vec2
	LocalScale  mgl32.Vec2
	WorldPos    mgl32.Vec2
	Mat2        mgl32.Mat2
}

const (
	BlendNormal   = 0
	BlendAdditive = 1
	BlendMultiply = 2
	BlendScreen   = 3
)

var (
	BlendMap = map[uint8]ebiten.Blend{
		BlendNormal:   ebiten.BlendSourceOver,
		BlendAdditive: ebiten.BlendLighter,
		BlendMultiply: {
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorZero,
			BlendFactorDestinationAlpha: ebiten.BlendFactorZero,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		},
		BlendScreen: {
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		},
	}
)

type Slot struct {
	Name             string
	Bone             int
	Color, DarkColor mgl32.Vec4 // final tint is Color * DarkColor
	Attachment       string
	BlendMode        uint8
	Index            int
	// runtime
	CurrOrder      int
	CurrAttachment string
	CurrColor      mgl32.Vec4
	CurrDarkColor  mgl32.Vec4
}

type WeightVertex struct {
	Bone   int
	Offset mgl32.Vec2 // in the bone's local space
	Weight float32
}

const (
	AttachmentRegion   = 0
	AttachmentBoundBox = 1
	AttachmentMesh     = 2
	AttachmentLinkMesh = 3
	AttachmentPath     = 4
	AttachmentPoint    = 5
	AttachmentClip     = 6
)

type Attachment struct {
	Name           string
	Slot           int // name + slot is unique
	Type           uint8
	Path           string
	Color          mgl32.Vec4
	Weight         bool
	Vertices       []mgl32.Vec2
	WeightVertices [][]*WeightVertex
	// AttachmentRegion
	Rotate float32
	Pos    mgl32.Vec2
	Scale  mgl32.Vec2
	Size   mgl32.Vec2
	// AttachmentMesh
	UVs     []mgl32.Vec2
	Indices []uint16
	// runtime
	CurrVertices       []mgl32.Vec2
	CurrWeightVertices [][]*WeightVertex
}

// Drawable reports whether the attachment produces textured geometry.
func (a *Attachment) Drawable() bool {
	return a.Type == AttachmentRegion || a.Type == AttachmentMesh
}

type Skin struct {
	Attachments []*Attachment
}

const (
	CurveLinear  = 0
	CurveStepped = 1
	CurveBezier  = 2
)

type Curve struct {
	Type uint8
	Data [2]mgl32.Vec2 // bezier control points, endpoints are (0,0) and (1,1)
}

type KeyFrame struct {
	Time  float32
	Curve *Curve // nil on the last frame
	// TimelineAttachment
	Attachment string
	// TimelineColor, TimelineTwoColor
	Color     mgl32.Vec4
	DarkColor mgl32.Vec4
	// TimelineRotate
	Rotate float32
	// TimelineTranslate
	Offset mgl32.Vec2
	// TimelineScale
	Scale mgl32.Vec2
	// TimelineDrawOrder
	DrawOrder []int
	// TimelineDeform
	Deform       []mgl32.Vec2
	WeightDeform [][]mgl32.Vec2
}

const (
	TimelineRotate                 = 0
	TimelineTranslate              = 1
	TimelineScale                  = 2
	TimelineShear                  = 3
	TimelineAttachment             = 4
	TimelineColor                  = 5
	TimelineDeform                 = 6
	TimelineEvent                  = 7
	TimelineDrawOrder              = 8
	TimelineIkConstraint           = 9
	TimelineTransformConstraint    = 10
	TimelinePathConstraintPosition = 11
	TimelinePathConstraintSpacing  = 12
	TimelinePathConstraintMix      = 13
	TimelineTwoColor               = 14
)

type Timeline struct {
	Type       uint8
	Slot       int
	Bone       int
	Attachment string
	KeyFrames  []*KeyFrame
}

type Animation struct {
	Name      string
	Timelines []*Timeline
	Duration  float32
}

type Header struct {
	Hash    string
	Version string
	Pos     mgl32.Vec2 // setup pose bounding box origin, y-up
	Size    mgl32.Vec2
}

// Skeleton holds both the setup data of a rig and its current pose.
// It is not safe for concurrent use.
type Skeleton struct {
	Header     *Header
	Bones      []*Bone
	Slots      []*Slot
	Skin       *Skin // only the default skin
	Animations []*Animation

	root        *BoneNode
	orderSlots  []*Slot
	attachments map[string]*Attachment
}

func newSkeleton(header *Header, bones []*Bone, slots []*Slot, skin *Skin, animations []*Animation) (*Skeleton, error) {
	res := &Skeleton{Header: header, Bones: bones, Slots: slots, Skin: skin, Animations: animations}
	if err := res.validate(); err != nil {
		return nil, err
	}
	res.root = res.calculateBoneRoot()
	res.orderSlots = make([]*Slot, len(slots))
	copy(res.orderSlots, slots)
	res.attachments = make(map[string]*Attachment)
	for _, item := range skin.Attachments {
		res.attachments[AttachmentKey(item.Name, item.Slot)] = item
	}
	res.SetToSetupPose()
	res.UpdateWorldTransform()
	return res, nil
}

func (s *Skeleton) validate() error {
	if len(s.Bones) == 0 {
		return fmt.Errorf("%w: no bones", ErrInvalidSkeleton)
	}
	if s.Bones[0].Parent >= 0 {
		return fmt.Errorf("%w: first bone %q has a parent", ErrInvalidSkeleton, s.Bones[0].Name)
	}
	for i, bone := range s.Bones[1:] {
		if bone.Parent < 0 || bone.Parent > i {
			return fmt.Errorf("%w: bone %q parent %d must precede it", ErrInvalidSkeleton, bone.Name, bone.Parent)
		}
	}
	for _, slot := range s.Slots {
		if slot.Bone < 0 || slot.Bone >= len(s.Bones) {
			return fmt.Errorf("%w: slot %q bone %d out of range", ErrInvalidSkeleton, slot.Name, slot.Bone)
		}
	}
	for _, item := range s.Skin.Attachments {
		if item.Slot < 0 || item.Slot >= len(s.Slots) {
			return fmt.Errorf("%w: attachment %q slot %d out of range", ErrInvalidSkeleton, item.Name, item.Slot)
		}
		for _, wvs := range item.WeightVertices {
			for _, wv := range wvs {
				if wv.Bone < 0 || wv.Bone >= len(s.Bones) {
					return fmt.Errorf("%w: attachment %q weight bone %d out of range", ErrInvalidSkeleton, item.Name, wv.Bone)
				}
			}
		}
		if item.Type == AttachmentMesh && len(item.UVs) != vertexCount(item) {
			return fmt.Errorf("%w: mesh %q has %d uvs for %d vertices", ErrInvalidSkeleton, item.Name, len(item.UVs), vertexCount(item))
		}
		if item.Type == AttachmentMesh {
			if err := validateIndices(item); err != nil {
				return err
			}
		}
	}
	for _, anim := range s.Animations {
		for _, timeline := range anim.Timelines {
			switch timeline.Type {
			case TimelineRotate, TimelineTranslate, TimelineScale, TimelineShear:
				if timeline.Bone < 0 || timeline.Bone >= len(s.Bones) {
					return fmt.Errorf("%w: animation %q bone %d out of range", ErrInvalidSkeleton, anim.Name, timeline.Bone)
				}
			case TimelineAttachment, TimelineColor, TimelineTwoColor:
				if timeline.Slot < 0 || timeline.Slot >= len(s.Slots) {
					return fmt.Errorf("%w: animation %q slot %d out of range", ErrInvalidSkeleton, anim.Name, timeline.Slot)
				}
			case TimelineDeform:
				if err := s.validateDeform(anim, timeline); err != nil {
					return err
				}
			case TimelineDrawOrder:
				for _, frame := range timeline.KeyFrames {
					if len(frame.DrawOrder) != len(s.Slots) {
						return fmt.Errorf("%w: animation %q draw order has %d entries for %d slots",
							ErrInvalidSkeleton, anim.Name, len(frame.DrawOrder), len(s.Slots))
					}
				}
			}
		}
	}
	return nil
}

func (s *Skeleton) validateDeform(anim *Animation, timeline *Timeline) error {
	var target *Attachment
	for _, item := range s.Skin.Attachments {
		if item.Name == timeline.Attachment && item.Slot == timeline.Slot {
			target = item
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: animation %q deforms unknown attachment %q", ErrInvalidSkeleton, anim.Name, timeline.Attachment)
	}
	for _, frame := range timeline.KeyFrames {
		if target.Weight {
			if len(frame.WeightDeform) != len(target.WeightVertices) {
				return fmt.Errorf("%w: animation %q deform of %q has %d vertices, want %d",
					ErrInvalidSkeleton, anim.Name, target.Name, len(frame.WeightDeform), len(target.WeightVertices))
			}
			for i, items := range frame.WeightDeform {
				if len(items) != len(target.WeightVertices[i]) {
					return fmt.Errorf("%w: animation %q deform of %q vertex %d has %d weights, want %d",
						ErrInvalidSkeleton, anim.Name, target.Name, i, len(items), len(target.WeightVertices[i]))
				}
			}
		} else if len(frame.Deform) != len(target.Vertices) {
			return fmt.Errorf("%w: animation %q deform of %q has %d vertices, want %d",
				ErrInvalidSkeleton, anim.Name, target.Name, len(frame.Deform), len(target.Vertices))
		}
	}
	return nil
}

// validateIndices requires whole triangles that only reference existing vertices.
func validateIndices(a *Attachment) error {
	if len(a.Indices)%3 != 0 {
		return fmt.Errorf("%w: mesh %q has %d indices, not whole triangles", ErrInvalidSkeleton, a.Name, len(a.Indices))
	}
	count := vertexCount(a)
	for _, idx := range a.Indices {
		if int(idx) >= count {
			return fmt.Errorf("%w: mesh %q index %d out of range for %d vertices", ErrInvalidSkeleton, a.Name, idx, count)
		}
	}
	return nil
}

func vertexCount(a *Attachment) int {
	if a.Weight {
		return len(a.WeightVertices)
	}
	return len(a.Vertices)
}

func (s *Skeleton) calculateBoneRoot() *BoneNode {
	nodes := make([]*BoneNode, 0, len(s.Bones))
	for _, bone := range s.Bones {
		node := &BoneNode{Bone: bone}
		if bone.Parent >= 0 {
			parent := nodes[bone.Parent]
			node.Parent = parent
			parent.Children = append(parent.Children, node)
		}
		nodes = append(nodes, node)
	}
	return nodes[0]
}

// FindAnimation looks up an animation by exact name.
func (s *Skeleton) FindAnimation(name string) (*Animation, bool) {
	for _, anim := range s.Animations {
		if anim.Name == name {
			return anim, true
		}
	}
	return nil, false
}

func (s *Skeleton) Attachment(name string, slot int) *Attachment {
	return s.attachments[AttachmentKey(name, slot)]
}

// SetToSetupPose resets all runtime values so timelines that do not touch a
// property leave it at its setup value instead of zero.
func (s *Skeleton) SetToSetupPose() {
	for i, slot := range s.Slots {
		slot.CurrOrder = i
		slot.CurrAttachment = slot.Attachment
		slot.CurrColor = slot.Color
		slot.CurrDarkColor = slot.DarkColor
	}
	for _, bone := range s.Bones {
		bone.LocalRotate = bone.Rotate
		bone.LocalPos = bone.Pos
		bone.LocalScale = bone.Scale
	}
	for _, attachment := range s.Skin.Attachments {
		if attachment.Weight {
			attachment.CurrWeightVertices = make([][]*WeightVertex, 0, len(attachment.WeightVertices))
			for _, items := range attachment.WeightVertices {
				temp := make([]*WeightVertex, 0, len(items))
				for _, item := range items {
					temp = append(temp, &WeightVertex{
						Bone:   item.Bone,
						Offset: item.Offset,
						Weight: item.Weight,
					})
				}
				attachment.CurrWeightVertices = append(attachment.CurrWeightVertices, temp)
			}
		} else {
			attachment.CurrVertices = make([]mgl32.Vec2, len(attachment.Vertices))
			copy(attachment.CurrVertices, attachment.Vertices)
		}
	}
}

// UpdateWorldTransform recomputes world position and matrix of every bone from the local values.
func (s *Skeleton) UpdateWorldTransform() {
	s.root.Update()
	sort.SliceStable(s.orderSlots, func(i, j int) bool {
		return s.orderSlots[i].CurrOrder < s.orderSlots[j].CurrOrder
	})
}

// DrawOrder returns the slots sorted by their current draw order.
func (s *Skeleton) DrawOrder() []*Slot {
	return s.orderSlots
}

type BoneNode struct {
	Bone     *Bone
	Parent   *BoneNode
	Children []*BoneNode
}

func (n *BoneNode) Update() {
	bone := n.Bone
	if n.Parent == nil { // root: local is world
		bone.WorldPos = bone.LocalPos
		bone.Mat2 = Rotate(bone.LocalRotate).Mul2(Scale(bone.LocalScale))
	} else {
		parent := n.Parent.Bone
		bone.WorldPos = parent.Mat2.Mul2x1(bone.LocalPos).Add(parent.WorldPos)
		switch bone.TransformMode {
		case TransformOnlyTranslation:
			bone.Mat2 = Rotate(bone.LocalRotate).Mul2(Scale(bone.LocalScale))
		case TransformNoRotationOrReflection:
			rotate := GetRotate(parent.Mat2)
			bone.Mat2 = parent.Mat2.Mul2(Rotate(bone.LocalRotate - rotate)).Mul2(Scale(bone.LocalScale))
		case TransformNoScale, TransformNoScaleOrReflection:
			scale := GetScale(parent.Mat2)
			bone.Mat2 = parent.Mat2.Mul2(Rotate(bone.LocalRotate)).Mul2(Scale(Vec2Div(bone.LocalScale, scale)))
		default:
			bone.Mat2 = parent.Mat2.Mul2(Rotate(bone.LocalRotate)).Mul2(Scale(bone.LocalScale))
		}
	}
	for _, child := range n.Children {
		child.Update()
	}
}
