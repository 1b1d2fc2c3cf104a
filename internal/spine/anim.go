package spine

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type IAnimUpdate interface {
	Update(curr float32)
}

// GetIndexByTime returns the last frame at or before curr, or -1 before the first frame.
func GetIndexByTime(frames []*KeyFrame, curr float32) int {
	for i := len(frames) - 1; i >= 0; i-- {
		if curr >= frames[i].Time {
			return i
		}
	}
	return -1
}

func evalX(curve [2]mgl32.Vec2, rate float32) float32 {
	rate2 := rate * rate
	rate3 := rate2 * rate
	invRate := 1 - rate
	invRate2 := invRate * invRate
	return rate3 + 3*rate2*invRate*curve[1].X() + 3*rate*invRate2*curve[0].X()
}

func evalY(curve [2]mgl32.Vec2, rate float32) float32 {
	rate2 := rate * rate
	rate3 := rate2 * rate
	invRate := 1 - rate
	invRate2 := invRate * invRate
	return rate3 + 3*rate2*invRate*curve[1].Y() + 3*rate*invRate2*curve[0].Y()
}

// findX inverts evalX by bisection.
func findX(curve [2]mgl32.Vec2, rate float32) float32 {
	const e = 0.00001
	start, stop := float32(0), float32(1)
	res := float32(0.5)
	x := evalX(curve, res)
	for i := 0; i < 64 && math.Abs(float64(rate-x)) > e; i++ {
		if rate < x {
			stop = res
		} else {
			start = res
		}
		res = (stop + start) * 0.5
		x = evalX(curve, res)
	}
	return res
}

// CurveVal maps a linear rate in [0,1] through the frame's easing curve.
func CurveVal(curve *Curve, rate float32) float32 {
	if curve == nil {
		return rate
	}
	switch curve.Type {
	case CurveStepped:
		return 0
	case CurveBezier:
		return evalY(curve.Data, findX(curve.Data, rate))
	default:
		return rate
	}
}

// frameRate locates curr between two frames. ok is false when curr lies
// outside the keyed range; idx is then the clamped frame to hold.
func frameRate(frames []*KeyFrame, curr float32) (idx int, rate float32, ok bool) {
	idx = GetIndexByTime(frames, curr)
	if idx < 0 {
		return 0, 0, false
	}
	if idx+1 >= len(frames) {
		return idx, 0, false
	}
	pre, next := frames[idx], frames[idx+1]
	if next.Time <= pre.Time {
		return idx, 0, false
	}
	return idx, CurveVal(pre.Curve, (curr-pre.Time)/(next.Time-pre.Time)), true
}

type AttachmentAnimUpdate struct {
	Slot      *Slot
	KeyFrames []*KeyFrame
}

func NewAttachmentAnimUpdate(slot *Slot, keyFrames []*KeyFrame) *AttachmentAnimUpdate {
	return &AttachmentAnimUpdate{Slot: slot, KeyFrames: keyFrames}
}

func (a *AttachmentAnimUpdate) Update(curr float32) {
	idx := max(GetIndexByTime(a.KeyFrames, curr), 0)
	a.Slot.CurrAttachment = a.KeyFrames[idx].Attachment
}

type RotateAnimUpdate struct {
	Bone      *Bone
	KeyFrames []*KeyFrame
}

func NewRotateAnimUpdate(bone *Bone, keyFrames []*KeyFrame) *RotateAnimUpdate {
	return &RotateAnimUpdate{Bone: bone, KeyFrames: keyFrames}
}

func (r *RotateAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(r.KeyFrames, curr)
	if !ok {
		r.Bone.LocalRotate = r.Bone.Rotate + r.KeyFrames[idx].Rotate
		return
	}
	pre, next := r.KeyFrames[idx], r.KeyFrames[idx+1]
	r.Bone.LocalRotate = r.Bone.Rotate + LerpRotation(pre.Rotate, next.Rotate, rate)
}

type TranslateAnimUpdate struct {
	Bone      *Bone
	KeyFrames []*KeyFrame
}

func NewTranslateAnimUpdate(bone *Bone, keyFrames []*KeyFrame) *TranslateAnimUpdate {
	return &TranslateAnimUpdate{Bone: bone, KeyFrames: keyFrames}
}

func (t *TranslateAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(t.KeyFrames, curr)
	if !ok {
		t.Bone.LocalPos = t.Bone.Pos.Add(t.KeyFrames[idx].Offset)
		return
	}
	pre, next := t.KeyFrames[idx], t.KeyFrames[idx+1]
	t.Bone.LocalPos = t.Bone.Pos.Add(Vec2Lerp(pre.Offset, next.Offset, rate))
}

type ScaleAnimUpdate struct {
	Bone      *Bone
	KeyFrames []*KeyFrame
}

func NewScaleAnimUpdate(bone *Bone, keyFrames []*KeyFrame) *ScaleAnimUpdate {
	return &ScaleAnimUpdate{Bone: bone, KeyFrames: keyFrames}
}

func (t *ScaleAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(t.KeyFrames, curr)
	if !ok {
		t.Bone.LocalScale = Vec2Mul(t.Bone.Scale, t.KeyFrames[idx].Scale)
		return
	}
	pre, next := t.KeyFrames[idx], t.KeyFrames[idx+1]
	t.Bone.LocalScale = Vec2Mul(t.Bone.Scale, Vec2Lerp(pre.Scale, next.Scale, rate))
}

type DeformAnimUpdate struct {
	Attachment *Attachment
	KeyFrames  []*KeyFrame
}

func NewDeformAnimUpdate(attachment *Attachment, keyFrames []*KeyFrame) *DeformAnimUpdate {
	return &DeformAnimUpdate{Attachment: attachment, KeyFrames: keyFrames}
}

func (d *DeformAnimUpdate) setDeform(deform []mgl32.Vec2, weightDeform [][]mgl32.Vec2) {
	if d.Attachment.Weight {
		for i, items := range d.Attachment.CurrWeightVertices {
			for j, item := range items {
				item.Offset = item.Offset.Add(weightDeform[i][j])
			}
		}
		return
	}
	for i := range d.Attachment.CurrVertices {
		d.Attachment.CurrVertices[i] = d.Attachment.CurrVertices[i].Add(deform[i])
	}
}

func (d *DeformAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(d.KeyFrames, curr)
	if !ok {
		d.setDeform(d.KeyFrames[idx].Deform, d.KeyFrames[idx].WeightDeform)
		return
	}
	pre, next := d.KeyFrames[idx], d.KeyFrames[idx+1]
	if d.Attachment.Weight {
		weightDeform := make([][]mgl32.Vec2, 0, len(pre.WeightDeform))
		for i, items := range pre.WeightDeform {
			temp := make([]mgl32.Vec2, 0, len(items))
			for j, item := range items {
				temp = append(temp, Vec2Lerp(item, next.WeightDeform[i][j], rate))
			}
			weightDeform = append(weightDeform, temp)
		}
		d.setDeform(nil, weightDeform)
		return
	}
	deform := make([]mgl32.Vec2, 0, len(pre.Deform))
	for i := range pre.Deform {
		deform = append(deform, Vec2Lerp(pre.Deform[i], next.Deform[i], rate))
	}
	d.setDeform(deform, nil)
}

type DrawOrderAnimUpdate struct {
	Slots     []*Slot
	KeyFrames []*KeyFrame
}

func NewDrawOrderAnimUpdate(slots []*Slot, keyFrames []*KeyFrame) *DrawOrderAnimUpdate {
	return &DrawOrderAnimUpdate{Slots: slots, KeyFrames: keyFrames}
}

func (d *DrawOrderAnimUpdate) Update(curr float32) {
	idx := max(GetIndexByTime(d.KeyFrames, curr), 0)
	drawOrder := d.KeyFrames[idx].DrawOrder
	for i := range d.Slots {
		d.Slots[i].CurrOrder = drawOrder[i]
	}
}

type ColorAnimUpdate struct {
	Slot      *Slot
	KeyFrames []*KeyFrame
}

func NewColorAnimUpdate(slot *Slot, keyFrames []*KeyFrame) *ColorAnimUpdate {
	return &ColorAnimUpdate{Slot: slot, KeyFrames: keyFrames}
}

func (c *ColorAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(c.KeyFrames, curr)
	if !ok {
		c.Slot.CurrColor = c.KeyFrames[idx].Color
		return
	}
	pre, next := c.KeyFrames[idx], c.KeyFrames[idx+1]
	c.Slot.CurrColor = Vec4Lerp(pre.Color, next.Color, rate)
}

type TwoColorAnimUpdate struct {
	Slot      *Slot
	KeyFrames []*KeyFrame
}

func NewTwoColorAnimUpdate(slot *Slot, keyFrames []*KeyFrame) *TwoColorAnimUpdate {
	return &TwoColorAnimUpdate{Slot: slot, KeyFrames: keyFrames}
}

func (c *TwoColorAnimUpdate) Update(curr float32) {
	idx, rate, ok := frameRate(c.KeyFrames, curr)
	if !ok {
		c.Slot.CurrColor = c.KeyFrames[idx].Color
		c.Slot.CurrDarkColor = c.KeyFrames[idx].DarkColor
		return
	}
	pre, next := c.KeyFrames[idx], c.KeyFrames[idx+1]
	c.Slot.CurrColor = Vec4Lerp(pre.Color, next.Color, rate)
	c.Slot.CurrDarkColor = Vec4Lerp(pre.DarkColor, next.DarkColor, rate)
}

// AnimationState plays one animation in a loop. Time only advances through
// Update, so callers control the clock.
type AnimationState struct {
	AnimName    string
	Duration    float32
	Time        float32
	AnimUpdates []IAnimUpdate
}

func NewAnimationState(anim *Animation, skel *Skeleton) (*AnimationState, error) {
	updates := make([]IAnimUpdate, 0, len(anim.Timelines))
	for i, timeline := range anim.Timelines {
		if len(timeline.KeyFrames) == 0 {
			continue
		}
		switch timeline.Type {
		case TimelineAttachment:
			updates = append(updates, NewAttachmentAnimUpdate(skel.Slots[timeline.Slot], timeline.KeyFrames))
		case TimelineRotate:
			updates = append(updates, NewRotateAnimUpdate(skel.Bones[timeline.Bone], timeline.KeyFrames))
		case TimelineTranslate:
			updates = append(updates, NewTranslateAnimUpdate(skel.Bones[timeline.Bone], timeline.KeyFrames))
		case TimelineScale:
			updates = append(updates, NewScaleAnimUpdate(skel.Bones[timeline.Bone], timeline.KeyFrames))
		case TimelineDeform:
			attachment := skel.Attachment(timeline.Attachment, timeline.Slot)
			if attachment == nil {
				return nil, fmt.Errorf("%w: timeline %d of %q deforms unknown attachment %q",
					ErrInvalidSkeleton, i, anim.Name, timeline.Attachment)
			}
			updates = append(updates, NewDeformAnimUpdate(attachment, timeline.KeyFrames))
		case TimelineDrawOrder:
			updates = append(updates, NewDrawOrderAnimUpdate(skel.Slots, timeline.KeyFrames))
		case TimelineColor:
			updates = append(updates, NewColorAnimUpdate(skel.Slots[timeline.Slot], timeline.KeyFrames))
		case TimelineTwoColor:
			updates = append(updates, NewTwoColorAnimUpdate(skel.Slots[timeline.Slot], timeline.KeyFrames))
		case TimelineShear, TimelineEvent, TimelineIkConstraint, TimelineTransformConstraint,
			TimelinePathConstraintPosition, TimelinePathConstraintSpacing, TimelinePathConstraintMix:
			// not applied: shear and constraints are not part of the pose
		default:
			return nil, fmt.Errorf("%w: timeline %d of %q has unknown type %d", ErrInvalidSkeleton, i, anim.Name, timeline.Type)
		}
	}
	return &AnimationState{AnimName: anim.Name, Duration: anim.Duration, AnimUpdates: updates}, nil
}

// Update advances the clock by dt seconds, wrapping at the duration, and
// applies every timeline at the new time.
func (s *AnimationState) Update(dt float32) {
	s.Time += dt
	if s.Duration > 0 && s.Time > s.Duration {
		s.Time = float32(math.Mod(float64(s.Time), float64(s.Duration)))
	}
	s.Apply()
}

// Apply poses the skeleton at the current time without advancing it.
func (s *AnimationState) Apply() {
	for _, update := range s.AnimUpdates {
		update.Update(s.Time)
	}
}

func (s *AnimationState) GetAnimName() string {
	return s.AnimName
}
