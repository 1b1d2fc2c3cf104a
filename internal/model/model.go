package model

import (
	"fmt"
	"image"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/colorm"

	"vtoverlay/internal/spine"
)

// Model is a rigged character placed on the stage. Position is in screen
// pixels; the anchor is a normalized point of the model's bounds that is
// placed at Position; scale is uniform.
//
// A Model is not safe for concurrent use; it belongs to the game goroutine
// once it has been added to a stage.
type Model struct {
	Manifest *Manifest
	Skeleton *spine.Skeleton

	regions map[string]image.Image
	images  map[string]*ebiten.Image

	boundsPos  mgl32.Vec2
	boundsSize mgl32.Vec2

	position mgl32.Vec2
	anchor   mgl32.Vec2
	scale    float32

	motion string
	state  *spine.AnimationState

	colorM   colorm.ColorM
	option   *colorm.DrawTrianglesOptions
	vertices []ebiten.Vertex
}

// New cuts every region the skin needs out of the atlas page. Textures are
// uploaded to the GPU lazily on first draw.
func New(manifest *Manifest, skel *spine.Skeleton, atlas *spine.Atlas, page image.Image) (*Model, error) {
	res := &Model{
		Manifest: manifest,
		Skeleton: skel,
		regions:  make(map[string]image.Image),
		images:   make(map[string]*ebiten.Image),
		scale:    1,
		option:   &colorm.DrawTrianglesOptions{},
	}
	for _, attachment := range skel.Skin.Attachments {
		if !attachment.Drawable() {
			continue
		}
		region, ok := res.regions[attachment.Path]
		if !ok {
			var err error
			region, err = atlas.RegionImage(attachment.Path, page)
			if err != nil {
				return nil, fmt.Errorf("attachment %s: %w", attachment.Name, err)
			}
			res.regions[attachment.Path] = region
		}
		if attachment.Type == spine.AttachmentRegion && attachment.Size == (mgl32.Vec2{}) {
			bound := region.Bounds()
			attachment.Size = mgl32.Vec2{float32(bound.Dx()), float32(bound.Dy())}
		}
	}
	res.boundsPos, res.boundsSize = skel.Bounds()
	return res, nil
}

func (m *Model) SetPosition(x, y float32) {
	m.position = mgl32.Vec2{x, y}
}

func (m *Model) Position() mgl32.Vec2 {
	return m.position
}

func (m *Model) SetAnchor(x, y float32) {
	m.anchor = mgl32.Vec2{x, y}
}

func (m *Model) Anchor() mgl32.Vec2 {
	return m.anchor
}

func (m *Model) SetScale(s float32) {
	m.scale = s
}

func (m *Model) Scale() float32 {
	return m.scale
}

// Bounds is the setup pose bounding box in skeleton space (y-up).
func (m *Model) Bounds() (mgl32.Vec2, mgl32.Vec2) {
	return m.boundsPos, m.boundsSize
}

// Motion starts the named motion group looping from its first frame. An
// unknown name leaves the current motion playing.
func (m *Model) Motion(name string) error {
	animName := m.Manifest.MotionAnimation(name)
	anim, ok := m.Skeleton.FindAnimation(animName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMotionNotFound, name)
	}
	state, err := spine.NewAnimationState(anim, m.Skeleton)
	if err != nil {
		return fmt.Errorf("motion %s: %w", name, err)
	}
	m.motion = name
	m.state = state
	return nil
}

// CurrentMotion returns the name passed to the last successful Motion call.
func (m *Model) CurrentMotion() string {
	return m.motion
}

// Update advances the motion by dt and poses the skeleton.
func (m *Model) Update(dt time.Duration) {
	m.Skeleton.SetToSetupPose()
	if m.state != nil {
		m.state.Update(float32(dt.Seconds()))
	}
	m.Skeleton.UpdateWorldTransform()
}

// ScreenMatrix maps skeleton space to screen space: the anchor point of the
// bounds lands on Position, y is flipped and everything is scaled.
func (m *Model) ScreenMatrix() mgl32.Mat3 {
	anchor := mgl32.Vec2{
		m.boundsPos.X() + m.anchor.X()*m.boundsSize.X(),
		m.boundsPos.Y() + (1-m.anchor.Y())*m.boundsSize.Y(),
	}
	return mgl32.Translate2D(m.position.X(), m.position.Y()).
		Mul3(mgl32.Scale2D(m.scale, -m.scale)).
		Mul3(mgl32.Translate2D(-anchor.X(), -anchor.Y()))
}

func (m *Model) ToScreen(p mgl32.Vec2) mgl32.Vec2 {
	return m.ScreenMatrix().Mul3x1(p.Vec3(1)).Vec2()
}
