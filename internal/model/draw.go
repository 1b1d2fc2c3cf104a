package model

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/colorm"

	"vtoverlay/internal/spine"
)

func NewVertex(dx, dy, sx, sy float32) ebiten.Vertex {
	return ebiten.Vertex{
		DstX:   dx,
		DstY:   dy,
		SrcX:   sx,
		SrcY:   sy,
		ColorR: 1,
		ColorG: 1,
		ColorB: 1,
		ColorA: 1,
	}
}

// Draw renders the current pose onto dst in draw order.
func (m *Model) Draw(dst *ebiten.Image) {
	mat := m.ScreenMatrix()
	for _, slot := range m.Skeleton.DrawOrder() {
		geom, ok := m.Skeleton.SlotGeometry(slot)
		if !ok {
			continue
		}
		m.drawGeometry(dst, mat, geom)
	}
}

func (m *Model) drawGeometry(dst *ebiten.Image, mat mgl32.Mat3, geom spine.Geometry) {
	img := m.image(geom.Attachment.Path)
	if img == nil {
		return
	}
	bound := img.Bounds()
	w, h := float32(bound.Dx()), float32(bound.Dy())
	m.vertices = m.vertices[:0]
	for i, pos := range geom.Positions {
		screen := mat.Mul3x1(pos.Vec3(1))
		uv := geom.UVs[i]
		m.vertices = append(m.vertices, NewVertex(screen.X(), screen.Y(), uv.X()*w, uv.Y()*h))
	}
	clr := geom.Color
	m.colorM.Reset()
	m.colorM.Scale(float64(clr[0]), float64(clr[1]), float64(clr[2]), float64(clr[3]))
	m.option.Blend = spine.BlendMap[geom.Blend]
	colorm.DrawTriangles(dst, m.vertices, geom.Indices, img, m.colorM, m.option)
}

func (m *Model) image(path string) *ebiten.Image {
	if img, ok := m.images[path]; ok {
		return img
	}
	region, ok := m.regions[path]
	if !ok {
		return nil
	}
	img := ebiten.NewImageFromImage(region)
	m.images[path] = img
	return img
}
