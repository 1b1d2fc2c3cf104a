package spine

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Rotate returns the 2x2 rotation matrix for deg degrees (counter-clockwise, y-up).
func Rotate(deg float32) mgl32.Mat2 {
	return mgl32.Rotate2D(mgl32.DegToRad(deg))
}

func Scale(v mgl32.Vec2) mgl32.Mat2 {
	return mgl32.Mat2{v.X(), 0, 0, v.Y()}
}

// GetRotate extracts the rotation in degrees from the first column of m.
func GetRotate(m mgl32.Mat2) float32 {
	return mgl32.RadToDeg(float32(math.Atan2(float64(m[1]), float64(m[0]))))
}

// GetScale extracts the per-axis scale as the length of each column of m.
func GetScale(m mgl32.Mat2) mgl32.Vec2 {
	return mgl32.Vec2{m.Col(0).Len(), m.Col(1).Len()}
}

func Lerp(a, b, rate float32) float32 {
	return a + (b-a)*rate
}

// LerpRotation interpolates angles in degrees along the shortest arc.
func LerpRotation(a, b, rate float32) float32 {
	diff := b - a
	diff -= 360 * float32(math.Round(float64(diff/360)))
	return a + diff*rate
}

func Vec2Lerp(a, b mgl32.Vec2, rate float32) mgl32.Vec2 {
	return mgl32.Vec2{Lerp(a.X(), b.X(), rate), Lerp(a.Y(), b.Y(), rate)}
}

func Vec4Lerp(a, b mgl32.Vec4, rate float32) mgl32.Vec4 {
	return mgl32.Vec4{
		Lerp(a[0], b[0], rate),
		Lerp(a[1], b[1], rate),
		Lerp(a[2], b[2], rate),
		Lerp(a[3], b[3], rate),
	}
}

func Vec2Mul(v1, v2 mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{v1.X() * v2.X(), v1.Y() * v2.Y()}
}

// Vec2Div divides component-wise; a zero divisor component leaves v1's component as is.
func Vec2Div(v1, v2 mgl32.Vec2) mgl32.Vec2 {
	res := v1
	if v2.X() != 0 {
		res[0] = v1.X() / v2.X()
	}
	if v2.Y() != 0 {
		res[1] = v1.Y() / v2.Y()
	}
	return res
}

func Vec4Mul(v1, v2 mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{v1.X() * v2.X(), v1.Y() * v2.Y(), v1.Z() * v2.Z(), v1.W() * v2.W()}
}

// AttachmentKey is the unique key of an attachment: names are only unique per slot.
func AttachmentKey(attachment string, slot int) string {
	return fmt.Sprintf("%s-%d", attachment, slot)
}
