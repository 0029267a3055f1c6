package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 2D space
type Transform struct {
	Position mgl64.Vec2
	Angle    float64
	// Rotation caches the rotation matrix of Angle, see SetAngle
	Rotation mgl64.Mat2
}

// NewTransform creates a transform at position rotated by angle
func NewTransform(position mgl64.Vec2, angle float64) Transform {
	return Transform{
		Position: position,
		Angle:    angle,
		Rotation: Rotation(angle),
	}
}

// SetAngle updates the angle and the cached rotation matrix
func (t *Transform) SetAngle(angle float64) {
	t.Angle = angle
	t.Rotation = Rotation(angle)
}

// Rotate rotates a local vector into world space
func (t Transform) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Mul2x1(v)
}

// InverseRotate rotates a world vector into local space
func (t Transform) InverseRotate(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Transpose().Mul2x1(v)
}

// Apply maps a local point to world space
func (t Transform) Apply(local mgl64.Vec2) mgl64.Vec2 {
	return t.Rotate(local).Add(t.Position)
}

// ApplyInverse maps a world point to local space
func (t Transform) ApplyInverse(world mgl64.Vec2) mgl64.Vec2 {
	return t.InverseRotate(world.Sub(t.Position))
}
