package actor

import "github.com/go-gl/mathgl/mgl64"

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossSV returns s × v, i.e. v rotated by +90° and scaled by s.
func CrossSV(s float64, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v[1], s * v[0]}
}

// CrossVS returns v × s, i.e. v rotated by -90° and scaled by s.
func CrossVS(v mgl64.Vec2, s float64) mgl64.Vec2 {
	return mgl64.Vec2{s * v[1], -s * v[0]}
}

// Perp returns the left perpendicular of v.
func Perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v[1], v[0]}
}

// Rotation builds the 2x2 rotation matrix for angle (radians).
func Rotation(angle float64) mgl64.Mat2 {
	return mgl64.Rotate2D(angle)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
