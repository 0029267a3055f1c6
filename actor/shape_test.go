package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Helper functions
func vec2Equal(a, b mgl64.Vec2, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance
}

func floatEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestShapeComputeMass(t *testing.T) {
	tests := []struct {
		name            string
		shape           Shape
		density         float64
		expectedMass    float64
		expectedInertia float64
	}{
		{"unit circle", &Circle{Radius: 1}, 1, math.Pi, 0.5 * math.Pi},
		{"dense circle", &Circle{Radius: 2}, 3, 12 * math.Pi, 0.5 * 12 * math.Pi * 4},
		{"square", &Box{HalfExtents: mgl64.Vec2{0.5, 0.5}}, 2, 2, 2 * 2.0 / 12.0},
		{"rectangle", &Box{HalfExtents: mgl64.Vec2{2, 1}}, 1, 8, 8 * (16 + 4) / 12.0},
		{"plane", &Plane{Normal: mgl64.Vec2{0, 1}}, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := tt.shape.ComputeMass(tt.density)
			if !floatEqual(md.Mass, tt.expectedMass, 1e-9) {
				t.Errorf("Mass = %v, want %v", md.Mass, tt.expectedMass)
			}
			if !floatEqual(md.Inertia, tt.expectedInertia, 1e-9) {
				t.Errorf("Inertia = %v, want %v", md.Inertia, tt.expectedInertia)
			}
		})
	}
}

func TestCircleComputeAABB_IgnoresRotation(t *testing.T) {
	circle := &Circle{Radius: 0.5}
	circle.ComputeAABB(NewTransform(mgl64.Vec2{2, 3}, 1.2))

	aabb := circle.GetAABB()
	if !vec2Equal(aabb.Min, mgl64.Vec2{1.5, 2.5}, 1e-12) || !vec2Equal(aabb.Max, mgl64.Vec2{2.5, 3.5}, 1e-12) {
		t.Errorf("AABB = %v", aabb)
	}
}

func TestBoxComputeAABB_Rotated(t *testing.T) {
	box := &Box{HalfExtents: mgl64.Vec2{1, 1}}
	box.ComputeAABB(NewTransform(mgl64.Vec2{0, 0}, math.Pi/4))

	half := math.Sqrt2
	aabb := box.GetAABB()
	if !vec2Equal(aabb.Min, mgl64.Vec2{-half, -half}, 1e-9) || !vec2Equal(aabb.Max, mgl64.Vec2{half, half}, 1e-9) {
		t.Errorf("AABB = %v, want ±%v", aabb, half)
	}
}

func TestBoxCorners_CounterClockwise(t *testing.T) {
	corners := (&Box{HalfExtents: mgl64.Vec2{2, 1}}).Corners()

	for i := range corners {
		next := corners[(i+1)%len(corners)]
		prev := corners[(i+len(corners)-1)%len(corners)]
		if Cross(next.Sub(corners[i]), prev.Sub(corners[i])) <= 0 {
			t.Errorf("corner %d is not counter-clockwise", i)
		}
	}
}

func TestPlaneWorldGeometry(t *testing.T) {
	// y = 2 surface, facing up
	plane := &Plane{Normal: mgl64.Vec2{0, 1}, Distance: -2}
	transform := NewTransform(mgl64.Vec2{}, 0)
	plane.ComputeAABB(transform)

	if p := plane.WorldPoint(transform); !vec2Equal(p, mgl64.Vec2{0, 2}, 1e-12) {
		t.Errorf("WorldPoint() = %v, want (0, 2)", p)
	}
	if aabb := plane.GetAABB(); aabb.Max.Y() != 2 {
		t.Errorf("AABB top = %v, want 2", aabb.Max.Y())
	}

	rotated := NewTransform(mgl64.Vec2{}, math.Pi/2)
	if n := plane.WorldNormal(rotated); !vec2Equal(n, mgl64.Vec2{-1, 0}, 1e-12) {
		t.Errorf("WorldNormal() = %v, want (-1, 0)", n)
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	transform := NewTransform(mgl64.Vec2{1, -2}, 0.7)
	local := mgl64.Vec2{0.3, 4}

	if got := transform.ApplyInverse(transform.Apply(local)); !vec2Equal(got, local, 1e-12) {
		t.Errorf("ApplyInverse(Apply(%v)) = %v", local, got)
	}
}

func TestCrossHelpers(t *testing.T) {
	x := mgl64.Vec2{1, 0}
	y := mgl64.Vec2{0, 1}

	if Cross(x, y) != 1 {
		t.Errorf("Cross(x, y) = %v, want 1", Cross(x, y))
	}
	if got := CrossSV(2, x); got != (mgl64.Vec2{0, 2}) {
		t.Errorf("CrossSV(2, x) = %v, want (0, 2)", got)
	}
	if got := CrossVS(x, 2); got != (mgl64.Vec2{0, -2}) {
		t.Errorf("CrossVS(x, 2) = %v, want (0, -2)", got)
	}
	if got := Perp(x); got != y {
		t.Errorf("Perp(x) = %v, want %v", got, y)
	}
}
