package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypeBox
	ShapeTypePlane
)

// MassData holds the mass properties computed from a shape and a density.
// The center of mass is the body origin for every shape of this package.
type MassData struct {
	Mass    float64
	Inertia float64 // rotational inertia about the center of mass
}

// Shape is the interface that all collision shapes must implement
type Shape interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape
	// at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) MassData
}

// Circle represents a disc collision shape centered on the body origin
type Circle struct {
	Radius float64
	aabb   AABB
}

func (c *Circle) Type() ShapeType {
	return ShapeTypeCircle
}

// ComputeAABB calculates the axis-aligned bounding box for the circle
func (c *Circle) ComputeAABB(transform Transform) {
	// Circle AABB is not affected by rotation, only by position
	r := mgl64.Vec2{c.Radius, c.Radius}
	c.aabb = AABB{
		Min: transform.Position.Sub(r),
		Max: transform.Position.Add(r),
	}
}

func (c *Circle) GetAABB() AABB {
	return c.aabb
}

func (c *Circle) ComputeMass(density float64) MassData {
	mass := density * math.Pi * c.Radius * c.Radius

	return MassData{
		Mass:    mass,
		Inertia: 0.5 * mass * c.Radius * c.Radius,
	}
}

// Box represents an oriented rectangle
// The box is defined by its half-extents (half-width, half-height)
type Box struct {
	HalfExtents mgl64.Vec2
	aabb        AABB
}

func (b *Box) Type() ShapeType {
	return ShapeTypeBox
}

// Corners returns the four corners in local space, counter-clockwise.
// The index of a corner is stable and is used as the contact feature.
func (b *Box) Corners() [4]mgl64.Vec2 {
	hx, hy := b.HalfExtents.X(), b.HalfExtents.Y()

	return [4]mgl64.Vec2{
		{-hx, -hy},
		{+hx, -hy},
		{+hx, +hy},
		{-hx, +hy},
	}
}

func (b *Box) ComputeAABB(transform Transform) {
	corners := b.Corners()

	worldCorner := transform.Apply(corners[0])
	min := worldCorner
	max := worldCorner

	for i := 1; i < len(corners); i++ {
		worldCorner = transform.Apply(corners[i])

		min[0] = math.Min(min[0], worldCorner[0])
		min[1] = math.Min(min[1], worldCorner[1])
		max[0] = math.Max(max[0], worldCorner[0])
		max[1] = math.Max(max[1], worldCorner[1])
	}

	b.aabb = AABB{Min: min, Max: max}
}

func (b *Box) GetAABB() AABB {
	return b.aabb
}

func (b *Box) ComputeMass(density float64) MassData {
	w := 2 * b.HalfExtents.X()
	h := 2 * b.HalfExtents.Y()
	mass := density * w * h

	return MassData{
		Mass:    mass,
		Inertia: mass * (w*w + h*h) / 12.0,
	}
}

// Plane represents an infinite half-plane, used for static ground and walls.
// The boundary is defined in local space by: Normal · p + Distance = 0
// Normal must be normalized and points out of the solid side.
type Plane struct {
	Normal   mgl64.Vec2
	Distance float64
	aabb     AABB
}

func (p *Plane) Type() ShapeType {
	return ShapeTypePlane
}

// planeExtent bounds the otherwise infinite box of a plane
const planeExtent = 1e10

func (p *Plane) ComputeAABB(transform Transform) {
	normal := transform.Rotate(p.Normal)
	point := p.WorldPoint(transform)

	min := mgl64.Vec2{-planeExtent, -planeExtent}
	max := mgl64.Vec2{planeExtent, planeExtent}

	// Axis aligned planes only extend below their surface
	if math.Abs(normal.Y()) == 1 {
		if normal.Y() > 0 {
			max[1] = point.Y()
		} else {
			min[1] = point.Y()
		}
	}
	if math.Abs(normal.X()) == 1 {
		if normal.X() > 0 {
			max[0] = point.X()
		} else {
			min[0] = point.X()
		}
	}

	p.aabb = AABB{Min: min, Max: max}
}

func (p *Plane) GetAABB() AABB {
	return p.aabb
}

// ComputeMass returns zero mass: planes only make sense on static bodies
func (p *Plane) ComputeMass(density float64) MassData {
	return MassData{}
}

// WorldNormal returns the plane normal in world space
func (p *Plane) WorldNormal(transform Transform) mgl64.Vec2 {
	return transform.Rotate(p.Normal)
}

// WorldPoint returns the point of the boundary closest to the local origin, in world space
func (p *Plane) WorldPoint(transform Transform) mgl64.Vec2 {
	return transform.Apply(p.Normal.Mul(-p.Distance))
}
