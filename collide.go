package feather2d

import (
	"math"
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// Collider is the narrow phase: it computes the manifold between the shapes of two bodies.
// The normal points from bodyA to bodyB. stable reports whether the feature ids of the
// points can be matched with the ones of the previous step.
type Collider interface {
	Collide(bodyA, bodyB *actor.RigidBody) (manifold constraint.Manifold, stable bool)
}

// ShapeCollider is the default narrow phase for circles, boxes and planes
type ShapeCollider struct{}

type featureType uint8

const (
	featureVertex featureType = iota
	featureFace
)

// featureID packs the features that produced a point into a stable key
func featureID(indexA, indexB int, typeA, typeB featureType) constraint.FeatureID {
	return constraint.FeatureID(uint32(indexA&0xff) | uint32(indexB&0xff)<<8 | uint32(typeA)<<16 | uint32(typeB)<<24)
}

func (c ShapeCollider) Collide(bodyA, bodyB *actor.RigidBody) (constraint.Manifold, bool) {
	if bodyA.Shape == nil || bodyB.Shape == nil {
		return constraint.Manifold{}, true
	}

	typeA, typeB := bodyA.Shape.Type(), bodyB.Shape.Type()

	// Handle each couple once, with the lowest type on side A
	if typeB < typeA {
		manifold, stable := c.Collide(bodyB, bodyA)
		manifold.Normal = manifold.Normal.Mul(-1)
		return manifold, stable
	}

	switch {
	case typeA == actor.ShapeTypeCircle && typeB == actor.ShapeTypeCircle:
		return collideCircles(bodyA, bodyA.Shape.(*actor.Circle), bodyB, bodyB.Shape.(*actor.Circle)), true
	case typeA == actor.ShapeTypeCircle && typeB == actor.ShapeTypeBox:
		manifold := collideBoxCircle(bodyB, bodyB.Shape.(*actor.Box), bodyA, bodyA.Shape.(*actor.Circle))
		manifold.Normal = manifold.Normal.Mul(-1)
		return manifold, true
	case typeA == actor.ShapeTypeCircle && typeB == actor.ShapeTypePlane:
		manifold := collidePlaneCircle(bodyB, bodyB.Shape.(*actor.Plane), bodyA, bodyA.Shape.(*actor.Circle))
		manifold.Normal = manifold.Normal.Mul(-1)
		return manifold, true
	case typeA == actor.ShapeTypeBox && typeB == actor.ShapeTypeBox:
		return collideBoxes(bodyA, bodyA.Shape.(*actor.Box), bodyB, bodyB.Shape.(*actor.Box)), true
	case typeA == actor.ShapeTypeBox && typeB == actor.ShapeTypePlane:
		manifold := collidePlaneBox(bodyB, bodyB.Shape.(*actor.Plane), bodyA, bodyA.Shape.(*actor.Box))
		manifold.Normal = manifold.Normal.Mul(-1)
		return manifold, true
	}

	return constraint.Manifold{}, true
}

// facePoint places a contact between a point of B and the face of A passing through onFace.
// The point sits halfway between both surfaces.
func facePoint(normal, onFace, clip mgl64.Vec2, radiusB float64) (point mgl64.Vec2, separation float64) {
	d := clip.Sub(onFace).Dot(normal)
	cA := clip.Sub(normal.Mul(d))
	cB := clip.Sub(normal.Mul(radiusB))

	return cA.Add(cB).Mul(0.5), d - radiusB
}

func collideCircles(bodyA *actor.RigidBody, circleA *actor.Circle, bodyB *actor.RigidBody, circleB *actor.Circle) constraint.Manifold {
	var manifold constraint.Manifold

	d := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	distance := d.Len()
	radius := circleA.Radius + circleB.Radius
	if distance > radius {
		return manifold
	}

	manifold.Normal = mgl64.Vec2{0, 1}
	if distance > mgl64.Epsilon {
		manifold.Normal = d.Mul(1.0 / distance)
	}

	cA := bodyA.Transform.Position.Add(manifold.Normal.Mul(circleA.Radius))
	cB := bodyB.Transform.Position.Sub(manifold.Normal.Mul(circleB.Radius))
	manifold.AddPoint(cA.Add(cB).Mul(0.5), distance-radius, featureID(0, 0, featureVertex, featureVertex))

	return manifold
}

func collidePlaneCircle(bodyA *actor.RigidBody, plane *actor.Plane, bodyB *actor.RigidBody, circle *actor.Circle) constraint.Manifold {
	var manifold constraint.Manifold

	normal := plane.WorldNormal(bodyA.Transform)
	point, separation := facePoint(normal, plane.WorldPoint(bodyA.Transform), bodyB.Transform.Position, circle.Radius)
	if separation > 0 {
		return manifold
	}

	manifold.Normal = normal
	manifold.AddPoint(point, separation, featureID(0, 0, featureFace, featureVertex))

	return manifold
}

func collidePlaneBox(bodyA *actor.RigidBody, plane *actor.Plane, bodyB *actor.RigidBody, box *actor.Box) constraint.Manifold {
	var manifold constraint.Manifold

	normal := plane.WorldNormal(bodyA.Transform)
	onPlane := plane.WorldPoint(bodyA.Transform)

	type candidate struct {
		corner     int
		point      mgl64.Vec2
		separation float64
	}
	var candidates [4]candidate
	count := 0

	for i, corner := range box.Corners() {
		point, separation := facePoint(normal, onPlane, bodyB.Transform.Apply(corner), 0)
		if separation > 0 {
			continue
		}
		candidates[count] = candidate{corner: i, point: point, separation: separation}
		count++
	}
	if count == 0 {
		return manifold
	}

	// Keep the deepest corners, in corner order
	deepest := candidates[:count]
	slices.SortStableFunc(deepest, func(a, b candidate) int {
		return compareFloat(a.separation, b.separation)
	})
	deepest = deepest[:min(count, constraint.MaxManifoldPoints)]
	slices.SortFunc(deepest, func(a, b candidate) int { return a.corner - b.corner })

	manifold.Normal = normal
	for _, c := range deepest {
		manifold.AddPoint(c.point, c.separation, featureID(0, c.corner, featureFace, featureVertex))
	}

	return manifold
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// boxNormals returns the outward normal of each edge, edge i going from corner i to i+1
func boxNormals() [4]mgl64.Vec2 {
	return [4]mgl64.Vec2{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
}

func collideBoxCircle(bodyA *actor.RigidBody, box *actor.Box, bodyB *actor.RigidBody, circle *actor.Circle) constraint.Manifold {
	var manifold constraint.Manifold

	xf := bodyA.Transform
	center := xf.ApplyInverse(bodyB.Transform.Position)
	corners := box.Corners()
	normals := boxNormals()

	// Find the face of minimum penetration
	normalIndex := 0
	separation := -math.MaxFloat64
	for i := range corners {
		s := normals[i].Dot(center.Sub(corners[i]))
		if s > circle.Radius {
			return manifold
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	v1 := corners[normalIndex]
	v2 := corners[(normalIndex+1)%len(corners)]
	id := featureID(normalIndex, 0, featureFace, featureVertex)

	var localNormal, onFace mgl64.Vec2
	switch {
	case separation < mgl64.Epsilon:
		// Center inside the box
		localNormal, onFace = normals[normalIndex], v1
	case center.Sub(v1).Dot(v2.Sub(v1)) <= 0:
		if center.Sub(v1).LenSqr() > circle.Radius*circle.Radius {
			return manifold
		}
		localNormal, onFace = center.Sub(v1).Normalize(), v1
		id = featureID(normalIndex, 0, featureVertex, featureVertex)
	case center.Sub(v2).Dot(v1.Sub(v2)) <= 0:
		if center.Sub(v2).LenSqr() > circle.Radius*circle.Radius {
			return manifold
		}
		localNormal, onFace = center.Sub(v2).Normalize(), v2
		id = featureID((normalIndex+1)%len(corners), 0, featureVertex, featureVertex)
	default:
		localNormal, onFace = normals[normalIndex], v1
	}

	normal := xf.Rotate(localNormal)
	point, depth := facePoint(normal, xf.Apply(onFace), bodyB.Transform.Position, circle.Radius)
	if depth > 0 {
		return constraint.Manifold{}
	}

	manifold.Normal = normal
	manifold.AddPoint(point, depth, id)

	return manifold
}

// maxSeparation finds the face of boxA whose normal separates the boxes the most
func maxSeparation(xfA actor.Transform, boxA *actor.Box, xfB actor.Transform, boxB *actor.Box) (int, float64) {
	cornersA := boxA.Corners()
	cornersB := boxB.Corners()
	normals := boxNormals()

	bestIndex := 0
	best := -math.MaxFloat64
	for i := range cornersA {
		normal := xfA.Rotate(normals[i])
		v1 := xfA.Apply(cornersA[i])

		// Deepest corner of B along this normal
		si := math.MaxFloat64
		for _, corner := range cornersB {
			si = math.Min(si, normal.Dot(xfB.Apply(corner).Sub(v1)))
		}

		if si > best {
			best = si
			bestIndex = i
		}
	}

	return bestIndex, best
}

type clipVertex struct {
	v  mgl64.Vec2
	id constraint.FeatureID
}

// incidentEdge returns the edge of box2 most anti-parallel to the reference normal
func incidentEdge(normal mgl64.Vec2, edge1 int, xf2 actor.Transform, box2 *actor.Box) [2]clipVertex {
	corners := box2.Corners()
	normals := boxNormals()

	index := 0
	minDot := math.MaxFloat64
	for i := range normals {
		if dot := normal.Dot(xf2.Rotate(normals[i])); dot < minDot {
			minDot = dot
			index = i
		}
	}
	next := (index + 1) % len(corners)

	return [2]clipVertex{
		{v: xf2.Apply(corners[index]), id: featureID(edge1, index, featureFace, featureVertex)},
		{v: xf2.Apply(corners[next]), id: featureID(edge1, next, featureFace, featureVertex)},
	}
}

// clipSegment keeps the part of the segment behind the line normal·p = offset
func clipSegment(in [2]clipVertex, normal mgl64.Vec2, offset float64, vertexA int) ([2]clipVertex, int) {
	var out [2]clipVertex
	count := 0

	distance0 := normal.Dot(in[0].v) - offset
	distance1 := normal.Dot(in[1].v) - offset

	if distance0 <= 0 {
		out[count] = in[0]
		count++
	}
	if distance1 <= 0 {
		out[count] = in[1]
		count++
	}

	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		indexB := int(in[0].id>>8) & 0xff
		out[count] = clipVertex{
			v:  in[0].v.Add(in[1].v.Sub(in[0].v).Mul(interp)),
			id: featureID(vertexA, indexB, featureVertex, featureFace),
		}
		count++
	}

	return out, count
}

// collideBoxes clips the incident edge against the side planes of the reference face
func collideBoxes(bodyA *actor.RigidBody, boxA *actor.Box, bodyB *actor.RigidBody, boxB *actor.Box) constraint.Manifold {
	var manifold constraint.Manifold
	xfA, xfB := bodyA.Transform, bodyB.Transform

	edgeA, separationA := maxSeparation(xfA, boxA, xfB, boxB)
	if separationA > 0 {
		return manifold
	}
	edgeB, separationB := maxSeparation(xfB, boxB, xfA, boxA)
	if separationB > 0 {
		return manifold
	}

	box1, box2 := boxA, boxB
	xf1, xf2 := xfA, xfB
	edge1 := edgeA
	flip := false

	const tolerance = 0.1 * constraint.LinearSlop
	if separationB > separationA+tolerance {
		box1, box2 = boxB, boxA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		flip = true
	}

	corners1 := box1.Corners()
	iv1 := edge1
	iv2 := (edge1 + 1) % len(corners1)
	v11 := xf1.Apply(corners1[iv1])
	v12 := xf1.Apply(corners1[iv2])

	tangent := v12.Sub(v11).Normalize()
	normal := actor.CrossVS(tangent, 1.0)

	incident := incidentEdge(normal, edge1, xf2, box2)

	frontOffset := normal.Dot(v11)
	sideOffset1 := -tangent.Dot(v11)
	sideOffset2 := tangent.Dot(v12)

	clipped, count := clipSegment(incident, tangent.Mul(-1), sideOffset1, iv1)
	if count < 2 {
		return manifold
	}
	clipped, count = clipSegment(clipped, tangent, sideOffset2, iv2)
	if count < 2 {
		return manifold
	}

	manifold.Normal = normal
	if flip {
		manifold.Normal = normal.Mul(-1)
	}

	for _, cv := range clipped {
		separation := normal.Dot(cv.v) - frontOffset
		if separation > 0 {
			continue
		}

		id := cv.id
		if flip {
			id = swapFeature(id)
		}
		point, _ := facePoint(normal, v11, cv.v, 0)
		manifold.AddPoint(point, separation, id)
	}

	return manifold
}

// swapFeature exchanges the A and B sides of a feature id
func swapFeature(id constraint.FeatureID) constraint.FeatureID {
	indexA, indexB := int(id)&0xff, int(id>>8)&0xff
	typeA, typeB := featureType(id>>16), featureType(id>>24)

	return featureID(indexB, indexA, typeB, typeA)
}
