package constraint

import (
	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// FeatureID identifies the pair of shape features that produced a contact point.
// The narrow phase keeps it stable across frames for the same physical point.
type FeatureID uint32

// ManifoldPoint is a single contact point between two shapes
type ManifoldPoint struct {
	Point      mgl64.Vec2 // world position
	Separation float64    // negative when overlapping

	// Accumulated impulses, kept across steps for warm starting
	NormalImpulse  float64
	TangentImpulse float64

	ID FeatureID
}

// Manifold describes how two shapes overlap: up to two points sharing one normal
type Manifold struct {
	Normal     mgl64.Vec2 // world normal, from A to B
	Points     [MaxManifoldPoints]ManifoldPoint
	PointCount int
}

// AddPoint appends a point, extra points are ignored
func (m *Manifold) AddPoint(point mgl64.Vec2, separation float64, id FeatureID) {
	if m.PointCount >= MaxManifoldPoints {
		return
	}
	m.Points[m.PointCount] = ManifoldPoint{Point: point, Separation: separation, ID: id}
	m.PointCount++
}

// Contact is the persistent relation between two overlapping shapes.
// It is created when the broad phase reports a new pair and destroyed when the
// pair stops overlapping; its manifold is refreshed every step.
type Contact struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	Manifold Manifold

	Friction    float64
	Restitution float64

	// Enabled can be cleared to ignore the contact for the current step
	Enabled bool

	touching bool
}

// NewContact creates a contact between two bodies, mixing their materials
func NewContact(bodyA, bodyB *actor.RigidBody) *Contact {
	return &Contact{
		BodyA:       bodyA,
		BodyB:       bodyB,
		Friction:    ComputeFriction(bodyA.Material, bodyB.Material),
		Restitution: ComputeRestitution(bodyA.Material, bodyB.Material),
		Enabled:     true,
	}
}

// IsTouching reports whether the last manifold had at least one point
func (c *Contact) IsTouching() bool {
	return c.touching
}

// Update replaces the manifold with a fresh one from the narrow phase.
// Impulses of points whose feature id already existed are carried over for warm
// starting; when stable is false the ids cannot be trusted and all impulses restart
// from zero. It reports whether the contact started or stopped touching.
func (c *Contact) Update(manifold Manifold, stable bool) (began, ended bool) {
	old := c.Manifold
	wasTouching := c.touching

	for i := 0; i < manifold.PointCount; i++ {
		point := &manifold.Points[i]
		point.NormalImpulse = 0
		point.TangentImpulse = 0

		if !stable {
			continue
		}

		for j := 0; j < old.PointCount; j++ {
			if old.Points[j].ID == point.ID {
				point.NormalImpulse = old.Points[j].NormalImpulse
				point.TangentImpulse = old.Points[j].TangentImpulse
				break
			}
		}
	}

	c.Manifold = manifold
	c.touching = manifold.PointCount > 0

	return !wasTouching && c.touching, wasTouching && !c.touching
}

// Other returns the body on the other side of the contact
func (c *Contact) Other(body *actor.RigidBody) *actor.RigidBody {
	if c.BodyA == body {
		return c.BodyB
	}
	return c.BodyA
}
