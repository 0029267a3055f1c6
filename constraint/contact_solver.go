package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type contactPoint struct {
	rA, rB mgl64.Vec2
	// Anchors relative to each center of mass, in body space
	localA, localB mgl64.Vec2

	normalImpulse   float64
	tangentImpulse  float64
	positionImpulse float64

	normalMass   float64
	tangentMass  float64
	velocityBias float64
	separation   float64
}

type contactConstraint struct {
	contact    *Contact
	points     [MaxManifoldPoints]contactPoint
	pointCount int

	normal      mgl64.Vec2
	localNormal mgl64.Vec2 // normal in the frame of body A

	indexA, indexB     int
	invMassA, invMassB float64
	invIA, invIB       float64

	friction    float64
	restitution float64
}

// ContactSolver turns manifold points into velocity and position constraints and
// resolves them with sequential impulses. The constraint buffer is kept between
// steps and only grows.
type ContactSolver struct {
	step        TimeStep
	bodies      []SolverBody
	constraints []contactConstraint
}

// Count returns the number of contacts prepared for this step
func (s *ContactSolver) Count() int {
	return len(s.constraints)
}

// Prepare builds the constraints of the given contacts for one step.
// Contacts between two movable bodies are ordered before contacts touching a static
// body, keeping the relative order inside each group, so that stacks settle on the
// ground last. Contacts without points are skipped.
func (s *ContactSolver) Prepare(step TimeStep, contacts []*Contact, data *SolverData) {
	s.step = step
	s.bodies = data.Bodies
	s.constraints = s.constraints[:0]

	for pass := 0; pass < 2; pass++ {
		for _, contact := range contacts {
			if contact.Manifold.PointCount == 0 {
				continue
			}

			touchesStatic := contact.BodyA.IsStatic() || contact.BodyB.IsStatic()
			if touchesStatic != (pass == 1) {
				continue
			}

			s.constraints = append(s.constraints, contactConstraint{})
			s.initialize(&s.constraints[len(s.constraints)-1], contact, data)
		}
	}
}

func (s *ContactSolver) initialize(vc *contactConstraint, contact *Contact, data *SolverData) {
	manifold := &contact.Manifold

	vc.contact = contact
	vc.pointCount = manifold.PointCount
	vc.friction = contact.Friction
	vc.restitution = contact.Restitution
	vc.indexA = data.IndexOf(contact.BodyA)
	vc.indexB = data.IndexOf(contact.BodyB)

	bodyA := &s.bodies[vc.indexA]
	bodyB := &s.bodies[vc.indexB]
	vc.invMassA, vc.invIA = bodyA.InverseMass, bodyA.InverseInertia
	vc.invMassB, vc.invIB = bodyB.InverseMass, bodyB.InverseInertia

	mA, mB := vc.invMassA, vc.invMassB
	iA, iB := vc.invIA, vc.invIB

	rotA := actor.Rotation(bodyA.Angle)
	rotB := actor.Rotation(bodyB.Angle)

	vc.normal = manifold.Normal
	vc.localNormal = rotA.Transpose().Mul2x1(vc.normal)
	tangent := actor.CrossVS(vc.normal, 1.0)

	for j := 0; j < vc.pointCount; j++ {
		mp := &manifold.Points[j]
		vcp := &vc.points[j]

		if s.step.WarmStarting {
			vcp.normalImpulse = s.step.DtRatio * mp.NormalImpulse
			vcp.tangentImpulse = s.step.DtRatio * mp.TangentImpulse
		} else {
			vcp.normalImpulse = 0.0
			vcp.tangentImpulse = 0.0
		}
		vcp.positionImpulse = 0.0
		vcp.separation = mp.Separation

		vcp.rA = mp.Point.Sub(bodyA.Position)
		vcp.rB = mp.Point.Sub(bodyB.Position)
		vcp.localA = rotA.Transpose().Mul2x1(vcp.rA)
		vcp.localB = rotB.Transpose().Mul2x1(vcp.rB)

		rnA := actor.Cross(vcp.rA, vc.normal)
		rnB := actor.Cross(vcp.rB, vc.normal)
		kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
		vcp.normalMass = 0.0
		if kNormal > 0.0 {
			vcp.normalMass = 1.0 / kNormal
		}

		rtA := actor.Cross(vcp.rA, tangent)
		rtB := actor.Cross(vcp.rB, tangent)
		kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
		vcp.tangentMass = 0.0
		if kTangent > 0.0 {
			vcp.tangentMass = 1.0 / kTangent
		}

		// Setup a velocity bias for restitution.
		vcp.velocityBias = 0.0
		vRel := vc.normal.Dot(relativeVelocity(bodyA, bodyB, vcp.rA, vcp.rB))
		if vRel < -VelocityThreshold {
			vcp.velocityBias = -vc.restitution * vRel
		}
	}
}

func relativeVelocity(bodyA, bodyB *SolverBody, rA, rB mgl64.Vec2) mgl64.Vec2 {
	vA := bodyA.Velocity.Add(actor.CrossSV(bodyA.AngularVelocity, rA))
	vB := bodyB.Velocity.Add(actor.CrossSV(bodyB.AngularVelocity, rB))
	return vB.Sub(vA)
}

// applyImpulse pushes A by -P and B by +P at the given arms
func applyImpulse(bodyA, bodyB *SolverBody, vc *contactConstraint, rA, rB, P mgl64.Vec2) {
	bodyA.Velocity = bodyA.Velocity.Sub(P.Mul(vc.invMassA))
	bodyA.AngularVelocity -= vc.invIA * actor.Cross(rA, P)

	bodyB.Velocity = bodyB.Velocity.Add(P.Mul(vc.invMassB))
	bodyB.AngularVelocity += vc.invIB * actor.Cross(rB, P)
}

// WarmStart applies the impulses carried over from the previous step
func (s *ContactSolver) WarmStart() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]

		tangent := actor.CrossVS(vc.normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			P := vc.normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			applyImpulse(bodyA, bodyB, vc, vcp.rA, vcp.rB, P)
		}
	}
}

// SolveVelocityConstraints runs one Gauss-Seidel pass over every contact point.
// Each impulse is applied at once so later points see the updated velocities.
func (s *ContactSolver) SolveVelocityConstraints() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]

		normal := vc.normal
		tangent := actor.CrossVS(normal, 1.0)

		// Non-penetration first, its impulse bounds friction
		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vn := relativeVelocity(bodyA, bodyB, vcp.rA, vcp.rB).Dot(normal)
			lambda := -vcp.normalMass * (vn - vcp.velocityBias)

			// Clamp the accumulated impulse, contacts only push
			newImpulse := math.Max(vcp.normalImpulse+lambda, 0.0)
			lambda = newImpulse - vcp.normalImpulse
			vcp.normalImpulse = newImpulse

			applyImpulse(bodyA, bodyB, vc, vcp.rA, vcp.rB, normal.Mul(lambda))
		}

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			vt := relativeVelocity(bodyA, bodyB, vcp.rA, vcp.rB).Dot(tangent)
			lambda := -vcp.tangentMass * vt

			// Coulomb cone, bounded by the current normal impulse
			maxFriction := vc.friction * vcp.normalImpulse
			newImpulse := clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			applyImpulse(bodyA, bodyB, vc, vcp.rA, vcp.rB, tangent.Mul(lambda))
		}
	}
}

// StoreImpulses copies the accumulated impulses back to the manifolds for the next step
func (s *ContactSolver) StoreImpulses() {
	for i := range s.constraints {
		vc := &s.constraints[i]
		manifold := &vc.contact.Manifold

		for j := 0; j < vc.pointCount; j++ {
			manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// SolvePositionConstraints runs one position correction pass and reports whether
// the deepest remaining overlap is within tolerance.
func (s *ContactSolver) SolvePositionConstraints() bool {
	if s.step.Correction == CorrectionNGS {
		return s.solvePositionNGS()
	}
	return s.solvePositionBaumgarte()
}

// solvePositionBaumgarte reuses the normal and the effective mass of the velocity
// pass and accumulates a non-negative corrective impulse per point.
func (s *ContactSolver) solvePositionBaumgarte() bool {
	minSeparation := 0.0

	for i := range s.constraints {
		vc := &s.constraints[i]
		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]
		normal := vc.normal

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			rA := actor.Rotation(bodyA.Angle).Mul2x1(vcp.localA)
			rB := actor.Rotation(bodyB.Angle).Mul2x1(vcp.localB)
			dp := bodyB.Position.Add(rB).Sub(bodyA.Position.Add(rA))

			separation := dp.Dot(normal) + vcp.separation
			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := clamp(Baumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0.0)

			impulse := -vcp.normalMass * C
			impulse0 := vcp.positionImpulse
			vcp.positionImpulse = math.Max(impulse0+impulse, 0.0)
			impulse = vcp.positionImpulse - impulse0

			movePositions(bodyA, bodyB, vc, rA, rB, normal.Mul(impulse))
		}
	}

	// We can't expect minSeparation >= -LinearSlop because we don't
	// push the separation above -LinearSlop.
	return minSeparation >= -3.0*LinearSlop
}

// solvePositionNGS recomputes the normal, arms and effective mass of every point
func (s *ContactSolver) solvePositionNGS() bool {
	minSeparation := 0.0

	for i := range s.constraints {
		vc := &s.constraints[i]
		bodyA := &s.bodies[vc.indexA]
		bodyB := &s.bodies[vc.indexB]

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]

			rotA := actor.Rotation(bodyA.Angle)
			normal := rotA.Mul2x1(vc.localNormal)
			rA := rotA.Mul2x1(vcp.localA)
			rB := actor.Rotation(bodyB.Angle).Mul2x1(vcp.localB)
			dp := bodyB.Position.Add(rB).Sub(bodyA.Position.Add(rA))

			separation := dp.Dot(normal) + vcp.separation
			minSeparation = math.Min(minSeparation, separation)

			C := clamp(Baumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0.0)

			rnA := actor.Cross(rA, normal)
			rnB := actor.Cross(rB, normal)
			K := vc.invMassA + vc.invMassB + vc.invIA*rnA*rnA + vc.invIB*rnB*rnB

			impulse := 0.0
			if K > 0.0 {
				impulse = -C / K
			}

			movePositions(bodyA, bodyB, vc, rA, rB, normal.Mul(impulse))
		}
	}

	return minSeparation >= -3.0*LinearSlop
}

func movePositions(bodyA, bodyB *SolverBody, vc *contactConstraint, rA, rB, P mgl64.Vec2) {
	bodyA.Position = bodyA.Position.Sub(P.Mul(vc.invMassA))
	bodyA.Angle -= vc.invIA * actor.Cross(rA, P)

	bodyB.Position = bodyB.Position.Add(P.Mul(vc.invMassB))
	bodyB.Angle += vc.invIB * actor.Cross(rB, P)
}

// PointImpulses returns the accumulated normal and tangent impulses of the i-th
// prepared contact, in solve order
func (s *ContactSolver) PointImpulses(i int) (normal, tangent [MaxManifoldPoints]float64, count int) {
	vc := &s.constraints[i]
	for j := 0; j < vc.pointCount; j++ {
		normal[j] = vc.points[j].normalImpulse
		tangent[j] = vc.points[j].tangentImpulse
	}
	return normal, tangent, vc.pointCount
}

// ContactAt returns the i-th prepared contact, in solve order
func (s *ContactSolver) ContactAt(i int) *Contact {
	return s.constraints[i].contact
}
