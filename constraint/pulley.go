package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PulleyJointDef hangs two bodies from two fixed ground anchors
type PulleyJointDef struct {
	BodyA, BodyB     *actor.RigidBody
	GroundAnchorA    mgl64.Vec2 // world
	GroundAnchorB    mgl64.Vec2
	AnchorA, AnchorB mgl64.Vec2 // world anchors on the bodies
	Ratio            float64    // block and tackle ratio, must be positive
	CollideConnected bool
}

// PulleyJoint keeps lengthA + ratio * lengthB constant, where each length is
// measured from a ground anchor to the matching body anchor.
type PulleyJoint struct {
	jointBase

	groundAnchorA mgl64.Vec2
	groundAnchorB mgl64.Vec2
	localAnchorA  mgl64.Vec2
	localAnchorB  mgl64.Vec2
	lengthA       float64
	lengthB       float64
	ratio         float64
	constant      float64

	impulse float64

	// Solver temp
	uA, uB mgl64.Vec2
	rA, rB mgl64.Vec2
	mass   float64
}

func NewPulleyJoint(def PulleyJointDef) (*PulleyJoint, error) {
	base, err := newJointBase(JointPulley, def.BodyA, def.BodyB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.BodyA.InverseMass+def.BodyB.InverseMass == 0 {
		return nil, fmt.Errorf("pulley joint: both bodies are immovable: %w", ErrDegenerateJoint)
	}
	if def.Ratio <= mgl64.Epsilon {
		return nil, fmt.Errorf("pulley joint: ratio %v must be positive: %w", def.Ratio, ErrDegenerateJoint)
	}

	lengthA := def.AnchorA.Sub(def.GroundAnchorA).Len()
	lengthB := def.AnchorB.Sub(def.GroundAnchorB).Len()
	if lengthA <= 10.0*LinearSlop || lengthB <= 10.0*LinearSlop {
		return nil, fmt.Errorf("pulley joint: anchor on its ground anchor: %w", ErrDegenerateJoint)
	}

	return &PulleyJoint{
		jointBase:     base,
		groundAnchorA: def.GroundAnchorA,
		groundAnchorB: def.GroundAnchorB,
		localAnchorA:  localAnchor(def.BodyA, def.AnchorA),
		localAnchorB:  localAnchor(def.BodyB, def.AnchorB),
		lengthA:       lengthA,
		lengthB:       lengthB,
		ratio:         def.Ratio,
		constant:      lengthA + def.Ratio*lengthB,
	}, nil
}

func (j *PulleyJoint) Kind() JointKind { return JointPulley }

func (j *PulleyJoint) Ratio() float64 { return j.ratio }

// CurrentLengths returns the current rope lengths on both sides
func (j *PulleyJoint) CurrentLengths() (lengthA, lengthB float64) {
	lengthA = j.bodyA.WorldPoint(j.localAnchorA).Sub(j.groundAnchorA).Len()
	lengthB = j.bodyB.WorldPoint(j.localAnchorB).Sub(j.groundAnchorB).Len()
	return lengthA, lengthB
}

// ropeAxis returns the normalized rope direction and its length, or zero when too short
func ropeAxis(u mgl64.Vec2) (mgl64.Vec2, float64) {
	length := u.Len()
	if length > 10.0*LinearSlop {
		return u.Mul(1.0 / length), length
	}
	return mgl64.Vec2{}, length
}

func (j *PulleyJoint) effectiveMass(rA, rB, uA, uB mgl64.Vec2) float64 {
	ruA := actor.Cross(rA, uA)
	ruB := actor.Cross(rB, uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	return invOrZero(mA + j.ratio*j.ratio*mB)
}

// pull moves both bodies towards their ground anchors for a positive impulse
func (j *PulleyJoint) pull(bodyA, bodyB *SolverBody, impulse float64) {
	PA := j.uA.Mul(-impulse)
	PB := j.uB.Mul(-j.ratio * impulse)

	bodyA.Velocity = bodyA.Velocity.Add(PA.Mul(j.invMassA))
	bodyA.AngularVelocity += j.invIA * actor.Cross(j.rA, PA)
	bodyB.Velocity = bodyB.Velocity.Add(PB.Mul(j.invMassB))
	bodyB.AngularVelocity += j.invIB * actor.Cross(j.rB, PB)
}

func (j *PulleyJoint) InitVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.prepare(data)

	j.rA = arm(bodyA.Angle, j.localAnchorA)
	j.rB = arm(bodyB.Angle, j.localAnchorB)

	// Get the pulley axes.
	j.uA, _ = ropeAxis(bodyA.Position.Add(j.rA).Sub(j.groundAnchorA))
	j.uB, _ = ropeAxis(bodyB.Position.Add(j.rB).Sub(j.groundAnchorB))

	j.mass = j.effectiveMass(j.rA, j.rB, j.uA, j.uB)

	if data.Step.WarmStarting {
		// Scale impulses to support variable time steps.
		j.impulse *= data.Step.DtRatio
		j.pull(bodyA, bodyB, j.impulse)
	} else {
		j.impulse = 0.0
	}
}

func (j *PulleyJoint) SolveVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.solverBodies(data)

	vpA := bodyA.Velocity.Add(actor.CrossSV(bodyA.AngularVelocity, j.rA))
	vpB := bodyB.Velocity.Add(actor.CrossSV(bodyB.AngularVelocity, j.rB))

	Cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * Cdot
	j.impulse += impulse

	j.pull(bodyA, bodyB, impulse)
}

func (j *PulleyJoint) SolvePositionConstraints(data *SolverData) bool {
	bodyA, bodyB := j.solverBodies(data)

	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)

	uA, lengthA := ropeAxis(bodyA.Position.Add(rA).Sub(j.groundAnchorA))
	uB, lengthB := ropeAxis(bodyB.Position.Add(rB).Sub(j.groundAnchorB))

	mass := j.effectiveMass(rA, rB, uA, uB)

	C := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(C)

	impulse := -mass * C

	PA := uA.Mul(-impulse)
	PB := uB.Mul(-j.ratio * impulse)

	bodyA.Position = bodyA.Position.Add(PA.Mul(j.invMassA))
	bodyA.Angle += j.invIA * actor.Cross(rA, PA)
	bodyB.Position = bodyB.Position.Add(PB.Mul(j.invMassB))
	bodyB.Angle += j.invIB * actor.Cross(rB, PB)

	return linearError < LinearSlop
}
