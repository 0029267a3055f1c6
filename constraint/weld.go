package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// WeldJointDef glues two bodies together at a world anchor
type WeldJointDef struct {
	BodyA, BodyB     *actor.RigidBody
	Anchor           mgl64.Vec2
	CollideConnected bool
}

// WeldJoint removes all relative motion between two bodies
type WeldJoint struct {
	jointBase

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	referenceAngle float64

	impulse mgl64.Vec3

	// Solver temp
	rA, rB mgl64.Vec2
	mass   mgl64.Mat3
}

func NewWeldJoint(def WeldJointDef) (*WeldJoint, error) {
	base, err := newJointBase(JointWeld, def.BodyA, def.BodyB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.BodyA.InverseMass+def.BodyB.InverseMass == 0 {
		return nil, fmt.Errorf("weld joint: both bodies are immovable: %w", ErrDegenerateJoint)
	}

	return &WeldJoint{
		jointBase:      base,
		localAnchorA:   localAnchor(def.BodyA, def.Anchor),
		localAnchorB:   localAnchor(def.BodyB, def.Anchor),
		referenceAngle: def.BodyB.Transform.Angle - def.BodyA.Transform.Angle,
	}, nil
}

func (j *WeldJoint) Kind() JointKind { return JointWeld }

func (j *WeldJoint) InitVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.prepare(data)

	j.rA = arm(bodyA.Angle, j.localAnchorA)
	j.rB = arm(bodyB.Angle, j.localAnchorB)
	j.mass = pointAngleMass(j.invMassA, j.invMassB, j.invIA, j.invIB, j.rA, j.rB)

	if data.Step.WarmStarting {
		j.impulse = j.impulse.Mul(data.Step.DtRatio)

		P := mgl64.Vec2{j.impulse[0], j.impulse[1]}
		j.applyLinear(bodyA, bodyB, j.rA, j.rB, P, j.impulse[2])
	} else {
		j.impulse = mgl64.Vec3{}
	}
}

func (j *WeldJoint) solve(K mgl64.Mat3, C mgl64.Vec3) mgl64.Vec3 {
	if K[8] == 0.0 {
		// Fixed rotation, only the point rows are solvable
		impulse := solve22(K, mgl64.Vec2{C[0], C[1]})
		return mgl64.Vec3{impulse[0], impulse[1], 0.0}
	}
	return solve33(K, C)
}

func (j *WeldJoint) SolveVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.solverBodies(data)

	Cdot1 := relativeVelocity(bodyA, bodyB, j.rA, j.rB)
	Cdot2 := bodyB.AngularVelocity - bodyA.AngularVelocity

	impulse := j.solve(j.mass, mgl64.Vec3{Cdot1[0], Cdot1[1], Cdot2}).Mul(-1)
	j.impulse = j.impulse.Add(impulse)

	P := mgl64.Vec2{impulse[0], impulse[1]}
	j.applyLinear(bodyA, bodyB, j.rA, j.rB, P, impulse[2])
}

func (j *WeldJoint) SolvePositionConstraints(data *SolverData) bool {
	bodyA, bodyB := j.solverBodies(data)

	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)

	C1 := bodyB.Position.Add(rB).Sub(bodyA.Position).Sub(rA)
	C2 := bodyB.Angle - bodyA.Angle - j.referenceAngle

	positionError := C1.Len()
	angularError := math.Abs(C2)

	K := pointAngleMass(j.invMassA, j.invMassB, j.invIA, j.invIB, rA, rB)
	impulse := j.solve(K, mgl64.Vec3{C1[0], C1[1], C2}).Mul(-1)

	P := mgl64.Vec2{impulse[0], impulse[1]}
	j.moveLinear(bodyA, bodyB, rA, rB, P, impulse[2])

	return positionError <= LinearSlop && angularError <= AngularSlop
}
