package constraint

import (
	"fmt"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// JointKind identifies the concrete type behind a Joint
type JointKind uint8

const (
	JointDistance JointKind = iota
	JointRevolute
	JointPrismatic
	JointPulley
	JointGear
	JointMouse
	JointWeld
)

func (k JointKind) String() string {
	switch k {
	case JointDistance:
		return "distance"
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointPulley:
		return "pulley"
	case JointGear:
		return "gear"
	case JointMouse:
		return "mouse"
	case JointWeld:
		return "weld"
	}
	return "unknown"
}

// LimitState tracks which side of a joint limit is active
type LimitState uint8

const (
	LimitInactive LimitState = iota
	LimitAtLower
	LimitAtUpper
	LimitEqual
)

func (s LimitState) String() string {
	switch s {
	case LimitInactive:
		return "inactive"
	case LimitAtLower:
		return "at-lower"
	case LimitAtUpper:
		return "at-upper"
	case LimitEqual:
		return "equal"
	}
	return "unknown"
}

// Joint is an explicit constraint between bodies, solved alongside the contacts
// of its island.
type Joint interface {
	Kind() JointKind
	BodyA() *actor.RigidBody
	BodyB() *actor.RigidBody
	// Bodies lists every body the joint reads or writes, BodyA and BodyB first
	Bodies() []*actor.RigidBody
	CollideConnected() bool

	// InitVelocityConstraints computes the effective masses and applies the warm starting impulses
	InitVelocityConstraints(data *SolverData)
	// SolveVelocityConstraints runs one velocity iteration
	SolveVelocityConstraints(data *SolverData)
	// SolvePositionConstraints runs one position iteration and reports whether the error is within tolerance
	SolvePositionConstraints(data *SolverData) bool
}

type jointBase struct {
	bodyA, bodyB     *actor.RigidBody
	collideConnected bool

	// Solver temp
	indexA, indexB     int
	invMassA, invMassB float64
	invIA, invIB       float64
}

func newJointBase(kind JointKind, bodyA, bodyB *actor.RigidBody, collideConnected bool) (jointBase, error) {
	if bodyA == nil || bodyB == nil {
		return jointBase{}, fmt.Errorf("%s joint: %w", kind, ErrInvalidBody)
	}
	if bodyA == bodyB {
		return jointBase{}, fmt.Errorf("%s joint: %w", kind, ErrSameBody)
	}

	return jointBase{bodyA: bodyA, bodyB: bodyB, collideConnected: collideConnected}, nil
}

func (j *jointBase) BodyA() *actor.RigidBody { return j.bodyA }
func (j *jointBase) BodyB() *actor.RigidBody { return j.bodyB }

func (j *jointBase) Bodies() []*actor.RigidBody {
	return []*actor.RigidBody{j.bodyA, j.bodyB}
}

func (j *jointBase) CollideConnected() bool { return j.collideConnected }

func (j *jointBase) prepare(data *SolverData) (bodyA, bodyB *SolverBody) {
	j.indexA = data.IndexOf(j.bodyA)
	j.indexB = data.IndexOf(j.bodyB)

	bodyA = &data.Bodies[j.indexA]
	bodyB = &data.Bodies[j.indexB]
	j.invMassA, j.invIA = bodyA.InverseMass, bodyA.InverseInertia
	j.invMassB, j.invIB = bodyB.InverseMass, bodyB.InverseInertia

	return bodyA, bodyB
}

func (j *jointBase) solverBodies(data *SolverData) (bodyA, bodyB *SolverBody) {
	return &data.Bodies[j.indexA], &data.Bodies[j.indexB]
}

// applyLinear applies -P to A and +P to B at the given arms, plus an optional pure angular impulse
func (j *jointBase) applyLinear(bodyA, bodyB *SolverBody, rA, rB, P mgl64.Vec2, angular float64) {
	bodyA.Velocity = bodyA.Velocity.Sub(P.Mul(j.invMassA))
	bodyA.AngularVelocity -= j.invIA * (actor.Cross(rA, P) + angular)

	bodyB.Velocity = bodyB.Velocity.Add(P.Mul(j.invMassB))
	bodyB.AngularVelocity += j.invIB * (actor.Cross(rB, P) + angular)
}

// moveLinear is the position counterpart of applyLinear
func (j *jointBase) moveLinear(bodyA, bodyB *SolverBody, rA, rB, P mgl64.Vec2, angular float64) {
	bodyA.Position = bodyA.Position.Sub(P.Mul(j.invMassA))
	bodyA.Angle -= j.invIA * (actor.Cross(rA, P) + angular)

	bodyB.Position = bodyB.Position.Add(P.Mul(j.invMassB))
	bodyB.Angle += j.invIB * (actor.Cross(rB, P) + angular)
}

// pointMass returns the 2x2 effective mass of a point-to-point constraint
func pointMass(mA, mB, iA, iB float64, rA, rB mgl64.Vec2) mgl64.Mat2 {
	exx := mA + mB + iA*rA.Y()*rA.Y() + iB*rB.Y()*rB.Y()
	exy := -iA*rA.X()*rA.Y() - iB*rB.X()*rB.Y()
	eyy := mA + mB + iA*rA.X()*rA.X() + iB*rB.X()*rB.X()

	return mgl64.Mat2{exx, exy, exy, eyy}
}

// pointAngleMass returns the 3x3 effective mass of a point-to-point and angle constraint
func pointAngleMass(mA, mB, iA, iB float64, rA, rB mgl64.Vec2) mgl64.Mat3 {
	K := pointMass(mA, mB, iA, iB, rA, rB)
	ezx := -rA.Y()*iA - rB.Y()*iB
	ezy := rA.X()*iA + rB.X()*iB

	return mgl64.Mat3FromCols(
		mgl64.Vec3{K[0], K[1], ezx},
		mgl64.Vec3{K[2], K[3], ezy},
		mgl64.Vec3{ezx, ezy, iA + iB},
	)
}

// solve33 solves K*x = b, singular systems yield zero
func solve33(K mgl64.Mat3, b mgl64.Vec3) mgl64.Vec3 {
	return K.Inv().Mul3x1(b)
}

// solve22 solves the upper 2x2 block of K*x = b
func solve22(K mgl64.Mat3, b mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Mat2{K[0], K[1], K[3], K[4]}.Inv().Mul2x1(b)
}

// invOrZero returns 1/k, or zero for a non-positive k
func invOrZero(k float64) float64 {
	if k > 0.0 {
		return 1.0 / k
	}
	return 0.0
}

// localAnchor converts a world anchor into body space, relative to the center of mass
func localAnchor(body *actor.RigidBody, world mgl64.Vec2) mgl64.Vec2 {
	return body.LocalPoint(world)
}

// arm returns the world-space lever arm of a local anchor for the given angle
func arm(angle float64, local mgl64.Vec2) mgl64.Vec2 {
	return actor.Rotation(angle).Mul2x1(local)
}
