package constraint

import (
	"fmt"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// GearJointDef couples two revolute or prismatic joints
type GearJointDef struct {
	Joint1, Joint2   Joint
	Ratio            float64
	CollideConnected bool
}

// gearSide holds the geometry of one coupled joint: its moving body and its base body
type gearSide struct {
	kind           JointKind
	localAnchor    mgl64.Vec2 // on the moving body
	localAnchorB   mgl64.Vec2 // on the base body
	localAxis      mgl64.Vec2 // in the base body, zero for revolute joints
	referenceAngle float64
}

// GearJoint binds the coordinates of two joints:
// coordinate1 + ratio * coordinate2 = constant.
// The coordinate of a revolute joint is its angle, the coordinate of a prismatic
// joint its translation. The gear must be destroyed with the joints it references.
type GearJoint struct {
	jointBase

	joint1, joint2 Joint
	bodyC, bodyD   *actor.RigidBody // base bodies of joint1 and joint2

	side1, side2 gearSide
	ratio        float64
	constant     float64

	impulse float64

	// Solver temp
	indexC, indexD int
	invMassC       float64
	invMassD       float64
	invIC, invID   float64
	JvAC, JvBD     mgl64.Vec2
	JwA, JwB       float64
	JwC, JwD       float64
	mass           float64
}

func gearSideOf(joint Joint) (gearSide, error) {
	switch j := joint.(type) {
	case *RevoluteJoint:
		return gearSide{
			kind:           JointRevolute,
			localAnchor:    j.localAnchorB,
			localAnchorB:   j.localAnchorA,
			referenceAngle: j.referenceAngle,
		}, nil
	case *PrismaticJoint:
		return gearSide{
			kind:           JointPrismatic,
			localAnchor:    j.localAnchorB,
			localAnchorB:   j.localAnchorA,
			localAxis:      j.localXAxisA,
			referenceAngle: j.referenceAngle,
		}, nil
	case nil:
		return gearSide{}, fmt.Errorf("gear joint: missing joint: %w", ErrInvalidBody)
	}
	return gearSide{}, fmt.Errorf("gear joint: %s joints cannot be geared: %w", joint.Kind(), ErrDegenerateJoint)
}

func NewGearJoint(def GearJointDef) (*GearJoint, error) {
	side1, err := gearSideOf(def.Joint1)
	if err != nil {
		return nil, err
	}
	side2, err := gearSideOf(def.Joint2)
	if err != nil {
		return nil, err
	}
	if def.Ratio == 0 {
		return nil, fmt.Errorf("gear joint: zero ratio: %w", ErrDegenerateJoint)
	}

	base, err := newJointBase(JointGear, def.Joint1.BodyB(), def.Joint2.BodyB(), def.CollideConnected)
	if err != nil {
		return nil, err
	}

	j := &GearJoint{
		jointBase: base,
		joint1:    def.Joint1,
		joint2:    def.Joint2,
		bodyC:     def.Joint1.BodyA(),
		bodyD:     def.Joint2.BodyA(),
		side1:     side1,
		side2:     side2,
		ratio:     def.Ratio,
	}

	coordinateA := j.side1.coordinate(
		j.bodyA.Transform.Position, j.bodyA.Transform.Angle,
		j.bodyC.Transform.Position, j.bodyC.Transform.Angle,
	)
	coordinateB := j.side2.coordinate(
		j.bodyB.Transform.Position, j.bodyB.Transform.Angle,
		j.bodyD.Transform.Position, j.bodyD.Transform.Angle,
	)
	j.constant = coordinateA + j.ratio*coordinateB

	if j.effectiveMass() == 0 {
		return nil, fmt.Errorf("gear joint: all bodies are immovable: %w", ErrDegenerateJoint)
	}

	return j, nil
}

// coordinate returns the joint coordinate of the moving body at (p, a) relative to the base body at (pBase, aBase)
func (s gearSide) coordinate(p mgl64.Vec2, a float64, pBase mgl64.Vec2, aBase float64) float64 {
	if s.kind == JointRevolute {
		return a - aBase - s.referenceAngle
	}

	r := arm(a, s.localAnchor)
	local := actor.Rotation(aBase).Transpose().Mul2x1(r.Add(p.Sub(pBase)))
	return local.Sub(s.localAnchorB).Dot(s.localAxis)
}

func (j *GearJoint) Kind() JointKind { return JointGear }

func (j *GearJoint) Bodies() []*actor.RigidBody {
	return []*actor.RigidBody{j.bodyA, j.bodyB, j.bodyC, j.bodyD}
}

// Joints returns the two coupled joints
func (j *GearJoint) Joints() (Joint, Joint) { return j.joint1, j.joint2 }

func (j *GearJoint) Ratio() float64 { return j.ratio }

// effectiveMass builds the mass of the coupled constraint from the current body transforms
func (j *GearJoint) effectiveMass() float64 {
	bodies := []SolverBody{
		NewSolverBody(j.bodyA), NewSolverBody(j.bodyB),
		NewSolverBody(j.bodyC), NewSolverBody(j.bodyD),
	}
	data := &SolverData{
		Bodies: bodies,
		IndexOf: func(body *actor.RigidBody) int {
			switch body {
			case j.bodyA:
				return 0
			case j.bodyB:
				return 1
			case j.bodyC:
				return 2
			}
			return 3
		},
	}
	j.prepareAll(data)
	return j.jacobians(data)
}

func (j *GearJoint) prepareAll(data *SolverData) {
	j.prepare(data)

	j.indexC = data.IndexOf(j.bodyC)
	j.indexD = data.IndexOf(j.bodyD)
	j.invMassC, j.invIC = data.Bodies[j.indexC].InverseMass, data.Bodies[j.indexC].InverseInertia
	j.invMassD, j.invID = data.Bodies[j.indexD].InverseMass, data.Bodies[j.indexD].InverseInertia
}

// jacobians refreshes the Jacobian rows and returns the inverse effective mass
func (j *GearJoint) jacobians(data *SolverData) float64 {
	bodyA, bodyB := &data.Bodies[j.indexA], &data.Bodies[j.indexB]
	bodyC, bodyD := &data.Bodies[j.indexC], &data.Bodies[j.indexD]

	mass := 0.0

	if j.side1.kind == JointRevolute {
		j.JvAC = mgl64.Vec2{}
		j.JwA, j.JwC = 1.0, 1.0
		mass += j.invIA + j.invIC
	} else {
		u := arm(bodyC.Angle, j.side1.localAxis)
		rC := arm(bodyC.Angle, j.side1.localAnchorB)
		rA := arm(bodyA.Angle, j.side1.localAnchor)
		j.JvAC = u
		j.JwC = actor.Cross(rC, u)
		j.JwA = actor.Cross(rA, u)
		mass += j.invMassC + j.invMassA + j.invIC*j.JwC*j.JwC + j.invIA*j.JwA*j.JwA
	}

	if j.side2.kind == JointRevolute {
		j.JvBD = mgl64.Vec2{}
		j.JwB, j.JwD = j.ratio, j.ratio
		mass += j.ratio * j.ratio * (j.invIB + j.invID)
	} else {
		u := arm(bodyD.Angle, j.side2.localAxis)
		rD := arm(bodyD.Angle, j.side2.localAnchorB)
		rB := arm(bodyB.Angle, j.side2.localAnchor)
		j.JvBD = u.Mul(j.ratio)
		j.JwD = j.ratio * actor.Cross(rD, u)
		j.JwB = j.ratio * actor.Cross(rB, u)
		mass += j.ratio*j.ratio*(j.invMassD+j.invMassB) + j.invID*j.JwD*j.JwD + j.invIB*j.JwB*j.JwB
	}

	return mass
}

func (j *GearJoint) applyVelocity(data *SolverData, impulse float64) {
	bodyA, bodyB := &data.Bodies[j.indexA], &data.Bodies[j.indexB]
	bodyC, bodyD := &data.Bodies[j.indexC], &data.Bodies[j.indexD]

	bodyA.Velocity = bodyA.Velocity.Add(j.JvAC.Mul(j.invMassA * impulse))
	bodyA.AngularVelocity += j.invIA * impulse * j.JwA
	bodyB.Velocity = bodyB.Velocity.Add(j.JvBD.Mul(j.invMassB * impulse))
	bodyB.AngularVelocity += j.invIB * impulse * j.JwB
	bodyC.Velocity = bodyC.Velocity.Sub(j.JvAC.Mul(j.invMassC * impulse))
	bodyC.AngularVelocity -= j.invIC * impulse * j.JwC
	bodyD.Velocity = bodyD.Velocity.Sub(j.JvBD.Mul(j.invMassD * impulse))
	bodyD.AngularVelocity -= j.invID * impulse * j.JwD
}

func (j *GearJoint) InitVelocityConstraints(data *SolverData) {
	j.prepareAll(data)
	j.mass = invOrZero(j.jacobians(data))

	if data.Step.WarmStarting {
		j.impulse *= data.Step.DtRatio
		j.applyVelocity(data, j.impulse)
	} else {
		j.impulse = 0.0
	}
}

func (j *GearJoint) SolveVelocityConstraints(data *SolverData) {
	bodyA, bodyB := &data.Bodies[j.indexA], &data.Bodies[j.indexB]
	bodyC, bodyD := &data.Bodies[j.indexC], &data.Bodies[j.indexD]

	Cdot := j.JvAC.Dot(bodyA.Velocity.Sub(bodyC.Velocity)) + j.JvBD.Dot(bodyB.Velocity.Sub(bodyD.Velocity))
	Cdot += (j.JwA*bodyA.AngularVelocity - j.JwC*bodyC.AngularVelocity) +
		(j.JwB*bodyB.AngularVelocity - j.JwD*bodyD.AngularVelocity)

	impulse := -j.mass * Cdot
	j.impulse += impulse

	j.applyVelocity(data, impulse)
}

func (j *GearJoint) SolvePositionConstraints(data *SolverData) bool {
	bodyA, bodyB := &data.Bodies[j.indexA], &data.Bodies[j.indexB]
	bodyC, bodyD := &data.Bodies[j.indexC], &data.Bodies[j.indexD]

	// Keep the velocity Jacobians, the position pass works on its own copy
	JvAC, JvBD := j.JvAC, j.JvBD
	JwA, JwB, JwC, JwD := j.JwA, j.JwB, j.JwC, j.JwD
	defer func() {
		j.JvAC, j.JvBD = JvAC, JvBD
		j.JwA, j.JwB, j.JwC, j.JwD = JwA, JwB, JwC, JwD
	}()

	mass := j.jacobians(data)

	coordinateA := j.side1.coordinate(bodyA.Position, bodyA.Angle, bodyC.Position, bodyC.Angle)
	coordinateB := j.side2.coordinate(bodyB.Position, bodyB.Angle, bodyD.Position, bodyD.Angle)
	C := coordinateA + j.ratio*coordinateB - j.constant

	impulse := 0.0
	if mass > 0.0 {
		impulse = -C / mass
	}

	bodyA.Position = bodyA.Position.Add(j.JvAC.Mul(j.invMassA * impulse))
	bodyA.Angle += j.invIA * impulse * j.JwA
	bodyB.Position = bodyB.Position.Add(j.JvBD.Mul(j.invMassB * impulse))
	bodyB.Angle += j.invIB * impulse * j.JwB
	bodyC.Position = bodyC.Position.Sub(j.JvAC.Mul(j.invMassC * impulse))
	bodyC.Angle -= j.invIC * impulse * j.JwC
	bodyD.Position = bodyD.Position.Sub(j.JvBD.Mul(j.invMassD * impulse))
	bodyD.Angle -= j.invID * impulse * j.JwD

	return C*C < LinearSlop*LinearSlop
}
