package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJointDef pins two bodies at a shared world anchor
type RevoluteJointDef struct {
	BodyA, BodyB     *actor.RigidBody
	Anchor           mgl64.Vec2 // world anchor
	CollideConnected bool

	EnableLimit bool
	LowerAngle  float64 // radians, relative to the initial angle of B minus A
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64 // rad/s
	MaxMotorTorque float64 // N⋅m
}

// RevoluteJoint constrains two bodies to share a point, leaving the relative
// rotation free. An optional motor drives the relative angular velocity and an
// optional limit bounds the relative angle.
type RevoluteJoint struct {
	jointBase

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	referenceAngle float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	enableMotor    bool
	motorSpeed     float64
	maxMotorTorque float64

	impulse      mgl64.Vec3 // point x, point y, limit
	motorImpulse float64
	limitState   LimitState

	// Solver temp
	rA, rB    mgl64.Vec2
	mass      mgl64.Mat3
	motorMass float64
}

func NewRevoluteJoint(def RevoluteJointDef) (*RevoluteJoint, error) {
	base, err := newJointBase(JointRevolute, def.BodyA, def.BodyB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.BodyA.InverseMass+def.BodyB.InverseMass == 0 {
		return nil, fmt.Errorf("revolute joint: both bodies are immovable: %w", ErrDegenerateJoint)
	}
	if def.EnableLimit && def.LowerAngle > def.UpperAngle {
		return nil, fmt.Errorf("revolute joint: lower angle %v above upper angle %v: %w", def.LowerAngle, def.UpperAngle, ErrDegenerateJoint)
	}

	return &RevoluteJoint{
		jointBase:      base,
		localAnchorA:   localAnchor(def.BodyA, def.Anchor),
		localAnchorB:   localAnchor(def.BodyB, def.Anchor),
		referenceAngle: def.BodyB.Transform.Angle - def.BodyA.Transform.Angle,
		enableLimit:    def.EnableLimit,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		enableMotor:    def.EnableMotor,
		motorSpeed:     def.MotorSpeed,
		maxMotorTorque: def.MaxMotorTorque,
	}, nil
}

func (j *RevoluteJoint) Kind() JointKind { return JointRevolute }

// LimitState returns the limit state computed at the last step
func (j *RevoluteJoint) LimitState() LimitState { return j.limitState }

// LimitImpulse returns the accumulated limit impulse
func (j *RevoluteJoint) LimitImpulse() float64 { return j.impulse[2] }

// MotorImpulse returns the accumulated motor impulse
func (j *RevoluteJoint) MotorImpulse() float64 { return j.motorImpulse }

// JointAngle returns the current relative angle
func (j *RevoluteJoint) JointAngle() float64 {
	return j.bodyB.Transform.Angle - j.bodyA.Transform.Angle - j.referenceAngle
}

// JointSpeed returns the current relative angular velocity
func (j *RevoluteJoint) JointSpeed() float64 {
	return j.bodyB.AngularVelocity - j.bodyA.AngularVelocity
}

// EnableLimit toggles the angular limit, the limit impulse is dropped
func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.enableLimit = flag
		j.impulse[2] = 0.0
	}
}

func (j *RevoluteJoint) SetLimits(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("revolute joint: lower angle %v above upper angle %v: %w", lower, upper, ErrDegenerateJoint)
	}
	if lower != j.lowerAngle || upper != j.upperAngle {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.impulse[2] = 0.0
		j.lowerAngle = lower
		j.upperAngle = upper
	}
	return nil
}

func (j *RevoluteJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.enableMotor = flag
	}
}

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.motorSpeed = speed
	}
}

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.maxMotorTorque = torque
	}
}

func (j *RevoluteJoint) InitVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.prepare(data)

	j.rA = arm(bodyA.Angle, j.localAnchorA)
	j.rB = arm(bodyB.Angle, j.localAnchorB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB
	fixedRotation := iA+iB == 0.0

	j.mass = pointAngleMass(mA, mB, iA, iB, j.rA, j.rB)
	j.motorMass = invOrZero(iA + iB)

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0.0
	}

	j.updateLimitState(bodyB.Angle-bodyA.Angle-j.referenceAngle, fixedRotation)

	if data.Step.WarmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		j.motorImpulse *= data.Step.DtRatio

		P := mgl64.Vec2{j.impulse[0], j.impulse[1]}
		j.applyLinear(bodyA, bodyB, j.rA, j.rB, P, j.motorImpulse+j.impulse[2])
	} else {
		j.impulse = mgl64.Vec3{}
		j.motorImpulse = 0.0
	}
}

// updateLimitState moves the limit state machine, a change of side drops the limit impulse
func (j *RevoluteJoint) updateLimitState(angle float64, fixedRotation bool) {
	if !j.enableLimit || fixedRotation {
		j.limitState = LimitInactive
		return
	}

	switch {
	case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*AngularSlop:
		j.limitState = LimitEqual
	case angle <= j.lowerAngle:
		if j.limitState != LimitAtLower {
			j.impulse[2] = 0.0
		}
		j.limitState = LimitAtLower
	case angle >= j.upperAngle:
		if j.limitState != LimitAtUpper {
			j.impulse[2] = 0.0
		}
		j.limitState = LimitAtUpper
	default:
		j.limitState = LimitInactive
		j.impulse[2] = 0.0
	}
}

func (j *RevoluteJoint) SolveVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.solverBodies(data)
	iA, iB := j.invIA, j.invIB
	fixedRotation := iA+iB == 0.0

	// Solve motor constraint.
	if j.enableMotor && j.limitState != LimitEqual && !fixedRotation {
		Cdot := bodyB.AngularVelocity - bodyA.AngularVelocity - j.motorSpeed
		impulse := -j.motorMass * Cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.Step.Dt * j.maxMotorTorque
		j.motorImpulse = clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		bodyA.AngularVelocity -= iA * impulse
		bodyB.AngularVelocity += iB * impulse
	}

	Cdot1 := relativeVelocity(bodyA, bodyB, j.rA, j.rB)

	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		Cdot2 := bodyB.AngularVelocity - bodyA.AngularVelocity
		impulse := solve33(j.mass, mgl64.Vec3{Cdot1[0], Cdot1[1], Cdot2}).Mul(-1)

		switch j.limitState {
		case LimitEqual:
			j.impulse = j.impulse.Add(impulse)
		case LimitAtLower:
			if j.impulse[2]+impulse[2] < 0.0 {
				impulse = j.releaseLimit(Cdot1)
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		case LimitAtUpper:
			if j.impulse[2]+impulse[2] > 0.0 {
				impulse = j.releaseLimit(Cdot1)
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		}

		P := mgl64.Vec2{impulse[0], impulse[1]}
		j.applyLinear(bodyA, bodyB, j.rA, j.rB, P, impulse[2])
		return
	}

	// Solve point to point constraint
	impulse := solve22(j.mass, Cdot1.Mul(-1))
	j.impulse[0] += impulse[0]
	j.impulse[1] += impulse[1]

	j.applyLinear(bodyA, bodyB, j.rA, j.rB, impulse, 0)
}

// releaseLimit solves the point constraint alone while the limit impulse is pulled back to zero
func (j *RevoluteJoint) releaseLimit(Cdot1 mgl64.Vec2) mgl64.Vec3 {
	rhs := Cdot1.Mul(-1).Add(mgl64.Vec2{j.mass[6], j.mass[7]}.Mul(j.impulse[2]))
	reduced := solve22(j.mass, rhs)

	impulse := mgl64.Vec3{reduced[0], reduced[1], -j.impulse[2]}
	j.impulse[0] += reduced[0]
	j.impulse[1] += reduced[1]
	j.impulse[2] = 0.0

	return impulse
}

func (j *RevoluteJoint) SolvePositionConstraints(data *SolverData) bool {
	bodyA, bodyB := j.solverBodies(data)

	angularError := 0.0
	fixedRotation := j.invIA+j.invIB == 0.0

	// Solve angular limit constraint.
	if j.enableLimit && j.limitState != LimitInactive && !fixedRotation {
		angle := bodyB.Angle - bodyA.Angle - j.referenceAngle
		limitImpulse := 0.0

		switch j.limitState {
		case LimitEqual:
			// Prevent large angular corrections
			C := clamp(angle-j.lowerAngle, -MaxAngularCorrection, MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
			angularError = math.Abs(C)
		case LimitAtLower:
			C := angle - j.lowerAngle
			angularError = -C

			// Prevent large angular corrections and allow some slop.
			C = clamp(C+AngularSlop, -MaxAngularCorrection, 0.0)
			limitImpulse = -j.motorMass * C
		case LimitAtUpper:
			C := angle - j.upperAngle
			angularError = C

			C = clamp(C-AngularSlop, 0.0, MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
		}

		bodyA.Angle -= j.invIA * limitImpulse
		bodyB.Angle += j.invIB * limitImpulse
	}

	// Solve point to point constraint.
	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)

	C := bodyB.Position.Add(rB).Sub(bodyA.Position).Sub(rA)
	positionError := C.Len()

	K := pointMass(j.invMassA, j.invMassB, j.invIA, j.invIB, rA, rB)
	impulse := K.Inv().Mul2x1(C).Mul(-1)

	j.moveLinear(bodyA, bodyB, rA, rB, impulse, 0)

	return positionError <= LinearSlop && angularError <= AngularSlop
}
