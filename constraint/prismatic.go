package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PrismaticJointDef slides body B along an axis fixed in body A
type PrismaticJointDef struct {
	BodyA, BodyB     *actor.RigidBody
	Anchor           mgl64.Vec2 // world anchor
	Axis             mgl64.Vec2 // world axis, normalized on construction
	CollideConnected bool

	EnableLimit      bool
	LowerTranslation float64 // meters along the axis
	UpperTranslation float64

	EnableMotor   bool
	MotorSpeed    float64 // m/s
	MaxMotorForce float64 // N
}

// PrismaticJoint keeps the anchor of B on a line through the anchor of A and
// locks the relative rotation. The motor and the limit share the line axis.
type PrismaticJoint struct {
	jointBase

	localAnchorA   mgl64.Vec2
	localAnchorB   mgl64.Vec2
	localXAxisA    mgl64.Vec2
	localYAxisA    mgl64.Vec2
	referenceAngle float64

	enableLimit      bool
	lowerTranslation float64
	upperTranslation float64

	enableMotor   bool
	motorSpeed    float64
	maxMotorForce float64

	impulse      mgl64.Vec3 // perpendicular, angular, limit
	motorImpulse float64
	limitState   LimitState

	// Solver temp
	axis, perp mgl64.Vec2
	s1, s2     float64
	a1, a2     float64
	K          mgl64.Mat3
	motorMass  float64
}

func NewPrismaticJoint(def PrismaticJointDef) (*PrismaticJoint, error) {
	base, err := newJointBase(JointPrismatic, def.BodyA, def.BodyB, def.CollideConnected)
	if err != nil {
		return nil, err
	}
	if def.Axis.Len() < mgl64.Epsilon {
		return nil, fmt.Errorf("prismatic joint: zero axis: %w", ErrDegenerateJoint)
	}
	if def.BodyA.InverseMass+def.BodyB.InverseMass == 0 {
		return nil, fmt.Errorf("prismatic joint: both bodies are immovable: %w", ErrDegenerateJoint)
	}
	if def.EnableLimit && def.LowerTranslation > def.UpperTranslation {
		return nil, fmt.Errorf("prismatic joint: lower translation %v above upper translation %v: %w", def.LowerTranslation, def.UpperTranslation, ErrDegenerateJoint)
	}

	localXAxis := def.BodyA.Transform.InverseRotate(def.Axis.Normalize())

	return &PrismaticJoint{
		jointBase:        base,
		localAnchorA:     localAnchor(def.BodyA, def.Anchor),
		localAnchorB:     localAnchor(def.BodyB, def.Anchor),
		localXAxisA:      localXAxis,
		localYAxisA:      actor.CrossSV(1.0, localXAxis),
		referenceAngle:   def.BodyB.Transform.Angle - def.BodyA.Transform.Angle,
		enableLimit:      def.EnableLimit,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		enableMotor:      def.EnableMotor,
		motorSpeed:       def.MotorSpeed,
		maxMotorForce:    def.MaxMotorForce,
	}, nil
}

func (j *PrismaticJoint) Kind() JointKind { return JointPrismatic }

// LimitState returns the limit state computed at the last step
func (j *PrismaticJoint) LimitState() LimitState { return j.limitState }

// MotorImpulse returns the accumulated motor impulse
func (j *PrismaticJoint) MotorImpulse() float64 { return j.motorImpulse }

// JointTranslation returns the current translation of B along the axis
func (j *PrismaticJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.Transform.Rotate(j.localXAxisA)

	return pB.Sub(pA).Dot(axis)
}

// JointSpeed returns the current translation speed along the axis
func (j *PrismaticJoint) JointSpeed() float64 {
	rA := j.bodyA.Transform.Rotate(j.localAnchorA)
	rB := j.bodyB.Transform.Rotate(j.localAnchorB)
	pA := j.bodyA.Transform.Position.Add(rA)
	pB := j.bodyB.Transform.Position.Add(rB)
	d := pB.Sub(pA)
	axis := j.bodyA.Transform.Rotate(j.localXAxisA)

	vA, vB := j.bodyA.Velocity, j.bodyB.Velocity
	wA, wB := j.bodyA.AngularVelocity, j.bodyB.AngularVelocity

	return d.Dot(actor.CrossSV(wA, axis)) +
		axis.Dot(vB.Add(actor.CrossSV(wB, rB)).Sub(vA).Sub(actor.CrossSV(wA, rA)))
}

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.enableLimit = flag
		j.impulse[2] = 0.0
	}
}

func (j *PrismaticJoint) SetLimits(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("prismatic joint: lower translation %v above upper translation %v: %w", lower, upper, ErrDegenerateJoint)
	}
	if lower != j.lowerTranslation || upper != j.upperTranslation {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.lowerTranslation = lower
		j.upperTranslation = upper
		j.impulse[2] = 0.0
	}
	return nil
}

func (j *PrismaticJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.enableMotor = flag
	}
}

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.motorSpeed = speed
	}
}

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	if force != j.maxMotorForce {
		j.bodyA.Awake()
		j.bodyB.Awake()
		j.maxMotorForce = force
	}
}

// prismaticMass returns the 3x3 effective mass of the perpendicular, angular and axial rows
func prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2 float64) mgl64.Mat3 {
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k13 := iA*s1*a1 + iB*s2*a2
	k22 := iA + iB
	if k22 == 0.0 {
		// For bodies with fixed rotation.
		k22 = 1.0
	}
	k23 := iA*a1 + iB*a2
	k33 := mA + mB + iA*a1*a1 + iB*a2*a2

	return mgl64.Mat3FromCols(
		mgl64.Vec3{k11, k12, k13},
		mgl64.Vec3{k12, k22, k23},
		mgl64.Vec3{k13, k23, k33},
	)
}

func (j *PrismaticJoint) InitVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.prepare(data)

	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)
	d := bodyB.Position.Sub(bodyA.Position).Add(rB).Sub(rA)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Motor Jacobian and effective mass.
	j.axis = arm(bodyA.Angle, j.localXAxisA)
	j.a1 = actor.Cross(d.Add(rA), j.axis)
	j.a2 = actor.Cross(rB, j.axis)
	j.motorMass = invOrZero(mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2)

	// Prismatic constraint.
	j.perp = arm(bodyA.Angle, j.localYAxisA)
	j.s1 = actor.Cross(d.Add(rA), j.perp)
	j.s2 = actor.Cross(rB, j.perp)
	j.K = prismaticMass(mA, mB, iA, iB, j.s1, j.s2, j.a1, j.a2)

	j.updateLimitState(j.axis.Dot(d))

	if !j.enableMotor {
		j.motorImpulse = 0.0
	}

	if data.Step.WarmStarting {
		// Account for variable time step.
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		j.motorImpulse *= data.Step.DtRatio

		axial := j.motorImpulse + j.impulse[2]
		P := j.perp.Mul(j.impulse[0]).Add(j.axis.Mul(axial))
		LA := j.impulse[0]*j.s1 + j.impulse[1] + axial*j.a1
		LB := j.impulse[0]*j.s2 + j.impulse[1] + axial*j.a2

		j.apply(bodyA, bodyB, P, LA, LB)
	} else {
		j.impulse = mgl64.Vec3{}
		j.motorImpulse = 0.0
	}
}

func (j *PrismaticJoint) updateLimitState(translation float64) {
	if !j.enableLimit {
		j.limitState = LimitInactive
		j.impulse[2] = 0.0
		return
	}

	switch {
	case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
		j.limitState = LimitEqual
	case translation <= j.lowerTranslation:
		if j.limitState != LimitAtLower {
			j.limitState = LimitAtLower
			j.impulse[2] = 0.0
		}
	case translation >= j.upperTranslation:
		if j.limitState != LimitAtUpper {
			j.limitState = LimitAtUpper
			j.impulse[2] = 0.0
		}
	default:
		j.limitState = LimitInactive
		j.impulse[2] = 0.0
	}
}

func (j *PrismaticJoint) apply(bodyA, bodyB *SolverBody, P mgl64.Vec2, LA, LB float64) {
	bodyA.Velocity = bodyA.Velocity.Sub(P.Mul(j.invMassA))
	bodyA.AngularVelocity -= j.invIA * LA

	bodyB.Velocity = bodyB.Velocity.Add(P.Mul(j.invMassB))
	bodyB.AngularVelocity += j.invIB * LB
}

func (j *PrismaticJoint) axialVelocity(bodyA, bodyB *SolverBody) float64 {
	return j.axis.Dot(bodyB.Velocity.Sub(bodyA.Velocity)) + j.a2*bodyB.AngularVelocity - j.a1*bodyA.AngularVelocity
}

func (j *PrismaticJoint) SolveVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.solverBodies(data)

	// Solve linear motor constraint.
	if j.enableMotor && j.limitState != LimitEqual {
		Cdot := j.axialVelocity(bodyA, bodyB)
		impulse := j.motorMass * (j.motorSpeed - Cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.Step.Dt * j.maxMotorForce
		j.motorImpulse = clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		j.apply(bodyA, bodyB, j.axis.Mul(impulse), impulse*j.a1, impulse*j.a2)
	}

	Cdot1 := mgl64.Vec2{
		j.perp.Dot(bodyB.Velocity.Sub(bodyA.Velocity)) + j.s2*bodyB.AngularVelocity - j.s1*bodyA.AngularVelocity,
		bodyB.AngularVelocity - bodyA.AngularVelocity,
	}

	if j.enableLimit && j.limitState != LimitInactive {
		// Solve prismatic and limit constraint in block form.
		Cdot2 := j.axialVelocity(bodyA, bodyB)

		f1 := j.impulse
		df := solve33(j.K, mgl64.Vec3{-Cdot1[0], -Cdot1[1], -Cdot2})
		j.impulse = j.impulse.Add(df)

		switch j.limitState {
		case LimitAtLower:
			j.impulse[2] = math.Max(j.impulse[2], 0.0)
		case LimitAtUpper:
			j.impulse[2] = math.Min(j.impulse[2], 0.0)
		}

		// f2(1:2) = invK(1:2,1:2) * (-Cdot(1:2) - K(1:2,3) * (f2(3) - f1(3))) + f1(1:2)
		b := Cdot1.Mul(-1).Sub(mgl64.Vec2{j.K[6], j.K[7]}.Mul(j.impulse[2] - f1[2]))
		f2r := solve22(j.K, b).Add(mgl64.Vec2{f1[0], f1[1]})
		j.impulse[0] = f2r[0]
		j.impulse[1] = f2r[1]

		df = j.impulse.Sub(f1)

		P := j.perp.Mul(df[0]).Add(j.axis.Mul(df[2]))
		LA := df[0]*j.s1 + df[1] + df[2]*j.a1
		LB := df[0]*j.s2 + df[1] + df[2]*j.a2
		j.apply(bodyA, bodyB, P, LA, LB)
		return
	}

	// Limit is inactive, just solve the prismatic constraint in block form.
	df := solve22(j.K, Cdot1.Mul(-1))
	j.impulse[0] += df[0]
	j.impulse[1] += df[1]

	P := j.perp.Mul(df[0])
	LA := df[0]*j.s1 + df[1]
	LB := df[0]*j.s2 + df[1]
	j.apply(bodyA, bodyB, P, LA, LB)
}

// SolvePositionConstraints recomputes the Jacobians from the current positions.
// The limit activity is re-evaluated here since the body may have pushed past it.
func (j *PrismaticJoint) SolvePositionConstraints(data *SolverData) bool {
	bodyA, bodyB := j.solverBodies(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)
	d := bodyB.Position.Add(rB).Sub(bodyA.Position).Sub(rA)

	axis := arm(bodyA.Angle, j.localXAxisA)
	a1 := actor.Cross(d.Add(rA), axis)
	a2 := actor.Cross(rB, axis)
	perp := arm(bodyA.Angle, j.localYAxisA)

	s1 := actor.Cross(d.Add(rA), perp)
	s2 := actor.Cross(rB, perp)

	C1 := mgl64.Vec2{perp.Dot(d), bodyB.Angle - bodyA.Angle - j.referenceAngle}

	linearError := math.Abs(C1[0])
	angularError := math.Abs(C1[1])

	active := false
	C2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
			C2 = clamp(translation-j.lowerTranslation, -MaxLinearCorrection, MaxLinearCorrection)
			linearError = math.Max(linearError, math.Abs(translation-j.lowerTranslation))
			active = true
		case translation <= j.lowerTranslation:
			// Prevent large linear corrections and allow some slop.
			C2 = clamp(translation-j.lowerTranslation+LinearSlop, -MaxLinearCorrection, 0.0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			C2 = clamp(translation-j.upperTranslation-LinearSlop, 0.0, MaxLinearCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	K := prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2)

	var impulse mgl64.Vec3
	if active {
		impulse = solve33(K, mgl64.Vec3{-C1[0], -C1[1], -C2})
	} else {
		impulse1 := solve22(K, C1.Mul(-1))
		impulse = mgl64.Vec3{impulse1[0], impulse1[1], 0.0}
	}

	P := perp.Mul(impulse[0]).Add(axis.Mul(impulse[2]))
	LA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	LB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	bodyA.Position = bodyA.Position.Sub(P.Mul(mA))
	bodyA.Angle -= iA * LA
	bodyB.Position = bodyB.Position.Add(P.Mul(mB))
	bodyB.Angle += iB * LB

	return linearError <= LinearSlop && angularError <= AngularSlop
}
