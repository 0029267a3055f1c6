package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// MouseJointDef drags a point of Body towards a world target.
// Ground is only a frame for the joint, usually a static body.
type MouseJointDef struct {
	Ground, Body *actor.RigidBody
	Target       mgl64.Vec2 // world, the grabbed point of Body

	MaxForce     float64 // N, usually a multiple of the body weight
	FrequencyHz  float64 // response speed, defaults to 5
	DampingRatio float64 // 0 no damping, 1 critical damping, defaults to 0.7
}

// MouseJoint is a soft spring pulling a body point to a target.
// The position error is fed into the velocity bias, there is no position pass.
type MouseJoint struct {
	jointBase

	localAnchorB mgl64.Vec2
	target       mgl64.Vec2
	maxForce     float64
	frequencyHz  float64
	dampingRatio float64

	impulse mgl64.Vec2

	// Solver temp
	rB    mgl64.Vec2
	mass  mgl64.Mat2
	C     mgl64.Vec2
	beta  float64
	gamma float64
}

func NewMouseJoint(def MouseJointDef) (*MouseJoint, error) {
	base, err := newJointBase(JointMouse, def.Ground, def.Body, true)
	if err != nil {
		return nil, err
	}
	if def.Body.BodyType != actor.BodyTypeDynamic {
		return nil, fmt.Errorf("mouse joint: %s body cannot be dragged: %w", def.Body.BodyType, ErrDegenerateJoint)
	}
	if def.MaxForce < 0 || def.FrequencyHz < 0 || def.DampingRatio < 0 {
		return nil, fmt.Errorf("mouse joint: negative parameter: %w", ErrDegenerateJoint)
	}

	j := &MouseJoint{
		jointBase:    base,
		localAnchorB: localAnchor(def.Body, def.Target),
		target:       def.Target,
		maxForce:     def.MaxForce,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
	if j.frequencyHz == 0 {
		j.frequencyHz = 5.0
	}
	if j.dampingRatio == 0 {
		j.dampingRatio = 0.7
	}

	return j, nil
}

func (j *MouseJoint) Kind() JointKind { return JointMouse }

func (j *MouseJoint) Target() mgl64.Vec2 { return j.target }

// SetTarget moves the target and wakes the dragged body
func (j *MouseJoint) SetTarget(target mgl64.Vec2) {
	if target != j.target {
		j.bodyB.Awake()
		j.target = target
	}
}

func (j *MouseJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

// Impulse returns the accumulated impulse
func (j *MouseJoint) Impulse() mgl64.Vec2 { return j.impulse }

func (j *MouseJoint) InitVelocityConstraints(data *SolverData) {
	_, bodyB := j.prepare(data)

	mass := j.bodyB.Mass

	// Frequency
	omega := 2.0 * math.Pi * j.frequencyHz
	// Damping coefficient
	d := 2.0 * mass * j.dampingRatio * omega
	// Spring stiffness
	k := mass * omega * omega

	// magic formulas
	// gamma has units of inverse mass.
	// beta has units of inverse time.
	h := data.Step.Dt
	j.gamma = invOrZero(h * (d + h*k))
	j.beta = h * k * j.gamma

	j.rB = arm(bodyB.Angle, j.localAnchorB)

	// K = [(1/m1 + 1/m2) * eye(2) - skew(r1) * invI1 * skew(r1) - skew(r2) * invI2 * skew(r2)]
	K := pointMass(0, j.invMassB, 0, j.invIB, mgl64.Vec2{}, j.rB)
	K[0] += j.gamma
	K[3] += j.gamma
	j.mass = K.Inv()

	j.C = bodyB.Position.Add(j.rB).Sub(j.target).Mul(j.beta)

	// Cheat with some damping
	bodyB.AngularVelocity *= 0.98

	if data.Step.WarmStarting {
		j.impulse = j.impulse.Mul(data.Step.DtRatio)
		bodyB.Velocity = bodyB.Velocity.Add(j.impulse.Mul(j.invMassB))
		bodyB.AngularVelocity += j.invIB * actor.Cross(j.rB, j.impulse)
	} else {
		j.impulse = mgl64.Vec2{}
	}
}

func (j *MouseJoint) SolveVelocityConstraints(data *SolverData) {
	_, bodyB := j.solverBodies(data)

	// Cdot = v + cross(w, r)
	Cdot := bodyB.Velocity.Add(actor.CrossSV(bodyB.AngularVelocity, j.rB))
	impulse := j.mass.Mul2x1(Cdot.Add(j.C).Add(j.impulse.Mul(j.gamma)).Mul(-1))

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse)
	maxImpulse := data.Step.Dt * j.maxForce
	if j.impulse.LenSqr() > maxImpulse*maxImpulse {
		j.impulse = j.impulse.Mul(maxImpulse / j.impulse.Len())
	}
	impulse = j.impulse.Sub(oldImpulse)

	bodyB.Velocity = bodyB.Velocity.Add(impulse.Mul(j.invMassB))
	bodyB.AngularVelocity += j.invIB * actor.Cross(j.rB, impulse)
}

func (j *MouseJoint) SolvePositionConstraints(data *SolverData) bool {
	return true
}
