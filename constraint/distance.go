package constraint

import (
	"fmt"
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJointDef keeps two world anchors at their initial distance
type DistanceJointDef struct {
	BodyA, BodyB     *actor.RigidBody
	AnchorA, AnchorB mgl64.Vec2 // world anchors
	CollideConnected bool

	// FrequencyHz makes the joint a spring when positive, DampingRatio in [0, 1]
	FrequencyHz  float64
	DampingRatio float64
}

// DistanceJoint is a massless rod between two anchors
type DistanceJoint struct {
	jointBase

	localAnchorA mgl64.Vec2
	localAnchorB mgl64.Vec2
	length       float64

	frequencyHz  float64
	dampingRatio float64

	impulse float64

	// Solver temp
	u      mgl64.Vec2
	rA, rB mgl64.Vec2
	mass   float64
	gamma  float64
	bias   float64
	active bool
}

func NewDistanceJoint(def DistanceJointDef) (*DistanceJoint, error) {
	base, err := newJointBase(JointDistance, def.BodyA, def.BodyB, def.CollideConnected)
	if err != nil {
		return nil, err
	}

	length := def.AnchorB.Sub(def.AnchorA).Len()
	if length <= LinearSlop {
		return nil, fmt.Errorf("distance joint: coincident anchors: %w", ErrDegenerateJoint)
	}
	if def.BodyA.InverseMass+def.BodyB.InverseMass == 0 {
		return nil, fmt.Errorf("distance joint: both bodies are immovable: %w", ErrDegenerateJoint)
	}

	return &DistanceJoint{
		jointBase:    base,
		localAnchorA: localAnchor(def.BodyA, def.AnchorA),
		localAnchorB: localAnchor(def.BodyB, def.AnchorB),
		length:       length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}, nil
}

func (j *DistanceJoint) Kind() JointKind { return JointDistance }

func (j *DistanceJoint) Length() float64 { return j.length }

func (j *DistanceJoint) SetLength(length float64) {
	j.bodyA.Awake()
	j.bodyB.Awake()
	j.length = math.Max(length, LinearSlop)
}

// Impulse returns the accumulated impulse along the rod
func (j *DistanceJoint) Impulse() float64 { return j.impulse }

func (j *DistanceJoint) InitVelocityConstraints(data *SolverData) {
	bodyA, bodyB := j.prepare(data)

	j.rA = arm(bodyA.Angle, j.localAnchorA)
	j.rB = arm(bodyB.Angle, j.localAnchorB)
	j.u = bodyB.Position.Add(j.rB).Sub(bodyA.Position).Sub(j.rA)

	// Handle singularity.
	length := j.u.Len()
	j.active = length > LinearSlop
	if !j.active {
		j.u = mgl64.Vec2{}
		j.impulse = 0.0
		return
	}
	j.u = j.u.Mul(1.0 / length)

	crAu := actor.Cross(j.rA, j.u)
	crBu := actor.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu
	j.mass = invOrZero(invMass)

	j.gamma, j.bias = 0.0, 0.0
	if j.frequencyHz > 0.0 {
		C := length - j.length

		omega := 2.0 * math.Pi * j.frequencyHz
		d := 2.0 * j.mass * j.dampingRatio * omega
		k := j.mass * omega * omega

		// magic formulas
		h := data.Step.Dt
		j.gamma = invOrZero(h * (d + h*k))
		j.bias = C * h * k * j.gamma

		j.mass = invOrZero(invMass + j.gamma)
	}

	if data.Step.WarmStarting {
		// Scale the impulse to support a variable time step.
		j.impulse *= data.Step.DtRatio
		j.applyLinear(bodyA, bodyB, j.rA, j.rB, j.u.Mul(j.impulse), 0)
	} else {
		j.impulse = 0.0
	}
}

func (j *DistanceJoint) SolveVelocityConstraints(data *SolverData) {
	if !j.active {
		return
	}
	bodyA, bodyB := j.solverBodies(data)

	Cdot := j.u.Dot(relativeVelocity(bodyA, bodyB, j.rA, j.rB))
	impulse := -j.mass * (Cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	j.applyLinear(bodyA, bodyB, j.rA, j.rB, j.u.Mul(impulse), 0)
}

func (j *DistanceJoint) SolvePositionConstraints(data *SolverData) bool {
	if j.frequencyHz > 0.0 {
		// There is no position correction for soft distance constraints.
		return true
	}
	bodyA, bodyB := j.solverBodies(data)

	rA := arm(bodyA.Angle, j.localAnchorA)
	rB := arm(bodyB.Angle, j.localAnchorB)
	u := bodyB.Position.Add(rB).Sub(bodyA.Position).Sub(rA)

	length := u.Len()
	if length <= LinearSlop {
		return true
	}
	u = u.Mul(1.0 / length)

	crAu := actor.Cross(rA, u)
	crBu := actor.Cross(rB, u)
	mass := invOrZero(j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu)

	C := clamp(length-j.length, -MaxLinearCorrection, MaxLinearCorrection)
	impulse := -mass * C

	j.moveLinear(bodyA, bodyB, rA, rB, u.Mul(impulse), 0)

	return math.Abs(C) < LinearSlop
}
