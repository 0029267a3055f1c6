package actor

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic

	// BodyTypeKinematic bodies move with their velocity only
	// They push dynamic bodies but are never pushed back
	BodyTypeKinematic
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeStatic:
		return "static"
	case BodyTypeKinematic:
		return "kinematic"
	}
	return "unknown"
}

type Material struct {
	Density     float64
	Friction    float64 // Coulomb coefficient, mixed with the geometric mean
	Restitution float64 // 0= no rebound, 1= perfect restitution

	LinearDamping  float64 // 1/s, typical: 0.0 - 0.1
	AngularDamping float64 // 1/s, typical: 0.01 - 0.1
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties, Position is the center of mass
	Transform Transform

	// Linear motion
	Velocity mgl64.Vec2 // m/s

	// Angular motion
	AngularVelocity float64 // rad/s

	Mass           float64
	InverseMass    float64
	Inertia        float64
	InverseInertia float64

	accumulatedForce  mgl64.Vec2
	accumulatedTorque float64

	IsSleeping bool
	SleepTimer float64
	// AllowSleep lets the body fall asleep with its island
	AllowSleep bool

	GravityScale float64

	// Physical properties
	Material Material
	BodyType BodyType

	// Collision shape
	Shape Shape

	UserData any
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored otherwise)
func NewRigidBody(transform Transform, shape Shape, bodyType BodyType, density float64) *RigidBody {
	transform.SetAngle(transform.Angle)

	rb := &RigidBody{
		Transform:    transform,
		Shape:        shape,
		BodyType:     bodyType,
		AllowSleep:   true,
		GravityScale: 1.0,
		Material: Material{
			Density:  density,
			Friction: 0.2,
		},
	}

	rb.ResetMassData()
	rb.SynchronizeShape()

	return rb
}

// ResetMassData recomputes mass and inertia from the shape and the material density.
// Static and kinematic bodies end with zero inverse mass and inverse inertia.
func (rb *RigidBody) ResetMassData() {
	rb.Mass, rb.InverseMass = 0, 0
	rb.Inertia, rb.InverseInertia = 0, 0

	if rb.BodyType != BodyTypeDynamic {
		return
	}

	massData := MassData{Mass: 1.0}
	if rb.Shape != nil {
		massData = rb.Shape.ComputeMass(rb.Material.Density)
	}

	// Force all dynamic bodies to have positive mass
	if massData.Mass <= 0 {
		massData.Mass = 1.0
	}
	rb.Mass = massData.Mass
	rb.InverseMass = 1.0 / massData.Mass

	if massData.Inertia > 0 {
		rb.Inertia = massData.Inertia
		rb.InverseInertia = 1.0 / massData.Inertia
	}
}

// SetMassData overrides the computed mass properties of a dynamic body
func (rb *RigidBody) SetMassData(massData MassData) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}

	if massData.Mass <= 0 {
		massData.Mass = 1.0
	}
	rb.Mass = massData.Mass
	rb.InverseMass = 1.0 / massData.Mass

	rb.Inertia, rb.InverseInertia = 0, 0
	if massData.Inertia > 0 {
		rb.Inertia = massData.Inertia
		rb.InverseInertia = 1.0 / massData.Inertia
	}
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

// UpdateSleepTimer advances the quiescence timer of the body and returns it.
// The timer resets to zero as soon as the body moves faster than one of the tolerances
// or is not allowed to sleep.
func (rb *RigidBody) UpdateSleepTimer(dt, linearTolerance, angularTolerance float64) float64 {
	if !rb.AllowSleep ||
		rb.AngularVelocity*rb.AngularVelocity > angularTolerance*angularTolerance ||
		rb.Velocity.LenSqr() > linearTolerance*linearTolerance {
		rb.SleepTimer = 0.0
		return 0.0
	}

	rb.SleepTimer += dt
	return rb.SleepTimer
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.ClearForces()
	rb.Velocity = mgl64.Vec2{}
	rb.AngularVelocity = 0
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// IntegrateVelocity applies gravity, accumulated forces and damping to the velocity.
// Accumulators are cleared after use.
func (rb *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec2) {
	if rb.BodyType != BodyTypeDynamic {
		rb.ClearForces()
		return
	}

	// v += dt * (invMass * force + gravity)
	acceleration := rb.accumulatedForce.Mul(rb.InverseMass).Add(gravity.Mul(rb.GravityScale))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
	rb.AngularVelocity += dt * rb.InverseInertia * rb.accumulatedTorque

	rb.Velocity = rb.Velocity.Mul(clamp(1.0-dt*rb.Material.LinearDamping, 0.0, 1.0))
	rb.AngularVelocity *= clamp(1.0-dt*rb.Material.AngularDamping, 0.0, 1.0)

	rb.ClearForces()
}

// SetTransform teleports the body, the velocity is left unchanged
func (rb *RigidBody) SetTransform(position mgl64.Vec2, angle float64) {
	rb.Transform.Position = position
	rb.Transform.SetAngle(angle)
	rb.SynchronizeShape()
}

// SynchronizeShape refreshes the shape bounding box after a move
func (rb *RigidBody) SynchronizeShape() {
	if rb.Shape != nil {
		rb.Shape.ComputeAABB(rb.Transform)
	}
}

// ApplyForce adds a force at the center of mass, in N
func (rb *RigidBody) ApplyForce(force mgl64.Vec2) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()

	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// ApplyForceAt adds a force at a world point, producing a torque about the center of mass
func (rb *RigidBody) ApplyForceAt(force, point mgl64.Vec2) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()

	rb.accumulatedForce = rb.accumulatedForce.Add(force)
	rb.accumulatedTorque += Cross(point.Sub(rb.Transform.Position), force)
}

// ApplyTorque adds a torque, in N⋅m
func (rb *RigidBody) ApplyTorque(torque float64) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()

	rb.accumulatedTorque += torque
}

// ApplyLinearImpulse changes the velocity immediately, in N⋅s
func (rb *RigidBody) ApplyLinearImpulse(impulse, point mgl64.Vec2) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass))
	rb.AngularVelocity += rb.InverseInertia * Cross(point.Sub(rb.Transform.Position), impulse)
}

// ApplyAngularImpulse changes the angular velocity immediately, in N⋅m⋅s
func (rb *RigidBody) ApplyAngularImpulse(impulse float64) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()

	rb.AngularVelocity += rb.InverseInertia * impulse
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec2{}
	rb.accumulatedTorque = 0
}

// Force returns the force accumulated since the last step
func (rb *RigidBody) Force() mgl64.Vec2 {
	return rb.accumulatedForce
}

// Torque returns the torque accumulated since the last step
func (rb *RigidBody) Torque() float64 {
	return rb.accumulatedTorque
}

// WorldPoint maps a point from body space to world space
func (rb *RigidBody) WorldPoint(local mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.Apply(local)
}

// LocalPoint maps a point from world space to body space
func (rb *RigidBody) LocalPoint(world mgl64.Vec2) mgl64.Vec2 {
	return rb.Transform.ApplyInverse(world)
}

// VelocityAt returns the velocity of a world point attached to the body
func (rb *RigidBody) VelocityAt(point mgl64.Vec2) mgl64.Vec2 {
	return rb.Velocity.Add(CrossSV(rb.AngularVelocity, point.Sub(rb.Transform.Position)))
}
