package feather2d

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// Island is a connected group of awake bodies, solved on its own.
// Bodies starts with the bodies the island owns, followed by the static bodies its
// contacts and joints touch; static bodies are shared between islands and are only read.
type Island struct {
	Bodies   []*actor.RigidBody
	Contacts []*constraint.Contact
	Joints   []constraint.Joint

	// Asleep is set when the whole island fell asleep at the end of the step
	Asleep bool

	owned          int
	positionSolved bool

	states        []constraint.SolverBody
	index         map[*actor.RigidBody]int
	contactSolver constraint.ContactSolver
}

func newIsland() *Island {
	return &Island{index: make(map[*actor.RigidBody]int)}
}

func (is *Island) reset() {
	clear(is.Bodies)
	clear(is.Contacts)
	clear(is.Joints)
	is.Bodies = is.Bodies[:0]
	is.Contacts = is.Contacts[:0]
	is.Joints = is.Joints[:0]
	is.owned = 0
	is.Asleep = false
	is.positionSolved = false
	clear(is.index)
}

// Owned returns the bodies moved by this island
func (is *Island) Owned() []*actor.RigidBody {
	return is.Bodies[:is.owned]
}

func (is *Island) addBody(body *actor.RigidBody) {
	is.index[body] = len(is.Bodies)
	is.Bodies = append(is.Bodies, body)
	is.owned++
}

// attachStatic appends the static bodies referenced by the constraints of the island
func (is *Island) attachStatic() {
	attach := func(body *actor.RigidBody) {
		if _, ok := is.index[body]; ok {
			return
		}
		is.index[body] = len(is.Bodies)
		is.Bodies = append(is.Bodies, body)
	}

	for _, contact := range is.Contacts {
		attach(contact.BodyA)
		attach(contact.BodyB)
	}
	for _, joint := range is.Joints {
		for _, body := range joint.Bodies() {
			attach(body)
		}
	}
}

func (is *Island) indexOf(body *actor.RigidBody) int {
	if i, ok := is.index[body]; ok {
		return i
	}
	return -1
}

// solve runs a full step on the island: velocity integration, constraint solving,
// position integration and correction, then the sleep check.
// Only the owned bodies are written back.
func (is *Island) solve(step constraint.TimeStep, gravity mgl64.Vec2, allowSleep bool) {
	h := step.Dt

	for _, body := range is.Owned() {
		body.IntegrateVelocity(h, gravity)
	}

	is.states = is.states[:0]
	for _, body := range is.Bodies {
		is.states = append(is.states, constraint.NewSolverBody(body))
	}
	data := &constraint.SolverData{Step: step, Bodies: is.states, IndexOf: is.indexOf}

	is.contactSolver.Prepare(step, is.Contacts, data)
	if step.WarmStarting {
		is.contactSolver.WarmStart()
	}
	for _, joint := range is.Joints {
		joint.InitVelocityConstraints(data)
	}

	for i := 0; i < step.VelocityIterations; i++ {
		for _, joint := range is.Joints {
			joint.SolveVelocityConstraints(data)
		}
		is.contactSolver.SolveVelocityConstraints()
	}
	is.contactSolver.StoreImpulses()

	constraint.IntegratePositions(is.states, h)

	is.positionSolved = true
	if step.PositionCorrection {
		is.positionSolved = false
		for i := 0; i < step.PositionIterations; i++ {
			contactsOkay := is.contactSolver.SolvePositionConstraints()

			jointsOkay := true
			for _, joint := range is.Joints {
				jointsOkay = joint.SolvePositionConstraints(data) && jointsOkay
			}

			if contactsOkay && jointsOkay {
				is.positionSolved = true
				break
			}
		}
	}

	for i, body := range is.Owned() {
		state := is.states[i]
		body.Velocity = state.Velocity
		body.AngularVelocity = state.AngularVelocity
		body.SetTransform(state.Position, state.Angle)
	}

	if allowSleep {
		is.trySleep(h)
	}
}

// trySleep puts the whole island to sleep once its slowest sleeper rested long enough
func (is *Island) trySleep(h float64) {
	minSleepTime := math.MaxFloat64
	for _, body := range is.Owned() {
		sleepTime := body.UpdateSleepTimer(h, constraint.LinearSleepTolerance, constraint.AngularSleepTolerance)
		minSleepTime = math.Min(minSleepTime, sleepTime)
	}

	if minSleepTime >= constraint.TimeToSleep && is.positionSolved {
		for _, body := range is.Owned() {
			body.Sleep()
		}
		is.Asleep = true
	}
}
