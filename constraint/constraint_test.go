package constraint

import (
	"math"
	"testing"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const testDt = 1.0 / 60.0

// Helper function to create a dynamic disc of radius 1
func createDynamicBody(position mgl64.Vec2, velocity mgl64.Vec2, density float64) *actor.RigidBody {
	rb := actor.NewRigidBody(
		actor.NewTransform(position, 0),
		&actor.Circle{Radius: 1.0},
		actor.BodyTypeDynamic,
		density,
	)
	rb.Velocity = velocity

	return rb
}

// Helper function to create a static box, 20 wide and 1 high
func createStaticBody(position mgl64.Vec2) *actor.RigidBody {
	return actor.NewRigidBody(
		actor.NewTransform(position, 0),
		&actor.Box{HalfExtents: mgl64.Vec2{10, 0.5}},
		actor.BodyTypeStatic,
		0.0,
	)
}

func testStep(iterations int) TimeStep {
	return TimeStep{
		Dt:                 testDt,
		InvDt:              1.0 / testDt,
		DtRatio:            1.0,
		VelocityIterations: iterations,
		PositionIterations: iterations,
		WarmStarting:       true,
		PositionCorrection: true,
		Correction:         CorrectionBaumgarte,
	}
}

// solverData copies the bodies into solver bodies, in order
func solverData(step TimeStep, bodies ...*actor.RigidBody) *SolverData {
	data := &SolverData{Step: step, Bodies: make([]SolverBody, len(bodies))}
	for i, body := range bodies {
		data.Bodies[i] = NewSolverBody(body)
	}
	data.IndexOf = func(body *actor.RigidBody) int {
		for i, b := range bodies {
			if b == body {
				return i
			}
		}
		return -1
	}

	return data
}

// writeBack copies the solver state to the non static bodies
func writeBack(data *SolverData, bodies ...*actor.RigidBody) {
	for i, body := range bodies {
		if body.IsStatic() {
			continue
		}
		sb := data.Bodies[i]
		body.Velocity = sb.Velocity
		body.AngularVelocity = sb.AngularVelocity
		body.SetTransform(sb.Position, sb.Angle)
	}
}

// stepJoints runs one full solver step over the given joints, without contacts
func stepJoints(step TimeStep, gravity mgl64.Vec2, joints []Joint, bodies ...*actor.RigidBody) {
	for _, body := range bodies {
		body.IntegrateVelocity(step.Dt, gravity)
	}

	data := solverData(step, bodies...)
	for _, joint := range joints {
		joint.InitVelocityConstraints(data)
	}
	for i := 0; i < step.VelocityIterations; i++ {
		for _, joint := range joints {
			joint.SolveVelocityConstraints(data)
		}
	}

	IntegratePositions(data.Bodies, step.Dt)

	for i := 0; i < step.PositionIterations; i++ {
		solved := true
		for _, joint := range joints {
			solved = joint.SolvePositionConstraints(data) && solved
		}
		if solved {
			break
		}
	}

	writeBack(data, bodies...)
}

func TestComputeRestitution(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"both zero", 0, 0, 0},
		{"one bouncy", 0.8, 0, 0.8},
		{"other bouncy", 0, 0.6, 0.6},
		{"both bouncy", 0.3, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRestitution(actor.Material{Restitution: tt.a}, actor.Material{Restitution: tt.b})
			if got != tt.expected {
				t.Errorf("ComputeRestitution(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestComputeFriction(t *testing.T) {
	tests := []struct {
		name     string
		a, b     float64
		expected float64
	}{
		{"frictionless slides", 0, 0.9, 0},
		{"equal", 0.4, 0.4, 0.4},
		{"geometric mean", 0.2, 0.8, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeFriction(actor.Material{Friction: tt.a}, actor.Material{Friction: tt.b})
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("ComputeFriction(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestIntegratePositions_ClampsLargeMotion(t *testing.T) {
	bodies := []SolverBody{
		{Velocity: mgl64.Vec2{1000, 0}, InverseMass: 1},
		{AngularVelocity: 1000, InverseMass: 1},
		{Velocity: mgl64.Vec2{5, 0}, Static: true},
	}

	IntegratePositions(bodies, testDt)

	if got := bodies[0].Position.Len(); math.Abs(got-MaxTranslation) > 1e-9 {
		t.Errorf("translation = %v, want clamped to %v", got, MaxTranslation)
	}
	if got := bodies[1].Angle; math.Abs(got-MaxRotation) > 1e-9 {
		t.Errorf("rotation = %v, want clamped to %v", got, MaxRotation)
	}
	if bodies[2].Position != (mgl64.Vec2{}) {
		t.Errorf("static body moved to %v", bodies[2].Position)
	}
}

func TestCorrectionMode_String(t *testing.T) {
	if CorrectionBaumgarte.String() != "baumgarte" || CorrectionNGS.String() != "ngs" {
		t.Errorf("unexpected names %q, %q", CorrectionBaumgarte, CorrectionNGS)
	}
}
