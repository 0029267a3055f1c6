package constraint

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewJoint_Errors(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, -5})
	wall := createStaticBody(mgl64.Vec2{0, 5})
	a := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	b := createDynamicBody(mgl64.Vec2{3, 0}, mgl64.Vec2{}, 1)
	distance, _ := NewDistanceJoint(DistanceJointDef{BodyA: a, BodyB: b, AnchorA: mgl64.Vec2{0, 0}, AnchorB: mgl64.Vec2{3, 0}})

	tests := []struct {
		name     string
		create   func() (Joint, error)
		expected error
	}{
		{"nil body", func() (Joint, error) {
			return NewRevoluteJoint(RevoluteJointDef{BodyA: nil, BodyB: a})
		}, ErrInvalidBody},
		{"same body", func() (Joint, error) {
			return NewRevoluteJoint(RevoluteJointDef{BodyA: a, BodyB: a})
		}, ErrSameBody},
		{"two static bodies", func() (Joint, error) {
			return NewWeldJoint(WeldJointDef{BodyA: ground, BodyB: wall})
		}, ErrDegenerateJoint},
		{"coincident distance anchors", func() (Joint, error) {
			return NewDistanceJoint(DistanceJointDef{BodyA: a, BodyB: b, AnchorA: mgl64.Vec2{1, 0}, AnchorB: mgl64.Vec2{1, 0}})
		}, ErrDegenerateJoint},
		{"inverted revolute limits", func() (Joint, error) {
			return NewRevoluteJoint(RevoluteJointDef{BodyA: ground, BodyB: a, EnableLimit: true, LowerAngle: 1, UpperAngle: -1})
		}, ErrDegenerateJoint},
		{"zero prismatic axis", func() (Joint, error) {
			return NewPrismaticJoint(PrismaticJointDef{BodyA: ground, BodyB: a})
		}, ErrDegenerateJoint},
		{"two static bodies on a prismatic", func() (Joint, error) {
			return NewPrismaticJoint(PrismaticJointDef{BodyA: ground, BodyB: wall, Axis: mgl64.Vec2{1, 0}})
		}, ErrDegenerateJoint},
		{"two static bodies on a pulley", func() (Joint, error) {
			return NewPulleyJoint(PulleyJointDef{BodyA: ground, BodyB: wall, GroundAnchorA: mgl64.Vec2{-2, 10}, GroundAnchorB: mgl64.Vec2{2, 10}, AnchorA: mgl64.Vec2{-2, -5}, AnchorB: mgl64.Vec2{2, 5}, Ratio: 1})
		}, ErrDegenerateJoint},
		{"zero pulley ratio", func() (Joint, error) {
			return NewPulleyJoint(PulleyJointDef{BodyA: a, BodyB: b, GroundAnchorA: mgl64.Vec2{0, 5}, GroundAnchorB: mgl64.Vec2{3, 5}, AnchorA: mgl64.Vec2{0, 0}, AnchorB: mgl64.Vec2{3, 0}})
		}, ErrDegenerateJoint},
		{"gear on a distance joint", func() (Joint, error) {
			return NewGearJoint(GearJointDef{Joint1: distance, Joint2: distance, Ratio: 1})
		}, ErrDegenerateJoint},
		{"mouse on a static body", func() (Joint, error) {
			return NewMouseJoint(MouseJointDef{Ground: ground, Body: wall, MaxForce: 10})
		}, ErrDegenerateJoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.create()
			if !errors.Is(err, tt.expected) {
				t.Errorf("error = %v, want %v", err, tt.expected)
			}
		})
	}
}

func TestRevoluteJoint_LimitStateSequence(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, 0})
	wheel := createDynamicBody(mgl64.Vec2{0, 5}, mgl64.Vec2{}, 1)

	joint, err := NewRevoluteJoint(RevoluteJointDef{
		BodyA:       ground,
		BodyB:       wheel,
		Anchor:      mgl64.Vec2{0, 5},
		EnableLimit: true,
		LowerAngle:  -0.25,
		UpperAngle:  0.25,
	})
	if err != nil {
		t.Fatalf("NewRevoluteJoint() error = %v", err)
	}

	step := testStep(8)
	var states []LimitState
	transitions := 0

	for i := 0; i < 30; i++ {
		wheel.AngularVelocity = -2.0

		data := solverData(step, ground, wheel)
		joint.InitVelocityConstraints(data)

		if len(states) == 0 || states[len(states)-1] != joint.LimitState() {
			if len(states) > 0 {
				transitions++
				if joint.LimitImpulse() != 0 {
					t.Errorf("step %d: limit impulse = %v after a transition, want 0", i, joint.LimitImpulse())
				}
			}
			states = append(states, joint.LimitState())
		}

		for j := 0; j < step.VelocityIterations; j++ {
			joint.SolveVelocityConstraints(data)
		}
		IntegratePositions(data.Bodies, step.Dt)
		for j := 0; j < step.PositionIterations; j++ {
			if joint.SolvePositionConstraints(data) {
				break
			}
		}
		writeBack(data, ground, wheel)
	}

	expected := []LimitState{LimitInactive, LimitAtLower}
	if len(states) != len(expected) {
		t.Fatalf("state sequence = %v, want %v", states, expected)
	}
	for i := range expected {
		if states[i] != expected[i] {
			t.Errorf("state %d = %v, want %v", i, states[i], expected[i])
		}
	}
	if transitions != 1 {
		t.Errorf("transitions = %d, want 1", transitions)
	}
	if joint.LimitImpulse() <= 0 {
		t.Errorf("limit impulse = %v, want the lower limit to push", joint.LimitImpulse())
	}
	if angle := joint.JointAngle(); angle < -0.25-2*AngularSlop {
		t.Errorf("joint angle = %v, went past the lower limit", angle)
	}
}

func TestRevoluteJoint_MotorTorqueClamp(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, 0})
	wheel := createDynamicBody(mgl64.Vec2{0, 5}, mgl64.Vec2{}, 1)

	joint, _ := NewRevoluteJoint(RevoluteJointDef{
		BodyA:          ground,
		BodyB:          wheel,
		Anchor:         mgl64.Vec2{0, 5},
		EnableMotor:    true,
		MotorSpeed:     100,
		MaxMotorTorque: 1,
	})

	step := testStep(8)
	stepJoints(step, mgl64.Vec2{}, []Joint{joint}, ground, wheel)

	maxImpulse := step.Dt * 1.0
	if math.Abs(joint.MotorImpulse()) > maxImpulse+1e-12 {
		t.Errorf("motor impulse = %v, want at most %v", joint.MotorImpulse(), maxImpulse)
	}
	expected := maxImpulse * wheel.InverseInertia
	if math.Abs(wheel.AngularVelocity-expected) > 1e-9 {
		t.Errorf("angular velocity = %v, want %v", wheel.AngularVelocity, expected)
	}
}

func TestRevoluteJoint_KeepsAnchorsTogether(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, 0})
	bob := createDynamicBody(mgl64.Vec2{2, 5}, mgl64.Vec2{}, 1)

	joint, _ := NewRevoluteJoint(RevoluteJointDef{BodyA: ground, BodyB: bob, Anchor: mgl64.Vec2{0, 5}})

	for i := 0; i < 120; i++ {
		stepJoints(testStep(10), mgl64.Vec2{0, -10}, []Joint{joint}, ground, bob)
	}

	if d := bob.Transform.Position.Sub(mgl64.Vec2{0, 5}).Len(); math.Abs(d-2) > 0.02 {
		t.Errorf("pendulum radius = %v, want 2", d)
	}
	if bob.Transform.Position.Y() >= 5 {
		t.Errorf("pendulum did not swing down: %v", bob.Transform.Position)
	}
}

func TestDistanceJoint_Pendulum(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, 0})
	bob := createDynamicBody(mgl64.Vec2{2, 0}, mgl64.Vec2{}, 1)

	joint, err := NewDistanceJoint(DistanceJointDef{BodyA: ground, BodyB: bob, AnchorA: mgl64.Vec2{0, 0}, AnchorB: mgl64.Vec2{2, 0}})
	if err != nil {
		t.Fatalf("NewDistanceJoint() error = %v", err)
	}

	for i := 0; i < 120; i++ {
		stepJoints(testStep(10), mgl64.Vec2{0, -10}, []Joint{joint}, ground, bob)
	}

	if d := bob.Transform.Position.Len(); math.Abs(d-joint.Length()) > 0.02 {
		t.Errorf("rod length = %v, want %v", d, joint.Length())
	}
	if bob.Transform.Position.Y() > -0.5 {
		t.Errorf("bob did not fall: %v", bob.Transform.Position)
	}
}

func TestDistanceJoint_ZeroLengthExertsNothing(t *testing.T) {
	a := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{1, 0}, 1)
	b := createDynamicBody(mgl64.Vec2{2, 0}, mgl64.Vec2{-1, 0}, 1)

	joint, _ := NewDistanceJoint(DistanceJointDef{BodyA: a, BodyB: b, AnchorA: mgl64.Vec2{0, 0}, AnchorB: mgl64.Vec2{2, 0}})

	// Collapse the anchors on each other
	b.SetTransform(mgl64.Vec2{0, 0}, 0)

	data := solverData(testStep(10), a, b)
	joint.InitVelocityConstraints(data)
	for i := 0; i < 10; i++ {
		joint.SolveVelocityConstraints(data)
	}

	if data.Bodies[0].Velocity != (mgl64.Vec2{1, 0}) || data.Bodies[1].Velocity != (mgl64.Vec2{-1, 0}) {
		t.Errorf("velocities changed to %v, %v", data.Bodies[0].Velocity, data.Bodies[1].Velocity)
	}
	if joint.Impulse() != 0 {
		t.Errorf("impulse = %v, want 0", joint.Impulse())
	}
	if !joint.SolvePositionConstraints(data) {
		t.Errorf("zero length position pass reported an error")
	}
}

func TestPrismaticJoint_SlidesAlongAxis(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, -5})
	slider := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)

	joint, err := NewPrismaticJoint(PrismaticJointDef{
		BodyA:            ground,
		BodyB:            slider,
		Anchor:           mgl64.Vec2{0, 0},
		Axis:             mgl64.Vec2{2, 0},
		EnableLimit:      true,
		LowerTranslation: -0.5,
		UpperTranslation: 0.5,
		EnableMotor:      true,
		MotorSpeed:       2,
		MaxMotorForce:    1000,
	})
	if err != nil {
		t.Fatalf("NewPrismaticJoint() error = %v", err)
	}

	for i := 0; i < 120; i++ {
		stepJoints(testStep(10), mgl64.Vec2{0, -10}, []Joint{joint}, ground, slider)
	}

	p := slider.Transform.Position
	if math.Abs(p.Y()) > 0.01 {
		t.Errorf("slider left the axis: %v", p)
	}
	if math.Abs(slider.Transform.Angle) > AngularSlop {
		t.Errorf("slider rotated by %v", slider.Transform.Angle)
	}
	if p.X() > 0.5+0.01 || p.X() < 0.4 {
		t.Errorf("slider x = %v, want resting on the upper limit 0.5", p.X())
	}
	if joint.LimitState() != LimitAtUpper {
		t.Errorf("LimitState() = %v, want %v", joint.LimitState(), LimitAtUpper)
	}
}

func TestGearJoint_CouplesRevolutes(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, -5})
	wheel1 := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	wheel2 := createDynamicBody(mgl64.Vec2{3, 0}, mgl64.Vec2{}, 1)

	r1, _ := NewRevoluteJoint(RevoluteJointDef{BodyA: ground, BodyB: wheel1, Anchor: mgl64.Vec2{0, 0}})
	r2, _ := NewRevoluteJoint(RevoluteJointDef{BodyA: ground, BodyB: wheel2, Anchor: mgl64.Vec2{3, 0}})
	gear, err := NewGearJoint(GearJointDef{Joint1: r1, Joint2: r2, Ratio: 1})
	if err != nil {
		t.Fatalf("NewGearJoint() error = %v", err)
	}
	if len(gear.Bodies()) != 4 {
		t.Errorf("Bodies() = %d bodies, want 4", len(gear.Bodies()))
	}

	wheel1.AngularVelocity = 1
	for i := 0; i < 30; i++ {
		stepJoints(testStep(10), mgl64.Vec2{}, []Joint{r1, r2, gear}, ground, wheel1, wheel2)
	}

	if sum := wheel1.AngularVelocity + wheel2.AngularVelocity; math.Abs(sum) > 1e-6 {
		t.Errorf("w1 + w2 = %v, want 0", sum)
	}
	if math.Abs(wheel1.AngularVelocity-0.5) > 1e-6 {
		t.Errorf("w1 = %v, want 0.5", wheel1.AngularVelocity)
	}
	if sum := wheel1.Transform.Angle + wheel2.Transform.Angle; math.Abs(sum) > AngularSlop {
		t.Errorf("angle1 + angle2 = %v, want 0", sum)
	}
}

func TestPulleyJoint_ConservesRope(t *testing.T) {
	a := createDynamicBody(mgl64.Vec2{-2, 0}, mgl64.Vec2{}, 2)
	b := createDynamicBody(mgl64.Vec2{2, 0}, mgl64.Vec2{}, 1)

	joint, err := NewPulleyJoint(PulleyJointDef{
		BodyA:         a,
		BodyB:         b,
		GroundAnchorA: mgl64.Vec2{-2, 5},
		GroundAnchorB: mgl64.Vec2{2, 5},
		AnchorA:       mgl64.Vec2{-2, 0},
		AnchorB:       mgl64.Vec2{2, 0},
		Ratio:         1,
	})
	if err != nil {
		t.Fatalf("NewPulleyJoint() error = %v", err)
	}

	for i := 0; i < 60; i++ {
		stepJoints(testStep(10), mgl64.Vec2{0, -10}, []Joint{joint}, a, b)
	}

	lengthA, lengthB := joint.CurrentLengths()
	if total := lengthA + lengthB; math.Abs(total-10) > 0.02 {
		t.Errorf("rope length = %v, want 10", total)
	}
	if a.Transform.Position.Y() >= 0 || b.Transform.Position.Y() <= 0 {
		t.Errorf("heavier body should descend: a = %v, b = %v", a.Transform.Position, b.Transform.Position)
	}
}

func TestMouseJoint_DragsToTarget(t *testing.T) {
	ground := createStaticBody(mgl64.Vec2{0, -5})
	body := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)

	joint, err := NewMouseJoint(MouseJointDef{Ground: ground, Body: body, Target: mgl64.Vec2{0, 0}, MaxForce: 1000 * body.Mass})
	if err != nil {
		t.Fatalf("NewMouseJoint() error = %v", err)
	}
	joint.SetTarget(mgl64.Vec2{2, 0})

	step := testStep(8)
	for i := 0; i < 180; i++ {
		stepJoints(step, mgl64.Vec2{}, []Joint{joint}, ground, body)

		if limit := step.Dt * 1000 * body.Mass; joint.Impulse().Len() > limit+1e-9 {
			t.Fatalf("impulse %v exceeds dt * max force %v", joint.Impulse().Len(), limit)
		}
	}

	if d := body.Transform.Position.Sub(mgl64.Vec2{2, 0}).Len(); d > 0.05 {
		t.Errorf("distance to target = %v, want close to 0", d)
	}
}

func TestWeldJoint_LocksRelativeMotion(t *testing.T) {
	a := createDynamicBody(mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	b := createDynamicBody(mgl64.Vec2{2, 0}, mgl64.Vec2{0, 3}, 1)

	joint, err := NewWeldJoint(WeldJointDef{BodyA: a, BodyB: b, Anchor: mgl64.Vec2{1, 0}})
	if err != nil {
		t.Fatalf("NewWeldJoint() error = %v", err)
	}

	for i := 0; i < 60; i++ {
		stepJoints(testStep(10), mgl64.Vec2{}, []Joint{joint}, a, b)
	}

	if d := b.Transform.Position.Sub(a.Transform.Position).Len(); math.Abs(d-2) > 0.01 {
		t.Errorf("distance = %v, want 2", d)
	}
	if da := b.Transform.Angle - a.Transform.Angle; math.Abs(da) > AngularSlop {
		t.Errorf("relative angle = %v, want 0", da)
	}
	if math.Abs(a.AngularVelocity-b.AngularVelocity) > 1e-6 {
		t.Errorf("angular velocities differ: %v, %v", a.AngularVelocity, b.AngularVelocity)
	}
}

func TestJointKind_String(t *testing.T) {
	kinds := map[JointKind]string{
		JointDistance:  "distance",
		JointRevolute:  "revolute",
		JointPrismatic: "prismatic",
		JointPulley:    "pulley",
		JointGear:      "gear",
		JointMouse:     "mouse",
		JointWeld:      "weld",
	}
	for kind, name := range kinds {
		if kind.String() != name {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), name)
		}
	}
}
