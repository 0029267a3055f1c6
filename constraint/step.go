package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CorrectionMode selects how positional drift is removed after integration
type CorrectionMode uint8

const (
	// CorrectionBaumgarte resolves a fraction of the contact overlap along the
	// normal computed for the velocity pass. Cheap, slightly spongy.
	CorrectionBaumgarte CorrectionMode = iota

	// CorrectionNGS recomputes the contact geometry and effective mass for every
	// point on every iteration. Slower and stiffer.
	CorrectionNGS
)

func (m CorrectionMode) String() string {
	switch m {
	case CorrectionBaumgarte:
		return "baumgarte"
	case CorrectionNGS:
		return "ngs"
	}
	return "unknown"
}

// TimeStep carries everything a solver needs to know about the current step
type TimeStep struct {
	Dt      float64 // time step
	InvDt   float64 // inverse time step (0 if Dt == 0)
	DtRatio float64 // Dt * InvDt of the previous step, rescales warm starting impulses

	VelocityIterations int
	PositionIterations int

	WarmStarting       bool
	PositionCorrection bool
	Correction         CorrectionMode
}

// SolverBody is the solver copy of a body state.
// Static bodies are copied with zero inverse mass and are never written back.
type SolverBody struct {
	Position        mgl64.Vec2
	Angle           float64
	Velocity        mgl64.Vec2
	AngularVelocity float64

	InverseMass    float64
	InverseInertia float64
	Static         bool
}

// NewSolverBody copies the state of a body
func NewSolverBody(body *actor.RigidBody) SolverBody {
	return SolverBody{
		Position:        body.Transform.Position,
		Angle:           body.Transform.Angle,
		Velocity:        body.Velocity,
		AngularVelocity: body.AngularVelocity,
		InverseMass:     body.InverseMass,
		InverseInertia:  body.InverseInertia,
		Static:          body.IsStatic(),
	}
}

// SolverData gives joints access to the solver bodies of the island
type SolverData struct {
	Step   TimeStep
	Bodies []SolverBody
	// IndexOf returns the index of a body in Bodies
	IndexOf func(body *actor.RigidBody) int
}

// IntegratePositions advances positions by the solved velocities.
// Large steps are clamped to MaxTranslation and MaxRotation.
func IntegratePositions(bodies []SolverBody, h float64) {
	for i := range bodies {
		b := &bodies[i]
		if b.Static {
			continue
		}

		// Check for large velocities
		translation := b.Velocity.Mul(h)
		if translation.LenSqr() > MaxTranslationSquared {
			b.Velocity = b.Velocity.Mul(MaxTranslation / translation.Len())
		}

		rotation := h * b.AngularVelocity
		if rotation*rotation > MaxRotationSquared {
			b.AngularVelocity *= MaxRotation / math.Abs(rotation)
		}

		b.Position = b.Position.Add(b.Velocity.Mul(h))
		b.Angle += h * b.AngularVelocity
	}
}
