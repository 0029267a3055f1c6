package constraint

import (
	"math"

	"github.com/akmonengine/feather2d/actor"
)

// ComputeRestitution mixes the restitution of two materials.
// If one bounces, it bounces.
func ComputeRestitution(matA, matB actor.Material) float64 {
	return math.Max(matA.Restitution, matB.Restitution)
}

// ComputeFriction mixes the friction of two materials with the geometric mean,
// so a frictionless material always slides
func ComputeFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.Friction * matB.Friction)
}
