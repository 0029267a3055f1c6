package constraint

import "math"

// Global tuning constants based on meters-kilograms-seconds (MKS) units.
const (
	// MaxManifoldPoints is the number of contact points between two convex shapes in 2D
	MaxManifoldPoints = 2

	// LinearSlop is the collision and constraint tolerance, in meters.
	// Penetration up to this depth is allowed to keep contacts stable.
	LinearSlop = 0.005

	// AngularSlop is the angular tolerance, in radians
	AngularSlop = 2.0 / 180.0 * math.Pi

	// VelocityThreshold is the approach speed under which collisions are inelastic
	VelocityThreshold = 1.0

	// MaxLinearCorrection caps a single position correction, in meters
	MaxLinearCorrection = 0.2

	// MaxAngularCorrection caps a single angular correction, in radians
	MaxAngularCorrection = 8.0 / 180.0 * math.Pi

	// MaxTranslation caps the distance a body travels in one step
	MaxTranslation        = 2.0
	MaxTranslationSquared = MaxTranslation * MaxTranslation

	// MaxRotation caps the angle a body turns in one step
	MaxRotation        = 0.5 * math.Pi
	MaxRotationSquared = MaxRotation * MaxRotation

	// Baumgarte is the fraction of the overlap resolved per position iteration
	Baumgarte = 0.2

	// TimeToSleep is how long an island must stay quiet before sleeping, in seconds
	TimeToSleep = 0.5

	// LinearSleepTolerance is the speed under which a body counts as resting, in m/s
	LinearSleepTolerance = 0.01

	// AngularSleepTolerance is the angular speed under which a body counts as resting, in rad/s
	AngularSleepTolerance = 2.0 / 180.0 * math.Pi
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
