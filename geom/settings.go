package geom

import "math"

// Global tuning constants. Lengths are in meters, times in seconds.
const (
	Epsilon = 2.220446049250313e-16

	// MaxManifoldPoints is the number of contact points between two convex shapes.
	MaxManifoldPoints = 2
	// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
	MaxPolygonVertices = 8

	// AABBExtension fattens proxy AABBs in the dynamic tree. This allows proxies
	// to move by a small amount without triggering a tree adjustment.
	AABBExtension = 0.1
	// AABBMultiplier scales the predicted displacement of a moved proxy.
	AABBMultiplier = 2.0

	// LinearSlop is a small length used as a collision and constraint tolerance.
	LinearSlop = 0.005
	// AngularSlop is a small angle used as a collision and constraint tolerance.
	AngularSlop = 2.0 / 180.0 * math.Pi

	// PolygonRadius is the skin thickness of polygons.
	PolygonRadius = 2.0 * LinearSlop

	// MaxSubSteps caps the TOI sub-steps a single contact may trigger.
	MaxSubSteps = 8
	// MaxTOIContacts caps the contacts handled by one TOI island.
	MaxTOIContacts = 32

	// VelocityThreshold is the relative closing speed below which collisions are inelastic.
	VelocityThreshold = 1.0

	// MaxLinearCorrection caps the position correction applied in one iteration.
	MaxLinearCorrection = 0.2
	// MaxAngularCorrection caps the angular correction applied in one iteration.
	MaxAngularCorrection = 8.0 / 180.0 * math.Pi

	// MaxTranslation caps the distance a body can travel in one step.
	MaxTranslation        = 2.0
	MaxTranslationSquared = MaxTranslation * MaxTranslation

	// MaxRotation caps the angle a body can turn in one step.
	MaxRotation        = 0.5 * math.Pi
	MaxRotationSquared = MaxRotation * MaxRotation

	// Baumgarte scales how fast overlap is resolved.
	Baumgarte    = 0.2
	TOIBaumgarte = 0.75

	// TimeToSleep is the time a body must be still before it sleeps.
	TimeToSleep = 0.5
	// LinearSleepTolerance is the speed under which a body is considered still.
	LinearSleepTolerance = 0.01
	// AngularSleepTolerance is the angular speed under which a body is considered still.
	AngularSleepTolerance = 2.0 / 180.0 * math.Pi
)
