// Package constraint holds the solver-side view of a time step: per-body
// positions and velocities indexed by island slot, and the sequential impulse
// solver for contacts. Joints implement Constraint against the same SolverData.
package constraint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is solved iteratively over an island.
type Constraint interface {
	InitVelocityConstraints(data *SolverData)
	SolveVelocityConstraints(data *SolverData)
	// SolvePositionConstraints returns true once the position error is within tolerance.
	SolvePositionConstraints(data *SolverData) bool
}

// TimeStep describes one step or sub-step of the world.
type TimeStep struct {
	Dt    float64
	InvDt float64
	// DtRatio is Dt times the previous step's InvDt, used to rescale warm start impulses.
	DtRatio float64

	VelocityIterations int
	PositionIterations int
	WarmStarting       bool
}

// Position is the center of mass position and angle of an island body.
type Position struct {
	C mgl64.Vec2
	A float64
}

// Velocity is the linear and angular velocity of an island body.
type Velocity struct {
	V mgl64.Vec2
	W float64
}

// SolverData is shared by every constraint of an island. Bodies are addressed by
// their island index.
type SolverData struct {
	Step       TimeStep
	Positions  []Position
	Velocities []Velocity
}

// MixFriction combines two fixture frictions with a geometric mean, so that a
// zero friction surface slides on anything.
func MixFriction(frictionA, frictionB float64) float64 {
	return math.Sqrt(frictionA * frictionB)
}

// MixRestitution takes the larger restitution: if one bounces, it bounces.
func MixRestitution(restitutionA, restitutionB float64) float64 {
	return math.Max(restitutionA, restitutionB)
}
