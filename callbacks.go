package plank

import (
	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactFilter decides whether two fixtures may create a contact.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

// DefaultContactFilter applies the category, mask and group rules of Filter.
type DefaultContactFilter struct{}

func (DefaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	filterA := fixtureA.filter
	filterB := fixtureB.filter

	if filterA.GroupIndex == filterB.GroupIndex && filterA.GroupIndex != 0 {
		return filterA.GroupIndex > 0
	}

	return filterA.MaskBits&filterB.CategoryBits != 0 && filterA.CategoryBits&filterB.MaskBits != 0
}

// ContactImpulse holds the impulses applied on each manifold point by the
// solver, for PostSolve.
type ContactImpulse struct {
	NormalImpulses  [geom.MaxManifoldPoints]float64
	TangentImpulses [geom.MaxManifoldPoints]float64
	Count           int
}

// ContactListener is called synchronously during the step. The world is
// locked: bodies, fixtures and joints cannot be created or destroyed from it.
type ContactListener interface {
	// BeginContact is called when two fixtures begin to touch.
	BeginContact(contact *Contact)
	// EndContact is called when two fixtures cease to touch, including when a
	// touching contact is destroyed.
	EndContact(contact *Contact)
	// PreSolve is called after the manifold update and before solving. The
	// contact may be disabled for the current step with SetEnabled(false).
	PreSolve(contact *Contact, oldManifold *collision.Manifold)
	// PostSolve reports the impulses applied by the solver.
	PostSolve(contact *Contact, impulse *ContactImpulse)
}

// DestructionListener is told about fixtures and joints implicitly destroyed
// with their body.
type DestructionListener interface {
	SayGoodbyeJoint(joint Joint)
	SayGoodbyeFixture(fixture *Fixture)
}

// BoundaryListener is told about bodies leaving the world bounds.
type BoundaryListener interface {
	Violation(body *Body)
}

// QueryCallback is called for each fixture whose fat AABB overlaps the query.
// Return false to stop the query.
type QueryCallback func(fixture *Fixture) bool

// RayCastCallback is called for each fixture hit by the ray. The return value
// controls the cast: -1 ignores the fixture, 0 terminates, fraction clips the
// ray at this hit, 1 continues without clipping.
type RayCastCallback func(fixture *Fixture, point, normal mgl64.Vec2, fraction float64) float64
