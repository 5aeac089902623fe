package plank

import (
	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
)

type contactFlags uint8

const (
	// contactIsland marks a contact already added to the current island.
	contactIsland contactFlags = 1 << iota
	// contactTouching is set when the manifold has points, or a sensor overlaps.
	contactTouching
	// contactEnabled can be cleared by PreSolve to skip the contact for one step.
	contactEnabled
	// contactFilter marks a contact whose fixture filter changed.
	contactFilter
	// contactTOI is set when the time of impact is cached.
	contactTOI
)

// Contact manages the contact between two fixtures whose proxies overlap. A
// contact may exist without touching: check IsTouching.
type Contact struct {
	flags contactFlags

	fixtureA *Fixture
	fixtureB *Fixture

	collide  collision.Collider
	manifold collision.Manifold

	// index in the contact manager list.
	index int

	toiCount int
	toi      float64

	friction    float64
	restitution float64
}

func newContact(fixtureA, fixtureB *Fixture, collide collision.Collider) *Contact {
	return &Contact{
		flags:       contactEnabled,
		fixtureA:    fixtureA,
		fixtureB:    fixtureB,
		collide:     collide,
		friction:    constraint.MixFriction(fixtureA.friction, fixtureB.friction),
		restitution: constraint.MixRestitution(fixtureA.restitution, fixtureB.restitution),
	}
}

// GetManifold returns the live manifold. It must not be modified.
func (c *Contact) GetManifold() *collision.Manifold {
	return &c.manifold
}

// GetWorldManifold evaluates the manifold with the current body transforms.
func (c *Contact) GetWorldManifold() collision.WorldManifold {
	var wm collision.WorldManifold
	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	wm.Initialize(&c.manifold, bodyA.xf, c.fixtureA.shape.GetRadius(), bodyB.xf, c.fixtureB.shape.GetRadius())
	return wm
}

func (c *Contact) IsTouching() bool {
	return c.flags&contactTouching != 0
}

// SetEnabled disables the contact for the current step when called from PreSolve.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabled
	} else {
		c.flags &^= contactEnabled
	}
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabled != 0
}

func (c *Contact) GetFixtureA() *Fixture {
	return c.fixtureA
}

func (c *Contact) GetFixtureB() *Fixture {
	return c.fixtureB
}

func (c *Contact) GetFriction() float64 {
	return c.friction
}

// SetFriction overrides the mixed friction. It persists until ResetFriction.
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

func (c *Contact) ResetFriction() {
	c.friction = constraint.MixFriction(c.fixtureA.friction, c.fixtureB.friction)
}

func (c *Contact) GetRestitution() float64 {
	return c.restitution
}

func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

func (c *Contact) ResetRestitution() {
	c.restitution = constraint.MixRestitution(c.fixtureA.restitution, c.fixtureB.restitution)
}

func (c *Contact) isSensor() bool {
	return c.fixtureA.isSensor || c.fixtureB.isSensor
}

func (c *Contact) flagForFiltering() {
	c.flags |= contactFilter
}

// evaluate computes the manifold with the given transforms.
func (c *Contact) evaluate(manifold *collision.Manifold, xfA, xfB geom.Transform) {
	c.collide(manifold, c.fixtureA.shape, xfA, c.fixtureB.shape, xfB)
}

// update recomputes the manifold, carries the impulses of persisting points
// and reports touching transitions.
func (c *Contact) update(w *World) {
	oldManifold := c.manifold

	// Re-enable this contact.
	c.flags |= contactEnabled

	wasTouching := c.IsTouching()
	sensor := c.isSensor()

	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	xfA := bodyA.xf
	xfB := bodyB.xf

	touching := false
	if sensor {
		touching = collision.TestOverlap(c.fixtureA.shape, xfA, c.fixtureB.shape, xfB)

		// Sensors don't generate manifolds.
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, xfA, xfB)
		touching = c.manifold.PointCount > 0

		// Match old contact ids to new contact ids and copy the
		// stored impulses to warm start the solver.
		for i := 0; i < c.manifold.PointCount; i++ {
			mp2 := &c.manifold.Points[i]
			mp2.NormalImpulse = 0.0
			mp2.TangentImpulse = 0.0
			id2 := mp2.ID.Key()

			for j := 0; j < oldManifold.PointCount; j++ {
				mp1 := &oldManifold.Points[j]
				if mp1.ID.Key() == id2 {
					mp2.NormalImpulse = mp1.NormalImpulse
					mp2.TangentImpulse = mp1.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}

	if !wasTouching && touching {
		w.beginContact(c)
	}
	if wasTouching && !touching {
		w.endContact(c)
	}
	if !sensor && touching && w.contactListener != nil {
		w.contactListener.PreSolve(c, &oldManifold)
	}
}
