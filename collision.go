package plank

import (
	"github.com/akmonengine/plank/broadphase"
	"github.com/akmonengine/plank/collision"
)

// contactManager owns the broad phase and the contact list. It creates
// contacts for new proxy pairs and destroys them when the proxies stop
// overlapping.
type contactManager struct {
	world      *World
	broadPhase *broadphase.BroadPhase
	contacts   []*Contact
}

func newContactManager(world *World) *contactManager {
	return &contactManager{
		world:      world,
		broadPhase: broadphase.NewBroadPhase(),
		contacts:   make([]*Contact, 0, 256),
	}
}

// addPair is the broad phase callback for a new proxy pair.
func (cm *contactManager) addPair(userDataA, userDataB any) {
	fixtureA := userDataA.(*Fixture)
	fixtureB := userDataB.(*Fixture)

	bodyA := fixtureA.body
	bodyB := fixtureB.body

	// Are the fixtures on the same body?
	if bodyA == bodyB {
		return
	}

	// Does a contact already exist?
	for _, ce := range bodyB.contactEdges {
		if ce.Other != bodyA {
			continue
		}
		fA := ce.Contact.fixtureA
		fB := ce.Contact.fixtureB
		if (fA == fixtureA && fB == fixtureB) || (fA == fixtureB && fB == fixtureA) {
			return
		}
	}

	// Does a joint override collision? Is at least one body dynamic?
	if !bodyB.ShouldCollide(bodyA) {
		return
	}

	if !cm.world.contactFilter.ShouldCollide(fixtureA, fixtureB) {
		return
	}

	entry, ok := collision.Lookup(fixtureA.GetType(), fixtureB.GetType())
	if !ok {
		return
	}
	if !entry.Primary {
		fixtureA, fixtureB = fixtureB, fixtureA
		bodyA, bodyB = bodyB, bodyA
	}

	c := newContact(fixtureA, fixtureB, entry.Fn)
	c.index = len(cm.contacts)
	cm.contacts = append(cm.contacts, c)

	bodyA.addContactEdge(bodyB, c)
	bodyB.addContactEdge(bodyA, c)

	// Wake up the bodies.
	if !fixtureA.isSensor && !fixtureB.isSensor {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}
}

func (cm *contactManager) findNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}

// destroy removes a contact, reporting the end of a touching contact.
func (cm *contactManager) destroy(c *Contact) {
	if c.IsTouching() {
		cm.world.endContact(c)
	}

	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	bodyA.removeContactEdge(c)
	bodyB.removeContactEdge(c)

	last := len(cm.contacts) - 1
	moved := cm.contacts[last]
	cm.contacts[c.index] = moved
	moved.index = c.index
	cm.contacts[last] = nil
	cm.contacts = cm.contacts[:last]
	c.index = -1
}

// collide updates the contacts. Contacts whose fat AABBs stopped overlapping
// or that the filter rejects are destroyed.
func (cm *contactManager) collide() {
	for i := 0; i < len(cm.contacts); {
		c := cm.contacts[i]

		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		bodyA := fixtureA.body
		bodyB := fixtureB.body

		// Is this contact flagged for filtering?
		if c.flags&contactFilter != 0 {
			if !bodyB.ShouldCollide(bodyA) || !cm.world.contactFilter.ShouldCollide(fixtureA, fixtureB) {
				cm.destroy(c)
				continue
			}
			c.flags &^= contactFilter
		}

		activeA := bodyA.IsAwake() && bodyA.bodyType != StaticBody
		activeB := bodyB.IsAwake() && bodyB.bodyType != StaticBody

		// At least one body must be awake and it must be dynamic or kinematic.
		if !activeA && !activeB {
			i++
			continue
		}

		// Here we destroy contacts that cease to overlap in the broad phase.
		if !cm.broadPhase.TestOverlap(fixtureA.proxyID, fixtureB.proxyID) {
			cm.destroy(c)
			continue
		}

		// The contact persists.
		c.update(cm.world)
		i++
	}
}
