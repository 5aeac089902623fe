package plank

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/akmonengine/plank/collision"
	"github.com/akmonengine/plank/constraint"
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrWorldLocked is returned by structural mutations attempted during a step.
	ErrWorldLocked = errors.New("plank: world is locked")
	// ErrDestroyed is returned when using a body, fixture or joint that was destroyed.
	ErrDestroyed = errors.New("plank: object was destroyed")
	// ErrInvalidDefinition is returned for definitions that cannot be built.
	ErrInvalidDefinition = errors.New("plank: invalid definition")
)

// TOI sub-steps use more position iterations to resolve the impact fully.
const toiPositionIterations = 20

type worldFlags uint8

const (
	worldNewFixture worldFlags = 1 << iota
	worldLocked
	worldClearForces
)

// Profile holds the time spent in each phase of the last step.
type Profile struct {
	Step          time.Duration
	Collide       time.Duration
	Solve         time.Duration
	SolveInit     time.Duration
	SolveVelocity time.Duration
	SolvePosition time.Duration
	Broadphase    time.Duration
	SolveTOI      time.Duration
}

// World owns the bodies, joints and contacts, and advances them with Step.
type World struct {
	flags worldFlags

	contactManager *contactManager

	bodies []*Body
	joints []Joint

	gravity mgl64.Vec2

	allowSleep        bool
	warmStarting      bool
	continuousPhysics bool
	subStepping       bool

	// stepComplete is false while a sub-stepped TOI phase is unfinished.
	stepComplete bool

	// invDt0 is the inverse time step of the previous step, for warm starting.
	invDt0 float64

	contactFilter       ContactFilter
	contactListener     ContactListener
	destructionListener DestructionListener
	boundaryListener    BoundaryListener

	bounds    geom.AABB
	hasBounds bool

	// pendingBodies are destroyed at the beginning of the next step.
	pendingBodies []*Body

	island island
	stack  []*Body

	profile Profile
	events  Events

	logger *log.Logger
}

// NewWorld creates an empty world with the given gravity.
func NewWorld(gravity mgl64.Vec2) *World {
	w := &World{
		flags:             worldClearForces,
		gravity:           gravity,
		allowSleep:        true,
		warmStarting:      true,
		continuousPhysics: true,
		stepComplete:      true,
		contactFilter:     DefaultContactFilter{},
		events:            NewEvents(),
	}
	w.contactManager = newContactManager(w)

	return w
}

// ============================================================================
// Settings
// ============================================================================

// SetLogger sets the logger told about rejected mutations, deferred
// destructions and bound violations. A nil logger disables logging.
func (w *World) SetLogger(logger *log.Logger) {
	w.logger = logger
}

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

// rejectLocked reports a mutation attempted during a step.
func (w *World) rejectLocked(op string) error {
	w.logf("plank: %s rejected, the world is locked", op)
	return fmt.Errorf("%w: %s", ErrWorldLocked, op)
}

func (w *World) SetGravity(gravity mgl64.Vec2) {
	w.gravity = gravity
}

func (w *World) GetGravity() mgl64.Vec2 {
	return w.gravity
}

// SetAllowSleeping enables sleeping. Disabling it wakes up every body.
func (w *World) SetAllowSleeping(flag bool) {
	if flag == w.allowSleep {
		return
	}

	w.allowSleep = flag
	if !w.allowSleep {
		for _, b := range w.bodies {
			b.SetAwake(true)
		}
	}
}

func (w *World) GetAllowSleeping() bool {
	return w.allowSleep
}

func (w *World) SetWarmStarting(flag bool) {
	w.warmStarting = flag
}

func (w *World) GetWarmStarting() bool {
	return w.warmStarting
}

func (w *World) SetContinuousPhysics(flag bool) {
	w.continuousPhysics = flag
}

func (w *World) GetContinuousPhysics() bool {
	return w.continuousPhysics
}

// SetSubStepping solves a single TOI event per step.
func (w *World) SetSubStepping(flag bool) {
	w.subStepping = flag
}

func (w *World) GetSubStepping() bool {
	return w.subStepping
}

// SetAutoClearForces controls whether forces are cleared after each step.
func (w *World) SetAutoClearForces(flag bool) {
	if flag {
		w.flags |= worldClearForces
	} else {
		w.flags &^= worldClearForces
	}
}

func (w *World) GetAutoClearForces() bool {
	return w.flags&worldClearForces != 0
}

// SetContactFilter replaces the contact filter. A nil filter restores the
// default one.
func (w *World) SetContactFilter(filter ContactFilter) {
	if filter == nil {
		filter = DefaultContactFilter{}
	}
	w.contactFilter = filter
}

func (w *World) SetContactListener(listener ContactListener) {
	w.contactListener = listener
}

func (w *World) SetDestructionListener(listener DestructionListener) {
	w.destructionListener = listener
}

func (w *World) SetBoundaryListener(listener BoundaryListener) {
	w.boundaryListener = listener
}

// SetBounds sets the simulation bounds. Bodies leaving them are reported to
// the boundary listener at the end of each step.
func (w *World) SetBounds(bounds geom.AABB) {
	w.bounds = bounds
	w.hasBounds = true
}

// ClearBounds removes the simulation bounds.
func (w *World) ClearBounds() {
	w.hasBounds = false
}

func (w *World) GetBounds() (geom.AABB, bool) {
	return w.bounds, w.hasBounds
}

// Events returns the event bus. Events are sent once the step is over.
func (w *World) Events() *Events {
	return &w.events
}

// GetProfile returns the timings of the last step.
func (w *World) GetProfile() Profile {
	return w.profile
}

// IsLocked is true during a step, including inside listener callbacks.
func (w *World) IsLocked() bool {
	return w.flags&worldLocked != 0
}

// ============================================================================
// Accessors
// ============================================================================

func (w *World) GetBodies() []*Body {
	return w.bodies
}

func (w *World) GetJoints() []Joint {
	return w.joints
}

func (w *World) GetContacts() []*Contact {
	return w.contactManager.contacts
}

func (w *World) GetBodyCount() int {
	return len(w.bodies)
}

func (w *World) GetJointCount() int {
	return len(w.joints)
}

func (w *World) GetContactCount() int {
	return len(w.contactManager.contacts)
}

func (w *World) GetProxyCount() int {
	return w.contactManager.broadPhase.GetProxyCount()
}

func (w *World) GetTreeHeight() int {
	return w.contactManager.broadPhase.GetTreeHeight()
}

// RebalanceTree reinserts some leaves of the broad phase tree to improve it.
func (w *World) RebalanceTree(iterations int) {
	w.contactManager.broadPhase.Tree().Rebalance(iterations)
}

// ============================================================================
// Bodies and joints
// ============================================================================

// CreateBody adds a body built from def. A nil def creates a default static body.
func (w *World) CreateBody(def *BodyDef) (*Body, error) {
	if w.IsLocked() {
		return nil, w.rejectLocked("CreateBody")
	}

	if def == nil {
		d := NewBodyDef()
		def = &d
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	b := newBody(def, w)
	w.bodies = append(w.bodies, b)

	return b, nil
}

// DestroyBody destroys a body with its fixtures and joints. During a step the
// destruction is deferred to the beginning of the next step.
func (w *World) DestroyBody(b *Body) error {
	if b == nil || b.world != w {
		return ErrDestroyed
	}

	if w.IsLocked() {
		for _, pending := range w.pendingBodies {
			if pending == b {
				return nil
			}
		}
		w.logf("plank: body destruction deferred to the next step")
		w.pendingBodies = append(w.pendingBodies, b)
		return nil
	}

	w.destroyBody(b)
	return nil
}

func (w *World) destroyBody(b *Body) {
	// A ring joint holds bodies it has no joint edge on.
	for _, j := range w.dependentJoints(nil, b) {
		w.sayGoodbyeJoint(j)
		w.destroyJoint(j)
	}

	// Delete the attached joints.
	for len(b.jointEdges) > 0 {
		j := b.jointEdges[0].Joint
		w.sayGoodbyeJoint(j)
		w.destroyJoint(j)
	}

	// Delete the attached contacts.
	b.destroyContacts()

	// Delete the attached fixtures. This destroys broad-phase proxies.
	for _, f := range b.fixtures {
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeFixture(f)
		}
		f.destroyProxy(w.contactManager.broadPhase)
		f.body = nil
	}
	b.fixtures = nil

	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}

	w.events.forget(b)
	b.world = nil
}

// drainPendingBodies destroys the bodies whose destruction was requested
// during the previous step.
func (w *World) drainPendingBodies() {
	pending := w.pendingBodies
	w.pendingBodies = nil

	for _, b := range pending {
		if b.world == w {
			w.destroyBody(b)
		}
	}
}

// CreateJoint adds a joint built from def. Joints that don't let their
// bodies collide stop the existing contacts between them.
func (w *World) CreateJoint(def JointDef) (Joint, error) {
	if w.IsLocked() {
		return nil, w.rejectLocked("CreateJoint")
	}

	j, err := newJoint(w, def)
	if err != nil {
		return nil, err
	}

	base := j.base()
	base.world = w
	w.joints = append(w.joints, j)

	// Connect to the bodies.
	base.bodyA.addJointEdge(base.bodyB, j)
	base.bodyB.addJointEdge(base.bodyA, j)

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !base.collideConnected {
		w.flagContactsBetween(base.bodyA, base.bodyB)
	}

	return j, nil
}

// DestroyJoint destroys a joint. A constant volume joint also destroys the
// distance joints of its ring. Gear and constant volume joints built on the
// destroyed joint are destroyed with it.
func (w *World) DestroyJoint(j Joint) error {
	if w.IsLocked() {
		return w.rejectLocked("DestroyJoint")
	}
	if j == nil || j.base().world != w {
		return ErrDestroyed
	}

	w.destroyJoint(j)
	return nil
}

func (w *World) destroyJoint(j Joint) {
	base := j.base()
	if base.world != w {
		return
	}

	for i, other := range w.joints {
		if other == j {
			w.joints = append(w.joints[:i], w.joints[i+1:]...)
			break
		}
	}

	bodyA := base.bodyA
	bodyB := base.bodyB

	// Wake up connected bodies.
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)

	bodyA.removeJointEdge(j)
	bodyB.removeJointEdge(j)
	base.world = nil

	if cvj, ok := j.(*ConstantVolumeJoint); ok {
		for _, dj := range cvj.distanceJoints {
			if dj.world == w {
				w.sayGoodbyeJoint(dj)
				w.destroyJoint(dj)
			}
		}
	}

	for _, dependent := range w.dependentJoints(j, nil) {
		w.sayGoodbyeJoint(dependent)
		w.destroyJoint(dependent)
	}

	// If the joint prevented collisions, flag the contacts for filtering.
	if !base.collideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}
}

// dependentJoints returns the gear and constant volume joints that reference
// the given joint or body.
func (w *World) dependentJoints(target Joint, body *Body) []Joint {
	var dependents []Joint
	for _, j := range w.joints {
		switch j := j.(type) {
		case *GearJoint:
			if target != nil && (j.joint1 == target || j.joint2 == target) {
				dependents = append(dependents, j)
			}
		case *ConstantVolumeJoint:
			if j.references(target, body) {
				dependents = append(dependents, j)
			}
		}
	}
	return dependents
}

func (w *World) sayGoodbyeJoint(j Joint) {
	if j.base().world != w {
		return
	}
	if w.destructionListener != nil {
		w.destructionListener.SayGoodbyeJoint(j)
	}
}

func (w *World) flagContactsBetween(bodyA, bodyB *Body) {
	for _, ce := range bodyB.contactEdges {
		if ce.Other == bodyA {
			ce.Contact.flagForFiltering()
		}
	}
}

// ClearForces zeroes the force and torque of every body.
func (w *World) ClearForces() {
	for _, b := range w.bodies {
		b.force = mgl64.Vec2{}
		b.torque = 0.0
	}
}

// ============================================================================
// Step
// ============================================================================

// Step advances the world by dt, running the given number of velocity and
// position iterations on each island.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) error {
	if w.IsLocked() {
		return w.rejectLocked("Step")
	}

	stepTimer := time.Now()
	w.profile = Profile{}

	w.drainPendingBodies()

	// If new fixtures were added, we need to find the new contacts.
	if w.flags&worldNewFixture != 0 {
		w.contactManager.findNewContacts()
		w.flags &^= worldNewFixture
	}

	w.flags |= worldLocked

	step := constraint.TimeStep{
		Dt:                 dt,
		VelocityIterations: velocityIterations,
		PositionIterations: positionIterations,
		WarmStarting:       w.warmStarting,
	}
	if dt > 0.0 {
		step.InvDt = 1.0 / dt
	}
	step.DtRatio = w.invDt0 * dt

	// Update contacts. This is where some contacts are destroyed.
	mark := time.Now()
	w.contactManager.collide()
	w.profile.Collide = time.Since(mark)

	// Integrate velocities, solve velocity constraints, and integrate positions.
	if w.stepComplete && step.Dt > 0.0 {
		mark = time.Now()
		w.solve(step)
		w.profile.Solve = time.Since(mark)
	}

	// Handle TOI events.
	if w.continuousPhysics && step.Dt > 0.0 {
		mark = time.Now()
		w.solveTOI(step)
		w.profile.SolveTOI = time.Since(mark)
	}

	if step.Dt > 0.0 {
		w.invDt0 = step.InvDt
	}

	if w.flags&worldClearForces != 0 {
		w.ClearForces()
	}

	w.checkBounds()

	w.flags &^= worldLocked
	w.profile.Step = time.Since(stepTimer)

	w.events.processSleepEvents(w.bodies)
	w.events.flush()

	return nil
}

// solve finds the islands of awake bodies and solves each of them.
func (w *World) solve(step constraint.TimeStep) {
	isl := &w.island
	isl.listener = w.contactListener

	// Clear all the island flags.
	for _, b := range w.bodies {
		b.flags &^= bodyIsland
	}
	for _, c := range w.contactManager.contacts {
		c.flags &^= contactIsland
	}
	for _, j := range w.joints {
		j.base().islandFlag = false
	}

	// Build and simulate all awake islands.
	stack := w.stack[:0]
	for _, seed := range w.bodies {
		if seed.flags&bodyIsland != 0 {
			continue
		}
		if !seed.IsAwake() || !seed.IsActive() {
			continue
		}
		// The seed can be dynamic or kinematic.
		if seed.bodyType == StaticBody {
			continue
		}

		// Reset island and stack.
		isl.clear()
		stack = append(stack[:0], seed)
		seed.flags |= bodyIsland

		// Perform a depth first search on the constraint graph.
		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			isl.addBody(b)

			// Make sure the body is awake.
			b.SetAwake(true)

			// To keep islands as small as possible, we don't
			// propagate islands across static bodies.
			if b.bodyType == StaticBody {
				continue
			}

			// Search all contacts connected to this body.
			for _, ce := range b.contactEdges {
				c := ce.Contact

				// Has this contact already been added to an island?
				if c.flags&contactIsland != 0 {
					continue
				}

				// Is this contact solid and touching?
				if !c.IsEnabled() || !c.IsTouching() {
					continue
				}

				// Skip sensors.
				if c.fixtureA.isSensor || c.fixtureB.isSensor {
					continue
				}

				isl.addContact(c)
				c.flags |= contactIsland

				other := ce.Other

				// Was the other body already added to this island?
				if other.flags&bodyIsland != 0 {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIsland
			}

			// Search all joints connect to this body.
			for _, je := range b.jointEdges {
				jb := je.Joint.base()
				if jb.islandFlag {
					continue
				}

				other := je.Other

				// Don't simulate joints connected to inactive bodies.
				if !other.IsActive() {
					continue
				}

				isl.addJoint(je.Joint)
				jb.islandFlag = true

				if other.flags&bodyIsland != 0 {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIsland
			}
		}

		isl.solve(&w.profile, step, w.gravity, w.allowSleep)

		// Post solve cleanup.
		for _, b := range isl.bodies {
			// Allow static bodies to participate in other islands.
			if b.bodyType == StaticBody {
				b.flags &^= bodyIsland
			}
		}
	}
	clear(stack[:cap(stack)])
	w.stack = stack[:0]

	mark := time.Now()

	// Synchronize fixtures, check for out of range bodies.
	for _, b := range w.bodies {
		// If a body was not in an island then it did not move.
		if b.flags&bodyIsland == 0 {
			continue
		}
		if b.bodyType == StaticBody {
			continue
		}

		// Update fixtures (for broad-phase).
		b.synchronizeFixtures()
	}

	// Look for new contacts.
	w.contactManager.findNewContacts()
	w.profile.Broadphase = time.Since(mark)
}

// computeTOI returns the time of impact of a contact in the current step, or
// false when the contact must not be considered.
func (w *World) computeTOI(c *Contact) (float64, bool) {
	if c.flags&contactTOI != 0 {
		// This contact has a valid cached TOI.
		return c.toi, true
	}

	fixtureA := c.fixtureA
	fixtureB := c.fixtureB

	// Is there a sensor?
	if fixtureA.isSensor || fixtureB.isSensor {
		return 0.0, false
	}

	bodyA := fixtureA.body
	bodyB := fixtureB.body

	activeA := bodyA.IsAwake() && bodyA.bodyType != StaticBody
	activeB := bodyB.IsAwake() && bodyB.bodyType != StaticBody

	// Is at least one body active (awake and dynamic or kinematic)?
	if !activeA && !activeB {
		return 0.0, false
	}

	collideA := bodyA.IsBullet() || bodyA.bodyType != DynamicBody
	collideB := bodyB.IsBullet() || bodyB.bodyType != DynamicBody

	// Are these two non-bullet dynamic bodies?
	if !collideA && !collideB {
		return 0.0, false
	}

	// Compute the TOI for this contact.
	// Put the sweeps onto the same time interval.
	alpha0 := bodyA.sweep.Alpha0

	if bodyA.sweep.Alpha0 < bodyB.sweep.Alpha0 {
		alpha0 = bodyB.sweep.Alpha0
		bodyA.sweep.Advance(alpha0)
	} else if bodyB.sweep.Alpha0 < bodyA.sweep.Alpha0 {
		alpha0 = bodyA.sweep.Alpha0
		bodyB.sweep.Advance(alpha0)
	}

	input := collision.TOIInput{
		SweepA: bodyA.sweep,
		SweepB: bodyB.sweep,
		TMax:   1.0,
	}
	input.ProxyA.Set(fixtureA.shape)
	input.ProxyB.Set(fixtureB.shape)

	output := collision.TimeOfImpact(&input)

	// Beta is the fraction of the remaining portion of the step.
	alpha := 1.0
	if output.State == collision.TOIStateTouching {
		alpha = math.Min(alpha0+(1.0-alpha0)*output.T, 1.0)
	}

	c.toi = alpha
	c.flags |= contactTOI

	return alpha, true
}

// solveTOI finds the earliest time of impact, advances its bodies there and
// solves the impact, until no impact remains in the step.
func (w *World) solveTOI(step constraint.TimeStep) {
	isl := &w.island
	isl.listener = w.contactListener

	if w.stepComplete {
		for _, b := range w.bodies {
			b.flags &^= bodyIsland
			b.sweep.Alpha0 = 0.0
		}

		for _, c := range w.contactManager.contacts {
			// Invalidate TOI
			c.flags &^= contactTOI | contactIsland
			c.toiCount = 0
			c.toi = 1.0
		}
	}

	// Find TOI events and solve them.
	for {
		// Find the first TOI.
		var minContact *Contact
		minAlpha := 1.0

		for _, c := range w.contactManager.contacts {
			// Is this contact disabled?
			if !c.IsEnabled() {
				continue
			}

			// Prevent excessive sub-stepping.
			if c.toiCount > geom.MaxSubSteps {
				continue
			}

			alpha, ok := w.computeTOI(c)
			if !ok {
				continue
			}

			if alpha < minAlpha {
				// This is the minimum TOI found so far.
				minContact = c
				minAlpha = alpha
			}
		}

		if minContact == nil || 1.0-10.0*geom.Epsilon < minAlpha {
			// No more TOI events. Done!
			w.stepComplete = true
			break
		}

		// Advance the bodies to the TOI.
		bodyA := minContact.fixtureA.body
		bodyB := minContact.fixtureB.body

		backup1 := bodyA.sweep
		backup2 := bodyB.sweep

		bodyA.advance(minAlpha)
		bodyB.advance(minAlpha)

		// The TOI contact likely has some new contact points.
		minContact.update(w)
		minContact.flags &^= contactTOI
		minContact.toiCount++

		// Is the contact solid?
		if !minContact.IsEnabled() || !minContact.IsTouching() {
			// Restore the sweeps.
			minContact.SetEnabled(false)
			bodyA.sweep = backup1
			bodyB.sweep = backup2
			bodyA.synchronizeTransform()
			bodyB.synchronizeTransform()
			continue
		}

		bodyA.SetAwake(true)
		bodyB.SetAwake(true)

		// Build the island
		isl.clear()
		isl.addBody(bodyA)
		isl.addBody(bodyB)
		isl.addContact(minContact)

		bodyA.flags |= bodyIsland
		bodyB.flags |= bodyIsland
		minContact.flags |= contactIsland

		// Get contacts on bodyA and bodyB.
		for _, body := range [2]*Body{bodyA, bodyB} {
			if body.bodyType == DynamicBody {
				w.collectTOIContacts(body, minAlpha)
			}
		}

		subStep := constraint.TimeStep{
			Dt:                 (1.0 - minAlpha) * step.Dt,
			DtRatio:            1.0,
			PositionIterations: toiPositionIterations,
			VelocityIterations: step.VelocityIterations,
			WarmStarting:       false,
		}
		subStep.InvDt = 1.0 / subStep.Dt
		isl.solveTOI(subStep, bodyA.islandIndex, bodyB.islandIndex)

		// Reset island flags and synchronize broad-phase proxies.
		for _, body := range isl.bodies {
			body.flags &^= bodyIsland

			if body.bodyType != DynamicBody {
				continue
			}

			body.synchronizeFixtures()

			// Invalidate all contact TOIs on this displaced body.
			for _, ce := range body.contactEdges {
				ce.Contact.flags &^= contactTOI | contactIsland
			}
		}

		// Commit fixture proxy movements to the broad-phase so that new contacts are created.
		// Also, some contacts can be destroyed.
		w.contactManager.findNewContacts()

		if w.subStepping {
			w.stepComplete = false
			break
		}
	}
}

// collectTOIContacts adds to the TOI island the touching contacts of body
// with static bodies and bullets, advancing the other bodies to alpha.
func (w *World) collectTOIContacts(body *Body, alpha float64) {
	isl := &w.island

	for _, ce := range body.contactEdges {
		if len(isl.bodies) == 2*geom.MaxTOIContacts || len(isl.contacts) == geom.MaxTOIContacts {
			break
		}

		c := ce.Contact

		// Has this contact already been added to the island?
		if c.flags&contactIsland != 0 {
			continue
		}

		// Only add static, kinematic, or bullet bodies.
		other := ce.Other
		if other.bodyType == DynamicBody && !body.IsBullet() && !other.IsBullet() {
			continue
		}

		// Skip sensors.
		if c.fixtureA.isSensor || c.fixtureB.isSensor {
			continue
		}

		// Tentatively advance the body to the TOI.
		backup := other.sweep
		if other.flags&bodyIsland == 0 {
			other.advance(alpha)
		}

		// Update the contact points.
		c.update(w)

		// Was the contact disabled by the user, or are there contact points?
		if !c.IsEnabled() || !c.IsTouching() {
			other.sweep = backup
			other.synchronizeTransform()
			continue
		}

		// Add the contact to the island
		c.flags |= contactIsland
		isl.addContact(c)

		// Has the other body already been added to the island?
		if other.flags&bodyIsland != 0 {
			continue
		}

		// Add the other body to the island.
		other.flags |= bodyIsland

		if other.bodyType != StaticBody {
			other.SetAwake(true)
		}

		isl.addBody(other)
	}
}

// checkBounds reports the active bodies whose fixtures left the bounds.
func (w *World) checkBounds() {
	if !w.hasBounds {
		return
	}

	for _, b := range w.bodies {
		if b.bodyType == StaticBody || !b.IsActive() || len(b.fixtures) == 0 {
			continue
		}

		aabb := b.fixtures[0].aabb
		for _, f := range b.fixtures[1:] {
			aabb = aabb.Combine(f.aabb)
		}

		if w.bounds.Contains(aabb) {
			continue
		}

		w.logf("plank: body at %v left the world bounds", b.GetPosition())
		if w.boundaryListener != nil {
			w.boundaryListener.Violation(b)
		}
		w.events.emitOutOfBounds(b)
	}
}

func (w *World) beginContact(c *Contact) {
	if w.contactListener != nil {
		w.contactListener.BeginContact(c)
	}
	w.events.emitBegin(c)
}

func (w *World) endContact(c *Contact) {
	if w.contactListener != nil {
		w.contactListener.EndContact(c)
	}
	w.events.emitEnd(c)
}

// ============================================================================
// Queries
// ============================================================================

// QueryAABB calls callback for every fixture whose fat AABB overlaps aabb.
func (w *World) QueryAABB(callback QueryCallback, aabb geom.AABB) {
	bp := w.contactManager.broadPhase
	bp.Query(func(proxyID int) bool {
		return callback(bp.GetUserData(proxyID).(*Fixture))
	}, aabb)
}

// RayCast calls callback for every fixture hit by the segment p1-p2. The
// callback return value clips or stops the cast, see RayCastCallback.
func (w *World) RayCast(callback RayCastCallback, p1, p2 mgl64.Vec2) {
	bp := w.contactManager.broadPhase
	input := geom.RayCastInput{P1: p1, P2: p2, MaxFraction: 1.0}

	bp.RayCast(func(subInput geom.RayCastInput, proxyID int) float64 {
		fixture := bp.GetUserData(proxyID).(*Fixture)

		output, hit := fixture.RayCast(subInput)
		if !hit {
			return subInput.MaxFraction
		}

		fraction := output.Fraction
		point := p1.Mul(1.0 - fraction).Add(p2.Mul(fraction))
		return callback(fixture, point, output.Normal, fraction)
	}, input)
}

// Ray is a segment for RayCastBatch.
type Ray struct {
	P1, P2 mgl64.Vec2
}

// RayHit is the closest hit of a ray. Hit is false when the ray touched nothing.
type RayHit struct {
	Fixture  *Fixture
	Point    mgl64.Vec2
	Normal   mgl64.Vec2
	Fraction float64
	Hit      bool
}

type rayJob struct {
	ray Ray
	hit *RayHit
}

// RayCastBatch finds the closest hit of each ray, spreading the rays over
// workers goroutines. The world must not be stepped or mutated meanwhile.
func (w *World) RayCastBatch(rays []Ray, workers int) []RayHit {
	hits := make([]RayHit, len(rays))
	jobs := make([]rayJob, len(rays))
	for i := range rays {
		jobs[i] = rayJob{ray: rays[i], hit: &hits[i]}
	}

	task(workers, jobs, func(job rayJob) {
		w.RayCast(func(fixture *Fixture, point, normal mgl64.Vec2, fraction float64) float64 {
			*job.hit = RayHit{
				Fixture:  fixture,
				Point:    point,
				Normal:   normal,
				Fraction: fraction,
				Hit:      true,
			}
			return fraction
		}, job.ray.P1, job.ray.P2)
	})

	return hits
}
