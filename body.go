package plank

import (
	"fmt"

	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// StaticBody has zero mass and zero velocity, and is moved only by hand.
	StaticBody BodyType = iota

	// KinematicBody has zero mass and a velocity set by the user. It is moved by
	// the solver but not affected by forces or collisions.
	KinematicBody

	// DynamicBody has a positive mass and is moved by forces and collisions.
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	default:
		return fmt.Sprintf("BodyType(%d)", int(t))
	}
}

// BodyDef holds what is needed to construct a body. It can be reused.
type BodyDef struct {
	Type BodyType

	// Position is the world position of the body origin.
	Position mgl64.Vec2
	// Angle is the world angle in radians.
	Angle float64

	LinearVelocity  mgl64.Vec2
	AngularVelocity float64

	LinearDamping  float64
	AngularDamping float64

	// AllowSleep set to false keeps the body awake, at a CPU cost.
	AllowSleep bool
	Awake      bool

	// FixedRotation prevents the body from rotating. Useful for characters.
	FixedRotation bool
	// Bullet enables continuous collision against other dynamic bodies.
	Bullet bool
	Active bool

	GravityScale float64

	UserData any
}

// NewBodyDef returns a definition for an awake, active static body at the origin.
func NewBodyDef() BodyDef {
	return BodyDef{
		Type:         StaticBody,
		AllowSleep:   true,
		Awake:        true,
		Active:       true,
		GravityScale: 1.0,
	}
}

func (def *BodyDef) validate() error {
	if !geom.IsValidVec(def.Position) || !geom.IsValidVec(def.LinearVelocity) {
		return fmt.Errorf("%w: body position and velocity must be finite", ErrInvalidDefinition)
	}
	if !geom.IsValidFloat(def.Angle) || !geom.IsValidFloat(def.AngularVelocity) {
		return fmt.Errorf("%w: body angle and angular velocity must be finite", ErrInvalidDefinition)
	}
	if def.LinearDamping < 0 || def.AngularDamping < 0 {
		return fmt.Errorf("%w: damping must not be negative", ErrInvalidDefinition)
	}
	return nil
}

type bodyFlags uint16

const (
	bodyIsland bodyFlags = 1 << iota
	bodyAwake
	bodyAutoSleep
	bodyBullet
	bodyFixedRotation
	bodyActive
)

// ContactEdge connects a body to one of its contacts and to the other body.
type ContactEdge struct {
	Other   *Body
	Contact *Contact
}

// JointEdge connects a body to one of its joints and to the other body.
type JointEdge struct {
	Other *Body
	Joint Joint
}

// Body is a rigid body. Bodies are created and destroyed through the World.
type Body struct {
	bodyType BodyType
	flags    bodyFlags

	islandIndex int

	// xf is the body origin transform.
	xf geom.Transform
	// sweep is the swept motion of the center of mass, for continuous collision.
	sweep geom.Sweep

	linearVelocity  mgl64.Vec2
	angularVelocity float64

	force  mgl64.Vec2
	torque float64

	world *World

	fixtures     []*Fixture
	jointEdges   []JointEdge
	contactEdges []ContactEdge

	mass, invMass float64
	// i is the rotational inertia about the center of mass.
	i, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	UserData any
}

func newBody(def *BodyDef, world *World) *Body {
	b := &Body{
		bodyType:        def.Type,
		world:           world,
		linearVelocity:  def.LinearVelocity,
		angularVelocity: def.AngularVelocity,
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		gravityScale:    def.GravityScale,
		UserData:        def.UserData,
	}

	if def.Bullet {
		b.flags |= bodyBullet
	}
	if def.FixedRotation {
		b.flags |= bodyFixedRotation
	}
	if def.AllowSleep {
		b.flags |= bodyAutoSleep
	}
	if def.Awake {
		b.flags |= bodyAwake
	}
	if def.Active {
		b.flags |= bodyActive
	}

	b.xf = geom.MakeTransform(def.Position, def.Angle)

	b.sweep.C0 = b.xf.P
	b.sweep.C = b.xf.P
	b.sweep.A0 = def.Angle
	b.sweep.A = def.Angle

	if b.bodyType == DynamicBody {
		b.mass = 1.0
		b.invMass = 1.0
	}

	return b
}

// ============================================================================
// Accessors
// ============================================================================

func (b *Body) GetType() BodyType {
	return b.bodyType
}

func (b *Body) GetWorld() *World {
	return b.world
}

// GetTransform returns the body origin transform.
func (b *Body) GetTransform() geom.Transform {
	return b.xf
}

// GetPosition returns the world position of the body origin.
func (b *Body) GetPosition() mgl64.Vec2 {
	return b.xf.P
}

func (b *Body) GetAngle() float64 {
	return b.sweep.A
}

// GetWorldCenter returns the world position of the center of mass.
func (b *Body) GetWorldCenter() mgl64.Vec2 {
	return b.sweep.C
}

// GetLocalCenter returns the local position of the center of mass.
func (b *Body) GetLocalCenter() mgl64.Vec2 {
	return b.sweep.LocalCenter
}

// GetSweep returns a copy of the swept motion used for continuous collision.
func (b *Body) GetSweep() geom.Sweep {
	return b.sweep
}

func (b *Body) GetLinearVelocity() mgl64.Vec2 {
	return b.linearVelocity
}

// SetLinearVelocity sets the velocity of the center of mass. It is ignored on
// static bodies.
func (b *Body) SetLinearVelocity(v mgl64.Vec2) {
	if b.bodyType == StaticBody {
		return
	}
	if v.Dot(v) > 0.0 {
		b.SetAwake(true)
	}
	b.linearVelocity = v
}

func (b *Body) GetAngularVelocity() float64 {
	return b.angularVelocity
}

func (b *Body) SetAngularVelocity(w float64) {
	if b.bodyType == StaticBody {
		return
	}
	if w*w > 0.0 {
		b.SetAwake(true)
	}
	b.angularVelocity = w
}

func (b *Body) GetMass() float64 {
	return b.mass
}

// GetInertia returns the rotational inertia about the body origin.
func (b *Body) GetInertia() float64 {
	return b.i + b.mass*b.sweep.LocalCenter.Dot(b.sweep.LocalCenter)
}

// GetMassData returns the mass, the local center of mass and the rotational
// inertia about the body origin.
func (b *Body) GetMassData() shape.MassData {
	return shape.MassData{
		Mass:   b.mass,
		Center: b.sweep.LocalCenter,
		I:      b.GetInertia(),
	}
}

func (b *Body) GetLinearDamping() float64 {
	return b.linearDamping
}

func (b *Body) SetLinearDamping(linearDamping float64) {
	b.linearDamping = linearDamping
}

func (b *Body) GetAngularDamping() float64 {
	return b.angularDamping
}

func (b *Body) SetAngularDamping(angularDamping float64) {
	b.angularDamping = angularDamping
}

func (b *Body) GetGravityScale() float64 {
	return b.gravityScale
}

func (b *Body) SetGravityScale(scale float64) {
	b.gravityScale = scale
}

// GetFixtures returns the fixtures attached to the body. The slice must not be modified.
func (b *Body) GetFixtures() []*Fixture {
	return b.fixtures
}

// GetJointEdges returns the joints attached to the body. The slice must not be modified.
func (b *Body) GetJointEdges() []JointEdge {
	return b.jointEdges
}

// GetContactEdges returns the contacts of the body. The slice must not be modified.
func (b *Body) GetContactEdges() []ContactEdge {
	return b.contactEdges
}

// ============================================================================
// Coordinates
// ============================================================================

// GetWorldPoint maps a point from body space to world space.
func (b *Body) GetWorldPoint(localPoint mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Apply(localPoint)
}

// GetWorldVector rotates a vector from body space to world space.
func (b *Body) GetWorldVector(localVector mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Q.Rotate(localVector)
}

func (b *Body) GetLocalPoint(worldPoint mgl64.Vec2) mgl64.Vec2 {
	return b.xf.ApplyInv(worldPoint)
}

func (b *Body) GetLocalVector(worldVector mgl64.Vec2) mgl64.Vec2 {
	return b.xf.Q.InvRotate(worldVector)
}

// GetLinearVelocityFromWorldPoint returns the velocity of a world point attached to the body.
func (b *Body) GetLinearVelocityFromWorldPoint(worldPoint mgl64.Vec2) mgl64.Vec2 {
	return b.linearVelocity.Add(geom.CrossSV(b.angularVelocity, worldPoint.Sub(b.sweep.C)))
}

func (b *Body) GetLinearVelocityFromLocalPoint(localPoint mgl64.Vec2) mgl64.Vec2 {
	return b.GetLinearVelocityFromWorldPoint(b.GetWorldPoint(localPoint))
}

// ============================================================================
// Flags
// ============================================================================

func (b *Body) SetBullet(flag bool) {
	if flag {
		b.flags |= bodyBullet
	} else {
		b.flags &^= bodyBullet
	}
}

func (b *Body) IsBullet() bool {
	return b.flags&bodyBullet != 0
}

// SetAwake wakes the body up, or puts it to sleep. A sleeping body has zero
// velocity and no accumulated force.
func (b *Body) SetAwake(flag bool) {
	if flag {
		if b.flags&bodyAwake == 0 {
			b.flags |= bodyAwake
			b.sleepTime = 0.0
		}
		return
	}

	b.flags &^= bodyAwake
	b.sleepTime = 0.0
	b.linearVelocity = mgl64.Vec2{}
	b.angularVelocity = 0.0
	b.force = mgl64.Vec2{}
	b.torque = 0.0
}

func (b *Body) IsAwake() bool {
	return b.flags&bodyAwake != 0
}

func (b *Body) IsActive() bool {
	return b.flags&bodyActive != 0
}

func (b *Body) IsFixedRotation() bool {
	return b.flags&bodyFixedRotation != 0
}

func (b *Body) SetSleepingAllowed(flag bool) {
	if flag {
		b.flags |= bodyAutoSleep
		return
	}
	b.flags &^= bodyAutoSleep
	b.SetAwake(true)
}

func (b *Body) IsSleepingAllowed() bool {
	return b.flags&bodyAutoSleep != 0
}

// SetFixedRotation locks the rotation and recomputes the mass.
func (b *Body) SetFixedRotation(flag bool) {
	if b.IsFixedRotation() == flag {
		return
	}

	if flag {
		b.flags |= bodyFixedRotation
	} else {
		b.flags &^= bodyFixedRotation
	}

	b.angularVelocity = 0.0
	b.ResetMassData()
}

// ============================================================================
// Forces
// ============================================================================

// ApplyForce applies a world force at a world point. Forces on a sleeping body
// are dropped unless wake is set.
func (b *Body) ApplyForce(force, point mgl64.Vec2, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.force = b.force.Add(force)
	b.torque += geom.Cross(point.Sub(b.sweep.C), force)
}

func (b *Body) ApplyForceToCenter(force mgl64.Vec2, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.force = b.force.Add(force)
}

func (b *Body) ApplyTorque(torque float64, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.torque += torque
}

// ApplyLinearImpulse changes the velocity immediately.
func (b *Body) ApplyLinearImpulse(impulse, point mgl64.Vec2, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	b.angularVelocity += b.invI * geom.Cross(point.Sub(b.sweep.C), impulse)
}

func (b *Body) ApplyLinearImpulseToCenter(impulse mgl64.Vec2, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
}

func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if !b.prepareForce(wake) {
		return
	}
	b.angularVelocity += b.invI * impulse
}

// prepareForce reports whether a force or impulse can be accumulated.
func (b *Body) prepareForce(wake bool) bool {
	if b.bodyType != DynamicBody {
		return false
	}
	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}
	return b.IsAwake()
}

// ============================================================================
// Structure
// ============================================================================

// CreateFixture attaches a shape to the body. The shape is cloned. Contacts for
// the new fixture are created at the beginning of the next step.
func (b *Body) CreateFixture(def *FixtureDef) (*Fixture, error) {
	if b.world == nil {
		return nil, ErrDestroyed
	}
	if b.world.IsLocked() {
		return nil, b.world.rejectLocked("CreateFixture")
	}
	if def == nil || def.Shape == nil {
		return nil, fmt.Errorf("%w: fixture needs a shape", ErrInvalidDefinition)
	}
	if def.Density < 0 || def.Friction < 0 {
		return nil, fmt.Errorf("%w: density and friction must not be negative", ErrInvalidDefinition)
	}

	fixture := newFixture(b, def)

	if b.IsActive() {
		fixture.createProxy(b.world.contactManager.broadPhase, b.xf)
	}

	b.fixtures = append(b.fixtures, fixture)

	// Adjust mass properties if needed.
	if fixture.density > 0.0 {
		b.ResetMassData()
	}

	// Let the world know we have a new fixture. This will cause new contacts
	// to be created at the beginning of the next time step.
	b.world.flags |= worldNewFixture

	return fixture, nil
}

// CreateFixtureFromShape is a shortcut for a fixture with default material.
func (b *Body) CreateFixtureFromShape(s shape.Shape, density float64) (*Fixture, error) {
	def := NewFixtureDef()
	def.Shape = s
	def.Density = density
	return b.CreateFixture(&def)
}

// DestroyFixture detaches a fixture, destroys its contacts and resets the mass.
func (b *Body) DestroyFixture(fixture *Fixture) error {
	if b.world == nil || fixture == nil || fixture.body == nil {
		return ErrDestroyed
	}
	if b.world.IsLocked() {
		return b.world.rejectLocked("DestroyFixture")
	}
	if fixture.body != b {
		return fmt.Errorf("%w: fixture belongs to another body", ErrInvalidDefinition)
	}

	k := -1
	for i, f := range b.fixtures {
		if f == fixture {
			k = i
			break
		}
	}
	if k == -1 {
		return ErrDestroyed
	}
	b.fixtures = append(b.fixtures[:k], b.fixtures[k+1:]...)

	// Destroy any contacts associated with the fixture.
	for i := len(b.contactEdges) - 1; i >= 0; i-- {
		if i >= len(b.contactEdges) {
			continue
		}
		c := b.contactEdges[i].Contact
		if c.fixtureA == fixture || c.fixtureB == fixture {
			b.world.contactManager.destroy(c)
		}
	}

	if b.IsActive() {
		fixture.destroyProxy(b.world.contactManager.broadPhase)
	}

	fixture.body = nil
	b.ResetMassData()
	return nil
}

// ResetMassData recomputes the mass from the fixture densities. Static and
// kinematic bodies have zero mass; a dynamic body with no mass gets a mass of one.
func (b *Body) ResetMassData() {
	b.mass = 0.0
	b.invMass = 0.0
	b.i = 0.0
	b.invI = 0.0
	b.sweep.LocalCenter = mgl64.Vec2{}

	if b.bodyType == StaticBody || b.bodyType == KinematicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	// Accumulate mass over all fixtures.
	localCenter := mgl64.Vec2{}
	for _, f := range b.fixtures {
		if f.density == 0.0 {
			continue
		}

		massData := f.GetMassData()
		b.mass += massData.Mass
		localCenter = localCenter.Add(massData.Center.Mul(massData.Mass))
		b.i += massData.I
	}

	// Compute center of mass.
	if b.mass > 0.0 {
		b.invMass = 1.0 / b.mass
		localCenter = localCenter.Mul(b.invMass)
	} else {
		// Force all dynamic bodies to have a positive mass.
		b.mass = 1.0
		b.invMass = 1.0
	}

	if b.i > 0.0 && !b.IsFixedRotation() {
		// Center the inertia about the center of mass.
		b.i -= b.mass * localCenter.Dot(localCenter)
		b.invI = 1.0 / b.i
	} else {
		b.i = 0.0
		b.invI = 0.0
	}

	b.moveCenter(localCenter)
}

// SetMassData overrides the mass computed from the fixtures. I is the inertia
// about the body origin. It only applies to dynamic bodies.
func (b *Body) SetMassData(massData shape.MassData) error {
	if b.world != nil && b.world.IsLocked() {
		return b.world.rejectLocked("SetMassData")
	}
	if b.bodyType != DynamicBody {
		return nil
	}

	b.invMass = 0.0
	b.i = 0.0
	b.invI = 0.0

	b.mass = massData.Mass
	if b.mass <= 0.0 {
		b.mass = 1.0
	}
	b.invMass = 1.0 / b.mass

	if massData.I > 0.0 && !b.IsFixedRotation() {
		b.i = massData.I - b.mass*massData.Center.Dot(massData.Center)
		if b.i > 0.0 {
			b.invI = 1.0 / b.i
		} else {
			b.i = 0.0
		}
	}

	b.moveCenter(massData.Center)
	return nil
}

// moveCenter moves the center of mass and keeps the velocity of the body
// origin unchanged.
func (b *Body) moveCenter(localCenter mgl64.Vec2) {
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.Apply(localCenter)
	b.sweep.C0 = b.sweep.C

	b.linearVelocity = b.linearVelocity.Add(geom.CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// SetTransform teleports the body origin. Contacts are updated on the next step.
func (b *Body) SetTransform(position mgl64.Vec2, angle float64) error {
	if b.world == nil {
		return ErrDestroyed
	}
	if b.world.IsLocked() {
		return b.world.rejectLocked("SetTransform")
	}

	b.xf = geom.MakeTransform(position, angle)

	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.A = angle

	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	for _, f := range b.fixtures {
		f.synchronize(b.world.contactManager.broadPhase, b.xf, b.xf)
	}
	return nil
}

// SetType changes the body type, recomputes the mass and drops the contacts,
// which are recreated on the next step.
func (b *Body) SetType(bodyType BodyType) error {
	if b.world == nil {
		return ErrDestroyed
	}
	if b.world.IsLocked() {
		return b.world.rejectLocked("SetType")
	}
	if b.bodyType == bodyType {
		return nil
	}

	b.bodyType = bodyType
	b.ResetMassData()

	if b.bodyType == StaticBody {
		b.linearVelocity = mgl64.Vec2{}
		b.angularVelocity = 0.0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		b.synchronizeFixtures()
	}

	b.SetAwake(true)

	b.force = mgl64.Vec2{}
	b.torque = 0.0

	b.destroyContacts()

	// Touch the proxies so that new contacts will be created (when appropriate).
	for _, f := range b.fixtures {
		if f.proxyID != nullProxy {
			b.world.contactManager.broadPhase.TouchProxy(f.proxyID)
		}
	}
	return nil
}

// SetActive adds or removes the body from the simulation. An inactive body
// keeps its fixtures and joints but has no proxies and no contacts.
func (b *Body) SetActive(flag bool) error {
	if b.world == nil {
		return ErrDestroyed
	}
	if b.world.IsLocked() {
		return b.world.rejectLocked("SetActive")
	}
	if flag == b.IsActive() {
		return nil
	}

	broadPhase := b.world.contactManager.broadPhase
	if flag {
		b.flags |= bodyActive

		// Contacts are created the next time step.
		for _, f := range b.fixtures {
			f.createProxy(broadPhase, b.xf)
		}
		return nil
	}

	b.flags &^= bodyActive

	for _, f := range b.fixtures {
		f.destroyProxy(broadPhase)
	}
	b.destroyContacts()
	return nil
}

// ShouldCollide tells whether this body may touch other. At least one body
// must be dynamic and no joint between them may forbid it.
func (b *Body) ShouldCollide(other *Body) bool {
	if b.bodyType != DynamicBody && other.bodyType != DynamicBody {
		return false
	}

	for _, je := range b.jointEdges {
		if je.Other == other && !je.Joint.GetCollideConnected() {
			return false
		}
	}
	return true
}

// ============================================================================
// Internal
// ============================================================================

func (b *Body) destroyContacts() {
	for len(b.contactEdges) > 0 {
		b.world.contactManager.destroy(b.contactEdges[0].Contact)
	}
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = geom.NewRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.Rotate(b.sweep.LocalCenter))
}

// synchronizeFixtures moves the proxies to cover the swept motion of the step.
func (b *Body) synchronizeFixtures() {
	xf1 := geom.Transform{Q: geom.NewRot(b.sweep.A0)}
	xf1.P = b.sweep.C0.Sub(xf1.Q.Rotate(b.sweep.LocalCenter))

	for _, f := range b.fixtures {
		f.synchronize(b.world.contactManager.broadPhase, xf1, b.xf)
	}
}

// advance moves the body to the safe time alpha of the current step. It
// doesn't sync the broad phase.
func (b *Body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.synchronizeTransform()
}

func (b *Body) addContactEdge(other *Body, c *Contact) {
	b.contactEdges = append(b.contactEdges, ContactEdge{Other: other, Contact: c})
}

func (b *Body) removeContactEdge(c *Contact) {
	for i, ce := range b.contactEdges {
		if ce.Contact == c {
			b.contactEdges = append(b.contactEdges[:i], b.contactEdges[i+1:]...)
			return
		}
	}
}

func (b *Body) addJointEdge(other *Body, j Joint) {
	b.jointEdges = append(b.jointEdges, JointEdge{Other: other, Joint: j})
}

func (b *Body) removeJointEdge(j Joint) {
	for i, je := range b.jointEdges {
		if je.Joint == j {
			b.jointEdges = append(b.jointEdges[:i], b.jointEdges[i+1:]...)
			return
		}
	}
}
