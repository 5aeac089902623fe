package plank

import (
	"github.com/akmonengine/plank/broadphase"
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

const nullProxy = broadphase.NullNode

// Filter holds the collision filtering data of a fixture.
type Filter struct {
	// CategoryBits are the collision categories of the fixture.
	CategoryBits uint16
	// MaskBits are the categories the fixture accepts to collide with.
	MaskBits uint16
	// GroupIndex overrides the bits: fixtures sharing a positive group always
	// collide, fixtures sharing a negative group never do.
	GroupIndex int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{
		CategoryBits: 0x0001,
		MaskBits:     0xFFFF,
		GroupIndex:   0,
	}
}

// FixtureDef is used to create a fixture. The shape is cloned on creation.
type FixtureDef struct {
	Shape shape.Shape

	Friction    float64
	Restitution float64
	// Density in kg/m², used to compute the body mass.
	Density float64

	// IsSensor fixtures report overlaps but never generate a response.
	IsSensor bool

	Filter Filter

	UserData any
}

func NewFixtureDef() FixtureDef {
	return FixtureDef{
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// Fixture attaches a shape to a body, with its material and filtering data.
type Fixture struct {
	body  *Body
	shape shape.Shape

	density     float64
	friction    float64
	restitution float64

	isSensor bool
	filter   Filter

	proxyID int
	// aabb is the tight bounds of the shape at the last synchronization.
	aabb geom.AABB

	UserData any
}

func newFixture(body *Body, def *FixtureDef) *Fixture {
	return &Fixture{
		body:        body,
		shape:       def.Shape.Clone(),
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		isSensor:    def.IsSensor,
		filter:      def.Filter,
		proxyID:     nullProxy,
		UserData:    def.UserData,
	}
}

func (f *Fixture) GetType() shape.Type {
	return f.shape.GetType()
}

// GetShape returns the fixture's own shape. It must not be modified.
func (f *Fixture) GetShape() shape.Shape {
	return f.shape
}

// GetBody returns the parent body, or nil once the fixture was destroyed.
func (f *Fixture) GetBody() *Body {
	return f.body
}

func (f *Fixture) IsSensor() bool {
	return f.isSensor
}

// SetSensor changes the sensor flag and wakes the body.
func (f *Fixture) SetSensor(sensor bool) {
	if sensor == f.isSensor {
		return
	}
	f.isSensor = sensor
	if f.body != nil {
		f.body.SetAwake(true)
	}
}

func (f *Fixture) GetDensity() float64 {
	return f.density
}

// SetDensity changes the density. Body.ResetMassData must be called to update the mass.
func (f *Fixture) SetDensity(density float64) {
	f.density = density
}

func (f *Fixture) GetFriction() float64 {
	return f.friction
}

// SetFriction doesn't change the friction of existing contacts.
func (f *Fixture) SetFriction(friction float64) {
	f.friction = friction
}

func (f *Fixture) GetRestitution() float64 {
	return f.restitution
}

func (f *Fixture) SetRestitution(restitution float64) {
	f.restitution = restitution
}

func (f *Fixture) GetFilterData() Filter {
	return f.filter
}

// SetFilterData changes the filter and flags the contacts of the fixture for
// filtering on the next step.
func (f *Fixture) SetFilterData(filter Filter) {
	f.filter = filter
	f.Refilter()
}

// Refilter flags the contacts of the fixture for filtering and touches the
// proxy so that new pairs are found.
func (f *Fixture) Refilter() {
	if f.body == nil {
		return
	}

	for _, ce := range f.body.contactEdges {
		c := ce.Contact
		if c.fixtureA == f || c.fixtureB == f {
			c.flagForFiltering()
		}
	}

	world := f.body.world
	if world == nil || f.proxyID == nullProxy {
		return
	}
	world.contactManager.broadPhase.TouchProxy(f.proxyID)
}

// GetMassData computes the mass properties of the shape from the density.
func (f *Fixture) GetMassData() shape.MassData {
	return f.shape.ComputeMass(f.density)
}

// GetAABB returns the tight bounds of the shape at the last synchronization.
func (f *Fixture) GetAABB() geom.AABB {
	return f.aabb
}

// TestPoint reports whether a world point is inside the fixture's shape.
func (f *Fixture) TestPoint(p mgl64.Vec2) bool {
	return f.shape.TestPoint(f.body.xf, p)
}

// RayCast casts a world ray against the fixture's shape.
func (f *Fixture) RayCast(input geom.RayCastInput) (geom.RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.xf)
}

func (f *Fixture) createProxy(bp *broadphase.BroadPhase, xf geom.Transform) {
	f.aabb = f.shape.ComputeAABB(xf)
	f.proxyID = bp.CreateProxy(f.aabb, f)
}

func (f *Fixture) destroyProxy(bp *broadphase.BroadPhase) {
	if f.proxyID == nullProxy {
		return
	}
	bp.DestroyProxy(f.proxyID)
	f.proxyID = nullProxy
}

// synchronize covers the motion between the two transforms with the proxy.
func (f *Fixture) synchronize(bp *broadphase.BroadPhase, xf1, xf2 geom.Transform) {
	if f.proxyID == nullProxy {
		return
	}

	aabb1 := f.shape.ComputeAABB(xf1)
	aabb2 := f.shape.ComputeAABB(xf2)
	f.aabb = aabb1.Combine(aabb2)

	bp.MoveProxy(f.proxyID, f.aabb, xf2.P.Sub(xf1.P))
}
