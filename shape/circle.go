package shape

import (
	"math"

	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Circle represents a solid circle centered on P in body coordinates.
type Circle struct {
	P      mgl64.Vec2
	Radius float64
}

// NewCircle creates a circle of the given radius centered on the body origin.
func NewCircle(radius float64) *Circle {
	return &Circle{Radius: radius}
}

func (c *Circle) GetType() Type {
	return TypeCircle
}

func (c *Circle) GetRadius() float64 {
	return c.Radius
}

func (c *Circle) Clone() Shape {
	clone := *c
	return &clone
}

func (c *Circle) TestPoint(xf geom.Transform, p mgl64.Vec2) bool {
	center := xf.Apply(c.P)
	d := p.Sub(center)
	return d.Dot(d) <= c.Radius*c.Radius
}

// RayCast intersects the ray with the circle boundary.
// x = s + a * r
// norm(x) = radius
func (c *Circle) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	position := xf.Apply(c.P)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.Radius*c.Radius

	// Solve quadratic equation.
	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	// Check for negative discriminant and short segment.
	if sigma < 0.0 || rr < geom.Epsilon {
		return geom.RayCastOutput{}, false
	}

	// Find the point of intersection of the line with the circle.
	a := -(cc + math.Sqrt(sigma))

	// Is the intersection point on the segment?
	if 0.0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		normal, _ := geom.Normalize(s.Add(r.Mul(a)))
		return geom.RayCastOutput{Normal: normal, Fraction: a}, true
	}

	return geom.RayCastOutput{}, false
}

func (c *Circle) ComputeAABB(xf geom.Transform) geom.AABB {
	p := xf.Apply(c.P)
	r := mgl64.Vec2{c.Radius, c.Radius}
	return geom.AABB{LowerBound: p.Sub(r), UpperBound: p.Add(r)}
}

// ComputeMass calculates mass data for the circle
func (c *Circle) ComputeMass(density float64) MassData {
	rr := c.Radius * c.Radius
	mass := density * math.Pi * rr

	// inertia about the local origin
	return MassData{
		Mass:   mass,
		Center: c.P,
		I:      mass * (0.5*rr + c.P.Dot(c.P)),
	}
}
