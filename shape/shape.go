// Package shape defines the collision geometry attached to bodies: circles and
// convex polygons. Shapes are expressed in body-local coordinates and are
// immutable once attached to a fixture (fixtures hold their own clone).
package shape

import (
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Type represents the kind of collision shape
type Type int

const (
	TypeCircle Type = iota
	TypePolygon
	// TypeCount is the number of shape kinds, used to size dispatch tables.
	TypeCount
)

func (t Type) String() string {
	switch t {
	case TypeCircle:
		return "circle"
	case TypePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// MassData holds the mass properties computed from a shape and a density.
type MassData struct {
	Mass float64
	// Center is the center of mass relative to the shape origin.
	Center mgl64.Vec2
	// I is the rotational inertia about the shape origin.
	I float64
}

// Shape is the interface that all collision shapes must implement
type Shape interface {
	GetType() Type
	// GetRadius returns the skin radius: the circle radius, or the polygon rounding.
	GetRadius() float64
	// Clone returns a deep copy that does not share storage with the receiver.
	Clone() Shape
	// TestPoint reports whether the world point p lies inside the shape placed at xf.
	TestPoint(xf geom.Transform, p mgl64.Vec2) bool
	// RayCast casts a world-space ray against the shape placed at xf.
	RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool)
	// ComputeAABB returns the tight world bounds of the shape placed at xf.
	ComputeAABB(xf geom.Transform) geom.AABB
	// ComputeMass calculates mass data for the shape given a density
	ComputeMass(density float64) MassData
}
