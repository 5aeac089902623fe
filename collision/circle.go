package collision

import (
	"math"

	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// CollideCircles computes the manifold between two circles. The circles touch
// when the distance between their centers is at most the sum of their radii.
func CollideCircles(manifold *Manifold, circleA *shape.Circle, xfA geom.Transform, circleB *shape.Circle, xfB geom.Transform) {
	manifold.PointCount = 0

	pA := xfA.Apply(circleA.P)
	pB := xfB.Apply(circleB.P)

	distSqr := geom.DistanceSquared(pA, pB)
	radius := circleA.Radius + circleB.Radius
	if distSqr > radius*radius {
		return
	}

	manifold.Type = ManifoldCircles
	manifold.LocalPoint = circleA.P
	manifold.LocalNormal = mgl64.Vec2{}
	manifold.PointCount = 1

	manifold.Points[0].LocalPoint = circleB.P
	manifold.Points[0].ID = ContactID{}
}

// CollidePolygonAndCircle computes the manifold between a polygon (A) and a circle (B).
func CollidePolygonAndCircle(manifold *Manifold, polygonA *shape.Polygon, xfA geom.Transform, circleB *shape.Circle, xfB geom.Transform) {
	manifold.PointCount = 0

	// Compute circle position in the frame of the polygon.
	c := xfB.Apply(circleB.P)
	cLocal := xfA.ApplyInv(c)

	// Find the min separating edge.
	normalIndex := 0
	separation := -math.MaxFloat64
	radius := polygonA.Radius + circleB.Radius
	vertexCount := polygonA.Count
	vertices := &polygonA.Vertices
	normals := &polygonA.Normals

	for i := 0; i < vertexCount; i++ {
		s := normals[i].Dot(cLocal.Sub(vertices[i]))

		if s > radius {
			// Early out.
			return
		}

		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// Vertices that subtend the incident face.
	vertIndex1 := normalIndex
	vertIndex2 := vertIndex1 + 1
	if vertIndex2 >= vertexCount {
		vertIndex2 = 0
	}
	v1 := vertices[vertIndex1]
	v2 := vertices[vertIndex2]

	// If the center is inside the polygon ...
	if separation < geom.Epsilon {
		manifold.PointCount = 1
		manifold.Type = ManifoldFaceA
		manifold.LocalNormal = normals[normalIndex]
		manifold.LocalPoint = v1.Add(v2).Mul(0.5)
		manifold.Points[0].LocalPoint = circleB.P
		manifold.Points[0].ID = ContactID{}
		return
	}

	// Compute barycentric coordinates
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0.0:
		if geom.DistanceSquared(cLocal, v1) > radius*radius {
			return
		}

		manifold.PointCount = 1
		manifold.Type = ManifoldFaceA
		manifold.LocalNormal, _ = geom.Normalize(cLocal.Sub(v1))
		manifold.LocalPoint = v1

	case u2 <= 0.0:
		if geom.DistanceSquared(cLocal, v2) > radius*radius {
			return
		}

		manifold.PointCount = 1
		manifold.Type = ManifoldFaceA
		manifold.LocalNormal, _ = geom.Normalize(cLocal.Sub(v2))
		manifold.LocalPoint = v2

	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		separation = cLocal.Sub(faceCenter).Dot(normals[vertIndex1])
		if separation > radius {
			return
		}

		manifold.PointCount = 1
		manifold.Type = ManifoldFaceA
		manifold.LocalNormal = normals[vertIndex1]
		manifold.LocalPoint = faceCenter
	}

	manifold.Points[0].LocalPoint = circleB.P
	manifold.Points[0].ID = ContactID{}
}
