package collision

import (
	"math"

	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
)

// Tolerances used to prefer polygon A as the reference polygon, which keeps the
// reference face stable when both separations are nearly equal.
const (
	relativeTolerance = 0.98
	absoluteTolerance = 0.001
)

// edgeSeparation returns the separation between the edge edge1 of poly1 and the
// deepest vertex of poly2 along the edge normal.
func edgeSeparation(poly1 *shape.Polygon, xf1 geom.Transform, edge1 int, poly2 *shape.Polygon, xf2 geom.Transform) float64 {
	// Convert normal from poly1's frame into poly2's frame.
	normal1World := xf1.Q.Rotate(poly1.Normals[edge1])
	normal1 := xf2.Q.InvRotate(normal1World)

	// Find support vertex on poly2 for -normal.
	index := 0
	minDot := math.MaxFloat64
	for i := 0; i < poly2.Count; i++ {
		dot := poly2.Vertices[i].Dot(normal1)
		if dot < minDot {
			minDot = dot
			index = i
		}
	}

	v1 := xf1.Apply(poly1.Vertices[edge1])
	v2 := xf2.Apply(poly2.Vertices[index])
	return v2.Sub(v1).Dot(normal1World)
}

// findMaxSeparation finds the edge of poly1 with the largest separation from
// poly2. It starts from the edge facing poly2's centroid and hill climbs
// through the neighbors, which is exact for convex polygons.
func findMaxSeparation(poly1 *shape.Polygon, xf1 geom.Transform, poly2 *shape.Polygon, xf2 geom.Transform) (int, float64) {
	count1 := poly1.Count

	// Vector pointing from the centroid of poly1 to the centroid of poly2.
	d := xf2.Apply(poly2.Centroid).Sub(xf1.Apply(poly1.Centroid))
	dLocal1 := xf1.Q.InvRotate(d)

	// Find edge normal on poly1 that has the largest projection onto d.
	edge := 0
	maxDot := -math.MaxFloat64
	for i := 0; i < count1; i++ {
		dot := poly1.Normals[i].Dot(dLocal1)
		if dot > maxDot {
			maxDot = dot
			edge = i
		}
	}

	// Get the separation for the edge normal.
	s := edgeSeparation(poly1, xf1, edge, poly2, xf2)

	// Check the separation for the previous edge normal.
	prevEdge := edge - 1
	if prevEdge < 0 {
		prevEdge = count1 - 1
	}
	sPrev := edgeSeparation(poly1, xf1, prevEdge, poly2, xf2)

	// Check the separation for the next edge normal.
	nextEdge := edge + 1
	if nextEdge >= count1 {
		nextEdge = 0
	}
	sNext := edgeSeparation(poly1, xf1, nextEdge, poly2, xf2)

	// Find the best edge and the search direction.
	var bestEdge, increment int
	var bestSeparation float64
	switch {
	case sPrev > s && sPrev > sNext:
		increment = -1
		bestEdge = prevEdge
		bestSeparation = sPrev
	case sNext > s:
		increment = 1
		bestEdge = nextEdge
		bestSeparation = sNext
	default:
		return edge, s
	}

	// Perform a local search for the best edge normal.
	for {
		if increment == -1 {
			edge = bestEdge - 1
			if edge < 0 {
				edge = count1 - 1
			}
		} else {
			edge = bestEdge + 1
			if edge >= count1 {
				edge = 0
			}
		}

		s = edgeSeparation(poly1, xf1, edge, poly2, xf2)
		if s > bestSeparation {
			bestEdge = edge
			bestSeparation = s
		} else {
			break
		}
	}

	return bestEdge, bestSeparation
}

// findIncidentEdge returns the edge of poly2 most anti-parallel to the reference
// normal, as two clip vertices in world space.
func findIncidentEdge(c *[2]ClipVertex, poly1 *shape.Polygon, xf1 geom.Transform, edge1 int, poly2 *shape.Polygon, xf2 geom.Transform) {
	// Get the normal of the reference edge in poly2's frame.
	normal1 := xf2.Q.InvRotate(xf1.Q.Rotate(poly1.Normals[edge1]))

	// Find the incident edge on poly2.
	index := 0
	minDot := math.MaxFloat64
	for i := 0; i < poly2.Count; i++ {
		dot := normal1.Dot(poly2.Normals[i])
		if dot < minDot {
			minDot = dot
			index = i
		}
	}

	// Build the clip vertices for the incident edge.
	i1 := index
	i2 := i1 + 1
	if i2 >= poly2.Count {
		i2 = 0
	}

	c[0].V = xf2.Apply(poly2.Vertices[i1])
	c[0].ID = ContactID{ReferenceEdge: uint8(edge1), IncidentEdge: uint8(i1), IncidentVertex: 0}

	c[1].V = xf2.Apply(poly2.Vertices[i2])
	c[1].ID = ContactID{ReferenceEdge: uint8(edge1), IncidentEdge: uint8(i2), IncidentVertex: 1}
}

// CollidePolygons computes the manifold between two convex polygons.
//
// Find edge normal of max separation on A - return if separating axis is found
// Find edge normal of max separation on B - return if separation axis is found
// Choose reference edge as min(minA, minB)
// Find incident edge
// Clip
//
// The normal points from A to B.
func CollidePolygons(manifold *Manifold, polyA *shape.Polygon, xfA geom.Transform, polyB *shape.Polygon, xfB geom.Transform) {
	manifold.PointCount = 0
	totalRadius := polyA.Radius + polyB.Radius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	var poly1, poly2 *shape.Polygon // reference and incident polygons
	var xf1, xf2 geom.Transform
	var edge1 int
	var flip uint8

	if separationB > relativeTolerance*separationA+absoluteTolerance {
		poly1 = polyB
		poly2 = polyA
		xf1 = xfB
		xf2 = xfA
		edge1 = edgeB
		manifold.Type = ManifoldFaceB
		flip = 1
	} else {
		poly1 = polyA
		poly2 = polyB
		xf1 = xfA
		xf2 = xfB
		edge1 = edgeA
		manifold.Type = ManifoldFaceA
		flip = 0
	}

	var incidentEdge [2]ClipVertex
	findIncidentEdge(&incidentEdge, poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := edge1 + 1
	if iv2 >= poly1.Count {
		iv2 = 0
	}

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := geom.Normalize(v12.Sub(v11))
	localNormal := geom.CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Q.Rotate(localTangent)
	normal := geom.CrossVS(tangent, 1.0)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	// Face offset.
	frontOffset := normal.Dot(v11)

	// Side offsets, extended by polytope skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	// Clip incident edge against extruded edge1 side edges.
	var clipPoints1, clipPoints2 [2]ClipVertex

	// Clip to box side 1
	if np := ClipSegmentToLine(&clipPoints1, incidentEdge, geom.Neg(tangent), sideOffset1); np < 2 {
		return
	}

	// Clip to negative box side 1
	if np := ClipSegmentToLine(&clipPoints2, clipPoints1, tangent, sideOffset2); np < 2 {
		return
	}

	// Now clipPoints2 contains the clipped points.
	manifold.LocalNormal = localNormal
	manifold.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < geom.MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset

		if separation <= totalRadius {
			cp := &manifold.Points[pointCount]
			cp.LocalPoint = xf2.ApplyInv(clipPoints2[i].V)
			cp.ID = clipPoints2[i].ID
			cp.ID.Flip = flip
			pointCount++
		}
	}

	manifold.PointCount = pointCount
}
