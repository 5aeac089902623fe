// Package collision implements the narrow phase: shape-pair routines producing contact
// manifolds, the dispatch table selecting them, and continuous time of impact.
package collision

import (
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactID identifies the features that produced a contact point so the point can be
// matched across steps for warm starting.
type ContactID struct {
	// ReferenceEdge is the edge on the reference polygon that defines the clipping face.
	ReferenceEdge uint8
	// IncidentEdge is the edge on the incident polygon.
	IncidentEdge uint8
	// IncidentVertex is the vertex of the incident edge (0 or 1) the point came from.
	IncidentVertex uint8
	// Flip is 1 when the reference polygon is shape B.
	Flip uint8
}

// Key packs the features into a single value for fast comparison.
func (id ContactID) Key() uint32 {
	return uint32(id.ReferenceEdge) | uint32(id.IncidentEdge)<<8 | uint32(id.IncidentVertex)<<16 | uint32(id.Flip)<<24
}

// ManifoldPoint is a contact point belonging to a contact manifold. Its meaning
// depends on the manifold type:
//   - Circles: the local center of circle B
//   - FaceA: the local center of circle B or the clip point of polygon B
//   - FaceB: the clip point of polygon A
//
// The impulses are carried from one step to the next for warm starting.
type ManifoldPoint struct {
	LocalPoint     mgl64.Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactID
}

// ManifoldType tells how LocalPoint and LocalNormal are interpreted.
type ManifoldType int

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

func (t ManifoldType) String() string {
	switch t {
	case ManifoldCircles:
		return "circles"
	case ManifoldFaceA:
		return "faceA"
	case ManifoldFaceB:
		return "faceB"
	default:
		return "unknown"
	}
}

// Manifold is the set of contact points between two touching convex shapes,
// expressed in local coordinates so that it survives small motions.
//   - Circles: LocalPoint is the local center of circle A, LocalNormal is unused
//   - FaceA: LocalPoint is the center of the reference face on A, LocalNormal its normal
//   - FaceB: LocalPoint is the center of the reference face on B, LocalNormal its normal
type Manifold struct {
	Points      [geom.MaxManifoldPoints]ManifoldPoint
	LocalNormal mgl64.Vec2
	LocalPoint  mgl64.Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a manifold evaluated in world coordinates.
type WorldManifold struct {
	// Normal points from A to B.
	Normal mgl64.Vec2
	// Points lie midway between the two surfaces.
	Points [geom.MaxManifoldPoints]mgl64.Vec2
	// Separations are negative when the shapes overlap.
	Separations [geom.MaxManifoldPoints]float64
}

// Initialize evaluates the manifold with the given transforms and skin radii.
func (wm *WorldManifold) Initialize(manifold *Manifold, xfA geom.Transform, radiusA float64, xfB geom.Transform, radiusB float64) {
	if manifold.PointCount == 0 {
		return
	}

	switch manifold.Type {
	case ManifoldCircles:
		wm.Normal = mgl64.Vec2{1.0, 0.0}
		pointA := xfA.Apply(manifold.LocalPoint)
		pointB := xfB.Apply(manifold.Points[0].LocalPoint)
		if geom.DistanceSquared(pointA, pointB) > geom.Epsilon*geom.Epsilon {
			wm.Normal, _ = geom.Normalize(pointB.Sub(pointA))
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.Rotate(manifold.LocalNormal)
		planePoint := xfA.Apply(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfB.Apply(manifold.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.Rotate(manifold.LocalNormal)
		planePoint := xfB.Apply(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfA.Apply(manifold.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// Ensure normal points from A to B.
		wm.Normal = geom.Neg(wm.Normal)
	}
}

// PointState describes how a contact point changed between two manifolds.
type PointState int

const (
	// PointStateNull means the point does not exist.
	PointStateNull PointState = iota
	// PointStateAdd means the point was added in the update.
	PointStateAdd
	// PointStatePersist means the point persisted across the update.
	PointStatePersist
	// PointStateRemove means the point was removed in the update.
	PointStateRemove
)

// GetPointStates compares two manifolds by contact ID. state1 describes the
// points of manifold1 (persist or remove), state2 the points of manifold2
// (add or persist).
func GetPointStates(manifold1, manifold2 *Manifold) (state1, state2 [geom.MaxManifoldPoints]PointState) {
	// Detect persists and removes.
	for i := 0; i < manifold1.PointCount; i++ {
		key := manifold1.Points[i].ID.Key()
		state1[i] = PointStateRemove

		for j := 0; j < manifold2.PointCount; j++ {
			if manifold2.Points[j].ID.Key() == key {
				state1[i] = PointStatePersist
				break
			}
		}
	}

	// Detect persists and adds.
	for i := 0; i < manifold2.PointCount; i++ {
		key := manifold2.Points[i].ID.Key()
		state2[i] = PointStateAdd

		for j := 0; j < manifold1.PointCount; j++ {
			if manifold1.Points[j].ID.Key() == key {
				state2[i] = PointStatePersist
				break
			}
		}
	}

	return state1, state2
}

// ClipVertex is a vertex of an incident edge being clipped, with its feature ID.
type ClipVertex struct {
	V  mgl64.Vec2
	ID ContactID
}

// ClipSegmentToLine keeps the part of the segment vIn that lies behind the plane
// dot(normal, x) = offset (Sutherland-Hodgman). It returns the number of output points.
func ClipSegmentToLine(vOut *[2]ClipVertex, vIn [2]ClipVertex, normal mgl64.Vec2, offset float64) int {
	numOut := 0

	// Calculate the distance of end points to the line
	distance0 := normal.Dot(vIn[0].V) - offset
	distance1 := normal.Dot(vIn[1].V) - offset

	// If the points are behind the plane
	if distance0 <= 0.0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0.0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	// If the points are on different sides of the plane
	if distance0*distance1 < 0.0 {
		// Find intersection point of edge and plane
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Mul(interp))
		if distance0 > 0.0 {
			vOut[numOut].ID = vIn[0].ID
		} else {
			vOut[numOut].ID = vIn[1].ID
		}
		numOut++
	}

	return numOut
}
