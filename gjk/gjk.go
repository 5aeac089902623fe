// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm in 2D.
//
// Unlike a boolean GJK, this variant computes the closest points between two convex
// proxies and the distance separating them. The simplex is refined toward the origin
// of the Minkowski difference using barycentric coordinates, which yields the witness
// points on each shape directly. A SimplexCache lets callers warm start the search
// from the previous call, which is how time of impact converges in a few iterations.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Catto: "Computing Distance", GDC 2010
package gjk

import (
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the refinement loop of Distance.
const MaxIterations = 20

// DistanceProxy is a convex vertex cloud with a skin radius. It is the only view of
// a shape that GJK needs.
type DistanceProxy struct {
	Vertices []mgl64.Vec2
	Radius   float64

	buffer [1]mgl64.Vec2
}

// Set initializes the proxy from a shape. The proxy keeps a reference to the
// polygon's vertex storage, so the shape must outlive the proxy.
func (p *DistanceProxy) Set(s shape.Shape) {
	switch s := s.(type) {
	case *shape.Circle:
		p.buffer[0] = s.P
		p.Vertices = p.buffer[:]
		p.Radius = s.Radius
	case *shape.Polygon:
		p.Vertices = s.Vertices[:s.Count]
		p.Radius = s.Radius
	}
}

// GetSupport returns the index of the vertex furthest along d.
func (p *DistanceProxy) GetSupport(d mgl64.Vec2) int {
	bestIndex := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < len(p.Vertices); i++ {
		value := p.Vertices[i].Dot(d)
		if value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

// GetSupportVertex returns the vertex furthest along d.
func (p *DistanceProxy) GetSupportVertex(d mgl64.Vec2) mgl64.Vec2 {
	return p.Vertices[p.GetSupport(d)]
}

func (p *DistanceProxy) GetVertexCount() int {
	return len(p.Vertices)
}

func (p *DistanceProxy) GetVertex(index int) mgl64.Vec2 {
	return p.Vertices[index]
}

// SimplexCache stores the support indices of the last simplex so that the next
// call on the same pair starts from it. Set Count to zero on first use.
type SimplexCache struct {
	// Metric is the length or area of the cached simplex.
	Metric float64
	Count  int
	IndexA [3]int
	IndexB [3]int
}

// DistanceInput holds the two proxies and where they are placed. With UseRadii
// the skin radii are subtracted from the result.
type DistanceInput struct {
	ProxyA     DistanceProxy
	ProxyB     DistanceProxy
	TransformA geom.Transform
	TransformB geom.Transform
	UseRadii   bool
}

// DistanceOutput holds the closest points on each shape and their distance.
type DistanceOutput struct {
	PointA     mgl64.Vec2
	PointB     mgl64.Vec2
	Distance   float64
	Iterations int
}

// SimplexVertex is one support point of the Minkowski difference B - A.
type SimplexVertex struct {
	WA     mgl64.Vec2 // support point in proxyA
	WB     mgl64.Vec2 // support point in proxyB
	W      mgl64.Vec2 // WB - WA
	A      float64    // barycentric coordinate for closest point
	IndexA int
	IndexB int
}

// Simplex holds 1 to 3 vertices in the Minkowski difference space.
// Size progression: 1 point → 2 points (segment) → 3 points (triangle)
type Simplex struct {
	V     [3]SimplexVertex
	Count int
}

// ReadCache rebuilds the simplex from a cache. A cache whose metric changed too
// much since it was written is discarded and the search restarts from one vertex.
func (s *Simplex) ReadCache(cache *SimplexCache, proxyA *DistanceProxy, xfA geom.Transform, proxyB *DistanceProxy, xfB geom.Transform) {
	s.Count = cache.Count
	for i := 0; i < s.Count; i++ {
		v := &s.V[i]
		v.IndexA = cache.IndexA[i]
		v.IndexB = cache.IndexB[i]
		v.WA = xfA.Apply(proxyA.GetVertex(v.IndexA))
		v.WB = xfB.Apply(proxyB.GetVertex(v.IndexB))
		v.W = v.WB.Sub(v.WA)
		v.A = 0.0
	}

	// Compute the new simplex metric, if it is substantially different than
	// old metric then flush the simplex.
	if s.Count > 1 {
		metric1 := cache.Metric
		metric2 := s.GetMetric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < geom.Epsilon {
			s.Count = 0
		}
	}

	if s.Count == 0 {
		v := &s.V[0]
		v.IndexA = 0
		v.IndexB = 0
		v.WA = xfA.Apply(proxyA.GetVertex(0))
		v.WB = xfB.Apply(proxyB.GetVertex(0))
		v.W = v.WB.Sub(v.WA)
		v.A = 1.0
		s.Count = 1
	}
}

// WriteCache stores the simplex support indices into cache.
func (s *Simplex) WriteCache(cache *SimplexCache) {
	cache.Metric = s.GetMetric()
	cache.Count = s.Count
	for i := 0; i < s.Count; i++ {
		cache.IndexA[i] = s.V[i].IndexA
		cache.IndexB[i] = s.V[i].IndexB
	}
}

// GetSearchDirection returns the direction from the simplex toward the origin.
func (s *Simplex) GetSearchDirection() mgl64.Vec2 {
	switch s.Count {
	case 1:
		return geom.Neg(s.V[0].W)
	case 2:
		e12 := s.V[1].W.Sub(s.V[0].W)
		sgn := geom.Cross(e12, geom.Neg(s.V[0].W))
		if sgn > 0.0 {
			// Origin is left of e12.
			return geom.CrossSV(1.0, e12)
		}
		// Origin is right of e12.
		return geom.CrossVS(e12, 1.0)
	default:
		return mgl64.Vec2{}
	}
}

// GetClosestPoint returns the point of the simplex closest to the origin.
func (s *Simplex) GetClosestPoint() mgl64.Vec2 {
	switch s.Count {
	case 1:
		return s.V[0].W
	case 2:
		return s.V[0].W.Mul(s.V[0].A).Add(s.V[1].W.Mul(s.V[1].A))
	default:
		return mgl64.Vec2{}
	}
}

// GetWitnessPoints returns the closest points on proxy A and proxy B.
func (s *Simplex) GetWitnessPoints() (mgl64.Vec2, mgl64.Vec2) {
	switch s.Count {
	case 1:
		return s.V[0].WA, s.V[0].WB
	case 2:
		pA := s.V[0].WA.Mul(s.V[0].A).Add(s.V[1].WA.Mul(s.V[1].A))
		pB := s.V[0].WB.Mul(s.V[0].A).Add(s.V[1].WB.Mul(s.V[1].A))
		return pA, pB
	case 3:
		pA := s.V[0].WA.Mul(s.V[0].A).Add(s.V[1].WA.Mul(s.V[1].A)).Add(s.V[2].WA.Mul(s.V[2].A))
		return pA, pA
	default:
		return mgl64.Vec2{}, mgl64.Vec2{}
	}
}

// GetMetric returns the segment length or the doubled signed triangle area.
func (s *Simplex) GetMetric() float64 {
	switch s.Count {
	case 2:
		return geom.Distance(s.V[0].W, s.V[1].W)
	case 3:
		return geom.Cross(s.V[1].W.Sub(s.V[0].W), s.V[2].W.Sub(s.V[0].W))
	default:
		return 0.0
	}
}

// Solve2 reduces a segment simplex to its feature closest to the origin.
//
// The closest point on the segment is expressed with barycentric coordinates:
//
//	p = a1 * w1 + a2 * w2, a1 + a2 = 1
//
// Minimizing |p| gives a1 = dot(w2, e12) / |e12|² and a2 = -dot(w1, e12) / |e12|².
// A non-positive coordinate means the origin lies in a vertex region and the
// simplex collapses to that vertex.
func (s *Simplex) Solve2() {
	w1 := s.V[0].W
	w2 := s.V[1].W
	e12 := w2.Sub(w1)

	// w1 region
	d12_2 := -w1.Dot(e12)
	if d12_2 <= 0.0 {
		// a2 <= 0, so we clamp it to 0
		s.V[0].A = 1.0
		s.Count = 1
		return
	}

	// w2 region
	d12_1 := w2.Dot(e12)
	if d12_1 <= 0.0 {
		// a1 <= 0, so we clamp it to 0
		s.V[1].A = 1.0
		s.Count = 1
		s.V[0] = s.V[1]
		return
	}

	// Must be in e12 region.
	inv := 1.0 / (d12_1 + d12_2)
	s.V[0].A = d12_1 * inv
	s.V[1].A = d12_2 * inv
	s.Count = 2
}

// Solve3 reduces a triangle simplex to its feature closest to the origin by
// testing the three vertex regions, the three edge regions and the interior.
// Edge regions use the signed areas of the sub-triangles formed with the origin.
func (s *Simplex) Solve3() {
	w1 := s.V[0].W
	w2 := s.V[1].W
	w3 := s.V[2].W

	// Edge12
	e12 := w2.Sub(w1)
	w1e12 := w1.Dot(e12)
	w2e12 := w2.Dot(e12)
	d12_1 := w2e12
	d12_2 := -w1e12

	// Edge13
	e13 := w3.Sub(w1)
	w1e13 := w1.Dot(e13)
	w3e13 := w3.Dot(e13)
	d13_1 := w3e13
	d13_2 := -w1e13

	// Edge23
	e23 := w3.Sub(w2)
	w2e23 := w2.Dot(e23)
	w3e23 := w3.Dot(e23)
	d23_1 := w3e23
	d23_2 := -w2e23

	// Triangle123
	n123 := geom.Cross(e12, e13)

	d123_1 := n123 * geom.Cross(w2, w3)
	d123_2 := n123 * geom.Cross(w3, w1)
	d123_3 := n123 * geom.Cross(w1, w2)

	// w1 region
	if d12_2 <= 0.0 && d13_2 <= 0.0 {
		s.V[0].A = 1.0
		s.Count = 1
		return
	}

	// e12
	if d12_1 > 0.0 && d12_2 > 0.0 && d123_3 <= 0.0 {
		inv := 1.0 / (d12_1 + d12_2)
		s.V[0].A = d12_1 * inv
		s.V[1].A = d12_2 * inv
		s.Count = 2
		return
	}

	// e13
	if d13_1 > 0.0 && d13_2 > 0.0 && d123_2 <= 0.0 {
		inv := 1.0 / (d13_1 + d13_2)
		s.V[0].A = d13_1 * inv
		s.V[2].A = d13_2 * inv
		s.Count = 2
		s.V[1] = s.V[2]
		return
	}

	// w2 region
	if d12_1 <= 0.0 && d23_2 <= 0.0 {
		s.V[1].A = 1.0
		s.Count = 1
		s.V[0] = s.V[1]
		return
	}

	// w3 region
	if d13_1 <= 0.0 && d23_1 <= 0.0 {
		s.V[2].A = 1.0
		s.Count = 1
		s.V[0] = s.V[2]
		return
	}

	// e23
	if d23_1 > 0.0 && d23_2 > 0.0 && d123_1 <= 0.0 {
		inv := 1.0 / (d23_1 + d23_2)
		s.V[1].A = d23_1 * inv
		s.V[2].A = d23_2 * inv
		s.Count = 2
		s.V[0] = s.V[2]
		return
	}

	// Must be in triangle123
	inv := 1.0 / (d123_1 + d123_2 + d123_3)
	s.V[0].A = d123_1 * inv
	s.V[1].A = d123_2 * inv
	s.V[2].A = d123_3 * inv
	s.Count = 3
}

// Distance computes the closest points between two convex proxies.
//
// Algorithm overview:
//  1. Rebuild the simplex from the cache (or from the first vertices)
//  2. Reduce the simplex to the feature closest to the origin
//  3. Stop if the simplex encloses the origin (overlap)
//  4. Add the support point along the search direction
//  5. Stop when the new support point duplicates a simplex vertex
//
// The cache is updated on return. When UseRadii is set and the shapes are
// separated, the witness points are moved onto the rounded surfaces; when
// the rounded shapes overlap both points are placed at their midpoint and the
// distance is zero.
func Distance(cache *SimplexCache, input *DistanceInput) DistanceOutput {
	proxyA := &input.ProxyA
	proxyB := &input.ProxyB

	xfA := input.TransformA
	xfB := input.TransformB

	var simplex Simplex
	simplex.ReadCache(cache, proxyA, xfA, proxyB, xfB)

	// These store the vertices of the last simplex so that we
	// can check for duplicates and prevent cycling.
	var saveA, saveB [3]int

	iter := 0
	for iter < MaxIterations {
		// Copy simplex so we can identify duplicates.
		saveCount := simplex.Count
		for i := 0; i < saveCount; i++ {
			saveA[i] = simplex.V[i].IndexA
			saveB[i] = simplex.V[i].IndexB
		}

		switch simplex.Count {
		case 2:
			simplex.Solve2()
		case 3:
			simplex.Solve3()
		}

		// If we have 3 points, then the origin is in the corresponding triangle.
		if simplex.Count == 3 {
			break
		}

		d := simplex.GetSearchDirection()

		// Ensure the search direction is numerically fit.
		if d.LenSqr() < geom.Epsilon*geom.Epsilon {
			// The origin is probably contained by a line segment
			// or triangle. Thus the shapes are overlapped.
			break
		}

		// Compute a tentative new simplex vertex using support points.
		vertex := &simplex.V[simplex.Count]
		vertex.IndexA = proxyA.GetSupport(xfA.Q.InvRotate(geom.Neg(d)))
		vertex.WA = xfA.Apply(proxyA.GetVertex(vertex.IndexA))
		vertex.IndexB = proxyB.GetSupport(xfB.Q.InvRotate(d))
		vertex.WB = xfB.Apply(proxyB.GetVertex(vertex.IndexB))
		vertex.W = vertex.WB.Sub(vertex.WA)

		// Iteration count is equated to the number of support point calls.
		iter++

		// Check for duplicate support points. This is the main termination criteria.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.IndexA == saveA[i] && vertex.IndexB == saveB[i] {
				duplicate = true
				break
			}
		}

		// If we found a duplicate support point we must exit to avoid cycling.
		if duplicate {
			break
		}

		// New vertex is ok and needed.
		simplex.Count++
	}

	var output DistanceOutput
	output.PointA, output.PointB = simplex.GetWitnessPoints()
	output.Distance = geom.Distance(output.PointA, output.PointB)
	output.Iterations = iter

	simplex.WriteCache(cache)

	// Apply radii if requested.
	if input.UseRadii {
		rA := proxyA.Radius
		rB := proxyB.Radius

		if output.Distance > rA+rB && output.Distance > geom.Epsilon {
			// Shapes are still no overlapped.
			// Move the witness points to the outer surface.
			output.Distance -= rA + rB
			normal, _ := geom.Normalize(output.PointB.Sub(output.PointA))
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			// Shapes are overlapped when radii are considered.
			// Move the witness points to the middle.
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0.0
		}
	}

	return output
}

// TestOverlap reports whether two shapes placed at xfA and xfB overlap,
// accounting for their skin radii.
func TestOverlap(shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) bool {
	var input DistanceInput
	input.ProxyA.Set(shapeA)
	input.ProxyB.Set(shapeB)
	input.TransformA = xfA
	input.TransformB = xfB
	input.UseRadii = true

	var cache SimplexCache
	output := Distance(&cache, &input)

	return output.Distance < 10.0*geom.Epsilon
}
