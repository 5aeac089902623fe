package shape

import (
	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Polygon represents a solid convex polygon with counter clockwise winding.
// The interior is to the left of each edge. Vertices are stored inline so that
// cloning and collision never allocate.
type Polygon struct {
	Centroid mgl64.Vec2
	Vertices [geom.MaxPolygonVertices]mgl64.Vec2
	Normals  [geom.MaxPolygonVertices]mgl64.Vec2
	Count    int
	Radius   float64
}

// NewPolygon creates an empty polygon with the default skin radius. Call Set or
// one of the box helpers before using it.
func NewPolygon() *Polygon {
	return &Polygon{Radius: geom.PolygonRadius}
}

// NewBox creates an axis aligned box centered on the body origin.
func NewBox(hx, hy float64) *Polygon {
	p := NewPolygon()
	p.SetAsBox(hx, hy)
	return p
}

func (p *Polygon) GetType() Type {
	return TypePolygon
}

func (p *Polygon) GetRadius() float64 {
	return p.Radius
}

func (p *Polygon) Clone() Shape {
	clone := *p
	return &clone
}

func (p *Polygon) GetVertexCount() int {
	return p.Count
}

func (p *Polygon) GetVertex(index int) mgl64.Vec2 {
	return p.Vertices[index]
}

// SetAsBox builds an axis aligned box of half-widths hx and hy.
func (p *Polygon) SetAsBox(hx, hy float64) {
	p.Count = 4
	p.Vertices[0] = mgl64.Vec2{-hx, -hy}
	p.Vertices[1] = mgl64.Vec2{hx, -hy}
	p.Vertices[2] = mgl64.Vec2{hx, hy}
	p.Vertices[3] = mgl64.Vec2{-hx, hy}
	p.Normals[0] = mgl64.Vec2{0.0, -1.0}
	p.Normals[1] = mgl64.Vec2{1.0, 0.0}
	p.Normals[2] = mgl64.Vec2{0.0, 1.0}
	p.Normals[3] = mgl64.Vec2{-1.0, 0.0}
	p.Centroid = mgl64.Vec2{}
}

// SetAsOrientedBox builds a box of half-widths hx and hy, centered on center
// and rotated by angle, all in body coordinates.
func (p *Polygon) SetAsOrientedBox(hx, hy float64, center mgl64.Vec2, angle float64) {
	p.SetAsBox(hx, hy)
	p.Centroid = center

	xf := geom.MakeTransform(center, angle)
	for i := 0; i < p.Count; i++ {
		p.Vertices[i] = xf.Apply(p.Vertices[i])
		p.Normals[i] = xf.Q.Rotate(p.Normals[i])
	}
}

// Set builds the convex hull of points. Points closer than half the linear slop
// are welded together. If fewer than three points survive, or the hull
// collapses, the polygon falls back to a unit box and Set returns false.
// Extra points beyond MaxPolygonVertices are ignored.
func (p *Polygon) Set(points []mgl64.Vec2) bool {
	n := len(points)
	if n < 3 {
		p.SetAsBox(1.0, 1.0)
		return false
	}
	if n > geom.MaxPolygonVertices {
		n = geom.MaxPolygonVertices
	}

	// Perform welding and copy vertices into local buffer.
	var ps [geom.MaxPolygonVertices]mgl64.Vec2
	tempCount := 0
	for i := 0; i < n; i++ {
		v := points[i]
		unique := true
		for j := 0; j < tempCount; j++ {
			if geom.DistanceSquared(v, ps[j]) < (0.5*geom.LinearSlop)*(0.5*geom.LinearSlop) {
				unique = false
				break
			}
		}
		if unique {
			ps[tempCount] = v
			tempCount++
		}
	}

	n = tempCount
	if n < 3 {
		p.SetAsBox(1.0, 1.0)
		return false
	}

	// Gift wrapping, starting from the right most point (lowest y on ties).
	i0 := 0
	x0 := ps[0][0]
	for i := 1; i < n; i++ {
		x := ps[i][0]
		if x > x0 || (x == x0 && ps[i][1] < ps[i0][1]) {
			i0 = i
			x0 = x
		}
	}

	var hull [geom.MaxPolygonVertices]int
	m := 0
	ih := i0

	for {
		if m >= geom.MaxPolygonVertices {
			break
		}
		hull[m] = ih

		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}

			r := ps[ie].Sub(ps[hull[m]])
			v := ps[j].Sub(ps[hull[m]])
			c := geom.Cross(r, v)
			if c < 0.0 {
				ie = j
			}

			// Collinearity check
			if c == 0.0 && v.LenSqr() > r.LenSqr() {
				ie = j
			}
		}

		m++
		ih = ie

		if ie == i0 {
			break
		}
	}

	if m < 3 {
		p.SetAsBox(1.0, 1.0)
		return false
	}

	p.Count = m
	for i := 0; i < m; i++ {
		p.Vertices[i] = ps[hull[i]]
	}

	for i := 0; i < m; i++ {
		i2 := i + 1
		if i2 == m {
			i2 = 0
		}
		edge := p.Vertices[i2].Sub(p.Vertices[i])
		p.Normals[i], _ = geom.Normalize(geom.CrossVS(edge, 1.0))
	}

	p.Centroid = computeCentroid(p.Vertices[:m])
	return true
}

func computeCentroid(vs []mgl64.Vec2) mgl64.Vec2 {
	var c mgl64.Vec2
	area := 0.0

	// Reference point inside the hull keeps the triangle fan well conditioned.
	s := vs[0]
	const inv3 = 1.0 / 3.0

	for i := range vs {
		e1 := vs[i].Sub(s)
		next := vs[0]
		if i+1 < len(vs) {
			next = vs[i+1]
		}
		e2 := next.Sub(s)

		triangleArea := 0.5 * geom.Cross(e1, e2)
		area += triangleArea
		c = c.Add(e1.Add(e2).Mul(triangleArea * inv3))
	}

	if area <= geom.Epsilon {
		return s
	}
	return c.Mul(1.0 / area).Add(s)
}

// Validate reports whether the polygon is convex with counter clockwise winding.
func (p *Polygon) Validate() bool {
	for i := 0; i < p.Count; i++ {
		i1 := i
		i2 := i + 1
		if i2 == p.Count {
			i2 = 0
		}
		v := p.Vertices[i1]
		e := p.Vertices[i2].Sub(v)

		for j := 0; j < p.Count; j++ {
			if j == i1 || j == i2 {
				continue
			}
			if geom.Cross(e, p.Vertices[j].Sub(v)) < 0.0 {
				return false
			}
		}
	}
	return p.Count >= 3
}

func (p *Polygon) TestPoint(xf geom.Transform, point mgl64.Vec2) bool {
	pLocal := xf.ApplyInv(point)

	for i := 0; i < p.Count; i++ {
		if p.Normals[i].Dot(pLocal.Sub(p.Vertices[i])) > 0.0 {
			return false
		}
	}
	return true
}

// RayCast clips the ray against every edge half-plane in the polygon frame.
func (p *Polygon) RayCast(input geom.RayCastInput, xf geom.Transform) (geom.RayCastOutput, bool) {
	p1 := xf.ApplyInv(input.P1)
	p2 := xf.ApplyInv(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < p.Count; i++ {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := p.Normals[i].Dot(p.Vertices[i].Sub(p1))
		denominator := p.Normals[i].Dot(d)

		if denominator == 0.0 {
			if numerator < 0.0 {
				return geom.RayCastOutput{}, false
			}
		} else {
			// The segment enters this half-space when denominator < 0.
			if denominator < 0.0 && numerator < lower*denominator {
				lower = numerator / denominator
				index = i
			} else if denominator > 0.0 && numerator < upper*denominator {
				upper = numerator / denominator
			}
		}

		if upper < lower {
			return geom.RayCastOutput{}, false
		}
	}

	if index >= 0 {
		return geom.RayCastOutput{
			Normal:   xf.Q.Rotate(p.Normals[index]),
			Fraction: lower,
		}, true
	}

	return geom.RayCastOutput{}, false
}

func (p *Polygon) ComputeAABB(xf geom.Transform) geom.AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower

	for i := 1; i < p.Count; i++ {
		v := xf.Apply(p.Vertices[i])
		lower = geom.MinVec(lower, v)
		upper = geom.MaxVec(upper, v)
	}

	r := mgl64.Vec2{p.Radius, p.Radius}
	return geom.AABB{LowerBound: lower.Sub(r), UpperBound: upper.Add(r)}
}

// ComputeMass integrates area, centroid and inertia over a fan of triangles
// rooted at the first vertex. The skin radius is not included.
func (p *Polygon) ComputeMass(density float64) MassData {
	var center mgl64.Vec2
	area := 0.0
	I := 0.0

	s := p.Vertices[0]
	const inv3 = 1.0 / 3.0

	for i := 0; i < p.Count; i++ {
		e1 := p.Vertices[i].Sub(s)
		next := p.Vertices[0]
		if i+1 < p.Count {
			next = p.Vertices[i+1]
		}
		e2 := next.Sub(s)

		D := geom.Cross(e1, e2)

		triangleArea := 0.5 * D
		area += triangleArea

		// Area weighted centroid
		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		ex1, ey1 := e1[0], e1[1]
		ex2, ey2 := e2[0], e2[1]

		intx2 := ex1*ex1 + ex2*ex1 + ex2*ex2
		inty2 := ey1*ey1 + ey2*ey1 + ey2*ey2

		I += (0.25 * inv3 * D) * (intx2 + inty2)
	}

	if area <= geom.Epsilon {
		return MassData{Center: p.Centroid}
	}

	mass := density * area
	center = center.Mul(1.0 / area)
	massCenter := center.Add(s)

	// Shift to center of mass then to original body origin.
	inertia := density*I + mass*(massCenter.Dot(massCenter)-center.Dot(center))

	return MassData{Mass: mass, Center: massCenter, I: inertia}
}
