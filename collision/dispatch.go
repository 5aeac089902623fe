package collision

import (
	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/gjk"
	"github.com/akmonengine/plank/shape"
)

// Collider computes the manifold of two shapes given in the table's canonical order.
type Collider func(manifold *Manifold, shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform)

// Entry is a slot of the dispatch table. Primary is false when the shapes must be
// passed to Fn in reverse order, in which case the resulting normal points from
// the second shape to the first.
type Entry struct {
	Fn      Collider
	Primary bool
}

var registry [shape.TypeCount][shape.TypeCount]Entry

func init() {
	register(collideCircles, shape.TypeCircle, shape.TypeCircle)
	register(collidePolygonAndCircle, shape.TypePolygon, shape.TypeCircle)
	register(collidePolygons, shape.TypePolygon, shape.TypePolygon)
}

// register stores fn as the primary routine for (type1, type2) and the swapped
// routine for (type2, type1).
func register(fn Collider, type1, type2 shape.Type) {
	registry[type1][type2] = Entry{Fn: fn, Primary: true}
	if type1 != type2 {
		registry[type2][type1] = Entry{Fn: fn, Primary: false}
	}
}

// Lookup returns the routine for a pair of shape kinds. ok is false when no
// routine handles the pair.
func Lookup(typeA, typeB shape.Type) (entry Entry, ok bool) {
	if typeA < 0 || typeA >= shape.TypeCount || typeB < 0 || typeB >= shape.TypeCount {
		return Entry{}, false
	}
	entry = registry[typeA][typeB]
	return entry, entry.Fn != nil
}

// Evaluate collides two shapes in any order and returns the world manifold with
// the normal pointing from shapeA to shapeB, along with the point count. Swapped
// pairs are evaluated in canonical order and their normal negated.
func Evaluate(shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) (WorldManifold, int) {
	var wm WorldManifold

	entry, ok := Lookup(shapeA.GetType(), shapeB.GetType())
	if !ok {
		return wm, 0
	}

	var m Manifold
	if entry.Primary {
		entry.Fn(&m, shapeA, xfA, shapeB, xfB)
		wm.Initialize(&m, xfA, shapeA.GetRadius(), xfB, shapeB.GetRadius())
		return wm, m.PointCount
	}

	entry.Fn(&m, shapeB, xfB, shapeA, xfA)
	wm.Initialize(&m, xfB, shapeB.GetRadius(), xfA, shapeA.GetRadius())
	wm.Normal = geom.Neg(wm.Normal)
	return wm, m.PointCount
}

func collideCircles(manifold *Manifold, shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) {
	CollideCircles(manifold, shapeA.(*shape.Circle), xfA, shapeB.(*shape.Circle), xfB)
}

func collidePolygonAndCircle(manifold *Manifold, shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) {
	CollidePolygonAndCircle(manifold, shapeA.(*shape.Polygon), xfA, shapeB.(*shape.Circle), xfB)
}

func collidePolygons(manifold *Manifold, shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) {
	CollidePolygons(manifold, shapeA.(*shape.Polygon), xfA, shapeB.(*shape.Polygon), xfB)
}

// TestOverlap reports whether two shapes placed at xfA and xfB overlap, using
// GJK distance with skin radii.
func TestOverlap(shapeA shape.Shape, xfA geom.Transform, shapeB shape.Shape, xfB geom.Transform) bool {
	if !shapeA.ComputeAABB(xfA).Overlaps(shapeB.ComputeAABB(xfB)) {
		return false
	}
	return gjk.TestOverlap(shapeA, xfA, shapeB, xfB)
}
