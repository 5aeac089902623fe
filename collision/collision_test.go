package collision

import (
	"math"
	"testing"

	"github.com/akmonengine/plank/geom"
	"github.com/akmonengine/plank/gjk"
	"github.com/akmonengine/plank/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func at(x, y float64) geom.Transform {
	return geom.MakeTransform(mgl64.Vec2{x, y}, 0)
}

func circleAt(radius float64) *shape.Circle {
	return shape.NewCircle(radius)
}

// =============================================================================
// Circle Tests
// =============================================================================

func TestCollideCircles(t *testing.T) {
	tests := []struct {
		name     string
		r1, r2   float64
		distance float64
	}{
		{"far apart", 1, 1, 3},
		{"just apart", 1, 0.5, 1.5001},
		{"exactly touching", 1, 0.5, 1.5},
		{"shallow overlap", 1, 1, 1.9},
		{"deep overlap", 0.5, 2, 0.25},
		{"concentric", 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := circleAt(tt.r1), circleAt(tt.r2)
			xfA, xfB := at(0, 0), at(tt.distance, 0)

			var m Manifold
			CollideCircles(&m, a, xfA, b, xfB)

			colliding := tt.distance <= tt.r1+tt.r2
			if (m.PointCount > 0) != colliding {
				t.Fatalf("PointCount = %d, colliding = %v", m.PointCount, colliding)
			}
			if !colliding {
				return
			}
			if m.PointCount != 1 || m.Type != ManifoldCircles {
				t.Fatalf("manifold = %+v, want one circles point", m)
			}

			var wm WorldManifold
			wm.Initialize(&m, xfA, tt.r1, xfB, tt.r2)
			want := tt.distance - (tt.r1 + tt.r2)
			if !mgl64.FloatEqualThreshold(wm.Separations[0], want, 1e-6) {
				t.Errorf("Separation = %v, want %v", wm.Separations[0], want)
			}
			if wm.Normal != (mgl64.Vec2{1, 0}) {
				t.Errorf("Normal = %v, want (1, 0)", wm.Normal)
			}
		})
	}
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := shape.NewBox(1, 1)
	r := geom.PolygonRadius

	tests := []struct {
		name       string
		center     mgl64.Vec2
		radius     float64
		points     int
		normal     mgl64.Vec2
		separation float64
	}{
		{"above face", mgl64.Vec2{0.2, 1.4}, 0.5, 1, mgl64.Vec2{0, 1}, 0.4 - 0.5 - r},
		{"right face", mgl64.Vec2{1.3, -0.5}, 0.5, 1, mgl64.Vec2{1, 0}, 0.3 - 0.5 - r},
		{"near corner", mgl64.Vec2{1.2, 1.2}, 0.5, 1, mgl64.Vec2{math.Sqrt2 / 2, math.Sqrt2 / 2}, 0.2*math.Sqrt2 - 0.5 - r},
		{"center inside", mgl64.Vec2{0, 0.5}, 0.25, 1, mgl64.Vec2{0, 1}, -0.5 - 0.25 - r},
		{"separated", mgl64.Vec2{0, 2}, 0.5, 0, mgl64.Vec2{}, 0},
		{"corner region miss", mgl64.Vec2{1.5, 1.5}, 0.5, 0, mgl64.Vec2{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			circle := circleAt(tt.radius)
			xfB := at(tt.center[0], tt.center[1])

			var m Manifold
			CollidePolygonAndCircle(&m, box, at(0, 0), circle, xfB)
			if m.PointCount != tt.points {
				t.Fatalf("PointCount = %d, want %d", m.PointCount, tt.points)
			}
			if tt.points == 0 {
				return
			}

			var wm WorldManifold
			wm.Initialize(&m, at(0, 0), box.Radius, xfB, circle.Radius)
			if !wm.Normal.ApproxEqualThreshold(tt.normal, 1e-6) {
				t.Errorf("Normal = %v, want %v", wm.Normal, tt.normal)
			}
			if !mgl64.FloatEqualThreshold(wm.Separations[0], tt.separation, 1e-6) {
				t.Errorf("Separation = %v, want %v", wm.Separations[0], tt.separation)
			}
		})
	}
}

// =============================================================================
// Polygon Tests
// =============================================================================

func TestCollidePolygons(t *testing.T) {
	ground := shape.NewBox(2, 0.5)
	box := shape.NewBox(0.5, 0.5)
	totalRadius := ground.Radius + box.Radius

	t.Run("box resting on ground", func(t *testing.T) {
		xfA, xfB := at(0, 0), at(0.3, 0.9)

		var m Manifold
		CollidePolygons(&m, ground, xfA, box, xfB)
		if m.PointCount != 2 {
			t.Fatalf("PointCount = %d, want 2", m.PointCount)
		}
		if m.Type != ManifoldFaceA {
			t.Errorf("Type = %v, want faceA", m.Type)
		}

		var wm WorldManifold
		wm.Initialize(&m, xfA, ground.Radius, xfB, box.Radius)
		if !wm.Normal.ApproxEqualThreshold(mgl64.Vec2{0, 1}, 1e-6) {
			t.Errorf("Normal = %v, want (0, 1)", wm.Normal)
		}
		for i := 0; i < m.PointCount; i++ {
			if !mgl64.FloatEqualThreshold(wm.Separations[i], -0.1-totalRadius, 1e-6) {
				t.Errorf("Separations[%d] = %v, want %v", i, wm.Separations[i], -0.1-totalRadius)
			}
			if m.Points[i].ID.Flip != 0 || m.Points[i].ID.ReferenceEdge != 2 {
				t.Errorf("Points[%d].ID = %+v, want reference edge 2 without flip", i, m.Points[i].ID)
			}
		}
		if m.Points[0].ID.Key() == m.Points[1].ID.Key() {
			t.Error("contact IDs within a manifold must differ")
		}
	})

	t.Run("reversed order flips the reference", func(t *testing.T) {
		xfA, xfB := at(0.3, 0.9), at(0, 0)

		var m Manifold
		CollidePolygons(&m, box, xfA, ground, xfB)
		if m.PointCount != 2 {
			t.Fatalf("PointCount = %d, want 2", m.PointCount)
		}

		var wm WorldManifold
		wm.Initialize(&m, xfA, box.Radius, xfB, ground.Radius)
		if !wm.Normal.ApproxEqualThreshold(mgl64.Vec2{0, -1}, 1e-6) {
			t.Errorf("Normal = %v, want (0, -1)", wm.Normal)
		}
		for i := 0; i < m.PointCount; i++ {
			if !mgl64.FloatEqualThreshold(wm.Separations[i], -0.1-totalRadius, 1e-6) {
				t.Errorf("Separations[%d] = %v", i, wm.Separations[i])
			}
		}
	})

	t.Run("separated", func(t *testing.T) {
		var m Manifold
		CollidePolygons(&m, ground, at(0, 0), box, at(0, 1.2))
		if m.PointCount != 0 {
			t.Errorf("PointCount = %d, want 0", m.PointCount)
		}
	})

	t.Run("rotated box corner", func(t *testing.T) {
		xfB := geom.MakeTransform(mgl64.Vec2{0, 0.5 + math.Sqrt2*0.5 - 0.05}, math.Pi/4)

		var m Manifold
		CollidePolygons(&m, ground, at(0, 0), box, xfB)
		if m.PointCount != 1 {
			t.Fatalf("PointCount = %d, want 1", m.PointCount)
		}

		var wm WorldManifold
		wm.Initialize(&m, at(0, 0), ground.Radius, xfB, box.Radius)
		if !wm.Normal.ApproxEqualThreshold(mgl64.Vec2{0, 1}, 1e-6) {
			t.Errorf("Normal = %v, want (0, 1)", wm.Normal)
		}
		if !mgl64.FloatEqualThreshold(wm.Separations[0], -0.05-totalRadius, 1e-6) {
			t.Errorf("Separation = %v, want %v", wm.Separations[0], -0.05-totalRadius)
		}
	})
}

// =============================================================================
// Clipping & Point State Tests
// =============================================================================

func TestClipSegmentToLine(t *testing.T) {
	in := [2]ClipVertex{
		{V: mgl64.Vec2{-1, 0}, ID: ContactID{IncidentVertex: 0}},
		{V: mgl64.Vec2{1, 0}, ID: ContactID{IncidentVertex: 1}},
	}

	tests := []struct {
		name   string
		normal mgl64.Vec2
		offset float64
		count  int
		ids    []uint8
		xs     []float64
	}{
		{"both behind", mgl64.Vec2{1, 0}, 2, 2, []uint8{0, 1}, []float64{-1, 1}},
		{"both in front", mgl64.Vec2{1, 0}, -2, 0, nil, nil},
		{"clip second", mgl64.Vec2{1, 0}, 0.5, 2, []uint8{0, 1}, []float64{-1, 0.5}},
		{"clip first", mgl64.Vec2{-1, 0}, 0.5, 2, []uint8{1, 0}, []float64{1, -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out [2]ClipVertex
			n := ClipSegmentToLine(&out, in, tt.normal, tt.offset)
			if n != tt.count {
				t.Fatalf("count = %d, want %d", n, tt.count)
			}
			for i := 0; i < n; i++ {
				if out[i].ID.IncidentVertex != tt.ids[i] {
					t.Errorf("out[%d].ID.IncidentVertex = %d, want %d", i, out[i].ID.IncidentVertex, tt.ids[i])
				}
				if !mgl64.FloatEqualThreshold(out[i].V[0], tt.xs[i], 1e-6) {
					t.Errorf("out[%d].V.x = %v, want %v", i, out[i].V[0], tt.xs[i])
				}
			}
		})
	}
}

func TestGetPointStates(t *testing.T) {
	var m1, m2 Manifold
	m1.PointCount = 2
	m1.Points[0].ID = ContactID{ReferenceEdge: 1, IncidentEdge: 3}
	m1.Points[1].ID = ContactID{ReferenceEdge: 1, IncidentEdge: 0, IncidentVertex: 1}

	m2.PointCount = 2
	m2.Points[0].ID = ContactID{ReferenceEdge: 1, IncidentEdge: 0, IncidentVertex: 1}
	m2.Points[1].ID = ContactID{ReferenceEdge: 2, IncidentEdge: 0, IncidentVertex: 1}

	state1, state2 := GetPointStates(&m1, &m2)

	if state1 != [2]PointState{PointStateRemove, PointStatePersist} {
		t.Errorf("state1 = %v", state1)
	}
	if state2 != [2]PointState{PointStatePersist, PointStateAdd} {
		t.Errorf("state2 = %v", state2)
	}
}

func TestContactIDKey(t *testing.T) {
	a := ContactID{ReferenceEdge: 1, IncidentEdge: 2, IncidentVertex: 1, Flip: 1}
	b := a
	b.Flip = 0

	if a.Key() == b.Key() {
		t.Error("flip must change the key")
	}
	if a.Key() != 0x01010201 {
		t.Errorf("Key() = %#x, want 0x01010201", a.Key())
	}
}

// =============================================================================
// Dispatch Tests
// =============================================================================

func TestLookup(t *testing.T) {
	tests := []struct {
		a, b    shape.Type
		primary bool
	}{
		{shape.TypeCircle, shape.TypeCircle, true},
		{shape.TypePolygon, shape.TypeCircle, true},
		{shape.TypeCircle, shape.TypePolygon, false},
		{shape.TypePolygon, shape.TypePolygon, true},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"-"+tt.b.String(), func(t *testing.T) {
			entry, ok := Lookup(tt.a, tt.b)
			if !ok {
				t.Fatal("no routine registered")
			}
			if entry.Primary != tt.primary {
				t.Errorf("Primary = %v, want %v", entry.Primary, tt.primary)
			}
		})
	}

	if _, ok := Lookup(shape.TypeCount, shape.TypeCircle); ok {
		t.Error("out of range type should not resolve")
	}
}

func TestEvaluateSwapNegatesNormal(t *testing.T) {
	box := shape.NewBox(1, 1)
	circle := circleAt(0.5)
	xfBox, xfCircle := at(0, 0), at(0, 1.3)

	forward, n1 := Evaluate(box, xfBox, circle, xfCircle)
	reverse, n2 := Evaluate(circle, xfCircle, box, xfBox)

	if n1 != 1 || n2 != 1 {
		t.Fatalf("point counts = %d, %d, want 1, 1", n1, n2)
	}
	if !forward.Normal.ApproxEqualThreshold(mgl64.Vec2{0, 1}, 1e-6) {
		t.Errorf("forward normal = %v, want (0, 1)", forward.Normal)
	}
	if !reverse.Normal.ApproxEqualThreshold(mgl64.Vec2{0, -1}, 1e-6) {
		t.Errorf("reverse normal = %v, want (0, -1)", reverse.Normal)
	}
	if !mgl64.FloatEqualThreshold(forward.Separations[0], reverse.Separations[0], 1e-6) {
		t.Errorf("separations differ: %v vs %v", forward.Separations[0], reverse.Separations[0])
	}
}

func TestTestOverlap(t *testing.T) {
	box := shape.NewBox(1, 1)
	circle := circleAt(0.5)

	if !TestOverlap(box, at(0, 0), circle, at(1.4, 0)) {
		t.Error("circle touching the box face should overlap")
	}
	if TestOverlap(box, at(0, 0), circle, at(1.6, 0)) {
		t.Error("circle clear of the box should not overlap")
	}
}

// =============================================================================
// Time Of Impact Tests
// =============================================================================

func TestTimeOfImpact(t *testing.T) {
	box := shape.NewBox(1, 1)
	circle := circleAt(0.5)

	newInput := func(from, to mgl64.Vec2) *TOIInput {
		input := &TOIInput{TMax: 1}
		input.ProxyA = proxyOf(box)
		input.ProxyB = proxyOf(circle)
		input.SweepA = geom.Sweep{}
		input.SweepB = geom.Sweep{C0: from, C: to}
		return input
	}

	t.Run("fast circle through box", func(t *testing.T) {
		out := TimeOfImpact(newInput(mgl64.Vec2{-10, 0}, mgl64.Vec2{10, 0}))
		if out.State != TOIStateTouching {
			t.Fatalf("State = %v, want touching", out.State)
		}

		target := circle.Radius + box.Radius - 3*geom.LinearSlop
		want := (-1 - target + 10) / 20
		if !mgl64.FloatEqualThreshold(out.T, want, 1e-3) {
			t.Errorf("T = %v, want about %v", out.T, want)
		}
	})

	t.Run("passes above", func(t *testing.T) {
		out := TimeOfImpact(newInput(mgl64.Vec2{-10, 5}, mgl64.Vec2{10, 5}))
		if out.State != TOIStateSeparated || out.T != 1 {
			t.Errorf("output = %+v, want separated at 1", out)
		}
	})

	t.Run("starts overlapped", func(t *testing.T) {
		out := TimeOfImpact(newInput(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}))
		if out.State != TOIStateOverlapped || out.T != 0 {
			t.Errorf("output = %+v, want overlapped at 0", out)
		}
	})
}

func proxyOf(s shape.Shape) gjk.DistanceProxy {
	var p gjk.DistanceProxy
	p.Set(s)
	return p
}
