package broadphase

import (
	"sort"
	"testing"

	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

func box(minX, minY, maxX, maxY float64) geom.AABB {
	return geom.AABB{LowerBound: mgl64.Vec2{minX, minY}, UpperBound: mgl64.Vec2{maxX, maxY}}
}

func unitAt(x, y float64) geom.AABB {
	return box(x-0.5, y-0.5, x+0.5, y+0.5)
}

type pairList [][2]string

func (p pairList) sorted() pairList {
	sort.Slice(p, func(i, j int) bool {
		if p[i][0] != p[j][0] {
			return p[i][0] < p[j][0]
		}
		return p[i][1] < p[j][1]
	})
	return p
}

func collectPairs(bp *BroadPhase) pairList {
	var pairs pairList
	bp.UpdatePairs(func(a, b any) {
		na, nb := a.(string), b.(string)
		if nb < na {
			na, nb = nb, na
		}
		pairs = append(pairs, [2]string{na, nb})
	})
	return pairs.sorted()
}

// =============================================================================
// DynamicTree Tests
// =============================================================================

func TestCreateProxyFattens(t *testing.T) {
	tree := NewDynamicTree()
	id := tree.CreateProxy(unitAt(0, 0), "a")

	fat := tree.GetFatAABB(id)
	want := unitAt(0, 0).Fatten(geom.AABBExtension)
	if fat != want {
		t.Errorf("GetFatAABB() = %v, want %v", fat, want)
	}
	if tree.GetUserData(id) != "a" {
		t.Errorf("GetUserData() = %v, want a", tree.GetUserData(id))
	}
	if tree.ComputeHeight() != 1 {
		t.Errorf("ComputeHeight() = %d, want 1", tree.ComputeHeight())
	}
}

func TestTreeInsertRemove(t *testing.T) {
	tree := NewDynamicTree()

	ids := make([]int, 0, 20)
	for i := 0; i < 20; i++ {
		ids = append(ids, tree.CreateProxy(unitAt(float64(i)*1.5, float64(i%3)), i))
		if err := tree.Validate(); err != nil {
			t.Fatalf("after insert %d: %v", i, err)
		}
	}

	// 20 leaves and 19 internal nodes.
	if tree.GetNodeCount() != 39 {
		t.Errorf("GetNodeCount() = %d, want 39", tree.GetNodeCount())
	}

	for i, id := range ids {
		if i%2 == 0 {
			tree.DestroyProxy(id)
			if err := tree.Validate(); err != nil {
				t.Fatalf("after remove %d: %v", i, err)
			}
		}
	}
	if tree.GetNodeCount() != 19 {
		t.Errorf("GetNodeCount() = %d, want 19", tree.GetNodeCount())
	}

	// Freed nodes are recycled.
	before := len(tree.nodes)
	tree.CreateProxy(unitAt(100, 100), "late")
	if len(tree.nodes) != before {
		t.Errorf("arena grew from %d to %d despite free nodes", before, len(tree.nodes))
	}
}

func TestMoveProxy(t *testing.T) {
	tests := []struct {
		name         string
		aabb         geom.AABB
		displacement mgl64.Vec2
		moved        bool
	}{
		{"inside fat box", unitAt(0.05, 0), mgl64.Vec2{0.05, 0}, false},
		{"left fat box", unitAt(1, 0), mgl64.Vec2{1, 0}, true},
		{"moving down", unitAt(0, -1), mgl64.Vec2{0, -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewDynamicTree()
			id := tree.CreateProxy(unitAt(0, 0), nil)
			tree.CreateProxy(unitAt(5, 5), nil)

			moved := tree.MoveProxy(id, tt.aabb, tt.displacement)
			if moved != tt.moved {
				t.Fatalf("MoveProxy() = %v, want %v", moved, tt.moved)
			}

			fat := tree.GetFatAABB(id)
			if !fat.Contains(tt.aabb) {
				t.Errorf("fat AABB %v does not contain %v", fat, tt.aabb)
			}
			if !moved {
				return
			}

			// The box is stretched along the displacement only.
			ext := geom.AABBExtension
			d := tt.displacement.Mul(geom.AABBMultiplier)
			want := tt.aabb.Fatten(ext)
			if d[0] > 0 {
				want.UpperBound[0] += d[0]
			}
			if d[1] < 0 {
				want.LowerBound[1] += d[1]
			}
			if !fat.LowerBound.ApproxEqualThreshold(want.LowerBound, 1e-6) || !fat.UpperBound.ApproxEqualThreshold(want.UpperBound, 1e-6) {
				t.Errorf("fat AABB = %v, want %v", fat, want)
			}
			if err := tree.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestTreeQuery(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 10; i++ {
		tree.CreateProxy(unitAt(float64(i)*2, 0), i)
	}

	tests := []struct {
		name     string
		aabb     geom.AABB
		expected []int
	}{
		{"single", box(3.9, -0.1, 4.1, 0.1), []int{2}},
		{"range", box(3, -1, 9, 1), []int{2, 3, 4}},
		{"miss", box(0, 5, 20, 6), nil},
		{"all", box(-10, -10, 30, 10), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			tree.Query(func(proxyID int) bool {
				got = append(got, tree.GetUserData(proxyID).(int))
				return true
			}, tt.aabb)
			sort.Ints(got)

			if len(got) != len(tt.expected) {
				t.Fatalf("Query() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("Query() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}

func TestTreeQueryStops(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 10; i++ {
		tree.CreateProxy(unitAt(0, 0), i)
	}

	calls := 0
	tree.Query(func(int) bool {
		calls++
		return calls < 3
	}, unitAt(0, 0))

	if calls != 3 {
		t.Errorf("callback called %d times, want 3", calls)
	}
}

func TestTreeRayCast(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 5; i++ {
		tree.CreateProxy(unitAt(float64(i)*3, 0), i)
	}
	tree.CreateProxy(unitAt(6, 10), "above")

	input := geom.RayCastInput{P1: mgl64.Vec2{-5, 0}, P2: mgl64.Vec2{20, 0}, MaxFraction: 1}

	t.Run("continue visits every proxy on the ray", func(t *testing.T) {
		var hits []int
		tree.RayCast(func(in geom.RayCastInput, proxyID int) float64 {
			hits = append(hits, tree.GetUserData(proxyID).(int))
			return in.MaxFraction
		}, input)
		sort.Ints(hits)
		if len(hits) != 5 {
			t.Errorf("hits = %v, want the 5 proxies on the x axis", hits)
		}
	})

	t.Run("terminate", func(t *testing.T) {
		calls := 0
		tree.RayCast(func(geom.RayCastInput, int) float64 {
			calls++
			return 0
		}, input)
		if calls != 1 {
			t.Errorf("callback called %d times, want 1", calls)
		}
	})

	t.Run("clipping prunes farther proxies", func(t *testing.T) {
		var hits []int
		tree.RayCast(func(in geom.RayCastInput, proxyID int) float64 {
			aabb := tree.GetFatAABB(proxyID)
			out, ok := aabb.RayCast(in)
			if !ok {
				return -1
			}
			hits = append(hits, tree.GetUserData(proxyID).(int))
			return out.Fraction
		}, input)

		// The closest proxy is always reported last once the ray is clipped to it.
		if len(hits) == 0 || hits[len(hits)-1] != 0 {
			t.Errorf("hits = %v, want the last hit to be proxy 0", hits)
		}
	})
}

func TestRebalanceKeepsTreeValid(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 64; i++ {
		tree.CreateProxy(unitAt(float64(i), 0), i)
	}
	count := tree.GetNodeCount()

	tree.Rebalance(100)

	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
	if tree.GetNodeCount() != count {
		t.Errorf("GetNodeCount() = %d, want %d", tree.GetNodeCount(), count)
	}

	seen := 0
	tree.Query(func(int) bool { seen++; return true }, box(-10, -10, 100, 10))
	if seen != 64 {
		t.Errorf("found %d leaves after rebalance, want 64", seen)
	}
}

// =============================================================================
// BroadPhase Tests
// =============================================================================

func TestUpdatePairs(t *testing.T) {
	bp := NewBroadPhase()
	bp.CreateProxy(unitAt(0, 0), "a")
	bp.CreateProxy(unitAt(0.8, 0), "b")
	bp.CreateProxy(unitAt(1.6, 0), "c")
	bp.CreateProxy(unitAt(10, 0), "d")

	pairs := collectPairs(bp)
	want := pairList{{"a", "b"}, {"b", "c"}}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pairs[%d] = %v, want %v", i, pairs[i], want[i])
		}
	}

	if again := collectPairs(bp); len(again) != 0 {
		t.Errorf("second UpdatePairs reported %v, want nothing since no proxy moved", again)
	}
}

func TestUpdatePairsAfterMove(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(unitAt(0, 0), "a")
	bp.CreateProxy(unitAt(5, 0), "b")
	collectPairs(bp)

	// Small moves stay in the fat box and report nothing.
	bp.MoveProxy(a, unitAt(0.05, 0), mgl64.Vec2{0.05, 0})
	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("pairs = %v after a move inside the fat AABB", pairs)
	}

	bp.MoveProxy(a, unitAt(4.5, 0), mgl64.Vec2{4.45, 0})
	pairs := collectPairs(bp)
	if len(pairs) != 1 || pairs[0] != [2]string{"a", "b"} {
		t.Errorf("pairs = %v, want [[a b]]", pairs)
	}
}

func TestUpdatePairsReportsOnce(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(unitAt(0, 0), "a")
	b := bp.CreateProxy(unitAt(0.5, 0), "b")

	// Both moved: the pair is found from each side but reported once.
	bp.TouchProxy(a)
	bp.TouchProxy(b)
	pairs := collectPairs(bp)
	if len(pairs) != 1 {
		t.Errorf("pairs = %v, want a single pair", pairs)
	}
}

func TestDestroyProxyUnbuffers(t *testing.T) {
	bp := NewBroadPhase()
	bp.CreateProxy(unitAt(0, 0), "a")
	b := bp.CreateProxy(unitAt(0.5, 0), "b")
	bp.DestroyProxy(b)

	if bp.GetProxyCount() != 1 {
		t.Errorf("GetProxyCount() = %d, want 1", bp.GetProxyCount())
	}
	if pairs := collectPairs(bp); len(pairs) != 0 {
		t.Errorf("pairs = %v, want none after destroying b", pairs)
	}
}

func TestBroadPhaseTestOverlap(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(unitAt(0, 0), nil)
	b := bp.CreateProxy(unitAt(1.15, 0), nil)
	c := bp.CreateProxy(unitAt(3, 0), nil)

	tests := []struct {
		name     string
		idA, idB int
		expected bool
	}{
		{"fat boxes touch", a, b, true},
		{"apart", a, c, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bp.TestOverlap(tt.idA, tt.idB); got != tt.expected {
				t.Errorf("TestOverlap() = %v, want %v", got, tt.expected)
			}
		})
	}
}
