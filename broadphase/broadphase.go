package broadphase

import (
	"sort"

	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// Pair - two proxies whose fat AABBs overlap, ProxyIDA < ProxyIDB
type Pair struct {
	ProxyIDA int
	ProxyIDB int
}

// BroadPhase keeps the proxies in a DynamicTree and buffers the ones that moved
// since the last UpdatePairs. Only moved proxies are queried for new pairs.
type BroadPhase struct {
	tree *DynamicTree

	proxyCount int

	moveBuffer []int
	pairBuffer []Pair

	queryProxyID int
}

// ============================================================================
// Constructor
// ============================================================================

func NewBroadPhase() *BroadPhase {
	return &BroadPhase{
		tree:         NewDynamicTree(),
		moveBuffer:   make([]int, 0, 16),
		pairBuffer:   make([]Pair, 0, 16),
		queryProxyID: NullNode,
	}
}

// ============================================================================
// Proxies
// ============================================================================

// CreateProxy adds a proxy for aabb. It is reported against its overlaps on the
// next UpdatePairs.
func (bp *BroadPhase) CreateProxy(aabb geom.AABB, userData any) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

func (bp *BroadPhase) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	bp.tree.DestroyProxy(proxyID)
}

// MoveProxy updates the proxy with a new tight AABB. The proxy is buffered only
// when it left its fat AABB.
func (bp *BroadPhase) MoveProxy(proxyID int, aabb geom.AABB, displacement mgl64.Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces the proxy to be re-queried on the next UpdatePairs.
func (bp *BroadPhase) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

func (bp *BroadPhase) GetFatAABB(proxyID int) geom.AABB {
	return bp.tree.GetFatAABB(proxyID)
}

func (bp *BroadPhase) GetUserData(proxyID int) any {
	return bp.tree.GetUserData(proxyID)
}

// TestOverlap tests the fat AABBs of two proxies.
func (bp *BroadPhase) TestOverlap(proxyIDA, proxyIDB int) bool {
	return bp.tree.GetFatAABB(proxyIDA).Overlaps(bp.tree.GetFatAABB(proxyIDB))
}

func (bp *BroadPhase) GetProxyCount() int {
	return bp.proxyCount
}

func (bp *BroadPhase) GetTreeHeight() int {
	return bp.tree.ComputeHeight()
}

// Tree exposes the underlying tree, mostly for validation in tests.
func (bp *BroadPhase) Tree() *DynamicTree {
	return bp.tree
}

// ============================================================================
// Pairs
// ============================================================================

// UpdatePairs reports every pair involving a moved proxy exactly once, in a
// deterministic order. The callback receives the user data of both proxies.
func (bp *BroadPhase) UpdatePairs(callback func(userDataA, userDataB any)) {
	bp.pairBuffer = bp.pairBuffer[:0]

	// Perform tree queries for all moving proxies.
	for _, proxyID := range bp.moveBuffer {
		if proxyID == NullNode {
			continue
		}
		bp.queryProxyID = proxyID

		// We have to query the tree with the fat AABB so that
		// we don't fail to create a pair that may touch later.
		fatAABB := bp.tree.GetFatAABB(proxyID)
		bp.tree.Query(bp.queryCallback, fatAABB)
	}
	bp.queryProxyID = NullNode

	bp.moveBuffer = bp.moveBuffer[:0]

	// Sort the pair buffer to expose duplicates.
	sort.Slice(bp.pairBuffer, func(i, j int) bool {
		if bp.pairBuffer[i].ProxyIDA != bp.pairBuffer[j].ProxyIDA {
			return bp.pairBuffer[i].ProxyIDA < bp.pairBuffer[j].ProxyIDA
		}
		return bp.pairBuffer[i].ProxyIDB < bp.pairBuffer[j].ProxyIDB
	})

	// Send the pairs back to the client.
	for i := 0; i < len(bp.pairBuffer); {
		primary := bp.pairBuffer[i]
		callback(bp.tree.GetUserData(primary.ProxyIDA), bp.tree.GetUserData(primary.ProxyIDB))
		i++

		// Skip any duplicate pairs.
		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == primary {
			i++
		}
	}

	// Try to keep the tree balanced.
	bp.tree.Rebalance(2)
}

func (bp *BroadPhase) queryCallback(proxyID int) bool {
	// A proxy cannot form a pair with itself.
	if proxyID == bp.queryProxyID {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, Pair{
		ProxyIDA: min(proxyID, bp.queryProxyID),
		ProxyIDB: max(proxyID, bp.queryProxyID),
	})
	return true
}

// ============================================================================
// Queries
// ============================================================================

// Query forwards to DynamicTree.Query.
func (bp *BroadPhase) Query(callback func(proxyID int) bool, aabb geom.AABB) {
	bp.tree.Query(callback, aabb)
}

// RayCast forwards to DynamicTree.RayCast.
func (bp *BroadPhase) RayCast(callback func(input geom.RayCastInput, proxyID int) float64, input geom.RayCastInput) {
	bp.tree.RayCast(callback, input)
}

func (bp *BroadPhase) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = NullNode
		}
	}
}
