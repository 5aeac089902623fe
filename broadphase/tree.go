// Package broadphase finds candidate colliding pairs cheaply. Each proxy carries a
// fattened AABB stored in a dynamic bounding volume tree; only proxies that moved
// outside their fat box are re-inserted and re-queried.
package broadphase

import (
	"fmt"
	"math"

	"github.com/akmonengine/plank/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// NullNode marks the absence of a node.
const NullNode = -1

// ============================================================================
// Types
// ============================================================================

// treeNode is either a leaf holding a proxy or an internal node holding the
// union of its two children. Free nodes link through parent.
type treeNode struct {
	aabb     geom.AABB
	userData any

	parent int
	child1 int
	child2 int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == NullNode
}

// DynamicTree is a binary tree of fattened AABBs. Leaves are proxies; nodes live
// in a growable arena and are addressed by index, so proxy IDs stay stable.
type DynamicTree struct {
	root     int
	nodes    []treeNode
	freeList int

	nodeCount      int
	insertionCount int

	// path selects the leaf removed and re-inserted by Rebalance.
	path uint32
}

// ============================================================================
// Constructor
// ============================================================================

// NewDynamicTree creates an empty tree.
func NewDynamicTree() *DynamicTree {
	t := &DynamicTree{
		root:     NullNode,
		freeList: NullNode,
		nodes:    make([]treeNode, 0, 16),
	}
	return t
}

// ============================================================================
// Proxies
// ============================================================================

// CreateProxy inserts a leaf holding a fattened copy of aabb and returns its ID.
func (t *DynamicTree) CreateProxy(aabb geom.AABB, userData any) int {
	proxyID := t.allocateNode()

	t.nodes[proxyID].aabb = aabb.Fatten(geom.AABBExtension)
	t.nodes[proxyID].userData = userData

	t.insertLeaf(proxyID)
	return proxyID
}

// DestroyProxy removes a leaf from the tree.
func (t *DynamicTree) DestroyProxy(proxyID int) {
	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// MoveProxy updates a proxy with a new tight AABB. If the fat AABB still contains
// it, nothing happens and false is returned. Otherwise the leaf is re-inserted
// with an AABB fattened by the margin and stretched along the displacement.
func (t *DynamicTree) MoveProxy(proxyID int, aabb geom.AABB, displacement mgl64.Vec2) bool {
	if t.nodes[proxyID].aabb.Contains(aabb) {
		return false
	}

	t.removeLeaf(proxyID)

	// Extend AABB.
	b := aabb.Fatten(geom.AABBExtension)

	// Predict AABB displacement.
	d := displacement.Mul(geom.AABBMultiplier)
	if d[0] < 0.0 {
		b.LowerBound[0] += d[0]
	} else {
		b.UpperBound[0] += d[0]
	}
	if d[1] < 0.0 {
		b.LowerBound[1] += d[1]
	} else {
		b.UpperBound[1] += d[1]
	}

	t.nodes[proxyID].aabb = b

	t.insertLeaf(proxyID)
	return true
}

func (t *DynamicTree) GetUserData(proxyID int) any {
	return t.nodes[proxyID].userData
}

func (t *DynamicTree) GetFatAABB(proxyID int) geom.AABB {
	return t.nodes[proxyID].aabb
}

// GetInsertionCount returns how many leaf insertions happened since creation.
func (t *DynamicTree) GetInsertionCount() int {
	return t.insertionCount
}

// GetNodeCount returns the number of allocated nodes, leaves and internal.
func (t *DynamicTree) GetNodeCount() int {
	return t.nodeCount
}

// ============================================================================
// Queries
// ============================================================================

// Query calls callback for every proxy whose fat AABB overlaps aabb. The
// callback returns false to stop the query.
func (t *DynamicTree) Query(callback func(proxyID int) bool, aabb geom.AABB) {
	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == NullNode {
			continue
		}

		node := &t.nodes[nodeID]
		if !node.aabb.Overlaps(aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(nodeID) {
				break
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// RayCast casts a ray against the proxies. The callback performs the exact
// shape ray cast and returns the new max fraction: 0 terminates, a positive
// value clips the ray, and the input fraction continues unchanged. A negative
// value ignores the proxy.
func (t *DynamicTree) RayCast(callback func(input geom.RayCastInput, proxyID int) float64, input geom.RayCastInput) {
	p1 := input.P1
	p2 := input.P2
	r, length := geom.Normalize(p2.Sub(p1))
	if length == 0.0 {
		return
	}

	// v is perpendicular to the segment.
	v := geom.CrossSV(1.0, r)
	absV := geom.AbsVec(v)

	// Separating axis for segment (Gino, p80).
	// |dot(v, p1 - c)| > dot(|v|, h)

	maxFraction := input.MaxFraction

	// Build a bounding box for the segment.
	segmentAABB := segmentBounds(p1, p2, maxFraction)

	stack := make([]int, 0, 64)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == NullNode {
			continue
		}

		node := &t.nodes[nodeID]
		if !node.aabb.Overlaps(segmentAABB) {
			continue
		}

		c := node.aabb.GetCenter()
		h := node.aabb.GetExtents()
		separation := math.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0.0 {
			continue
		}

		if node.isLeaf() {
			subInput := geom.RayCastInput{P1: input.P1, P2: input.P2, MaxFraction: maxFraction}

			value := callback(subInput, nodeID)
			if value == 0.0 {
				// The client has terminated the ray cast.
				return
			}

			if value > 0.0 {
				// Update segment bounding box.
				maxFraction = value
				segmentAABB = segmentBounds(p1, p2, maxFraction)
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

func segmentBounds(p1, p2 mgl64.Vec2, fraction float64) geom.AABB {
	end := p1.Add(p2.Sub(p1).Mul(fraction))
	return geom.AABB{LowerBound: geom.MinVec(p1, end), UpperBound: geom.MaxVec(p1, end)}
}

// ============================================================================
// Maintenance
// ============================================================================

// Rebalance removes and re-inserts iterations leaves, walking a different path
// from the root each time so that the whole tree is visited eventually.
func (t *DynamicTree) Rebalance(iterations int) {
	if t.root == NullNode {
		return
	}

	for i := 0; i < iterations; i++ {
		node := t.root

		bit := uint32(0)
		for !t.nodes[node].isLeaf() {
			if (t.path>>bit)&1 == 0 {
				node = t.nodes[node].child1
			} else {
				node = t.nodes[node].child2
			}
			bit = (bit + 1) & 31
		}
		t.path++

		t.removeLeaf(node)
		t.insertLeaf(node)
	}
}

// ComputeHeight returns the height of the tree, zero for an empty tree.
func (t *DynamicTree) ComputeHeight() int {
	return t.computeHeight(t.root)
}

func (t *DynamicTree) computeHeight(nodeID int) int {
	if nodeID == NullNode {
		return 0
	}

	node := &t.nodes[nodeID]
	height1 := t.computeHeight(node.child1)
	height2 := t.computeHeight(node.child2)
	return 1 + max(height1, height2)
}

// Validate checks the parent links and that every internal node contains both
// children. It is meant for tests and debugging.
func (t *DynamicTree) Validate() error {
	if t.root == NullNode {
		return nil
	}
	if t.nodes[t.root].parent != NullNode {
		return fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent)
	}
	return t.validate(t.root)
}

func (t *DynamicTree) validate(nodeID int) error {
	node := &t.nodes[nodeID]
	if node.isLeaf() {
		if node.child2 != NullNode {
			return fmt.Errorf("leaf %d has a second child", nodeID)
		}
		return nil
	}

	for _, child := range [2]int{node.child1, node.child2} {
		if t.nodes[child].parent != nodeID {
			return fmt.Errorf("node %d: child %d points to parent %d", nodeID, child, t.nodes[child].parent)
		}
		if !node.aabb.Contains(t.nodes[child].aabb) {
			return fmt.Errorf("node %d does not contain child %d", nodeID, child)
		}
		if err := t.validate(child); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Internal node management
// ============================================================================

func (t *DynamicTree) allocateNode() int {
	var nodeID int
	if t.freeList == NullNode {
		t.nodes = append(t.nodes, treeNode{})
		nodeID = len(t.nodes) - 1
	} else {
		nodeID = t.freeList
		t.freeList = t.nodes[nodeID].parent
	}

	t.nodes[nodeID] = treeNode{parent: NullNode, child1: NullNode, child2: NullNode}
	t.nodeCount++
	return nodeID
}

func (t *DynamicTree) freeNode(nodeID int) {
	t.nodes[nodeID] = treeNode{parent: t.freeList, child1: NullNode, child2: NullNode}
	t.freeList = nodeID
	t.nodeCount--
}

// insertLeaf descends toward the child whose center is closest in Manhattan
// distance, then splices a new parent above the chosen sibling.
func (t *DynamicTree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	// Find the best sibling.
	center := t.nodes[leaf].aabb.GetCenter()
	sibling := t.root
	for !t.nodes[sibling].isLeaf() {
		child1 := t.nodes[sibling].child1
		child2 := t.nodes[sibling].child2

		delta1 := geom.AbsVec(t.nodes[child1].aabb.GetCenter().Sub(center))
		delta2 := geom.AbsVec(t.nodes[child2].aabb.GetCenter().Sub(center))

		norm1 := delta1[0] + delta1[1]
		norm2 := delta2[0] + delta2[1]

		if norm1 < norm2 {
			sibling = child1
		} else {
			sibling = child2
		}
	}

	// Create a parent for the siblings.
	node1 := t.nodes[sibling].parent
	node2 := t.allocateNode()
	t.nodes[node2].parent = node1
	t.nodes[node2].userData = nil
	t.nodes[node2].aabb = t.nodes[leaf].aabb.Combine(t.nodes[sibling].aabb)
	t.nodes[node2].child1 = sibling
	t.nodes[node2].child2 = leaf
	t.nodes[sibling].parent = node2
	t.nodes[leaf].parent = node2

	if node1 == NullNode {
		// The sibling was the root.
		t.root = node2
		return
	}

	if t.nodes[node1].child1 == sibling {
		t.nodes[node1].child1 = node2
	} else {
		t.nodes[node1].child2 = node2
	}

	// Walk back up, growing ancestors until one already contains the new box.
	for node1 != NullNode {
		if t.nodes[node1].aabb.Contains(t.nodes[node2].aabb) {
			break
		}

		n := &t.nodes[node1]
		n.aabb = t.nodes[n.child1].aabb.Combine(t.nodes[n.child2].aabb)
		node2 = node1
		node1 = n.parent
	}
}

// removeLeaf splices out the leaf's parent and shrinks ancestors until one is
// unchanged.
func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	node2 := t.nodes[leaf].parent
	node1 := t.nodes[node2].parent
	sibling := t.nodes[node2].child1
	if sibling == leaf {
		sibling = t.nodes[node2].child2
	}

	if node1 == NullNode {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(node2)
		return
	}

	// Destroy node2 and connect node1 to sibling.
	if t.nodes[node1].child1 == node2 {
		t.nodes[node1].child1 = sibling
	} else {
		t.nodes[node1].child2 = sibling
	}
	t.nodes[sibling].parent = node1
	t.freeNode(node2)

	// Adjust ancestor bounds.
	for node1 != NullNode {
		n := &t.nodes[node1]
		oldAABB := n.aabb
		n.aabb = t.nodes[n.child1].aabb.Combine(t.nodes[n.child2].aabb)

		if oldAABB.Contains(n.aabb) {
			break
		}

		node1 = n.parent
	}
}
