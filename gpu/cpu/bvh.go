package cpu

import (
	"math"
	"time"

	"github.com/achilleasa/procrt/log"
	"github.com/achilleasa/procrt/types"
)

type axis uint8

const (
	xAxis axis = iota
	yAxis
	zAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 * depth+1))
	// is less than this threshold the BVH builder will not evaluate
	// split candidates.
	minSplitStep float32 = 1e-5

	// Initial traversal stack capacity.
	maxTraversalDepth = 64
)

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
// - For inner nodes they are both >0 and point to the L/R child nodes
// - For leafs left is <= 0 and stores the negated index of the first item
// in the item order list while right stores the item count.
type bvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

func (n *bvhNode) setChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

func (n *bvhNode) setItems(first, count uint32) {
	n.LData = -int32(first)
	n.RData = int32(count)
}

func (n *bvhNode) isLeaf() bool {
	return n.LData <= 0
}

func (n *bvhNode) items() (first, count int) {
	return int(-n.LData), int(n.RData)
}

// The boundedVolume interface is implemented by all items that can be
// partitioned by the bvh builder.
type boundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

// A callback that is called whenever the BVH builder creates a new leaf.
type leafCallback func(leaf *bvhNode, itemList []boundedVolume)

type splitScore struct {
	axis       axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type bvhStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type bvhBuilder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list
	nodes []bvhNode

	leafCb leafCallback

	// The minimum number of items that are required for creating a leaf.
	minLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	stats bvhStats
}

// Construct a BVH from a set of bounded volumes using the surface area
// heuristic for scoring splits. Every node appended after a node is either
// one of its descendants or belongs to a later sibling subtree so children
// always have larger indices than their parent.
func buildBVH(logger log.Logger, workList []boundedVolume, minLeafItems int, leafCb leafCallback) []bvhNode {
	b := &bvhBuilder{
		logger:       logger,
		nodes:        make([]bvhNode, 0, 2*len(workList)),
		leafCb:       leafCb,
		minLeafItems: minLeafItems,
		scoreChan:    make(chan splitScore),
	}

	start := time.Now()
	b.partition(workList, 0)
	b.logger.Debugf(
		"BVH build time: %d ms, items: %d, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		len(workList), b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)
	return b.nodes
}

func emptyBBox() [2]types.Vec3 {
	return [2]types.Vec3{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Partition worklist and return node index.
func (b *bvhBuilder) partition(workList []boundedVolume, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bbox := emptyBBox()
	for _, item := range workList {
		itemBBox := item.BBox()
		bbox[0] = types.MinVec3(bbox[0], itemBBox[0])
		bbox[1] = types.MaxVec3(bbox[1], itemBBox[1])
	}
	node := bvhNode{Min: bbox[0], Max: bbox[1]}

	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, workList)
	}

	var bestScore = scorePartition(workList)
	var bestSplit *splitScore

	pendingScores := 0

	// Run axis split tests in parallel
	side := node.Max.Sub(node.Min)
	for ax := xAxis; ax <= zAxis; ax++ {
		if side[ax] < minSideLength {
			continue
		}

		// Split steps become more granular the deeper we go
		splitStep := side[ax] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.Min[ax]; splitPoint < node.Max[ax]; splitPoint += splitStep {
			pendingScores++
			go func(ax axis, splitPoint float32) {
				lCount, rCount, score := scoreSplit(workList, ax, splitPoint)
				b.scoreChan <- splitScore{
					axis:       ax,
					splitPoint: splitPoint,
					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(ax, splitPoint)
		}
	}

	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	if bestSplit == nil {
		return b.createLeaf(&node, workList)
	}

	leftWorkList := make([]boundedVolume, 0, bestSplit.leftCount)
	rightWorkList := make([]boundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.Center()[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].setChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

func (b *bvhBuilder) createLeaf(node *bvhNode, workList []boundedVolume) uint32 {
	b.leafCb(node, workList)

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)
	b.stats.leafs++

	return uint32(nodeIndex)
}

func surfaceArea(min, max types.Vec3) float32 {
	side := max.Sub(min)
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}

// Score a BVH split using the surface area heuristic (lower is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// Splits that generate empty partitions get the worst possible score.
func scoreSplit(workList []boundedVolume, ax axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	l := emptyBBox()
	r := emptyBBox()

	for _, item := range workList {
		itemBBox := item.BBox()
		if item.Center()[ax] < splitPoint {
			leftCount++
			l[0] = types.MinVec3(l[0], itemBBox[0])
			l[1] = types.MaxVec3(l[1], itemBBox[1])
		} else {
			rightCount++
			r[0] = types.MinVec3(r[0], itemBBox[0])
			r[1] = types.MaxVec3(r[1], itemBBox[1])
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*surfaceArea(l[0], l[1]) + float32(rightCount)*surfaceArea(r[0], r[1])
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList: count * BBOX area
func scorePartition(workList []boundedVolume) float32 {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	bbox := emptyBBox()
	for _, item := range workList {
		itemBBox := item.BBox()
		bbox[0] = types.MinVec3(bbox[0], itemBBox[0])
		bbox[1] = types.MaxVec3(bbox[1], itemBBox[1])
	}
	return float32(len(workList)) * surfaceArea(bbox[0], bbox[1])
}

// Recompute node bounds bottom-up. leafBBox returns the bounds of the items
// referenced by a leaf.
func refitBVH(nodes []bvhNode, leafBBox func(first, count int) [2]types.Vec3) {
	for i := len(nodes) - 1; i >= 0; i-- {
		node := &nodes[i]
		if node.isLeaf() {
			bbox := leafBBox(node.items())
			node.Min, node.Max = bbox[0], bbox[1]
			continue
		}
		l, r := &nodes[node.LData], &nodes[node.RData]
		node.Min = types.MinVec3(l.Min, r.Min)
		node.Max = types.MaxVec3(l.Max, r.Max)
	}
}

// Slab test against [min, max]. invDir holds the reciprocal ray direction.
// Returns the entry and exit distances clipped to [tMin, tMax].
func intersectBBox(min, max, origin, invDir types.Vec3, tMin, tMax float32) (float32, float32, bool) {
	for a := 0; a < 3; a++ {
		t0 := (min[a] - origin[a]) * invDir[a]
		t1 := (max[a] - origin[a]) * invDir[a]
		if invDir[a] < 0 {
			t0, t1 = t1, t0
		}
		// NaN (0 * inf) comparisons leave the interval untouched.
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}

func reciprocal(v types.Vec3) types.Vec3 {
	return types.Vec3{1 / v[0], 1 / v[1], 1 / v[2]}
}

// Visit the leafs whose bounds intersect the ray. The visit callback
// receives the leaf item range and the current tMax and returns the
// (possibly shortened) tMax.
func traverseBVH(nodes []bvhNode, origin, dir types.Vec3, tMin, tMax float32, visit func(first, count int, tMax float32) float32) {
	if len(nodes) == 0 {
		return
	}

	invDir := reciprocal(dir)
	var storage [maxTraversalDepth]int32
	stack := append(storage[:0], 0)

	for len(stack) > 0 {
		node := &nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if _, _, hit := intersectBBox(node.Min, node.Max, origin, invDir, tMin, tMax); !hit {
			continue
		}
		if node.isLeaf() {
			first, count := node.items()
			tMax = visit(first, count, tMax)
			continue
		}
		stack = append(stack, node.RData, node.LData)
	}
}
