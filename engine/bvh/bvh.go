// Package bvh builds a flattened bounding volume hierarchy over scene
// primitives using binned surface-area-heuristic (SAH) partitioning. The
// output is a linear node arena plus a permutation of primitive indices;
// leaf nodes reference contiguous ranges of that permutation, which is the
// layout the GPU-side traversal expects.
package bvh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type axis int

const (
	xAxis axis = iota
	yAxis
	zAxis

	// The builder will not attempt to calculate split candidates if the node
	// bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the bin step along an axis is less than this threshold the builder
	// will not evaluate split candidates for that axis.
	minSplitStep float32 = 1e-5

	// Candidate split positions per axis.
	defaultBinCount = 16

	// Aabb sentinel extents for an empty box.
	emptyMin float32 = 1e34
	emptyMax float32 = -1e34
)

// Aabb is an axis-aligned bounding box. A freshly created box is empty: its
// Min sits at +1e34 and its Max at -1e34 so that the first Grow snaps both.
type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAabb returns an empty bounding box.
func NewAabb() Aabb {
	return Aabb{
		Min: mgl32.Vec3{emptyMin, emptyMin, emptyMin},
		Max: mgl32.Vec3{emptyMax, emptyMax, emptyMax},
	}
}

// Grow extends the box to contain point p.
func (a *Aabb) Grow(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < a.Min[i] {
			a.Min[i] = p[i]
		}
		if p[i] > a.Max[i] {
			a.Max[i] = p[i]
		}
	}
}

// GrowAabb extends the box to contain another box.
func (a *Aabb) GrowAabb(o Aabb) {
	a.Grow(o.Min)
	a.Grow(o.Max)
}

// Diagonal returns the box extents per axis.
func (a Aabb) Diagonal() mgl32.Vec3 {
	return a.Max.Sub(a.Min)
}

// HalfArea returns half the surface area of the box, the quantity the SAH
// cost model weighs primitive counts by.
func (a Aabb) HalfArea() float32 {
	d := a.Diagonal()
	return d[0]*d[1] + d[1]*d[2] + d[0]*d[2]
}

// Primitive is implemented by anything the builder can partition.
type Primitive interface {
	// Centroid returns the point used to assign the primitive to a split side.
	Centroid() mgl32.Vec3

	// AABB returns the primitive's bounding box.
	AABB() Aabb
}

// Node is one slot of the flattened tree. For a leaf, LeftFirst is the start
// of its range in the primitive-index permutation and Count is the range
// length (> 0). For an internal node Count is 0, LeftFirst is the arena index
// of the left child and the right child sits at LeftFirst+1.
type Node struct {
	Bounds    Aabb
	LeftFirst int32
	Count     int32
}

// IsLeaf reports whether the node references primitives directly.
func (n Node) IsLeaf() bool {
	return n.Count > 0
}

// Tree is the flattened hierarchy: a node arena rooted at Nodes[0] and the
// primitive-index permutation leaf ranges point into.
type Tree struct {
	Nodes       []Node
	PrimIndices []uint32
}

type splitScore struct {
	axis       axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type builder struct {
	prims   []Primitive
	indices []uint32
	nodes   []Node

	minLeafItems int
	binCount     int

	// A channel for receiving score results.
	scoreChan chan splitScore
}

// Build constructs a BVH over the given primitives.
//
// The builder evaluates a fixed number of binned split candidates per axis
// and scores each with the surface area heuristic
// (lower is better):
//
//	leftCount * left bbox half-area + rightCount * right bbox half-area
//
// Candidates producing an empty partition score MaxFloat32. A range whose
// size is at or below minLeafItems becomes a leaf, as does a range for which
// no candidate improves on the unsplit score.
//
// Parameters:
//   - prims: the primitives to partition (must be non-empty)
//   - minLeafItems: minimum primitive count that forms a leaf (>= 1)
//
// Returns:
//   - *Tree: the flattened hierarchy
//   - error: error if prims is empty or minLeafItems is invalid
func Build(prims []Primitive, minLeafItems int) (*Tree, error) {
	if len(prims) == 0 {
		return nil, fmt.Errorf("bvh: cannot build over zero primitives")
	}
	if minLeafItems < 1 {
		return nil, fmt.Errorf("bvh: minLeafItems must be >= 1, got %d", minLeafItems)
	}

	b := &builder{
		prims:        prims,
		indices:      make([]uint32, len(prims)),
		nodes:        make([]Node, 1, 2*len(prims)),
		minLeafItems: minLeafItems,
		binCount:     defaultBinCount,
		scoreChan:    make(chan splitScore),
	}
	for i := range b.indices {
		b.indices[i] = uint32(i)
	}

	b.partition(0, 0, len(prims), 0)

	return &Tree{
		Nodes:       b.nodes,
		PrimIndices: b.indices,
	}, nil
}

// partition fills the node at nodeIdx from the index range [start, start+count).
func (b *builder) partition(nodeIdx, start, count, depth int) {
	bounds := NewAabb()
	for _, idx := range b.indices[start : start+count] {
		bounds.GrowAabb(b.prims[idx].AABB())
	}

	if count <= b.minLeafItems {
		b.nodes[nodeIdx] = Node{Bounds: bounds, LeftFirst: int32(start), Count: int32(count)}
		return
	}

	// Score of the unsplit range; a split must beat this.
	bestScore := float32(count) * bounds.HalfArea()
	var bestSplit *splitScore

	// Run bin candidate scoring in parallel, all axes at once.
	pendingScores := 0
	side := bounds.Diagonal()
	for ax := xAxis; ax <= zAxis; ax++ {
		if side[ax] < minSideLength {
			continue
		}
		step := side[ax] / float32(b.binCount)
		if step < minSplitStep {
			continue
		}
		for i := 1; i < b.binCount; i++ {
			pendingScores++
			go func(ax axis, splitPoint float32) {
				b.scoreChan <- b.scoreSplit(start, count, ax, splitPoint)
			}(ax, bounds.Min[ax]+step*float32(i))
		}
	}

	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	// No candidate improved on keeping the range whole.
	if bestSplit == nil {
		b.nodes[nodeIdx] = Node{Bounds: bounds, LeftFirst: int32(start), Count: int32(count)}
		return
	}

	// Reorder the shared permutation in place so the left side is contiguous.
	mid := start
	for i := start; i < start+count; i++ {
		idx := b.indices[i]
		if b.prims[idx].Centroid()[bestSplit.axis] < bestSplit.splitPoint {
			b.indices[i], b.indices[mid] = b.indices[mid], b.indices[i]
			mid++
		}
	}

	// Children occupy two contiguous arena slots.
	leftIdx := len(b.nodes)
	b.nodes = append(b.nodes, Node{}, Node{})
	b.nodes[nodeIdx] = Node{Bounds: bounds, LeftFirst: int32(leftIdx)}

	b.partition(leftIdx, start, mid-start, depth+1)
	b.partition(leftIdx+1, mid, start+count-mid, depth+1)
}

// scoreSplit scores one candidate split of the range [start, start+count).
func (b *builder) scoreSplit(start, count int, ax axis, splitPoint float32) splitScore {
	left := NewAabb()
	right := NewAabb()
	leftCount := 0
	rightCount := 0

	for _, idx := range b.indices[start : start+count] {
		prim := b.prims[idx]
		if prim.Centroid()[ax] < splitPoint {
			leftCount++
			left.GrowAabb(prim.AABB())
		} else {
			rightCount++
			right.GrowAabb(prim.AABB())
		}
	}

	score := float32(math.MaxFloat32)
	if leftCount > 0 && rightCount > 0 {
		score = float32(leftCount)*left.HalfArea() + float32(rightCount)*right.HalfArea()
	}

	return splitScore{
		axis:       ax,
		splitPoint: splitPoint,
		leftCount:  leftCount,
		rightCount: rightCount,
		score:      score,
	}
}

// Validate walks the tree and checks that every primitive index in
// [0, primCount) appears in exactly one leaf range. A tree failing this check
// cannot be traversed correctly and must not be uploaded.
//
// Parameters:
//   - primCount: the exact primitive count the tree was built over
//
// Returns:
//   - error: nil if the tree covers [0, primCount) exactly once
func (t *Tree) Validate(primCount int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("bvh: empty node arena")
	}
	if len(t.PrimIndices) != primCount {
		return fmt.Errorf("bvh: index permutation length %d does not match primitive count %d", len(t.PrimIndices), primCount)
	}

	seen := make([]bool, primCount)
	covered := 0

	stack := []int32{0}
	for len(stack) > 0 {
		nodeIdx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if nodeIdx < 0 || int(nodeIdx) >= len(t.Nodes) {
			return fmt.Errorf("bvh: node reference %d out of arena bounds", nodeIdx)
		}
		node := t.Nodes[nodeIdx]

		if !node.IsLeaf() {
			if node.LeftFirst <= nodeIdx {
				return fmt.Errorf("bvh: node %d references non-descendant child %d", nodeIdx, node.LeftFirst)
			}
			stack = append(stack, node.LeftFirst, node.LeftFirst+1)
			continue
		}

		first := int(node.LeftFirst)
		last := first + int(node.Count)
		if first < 0 || last > len(t.PrimIndices) {
			return fmt.Errorf("bvh: leaf range [%d, %d) exceeds permutation length %d", first, last, len(t.PrimIndices))
		}
		for _, primIdx := range t.PrimIndices[first:last] {
			if int(primIdx) >= primCount {
				return fmt.Errorf("bvh: primitive index %d out of range [0, %d)", primIdx, primCount)
			}
			if seen[primIdx] {
				return fmt.Errorf("bvh: primitive index %d referenced by more than one leaf", primIdx)
			}
			seen[primIdx] = true
			covered++
		}
	}

	if covered != primCount {
		return fmt.Errorf("bvh: leaves cover %d of %d primitives", covered, primCount)
	}
	return nil
}
