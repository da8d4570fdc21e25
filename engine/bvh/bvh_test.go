package bvh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// boxPrim is a unit-ish cube primitive for exercising the builder.
type boxPrim struct {
	center mgl32.Vec3
	half   float32
}

func (b boxPrim) Centroid() mgl32.Vec3 {
	return b.center
}

func (b boxPrim) AABB() Aabb {
	box := NewAabb()
	box.Grow(mgl32.Vec3{b.center[0] - b.half, b.center[1] - b.half, b.center[2] - b.half})
	box.Grow(mgl32.Vec3{b.center[0] + b.half, b.center[1] + b.half, b.center[2] + b.half})
	return box
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, 1); err == nil {
		t.Fatal("expected error for empty primitive list")
	}
	if _, err := Build([]Primitive{boxPrim{half: 1}}, 0); err == nil {
		t.Fatal("expected error for invalid min leaf size")
	}
}

func TestBuildSinglePrimitive(t *testing.T) {
	prims := []Primitive{boxPrim{center: mgl32.Vec3{1, 2, 3}, half: 0.5}}

	tree, err := Build(prims, 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(tree.Nodes) != 1 {
		t.Fatalf("expected a single root node; got %d nodes", len(tree.Nodes))
	}
	root := tree.Nodes[0]
	if !root.IsLeaf() {
		t.Fatal("expected root to be a leaf")
	}
	if root.LeftFirst != 0 || root.Count != 1 {
		t.Fatalf("expected leaf range [0, 1); got start %d count %d", root.LeftFirst, root.Count)
	}
	if err := tree.Validate(len(prims)); err != nil {
		t.Fatal(err)
	}
}

func TestBuildSplitsSeparatedClusters(t *testing.T) {
	// Two clusters far apart on the x axis; the SAH must split between them.
	var prims []Primitive
	for i := 0; i < 4; i++ {
		prims = append(prims, boxPrim{center: mgl32.Vec3{float32(i) * 0.1, 0, 0}, half: 0.05})
	}
	for i := 0; i < 4; i++ {
		prims = append(prims, boxPrim{center: mgl32.Vec3{100 + float32(i)*0.1, 0, 0}, half: 0.05})
	}

	tree, err := Build(prims, 4)
	if err != nil {
		t.Fatal(err)
	}

	root := tree.Nodes[0]
	if root.IsLeaf() {
		t.Fatal("expected root to be split")
	}
	left := tree.Nodes[root.LeftFirst]
	right := tree.Nodes[root.LeftFirst+1]
	if !left.IsLeaf() || !right.IsLeaf() {
		t.Fatalf("expected both children to be leaves; got counts %d and %d", left.Count, right.Count)
	}
	if left.Count != 4 || right.Count != 4 {
		t.Fatalf("expected an even 4/4 split; got %d/%d", left.Count, right.Count)
	}
	if left.Bounds.Max[0] >= right.Bounds.Min[0] {
		t.Fatalf("expected disjoint child bounds; got left max %f, right min %f", left.Bounds.Max[0], right.Bounds.Min[0])
	}
	if err := tree.Validate(len(prims)); err != nil {
		t.Fatal(err)
	}
}

func TestBuildCoversEveryPrimitiveExactlyOnce(t *testing.T) {
	var prims []Primitive
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				prims = append(prims, boxPrim{
					center: mgl32.Vec3{float32(x) * 2, float32(y) * 2, float32(z) * 2},
					half:   0.5,
				})
			}
		}
	}

	tree, err := Build(prims, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Validate(len(prims)); err != nil {
		t.Fatal(err)
	}
	if len(tree.PrimIndices) != len(prims) {
		t.Fatalf("expected %d primitive indices; got %d", len(prims), len(tree.PrimIndices))
	}
}

func TestBuildCoincidentCentroids(t *testing.T) {
	// Identical centroids leave no viable split; the builder must fall back
	// to a leaf instead of recursing forever.
	prims := []Primitive{
		boxPrim{center: mgl32.Vec3{1, 1, 1}, half: 0.5},
		boxPrim{center: mgl32.Vec3{1, 1, 1}, half: 0.5},
		boxPrim{center: mgl32.Vec3{1, 1, 1}, half: 0.5},
	}

	tree, err := Build(prims, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected a single leaf node; got %d nodes", len(tree.Nodes))
	}
	if err := tree.Validate(len(prims)); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsBrokenTrees(t *testing.T) {
	specs := []struct {
		descr string
		tree  Tree
		count int
	}{
		{
			descr: "empty arena",
			tree:  Tree{},
			count: 0,
		},
		{
			descr: "permutation length mismatch",
			tree: Tree{
				Nodes:       []Node{{LeftFirst: 0, Count: 1}},
				PrimIndices: []uint32{0},
			},
			count: 2,
		},
		{
			descr: "duplicate coverage",
			tree: Tree{
				Nodes:       []Node{{LeftFirst: 0, Count: 2}},
				PrimIndices: []uint32{0, 0},
			},
			count: 2,
		},
		{
			descr: "index out of range",
			tree: Tree{
				Nodes:       []Node{{LeftFirst: 0, Count: 1}},
				PrimIndices: []uint32{5},
			},
			count: 1,
		},
		{
			descr: "leaf range out of bounds",
			tree: Tree{
				Nodes:       []Node{{LeftFirst: 1, Count: 2}},
				PrimIndices: []uint32{0, 1},
			},
			count: 2,
		},
	}

	for _, spec := range specs {
		if err := spec.tree.Validate(spec.count); err == nil {
			t.Fatalf("[spec: %s] expected validation error", spec.descr)
		}
	}
}

func TestAabb(t *testing.T) {
	box := NewAabb()
	if box.Min[0] != 1e34 || box.Max[0] != -1e34 {
		t.Fatalf("expected empty sentinel extents; got min %f max %f", box.Min[0], box.Max[0])
	}

	box.Grow(mgl32.Vec3{-1, 0, 2})
	box.Grow(mgl32.Vec3{3, 1, -2})
	if box.Min != (mgl32.Vec3{-1, 0, -2}) {
		t.Fatalf("unexpected min after grow: %v", box.Min)
	}
	if box.Max != (mgl32.Vec3{3, 1, 2}) {
		t.Fatalf("unexpected max after grow: %v", box.Max)
	}

	// Extents 4 x 1 x 4 -> half area 4*1 + 1*4 + 4*4 = 24.
	if got := box.HalfArea(); got != 24 {
		t.Fatalf("expected half area 24; got %f", got)
	}
}

func TestNodeUniformMarshal(t *testing.T) {
	uniform := NewNodeUniform(Node{
		Bounds: Aabb{
			Min: mgl32.Vec3{-1, -2, -3},
			Max: mgl32.Vec3{4, 5, 6},
		},
		LeftFirst: 7,
		Count:     3,
	})

	if uniform.Size() != 64 {
		t.Fatalf("expected 64-byte node uniform; got %d", uniform.Size())
	}

	buf := uniform.Marshal()
	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	if readF32(0) != -1 || readF32(8) != -3 {
		t.Fatalf("unexpected bounds min encoding: %f %f", readF32(0), readF32(8))
	}
	if readF32(16) != 4 || readF32(24) != 6 {
		t.Fatalf("unexpected bounds max encoding: %f %f", readF32(16), readF32(24))
	}
	if readF32(32) != 7 {
		t.Fatalf("expected extra1 7 at offset 32; got %f", readF32(32))
	}
	if readF32(48) != 3 {
		t.Fatalf("expected extra2 3 at offset 48; got %f", readF32(48))
	}
}
