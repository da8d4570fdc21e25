package bvh

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// NodeUniform is the shader-visible representation of a Node. Each vec4 keeps
// the original field in its x component with explicit padding so the struct
// matches the WGSL storage layout byte for byte.
type NodeUniform struct {
	BoundsMin    [4]float32
	BoundsMax    [4]float32
	BoundsExtra1 [4]float32
	BoundsExtra2 [4]float32
}

// NewNodeUniform packs a tree node for upload.
func NewNodeUniform(n Node) NodeUniform {
	return NodeUniform{
		BoundsMin:    [4]float32{n.Bounds.Min[0], n.Bounds.Min[1], n.Bounds.Min[2], 0},
		BoundsMax:    [4]float32{n.Bounds.Max[0], n.Bounds.Max[1], n.Bounds.Max[2], 0},
		BoundsExtra1: [4]float32{float32(n.LeftFirst), 0, 0, 0},
		BoundsExtra2: [4]float32{float32(n.Count), 0, 0, 0},
	}
}

// EmptyNodeUniform returns a sentinel node with inverted extents. Traversal
// cannot intersect it, so it is safe filler for unused arena slots.
func EmptyNodeUniform() NodeUniform {
	return NodeUniform{
		BoundsMin: [4]float32{emptyMin, emptyMin, emptyMin, 0},
		BoundsMax: [4]float32{emptyMax, emptyMax, emptyMax, 0},
	}
}

// Size returns the size of the NodeUniform struct in bytes.
func (n *NodeUniform) Size() uint64 {
	return uint64(unsafe.Sizeof(*n))
}

// Marshal packs the NodeUniform into a little-endian byte slice matching the
// WGSL struct layout.
//
// Returns:
//   - []byte: the packed byte slice
func (n *NodeUniform) Marshal() []byte {
	buf := make([]byte, n.Size())
	for i, v := range n.BoundsMin {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range n.BoundsMax {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	for i, v := range n.BoundsExtra1 {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(v))
	}
	for i, v := range n.BoundsExtra2 {
		binary.LittleEndian.PutUint32(buf[48+i*4:], math.Float32bits(v))
	}
	return buf
}

// Uniforms packs every node of the tree for upload, in arena order.
func (t *Tree) Uniforms() []NodeUniform {
	out := make([]NodeUniform, len(t.Nodes))
	for i, n := range t.Nodes {
		out[i] = NewNodeUniform(n)
	}
	return out
}

// PrimIndicesF32 returns the primitive-index permutation widened to float32,
// the element type the traversal shader reads the index buffer with.
func (t *Tree) PrimIndicesF32() []float32 {
	out := make([]float32, len(t.PrimIndices))
	for i, v := range t.PrimIndices {
		out[i] = float32(v)
	}
	return out
}
