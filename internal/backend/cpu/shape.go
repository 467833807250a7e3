package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Reshape reinterprets x under a new shape with the same element count.
// Tensors are always compact row-major, so this is a zero-copy alias.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot view shape %v as %v", x.Shape(), shape))
	}
	return x.WithShape(shape)
}

// Permute reorders the dimensions of x according to axes.
// The result is materialized in row-major order.
func (cpu *CPUBackend) Permute(x *tensor.RawTensor, axes []int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if len(axes) != rank {
		panic(fmt.Sprintf("permute: got %d axes for %dD tensor", len(axes), rank))
	}

	seen := make([]bool, rank)
	perm := make([]int, rank)
	outShape := make(tensor.Shape, rank)
	for i, ax := range axes {
		ax = wrapDim("permute", ax, rank)
		if seen[ax] {
			panic(fmt.Sprintf("permute: duplicate axis %d", ax))
		}
		seen[ax] = true
		perm[i] = ax
		outShape[i] = shape[ax]
	}

	result := mustNewRaw("permute", outShape, x.DType(), cpu.device)

	srcStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	total := outShape.NumElements()
	for i := 0; i < total; i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < rank; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += coord * srcStrides[perm[d]]
		}
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}

// Unsqueeze inserts a dimension of size 1 at dim.
// Valid positions are [-(rank+1), rank].
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	d := wrapDim("unsqueeze", dim, rank+1)

	newShape := make(tensor.Shape, 0, rank+1)
	newShape = append(newShape, shape[:d]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[d:]...)
	return cpu.Reshape(x, newShape)
}

// Squeeze removes the size-1 dimension at dim. Panics if its size is not 1.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	d := wrapDim("squeeze", dim, rank)
	if shape[d] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, must be 1", d, shape[d]))
	}

	newShape := make(tensor.Shape, 0, rank-1)
	newShape = append(newShape, shape[:d]...)
	newShape = append(newShape, shape[d+1:]...)
	return cpu.Reshape(x, newShape)
}

// Expand broadcasts x to newShape. Dimensions align from the right; each
// source dimension must equal the target or be 1.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	xShape := x.Shape()
	if len(newShape) < len(xShape) {
		panic(fmt.Sprintf("expand: new shape %v has fewer dimensions than input shape %v", newShape, xShape))
	}
	off := len(newShape) - len(xShape)
	for i, d := range xShape {
		if d != 1 && d != newShape[off+i] {
			panic(fmt.Sprintf("expand: cannot expand dimension %d from %d to %d", i, d, newShape[off+i]))
		}
	}

	result := mustNewRaw("expand", newShape, x.DType(), cpu.device)

	srcStrides := xShape.ComputeStrides()
	outStrides := newShape.ComputeStrides()
	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	total := newShape.NumElements()
	for i := 0; i < total; i++ {
		srcIdx := broadcastIndex(i, newShape, xShape, outStrides, srcStrides)
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}
