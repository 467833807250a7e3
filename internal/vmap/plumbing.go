package vmap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/tensor"
)

// Plumbing: the wrapper-level entry points. Each one unwraps its
// BatchedTensor arguments at the active vmap level, hands the physical
// tensors to Dispatch, and rewraps the results for the same level.

func activeLevel() int {
	level, _ := currentLayer()
	return level
}

func rewrap(b Batched, level int) *BatchedTensor {
	if b.BDim.Ok {
		return Wrap(b.Tensor, b.BDim.Dim, level)
	}
	return WrapPlain(b.Tensor, level)
}

func dispatch1(be tensor.Backend, op Op, self *BatchedTensor, ints []int) (*BatchedTensor, error) {
	level := activeLevel()
	val, bdim := unwrapAtLevel(self, level)
	outs, err := Dispatch(be, Call{Op: op, In: []Batched{{Tensor: val, BDim: bdim}}, Ints: ints})
	if err != nil {
		return nil, err
	}
	return rewrap(outs[0], level), nil
}

// Unsqueeze inserts a size-1 axis at the logical position dim.
func Unsqueeze(be tensor.Backend, self *BatchedTensor, dim int) (*BatchedTensor, error) {
	return dispatch1(be, OpUnsqueeze, self, []int{dim})
}

// Repeat tiles the logical tensor by the given per-axis factors. The
// factor list may be longer than the logical rank; extra leading factors
// add new axes.
func Repeat(be tensor.Backend, self *BatchedTensor, sizes []int) (*BatchedTensor, error) {
	return dispatch1(be, OpRepeat, self, sizes)
}

// Diag extracts the diagonal of a logical matrix, or embeds a logical
// vector as a diagonal matrix.
func Diag(be tensor.Backend, self *BatchedTensor, offset int) (*BatchedTensor, error) {
	return dispatch1(be, OpDiag, self, []int{offset})
}

// UnsafeView reinterprets the logical tensor with a new shape of the same
// element count, without any layout canonicalization.
func UnsafeView(be tensor.Backend, self *BatchedTensor, size []int) (*BatchedTensor, error) {
	return dispatch1(be, OpUnsafeView, self, size)
}

// Flip reverses the logical tensor along the given axes.
func Flip(be tensor.Backend, self *BatchedTensor, dims []int) (*BatchedTensor, error) {
	return dispatch1(be, OpFlip, self, dims)
}

// Tril zeroes elements above the given diagonal of the trailing matrix.
func Tril(be tensor.Backend, self *BatchedTensor, diagonal int) (*BatchedTensor, error) {
	return dispatch1(be, OpTril, self, []int{diagonal})
}

// Triu zeroes elements below the given diagonal of the trailing matrix.
func Triu(be tensor.Backend, self *BatchedTensor, diagonal int) (*BatchedTensor, error) {
	return dispatch1(be, OpTriu, self, []int{diagonal})
}

// SumDim reduces the logical tensor along one axis.
func SumDim(be tensor.Backend, self *BatchedTensor, dim int, keepDim bool) (*BatchedTensor, error) {
	kd := 0
	if keepDim {
		kd = 1
	}
	return dispatch1(be, OpSumDim, self, []int{dim, kd})
}

// Expand broadcasts the logical tensor to the given shape.
func Expand(be tensor.Backend, self *BatchedTensor, sizes []int) (*BatchedTensor, error) {
	return dispatch1(be, OpExpand, self, sizes)
}

// Slice takes length elements starting at start along one logical axis.
func Slice(be tensor.Backend, self *BatchedTensor, dim, start, length int) (*BatchedTensor, error) {
	return dispatch1(be, OpSlice, self, []int{dim, start, length})
}

// Narrow takes length elements starting at start along one logical axis.
func Narrow(be tensor.Backend, self *BatchedTensor, dim, start, length int) (*BatchedTensor, error) {
	return dispatch1(be, OpNarrow, self, []int{dim, start, length})
}

// Trace sums the main diagonal of a logical matrix.
func Trace(be tensor.Backend, self *BatchedTensor) (*BatchedTensor, error) {
	return dispatch1(be, OpTrace, self, nil)
}

// ExpandAs broadcasts self to the logical shape of other.
func ExpandAs(be tensor.Backend, self, other *BatchedTensor) (*BatchedTensor, error) {
	level := activeLevel()
	selfVal, selfBdim := unwrapAtLevel(self, level)
	otherVal, otherBdim := unwrapAtLevel(other, level)
	outs, err := Dispatch(be, Call{Op: OpExpandAs, In: []Batched{
		{Tensor: selfVal, BDim: selfBdim},
		{Tensor: otherVal, BDim: otherBdim},
	}})
	if err != nil {
		return nil, err
	}
	return rewrap(outs[0], level), nil
}

// Meshgrid builds cartesian index grids from 1-D logical inputs.
func Meshgrid(be tensor.Backend, inputs ...*BatchedTensor) ([]*BatchedTensor, error) {
	level := activeLevel()
	in := make([]Batched, len(inputs))
	for i, b := range inputs {
		val, bdim := unwrapAtLevel(b, level)
		in[i] = Batched{Tensor: val, BDim: bdim}
	}
	outs, err := Dispatch(be, Call{Op: OpMeshgrid, In: in})
	if err != nil {
		return nil, err
	}
	res := make([]*BatchedTensor, len(outs))
	for i, o := range outs {
		res[i] = rewrap(o, level)
	}
	return res, nil
}

// Flatten collapses the logical axes from startDim through endDim into
// one.
func Flatten(be tensor.Backend, self *BatchedTensor, startDim, endDim int) (*BatchedTensor, error) {
	return dispatch1(be, OpFlatten, self, []int{startDim, endDim})
}

// Squeeze removes a size-1 logical axis.
func Squeeze(be tensor.Backend, self *BatchedTensor, dim int) (*BatchedTensor, error) {
	return dispatch1(be, OpSqueeze, self, []int{dim})
}

// ResizeInPlace resizes self's underlying storage to the given logical
// shape, in place: every alias of the storage observes the new contents.
// Only the contiguous memory format is supported, and only wrappers whose
// batch dimension sits at the leading physical axis; a batch dimension
// elsewhere would need the storage transposed before resizing, which is
// not implemented. The returned wrapper is self, with its cached logical
// metadata refreshed.
func ResizeInPlace(be tensor.Backend, self *BatchedTensor, size []int, format tensor.MemoryFormat) (*BatchedTensor, error) {
	if format != tensor.Contiguous {
		return nil, errors.Errorf("resize_: unsupported memory format %v, only contiguous is supported", format)
	}
	level, ok := currentLayer()
	if !ok {
		panic("vmap: resize_ invoked outside an active vmap level")
	}
	val, bdim := unwrapAtLevel(self, level)
	if !bdim.Ok {
		panic("vmap: resize_ on an unbatched wrapper; the plain operator should have handled it")
	}
	if bdim.Dim != 0 {
		return nil, errors.Errorf("resize_: batch dim %d not at the front is not implemented", bdim.Dim)
	}

	restore := suppressBatching()
	defer restore()

	physSize := make(tensor.Shape, 0, len(size)+1)
	physSize = append(physSize, val.Shape()[0])
	physSize = append(physSize, size...)
	if err := val.Resize_(physSize); err != nil {
		return nil, errors.WithMessage(err, "resize_")
	}
	self.refreshMetadata()
	if !self.Shape().Equal(tensor.Shape(size)) {
		panic(fmt.Sprintf("vmap: resize_ produced logical shape %v, want %v", self.Shape(), size))
	}
	return self, nil
}
