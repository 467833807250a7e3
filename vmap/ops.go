// Copyright 2026 Loom ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package vmap

import (
	"github.com/loom-ml/loom/internal/vmap"
	"github.com/loom-ml/loom/tensor"
)

// Batch-aware operators for use inside vmapped functions. Dimension
// arguments are logical: they address the per-example view, never the
// hidden batch axis.

// Unsqueeze inserts a size-1 axis at the logical position dim.
func Unsqueeze(be tensor.Backend, self *BatchedTensor, dim int) (*BatchedTensor, error) {
	return vmap.Unsqueeze(be, self, dim)
}

// Squeeze removes a size-1 logical axis.
func Squeeze(be tensor.Backend, self *BatchedTensor, dim int) (*BatchedTensor, error) {
	return vmap.Squeeze(be, self, dim)
}

// Repeat tiles the logical tensor by the given per-axis factors.
func Repeat(be tensor.Backend, self *BatchedTensor, sizes []int) (*BatchedTensor, error) {
	return vmap.Repeat(be, self, sizes)
}

// Diag extracts the diagonal of a logical matrix, or embeds a logical
// vector as a diagonal matrix.
func Diag(be tensor.Backend, self *BatchedTensor, offset int) (*BatchedTensor, error) {
	return vmap.Diag(be, self, offset)
}

// UnsafeView reinterprets the logical tensor with a new shape of the same
// element count. No layout checks are performed; prefer Flatten or
// Unsqueeze unless the physical layout is known.
func UnsafeView(be tensor.Backend, self *BatchedTensor, size []int) (*BatchedTensor, error) {
	return vmap.UnsafeView(be, self, size)
}

// Flip reverses the logical tensor along the given axes.
func Flip(be tensor.Backend, self *BatchedTensor, dims []int) (*BatchedTensor, error) {
	return vmap.Flip(be, self, dims)
}

// Tril zeroes elements above the given diagonal of the trailing matrix.
func Tril(be tensor.Backend, self *BatchedTensor, diagonal int) (*BatchedTensor, error) {
	return vmap.Tril(be, self, diagonal)
}

// Triu zeroes elements below the given diagonal of the trailing matrix.
func Triu(be tensor.Backend, self *BatchedTensor, diagonal int) (*BatchedTensor, error) {
	return vmap.Triu(be, self, diagonal)
}

// SumDim reduces the logical tensor along one axis.
func SumDim(be tensor.Backend, self *BatchedTensor, dim int, keepDim bool) (*BatchedTensor, error) {
	return vmap.SumDim(be, self, dim, keepDim)
}

// Expand broadcasts the logical tensor to the given shape.
func Expand(be tensor.Backend, self *BatchedTensor, sizes []int) (*BatchedTensor, error) {
	return vmap.Expand(be, self, sizes)
}

// Narrow takes length elements starting at start along one logical axis.
func Narrow(be tensor.Backend, self *BatchedTensor, dim, start, length int) (*BatchedTensor, error) {
	return vmap.Narrow(be, self, dim, start, length)
}

// Trace sums the main diagonal of a logical matrix.
func Trace(be tensor.Backend, self *BatchedTensor) (*BatchedTensor, error) {
	return vmap.Trace(be, self)
}

// ExpandAs broadcasts self to the logical shape of other.
func ExpandAs(be tensor.Backend, self, other *BatchedTensor) (*BatchedTensor, error) {
	return vmap.ExpandAs(be, self, other)
}

// Meshgrid builds cartesian index grids from 1-D logical inputs.
func Meshgrid(be tensor.Backend, inputs ...*BatchedTensor) ([]*BatchedTensor, error) {
	return vmap.Meshgrid(be, inputs...)
}

// Flatten collapses the logical axes from startDim through endDim.
func Flatten(be tensor.Backend, self *BatchedTensor, startDim, endDim int) (*BatchedTensor, error) {
	return vmap.Flatten(be, self, startDim, endDim)
}

// ResizeInPlace resizes self's underlying storage to the given logical
// shape. The mutation is visible through every alias of the storage.
func ResizeInPlace(be tensor.Backend, self *BatchedTensor, size []int, format tensor.MemoryFormat) (*BatchedTensor, error) {
	return vmap.ResizeInPlace(be, self, size, format)
}
