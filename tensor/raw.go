// Copyright 2026 Loom ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/loom-ml/loom/internal/tensor"
)

// RawTensor is the low-level tensor representation: a reference-counted
// byte buffer plus shape, strides, dtype, and device. Most code should use
// the typed Tensor[T, B] instead; RawTensor is for backend implementors
// and for APIs that must be generic over dtype at runtime, such as vmap.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized RawTensor with the given shape and
// dtype.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// AsSlice reinterprets the tensor's storage as a typed slice. Panics when
// T does not match the tensor's runtime dtype.
func AsSlice[T DType](r *RawTensor) []T {
	return tensor.AsSlice[T](r)
}

// Flatten collapses the axes from startDim through endDim into one.
func Flatten(be Backend, x *RawTensor, startDim, endDim int) *RawTensor {
	return tensor.Flatten(be, x, startDim, endDim)
}
