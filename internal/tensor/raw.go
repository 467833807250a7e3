package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared byte buffer. Sharing makes
// Alias cheap; the count tells backends when in-place reuse is safe.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{data: make([]byte, size)}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.data = nil
	}
}

// RawTensor is the low-level tensor representation: a shared buffer plus
// shape, row-major strides, runtime dtype, and device.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw creates a RawTensor with the given shape and dtype.
// Memory is allocated zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buffer: newTensorBuffer(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte {
	return r.buffer.data
}

// AsSlice reinterprets the tensor's storage as []T.
// Panics if T does not match the tensor's runtime dtype.
func AsSlice[T DType](r *RawTensor) []T {
	var dummy T
	if want := inferDataType(dummy); want != r.dtype {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	//nolint:gosec // zero-copy reinterpretation, length bounded by NumElements
	return unsafe.Slice((*T)(unsafe.Pointer(&r.buffer.data[0])), n)
}

// Alias returns a shallow copy sharing the underlying buffer.
// The buffer is reference counted; mutate through either handle and both see it.
func (r *RawTensor) Alias() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// WithShape returns an alias of the tensor reinterpreted under a new shape.
// The element count must match; no data moves.
func (r *RawTensor) WithShape(shape Shape) *RawTensor {
	if shape.NumElements() != r.NumElements() {
		panic(fmt.Sprintf("withshape: cannot view %v as %v", r.shape, shape))
	}
	v := r.Alias()
	v.shape = shape.Clone()
	v.stride = shape.ComputeStrides()
	return v
}

// Release decrements the buffer reference count, freeing it at zero.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique reports whether this tensor holds the only buffer reference,
// in which case backends may operate in place.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.refCount.Load() == 1
}

// Resize_ resizes the tensor's storage in place to newShape.
//
// When the new rank equals the old rank, elements whose coordinates are
// valid in both shapes keep their values and newly exposed elements are
// zero. When ranks differ, the flat element prefix common to both sizes is
// preserved instead. The tensor's identity does not change: every alias of
// this RawTensor observes the new storage.
func (r *RawTensor) Resize_(newShape Shape) error {
	if err := newShape.Validate(); err != nil {
		return fmt.Errorf("resize_: invalid shape: %w", err)
	}

	elem := r.dtype.Size()
	fresh := make([]byte, newShape.NumElements()*elem)
	old := r.buffer.data

	if len(newShape) == len(r.shape) {
		copyOverlap(fresh, old, newShape, r.shape, elem)
	} else {
		n := newShape.NumElements() * elem
		if len(old) < n {
			n = len(old)
		}
		copy(fresh, old[:n])
	}

	// Swap the buffer contents rather than the buffer pointer so aliases
	// sharing this buffer observe the mutation.
	r.buffer.data = fresh
	r.shape = newShape.Clone()
	r.stride = newShape.ComputeStrides()
	return nil
}

// copyOverlap copies the coordinate-wise intersection of two same-rank
// shapes from src (laid out as srcShape) into dst (laid out as dstShape).
func copyOverlap(dst, src []byte, dstShape, srcShape Shape, elem int) {
	rank := len(dstShape)
	if rank == 0 {
		copy(dst, src)
		return
	}

	common := make(Shape, rank)
	for i := 0; i < rank; i++ {
		common[i] = dstShape[i]
		if srcShape[i] < common[i] {
			common[i] = srcShape[i]
		}
	}

	dstStrides := dstShape.ComputeStrides()
	srcStrides := srcShape.ComputeStrides()
	commonStrides := common.ComputeStrides()

	total := common.NumElements()
	for i := 0; i < total; i++ {
		rem := i
		srcIdx, dstIdx := 0, 0
		for d := 0; d < rank; d++ {
			coord := rem / commonStrides[d]
			rem %= commonStrides[d]
			srcIdx += coord * srcStrides[d]
			dstIdx += coord * dstStrides[d]
		}
		copy(dst[dstIdx*elem:(dstIdx+1)*elem], src[srcIdx*elem:(srcIdx+1)*elem])
	}
}

// String returns a short description of the raw tensor.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor[%s]%v on %s", r.dtype, r.shape, r.device)
}
