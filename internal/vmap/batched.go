package vmap

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// BDim is an optional batch-dimension index. When Ok is set, Dim names the
// physical axis of a tensor that was introduced by Vmap and is invisible to
// the operator's logical signature.
type BDim struct {
	Dim int
	Ok  bool
}

// DimAt returns a present batch dimension at physical axis d.
func DimAt(d int) BDim {
	return BDim{Dim: d, Ok: true}
}

// NoDim returns an absent batch dimension.
func NoDim() BDim {
	return BDim{}
}

// String returns "none" or the axis index.
func (b BDim) String() string {
	if !b.Ok {
		return "none"
	}
	return fmt.Sprintf("%d", b.Dim)
}

// Batched pairs a physical tensor with its optional batch dimension. This
// is the form batch rules see: plumbing has already unwrapped the wrapper.
type Batched struct {
	Tensor *tensor.RawTensor
	BDim   BDim
}

// Plain wraps an unbatched tensor argument.
func Plain(t *tensor.RawTensor) Batched {
	return Batched{Tensor: t}
}

// WithBDim wraps a tensor batched at physical axis d.
func WithBDim(t *tensor.RawTensor, d int) Batched {
	return Batched{Tensor: t, BDim: DimAt(d)}
}

// BatchedTensor is the wrapper flowing through a vmapped function: an
// underlying value, the batch dimension introduced for it at a given vmap
// level (absent when the caller passed the argument unbatched), and a
// cached snapshot of the logical batch-stripped shape and strides. The
// snapshot must be refreshed explicitly after any mutation of the
// underlying storage; it is not recomputed automatically.
type BatchedTensor struct {
	value  *tensor.RawTensor
	bdim   BDim
	level  int
	shape  tensor.Shape
	stride []int
}

// Wrap creates a wrapper batched at physical axis bdim of value for the
// given vmap level. Panics if bdim is not a valid axis of value.
func Wrap(value *tensor.RawTensor, bdim, level int) *BatchedTensor {
	if bdim < 0 || bdim >= value.Rank() {
		panic(fmt.Sprintf("vmap: batch dim %d out of range for %dD tensor", bdim, value.Rank()))
	}
	b := &BatchedTensor{value: value, bdim: DimAt(bdim), level: level}
	b.refreshMetadata()
	return b
}

// WrapPlain creates a wrapper for an argument that carries no batch
// dimension at the given level.
func WrapPlain(value *tensor.RawTensor, level int) *BatchedTensor {
	b := &BatchedTensor{value: value, level: level}
	b.refreshMetadata()
	return b
}

// Value returns the underlying physical tensor.
func (b *BatchedTensor) Value() *tensor.RawTensor {
	return b.value
}

// BatchDim returns the wrapper's optional batch dimension.
func (b *BatchedTensor) BatchDim() BDim {
	return b.bdim
}

// Level returns the vmap nesting level that created the wrapper.
func (b *BatchedTensor) Level() int {
	return b.level
}

// Shape returns the cached logical shape: the physical shape with the
// batch dimension stripped.
func (b *BatchedTensor) Shape() tensor.Shape {
	return b.shape
}

// Strides returns the cached logical strides.
func (b *BatchedTensor) Strides() []int {
	return b.stride
}

// BatchSize returns the size of the batch axis, or 1 when unbatched.
func (b *BatchedTensor) BatchSize() int {
	if !b.bdim.Ok {
		return 1
	}
	return b.value.Shape()[b.bdim.Dim]
}

// refreshMetadata recomputes the cached logical shape and strides from the
// underlying storage. Mutating plumbing must call this after resizing.
func (b *BatchedTensor) refreshMetadata() {
	phys := b.value.Shape()
	if !b.bdim.Ok {
		b.shape = phys.Clone()
		b.stride = phys.ComputeStrides()
		return
	}
	logical := make(tensor.Shape, 0, len(phys)-1)
	logical = append(logical, phys[:b.bdim.Dim]...)
	logical = append(logical, phys[b.bdim.Dim+1:]...)
	b.shape = logical
	b.stride = logical.ComputeStrides()
}

// unwrapAtLevel strips one level of batching from a wrapper: a wrapper
// batched at the given level yields its value and batch dimension, anything
// else yields its value with no batch dimension. Wrappers created at a
// different level than the active one indicate cross-level capture, which
// the dispatcher does not support.
func unwrapAtLevel(b *BatchedTensor, level int) (*tensor.RawTensor, BDim) {
	if b.bdim.Ok && b.level == level {
		return b.value, b.bdim
	}
	if b.bdim.Ok && b.level != level {
		panic(fmt.Sprintf("vmap: tensor batched at level %d used while level %d is active; cross-level capture is not supported", b.level, level))
	}
	return b.value, NoDim()
}

// String returns a short description of the wrapper.
func (b *BatchedTensor) String() string {
	return fmt.Sprintf("BatchedTensor(level=%d, bdim=%s, logical=%v)", b.level, b.bdim, b.shape)
}
