// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// CPUBackend implements tensor operations on the CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU, par: parallel.DefaultConfig()}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// number constrains the dtypes arithmetic kernels operate on.
type number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// mustNewRaw allocates a result tensor, panicking on invalid shapes.
// Backends treat allocation failure as programmer misuse.
func mustNewRaw(op string, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	r, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	return r
}

// wrapDim normalizes a possibly-negative dimension, panicking when out of range.
func wrapDim(op string, dim, rank int) int {
	d, ok := tensor.WrapDim(dim, rank)
	if !ok {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", op, dim, rank))
	}
	return d
}

// copyElem copies one element between byte buffers.
func copyElem(dst []byte, dstIdx int, src []byte, srcIdx, size int) {
	copy(dst[dstIdx*size:(dstIdx+1)*size], src[srcIdx*size:(srcIdx+1)*size])
}
