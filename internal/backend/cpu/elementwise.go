package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, opAdd)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, opSub)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, opMul)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, opDiv)
}

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
)

func (cpu *CPUBackend) binary(name string, a, b *tensor.RawTensor, op binOp) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := mustNewRaw(name, outShape, a.DType(), cpu.device)

	switch a.DType() {
	case tensor.Float32:
		binaryKernel[float32](result, a, b, op, cpu.par)
	case tensor.Float64:
		binaryKernel[float64](result, a, b, op, cpu.par)
	case tensor.Int32:
		binaryKernel[int32](result, a, b, op, cpu.par)
	case tensor.Int64:
		binaryKernel[int64](result, a, b, op, cpu.par)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

func binaryKernel[T number](result, a, b *tensor.RawTensor, op binOp, par parallel.Config) {
	out := tensor.AsSlice[T](result)
	av := tensor.AsSlice[T](a)
	bv := tensor.AsSlice[T](b)

	outShape := result.Shape()
	outStrides := outShape.ComputeStrides()
	aStrides := a.Shape().ComputeStrides()
	bStrides := b.Shape().ComputeStrides()

	parallel.For(len(out), func(i int) {
		x := av[broadcastIndex(i, outShape, a.Shape(), outStrides, aStrides)]
		y := bv[broadcastIndex(i, outShape, b.Shape(), outStrides, bStrides)]
		switch op {
		case opAdd:
			out[i] = x + y
		case opSub:
			out[i] = x - y
		case opMul:
			out[i] = x * y
		case opDiv:
			out[i] = x / y
		}
	}, par)
}

// broadcastIndex maps a linear index into the output to the linear index of
// the source it broadcasts from, aligning shapes from the right.
func broadcastIndex(i int, outShape, inShape tensor.Shape, outStrides, inStrides []int) int {
	off := len(outShape) - len(inShape)
	idx := 0
	rem := i
	for d := 0; d < len(outShape); d++ {
		coord := rem / outStrides[d]
		rem %= outStrides[d]
		if d < off {
			continue
		}
		if inShape[d-off] == 1 {
			continue
		}
		idx += coord * inStrides[d-off]
	}
	return idx
}
