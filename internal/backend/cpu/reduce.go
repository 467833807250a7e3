package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/parallel"
	"github.com/loom-ml/loom/internal/tensor"
)

// Sum returns the 0-D sum of all elements.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustNewRaw("sum", tensor.Shape{}, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		sumAllKernel[float32](result, x)
	case tensor.Float64:
		sumAllKernel[float64](result, x)
	case tensor.Int32:
		sumAllKernel[int32](result, x)
	case tensor.Int64:
		sumAllKernel[int64](result, x)
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumAllKernel[T number](result, x *tensor.RawTensor) {
	var acc T
	for _, v := range tensor.AsSlice[T](x) {
		acc += v
	}
	tensor.AsSlice[T](result)[0] = acc
}

// SumDim sums elements along one dimension.
//
// Negative dims index from the end. With keepDim the reduced dimension is
// retained with size 1, otherwise it is removed.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	d := wrapDim("sumdim", dim, rank)

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[d] = 1
	} else {
		outShape = make(tensor.Shape, 0, rank-1)
		outShape = append(outShape, shape[:d]...)
		outShape = append(outShape, shape[d+1:]...)
	}

	result := mustNewRaw("sumdim", outShape, x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		sumDimKernel[float32](result, x, shape, d, cpu.par)
	case tensor.Float64:
		sumDimKernel[float64](result, x, shape, d, cpu.par)
	case tensor.Int32:
		sumDimKernel[int32](result, x, shape, d, cpu.par)
	case tensor.Int64:
		sumDimKernel[int64](result, x, shape, d, cpu.par)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumDimKernel[T number](result, x *tensor.RawTensor, shape tensor.Shape, dim int, par parallel.Config) {
	in := tensor.AsSlice[T](x)
	out := tensor.AsSlice[T](result)

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	axis := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	parallel.For2D(outer, inner, func(o, in2 int) {
		var acc T
		for a := 0; a < axis; a++ {
			acc += in[o*axis*inner+a*inner+in2]
		}
		out[o*inner+in2] = acc
	}, par)
}
