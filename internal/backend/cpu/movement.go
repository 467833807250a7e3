package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Narrow slices length elements starting at start along dim.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	d := wrapDim("narrow", dim, rank)
	if start < 0 || length <= 0 || start+length > shape[d] {
		panic(fmt.Sprintf("narrow: invalid slice [%d, %d) of dimension %d (size %d)",
			start, start+length, d, shape[d]))
	}

	outShape := shape.Clone()
	outShape[d] = length
	result := mustNewRaw("narrow", outShape, x.DType(), cpu.device)

	srcStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	total := outShape.NumElements()
	for i := 0; i < total; i++ {
		rem := i
		srcIdx := 0
		for dd := 0; dd < rank; dd++ {
			coord := rem / outStrides[dd]
			rem %= outStrides[dd]
			if dd == d {
				coord += start
			}
			srcIdx += coord * srcStrides[dd]
		}
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}

// Cat concatenates tensors along dim. All inputs must share dtype and every
// dimension except dim.
func (cpu *CPUBackend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := xs[0].Shape()
	rank := len(shape)
	dtype := xs[0].DType()
	d := wrapDim("cat", dim, rank)

	total := 0
	for i, t := range xs {
		ts := t.Shape()
		if len(ts) != rank {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(ts), rank))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for dd := 0; dd < rank; dd++ {
			if dd == d {
				total += ts[dd]
			} else if ts[dd] != shape[dd] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, dd, ts[dd], shape[dd]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[d] = total
	result := mustNewRaw("cat", outShape, dtype, cpu.device)

	outStrides := outShape.ComputeStrides()
	size := dtype.Size()
	dst := result.Data()

	offset := 0
	for _, t := range xs {
		ts := t.Shape()
		srcStrides := ts.ComputeStrides()
		src := t.Data()
		n := ts.NumElements()
		for i := 0; i < n; i++ {
			rem := i
			outIdx := 0
			for dd := 0; dd < rank; dd++ {
				coord := rem / srcStrides[dd]
				rem %= srcStrides[dd]
				if dd == d {
					coord += offset
				}
				outIdx += coord * outStrides[dd]
			}
			copyElem(dst, outIdx, src, i, size)
		}
		offset += ts[d]
	}
	return result
}

// Stack stacks tensors along a new dimension inserted at dim.
func (cpu *CPUBackend) Stack(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("stack: at least one tensor required")
	}
	expanded := make([]*tensor.RawTensor, len(xs))
	for i, t := range xs {
		expanded[i] = cpu.Unsqueeze(t, dim)
	}
	return cpu.Cat(expanded, dim)
}

// Flip reverses x along each of the given dimensions.
func (cpu *CPUBackend) Flip(x *tensor.RawTensor, dims []int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)

	flip := make([]bool, rank)
	for _, dd := range dims {
		d := wrapDim("flip", dd, rank)
		if flip[d] {
			panic(fmt.Sprintf("flip: dimension %d repeated", d))
		}
		flip[d] = true
	}

	result := mustNewRaw("flip", shape, x.DType(), cpu.device)

	strides := shape.ComputeStrides()
	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	total := shape.NumElements()
	for i := 0; i < total; i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < rank; d++ {
			coord := rem / strides[d]
			rem %= strides[d]
			if flip[d] {
				coord = shape[d] - 1 - coord
			}
			srcIdx += coord * strides[d]
		}
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}

// Repeat tiles x by reps[i] along each dimension. len(reps) must be at
// least the rank; extra leading entries add new dimensions.
func (cpu *CPUBackend) Repeat(x *tensor.RawTensor, reps []int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if len(reps) < rank {
		panic(fmt.Sprintf("repeat: %d repeat factors for %dD tensor (need at least %d)", len(reps), rank, rank))
	}
	for i, r := range reps {
		if r <= 0 {
			panic(fmt.Sprintf("repeat: factor %d at position %d must be positive", r, i))
		}
	}

	// Pad the source shape with leading singleton dimensions.
	padded := make(tensor.Shape, len(reps))
	for i := range padded {
		padded[i] = 1
	}
	copy(padded[len(reps)-rank:], shape)

	outShape := make(tensor.Shape, len(reps))
	for i := range outShape {
		outShape[i] = padded[i] * reps[i]
	}

	result := mustNewRaw("repeat", outShape, x.DType(), cpu.device)

	srcStrides := padded.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	total := outShape.NumElements()
	for i := 0; i < total; i++ {
		rem := i
		srcIdx := 0
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			srcIdx += (coord % padded[d]) * srcStrides[d]
		}
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}

// Copy returns a materialized compact copy of x with its own buffer.
func (cpu *CPUBackend) Copy(x *tensor.RawTensor) *tensor.RawTensor {
	result := mustNewRaw("copy", x.Shape(), x.DType(), cpu.device)
	copy(result.Data(), x.Data())
	return result
}
