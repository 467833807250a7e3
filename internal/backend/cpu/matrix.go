package cpu

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// DiagEmbed builds, for each slot of the leading dimensions, a square
// matrix with the last dimension of x on the offset-th diagonal.
// Input [..., n] produces [..., n+|offset|, n+|offset|].
func (cpu *CPUBackend) DiagEmbed(x *tensor.RawTensor, offset int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if rank < 1 {
		panic("diag_embed: input must have at least one dimension")
	}

	n := shape[rank-1]
	m := n + abs(offset)
	outShape := make(tensor.Shape, 0, rank+1)
	outShape = append(outShape, shape[:rank-1]...)
	outShape = append(outShape, m, m)

	result := mustNewRaw("diag_embed", outShape, x.DType(), cpu.device)

	rowOff, colOff := 0, 0
	if offset >= 0 {
		colOff = offset
	} else {
		rowOff = -offset
	}

	size := x.DType().Size()
	src := x.Data()
	dst := result.Data()

	slots := 1
	for _, d := range shape[:rank-1] {
		slots *= d
	}
	for s := 0; s < slots; s++ {
		for k := 0; k < n; k++ {
			dstIdx := s*m*m + (k+rowOff)*m + (k + colOff)
			copyElem(dst, dstIdx, src, s*n+k, size)
		}
	}
	return result
}

// Diagonal extracts the offset-th diagonal of x over dimensions dim1 and
// dim2. The remaining dimensions come first in the result and the diagonal
// is appended as the last dimension.
func (cpu *CPUBackend) Diagonal(x *tensor.RawTensor, offset, dim1, dim2 int) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	d1 := wrapDim("diagonal", dim1, rank)
	d2 := wrapDim("diagonal", dim2, rank)
	if d1 == d2 {
		panic(fmt.Sprintf("diagonal: dim1 and dim2 both name dimension %d", d1))
	}

	diagLen := minInt(shape[d1], shape[d2]-offset)
	if offset < 0 {
		diagLen = minInt(shape[d1]+offset, shape[d2])
	}
	if diagLen <= 0 {
		panic(fmt.Sprintf("diagonal: offset %d leaves no diagonal in dimensions of sizes %d and %d",
			offset, shape[d1], shape[d2]))
	}

	rowOff, colOff := 0, 0
	if offset >= 0 {
		colOff = offset
	} else {
		rowOff = -offset
	}

	rest := make([]int, 0, rank-2)
	outShape := make(tensor.Shape, 0, rank-1)
	for d := 0; d < rank; d++ {
		if d != d1 && d != d2 {
			rest = append(rest, d)
			outShape = append(outShape, shape[d])
		}
	}
	outShape = append(outShape, diagLen)

	result := mustNewRaw("diagonal", outShape, x.DType(), cpu.device)

	srcStrides := shape.ComputeStrides()
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
			if d == len(outShape)-1 {
				srcIdx += (coord + rowOff) * srcStrides[d1]
				srcIdx += (coord + colOff) * srcStrides[d2]
			} else {
				srcIdx += coord * srcStrides[rest[d]]
			}
		}
		copyElem(dst, i, src, srcIdx, size)
	}
	return result
}

// Tril zeroes the elements above the diagonal-th diagonal of the last two
// dimensions. Leading dimensions are treated as independent matrices.
func (cpu *CPUBackend) Tril(x *tensor.RawTensor, diagonal int) *tensor.RawTensor {
	return cpu.triangular("tril", x, diagonal, false)
}

// Triu zeroes the elements below the diagonal-th diagonal of the last two
// dimensions. Leading dimensions are treated as independent matrices.
func (cpu *CPUBackend) Triu(x *tensor.RawTensor, diagonal int) *tensor.RawTensor {
	return cpu.triangular("triu", x, diagonal, true)
}

func (cpu *CPUBackend) triangular(name string, x *tensor.RawTensor, diagonal int, upper bool) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if rank < 2 {
		panic(fmt.Sprintf("%s: input must have at least 2 dimensions, got %d", name, rank))
	}

	result := cpu.Copy(x)

	rows := shape[rank-2]
	cols := shape[rank-1]
	size := x.DType().Size()
	dst := result.Data()

	slots := 1
	for _, d := range shape[:rank-2] {
		slots *= d
	}
	zero := make([]byte, size)
	for s := 0; s < slots; s++ {
		base := s * rows * cols
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				keep := j-i <= diagonal
				if upper {
					keep = j-i >= diagonal
				}
				if !keep {
					idx := base + i*cols + j
					copy(dst[idx*size:(idx+1)*size], zero)
				}
			}
		}
	}
	return result
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
