package tensor

import "fmt"

// Flatten collapses the dimensions [startDim, endDim] of x into one.
// Negative dims index from the end. The implementation only reads the shape
// it is handed, so an extra leading axis passes through untouched as long as
// the dim arguments have been translated by the caller.
func Flatten(be Backend, x *RawTensor, startDim, endDim int) *RawTensor {
	rank := x.Rank()
	start, ok := WrapDim(startDim, rank)
	if !ok {
		panic(fmt.Sprintf("flatten: start dim %d out of range for %dD tensor", startDim, rank))
	}
	end, ok := WrapDim(endDim, rank)
	if !ok {
		panic(fmt.Sprintf("flatten: end dim %d out of range for %dD tensor", endDim, rank))
	}
	if start > end {
		panic(fmt.Sprintf("flatten: start dim %d after end dim %d", start, end))
	}

	if rank == 0 {
		return be.Reshape(x, Shape{1})
	}
	if start == end {
		return x.Alias()
	}

	shape := x.Shape()
	flattened := 1
	for i := start; i <= end; i++ {
		flattened *= shape[i]
	}
	out := make(Shape, 0, rank-(end-start))
	out = append(out, shape[:start]...)
	out = append(out, flattened)
	out = append(out, shape[end+1:]...)
	return be.Reshape(x, out)
}

// Flatten collapses dimensions [startDim, endDim] into one.
func (t *Tensor[T, B]) Flatten(startDim, endDim int) *Tensor[T, B] {
	return New[T, B](Flatten(t.backend, t.raw, startDim, endDim), t.backend)
}
