package tensor

// Method wrappers delegating to the backend. Shape/dim validation lives in
// the backend implementations.

// Add performs element-wise addition with broadcasting.
func (t *Tensor[T, B]) Add(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[T, B]) Sub(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[T, B]) Mul(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor[T, B]) Div(other *Tensor[T, B]) *Tensor[T, B] {
	return New[T, B](t.backend.Div(t.raw, other.raw), t.backend)
}

// Sum returns the 0-D sum of all elements.
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	return New[T, B](t.backend.Sum(t.raw), t.backend)
}

// SumDim sums along a dimension. Negative dims index from the end.
func (t *Tensor[T, B]) SumDim(dim int, keepDim bool) *Tensor[T, B] {
	return New[T, B](t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// Reshape returns a tensor with the same data and a new shape.
func (t *Tensor[T, B]) Reshape(shape ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Reshape(t.raw, Shape(shape)), t.backend)
}

// Permute reorders the tensor's dimensions.
func (t *Tensor[T, B]) Permute(axes ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Permute(t.raw, axes), t.backend)
}

// T is a shortcut for 2-D transpose.
func (t *Tensor[T, B]) T() *Tensor[T, B] {
	if len(t.Shape()) != 2 {
		panic("T() only works for 2D tensors")
	}
	return t.Permute(1, 0)
}

// Unsqueeze inserts a dimension of size 1 at dim.
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Unsqueeze(t.raw, dim), t.backend)
}

// Squeeze removes a dimension of size 1 at dim.
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	return New[T, B](t.backend.Squeeze(t.raw, dim), t.backend)
}

// Expand broadcasts the tensor to shape.
func (t *Tensor[T, B]) Expand(shape ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Expand(t.raw, Shape(shape)), t.backend)
}

// Narrow slices length elements starting at start along dim.
func (t *Tensor[T, B]) Narrow(dim, start, length int) *Tensor[T, B] {
	return New[T, B](t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Flip reverses the tensor along the given dimensions.
func (t *Tensor[T, B]) Flip(dims ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Flip(t.raw, dims), t.backend)
}

// Repeat tiles the tensor by the given factor per dimension.
// len(reps) may exceed the rank; leading singleton dims are added first.
func (t *Tensor[T, B]) Repeat(reps ...int) *Tensor[T, B] {
	return New[T, B](t.backend.Repeat(t.raw, reps), t.backend)
}

// DiagEmbed builds a matrix (or batch of matrices) with the last dimension
// of t placed on the offset-th diagonal.
func (t *Tensor[T, B]) DiagEmbed(offset int) *Tensor[T, B] {
	return New[T, B](t.backend.DiagEmbed(t.raw, offset), t.backend)
}

// Diagonal extracts the offset-th diagonal over dimensions dim1 and dim2.
func (t *Tensor[T, B]) Diagonal(offset, dim1, dim2 int) *Tensor[T, B] {
	return New[T, B](t.backend.Diagonal(t.raw, offset, dim1, dim2), t.backend)
}

// Tril zeroes elements above the diagonal-th diagonal.
func (t *Tensor[T, B]) Tril(diagonal int) *Tensor[T, B] {
	return New[T, B](t.backend.Tril(t.raw, diagonal), t.backend)
}

// Triu zeroes elements below the diagonal-th diagonal.
func (t *Tensor[T, B]) Triu(diagonal int) *Tensor[T, B] {
	return New[T, B](t.backend.Triu(t.raw, diagonal), t.backend)
}

// Cat concatenates tensors along dim.
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New[T, B](b.Cat(raws, dim), b)
}

// Stack stacks tensors along a new dimension at dim.
func Stack[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("stack: at least one tensor required")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New[T, B](b.Stack(raws, dim), b)
}
