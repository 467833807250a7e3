package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
// A 0-D (scalar) shape has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// stride[i] is the product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// WrapDim resolves a possibly-negative dimension index against rank and
// reports whether it was in range. Negative indices count from the end,
// so -1 names the last dimension of a rank-dim tensor.
func WrapDim(dim, rank int) (int, bool) {
	if rank <= 0 {
		// 0-D tensors accept dim 0 and -1 like PyTorch scalars do.
		rank = 1
	}
	if dim < -rank || dim >= rank {
		return 0, false
	}
	if dim < 0 {
		dim += rank
	}
	return dim, true
}

// BroadcastShapes applies NumPy-style broadcasting rules to two shapes.
// Dimensions are compared right to left; they are compatible when equal or
// when either is 1; missing dimensions count as 1. Returns the broadcast
// shape, whether any stretching is required, and an error on incompatible
// dimensions.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Shape, n)
	stretched := false

	for i := 0; i < n; i++ {
		da, db := 1, 1
		if idx := len(a) - 1 - i; idx >= 0 {
			da = a[idx]
		}
		if idx := len(b) - 1 - i; idx >= 0 {
			db = b[idx]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
			stretched = true
		case db == 1:
			out[n-1-i] = da
			stretched = true
		default:
			return nil, false, fmt.Errorf("shapes %v and %v are not broadcastable (dimension %d: %d vs %d)",
				a, b, n-1-i, da, db)
		}
	}
	return out, stretched, nil
}
