package tensor

// Backend defines the interface compute backends must implement.
// All operations allocate a fresh result unless documented otherwise;
// programmer misuse (bad dims, dtype mismatches) panics.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor                           // sum of all elements, 0-D result
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along one dimension

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Permute(x *RawTensor, axes []int) *RawTensor
	Unsqueeze(x *RawTensor, dim int) *RawTensor
	Squeeze(x *RawTensor, dim int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Data movement.
	Narrow(x *RawTensor, dim, start, length int) *RawTensor
	Cat(xs []*RawTensor, dim int) *RawTensor
	Stack(xs []*RawTensor, dim int) *RawTensor
	Flip(x *RawTensor, dims []int) *RawTensor
	Repeat(x *RawTensor, reps []int) *RawTensor
	Copy(x *RawTensor) *RawTensor // materialized compact copy with its own buffer

	// Matrix structure.
	DiagEmbed(x *RawTensor, offset int) *RawTensor
	Diagonal(x *RawTensor, offset, dim1, dim2 int) *RawTensor
	Tril(x *RawTensor, diagonal int) *RawTensor
	Triu(x *RawTensor, diagonal int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
