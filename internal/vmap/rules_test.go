package vmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/tensor"
)

func dispatchOne(t *testing.T, be tensor.Backend, op Op, in Batched, ints []int) Batched {
	t.Helper()
	outs, err := Dispatch(be, Call{Op: op, In: []Batched{in}, Ints: ints})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	return outs[0]
}

func TestUnsqueezeBatchRule(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6)) // batch of 2 logical vectors

	t.Run("logical dim 0", func(t *testing.T) {
		out := dispatchOne(t, be, OpUnsqueeze, WithBDim(x, 0), []int{0})
		assert.Equal(t, tensor.Shape{2, 1, 3}, out.Tensor.Shape())
		assert.Equal(t, DimAt(0), out.BDim)
	})

	t.Run("logical dim -1", func(t *testing.T) {
		out := dispatchOne(t, be, OpUnsqueeze, WithBDim(x, 0), []int{-1})
		assert.Equal(t, tensor.Shape{2, 3, 1}, out.Tensor.Shape())
	})

	t.Run("bdim not at front", func(t *testing.T) {
		// Physical [2, 3] batched at axis 1: logical vectors of length 2.
		out := dispatchOne(t, be, OpUnsqueeze, WithBDim(x, 1), []int{0})
		assert.Equal(t, tensor.Shape{3, 1, 2}, out.Tensor.Shape())
		assert.Equal(t, DimAt(0), out.BDim)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Dispatch(be, Call{Op: OpUnsqueeze, In: []Batched{WithBDim(x, 0)}, Ints: []int{3}})
		assert.Error(t, err)
	})
}

func TestRepeatBatchRule(t *testing.T) {
	be := cpu.New()
	// Batch of 2 logical vectors [1,2,3] and [4,5,6].
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	t.Run("tile in place", func(t *testing.T) {
		out := dispatchOne(t, be, OpRepeat, WithBDim(x, 0), []int{2})
		assert.Equal(t, tensor.Shape{2, 6}, out.Tensor.Shape())
		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 4, 5, 6, 4, 5, 6}, f32s(out.Tensor))
	})

	t.Run("extra leading factor adds a logical axis", func(t *testing.T) {
		out := dispatchOne(t, be, OpRepeat, WithBDim(x, 0), []int{2, 1})
		assert.Equal(t, tensor.Shape{2, 2, 3}, out.Tensor.Shape())
		assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 4, 5, 6, 4, 5, 6}, f32s(out.Tensor))
	})

	t.Run("too few factors", func(t *testing.T) {
		_, err := Dispatch(be, Call{Op: OpRepeat, In: []Batched{WithBDim(x, 0)}, Ints: []int{}})
		assert.Error(t, err)
	})
}

func TestDiagBatchRule(t *testing.T) {
	be := cpu.New()

	t.Run("logical 1-D embeds", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		out := dispatchOne(t, be, OpDiag, WithBDim(x, 0), []int{0})
		assert.Equal(t, tensor.Shape{2, 2, 2}, out.Tensor.Shape())
		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, []float32{1, 0, 0, 2, 3, 0, 0, 4}, f32s(out.Tensor))
	})

	t.Run("logical 2-D extracts", func(t *testing.T) {
		// Batch of two 2x2 matrices.
		x := rawF32(t, tensor.Shape{2, 2, 2}, seq(8))
		out := dispatchOne(t, be, OpDiag, WithBDim(x, 0), []int{0})
		require.True(t, out.BDim.Ok)
		assert.Equal(t, 0, out.BDim.Dim)
		assert.Equal(t, tensor.Shape{2, 2}, out.Tensor.Shape())
		assert.Equal(t, []float32{1, 4, 5, 8}, f32s(out.Tensor))
	})

	t.Run("logical 3-D is a usage error", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2, 2, 2, 2}, make([]float32, 16))
		_, err := Dispatch(be, Call{Op: OpDiag, In: []Batched{WithBDim(x, 0)}, Ints: []int{0}})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "1-D or 2-D")
	})

	t.Run("unbatched matches plain", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		out := dispatchOne(t, be, OpDiag, Plain(x), []int{0})
		assert.False(t, out.BDim.Ok)
		assert.Equal(t, []float32{1, 4}, f32s(out.Tensor))
	})
}

func TestUnsafeViewBatchRule(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 6}, seq(12))

	out := dispatchOne(t, be, OpUnsafeView, WithBDim(x, 0), []int{2, 3})
	assert.Equal(t, tensor.Shape{2, 2, 3}, out.Tensor.Shape())
	assert.Equal(t, DimAt(0), out.BDim)
	assert.Equal(t, seq(12), f32s(out.Tensor))
}

func TestFlipBatchRule(t *testing.T) {
	be := cpu.New()
	// Batch of 2 logical [2,2] matrices.
	x := rawF32(t, tensor.Shape{2, 2, 2}, seq(8))

	t.Run("flip logical rows", func(t *testing.T) {
		out := dispatchOne(t, be, OpFlip, WithBDim(x, 0), []int{0})
		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, []float32{3, 4, 1, 2, 7, 8, 5, 6}, f32s(out.Tensor))
	})

	t.Run("flip logical -1", func(t *testing.T) {
		out := dispatchOne(t, be, OpFlip, WithBDim(x, 0), []int{-1})
		assert.Equal(t, []float32{2, 1, 4, 3, 6, 5, 8, 7}, f32s(out.Tensor))
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Dispatch(be, Call{Op: OpFlip, In: []Batched{WithBDim(x, 0)}, Ints: []int{2}})
		assert.Error(t, err)
	})
}

func TestTrilTriuBatchRule(t *testing.T) {
	be := cpu.New()
	// Batch of 2 logical 2x2 matrices.
	x := rawF32(t, tensor.Shape{2, 2, 2}, seq(8))

	t.Run("tril", func(t *testing.T) {
		out := dispatchOne(t, be, OpTril, WithBDim(x, 0), []int{0})
		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, []float32{1, 0, 3, 4, 5, 0, 7, 8}, f32s(out.Tensor))
	})

	t.Run("triu", func(t *testing.T) {
		out := dispatchOne(t, be, OpTriu, WithBDim(x, 0), []int{0})
		assert.Equal(t, []float32{1, 2, 0, 4, 5, 6, 0, 8}, f32s(out.Tensor))
	})

	t.Run("logical rank too small", func(t *testing.T) {
		v := rawF32(t, tensor.Shape{2, 3}, seq(6)) // logical vectors
		_, err := Dispatch(be, Call{Op: OpTril, In: []Batched{WithBDim(v, 0)}, Ints: []int{0}})
		assert.Error(t, err)
	})
}

func TestSumDimBatchRule(t *testing.T) {
	be := cpu.New()
	// Batch of 2 logical [2,3] matrices.
	x := rawF32(t, tensor.Shape{2, 2, 3}, seq(12))

	t.Run("reduce logical dim 0", func(t *testing.T) {
		out := dispatchOne(t, be, OpSumDim, WithBDim(x, 0), []int{0, 0})
		assert.Equal(t, tensor.Shape{2, 3}, out.Tensor.Shape())
		assert.Equal(t, []float32{5, 7, 9, 17, 19, 21}, f32s(out.Tensor))
	})

	t.Run("keepdim", func(t *testing.T) {
		out := dispatchOne(t, be, OpSumDim, WithBDim(x, 0), []int{0, 1})
		assert.Equal(t, tensor.Shape{2, 1, 3}, out.Tensor.Shape())
	})
}

func TestExpandBatchRule(t *testing.T) {
	be := cpu.New()
	// Batch of 2 logical vectors of length 3.
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	t.Run("broadcast to matrix", func(t *testing.T) {
		out := dispatchOne(t, be, OpExpand, WithBDim(x, 0), []int{2, 3})
		assert.Equal(t, tensor.Shape{2, 2, 3}, out.Tensor.Shape())
		assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 4, 5, 6, 4, 5, 6}, f32s(out.Tensor))
	})

	t.Run("too few target dims", func(t *testing.T) {
		m := rawF32(t, tensor.Shape{2, 1, 3}, seq(6))
		_, err := Dispatch(be, Call{Op: OpExpand, In: []Batched{WithBDim(m, 0)}, Ints: []int{3}})
		assert.Error(t, err)
	})
}

func TestSliceBatchRule(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 4}, seq(8))

	out := dispatchOne(t, be, OpSlice, WithBDim(x, 0), []int{0, 1, 2})
	assert.Equal(t, tensor.Shape{2, 2}, out.Tensor.Shape())
	assert.Equal(t, []float32{2, 3, 6, 7}, f32s(out.Tensor))
}
