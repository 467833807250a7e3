package vmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/tensor"
)

func TestDispatchUnbatchedMatchesNative(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	out := dispatchOne(t, be, OpUnsqueeze, Plain(x), []int{1})
	native := be.Unsqueeze(x, 1)

	assert.False(t, out.BDim.Ok)
	assert.Equal(t, native.Shape(), out.Tensor.Shape())
	assert.Equal(t, f32s(native), f32s(out.Tensor))
}

func TestDispatchSuppressedIgnoresBatchDims(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	restore := suppressBatching()
	out := dispatchOne(t, be, OpUnsqueeze, WithBDim(x, 0), []int{0})
	restore()

	// Suppressed dispatch works on the physical tensor: the batch axis is
	// just another axis and the result carries no batch dim.
	assert.False(t, out.BDim.Ok)
	assert.Equal(t, tensor.Shape{1, 2, 3}, out.Tensor.Shape())
	assert.False(t, batchingSuppressed())
}

func TestSuppressionGuardReleaseTwicePanics(t *testing.T) {
	restore := suppressBatching()
	restore()
	assert.Panics(t, restore)
}

func TestFallbackInterpreter(t *testing.T) {
	be := cpu.New()

	t.Run("squeeze has no batch rule", func(t *testing.T) {
		_, registered := registry[OpSqueeze]
		require.False(t, registered, "squeeze must exercise the fallback")

		// Batch of 2 logical [1,3] inputs.
		x := rawF32(t, tensor.Shape{2, 1, 3}, seq(6))
		out := dispatchOne(t, be, OpSqueeze, WithBDim(x, 0), []int{0})

		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, tensor.Shape{2, 3}, out.Tensor.Shape())
		assert.Equal(t, seq(6), f32s(out.Tensor))
	})

	t.Run("matches the manual loop", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{3, 1, 2}, seq(6))
		out := dispatchOne(t, be, OpSqueeze, WithBDim(x, 0), []int{0})

		var slots []*tensor.RawTensor
		for i := 0; i < 3; i++ {
			slot := be.Squeeze(be.Narrow(x, 0, i, 1), 0)
			slots = append(slots, be.Squeeze(slot, 0))
		}
		want := be.Stack(slots, 0)
		assert.Equal(t, want.Shape(), out.Tensor.Shape())
		assert.Equal(t, f32s(want), f32s(out.Tensor))
	})

	t.Run("bdim not at front", func(t *testing.T) {
		// Physical [1, 2, 3] batched at axis 2: logical [1, 2] slots.
		x := rawF32(t, tensor.Shape{1, 2, 3}, seq(6))
		out := dispatchOne(t, be, OpSqueeze, WithBDim(x, 2), []int{0})

		assert.Equal(t, DimAt(0), out.BDim)
		assert.Equal(t, tensor.Shape{3, 2}, out.Tensor.Shape())
		// Slot i is x[:, :, i] squeezed to [2].
		assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, f32s(out.Tensor))
	})
}

func TestDispatchPlumbingOpPanics(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))
	assert.Panics(t, func() {
		_, _ = Dispatch(be, Call{Op: OpResize_, In: []Batched{WithBDim(x, 0)}, Ints: []int{6}})
	})
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "unsqueeze", OpUnsqueeze.String())
	assert.Equal(t, "_unsafe_view", OpUnsafeView.String())
	assert.Equal(t, "sum.dim", OpSumDim.String())
	assert.Equal(t, "resize_", OpResize_.String())
}
