package vmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-ml/loom/internal/backend/cpu"
	"github.com/loom-ml/loom/internal/tensor"
)

func TestVmapMatchesManualLoop(t *testing.T) {
	be := cpu.New()
	// Batch of three 2x2 matrices; the mapped function is
	// triu(flip(x, 0), 0), a composition of two view rules.
	x := rawF32(t, tensor.Shape{3, 2, 2}, seq(12))

	fn := func(in *BatchedTensor) (*BatchedTensor, error) {
		flipped, err := Flip(be, in, []int{0})
		if err != nil {
			return nil, err
		}
		return Triu(be, flipped, 0)
	}

	out, err := Vmap1(be, fn, DimAt(0), x)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{3, 2, 2}, out.Shape())

	var slots []*tensor.RawTensor
	for i := 0; i < 3; i++ {
		slot := be.Squeeze(be.Narrow(x, 0, i, 1), 0)
		slots = append(slots, be.Triu(be.Flip(slot, []int{0}), 0))
	}
	want := be.Stack(slots, 0)
	assert.Equal(t, f32s(want), f32s(out))
}

func TestVmapBatchDimNotAtFront(t *testing.T) {
	be := cpu.New()
	// Physical [2, 3] batched along axis 1: three logical vectors of
	// length 2. Outputs always come back with the batch leading.
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	out, err := Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
		return Unsqueeze(be, in, 0)
	}, DimAt(1), x)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{3, 1, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, f32s(out))
}

func TestVmapUnbatchedArgument(t *testing.T) {
	be := cpu.New()
	// One batched input, one shared across the batch.
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))
	ref := rawF32(t, tensor.Shape{2, 3}, make([]float32, 6))

	outs, err := Vmap(be, func(ins []*BatchedTensor) ([]*BatchedTensor, error) {
		out, err := ExpandAs(be, ins[0], ins[1])
		if err != nil {
			return nil, err
		}
		return []*BatchedTensor{out}, nil
	}, []BDim{DimAt(0), NoDim()}, []*tensor.RawTensor{x, ref})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, tensor.Shape{2, 2, 3}, outs[0].Shape())
}

func TestVmapUnbatchedOutputBroadcasts(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))
	shared := rawF32(t, tensor.Shape{3}, []float32{7, 8, 9})

	// fn returns the shared input untouched; the result still comes back
	// with a leading batch axis.
	outs, err := Vmap(be, func(ins []*BatchedTensor) ([]*BatchedTensor, error) {
		return []*BatchedTensor{ins[1]}, nil
	}, []BDim{DimAt(0), NoDim()}, []*tensor.RawTensor{x, shared})
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, outs[0].Shape())
	assert.Equal(t, []float32{7, 8, 9, 7, 8, 9}, f32s(outs[0]))
}

func TestVmapTrace(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 2, 2}, seq(8))

	out, err := Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
		return Trace(be, in)
	}, DimAt(0), x)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2}, out.Shape())
	assert.Equal(t, []float32{5, 13}, f32s(out))
}

func TestVmapResizeInPlace(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 4}, seq(8))

	out, err := Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
		return ResizeInPlace(be, in, []int{6}, tensor.Contiguous)
	}, DimAt(0), x)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 6}, out.Shape())
	assert.Equal(t,
		[]float32{1, 2, 3, 4, 0, 0, 5, 6, 7, 8, 0, 0},
		f32s(out))
}

func TestVmapErrors(t *testing.T) {
	be := cpu.New()
	identity := func(in *BatchedTensor) (*BatchedTensor, error) { return in, nil }

	t.Run("in_dims length mismatch", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2}, seq(2))
		_, err := Vmap(be, func(ins []*BatchedTensor) ([]*BatchedTensor, error) {
			return ins, nil
		}, []BDim{DimAt(0), DimAt(0)}, []*tensor.RawTensor{x})
		assert.Error(t, err)
	})

	t.Run("no batched input", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2}, seq(2))
		_, err := Vmap1(be, identity, NoDim(), x)
		assert.Error(t, err)
	})

	t.Run("in_dim out of range", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2}, seq(2))
		_, err := Vmap1(be, identity, DimAt(1), x)
		assert.Error(t, err)
	})

	t.Run("inconsistent batch sizes", func(t *testing.T) {
		a := rawF32(t, tensor.Shape{2, 3}, seq(6))
		b := rawF32(t, tensor.Shape{3, 3}, seq(9))
		_, err := Vmap(be, func(ins []*BatchedTensor) ([]*BatchedTensor, error) {
			return ins[:1], nil
		}, []BDim{DimAt(0), DimAt(0)}, []*tensor.RawTensor{a, b})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "inconsistent batch sizes")
	})

	t.Run("usage error propagates", func(t *testing.T) {
		x := rawF32(t, tensor.Shape{2, 2, 2, 2}, make([]float32, 16))
		_, err := Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
			return Diag(be, in, 0)
		}, DimAt(0), x)
		assert.Error(t, err)
	})
}

func TestVmapLayerStackBalanced(t *testing.T) {
	be := cpu.New()
	x := rawF32(t, tensor.Shape{2, 3}, seq(6))

	_, err := Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
		return Unsqueeze(be, in, 0)
	}, DimAt(0), x)
	require.NoError(t, err)

	_, active := currentLayer()
	assert.False(t, active, "layer stack must be empty after Vmap returns")

	// The stack unwinds on error paths too.
	_, err = Vmap1(be, func(in *BatchedTensor) (*BatchedTensor, error) {
		return Trace(be, in)
	}, DimAt(0), x)
	require.Error(t, err)

	_, active = currentLayer()
	assert.False(t, active)
}
