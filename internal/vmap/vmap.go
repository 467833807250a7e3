package vmap

import (
	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/tensor"
)

// Func is a function written against single logical examples; Vmap runs it
// once over a whole batch.
type Func func(inputs []*BatchedTensor) ([]*BatchedTensor, error)

// Vmap maps fn over a batch axis of its inputs without looping in user
// code. inDims gives, per input, the physical axis holding the batch (or
// an absent BDim for arguments shared across the batch). Every output
// comes back with the batch at the leading axis; outputs fn produced
// without a batch dimension are broadcast to the batch size.
func Vmap(be tensor.Backend, fn Func, inDims []BDim, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inDims) != len(inputs) {
		return nil, errors.Errorf("vmap: got %d in_dims for %d inputs", len(inDims), len(inputs))
	}

	batchSize := -1
	for i, d := range inDims {
		if !d.Ok {
			continue
		}
		if d.Dim < 0 || d.Dim >= inputs[i].Rank() {
			return nil, errors.Errorf("vmap: in_dim %d out of range for %dD input %d", d.Dim, inputs[i].Rank(), i)
		}
		size := inputs[i].Shape()[d.Dim]
		if batchSize == -1 {
			batchSize = size
		} else if size != batchSize {
			return nil, errors.Errorf("vmap: inconsistent batch sizes %d and %d", batchSize, size)
		}
	}
	if batchSize == -1 {
		return nil, errors.New("vmap: at least one input must have a batch dimension")
	}

	level := pushLayer(batchSize)
	defer popLayer()

	wrapped := make([]*BatchedTensor, len(inputs))
	for i, in := range inputs {
		if inDims[i].Ok {
			wrapped[i] = Wrap(in, inDims[i].Dim, level)
		} else {
			wrapped[i] = WrapPlain(in, level)
		}
	}

	outs, err := fn(wrapped)
	if err != nil {
		return nil, err
	}

	results := make([]*tensor.RawTensor, len(outs))
	for i, out := range outs {
		val, bdim := unwrapAtLevel(out, level)
		if bdim.Ok {
			results[i] = moveBatchDimToFront(be, val, bdim)
			continue
		}
		// fn ignored the batch for this output; materialize one copy per
		// batch index so every output has the leading batch axis.
		expanded := be.Unsqueeze(val, 0)
		target := make(tensor.Shape, 0, val.Rank()+1)
		target = append(target, batchSize)
		target = append(target, val.Shape()...)
		results[i] = be.Expand(expanded, target)
	}
	return results, nil
}

// Vmap1 is the single-input, single-output convenience form.
func Vmap1(be tensor.Backend, fn func(*BatchedTensor) (*BatchedTensor, error), inDim BDim, input *tensor.RawTensor) (*tensor.RawTensor, error) {
	outs, err := Vmap(be, func(ins []*BatchedTensor) ([]*BatchedTensor, error) {
		out, err := fn(ins[0])
		if err != nil {
			return nil, err
		}
		return []*BatchedTensor{out}, nil
	}, []BDim{inDim}, []*tensor.RawTensor{input})
	if err != nil {
		return nil, err
	}
	return outs[0], nil
}
