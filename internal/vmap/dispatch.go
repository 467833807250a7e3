package vmap

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/loom-ml/loom/internal/tensor"
)

// Dispatch executes a boxed operator call. When batching is suppressed or
// no input carries a batch dimension, the plain operator runs directly, so
// the unbatched path is byte-identical to calling the operator outside
// vmap. Otherwise the registry entry decides: a batch rule rewrites the
// call, a decomposition re-expresses it through other dispatched
// operators, a passthrough trusts the native implementation. Operators
// with no entry go through the slot-wise fallback interpreter.
func Dispatch(be tensor.Backend, call Call) ([]Batched, error) {
	e, registered := registry[call.Op]
	if registered && e.kind == KindPlumbing {
		panic(fmt.Sprintf("vmap: %s is a mutating operator and cannot be dispatched boxed", call.Op))
	}

	if batchingSuppressed() || !anyBatched(call.In) {
		klog.V(2).Infof("vmap: %s -> plain (suppressed=%v)", call.Op, batchingSuppressed())
		return execPlainBoxed(be, call)
	}

	if !registered {
		return batchedFallback(be, call)
	}
	klog.V(2).Infof("vmap: %s -> %v rule", call.Op, e.kind)
	return e.run(be, call)
}

func anyBatched(in []Batched) bool {
	for _, b := range in {
		if b.BDim.Ok {
			return true
		}
	}
	return false
}

// plainFunc runs an operator's native implementation on plain tensors.
type plainFunc func(be tensor.Backend, ins []*tensor.RawTensor, ints []int) ([]*tensor.RawTensor, error)

// plainOps maps every operator to its native implementation. The fallback
// interpreter and the unbatched fast path both run through it.
var plainOps = map[Op]plainFunc{
	OpUnsqueeze: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Unsqueeze(x, ints[0]), nil
	}),
	OpRepeat: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Repeat(x, ints), nil
	}),
	OpDiag: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return diagPlain(be, x, ints[0])
	}),
	OpUnsafeView: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Reshape(x, ints), nil
	}),
	OpFlip: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Flip(x, ints), nil
	}),
	OpTril: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Tril(x, ints[0]), nil
	}),
	OpTriu: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Triu(x, ints[0]), nil
	}),
	OpSumDim: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.SumDim(x, ints[0], ints[1] != 0), nil
	}),
	OpExpand: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Expand(x, ints), nil
	}),
	OpSlice: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Narrow(x, ints[0], ints[1], ints[2]), nil
	}),
	OpNarrow: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Narrow(x, ints[0], ints[1], ints[2]), nil
	}),
	OpTrace: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		if x.Rank() != 2 {
			return nil, errors.Errorf("trace: expected a 2-D input, got %d-D", x.Rank())
		}
		return be.Sum(be.Diagonal(x, 0, 0, 1)), nil
	}),
	OpExpandAs: func(be tensor.Backend, ins []*tensor.RawTensor, ints []int) ([]*tensor.RawTensor, error) {
		return []*tensor.RawTensor{be.Expand(ins[0], ins[1].Shape())}, nil
	},
	OpMeshgrid: meshgridPlain,
	OpFlatten: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return tensor.Flatten(be, x, ints[0], ints[1]), nil
	}),
	OpSqueeze: plain1(func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error) {
		return be.Squeeze(x, ints[0]), nil
	}),
}

func plain1(f func(be tensor.Backend, x *tensor.RawTensor, ints []int) (*tensor.RawTensor, error)) plainFunc {
	return func(be tensor.Backend, ins []*tensor.RawTensor, ints []int) ([]*tensor.RawTensor, error) {
		out, err := f(be, ins[0], ints)
		if err != nil {
			return nil, err
		}
		return []*tensor.RawTensor{out}, nil
	}
}

func meshgridPlain(be tensor.Backend, ins []*tensor.RawTensor, ints []int) ([]*tensor.RawTensor, error) {
	full := make(tensor.Shape, len(ins))
	for i, t := range ins {
		if t.Rank() != 1 {
			return nil, errors.Errorf("meshgrid: expected 1-D inputs, got %d-D at position %d", t.Rank(), i)
		}
		full[i] = t.Shape()[0]
	}
	outs := make([]*tensor.RawTensor, len(ins))
	for i, t := range ins {
		view := make(tensor.Shape, len(ins))
		for j := range view {
			view[j] = 1
		}
		view[i] = full[i]
		outs[i] = be.Expand(be.Reshape(t, view), full)
	}
	return outs, nil
}

// execPlainBoxed runs the native operator on the call's physical tensors,
// preserving the absent batch dims on the results.
func execPlainBoxed(be tensor.Backend, call Call) ([]Batched, error) {
	f, ok := plainOps[call.Op]
	if !ok {
		panic(fmt.Sprintf("vmap: no native implementation for operator %s", call.Op))
	}
	ins := make([]*tensor.RawTensor, len(call.In))
	for i, b := range call.In {
		ins[i] = b.Tensor
	}
	outs, err := f(be, ins, call.Ints)
	if err != nil {
		return nil, err
	}
	res := make([]Batched, len(outs))
	for i, t := range outs {
		res[i] = Plain(t)
	}
	return res, nil
}

// batchedFallback is the generic interpreter for operators without a batch
// rule: slice every batched input at each batch index, run the plain
// operator per slot, and stack the per-slot results along a new leading
// axis.
func batchedFallback(be tensor.Backend, call Call) ([]Batched, error) {
	klog.Warningf("vmap: no batch rule registered for %s; falling back to a slot-wise loop, expect degraded performance", call.Op)

	f, ok := plainOps[call.Op]
	if !ok {
		panic(fmt.Sprintf("vmap: no native implementation for operator %s", call.Op))
	}

	batchSize := -1
	for _, b := range call.In {
		if !b.BDim.Ok {
			continue
		}
		size := b.Tensor.Shape()[b.BDim.Dim]
		if batchSize == -1 {
			batchSize = size
		} else if size != batchSize {
			return nil, errors.Errorf("%s: inconsistent batch sizes %d and %d", call.Op, batchSize, size)
		}
	}
	if batchSize == -1 {
		panic("vmap: fallback invoked without a batched input")
	}

	var perSlot [][]*tensor.RawTensor
	ins := make([]*tensor.RawTensor, len(call.In))
	for slot := 0; slot < batchSize; slot++ {
		for i, b := range call.In {
			if b.BDim.Ok {
				ins[i] = be.Squeeze(be.Narrow(b.Tensor, b.BDim.Dim, slot, 1), b.BDim.Dim)
			} else {
				ins[i] = b.Tensor
			}
		}
		outs, err := f(be, ins, call.Ints)
		if err != nil {
			return nil, err
		}
		if perSlot == nil {
			perSlot = make([][]*tensor.RawTensor, len(outs))
		}
		for i, t := range outs {
			perSlot[i] = append(perSlot[i], t)
		}
	}

	res := make([]Batched, len(perSlot))
	for i, slots := range perSlot {
		res[i] = WithBDim(be.Stack(slots, 0), 0)
	}
	return res, nil
}
