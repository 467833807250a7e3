package vmap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/tensor"
)

// Decompositions re-express an operator through other dispatched
// operators, so batching support comes for free from the pieces. They
// never touch batch dimensions themselves.

// traceDecomp computes trace(x) as sum(diagonal(x)).
func traceDecomp(be tensor.Backend, call Call) ([]Batched, error) {
	if len(call.In) != 1 {
		panic(fmt.Sprintf("vmap: trace expects 1 tensor input, got %d", len(call.In)))
	}
	self := call.In[0]
	if rankWithoutBatchDim(self.Tensor, self.BDim) != 2 {
		return nil, errors.Errorf("trace: expected a 2-D input, got %d-D",
			rankWithoutBatchDim(self.Tensor, self.BDim))
	}
	diag, err := Dispatch(be, Call{Op: OpDiag, In: []Batched{self}, Ints: []int{0}})
	if err != nil {
		return nil, errors.WithMessage(err, "trace")
	}
	return Dispatch(be, Call{Op: OpSumDim, In: diag, Ints: []int{0, 0}})
}

// expandAsDecomp broadcasts self to the logical shape of other.
func expandAsDecomp(be tensor.Backend, call Call) ([]Batched, error) {
	if len(call.In) != 2 {
		panic(fmt.Sprintf("vmap: expand_as expects 2 tensor inputs, got %d", len(call.In)))
	}
	self, other := call.In[0], call.In[1]
	target := logicalShape(other)
	return Dispatch(be, Call{Op: OpExpand, In: []Batched{self}, Ints: target})
}

// meshgridDecomp builds the cartesian index grids for 1-D inputs: input i
// is viewed as [1, ..., s_i, ..., 1] and broadcast to [s_0, ..., s_n-1].
func meshgridDecomp(be tensor.Backend, call Call) ([]Batched, error) {
	n := len(call.In)
	if n == 0 {
		return nil, errors.New("meshgrid: expected at least one input")
	}
	full := make([]int, n)
	for i, in := range call.In {
		lr := rankWithoutBatchDim(in.Tensor, in.BDim)
		if lr != 1 {
			return nil, errors.Errorf("meshgrid: expected 1-D inputs, got %d-D at position %d", lr, i)
		}
		full[i] = logicalShape(in)[0]
	}
	outs := make([]Batched, n)
	for i, in := range call.In {
		cur := []Batched{in}
		var err error
		// Unsqueeze i leading axes, then n-i-1 trailing ones.
		for k := 0; k < i; k++ {
			cur, err = Dispatch(be, Call{Op: OpUnsqueeze, In: cur, Ints: []int{0}})
			if err != nil {
				return nil, errors.WithMessage(err, "meshgrid")
			}
		}
		for k := i + 1; k < n; k++ {
			cur, err = Dispatch(be, Call{Op: OpUnsqueeze, In: cur, Ints: []int{k}})
			if err != nil {
				return nil, errors.WithMessage(err, "meshgrid")
			}
		}
		cur, err = Dispatch(be, Call{Op: OpExpand, In: cur, Ints: full})
		if err != nil {
			return nil, errors.WithMessage(err, "meshgrid")
		}
		outs[i] = cur[0]
	}
	return outs, nil
}

// narrowDecomp forwards to slice; the two take the same arguments.
func narrowDecomp(be tensor.Backend, call Call) ([]Batched, error) {
	return Dispatch(be, Call{Op: OpSlice, In: call.In, Ints: call.Ints})
}

// flattenPassthrough runs the native flatten after translating the axis
// range to physical coordinates. Flatten only merges adjacent axes, so
// once the batch dimension sits at the front the native implementation is
// already batch-correct.
func flattenPassthrough(be tensor.Backend, call Call) ([]Batched, error) {
	if len(call.In) != 1 {
		panic(fmt.Sprintf("vmap: flatten expects 1 tensor input, got %d", len(call.In)))
	}
	self := call.In[0]
	if !self.BDim.Ok {
		return []Batched{Plain(tensor.Flatten(be, self.Tensor, call.Ints[0], call.Ints[1]))}, nil
	}
	moved := moveBatchDimToFront(be, self.Tensor, self.BDim)
	start, err := getPhysicalDim(moved, true, call.Ints[0])
	if err != nil {
		return nil, errors.WithMessage(err, "flatten")
	}
	end, err := getPhysicalDim(moved, true, call.Ints[1])
	if err != nil {
		return nil, errors.WithMessage(err, "flatten")
	}
	return []Batched{WithBDim(tensor.Flatten(be, moved, start, end), 0)}, nil
}

// logicalShape is the shape with the batch dimension removed.
func logicalShape(b Batched) []int {
	s := b.Tensor.Shape()
	if !b.BDim.Ok {
		return append([]int(nil), s...)
	}
	out := make([]int, 0, len(s)-1)
	for i, d := range s {
		if i == b.BDim.Dim {
			continue
		}
		out = append(out, d)
	}
	return out
}
