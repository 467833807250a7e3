package vmap

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// Op identifies a vectorization-aware operator. The set is closed: the
// dispatcher matches on it, and anything outside the table goes through the
// slot-wise fallback.
type Op int

// Supported operators.
const (
	OpUnsqueeze Op = iota
	OpRepeat
	OpDiag
	OpUnsafeView
	OpFlip
	OpTril
	OpTriu
	OpSumDim
	OpExpand
	OpSlice
	OpTrace
	OpExpandAs
	OpMeshgrid
	OpNarrow
	OpFlatten
	OpSqueeze
	OpResize_
)

// String returns the operator's name.
func (op Op) String() string {
	switch op {
	case OpUnsqueeze:
		return "unsqueeze"
	case OpRepeat:
		return "repeat"
	case OpDiag:
		return "diag"
	case OpUnsafeView:
		return "_unsafe_view"
	case OpFlip:
		return "flip"
	case OpTril:
		return "tril"
	case OpTriu:
		return "triu"
	case OpSumDim:
		return "sum.dim"
	case OpExpand:
		return "expand"
	case OpSlice:
		return "slice"
	case OpTrace:
		return "trace"
	case OpExpandAs:
		return "expand_as"
	case OpMeshgrid:
		return "meshgrid"
	case OpNarrow:
		return "narrow"
	case OpFlatten:
		return "flatten.using_ints"
	case OpSqueeze:
		return "squeeze.dim"
	case OpResize_:
		return "resize_"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Kind tags how an operator's registry entry handles batching.
type Kind int

// Entry kinds.
const (
	// KindBatchRule: a bespoke rule rewrites the call for batched inputs.
	KindBatchRule Kind = iota
	// KindDecompose: the operator is re-expressed as a fixed composition
	// of operators that already have batch rules.
	KindDecompose
	// KindPassthrough: the native implementation is trusted to be
	// batch-dimension-agnostic given upstream axis translation.
	KindPassthrough
	// KindPlumbing: the operator mutates; it handles wrappers itself and
	// is not reachable through the boxed dispatcher.
	KindPlumbing
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindBatchRule:
		return "batch"
	case KindDecompose:
		return "decompose"
	case KindPassthrough:
		return "passthrough"
	case KindPlumbing:
		return "plumbing"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Call is a boxed operator invocation: tensor arguments paired with their
// batch dims, and the operator's non-tensor integer arguments in declared
// order. Per-operator Ints layout:
//
//	unsqueeze     [dim]
//	repeat        repeat factors per logical axis
//	diag          [offset]
//	_unsafe_view  target logical shape
//	flip          axes to reverse
//	tril, triu    [diagonal]
//	sum.dim       [dim, keepDim(0|1)]
//	expand        target logical shape
//	slice, narrow [dim, start, length]
//	flatten       [startDim, endDim]
//	trace, expand_as, meshgrid  (none)
type Call struct {
	Op   Op
	In   []Batched
	Ints []int
}

// ruleFunc executes a boxed call on unwrapped tensors, returning each
// result with its batch dimension.
type ruleFunc func(be tensor.Backend, call Call) ([]Batched, error)

type entry struct {
	kind Kind
	run  ruleFunc
}

// registry is the static operator table, built once at package load and
// consulted by Dispatch before falling back to the generic interpreter.
var registry map[Op]entry

func init() {
	registry = map[Op]entry{
		OpUnsqueeze:  {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return unsqueezeBatchRule(be, in.Tensor, in.BDim, ints[0])
		})},
		OpRepeat:     {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return repeatBatchRule(be, in.Tensor, in.BDim, ints)
		})},
		OpDiag:       {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return diagBatchRule(be, in.Tensor, in.BDim, ints[0])
		})},
		OpUnsafeView: {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return unsafeViewBatchRule(be, in.Tensor, in.BDim, ints)
		})},
		OpFlip:       {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return flipBatchRule(be, in.Tensor, in.BDim, ints)
		})},
		OpTril:       {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return variadicBdimsBatchRule(be, in.Tensor, in.BDim, 2, func(t *tensor.RawTensor) *tensor.RawTensor {
				return be.Tril(t, ints[0])
			})
		})},
		OpTriu:       {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return variadicBdimsBatchRule(be, in.Tensor, in.BDim, 2, func(t *tensor.RawTensor) *tensor.RawTensor {
				return be.Triu(t, ints[0])
			})
		})},
		OpSumDim:     {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return sumDimBatchRule(be, in.Tensor, in.BDim, ints[0], ints[1] != 0)
		})},
		OpExpand:     {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return expandBatchRule(be, in.Tensor, in.BDim, ints)
		})},
		OpSlice:      {KindBatchRule, boxed1(func(be tensor.Backend, in Batched, ints []int) (Batched, error) {
			return sliceBatchRule(be, in.Tensor, in.BDim, ints[0], ints[1], ints[2])
		})},

		OpTrace:    {KindDecompose, traceDecomp},
		OpExpandAs: {KindDecompose, expandAsDecomp},
		OpMeshgrid: {KindDecompose, meshgridDecomp},
		OpNarrow:   {KindDecompose, narrowDecomp},

		OpFlatten: {KindPassthrough, flattenPassthrough},

		// resize_ mutates; it goes through ResizeInPlace, never the boxed
		// dispatcher.
		OpResize_: {kind: KindPlumbing},
	}
}

// boxed1 adapts a single-tensor-input rule to the boxed signature.
func boxed1(rule func(be tensor.Backend, in Batched, ints []int) (Batched, error)) ruleFunc {
	return func(be tensor.Backend, call Call) ([]Batched, error) {
		if len(call.In) != 1 {
			panic(fmt.Sprintf("vmap: %s expects 1 tensor input, got %d", call.Op, len(call.In)))
		}
		out, err := rule(be, call.In[0], call.Ints)
		if err != nil {
			return nil, err
		}
		return []Batched{out}, nil
	}
}
