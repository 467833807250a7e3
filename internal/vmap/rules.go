package vmap

import (
	"github.com/pkg/errors"

	"github.com/loom-ml/loom/internal/tensor"
)

// Batch rules for view-style operators. Each rule receives the operator's
// tensor arguments already unwrapped, paired with their optional batch
// dimension, and returns the result with its own batch dimension. Rules
// are only invoked when at least one input is batched; the dispatcher runs
// the plain operator otherwise.
//
// Dimension arguments arrive in the caller's logical (unbatched) space and
// are translated here. Most rules canonicalize the batch dimension to
// physical axis 0 first, which collapses all bdim positions to one case.

func unsqueezeBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, dim int) (Batched, error) {
	canonical := moveBatchDimToFront(be, self, selfBdim)
	rank := rankWithoutBatchDim(self, selfBdim)
	d, ok := tensor.WrapDim(dim, rank+1)
	if !ok {
		return Batched{}, errors.Errorf("unsqueeze: dimension %d out of range for %dD tensor", dim, rank)
	}
	// The insertion point lands strictly after the canonical batch axis,
	// so the batch axis stays at 0.
	return WithBDim(be.Unsqueeze(canonical, d+1), 0), nil
}

// repeat is not a view, but it lives with the view rules as it does
// upstream.
func repeatBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, sizes []int) (Batched, error) {
	rank := rankWithoutBatchDim(self, selfBdim)
	if len(sizes) < rank {
		return Batched{}, errors.Errorf("repeat: %d repeat factors for %dD tensor (need at least %d)",
			len(sizes), rank, rank)
	}

	// The batch axis is never tiled: prepend a factor of 1 for it.
	sizesWithBdim := make([]int, 0, len(sizes)+1)
	sizesWithBdim = append(sizesWithBdim, 1)
	sizesWithBdim = append(sizesWithBdim, sizes...)

	canonical := moveBatchDimToFront(be, self, selfBdim)
	for canonical.Rank() < len(sizesWithBdim) {
		canonical = be.Unsqueeze(canonical, 1)
	}
	return WithBDim(be.Repeat(canonical, sizesWithBdim), 0), nil
}

// diagBatchRule forks on the logical rank because the operator's meaning
// does: a 1-D input builds a diagonal matrix, a 2-D input extracts the
// diagonal.
func diagBatchRule(be tensor.Backend, input *tensor.RawTensor, inputBdim BDim, offset int) (Batched, error) {
	if !inputBdim.Ok {
		out, err := diagPlain(be, input, offset)
		if err != nil {
			return Batched{}, err
		}
		return Plain(out), nil
	}

	canonical := moveBatchDimToFront(be, input, inputBdim)
	rank := rankWithoutBatchDim(input, inputBdim)

	switch rank {
	case 1:
		// The front batch axis becomes a leading matrix-batch axis of
		// diag_embed, so it stays put.
		return WithBDim(be.DiagEmbed(canonical, offset), 0), nil
	case 2:
		// Move the batch axis behind the matrix, extract along the leading
		// two axes, and materialize: the extraction's aliasing would be
		// unsafe to hand back.
		moved := movedim(be, canonical, 0, -1)
		out := be.Copy(be.Diagonal(moved, offset, 0, 1))
		return WithBDim(out, rank-2), nil
	default:
		return Batched{}, errors.Errorf("diag: expected a 1-D or 2-D input, got %d-D", rank)
	}
}

func diagPlain(be tensor.Backend, input *tensor.RawTensor, offset int) (*tensor.RawTensor, error) {
	switch input.Rank() {
	case 1:
		return be.DiagEmbed(input, offset), nil
	case 2:
		return be.Diagonal(input, offset, 0, 1), nil
	default:
		return nil, errors.Errorf("diag: expected a 1-D or 2-D input, got %d-D", input.Rank())
	}
}

// unsafeViewBatchRule performs no canonicalization: the batch size is
// spliced into the requested shape at the current batch-dim position and
// the bdim passes through unchanged. The caller is trusted to have picked
// a shape consistent with the existing physical layout; the rule is only
// safe when the batch axis already sits where the caller expects.
func unsafeViewBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, size []int) (Batched, error) {
	if !selfBdim.Ok {
		panic("vmap: _unsafe_view batch rule invoked without a batch dim")
	}
	viewSize := make(tensor.Shape, 0, len(size)+1)
	viewSize = append(viewSize, size[:selfBdim.Dim]...)
	viewSize = append(viewSize, self.Shape()[selfBdim.Dim])
	viewSize = append(viewSize, size[selfBdim.Dim:]...)
	return Batched{Tensor: be.Reshape(self, viewSize), BDim: selfBdim}, nil
}

func flipBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, dims []int) (Batched, error) {
	canonical := moveBatchDimToFront(be, self, selfBdim)
	physDims := make([]int, 0, len(dims))
	for _, d := range dims {
		p, err := getPhysicalDim(self, true, d)
		if err != nil {
			return Batched{}, errors.WithMessage(err, "flip")
		}
		physDims = append(physDims, p)
	}
	return WithBDim(be.Flip(canonical, physDims), 0), nil
}

// variadicBdimsBatchRule is the shared rule for shape-preserving operators
// that already treat leading axes as independent batch-like axes: move the
// batch dim to the front and apply the operator unchanged.
func variadicBdimsBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim,
	minRank int, apply func(*tensor.RawTensor) *tensor.RawTensor) (Batched, error) {
	if rank := rankWithoutBatchDim(self, selfBdim); rank < minRank {
		return Batched{}, errors.Errorf("expected an input of at least %d dimensions, got %d-D", minRank, rank)
	}
	canonical := moveBatchDimToFront(be, self, selfBdim)
	return WithBDim(apply(canonical), 0), nil
}

// sumDimBatchRule is the worked example from the package note: shift the
// reduced dimension past the canonical batch axis and reduce.
func sumDimBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, dim int, keepDim bool) (Batched, error) {
	canonical := moveBatchDimToFront(be, self, selfBdim)
	d, err := getPhysicalDim(self, true, dim)
	if err != nil {
		return Batched{}, errors.WithMessage(err, "sum")
	}
	return WithBDim(be.SumDim(canonical, d, keepDim), 0), nil
}

func expandBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, sizes []int) (Batched, error) {
	rank := rankWithoutBatchDim(self, selfBdim)
	if len(sizes) < rank {
		return Batched{}, errors.Errorf("expand: target shape %v has fewer dimensions than input's %d", sizes, rank)
	}

	canonical := moveBatchDimToFront(be, self, selfBdim)
	for canonical.Rank() < len(sizes)+1 {
		canonical = be.Unsqueeze(canonical, 1)
	}

	physSizes := make(tensor.Shape, 0, len(sizes)+1)
	physSizes = append(physSizes, canonical.Shape()[0])
	physSizes = append(physSizes, sizes...)
	return WithBDim(be.Expand(canonical, physSizes), 0), nil
}

func sliceBatchRule(be tensor.Backend, self *tensor.RawTensor, selfBdim BDim, dim, start, length int) (Batched, error) {
	canonical := moveBatchDimToFront(be, self, selfBdim)
	d, err := getPhysicalDim(self, true, dim)
	if err != nil {
		return Batched{}, errors.WithMessage(err, "slice")
	}
	return WithBDim(be.Narrow(canonical, d, start, length), 0), nil
}
