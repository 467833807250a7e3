package vmap

import (
	"fmt"

	"github.com/loom-ml/loom/internal/tensor"
)

// rankWithoutBatchDim returns the tensor's logical rank: its physical rank
// minus one when a batch dimension is present. Must not be called with a
// bdim outside the tensor's rank.
func rankWithoutBatchDim(t *tensor.RawTensor, bdim BDim) int {
	rank := t.Rank()
	if !bdim.Ok {
		return rank
	}
	if bdim.Dim < 0 || bdim.Dim >= rank {
		panic(fmt.Sprintf("vmap: batch dim %d out of range for %dD tensor", bdim.Dim, rank))
	}
	return rank - 1
}

// moveBatchDimToFront canonicalizes a batched tensor so its batch
// dimension sits at physical axis 0. Unbatched and already-canonical
// inputs come back as cheap aliases, never copies.
func moveBatchDimToFront(be tensor.Backend, t *tensor.RawTensor, bdim BDim) *tensor.RawTensor {
	if !bdim.Ok || bdim.Dim == 0 {
		return t
	}
	return movedim(be, t, bdim.Dim, 0)
}

// movedim moves the axis at src to dst, keeping the relative order of the
// other axes.
func movedim(be tensor.Backend, t *tensor.RawTensor, src, dst int) *tensor.RawTensor {
	rank := t.Rank()
	s, ok := tensor.WrapDim(src, rank)
	if !ok {
		panic(fmt.Sprintf("vmap: movedim source %d out of range for %dD tensor", src, rank))
	}
	d, ok := tensor.WrapDim(dst, rank)
	if !ok {
		panic(fmt.Sprintf("vmap: movedim destination %d out of range for %dD tensor", dst, rank))
	}
	if s == d {
		return t
	}

	rest := make([]int, 0, rank-1)
	for i := 0; i < rank; i++ {
		if i != s {
			rest = append(rest, i)
		}
	}
	perm := make([]int, 0, rank)
	perm = append(perm, rest[:d]...)
	perm = append(perm, s)
	perm = append(perm, rest[d:]...)
	return be.Permute(t, perm)
}

// getPhysicalDim translates a logical dimension argument, possibly
// negative, into the physical axis of t. The logical index is resolved in
// the unbatched rank space first, then shifted by one when a batch
// dimension is present (the canonical front position).
func getPhysicalDim(t *tensor.RawTensor, hasBDim bool, logicalDim int) (int, error) {
	logicalRank := t.Rank()
	if hasBDim {
		logicalRank--
	}
	d, ok := tensor.WrapDim(logicalDim, logicalRank)
	if !ok {
		return 0, fmt.Errorf("dimension %d out of range for %dD tensor", logicalDim, logicalRank)
	}
	if hasBDim {
		d++
	}
	return d, nil
}
