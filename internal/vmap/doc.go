// Package vmap implements automatic vectorization for tensor operators.
//
// Vmap reinterprets a function written for single examples as a function
// over a batch, without an explicit loop. The extra tensor axis introduced
// by Vmap is called the batch dimension (bdim); it is invisible to the
// operator's normal signature.
//
// # Adding vmap support for an operator
//
// If an operator is out of place, write a batch rule for it. A batch rule
// receives each tensor argument together with an optional batch-dimension
// index and returns the result with its own optional index. Consider
// sumDim(x, dim):
//
//   - when x carries no bdim, the rule just runs sumDim(x, dim)
//   - when x carries a bdim, the rule moves it to the front, shifts dim by
//     one to skip it, reduces, and reports the result's bdim as 0
//
// Register the rule in the operator table (registry.go) and the dispatcher
// will use it instead of the slow slot-wise fallback.
//
// If an operator can be expressed as a fixed composition of operators
// that already have batch rules, register a decomposition instead: the
// composition needs no bdim bookkeeping of its own, because it inherits
// correctness from the rules of its sub-operators (see trace).
//
// In-place operators need plumbing: they must unwrap the batched wrapper
// themselves, mutate the underlying storage with batching interception
// suppressed, and refresh the wrapper's cached metadata (see resize_).
//
// The package is single-threaded per call: the layer stack and the
// suppression flag are process-wide and unsynchronized, matching the
// synchronous dispatch model.
package vmap
