// Copyright 2026 Loom ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vmap provides vectorized mapping for the Loom ML framework:
// functions written against single examples run over whole batches without
// user-level loops.
//
// Vmap wraps each input in a BatchedTensor that hides one batch axis. The
// operators in this package consult a per-operator rule table to rewrite
// calls so the batch axis is carried through untouched; operators without
// a rule fall back to an interpreted per-example loop.
//
// Example:
//
//	backend := cpu.New()
//	// x holds a batch of 32 matrices; trace each one in a single call.
//	traces, err := vmap.Vmap1(backend, func(m *vmap.BatchedTensor) (*vmap.BatchedTensor, error) {
//	    return vmap.Trace(backend, m)
//	}, vmap.DimAt(0), x)
package vmap

import (
	"github.com/loom-ml/loom/internal/vmap"
	"github.com/loom-ml/loom/tensor"
)

// BDim is an optional batch-dimension index.
type BDim = vmap.BDim

// DimAt returns a present batch dimension at physical axis d.
func DimAt(d int) BDim {
	return vmap.DimAt(d)
}

// NoDim returns an absent batch dimension, for arguments shared across the
// batch.
func NoDim() BDim {
	return vmap.NoDim()
}

// BatchedTensor is the wrapper flowing through a vmapped function.
type BatchedTensor = vmap.BatchedTensor

// Func is a function written against single logical examples.
type Func = vmap.Func

// Vmap maps fn over a batch axis of its inputs. inDims gives, per input,
// the physical axis holding the batch (or NoDim for shared arguments).
// Every output comes back with the batch at the leading axis.
func Vmap(be tensor.Backend, fn Func, inDims []BDim, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	return vmap.Vmap(be, fn, inDims, inputs)
}

// Vmap1 is the single-input, single-output convenience form of Vmap.
func Vmap1(be tensor.Backend, fn func(*BatchedTensor) (*BatchedTensor, error), inDim BDim, input *tensor.RawTensor) (*tensor.RawTensor, error) {
	return vmap.Vmap1(be, fn, inDim, input)
}
