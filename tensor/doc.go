// Copyright 2026 Loom ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the Loom ML framework.
//
// # Overview
//
// Tensors are the fundamental data structure in Loom. This package provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - NumPy-style broadcasting
//   - Zero-copy views where possible
//   - Device abstraction
//
// # Basic Usage
//
//	import (
//	    "github.com/loom-ml/loom/tensor"
//	    "github.com/loom-ml/loom/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
//
// # Batched Execution
//
// Functions written against single examples can be run over whole batches
// with the vmap package; see github.com/loom-ml/loom/vmap.
package tensor
