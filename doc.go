// Package diskmask classifies points of a 2D non-negative integer lattice
// against a disk and writes the classification as a dense {0,1} mask of
// uint32 values into a flat, stride-addressed buffer.
//
// # Overview
//
// A point (x, y) is inside when x²+y² < (size-1)², using exact unsigned
// integer arithmetic. The work is partitioned into rectangular tiles, each
// dispatched independently; tiles write disjoint index ranges of one shared
// result buffer, so the output is bit-identical whether the lattice is
// computed in one dispatch or many, sequentially or concurrently.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/diskmask"
//	    _ "github.com/gogpu/diskmask/gpu" // enable GPU dispatch
//	)
//
//	mask, err := diskmask.Classify(ctx, diskmask.Config{
//	    Size:  1024,
//	    Width: 1024, Height: 1024,
//	})
//	if err != nil {
//	    return err
//	}
//	total := mask.InsideCount()
//
// # Backends
//
// The CPU classifier is always available and is the reference for all
// correctness properties. Importing the gpu subpackage registers a WebGPU
// compute classifier; when GPU initialization fails, classification
// transparently falls back to the CPU path.
//
// # Addressing
//
// The result buffer is addressed as stride*y + x. Stride defaults to the
// domain width and may be larger for padded buffers; it must never be
// smaller, which Config.Validate rejects before any work is issued.
package diskmask
