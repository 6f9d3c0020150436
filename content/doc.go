// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package content holds the shared, read-only content of a level that every
// patch build reads: the world bounds, the terrain heightmap and the terrain
// material.
//
// A Level is immutable once created and may be read by any number of build
// goroutines concurrently. Heightmaps can be decoded from images (resampled
// with golang.org/x/image/draw), read from zstd-compressed raw files, or
// generated procedurally. Materials are WGSL sources compiled to SPIR-V with
// gogpu/naga when the level is loaded.
package content
