package patchstream

import "errors"

var (
	// ErrNilIndex is returned by New when no spatial index is given.
	ErrNilIndex = errors.New("patchstream: spatial index is nil")

	// ErrNilBuilder is returned by New when no patch builder is given.
	ErrNilBuilder = errors.New("patchstream: patch builder is nil")

	// ErrNilPatch is logged when a builder reports success without a patch.
	ErrNilPatch = errors.New("patchstream: builder returned no patch")
)
