package content

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// rawMagic prefixes every raw heightmap stream.
var rawMagic = [4]byte{'H', 'M', 'A', 'P'}

// maxRawSide bounds the dimensions accepted from a raw stream.
const maxRawSide = 1 << 14

// ErrBadMagic is returned when a raw stream does not start with the
// heightmap magic.
var ErrBadMagic = errors.New("content: not a raw heightmap stream")

// WriteRaw writes h as a zstd-compressed raw stream: magic, little-endian
// uint32 width and depth, then width*depth float32 samples.
func WriteRaw(w io.Writer, h *Heightmap) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("content: zstd writer: %w", err)
	}

	bw := bufio.NewWriter(enc)
	hdr := make([]byte, 12)
	copy(hdr, rawMagic[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(h.width)) //nolint:gosec // bounded by maxRawSide on read
	binary.LittleEndian.PutUint32(hdr[8:], uint32(h.depth)) //nolint:gosec // bounded by maxRawSide on read
	if _, err := bw.Write(hdr); err != nil {
		_ = enc.Close()
		return fmt.Errorf("content: write header: %w", err)
	}

	var buf [4]byte
	for _, v := range h.samples {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		if _, err := bw.Write(buf[:]); err != nil {
			_ = enc.Close()
			return fmt.Errorf("content: write samples: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("content: flush samples: %w", err)
	}
	return enc.Close()
}

// ReadRaw reads a heightmap written by WriteRaw.
func ReadRaw(r io.Reader) (*Heightmap, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("content: zstd reader: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	hdr := make([]byte, 12)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("content: read header: %w", err)
	}
	if [4]byte(hdr[:4]) != rawMagic {
		return nil, ErrBadMagic
	}

	width := int(binary.LittleEndian.Uint32(hdr[4:]))
	depth := int(binary.LittleEndian.Uint32(hdr[8:]))
	if width > maxRawSide || depth > maxRawSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDimensions, width, depth, maxRawSide)
	}
	if width < 2 || depth < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, depth)
	}

	samples := make([]float32, width*depth)
	var buf [4]byte
	for i := range samples {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("content: read sample %d: %w", i, err)
		}
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))
	}
	return NewHeightmap(width, depth, samples)
}
