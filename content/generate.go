package content

import (
	"math"
	"math/rand/v2"
)

// Generate builds a deterministic rolling-hills heightmap from a seed:
// a sum of a few randomly oriented sine waves, normalized to [0, 1].
func Generate(width, depth int, seed uint64) (*Heightmap, error) {
	if width < 2 || depth < 2 {
		return nil, ErrInvalidDimensions
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	type wave struct{ fx, fz, phase, amp float64 }
	waves := make([]wave, 5)
	for i := range waves {
		freq := 1 + float64(i)*1.7
		angle := rng.Float64() * 2 * math.Pi
		waves[i] = wave{
			fx:    math.Cos(angle) * freq,
			fz:    math.Sin(angle) * freq,
			phase: rng.Float64() * 2 * math.Pi,
			amp:   1 / freq,
		}
	}

	raw := make([]float64, width*depth)
	lo, hi := math.Inf(1), math.Inf(-1)
	for z := 0; z < depth; z++ {
		v := float64(z) / float64(depth-1)
		for x := 0; x < width; x++ {
			u := float64(x) / float64(width-1)
			var h float64
			for _, w := range waves {
				h += w.amp * math.Sin(2*math.Pi*(w.fx*u+w.fz*v)+w.phase)
			}
			raw[z*width+x] = h
			lo = math.Min(lo, h)
			hi = math.Max(hi, h)
		}
	}

	span := hi - lo
	samples := make([]float32, len(raw))
	for i, h := range raw {
		if span > 0 {
			samples[i] = float32((h - lo) / span)
		}
	}
	return NewHeightmap(width, depth, samples)
}
