// Package colorsource enumerates the target color set for a run: 2^B
// distinct 24-bit colors tiling the RGB cube as uniformly as the bit
// budget allows, emitted in one of five orderings.
package colorsource

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kdforest/kdforest/internal/rng"
)

// Mode selects the order colors are emitted in.
type Mode int

const (
	HueSort Mode = iota
	Random
	Morton
	Hilbert
	Sequential
)

// String renders the mode the way the CLI accepts it.
func (m Mode) String() string {
	switch m {
	case HueSort:
		return "hue-sort"
	case Random:
		return "random"
	case Morton:
		return "morton"
	case Hilbert:
		return "hilbert"
	case Sequential:
		return "sequential"
	default:
		return "unknown"
	}
}

// ParseMode maps a CLI value onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "hue-sort":
		return HueSort, true
	case "random":
		return Random, true
	case "morton":
		return Morton, true
	case "hilbert":
		return Hilbert, true
	case "sequential":
		return Sequential, true
	default:
		return 0, false
	}
}

// ErrBitDepth is returned by Generate for a bit depth outside [2, 24].
var ErrBitDepth = errors.New("bit depth must be between 2 and 24")

// Generate enumerates the 2^bitDepth colors of a run in the requested
// order. Per-channel bits are allocated most-to-least perceptually
// important (G, then R, then B) and each channel value is left-shifted
// into the high bits of its 8-bit field. The RNG is consumed only in
// Random mode.
func Generate(bitDepth int, mode Mode, r *rng.Rng) ([]uint32, error) {
	if bitDepth < 2 || bitDepth > 24 {
		return nil, fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}

	// grb[0] is G, grb[1] is R, grb[2] is B
	var bits [3]uint32
	for i := range bits {
		bits[i] = uint32(bitDepth+2-i) / 3
	}

	size := 1 << uint(bitDepth)
	colors := make([]uint32, size)
	var point [3]uint32
	for i := 0; i < size; i++ {
		var grb [3]uint32

		switch mode {
		case Morton:
			for j := 0; j < bitDepth; j++ {
				grb[j%3] |= (uint32(i) & (1 << uint(j))) >> uint(j-j/3)
			}

		case Hilbert:
			hilbertPoint(3, bits[:], uint32(i), point[:])
			grb = point

		default:
			n := uint32(i)
			for j := 0; j < 3; j++ {
				grb[j] = n & ((1 << bits[j]) - 1)
				n >>= bits[j]
			}
		}

		// Pad out colors, and put them in RGB order
		grb[0] <<= 16 - bits[0]
		grb[1] <<= 24 - bits[1]
		grb[2] <<= 8 - bits[2]

		colors[i] = grb[1] | grb[0] | grb[2]
	}

	switch mode {
	case HueSort:
		slices.SortStableFunc(colors, hueCompare)

	case Random:
		r.Shuffle(len(colors), func(i, j int) {
			colors[i], colors[j] = colors[j], colors[i]
		})
	}

	return colors, nil
}
