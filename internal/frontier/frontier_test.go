package frontier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdforest/kdforest/internal/colorsource"
	"github.com/kdforest/kdforest/internal/colorspace"
	"github.com/kdforest/kdforest/internal/rng"
)

// runImage drives a full generation and returns, per scheduled color,
// the coordinates it was placed at.
func runImage(t *testing.T, bitDepth int, mode colorsource.Mode, sel Selection, space colorspace.Space, seed uint32) (*Frontier, map[uint32][2]int) {
	t.Helper()

	r := rng.New(seed)
	colors, err := colorsource.Generate(bitDepth, mode, r)
	require.NoError(t, err)

	width := 1 << uint((bitDepth+1)/2)
	height := 1 << uint(bitDepth/2)
	f := New(width, height, sel, space, r)

	placed := make(map[uint32][2]int)
	err = Schedule(bitDepth, len(colors), func(j int) error {
		x, y, err := f.Place(colors[j])
		if err != nil {
			return err
		}
		_, dup := placed[colors[j]]
		require.False(t, dup, "color %06x placed twice", colors[j])
		placed[colors[j]] = [2]int{x, y}
		return nil
	})
	require.NoError(t, err)
	return f, placed
}

// TestEveryPixelFilledOnce tests that a full run fills every pixel
// exactly once with every enumerated color, in both selection modes.
func TestEveryPixelFilledOnce(t *testing.T) {
	for _, sel := range []Selection{SelectionMin, SelectionMean} {
		t.Run(sel.String(), func(t *testing.T) {
			f, placed := runImage(t, 8, colorsource.HueSort, sel, colorspace.Lab, 0)
			require.Len(t, placed, 256)

			cells := make(map[[2]int]bool)
			for color, pos := range placed {
				require.False(t, cells[pos], "cell %v filled twice (color %06x)", pos, color)
				cells[pos] = true
			}
			assert.Len(t, cells, 256)

			for i := range f.pixels {
				assert.True(t, f.pixels[i].filled, "pixel %d never filled", i)
			}
			assert.Equal(t, 0, f.Len(), "frontier should be empty after the last fill")
		})
	}
}

// TestSeedPixel tests that the first placement lands at (W/2, H/2).
func TestSeedPixel(t *testing.T) {
	r := rng.New(0)
	f := New(16, 16, SelectionMin, colorspace.RGB, r)
	x, y, err := f.Place(0x123456)
	require.NoError(t, err)
	assert.Equal(t, 8, x)
	assert.Equal(t, 8, y)
}

// TestPlacementsAdjacentToFilled tests that every placement after the
// first has at least one already-filled Moore neighbor.
func TestPlacementsAdjacentToFilled(t *testing.T) {
	for _, sel := range []Selection{SelectionMin, SelectionMean} {
		t.Run(sel.String(), func(t *testing.T) {
			r := rng.New(1)
			colors, err := colorsource.Generate(8, colorsource.HueSort, r)
			require.NoError(t, err)

			f := New(16, 16, sel, colorspace.Lab, r)
			filled := make(map[[2]int]bool)

			err = Schedule(8, len(colors), func(j int) error {
				x, y, err := f.Place(colors[j])
				if err != nil {
					return err
				}
				if len(filled) > 0 {
					adjacent := false
					for _, delta := range neighborOrder {
						if filled[[2]int{x + delta[0], y + delta[1]}] {
							adjacent = true
							break
						}
					}
					require.True(t, adjacent, "placement at (%d,%d) has no filled neighbor", x, y)
				}
				filled[[2]int{x, y}] = true
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestForestTracksFrontier tests that the forest's live size always
// equals the number of pixels holding a forest handle.
func TestForestTracksFrontier(t *testing.T) {
	for _, sel := range []Selection{SelectionMin, SelectionMean} {
		t.Run(sel.String(), func(t *testing.T) {
			r := rng.New(2)
			colors, err := colorsource.Generate(6, colorsource.Sequential, r)
			require.NoError(t, err)

			f := New(8, 8, sel, colorspace.RGB, r)
			err = Schedule(6, len(colors), func(j int) error {
				if _, _, err := f.Place(colors[j]); err != nil {
					return err
				}
				onFrontier := 0
				for i := range f.pixels {
					if f.pixels[i].node != nilNode {
						onFrontier++
					}
				}
				require.Equal(t, onFrontier, f.Len())
				return nil
			})
			require.NoError(t, err)
		})
	}
}

// TestMeanModeDeterminism tests that two runs with identical parameters
// place every color identically.
func TestMeanModeDeterminism(t *testing.T) {
	_, first := runImage(t, 10, colorsource.Hilbert, SelectionMean, colorspace.Lab, 42)
	_, second := runImage(t, 10, colorsource.Hilbert, SelectionMean, colorspace.Lab, 42)
	assert.Equal(t, first, second)
}

func TestMinModeDeterminism(t *testing.T) {
	_, first := runImage(t, 8, colorsource.HueSort, SelectionMin, colorspace.Luv, 7)
	_, second := runImage(t, 8, colorsource.HueSort, SelectionMin, colorspace.Luv, 7)
	assert.Equal(t, first, second)
}

// TestSmallestImage runs the 2-bit case end to end: a 2x2 grid taking
// all four enumerated colors.
func TestSmallestImage(t *testing.T) {
	f, placed := runImage(t, 2, colorsource.Sequential, SelectionMin, colorspace.RGB, 0)
	assert.Equal(t, 2, f.Width())
	assert.Equal(t, 2, f.Height())
	require.Len(t, placed, 4)
	for _, color := range []uint32{0x000000, 0x008000, 0x800000, 0x808000} {
		_, ok := placed[color]
		assert.True(t, ok, "color %06x missing", color)
	}
}

func TestParseSelection(t *testing.T) {
	for _, name := range []string{"min", "mean"} {
		sel, ok := ParseSelection(name)
		require.True(t, ok, name)
		assert.Equal(t, name, sel.String())
	}
	_, ok := ParseSelection("max")
	assert.False(t, ok)
}

// TestScheduleCoversAllIndices tests that the bit-reversed stripe order
// visits each index exactly once and starts at index 0.
func TestScheduleCoversAllIndices(t *testing.T) {
	for _, depth := range []int{2, 4, 10} {
		n := 1 << uint(depth)
		var order []int
		err := Schedule(depth, n, func(j int) error {
			order = append(order, j)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, order, n, "depth %d", depth)
		assert.Equal(t, 0, order[0])

		seen := make(map[int]bool)
		for _, j := range order {
			require.False(t, seen[j], "depth %d index %d visited twice", depth, j)
			require.GreaterOrEqual(t, j, 0)
			require.Less(t, j, n)
			seen[j] = true
		}
	}
}

// TestScheduleStripes pins the documented 16-element stripe order.
func TestScheduleStripes(t *testing.T) {
	var order []int
	require.NoError(t, Schedule(4, 16, func(j int) error {
		order = append(order, j)
		return nil
	}))
	assert.Equal(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 1, 5, 9, 13, 3, 11, 7, 15}, order)
}
