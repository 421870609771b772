// Package frontier maintains the set of open pixels — the candidates
// for the next color placement — as entries in a k-d forest, and picks
// one placement per incoming color.
//
// Two selection modes exist. In min mode the forest holds filled pixels
// that still border an unfilled cell, each carrying its own color; the
// placement is a pseudo-random unfilled Moore neighbor of the filled
// pixel nearest the target. In mean mode the forest holds the unfilled
// boundary pixels themselves, each carrying the average color of its
// filled Moore neighbors; the placement is the returned pixel directly.
package frontier

import (
	"errors"

	"github.com/kdforest/kdforest/internal/colorspace"
	"github.com/kdforest/kdforest/internal/kdforest"
	"github.com/kdforest/kdforest/internal/rng"
)

// Selection chooses how open pixels are tracked and picked.
type Selection int

const (
	SelectionMin Selection = iota
	SelectionMean
)

// String renders the selection the way the CLI accepts it.
func (s Selection) String() string {
	switch s {
	case SelectionMin:
		return "min"
	case SelectionMean:
		return "mean"
	default:
		return "unknown"
	}
}

// ParseSelection maps a CLI value onto a Selection.
func ParseSelection(s string) (Selection, bool) {
	switch s {
	case "min":
		return SelectionMin, true
	case "mean":
		return SelectionMean, true
	default:
		return 0, false
	}
}

// ErrNoNeighbor reports a forest entry with no unfilled Moore neighbor,
// which the update rules are supposed to make impossible.
var ErrNoNeighbor = errors.New("frontier: nearest pixel has no open neighbor")

// Star pattern:
//   6 1 4
//   3   7
//   0 5 2
var neighborOrder = [8][2]int{
	{-1, -1},
	{0, +1},
	{+1, -1},
	{-1, 0},
	{+1, +1},
	{0, -1},
	{-1, +1},
	{+1, 0},
}

const nilNode = -1

type pixel struct {
	filled bool
	node   int // forest handle, nilNode while off the frontier
	value  colorspace.Coord
}

// Frontier owns the pixel grid, the k-d forest indexing its open set,
// and the RNG used for neighbor tie-breaking.
type Frontier struct {
	width, height int
	sel           Selection
	space         colorspace.Space
	rng           *rng.Rng
	forest        *kdforest.Forest
	pixels        []pixel
	placed        int
}

// New returns a frontier over an empty width x height grid.
func New(width, height int, sel Selection, space colorspace.Space, r *rng.Rng) *Frontier {
	pixels := make([]pixel, width*height)
	for i := range pixels {
		pixels[i].node = nilNode
	}
	return &Frontier{
		width:  width,
		height: height,
		sel:    sel,
		space:  space,
		rng:    r,
		forest: kdforest.New(),
		pixels: pixels,
	}
}

// Width is the grid width.
func (f *Frontier) Width() int { return f.width }

// Height is the grid height.
func (f *Frontier) Height() int { return f.height }

// Len is the number of pixels currently on the frontier.
func (f *Frontier) Len() int { return f.forest.Size() }

// Placed is the number of colors placed so far.
func (f *Frontier) Placed() int { return f.placed }

func (f *Frontier) index(x, y int) int { return y*f.width + x }

func (f *Frontier) pos(i int) (x, y int) { return i % f.width, i / f.width }

func (f *Frontier) inBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// freeNeighbor picks an unfilled Moore neighbor of (x, y), walking the
// star pattern from a random starting offset so no direction is favored.
func (f *Frontier) freeNeighbor(x, y int) (nx, ny int, ok bool) {
	first := f.rng.Intn(8)
	for i := first; i < first+8; i++ {
		delta := neighborOrder[i%8]
		nx, ny := x+delta[0], y+delta[1]
		if f.inBounds(nx, ny) && !f.pixels[f.index(nx, ny)].filled {
			return nx, ny, true
		}
	}
	return 0, 0, false
}

// hasFreeNeighbor reports whether (x, y) has any unfilled Moore neighbor.
func (f *Frontier) hasFreeNeighbor(x, y int) bool {
	for _, delta := range neighborOrder {
		nx, ny := x+delta[0], y+delta[1]
		if f.inBounds(nx, ny) && !f.pixels[f.index(nx, ny)].filled {
			return true
		}
	}
	return false
}

// Place assigns color to a pixel and returns its coordinates. The first
// call fills the seed pixel (width/2, height/2); every later call places
// adjacent to already-filled pixels per the selection mode.
func (f *Frontier) Place(color uint32) (x, y int, err error) {
	target := colorspace.ToCoord(f.space, color)

	if f.placed == 0 {
		x, y = f.width/2, f.height/2
	} else {
		nearest, err := f.forest.Nearest(kdforest.Coord(target))
		if err != nil {
			return 0, 0, err
		}
		nx, ny := f.pos(nearest.Payload)
		if f.sel == SelectionMin {
			var ok bool
			x, y, ok = f.freeNeighbor(nx, ny)
			if !ok {
				return 0, 0, ErrNoNeighbor
			}
		} else {
			x, y = nx, ny
		}
	}

	switch f.sel {
	case SelectionMean:
		f.fillMean(x, y, target)
	default:
		f.fillMin(x, y, target)
	}
	f.placed++
	return x, y, nil
}

// fillMin marks (x, y) filled with coord c, inserts it into the forest
// while it still borders an unfilled cell, and evicts any neighbor whose
// last unfilled neighbor this fill consumed.
func (f *Frontier) fillMin(x, y int, c colorspace.Coord) {
	i := f.index(x, y)
	f.pixels[i].filled = true
	f.pixels[i].value = c

	if f.hasFreeNeighbor(x, y) {
		f.pixels[i].node = f.forest.Insert(kdforest.Coord(c), i)
	}

	for _, delta := range neighborOrder {
		nx, ny := x+delta[0], y+delta[1]
		if !f.inBounds(nx, ny) {
			continue
		}
		j := f.index(nx, ny)
		if f.pixels[j].node != nilNode && !f.hasFreeNeighbor(nx, ny) {
			f.forest.Remove(f.pixels[j].node)
			f.pixels[j].node = nilNode
		}
	}
}

// fillMean marks (x, y) filled with coord c and refreshes every unfilled
// Moore neighbor's forest entry with the new mean of its filled
// neighbors.
func (f *Frontier) fillMean(x, y int, c colorspace.Coord) {
	i := f.index(x, y)
	if f.pixels[i].node != nilNode {
		f.forest.Remove(f.pixels[i].node)
		f.pixels[i].node = nilNode
	}
	f.pixels[i].filled = true
	f.pixels[i].value = c

	for _, delta := range neighborOrder {
		nx, ny := x+delta[0], y+delta[1]
		if !f.inBounds(nx, ny) {
			continue
		}
		j := f.index(nx, ny)
		if f.pixels[j].filled {
			continue
		}
		mean := f.neighborMean(nx, ny)
		if f.pixels[j].node != nilNode {
			f.forest.Remove(f.pixels[j].node)
		}
		f.pixels[j].node = f.forest.Insert(kdforest.Coord(mean), j)
	}
}

// neighborMean averages the coords of (x, y)'s filled Moore neighbors.
// Callers only invoke it when at least one neighbor is filled.
func (f *Frontier) neighborMean(x, y int) colorspace.Coord {
	var sum colorspace.Coord
	count := 0
	for _, delta := range neighborOrder {
		nx, ny := x+delta[0], y+delta[1]
		if !f.inBounds(nx, ny) {
			continue
		}
		p := &f.pixels[f.index(nx, ny)]
		if !p.filled {
			continue
		}
		for k := range sum {
			sum[k] += p.value[k]
		}
		count++
	}
	for k := range sum {
		sum[k] /= float64(count)
	}
	return sum
}
