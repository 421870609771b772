// Package kdforest implements a dynamic 3-D nearest-neighbor index as a
// Bentley-Saxe forest of balanced k-d trees. It is the
// "open-pixel frontier" substrate the frontier driver builds on: points
// are inserted and logically deleted in the millions over a run, which a
// single rebalanced k-d tree cannot sustain, so live points are kept in a
// logarithmic sequence of static trees that get incrementally rebuilt.
package kdforest

import (
	"errors"
	"math"
	"sort"
)

// Dimen is the number of coordinate axes the forest indexes over.
const Dimen = 3

// ErrEmpty is returned by Nearest when the forest holds no live points.
var ErrEmpty = errors.New("kdforest: nearest queried on empty forest")

// Coord is a point in the index's coordinate space.
type Coord [Dimen]float64

// Node is a single point tracked by the forest. Payload is an opaque
// identifier the caller uses to map a returned node back to whatever it
// represents (e.g. a pixel index); the forest never interprets it.
type Node struct {
	Coord     Coord
	Payload   int
	tombstone bool
	left      int
	right     int
	isLeft    bool
}

const nilIdx = -1

// Forest is an ordered sequence of k-d tree roots whose sizes track the
// binary expansion of the stored (live plus tombstoned) point count, per
// the Bentley-Saxe method.
type Forest struct {
	nodes []Node
	roots []int // roots[i] is the index into nodes of tree i's root, or nilIdx
	free  []int // pool slots vacated by compaction, reused by alloc

	size    int // live point count
	sizeEst int // live + tombstoned point count
}

// New returns an empty forest.
func New() *Forest {
	return &Forest{}
}

// Size is the number of live (non-tombstoned) points.
func (f *Forest) Size() int { return f.size }

// SizeEst is the number of live-plus-tombstoned points actually stored.
func (f *Forest) SizeEst() int { return f.sizeEst }

// alloc claims a pool slot for a new node and returns its index, reusing
// a slot freed by an earlier compaction when one is available.
func (f *Forest) alloc(coord Coord, payload int) int {
	node := Node{Coord: coord, Payload: payload, left: nilIdx, right: nilIdx}
	if n := len(f.free); n > 0 {
		idx := f.free[n-1]
		f.free = f.free[:n-1]
		f.nodes[idx] = node
		return idx
	}
	f.nodes = append(f.nodes, node)
	return len(f.nodes) - 1
}

// Insert adds a new live point at coord, tagged with payload, and returns
// its node index so the caller can later Remove it.
//
// Structural rule: find the smallest empty slot k, gather
// the new point with every point from T_0..T_{k-1}, tombstoned ones
// included (exactly 2^k points total), and rebuild a single balanced tree into slot k, emptying
// the lower slots. If the tombstone ratio has grown too large
// (size_est+1 >= 2*(size+1)) a full compaction runs instead: every live
// point across all trees is collected, tombstones are discarded, and the
// whole set is redeposited into slots following the same binary rule.
func (f *Forest) Insert(coord Coord, payload int) int {
	force := f.sizeEst+1 >= 2*(f.size+1)

	newIdx := f.alloc(coord, payload)

	if force {
		f.rebalanceForce(newIdx)
	} else {
		f.rebalanceIncremental(newIdx)
	}
	f.size++
	return newIdx
}

// rebalanceIncremental performs the non-forced insert path: find the
// smallest empty slot k, collect the 2^k-1 points (live or tombstoned)
// from below it plus the new node, and rebuild slot k.
func (f *Forest) rebalanceIncremental(newIdx int) {
	slot := 0
	for slot < len(f.roots) && f.roots[slot] != nilIdx {
		slot++
	}
	bufSize := 1 << uint(slot)

	buf := make([]int, 0, bufSize)
	buf = append(buf, newIdx)
	for i := 0; i < slot; i++ {
		buf = f.collectAll(f.roots[i], buf)
		f.roots[i] = nilIdx
	}

	f.ensureSlot(slot)
	f.roots[slot] = f.buildTree(buf)

	f.sizeEst++
}

// rebalanceForce performs a full compaction: every live point from every
// tree (plus the freshly inserted node) is collected, tombstones are
// dropped, and the result is redistributed across slots following the
// binary expansion of the new total, exactly like incremental insertion.
func (f *Forest) rebalanceForce(newIdx int) {
	buf := make([]int, 0, f.size+1)
	buf = append(buf, newIdx)
	for i := range f.roots {
		buf = f.collectLive(f.roots[i], buf)
		f.roots[i] = nilIdx
	}

	f.sizeEst = len(buf)
	total := len(buf)

	offset := 0
	for slot := 0; offset < total; slot++ {
		chunk := 1 << uint(slot)
		f.ensureSlot(slot)
		if total&chunk != 0 {
			f.roots[slot] = f.buildTree(buf[offset : offset+chunk])
			offset += chunk
		} else {
			f.roots[slot] = nilIdx
		}
	}
}

// ensureSlot grows the roots slice so index slot is addressable.
func (f *Forest) ensureSlot(slot int) {
	for len(f.roots) <= slot {
		f.roots = append(f.roots, nilIdx)
	}
}

// collectLive appends every non-tombstoned node in the subtree rooted at
// idx to buf; tombstoned nodes are discarded and their pool slots go on
// the free list. Used only by full compaction.
func (f *Forest) collectLive(idx int, buf []int) []int {
	if idx == nilIdx {
		return buf
	}
	n := &f.nodes[idx]
	if n.tombstone {
		f.free = append(f.free, idx)
	} else {
		buf = append(buf, idx)
	}
	buf = f.collectLive(n.left, buf)
	buf = f.collectLive(n.right, buf)
	return buf
}

// collectAll appends every node in the subtree rooted at idx to buf,
// tombstoned or not. Incremental rebuilds carry tombstones forward so
// that a rebuilt slot's total size always matches the power-of-two the
// binary-counter invariant expects; only a full compaction discards them.
func (f *Forest) collectAll(idx int, buf []int) []int {
	if idx == nilIdx {
		return buf
	}
	buf = append(buf, idx)
	n := &f.nodes[idx]
	buf = f.collectAll(n.left, buf)
	buf = f.collectAll(n.right, buf)
	return buf
}

// Remove logically deletes the node at idx: it is tombstoned in place and
// the live count drops, but it stays in its tree until a rebuild sweeps
// it away.
func (f *Forest) Remove(idx int) {
	f.nodes[idx].tombstone = true
	f.size--
}

// buildTree builds one balanced k-d tree over exactly len(idxs) points,
// recursively splitting on the median of the current axis. It sorts idxs
// by each of the three axes up front, then partitions all three sorted
// views in O(n) per level using an is-left flag, avoiding an O(n log^2 n)
// sort-per-level. Coordinate ties on axis 0 keep their order in idxs;
// ties on the other axes keep their axis-0 order, since those views are
// stably sorted from the axis-0 view.
func (f *Forest) buildTree(idxs []int) int {
	n := len(idxs)
	if n == 0 {
		return nilIdx
	}

	var axes [Dimen][]int
	axes[0] = append([]int(nil), idxs...)
	stableSortByAxis(f.nodes, axes[0], 0)
	for a := 1; a < Dimen; a++ {
		axes[a] = append([]int(nil), axes[0]...)
		stableSortByAxis(f.nodes, axes[a], a)
	}

	scratch := make([]int, n)
	return f.buildTreeRecursive(axes, scratch, 0)
}

func (f *Forest) buildTreeRecursive(axes [Dimen][]int, scratch []int, axis int) int {
	n := len(axes[0])
	if n == 0 {
		return nilIdx
	}

	split := n / 2
	leftSize := split
	rightSize := n - leftSize - 1
	rootIdx := axes[axis][split]

	for i := 0; i < n; i++ {
		f.nodes[axes[axis][i]].isLeft = i < leftSize
	}

	var rightAxes [Dimen][]int
	for a := 0; a < Dimen; a++ {
		if a == axis {
			rightAxes[a] = axes[a][leftSize+1:]
			continue
		}

		buf := axes[a]
		right := buf[leftSize+1:]
		k := 0
		skip := 0
		for j := 0; j < n; j++ {
			idx := buf[j]
			if f.nodes[idx].isLeft {
				buf[j-skip] = idx
			} else {
				if idx != rootIdx {
					scratch[k] = idx
					k++
				}
				skip++
			}
		}
		copy(right, scratch[:rightSize])
		rightAxes[a] = right
	}

	nextAxis := (axis + 1) % Dimen

	var leftAxes [Dimen][]int
	for a := 0; a < Dimen; a++ {
		leftAxes[a] = axes[a][:leftSize]
	}

	f.nodes[rootIdx].left = f.buildTreeRecursive(leftAxes, scratch, nextAxis)
	f.nodes[rootIdx].right = f.buildTreeRecursive(rightAxes, scratch, nextAxis)
	return rootIdx
}

// stableSortByAxis sorts idxs in place by nodes[idx].Coord[axis], breaking
// ties by original position in idxs (sort.SliceStable preserves that).
func stableSortByAxis(nodes []Node, idxs []int, axis int) {
	sort.SliceStable(idxs, func(i, j int) bool {
		return nodes[idxs[i]].Coord[axis] < nodes[idxs[j]].Coord[axis]
	})
}

// Nearest returns the live node minimizing Euclidean distance to target.
// Ties are broken by whichever node the tree traversal order visits
// first within a root, and by root order 0..len(roots)-1 across roots.
func (f *Forest) Nearest(target Coord) (*Node, error) {
	if f.size == 0 {
		return nil, ErrEmpty
	}

	best := nilIdx
	limit := math.Inf(1)
	for _, root := range f.roots {
		if root != nilIdx {
			f.nearestRecursive(root, target, 0, &best, &limit)
		}
	}
	if best == nilIdx {
		return nil, ErrEmpty
	}
	return &f.nodes[best], nil
}

func (f *Forest) nearestRecursive(idx int, target Coord, axis int, best *int, limit *float64) {
	n := &f.nodes[idx]
	delta := target[axis] - n.Coord[axis]
	deltaSq := delta * delta

	if !n.tombstone {
		d := distanceSq(n.Coord, target)
		if d < *limit {
			*best = idx
			*limit = d
		}
	}

	nextAxis := (axis + 1) % Dimen

	if n.left != nilIdx && (delta <= 0 || deltaSq <= *limit) {
		f.nearestRecursive(n.left, target, nextAxis, best, limit)
	}
	if n.right != nilIdx && (delta >= 0 || deltaSq <= *limit) {
		f.nearestRecursive(n.right, target, nextAxis, best, limit)
	}
}

func distanceSq(a, b Coord) float64 {
	var sum float64
	for i := 0; i < Dimen; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
