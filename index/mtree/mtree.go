// Package mtree provides an M-tree metric index for exact k-nearest-neighbor search.
//
// The tree organizes vectors into nodes bounded by covering radii. Each
// internal node holds routing entries (routing vector, covering radius, child
// reference); each leaf holds the indexed objects (document ID + vector).
// Search prunes any subtree whose lower-bound distance to the query exceeds
// the current k-th best candidate.
package mtree

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/metrigo/distance"
	"github.com/hupe1980/metrigo/index"
	"github.com/hupe1980/metrigo/internal/math32"
)

// Compile-time check to ensure Tree satisfies the index contract.
var _ index.Index = (*Tree)(nil)

// nilNode marks an empty node handle.
const nilNode = int32(-1)

// Entry is a single slot in a node. In a leaf it holds an indexed object
// (document ID + vector + distance to the parent routing object); in an
// internal node it is a routing entry (routing vector + covering radius +
// child handle).
type Entry struct {
	ID     uint64    // Document identifier (leaf entries only)
	Vec    []float32 // Object vector or routing vector
	Dist   float32   // Distance to the parent routing object (0 at the root)
	Radius float32   // Covering radius (routing entries only)
	Child  int32     // Child node handle (nilNode in leaf entries)
}

// node is a tree node addressed by its handle in the arena.
type node struct {
	leaf    bool
	parent  int32
	entries []Entry
}

// Options contains configuration options for the M-tree index.
type Options struct {
	// Dimension is the fixed vector dimensionality for this index.
	// It must be > 0 and is enforced for all inserts and searches.
	Dimension int

	// DistanceKind selects the distance function used for routing and search.
	DistanceKind index.DistanceKind

	// Capacity is the maximum number of entries per node; a node exceeding it
	// splits. Must be at least 2.
	Capacity int

	// MinFill is the minimum number of entries per non-root node; an
	// underflowing node borrows from or merges with a sibling.
	// 0 means Capacity/2. Must not exceed (Capacity+1)/2 so that a merge
	// never overflows the surviving node.
	MinFill int
}

// DefaultOptions contains the default configuration options for the M-tree index.
var DefaultOptions = Options{
	Dimension:    0,
	DistanceKind: index.DistanceKindCosine,
	Capacity:     16,
	MinFill:      0,
}

// Tree represents an M-tree index keyed by document identifier.
//
// Nodes live in a handle-addressed arena; parent/child references are
// handles, never pointers, so rebalancing cannot leave aliased nodes behind.
//
// Covering-radius pruning is only exact under the triangle inequality, which
// cosine distance does not satisfy. Cosine trees therefore route and prune in
// chord space (sqrt(2 * cosine distance), a true metric that orders vectors
// identically) and score results with cosine distance itself.
type Tree struct {
	mu        sync.RWMutex
	opts      Options
	distFunc  index.DistanceFunc    // routing metric; distances and radii in the tree live in this space
	scoreFunc index.DistanceFunc    // user-facing distance reported in results
	toMetric  func(float32) float32 // maps a score into the routing metric space; nil when the two coincide
	nodes     []node
	free      []int32
	root      int32
	size      int
	loc       map[uint64]int32 // document ID -> owning leaf handle
}

// New creates a new instance of the M-tree index.
// Dimension and DistanceKind are required and must be set at creation time.
func New(optFns ...func(o *Options)) (*Tree, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if err := index.ValidateBasicOptions(opts.Dimension, opts.DistanceKind); err != nil {
		return nil, err
	}

	if opts.Capacity < 2 {
		return nil, fmt.Errorf("mtree: capacity must be at least 2, got %d", opts.Capacity)
	}

	if opts.MinFill == 0 {
		opts.MinFill = opts.Capacity / 2
	}

	if opts.MinFill < 1 || opts.MinFill > (opts.Capacity+1)/2 {
		return nil, fmt.Errorf("mtree: min fill must be in [1, %d], got %d", (opts.Capacity+1)/2, opts.MinFill)
	}

	t := &Tree{
		opts: opts,
		root: nilNode,
		loc:  make(map[uint64]int32),
	}
	t.setDistanceFuncs()
	t.root = t.alloc(true, nilNode)

	return t, nil
}

// setDistanceFuncs derives the routing metric and scoring function from the
// configured distance kind. Caller has validated the kind.
func (t *Tree) setDistanceFuncs() {
	t.scoreFunc = index.NewDistanceFunc(t.opts.DistanceKind)

	if t.opts.DistanceKind == index.DistanceKindCosine {
		t.distFunc = distance.Chord
		t.toMetric = func(d float32) float32 {
			return math32.Sqrt(2 * d)
		}
		return
	}

	t.distFunc = t.scoreFunc
	t.toMetric = nil
}

// Dimension returns the configured vector dimensionality.
func (t *Tree) Dimension() int { return t.opts.Dimension }

// DistanceKind returns the configured distance kind.
func (t *Tree) DistanceKind() index.DistanceKind { return t.opts.DistanceKind }

// Len returns the number of indexed documents.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.size
}

// Has reports whether the given document ID is indexed.
func (t *Tree) Has(id uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.loc[id]
	return ok
}

// Vector returns a copy of the vector stored for the given document ID.
func (t *Tree) Vector(id uint64) ([]float32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.loc[id]
	if !ok {
		return nil, false
	}
	for i := range t.nodes[h].entries {
		if t.nodes[h].entries[i].ID == id {
			return slices.Clone(t.nodes[h].entries[i].Vec), true
		}
	}
	return nil, false
}

// Insert adds a vector to the index under the given document ID.
// Re-inserting an existing ID replaces the prior vector (delete-then-insert),
// so searches never observe two entries for one document.
func (t *Tree) Insert(ctx context.Context, id uint64, v []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(v) == 0 {
		return index.ErrEmptyVector
	}

	if len(v) != t.opts.Dimension {
		return &index.ErrDimensionMismatch{Expected: t.opts.Dimension, Actual: len(v)}
	}

	// The angle of a zero-magnitude vector is undefined; reject it up front
	// so the tree never holds an object it cannot route.
	if t.opts.DistanceKind == index.DistanceKindCosine && distance.Magnitude(v) == 0 {
		return distance.ErrZeroMagnitude
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.loc[id]; ok {
		if err := t.deleteLocked(id); err != nil {
			return err
		}
	}

	vec := slices.Clone(v)

	// Descend to a leaf, at each level choosing the child whose routing
	// object is closest (ties resolve to the lowest child index) and growing
	// its covering radius when the new object falls outside it.
	h := t.root
	parentDist := float32(0)
	for !t.nodes[h].leaf {
		n := &t.nodes[h]

		best := -1
		var bestDist float32
		for i := range n.entries {
			d, err := t.distFunc(vec, n.entries[i].Vec)
			if err != nil {
				return err
			}
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}

		e := &n.entries[best]
		if bestDist > e.Radius {
			e.Radius = bestDist
		}
		parentDist = bestDist
		h = e.Child
	}

	t.nodes[h].entries = append(t.nodes[h].entries, Entry{
		ID:    id,
		Vec:   vec,
		Dist:  parentDist,
		Child: nilNode,
	})
	t.loc[id] = h
	t.size++

	if len(t.nodes[h].entries) > t.opts.Capacity {
		return t.split(h)
	}
	return nil
}

// Delete removes the vector stored for the given document ID.
// Deleting an unknown ID is a no-op, not an error.
func (t *Tree) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.loc[id]; !ok {
		return nil
	}
	return t.deleteLocked(id)
}

// deleteLocked removes the leaf entry for id and repairs any underflow.
// Caller must hold the write lock and have checked that id exists.
func (t *Tree) deleteLocked(id uint64) error {
	h := t.loc[id]

	entries := t.nodes[h].entries
	for i := range entries {
		if entries[i].ID == id {
			t.nodes[h].entries = slices.Delete(entries, i, i+1)
			break
		}
	}
	delete(t.loc, id)
	t.size--

	return t.repair(h)
}

// repair restores minimum occupancy after a removal at node h, borrowing
// from or merging with a sibling and propagating upward as needed.
func (t *Tree) repair(h int32) error {
	if h == t.root {
		// An internal root routing a single child is collapsed so the tree
		// height shrinks; a root leaf may hold any number of entries.
		for {
			rn := &t.nodes[t.root]
			if rn.leaf || len(rn.entries) != 1 {
				return nil
			}
			child := rn.entries[0].Child
			t.release(t.root)
			t.nodes[child].parent = nilNode
			for i := range t.nodes[child].entries {
				t.nodes[child].entries[i].Dist = 0
			}
			t.root = child
		}
	}

	if len(t.nodes[h].entries) >= t.opts.MinFill {
		return nil
	}

	p := t.nodes[h].parent
	idx := entryIndex(t.nodes[p].entries, h)

	// Borrow from the first sibling with spare entries.
	for si := range t.nodes[p].entries {
		if si == idx {
			continue
		}
		if len(t.nodes[t.nodes[p].entries[si].Child].entries) > t.opts.MinFill {
			return t.borrow(p, idx, si)
		}
	}

	// No sibling can spare an entry; merge into the first one.
	for si := range t.nodes[p].entries {
		if si != idx {
			return t.merge(p, idx, si)
		}
	}

	// No sibling at all. The parent routes a single child, which only occurs
	// transiently while an underflow propagates; drop the node once empty.
	if len(t.nodes[h].entries) == 0 {
		t.nodes[p].entries = slices.Delete(t.nodes[p].entries, idx, idx+1)
		t.release(h)
		return t.repair(p)
	}
	return nil
}

// borrow moves the sibling entry nearest to h's routing object into h.
// The moved object stays inside the parent's subtree, so no covering radius
// above the parent changes.
func (t *Tree) borrow(p int32, idx, si int) error {
	h := t.nodes[p].entries[idx].Child
	s := t.nodes[p].entries[si].Child
	rv := t.nodes[p].entries[idx].Vec

	best := -1
	var bestDist float32
	for i := range t.nodes[s].entries {
		d, err := t.distFunc(t.nodes[s].entries[i].Vec, rv)
		if err != nil {
			return err
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}

	e := t.nodes[s].entries[best]
	t.nodes[s].entries = slices.Delete(t.nodes[s].entries, best, best+1)

	e.Dist = bestDist
	if t.nodes[h].leaf {
		t.loc[e.ID] = h
	} else {
		t.nodes[e.Child].parent = h
	}
	t.nodes[h].entries = append(t.nodes[h].entries, e)

	r := bestDist
	if !t.nodes[h].leaf {
		r += e.Radius
	}
	if r > t.nodes[p].entries[idx].Radius {
		t.nodes[p].entries[idx].Radius = r
	}
	return nil
}

// merge moves all of h's entries into the sibling at si, removes h's routing
// entry from the parent, and repairs the parent if it underflows in turn.
func (t *Tree) merge(p int32, idx, si int) error {
	h := t.nodes[p].entries[idx].Child
	s := t.nodes[p].entries[si].Child
	sv := t.nodes[p].entries[si].Vec

	for _, e := range t.nodes[h].entries {
		d, err := t.distFunc(e.Vec, sv)
		if err != nil {
			return err
		}
		e.Dist = d
		if t.nodes[s].leaf {
			t.loc[e.ID] = s
		} else {
			t.nodes[e.Child].parent = s
		}
		t.nodes[s].entries = append(t.nodes[s].entries, e)

		r := d
		if !t.nodes[s].leaf {
			r += e.Radius
		}
		if r > t.nodes[p].entries[si].Radius {
			t.nodes[p].entries[si].Radius = r
		}
	}

	t.release(h)
	t.nodes[p].entries = slices.Delete(t.nodes[p].entries, idx, idx+1)
	return t.repair(p)
}

// alloc reserves a node handle, reusing released handles first.
func (t *Tree) alloc(leaf bool, parent int32) int32 {
	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[h] = node{leaf: leaf, parent: parent}
		return h
	}
	t.nodes = append(t.nodes, node{leaf: leaf, parent: parent})
	return int32(len(t.nodes) - 1)
}

// release returns a node handle to the free list.
func (t *Tree) release(h int32) {
	t.nodes[h] = node{parent: nilNode}
	t.free = append(t.free, h)
}

// routingVec returns the routing vector by which h's parent routes to h,
// or nil if h is the root.
func (t *Tree) routingVec(h int32) []float32 {
	p := t.nodes[h].parent
	if p == nilNode {
		return nil
	}
	idx := entryIndex(t.nodes[p].entries, h)
	if idx < 0 {
		return nil
	}
	return t.nodes[p].entries[idx].Vec
}

// entryIndex returns the position of the routing entry referencing child.
func entryIndex(entries []Entry, child int32) int {
	for i := range entries {
		if entries[i].Child == child {
			return i
		}
	}
	return -1
}
