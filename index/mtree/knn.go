package mtree

import (
	"context"

	"github.com/hupe1980/metrigo/distance"
	"github.com/hupe1980/metrigo/index"
	"github.com/hupe1980/metrigo/internal/queue"
)

// KNNSearch returns the k nearest documents to the query vector, ordered by
// ascending distance with ties broken by ascending document ID. The search
// is exact: a subtree is pruned only when its lower-bound distance strictly
// exceeds the current k-th best candidate, so tied results are never lost.
func (t *Tree) KNNSearch(ctx context.Context, q []float32, k int) ([]index.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if k <= 0 {
		return nil, index.ErrInvalidK
	}

	if len(q) != t.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: t.opts.Dimension, Actual: len(q)}
	}

	if t.opts.DistanceKind == index.DistanceKindCosine && distance.Magnitude(q) == 0 {
		return nil, distance.ErrZeroMagnitude
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.size == 0 {
		return nil, nil
	}

	// Min-heap of pending nodes keyed by lower-bound distance in the routing
	// metric space. For a routing entry the bound is
	// max(0, d(q, routing) - radius); the root's bound is 0 since it covers
	// everything.
	pending := queue.NewMin(16)
	pending.Push(queue.Item{Ref: uint64(t.root), Distance: 0})

	best := newResultHeap(k)

	// kthBound returns the k-th best candidate's distance mapped into the
	// routing metric space, so it compares against node lower bounds.
	kthBound := func() float32 {
		d := best.Worst().Distance
		if t.toMetric != nil {
			d = t.toMetric(d)
		}
		return d
	}

	for pending.Len() > 0 {
		item, _ := pending.Pop()

		// Nodes pop in ascending bound order, so once the best remaining
		// bound beats the k-th candidate nothing closer is left.
		if best.Full() && item.Distance > kthBound() {
			break
		}

		n := &t.nodes[int32(item.Ref)]

		if n.leaf {
			for i := range n.entries {
				d, err := t.scoreFunc(q, n.entries[i].Vec)
				if err != nil {
					return nil, err
				}
				best.Offer(index.SearchResult{ID: n.entries[i].ID, Distance: d})
			}
			continue
		}

		for i := range n.entries {
			d, err := t.distFunc(q, n.entries[i].Vec)
			if err != nil {
				return nil, err
			}

			lower := d - n.entries[i].Radius
			if lower < 0 {
				lower = 0
			}
			if best.Full() && lower > kthBound() {
				continue
			}
			pending.Push(queue.Item{Ref: uint64(n.entries[i].Child), Distance: lower})
		}
	}

	return best.Sorted(), nil
}

// resultHeap keeps the k best candidates seen so far. It is a max-heap under
// the (distance, then ID) total order, so the worst kept candidate sits on
// top and is the one evicted when a better result arrives.
type resultHeap struct {
	k     int
	items []index.SearchResult
}

func newResultHeap(k int) *resultHeap {
	return &resultHeap{k: k, items: make([]index.SearchResult, 0, k)}
}

// worse reports whether a ranks after b, i.e. a has a larger distance or an
// equal distance and a larger ID.
func (rh *resultHeap) worse(a, b index.SearchResult) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

func (rh *resultHeap) Full() bool { return len(rh.items) == rh.k }

// Worst returns the k-th best candidate. Caller must check Full first.
func (rh *resultHeap) Worst() index.SearchResult { return rh.items[0] }

// Offer adds a candidate, evicting the current worst when the heap is full
// and the candidate ranks before it.
func (rh *resultHeap) Offer(r index.SearchResult) {
	if len(rh.items) < rh.k {
		rh.items = append(rh.items, r)
		rh.siftUp(len(rh.items) - 1)
		return
	}
	if rh.worse(rh.items[0], r) {
		rh.items[0] = r
		rh.siftDown(0)
	}
}

// Sorted drains the heap into ascending (distance, then ID) order.
func (rh *resultHeap) Sorted() []index.SearchResult {
	out := make([]index.SearchResult, len(rh.items))
	for i := len(rh.items) - 1; i >= 0; i-- {
		out[i] = rh.items[0]
		last := len(rh.items) - 1
		rh.items[0] = rh.items[last]
		rh.items = rh.items[:last]
		rh.siftDown(0)
	}
	return out
}

func (rh *resultHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !rh.worse(rh.items[i], rh.items[p]) {
			break
		}
		rh.items[i], rh.items[p] = rh.items[p], rh.items[i]
		i = p
	}
}

func (rh *resultHeap) siftDown(i int) {
	n := len(rh.items)
	for {
		l, r := 2*i+1, 2*i+2
		largest := i
		if l < n && rh.worse(rh.items[l], rh.items[largest]) {
			largest = l
		}
		if r < n && rh.worse(rh.items[r], rh.items[largest]) {
			largest = r
		}
		if largest == i {
			return
		}
		rh.items[i], rh.items[largest] = rh.items[largest], rh.items[i]
		i = largest
	}
}
