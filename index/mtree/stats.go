package mtree

// Stats describes the shape of the tree at a point in time.
type Stats struct {
	Dimension    int
	DistanceKind string
	Size         int // indexed documents
	NodeCount    int // live nodes reachable from the root
	LeafCount    int
	Height       int // 1 for a tree that is a single leaf
	Capacity     int
	MinFill      int
}

// Stats walks the tree and returns its current shape.
func (t *Tree) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		Dimension:    t.opts.Dimension,
		DistanceKind: t.opts.DistanceKind.String(),
		Size:         t.size,
		Capacity:     t.opts.Capacity,
		MinFill:      t.opts.MinFill,
	}

	var walk func(h int32, depth int)
	walk = func(h int32, depth int) {
		s.NodeCount++
		if depth > s.Height {
			s.Height = depth
		}
		n := &t.nodes[h]
		if n.leaf {
			s.LeafCount++
			return
		}
		for i := range n.entries {
			walk(n.entries[i].Child, depth+1)
		}
	}
	walk(t.root, 1)

	return s
}
