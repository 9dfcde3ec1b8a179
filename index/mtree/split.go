package mtree

// split divides an overfull node into two, promotes their routing entries
// into the parent, and recurses when the parent overflows in turn.
//
// Promotion picks the two entries with maximum pairwise distance (max
// spread); partition assigns every remaining entry to the nearer promoted
// routing object, with ties resolving to the first.
func (t *Tree) split(h int32) error {
	entries := t.nodes[h].entries
	leaf := t.nodes[h].leaf
	parent := t.nodes[h].parent

	pi, pj, err := t.promote(entries)
	if err != nil {
		return err
	}

	r1vec := entries[pi].Vec
	r2vec := entries[pj].Vec

	g1 := make([]Entry, 0, len(entries))
	g2 := make([]Entry, 0, len(entries))

	for i, e := range entries {
		switch i {
		case pi:
			g1 = append(g1, e)
		case pj:
			g2 = append(g2, e)
		default:
			d1, err := t.distFunc(e.Vec, r1vec)
			if err != nil {
				return err
			}
			d2, err := t.distFunc(e.Vec, r2vec)
			if err != nil {
				return err
			}
			if d1 <= d2 {
				g1 = append(g1, e)
			} else {
				g2 = append(g2, e)
			}
		}
	}

	h2 := t.alloc(leaf, parent)

	r1, err := t.adopt(h, g1, r1vec)
	if err != nil {
		return err
	}
	r2, err := t.adopt(h2, g2, r2vec)
	if err != nil {
		return err
	}

	e1 := Entry{Vec: r1vec, Radius: r1, Child: h}
	e2 := Entry{Vec: r2vec, Radius: r2, Child: h2}

	if parent == nilNode {
		// Splitting the root grows the tree by one level. The new root's
		// routing entries keep Dist == 0, there is no routing object above.
		newRoot := t.alloc(false, nilNode)
		t.nodes[h].parent = newRoot
		t.nodes[h2].parent = newRoot
		t.nodes[newRoot].entries = []Entry{e1, e2}
		t.root = newRoot
		return nil
	}

	if pv := t.routingVec(parent); pv != nil {
		if e1.Dist, err = t.distFunc(r1vec, pv); err != nil {
			return err
		}
		if e2.Dist, err = t.distFunc(r2vec, pv); err != nil {
			return err
		}
	}

	idx := entryIndex(t.nodes[parent].entries, h)
	t.nodes[parent].entries[idx] = e1
	t.nodes[parent].entries = append(t.nodes[parent].entries, e2)

	if len(t.nodes[parent].entries) > t.opts.Capacity {
		return t.split(parent)
	}
	return nil
}

// promote returns the indexes of the two entries with maximum pairwise
// distance. Ties resolve to the lexicographically smallest index pair.
func (t *Tree) promote(entries []Entry) (int, int, error) {
	pi, pj := 0, 1
	var maxDist float32 = -1

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			d, err := t.distFunc(entries[i].Vec, entries[j].Vec)
			if err != nil {
				return 0, 0, err
			}
			if d > maxDist {
				pi, pj, maxDist = i, j, d
			}
		}
	}
	return pi, pj, nil
}

// adopt installs entries into the node at owner, recomputing each entry's
// distance to the new routing object and re-pointing leaf locations or child
// parents. It returns the covering radius for owner's routing entry: the
// max member distance for a leaf, the max of distance plus child radius for
// an internal node.
func (t *Tree) adopt(owner int32, entries []Entry, routing []float32) (float32, error) {
	var radius float32

	leaf := t.nodes[owner].leaf
	for i := range entries {
		d, err := t.distFunc(entries[i].Vec, routing)
		if err != nil {
			return 0, err
		}
		entries[i].Dist = d

		r := d
		if leaf {
			t.loc[entries[i].ID] = owner
		} else {
			t.nodes[entries[i].Child].parent = owner
			r += entries[i].Radius
		}
		if r > radius {
			radius = r
		}
	}

	t.nodes[owner].entries = entries
	return radius, nil
}
