package mtree

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/hupe1980/metrigo/index"
)

// treeSnapshot mirrors the tree's internal state with exported fields for
// gob. The document-to-leaf map is derived, not stored; decode rebuilds it.
type treeSnapshot struct {
	Opts  Options
	Root  int32
	Size  int
	Free  []int32
	Nodes []nodeSnapshot
}

type nodeSnapshot struct {
	Leaf    bool
	Parent  int32
	Entries []Entry
}

// GobEncode serializes the tree.
func (t *Tree) GobEncode() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := treeSnapshot{
		Opts:  t.opts,
		Root:  t.root,
		Size:  t.size,
		Free:  t.free,
		Nodes: make([]nodeSnapshot, len(t.nodes)),
	}
	for i := range t.nodes {
		snap.Nodes[i] = nodeSnapshot{
			Leaf:    t.nodes[i].leaf,
			Parent:  t.nodes[i].parent,
			Entries: t.nodes[i].entries,
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, fmt.Errorf("mtree: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode restores a tree serialized by GobEncode, replacing the receiver's
// state. The distance function and document locations are rebuilt from the
// decoded options and leaves.
func (t *Tree) GobDecode(data []byte) error {
	var snap treeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return fmt.Errorf("mtree: decode: %w", err)
	}

	if err := index.ValidateBasicOptions(snap.Opts.Dimension, snap.Opts.DistanceKind); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.opts = snap.Opts
	t.setDistanceFuncs()
	t.root = snap.Root
	t.size = snap.Size
	t.free = snap.Free

	t.nodes = make([]node, len(snap.Nodes))
	t.loc = make(map[uint64]int32, snap.Size)
	for i := range snap.Nodes {
		t.nodes[i] = node{
			leaf:    snap.Nodes[i].Leaf,
			parent:  snap.Nodes[i].Parent,
			entries: snap.Nodes[i].Entries,
		}
		if snap.Nodes[i].Leaf {
			for j := range snap.Nodes[i].Entries {
				t.loc[snap.Nodes[i].Entries[j].ID] = int32(i)
			}
		}
	}
	return nil
}
