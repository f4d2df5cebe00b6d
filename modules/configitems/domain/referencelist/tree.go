package referencelist

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Tree is an arena over the items of one list: nodes are addressed by id and
// children are kept as id slices ordered by OrderIndex.
type Tree struct {
	nodes    map[uuid.UUID]Item
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// BuildTree indexes items and rejects duplicates, foreign items, dangling parents and cycles.
func BuildTree(listID uuid.UUID, items []Item) (*Tree, error) {
	t := &Tree{
		nodes:    make(map[uuid.UUID]Item, len(items)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, it := range items {
		if it.ReferenceListID != listID {
			return nil, fmt.Errorf("item %s belongs to list %s, not %s", it.ID, it.ReferenceListID, listID)
		}
		if _, dup := t.nodes[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %s", it.ID)
		}
		t.nodes[it.ID] = it
	}
	for _, it := range items {
		if it.ParentID == nil {
			t.roots = append(t.roots, it.ID)
			continue
		}
		if _, ok := t.nodes[*it.ParentID]; !ok {
			return nil, fmt.Errorf("item %s (%q) references missing parent %s", it.ID, it.Item, *it.ParentID)
		}
		t.children[*it.ParentID] = append(t.children[*it.ParentID], it.ID)
	}
	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}
	t.sortSiblings(t.roots)
	for _, ids := range t.children {
		t.sortSiblings(ids)
	}
	return t, nil
}

func (t *Tree) checkAcyclic() error {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[uuid.UUID]int, len(t.nodes))
	for id := range t.nodes {
		// Walk parent links; revisiting a node of the current walk means a cycle.
		var path []uuid.UUID
		cur := id
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == inProgress {
				return fmt.Errorf("item %s is part of a parent cycle", cur)
			}
			state[cur] = inProgress
			path = append(path, cur)
			parent := t.nodes[cur].ParentID
			if parent == nil {
				break
			}
			cur = *parent
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return nil
}

func (t *Tree) sortSiblings(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		return t.nodes[ids[i]].OrderIndex < t.nodes[ids[j]].OrderIndex
	})
}

func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Roots() []uuid.UUID { return t.roots }

func (t *Tree) Children(id uuid.UUID) []uuid.UUID { return t.children[id] }

func (t *Tree) Node(id uuid.UUID) (Item, bool) {
	it, ok := t.nodes[id]
	return it, ok
}

// Walk visits items depth-first, parents before children, siblings by OrderIndex.
// Roots have depth 1.
func (t *Tree) Walk(fn func(item Item, depth int) error) error {
	var visit func(ids []uuid.UUID, depth int) error
	visit = func(ids []uuid.UUID, depth int) error {
		for _, id := range ids {
			if err := fn(t.nodes[id], depth); err != nil {
				return err
			}
			if err := visit(t.children[id], depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(t.roots, 1)
}

// Depth returns the number of levels in the forest; an empty tree has depth 0.
func (t *Tree) Depth() int {
	maxDepth := 0
	_ = t.Walk(func(_ Item, depth int) error {
		if depth > maxDepth {
			maxDepth = depth
		}
		return nil
	})
	return maxDepth
}

// CloneItems copies the forest onto another list with fresh ids, remapping parent links.
func (t *Tree) CloneItems(listID uuid.UUID) []Item {
	out := make([]Item, 0, len(t.nodes))
	remap := make(map[uuid.UUID]uuid.UUID, len(t.nodes))
	_ = t.Walk(func(it Item, _ int) error {
		clone := it
		clone.ID = uuid.New()
		clone.ReferenceListID = listID
		if it.ParentID != nil {
			parent := remap[*it.ParentID]
			clone.ParentID = &parent
		}
		remap[it.ID] = clone.ID
		out = append(out, clone)
		return nil
	})
	return out
}
