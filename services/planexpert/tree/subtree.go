// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tree

// SubtreeIDs splits a goal into its top-level sub-goals.
//
// Description:
//
//	When the root is an AND node its children are the sub-goals;
//	otherwise the whole tree is a single sub-goal rooted at 0. An empty
//	tree has no sub-goals.
func SubtreeIDs(t Tree) []int {
	root, ok := t.Node(0)
	if !ok {
		return nil
	}
	if root.Kind == KindAnd {
		return append([]int(nil), root.Children...)
	}
	return []int{0}
}

// Subtree copies the subtree rooted at id into a new Tree whose root is
// node 0. Nodes are re-indexed in pre-order. An out-of-range id yields
// an empty tree. t must pass Validate; a cyclic arena is not detected here.
func Subtree(t Tree, id int) Tree {
	if !t.Has(id) {
		return Tree{}
	}
	var out Tree
	copySubtree(t, id, &out)
	return out
}

func copySubtree(src Tree, id int, dst *Tree) int {
	n := src.Nodes[id].clone()
	children := n.Children
	n.Children = nil

	newID := len(dst.Nodes)
	dst.Nodes = append(dst.Nodes, n)
	for _, c := range children {
		if !src.Has(c) {
			continue
		}
		nc := copySubtree(src, c, dst)
		dst.Nodes[newID].Children = append(dst.Nodes[newID].Children, nc)
	}
	return newID
}

// Wrap returns a new tree whose root is an AND node with the subtree
// rooted at id as its only child.
func Wrap(t Tree, id int) Tree {
	out := Tree{Nodes: []Node{{Kind: KindAnd}}}
	if !t.Has(id) {
		return out
	}
	child := copySubtree(t, id, &out)
	out.Nodes[0].Children = []int{child}
	return out
}
