// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ground enumerates candidate variable bindings and substitutes
// them into formula trees.
//
// It is used by the evaluator to ground EXISTS quantifiers and by the
// lookahead package to instantiate parameterised action effects.
package ground

import (
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// CartesianProduct returns every combination that picks one value from
// each candidate list.
//
// Description:
//
//	Combinations are produced in nested-loop order: the first list varies
//	slowest and the last list fastest. The number of combinations is the
//	product of the list lengths, so any empty list yields no
//	combinations. Zero lists yield exactly one empty combination.
//
// Inputs:
//
//	lists - Per-position candidate values. Not modified.
//
// Outputs:
//
//	[][]string - The combinations. Each combination is a fresh slice.
//
// Example:
//
//	CartesianProduct([][]string{{"a", "b"}, {"1", "2"}})
//	// [[a 1] [a 2] [b 1] [b 2]]
func CartesianProduct(lists [][]string) [][]string {
	total := 1
	for _, l := range lists {
		total *= len(l)
	}
	if total == 0 {
		return nil
	}

	out := make([][]string, 0, total)
	current := make([]string, 0, len(lists))
	var walk func(pos int)
	walk = func(pos int) {
		if pos == len(lists) {
			out = append(out, append([]string(nil), current...))
			return
		}
		for _, v := range lists[pos] {
			current = append(current, v)
			walk(pos + 1)
			current = current[:len(current)-1]
		}
	}
	walk(0)
	return out
}

// Substitute grounds variables in the subtree rooted at id.
//
// Description:
//
//	Returns a new tree in which every parameter name, on the node at id
//	and on all of its descendants, that appears as a key of replace is
//	replaced by the mapped value. Children are processed before the
//	node's own parameters. Nodes outside the subtree are copied
//	unchanged.
//
//	The input tree is never modified and shares no memory with the
//	result, so the caller may keep evaluating it afterwards.
//
// Inputs:
//
//	t - The source tree. Must satisfy tree.Validate.
//	id - Root of the subtree to ground. An out-of-range id returns a copy.
//	replace - Variable name to ground name.
//
// Outputs:
//
//	tree.Tree - The grounded copy.
func Substitute(t tree.Tree, id int, replace map[string]string) tree.Tree {
	out := t.Clone()
	if !out.Has(id) || len(replace) == 0 {
		return out
	}
	substitute(&out, id, replace)
	return out
}

func substitute(t *tree.Tree, id int, replace map[string]string) {
	for _, c := range t.Nodes[id].Children {
		if t.Has(c) {
			substitute(t, c, replace)
		}
	}
	params := t.Nodes[id].Params
	for i := range params {
		if v, ok := replace[params[i].Name]; ok {
			params[i].Name = v
		}
	}
}

// Bindings builds the substitution map for one combination.
//
// Description:
//
//	Pairs vars[i] with values[i]. Extra entries on either side are
//	ignored.
func Bindings(vars []string, values []string) map[string]string {
	n := min(len(vars), len(values))
	out := make(map[string]string, n)
	for i := 0; i < n; i++ {
		out[vars[i]] = values[i]
	}
	return out
}
