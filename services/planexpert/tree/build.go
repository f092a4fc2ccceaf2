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

// Formula is a nested description of a tree used to assemble a Tree in
// code. Build flattens it in pre-order so the root lands at node 0,
// the same layout the domain parser produces.
type Formula struct {
	node Node
	sub  []Formula
}

// And builds an AND node.
func And(children ...Formula) Formula {
	return Formula{node: Node{Kind: KindAnd}, sub: children}
}

// Or builds an OR node.
func Or(children ...Formula) Formula {
	return Formula{node: Node{Kind: KindOr}, sub: children}
}

// Not builds a NOT node.
func Not(child Formula) Formula {
	return Formula{node: Node{Kind: KindNot}, sub: []Formula{child}}
}

// Pred builds a PREDICATE node.
func Pred(name string, params ...string) Formula {
	return Formula{node: Node{Kind: KindPredicate, Name: name, Params: paramsOf(params)}}
}

// Fn builds a FUNCTION node.
func Fn(name string, params ...string) Formula {
	return Formula{node: Node{Kind: KindFunction, Name: name, Params: paramsOf(params)}}
}

// Num builds a NUMBER node.
func Num(v float64) Formula {
	return Formula{node: Node{Kind: KindNumber, Value: v}}
}

// Const builds a CONSTANT node.
func Const(name string) Formula {
	return Formula{node: Node{Kind: KindConstant, Name: name}}
}

// Var builds a PARAMETER node bound to name. Use a "?" prefix for a free
// variable.
func Var(name string) Formula {
	return Formula{node: Node{Kind: KindParameter, Params: []Param{{Name: name}}}}
}

// Expr builds an EXPRESSION node.
func Expr(op ExpressionType, left, right Formula) Formula {
	return Formula{node: Node{Kind: KindExpression, ExpressionType: op}, sub: []Formula{left, right}}
}

// Modify builds a FUNCTION_MODIFIER node.
func Modify(op ModifierType, fn, value Formula) Formula {
	return Formula{node: Node{Kind: KindFunctionModifier, ModifierType: op}, sub: []Formula{fn, value}}
}

// Exists builds an EXISTS node quantifying vars over cond.
func Exists(vars []string, cond Formula) Formula {
	return Formula{node: Node{Kind: KindExists, Params: paramsOf(vars)}, sub: []Formula{cond}}
}

// Raw wraps an arbitrary node and children. Children listed in n are
// replaced by the ids of sub.
func Raw(n Node, sub ...Formula) Formula {
	return Formula{node: n.clone(), sub: sub}
}

// Build flattens f into a Tree rooted at node 0.
func Build(f Formula) Tree {
	var t Tree
	appendFormula(&t, f)
	return t
}

func appendFormula(t *Tree, f Formula) int {
	id := len(t.Nodes)
	n := f.node.clone()
	n.Children = nil
	t.Nodes = append(t.Nodes, n)
	for _, s := range f.sub {
		child := appendFormula(t, s)
		t.Nodes[id].Children = append(t.Nodes[id].Children, child)
	}
	return id
}

func paramsOf(names []string) []Param {
	if len(names) == 0 {
		return nil
	}
	out := make([]Param, len(names))
	for i, n := range names {
		out[i] = Param{Name: n}
	}
	return out
}
