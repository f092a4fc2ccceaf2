// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree defines the arena-indexed formula tree evaluated by the
// planning engine.
//
// A Tree is a flat sequence of Nodes. Nodes reference each other only by
// their position in that sequence (the node id); there are no pointers
// between nodes. Node 0 is the root of a freshly built tree. An empty
// tree is the vacuous, always-satisfied formula.
//
// Trees are treated as values: Clone produces a deep copy and every
// transformation in this module (grounding, subtree extraction) returns
// a new Tree instead of editing its input.
package tree

import (
	"errors"
	"fmt"
	"strings"
)

// UnboundMarker prefixes the name of a free or quantified variable.
const UnboundMarker = '?'

// Sentinel errors for tree decoding and validation.
var (
	// ErrInvalidTree indicates a node references an id outside the tree
	// or the node graph is not a tree.
	ErrInvalidTree = errors.New("invalid tree")

	// ErrUnknownTag indicates a textual kind or operator tag that does not
	// name any known value.
	ErrUnknownTag = errors.New("unknown tag")
)

// -----------------------------------------------------------------------------
// Node kinds
// -----------------------------------------------------------------------------

// NodeKind is the tag of a Node.
type NodeKind uint8

const (
	// KindUnknown is the zero value. The evaluator reports it as an
	// unrecognized node kind.
	KindUnknown NodeKind = iota
	KindAnd
	KindOr
	KindNot
	KindPredicate
	KindFunction
	KindExpression
	KindFunctionModifier
	KindNumber
	KindConstant
	KindParameter
	KindExists
)

var kindNames = map[NodeKind]string{
	KindUnknown:          "unknown",
	KindAnd:              "and",
	KindOr:               "or",
	KindNot:              "not",
	KindPredicate:        "predicate",
	KindFunction:         "function",
	KindExpression:       "expression",
	KindFunctionModifier: "function_modifier",
	KindNumber:           "number",
	KindConstant:         "constant",
	KindParameter:        "parameter",
	KindExists:           "exists",
}

// String returns the wire name of the kind.
func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NodeKind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: node kind %q", ErrUnknownTag, s)
}

// -----------------------------------------------------------------------------
// Expression operators
// -----------------------------------------------------------------------------

// ExpressionType selects the operator of an EXPRESSION node.
type ExpressionType uint8

const (
	ExprNone ExpressionType = iota
	CompGE
	CompGT
	CompLE
	CompLT
	CompEQ
	ArithMult
	ArithDiv
	ArithAdd
	ArithSub
)

var exprNames = map[ExpressionType]string{
	ExprNone:  "",
	CompGE:    ">=",
	CompGT:    ">",
	CompLE:    "<=",
	CompLT:    "<",
	CompEQ:    "=",
	ArithMult: "*",
	ArithDiv:  "/",
	ArithAdd:  "+",
	ArithSub:  "-",
}

// String returns the PDDL operator symbol.
func (e ExpressionType) String() string {
	if s, ok := exprNames[e]; ok {
		return s
	}
	return fmt.Sprintf("expr(%d)", uint8(e))
}

// IsComparison reports whether e yields a truth value rather than a number.
func (e ExpressionType) IsComparison() bool {
	switch e {
	case CompGE, CompGT, CompLE, CompLT, CompEQ:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (e ExpressionType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *ExpressionType) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for t, name := range exprNames {
		if name == s {
			*e = t
			return nil
		}
	}
	return fmt.Errorf("%w: expression type %q", ErrUnknownTag, s)
}

// -----------------------------------------------------------------------------
// Function modifiers
// -----------------------------------------------------------------------------

// ModifierType selects the update applied by a FUNCTION_MODIFIER node.
type ModifierType uint8

const (
	ModNone ModifierType = iota
	ModAssign
	ModIncrease
	ModDecrease
	ModScaleUp
	ModScaleDown
)

var modNames = map[ModifierType]string{
	ModNone:      "",
	ModAssign:    "assign",
	ModIncrease:  "increase",
	ModDecrease:  "decrease",
	ModScaleUp:   "scale-up",
	ModScaleDown: "scale-down",
}

// String returns the PDDL keyword of the modifier.
func (m ModifierType) String() string {
	if s, ok := modNames[m]; ok {
		return s
	}
	return fmt.Sprintf("modifier(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m ModifierType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModifierType) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for t, name := range modNames {
		if name == s {
			*m = t
			return nil
		}
	}
	return fmt.Errorf("%w: modifier type %q", ErrUnknownTag, s)
}

// -----------------------------------------------------------------------------
// Nodes and trees
// -----------------------------------------------------------------------------

// Param is a named argument of a predicate or function, or a variable
// declared by an EXISTS node. Type is informational only; it never takes
// part in equality or lookup.
type Param struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// IsBound reports whether the parameter names a ground symbol.
func (p Param) IsBound() bool {
	return p.Name != "" && p.Name[0] != UnboundMarker
}

// Node is one element of a Tree.
//
// Which fields are meaningful depends on Kind:
//
//	AND, OR, NOT          Children
//	PREDICATE, FUNCTION   Name, Params
//	EXPRESSION            ExpressionType, Children (left, right)
//	FUNCTION_MODIFIER     ModifierType, Children (function, value)
//	NUMBER                Value
//	CONSTANT              Name
//	PARAMETER             Params[0]
//	EXISTS                Params (quantified variables), Children[0] (condition)
type Node struct {
	Kind           NodeKind       `json:"node_type" yaml:"node_type"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	Value          float64        `json:"value,omitempty" yaml:"value,omitempty"`
	Children       []int          `json:"children,omitempty" yaml:"children,omitempty"`
	Params         []Param        `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ExpressionType ExpressionType `json:"expression_type,omitempty" yaml:"expression_type,omitempty"`
	ModifierType   ModifierType   `json:"modifier_type,omitempty" yaml:"modifier_type,omitempty"`
}

// ParamNames returns the names of the node's parameters in order.
func (n Node) ParamNames() []string {
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		names[i] = p.Name
	}
	return names
}

// clone returns a deep copy of n.
func (n Node) clone() Node {
	out := n
	if n.Children != nil {
		out.Children = append([]int(nil), n.Children...)
	}
	if n.Params != nil {
		out.Params = append([]Param(nil), n.Params...)
	}
	return out
}

// Tree is an arena of nodes addressed by index.
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// Empty reports whether the tree has no nodes.
func (t Tree) Empty() bool {
	return len(t.Nodes) == 0
}

// Has reports whether id addresses a node of t.
func (t Tree) Has(id int) bool {
	return id >= 0 && id < len(t.Nodes)
}

// Node returns the node at id. The second result is false when id is out
// of range.
func (t Tree) Node(id int) (Node, bool) {
	if !t.Has(id) {
		return Node{}, false
	}
	return t.Nodes[id], true
}

// Clone returns a deep copy of t. Mutating the copy never affects t.
func (t Tree) Clone() Tree {
	if t.Nodes == nil {
		return Tree{}
	}
	out := Tree{Nodes: make([]Node, len(t.Nodes))}
	for i, n := range t.Nodes {
		out.Nodes[i] = n.clone()
	}
	return out
}

// Validate checks the id invariant of the arena.
//
// Description:
//
//	Every child id must address a node of the same tree, no node may have
//	more than one parent, and no node may lie on a cycle. The check covers
//	the whole arena rather than only what hangs below node 0, so any node
//	id is safe to evaluate from once Validate succeeds.
//
// Outputs:
//
//	error - Wraps ErrInvalidTree describing the first violation, or nil.
func (t Tree) Validate() error {
	parents := make([]int, len(t.Nodes))
	for id, n := range t.Nodes {
		for _, c := range n.Children {
			if !t.Has(c) {
				return fmt.Errorf("%w: node %d references child %d out of range [0,%d)",
					ErrInvalidTree, id, c, len(t.Nodes))
			}
			parents[c]++
			if parents[c] > 1 {
				return fmt.Errorf("%w: node %d is reachable more than once", ErrInvalidTree, c)
			}
		}
	}

	// With at most one parent per node, every node off a cycle is reached
	// exactly once from the parentless nodes.
	seen := make([]bool, len(t.Nodes))
	var stack []int
	for id, p := range parents {
		if p == 0 {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[id] = true
		stack = append(stack, t.Nodes[id].Children...)
	}
	for id, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: node %d lies on a cycle", ErrInvalidTree, id)
		}
	}
	return nil
}
