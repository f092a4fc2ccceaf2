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

import (
	"strconv"
	"strings"
)

// String renders the whole tree from the root.
func (t Tree) String() string {
	if t.Empty() {
		return "()"
	}
	return t.Render(0)
}

// Render returns the PDDL text of the subtree rooted at id.
//
// Description:
//
//	Produces forms such as "(and (at robot room1) (not (at robot room2)))",
//	"(> (battery) 20)" or "(exists (?x) (at ?x room1))". A FUNCTION node
//	renders as "(name p1 p2)", which is also the key the problem service
//	uses for function lookup. Out-of-range ids render as an empty string
//	and nodes of unknown kind as "<kind(n)>".
func (t Tree) Render(id int) string {
	var b strings.Builder
	t.render(&b, id)
	return b.String()
}

func (t Tree) render(b *strings.Builder, id int) {
	n, ok := t.Node(id)
	if !ok {
		return
	}

	switch n.Kind {
	case KindAnd, KindOr:
		b.WriteByte('(')
		b.WriteString(n.Kind.String())
		for _, c := range n.Children {
			b.WriteByte(' ')
			t.render(b, c)
		}
		b.WriteByte(')')
	case KindNot:
		b.WriteString("(not ")
		if len(n.Children) > 0 {
			t.render(b, n.Children[0])
		}
		b.WriteByte(')')
	case KindPredicate, KindFunction:
		b.WriteByte('(')
		b.WriteString(n.Name)
		for _, p := range n.Params {
			b.WriteByte(' ')
			b.WriteString(p.Name)
		}
		b.WriteByte(')')
	case KindExpression:
		t.renderBinary(b, n.ExpressionType.String(), n.Children)
	case KindFunctionModifier:
		t.renderBinary(b, n.ModifierType.String(), n.Children)
	case KindNumber:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case KindConstant:
		b.WriteString(n.Name)
	case KindParameter:
		if len(n.Params) > 0 {
			b.WriteString(n.Params[0].Name)
		}
	case KindExists:
		b.WriteString("(exists (")
		b.WriteString(strings.Join(n.ParamNames(), " "))
		b.WriteString(")")
		if len(n.Children) > 0 {
			b.WriteByte(' ')
			t.render(b, n.Children[0])
		}
		b.WriteByte(')')
	default:
		b.WriteString("<" + n.Kind.String() + ">")
	}
}

func (t Tree) renderBinary(b *strings.Builder, op string, children []int) {
	b.WriteByte('(')
	b.WriteString(op)
	for _, c := range children {
		b.WriteByte(' ')
		t.render(b, c)
	}
	b.WriteByte(')')
}
