// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval interprets formula trees against a world state.
//
// The evaluator answers three questions about a node of a tree.Tree: does
// it hold (Check), can its effects be carried out (Apply), and what
// number does it denote (FunctionValue). All three share one recursive
// walk, Evaluate, whose result carries a success flag, a truth value and
// a numeric value.
//
// # Failure model
//
// Evaluation never returns an error and never panics on a malformed tree.
// A missing function, a division by a near-zero divisor, an unrecognized
// node kind, a node with the wrong number of children or a failed remote
// call all turn into Result.Success == false at that node and propagate
// upwards. An EXISTS with no satisfying binding is not a failure: it is a
// successful evaluation whose truth is false.
//
// # Side effects
//
// AND and OR never short-circuit. With apply set, every child's effects
// run even after an earlier child failed or was false. Callers that need
// all-or-nothing effects must Check before they Apply.
//
// # Recursion
//
// The walk recurses once per tree level, so stack use grows with formula
// depth. Formulas produced by the domain parser are shallow; no explicit
// bound is enforced.
package eval

import (
	"context"
	"log/slog"
	"math"

	"github.com/AleutianAI/planexpert/services/planexpert/ground"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// DivisionThreshold is the smallest divisor magnitude accepted by "/" and
// scale-down. Divisors with |d| <= DivisionThreshold fail the node.
const DivisionThreshold = 1e-5

// Result is the outcome of evaluating one node.
//
// Only one of Truth and Value is meaningful for a given node kind: logical,
// comparison and EXISTS nodes produce Truth; FUNCTION, NUMBER, arithmetic
// and FUNCTION_MODIFIER nodes produce Value. The other field holds a fixed
// placeholder.
type Result struct {
	Success bool
	Truth   bool
	Value   float64
}

var (
	vacuous = Result{Success: true, Truth: true}
	failed  = Result{}
)

// Evaluator walks formula trees. The zero value is not usable; call New.
//
// Thread Safety: Safe for concurrent use. The accessor passed to each
// call decides whether concurrent evaluations may share state.
type Evaluator struct {
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used to report malformed trees.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Evaluate interprets the node id of t.
//
// Description:
//
//	With apply unset the walk only reads state. With apply set,
//	PREDICATE nodes add (or, under negation, remove) their predicate and
//	FUNCTION_MODIFIER nodes write their computed value back. negate is
//	flipped by every NOT on the way down; leaves interpret it, NOT itself
//	never inverts a returned truth value.
//
// Inputs:
//
//	ctx - Passed to every accessor call.
//	t - The tree. An empty tree evaluates to {true, true, 0}. A tree
//	    that fails tree.Validate evaluates to a failure without being
//	    walked.
//	id - The node to evaluate.
//	acc - Where predicates and functions live.
//	apply - Whether effects are carried out.
//	negate - Whether the node sits under an odd number of NOTs.
//
// Outputs:
//
//	Result - Success, truth and numeric channels.
func (e *Evaluator) Evaluate(ctx context.Context, t tree.Tree, id int, acc state.Accessor, apply, negate bool) Result {
	if t.Empty() {
		return vacuous
	}
	if err := t.Validate(); err != nil {
		e.log().Warn("refusing to evaluate malformed tree",
			slog.Int("node_id", id),
			slog.String("error", err.Error()))
		return failed
	}
	return e.eval(ctx, t, id, acc, apply, negate)
}

func (e *Evaluator) eval(ctx context.Context, t tree.Tree, id int, acc state.Accessor, apply, negate bool) Result {
	n, ok := t.Node(id)
	if !ok {
		e.log().Warn("node id out of range",
			slog.Int("node_id", id),
			slog.Int("nodes", len(t.Nodes)))
		return failed
	}

	switch n.Kind {
	case tree.KindAnd:
		res := Result{Success: true, Truth: true}
		for _, c := range n.Children {
			r := e.eval(ctx, t, c, acc, apply, negate)
			res.Success = res.Success && r.Success
			res.Truth = res.Truth && r.Truth
		}
		return res

	case tree.KindOr:
		res := Result{Success: true, Truth: false}
		for _, c := range n.Children {
			r := e.eval(ctx, t, c, acc, apply, negate)
			res.Success = res.Success && r.Success
			res.Truth = res.Truth || r.Truth
		}
		return res

	case tree.KindNot:
		if !e.arity(t, id, n, 1) {
			return failed
		}
		return e.eval(ctx, t, n.Children[0], acc, apply, !negate)

	case tree.KindPredicate:
		return e.predicate(ctx, n, acc, apply, negate)

	case tree.KindFunction:
		f, err := acc.Function(ctx, n.Name, n.ParamNames())
		if err != nil {
			return failed
		}
		return Result{Success: true, Value: f.Value}

	case tree.KindExpression:
		return e.expression(ctx, t, id, n, acc, apply, negate)

	case tree.KindFunctionModifier:
		return e.modifier(ctx, t, id, n, acc, apply, negate)

	case tree.KindNumber:
		return Result{Success: true, Truth: true, Value: n.Value}

	case tree.KindConstant:
		return Result{Success: true, Truth: n.Name != ""}

	case tree.KindParameter:
		// An unbound or missing parameter is a definite false, never a
		// fall-through into quantifier handling.
		bound := len(n.Params) > 0 && n.Params[0].IsBound()
		return Result{Success: true, Truth: bound}

	case tree.KindExists:
		return e.exists(ctx, t, id, n, acc, apply, negate)

	default:
		e.log().Warn("unrecognized node kind",
			slog.Int("node_id", id),
			slog.String("kind", n.Kind.String()),
			slog.String("expression", t.Render(id)))
		return failed
	}
}

// arity checks that n has at least want children.
func (e *Evaluator) arity(t tree.Tree, id int, n tree.Node, want int) bool {
	if len(n.Children) >= want {
		return true
	}
	e.log().Warn("node has too few children",
		slog.Int("node_id", id),
		slog.String("kind", n.Kind.String()),
		slog.Int("want", want),
		slog.Int("got", len(n.Children)),
		slog.String("expression", t.Render(id)))
	return false
}

// predicate handles PREDICATE leaves.
//
//	apply  negate  effect             truth
//	  T      F     add if absent      true
//	  T      T     remove if present  false
//	  F      -     none               negate XOR member
func (e *Evaluator) predicate(ctx context.Context, n tree.Node, acc state.Accessor, apply, negate bool) Result {
	p := state.Predicate{Name: n.Name, Params: n.ParamNames()}

	if apply {
		if negate {
			err := acc.RemovePredicate(ctx, p)
			return Result{Success: err == nil, Truth: false}
		}
		err := acc.AddPredicate(ctx, p)
		return Result{Success: err == nil, Truth: true}
	}

	member, err := acc.ExistPredicate(ctx, p)
	if err != nil {
		return failed
	}
	return Result{Success: true, Truth: negate != member}
}

func (e *Evaluator) expression(ctx context.Context, t tree.Tree, id int, n tree.Node, acc state.Accessor, apply, negate bool) Result {
	if !e.arity(t, id, n, 2) {
		return failed
	}
	left := e.eval(ctx, t, n.Children[0], acc, apply, negate)
	right := e.eval(ctx, t, n.Children[1], acc, apply, negate)
	if !left.Success || !right.Success {
		return failed
	}

	compare := func(holds bool) Result {
		return Result{Success: true, Truth: negate != holds}
	}

	switch n.ExpressionType {
	case tree.CompGE:
		return compare(left.Value >= right.Value)
	case tree.CompGT:
		return compare(left.Value > right.Value)
	case tree.CompLE:
		return compare(left.Value <= right.Value)
	case tree.CompLT:
		return compare(left.Value < right.Value)
	case tree.CompEQ:
		l, r := t.Nodes[n.Children[0]], t.Nodes[n.Children[1]]
		if isSymbolic(l) && isSymbolic(r) {
			return compare(symbolName(l) == symbolName(r))
		}
		if l.Kind == tree.KindNumber && r.Kind == tree.KindNumber {
			return compare(left.Value == right.Value)
		}
		// Mixed symbolic/numeric equality is undefined.
		return failed
	case tree.ArithMult:
		return Result{Success: true, Value: left.Value * right.Value}
	case tree.ArithDiv:
		if v, ok := divide(left.Value, right.Value); ok {
			return Result{Success: true, Value: v}
		}
		return failed
	case tree.ArithAdd:
		return Result{Success: true, Value: left.Value + right.Value}
	case tree.ArithSub:
		return Result{Success: true, Value: left.Value - right.Value}
	}

	e.log().Warn("unrecognized expression type",
		slog.Int("node_id", id),
		slog.String("expression_type", n.ExpressionType.String()))
	return failed
}

func (e *Evaluator) modifier(ctx context.Context, t tree.Tree, id int, n tree.Node, acc state.Accessor, apply, negate bool) Result {
	if !e.arity(t, id, n, 2) {
		return failed
	}
	left := e.eval(ctx, t, n.Children[0], acc, apply, negate)
	right := e.eval(ctx, t, n.Children[1], acc, apply, negate)
	if !left.Success || !right.Success {
		return failed
	}

	var value float64
	success := true
	switch n.ModifierType {
	case tree.ModAssign:
		value = right.Value
	case tree.ModIncrease:
		value = left.Value + right.Value
	case tree.ModDecrease:
		value = left.Value - right.Value
	case tree.ModScaleUp:
		value = left.Value * right.Value
	case tree.ModScaleDown:
		value, success = divide(left.Value, right.Value)
	default:
		e.log().Warn("unrecognized modifier type",
			slog.Int("node_id", id),
			slog.String("modifier_type", n.ModifierType.String()))
		success = false
	}

	if success && apply {
		target := t.Nodes[n.Children[0]]
		if target.Kind != tree.KindFunction {
			e.log().Warn("modifier target is not a function",
				slog.Int("node_id", id),
				slog.String("expression", t.Render(id)))
			success = false
		} else {
			err := acc.UpdateFunction(ctx, state.Function{
				Name:   target.Name,
				Params: target.ParamNames(),
				Value:  value,
			})
			success = err == nil
		}
	}

	return Result{Success: success, Value: value}
}

// exists grounds the quantified variables of n over every instance and
// evaluates the condition under each binding until one holds.
func (e *Evaluator) exists(ctx context.Context, t tree.Tree, id int, n tree.Node, acc state.Accessor, apply, negate bool) Result {
	if !e.arity(t, id, n, 1) {
		return failed
	}
	instances, err := acc.Instances(ctx)
	if err != nil {
		return failed
	}

	names := make([]string, len(instances))
	for i, inst := range instances {
		names[i] = inst.Name
	}
	vars := n.ParamNames()
	candidates := make([][]string, len(vars))
	for i := range vars {
		candidates[i] = names
	}

	for _, binding := range ground.CartesianProduct(candidates) {
		grounded := ground.Substitute(t, id, ground.Bindings(vars, binding))
		cond := grounded.Nodes[id].Children[0]
		if r := e.eval(ctx, grounded, cond, acc, apply, negate); r.Truth {
			return r
		}
	}
	return Result{Success: true, Truth: false}
}

func isSymbolic(n tree.Node) bool {
	return n.Kind == tree.KindConstant || n.Kind == tree.KindParameter
}

func symbolName(n tree.Node) string {
	if n.Kind == tree.KindParameter {
		if len(n.Params) == 0 {
			return ""
		}
		return n.Params[0].Name
	}
	return n.Name
}

func divide(num, den float64) (float64, bool) {
	if math.Abs(den) > DivisionThreshold {
		return num / den, true
	}
	return 0, false
}
