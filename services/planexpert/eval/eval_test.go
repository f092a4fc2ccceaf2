// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// =============================================================================
// Test helpers
// =============================================================================

func quiet() *Evaluator {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func pred(name string, params ...string) state.Predicate {
	return state.Predicate{Name: name, Params: params}
}

// domain overrides the instance registry of a Local accessor.
type domain struct {
	*state.Local
	instances []state.Instance
	err       error
}

func (d *domain) Instances(context.Context) ([]state.Instance, error) {
	return d.instances, d.err
}

func instances(names ...string) []state.Instance {
	out := make([]state.Instance, len(names))
	for i, n := range names {
		out[i] = state.Instance{Name: n}
	}
	return out
}

// problemFake is an in-process ProblemClient over a snapshot.
type problemFake struct {
	local   *state.Local
	failAdd bool
	calls   int
}

func (f *problemFake) ExistPredicate(ctx context.Context, p state.Predicate) (bool, error) {
	f.calls++
	return f.local.ExistPredicate(ctx, p)
}

func (f *problemFake) AddPredicate(ctx context.Context, p state.Predicate) error {
	f.calls++
	if f.failAdd {
		return errors.New("connection refused")
	}
	return f.local.AddPredicate(ctx, p)
}

func (f *problemFake) RemovePredicate(ctx context.Context, p state.Predicate) error {
	f.calls++
	return f.local.RemovePredicate(ctx, p)
}

func (f *problemFake) GetFunction(ctx context.Context, name string, params []string) (state.Function, error) {
	f.calls++
	return f.local.Function(ctx, name, params)
}

func (f *problemFake) UpdateFunction(ctx context.Context, fn state.Function) error {
	f.calls++
	return f.local.UpdateFunction(ctx, fn)
}

func (f *problemFake) GetInstances(ctx context.Context) ([]state.Instance, error) {
	f.calls++
	return f.local.Instances(ctx)
}

// =============================================================================
// Vacuous cases
// =============================================================================

func TestEvaluate_EmptyTree(t *testing.T) {
	e := quiet()
	r := e.Evaluate(context.Background(), tree.Tree{}, 0, state.NewLocal(&state.Snapshot{}), false, false)
	assert.Equal(t, Result{Success: true, Truth: true}, r)

	assert.True(t, e.CheckState(context.Background(), tree.Tree{}, &state.Snapshot{}, 0))
	assert.True(t, e.ApplyState(context.Background(), tree.Tree{}, &state.Snapshot{}, 0))
}

func TestEvaluate_EmptyAndOr(t *testing.T) {
	e := quiet()
	acc := state.NewLocal(&state.Snapshot{})

	and := tree.Build(tree.And())
	r := e.Evaluate(context.Background(), and, 0, acc, false, false)
	assert.Equal(t, Result{Success: true, Truth: true}, r)

	or := tree.Build(tree.Or())
	r = e.Evaluate(context.Background(), or, 0, acc, false, false)
	assert.Equal(t, Result{Success: true, Truth: false}, r)
}

// =============================================================================
// Predicates
// =============================================================================

func TestApply_PredicateIsIdempotent(t *testing.T) {
	e := quiet()
	ctx := context.Background()
	snap := &state.Snapshot{}
	f := tree.Build(tree.Pred("at", "robot", "room1"))

	require.True(t, e.ApplyState(ctx, f, snap, 0))
	require.True(t, e.ApplyState(ctx, f, snap, 0))

	assert.Equal(t, []state.Predicate{pred("at", "robot", "room1")}, snap.Predicates)
}

func TestApply_RemoveAbsentPredicate(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{Predicates: []state.Predicate{pred("at", "robot", "room2")}}
	f := tree.Build(tree.Not(tree.Pred("at", "robot", "room1")))

	r := e.Evaluate(context.Background(), f, 0, state.NewLocal(snap), true, false)

	assert.Equal(t, Result{Success: true, Truth: false}, r)
	assert.Equal(t, []state.Predicate{pred("at", "robot", "room2")}, snap.Predicates)
}

func TestApply_NegatedPredicateRemoves(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{Predicates: []state.Predicate{
		pred("at", "robot", "room1"),
		pred("free", "gripper"),
	}}
	f := tree.Build(tree.And(
		tree.Not(tree.Pred("at", "robot", "room1")),
		tree.Pred("at", "robot", "room2"),
	))

	require.True(t, e.ApplyState(context.Background(), f, snap, 0))
	assert.Equal(t, []state.Predicate{
		pred("free", "gripper"),
		pred("at", "robot", "room2"),
	}, snap.Predicates)
}

func TestCheck_PredicateTruthTable(t *testing.T) {
	tests := []struct {
		name   string
		negate bool
		member bool
		want   bool
	}{
		{"absent", false, false, false},
		{"present", false, true, true},
		{"negated absent", true, false, true},
		{"negated present", true, true, false},
	}

	e := quiet()
	f := tree.Build(tree.Pred("holding", "robot", "cup"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &state.Snapshot{}
			if tt.member {
				snap.Predicates = []state.Predicate{pred("holding", "robot", "cup")}
			}
			r := e.Evaluate(context.Background(), f, 0, state.NewLocal(snap), false, tt.negate)
			assert.True(t, r.Success)
			assert.Equal(t, tt.want, r.Truth)
		})
	}
}

func TestCheck_DoubleNegation(t *testing.T) {
	e := quiet()
	ctx := context.Background()
	plain := tree.Build(tree.Pred("at", "robot", "room1"))
	twice := tree.Build(tree.Not(tree.Not(tree.Pred("at", "robot", "room1"))))

	states := []*state.Snapshot{
		{},
		{Predicates: []state.Predicate{pred("at", "robot", "room1")}},
		{Predicates: []state.Predicate{pred("at", "robot", "room2")}},
	}
	for _, s := range states {
		assert.Equal(t, e.CheckState(ctx, plain, s, 0), e.CheckState(ctx, twice, s, 0))
	}
}

func TestCheck_DoesNotMutate(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{Functions: []state.Function{{Name: "battery", Params: []string{"r1"}, Value: 50}}}
	f := tree.Build(tree.And(
		tree.Pred("charged", "r1"),
		tree.Modify(tree.ModIncrease, tree.Fn("battery", "r1"), tree.Num(10)),
	))

	assert.False(t, e.CheckState(context.Background(), f, snap, 0))
	assert.Empty(t, snap.Predicates)
	assert.Equal(t, 50.0, snap.Functions[0].Value)
}

// =============================================================================
// Numeric nodes
// =============================================================================

func TestCheck_FunctionComparison(t *testing.T) {
	e := quiet()
	f := tree.Build(tree.Expr(tree.CompGT, tree.Fn("battery"), tree.Num(20)))

	high := &state.Snapshot{Functions: []state.Function{{Name: "battery", Value: 50}}}
	low := &state.Snapshot{Functions: []state.Function{{Name: "battery", Value: 10}}}

	assert.True(t, e.CheckState(context.Background(), f, high, 0))
	assert.False(t, e.CheckState(context.Background(), f, low, 0))
}

func TestCheck_ComparisonOperators(t *testing.T) {
	tests := []struct {
		op   tree.ExpressionType
		l, r float64
		want bool
	}{
		{tree.CompGE, 3, 3, true},
		{tree.CompGE, 2, 3, false},
		{tree.CompGT, 3, 3, false},
		{tree.CompLE, 3, 3, true},
		{tree.CompLT, 2, 3, true},
		{tree.CompLT, 3, 2, false},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			f := tree.Build(tree.Expr(tt.op, tree.Num(tt.l), tree.Num(tt.r)))
			assert.Equal(t, tt.want, e.CheckState(context.Background(), f, &state.Snapshot{}, 0))

			negated := tree.Build(tree.Not(tree.Expr(tt.op, tree.Num(tt.l), tree.Num(tt.r))))
			assert.Equal(t, !tt.want, e.CheckState(context.Background(), negated, &state.Snapshot{}, 0))
		})
	}
}

func TestFunctionValue_MissingFunctionFails(t *testing.T) {
	e := quiet()
	f := tree.Build(tree.Expr(tree.ArithAdd, tree.Fn("battery", "r2"), tree.Num(1)))
	snap := &state.Snapshot{Functions: []state.Function{{Name: "battery", Params: []string{"r1"}, Value: 50}}}

	v, ok := e.FunctionValue(context.Background(), f, state.NewLocal(snap), 0)
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestFunctionValue_Arithmetic(t *testing.T) {
	tests := []struct {
		op   tree.ExpressionType
		want float64
	}{
		{tree.ArithAdd, 12},
		{tree.ArithSub, 8},
		{tree.ArithMult, 20},
		{tree.ArithDiv, 5},
	}

	e := quiet()
	snap := &state.Snapshot{Functions: []state.Function{{Name: "distance", Params: []string{"a", "b"}, Value: 10}}}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			f := tree.Build(tree.Expr(tt.op, tree.Fn("distance", "a", "b"), tree.Num(2)))
			v, ok := e.FunctionValue(context.Background(), f, state.NewLocal(snap), 0)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDivisionGuard(t *testing.T) {
	tests := []struct {
		name    string
		divisor float64
		ok      bool
		want    float64
	}{
		{"zero", 0, false, 0},
		{"at threshold", 1e-5, false, 0},
		{"negative threshold", -1e-5, false, 0},
		{"just above", 2e-5, true, 400000},
		{"ordinary", 4, true, 2},
		{"negative", -4, true, -2},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			div := tree.Build(tree.Expr(tree.ArithDiv, tree.Num(8), tree.Num(tt.divisor)))
			v, ok := e.FunctionValue(context.Background(), div, state.NewLocal(&state.Snapshot{}), 0)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, v, 1e-6)

			snap := &state.Snapshot{Functions: []state.Function{{Name: "load", Value: 8}}}
			scale := tree.Build(tree.Modify(tree.ModScaleDown, tree.Fn("load"), tree.Num(tt.divisor)))
			assert.Equal(t, tt.ok, e.ApplyState(context.Background(), scale, snap, 0))
			if tt.ok {
				assert.InDelta(t, tt.want, snap.Functions[0].Value, 1e-6)
			} else {
				assert.Equal(t, 8.0, snap.Functions[0].Value, "failed scale-down must not write")
			}
		})
	}
}

func TestCheck_Equality(t *testing.T) {
	tests := []struct {
		name    string
		formula tree.Formula
		success bool
		truth   bool
	}{
		{"same constant", tree.Expr(tree.CompEQ, tree.Const("r1"), tree.Const("r1")), true, true},
		{"different constants", tree.Expr(tree.CompEQ, tree.Const("r1"), tree.Const("r2")), true, false},
		{"parameter and constant", tree.Expr(tree.CompEQ, tree.Var("r1"), tree.Const("r1")), true, true},
		{"numbers", tree.Expr(tree.CompEQ, tree.Num(2), tree.Num(2)), true, true},
		{"different numbers", tree.Expr(tree.CompEQ, tree.Num(2), tree.Num(3)), true, false},
		{"mixed", tree.Expr(tree.CompEQ, tree.Const("r1"), tree.Num(1)), false, false},
		{"negated", tree.Not(tree.Expr(tree.CompEQ, tree.Const("r1"), tree.Const("r2"))), true, true},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Evaluate(context.Background(), tree.Build(tt.formula), 0, state.NewLocal(&state.Snapshot{}), false, false)
			assert.Equal(t, tt.success, r.Success)
			assert.Equal(t, tt.truth, r.Truth)
		})
	}
}

// =============================================================================
// Function modifiers
// =============================================================================

func TestApply_IncreaseBattery(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{Functions: []state.Function{{Name: "battery", Value: 50}}}
	f := tree.Build(tree.Modify(tree.ModIncrease, tree.Fn("battery"), tree.Num(10)))

	require.True(t, e.ApplyState(context.Background(), f, snap, 0))
	got, ok := snap.FunctionValue("battery")
	require.True(t, ok)
	assert.Equal(t, 60.0, got)
}

func TestApply_Modifiers(t *testing.T) {
	tests := []struct {
		mod  tree.ModifierType
		want float64
	}{
		{tree.ModAssign, 4},
		{tree.ModIncrease, 14},
		{tree.ModDecrease, 6},
		{tree.ModScaleUp, 40},
		{tree.ModScaleDown, 2.5},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.mod.String(), func(t *testing.T) {
			snap := &state.Snapshot{Functions: []state.Function{{Name: "fuel", Params: []string{"truck"}, Value: 10}}}
			f := tree.Build(tree.Modify(tt.mod, tree.Fn("fuel", "truck"), tree.Num(4)))

			r := e.Evaluate(context.Background(), f, 0, state.NewLocal(snap), true, false)
			require.True(t, r.Success)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.want, snap.Functions[0].Value)
		})
	}
}

func TestModifier_WithoutApplyOnlyComputes(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{Functions: []state.Function{{Name: "fuel", Value: 10}}}
	f := tree.Build(tree.Modify(tree.ModDecrease, tree.Fn("fuel"), tree.Num(3)))

	r := e.Evaluate(context.Background(), f, 0, state.NewLocal(snap), false, false)
	assert.Equal(t, Result{Success: true, Value: 7}, r)
	assert.Equal(t, 10.0, snap.Functions[0].Value)
}

func TestModifier_Failures(t *testing.T) {
	e := quiet()
	ctx := context.Background()

	t.Run("missing target", func(t *testing.T) {
		snap := &state.Snapshot{}
		f := tree.Build(tree.Modify(tree.ModAssign, tree.Fn("fuel"), tree.Num(3)))
		assert.False(t, e.ApplyState(ctx, f, snap, 0))
		assert.Empty(t, snap.Functions)
	})

	t.Run("target is not a function", func(t *testing.T) {
		f := tree.Build(tree.Modify(tree.ModAssign, tree.Num(1), tree.Num(3)))
		assert.False(t, e.ApplyState(ctx, f, &state.Snapshot{}, 0))
	})

	t.Run("unrecognized modifier", func(t *testing.T) {
		snap := &state.Snapshot{Functions: []state.Function{{Name: "fuel", Value: 10}}}
		f := tree.Build(tree.Modify(tree.ModNone, tree.Fn("fuel"), tree.Num(3)))
		assert.False(t, e.ApplyState(ctx, f, snap, 0))
		assert.Equal(t, 10.0, snap.Functions[0].Value)
	})
}

// =============================================================================
// Traversal
// =============================================================================

func TestScenario_RobotInRoom(t *testing.T) {
	f := tree.Build(tree.And(
		tree.Pred("at", "robot", "room1"),
		tree.Not(tree.Pred("at", "robot", "room2")),
	))
	snap := &state.Snapshot{Predicates: []state.Predicate{pred("at", "robot", "room1")}}

	assert.True(t, quiet().CheckState(context.Background(), f, snap, 0))
}

func TestApply_AndDoesNotShortCircuit(t *testing.T) {
	e := quiet()
	snap := &state.Snapshot{}
	f := tree.Build(tree.And(
		tree.Modify(tree.ModIncrease, tree.Fn("missing"), tree.Num(1)),
		tree.Pred("done"),
	))

	assert.False(t, e.ApplyState(context.Background(), f, snap, 0))
	assert.True(t, snap.HasPredicate(pred("done")), "later children still apply after a failure")
}

func TestCheck_OrVisitsEveryChild(t *testing.T) {
	e := quiet()
	f := tree.Build(tree.Or(
		tree.Pred("a"),
		tree.Expr(tree.CompGT, tree.Fn("missing"), tree.Num(0)),
	))
	snap := &state.Snapshot{Predicates: []state.Predicate{pred("a")}}

	r := e.Evaluate(context.Background(), f, 0, state.NewLocal(snap), false, false)
	assert.False(t, r.Success)
	assert.True(t, r.Truth)
	assert.True(t, e.CheckState(context.Background(), f, snap, 0), "check reports truth even when a sibling failed")
}

func TestCheck_FailedAndIsFalse(t *testing.T) {
	e := quiet()
	f := tree.Build(tree.And(
		tree.Pred("a"),
		tree.Expr(tree.CompGT, tree.Fn("missing"), tree.Num(0)),
	))
	snap := &state.Snapshot{Predicates: []state.Predicate{pred("a")}}

	assert.False(t, e.CheckState(context.Background(), f, snap, 0))
}

func TestEvaluate_Leaves(t *testing.T) {
	tests := []struct {
		name string
		node tree.Node
		want Result
	}{
		{"number", tree.Node{Kind: tree.KindNumber, Value: 3.5}, Result{Success: true, Truth: true, Value: 3.5}},
		{"named constant", tree.Node{Kind: tree.KindConstant, Name: "kitchen"}, Result{Success: true, Truth: true}},
		{"empty constant", tree.Node{Kind: tree.KindConstant}, Result{Success: true}},
		{"bound parameter", tree.Node{Kind: tree.KindParameter, Params: []tree.Param{{Name: "r1"}}}, Result{Success: true, Truth: true}},
		{"free parameter", tree.Node{Kind: tree.KindParameter, Params: []tree.Param{{Name: "?r"}}}, Result{Success: true}},
		{"parameter without name", tree.Node{Kind: tree.KindParameter}, Result{Success: true}},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tree.Tree{Nodes: []tree.Node{tt.node}}
			assert.Equal(t, tt.want, e.Evaluate(context.Background(), f, 0, state.NewLocal(&state.Snapshot{}), false, false))
		})
	}
}

func TestEvaluate_MalformedTrees(t *testing.T) {
	tests := []struct {
		name string
		tree tree.Tree
		id   int
	}{
		{"id out of range", tree.Build(tree.Pred("a")), 4},
		{"negative id", tree.Build(tree.Pred("a")), -1},
		{"unknown kind", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindUnknown}}}, 0},
		{"dangling child", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindNot, Children: []int{7}}}}, 0},
		{"not without child", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindNot}}}, 0},
		{"expression with one child", tree.Build(tree.Raw(tree.Node{Kind: tree.KindExpression, ExpressionType: tree.CompGT}, tree.Num(1))), 0},
		{"expression without operator", tree.Build(tree.Expr(tree.ExprNone, tree.Num(1), tree.Num(2))), 0},
		{"modifier with one child", tree.Build(tree.Raw(tree.Node{Kind: tree.KindFunctionModifier, ModifierType: tree.ModAssign}, tree.Fn("f"))), 0},
		{"cycle off the root", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindAnd}, {Kind: tree.KindNot, Children: []int{1}}}}, 1},
		{"cycle through the root", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindAnd, Children: []int{1}}, {Kind: tree.KindOr, Children: []int{0}}}}, 0},
		{"exists without condition", tree.Tree{Nodes: []tree.Node{{Kind: tree.KindExists, Params: []tree.Param{{Name: "?x"}}}}}, 0},
	}

	e := quiet()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := state.NewLocal(&state.Snapshot{Functions: []state.Function{{Name: "f", Value: 1}}})
			assert.NotPanics(t, func() {
				r := e.Evaluate(context.Background(), tt.tree, tt.id, acc, true, false)
				assert.False(t, r.Success)
			})
		})
	}
}

// =============================================================================
// Existential quantification
// =============================================================================

func TestCheck_ExistsFindsBinding(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?x"}, tree.Pred("at", "?x", "room1")))
	acc := &domain{
		Local:     state.NewLocal(&state.Snapshot{Predicates: []state.Predicate{pred("at", "robot2", "room1")}}),
		instances: instances("robot1", "robot2"),
	}

	r := quiet().Evaluate(context.Background(), f, 0, acc, false, false)
	assert.Equal(t, Result{Success: true, Truth: true}, r)
	assert.Equal(t, "(exists (?x) (at ?x room1))", f.String(), "quantified tree is left untouched")
}

func TestCheck_ExistsWithoutBinding(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?x"}, tree.Pred("at", "?x", "room1")))
	acc := &domain{
		Local:     state.NewLocal(&state.Snapshot{Predicates: []state.Predicate{pred("at", "robot3", "room1")}}),
		instances: instances("robot1", "robot2"),
	}

	r := quiet().Evaluate(context.Background(), f, 0, acc, false, false)
	assert.Equal(t, Result{Success: true, Truth: false}, r)
}

func TestCheck_ExistsOverEmptyDomain(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?x"}, tree.Pred("free", "?x")))
	acc := &domain{Local: state.NewLocal(&state.Snapshot{})}

	r := quiet().Evaluate(context.Background(), f, 0, acc, false, false)
	assert.Equal(t, Result{Success: true, Truth: false}, r)
}

func TestCheck_ExistsOverTwoVariables(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?a", "?b"}, tree.And(
		tree.Pred("connected", "?a", "?b"),
		tree.Not(tree.Expr(tree.CompEQ, tree.Var("?a"), tree.Var("?b"))),
	)))
	snap := &state.Snapshot{Predicates: []state.Predicate{
		pred("connected", "hall", "hall"),
		pred("connected", "hall", "kitchen"),
	}}

	assert.True(t, quiet().CheckState(context.Background(), f, snap, 0))
}

func TestCheck_ExistsUsesLocalPredicateDomain(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?r"}, tree.Expr(tree.CompGT, tree.Fn("battery", "?r"), tree.Num(40))))
	snap := &state.Snapshot{
		Predicates: []state.Predicate{pred("robot", "r1"), pred("robot", "r2")},
		Functions: []state.Function{
			{Name: "battery", Params: []string{"r1"}, Value: 10},
			{Name: "battery", Params: []string{"r2"}, Value: 90},
		},
	}

	assert.True(t, quiet().CheckState(context.Background(), f, snap, 0))
}

func TestCheck_ExistsInstanceFailure(t *testing.T) {
	f := tree.Build(tree.Exists([]string{"?x"}, tree.Pred("free", "?x")))
	acc := &domain{Local: state.NewLocal(&state.Snapshot{}), err: errors.New("registry down")}

	r := quiet().Evaluate(context.Background(), f, 0, acc, false, false)
	assert.False(t, r.Success)
}

// =============================================================================
// Remote accessor
// =============================================================================

func TestApply_Remote(t *testing.T) {
	ctx := context.Background()
	snap := &state.Snapshot{Functions: []state.Function{{Name: "battery", Params: []string{"r1"}, Value: 50}}}
	client := &problemFake{local: state.NewLocal(snap)}
	remote := state.NewRemote(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	effect := tree.Build(tree.And(
		tree.Pred("charged", "r1"),
		tree.Modify(tree.ModAssign, tree.Fn("battery", "r1"), tree.Num(100)),
	))
	require.True(t, Apply(ctx, effect, remote, 0))
	assert.True(t, snap.HasPredicate(pred("charged", "r1")))
	assert.Equal(t, 100.0, snap.Functions[0].Value)

	goal := tree.Build(tree.Expr(tree.CompGE, tree.Fn("battery", "r1"), tree.Num(100)))
	assert.True(t, Check(ctx, goal, remote, 0))

	v, ok := FunctionValue(ctx, tree.Build(tree.Fn("battery", "r1")), remote, 0)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestApply_RemoteFailureReportsFalse(t *testing.T) {
	ctx := context.Background()
	snap := &state.Snapshot{}
	client := &problemFake{local: state.NewLocal(snap), failAdd: true}
	remote := state.NewRemote(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	effect := tree.Build(tree.And(tree.Pred("charged", "r1"), tree.Not(tree.Pred("docked", "r1"))))
	assert.False(t, quiet().Apply(ctx, effect, remote, 0))
	assert.Equal(t, 2, client.calls, "every child is visited")
}

func TestSubtreeEvaluation(t *testing.T) {
	f := tree.Build(tree.And(tree.Pred("a"), tree.Pred("b")))
	snap := &state.Snapshot{Predicates: []state.Predicate{pred("b")}}

	assert.False(t, CheckState(context.Background(), f, snap, 0))
	assert.False(t, CheckState(context.Background(), f, snap, 1))
	assert.True(t, CheckState(context.Background(), f, snap, 2))
	assert.True(t, ApplyState(context.Background(), f, snap, 1))
	assert.True(t, CheckState(context.Background(), f, snap, 0))
}
