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
	"time"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// Operation names used in spans and metrics.
const (
	OpCheck = "check"
	OpApply = "apply"
	OpValue = "value"
)

// =============================================================================
// Entry points
// =============================================================================

// run wraps one top-level evaluation with a span and metrics.
func (e *Evaluator) run(ctx context.Context, op string, t tree.Tree, id int, acc state.Accessor, apply bool) Result {
	ctx, span := startEvalSpan(ctx, op, len(t.Nodes), id)
	defer span.End()

	start := time.Now()
	r := e.Evaluate(ctx, t, id, acc, apply, false)
	setEvalSpanResult(span, r)
	recordEvalMetrics(ctx, op, time.Since(start), r.Success)
	return r
}

// Check reports whether node id of t holds in acc.
//
// Description:
//
//	Evaluates without applying and returns the truth channel. The
//	success channel is not consulted: an OR with one true child holds
//	even when a sibling failed to evaluate. Nothing in acc is modified.
func (e *Evaluator) Check(ctx context.Context, t tree.Tree, acc state.Accessor, id int) bool {
	return e.run(ctx, OpCheck, t, id, acc, false).Truth
}

// Apply carries out the effects of node id of t against acc.
//
// Description:
//
//	Positive predicates are added, negated predicates removed and function
//	modifiers written back. The return value is the success flag only; a
//	successful apply of a formula whose truth is false still returns true.
//	Effects are not rolled back when some sub-effect fails.
func (e *Evaluator) Apply(ctx context.Context, t tree.Tree, acc state.Accessor, id int) bool {
	return e.run(ctx, OpApply, t, id, acc, true).Success
}

// FunctionValue evaluates node id of t as a number.
//
// Outputs:
//
//	float64 - The numeric channel of the result. Zero on failure.
//	bool - Whether evaluation succeeded.
func (e *Evaluator) FunctionValue(ctx context.Context, t tree.Tree, acc state.Accessor, id int) (float64, bool) {
	r := e.run(ctx, OpValue, t, id, acc, false)
	if !r.Success {
		return 0, false
	}
	return r.Value, true
}

// CheckState is Check over an in-memory snapshot.
func (e *Evaluator) CheckState(ctx context.Context, t tree.Tree, snap *state.Snapshot, id int) bool {
	return e.Check(ctx, t, state.NewLocal(snap), id)
}

// ApplyState is Apply over an in-memory snapshot. snap is mutated in place.
func (e *Evaluator) ApplyState(ctx context.Context, t tree.Tree, snap *state.Snapshot, id int) bool {
	return e.Apply(ctx, t, state.NewLocal(snap), id)
}

// -----------------------------------------------------------------------------
// Package-level helpers using a default Evaluator
// -----------------------------------------------------------------------------

var std = New()

// Check calls Check on a default Evaluator.
func Check(ctx context.Context, t tree.Tree, acc state.Accessor, id int) bool {
	return std.Check(ctx, t, acc, id)
}

// Apply calls Apply on a default Evaluator.
func Apply(ctx context.Context, t tree.Tree, acc state.Accessor, id int) bool {
	return std.Apply(ctx, t, acc, id)
}

// FunctionValue calls FunctionValue on a default Evaluator.
func FunctionValue(ctx context.Context, t tree.Tree, acc state.Accessor, id int) (float64, bool) {
	return std.FunctionValue(ctx, t, acc, id)
}

// CheckState calls CheckState on a default Evaluator.
func CheckState(ctx context.Context, t tree.Tree, snap *state.Snapshot, id int) bool {
	return std.CheckState(ctx, t, snap, id)
}

// ApplyState calls ApplyState on a default Evaluator.
func ApplyState(ctx context.Context, t tree.Tree, snap *state.Snapshot, id int) bool {
	return std.ApplyState(ctx, t, snap, id)
}
