// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lookahead orders the sub-goals of a goal by the plan step after
// which each first becomes true.
//
// The computation runs entirely on a copy of the caller's snapshot:
// plan effects are applied with the Local accessor, never against the
// problem service.
package lookahead

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/planexpert/services/planexpert/action"
	"github.com/AleutianAI/planexpert/services/planexpert/eval"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// Orderer computes ordered sub-goals.
type Orderer struct {
	catalog   *Catalog
	evaluator *eval.Evaluator
	logger    *slog.Logger
}

// Option configures an Orderer.
type Option func(*Orderer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orderer) {
		o.logger = l
	}
}

// WithEvaluator sets the evaluator used for checks and effects.
func WithEvaluator(e *eval.Evaluator) Option {
	return func(o *Orderer) {
		o.evaluator = e
	}
}

// New creates an Orderer over catalog.
func New(catalog *Catalog, opts ...Option) *Orderer {
	o := &Orderer{catalog: catalog}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.evaluator == nil {
		o.evaluator = eval.New(eval.WithLogger(o.logger))
	}
	o.logger = o.logger.With(slog.String("component", "lookahead"))
	return o
}

// OrderedSubGoals simulates plan and returns the sub-goals of goal in the
// order they become satisfied.
//
// Description:
//
//	The sub-goals are the children of goal's root when it is an AND, or
//	the whole goal otherwise. Sub-goals already true in snap come first.
//	Then each plan step's effects (at-start followed by at-end for
//	durative actions) are applied to a private copy of snap, and every
//	sub-goal that has become true is emitted. Each emitted sub-goal is
//	wrapped as "(and <sub-goal>)". Sub-goals never satisfied are omitted.
//
// Inputs:
//
//	ctx - Passed to the evaluator.
//	goal - The goal tree.
//	snap - Initial state. Not modified.
//	plan - Action-instance strings, e.g. "(move r1 a b):0".
//
// Outputs:
//
//	[]tree.Tree - Wrapped sub-goals in satisfaction order.
//	error - Wraps action.ErrInvalidAction or ErrUnknownAction for a bad
//	  plan step; nothing is returned in that case.
func (o *Orderer) OrderedSubGoals(ctx context.Context, goal tree.Tree, snap state.Snapshot, plan []string) ([]tree.Tree, error) {
	steps := make([]action.Instance, len(plan))
	for i, item := range plan {
		inst, err := action.Parse(item)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i, err)
		}
		steps[i] = inst
	}

	local := snap.Clone()
	pending := tree.SubtreeIDs(goal)
	var ordered []tree.Tree

	collect := func() {
		remaining := pending[:0]
		for _, id := range pending {
			if o.evaluator.CheckState(ctx, goal, &local, id) {
				ordered = append(ordered, tree.Wrap(goal, id))
			} else {
				remaining = append(remaining, id)
			}
		}
		pending = remaining
	}

	collect()
	for i, step := range steps {
		effects, err := o.catalog.Ground(step)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i, err)
		}
		for _, eff := range effects {
			if !o.evaluator.ApplyState(ctx, eff, &local, 0) {
				o.logger.Warn("effect did not apply cleanly",
					slog.Int("step", i),
					slog.String("action", step.String()),
					slog.String("effect", eff.String()))
			}
		}
		collect()
	}

	return ordered, nil
}
