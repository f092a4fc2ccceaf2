// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Accessor is where the evaluator reads and writes predicates and
// functions.
//
// Every method may block; a non-nil error makes the evaluating node fail
// (success=false) but never aborts the evaluation.
type Accessor interface {
	// ExistPredicate reports whether p holds in the state.
	ExistPredicate(ctx context.Context, p Predicate) (bool, error)

	// AddPredicate inserts p. Inserting a present predicate is a no-op.
	AddPredicate(ctx context.Context, p Predicate) error

	// RemovePredicate deletes p. Removing an absent predicate is a no-op.
	RemovePredicate(ctx context.Context, p Predicate) error

	// Function looks up a ground function. Returns ErrFunctionNotFound
	// (possibly wrapped) when it does not exist.
	Function(ctx context.Context, name string, params []string) (Function, error)

	// UpdateFunction overwrites the value of an existing function.
	// Returns ErrFunctionNotFound (possibly wrapped) when it does not exist.
	UpdateFunction(ctx context.Context, f Function) error

	// Instances returns the objects EXISTS quantifies over.
	Instances(ctx context.Context) ([]Instance, error)
}

// -----------------------------------------------------------------------------
// Local accessor
// -----------------------------------------------------------------------------

// Local evaluates against a caller-owned Snapshot, mutating it in place.
//
// Description:
//
//	Predicates behave as a set keyed by name and parameters. The instance
//	domain is the union of every parameter value appearing in the current
//	predicates, in order of first appearance. Local never owns the
//	snapshot; the caller creates it, reads the result and discards it.
//
// Thread Safety: Not safe for concurrent use.
type Local struct {
	snap *Snapshot
}

// NewLocal returns an accessor over snap. snap must not be nil.
func NewLocal(snap *Snapshot) *Local {
	return &Local{snap: snap}
}

// Snapshot returns the snapshot the accessor mutates.
func (l *Local) Snapshot() *Snapshot {
	return l.snap
}

// ExistPredicate implements Accessor.
func (l *Local) ExistPredicate(_ context.Context, p Predicate) (bool, error) {
	return l.snap.HasPredicate(p), nil
}

// AddPredicate implements Accessor.
func (l *Local) AddPredicate(_ context.Context, p Predicate) error {
	if !l.snap.HasPredicate(p) {
		l.snap.Predicates = append(l.snap.Predicates, Predicate{Name: p.Name, Params: slices.Clone(p.Params)})
	}
	return nil
}

// RemovePredicate implements Accessor.
func (l *Local) RemovePredicate(_ context.Context, p Predicate) error {
	if i := slices.IndexFunc(l.snap.Predicates, p.Equal); i >= 0 {
		l.snap.Predicates = slices.Delete(l.snap.Predicates, i, i+1)
	}
	return nil
}

// Function implements Accessor.
func (l *Local) Function(_ context.Context, name string, params []string) (Function, error) {
	for _, f := range l.snap.Functions {
		if f.Matches(name, params) {
			return f, nil
		}
	}
	return Function{}, fmt.Errorf("%w: %s", ErrFunctionNotFound, render(name, params))
}

// UpdateFunction implements Accessor.
func (l *Local) UpdateFunction(_ context.Context, f Function) error {
	for i := range l.snap.Functions {
		if l.snap.Functions[i].Matches(f.Name, f.Params) {
			l.snap.Functions[i].Value = f.Value
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFunctionNotFound, f.Key())
}

// Instances implements Accessor.
func (l *Local) Instances(_ context.Context) ([]Instance, error) {
	var out []Instance
	seen := make(map[string]struct{})
	for _, p := range l.snap.Predicates {
		for _, name := range p.Params {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, Instance{Name: name})
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Remote accessor
// -----------------------------------------------------------------------------

// ProblemClient is the contract of the problem service consumed by the
// Remote accessor. problem.Client implements it over HTTP.
type ProblemClient interface {
	ExistPredicate(ctx context.Context, p Predicate) (bool, error)
	AddPredicate(ctx context.Context, p Predicate) error
	RemovePredicate(ctx context.Context, p Predicate) error
	GetFunction(ctx context.Context, name string, params []string) (Function, error)
	UpdateFunction(ctx context.Context, f Function) error
	GetInstances(ctx context.Context) ([]Instance, error)
}

// Remote delegates state access to the problem service.
//
// Description:
//
//	Each evaluator touch of a predicate or function becomes exactly one
//	blocking client call; there is no batching or caching. Failures are
//	logged and returned wrapped in ErrRemoteCall.
//
// Thread Safety: Safe for concurrent use if the client is.
type Remote struct {
	client ProblemClient
	logger *slog.Logger
}

// NewRemote returns an accessor over client. A nil logger uses
// slog.Default().
func NewRemote(client ProblemClient, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{client: client, logger: logger.With("component", "state.remote")}
}

// ExistPredicate implements Accessor.
func (r *Remote) ExistPredicate(ctx context.Context, p Predicate) (bool, error) {
	ok, err := r.client.ExistPredicate(ctx, p)
	if err != nil {
		return false, r.fail("exist_predicate", p.String(), err)
	}
	return ok, nil
}

// AddPredicate implements Accessor.
func (r *Remote) AddPredicate(ctx context.Context, p Predicate) error {
	if err := r.client.AddPredicate(ctx, p); err != nil {
		return r.fail("add_predicate", p.String(), err)
	}
	return nil
}

// RemovePredicate implements Accessor.
func (r *Remote) RemovePredicate(ctx context.Context, p Predicate) error {
	if err := r.client.RemovePredicate(ctx, p); err != nil {
		return r.fail("remove_predicate", p.String(), err)
	}
	return nil
}

// Function implements Accessor.
func (r *Remote) Function(ctx context.Context, name string, params []string) (Function, error) {
	f, err := r.client.GetFunction(ctx, name, params)
	if err != nil {
		return Function{}, r.fail("get_function", render(name, params), err)
	}
	return f, nil
}

// UpdateFunction implements Accessor.
func (r *Remote) UpdateFunction(ctx context.Context, f Function) error {
	if err := r.client.UpdateFunction(ctx, f); err != nil {
		return r.fail("update_function", f.String(), err)
	}
	return nil
}

// Instances implements Accessor.
func (r *Remote) Instances(ctx context.Context) ([]Instance, error) {
	inst, err := r.client.GetInstances(ctx)
	if err != nil {
		return nil, r.fail("get_instances", "", err)
	}
	return inst, nil
}

func (r *Remote) fail(op, target string, err error) error {
	r.logger.Warn("remote state call failed",
		slog.String("op", op),
		slog.String("target", target),
		slog.String("error", err.Error()))
	return fmt.Errorf("%w: %s %s: %w", ErrRemoteCall, op, target, err)
}
