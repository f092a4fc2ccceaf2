// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package problem is the problem expert: the authoritative store of
// instances, predicates, functions and the goal, served over HTTP.
//
// Store keeps the state in BadgerDB and is itself a state.Accessor, so
// the evaluator can run directly against it. Handlers expose Store under
// /v1/problem, and Client consumes that API and implements
// state.ProblemClient for the evaluator's Remote accessor.
package problem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	badgerstore "github.com/AleutianAI/planexpert/services/planexpert/storage/badger"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

const (
	prefixInstance  = "instance/"
	prefixPredicate = "predicate/"
	prefixFunction  = "function/"
	keyGoal         = "goal"
)

// Store is the Badger-backed problem state.
//
// Description:
//
//	Predicates and functions are keyed by their "(name p1 p2)" rendering,
//	so the store behaves as a set keyed by name and parameters. Every
//	stored predicate and function is ground and refers only to known
//	instances; removing an instance removes the predicates and functions
//	that mention it.
//
// Thread Safety: Safe for concurrent use. Each operation is one Badger
// transaction.
type Store struct {
	db     *badgerstore.DB
	logger *slog.Logger
	events *Notifier
}

var _ state.Accessor = (*Store)(nil)

// NewStore creates a store over db. A nil logger uses slog.Default().
func NewStore(db *badgerstore.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger.With(slog.String("component", "problem.store")),
		events: NewNotifier(),
	}
}

// Events returns the notifier that receives an Event after every
// committed change.
func (s *Store) Events() *Notifier {
	return s.events
}

// publish emits an event when err is nil.
func (s *Store) publish(err error, t EventType, subject string) {
	if err == nil {
		s.events.Publish(t, subject)
	}
}

// =============================================================================
// Instances
// =============================================================================

// AddInstance registers inst. Re-adding an instance replaces its type.
func (s *Store) AddInstance(ctx context.Context, inst state.Instance) (err error) {
	defer func() {
		recordOp("add_instance", err)
		s.publish(err, EventInstanceAdded, inst.Name)
	}()

	if !validSymbol(inst.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidInstance, inst.Name)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.SetJSON(txn, prefixInstance+inst.Name, inst)
	})
}

// RemoveInstance deletes the instance called name together with every
// predicate and function that mentions it. Removing an unknown instance
// is a no-op.
func (s *Store) RemoveInstance(ctx context.Context, name string) (err error) {
	defer func() {
		recordOp("remove_instance", err)
		s.publish(err, EventInstanceRemoved, name)
	}()

	var dropped int
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		var stale []string
		collect := func(key string, params []string) {
			if slices.Contains(params, name) {
				stale = append(stale, key)
			}
		}
		err := badgerstore.ScanJSON(txn, prefixPredicate, func(key string, decode func(any) error) error {
			var p state.Predicate
			if err := decode(&p); err != nil {
				return err
			}
			collect(key, p.Params)
			return nil
		})
		if err != nil {
			return err
		}
		err = badgerstore.ScanJSON(txn, prefixFunction, func(key string, decode func(any) error) error {
			var f state.Function
			if err := decode(&f); err != nil {
				return err
			}
			collect(key, f.Params)
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range append(stale, prefixInstance+name) {
			if err := badgerstore.Delete(txn, key); err != nil {
				return err
			}
		}
		dropped = len(stale)
		return nil
	})
	if err == nil && dropped > 0 {
		s.logger.Info("removed instance and dependent state",
			slog.String("instance", name),
			slog.Int("dropped", dropped))
	}
	return err
}

// Instance returns the instance called name.
func (s *Store) Instance(ctx context.Context, name string) (inst state.Instance, err error) {
	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.GetJSON(txn, prefixInstance+name, &inst)
	})
	if errors.Is(err, badgerstore.ErrNotFound) {
		return state.Instance{}, fmt.Errorf("%w: %s", ErrUnknownInstance, name)
	}
	return inst, err
}

// Instances implements state.Accessor. Instances are returned in name
// order.
func (s *Store) Instances(ctx context.Context) ([]state.Instance, error) {
	out := []state.Instance{}
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.ScanJSON(txn, prefixInstance, func(_ string, decode func(any) error) error {
			var inst state.Instance
			if err := decode(&inst); err != nil {
				return err
			}
			out = append(out, inst)
			return nil
		})
	})
	return out, err
}

// =============================================================================
// Predicates
// =============================================================================

// AddPredicate implements state.Accessor. Adding a present predicate is a
// no-op and publishes no event.
func (s *Store) AddPredicate(ctx context.Context, p state.Predicate) (err error) {
	var changed bool
	defer func() {
		recordOp("add_predicate", err)
		if changed {
			s.publish(err, EventPredicateAdded, p.String())
		}
	}()

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := checkGround(txn, ErrInvalidPredicate, p.Name, p.Params); err != nil {
			return err
		}
		key := prefixPredicate + p.String()
		present, err := badgerstore.Exists(txn, key)
		if err != nil || present {
			return err
		}
		changed = true
		return badgerstore.SetJSON(txn, key, p)
	})
}

// RemovePredicate implements state.Accessor. Removing an absent predicate
// is a no-op and publishes no event.
func (s *Store) RemovePredicate(ctx context.Context, p state.Predicate) (err error) {
	var changed bool
	defer func() {
		recordOp("remove_predicate", err)
		if changed {
			s.publish(err, EventPredicateRemoved, p.String())
		}
	}()

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := prefixPredicate + p.String()
		present, err := badgerstore.Exists(txn, key)
		if err != nil || !present {
			return err
		}
		changed = true
		return badgerstore.Delete(txn, key)
	})
}

// ExistPredicate implements state.Accessor.
func (s *Store) ExistPredicate(ctx context.Context, p state.Predicate) (ok bool, err error) {
	defer func() { recordOp("exist_predicate", err) }()

	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		ok, err = badgerstore.Exists(txn, prefixPredicate+p.String())
		return err
	})
	return ok, err
}

// Predicates returns every predicate in key order.
func (s *Store) Predicates(ctx context.Context) ([]state.Predicate, error) {
	out := []state.Predicate{}
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.ScanJSON(txn, prefixPredicate, func(_ string, decode func(any) error) error {
			var p state.Predicate
			if err := decode(&p); err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	return out, err
}

// =============================================================================
// Functions
// =============================================================================

// AddFunction stores f, replacing the value of an existing function with
// the same key.
func (s *Store) AddFunction(ctx context.Context, f state.Function) (err error) {
	defer func() {
		recordOp("add_function", err)
		s.publish(err, EventFunctionSet, f.String())
	}()

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := checkGround(txn, ErrInvalidFunction, f.Name, f.Params); err != nil {
			return err
		}
		return badgerstore.SetJSON(txn, prefixFunction+f.Key(), f)
	})
}

// UpdateFunction implements state.Accessor. Unlike AddFunction it fails
// with state.ErrFunctionNotFound when f was never added.
func (s *Store) UpdateFunction(ctx context.Context, f state.Function) (err error) {
	defer func() {
		recordOp("update_function", err)
		s.publish(err, EventFunctionSet, f.String())
	}()

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		key := prefixFunction + f.Key()
		ok, err := badgerstore.Exists(txn, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", state.ErrFunctionNotFound, f.Key())
		}
		return badgerstore.SetJSON(txn, key, f)
	})
}

// Function implements state.Accessor.
func (s *Store) Function(ctx context.Context, name string, params []string) (f state.Function, err error) {
	defer func() { recordOp("get_function", err) }()

	key := state.Function{Name: name, Params: params}.Key()
	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.GetJSON(txn, prefixFunction+key, &f)
	})
	if errors.Is(err, badgerstore.ErrNotFound) {
		return state.Function{}, fmt.Errorf("%w: %s", state.ErrFunctionNotFound, key)
	}
	return f, err
}

// Functions returns every function in key order.
func (s *Store) Functions(ctx context.Context) ([]state.Function, error) {
	out := []state.Function{}
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.ScanJSON(txn, prefixFunction, func(_ string, decode func(any) error) error {
			var f state.Function
			if err := decode(&f); err != nil {
				return err
			}
			out = append(out, f)
			return nil
		})
	})
	return out, err
}

// =============================================================================
// Goal and bulk operations
// =============================================================================

// SetGoal replaces the goal. The tree must pass tree.Validate and must
// not be empty.
func (s *Store) SetGoal(ctx context.Context, goal tree.Tree) (err error) {
	defer func() {
		recordOp("set_goal", err)
		s.publish(err, EventGoalSet, goal.String())
	}()

	if goal.Empty() {
		return fmt.Errorf("%w: empty goal", tree.ErrInvalidTree)
	}
	if err := goal.Validate(); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.SetJSON(txn, keyGoal, goal)
	})
}

// Goal returns the current goal or ErrNoGoal.
func (s *Store) Goal(ctx context.Context) (goal tree.Tree, err error) {
	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.GetJSON(txn, keyGoal, &goal)
	})
	if errors.Is(err, badgerstore.ErrNotFound) {
		return tree.Tree{}, ErrNoGoal
	}
	return goal, err
}

// ClearGoal removes the goal.
func (s *Store) ClearGoal(ctx context.Context) (err error) {
	defer func() {
		recordOp("clear_goal", err)
		s.publish(err, EventGoalCleared, "")
	}()

	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return badgerstore.Delete(txn, keyGoal)
	})
}

// Snapshot copies the predicates and functions into a state.Snapshot.
func (s *Store) Snapshot(ctx context.Context) (state.Snapshot, error) {
	preds, err := s.Predicates(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	funcs, err := s.Functions(ctx)
	if err != nil {
		return state.Snapshot{}, err
	}
	return state.Snapshot{Predicates: preds, Functions: funcs}, nil
}

// Clear drops every instance, predicate, function and the goal.
func (s *Store) Clear(ctx context.Context) (err error) {
	defer func() {
		recordOp("clear", err)
		s.publish(err, EventCleared, "")
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	s.logger.Info("problem cleared")
	return nil
}

// Seed loads instances, predicates and functions into the store in that
// order, so that validity checks see the instances first.
func Seed(ctx context.Context, s *Store, instances []state.Instance, snap state.Snapshot) error {
	for _, inst := range instances {
		if err := s.AddInstance(ctx, inst); err != nil {
			return err
		}
	}
	for _, p := range snap.Predicates {
		if err := s.AddPredicate(ctx, p); err != nil {
			return err
		}
	}
	for _, f := range snap.Functions {
		if err := s.AddFunction(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validity
// -----------------------------------------------------------------------------

// validSymbol reports whether name can be an instance name.
func validSymbol(name string) bool {
	return tree.Param{Name: name}.IsBound() && !strings.ContainsAny(name, "() \t\n")
}

// checkGround verifies that name is set and every parameter is a bound,
// registered instance.
func checkGround(txn *badger.Txn, invalid error, name string, params []string) error {
	if name == "" {
		return fmt.Errorf("%w: missing name", invalid)
	}
	for _, p := range params {
		if !validSymbol(p) {
			return fmt.Errorf("%w: parameter %q of %s is not ground", invalid, p, name)
		}
		ok, err := badgerstore.Exists(txn, prefixInstance+p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s (in %s)", ErrUnknownInstance, p, name)
		}
	}
	return nil
}
