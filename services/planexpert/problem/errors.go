// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"errors"
	"net/http"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// Sentinel errors returned by Store and, after decoding, by Client.
var (
	// ErrInvalidInstance indicates an empty or variable-like instance name.
	ErrInvalidInstance = errors.New("invalid instance")

	// ErrUnknownInstance indicates a parameter that names no instance.
	ErrUnknownInstance = errors.New("unknown instance")

	// ErrInvalidPredicate indicates a predicate without a name or with
	// unbound parameters.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrInvalidFunction indicates a function without a name or with
	// unbound parameters.
	ErrInvalidFunction = errors.New("invalid function")

	// ErrNoGoal indicates that no goal has been set.
	ErrNoGoal = errors.New("no goal set")

	// ErrServer indicates a failure inside the problem service or on the
	// way to it.
	ErrServer = errors.New("problem service error")
)

// errorCodes maps sentinels to the wire code and HTTP status used by the
// handlers. Client decodes codes back into the same sentinels.
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{ErrInvalidInstance, "INVALID_INSTANCE", http.StatusBadRequest},
	{ErrUnknownInstance, "UNKNOWN_INSTANCE", http.StatusUnprocessableEntity},
	{ErrInvalidPredicate, "INVALID_PREDICATE", http.StatusBadRequest},
	{ErrInvalidFunction, "INVALID_FUNCTION", http.StatusBadRequest},
	{state.ErrFunctionNotFound, "FUNCTION_NOT_FOUND", http.StatusNotFound},
	{ErrNoGoal, "NO_GOAL", http.StatusNotFound},
	{tree.ErrInvalidTree, "INVALID_TREE", http.StatusBadRequest},
}

// classify returns the status and code for err.
func classify(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// sentinelFor returns the sentinel for a wire code, or ErrServer.
func sentinelFor(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return ErrServer
}
