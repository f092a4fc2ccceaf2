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
	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code such as "UNKNOWN_INSTANCE".
	Code string `json:"code,omitempty"`
}

// HealthResponse is returned by GET /v1/problem/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// FunctionQuery identifies a function without a value.
type FunctionQuery struct {
	Name   string   `json:"name" validate:"required"`
	Params []string `json:"params,omitempty"`
}

// ExistsResponse answers a predicate membership query.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// GoalSatisfiedResponse answers GET /v1/problem/goal/satisfied.
type GoalSatisfiedResponse struct {
	Satisfied bool `json:"satisfied"`
}

// EvalRequest asks the service to evaluate a tree against its state.
type EvalRequest struct {
	Tree tree.Tree `json:"tree"`
	Node int       `json:"node" validate:"min=0"`
}

// EvalResponse carries the outcome of an evaluation request. Result is the
// answer of check or apply; Value is set by value requests.
type EvalResponse struct {
	Result bool    `json:"result"`
	Value  float64 `json:"value,omitempty"`
}

// StateResponse is the full predicate and function state.
type StateResponse struct {
	Instances []state.Instance `json:"instances"`
	state.Snapshot
}
