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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
)

var problemOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "planexpert_problem_ops_total",
	Help: "Problem store operations by operation and result",
}, []string{"op", "result"})

var eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "planexpert_problem_events_dropped_total",
	Help: "Update events not delivered because a subscriber fell behind",
})

// recordOp counts one store operation. Lookups that miss are counted as
// "not_found", not as errors.
func recordOp(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, state.ErrFunctionNotFound), errors.Is(err, ErrNoGoal):
		result = "not_found"
	case errors.Is(err, ErrInvalidPredicate), errors.Is(err, ErrInvalidFunction),
		errors.Is(err, ErrInvalidInstance), errors.Is(err, ErrUnknownInstance):
		result = "rejected"
	default:
		result = "error"
	}
	problemOps.WithLabelValues(op, result).Inc()
}
