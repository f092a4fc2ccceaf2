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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("planexpert.eval")
	meter  = otel.Meter("planexpert.eval")
)

var (
	evalLatency metric.Float64Histogram
	evalTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		evalLatency, err = meter.Float64Histogram(
			"planexpert_eval_duration_seconds",
			metric.WithDescription("Duration of top-level formula evaluations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evalTotal, err = meter.Int64Counter(
			"planexpert_eval_total",
			metric.WithDescription("Total number of top-level formula evaluations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startEvalSpan(ctx context.Context, op string, nodes, id int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Evaluator."+op,
		trace.WithAttributes(
			attribute.String("eval.op", op),
			attribute.Int("eval.nodes", nodes),
			attribute.Int("eval.node_id", id),
		),
	)
}

func setEvalSpanResult(span trace.Span, r Result) {
	span.SetAttributes(
		attribute.Bool("eval.success", r.Success),
		attribute.Bool("eval.truth", r.Truth),
		attribute.Float64("eval.value", r.Value),
	)
}

func recordEvalMetrics(ctx context.Context, op string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", success),
	)

	evalLatency.Record(ctx, duration.Seconds(), attrs)
	evalTotal.Add(ctx, 1, attrs)
}
