// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for planexpert.
//
// Call Init once at startup and defer the returned shutdown function:
//
//	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// Exporters are chosen by Config: traces go to an OTLP gRPC collector or
// stdout, metrics to the Prometheus registry or stdout. The Prometheus
// registry is the default one, so promauto counters registered elsewhere
// are served by MetricsHandler next to the OTel instruments.
//
// Trace context crosses the client/server boundary as W3C traceparent
// headers: the problem client injects them and otelgin extracts them.
package telemetry
