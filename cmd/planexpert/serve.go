// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/planexpert/pkg/ux"
	"github.com/AleutianAI/planexpert/services/planexpert/problem"
	badgerstore "github.com/AleutianAI/planexpert/services/planexpert/storage/badger"
	"github.com/AleutianAI/planexpert/services/planexpert/telemetry"
)

type serveOptions struct {
	seed     string
	port     int
	inMemory bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the problem service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = opts.port
			}
			if opts.inMemory {
				a.cfg.Storage.InMemory = true
			}
			slog.SetDefault(a.logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			lis, err := net.Listen("tcp", a.cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr(), err)
			}
			ux.NewPrinter(cmd.OutOrStdout()).Box("planexpert problem service",
				fmt.Sprintf("listening on http://%s/v1/problem", lis.Addr()))
			return runServe(ctx, a, lis, opts.seed)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.seed, "seed", "", "state file loaded into the store before serving")
	f.IntVar(&opts.port, "port", 0, "override server.port")
	f.BoolVar(&opts.inMemory, "in-memory", false, "keep the problem in memory only")
	return cmd
}

// runServe serves the problem API on lis until ctx is done, then shuts
// the server down within server.shutdown_timeout.
func runServe(ctx context.Context, a *app, lis net.Listener, seed string) error {
	shutdownTelemetry, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		lis.Close()
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			a.logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	db, err := badgerstore.Open(a.cfg.Storage.Badger(a.logger))
	if err != nil {
		lis.Close()
		return err
	}
	defer db.Close()

	store := problem.NewStore(db, a.logger)
	if seed != "" {
		sf, err := readState(seed)
		if err != nil {
			lis.Close()
			return err
		}
		if err := problem.Seed(ctx, store, sf.Instances, sf.Snapshot); err != nil {
			lis.Close()
			return fmt.Errorf("seeding from %s: %w", seed, err)
		}
		a.logger.Info("Seeded problem", slog.String("file", seed),
			slog.Int("instances", len(sf.Instances)),
			slog.Int("predicates", len(sf.Predicates)),
			slog.Int("functions", len(sf.Functions)))
	}

	router, err := newRouter(a, problem.NewHandlers(store, a.logger))
	if err != nil {
		lis.Close()
		return err
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting problem service", slog.String("address", lis.Addr().String()))
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down problem service")
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// newRouter builds the Gin engine: recovery, tracing, request metrics,
// /metrics and the problem routes under /v1.
func newRouter(a *app, h *problem.Handlers) (*gin.Engine, error) {
	if a.cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(otel.Meter("planexpert.server"))
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(a.cfg.Telemetry.ServiceName))
	router.Use(httpMetrics.GinMiddleware())
	if a.cfg.Server.Debug {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	problem.RegisterRoutes(router.Group("/v1"), h)
	return router, nil
}
