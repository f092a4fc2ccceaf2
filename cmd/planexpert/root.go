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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/planexpert/pkg/logging"
	"github.com/AleutianAI/planexpert/services/planexpert/config"
	"github.com/AleutianAI/planexpert/services/planexpert/eval"
	"github.com/AleutianAI/planexpert/services/planexpert/problem"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	log    *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logging.Discard()}
	var configPath, logLevel string

	root := &cobra.Command{
		Use:           "planexpert",
		Short:         "Evaluate planning conditions and effects against a world state",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				lvl, err := logging.ParseLevel(logLevel)
				if err != nil {
					return fmt.Errorf("--log-level: %w", err)
				}
				cfg.Logging.Level = lvl
			}
			cfg.Logging.Output = cmd.ErrOrStderr()
			l, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			a.cfg, a.log, a.logger = cfg, l, l.Slog()
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.log == nil {
				return nil
			}
			return a.log.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultFile, "configuration file (missing file means defaults)")
	flags.StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newEvalCmd(a, eval.OpCheck),
		newEvalCmd(a, eval.OpApply),
		newEvalCmd(a, eval.OpValue),
		newSubgoalsCmd(a),
		newEventsCmd(a),
	)
	return root
}

// problemClient returns a client for baseURL, or for the configured
// client.base_url when baseURL is empty.
func (a *app) problemClient(baseURL string) (*problem.Client, error) {
	cfg := a.cfg.Client
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return problem.NewClient(cfg, problem.WithClientLogger(a.logger))
}
