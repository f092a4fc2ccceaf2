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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/planexpert/pkg/ux"
	"github.com/AleutianAI/planexpert/services/planexpert/lookahead"
)

func newSubgoalsCmd(a *app) *cobra.Command {
	var goalPath, statePath, actionsPath, planPath string
	cmd := &cobra.Command{
		Use:   "subgoals",
		Short: "List the goal's sub-goals in the order a plan satisfies them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			goal, err := readTree(goalPath)
			if err != nil {
				return err
			}
			sf, err := readState(statePath)
			if err != nil {
				return err
			}
			catalog, err := lookahead.LoadCatalogFile(actionsPath)
			if err != nil {
				return err
			}
			plan, err := readPlan(planPath)
			if err != nil {
				return err
			}

			subgoals, err := lookahead.New(catalog, lookahead.WithLogger(a.logger)).
				OrderedSubGoals(cmd.Context(), goal, sf.Snapshot, plan)
			if err != nil {
				return err
			}

			items := make([]string, len(subgoals))
			for i, sg := range subgoals {
				items[i] = sg.String()
			}
			p := ux.NewPrinter(cmd.OutOrStdout())
			p.Title("Sub-goals in satisfaction order")
			p.List(items)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&goalPath, "goal", "", "YAML file holding the goal tree")
	f.StringVar(&statePath, "state", "", "YAML initial state")
	f.StringVar(&actionsPath, "actions", "", "YAML action catalog")
	f.StringVar(&planPath, "plan", "", "plan file, one action instance per line")
	for _, name := range []string{"goal", "state", "actions", "plan"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
