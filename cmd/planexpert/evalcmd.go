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
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/planexpert/pkg/ux"
	"github.com/AleutianAI/planexpert/services/planexpert/eval"
	"github.com/AleutianAI/planexpert/services/planexpert/state"
)

var (
	errApplyFailed = errors.New("apply failed")
	errNoValue     = errors.New("no numeric value")
)

var evalShort = map[string]string{
	eval.OpCheck: "Check whether a condition holds",
	eval.OpApply: "Apply an effect to a state",
	eval.OpValue: "Compute the numeric value of an expression or function",
}

type evalOptions struct {
	tree   string
	state  string
	remote string
	out    string
	node   int
	watch  bool
}

func newEvalCmd(a *app, op string) *cobra.Command {
	var opts evalOptions
	cmd := &cobra.Command{
		Use:   op,
		Short: evalShort[op],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if opts.watch {
				return watchFiles(cmd.Context(), a.logger, []string{opts.tree, opts.state}, func() {
					if err := runEval(cmd.Context(), a, op, opts, out); err != nil {
						ux.NewPrinter(out).Status(ux.IconError, err.Error())
					}
				})
			}
			return runEval(cmd.Context(), a, op, opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.tree, "tree", "", "YAML file holding the formula tree")
	f.StringVar(&opts.state, "state", "", "YAML state snapshot to evaluate against")
	f.StringVar(&opts.remote, "remote", "", "base URL of a problem service to evaluate against")
	f.IntVar(&opts.node, "node", 0, "id of the node to evaluate")
	switch op {
	case eval.OpApply:
		f.StringVar(&opts.out, "out", "", `write the updated local state here ("-" for stdout)`)
	case eval.OpCheck:
		f.BoolVar(&opts.watch, "watch", false, "re-check whenever the tree or state file changes")
		cmd.MarkFlagsMutuallyExclusive("watch", "remote")
	}
	_ = cmd.MarkFlagRequired("tree")
	cmd.MarkFlagsOneRequired("state", "remote")
	cmd.MarkFlagsMutuallyExclusive("state", "remote")
	return cmd
}

func runEval(ctx context.Context, a *app, op string, opts evalOptions, out io.Writer) error {
	t, err := readTree(opts.tree)
	if err != nil {
		return err
	}

	var (
		acc   state.Accessor
		local *stateFile
	)
	if opts.remote != "" {
		client, err := a.problemClient(opts.remote)
		if err != nil {
			return err
		}
		acc = state.NewRemote(client, a.logger)
	} else {
		local, err = readState(opts.state)
		if err != nil {
			return err
		}
		acc = state.NewLocal(&local.Snapshot)
	}

	ev := eval.New(eval.WithLogger(a.logger))
	p := ux.NewPrinter(out)
	name := label(t, opts.node)

	switch op {
	case eval.OpCheck:
		p.Verdict(name, ev.Check(ctx, t, acc, opts.node))
	case eval.OpApply:
		ok := ev.Apply(ctx, t, acc, opts.node)
		p.Verdict(name, ok)
		if !ok {
			return fmt.Errorf("%w: %s", errApplyFailed, name)
		}
		if local != nil && opts.out != "" {
			return writeState(opts.out, local, out)
		}
	case eval.OpValue:
		v, ok := ev.FunctionValue(ctx, t, acc, opts.node)
		if !ok {
			return fmt.Errorf("%w: %s", errNoValue, name)
		}
		p.Value(name, v)
	default:
		return fmt.Errorf("unsupported evaluation %q", op)
	}
	return nil
}
