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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/planexpert/pkg/ux"
)

func newEventsCmd(a *app) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream updates from a problem service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := a.problemClient(remote)
			if err != nil {
				return err
			}
			events, err := client.Watch(ctx)
			if err != nil {
				return err
			}

			p := ux.NewPrinter(cmd.OutOrStdout())
			for ev := range events {
				line := fmt.Sprintf("%d\t%s\t%s", ev.Seq, ev.Type, ev.Subject)
				if !p.Plain() {
					line = fmt.Sprintf("%s %-18s %s", ev.Time.Local().Format(time.TimeOnly), ev.Type, ev.Subject)
				}
				p.Status(ux.IconArrow, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "problem service URL (default client.base_url)")
	return cmd
}
