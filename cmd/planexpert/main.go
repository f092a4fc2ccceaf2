// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planexpert evaluates planning conditions and effects against a
// world state and serves that state over HTTP.
//
// Usage:
//
//	planexpert serve [--seed state.yaml]
//	planexpert check --tree t.yaml (--state s.yaml | --remote URL) [--node N] [--watch]
//	planexpert apply --tree t.yaml (--state s.yaml | --remote URL) [--out s2.yaml]
//	planexpert value --tree t.yaml (--state s.yaml | --remote URL) [--node N]
//	planexpert subgoals --goal g.yaml --state s.yaml --actions a.yaml --plan plan.txt
//	planexpert events [--remote URL]
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
