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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/planexpert/services/planexpert/state"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// stateFile is the on-disk snapshot format. Instances are optional; a
// Local accessor derives its domain from the predicates, while serve
// --seed registers them with the problem service.
//
//	instances:
//	  - {name: r1, type: robot}
//	predicates:
//	  - (at r1 kitchen)
//	functions:
//	  - "(= (battery r1) 80)"
type stateFile struct {
	Instances      []state.Instance `yaml:"instances,omitempty"`
	state.Snapshot `yaml:",inline"`
}

func readTree(path string) (tree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tree.Tree{}, fmt.Errorf("reading tree: %w", err)
	}
	var t tree.Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return tree.Tree{}, fmt.Errorf("parsing tree %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return tree.Tree{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readState(path string) (*stateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var sf stateFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	return &sf, nil
}

// writeState writes sf to path, or to stdout when path is "-".
func writeState(path string, sf *stateFile, stdout io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sf); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if path == "-" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// readPlan returns one action instance per non-blank line. Lines starting
// with ';' or '#' are comments.
func readPlan(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	defer fh.Close()

	var plan []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		plan = append(plan, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return plan, nil
}

// label names node id of t for output.
func label(t tree.Tree, id int) string {
	if id == 0 {
		return t.String()
	}
	if s := t.Render(id); s != "" {
		return s
	}
	return fmt.Sprintf("node %d", id)
}
