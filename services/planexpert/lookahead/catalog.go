// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lookahead

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/planexpert/services/planexpert/action"
	"github.com/AleutianAI/planexpert/services/planexpert/ground"
	"github.com/AleutianAI/planexpert/services/planexpert/tree"
)

// ErrUnknownAction indicates a plan step naming an action missing from
// the catalog.
var ErrUnknownAction = errors.New("unknown action")

// Schema is a parameterized action definition.
//
// Parameters are the variable names ("?r", "?from") that appear in the
// effect trees. A schema has either Effects (instantaneous action) or
// AtStartEffects and AtEndEffects (durative action).
type Schema struct {
	Name           string     `yaml:"name" validate:"required"`
	Parameters     []string   `yaml:"parameters" validate:"dive,startswith=?"`
	Effects        *tree.Tree `yaml:"effects,omitempty"`
	AtStartEffects *tree.Tree `yaml:"at_start_effects,omitempty"`
	AtEndEffects   *tree.Tree `yaml:"at_end_effects,omitempty"`
}

// Durative reports whether the schema uses start/end effects.
func (s Schema) Durative() bool {
	return s.AtStartEffects != nil || s.AtEndEffects != nil
}

// phases returns the effect trees in application order.
func (s Schema) phases() []*tree.Tree {
	if s.Durative() {
		return []*tree.Tree{s.AtStartEffects, s.AtEndEffects}
	}
	return []*tree.Tree{s.Effects}
}

// Catalog indexes action schemas by name.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Catalog struct {
	schemas map[string]Schema
}

type catalogFile struct {
	Actions []Schema `yaml:"actions" validate:"dive"`
}

var validate = validator.New()

// NewCatalog validates the schemas and indexes them.
func NewCatalog(schemas ...Schema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("action %q: %w", s.Name, err)
		}
		if s.Effects != nil && s.Durative() {
			return nil, fmt.Errorf("action %q: both effects and at_start/at_end effects", s.Name)
		}
		for _, t := range s.phases() {
			if t == nil {
				continue
			}
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("action %q: %w", s.Name, err)
			}
		}
		if _, dup := c.schemas[s.Name]; dup {
			return nil, fmt.Errorf("action %q: defined twice", s.Name)
		}
		c.schemas[s.Name] = s
	}
	return c, nil
}

// LoadCatalog decodes a YAML document of the form
//
//	actions:
//	  - name: move
//	    parameters: ["?r", "?from", "?to"]
//	    effects: {nodes: [...]}
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding action catalog: %w", err)
	}
	return NewCatalog(f.Actions...)
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening action catalog: %w", err)
	}
	defer fh.Close()
	return LoadCatalog(fh)
}

// Names returns the sorted action names.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for n := range c.schemas {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Schema returns the schema called name.
func (c *Catalog) Schema(name string) (Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// Ground returns the effect trees of inst with its arguments substituted
// for the schema parameters, in application order.
func (c *Catalog) Ground(inst action.Instance) ([]tree.Tree, error) {
	s, ok := c.schemas[inst.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, inst.Name)
	}
	if len(inst.Params) != len(s.Parameters) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d",
			action.ErrInvalidAction, inst.Name, len(s.Parameters), len(inst.Params))
	}

	binding := ground.Bindings(s.Parameters, inst.Params)
	var out []tree.Tree
	for _, t := range s.phases() {
		if t == nil {
			out = append(out, tree.Tree{})
			continue
		}
		out = append(out, ground.Substitute(*t, 0, binding))
	}
	return out, nil
}
