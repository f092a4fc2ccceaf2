// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state holds ground world-state types and the accessors the
// evaluator reads and writes through.
//
// Two accessors are provided:
//
//   - Remote delegates every read and write to the problem service
//     through a ProblemClient. This is the authoritative state.
//   - Local operates in place on a caller-owned Snapshot. It is used to
//     evaluate or apply formulas against a hypothetical state (for
//     example during plan lookahead) without touching the service.
//
// # Thread Safety
//
// Remote is as safe as its ProblemClient. Local performs no locking; a
// Snapshot must not be shared by concurrent evaluations.
package state

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for state access.
var (
	// ErrFunctionNotFound indicates a function lookup or update missed.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrRemoteCall indicates the problem service call failed.
	ErrRemoteCall = errors.New("remote state call failed")

	// ErrMalformed indicates a textual predicate or function could not
	// be parsed.
	ErrMalformed = errors.New("malformed state expression")
)

// -----------------------------------------------------------------------------
// Ground types
// -----------------------------------------------------------------------------

// Predicate is a ground atomic proposition. Two predicates are equal iff
// their names and full ordered parameter lists match.
type Predicate struct {
	Name   string   `json:"name" yaml:"name" validate:"required"`
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Equal reports key equality.
func (p Predicate) Equal(o Predicate) bool {
	return p.Name == o.Name && slices.Equal(p.Params, o.Params)
}

// String renders "(name p1 p2)". The rendering is also the storage key.
func (p Predicate) String() string {
	return render(p.Name, p.Params)
}

// Function is a ground numeric state variable. Equality uses the same
// key as Predicate and ignores Value.
type Function struct {
	Name   string   `json:"name" yaml:"name" validate:"required"`
	Params []string `json:"params,omitempty" yaml:"params,omitempty"`
	Value  float64  `json:"value" yaml:"value"`
}

// Matches reports whether f has the given name and parameters.
func (f Function) Matches(name string, params []string) bool {
	return f.Name == name && slices.Equal(f.Params, params)
}

// Key renders "(name p1 p2)" without the value.
func (f Function) Key() string {
	return render(f.Name, f.Params)
}

// String renders "(= (name p1 p2) value)".
func (f Function) String() string {
	return "(= " + f.Key() + " " + strconv.FormatFloat(f.Value, 'g', -1, 64) + ")"
}

// Instance is a named world object. It is the domain over which EXISTS
// enumerates bindings.
type Instance struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Snapshot is a local copy of the world state.
type Snapshot struct {
	Predicates []Predicate `json:"predicates" yaml:"predicates"`
	Functions  []Function  `json:"functions" yaml:"functions"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Predicates: make([]Predicate, len(s.Predicates)),
		Functions:  make([]Function, len(s.Functions)),
	}
	for i, p := range s.Predicates {
		out.Predicates[i] = Predicate{Name: p.Name, Params: slices.Clone(p.Params)}
	}
	for i, f := range s.Functions {
		out.Functions[i] = Function{Name: f.Name, Params: slices.Clone(f.Params), Value: f.Value}
	}
	return out
}

// HasPredicate reports whether p is in the snapshot.
func (s Snapshot) HasPredicate(p Predicate) bool {
	return slices.ContainsFunc(s.Predicates, p.Equal)
}

// FunctionValue returns the value of the named function.
func (s Snapshot) FunctionValue(name string, params ...string) (float64, bool) {
	for _, f := range s.Functions {
		if f.Matches(name, params) {
			return f.Value, true
		}
	}
	return 0, false
}

func render(name string, params []string) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, p := range params {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	b.WriteByte(')')
	return b.String()
}

// -----------------------------------------------------------------------------
// Text forms
// -----------------------------------------------------------------------------

// ParsePredicate parses "(name p1 p2)".
func ParsePredicate(s string) (Predicate, error) {
	fields, err := parenFields(s)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Name: fields[0], Params: nilIfEmpty(fields[1:])}, nil
}

// ParseFunction parses "(= (name p1 p2) value)".
func ParseFunction(s string) (Function, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Function{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if !strings.HasPrefix(body, "=") {
		return Function{}, fmt.Errorf("%w: %q: missing '='", ErrMalformed, s)
	}
	body = strings.TrimSpace(body[1:])
	end := strings.LastIndexByte(body, ')')
	if end < 0 {
		return Function{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	ref, err := parenFields(body[:end+1])
	if err != nil {
		return Function{}, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(body[end+1:]), 64)
	if err != nil {
		return Function{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	return Function{Name: ref[0], Params: nilIfEmpty(ref[1:]), Value: v}, nil
}

func parenFields(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %q: empty", ErrMalformed, s)
	}
	for _, f := range fields {
		if strings.ContainsAny(f, "()") {
			return nil, fmt.Errorf("%w: %q: nested expression", ErrMalformed, s)
		}
	}
	return fields, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// UnmarshalYAML accepts either the mapping form or "(name p1 p2)".
func (p *Predicate) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		parsed, err := ParsePredicate(n.Value)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	}
	type plain Predicate
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = Predicate(v)
	return nil
}

// MarshalYAML writes the compact "(name p1 p2)" form.
func (p Predicate) MarshalYAML() (any, error) {
	return p.String(), nil
}

// UnmarshalYAML accepts either the mapping form or "(= (name p1) value)".
func (f *Function) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		parsed, err := ParseFunction(n.Value)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	}
	type plain Function
	var v plain
	if err := n.Decode(&v); err != nil {
		return err
	}
	*f = Function(v)
	return nil
}

// MarshalYAML writes the compact "(= (name p1) value)" form.
func (f Function) MarshalYAML() (any, error) {
	return f.String(), nil
}
