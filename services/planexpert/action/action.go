// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package action parses action-instance strings produced by planners.
//
// An action instance is written "(name arg1 arg2 ...)" and may carry a
// start time suffix, as in "(move r1 kitchen hall):5". Tokens are
// whitespace separated; case and extra whitespace are normalized away.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NoTime is the Time of an instance written without a ":<time>" suffix.
const NoTime = -1

// ErrInvalidAction indicates a string that is not an action instance.
var ErrInvalidAction = errors.New("invalid action instance")

// Instance is a parsed, ground action instance.
type Instance struct {
	Name   string
	Params []string
	Time   int
}

// Expression returns the instance without parentheses or time,
// "name arg1 arg2".
func (a Instance) Expression() string {
	if len(a.Params) == 0 {
		return a.Name
	}
	return a.Name + " " + strings.Join(a.Params, " ")
}

// String renders the instance in its canonical form.
func (a Instance) String() string {
	s := "(" + a.Expression() + ")"
	if a.Time != NoTime {
		s += ":" + strconv.Itoa(a.Time)
	}
	return s
}

// Parse reads an action-instance string.
//
// Description:
//
//	The input is lower-cased and its whitespace collapsed before it is
//	split. Anything after the first ':' is the start time and must be an
//	integer.
//
// Inputs:
//
//	s - Text such as "(move r1 a b)" or "( MOVE  r1 a b ):12".
//
// Outputs:
//
//	Instance - Name, parameters and time (NoTime when absent).
//	error - Wraps ErrInvalidAction when s is malformed.
func Parse(s string) (Instance, error) {
	text := strings.ToLower(strings.TrimSpace(s))

	time := NoTime
	if i := strings.IndexByte(text, ':'); i >= 0 {
		t, err := strconv.Atoi(strings.TrimSpace(text[i+1:]))
		if err != nil {
			return Instance{}, fmt.Errorf("%w: bad time in %q", ErrInvalidAction, s)
		}
		time = t
		text = strings.TrimSpace(text[:i])
	}

	if len(text) < 2 || text[0] != '(' || text[len(text)-1] != ')' {
		return Instance{}, fmt.Errorf("%w: %q is not parenthesized", ErrInvalidAction, s)
	}
	fields := strings.Fields(text[1 : len(text)-1])
	if len(fields) == 0 {
		return Instance{}, fmt.Errorf("%w: %q has no name", ErrInvalidAction, s)
	}
	for _, f := range fields {
		if strings.ContainsAny(f, "()") {
			return Instance{}, fmt.Errorf("%w: nested expression in %q", ErrInvalidAction, s)
		}
	}

	inst := Instance{Name: fields[0], Time: time}
	if len(fields) > 1 {
		inst.Params = fields[1:]
	}
	return inst, nil
}
