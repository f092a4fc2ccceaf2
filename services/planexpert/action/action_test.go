// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Instance
	}{
		{
			name:  "with time",
			input: "(move r1 kitchen hall):5",
			want:  Instance{Name: "move", Params: []string{"r1", "kitchen", "hall"}, Time: 5},
		},
		{
			name:  "without time",
			input: "(move r1 kitchen hall)",
			want:  Instance{Name: "move", Params: []string{"r1", "kitchen", "hall"}, Time: NoTime},
		},
		{
			name:  "no params",
			input: "(wait)",
			want:  Instance{Name: "wait", Time: NoTime},
		},
		{
			name:  "messy whitespace and case",
			input: "  ( Move\tR1   kitchen\n hall ) : 12 ",
			want:  Instance{Name: "move", Params: []string{"r1", "kitchen", "hall"}, Time: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"move r1",
		"()",
		"(move r1",
		"(move r1):soon",
		"(move (r1))",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, ErrInvalidAction)
		})
	}
}

func TestInstance_Expression(t *testing.T) {
	a, err := Parse("(pick cup table r1):3")
	require.NoError(t, err)
	assert.Equal(t, "pick cup table r1", a.Expression())
	assert.Equal(t, 3, a.Time)
}

func TestInstance_String(t *testing.T) {
	assert.Equal(t, "(move r1 a b):5", Instance{Name: "move", Params: []string{"r1", "a", "b"}, Time: 5}.String())
	assert.Equal(t, "(wait)", Instance{Name: "wait", Time: NoTime}.String())
}
