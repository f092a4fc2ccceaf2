// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Fatal("printer on a buffer should be plain")
	}
	if IsTerminal(&buf) {
		t.Error("a buffer is not a terminal")
	}
}

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Title("ignored")
	p.Verdict("check", true)
	p.Verdict("apply", false)
	p.Value("value", 42.5)
	p.Status(IconArrow, "(at r1 hall)")
	p.List([]string{"(and (a))", "(and (b))"})
	p.Box("server", "listening")

	want := strings.Join([]string{
		"check: true",
		"apply: false",
		"value: 42.5",
		"(at r1 hall)",
		"1\t(and (a))",
		"2\t(and (b))",
		"server: listening",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("plain output =\n%q\nwant\n%q", got, want)
	}
}

func TestPrinter_StyledOutputKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf}

	p.Verdict("check", false)
	p.Value("value", 3)
	p.List([]string{"(x)"})

	out := buf.String()
	for _, want := range []string{"check", "false", string(IconError), "value", "3", "(x)"} {
		if !strings.Contains(out, want) {
			t.Errorf("styled output %q missing %q", out, want)
		}
	}
}

func TestIcon_Style(t *testing.T) {
	if IconSuccess.style().GetForeground() != Styles.Success.GetForeground() {
		t.Error("success icon should use the success colour")
	}
	if IconBullet.style().GetForeground() != Styles.Muted.GetForeground() {
		t.Error("other icons should be muted")
	}
}
