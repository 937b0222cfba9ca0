// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// GetTerminalWidth returns the width to wrap help text to: COLUMNS when the
// shell or user sets it, the stdout terminal's width otherwise, and 0 ("do
// not wrap") when stdout is not a terminal.
func GetTerminalWidth() int {
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil {
		return cols
	}
	if cols, _, err := term.GetSize(1); err == nil {
		return cols
	}
	if term.IsTerminal(1) {
		return 80
	}
	return 0
}

// Wrap greedily wraps s to width w, preserving existing paragraph breaks.
// w == 0 disables wrapping.
func Wrap(w int, s string) string {
	if w <= 0 {
		return s
	}
	paragraphs := strings.Split(s, "\n\n")
	for i, paragraph := range paragraphs {
		var lines []string
		line := ""
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= w:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
		paragraphs[i] = strings.Join(lines, "\n")
	}
	return strings.Join(paragraphs, "\n\n")
}
