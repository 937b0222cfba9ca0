// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package manifest implements MANIFEST.in-style file selection over a project
// tree.
//
// https://packaging.python.org/guides/using-manifest-in/
package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/datawire/dlib/dlog"
)

// A Directive is one `additional-files` entry; a mutation on the working set
// of selected files.
type Directive interface {
	fmt.Stringer

	apply(ctx context.Context, sel *selection) error
}

// Include adds single files, or multiple files with a pattern; patterns name
// complete paths from the project root.
type Include struct {
	Patterns []string
}

// Exclude removes files from the working set, matching complete paths from
// the project root.
type Exclude struct {
	Patterns []string
}

// RecursiveInclude adds files beneath a directory whose names match any of
// the patterns.
type RecursiveInclude struct {
	Dir      string
	Patterns []string
}

// RecursiveExclude removes files beneath a directory whose names match any of
// the patterns.
type RecursiveExclude struct {
	Dir      string
	Patterns []string
}

func (d Include) String() string { return "include " + strings.Join(d.Patterns, " ") }
func (d Exclude) String() string { return "exclude " + strings.Join(d.Patterns, " ") }
func (d RecursiveInclude) String() string {
	return "recursive-include " + d.Dir + " " + strings.Join(d.Patterns, " ")
}
func (d RecursiveExclude) String() string {
	return "recursive-exclude " + d.Dir + " " + strings.Join(d.Patterns, " ")
}

// ParseDirective parses a single MANIFEST.in-style line.  Unknown commands
// are reported as (nil, nil); the caller decides whether to warn.
func ParseDirective(line string) (Directive, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty additional-files entry")
	}
	command, args := fields[0], fields[1:]
	switch command {
	case "include":
		if len(args) < 1 {
			return nil, fmt.Errorf("%q must have at least one path or pattern specified", command)
		}
		return Include{Patterns: args}, nil
	case "exclude":
		if len(args) < 1 {
			return nil, fmt.Errorf("%q must have at least one path or pattern specified", command)
		}
		return Exclude{Patterns: args}, nil
	case "recursive-include":
		if len(args) < 2 {
			return nil, fmt.Errorf("%q must have one path and at least one pattern specified", command)
		}
		return RecursiveInclude{Dir: args[0], Patterns: args[1:]}, nil
	case "recursive-exclude":
		if len(args) < 2 {
			return nil, fmt.Errorf("%q must have one path and at least one pattern specified", command)
		}
		return RecursiveExclude{Dir: args[0], Patterns: args[1:]}, nil
	default:
		return nil, nil
	}
}

// ParseDirectives parses the `additional-files` list, warning (not failing)
// on lines with an unrecognized command.
func ParseDirectives(ctx context.Context, lines []string) ([]Directive, error) {
	ret := make([]Directive, 0, len(lines))
	for _, line := range lines {
		directive, err := ParseDirective(line)
		if err != nil {
			return nil, fmt.Errorf("additional-files: %w", err)
		}
		if directive == nil {
			dlog.Warnf(ctx, "unsupported command in 'additional-files': %q", line)
			continue
		}
		ret = append(ret, directive)
	}
	return ret, nil
}
