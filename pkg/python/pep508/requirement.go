// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep508 implements PEP 508 dependency specifiers; enough of them to
// validate a project's dependency lists and to compose environment markers.
//
// https://peps.python.org/pep-0508/
package pep508

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wheylab/whey/pkg/python/pep345"
)

// A Requirement is a parsed dependency specifier, e.g.
//
//	requests[security] >=2.8.1, ==2.8.* ; python_version < "2.7"
type Requirement struct {
	Name      string
	Extras    []string
	URL       string // "name @ url" direct references
	Specifier pep345.VersionSpecifier
	Marker    string
}

var (
	reName  = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9]|[A-Za-z0-9])`)
	reExtra = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

func Parse(str string) (*Requirement, error) {
	var ret Requirement

	rest := strings.TrimSpace(str)

	// Environment marker: everything after the first ";".
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		ret.Marker = strings.TrimSpace(rest[idx+1:])
		if ret.Marker == "" {
			return nil, fmt.Errorf("pep508: empty environment marker: %q", str)
		}
		rest = strings.TrimSpace(rest[:idx])
	}

	name := reName.FindString(rest)
	if name == "" {
		return nil, fmt.Errorf("pep508: invalid requirement: %q", str)
	}
	ret.Name = name
	rest = strings.TrimSpace(rest[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("pep508: unterminated extras list: %q", str)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if !reExtra.MatchString(extra) {
				return nil, fmt.Errorf("pep508: invalid extra %q in %q", extra, str)
			}
			ret.Extras = append(ret.Extras, extra)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		ret.URL = strings.TrimSpace(rest[1:])
		if ret.URL == "" {
			return nil, fmt.Errorf("pep508: empty URL reference: %q", str)
		}
		return &ret, nil
	}

	// Parenthesized version specifiers are legal.
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")"))
	if rest != "" {
		spec, err := pep345.ParseVersionSpecifier(rest)
		if err != nil {
			return nil, fmt.Errorf("pep508: %q: %w", str, err)
		}
		ret.Specifier = spec
	}

	return &ret, nil
}

func (req Requirement) String() string {
	var ret strings.Builder
	ret.WriteString(req.Name)
	if len(req.Extras) > 0 {
		ret.WriteByte('[')
		ret.WriteString(strings.Join(req.Extras, ","))
		ret.WriteByte(']')
	}
	switch {
	case req.URL != "":
		ret.WriteString(" @ ")
		ret.WriteString(req.URL)
	case len(req.Specifier) > 0:
		ret.WriteString(req.Specifier.String())
	}
	if req.Marker != "" {
		ret.WriteString("; ")
		ret.WriteString(req.Marker)
	}
	return ret.String()
}

// WithExtra returns a copy of the requirement whose marker additionally
// constrains it to the named extra.  An existing marker is parenthesized and
// joined with "and".
func (req Requirement) WithExtra(extra string) Requirement {
	if req.Marker == "" {
		req.Marker = fmt.Sprintf("extra == %q", extra)
	} else {
		req.Marker = fmt.Sprintf("(%s) and extra == %q", req.Marker, extra)
	}
	return req
}
