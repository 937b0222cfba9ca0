// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package readme models a project's README and the seam to an (optional)
// README-validation collaborator.
package readme

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// A Readme is the resolved `project.readme` value: the text itself plus how
// to present it.
type Readme struct {
	// File is the path the text came from, relative to the project root;
	// empty when the readme was given as literal text.
	File        string `json:"file,omitempty"`
	Text        string `json:"-"`
	ContentType string `json:"content-type"`
	Charset     string `json:"charset"`
}

// ContentTypeForFilename infers the Description-Content-Type from a readme
// filename's suffix.
func ContentTypeForFilename(filename string) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".md":
		return "text/markdown", nil
	case ".rst":
		return "text/x-rst", nil
	case ".txt":
		return "text/plain", nil
	default:
		return "", fmt.Errorf("unsupported readme filename suffix: %q", filename)
	}
}

// Filename returns the conventional name the readme takes inside an sdist.
func (r Readme) Filename() string {
	switch r.ContentType {
	case "text/markdown":
		return "README.md"
	case "text/x-rst":
		return "README.rst"
	default:
		return "README"
	}
}

// A Diagnostic is one problem a Validator found with a readme.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// A Validator renders or lints a readme; rendering itself is out of scope for
// the backend, so this is the full extent of the contract.
type Validator interface {
	Validate(r Readme) []Diagnostic
}

// CheckEnabled reports whether readme validation should run at all; the
// CHECK_README environment variable set to "0" disables it.
func CheckEnabled() bool {
	return os.Getenv("CHECK_README") != "0"
}

// Check runs the validator (if any, and if not disabled) and folds its
// diagnostics into a single error.
func Check(v Validator, r Readme) error {
	if v == nil || !CheckEnabled() {
		return nil
	}
	diagnostics := v.Validate(r)
	if len(diagnostics) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		msgs = append(msgs, d.String())
	}
	name := r.File
	if name == "" {
		name = "readme"
	}
	return fmt.Errorf("%s failed validation:\n\t%s", name, strings.Join(msgs, "\n\t"))
}
