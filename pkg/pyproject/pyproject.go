// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pyproject loads, validates, and normalizes a project's
// pyproject.toml: the PEP 621 `[project]` table and the `[tool.whey]` table,
// including the derivation of the fields that the project declares dynamic.
//
// https://peps.python.org/pep-0621/
package pyproject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/wheylab/whey/pkg/readme"
)

// A Person is one `project.authors` / `project.maintainers` entry.
type Person struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// A License is the resolved `project.license` table; exactly one of the two
// TOML keys was set, and File retains which.
type License struct {
	File string `json:"file,omitempty"`
	Text string `json:"-"`
}

// A URL is one `project.urls` entry; the slice preserves declaration order.
type URL struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// An Extra is one `project.optional-dependencies` group, under its
// normalized name.
type Extra struct {
	Name         string   `json:"name"`
	Requirements []string `json:"requirements"`
}

// Builders maps builder roles to registered builder names.
type Builders struct {
	Sdist  string `json:"sdist,omitempty"`
	Wheel  string `json:"wheel,omitempty"`
	Binary string `json:"binary,omitempty"`
}

// Tool is the validated `[tool.whey]` table, with defaults applied.
type Tool struct {
	Package               string   `json:"package"`
	SourceDir             string   `json:"source-dir"`
	AdditionalFiles       []string `json:"additional-files,omitempty"`
	LicenseKey            string   `json:"license-key,omitempty"`
	BaseClassifiers       []string `json:"base-classifiers,omitempty"`
	Platforms             []string `json:"platforms,omitempty"`
	PythonVersions        []string `json:"python-versions,omitempty"`
	PythonImplementations []string `json:"python-implementations,omitempty"`
	Builders              Builders `json:"builders,omitempty"`
}

// Config is the normalized view of a whole pyproject.toml, immutable once
// Load returns it.
type Config struct {
	Name                 string                       `json:"name"`
	Version              string                       `json:"version"`
	Description          string                       `json:"description,omitempty"`
	Readme               *readme.Readme               `json:"readme,omitempty"`
	RequiresPython       string                       `json:"requires-python,omitempty"`
	License              *License                     `json:"license,omitempty"`
	Authors              []Person                     `json:"authors,omitempty"`
	Maintainers          []Person                     `json:"maintainers,omitempty"`
	Keywords             []string                     `json:"keywords,omitempty"`
	Classifiers          []string                     `json:"classifiers,omitempty"`
	URLs                 []URL                        `json:"urls,omitempty"`
	Scripts              map[string]string            `json:"scripts,omitempty"`
	GUIScripts           map[string]string            `json:"gui-scripts,omitempty"`
	EntryPoints          map[string]map[string]string `json:"entry-points,omitempty"`
	Dependencies         []string                     `json:"dependencies,omitempty"`
	OptionalDependencies []Extra                      `json:"optional-dependencies,omitempty"`
	Dynamic              []string                     `json:"dynamic,omitempty"`

	Tool Tool `json:"tool"`

	// ProjectDir is the directory holding the pyproject.toml this config
	// came from.
	ProjectDir string `json:"-"`
}

// IsDynamic reports whether the field was declared in `project.dynamic`.
func (cfg *Config) IsDynamic(field string) bool {
	for _, f := range cfg.Dynamic {
		if f == field {
			return true
		}
	}
	return false
}

// A DependencySource supplies `project.dependencies` when the project
// declares the field dynamic.
type DependencySource interface {
	Dependencies(ctx context.Context, projectDir string) ([]string, error)
}

// A Loader carries the collaborators that influence how a configuration is
// resolved.  The zero Loader is valid: dynamic dependencies resolve to the
// empty list.
type Loader struct {
	DependencySource DependencySource
}

// Load reads and fully resolves the configuration in the given
// pyproject.toml file.
func (l Loader) Load(ctx context.Context, filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := checkTOMLCompat(raw, ""); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	projectDir := filepath.Dir(filename)

	cfg := &Config{ProjectDir: projectDir}

	projRaw, ok := raw["project"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: 'project' table not found", filename)
	}
	if err := cfg.parseProject(ctx, md, projRaw); err != nil {
		return nil, err
	}

	var toolRaw map[string]interface{}
	if toolTable, ok := raw["tool"].(map[string]interface{}); ok {
		toolRaw, _ = toolTable["whey"].(map[string]interface{})
	}
	if err := cfg.parseTool(ctx, toolRaw); err != nil {
		return nil, err
	}

	if err := cfg.backfill(ctx, l.DependencySource); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load resolves the configuration with the default collaborators: dynamic
// dependencies are read from the project's requirements.txt.
func Load(ctx context.Context, filename string) (*Config, error) {
	return Loader{DependencySource: RequirementsFile{}}.Load(ctx, filename)
}

// FindPyprojectToml walks up the tree from dir until it finds a
// pyproject.toml, mirroring how front-ends locate the project root.
func FindPyprojectToml(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		filename := filepath.Join(dir, "pyproject.toml")
		if info, err := os.Stat(filename); err == nil && info.Mode().IsRegular() {
			return filename, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no pyproject.toml found in %q or any parent directory", dir)
		}
		dir = parent
	}
}
