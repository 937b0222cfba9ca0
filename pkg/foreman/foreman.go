// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package foreman is responsible for loading the configuration and calling
// the builders: it maps builder roles (sdist, wheel, binary) through the
// builder registry to concrete builders.
package foreman

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/datawire/dlib/derror"

	"github.com/wheylab/whey/pkg/builder"
	"github.com/wheylab/whey/pkg/pyproject"
)

// A Role names a slot in `tool.whey.builders`.
type Role string

const (
	RoleSdist  Role = "sdist"
	RoleWheel  Role = "wheel"
	RoleBinary Role = "binary"
)

// A Builder produces one artifact, returning its filename within the output
// directory.
type Builder interface {
	Build(ctx context.Context) (string, error)
}

// An Entry is a registered builder: how to construct it for a regular build
// and (if supported) for an editable build.
type Entry struct {
	New func(cfg *pyproject.Config, outDir string) Builder
	// NewEditable is nil for builders that cannot produce PEP 660
	// editable wheels.
	NewEditable func(cfg *pyproject.Config, outDir string) Builder
}

var registry = map[string]Entry{}

// Register adds a named builder; the host assembles the registry at startup.
// The built-in builders are pre-registered under "whey_sdist", "whey_wheel",
// and "whey_binary".
func Register(name string, entry Entry) {
	registry[name] = entry
}

// Known returns the registered builder names, sorted.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("whey_sdist", Entry{
		New: func(cfg *pyproject.Config, outDir string) Builder {
			return builder.NewSDist(cfg, outDir)
		},
	})
	wheelEntry := Entry{
		New: func(cfg *pyproject.Config, outDir string) Builder {
			return builder.NewWheel(cfg, outDir)
		},
		NewEditable: func(cfg *pyproject.Config, outDir string) Builder {
			return builder.NewEditable(cfg, outDir)
		},
	}
	Register("whey_wheel", wheelEntry)
	Register("whey_binary", wheelEntry)
}

// A PluginError reports a builder name with no registration behind it.
type PluginError struct {
	Name  string
	Known []string
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("unknown builder %q; registered builders are: %s",
		e.Name, strings.Join(e.Known, ", "))
}

// A Foreman holds a project's resolved configuration and dispatches builds.
type Foreman struct {
	Config *pyproject.Config
}

// New walks up from dir to the project root and loads its configuration.
func New(ctx context.Context, dir string) (*Foreman, error) {
	filename, err := pyproject.FindPyprojectToml(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := pyproject.Load(ctx, filename)
	if err != nil {
		return nil, err
	}
	return &Foreman{Config: cfg}, nil
}

func (f *Foreman) builderName(role Role) string {
	var name string
	switch role {
	case RoleSdist:
		name = f.Config.Tool.Builders.Sdist
	case RoleWheel:
		name = f.Config.Tool.Builders.Wheel
	case RoleBinary:
		name = f.Config.Tool.Builders.Binary
	}
	if name == "" {
		name = "whey_" + string(role)
	}
	return name
}

func (f *Foreman) entry(role Role) (Entry, error) {
	name := f.builderName(role)
	entry, ok := registry[name]
	if !ok {
		return Entry{}, &PluginError{Name: name, Known: Known()}
	}
	return entry, nil
}

// build runs one builder with a panic boundary, so that a crashing builder
// surfaces as an error (with its stack attached) rather than killing the
// front-end.
func (f *Foreman) build(ctx context.Context, b Builder) (filename string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = derror.PanicToError(r)
		}
	}()
	return b.Build(ctx)
}

// BuildSdist builds an sdist with the configured sdist builder.
func (f *Foreman) BuildSdist(ctx context.Context, outDir string) (string, error) {
	entry, err := f.entry(RoleSdist)
	if err != nil {
		return "", err
	}
	return f.build(ctx, entry.New(f.Config, outDir))
}

// BuildWheel builds a wheel with the configured wheel builder.
func (f *Foreman) BuildWheel(ctx context.Context, outDir string) (string, error) {
	entry, err := f.entry(RoleWheel)
	if err != nil {
		return "", err
	}
	return f.build(ctx, entry.New(f.Config, outDir))
}

// BuildBinary builds a binary distribution with the configured binary
// builder.
func (f *Foreman) BuildBinary(ctx context.Context, outDir string) (string, error) {
	entry, err := f.entry(RoleBinary)
	if err != nil {
		return "", err
	}
	return f.build(ctx, entry.New(f.Config, outDir))
}

// BuildEditable builds a PEP 660 editable wheel with the configured wheel
// builder.
func (f *Foreman) BuildEditable(ctx context.Context, outDir string) (string, error) {
	entry, err := f.entry(RoleWheel)
	if err != nil {
		return "", err
	}
	if entry.NewEditable == nil {
		return "", fmt.Errorf("builder %q does not support editable installs",
			f.builderName(RoleWheel))
	}
	return f.build(ctx, entry.NewEditable(f.Config, outDir))
}
