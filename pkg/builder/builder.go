// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package builder produces the distribution artifacts: sdists, wheels, and
// editable wheels.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wheylab/whey/pkg/manifest"
	"github.com/wheylab/whey/pkg/pyproject"
	"github.com/wheylab/whey/pkg/readme"
	"github.com/wheylab/whey/pkg/reproducible"
)

// Version is the tool version baked into the WHEEL Generator header.
const Version = "0.1.0"

// archive member modes, per the wheel and sdist conventions
const (
	fileMode = 0o644
	dirMode  = 0o755
)

var reArchiveName = regexp.MustCompile(`[^\w.]+`)

// ArchiveBase returns "{name}-{version}" with the name escaped for use in
// archive filenames.
func ArchiveBase(cfg *pyproject.Config) string {
	return reArchiveName.ReplaceAllLiteralString(cfg.Name, "_") + "-" + cfg.Version
}

// DistInfoDir returns the name of the wheel's ".dist-info" directory.
func DistInfoDir(cfg *pyproject.Config) string {
	return ArchiveBase(cfg) + ".dist-info"
}

// Readme validation runs before any artifact is written; Validator is the
// optional collaborator that does the actual checking.
var Validator readme.Validator

func checkReadme(cfg *pyproject.Config) error {
	if cfg.Readme == nil {
		return nil
	}
	return readme.Check(Validator, *cfg.Readme)
}

// selectFiles runs the file-selection engine for the project.
func selectFiles(ctx context.Context, cfg *pyproject.Config) (manifest.FileList, error) {
	directives, err := manifest.ParseDirectives(ctx, cfg.Tool.AdditionalFiles)
	if err != nil {
		return nil, err
	}
	sel := &manifest.Selector{
		ProjectRoot: cfg.ProjectDir,
		SourceDir:   cfg.Tool.SourceDir,
		Package:     strings.ReplaceAll(cfg.Tool.Package, ".", "/"),
		Directives:  directives,
	}
	return sel.Select(ctx)
}

// archiveTime resolves the reproducible timestamp for archive members:
// SOURCE_DATE_EPOCH, else the project file's mtime clamped to the
// representable range.
func archiveTime(cfg *pyproject.Config) (time.Time, error) {
	fallback := time.Now()
	if info, err := os.Stat(filepath.Join(cfg.ProjectDir, "pyproject.toml")); err == nil {
		fallback = info.ModTime()
	}
	return reproducible.ArchiveTime(fallback)
}

// EntryPointsTxt renders the entry_points.txt document: `console_scripts`
// and `gui_scripts` synthesized from the dedicated tables, then every other
// group.  Sections and entries are emitted sorted so that the output is
// stable.  The empty string means there are no entry points at all.
func EntryPointsTxt(cfg *pyproject.Config) string {
	groups := make(map[string]map[string]string, len(cfg.EntryPoints)+2)
	if len(cfg.Scripts) > 0 {
		groups["console_scripts"] = cfg.Scripts
	}
	if len(cfg.GUIScripts) > 0 {
		groups["gui_scripts"] = cfg.GUIScripts
	}
	for group, entries := range cfg.EntryPoints {
		if len(entries) > 0 {
			groups[group] = entries
		}
	}
	if len(groups) == 0 {
		return ""
	}

	groupNames := make([]string, 0, len(groups))
	for group := range groups {
		groupNames = append(groupNames, group)
	}
	sort.Strings(groupNames)

	var ret strings.Builder
	for i, group := range groupNames {
		if i > 0 {
			ret.WriteString("\n")
		}
		fmt.Fprintf(&ret, "[%s]\n", group)
		names := make([]string, 0, len(groups[group]))
		for name := range groups[group] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&ret, "%s = %s\n", name, groups[group][name])
		}
	}
	return ret.String()
}

// WheelTxt renders the dist-info WHEEL file.
func WheelTxt(tag string) string {
	return strings.Join([]string{
		"Wheel-Version: 1.0",
		fmt.Sprintf("Generator: whey (%s)", Version),
		"Root-Is-Purelib: true",
		"Tag: " + tag,
		"",
	}, "\n")
}
