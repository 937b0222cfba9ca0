// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/metadata"
	"github.com/wheylab/whey/pkg/pyproject"
	"github.com/wheylab/whey/pkg/python/pep508"
)

// A RedirectorFile is one member a Redirector wants placed at the root of an
// editable wheel.
type RedirectorFile struct {
	Path    string
	Content []byte
}

// A Redirector generates the import-redirection machinery for a PEP 660
// editable wheel.  Implementations may report extra runtime requirements
// that their generated code needs.
type Redirector interface {
	Redirect(cfg *pyproject.Config, pkgDir string) (files []RedirectorFile, requires []string, err error)
}

// DefaultRedirector is used when an Editable builder has none set; the
// built-in default writes a .pth file.  Hosts with an editables-style
// collaborator installed should point this at it.
var DefaultRedirector Redirector = PthRedirector{}

// PthRedirector redirects imports by prepending the project's source
// directory to the import search path via a .pth file.
type PthRedirector struct{}

func (PthRedirector) Redirect(cfg *pyproject.Config, pkgDir string) ([]RedirectorFile, []string, error) {
	// pkgDir is the source directory plus one level per dotted component
	// of the package name.
	sourceDir := pkgDir
	for range strings.Split(cfg.Tool.Package, ".") {
		sourceDir = filepath.Dir(sourceDir)
	}
	return []RedirectorFile{{
		Path:    cfg.Tool.Package + ".pth",
		Content: []byte(sourceDir + "\n"),
	}}, nil, nil
}

// Editable builds PEP 660 editable wheels: the package tree stays on disk,
// and the wheel carries only a redirector plus dist-info.
type Editable struct {
	Config *pyproject.Config
	OutDir string

	// Redirector generates the redirection machinery; nil means
	// DefaultRedirector.
	Redirector Redirector
}

func NewEditable(cfg *pyproject.Config, outDir string) *Editable {
	return &Editable{Config: cfg, OutDir: outDir}
}

func (b *Editable) Build(ctx context.Context) (string, error) {
	cfg := b.Config

	if err := checkReadme(cfg); err != nil {
		return "", err
	}
	stamp, err := archiveTime(cfg)
	if err != nil {
		return "", err
	}

	pkgDir, err := filepath.Abs(filepath.Join(
		cfg.ProjectDir,
		filepath.FromSlash(cfg.Tool.SourceDir),
		filepath.FromSlash(strings.ReplaceAll(cfg.Tool.Package, ".", "/")),
	))
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(pkgDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("package directory %q not found: %w", cfg.Tool.Package, fs.ErrNotExist)
	}

	redirector := b.Redirector
	if redirector == nil {
		redirector = DefaultRedirector
	}
	redirects, requires, err := redirector.Redirect(cfg, pkgDir)
	if err != nil {
		return "", err
	}

	payload := make([]member, 0, len(redirects))
	for _, file := range redirects {
		payload = append(payload, member{path: file.Path, content: file.Content})
	}

	// An editable wheel is ephemeral plumbing between the backend and the
	// front-end; make sure nobody publishes one.
	edited := *cfg
	edited.Classifiers = append(append([]string{}, cfg.Classifiers...), "Private :: Do Not Upload")
	edited.Dependencies = mergeRequirements(cfg.Dependencies, requires)

	doc, err := metadata.Dump(&edited)
	if err != nil {
		return "", err
	}

	filename, err := writeWheelArchive(ctx, cfg, b.OutDir, stamp, payload, doc)
	if err != nil {
		return "", err
	}
	dlog.Infof(ctx, "Editable wheel created at %s", filepath.Join(b.OutDir, filename))
	return filename, nil
}

// mergeRequirements appends the redirector's runtime requirements, skipping
// any whose package already appears.  Names are compared in PEP 503
// normalized form, so "Editables" and "editables" are one package.
func mergeRequirements(have, extra []string) []string {
	haveNames := make(map[string]bool, len(have))
	for _, str := range have {
		if req, err := pep508.Parse(str); err == nil {
			haveNames[normalizePackageName(req.Name)] = true
		}
	}

	ret := append([]string{}, have...)
	for _, str := range extra {
		req, err := pep508.Parse(str)
		if err != nil {
			// Not parseable as a requirement; keep it and let the
			// front-end complain.
			ret = append(ret, str)
			continue
		}
		name := normalizePackageName(req.Name)
		if haveNames[name] {
			continue
		}
		haveNames[name] = true
		ret = append(ret, str)
	}
	return ret
}

var rePackageNameSep = regexp.MustCompile(`[-_.]+`)

// normalizePackageName applies PEP 503 name normalization.
func normalizePackageName(name string) string {
	return rePackageNameSep.ReplaceAllLiteralString(strings.ToLower(name), "-")
}
