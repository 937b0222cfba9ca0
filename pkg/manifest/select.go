// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"
)

// A Selector evaluates the seed walk plus a directive list against a project
// tree.
type Selector struct {
	// ProjectRoot is the directory holding pyproject.toml.
	ProjectRoot string
	// SourceDir is the directory holding the package, relative to
	// ProjectRoot ("." when the package sits at the root).
	SourceDir string
	// Package is the import package's directory, relative to SourceDir.
	Package string

	Directives []Directive
}

type selection struct {
	root         string // absolute ProjectRoot
	resolvedRoot string // root with symlinks resolved, for escape checks
	set          map[string]File
	protected    map[string]File
}

// Select walks the package directory, applies the directives in order, and
// finalizes the result into a deterministic FileList.
func (sel *Selector) Select(ctx context.Context) (FileList, error) {
	root, err := filepath.Abs(sel.ProjectRoot)
	if err != nil {
		return nil, err
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}
	state := &selection{
		root:         root,
		resolvedRoot: resolvedRoot,
		set:          make(map[string]File),
		protected:    make(map[string]File),
	}

	if err := state.seed(sel.SourceDir, sel.Package); err != nil {
		return nil, err
	}

	for _, directive := range sel.Directives {
		if err := directive.apply(ctx, state); err != nil {
			return nil, fmt.Errorf("additional-files: %q: %w", directive.String(), err)
		}
	}

	// Type-hint markers and stubs survive excludes.
	for relPath, file := range state.protected {
		if _, ok := state.set[relPath]; !ok {
			dlog.Debugf(ctx, "retaining %q despite excludes", relPath)
			state.set[relPath] = file
		}
	}

	return state.finalize()
}

// Built-in excludes, applied to the seed walk.

func isVCSDir(name string) bool {
	switch name {
	case "__pycache__", ".git", ".hg", ".svn":
		return true
	default:
		return false
	}
}

func isJunkFile(name string) bool {
	switch {
	case strings.HasSuffix(name, ".pyc"),
		strings.HasSuffix(name, ".pyo"),
		strings.HasSuffix(name, ".so~"),
		strings.HasSuffix(name, "~"):
		return true
	case strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	default:
		return false
	}
}

func (state *selection) seed(sourceDir, pkg string) error {
	pkgRel := path.Join(sourceDir, pkg)
	pkgDir := filepath.Join(state.root, filepath.FromSlash(pkgRel))
	if info, err := os.Stat(pkgDir); err != nil || !info.IsDir() {
		if sourceDir != "." && sourceDir != "" {
			return fmt.Errorf("package directory %q not found in %q: %w", pkg, sourceDir, fs.ErrNotExist)
		}
		return fmt.Errorf("package directory %q not found: %w", pkg, fs.ErrNotExist)
	}

	err := filepath.WalkDir(pkgDir, func(filename string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if isVCSDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isJunkFile(entry.Name()) {
			return nil
		}
		if err := state.add(filename); err != nil {
			return err
		}
		relPath, _ := filepath.Rel(state.root, filename)
		if name := entry.Name(); name == "py.typed" || strings.HasSuffix(name, ".pyi") {
			if file, ok := state.set[filepath.ToSlash(relPath)]; ok {
				state.protected[file.Path] = file
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(state.set) == 0 {
		return fmt.Errorf("no files found in package directory %q", pkgRel)
	}
	return nil
}

func (state *selection) add(filename string) error {
	info, err := os.Stat(filename)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	relPath, err := filepath.Rel(state.root, filename)
	if err != nil {
		return err
	}
	state.set[filepath.ToSlash(relPath)] = File{
		Path:   filepath.ToSlash(relPath),
		Source: filename,
		Mode:   info.Mode(),
		Size:   info.Size(),
	}
	return nil
}

func (d Include) apply(ctx context.Context, state *selection) error {
	for _, pattern := range d.Patterns {
		matches, err := filepath.Glob(filepath.Join(state.root, filepath.FromSlash(pattern)))
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		added := 0
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				continue
			}
			if err := state.add(match); err != nil {
				return err
			}
			added++
		}
		if added == 0 {
			return fmt.Errorf("pattern %q matched no files", pattern)
		}
	}
	return nil
}

func (d Exclude) apply(ctx context.Context, state *selection) error {
	for _, pattern := range d.Patterns {
		for relPath := range state.set {
			matched, err := path.Match(pattern, relPath)
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if matched {
				delete(state.set, relPath)
			}
		}
	}
	return nil
}

func (d RecursiveInclude) apply(ctx context.Context, state *selection) error {
	base := filepath.Join(state.root, filepath.FromSlash(d.Dir))
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return fmt.Errorf("directory %q not found: %w", d.Dir, fs.ErrNotExist)
	}
	added := 0
	err := filepath.WalkDir(base, func(filename string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if isVCSDir(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		for _, pattern := range d.Patterns {
			matched, err := path.Match(pattern, entry.Name())
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if matched {
				if err := state.add(filename); err != nil {
					return err
				}
				added++
				break
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if added == 0 {
		return fmt.Errorf("no files matched under %q", d.Dir)
	}
	return nil
}

func (d RecursiveExclude) apply(ctx context.Context, state *selection) error {
	prefix := strings.TrimSuffix(d.Dir, "/") + "/"
	for _, pattern := range d.Patterns {
		for relPath := range state.set {
			if !strings.HasPrefix(relPath, prefix) {
				continue
			}
			matched, err := path.Match(pattern, path.Base(relPath))
			if err != nil {
				return fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			if matched {
				delete(state.set, relPath)
			}
		}
	}
	return nil
}

func (state *selection) finalize() (FileList, error) {
	folded := make(map[string]string, len(state.set))
	ret := make(FileList, 0, len(state.set))
	for relPath, file := range state.set {
		// Symlinks must not smuggle content from outside the project.
		resolved, err := filepath.EvalSymlinks(file.Source)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(state.resolvedRoot, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%q escapes the project root", relPath)
		}

		// Selection is case-sensitive, but two selected paths that differ
		// only by case cannot coexist as archive members.
		if prior, clash := folded[strings.ToLower(relPath)]; clash && prior != relPath {
			return nil, fmt.Errorf("selected paths %q and %q differ only by case", prior, relPath)
		}
		folded[strings.ToLower(relPath)] = relPath

		ret = append(ret, file)
	}
	ret.Sort()
	return ret, nil
}
