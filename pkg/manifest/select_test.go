// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheylab/whey/pkg/manifest"
)

func testContext(t *testing.T) context.Context {
	return dlog.NewTestContext(t, false)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		filename := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	}
}

func paths(fl manifest.FileList) []string {
	ret := make([]string, 0, len(fl))
	for _, f := range fl {
		ret = append(ret, f.Path)
	}
	return ret
}

func TestSeedWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"spam/__init__.py":              "",
		"spam/submodule/__init__.py":    "",
		"spam/__pycache__/x.cpython.pyc": "",
		"spam/stale.pyc":                "",
		"spam/notes.txt~":               "",
		"spam/#recovery#":               "",
		"spam/data.json":                "{}",
	})

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam"}
	fl, err := sel.Select(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"spam/__init__.py",
		"spam/data.json",
		"spam/submodule/__init__.py",
	}, paths(fl))
}

func TestMissingPackage(t *testing.T) {
	sel := &manifest.Selector{ProjectRoot: t.TempDir(), SourceDir: ".", Package: "spam"}
	_, err := sel.Select(testContext(t))
	assert.Error(t, err)
}

func TestDirectiveCompose(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"spam/__init__.py":    "",
		"spam/data/a.txt":     "a",
		"spam/data/b.txt":     "b",
		"spam/data/tmp_x.txt": "x",
	})

	directives, err := manifest.ParseDirectives(testContext(t), []string{
		"include spam/data/*.txt",
		"recursive-exclude spam/data tmp_*",
	})
	require.NoError(t, err)

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam", Directives: directives}
	fl, err := sel.Select(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"spam/__init__.py",
		"spam/data/a.txt",
		"spam/data/b.txt",
	}, paths(fl))
}

func TestStubRetention(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"spam/__init__.py": "",
		"spam/foo.py":      "",
		"spam/foo.pyi":     "",
		"spam/py.typed":    "",
	})

	directives, err := manifest.ParseDirectives(testContext(t), []string{
		"recursive-exclude spam *",
	})
	require.NoError(t, err)

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam", Directives: directives}
	fl, err := sel.Select(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"spam/foo.pyi",
		"spam/py.typed",
	}, paths(fl))
}

func TestIncludeMatchingNothingIsFatal(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"spam/__init__.py": ""})

	directives, err := manifest.ParseDirectives(testContext(t), []string{"include docs/*.rst"})
	require.NoError(t, err)

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam", Directives: directives}
	_, err = sel.Select(testContext(t))
	assert.Error(t, err)
}

func TestSourceDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/spam/__init__.py": "",
	})

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: "src", Package: "spam"}
	fl, err := sel.Select(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/spam/__init__.py"}, paths(fl))
}

func TestSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("shh"), 0o644))

	root := t.TempDir()
	writeTree(t, root, map[string]string{"spam/__init__.py": ""})
	require.NoError(t, os.Symlink(
		filepath.Join(outside, "secret.txt"),
		filepath.Join(root, "spam", "secret.txt")))

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam"}
	_, err := sel.Select(testContext(t))
	assert.ErrorContains(t, err, "escapes the project root")
}

func TestCaseCollision(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"spam/__init__.py": "",
		"spam/Data.txt":    "",
		"spam/data.txt":    "",
	})
	if _, err := os.Stat(filepath.Join(root, "spam", "Data.txt")); err != nil {
		t.Skip("case-insensitive filesystem")
	}

	sel := &manifest.Selector{ProjectRoot: root, SourceDir: ".", Package: "spam"}
	_, err := sel.Select(testContext(t))
	assert.ErrorContains(t, err, "differ only by case")
}

func TestParseDirective(t *testing.T) {
	t.Parallel()

	directive, err := manifest.ParseDirective("include spam/*.txt eggs/*.txt")
	require.NoError(t, err)
	assert.Equal(t, manifest.Include{Patterns: []string{"spam/*.txt", "eggs/*.txt"}}, directive)

	directive, err = manifest.ParseDirective("recursive-include spam *.json *.txt")
	require.NoError(t, err)
	assert.Equal(t, manifest.RecursiveInclude{Dir: "spam", Patterns: []string{"*.json", "*.txt"}}, directive)

	_, err = manifest.ParseDirective("recursive-include spam")
	assert.Error(t, err)

	directive, err = manifest.ParseDirective("graft spam")
	require.NoError(t, err)
	assert.Nil(t, directive)
}
