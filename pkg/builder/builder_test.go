// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheylab/whey/pkg/builder"
	"github.com/wheylab/whey/pkg/metadata"
	"github.com/wheylab/whey/pkg/pyproject"
	"github.com/wheylab/whey/pkg/python"
	"github.com/wheylab/whey/pkg/testutil"
)

func testContext(t *testing.T) context.Context {
	return dlog.NewTestContext(t, false)
}

// newProject lays out a project tree and loads its configuration.
func newProject(t *testing.T, pyprojectToml string, files map[string]string) *pyproject.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte(pyprojectToml), 0o644))
	for name, content := range files {
		filename := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	}
	cfg, err := pyproject.Loader{}.Load(testContext(t), filepath.Join(root, "pyproject.toml"))
	require.NoError(t, err)
	return cfg
}

const minimalToml = `
[project]
name = "spam"
version = "1.0"
`

func TestWheelMinimal(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1580000000")
	cfg := newProject(t, minimalToml, map[string]string{
		"spam/__init__.py": "__version__ = \"1.0\"\n",
	})
	outDir := t.TempDir()

	filename, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0-py3-none-any.whl", filename)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, contents, err := testutil.ReadZip(data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"spam/__init__.py",
		"spam-1.0.dist-info/METADATA",
		"spam-1.0.dist-info/WHEEL",
		"spam-1.0.dist-info/RECORD",
	}, names)

	header, _, err := metadata.Parse(bytes.NewReader(contents["spam-1.0.dist-info/METADATA"]))
	require.NoError(t, err)
	assert.Equal(t, "2.2", header.Get("Metadata-Version"))
	assert.Equal(t, "spam", header.Get("Name"))
	assert.Equal(t, "1.0", header.Get("Version"))

	wheelFile := string(contents["spam-1.0.dist-info/WHEEL"])
	assert.Contains(t, wheelFile, "Wheel-Version: 1.0\n")
	assert.Contains(t, wheelFile, "Root-Is-Purelib: true\n")
	assert.Contains(t, wheelFile, "Tag: py3-none-any\n")

	verifyRecord(t, names, contents, "spam-1.0.dist-info/RECORD")
}

// verifyRecord checks that RECORD covers exactly the archive's members, that
// each recorded hash and size match the member, and that RECORD's own row is
// hash-less.
func verifyRecord(t *testing.T, names []string, contents map[string][]byte, recordPath string) {
	t.Helper()
	record, ok := contents[recordPath]
	require.True(t, ok, "no RECORD member")

	lines := strings.Split(strings.TrimRight(string(record), "\n"), "\n")
	require.Len(t, lines, len(names))

	recorded := make(map[string]bool, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, ",", 3)
		require.Len(t, parts, 3, "malformed RECORD row: %q", line)
		path, hash, size := parts[0], parts[1], parts[2]
		recorded[path] = true

		if path == recordPath {
			assert.Equal(t, "", hash)
			assert.Equal(t, "", size)
			continue
		}
		content, ok := contents[path]
		require.True(t, ok, "RECORD names %q, which is not in the archive", path)

		digest := sha256.Sum256(content)
		expected := "sha256=" + base64.RawURLEncoding.EncodeToString(digest[:])
		assert.Equal(t, expected, hash, "hash mismatch for %q", path)
		assert.Equal(t, int64(len(content)), mustParseInt(t, size), "size mismatch for %q", path)
	}
	for _, name := range names {
		assert.True(t, recorded[name], "archive member %q not in RECORD", name)
	}
}

func mustParseInt(t *testing.T, str string) int64 {
	t.Helper()
	var n int64
	for _, r := range str {
		require.True(t, r >= '0' && r <= '9', "not a number: %q", str)
		n = n*10 + int64(r-'0')
	}
	return n
}

func TestSdist(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1580000000")
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"
license = {text = "MIT would go here"}
readme = {text = "# spam", content-type = "text/markdown"}
`, map[string]string{
		"spam/__init__.py": "",
		"requirements.txt": "requests\n",
	})
	outDir := t.TempDir()

	filename, err := builder.NewSDist(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0.tar.gz", filename)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, contents, err := testutil.ReadTarGz(data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"spam-1.0/",
		"spam-1.0/PKG-INFO",
		"spam-1.0/LICENSE",
		"spam-1.0/README.md",
		"spam-1.0/pyproject.toml",
		"spam-1.0/requirements.txt",
		"spam-1.0/spam/",
		"spam-1.0/spam/__init__.py",
	}, names)

	header, body, err := metadata.Parse(bytes.NewReader(contents["spam-1.0/PKG-INFO"]))
	require.NoError(t, err)
	assert.Equal(t, "spam", header.Get("Name"))
	assert.Equal(t, "# spam\n", body)
	assert.Equal(t, "MIT would go here", string(contents["spam-1.0/LICENSE"]))
}

func TestManifestCompose(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"

[tool.whey]
additional-files = [
    "include spam/data/*.txt",
    "recursive-exclude spam/data tmp_*",
]
`, map[string]string{
		"spam/__init__.py":    "",
		"spam/data/a.txt":     "a",
		"spam/data/b.txt":     "b",
		"spam/data/tmp_x.txt": "x",
	})
	outDir := t.TempDir()

	filename, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, _, err := testutil.ReadZip(data)
	require.NoError(t, err)
	assert.Contains(t, names, "spam/data/a.txt")
	assert.Contains(t, names, "spam/data/b.txt")
	assert.NotContains(t, names, "spam/data/tmp_x.txt")
}

func TestStubsSurviveExcludes(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"

[tool.whey]
additional-files = ["recursive-exclude spam *"]
`, map[string]string{
		"spam/__init__.py": "",
		"spam/foo.pyi":     "",
		"spam/py.typed":    "",
	})
	outDir := t.TempDir()

	filename, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, _, err := testutil.ReadZip(data)
	require.NoError(t, err)
	assert.Contains(t, names, "spam/py.typed")
	assert.Contains(t, names, "spam/foo.pyi")
	assert.NotContains(t, names, "spam/__init__.py")
}

func TestWheelSourceDir(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"

[tool.whey]
source-dir = "src"
`, map[string]string{
		"src/spam/__init__.py": "",
	})
	outDir := t.TempDir()

	filename, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, _, err := testutil.ReadZip(data)
	require.NoError(t, err)
	assert.Contains(t, names, "spam/__init__.py")
	assert.NotContains(t, names, "src/spam/__init__.py")
}

func TestEntryPoints(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"

[project.scripts]
spam = "spam.__main__:main"

[project.gui-scripts]
spam-gui = "spam.gui:main"

[project.entry-points."spam.plugins"]
jam = "spam.plugins.jam"
`, map[string]string{"spam/__init__.py": ""})
	outDir := t.TempDir()

	filename, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	_, contents, err := testutil.ReadZip(data)
	require.NoError(t, err)

	entryPoints := contents["spam-1.0.dist-info/entry_points.txt"]
	require.NotNil(t, entryPoints)

	parsed, err := python.ParseConfig(bytes.NewReader(entryPoints))
	require.NoError(t, err)
	assert.Equal(t, python.Config{
		"console_scripts": {"spam": "spam.__main__:main"},
		"gui_scripts":     {"spam-gui": "spam.gui:main"},
		"spam.plugins":    {"jam": "spam.plugins.jam"},
	}, parsed)
}

func TestEditable(t *testing.T) {
	cfg := newProject(t, minimalToml, map[string]string{
		"spam/__init__.py": "",
	})
	outDir := t.TempDir()

	filename, err := builder.NewEditable(cfg, outDir).Build(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0-py3-none-any.whl", filename)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, contents, err := testutil.ReadZip(data)
	require.NoError(t, err)

	assert.NotContains(t, names, "spam/__init__.py")
	require.Contains(t, names, "spam.pth")

	// The .pth entry points at the absolute source directory.
	pth := strings.TrimRight(string(contents["spam.pth"]), "\n")
	assert.True(t, filepath.IsAbs(pth), "not absolute: %q", pth)
	resolved, err := filepath.EvalSymlinks(pth)
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(cfg.ProjectDir)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)

	header, _, err := metadata.Parse(bytes.NewReader(contents["spam-1.0.dist-info/METADATA"]))
	require.NoError(t, err)
	assert.Contains(t, header.Values("Classifier"), "Private :: Do Not Upload")

	verifyRecord(t, names, contents, "spam-1.0.dist-info/RECORD")
}

type fakeRedirector struct{}

func (fakeRedirector) Redirect(cfg *pyproject.Config, pkgDir string) ([]builder.RedirectorFile, []string, error) {
	return []builder.RedirectorFile{
		{Path: "_editable_impl_" + cfg.Tool.Package + ".py", Content: []byte("# redirector\n")},
	}, []string{"editables>=0.2", "Requests"}, nil
}

func TestEditableRedirectorRequirements(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"
dependencies = ["requests>=2.8", "req"]
`, map[string]string{"spam/__init__.py": ""})
	outDir := t.TempDir()

	b := builder.NewEditable(cfg, outDir)
	b.Redirector = fakeRedirector{}
	filename, err := b.Build(testContext(t))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, filename))
	require.NoError(t, err)
	names, contents, err := testutil.ReadZip(data)
	require.NoError(t, err)
	assert.Contains(t, names, "_editable_impl_spam.py")

	header, _, err := metadata.Parse(bytes.NewReader(contents["spam-1.0.dist-info/METADATA"]))
	require.NoError(t, err)
	// "Requests" is already covered by "requests>=2.8"; "editables" is new.
	assert.Equal(t, []string{"requests>=2.8", "req", "editables>=0.2"},
		header.Values("Requires-Dist"))
}

func TestReproducible(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1580000000")
	files := map[string]string{
		"spam/__init__.py": "print('hello')\n",
		"spam/data.json":   "{}\n",
	}

	build := func() (wheel, sdist []byte) {
		cfg := newProject(t, minimalToml, files)
		outDir := t.TempDir()
		ctx := testContext(t)

		wheelName, err := builder.NewWheel(cfg, outDir).Build(ctx)
		require.NoError(t, err)
		sdistName, err := builder.NewSDist(cfg, outDir).Build(ctx)
		require.NoError(t, err)

		wheel, err = os.ReadFile(filepath.Join(outDir, wheelName))
		require.NoError(t, err)
		sdist, err = os.ReadFile(filepath.Join(outDir, sdistName))
		require.NoError(t, err)
		return wheel, sdist
	}

	wheelA, sdistA := build()
	wheelB, sdistB := build()

	if !assert.True(t, bytes.Equal(wheelA, wheelB), "wheels differ") {
		dumpA, _ := testutil.DumpZip(wheelA)
		dumpB, _ := testutil.DumpZip(wheelB)
		testutil.AssertEqual(t, dumpA, dumpB)
	}
	if !assert.True(t, bytes.Equal(sdistA, sdistB), "sdists differ") {
		dumpA, _ := testutil.DumpTarGz(sdistA)
		dumpB, _ := testutil.DumpTarGz(sdistB)
		testutil.AssertEqual(t, dumpA, dumpB)
	}
}

func TestPartialOutputCleanedUp(t *testing.T) {
	cfg := newProject(t, `
[project]
name = "spam"
version = "1.0"

[tool.whey]
additional-files = ["include docs/*.rst"]
`, map[string]string{"spam/__init__.py": ""})
	outDir := t.TempDir()

	_, err := builder.NewWheel(cfg, outDir).Build(testContext(t))
	require.Error(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "output directory should be empty after a failed build")
}

func TestArchiveBase(t *testing.T) {
	t.Parallel()
	cfg := &pyproject.Config{Name: "spam-ham", Version: "1.0"}
	assert.Equal(t, "spam_ham-1.0", builder.ArchiveBase(cfg))

	cfg = &pyproject.Config{Name: "spam.ham", Version: "2.0"}
	assert.Equal(t, "spam.ham-2.0", builder.ArchiveBase(cfg))
}
