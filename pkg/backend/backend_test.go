// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package backend_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheylab/whey/pkg/backend"
)

func testContext(t *testing.T) context.Context {
	return dlog.NewTestContext(t, false)
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte(`
[project]
name = "spam"
version = "1.0"

[project.scripts]
spam = "spam.__main__:main"
`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "spam"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "spam", "__init__.py"), nil, 0o644))
	return root
}

func TestHooks(t *testing.T) {
	root := newProject(t)
	ctx := testContext(t)
	outDir := t.TempDir()

	sdist, err := backend.BuildSdist(ctx, root, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0.tar.gz", sdist)
	assert.FileExists(t, filepath.Join(outDir, sdist))

	wheel, err := backend.BuildWheel(ctx, root, outDir, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0-py3-none-any.whl", wheel)
	assert.FileExists(t, filepath.Join(outDir, wheel))

	editable, err := backend.BuildEditable(ctx, root, t.TempDir(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0-py3-none-any.whl", editable)
}

func TestPrepareMetadata(t *testing.T) {
	root := newProject(t)
	ctx := testContext(t)
	outDir := t.TempDir()

	distInfo, err := backend.PrepareMetadataForBuildWheel(ctx, root, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, "spam-1.0.dist-info", distInfo)

	assert.FileExists(t, filepath.Join(outDir, distInfo, "METADATA"))
	assert.FileExists(t, filepath.Join(outDir, distInfo, "WHEEL"))
	assert.FileExists(t, filepath.Join(outDir, distInfo, "entry_points.txt"))

	doc, err := os.ReadFile(filepath.Join(outDir, distInfo, "METADATA"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Name: spam\n")
}

func TestGetRequires(t *testing.T) {
	t.Parallel()
	assert.Empty(t, backend.GetRequiresForBuildSdist(nil))
	assert.Empty(t, backend.GetRequiresForBuildWheel(nil))
	assert.Empty(t, backend.GetRequiresForBuildEditable(nil))
}
