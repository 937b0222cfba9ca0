// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package backend implements the PEP 517 / PEP 660 build-backend hooks on
// top of the foreman.
//
// https://peps.python.org/pep-0517/
// https://peps.python.org/pep-0660/
package backend

import (
	"context"
	"os"
	"path/filepath"

	"github.com/wheylab/whey/pkg/builder"
	"github.com/wheylab/whey/pkg/foreman"
	"github.com/wheylab/whey/pkg/metadata"
)

// ConfigSettings is the `config_settings` argument of the PEP 517 hooks; the
// backend takes no settings, but the hooks accept and ignore them per the
// contract.
type ConfigSettings map[string]string

// BuildSdist builds an sdist into outDir and returns its basename.
func BuildSdist(ctx context.Context, projectDir, outDir string, _ ConfigSettings) (string, error) {
	f, err := foreman.New(ctx, projectDir)
	if err != nil {
		return "", err
	}
	return f.BuildSdist(ctx, outDir)
}

// BuildWheel builds a wheel into outDir and returns its basename.  The
// metadataDirectory argument is accepted per the hook contract and ignored;
// the wheel's metadata is always regenerated.
func BuildWheel(ctx context.Context, projectDir, outDir string, _ ConfigSettings, metadataDirectory string) (string, error) {
	f, err := foreman.New(ctx, projectDir)
	if err != nil {
		return "", err
	}
	return f.BuildWheel(ctx, outDir)
}

// BuildEditable builds a PEP 660 editable wheel into outDir and returns its
// basename.
func BuildEditable(ctx context.Context, projectDir, outDir string, _ ConfigSettings, metadataDirectory string) (string, error) {
	f, err := foreman.New(ctx, projectDir)
	if err != nil {
		return "", err
	}
	return f.BuildEditable(ctx, outDir)
}

// PrepareMetadataForBuildWheel writes the wheel's ".dist-info" directory
// into outDir and returns the directory's name.
func PrepareMetadataForBuildWheel(ctx context.Context, projectDir, outDir string, _ ConfigSettings) (string, error) {
	f, err := foreman.New(ctx, projectDir)
	if err != nil {
		return "", err
	}
	cfg := f.Config

	distInfo := builder.DistInfoDir(cfg)
	distInfoPath := filepath.Join(outDir, distInfo)
	if err := os.MkdirAll(distInfoPath, 0o755); err != nil {
		return "", err
	}

	doc, err := metadata.Dump(cfg)
	if err != nil {
		return "", err
	}
	files := map[string]string{
		"METADATA": doc,
		"WHEEL":    builder.WheelTxt(builder.Tag),
	}
	if entryPoints := builder.EntryPointsTxt(cfg); entryPoints != "" {
		files["entry_points.txt"] = entryPoints
	}
	if cfg.License != nil {
		files["LICENSE"] = cfg.License.Text
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(distInfoPath, name), []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return distInfo, nil
}

// PrepareMetadataForBuildEditable has the same contract as
// PrepareMetadataForBuildWheel.
func PrepareMetadataForBuildEditable(ctx context.Context, projectDir, outDir string, settings ConfigSettings) (string, error) {
	return PrepareMetadataForBuildWheel(ctx, projectDir, outDir, settings)
}

// GetRequiresForBuildSdist returns the build-time requirements beyond the
// backend itself: there are none.
func GetRequiresForBuildSdist(_ ConfigSettings) []string { return []string{} }

// GetRequiresForBuildWheel returns the build-time requirements beyond the
// backend itself: there are none.
func GetRequiresForBuildWheel(_ ConfigSettings) []string { return []string{} }

// GetRequiresForBuildEditable returns the build-time requirements beyond the
// backend itself: there are none.
func GetRequiresForBuildEditable(_ ConfigSettings) []string { return []string{} }
