// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"context"
	"sort"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/python/pep440"
)

// backfill synthesizes the fields that the project declared dynamic.
func (cfg *Config) backfill(ctx context.Context, deps DependencySource) error {
	for _, field := range cfg.Dynamic {
		switch field {
		case "classifiers":
			cfg.Classifiers = BackfillClassifiers(ctx, cfg)
		case "requires-python":
			minVersion, ok := minPythonVersion(cfg.Tool.PythonVersions)
			if !ok {
				return &ConfigError{
					Path:    "project.requires-python",
					Message: "field is dynamic but there is nothing to synthesize it from",
					Hint:    "set 'tool.whey.python-versions'",
				}
			}
			cfg.RequiresPython = ">=" + minVersion
		case "dependencies":
			if deps == nil {
				cfg.Dependencies = []string{}
				continue
			}
			requirements, err := deps.Dependencies(ctx, cfg.ProjectDir)
			if err != nil {
				return err
			}
			cfg.Dependencies = requirements
		}
	}
	return nil
}

func minPythonVersion(versions []string) (string, bool) {
	var minStr string
	var minVer *pep440.Version
	for _, str := range versions {
		ver := pep440.MustParse(str) // validated during parseTool
		if minVer == nil || ver.Cmp(*minVer) < 0 {
			minStr, minVer = str, ver
		}
	}
	return minStr, minVer != nil
}

// BackfillClassifiers derives trove classifiers for the project's license,
// platforms, Python versions, and implementations.  The result groups the
// classifiers canonically (base, license, platform, language, implementation),
// sorted within each group, with duplicates dropped at first occurrence.
func BackfillClassifiers(ctx context.Context, cfg *Config) []string {
	var groups [][]string

	base := make([]string, len(cfg.Tool.BaseClassifiers))
	copy(base, cfg.Tool.BaseClassifiers)
	sort.Strings(base)
	groups = append(groups, base)

	if key := cfg.Tool.LicenseKey; key != "" {
		if name, ok := licenseLookup[key]; ok {
			groups = append(groups, []string{"License :: OSI Approved :: " + name})
		} else {
			dlog.Warnf(ctx, "no classifier known for license key %q", key)
		}
	}

	if len(cfg.Tool.Platforms) > 0 {
		groups = append(groups, platformClassifiers(ctx, cfg.Tool.Platforms))
	}

	if len(cfg.Tool.PythonVersions) > 0 {
		language := []string{"Programming Language :: Python :: 3 :: Only"}
		for _, version := range cfg.Tool.PythonVersions {
			language = append(language, "Programming Language :: Python :: "+version)
		}
		sort.Strings(language) // ":: 3 :: Only" sorts ahead of every ":: 3.X"
		groups = append(groups, language)
	}

	if len(cfg.Tool.PythonImplementations) > 0 {
		impls := make([]string, 0, len(cfg.Tool.PythonImplementations))
		for _, impl := range cfg.Tool.PythonImplementations {
			impls = append(impls, "Programming Language :: Python :: Implementation :: "+impl)
		}
		sort.Strings(impls)
		groups = append(groups, impls)
	}

	var ret []string
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, classifier := range group {
			if !seen[classifier] {
				seen[classifier] = true
				ret = append(ret, classifier)
			}
		}
	}
	return ret
}

func platformClassifiers(ctx context.Context, platforms []string) []string {
	have := make(map[string]bool, len(platforms))
	for _, platform := range platforms {
		have[platform] = true
	}
	if have["Windows"] && have["macOS"] && have["Linux"] && len(have) == 3 {
		return []string{"Operating System :: OS Independent"}
	}

	var ret []string
	for _, platform := range platforms {
		switch platform {
		case "Windows":
			ret = append(ret, "Operating System :: Microsoft :: Windows")
		case "Linux":
			ret = append(ret, "Operating System :: POSIX :: Linux")
		case "macOS":
			ret = append(ret, "Operating System :: MacOS")
		default:
			dlog.Warnf(ctx, "no classifier known for platform %q", platform)
		}
	}
	sort.Strings(ret)
	return ret
}
