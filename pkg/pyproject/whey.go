// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/manifest"
	"github.com/wheylab/whey/pkg/python/pep440"
)

var toolKeys = map[string]bool{
	"package": true, "source-dir": true, "additional-files": true,
	"license-key": true, "base-classifiers": true, "platforms": true,
	"python-versions": true, "python-implementations": true, "builders": true,
}

func (cfg *Config) parseTool(ctx context.Context, raw map[string]interface{}) error {
	// Unknown keys are tolerated here: third-party builders read their own
	// settings out of [tool.whey].
	for key := range raw {
		if !toolKeys[key] {
			dlog.Warnf(ctx, "unknown key 'tool.whey.%s'", key)
		}
	}

	var err error

	cfg.Tool.Package = defaultPackage(cfg.Name)
	if rawVal, ok := raw["package"]; ok {
		if cfg.Tool.Package, err = asString("tool.whey.package", rawVal); err != nil {
			return err
		}
	}

	cfg.Tool.SourceDir = "."
	if rawVal, ok := raw["source-dir"]; ok {
		sourceDir, err := asString("tool.whey.source-dir", rawVal)
		if err != nil {
			return err
		}
		sourceDir = path.Clean(sourceDir)
		if path.IsAbs(sourceDir) || sourceDir == ".." || strings.HasPrefix(sourceDir, "../") {
			return badConfig("tool.whey.source-dir",
				"must name a directory inside the project: %q", sourceDir)
		}
		cfg.Tool.SourceDir = sourceDir
	}

	if rawVal, ok := raw["additional-files"]; ok {
		lines, err := asStringList("tool.whey.additional-files", rawVal)
		if err != nil {
			return err
		}
		// Parse now so that malformed entries fail the build before any
		// filesystem work happens.
		if _, err := manifest.ParseDirectives(ctx, lines); err != nil {
			return badConfig("tool.whey.additional-files", "%v", err)
		}
		cfg.Tool.AdditionalFiles = lines
	}

	if rawVal, ok := raw["license-key"]; ok {
		if cfg.Tool.LicenseKey, err = asString("tool.whey.license-key", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["base-classifiers"]; ok {
		if cfg.Tool.BaseClassifiers, err = asStringList("tool.whey.base-classifiers", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["platforms"]; ok {
		if cfg.Tool.Platforms, err = asStringList("tool.whey.platforms", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["python-versions"]; ok {
		if cfg.Tool.PythonVersions, err = parsePythonVersions(rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["python-implementations"]; ok {
		if cfg.Tool.PythonImplementations, err = asStringList("tool.whey.python-implementations", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["builders"]; ok {
		table, err := asTable("tool.whey.builders", rawVal)
		if err != nil {
			return err
		}
		for role, rawName := range table {
			name, err := asString("tool.whey.builders."+role, rawName)
			if err != nil {
				return err
			}
			switch role {
			case "sdist":
				cfg.Tool.Builders.Sdist = name
			case "wheel":
				cfg.Tool.Builders.Wheel = name
			case "binary":
				cfg.Tool.Builders.Binary = name
			default:
				dlog.Warnf(ctx, "unknown key 'tool.whey.builders.%s'", role)
			}
		}
	}

	return nil
}

// defaultPackage derives the import package from the project name: the first
// dotted component, with hyphens replaced by underscores.
func defaultPackage(name string) string {
	return strings.ReplaceAll(strings.SplitN(name, ".", 2)[0], "-", "_")
}

// parsePythonVersions accepts strings as well as bare TOML numbers
// (`python-versions = [3.8, "3.9"]` is a common spelling), and insists on
// Python 3.
func parsePythonVersions(rawVal interface{}) ([]string, error) {
	rawList, ok := rawVal.([]interface{})
	if !ok {
		return nil, badConfig("tool.whey.python-versions",
			"expected an array, got %s", tomlKind(rawVal))
	}
	ret := make([]string, 0, len(rawList))
	for i, element := range rawList {
		path := fmt.Sprintf("tool.whey.python-versions[%d]", i)
		var str string
		switch element := element.(type) {
		case string:
			str = element
		case int64:
			str = strconv.FormatInt(element, 10)
		case float64:
			str = strconv.FormatFloat(element, 'g', -1, 64)
		default:
			return nil, badConfig(path,
				"expected a string or a number, got %s", tomlKind(element))
		}
		version, err := pep440.Parse(str)
		if err != nil {
			return nil, badConfig(path, "%v", err)
		}
		if version.Major() < 3 {
			return nil, badConfig(path, "only Python 3 projects are supported, got %q", str)
		}
		ret = append(ret, str)
	}
	return ret, nil
}
