// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wheylab/whey/pkg/python/pep345"
	"github.com/wheylab/whey/pkg/python/pep440"
	"github.com/wheylab/whey/pkg/python/pep508"
	"github.com/wheylab/whey/pkg/readme"
)

var projectKeys = map[string]bool{
	"name": true, "version": true, "description": true, "readme": true,
	"requires-python": true, "license": true, "authors": true,
	"maintainers": true, "keywords": true, "classifiers": true, "urls": true,
	"scripts": true, "gui-scripts": true, "entry-points": true,
	"dependencies": true, "optional-dependencies": true, "dynamic": true,
}

// The only fields this backend knows how to synthesize.
var supportedDynamic = map[string]bool{
	"classifiers":     true,
	"dependencies":    true,
	"requires-python": true,
}

var (
	reProjectName = regexp.MustCompile(`(?i)^([a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)
	reEntryPoint  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*` +
		`(:[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*)?$`)
	reExtraName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	reExtraSep  = regexp.MustCompile(`[-_.]+`)
)

func (cfg *Config) parseProject(ctx context.Context, md toml.MetaData, raw map[string]interface{}) error {
	for key := range raw {
		if !projectKeys[key] {
			return badConfig("project."+key, "unknown key")
		}
	}

	// `dynamic` gates everything else, so it goes first.
	if rawDynamic, ok := raw["dynamic"]; ok {
		fields, err := asStringList("project.dynamic", rawDynamic)
		if err != nil {
			return err
		}
		for _, field := range fields {
			switch {
			case field == "name" || field == "version":
				return badConfig("project.dynamic", "the %q field may not be dynamic", field)
			case !supportedDynamic[field]:
				return &ConfigError{
					Path:    "project.dynamic",
					Message: fmt.Sprintf("unsupported dynamic field %q", field),
					Hint:    `only "classifiers", "dependencies", and "requires-python" may be dynamic`,
				}
			}
		}
		cfg.Dynamic = fields
	}
	for _, field := range cfg.Dynamic {
		if _, declared := raw[field]; declared {
			return badConfig("project."+field,
				"listed in 'project.dynamic' but a value was given")
		}
	}

	if _, ok := raw["name"]; !ok {
		return badConfig("project.name", "field must be provided")
	}
	name, err := asString("project.name", raw["name"])
	if err != nil {
		return err
	}
	if !reProjectName.MatchString(name) {
		return badConfig("project.name", "not a valid project name: %q", name)
	}
	cfg.Name = name

	if _, ok := raw["version"]; !ok {
		return badConfig("project.version", "field must be provided")
	}
	versionStr, err := asString("project.version", raw["version"])
	if err != nil {
		return err
	}
	version, err := pep440.Parse(versionStr)
	if err != nil {
		return badConfig("project.version", "%v", err)
	}
	cfg.Version = version.String()

	if rawVal, ok := raw["description"]; ok {
		if cfg.Description, err = asString("project.description", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["readme"]; ok {
		if cfg.Readme, err = cfg.parseReadme(rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["requires-python"]; ok {
		str, err := asString("project.requires-python", rawVal)
		if err != nil {
			return err
		}
		spec, err := pep345.ParseVersionSpecifier(str)
		if err != nil {
			return badConfig("project.requires-python", "%v", err)
		}
		cfg.RequiresPython = spec.String()
	}

	if rawVal, ok := raw["license"]; ok {
		if cfg.License, err = cfg.parseLicense(rawVal); err != nil {
			return err
		}
	}

	if cfg.Authors, err = parsePeople("project.authors", raw["authors"]); err != nil {
		return err
	}
	if cfg.Maintainers, err = parsePeople("project.maintainers", raw["maintainers"]); err != nil {
		return err
	}

	if rawVal, ok := raw["keywords"]; ok {
		if cfg.Keywords, err = asStringList("project.keywords", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["classifiers"]; ok {
		classifiers, err := asStringList("project.classifiers", rawVal)
		if err != nil {
			return err
		}
		for _, classifier := range classifiers {
			if !ValidClassifier(classifier) {
				return badConfig("project.classifiers", "unknown trove classifier: %q", classifier)
			}
		}
		cfg.Classifiers = classifiers
	}

	if rawVal, ok := raw["urls"]; ok {
		if cfg.URLs, err = parseURLs(md, rawVal); err != nil {
			return err
		}
	}

	if cfg.Scripts, err = parseEntryPointTable("project.scripts", raw["scripts"]); err != nil {
		return err
	}
	if cfg.GUIScripts, err = parseEntryPointTable("project.gui-scripts", raw["gui-scripts"]); err != nil {
		return err
	}

	if rawVal, ok := raw["entry-points"]; ok {
		if cfg.EntryPoints, err = parseEntryPointGroups(rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["dependencies"]; ok {
		if cfg.Dependencies, err = parseRequirements("project.dependencies", rawVal); err != nil {
			return err
		}
	}

	if rawVal, ok := raw["optional-dependencies"]; ok {
		if cfg.OptionalDependencies, err = parseOptionalDependencies(md, rawVal); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *Config) parseReadme(rawVal interface{}) (*readme.Readme, error) {
	switch rawVal := rawVal.(type) {
	case string:
		contentType, err := readme.ContentTypeForFilename(rawVal)
		if err != nil {
			return nil, badConfig("project.readme", "%v", err)
		}
		text, err := os.ReadFile(filepath.Join(cfg.ProjectDir, filepath.FromSlash(rawVal)))
		if err != nil {
			return nil, badConfig("project.readme", "%v", err)
		}
		return &readme.Readme{
			File:        rawVal,
			Text:        string(text),
			ContentType: contentType,
			Charset:     "UTF-8",
		}, nil
	case map[string]interface{}:
		for key := range rawVal {
			switch key {
			case "file", "text", "content-type", "charset":
			default:
				return nil, badConfig("project.readme."+key, "unknown key")
			}
		}
		_, haveFile := rawVal["file"]
		_, haveText := rawVal["text"]
		if haveFile == haveText {
			return nil, &ConfigError{
				Path:    "project.readme",
				Message: "table must contain exactly one of 'file' and 'text'",
			}
		}

		ret := &readme.Readme{Charset: "UTF-8"}
		var err error
		if rawCharset, ok := rawVal["charset"]; ok {
			if ret.Charset, err = asString("project.readme.charset", rawCharset); err != nil {
				return nil, err
			}
		}
		if rawContentType, ok := rawVal["content-type"]; ok {
			if ret.ContentType, err = asString("project.readme.content-type", rawContentType); err != nil {
				return nil, err
			}
			switch ret.ContentType {
			case "text/markdown", "text/x-rst", "text/plain":
			default:
				return nil, badConfig("project.readme.content-type",
					"unrecognized content type: %q", ret.ContentType)
			}
		}
		if haveFile {
			if ret.File, err = asString("project.readme.file", rawVal["file"]); err != nil {
				return nil, err
			}
			if ret.ContentType == "" {
				if ret.ContentType, err = readme.ContentTypeForFilename(ret.File); err != nil {
					return nil, badConfig("project.readme.file", "%v", err)
				}
			}
			text, err := os.ReadFile(filepath.Join(cfg.ProjectDir, filepath.FromSlash(ret.File)))
			if err != nil {
				return nil, badConfig("project.readme.file", "%v", err)
			}
			ret.Text = string(text)
		} else {
			if ret.ContentType == "" {
				return nil, badConfig("project.readme.content-type",
					"field must be provided when 'text' is given")
			}
			if ret.Text, err = asString("project.readme.text", rawVal["text"]); err != nil {
				return nil, err
			}
		}
		return ret, nil
	default:
		return nil, badConfig("project.readme",
			"expected a string or a table, got %s", tomlKind(rawVal))
	}
}

func (cfg *Config) parseLicense(rawVal interface{}) (*License, error) {
	table, err := asTable("project.license", rawVal)
	if err != nil {
		return nil, err
	}
	for key := range table {
		switch key {
		case "file", "text":
		default:
			return nil, badConfig("project.license."+key, "unknown key")
		}
	}
	_, haveFile := table["file"]
	_, haveText := table["text"]
	if haveFile == haveText {
		return nil, &ConfigError{
			Path:    "project.license",
			Message: "table must contain exactly one of 'file' and 'text'",
		}
	}

	var ret License
	if haveFile {
		if ret.File, err = asString("project.license.file", table["file"]); err != nil {
			return nil, err
		}
		text, err := os.ReadFile(filepath.Join(cfg.ProjectDir, filepath.FromSlash(ret.File)))
		if err != nil {
			return nil, badConfig("project.license.file", "%v", err)
		}
		ret.Text = string(text)
	} else {
		if ret.Text, err = asString("project.license.text", table["text"]); err != nil {
			return nil, err
		}
	}
	return &ret, nil
}

func parsePeople(path string, rawVal interface{}) ([]Person, error) {
	if rawVal == nil {
		return nil, nil
	}
	rawList, ok := rawVal.([]interface{})
	if !ok {
		return nil, badConfig(path, "expected an array of tables, got %s", tomlKind(rawVal))
	}
	ret := make([]Person, 0, len(rawList))
	for i, rawPerson := range rawList {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		table, err := asTable(elemPath, rawPerson)
		if err != nil {
			return nil, err
		}
		var person Person
		for key, val := range table {
			switch key {
			case "name":
				if person.Name, err = asString(elemPath+".name", val); err != nil {
					return nil, err
				}
			case "email":
				if person.Email, err = asString(elemPath+".email", val); err != nil {
					return nil, err
				}
			default:
				return nil, badConfig(elemPath+"."+key, "unknown key")
			}
		}
		if person.Name == "" && person.Email == "" {
			return nil, badConfig(elemPath, "at least one of 'name' and 'email' must be provided")
		}
		if strings.Contains(person.Name, ",") {
			return nil, badConfig(elemPath+".name", "names may not contain commas: %q", person.Name)
		}
		ret = append(ret, person)
	}
	return ret, nil
}

func parseURLs(md toml.MetaData, rawVal interface{}) ([]URL, error) {
	table, err := asTable("project.urls", rawVal)
	if err != nil {
		return nil, err
	}
	ret := make([]URL, 0, len(table))
	for _, label := range orderedKeys(md, table, "project", "urls") {
		url, err := asString("project.urls."+label, table[label])
		if err != nil {
			return nil, err
		}
		ret = append(ret, URL{Label: label, URL: url})
	}
	return ret, nil
}

func parseEntryPointTable(path string, rawVal interface{}) (map[string]string, error) {
	if rawVal == nil {
		return nil, nil
	}
	table, err := asTable(path, rawVal)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]string, len(table))
	for name, rawRef := range table {
		ref, err := asString(path+"."+name, rawRef)
		if err != nil {
			return nil, err
		}
		if !reEntryPoint.MatchString(ref) {
			return nil, badConfig(path+"."+name, "not a valid entry point reference: %q", ref)
		}
		ret[name] = ref
	}
	return ret, nil
}

func parseEntryPointGroups(rawVal interface{}) (map[string]map[string]string, error) {
	table, err := asTable("project.entry-points", rawVal)
	if err != nil {
		return nil, err
	}
	ret := make(map[string]map[string]string, len(table))
	for group, rawEntries := range table {
		path := "project.entry-points." + group
		switch group {
		case "console_scripts", "gui_scripts":
			return nil, &ConfigError{
				Path:    path,
				Message: "group name is reserved",
				Hint:    "use 'project.scripts' / 'project.gui-scripts' instead",
			}
		}
		entries, err := asTable(path, rawEntries)
		if err != nil {
			return nil, err
		}
		parsed := make(map[string]string, len(entries))
		for name, rawRef := range entries {
			ref, ok := rawRef.(string)
			if !ok {
				// Tables nested deeper than one group level.
				return nil, badConfig(path+"."+name,
					"expected a string, got %s", tomlKind(rawRef))
			}
			if !reEntryPoint.MatchString(ref) {
				return nil, badConfig(path+"."+name,
					"not a valid entry point reference: %q", ref)
			}
			parsed[name] = ref
		}
		ret[group] = parsed
	}
	return ret, nil
}

func parseRequirements(path string, rawVal interface{}) ([]string, error) {
	list, err := asStringList(path, rawVal)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(list))
	for i, str := range list {
		req, err := pep508.Parse(str)
		if err != nil {
			return nil, badConfig(fmt.Sprintf("%s[%d]", path, i), "%v", err)
		}
		ret = append(ret, req.String())
	}
	return ret, nil
}

func parseOptionalDependencies(md toml.MetaData, rawVal interface{}) ([]Extra, error) {
	table, err := asTable("project.optional-dependencies", rawVal)
	if err != nil {
		return nil, err
	}
	ret := make([]Extra, 0, len(table))
	seen := make(map[string]string, len(table))
	for _, extra := range orderedKeys(md, table, "project", "optional-dependencies") {
		path := "project.optional-dependencies." + extra
		normalized := normalizeExtra(extra)
		if !reExtraName.MatchString(normalized) {
			return nil, badConfig(path, "not a valid extra name: %q", extra)
		}
		if prior, dup := seen[normalized]; dup {
			return nil, badConfig(path, "extra normalizes to the same name as %q", prior)
		}
		seen[normalized] = extra
		requirements, err := parseRequirements(path, table[extra])
		if err != nil {
			return nil, err
		}
		ret = append(ret, Extra{Name: normalized, Requirements: requirements})
	}
	return ret, nil
}

// normalizeExtra applies PEP 685 extra-name normalization.
func normalizeExtra(extra string) string {
	return reExtraSep.ReplaceAllLiteralString(strings.ToLower(extra), "-")
}

// Shared shape helpers.

func asString(path string, rawVal interface{}) (string, error) {
	str, ok := rawVal.(string)
	if !ok {
		return "", badConfig(path, "expected a string, got %s", tomlKind(rawVal))
	}
	return str, nil
}

func asStringList(path string, rawVal interface{}) ([]string, error) {
	rawList, ok := rawVal.([]interface{})
	if !ok {
		return nil, badConfig(path, "expected an array of strings, got %s", tomlKind(rawVal))
	}
	ret := make([]string, 0, len(rawList))
	for i, element := range rawList {
		str, ok := element.(string)
		if !ok {
			return nil, badConfig(fmt.Sprintf("%s[%d]", path, i),
				"expected a string, got %s", tomlKind(element))
		}
		ret = append(ret, str)
	}
	return ret, nil
}

func asTable(path string, rawVal interface{}) (map[string]interface{}, error) {
	table, ok := rawVal.(map[string]interface{})
	if !ok {
		return nil, badConfig(path, "expected a table, got %s", tomlKind(rawVal))
	}
	return table, nil
}

// orderedKeys returns the table's keys in declaration order, falling back to
// sorted order for any keys the TOML metadata does not cover.
func orderedKeys(md toml.MetaData, table map[string]interface{}, prefix ...string) []string {
	ret := make([]string, 0, len(table))
	seen := make(map[string]bool, len(table))
	for _, key := range md.Keys() {
		if len(key) != len(prefix)+1 {
			continue
		}
		match := true
		for i, part := range prefix {
			if key[i] != part {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		name := key[len(prefix)]
		if _, ok := table[name]; ok && !seen[name] {
			seen[name] = true
			ret = append(ret, name)
		}
	}
	var leftover []string
	for name := range table {
		if !seen[name] {
			leftover = append(leftover, name)
		}
	}
	sort.Strings(leftover)
	return append(ret, leftover...)
}
