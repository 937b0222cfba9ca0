// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package metadata emits Core Metadata 2.2 documents: the METADATA member of
// a wheel and the PKG-INFO member of an sdist.
//
// https://packaging.python.org/specifications/core-metadata/
package metadata

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/wheylab/whey/pkg/pyproject"
	"github.com/wheylab/whey/pkg/python/pep508"
)

// Version is the Metadata-Version this package writes.
const Version = "2.2"

// Dump renders the project configuration as an RFC 822 metadata document,
// with the readme (if any) as the message body.
func Dump(cfg *pyproject.Config) (string, error) {
	var ret strings.Builder
	field := func(key, value string) {
		// A value with embedded newlines would corrupt the header block.
		value = strings.ReplaceAll(value, "\n", "\n        ")
		fmt.Fprintf(&ret, "%s: %s\n", key, value)
	}

	field("Metadata-Version", Version)
	field("Name", cfg.Name)
	field("Version", cfg.Version)

	for _, dynamic := range cfg.Dynamic {
		field("Dynamic", dynamic)
	}

	if key, value := people(cfg.Authors, "Author"); key != "" {
		field(key, value)
	}
	if key, value := people(cfg.Maintainers, "Maintainer"); key != "" {
		field(key, value)
	}

	if cfg.Description != "" {
		field("Summary", cfg.Description)
	}
	if cfg.Tool.LicenseKey != "" {
		field("License", cfg.Tool.LicenseKey)
	}

	for _, classifier := range cfg.Classifiers {
		field("Classifier", classifier)
	}
	for _, requirement := range cfg.Dependencies {
		field("Requires-Dist", requirement)
	}

	if len(cfg.Keywords) > 0 {
		field("Keywords", strings.Join(cfg.Keywords, ","))
	}

	seenHomepage := false
	for _, url := range cfg.URLs {
		label := strings.ToLower(url.Label)
		if (label == "homepage" || label == "home page") && !seenHomepage {
			field("Home-page", url.URL)
			seenHomepage = true
		} else {
			field("Project-URL", url.Label+", "+url.URL)
		}
	}

	for _, platform := range cfg.Tool.Platforms {
		field("Platform", platform)
	}

	if cfg.RequiresPython != "" {
		field("Requires-Python", cfg.RequiresPython)
	}

	for _, extra := range cfg.OptionalDependencies {
		field("Provides-Extra", extra.Name)
		for _, str := range extra.Requirements {
			requirement, err := pep508.Parse(str)
			if err != nil {
				// Requirements were validated at load time.
				return "", fmt.Errorf("metadata.Dump: %w", err)
			}
			field("Requires-Dist", requirement.WithExtra(extra.Name).String())
		}
	}

	if cfg.Readme != nil {
		field("Description-Content-Type", cfg.Readme.ContentType)
		ret.WriteString("\n")
		ret.WriteString(cfg.Readme.Text)
		if !strings.HasSuffix(cfg.Readme.Text, "\n") {
			ret.WriteString("\n")
		}
	}

	return ret.String(), nil
}

// people amalgamates authors (or maintainers) into a single header: entries
// with an email address render as RFC 5322 addresses under "<Role>-email";
// when no entry has one, the names render as an English list under "<Role>".
func people(entries []pyproject.Person, role string) (key, value string) {
	var names []string
	var addresses []string
	for _, person := range entries {
		switch {
		case person.Email != "" && person.Name != "":
			addr := mail.Address{Name: person.Name, Address: person.Email}
			addresses = append(addresses, addr.String())
		case person.Email != "":
			addresses = append(addresses, person.Email)
		default:
			names = append(names, person.Name)
		}
	}
	switch {
	case len(addresses) > 0:
		return role + "-email", strings.Join(addresses, ", ")
	case len(names) > 0:
		return role, wordJoin(names)
	default:
		return "", ""
	}
}

func wordJoin(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
