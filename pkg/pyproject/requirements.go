// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/wheylab/whey/pkg/python/pep508"
)

// RequirementsFile is the DependencySource that reads a pip-style
// requirements.txt from the project root; it is the default source for
// `dynamic = ["dependencies"]`.
type RequirementsFile struct {
	// Filename relative to the project root; "requirements.txt" if empty.
	Filename string
}

func (src RequirementsFile) Dependencies(ctx context.Context, projectDir string) ([]string, error) {
	filename := src.Filename
	if filename == "" {
		filename = "requirements.txt"
	}
	data, err := os.ReadFile(filepath.Join(projectDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{
				Path:    "project.dependencies",
				Message: fmt.Sprintf("listed as a dynamic field but no %q file was found", filename),
			}
		}
		return nil, err
	}

	var requirements []string
	seen := make(map[string]bool)
	for i, line := range strings.Split(strings.TrimPrefix(string(data), "\ufeff"), "\n") {
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			// pip options (-r, -e, --index-url, ...) have no meaning in
			// package metadata.
			dlog.Warnf(ctx, "%s:%d: ignoring pip option %q", filename, i+1, line)
			continue
		}
		req, err := pep508.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
		str := req.String()
		if !seen[str] {
			seen[str] = true
			requirements = append(requirements, str)
		}
	}
	sort.Strings(requirements)
	return requirements, nil
}
