// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	_ "embed"
	"strings"
	"sync"
)

// A frozen snapshot of the trove classifier taxonomy
// (https://pypi.org/classifiers/), shipped as reference data so that
// validation never touches the network.
//
//go:embed trove_classifiers.txt
var troveSnapshot string

var troveOnce struct {
	sync.Once
	set map[string]bool
}

// ValidClassifier reports whether the string is in the shipped classifier
// snapshot.
func ValidClassifier(classifier string) bool {
	troveOnce.Do(func() {
		lines := strings.Split(troveSnapshot, "\n")
		troveOnce.set = make(map[string]bool, len(lines))
		for _, line := range lines {
			if line = strings.TrimSpace(line); line != "" {
				troveOnce.set[line] = true
			}
		}
	})
	return troveOnce.set[classifier]
}
