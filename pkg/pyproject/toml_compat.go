// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"fmt"
	"time"
)

// Arrays that a parser normalizes element-by-element; numbers and strings
// may legitimately mix in these, so the homogeneity check skips them.
var heterogeneousOK = map[string]bool{
	"tool.whey.python-versions": true,
}

// checkTOMLCompat rejects documents that need TOML 1.0.0 semantics; the
// configuration format is pinned to TOML 0.5.0, and the one 1.0.0-ism that
// survives decoding is the heterogeneous array.
func checkTOMLCompat(value interface{}, path string) error {
	switch value := value.(type) {
	case map[string]interface{}:
		for key, child := range value {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			if err := checkTOMLCompat(child, childPath); err != nil {
				return err
			}
		}
	case []interface{}:
		var kind string
		for i, element := range value {
			elementKind := tomlKind(element)
			if i == 0 {
				kind = elementKind
			} else if elementKind != kind && !heterogeneousOK[path] {
				return fmt.Errorf(
					"%s: mixed-type arrays are not permitted (TOML 0.5.0): %s vs %s",
					path, kind, elementKind)
			}
			if err := checkTOMLCompat(element, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func tomlKind(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case int64, int:
		return "integer"
	case float64:
		return "float"
	case bool:
		return "boolean"
	case time.Time:
		return "datetime"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "table"
	default:
		return fmt.Sprintf("%T", value)
	}
}
