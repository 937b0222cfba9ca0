// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

import (
	"errors"
	"fmt"
)

// A ConfigError is a fatal problem with pyproject.toml: a missing required
// field, a value of the wrong shape, or mutually-exclusive keys both set.
type ConfigError struct {
	// Path is the TOML path of the offending value, e.g. "project.readme.file".
	Path    string
	Message string
	// Hint, when non-empty, tells the user how to fix it.
	Hint string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("bad value for %q: %s", e.Path, e.Message)
	if e.Hint != "" {
		msg += "\n\t(" + e.Hint + ")"
	}
	return msg
}

func badConfig(path, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsConfigError unwraps err to a *ConfigError, if it is one.
func AsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	ok := errors.As(err, &configErr)
	return configErr, ok
}
