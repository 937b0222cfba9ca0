// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"io"
	"os"
	"path/filepath"
)

// writeAtomic writes an archive to a temporary file next to filename and
// renames it into place on success; any error unlinks the partial output.
func writeAtomic(filename string, write func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
