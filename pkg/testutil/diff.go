// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds archive-inspection helpers for the builder tests.
package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"
	"testing"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// ReadTarGz returns the archive's members in order: name → content.
// Directory members map to nil.
func ReadTarGz(data []byte) (names []string, contents map[string][]byte, err error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer gzReader.Close()

	contents = make(map[string][]byte)
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		names = append(names, header.Name)
		if header.Typeflag == tar.TypeReg {
			content, err := io.ReadAll(tarReader)
			if err != nil {
				return nil, nil, err
			}
			contents[header.Name] = content
		}
	}
	return names, contents, nil
}

// ReadZip returns the archive's members in order: name → content.
func ReadZip(data []byte) (names []string, contents map[string][]byte, err error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}
	contents = make(map[string][]byte)
	for _, file := range zipReader.File {
		names = append(names, file.Name)
		reader, err := file.Open()
		if err != nil {
			return nil, nil, err
		}
		content, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return nil, nil, err
		}
		contents[file.Name] = content
	}
	return names, contents, nil
}

// DumpTarGz renders a listing of the archive: mode, owner, size, name per
// member, for fail-fast diffs.
func DumpTarGz(data []byte) (string, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer gzReader.Close()

	ret := new(strings.Builder)
	table := tabwriter.NewWriter(ret, 0, 1, 1, ' ', 0)
	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintln(table, strings.Join([]string{
			"",
			header.FileInfo().Mode().String(),
			fmt.Sprintf("%d=%q", header.Uid, header.Uname),
			fmt.Sprintf("%d=%q", header.Gid, header.Gname),
			fmt.Sprintf("% 10d", header.Size),
			header.Name,
		}, "\t")); err != nil {
			return "", err
		}
		if _, err := io.Copy(io.Discard, tarReader); err != nil {
			return "", err
		}
	}
	if err := table.Flush(); err != nil {
		return "", err
	}
	return ret.String(), nil
}

// DumpZip renders a listing of the archive: mode, size, name per member.
func DumpZip(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	ret := new(strings.Builder)
	table := tabwriter.NewWriter(ret, 0, 1, 1, ' ', 0)
	for _, file := range zipReader.File {
		if _, err := fmt.Fprintln(table, strings.Join([]string{
			"",
			file.Mode().String(),
			fmt.Sprintf("% 10d", file.UncompressedSize64),
			file.Name,
		}, "\t")); err != nil {
			return "", err
		}
	}
	if err := table.Flush(); err != nil {
		return "", err
	}
	return ret.String(), nil
}

// AssertEqual diffs two multi-line strings, spewing a unified diff on
// mismatch.
func AssertEqual(t *testing.T, exp, act string) bool {
	t.Helper()
	if exp == act {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(exp),
		B:        difflib.SplitLines(act),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	t.Errorf("Diff:\n%s", diff)
	return false
}

// Dump renders an arbitrary value the way the rest of the helpers do.
func Dump(value interface{}) string {
	return spewConfig.Sdump(value)
}
