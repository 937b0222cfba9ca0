// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
)

// A recordRow is one line of a wheel's RECORD file, per PEP 376: the member
// path, "sha256=" followed by the URL-safe unpadded base64 of the digest,
// and the size in bytes.
type recordRow struct {
	path string
	hash string
	size int64
}

func (row recordRow) render() string {
	if row.hash == "" {
		return fmt.Sprintf("%s,,", row.path)
	}
	return fmt.Sprintf("%s,%s,%d", row.path, row.hash, row.size)
}

// A recordWriter accumulates RECORD rows as members are written.
type recordWriter struct {
	rows []recordRow
}

// newDigest returns the hash to feed a member's content through; pass the
// result to (*recordWriter).add once the content is written.
func (rec *recordWriter) newDigest() hash.Hash {
	return sha256.New()
}

func (rec *recordWriter) add(path string, digest hash.Hash, size int64) {
	rec.rows = append(rec.rows, recordRow{
		path: path,
		hash: "sha256=" + base64.RawURLEncoding.EncodeToString(digest.Sum(nil)),
		size: size,
	})
}

// render returns the complete RECORD document, with RECORD's own hash-less
// row last.  Lines are LF-terminated.
func (rec *recordWriter) render(recordPath string) string {
	var ret strings.Builder
	for _, row := range rec.rows {
		ret.WriteString(row.render())
		ret.WriteString("\n")
	}
	ret.WriteString(recordRow{path: recordPath}.render())
	ret.WriteString("\n")
	return ret.String()
}
