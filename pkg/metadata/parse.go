// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"bufio"
	"io"
	"net/textproto"
	"strings"
)

// Parse reads a metadata document back into its header fields and body.
//
// textproto.Reader.ReadMIMEHeader expects a blank line to mark the end of
// the header block, but a body-less document may not have one; a few
// trailing CRLFs keep it happy either way.
func Parse(r io.Reader) (textproto.MIMEHeader, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}

	headerText := string(data)
	var body string
	if idx := strings.Index(headerText, "\n\n"); idx >= 0 {
		headerText, body = headerText[:idx], headerText[idx+2:]
	}

	kvReader := textproto.NewReader(bufio.NewReader(io.MultiReader(
		strings.NewReader(headerText),
		strings.NewReader("\r\n\r\n\r\n"),
	)))
	header, err := kvReader.ReadMIMEHeader()
	if err != nil {
		return nil, "", err
	}
	return header, body, nil
}
