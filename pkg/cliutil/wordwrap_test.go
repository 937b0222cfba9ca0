// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wheylab/whey/pkg/cliutil"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", cliutil.Wrap(0, "a b c"))
	assert.Equal(t, "aa bb\ncc", cliutil.Wrap(5, "aa bb cc"))
	assert.Equal(t,
		"one two\nthree\n\nnext para",
		cliutil.Wrap(9, "one two three\n\nnext  para"))
}
