// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheylab/whey/pkg/python/pep440"
)

func TestParseNormalize(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"1.0":           "1.0",
		"v1.0":          "1.0",
		"1.0.dev456":    "1.0.dev456",
		"1.0a12":        "1.0a12",
		"1.0alpha1":     "1.0a1",
		"1.0-beta.2":    "1.0b2",
		"1.0c3":         "1.0rc3",
		"1.0.preview4":  "1.0rc4",
		"1.0.post456":   "1.0.post456",
		"1.0-rev2":      "1.0.post2",
		"1.0-1":         "1.0.post1",
		"1.0.post":      "1.0.post0",
		"1.0.dev":       "1.0.dev0",
		"1!2.0":         "1!2.0",
		"1.0+ubuntu-1":  "1.0+ubuntu.1",
		"1.0+ABC.5":     "1.0+abc.5",
		"  1.0  ":       "1.0",
		"3.10":          "3.10",
		"2021.04.01":    "2021.4.1",
		"1.0RC1":        "1.0rc1",
		"1.0.post2.dev3": "1.0.post2.dev3",
	}
	for input, expected := range testcases {
		input := input
		expected := expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			ver, err := pep440.Parse(input)
			require.NoError(t, err)
			assert.Equal(t, expected, ver.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, input := range []string{
		"",
		"bob",
		"1.x",
		"1.0+",
		"french toast",
		"1.0+local!bad",
	} {
		input := input
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := pep440.Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestCmp(t *testing.T) {
	t.Parallel()
	// In strictly ascending order, per the PEP 440 examples.
	ordered := []string{
		"1.0.dev456",
		"1.0a1",
		"1.0a2.dev456",
		"1.0a12.dev456",
		"1.0a12",
		"1.0b1.dev456",
		"1.0b2",
		"1.0b2.post345.dev456",
		"1.0b2.post345",
		"1.0rc1.dev456",
		"1.0rc1",
		"1.0",
		"1.0+abc.5",
		"1.0+abc.7",
		"1.0+5",
		"1.0.post456.dev34",
		"1.0.post456",
		"1.1.dev1",
	}
	for i := 0; i < len(ordered)-1; i++ {
		lo := *pep440.MustParse(ordered[i])
		hi := *pep440.MustParse(ordered[i+1])
		assert.Equalf(t, -1, lo.Cmp(hi), "%s < %s", ordered[i], ordered[i+1])
		assert.Equalf(t, 1, hi.Cmp(lo), "%s > %s", ordered[i+1], ordered[i])
	}
	assert.Equal(t, 0, pep440.MustParse("1.0").Cmp(*pep440.MustParse("1.0.0")))
	assert.Equal(t, 0, pep440.MustParse("3.8").Cmp(*pep440.MustParse("3.8")))
	assert.Equal(t, -1, pep440.MustParse("3.9").Cmp(*pep440.MustParse("3.10")))
}

func TestMajorMinor(t *testing.T) {
	t.Parallel()
	ver := pep440.MustParse("3.10.2")
	assert.Equal(t, 3, ver.Major())
	assert.Equal(t, 10, ver.Minor())
	assert.Equal(t, 0, pep440.MustParse("3").Minor())
}
