// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package reproducible_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wheylab/whey/pkg/reproducible"
)

func TestSourceDateEpoch(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv("SOURCE_DATE_EPOCH", "placeholder") // let t.Setenv handle restoration
		os.Unsetenv("SOURCE_DATE_EPOCH")
		_, ok, err := reproducible.SourceDateEpoch()
		assert.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("set", func(t *testing.T) {
		t.Setenv("SOURCE_DATE_EPOCH", "1580000000")
		stamp, ok, err := reproducible.SourceDateEpoch()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, time.Unix(1580000000, 0).UTC(), stamp)
	})
	t.Run("malformed", func(t *testing.T) {
		t.Setenv("SOURCE_DATE_EPOCH", "15.8e8")
		_, ok, err := reproducible.SourceDateEpoch()
		assert.True(t, ok)
		assert.Error(t, err)
	})
	t.Run("out-of-range", func(t *testing.T) {
		t.Setenv("SOURCE_DATE_EPOCH", "10")
		_, _, err := reproducible.SourceDateEpoch()
		assert.Error(t, err)
		t.Setenv("SOURCE_DATE_EPOCH", "9999999999999")
		_, _, err = reproducible.SourceDateEpoch()
		assert.Error(t, err)
	})
}

func TestClamp(t *testing.T) {
	old := time.Date(1970, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Unix(reproducible.MinSourceDateEpoch, 0).UTC(), reproducible.Clamp(old))

	future := time.Date(2201, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Unix(reproducible.MaxSourceDateEpoch, 0).UTC(), reproducible.Clamp(future))

	mid := time.Date(2020, 1, 26, 1, 33, 20, 0, time.UTC)
	assert.Equal(t, mid, reproducible.Clamp(mid))
}

func TestArchiveTime(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "1580000000")
	stamp, err := reproducible.ArchiveTime(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1580000000, 0).UTC(), stamp)
}
