// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package reproducible implements the SOURCE_DATE_EPOCH convention for
// reproducible archive timestamps.
//
// https://reproducible-builds.org/specs/source-date-epoch/
package reproducible

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Bounds on an acceptable SOURCE_DATE_EPOCH value; 1980-01-01T00:00:00Z and
// 2170-12-20T23:59:59Z.  The lower bound is the earliest timestamp that the
// ZIP format's DOS-style timestamps can represent.
const (
	MinSourceDateEpoch int64 = 315532800
	MaxSourceDateEpoch int64 = 6342019199
)

// SourceDateEpoch returns the timestamp named by the SOURCE_DATE_EPOCH
// environment variable, or ok=false if the variable is unset.
//
// A set-but-malformed or out-of-range value is an error, not a fallback.
func SourceDateEpoch() (stamp time.Time, ok bool, err error) {
	str, ok := os.LookupEnv("SOURCE_DATE_EPOCH")
	if !ok {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}, true, fmt.Errorf(
			"SOURCE_DATE_EPOCH must be an integer with no fractional component, not %q", str)
	}
	if secs < MinSourceDateEpoch || secs > MaxSourceDateEpoch {
		return time.Time{}, true, fmt.Errorf(
			"SOURCE_DATE_EPOCH out of range: %d not in [%d, %d]",
			secs, MinSourceDateEpoch, MaxSourceDateEpoch)
	}
	return time.Unix(secs, 0).UTC(), true, nil
}

// Clamp forces t in to the representable range (see MinSourceDateEpoch /
// MaxSourceDateEpoch).
func Clamp(t time.Time) time.Time {
	if t.Unix() < MinSourceDateEpoch {
		return time.Unix(MinSourceDateEpoch, 0).UTC()
	}
	if t.Unix() > MaxSourceDateEpoch {
		return time.Unix(MaxSourceDateEpoch, 0).UTC()
	}
	return t
}

// ArchiveTime returns the timestamp to stamp on archive members:
// SOURCE_DATE_EPOCH when set, otherwise fallback clamped to the
// representable range.
func ArchiveTime(fallback time.Time) (time.Time, error) {
	stamp, ok, err := SourceDateEpoch()
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return stamp, nil
	}
	return Clamp(fallback.UTC()), nil
}
