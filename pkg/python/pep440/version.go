// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep440 implements the PEP 440 version scheme; just enough of it to
// validate, normalize, and order the version identifiers that a build backend
// handles.
//
// https://peps.python.org/pep-0440/
package pep440

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// A Version is a parsed public version identifier, optionally with a local
// version label.
//
//	[N!]N(.N)*[{a|b|rc}N][.postN][.devN][+local]
type Version struct {
	Epoch   int
	Release []int
	Pre     *PreRelease
	Post    *int
	Dev     *int
	// Local version segments; each segment is numeric or alphanumeric.
	Local []intstr.IntOrString
}

type PreRelease struct {
	L string // "a", "b", or "rc" once normalized
	N int
}

// The "permissive" regexp from PEP 440 Appendix B.
var reVersion = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?:[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?:(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?:[-_.]?(?P<dev_l>dev)[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

// Parse parses a version string, applying the normalizations that PEP 440
// specifies (case folding, alternate pre-release spellings, implicit zeroes).
func Parse(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("pep440: invalid version: %q", str)
	}
	group := func(name string) string {
		return match[reVersion.SubexpIndex(name)]
	}

	var ver Version

	if epoch := group("epoch"); epoch != "" {
		ver.Epoch, _ = strconv.Atoi(epoch)
	}
	for _, segment := range strings.Split(group("release"), ".") {
		n, err := strconv.Atoi(segment)
		if err != nil {
			return nil, fmt.Errorf("pep440: invalid version: %q: %w", str, err)
		}
		ver.Release = append(ver.Release, n)
	}
	if preL := strings.ToLower(group("pre_l")); preL != "" {
		switch preL {
		case "alpha":
			preL = "a"
		case "beta":
			preL = "b"
		case "c", "pre", "preview":
			preL = "rc"
		}
		n, _ := strconv.Atoi(group("pre_n")) // implicit 0 when absent
		ver.Pre = &PreRelease{L: preL, N: n}
	}
	if postN := group("post_n1") + group("post_n2"); postN != "" || group("post_l") != "" {
		n, _ := strconv.Atoi(postN)
		ver.Post = &n
	}
	if group("dev_l") != "" {
		n, _ := strconv.Atoi(group("dev_n"))
		ver.Dev = &n
	}
	if local := strings.ToLower(group("local")); local != "" {
		for _, segment := range strings.FieldsFunc(local, func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		}) {
			ver.Local = append(ver.Local, intstr.Parse(segment))
		}
	}

	return &ver, nil
}

// MustParse is Parse, for static version strings.
func MustParse(str string) *Version {
	ver, err := Parse(str)
	if err != nil {
		panic(err)
	}
	return ver
}

// String returns the normalized form of the version.
func (ver Version) String() string {
	var ret strings.Builder
	if ver.Epoch > 0 {
		fmt.Fprintf(&ret, "%d!", ver.Epoch)
	}
	for i, segment := range ver.Release {
		if i > 0 {
			ret.WriteByte('.')
		}
		fmt.Fprintf(&ret, "%d", segment)
	}
	if ver.Pre != nil {
		fmt.Fprintf(&ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(&ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(&ret, ".dev%d", *ver.Dev)
	}
	if len(ver.Local) > 0 {
		ret.WriteByte('+')
		for i, segment := range ver.Local {
			if i > 0 {
				ret.WriteByte('.')
			}
			ret.WriteString(segment.String())
		}
	}
	return ret.String()
}

// Major returns the first release segment.
func (ver Version) Major() int {
	return ver.Release[0]
}

// Minor returns the second release segment, or 0 if there isn't one.
func (ver Version) Minor() int {
	if len(ver.Release) < 2 {
		return 0
	}
	return ver.Release[1]
}

// Cmp returns -1, 0, or 1 depending on whether a sorts before, equal to, or
// after b under the PEP 440 total order.
func (a Version) Cmp(b Version) int {
	if d := a.Epoch - b.Epoch; d != 0 {
		return sign(d)
	}
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		var aSeg, bSeg int
		if i < len(a.Release) {
			aSeg = a.Release[i]
		}
		if i < len(b.Release) {
			bSeg = b.Release[i]
		}
		if aSeg != bSeg {
			return sign(aSeg - bSeg)
		}
	}
	if d := cmpPre(a, b); d != 0 {
		return d
	}
	if d := cmpOptional(a.Post, b.Post, -1); d != 0 {
		return d
	}
	if d := cmpOptional(a.Dev, b.Dev, math.MaxInt); d != 0 {
		return d
	}
	return cmpLocal(a.Local, b.Local)
}

// cmpPre orders the pre-release slot: an X.devN with no pre/post segment
// sorts before X's pre-releases, which sort before X itself.
func cmpPre(a, b Version) int {
	rank := func(v Version) int {
		switch {
		case v.Pre != nil:
			return 1
		case v.Post == nil && v.Dev != nil:
			return 0
		default:
			return 2
		}
	}
	if d := rank(a) - rank(b); d != 0 {
		return sign(d)
	}
	if a.Pre == nil || b.Pre == nil {
		return 0
	}
	order := map[string]int{"a": 0, "b": 1, "rc": 2}
	if d := order[a.Pre.L] - order[b.Pre.L]; d != 0 {
		return sign(d)
	}
	return sign(a.Pre.N - b.Pre.N)
}

func cmpOptional(a, b *int, absent int) int {
	aVal, bVal := absent, absent
	if a != nil {
		aVal = *a
	}
	if b != nil {
		bVal = *b
	}
	switch {
	case aVal < bVal:
		return -1
	case aVal > bVal:
		return 1
	default:
		return 0
	}
}

func cmpLocal(a, b []intstr.IntOrString) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		if i >= len(a) {
			return -1
		}
		if i >= len(b) {
			return 1
		}
		// Numeric segments sort after alphanumeric ones.
		aNum := a[i].Type == intstr.Int
		bNum := b[i].Type == intstr.Int
		switch {
		case aNum && !bNum:
			return 1
		case !aNum && bNum:
			return -1
		case aNum && bNum:
			if d := a[i].IntValue() - b[i].IntValue(); d != 0 {
				return sign(d)
			}
		default:
			if a[i].StrVal != b[i].StrVal {
				if a[i].StrVal < b[i].StrVal {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

func sign(d int) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
