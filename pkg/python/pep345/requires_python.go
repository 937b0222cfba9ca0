// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep345 implements PEP 345 version specifiers; just enough to
// validate and evaluate a "Requires-Python" field.
//
// https://peps.python.org/pep-0345/
package pep345

import (
	"fmt"
	"strings"

	"github.com/wheylab/whey/pkg/python/pep440"
)

type CmpOp int

const (
	CmpOpLT CmpOp = iota
	CmpOpGT
	CmpOpLE
	CmpOpGE
	CmpOpEQ
	CmpOpNE
	CmpOpCompatible // "~=", PEP 440's compatible-release clause
)

func (op CmpOp) String() string {
	str, ok := map[CmpOp]string{
		CmpOpLT:         "<",
		CmpOpGT:         ">",
		CmpOpLE:         "<=",
		CmpOpGE:         ">=",
		CmpOpEQ:         "==",
		CmpOpNE:         "!=",
		CmpOpCompatible: "~=",
	}[op]
	if !ok {
		panic(fmt.Errorf("invalid CmpOp: %d", int(op)))
	}
	return str
}

// A VersionSpecifier is a comma-separated conjunction of clauses, e.g.
// ">=3.7, <4".
type VersionSpecifier []VersionSpecifierClause

func ParseVersionSpecifier(str string) (VersionSpecifier, error) {
	clauseStrs := strings.FieldsFunc(str, func(r rune) bool { return r == ',' })
	if len(clauseStrs) == 0 {
		return nil, fmt.Errorf("pep345.ParseVersionSpecifier: empty specifier")
	}
	ret := make(VersionSpecifier, 0, len(clauseStrs))
	for _, clauseStr := range clauseStrs {
		clause, err := parseVersionSpecifierClause(clauseStr)
		if err != nil {
			return nil, fmt.Errorf("pep345.ParseVersionSpecifier: %w", err)
		}
		ret = append(ret, clause)
	}
	return ret, nil
}

func (spec VersionSpecifier) String() string {
	parts := make([]string, 0, len(spec))
	for _, clause := range spec {
		parts = append(parts, clause.String())
	}
	return strings.Join(parts, ",")
}

func (spec VersionSpecifier) Match(ver pep440.Version) bool {
	for _, clause := range spec {
		if !clause.Match(ver) {
			return false
		}
	}
	return true
}

type VersionSpecifierClause struct {
	CmpOp   CmpOp
	Version pep440.Version

	// Whether the clause was spelled with a trailing ".*" (prefix match);
	// only meaningful for CmpOpEQ and CmpOpNE.
	Prefix bool
}

func (clause VersionSpecifierClause) String() string {
	str := clause.CmpOp.String() + clause.Version.String()
	if clause.Prefix {
		str += ".*"
	}
	return str
}

func parseVersionSpecifierClause(str string) (VersionSpecifierClause, error) {
	var ret VersionSpecifierClause
	str = strings.TrimSpace(str)
	switch {
	case strings.HasPrefix(str, "~="):
		ret.CmpOp = CmpOpCompatible
		str = str[2:]
	case strings.HasPrefix(str, "<="):
		ret.CmpOp = CmpOpLE
		str = str[2:]
	case strings.HasPrefix(str, ">="):
		ret.CmpOp = CmpOpGE
		str = str[2:]
	case strings.HasPrefix(str, "=="):
		ret.CmpOp = CmpOpEQ
		str = str[2:]
	case strings.HasPrefix(str, "!="):
		ret.CmpOp = CmpOpNE
		str = str[2:]
	case strings.HasPrefix(str, "<"):
		ret.CmpOp = CmpOpLT
		str = str[1:]
	case strings.HasPrefix(str, ">"):
		ret.CmpOp = CmpOpGT
		str = str[1:]
	default:
		ret.CmpOp = CmpOpEQ
	}
	str = strings.TrimSpace(str)
	if strings.HasSuffix(str, ".*") {
		if ret.CmpOp != CmpOpEQ && ret.CmpOp != CmpOpNE {
			return ret, fmt.Errorf("prefix match not allowed with %q", ret.CmpOp)
		}
		ret.Prefix = true
		str = strings.TrimSuffix(str, ".*")
	}
	if ret.CmpOp == CmpOpCompatible {
		// "~=V" requires at least two release segments.
		if strings.Count(str, ".") < 1 {
			return ret, fmt.Errorf("compatible-release clause requires multiple release segments: %q", str)
		}
	}
	ver, err := pep440.Parse(str)
	if err != nil {
		return ret, err
	}
	ret.Version = *ver
	return ret, nil
}

func (clause VersionSpecifierClause) Match(ver pep440.Version) bool {
	switch clause.CmpOp {
	case CmpOpLT:
		return ver.Cmp(clause.Version) < 0
	case CmpOpLE:
		return ver.Cmp(clause.Version) <= 0
	case CmpOpGT:
		return ver.Cmp(clause.Version) > 0
	case CmpOpGE:
		return ver.Cmp(clause.Version) >= 0
	case CmpOpEQ:
		if clause.Prefix {
			return matchPrefix(ver, clause.Version)
		}
		return ver.Cmp(clause.Version) == 0
	case CmpOpNE:
		eq := clause
		eq.CmpOp = CmpOpEQ
		return !eq.Match(ver)
	case CmpOpCompatible:
		// "~=X.Y" === ">=X.Y, ==X.*"
		lower := VersionSpecifierClause{CmpOp: CmpOpGE, Version: clause.Version}
		upper := clause.Version
		upper.Release = upper.Release[:len(upper.Release)-1]
		prefix := VersionSpecifierClause{CmpOp: CmpOpEQ, Version: upper, Prefix: true}
		return lower.Match(ver) && prefix.Match(ver)
	default:
		panic(fmt.Errorf("invalid CmpOp: %q", clause.CmpOp))
	}
}

func matchPrefix(ver, prefix pep440.Version) bool {
	if ver.Epoch != prefix.Epoch {
		return false
	}
	for i, segment := range prefix.Release {
		var have int
		if i < len(ver.Release) {
			have = ver.Release[i]
		}
		if have != segment {
			return false
		}
	}
	return true
}

// HaveRequiredPython returns whether the `requirement` from a
// "Requires-Python" field is satisfied by the given interpreter version.
func HaveRequiredPython(have pep440.Version, requirement string) (bool, error) {
	req, err := ParseVersionSpecifier(requirement)
	if err != nil {
		return false, err
	}
	return req.Match(have), nil
}
