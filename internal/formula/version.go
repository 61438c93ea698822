// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package formula

import (
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// prerelease matches versions such as "17beta2" or "1.2rc1" whose
// prerelease suffix is not separated by a dash.
var prerelease = regexp.MustCompile(`^(\d+(?:\.\d+)*)([A-Za-z][0-9A-Za-z.]*)$`)

var leadingDigits = regexp.MustCompile(`^\d+`)

// ParseVersion parses a formula version leniently.
func ParseVersion(v string) (*semver.Version, error) {
	if m := prerelease.FindStringSubmatch(v); m != nil {
		v = m[1] + "-" + m[2]
	}
	return semver.NewVersion(v)
}

// MajorVersion returns the major component of the formula version, e.g.
// "17" for "17beta2". Versions that are not semver-like fall back to their
// leading digits.
func (f *Formula) MajorVersion() string {
	if v, err := ParseVersion(f.Version); err == nil {
		return strconv.FormatUint(v.Major(), 10)
	}
	return leadingDigits.FindString(f.Version)
}
