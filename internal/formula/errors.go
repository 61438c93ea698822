// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package formula

import (
	"fmt"
	"strings"
)

// MalformedSpecError reports every structural problem found in a formula
// definition.
type MalformedSpecError struct {
	Formula  string
	File     string
	Problems []string
}

func (e *MalformedSpecError) Error() string {
	where := ""
	if e.File != "" {
		where = " (" + e.File + ")"
	}
	return fmt.Sprintf("malformed formula %q%s: %s", e.Formula, where, strings.Join(e.Problems, "; "))
}

// NoSourceForPlatformError is returned when no source entry matches the
// target platform, or a head build is requested for a formula without one.
type NoSourceForPlatformError struct {
	Formula  string
	Platform Platform
	Head     bool
}

func (e *NoSourceForPlatformError) Error() string {
	if e.Head {
		return fmt.Sprintf("formula %q has no head source", e.Formula)
	}
	return fmt.Sprintf("formula %q has no source for platform %s", e.Formula, e.Platform)
}

// UnknownOptionError is a usage error for an option the formula does not declare.
type UnknownOptionError struct {
	Formula string
	Option  string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("formula %q has no option %q", e.Formula, e.Option)
}
