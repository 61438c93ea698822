// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the platform predicates of the source table and the
// pure source selection over it.
package formula

import "runtime"

// Platform identifies a build target.
type Platform struct {
	OS   string
	Arch string
}

// CurrentPlatform returns the platform the process runs on.
func CurrentPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Predicate matches platforms. Empty fields are wildcards.
type Predicate struct {
	OS   string
	Arch string
}

// Matches reports whether the predicate holds for platform.
func (p Predicate) Matches(platform Platform) bool {
	return (p.OS == "" || p.OS == platform.OS) && (p.Arch == "" || p.Arch == platform.Arch)
}

// Specificity ranks predicates: os+arch over os over arch over unconditional.
// Distinct predicates never share a rank when they can both match.
func (p Predicate) Specificity() int {
	n := 0
	if p.OS != "" {
		n += 2
	}
	if p.Arch != "" {
		n++
	}
	return n
}

func (p Predicate) String() string {
	os, arch := p.OS, p.Arch
	if os == "" {
		os = "*"
	}
	if arch == "" {
		arch = "*"
	}
	return os + "/" + arch
}

// SelectSource picks the source for platform. With head set, the VCS head
// source is returned instead. Otherwise the most specific matching entry of
// the source table wins.
func (f *Formula) SelectSource(platform Platform, head bool) (Source, error) {
	if head {
		if f.Head == nil {
			return Source{}, &NoSourceForPlatformError{Formula: f.Name, Platform: platform, Head: true}
		}
		return *f.Head, nil
	}

	best := -1
	for i, entry := range f.Sources {
		if !entry.Predicate.Matches(platform) {
			continue
		}
		if best < 0 || entry.Predicate.Specificity() > f.Sources[best].Predicate.Specificity() {
			best = i
		}
	}
	if best < 0 {
		return Source{}, &NoSourceForPlatformError{Formula: f.Name, Platform: platform}
	}
	return f.Sources[best].Source, nil
}
