// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package formula

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// BuildOptions is the concrete option selection for one install.
type BuildOptions struct {
	Enabled map[string]bool
	Head    bool
}

// With reports whether the named option is enabled.
func (o BuildOptions) With(name string) bool {
	return o.Enabled[name]
}

// EnabledNames returns the enabled option names, sorted.
func (o BuildOptions) EnabledNames() []string {
	var names []string
	for name, on := range o.Enabled {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both selections enable the same options.
func (o BuildOptions) Equal(other BuildOptions) bool {
	return o.Head == other.Head && slices.Equal(o.EnabledNames(), other.EnabledNames())
}

// normalizeOption strips a `with-`/`without-` prefix and reports whether
// the name was negative.
func normalizeOption(name string) (string, bool) {
	if rest, ok := strings.CutPrefix(name, "without-"); ok {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(name, "with-"); ok {
		return rest, false
	}
	return name, false
}

// DefaultOptions returns the selection made when no flags are given.
func (f *Formula) DefaultOptions() BuildOptions {
	enabled := make(map[string]bool, len(f.Options))
	for _, o := range f.Options {
		enabled[o.Name] = o.Default
	}
	return BuildOptions{Enabled: enabled}
}

// ResolveOptions applies option flags such as "with-cassert",
// "without-llvm" or a deprecated alias like "enable-cassert" on top of the
// declared defaults.
func (f *Formula) ResolveOptions(flags []string, head bool) (BuildOptions, error) {
	opts := f.DefaultOptions()
	opts.Enabled = maps.Clone(opts.Enabled)
	opts.Head = head

	for _, flag := range flags {
		name := strings.TrimPrefix(flag, "--")
		if replacement, ok := f.DeprecatedOptions[name]; ok {
			name = replacement
		}

		var enable bool
		switch {
		case strings.HasPrefix(name, "with-"):
			enable = true
		case strings.HasPrefix(name, "without-"):
			enable = false
		default:
			return BuildOptions{}, &UnknownOptionError{Formula: f.Name, Option: flag}
		}

		normalized, _ := normalizeOption(name)
		if _, declared := f.Option(normalized); !declared {
			return BuildOptions{}, &UnknownOptionError{Formula: f.Name, Option: flag}
		}
		opts.Enabled[normalized] = enable
	}
	return opts, nil
}
