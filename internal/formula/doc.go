// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package formula provides the validated, in-memory representation of a
// build recipe. It turns the raw definitions produced by a config.Loader
// into Formula values that the resolver, fetcher and build executor consume.
//
// # Core Concepts
//
//   - Formula: identity, version, the source table, ordered dependencies and
//     build options of one package, plus the deferred install, post-install,
//     caveats, service and test definitions.
//
//   - SourceEntry: a (Predicate, Source) pair. The source table is built once
//     in New; SelectSource is a pure lookup over it and never branches on the
//     host platform anywhere else.
//
//   - Dependency: a named edge to another formula tagged with the Phase at
//     which it is required (build, run or optional).
//
//   - Option and BuildOptions: declared switches (`--with-X`, `--without-X`)
//     and the concrete selection made for one install request.
//
// All validation failures are reported as a single *MalformedSpecError that
// lists every problem found in the definition.
package formula
