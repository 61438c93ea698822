// Package config defines the format-agnostic formula model along with the
// core interfaces (Loader, Evaluator) for loading formula files and
// evaluating their deferred expressions.
//
// The `config.Model` is the raw input of the `formula` package, which
// validates each definition. Concrete implementations of the interfaces,
// such as for HCL, are provided in separate packages.
package config
