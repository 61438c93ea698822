// Package hcl provides the concrete HCL implementation of the formula
// loading and expression evaluation interfaces defined in the `config`
// package. It is responsible for file discovery, parsing, HCL-to-model
// translation and CTY-to-Go conversion of deferred expressions.
package hcl
