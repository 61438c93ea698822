// Package registry holds the fetch strategies compiled into the binary.
// Each strategy lives in its own module under /modules and registers itself
// through the Module interface, so the fetcher only ever looks strategies up
// by the name a formula declares.
package registry
