// Package hooks runs the parts of a formula that act on an installed keg:
// post-install setup, caveat messages, the service definition and the
// smoke test.
//
// Hooks read and create files through an afero.Fs and start subprocesses
// through a CommandRunner, so both can be replaced in tests.
package hooks
