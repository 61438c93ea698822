// Package build turns a fetched source into an installed keg.
//
// A build runs the formula's install stages as subprocesses inside a private
// staging directory, with an explicit environment derived from the build's
// dependencies. Only a build whose every stage succeeded is promoted into
// the Cellar and linked from opt; anything else leaves the install tree as
// it was.
package build
