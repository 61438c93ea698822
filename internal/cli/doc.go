// Package cli maps the brewgridgo command line onto the app package. It
// owns flag parsing, settings layering and exit codes; all behavior lives
// in app.
package cli
