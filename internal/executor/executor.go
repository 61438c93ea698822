// Package executor defines the interface for the engine that carries a build
// plan through fetch, build, install and post-install.
package executor

import "context"

// Executor drives one run to completion. It returns nil only when every
// formula of the plan is installed or already up to date.
type Executor interface {
	Execute(ctx context.Context) error
}
