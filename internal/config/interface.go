package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Loader is the interface for a format-specific formula loader.
type Loader interface {
	// Load reads every formula file found under the given paths and
	// translates it into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Evaluator resolves deferred expressions (install stages, hook commands,
// service definitions) against a Scope. A nil expression evaluates to the
// zero value without error.
type Evaluator interface {
	String(expr hcl.Expression, scope *Scope) (string, error)
	Strings(expr hcl.Expression, scope *Scope) ([]string, error)
	Bool(expr hcl.Expression, scope *Scope) (bool, error)
	StringMap(expr hcl.Expression, scope *Scope) (map[string]string, error)
}
