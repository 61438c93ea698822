// Package app contains the core application logic. It wires formulas,
// fetch strategies, the builder and the hooks into the install, plan, test,
// caveats and service operations, decoupled from any specific entrypoint
// like a CLI.
package app
