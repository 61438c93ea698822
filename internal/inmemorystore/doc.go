// Package inmemorystore provides a thread-safe, in-memory implementation
// of the nodestore.Store interface. It is suitable for a single local run,
// where formula state does not need to outlive the process.
package inmemorystore
