// Package dag provides a small, deterministic directed acyclic graph keyed by
// string IDs. Nodes and edges keep their insertion order so that every
// traversal, including the topological order, is reproducible for the same
// sequence of calls.
package dag
