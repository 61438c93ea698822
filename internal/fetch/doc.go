// Package fetch retrieves formula sources into a local cache and verifies
// them. File artifacts are streamed into an `.incomplete` file while their
// sha256 is computed, and only renamed into place once the checksum
// matches, so a corrupted download is never visible under its final name.
//
// Retrieval itself is delegated to the strategies held in a
// registry.Registry. Transient failures are retried with exponential
// backoff; integrity failures and client errors are not.
package fetch
