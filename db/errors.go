// ABOUTME: Sentinel errors returned by the collection store and repository
// ABOUTME: Not-found is signalled by nil results, never by an error
package db

import "errors"

var (
	// ErrCorrupt wraps any failure to decode a persisted collection.
	ErrCorrupt = errors.New("stored collection is corrupt")

	// ErrClientNotFound is returned when a deal references a client id that does not exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrClientInUse is returned when removing a client that deals still reference.
	ErrClientInUse = errors.New("client has deals")
)
