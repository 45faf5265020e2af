// ABOUTME: Record identifier generation
// ABOUTME: ULIDs with monotonic entropy stay unique and sortable within one millisecond
package db

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDFunc returns a fresh record identifier.
type IDFunc func() string

// NewULIDGenerator returns an IDFunc safe for concurrent use.
func NewULIDGenerator() IDFunc {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}
