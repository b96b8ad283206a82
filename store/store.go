// Package store is the path-addressable record store behind the sync engine.
//
// Paths are "/"-joined segments (users/{subject}/words/{id}); segments are
// encoded by utils.EncodeKey before they get here, so a segment never contains
// a separator. Two backends exist: GormStore (postgres, sqlite) and PebbleStore
// (embedded). Both apply a batch of conditional writes atomically and make the
// last-writer-wins comparison and the write a single step, so two devices
// pushing the same record cannot lose an update between read and write.
package store

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no record exists at a path.
var ErrNotFound = errors.New("store: record not found")

// Record is a stored value with its conflict metadata.
type Record struct {
	Path string
	// Stamp is compared by Apply. nil never blocks and is never blocked.
	Stamp *int64
	// ModifiedAt is what pull cursors are compared against.
	ModifiedAt int64
	Value      []byte
}

// Write is a conditional put. It is applied unless the stored record has a
// strictly greater Stamp.
type Write struct {
	Path       string
	Stamp      *int64
	ModifiedAt int64
	Value      []byte
}

type Store interface {
	// Get returns the record at path or ErrNotFound.
	Get(ctx context.Context, path string) (*Record, error)
	// Children returns the direct children of parent ordered by path.
	Children(ctx context.Context, parent string) ([]Record, error)
	// Apply evaluates every write against the current value (including earlier
	// writes of the same batch) and commits the accepted ones as one unit.
	// applied[i] reports whether writes[i] was stored.
	Apply(ctx context.Context, writes []Write) (applied []bool, err error)
	Ping(ctx context.Context) error
	Close() error
}

// Wins reports whether a write stamped incoming may replace a record stamped current.
func Wins(current, incoming *int64) bool {
	if current == nil || incoming == nil {
		return true
	}
	return *current <= *incoming
}

// Join builds a path from already-encoded segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Parent returns the path without its last segment.
func Parent(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}
