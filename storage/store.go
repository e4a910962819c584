// Package storage holds the delta caches of a connection: the last sent or
// received value of every (packet type, key) pair.
package storage

import (
	"context"

	"github.com/luma/pktgen/protocol"
)

// Match selects the cache entry whose key fields equal the packet being
// sent or received. Entries sharing a key hash are told apart by it.
type Match func(cached protocol.Values) bool

// Update describes one change of a cache.
type Update struct {
	Packet uint16
	Hash   uint64

	// Reset is set when the whole packet type was invalidated.
	Reset bool
}

type Store interface {
	// Lookup returns the cached value for the key, if any.
	Lookup(ctx context.Context, packet uint16, hash uint64, match Match) (protocol.Values, bool)

	// Replace stores values as the new cache entry for the key. The store
	// keeps values as given; callers pass a deep copy.
	Replace(ctx context.Context, packet uint16, hash uint64, match Match, values protocol.Values) error

	// Reset drops every entry of a packet type and returns how many there
	// were.
	Reset(ctx context.Context, packet uint16) int

	// Len returns the number of cached entries.
	Len() int

	// Backup returns a JSON snapshot of the cache.
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
