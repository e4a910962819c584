package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/sjson"

	"github.com/luma/pktgen/protocol"
)

type bucketKey struct {
	packet uint16
	hash   uint64
}

type InmemoryStore struct {
	mu      sync.Mutex
	entries map[bucketKey][]protocol.Values
	count   int

	updateChans []chan *Update

	// stop willl be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		entries:     map[bucketKey][]protocol.Values{},
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return nil
	}

	close(i.stop)

	for _, updateChan := range i.updateChans {
		close(updateChan)
	}

	return nil
}

func (i *InmemoryStore) Lookup(ctx context.Context, packet uint16, hash uint64, match Match) (protocol.Values, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, values := range i.entries[bucketKey{packet, hash}] {
		if match == nil || match(values) {
			return values, true
		}
	}

	return nil, false
}

func (i *InmemoryStore) Replace(ctx context.Context, packet uint16, hash uint64, match Match, values protocol.Values) error {
	if values == nil {
		return fmt.Errorf("Failed to cache packet %d: no values", packet)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	key := bucketKey{packet, hash}
	bucket := i.entries[key]

	replaced := false
	for n, cached := range bucket {
		if match == nil || match(cached) {
			bucket[n] = values
			replaced = true
			break
		}
	}

	if !replaced {
		i.entries[key] = append(bucket, values)
		i.count++
	}

	i.notify(&Update{Packet: packet, Hash: hash})

	return nil
}

func (i *InmemoryStore) Reset(ctx context.Context, packet uint16) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	dropped := 0
	for key, bucket := range i.entries {
		if key.packet == packet {
			dropped += len(bucket)
			delete(i.entries, key)
		}
	}

	i.count -= dropped
	i.notify(&Update{Packet: packet, Reset: true})

	return dropped
}

func (i *InmemoryStore) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.count
}

// Backup renders the cache as {"packet_<n>": {"k<hash>": [values, ...]}}.
func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	keys := make([]bucketKey, 0, len(i.entries))
	for key := range i.entries {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(a, b int) bool {
		if keys[a].packet != keys[b].packet {
			return keys[a].packet < keys[b].packet
		}

		return keys[a].hash < keys[b].hash
	})

	doc := []byte("{}")
	for _, key := range keys {
		var err error

		path := fmt.Sprintf("packet_%d.k%016x", key.packet, key.hash)
		if doc, err = sjson.SetBytes(doc, path, i.entries[key]); err != nil {
			return nil, fmt.Errorf("Failed to snapshot packet %d: %w", key.packet, err)
		}
	}

	return doc, nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, 255)
	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

// notify must be called with mu held. Listeners that fall behind miss
// updates rather than block the connection.
func (i *InmemoryStore) notify(update *Update) {
	if !i.isRunning() {
		return
	}

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
		default:
		}
	}
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
