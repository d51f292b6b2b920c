package internal

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultMaxOutstandingPings = 64

type DuplicatePingError struct {
	SentAt int64
}

func (e *DuplicatePingError) Error() string {
	return fmt.Sprintf("Attempted to record ping with duplicate timestamp %d", e.SentAt)
}

type MissingPingError struct {
	SentAt int64
}

func (e *MissingPingError) Error() string {
	return fmt.Sprintf("No outstanding ping with sentAt=%d", e.SentAt)
}

type PingStoreStats struct {
	Sent     uint64
	Resolved uint64
	Lost     uint64
}

// PingStore tracks heartbeat pings that are waiting for a pong, keyed by the
// Unix nanosecond timestamp they carry on the wire.
type PingStore struct {
	MaxOutstanding int

	sent     atomic.Uint64
	resolved atomic.Uint64
	lost     atomic.Uint64

	mut_outstanding sync.RWMutex
	outstanding     map[int64]time.Time
}

func CreatePingStore(maxOutstanding int) *PingStore {
	if maxOutstanding <= 0 {
		maxOutstanding = DefaultMaxOutstandingPings
	}
	return &PingStore{
		MaxOutstanding:  maxOutstanding,
		mut_outstanding: sync.RWMutex{},
		outstanding:     make(map[int64]time.Time),
	}
}

// Record stores a ping sent at sentAt. When the store is full the oldest
// outstanding pings are evicted and counted lost; the eviction count is returned.
func (store *PingStore) Record(sentAt time.Time) (int, error) {
	store.mut_outstanding.Lock()
	defer store.mut_outstanding.Unlock()

	key := sentAt.UnixNano()
	if _, has := store.outstanding[key]; has {
		return 0, &DuplicatePingError{SentAt: key}
	}

	evicted := 0
	for len(store.outstanding) >= store.MaxOutstanding {
		delete(store.outstanding, store.oldestKey())
		evicted++
	}
	store.lost.Add(uint64(evicted))

	store.outstanding[key] = sentAt
	store.sent.Add(1)
	return evicted, nil
}

// Resolve matches a pong to its ping and returns the round trip time.
func (store *PingStore) Resolve(pingSentAt int64, now time.Time) (time.Duration, error) {
	store.mut_outstanding.Lock()
	defer store.mut_outstanding.Unlock()

	sentAt, has := store.outstanding[pingSentAt]
	if !has {
		return 0, &MissingPingError{SentAt: pingSentAt}
	}
	delete(store.outstanding, pingSentAt)
	store.resolved.Add(1)

	rtt := now.Sub(sentAt)
	if rtt < 0 {
		rtt = 0
	}
	return rtt, nil
}

func (store *PingStore) HasPing(pingSentAt int64) bool {
	store.mut_outstanding.RLock()
	defer store.mut_outstanding.RUnlock()

	_, has := store.outstanding[pingSentAt]
	return has
}

func (store *PingStore) Outstanding() int {
	store.mut_outstanding.RLock()
	defer store.mut_outstanding.RUnlock()
	return len(store.outstanding)
}

// ExpireBefore drops every ping sent before deadline and returns how many
// were dropped. Each one counts as lost.
func (store *PingStore) ExpireBefore(deadline time.Time) int {
	store.mut_outstanding.Lock()
	defer store.mut_outstanding.Unlock()

	expired := []int64{}
	for key, sentAt := range store.outstanding {
		if sentAt.Before(deadline) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		delete(store.outstanding, key)
	}

	store.lost.Add(uint64(len(expired)))
	return len(expired)
}

// Clear forgets outstanding pings without counting them lost. Used when the
// transport session they were sent on is gone.
func (store *PingStore) Clear() {
	store.mut_outstanding.Lock()
	defer store.mut_outstanding.Unlock()
	store.outstanding = make(map[int64]time.Time)
}

func (store *PingStore) Stats() PingStoreStats {
	return PingStoreStats{
		Sent:     store.sent.Load(),
		Resolved: store.resolved.Load(),
		Lost:     store.lost.Load(),
	}
}

// Caller must hold mut_outstanding.
func (store *PingStore) oldestKey() int64 {
	keys := make([]int64, 0, len(store.outstanding))
	for key := range store.outstanding {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys[0]
}
