package internal

import (
	goerrs "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingStore_ResolveReturnsRoundTrip(t *testing.T) {
	store := CreatePingStore(0)
	sentAt := time.Unix(100, 0)

	_, err := store.Record(sentAt)
	require.NoError(t, err)
	assert.True(t, store.HasPing(sentAt.UnixNano()))

	rtt, err := store.Resolve(sentAt.UnixNano(), sentAt.Add(42*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 42*time.Millisecond, rtt)
	assert.Equal(t, 0, store.Outstanding())

	_, err = store.Resolve(sentAt.UnixNano(), sentAt.Add(50*time.Millisecond))
	var missing *MissingPingError
	assert.True(t, goerrs.As(err, &missing))
}

func TestPingStore_DuplicateRejected(t *testing.T) {
	store := CreatePingStore(0)
	sentAt := time.Unix(5, 0)

	_, err := store.Record(sentAt)
	require.NoError(t, err)
	_, err = store.Record(sentAt)

	var dup *DuplicatePingError
	assert.True(t, goerrs.As(err, &dup))
	assert.Equal(t, uint64(1), store.Stats().Sent)
}

func TestPingStore_EvictsOldestWhenFull(t *testing.T) {
	store := CreatePingStore(2)
	base := time.Unix(0, 0)

	for i := 0; i < 2; i++ {
		evicted, err := store.Record(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)
		assert.Equal(t, 0, evicted)
	}

	evicted, err := store.Record(base.Add(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.False(t, store.HasPing(base.UnixNano()))
	assert.True(t, store.HasPing(base.Add(time.Second).UnixNano()))
	assert.Equal(t, uint64(1), store.Stats().Lost)
}

func TestPingStore_ExpireBeforeCountsLoss(t *testing.T) {
	store := CreatePingStore(0)
	base := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		_, err := store.Record(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, err)
	}

	expired := store.ExpireBefore(base.Add(2 * time.Second))
	assert.Equal(t, 2, expired)
	assert.Equal(t, 1, store.Outstanding())

	stats := store.Stats()
	assert.Equal(t, uint64(3), stats.Sent)
	assert.Equal(t, uint64(2), stats.Lost)

	store.Clear()
	assert.Equal(t, 0, store.Outstanding())
	assert.Equal(t, uint64(2), store.Stats().Lost)
}
