package desync

import (
	"testing"
	"time"

	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

const testCooldown = 3 * time.Second

func newTestDetector(t *testing.T) (*Detector, *manualClock) {
	return newTestDetectorWithCooldown(t, 0)
}

func newTestDetectorWithCooldown(t *testing.T, cooldown time.Duration) (*Detector, *manualClock) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	d := CreateDetector(DetectorParams{
		ResyncCooldown: cooldown,
		Now:            clock.Now,
		Logger:         zaptest.NewLogger(t),
	})
	return d, clock
}

func TestDetector_FirstSnapshotIsStored(t *testing.T) {
	d, _ := newTestDetector(t)

	outcome := d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "abc", State: []byte{1, 2}})
	assert.True(t, outcome.Applied)
	assert.Nil(t, outcome.Desync)
	assert.Nil(t, outcome.Resync)

	stored, ok := d.Stored()
	require.True(t, ok)
	assert.Equal(t, Stored{Turn: 1, Checksum: "abc", State: []byte{1, 2}}, stored)
}

func TestDetector_MismatchRequestsResyncWithPreviousValues(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 4, Checksum: "abc"})

	outcome := d.OnSnapshot(&message.StateSnapshot{Turn: 5, Checksum: "xyz"})

	require.NotNil(t, outcome.Desync)
	assert.Equal(t, "abc", outcome.Desync.Expected)
	assert.Equal(t, "xyz", outcome.Desync.Actual)
	require.NotNil(t, outcome.Resync)
	assert.Equal(t, "abc", outcome.Resync.LastKnownChecksum)
	assert.Equal(t, uint32(4), outcome.Resync.LastKnownTurn)

	stored, _ := d.Stored()
	assert.Equal(t, "xyz", stored.Checksum)
	assert.Equal(t, uint32(5), stored.Turn)
	assert.Equal(t, uint64(1), d.DesyncCount())
}

func TestDetector_EveryMismatchRequestsResync(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "abc"})

	first := d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "xyz"})
	require.NotNil(t, first.Desync)
	require.NotNil(t, first.Resync)
	assert.Equal(t, "abc", first.Resync.LastKnownChecksum)

	second := d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "qqq"})
	require.NotNil(t, second.Desync)
	require.NotNil(t, second.Resync)
	assert.Equal(t, "xyz", second.Resync.LastKnownChecksum)
	assert.True(t, d.ResyncPending())
}

func TestDetector_ResyncRateLimited(t *testing.T) {
	d, clock := newTestDetectorWithCooldown(t, testCooldown)
	d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "a"})

	first := d.OnSnapshot(&message.StateSnapshot{Turn: 2, Checksum: "b"})
	require.NotNil(t, first.Resync)

	second := d.OnSnapshot(&message.StateSnapshot{Turn: 3, Checksum: "c"})
	assert.NotNil(t, second.Desync)
	assert.Nil(t, second.Resync)

	clock.now = clock.now.Add(testCooldown)
	third := d.OnSnapshot(&message.StateSnapshot{Turn: 4, Checksum: "d"})
	assert.NotNil(t, third.Resync)
	assert.Equal(t, "c", third.Resync.LastKnownChecksum)
}

func TestDetector_SyncResponseClearsPendingResync(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "a"})
	d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "b"})
	assert.True(t, d.ResyncPending())

	outcome := d.OnSyncResponse(&message.SyncResponse{Turn: 9, Checksum: "auth", State: []byte("s")})
	assert.True(t, outcome.Applied)
	assert.False(t, d.ResyncPending())

	turn, checksum := d.LastKnown()
	assert.Equal(t, uint32(9), turn)
	assert.Equal(t, "auth", checksum)
}

func TestDetector_MatchingSnapshotClearsPendingResync(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 1, Checksum: "a"})
	d.OnSnapshot(&message.StateSnapshot{Turn: 2, Checksum: "b"})
	require.True(t, d.ResyncPending())

	outcome := d.OnSnapshot(&message.StateSnapshot{Turn: 2, Checksum: "b"})
	assert.Nil(t, outcome.Desync)
	assert.False(t, d.ResyncPending())
}

func TestDetector_Delta(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 3, Checksum: "base"})

	outcome := d.OnDelta(&message.StateDelta{BaseTurn: 3, Turn: 4, Checksum: "next"})
	assert.True(t, outcome.Applied)
	assert.Nil(t, outcome.Desync)
	turn, checksum := d.LastKnown()
	assert.Equal(t, uint32(4), turn)
	assert.Equal(t, "next", checksum)

	outcome = d.OnDelta(&message.StateDelta{BaseTurn: 2, Turn: 5, Checksum: "other"})
	assert.False(t, outcome.Applied)
	require.NotNil(t, outcome.Desync)
	require.NotNil(t, outcome.Resync)
	assert.Equal(t, uint32(4), outcome.Resync.LastKnownTurn)
}

func TestDetector_DeltaWithoutBaseIsDesync(t *testing.T) {
	d, _ := newTestDetector(t)
	outcome := d.OnDelta(&message.StateDelta{BaseTurn: 0, Turn: 1, Checksum: "x"})
	assert.False(t, outcome.Applied)
	assert.NotNil(t, outcome.Desync)
}

func TestDetector_Checksum(t *testing.T) {
	d, _ := newTestDetector(t)
	assert.Equal(t, Outcome{}, d.OnChecksum(&message.Checksum{Turn: 1, Checksum: "a"}))

	d.OnSnapshot(&message.StateSnapshot{Turn: 7, Checksum: "abc"})
	assert.Equal(t, Outcome{}, d.OnChecksum(&message.Checksum{Turn: 7, Checksum: "abc"}))
	assert.Equal(t, Outcome{}, d.OnChecksum(&message.Checksum{Turn: 8, Checksum: "zzz"}))

	outcome := d.OnChecksum(&message.Checksum{Turn: 7, Checksum: "xyz"})
	require.NotNil(t, outcome.Desync)
	assert.Equal(t, uint32(7), outcome.Desync.Turn)
	require.NotNil(t, outcome.Resync)
	assert.Equal(t, "abc", outcome.Resync.LastKnownChecksum)
}

func TestDetector_ManualResyncAndReset(t *testing.T) {
	d, _ := newTestDetector(t)
	d.OnSnapshot(&message.StateSnapshot{Turn: 2, Checksum: "q"})

	req := d.RequestResync()
	assert.Equal(t, &message.SyncRequest{LastKnownTurn: 2, LastKnownChecksum: "q"}, req)
	assert.True(t, d.ResyncPending())

	d.Reset()
	_, ok := d.Stored()
	assert.False(t, ok)
	assert.False(t, d.ResyncPending())
}
