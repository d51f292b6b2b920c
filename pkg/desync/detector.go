// Package desync compares authoritative snapshots, deltas and checksums with
// the last state the client accepted and decides when to ask for a resync.
package desync

import (
	"time"

	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.uber.org/zap"
)

// Outcome tells the caller what to do after feeding one sync message in.
type Outcome struct {
	// Desync is set when the message disagreed with the stored state.
	Desync *errors.DesyncError

	// Resync is the request to send, when one is due.
	Resync *message.SyncRequest

	// Applied is set when the message replaced or advanced the stored state.
	Applied bool
}

type Stored struct {
	Turn     uint32
	Checksum string
	State    []byte
}

type DetectorParams struct {
	// ResyncCooldown holds back automatic requests while an earlier one is
	// still unanswered and younger than the cooldown. Zero sends a request
	// on every mismatch.
	ResyncCooldown time.Duration
	Now            func() time.Time
	Logger         *zap.Logger
}

// Detector is owned by the client tick and is not safe for concurrent use.
type Detector struct {
	cooldown time.Duration
	now      func() time.Time

	hasState bool
	stored   Stored

	resyncPending     bool
	resyncRequestedAt time.Time
	desyncCount       uint64

	log *zap.Logger
}

func CreateDetector(params DetectorParams) *Detector {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	cooldown := params.ResyncCooldown
	if cooldown < 0 {
		cooldown = 0
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Detector{
		cooldown: cooldown,
		now:      now,
		log:      logger.With(zap.String("component", "DesyncDetector")),
	}
}

// OnSnapshot checks an authoritative snapshot against the stored checksum and
// then stores it, whether or not they matched.
func (d *Detector) OnSnapshot(snapshot *message.StateSnapshot) Outcome {
	outcome := Outcome{Applied: true}
	if d.hasState && snapshot.Checksum != d.stored.Checksum {
		outcome.Desync = d.desync(snapshot.Turn, d.stored.Checksum, snapshot.Checksum)
		outcome.Resync = d.autoResync()
	} else if d.hasState {
		d.resyncPending = false
	}

	d.store(snapshot.Turn, snapshot.Checksum, snapshot.State)
	return outcome
}

// OnSyncResponse replaces the stored state without comparison.
func (d *Detector) OnSyncResponse(response *message.SyncResponse) Outcome {
	d.store(response.Turn, response.Checksum, response.State)
	d.resyncPending = false
	d.log.Info("Applied sync response", zap.Uint32("turn", response.Turn))
	return Outcome{Applied: true}
}

// OnDelta advances the stored turn and checksum when the delta builds on the
// stored turn. A delta against any other base cannot be applied.
func (d *Detector) OnDelta(delta *message.StateDelta) Outcome {
	if !d.hasState || delta.BaseTurn != d.stored.Turn {
		expected := ""
		if d.hasState {
			expected = d.stored.Checksum
		}
		return Outcome{
			Desync: d.desync(delta.Turn, expected, delta.Checksum),
			Resync: d.autoResync(),
		}
	}

	d.stored.Turn = delta.Turn
	d.stored.Checksum = delta.Checksum
	return Outcome{Applied: true}
}

// OnChecksum compares a bare checksum for the stored turn. Checksums for other
// turns say nothing about the stored state and are ignored.
func (d *Detector) OnChecksum(checksum *message.Checksum) Outcome {
	if !d.hasState || checksum.Turn != d.stored.Turn {
		return Outcome{}
	}
	if checksum.Checksum == d.stored.Checksum {
		d.resyncPending = false
		return Outcome{}
	}

	return Outcome{
		Desync: d.desync(checksum.Turn, d.stored.Checksum, checksum.Checksum),
		Resync: d.autoResync(),
	}
}

// RequestResync builds a resync request on demand. It bypasses the cooldown
// but still marks a request as outstanding.
func (d *Detector) RequestResync() *message.SyncRequest {
	d.resyncPending = true
	d.resyncRequestedAt = d.now()
	return d.syncRequest()
}

func (d *Detector) Stored() (Stored, bool) {
	if !d.hasState {
		return Stored{}, false
	}
	out := d.stored
	out.State = append([]byte(nil), d.stored.State...)
	return out, true
}

// LastKnown is the turn and checksum a resync request would carry.
func (d *Detector) LastKnown() (uint32, string) {
	return d.stored.Turn, d.stored.Checksum
}

// ResyncPending reports an unanswered request. With a cooldown set, a request
// older than the cooldown no longer counts.
func (d *Detector) ResyncPending() bool {
	if !d.resyncPending {
		return false
	}
	return d.cooldown == 0 || d.now().Sub(d.resyncRequestedAt) < d.cooldown
}

func (d *Detector) DesyncCount() uint64 {
	return d.desyncCount
}

func (d *Detector) Reset() {
	d.hasState = false
	d.stored = Stored{}
	d.resyncPending = false
	d.resyncRequestedAt = time.Time{}
}

func (d *Detector) store(turn uint32, checksum string, state []byte) {
	d.hasState = true
	d.stored = Stored{
		Turn:     turn,
		Checksum: checksum,
		State:    state,
	}
}

func (d *Detector) desync(turn uint32, expected, actual string) *errors.DesyncError {
	d.desyncCount++
	d.log.Warn("State desync detected",
		zap.Uint32("turn", turn),
		zap.String("expected", expected),
		zap.String("actual", actual))
	return &errors.DesyncError{
		Turn:     turn,
		Expected: expected,
		Actual:   actual,
	}
}

// autoResync returns a request unless a cooldown is set and an earlier request
// is still inside it.
func (d *Detector) autoResync() *message.SyncRequest {
	if d.cooldown > 0 && d.ResyncPending() {
		d.log.Debug("Resync already outstanding, not requesting another")
		return nil
	}
	return d.RequestResync()
}

func (d *Detector) syncRequest() *message.SyncRequest {
	return &message.SyncRequest{
		LastKnownTurn:     d.stored.Turn,
		LastKnownChecksum: d.stored.Checksum,
	}
}
