// Package sequencer enforces the delivery contract of each reliability mode
// on top of a transport that may drop, duplicate, or reorder packets.
//
// Every reliability mode is an independent channel with its own outgoing
// counter and incoming state, so unordered traffic never opens gaps in the
// ordered stream.
package sequencer

import (
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.uber.org/zap"
)

const DefaultMaxPendingOrdered = 256

// IsNewer reports whether a comes after b on the 16-bit sequence ring.
func IsNewer(a, b uint16) bool {
	return int16(a-b) > 0
}

type Verdict uint8

const (
	Verdict_Delivered Verdict = iota
	Verdict_Buffered
	Verdict_DroppedStale
	Verdict_DroppedOverflow
	Verdict_DroppedInvalid
)

func (v Verdict) String() string {
	switch v {
	case Verdict_Delivered:
		return "delivered"
	case Verdict_Buffered:
		return "buffered"
	case Verdict_DroppedStale:
		return "stale"
	case Verdict_DroppedOverflow:
		return "overflow"
	case Verdict_DroppedInvalid:
		return "invalid"
	}
	return "unknown"
}

type channelState struct {
	outgoing uint16

	// Sequenced modes: last accepted value.
	hasLast bool
	last    uint16

	// Ordered mode: next value that may be delivered.
	started  bool
	expected uint16
	pending  map[uint16]*message.Message
}

type SequencerParams struct {
	MaxPendingOrdered int
	Logger            *zap.Logger
}

// Sequencer is owned by a single connection and is not safe for concurrent use.
type Sequencer struct {
	channels   [message.Reliability_NONE]channelState
	maxPending int

	log *zap.Logger
}

func CreateSequencer(params SequencerParams) *Sequencer {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	maxPending := params.MaxPendingOrdered
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingOrdered
	}

	s := &Sequencer{
		maxPending: maxPending,
		log:        logger.With(zap.String("component", "Sequencer")),
	}
	s.Reset()
	return s
}

// Reset forgets all counters and buffered messages. Called whenever a new
// transport session starts, since the peer restarts its counters too.
//
// The first ReliableOrdered message after a reset sets the expected sequence.
// The ordered channel is assumed to open in order: a lower sequence that
// arrives after it is dropped as stale.
func (s *Sequencer) Reset() {
	for i := range s.channels {
		s.channels[i] = channelState{}
	}
	s.channels[message.Reliability_ReliableOrdered].pending = make(map[uint16]*message.Message)
}

// NextOutgoing stamps msg with the next sequence number of its channel.
func (s *Sequencer) NextOutgoing(msg *message.Message) uint16 {
	ch := &s.channels[s.channelIndex(msg.Reliability)]
	seq := ch.outgoing
	ch.outgoing++
	msg.Sequence = seq
	return seq
}

// Admit returns the messages that may be delivered now because msg arrived,
// in delivery order, and what happened to msg itself. The slice is empty when
// msg was dropped or buffered.
func (s *Sequencer) Admit(msg *message.Message) ([]*message.Message, Verdict) {
	switch msg.Reliability {
	case message.Reliability_Unreliable, message.Reliability_Reliable:
		return []*message.Message{msg}, Verdict_Delivered
	case message.Reliability_UnreliableSequenced, message.Reliability_ReliableSequenced:
		return s.admitSequenced(msg)
	case message.Reliability_ReliableOrdered:
		return s.admitOrdered(msg)
	}

	s.log.Warn("Dropping message with unknown reliability", zap.Uint8("reliability", uint8(msg.Reliability)))
	return nil, Verdict_DroppedInvalid
}

func (s *Sequencer) admitSequenced(msg *message.Message) ([]*message.Message, Verdict) {
	ch := &s.channels[msg.Reliability]
	if ch.hasLast && !IsNewer(msg.Sequence, ch.last) {
		s.log.Debug("Dropping stale sequenced message",
			zap.Stringer("kind", msg.Kind),
			zap.Uint16("sequence", msg.Sequence),
			zap.Uint16("last", ch.last))
		return nil, Verdict_DroppedStale
	}

	ch.hasLast = true
	ch.last = msg.Sequence
	return []*message.Message{msg}, Verdict_Delivered
}

func (s *Sequencer) admitOrdered(msg *message.Message) ([]*message.Message, Verdict) {
	ch := &s.channels[message.Reliability_ReliableOrdered]
	if !ch.started {
		ch.started = true
		ch.expected = msg.Sequence
	}

	if msg.Sequence != ch.expected {
		if !IsNewer(msg.Sequence, ch.expected) {
			s.log.Debug("Dropping duplicate ordered message",
				zap.Stringer("kind", msg.Kind),
				zap.Uint16("sequence", msg.Sequence),
				zap.Uint16("expected", ch.expected))
			return nil, Verdict_DroppedStale
		}
		if _, has := ch.pending[msg.Sequence]; has {
			return nil, Verdict_DroppedStale
		}
		if len(ch.pending) >= s.maxPending {
			s.log.Warn("Ordered reorder buffer full, dropping message",
				zap.Stringer("kind", msg.Kind),
				zap.Uint16("sequence", msg.Sequence),
				zap.Uint16("expected", ch.expected),
				zap.Int("buffered", len(ch.pending)))
			return nil, Verdict_DroppedOverflow
		}
		ch.pending[msg.Sequence] = msg
		return nil, Verdict_Buffered
	}

	out := []*message.Message{msg}
	ch.expected++
	for {
		next, has := ch.pending[ch.expected]
		if !has {
			break
		}
		delete(ch.pending, ch.expected)
		out = append(out, next)
		ch.expected++
	}
	return out, Verdict_Delivered
}

// Buffered is the number of ordered messages waiting for a gap to fill.
func (s *Sequencer) Buffered() int {
	return len(s.channels[message.Reliability_ReliableOrdered].pending)
}

// Expected returns the next deliverable ordered sequence, and whether the
// ordered channel has seen any message yet.
func (s *Sequencer) Expected() (uint16, bool) {
	ch := s.channels[message.Reliability_ReliableOrdered]
	return ch.expected, ch.started
}

func (s *Sequencer) channelIndex(r message.Reliability) message.Reliability {
	if !r.IsValid() {
		return message.Reliability_Unreliable
	}
	return r
}
