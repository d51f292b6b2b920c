package sequencer

import (
	"testing"
	"time"

	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestSequencer(t *testing.T) *Sequencer {
	return CreateSequencer(SequencerParams{Logger: zaptest.NewLogger(t)})
}

func msgWith(reliability message.Reliability, seq uint16) *message.Message {
	m := message.New("server", time.UnixMilli(0), &message.Checksum{Turn: uint32(seq)}).WithReliability(reliability)
	m.Sequence = seq
	return m
}

func sequencesOf(msgs []*message.Message) []uint16 {
	out := []uint16{}
	for _, m := range msgs {
		out = append(out, m.Sequence)
	}
	return out
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		a, b  uint16
		newer bool
	}{
		{a: 2, b: 1, newer: true},
		{a: 1, b: 2, newer: false},
		{a: 5, b: 5, newer: false},
		{a: 2, b: 65535, newer: true},
		{a: 0, b: 65535, newer: true},
		{a: 65535, b: 2, newer: false},
		{a: 32767, b: 0, newer: true},
		{a: 32768, b: 0, newer: false},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.newer, IsNewer(tt.a, tt.b), "IsNewer(%d, %d)", tt.a, tt.b)
	}
}

func TestSequencer_OrderedReleasesContiguousRun(t *testing.T) {
	s := newTestSequencer(t)
	delivered := []uint16{}

	out, verdict := s.Admit(msgWith(message.Reliability_ReliableOrdered, 5))
	assert.Equal(t, Verdict_Delivered, verdict)
	delivered = append(delivered, sequencesOf(out)...)

	out, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 7))
	assert.Equal(t, Verdict_Buffered, verdict)
	assert.Empty(t, out)
	assert.Equal(t, 1, s.Buffered())

	out, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 6))
	assert.Equal(t, Verdict_Delivered, verdict)
	delivered = append(delivered, sequencesOf(out)...)

	assert.Equal(t, []uint16{5, 6, 7}, delivered)
	assert.Equal(t, 0, s.Buffered())

	expected, started := s.Expected()
	assert.True(t, started)
	assert.Equal(t, uint16(8), expected)
}

func TestSequencer_OrderedDropsDuplicates(t *testing.T) {
	s := newTestSequencer(t)
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 10))
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 12))

	out, verdict := s.Admit(msgWith(message.Reliability_ReliableOrdered, 10))
	assert.Empty(t, out)
	assert.Equal(t, Verdict_DroppedStale, verdict)

	out, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 12))
	assert.Empty(t, out)
	assert.Equal(t, Verdict_DroppedStale, verdict)
	assert.Equal(t, 1, s.Buffered())
}

func TestSequencer_FirstOrderedArrivalSetsExpected(t *testing.T) {
	s := newTestSequencer(t)

	out, verdict := s.Admit(msgWith(message.Reliability_ReliableOrdered, 1))
	assert.Equal(t, []uint16{1}, sequencesOf(out))
	assert.Equal(t, Verdict_Delivered, verdict)

	out, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 0))
	assert.Empty(t, out)
	assert.Equal(t, Verdict_DroppedStale, verdict)

	expected, started := s.Expected()
	require.True(t, started)
	assert.Equal(t, uint16(2), expected)
}

func TestSequencer_OrderedAcrossWraparound(t *testing.T) {
	s := newTestSequencer(t)
	delivered := []uint16{}
	for _, seq := range []uint16{65534, 0, 65535, 1} {
		out, _ := s.Admit(msgWith(message.Reliability_ReliableOrdered, seq))
		delivered = append(delivered, sequencesOf(out)...)
	}
	assert.Equal(t, []uint16{65534, 65535, 0, 1}, delivered)
}

func TestSequencer_OrderedBufferBounded(t *testing.T) {
	s := CreateSequencer(SequencerParams{MaxPendingOrdered: 2, Logger: zaptest.NewLogger(t)})
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 0))

	_, verdict := s.Admit(msgWith(message.Reliability_ReliableOrdered, 2))
	assert.Equal(t, Verdict_Buffered, verdict)
	_, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 3))
	assert.Equal(t, Verdict_Buffered, verdict)
	_, verdict = s.Admit(msgWith(message.Reliability_ReliableOrdered, 4))
	assert.Equal(t, Verdict_DroppedOverflow, verdict)

	out, _ := s.Admit(msgWith(message.Reliability_ReliableOrdered, 1))
	assert.Equal(t, []uint16{1, 2, 3}, sequencesOf(out))
}

func TestSequencer_SequencedAdmitsOnlyNewer(t *testing.T) {
	for _, reliability := range []message.Reliability{message.Reliability_UnreliableSequenced, message.Reliability_ReliableSequenced} {
		t.Run(reliability.String(), func(t *testing.T) {
			s := newTestSequencer(t)
			delivered := []uint16{}
			for _, seq := range []uint16{3, 1, 5, 4} {
				out, _ := s.Admit(msgWith(reliability, seq))
				delivered = append(delivered, sequencesOf(out)...)
			}
			assert.Equal(t, []uint16{3, 5}, delivered)
		})
	}
}

func TestSequencer_SequencedWraparound(t *testing.T) {
	s := newTestSequencer(t)
	out, _ := s.Admit(msgWith(message.Reliability_UnreliableSequenced, 65535))
	require.Len(t, out, 1)

	out, verdict := s.Admit(msgWith(message.Reliability_UnreliableSequenced, 2))
	assert.Equal(t, Verdict_Delivered, verdict)
	assert.Equal(t, []uint16{2}, sequencesOf(out))
}

func TestSequencer_UnorderedModesAlwaysDeliver(t *testing.T) {
	for _, reliability := range []message.Reliability{message.Reliability_Unreliable, message.Reliability_Reliable} {
		s := newTestSequencer(t)
		delivered := []uint16{}
		for _, seq := range []uint16{9, 3, 3, 1} {
			out, verdict := s.Admit(msgWith(reliability, seq))
			assert.Equal(t, Verdict_Delivered, verdict)
			delivered = append(delivered, sequencesOf(out)...)
		}
		assert.Equal(t, []uint16{9, 3, 3, 1}, delivered)
	}
}

func TestSequencer_ChannelsAreIndependent(t *testing.T) {
	s := newTestSequencer(t)
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 0))

	// Sequenced traffic at a far-ahead number must not disturb ordered state.
	s.Admit(msgWith(message.Reliability_ReliableSequenced, 400))

	out, _ := s.Admit(msgWith(message.Reliability_ReliableOrdered, 1))
	assert.Equal(t, []uint16{1}, sequencesOf(out))
}

func TestSequencer_NextOutgoingPerChannel(t *testing.T) {
	s := newTestSequencer(t)

	ordered := []uint16{}
	for i := 0; i < 3; i++ {
		ordered = append(ordered, s.NextOutgoing(msgWith(message.Reliability_ReliableOrdered, 0)))
	}
	unreliable := s.NextOutgoing(msgWith(message.Reliability_Unreliable, 0))

	assert.Equal(t, []uint16{0, 1, 2}, ordered)
	assert.Equal(t, uint16(0), unreliable)

	m := msgWith(message.Reliability_ReliableOrdered, 0)
	s.NextOutgoing(m)
	assert.Equal(t, uint16(3), m.Sequence)
}

func TestSequencer_OutgoingWraps(t *testing.T) {
	s := newTestSequencer(t)
	var last uint16
	for i := 0; i < 65537; i++ {
		last = s.NextOutgoing(msgWith(message.Reliability_Reliable, 0))
	}
	assert.Equal(t, uint16(0), last)
}

func TestSequencer_ResetClearsState(t *testing.T) {
	s := newTestSequencer(t)
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 100))
	s.Admit(msgWith(message.Reliability_ReliableOrdered, 102))
	s.Admit(msgWith(message.Reliability_UnreliableSequenced, 50))
	s.NextOutgoing(msgWith(message.Reliability_ReliableOrdered, 0))

	s.Reset()

	assert.Equal(t, 0, s.Buffered())
	_, started := s.Expected()
	assert.False(t, started)

	out, _ := s.Admit(msgWith(message.Reliability_UnreliableSequenced, 1))
	assert.Len(t, out, 1)

	m := msgWith(message.Reliability_ReliableOrdered, 0)
	assert.Equal(t, uint16(0), s.NextOutgoing(m))
}
