package message

import "time"

// Header fields are present on every message, in this order on the wire.
type Header struct {
	Kind        MessageKind
	Reliability Reliability
	SenderId    string
	Timestamp   int64
	Sequence    uint16
}

// Payload is the closed set of per-kind bodies. Only types in this package
// implement it; the serializer switches over the concrete types.
type Payload interface {
	Kind() MessageKind
	isPayload()
}

type Message struct {
	Header
	Payload Payload
}

// New builds a message with the payload's default reliability. The sequence
// number is left at zero; it is assigned when the message is sent.
func New(senderId string, now time.Time, payload Payload) *Message {
	kind := payload.Kind()
	return &Message{
		Header: Header{
			Kind:        kind,
			Reliability: kind.DefaultReliability(),
			SenderId:    senderId,
			Timestamp:   now.UnixMilli(),
		},
		Payload: payload,
	}
}

// WithReliability overrides the delivery mode and returns the same message.
func (m *Message) WithReliability(r Reliability) *Message {
	m.Reliability = r
	return m
}

// CreatedAt converts the wire timestamp back to a time.Time.
func (m *Message) CreatedAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}
