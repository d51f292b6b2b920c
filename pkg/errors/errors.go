package errors

import "fmt"

//
// Wire level (decode / encode)

type Underflow struct {
	MessageName string
	MsgSize     int
	MinimumSize int
}

func (e *Underflow) Error() string {
	return fmt.Sprintf("Message parsing underflowed (type=%s), provided %d bytes, needed at least %d", e.MessageName, e.MsgSize, e.MinimumSize)
}

type InvalidEnumValue struct {
	EnumName string
	IntValue uint8
}

func (e *InvalidEnumValue) Error() string {
	return fmt.Sprintf("Invalid enum value=%d (enum: %s)", e.IntValue, e.EnumName)
}

type UnknownMessageKind struct {
	KindByte uint8
}

func (e *UnknownMessageKind) Error() string {
	return fmt.Sprintf("Unknown message kind byte=%d", e.KindByte)
}

type TrailingBytes struct {
	MessageName string
	Extra       int
}

func (e *TrailingBytes) Error() string {
	return fmt.Sprintf("Message %s has %d unexpected trailing bytes", e.MessageName, e.Extra)
}

type MissingFieldError struct {
	MessageName string
	FieldName   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing field %s in message type %s", e.FieldName, e.MessageName)
}

type FieldTooLong struct {
	MessageName string
	FieldName   string
	Length      int
	MaxLength   int
}

func (e *FieldTooLong) Error() string {
	return fmt.Sprintf("Field %s in message type %s is too long (%d > %d)", e.FieldName, e.MessageName, e.Length, e.MaxLength)
}

// ProtocolError is returned for any packet that cannot be turned into a message.
// It is never fatal to a connection: the packet is dropped and processing continues.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

//
// Connection level

type ConnectionError struct {
	Address string
	Attempt int
	Fatal   bool
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("connection to %s failed permanently after %d attempts: %v", e.Address, e.Attempt, e.Err)
	}
	return fmt.Sprintf("connection to %s failed (attempt %d): %v", e.Address, e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication rejected"
	}
	return fmt.Sprintf("authentication rejected: %s", e.Reason)
}

type DesyncError struct {
	Turn     uint32
	Expected string
	Actual   string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("state desync at turn %d: expected checksum %q, got %q", e.Turn, e.Expected, e.Actual)
}

type InvalidOperation struct {
	Operation string
	State     string
	Reason    string
}

func (e *InvalidOperation) Error() string {
	return fmt.Sprintf("operation %s not allowed in state %s: %s", e.Operation, e.State, e.Reason)
}

//
// Transport level

type NotConnected struct {
	TransportName string
}

func (e *NotConnected) Error() string {
	return fmt.Sprintf("%s transport is not connected", e.TransportName)
}

type QueueFull struct {
	TransportName string
	QueueName     string
}

func (e *QueueFull) Error() string {
	return fmt.Sprintf("%s transport %s queue is full", e.TransportName, e.QueueName)
}
