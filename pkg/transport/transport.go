// Package transport moves opaque packets between the client and a game
// server. Implementations are internally concurrent but expose a
// non-blocking API that is safe to call from any goroutine.
package transport

import (
	"context"
	"time"

	"github.com/sessamekesh/turnlink/pkg/message"
)

const (
	DefaultIncomingQueueLength = 256
	DefaultOutgoingQueueLength = 256
	DefaultMaxMessageSize      = 1 << 20
	DefaultWriteTimeout        = 5 * time.Second
)

type Transport interface {
	// Connect blocks until the session is up, ctx is done, or timeout elapses.
	Connect(ctx context.Context, address string, port int, timeout time.Duration) error
	Disconnect()
	IsConnected() bool
	HasPendingMessages() bool

	// SendMessage queues data for delivery and never blocks.
	SendMessage(data []byte, reliability message.Reliability) error

	// ReceiveMessage pops the next inbound packet, if any.
	ReceiveMessage() ([]byte, bool)
}

// queuePush is a non-blocking send that reports whether data was queued.
func queuePush(queue chan []byte, data []byte) bool {
	select {
	case queue <- data:
		return true
	default:
		return false
	}
}

func queuePop(queue chan []byte) ([]byte, bool) {
	if queue == nil {
		return nil, false
	}
	select {
	case data := <-queue:
		return data, true
	default:
		return nil, false
	}
}
