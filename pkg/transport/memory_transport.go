package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.uber.org/zap"
)

type SentPacket struct {
	Data        []byte
	Reliability message.Reliability
}

type MemoryTransportParams struct {
	IncomingQueueLength int
	Logger              *zap.Logger
}

// MemoryTransport is an in-process Transport. Tests and local tools play the
// server by injecting inbound packets and reading what the client sent.
type MemoryTransport struct {
	incomingLimit int

	mut_state       sync.RWMutex
	connected       bool
	address         string
	port            int
	connectCalls    int
	failingConnects int
	connectErr      error
	inbound         [][]byte
	sent            []SentPacket

	log *zap.Logger
}

func CreateMemoryTransport(params MemoryTransportParams) *MemoryTransport {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	limit := params.IncomingQueueLength
	if limit <= 0 {
		limit = DefaultIncomingQueueLength
	}

	return &MemoryTransport{
		incomingLimit: limit,
		log:           logger.With(zap.String("transport", "Memory")),
	}
}

// FailNextConnects makes the next n Connect calls return err. A negative n
// fails every call until reset with FailNextConnects(0, nil).
func (t *MemoryTransport) FailNextConnects(n int, err error) {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	if err == nil {
		err = fmt.Errorf("connection refused")
	}
	t.failingConnects = n
	t.connectErr = err
}

func (t *MemoryTransport) Connect(ctx context.Context, address string, port int, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	t.connectCalls++
	t.address = address
	t.port = port

	if t.failingConnects != 0 {
		if t.failingConnects > 0 {
			t.failingConnects--
		}
		t.log.Debug("Scripted connect failure", zap.Int("attempt", t.connectCalls))
		return t.connectErr
	}

	t.connected = true
	t.inbound = nil
	return nil
}

func (t *MemoryTransport) Disconnect() {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	t.connected = false
	t.inbound = nil
}

// Drop simulates the network going away without either side closing.
func (t *MemoryTransport) Drop() {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()
	t.connected = false
}

func (t *MemoryTransport) IsConnected() bool {
	t.mut_state.RLock()
	defer t.mut_state.RUnlock()
	return t.connected
}

func (t *MemoryTransport) HasPendingMessages() bool {
	t.mut_state.RLock()
	defer t.mut_state.RUnlock()
	return len(t.inbound) > 0
}

func (t *MemoryTransport) SendMessage(data []byte, reliability message.Reliability) error {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	if !t.connected {
		return &errors.NotConnected{TransportName: "Memory"}
	}
	t.sent = append(t.sent, SentPacket{
		Data:        append([]byte(nil), data...),
		Reliability: reliability,
	})
	return nil
}

func (t *MemoryTransport) ReceiveMessage() ([]byte, bool) {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	if len(t.inbound) == 0 {
		return nil, false
	}
	data := t.inbound[0]
	t.inbound = t.inbound[1:]
	return data, true
}

// Inject queues a packet as if the server had sent it.
func (t *MemoryTransport) Inject(data []byte) error {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()

	if len(t.inbound) >= t.incomingLimit {
		return &errors.QueueFull{TransportName: "Memory", QueueName: "incoming"}
	}
	t.inbound = append(t.inbound, append([]byte(nil), data...))
	return nil
}

func (t *MemoryTransport) Sent() []SentPacket {
	t.mut_state.RLock()
	defer t.mut_state.RUnlock()
	return append([]SentPacket(nil), t.sent...)
}

func (t *MemoryTransport) ClearSent() {
	t.mut_state.Lock()
	defer t.mut_state.Unlock()
	t.sent = nil
}

func (t *MemoryTransport) ConnectCalls() int {
	t.mut_state.RLock()
	defer t.mut_state.RUnlock()
	return t.connectCalls
}

func (t *MemoryTransport) Endpoint() (string, int) {
	t.mut_state.RLock()
	defer t.mut_state.RUnlock()
	return t.address, t.port
}
