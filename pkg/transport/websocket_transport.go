package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	utils "github.com/sessamekesh/turnlink/pkg/util"
	"go.uber.org/zap"
)

type WebsocketTransportParams struct {
	// Scheme is "ws" or "wss". Defaults to "ws".
	Scheme string
	Path   string

	IncomingQueueLength int
	OutgoingQueueLength int
	MaxReadMessageSize  int64
	WriteTimeout        time.Duration

	Logger *zap.Logger
}

type wsSession struct {
	conn     *websocket.Conn
	incoming chan []byte
	outgoing chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *zap.Logger
}

// WebsocketTransport carries every reliability mode over one WebSocket, which
// already delivers in order.
type WebsocketTransport struct {
	params WebsocketTransportParams

	mut_session sync.RWMutex
	session     *wsSession

	log       *zap.Logger
	stringGen *utils.RandomStringGenerator
}

func CreateWebsocketTransport(params WebsocketTransportParams) *WebsocketTransport {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Scheme == "" {
		params.Scheme = "ws"
	}
	if params.Path == "" {
		params.Path = "/"
	}
	if params.IncomingQueueLength <= 0 {
		params.IncomingQueueLength = DefaultIncomingQueueLength
	}
	if params.OutgoingQueueLength <= 0 {
		params.OutgoingQueueLength = DefaultOutgoingQueueLength
	}
	if params.MaxReadMessageSize <= 0 {
		params.MaxReadMessageSize = DefaultMaxMessageSize
	}
	if params.WriteTimeout <= 0 {
		params.WriteTimeout = DefaultWriteTimeout
	}

	return &WebsocketTransport{
		params:    params,
		log:       logger.With(zap.String("transport", "WebSocket")),
		stringGen: utils.CreateRandomstringGenerator(time.Now().UnixMicro()),
	}
}

func (ws *WebsocketTransport) url(address string, port int) string {
	u := url.URL{
		Scheme: ws.params.Scheme,
		Host:   net.JoinHostPort(address, strconv.Itoa(port)),
		Path:   ws.params.Path,
	}
	return u.String()
}

func (ws *WebsocketTransport) Connect(ctx context.Context, address string, port int, timeout time.Duration) error {
	ws.Disconnect()

	target := ws.url(address, port)
	log := ws.log.With(zap.String("wsConnId", ws.stringGen.GetRandomString(6)), zap.String("url", target))

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}
	conn, _, err := dialer.DialContext(dialCtx, target, nil)
	if err != nil {
		log.Warn("WebSocket dial failed", zap.Error(err))
		return fmt.Errorf("dialing %s: %w", target, err)
	}
	if ctx.Err() != nil {
		conn.Close()
		log.Info("Connect cancelled after dial, discarding connection")
		return ctx.Err()
	}
	conn.SetReadLimit(ws.params.MaxReadMessageSize)

	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	session := &wsSession{
		conn:     conn,
		incoming: make(chan []byte, ws.params.IncomingQueueLength),
		outgoing: make(chan []byte, ws.params.OutgoingQueueLength),
		ctx:      sessionCtx,
		cancel:   sessionCancel,
		log:      log,
	}

	session.wg.Add(2)
	go ws.readLoop(session)
	go ws.writeLoop(session)

	ws.mut_session.Lock()
	previous := ws.session
	ws.session = session
	ws.mut_session.Unlock()

	// An overlapping Connect may have stored its session while this one dialed.
	if previous != nil {
		previous.close()
	}

	log.Info("WebSocket connected")
	return nil
}

func (ws *WebsocketTransport) readLoop(s *wsSession) {
	defer s.wg.Done()
	defer s.cancel()

	expectedCloseErrors := []int{websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived}
	for {
		msgType, payload, msgErr := s.conn.ReadMessage()
		if msgErr != nil {
			if s.ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(msgErr, expectedCloseErrors...) {
				s.log.Info("Server closed WebSocket", zap.Error(msgErr))
				return
			}
			if strings.Contains(msgErr.Error(), "use of closed network connection") {
				s.log.Info("Closing connection, probably from client-initiated disconnect")
				return
			}
			s.log.Warn("Unexpected WebSocket read error", zap.Error(msgErr))
			return
		}

		if msgType != websocket.BinaryMessage {
			s.log.Info("Received non-binary message, ignoring", zap.Int("size", len(payload)))
			continue
		}

		if !queuePush(s.incoming, payload) {
			s.log.Warn("Incoming queue full, dropping packet", zap.Int("size", len(payload)))
		}
	}
}

func (ws *WebsocketTransport) writeLoop(s *wsSession) {
	defer s.wg.Done()
	defer s.cancel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(ws.params.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.log.Warn("WebSocket write failed", zap.Error(err))
				s.conn.Close()
				return
			}
		}
	}
}

func (ws *WebsocketTransport) Disconnect() {
	ws.mut_session.Lock()
	session := ws.session
	ws.session = nil
	ws.mut_session.Unlock()

	if session == nil {
		return
	}
	session.close()
}

func (s *wsSession) close() {
	s.cancel()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
		time.Now().Add(time.Second))
	s.conn.Close()
	s.wg.Wait()
	s.log.Info("WebSocket disconnected")
}

func (ws *WebsocketTransport) current() *wsSession {
	ws.mut_session.RLock()
	defer ws.mut_session.RUnlock()
	return ws.session
}

func (ws *WebsocketTransport) IsConnected() bool {
	s := ws.current()
	return s != nil && s.ctx.Err() == nil
}

func (ws *WebsocketTransport) HasPendingMessages() bool {
	s := ws.current()
	return s != nil && len(s.incoming) > 0
}

func (ws *WebsocketTransport) SendMessage(data []byte, reliability message.Reliability) error {
	s := ws.current()
	if s == nil || s.ctx.Err() != nil {
		return &errors.NotConnected{TransportName: "WebSocket"}
	}
	if !queuePush(s.outgoing, data) {
		return &errors.QueueFull{TransportName: "WebSocket", QueueName: "outgoing"}
	}
	return nil
}

func (ws *WebsocketTransport) ReceiveMessage() ([]byte, bool) {
	s := ws.current()
	if s == nil {
		return nil, false
	}
	return queuePop(s.incoming)
}
