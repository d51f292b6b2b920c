// Package client is the connection state machine of a turn-based game
// client. It owns the transport, serializer, sequencer, quality tracker and
// desync detector of one server connection and is driven by periodic calls to
// Update from the host's loop.
package client

import (
	"context"
	goerrs "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sessamekesh/turnlink/internal"
	"github.com/sessamekesh/turnlink/pkg/desync"
	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/metrics"
	"github.com/sessamekesh/turnlink/pkg/quality"
	"github.com/sessamekesh/turnlink/pkg/sequencer"
	"github.com/sessamekesh/turnlink/pkg/transport"
	utils "github.com/sessamekesh/turnlink/pkg/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	ProtocolVersion = 1

	DefaultConnectTimeout        = 5 * time.Second
	DefaultAuthTimeout           = 10 * time.Second
	DefaultHeartbeatInterval     = time.Second
	DefaultPingTimeout           = 5 * time.Second
	DefaultReconnectDelay        = 2 * time.Second
	DefaultMaxReconnectAttempts  = 5
	DefaultMaxReconnectDelay     = 30 * time.Second
	DefaultQueueProgressInterval = time.Second

	tracerName = "github.com/sessamekesh/turnlink/pkg/client"
)

type ClientParams struct {
	Transport transport.Transport
	Address   string
	Port      int

	// PlayerId identifies this client as the sender of every message. A
	// random id is generated when empty.
	PlayerId    string
	DisplayName string

	// Credential is sent in an Authenticate message after connecting. When
	// empty the client skips authentication.
	Credential string

	ClientVersion string
	Platform      string

	ConnectTimeout        time.Duration
	AuthTimeout           time.Duration
	HeartbeatInterval     time.Duration
	PingTimeout           time.Duration
	QueueProgressInterval time.Duration

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// ReconnectBackoff multiplies the delay after every failed attempt. Values
	// at or below 1 keep the delay fixed.
	ReconnectBackoff  float64
	MaxReconnectDelay time.Duration

	// ResyncCooldown rate limits automatic resync requests. Zero requests a
	// resync on every mismatch.
	ResyncCooldown       time.Duration
	MaxPendingOrdered    int
	QualityCapacity      int
	QualityThresholds    *quality.Thresholds
	MaxOutstandingPings  int
	CompressionThreshold int

	Metrics        *metrics.Metrics
	TracerProvider trace.TracerProvider
	Now            func() time.Time
	Logger         *zap.Logger
}

type connectResult struct {
	attempt uint64
	err     error
}

type reconnectState struct {
	active        bool
	attempts      int
	restoreState  ConnectionState
	delay         time.Duration
	nextAttemptAt time.Time
}

// Client is not safe for concurrent use: every method except Subscribe and
// LatestStatus must be called from the goroutine that calls Update.
type Client struct {
	params ClientParams

	transport  transport.Transport
	serializer *message.MessageSerializer
	sequencer  *sequencer.Sequencer
	quality    *quality.Tracker
	pings      *internal.PingStore
	detector   *desync.Detector
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time

	state      ConnectionState
	playerId   string
	lobby      *LobbyState
	game       *GameState
	match      *PendingMatch
	queue      *queueState
	serverInfo *message.ServerInfo

	connectAttempt   uint64
	connectInFlight  bool
	cancelConnect    context.CancelFunc
	connectResults   chan connectResult
	handshaking      bool
	handshakeStarted time.Time
	reconnect        reconnectState
	lastHeartbeat    time.Time

	mut_subscribers  sync.RWMutex
	subscribers      []subscriber
	nextSubscriberId uint64

	status atomic.Pointer[Status]

	log *zap.Logger
}

func CreateClient(params ClientParams) (*Client, error) {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Transport == nil {
		return nil, &errors.MissingFieldError{MessageName: "ClientParams", FieldName: "Transport"}
	}
	applyDefaults(&params)

	serializer, err := message.CreateMessageSerializer(message.MessageSerializerParams{
		CompressionThreshold: params.CompressionThreshold,
	})
	if err != nil {
		return nil, err
	}

	playerId := params.PlayerId
	if playerId == "" {
		playerId = utils.CreateRandomstringGenerator(params.Now().UnixNano()).GetRandomString(12)
	}
	if params.DisplayName == "" {
		params.DisplayName = playerId
	}

	tracerProvider := params.TracerProvider
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}

	log := logger.With(zap.String("component", "Client"), zap.String("playerId", playerId))

	c := &Client{
		params:     params,
		transport:  params.Transport,
		serializer: serializer,
		sequencer: sequencer.CreateSequencer(sequencer.SequencerParams{
			MaxPendingOrdered: params.MaxPendingOrdered,
			Logger:            logger,
		}),
		quality: quality.CreateTracker(quality.TrackerParams{
			Capacity:   params.QualityCapacity,
			Thresholds: params.QualityThresholds,
		}),
		pings: internal.CreatePingStore(params.MaxOutstandingPings),
		detector: desync.CreateDetector(desync.DetectorParams{
			ResyncCooldown: params.ResyncCooldown,
			Now:            params.Now,
			Logger:         logger,
		}),
		metrics:        params.Metrics,
		tracer:         tracerProvider.Tracer(tracerName),
		now:            params.Now,
		state:          ConnectionState_Disconnected,
		playerId:       playerId,
		connectResults: make(chan connectResult, 16),
		log:            log,
	}
	c.publishStatus()
	return c, nil
}

func applyDefaults(params *ClientParams) {
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.ConnectTimeout <= 0 {
		params.ConnectTimeout = DefaultConnectTimeout
	}
	if params.AuthTimeout <= 0 {
		params.AuthTimeout = DefaultAuthTimeout
	}
	if params.HeartbeatInterval <= 0 {
		params.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if params.PingTimeout <= 0 {
		params.PingTimeout = DefaultPingTimeout
	}
	if params.QueueProgressInterval <= 0 {
		params.QueueProgressInterval = DefaultQueueProgressInterval
	}
	if params.ReconnectDelay <= 0 {
		params.ReconnectDelay = DefaultReconnectDelay
	}
	if params.MaxReconnectAttempts <= 0 {
		params.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if params.ReconnectBackoff < 1 {
		params.ReconnectBackoff = 1
	}
	if params.MaxReconnectDelay <= 0 {
		params.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
}

// Connect starts connecting to the configured server. The result arrives
// through Update; a failed first attempt enters the reconnect loop.
func (c *Client) Connect() error {
	if c.state != ConnectionState_Disconnected {
		return c.invalid("Connect", "already connected or connecting")
	}

	c.log.Info("Connecting", zap.String("address", c.params.Address), zap.Int("port", c.params.Port))
	c.reconnect = reconnectState{}
	c.setState(ConnectionState_Connecting)
	c.startConnectAttempt()
	c.publishStatus()
	return nil
}

// Disconnect closes the session and stops any connect or reconnect in
// progress. Lobby, match and game projections are cleared.
func (c *Client) Disconnect() {
	if c.state == ConnectionState_Disconnected {
		return
	}

	if c.handshakeDone() && c.transport.IsConnected() {
		c.send(&message.Disconnect{Reason: "client disconnect"})
	}
	c.shutdown()
	c.setState(ConnectionState_Disconnected)
	c.emit(Disconnected{Reason: "client disconnect"})
	c.publishStatus()
}

// Close disconnects and resets every piece of per-connection state,
// including statistics and subscribers.
func (c *Client) Close() {
	c.Disconnect()

	c.sequencer.Reset()
	c.quality.Reset()
	c.detector.Reset()
	c.pings.Clear()
	c.serverInfo = nil

	c.mut_subscribers.Lock()
	c.subscribers = nil
	c.mut_subscribers.Unlock()
	c.publishStatus()
}

// shutdown tears the session down without touching the state field.
func (c *Client) shutdown() {
	if c.cancelConnect != nil {
		c.cancelConnect()
		c.cancelConnect = nil
	}
	c.connectInFlight = false
	c.connectAttempt++
	c.handshaking = false
	c.reconnect = reconnectState{}
	c.transport.Disconnect()
	c.pings.Clear()
	c.clearProjections()
}

func (c *Client) clearProjections() {
	c.lobby = nil
	c.game = nil
	c.match = nil
	c.queue = nil
	c.detector.Reset()
}

// Update runs one tick of the state machine. Call it regularly, e.g. once per
// frame, from the goroutine that owns the client.
func (c *Client) Update() {
	now := c.now()

	c.pollConnectResults()
	c.checkTransportLoss()
	c.checkAuthTimeout(now)
	c.driveReconnect(now)

	if c.sessionUp() {
		c.drainInbound()
	}
	if c.sessionUp() {
		c.expirePings(now)
		c.sendHeartbeat(now)
	}
	c.emitQueueProgress(now)

	c.publishStatus()
}

func (c *Client) State() ConnectionState {
	return c.state
}

func (c *Client) PlayerId() string {
	return c.playerId
}

func (c *Client) Lobby() (LobbyState, bool) {
	if c.lobby == nil {
		return LobbyState{}, false
	}
	return c.lobby.clone(), true
}

func (c *Client) Game() (GameState, bool) {
	if c.game == nil {
		return GameState{}, false
	}
	return c.game.clone(), true
}

func (c *Client) PendingMatch() (PendingMatch, bool) {
	if c.match == nil {
		return PendingMatch{}, false
	}
	return c.match.clone(), true
}

func (c *Client) ServerInfo() (message.ServerInfo, bool) {
	if c.serverInfo == nil {
		return message.ServerInfo{}, false
	}
	return *c.serverInfo, true
}

func (c *Client) Quality() quality.Snapshot {
	return c.quality.Snapshot()
}

func (c *Client) IsHost() bool {
	return c.lobby != nil && c.lobby.IsHost(c.playerId)
}

func (c *Client) setState(next ConnectionState) {
	if next == c.state {
		return
	}
	prev := c.state
	c.state = next
	c.metrics.SetConnectionState(int(next))
	c.log.Debug("State changed", zap.Stringer("from", prev), zap.Stringer("to", next))
	c.emit(StateChanged{From: prev, To: next})
}

// sessionUp reports whether a transport session exists that inbound traffic
// should be read from.
func (c *Client) sessionUp() bool {
	return c.state != ConnectionState_Disconnected &&
		!c.connectInFlight &&
		(c.handshaking || c.handshakeDone()) &&
		c.transport.IsConnected()
}

func (c *Client) handshakeDone() bool {
	return c.state.IsEstablished()
}

func (c *Client) invalid(operation, reason string) error {
	return &errors.InvalidOperation{
		Operation: operation,
		State:     c.state.String(),
		Reason:    reason,
	}
}

// send builds a message with the payload's default reliability and hands it
// to the transport.
func (c *Client) send(payload message.Payload) error {
	return c.sendMessage(message.New(c.playerId, c.now(), payload))
}

func (c *Client) sendMessage(msg *message.Message) error {
	c.sequencer.NextOutgoing(msg)
	data, err := c.serializer.Serialize(msg)
	if err != nil {
		c.log.Error("Failed to encode outgoing message", zap.Stringer("kind", msg.Kind), zap.Error(err))
		return err
	}

	if err := c.transport.SendMessage(data, msg.Reliability); err != nil {
		var full *errors.QueueFull
		if goerrs.As(err, &full) {
			c.log.Warn("Transport queue full, message not sent", zap.Stringer("kind", msg.Kind))
		} else {
			c.log.Debug("Transport refused message", zap.Stringer("kind", msg.Kind), zap.Error(err))
		}
		return err
	}

	c.metrics.MessageSent(msg.Kind)
	return nil
}
