package client

import (
	"context"
	"fmt"
	"time"

	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func (c *Client) address() string {
	return fmt.Sprintf("%s:%d", c.params.Address, c.params.Port)
}

// startConnectAttempt dials in a goroutine. The result is tagged with the
// attempt id so Update can discard results of attempts that were cancelled.
func (c *Client) startConnectAttempt() {
	c.connectAttempt++
	attempt := c.connectAttempt
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelConnect = cancel
	c.connectInFlight = true

	ctx, span := c.tracer.Start(ctx, "turnlink.connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("turnlink.address", c.address()),
			attribute.Int("turnlink.reconnect_attempt", c.reconnect.attempts),
		))

	tr := c.transport
	address, port, timeout := c.params.Address, c.params.Port, c.params.ConnectTimeout
	results := c.connectResults
	go func() {
		defer span.End()
		err := tr.Connect(ctx, address, port, timeout)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		results <- connectResult{attempt: attempt, err: err}
	}()
}

func (c *Client) pollConnectResults() {
	for {
		select {
		case res := <-c.connectResults:
			c.onConnectResult(res)
		default:
			return
		}
	}
}

func (c *Client) onConnectResult(res connectResult) {
	if res.attempt != c.connectAttempt {
		c.log.Debug("Discarding stale connect result", zap.Uint64("attempt", res.attempt), zap.Error(res.err))
		if res.err == nil && !c.connectInFlight && c.state == ConnectionState_Disconnected {
			c.transport.Disconnect()
		}
		return
	}

	c.connectInFlight = false
	if c.cancelConnect != nil {
		c.cancelConnect()
		c.cancelConnect = nil
	}

	if res.err != nil {
		c.onAttemptFailed(res.err)
		return
	}
	c.onTransportUp()
}

// onTransportUp starts the handshake on a fresh transport session.
func (c *Client) onTransportUp() {
	c.log.Info("Transport connected", zap.String("address", c.address()))
	c.sequencer.Reset()
	c.pings.Clear()
	c.lastHeartbeat = time.Time{}

	c.send(&message.Connect{
		DisplayName:     c.params.DisplayName,
		ProtocolVersion: ProtocolVersion,
	})
	if c.params.ClientVersion != "" || c.params.Platform != "" {
		c.send(&message.ClientInfo{
			ClientVersion: c.params.ClientVersion,
			Platform:      c.params.Platform,
		})
	}

	if c.params.Credential == "" {
		c.onHandshakeComplete()
		return
	}

	c.handshaking = true
	c.handshakeStarted = c.now()
	if !c.reconnect.active {
		c.setState(ConnectionState_Authenticating)
	}
	c.send(&message.Authenticate{Token: c.params.Credential})
}

func (c *Client) onHandshakeComplete() {
	c.handshaking = false

	if !c.reconnect.active {
		c.setState(ConnectionState_Connected)
		c.log.Info("Connected")
		c.emit(Connected{PlayerId: c.playerId})
		return
	}

	restore := c.reconnect.restoreState
	attempts := c.reconnect.attempts
	c.reconnect = reconnectState{}
	c.log.Info("Reconnected", zap.Stringer("restoring", restore), zap.Int("attempts", attempts))

	// Fall back to Connected when the projection the old state needs is gone.
	if (restore == ConnectionState_InLobby && c.lobby == nil) ||
		(restore == ConnectionState_InGame && c.game == nil) ||
		(restore == ConnectionState_InMatchmaking && c.queue == nil) {
		restore = ConnectionState_Connected
	}
	c.setState(restore)

	if c.lobby != nil {
		c.send(&message.JoinLobby{LobbyId: c.lobby.LobbyId, Rejoin: true})
	}
	if restore == ConnectionState_InMatchmaking {
		request := c.queue.request
		c.send(&request)
	}
	if restore == ConnectionState_InGame {
		c.requestResync("reconnect")
	}

	c.emit(Connected{PlayerId: c.playerId, Reconnected: true})
}

// onAttemptFailed handles a connect or handshake attempt that did not produce
// a usable session.
func (c *Client) onAttemptFailed(cause error) {
	c.handshaking = false
	c.transport.Disconnect()

	if !c.reconnect.active {
		c.log.Warn("Connection attempt failed", zap.String("address", c.address()), zap.Error(cause))
		c.beginReconnect(ConnectionState_Connected, cause)
		return
	}

	c.log.Warn("Reconnect attempt failed",
		zap.Int("attempt", c.reconnect.attempts),
		zap.Int("maxAttempts", c.params.MaxReconnectAttempts),
		zap.Error(cause))

	if c.reconnect.attempts >= c.params.MaxReconnectAttempts {
		c.failConnection(cause)
		return
	}
	c.scheduleReconnect(cause)
}

// beginReconnect enters the reconnect loop. restore is the state to return to
// once a new session completes its handshake.
func (c *Client) beginReconnect(restore ConnectionState, cause error) {
	c.transport.Disconnect()
	c.handshaking = false
	c.pings.Clear()
	c.reconnect = reconnectState{
		active:       true,
		restoreState: restore,
	}
	c.setState(ConnectionState_Reconnecting)
	c.scheduleReconnect(cause)
}

func (c *Client) scheduleReconnect(cause error) {
	delay := c.params.ReconnectDelay
	if c.reconnect.delay > 0 {
		delay = time.Duration(float64(c.reconnect.delay) * c.params.ReconnectBackoff)
		if delay > c.params.MaxReconnectDelay {
			delay = c.params.MaxReconnectDelay
		}
	}
	c.reconnect.delay = delay
	c.reconnect.nextAttemptAt = c.now().Add(delay)

	c.emit(Reconnecting{
		Attempt:     c.reconnect.attempts + 1,
		MaxAttempts: c.params.MaxReconnectAttempts,
		Delay:       delay,
		Cause:       cause,
	})
}

func (c *Client) driveReconnect(now time.Time) {
	if c.state != ConnectionState_Reconnecting || !c.reconnect.active {
		return
	}
	if c.connectInFlight || c.handshaking {
		return
	}
	if now.Before(c.reconnect.nextAttemptAt) {
		return
	}

	c.reconnect.attempts++
	c.metrics.ReconnectAttempt()
	c.log.Info("Reconnecting", zap.Int("attempt", c.reconnect.attempts), zap.Int("maxAttempts", c.params.MaxReconnectAttempts))
	c.startConnectAttempt()
}

func (c *Client) failConnection(cause error) {
	err := &errors.ConnectionError{
		Address: c.address(),
		Attempt: c.reconnect.attempts,
		Fatal:   true,
		Err:     cause,
	}
	c.log.Error("Giving up on connection", zap.Error(err))

	c.shutdown()
	c.setState(ConnectionState_Disconnected)
	c.emit(ConnectionFailed{Err: err})
}

func (c *Client) checkTransportLoss() {
	if c.connectInFlight || c.transport.IsConnected() {
		return
	}

	if c.handshaking {
		c.onAttemptFailed(fmt.Errorf("transport lost during handshake"))
		return
	}

	switch c.state {
	case ConnectionState_Disconnected, ConnectionState_Connecting, ConnectionState_Reconnecting:
		return
	}

	c.log.Warn("Transport lost", zap.Stringer("state", c.state))
	c.beginReconnect(c.state, fmt.Errorf("transport lost while %s", c.state))
}

func (c *Client) checkAuthTimeout(now time.Time) {
	if !c.handshaking || now.Sub(c.handshakeStarted) < c.params.AuthTimeout {
		return
	}
	c.onAttemptFailed(fmt.Errorf("authentication timed out after %s", c.params.AuthTimeout))
}

// failAuth ends the session without retrying.
func (c *Client) failAuth(reason string) {
	err := &errors.AuthError{Reason: reason}
	c.log.Warn("Authentication rejected", zap.String("reason", reason))

	c.shutdown()
	c.setState(ConnectionState_Disconnected)
	c.emit(AuthFailed{Err: err})
}

// serverDisconnect handles a server-initiated close. The client does not try
// to reconnect.
func (c *Client) serverDisconnect(reason string) {
	c.log.Info("Server closed the session", zap.String("reason", reason))

	c.shutdown()
	c.setState(ConnectionState_Disconnected)
	c.emit(Disconnected{Reason: reason, ByServer: true})
}
