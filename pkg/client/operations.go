package client

import (
	"context"

	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Gated operations return *errors.InvalidOperation without sending anything
// or changing state when called in the wrong state.

func (c *Client) requireEstablished(op string) error {
	if !c.state.IsEstablished() {
		return c.invalid(op, "requires an established connection")
	}
	return nil
}

func (c *Client) requireState(op string, state ConnectionState) error {
	if c.state != state {
		return c.invalid(op, "requires state "+state.String())
	}
	return nil
}

func (c *Client) requireHost(op string) error {
	if err := c.requireState(op, ConnectionState_InLobby); err != nil {
		return err
	}
	if !c.IsHost() {
		return c.invalid(op, "only the lobby host may do this")
	}
	return nil
}

//
// Lobby

func (c *Client) CreateLobby(req message.CreateLobby) error {
	if err := c.requireEstablished("CreateLobby"); err != nil {
		return err
	}
	return c.send(&req)
}

func (c *Client) JoinLobby(lobbyId, password string) error {
	if err := c.requireEstablished("JoinLobby"); err != nil {
		return err
	}
	if lobbyId == "" {
		return &errors.MissingFieldError{MessageName: "JoinLobby", FieldName: "LobbyId"}
	}
	return c.send(&message.JoinLobby{LobbyId: lobbyId, Password: password})
}

func (c *Client) SetReady(ready bool) error {
	if err := c.requireState("SetReady", ConnectionState_InLobby); err != nil {
		return err
	}
	return c.send(&message.PlayerReady{PlayerId: c.playerId, IsReady: ready})
}

func (c *Client) SendLobbyChat(text string) error {
	if err := c.requireState("SendLobbyChat", ConnectionState_InLobby); err != nil {
		return err
	}
	return c.send(&message.LobbyChat{SenderName: c.params.DisplayName, Text: text})
}

func (c *Client) LeaveLobby() error {
	if err := c.requireState("LeaveLobby", ConnectionState_InLobby); err != nil {
		return err
	}
	if err := c.send(&message.LeaveLobby{LobbyId: c.lobby.LobbyId}); err != nil {
		return err
	}

	c.lobby = nil
	c.setState(ConnectionState_Connected)
	return nil
}

// StartGame asks the server to start the lobby's game. The client enters
// InGame when the server answers with GameStart.
func (c *Client) StartGame() error {
	if err := c.requireHost("StartGame"); err != nil {
		return err
	}
	return c.send(&message.GameStart{Settings: c.lobby.Settings})
}

func (c *Client) UpdateLobbySettings(settings message.GameSettings) error {
	if err := c.requireHost("UpdateLobbySettings"); err != nil {
		return err
	}
	return c.send(&message.LobbySettings{Settings: settings})
}

func (c *Client) KickPlayer(playerId, reason string) error {
	if err := c.requireHost("KickPlayer"); err != nil {
		return err
	}
	if playerId == c.playerId {
		return c.invalid("KickPlayer", "the host cannot kick themselves")
	}
	if _, ok := c.lobby.Player(playerId); !ok {
		return c.invalid("KickPlayer", "player "+playerId+" is not in the lobby")
	}
	return c.send(&message.KickPlayer{PlayerId: playerId, Reason: reason})
}

//
// Matchmaking

// EnterQueue is a no-op while already queued.
func (c *Client) EnterQueue(req message.EnterQueue) error {
	if err := c.requireEstablished("EnterQueue"); err != nil {
		return err
	}
	if c.state == ConnectionState_InMatchmaking {
		return nil
	}
	if err := c.send(&req); err != nil {
		return err
	}

	now := c.now()
	c.queue = &queueState{
		request:      req,
		startedAt:    now,
		lastProgress: now,
	}
	c.match = nil
	c.setState(ConnectionState_InMatchmaking)
	return nil
}

func (c *Client) LeaveQueue() error {
	if err := c.requireState("LeaveQueue", ConnectionState_InMatchmaking); err != nil {
		return err
	}
	if err := c.send(&message.LeaveQueue{}); err != nil {
		return err
	}
	c.exitMatchmaking()
	return nil
}

func (c *Client) AcceptMatch() error {
	if err := c.requireState("AcceptMatch", ConnectionState_InMatchmaking); err != nil {
		return err
	}
	if c.match == nil {
		return c.invalid("AcceptMatch", "no match is pending")
	}
	return c.send(&message.MatchAccept{MatchId: c.match.MatchId})
}

func (c *Client) DeclineMatch() error {
	if err := c.requireState("DeclineMatch", ConnectionState_InMatchmaking); err != nil {
		return err
	}
	if c.match == nil {
		return c.invalid("DeclineMatch", "no match is pending")
	}
	if err := c.send(&message.MatchDecline{MatchId: c.match.MatchId}); err != nil {
		return err
	}
	c.exitMatchmaking()
	return nil
}

//
// Game

// SubmitAction sends one action for the current turn. Actions are always
// ReliableOrdered so the server applies them in the order they were issued.
func (c *Client) SubmitAction(actionType string, data []byte) error {
	if err := c.requireState("SubmitAction", ConnectionState_InGame); err != nil {
		return err
	}
	msg := message.New(c.playerId, c.now(), &message.GameAction{
		Turn:       c.game.Turn,
		ActionType: actionType,
		Data:       data,
	}).WithReliability(message.Reliability_ReliableOrdered)
	return c.sendMessage(msg)
}

// SubmitTurn ends this client's turn. Calling it again before the next turn
// starts does nothing.
func (c *Client) SubmitTurn() error {
	if err := c.requireState("SubmitTurn", ConnectionState_InGame); err != nil {
		return err
	}
	if c.game.submittedThisTurn() {
		return nil
	}
	if err := c.send(&message.TurnEnd{Turn: c.game.Turn, PlayerId: c.playerId}); err != nil {
		return err
	}

	c.game.recordSubmission(c.playerId)
	return nil
}

func (c *Client) SendGameChat(text, targetId string) error {
	if err := c.requireState("SendGameChat", ConnectionState_InGame); err != nil {
		return err
	}
	return c.send(&message.GameChat{SenderName: c.params.DisplayName, TargetId: targetId, Text: text})
}

// RequestResync asks the server for a full state, regardless of any
// automatic request already outstanding.
func (c *Client) RequestResync() error {
	if err := c.requireState("RequestResync", ConnectionState_InGame); err != nil {
		return err
	}
	return c.requestResync("manual")
}

//
// Misc

func (c *Client) SendCustom(channel string, data []byte, reliability message.Reliability) error {
	if err := c.requireEstablished("SendCustom"); err != nil {
		return err
	}
	if !reliability.IsValid() {
		return &errors.InvalidEnumValue{EnumName: "Reliability", IntValue: uint8(reliability)}
	}
	msg := message.New(c.playerId, c.now(), &message.Custom{Channel: channel, Data: data}).WithReliability(reliability)
	return c.sendMessage(msg)
}

func (c *Client) requestResync(trigger string) error {
	return c.sendResync(c.detector.RequestResync(), trigger)
}

func (c *Client) sendResync(req *message.SyncRequest, trigger string) error {
	_, span := c.tracer.Start(context.Background(), "turnlink.resync")
	defer span.End()
	span.SetAttributes(
		attribute.String("turnlink.resync_trigger", trigger),
		attribute.Int64("turnlink.last_known_turn", int64(req.LastKnownTurn)),
	)

	c.log.Info("Requesting resync",
		zap.String("trigger", trigger),
		zap.Uint32("lastKnownTurn", req.LastKnownTurn),
		zap.String("lastKnownChecksum", req.LastKnownChecksum))

	if err := c.send(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.metrics.ResyncRequested()
	return nil
}
