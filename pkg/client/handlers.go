package client

import (
	"time"

	"github.com/sessamekesh/turnlink/pkg/desync"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/sequencer"
	"go.uber.org/zap"
)

// drainInbound decodes every queued packet and dispatches whatever the
// sequencer releases. Undecodable packets are dropped and never stop the tick.
func (c *Client) drainInbound() {
	for c.state != ConnectionState_Disconnected {
		data, ok := c.transport.ReceiveMessage()
		if !ok {
			return
		}

		msg, err := c.serializer.Parse(data)
		if err != nil {
			c.log.Warn("Dropping undecodable packet", zap.Int("size", len(data)), zap.Error(err))
			c.metrics.ProtocolError()
			continue
		}

		admitted, verdict := c.sequencer.Admit(msg)
		switch verdict {
		case sequencer.Verdict_Delivered, sequencer.Verdict_Buffered:
		default:
			c.metrics.PacketDropped(verdict.String())
		}

		for _, m := range admitted {
			c.metrics.MessageReceived(m.Kind)
			c.dispatch(m)
			if c.state == ConnectionState_Disconnected {
				return
			}
		}
	}
}

func (c *Client) dispatch(msg *message.Message) {
	switch p := msg.Payload.(type) {
	case *message.Connect:
		c.onConnect(p)
	case *message.Authenticate:
		c.onAuthenticate(p)
	case *message.Disconnect:
		c.serverDisconnect(p.Reason)
	case *message.Heartbeat:
		c.send(&message.Heartbeat{})
	case *message.Ping:
		c.send(&message.Pong{PingSentAt: p.SentAt, ServerTime: c.now().UnixNano()})
	case *message.Pong:
		c.onPong(p)

	case *message.LobbyUpdate:
		c.onLobbyUpdate(p)
	case *message.PlayerReady:
		c.onPlayerReady(p)
	case *message.KickPlayer:
		c.onKick(p)
	case *message.LobbyChat:
		c.emit(LobbyChatReceived{SenderName: p.SenderName, Text: p.Text})
	case *message.LobbySettings:
		c.onLobbySettings(p)

	case *message.MatchFound:
		c.onMatchFound(p)
	case *message.LeaveQueue:
		c.onRemovedFromQueue()

	case *message.GameStart:
		c.onGameStart(p)
	case *message.TurnStart:
		c.onTurnStart(p)
	case *message.TurnEnd:
		c.onTurnEnd(p)
	case *message.GameState:
		c.onGameState(p)
	case *message.GameEnd:
		c.onGameEnd(p)
	case *message.GameChat:
		c.emit(GameChatReceived{SenderName: p.SenderName, TargetId: p.TargetId, Text: p.Text})

	case *message.StateSnapshot:
		c.onSnapshot(p)
	case *message.StateDelta:
		c.onDelta(p)
	case *message.SyncResponse:
		c.onSyncResponse(p)
	case *message.Checksum:
		c.applySyncOutcome(c.detector.OnChecksum(p))

	case *message.ErrorReport:
		c.onErrorReport(p)
	case *message.ServerInfo:
		info := *p
		c.serverInfo = &info
		c.emit(ServerInfoReceived{Info: info})
	case *message.Custom:
		c.emit(CustomReceived{SenderId: msg.SenderId, Channel: p.Channel, Data: p.Data})

	default:
		c.log.Debug("Ignoring message with no client handler", zap.Stringer("kind", msg.Kind))
	}
}

//
// Connection

func (c *Client) onConnect(p *message.Connect) {
	if p.Accepted {
		c.log.Debug("Server accepted connection")
		return
	}
	c.failAuth(p.Reason)
}

func (c *Client) onAuthenticate(p *message.Authenticate) {
	if !c.handshaking {
		c.log.Debug("Ignoring authentication verdict outside of handshake")
		return
	}
	if !p.Accepted {
		c.failAuth(p.Reason)
		return
	}
	c.onHandshakeComplete()
}

func (c *Client) onErrorReport(p *message.ErrorReport) {
	c.log.Warn("Server reported error", zap.Uint16("code", p.Code), zap.String("message", p.Message), zap.Bool("fatal", p.Fatal))
	c.emit(ServerError{Code: p.Code, Message: p.Message, Fatal: p.Fatal})
	if p.Fatal {
		c.serverDisconnect(p.Message)
	}
}

//
// Lobby

func (c *Client) onLobbyUpdate(p *message.LobbyUpdate) {
	lobby := lobbyFromUpdate(p)
	_, inLobby := lobby.Player(c.playerId)

	if !inLobby {
		if c.lobby != nil && c.lobby.LobbyId == lobby.LobbyId {
			c.log.Info("No longer listed in lobby", zap.String("lobbyId", lobby.LobbyId))
			c.lobby = nil
			if c.state == ConnectionState_InLobby {
				c.setState(ConnectionState_Connected)
			}
		}
		return
	}

	c.lobby = lobby
	if c.state == ConnectionState_Connected {
		c.setState(ConnectionState_InLobby)
	}
	c.emit(LobbyUpdated{Lobby: c.lobby.clone()})
}

func (c *Client) onPlayerReady(p *message.PlayerReady) {
	if c.lobby == nil {
		return
	}
	for i := range c.lobby.Players {
		if c.lobby.Players[i].PlayerId == p.PlayerId {
			c.lobby.Players[i].IsReady = p.IsReady
		}
	}
	c.emit(LobbyUpdated{Lobby: c.lobby.clone()})
}

func (c *Client) onKick(p *message.KickPlayer) {
	if p.PlayerId != c.playerId || c.lobby == nil {
		return
	}

	lobbyId := c.lobby.LobbyId
	c.log.Info("Kicked from lobby", zap.String("lobbyId", lobbyId), zap.String("reason", p.Reason))
	c.lobby = nil
	if c.state == ConnectionState_InLobby || c.state == ConnectionState_InMatchmaking {
		c.queue = nil
		c.match = nil
		c.setState(ConnectionState_Connected)
	}
	c.emit(Kicked{LobbyId: lobbyId, Reason: p.Reason})
}

func (c *Client) onLobbySettings(p *message.LobbySettings) {
	if c.lobby == nil {
		return
	}
	c.lobby.Settings = p.Settings
	c.emit(LobbyUpdated{Lobby: c.lobby.clone()})
}

//
// Matchmaking

func (c *Client) onMatchFound(p *message.MatchFound) {
	if c.state != ConnectionState_InMatchmaking {
		c.log.Debug("Ignoring match outside of matchmaking", zap.String("matchId", p.MatchId))
		return
	}

	c.match = &PendingMatch{
		MatchId:        p.MatchId,
		PlayerIds:      append([]string(nil), p.PlayerIds...),
		AcceptDeadline: c.now().Add(time.Duration(p.AcceptDeadlineMillis) * time.Millisecond),
	}
	c.emit(MatchFound{Match: c.match.clone()})
}

func (c *Client) onRemovedFromQueue() {
	if c.state != ConnectionState_InMatchmaking {
		return
	}
	c.log.Info("Server removed client from matchmaking queue")
	c.exitMatchmaking()
}

func (c *Client) exitMatchmaking() {
	c.queue = nil
	c.match = nil
	if c.lobby != nil {
		c.setState(ConnectionState_InLobby)
	} else {
		c.setState(ConnectionState_Connected)
	}
}

//
// Game

func (c *Client) onGameStart(p *message.GameStart) {
	if !c.state.IsEstablished() {
		return
	}

	c.game = gameFromStart(p)
	c.queue = nil
	c.match = nil
	c.detector.Reset()
	c.setState(ConnectionState_InGame)
	c.log.Info("Game started", zap.String("sessionId", p.SessionId), zap.Uint32("turn", p.Turn))
	c.emit(GameStarted{Game: c.game.clone()})
}

func (c *Client) onTurnStart(p *message.TurnStart) {
	if c.game == nil {
		return
	}

	c.game.Turn = p.Turn
	c.game.Year = p.Year
	c.game.Phase = p.Phase
	c.game.ActivePlayerId = p.ActivePlayerId
	c.game.IsMyTurn = p.ActivePlayerId == "" || p.ActivePlayerId == c.playerId
	c.game.TurnDeadline = time.Time{}
	if p.DeadlineMillis > 0 {
		c.game.TurnDeadline = c.now().Add(time.Duration(p.DeadlineMillis) * time.Millisecond)
	}
	c.game.resetSubmissions()

	c.emit(TurnStarted{
		Turn:           p.Turn,
		Year:           p.Year,
		Phase:          p.Phase,
		ActivePlayerId: p.ActivePlayerId,
		IsMyTurn:       c.game.IsMyTurn,
		Deadline:       c.game.TurnDeadline,
	})
}

func (c *Client) onTurnEnd(p *message.TurnEnd) {
	if c.game == nil {
		return
	}

	// A TurnEnd naming another player reports their submission. Anything
	// else closes the turn.
	if p.PlayerId != "" && p.PlayerId != c.playerId {
		c.game.markSubmitted(p.PlayerId)
		c.emit(TurnEnded{Turn: p.Turn, PlayerId: p.PlayerId})
		return
	}

	c.game.Phase = message.GamePhase_Resolution
	c.game.IsMyTurn = false
	c.game.resetSubmissions()
	c.emit(TurnEnded{Turn: p.Turn, PlayerId: p.PlayerId})
}

func (c *Client) onGameState(p *message.GameState) {
	if c.game == nil {
		return
	}

	c.game.Turn = p.Turn
	c.game.Year = p.Year
	c.game.Phase = p.Phase
	c.game.Players = append([]message.GamePlayer(nil), p.Players...)
	if me, ok := c.game.Player(c.playerId); ok {
		c.game.HasSubmittedActions = me.HasSubmitted || c.game.submittedThisTurn()
	} else {
		c.game.HasSubmittedActions = c.game.submittedThisTurn()
	}
	if c.game.submittedThisTurn() {
		c.game.markSubmitted(c.playerId)
	}
	c.emit(GameStateUpdated{Game: c.game.clone()})
}

func (c *Client) onGameEnd(p *message.GameEnd) {
	if c.game == nil {
		return
	}

	c.log.Info("Game ended", zap.String("sessionId", p.SessionId), zap.String("winnerId", p.WinnerId))
	c.game = nil
	c.detector.Reset()
	if c.lobby != nil {
		c.setState(ConnectionState_InLobby)
	} else {
		c.setState(ConnectionState_Connected)
	}
	c.emit(GameEnded{
		SessionId: p.SessionId,
		WinnerId:  p.WinnerId,
		Reason:    p.Reason,
		Players:   append([]message.GamePlayer(nil), p.Players...),
	})
}

//
// Sync

func (c *Client) onSnapshot(p *message.StateSnapshot) {
	outcome := c.detector.OnSnapshot(p)
	c.storeSnapshot()
	c.emit(SnapshotReceived{Turn: p.Turn, Checksum: p.Checksum, State: p.State})
	c.applySyncOutcome(outcome)
}

func (c *Client) onSyncResponse(p *message.SyncResponse) {
	c.detector.OnSyncResponse(p)
	c.storeSnapshot()
	if c.game != nil {
		c.game.Turn = p.Turn
	}
	c.emit(SnapshotReceived{Turn: p.Turn, Checksum: p.Checksum, State: p.State})
}

func (c *Client) onDelta(p *message.StateDelta) {
	outcome := c.detector.OnDelta(p)
	if outcome.Applied {
		c.storeSnapshot()
		c.emit(DeltaReceived{BaseTurn: p.BaseTurn, Turn: p.Turn, Checksum: p.Checksum, Delta: p.Delta})
	}
	c.applySyncOutcome(outcome)
}

// storeSnapshot mirrors the detector's accepted state into the game projection.
func (c *Client) storeSnapshot() {
	if c.game == nil {
		return
	}
	stored, ok := c.detector.Stored()
	if !ok {
		return
	}
	c.game.SnapshotTurn = stored.Turn
	c.game.SnapshotChecksum = stored.Checksum
	c.game.Snapshot = stored.State
}

func (c *Client) applySyncOutcome(outcome desync.Outcome) {
	if outcome.Desync != nil {
		c.metrics.Desync()
		c.emit(DesyncDetected{Err: outcome.Desync})
	}
	if outcome.Resync != nil {
		c.sendResync(outcome.Resync, "desync")
	}
}
