package client

import (
	"time"

	"github.com/sessamekesh/turnlink/pkg/message"
)

// LobbyState is the client's copy of the last authoritative lobby roster.
type LobbyState struct {
	LobbyId    string
	LobbyName  string
	HostId     string
	MaxPlayers uint8
	IsPrivate  bool
	Settings   message.GameSettings
	Players    []message.LobbyPlayer
}

func lobbyFromUpdate(update *message.LobbyUpdate) *LobbyState {
	return &LobbyState{
		LobbyId:    update.LobbyId,
		LobbyName:  update.LobbyName,
		HostId:     update.HostId,
		MaxPlayers: update.MaxPlayers,
		IsPrivate:  update.IsPrivate,
		Settings:   update.Settings,
		Players:    append([]message.LobbyPlayer(nil), update.Players...),
	}
}

func (l *LobbyState) clone() LobbyState {
	out := *l
	out.Players = append([]message.LobbyPlayer(nil), l.Players...)
	return out
}

func (l LobbyState) Player(playerId string) (message.LobbyPlayer, bool) {
	for _, p := range l.Players {
		if p.PlayerId == playerId {
			return p, true
		}
	}
	return message.LobbyPlayer{}, false
}

func (l LobbyState) IsHost(playerId string) bool {
	return playerId != "" && l.HostId == playerId
}

// GameState is the client's copy of the running game session.
type GameState struct {
	SessionId      string
	Turn           uint32
	Year           uint16
	Phase          message.GamePhase
	ActivePlayerId string
	TurnDeadline   time.Time
	Settings       message.GameSettings
	Players        []message.GamePlayer

	IsMyTurn            bool
	HasSubmittedActions bool

	// Snapshot is the last full state blob. Deltas advance SnapshotTurn and
	// SnapshotChecksum but leave it untouched.
	SnapshotTurn     uint32
	SnapshotChecksum string
	Snapshot         []byte

	// submittedTurn is the turn this client sent a TurnEnd for. Server
	// broadcasts never clear it.
	submittedTurn    uint32
	hasSubmittedTurn bool
}

func gameFromStart(start *message.GameStart) *GameState {
	return &GameState{
		SessionId: start.SessionId,
		Turn:      start.Turn,
		Year:      start.Year,
		Phase:     message.GamePhase_Planning,
		Settings:  start.Settings,
		Players:   append([]message.GamePlayer(nil), start.Players...),
	}
}

func (g *GameState) clone() GameState {
	out := *g
	out.Players = append([]message.GamePlayer(nil), g.Players...)
	out.Snapshot = append([]byte(nil), g.Snapshot...)
	return out
}

func (g *GameState) submittedThisTurn() bool {
	return g.hasSubmittedTurn && g.submittedTurn == g.Turn
}

func (g *GameState) recordSubmission(playerId string) {
	g.submittedTurn = g.Turn
	g.hasSubmittedTurn = true
	g.HasSubmittedActions = true
	g.markSubmitted(playerId)
}

// resetSubmissions clears the per-player flags. The local flag survives when
// this client already submitted for the current turn.
func (g *GameState) resetSubmissions() {
	g.HasSubmittedActions = g.submittedThisTurn()
	for i := range g.Players {
		g.Players[i].HasSubmitted = false
	}
}

func (g *GameState) markSubmitted(playerId string) {
	for i := range g.Players {
		if g.Players[i].PlayerId == playerId {
			g.Players[i].HasSubmitted = true
		}
	}
}

func (g GameState) Player(playerId string) (message.GamePlayer, bool) {
	for _, p := range g.Players {
		if p.PlayerId == playerId {
			return p, true
		}
	}
	return message.GamePlayer{}, false
}

type PendingMatch struct {
	MatchId        string
	PlayerIds      []string
	AcceptDeadline time.Time
}

func (m *PendingMatch) clone() PendingMatch {
	out := *m
	out.PlayerIds = append([]string(nil), m.PlayerIds...)
	return out
}

type queueState struct {
	request      message.EnterQueue
	startedAt    time.Time
	lastProgress time.Time
}
