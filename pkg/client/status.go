package client

import (
	"time"

	"github.com/sessamekesh/turnlink/internal"
)

// Status is a point-in-time summary of the client, published after every
// tick for readers on other goroutines.
type Status struct {
	State           string    `json:"state"`
	PlayerId        string    `json:"playerId"`
	Address         string    `json:"address"`
	LobbyId         string    `json:"lobbyId,omitempty"`
	IsHost          bool      `json:"isHost"`
	SessionId       string    `json:"sessionId,omitempty"`
	Turn            uint32    `json:"turn,omitempty"`
	IsMyTurn        bool      `json:"isMyTurn"`
	Reconnect       int       `json:"reconnectAttempt,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
	ServerName      string    `json:"serverName,omitempty"`
	Desyncs         uint64    `json:"desyncs"`
	BufferedOrdered int       `json:"bufferedOrdered"`

	Quality QualityStatus `json:"quality"`
	Pings   PingStatus    `json:"pings"`
}

type PingStatus struct {
	Sent        uint64 `json:"sent"`
	Resolved    uint64 `json:"resolved"`
	Lost        uint64 `json:"lost"`
	Outstanding int    `json:"outstanding"`
}

type QualityStatus struct {
	Rating           string  `json:"rating"`
	CurrentLatencyMs float64 `json:"currentLatencyMs"`
	AverageLatencyMs float64 `json:"averageLatencyMs"`
	JitterMs         float64 `json:"jitterMs"`
	PacketLoss       float64 `json:"packetLoss"`
}

// LatestStatus is safe to call from any goroutine.
func (c *Client) LatestStatus() *Status {
	return c.status.Load()
}

func (c *Client) publishStatus() {
	q := c.quality.Snapshot()
	status := &Status{
		State:           c.state.String(),
		PlayerId:        c.playerId,
		Address:         c.address(),
		IsHost:          c.IsHost(),
		Reconnect:       c.reconnect.attempts,
		UpdatedAt:       c.now(),
		Desyncs:         c.detector.DesyncCount(),
		BufferedOrdered: c.sequencer.Buffered(),
		Quality: QualityStatus{
			Rating:           q.Rating.String(),
			CurrentLatencyMs: float64(q.CurrentLatency) / float64(time.Millisecond),
			AverageLatencyMs: float64(q.AverageLatency) / float64(time.Millisecond),
			JitterMs:         float64(q.Jitter) / float64(time.Millisecond),
			PacketLoss:       q.PacketLoss,
		},
		Pings: pingStatus(c.pings),
	}
	if c.lobby != nil {
		status.LobbyId = c.lobby.LobbyId
	}
	if c.game != nil {
		status.SessionId = c.game.SessionId
		status.Turn = c.game.Turn
		status.IsMyTurn = c.game.IsMyTurn
	}
	if c.serverInfo != nil {
		status.ServerName = c.serverInfo.ServerName
	}
	c.status.Store(status)
}

func pingStatus(store *internal.PingStore) PingStatus {
	stats := store.Stats()
	return PingStatus{
		Sent:        stats.Sent,
		Resolved:    stats.Resolved,
		Lost:        stats.Lost,
		Outstanding: store.Outstanding(),
	}
}
