package client

import (
	"time"

	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
)

// Event is the closed set of notifications a Client raises to subscribers.
// Subscribers run synchronously on the goroutine calling Update or the
// operation that caused the event.
type Event interface {
	isEvent()
}

type StateChanged struct {
	From ConnectionState
	To   ConnectionState
}

// Connected fires when the handshake completes. Reconnected is set when the
// session replaces one that was lost.
type Connected struct {
	PlayerId    string
	Reconnected bool
}

type Disconnected struct {
	Reason   string
	ByServer bool
}

// ConnectionFailed fires once, after the last reconnect attempt fails.
type ConnectionFailed struct {
	Err *errors.ConnectionError
}

type AuthFailed struct {
	Err *errors.AuthError
}

type Reconnecting struct {
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Cause       error
}

type LobbyUpdated struct {
	Lobby LobbyState
}

type Kicked struct {
	LobbyId string
	Reason  string
}

type LobbyChatReceived struct {
	SenderName string
	Text       string
}

type QueueProgress struct {
	Elapsed time.Duration
}

type MatchFound struct {
	Match PendingMatch
}

type GameStarted struct {
	Game GameState
}

type TurnStarted struct {
	Turn           uint32
	Year           uint16
	Phase          message.GamePhase
	ActivePlayerId string
	IsMyTurn       bool
	Deadline       time.Time
}

type TurnEnded struct {
	Turn     uint32
	PlayerId string
}

type GameStateUpdated struct {
	Game GameState
}

type GameEnded struct {
	SessionId string
	WinnerId  string
	Reason    string
	Players   []message.GamePlayer
}

type GameChatReceived struct {
	SenderName string
	TargetId   string
	Text       string
}

type SnapshotReceived struct {
	Turn     uint32
	Checksum string
	State    []byte
}

type DeltaReceived struct {
	BaseTurn uint32
	Turn     uint32
	Checksum string
	Delta    []byte
}

type DesyncDetected struct {
	Err *errors.DesyncError
}

type ServerError struct {
	Code    uint16
	Message string
	Fatal   bool
}

type ServerInfoReceived struct {
	Info message.ServerInfo
}

type CustomReceived struct {
	SenderId string
	Channel  string
	Data     []byte
}

func (StateChanged) isEvent()       {}
func (Connected) isEvent()          {}
func (Disconnected) isEvent()       {}
func (ConnectionFailed) isEvent()   {}
func (AuthFailed) isEvent()         {}
func (Reconnecting) isEvent()       {}
func (LobbyUpdated) isEvent()       {}
func (Kicked) isEvent()             {}
func (LobbyChatReceived) isEvent()  {}
func (QueueProgress) isEvent()      {}
func (MatchFound) isEvent()         {}
func (GameStarted) isEvent()        {}
func (TurnStarted) isEvent()        {}
func (TurnEnded) isEvent()          {}
func (GameStateUpdated) isEvent()   {}
func (GameEnded) isEvent()          {}
func (GameChatReceived) isEvent()   {}
func (SnapshotReceived) isEvent()   {}
func (DeltaReceived) isEvent()      {}
func (DesyncDetected) isEvent()     {}
func (ServerError) isEvent()        {}
func (ServerInfoReceived) isEvent() {}
func (CustomReceived) isEvent()     {}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Subscribe registers fn for every event. Subscribers are called in
// registration order. The returned function removes the subscription.
func (c *Client) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mut_subscribers.Lock()
	defer c.mut_subscribers.Unlock()

	c.nextSubscriberId++
	id := c.nextSubscriberId
	c.subscribers = append(c.subscribers, subscriber{id: id, fn: fn})

	return func() {
		c.mut_subscribers.Lock()
		defer c.mut_subscribers.Unlock()

		for i, s := range c.subscribers {
			if s.id == id {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) emit(e Event) {
	c.mut_subscribers.RLock()
	subs := append([]subscriber(nil), c.subscribers...)
	c.mut_subscribers.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}
