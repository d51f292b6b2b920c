package message

type MessageKind uint8

const (
	// Connection
	MessageKind_Connect      MessageKind = 0
	MessageKind_Disconnect   MessageKind = 1
	MessageKind_Heartbeat    MessageKind = 2
	MessageKind_Authenticate MessageKind = 3

	// Lobby
	MessageKind_CreateLobby   MessageKind = 10
	MessageKind_JoinLobby     MessageKind = 11
	MessageKind_LeaveLobby    MessageKind = 12
	MessageKind_LobbyUpdate   MessageKind = 13
	MessageKind_PlayerReady   MessageKind = 14
	MessageKind_KickPlayer    MessageKind = 15
	MessageKind_LobbyChat     MessageKind = 16
	MessageKind_LobbySettings MessageKind = 17

	// Game
	MessageKind_GameStart  MessageKind = 20
	MessageKind_GameEnd    MessageKind = 21
	MessageKind_TurnStart  MessageKind = 22
	MessageKind_TurnEnd    MessageKind = 23
	MessageKind_GameAction MessageKind = 24
	MessageKind_GameState  MessageKind = 25
	MessageKind_GameChat   MessageKind = 26

	// Sync
	MessageKind_StateSnapshot MessageKind = 30
	MessageKind_StateDelta    MessageKind = 31
	MessageKind_SyncRequest   MessageKind = 32
	MessageKind_SyncResponse  MessageKind = 33
	MessageKind_Checksum      MessageKind = 34

	// Matchmaking
	MessageKind_EnterQueue   MessageKind = 40
	MessageKind_LeaveQueue   MessageKind = 41
	MessageKind_MatchFound   MessageKind = 42
	MessageKind_MatchAccept  MessageKind = 43
	MessageKind_MatchDecline MessageKind = 44

	// System
	MessageKind_Error      MessageKind = 250
	MessageKind_Ping       MessageKind = 251
	MessageKind_Pong       MessageKind = 252
	MessageKind_ServerInfo MessageKind = 253
	MessageKind_ClientInfo MessageKind = 254
	MessageKind_Custom     MessageKind = 255
)

// AllKinds lists every live kind in wire order.
var AllKinds = []MessageKind{
	MessageKind_Connect, MessageKind_Disconnect, MessageKind_Heartbeat, MessageKind_Authenticate,
	MessageKind_CreateLobby, MessageKind_JoinLobby, MessageKind_LeaveLobby, MessageKind_LobbyUpdate,
	MessageKind_PlayerReady, MessageKind_KickPlayer, MessageKind_LobbyChat, MessageKind_LobbySettings,
	MessageKind_GameStart, MessageKind_GameEnd, MessageKind_TurnStart, MessageKind_TurnEnd,
	MessageKind_GameAction, MessageKind_GameState, MessageKind_GameChat,
	MessageKind_StateSnapshot, MessageKind_StateDelta, MessageKind_SyncRequest, MessageKind_SyncResponse, MessageKind_Checksum,
	MessageKind_EnterQueue, MessageKind_LeaveQueue, MessageKind_MatchFound, MessageKind_MatchAccept, MessageKind_MatchDecline,
	MessageKind_Error, MessageKind_Ping, MessageKind_Pong, MessageKind_ServerInfo, MessageKind_ClientInfo, MessageKind_Custom,
}

type KindCategory uint8

const (
	KindCategory_Connection KindCategory = iota
	KindCategory_Lobby
	KindCategory_Game
	KindCategory_Sync
	KindCategory_Matchmaking
	KindCategory_System

	KindCategory_NONE
)

func (c KindCategory) String() string {
	switch c {
	case KindCategory_Connection:
		return "Connection"
	case KindCategory_Lobby:
		return "Lobby"
	case KindCategory_Game:
		return "Game"
	case KindCategory_Sync:
		return "Sync"
	case KindCategory_Matchmaking:
		return "Matchmaking"
	case KindCategory_System:
		return "System"
	}
	return "None"
}

func (k MessageKind) Category() KindCategory {
	switch {
	case k <= 3:
		return KindCategory_Connection
	case k >= 10 && k <= 17:
		return KindCategory_Lobby
	case k >= 20 && k <= 26:
		return KindCategory_Game
	case k >= 30 && k <= 34:
		return KindCategory_Sync
	case k >= 40 && k <= 44:
		return KindCategory_Matchmaking
	case k >= 250:
		return KindCategory_System
	}
	return KindCategory_NONE
}

func (k MessageKind) IsValid() bool {
	return k.Category() != KindCategory_NONE
}

// DefaultReliability is the delivery mode a kind is sent with unless the
// caller overrides it.
func (k MessageKind) DefaultReliability() Reliability {
	switch k {
	case MessageKind_Heartbeat, MessageKind_Ping, MessageKind_Pong:
		return Reliability_Unreliable
	case MessageKind_LobbyUpdate, MessageKind_GameState, MessageKind_Checksum:
		return Reliability_ReliableSequenced
	case MessageKind_GameAction, MessageKind_TurnStart, MessageKind_TurnEnd,
		MessageKind_LobbyChat, MessageKind_GameChat, MessageKind_StateDelta:
		return Reliability_ReliableOrdered
	case MessageKind_Custom:
		return Reliability_Unreliable
	}
	return Reliability_Reliable
}

func (k MessageKind) String() string {
	switch k {
	case MessageKind_Connect:
		return "Connect"
	case MessageKind_Disconnect:
		return "Disconnect"
	case MessageKind_Heartbeat:
		return "Heartbeat"
	case MessageKind_Authenticate:
		return "Authenticate"
	case MessageKind_CreateLobby:
		return "CreateLobby"
	case MessageKind_JoinLobby:
		return "JoinLobby"
	case MessageKind_LeaveLobby:
		return "LeaveLobby"
	case MessageKind_LobbyUpdate:
		return "LobbyUpdate"
	case MessageKind_PlayerReady:
		return "PlayerReady"
	case MessageKind_KickPlayer:
		return "KickPlayer"
	case MessageKind_LobbyChat:
		return "LobbyChat"
	case MessageKind_LobbySettings:
		return "LobbySettings"
	case MessageKind_GameStart:
		return "GameStart"
	case MessageKind_GameEnd:
		return "GameEnd"
	case MessageKind_TurnStart:
		return "TurnStart"
	case MessageKind_TurnEnd:
		return "TurnEnd"
	case MessageKind_GameAction:
		return "GameAction"
	case MessageKind_GameState:
		return "GameState"
	case MessageKind_GameChat:
		return "GameChat"
	case MessageKind_StateSnapshot:
		return "StateSnapshot"
	case MessageKind_StateDelta:
		return "StateDelta"
	case MessageKind_SyncRequest:
		return "SyncRequest"
	case MessageKind_SyncResponse:
		return "SyncResponse"
	case MessageKind_Checksum:
		return "Checksum"
	case MessageKind_EnterQueue:
		return "EnterQueue"
	case MessageKind_LeaveQueue:
		return "LeaveQueue"
	case MessageKind_MatchFound:
		return "MatchFound"
	case MessageKind_MatchAccept:
		return "MatchAccept"
	case MessageKind_MatchDecline:
		return "MatchDecline"
	case MessageKind_Error:
		return "Error"
	case MessageKind_Ping:
		return "Ping"
	case MessageKind_Pong:
		return "Pong"
	case MessageKind_ServerInfo:
		return "ServerInfo"
	case MessageKind_ClientInfo:
		return "ClientInfo"
	case MessageKind_Custom:
		return "Custom"
	}
	return "Unknown"
}
