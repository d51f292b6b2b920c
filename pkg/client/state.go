package client

type ConnectionState uint8

const (
	ConnectionState_Disconnected ConnectionState = iota
	ConnectionState_Connecting
	ConnectionState_Authenticating
	ConnectionState_Connected
	ConnectionState_InLobby
	ConnectionState_InMatchmaking
	ConnectionState_InGame
	ConnectionState_Reconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionState_Disconnected:
		return "Disconnected"
	case ConnectionState_Connecting:
		return "Connecting"
	case ConnectionState_Authenticating:
		return "Authenticating"
	case ConnectionState_Connected:
		return "Connected"
	case ConnectionState_InLobby:
		return "InLobby"
	case ConnectionState_InMatchmaking:
		return "InMatchmaking"
	case ConnectionState_InGame:
		return "InGame"
	case ConnectionState_Reconnecting:
		return "Reconnecting"
	}
	return "Unknown"
}

// IsEstablished reports whether the handshake has completed and the session
// is usable for lobby, matchmaking and game traffic.
func (s ConnectionState) IsEstablished() bool {
	switch s {
	case ConnectionState_Connected, ConnectionState_InLobby, ConnectionState_InMatchmaking, ConnectionState_InGame:
		return true
	}
	return false
}
