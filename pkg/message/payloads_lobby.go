package message

type GameSettings struct {
	MaxTurns        uint16
	TurnTimeSeconds uint16
	StartYear       uint16
	Scenario        string
}

type LobbyPlayer struct {
	PlayerId    string
	DisplayName string
	IsReady     bool
	IsHost      bool
}

type CreateLobby struct {
	LobbyName  string
	MaxPlayers uint8
	IsPrivate  bool
	Password   string
	Settings   GameSettings
}

// JoinLobby is also sent automatically after a reconnect, with Rejoin set.
type JoinLobby struct {
	LobbyId  string
	Password string
	Rejoin   bool
}

type LeaveLobby struct {
	LobbyId string
}

// LobbyUpdate is the authoritative full lobby roster. Clients replace their
// local projection with it rather than merging.
type LobbyUpdate struct {
	LobbyId    string
	LobbyName  string
	HostId     string
	MaxPlayers uint8
	IsPrivate  bool
	Settings   GameSettings
	Players    []LobbyPlayer
}

type PlayerReady struct {
	PlayerId string
	IsReady  bool
}

type KickPlayer struct {
	PlayerId string
	Reason   string
}

type LobbyChat struct {
	SenderName string
	Text       string
}

type LobbySettings struct {
	Settings GameSettings
}

func (CreateLobby) Kind() MessageKind   { return MessageKind_CreateLobby }
func (JoinLobby) Kind() MessageKind     { return MessageKind_JoinLobby }
func (LeaveLobby) Kind() MessageKind    { return MessageKind_LeaveLobby }
func (LobbyUpdate) Kind() MessageKind   { return MessageKind_LobbyUpdate }
func (PlayerReady) Kind() MessageKind   { return MessageKind_PlayerReady }
func (KickPlayer) Kind() MessageKind    { return MessageKind_KickPlayer }
func (LobbyChat) Kind() MessageKind     { return MessageKind_LobbyChat }
func (LobbySettings) Kind() MessageKind { return MessageKind_LobbySettings }

func (CreateLobby) isPayload()   {}
func (JoinLobby) isPayload()     {}
func (LeaveLobby) isPayload()    {}
func (LobbyUpdate) isPayload()   {}
func (PlayerReady) isPayload()   {}
func (KickPlayer) isPayload()    {}
func (LobbyChat) isPayload()     {}
func (LobbySettings) isPayload() {}

func encodeGameSettings(w *wireWriter, s GameSettings) {
	w.u16(s.MaxTurns)
	w.u16(s.TurnTimeSeconds)
	w.u16(s.StartYear)
	w.str("Settings.Scenario", s.Scenario)
}

func decodeGameSettings(r *wireReader) GameSettings {
	return GameSettings{
		MaxTurns:        r.u16(),
		TurnTimeSeconds: r.u16(),
		StartYear:       r.u16(),
		Scenario:        r.str(),
	}
}

func encodeCreateLobby(w *wireWriter, p *CreateLobby) {
	w.str("LobbyName", p.LobbyName)
	w.u8(p.MaxPlayers)
	w.boolean(p.IsPrivate)
	w.str("Password", p.Password)
	encodeGameSettings(w, p.Settings)
}

func decodeCreateLobby(r *wireReader) *CreateLobby {
	return &CreateLobby{
		LobbyName:  r.str(),
		MaxPlayers: r.u8(),
		IsPrivate:  r.boolean(),
		Password:   r.str(),
		Settings:   decodeGameSettings(r),
	}
}

func encodeJoinLobby(w *wireWriter, p *JoinLobby) {
	w.str("LobbyId", p.LobbyId)
	w.str("Password", p.Password)
	w.boolean(p.Rejoin)
}

func decodeJoinLobby(r *wireReader) *JoinLobby {
	return &JoinLobby{
		LobbyId:  r.str(),
		Password: r.str(),
		Rejoin:   r.boolean(),
	}
}

func encodeLeaveLobby(w *wireWriter, p *LeaveLobby) {
	w.str("LobbyId", p.LobbyId)
}

func decodeLeaveLobby(r *wireReader) *LeaveLobby {
	return &LeaveLobby{LobbyId: r.str()}
}

func encodeLobbyUpdate(w *wireWriter, p *LobbyUpdate) {
	w.str("LobbyId", p.LobbyId)
	w.str("LobbyName", p.LobbyName)
	w.str("HostId", p.HostId)
	w.u8(p.MaxPlayers)
	w.boolean(p.IsPrivate)
	encodeGameSettings(w, p.Settings)
	if !w.count("Players", len(p.Players)) {
		return
	}
	for _, player := range p.Players {
		w.str("Players.PlayerId", player.PlayerId)
		w.str("Players.DisplayName", player.DisplayName)
		w.boolean(player.IsReady)
		w.boolean(player.IsHost)
	}
}

func decodeLobbyUpdate(r *wireReader) *LobbyUpdate {
	p := &LobbyUpdate{
		LobbyId:    r.str(),
		LobbyName:  r.str(),
		HostId:     r.str(),
		MaxPlayers: r.u8(),
		IsPrivate:  r.boolean(),
		Settings:   decodeGameSettings(r),
	}
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		p.Players = append(p.Players, LobbyPlayer{
			PlayerId:    r.str(),
			DisplayName: r.str(),
			IsReady:     r.boolean(),
			IsHost:      r.boolean(),
		})
	}
	return p
}

func encodePlayerReady(w *wireWriter, p *PlayerReady) {
	w.str("PlayerId", p.PlayerId)
	w.boolean(p.IsReady)
}

func decodePlayerReady(r *wireReader) *PlayerReady {
	return &PlayerReady{
		PlayerId: r.str(),
		IsReady:  r.boolean(),
	}
}

func encodeKickPlayer(w *wireWriter, p *KickPlayer) {
	w.str("PlayerId", p.PlayerId)
	w.str("Reason", p.Reason)
}

func decodeKickPlayer(r *wireReader) *KickPlayer {
	return &KickPlayer{
		PlayerId: r.str(),
		Reason:   r.str(),
	}
}

func encodeLobbyChat(w *wireWriter, p *LobbyChat) {
	w.str("SenderName", p.SenderName)
	w.str("Text", p.Text)
}

func decodeLobbyChat(r *wireReader) *LobbyChat {
	return &LobbyChat{
		SenderName: r.str(),
		Text:       r.str(),
	}
}

func encodeLobbySettings(w *wireWriter, p *LobbySettings) {
	encodeGameSettings(w, p.Settings)
}

func decodeLobbySettings(r *wireReader) *LobbySettings {
	return &LobbySettings{Settings: decodeGameSettings(r)}
}
