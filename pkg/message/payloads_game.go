package message

import "github.com/sessamekesh/turnlink/pkg/errors"

type GamePhase uint8

const (
	GamePhase_Planning GamePhase = iota
	GamePhase_Action
	GamePhase_Resolution
	GamePhase_Event

	GamePhase_NONE
)

func (p GamePhase) String() string {
	switch p {
	case GamePhase_Planning:
		return "Planning"
	case GamePhase_Action:
		return "Action"
	case GamePhase_Resolution:
		return "Resolution"
	case GamePhase_Event:
		return "Event"
	}
	return "None"
}

type GamePlayer struct {
	PlayerId     string
	DisplayName  string
	Score        int32
	IsConnected  bool
	HasSubmitted bool
}

type GameStart struct {
	SessionId string
	Turn      uint32
	Year      uint16
	Settings  GameSettings
	Players   []GamePlayer
}

type GameEnd struct {
	SessionId string
	WinnerId  string
	Reason    string
	Players   []GamePlayer
}

// TurnStart opens a turn. An empty ActivePlayerId means every player acts
// simultaneously.
type TurnStart struct {
	Turn           uint32
	Year           uint16
	Phase          GamePhase
	ActivePlayerId string
	DeadlineMillis uint32
}

// TurnEnd is sent by a client to submit its turn, and by the server to close it.
type TurnEnd struct {
	Turn     uint32
	PlayerId string
}

type GameAction struct {
	Turn       uint32
	ActionType string
	Data       []byte
}

type GameState struct {
	Turn    uint32
	Year    uint16
	Phase   GamePhase
	Players []GamePlayer
}

type GameChat struct {
	SenderName string
	TargetId   string
	Text       string
}

func (GameStart) Kind() MessageKind  { return MessageKind_GameStart }
func (GameEnd) Kind() MessageKind    { return MessageKind_GameEnd }
func (TurnStart) Kind() MessageKind  { return MessageKind_TurnStart }
func (TurnEnd) Kind() MessageKind    { return MessageKind_TurnEnd }
func (GameAction) Kind() MessageKind { return MessageKind_GameAction }
func (GameState) Kind() MessageKind  { return MessageKind_GameState }
func (GameChat) Kind() MessageKind   { return MessageKind_GameChat }

func (GameStart) isPayload()  {}
func (GameEnd) isPayload()    {}
func (TurnStart) isPayload()  {}
func (TurnEnd) isPayload()    {}
func (GameAction) isPayload() {}
func (GameState) isPayload()  {}
func (GameChat) isPayload()   {}

func encodePhase(w *wireWriter, p GamePhase) {
	w.u8(uint8(p))
}

func decodePhase(r *wireReader) GamePhase {
	v := r.u8()
	if r.err == nil && GamePhase(v) >= GamePhase_NONE {
		r.err = &errors.InvalidEnumValue{
			EnumName: "GamePhase",
			IntValue: v,
		}
	}
	return GamePhase(v)
}

func encodeGamePlayers(w *wireWriter, players []GamePlayer) {
	if !w.count("Players", len(players)) {
		return
	}
	for _, player := range players {
		w.str("Players.PlayerId", player.PlayerId)
		w.str("Players.DisplayName", player.DisplayName)
		w.i32(player.Score)
		w.boolean(player.IsConnected)
		w.boolean(player.HasSubmitted)
	}
}

func decodeGamePlayers(r *wireReader) []GamePlayer {
	var players []GamePlayer
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		players = append(players, GamePlayer{
			PlayerId:     r.str(),
			DisplayName:  r.str(),
			Score:        r.i32(),
			IsConnected:  r.boolean(),
			HasSubmitted: r.boolean(),
		})
	}
	return players
}

func encodeGameStart(w *wireWriter, p *GameStart) {
	w.str("SessionId", p.SessionId)
	w.u32(p.Turn)
	w.u16(p.Year)
	encodeGameSettings(w, p.Settings)
	encodeGamePlayers(w, p.Players)
}

func decodeGameStart(r *wireReader) *GameStart {
	return &GameStart{
		SessionId: r.str(),
		Turn:      r.u32(),
		Year:      r.u16(),
		Settings:  decodeGameSettings(r),
		Players:   decodeGamePlayers(r),
	}
}

func encodeGameEnd(w *wireWriter, p *GameEnd) {
	w.str("SessionId", p.SessionId)
	w.str("WinnerId", p.WinnerId)
	w.str("Reason", p.Reason)
	encodeGamePlayers(w, p.Players)
}

func decodeGameEnd(r *wireReader) *GameEnd {
	return &GameEnd{
		SessionId: r.str(),
		WinnerId:  r.str(),
		Reason:    r.str(),
		Players:   decodeGamePlayers(r),
	}
}

func encodeTurnStart(w *wireWriter, p *TurnStart) {
	w.u32(p.Turn)
	w.u16(p.Year)
	encodePhase(w, p.Phase)
	w.str("ActivePlayerId", p.ActivePlayerId)
	w.u32(p.DeadlineMillis)
}

func decodeTurnStart(r *wireReader) *TurnStart {
	return &TurnStart{
		Turn:           r.u32(),
		Year:           r.u16(),
		Phase:          decodePhase(r),
		ActivePlayerId: r.str(),
		DeadlineMillis: r.u32(),
	}
}

func encodeTurnEnd(w *wireWriter, p *TurnEnd) {
	w.u32(p.Turn)
	w.str("PlayerId", p.PlayerId)
}

func decodeTurnEnd(r *wireReader) *TurnEnd {
	return &TurnEnd{
		Turn:     r.u32(),
		PlayerId: r.str(),
	}
}

func encodeGameAction(w *wireWriter, p *GameAction) {
	w.u32(p.Turn)
	w.str("ActionType", p.ActionType)
	w.blob("Data", p.Data)
}

func decodeGameAction(r *wireReader) *GameAction {
	return &GameAction{
		Turn:       r.u32(),
		ActionType: r.str(),
		Data:       r.blob(),
	}
}

func encodeGameState(w *wireWriter, p *GameState) {
	w.u32(p.Turn)
	w.u16(p.Year)
	encodePhase(w, p.Phase)
	encodeGamePlayers(w, p.Players)
}

func decodeGameState(r *wireReader) *GameState {
	return &GameState{
		Turn:    r.u32(),
		Year:    r.u16(),
		Phase:   decodePhase(r),
		Players: decodeGamePlayers(r),
	}
}

func encodeGameChat(w *wireWriter, p *GameChat) {
	w.str("SenderName", p.SenderName)
	w.str("TargetId", p.TargetId)
	w.str("Text", p.Text)
}

func decodeGameChat(r *wireReader) *GameChat {
	return &GameChat{
		SenderName: r.str(),
		TargetId:   r.str(),
		Text:       r.str(),
	}
}
