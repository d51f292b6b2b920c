package message

// ErrorReport is the body of an Error message from the server.
type ErrorReport struct {
	Code    uint16
	Message string
	Fatal   bool
}

// Ping carries the sender's clock (Unix nanoseconds) so the matching Pong can
// be paired without any per-ping state on the responder.
type Ping struct {
	SentAt int64
}

type Pong struct {
	PingSentAt int64
	ServerTime int64
}

type ServerInfo struct {
	ServerName    string
	Version       string
	Region        string
	PlayersOnline uint32
}

type ClientInfo struct {
	ClientVersion string
	Platform      string
}

type Custom struct {
	Channel string
	Data    []byte
}

func (ErrorReport) Kind() MessageKind { return MessageKind_Error }
func (Ping) Kind() MessageKind        { return MessageKind_Ping }
func (Pong) Kind() MessageKind        { return MessageKind_Pong }
func (ServerInfo) Kind() MessageKind  { return MessageKind_ServerInfo }
func (ClientInfo) Kind() MessageKind  { return MessageKind_ClientInfo }
func (Custom) Kind() MessageKind      { return MessageKind_Custom }

func (ErrorReport) isPayload() {}
func (Ping) isPayload()        {}
func (Pong) isPayload()        {}
func (ServerInfo) isPayload()  {}
func (ClientInfo) isPayload()  {}
func (Custom) isPayload()      {}

func encodeErrorReport(w *wireWriter, p *ErrorReport) {
	w.u16(p.Code)
	w.str("Message", p.Message)
	w.boolean(p.Fatal)
}

func decodeErrorReport(r *wireReader) *ErrorReport {
	return &ErrorReport{
		Code:    r.u16(),
		Message: r.str(),
		Fatal:   r.boolean(),
	}
}

func encodePing(w *wireWriter, p *Ping) {
	w.i64(p.SentAt)
}

func decodePing(r *wireReader) *Ping {
	return &Ping{SentAt: r.i64()}
}

func encodePong(w *wireWriter, p *Pong) {
	w.i64(p.PingSentAt)
	w.i64(p.ServerTime)
}

func decodePong(r *wireReader) *Pong {
	return &Pong{
		PingSentAt: r.i64(),
		ServerTime: r.i64(),
	}
}

func encodeServerInfo(w *wireWriter, p *ServerInfo) {
	w.str("ServerName", p.ServerName)
	w.str("Version", p.Version)
	w.str("Region", p.Region)
	w.u32(p.PlayersOnline)
}

func decodeServerInfo(r *wireReader) *ServerInfo {
	return &ServerInfo{
		ServerName:    r.str(),
		Version:       r.str(),
		Region:        r.str(),
		PlayersOnline: r.u32(),
	}
}

func encodeClientInfo(w *wireWriter, p *ClientInfo) {
	w.str("ClientVersion", p.ClientVersion)
	w.str("Platform", p.Platform)
}

func decodeClientInfo(r *wireReader) *ClientInfo {
	return &ClientInfo{
		ClientVersion: r.str(),
		Platform:      r.str(),
	}
}

func encodeCustom(w *wireWriter, p *Custom) {
	w.str("Channel", p.Channel)
	w.blob("Data", p.Data)
}

func decodeCustom(r *wireReader) *Custom {
	return &Custom{
		Channel: r.str(),
		Data:    r.blob(),
	}
}
