package message

// Connect opens a session. The client sends DisplayName and ProtocolVersion;
// the server answers with Accepted (and Reason when refused).
type Connect struct {
	DisplayName     string
	ProtocolVersion uint16
	Accepted        bool
	Reason          string
}

type Disconnect struct {
	Reason string
}

type Heartbeat struct{}

// Authenticate carries the client credential outbound and the verdict inbound.
type Authenticate struct {
	Token    string
	Accepted bool
	Reason   string
}

func (Connect) Kind() MessageKind      { return MessageKind_Connect }
func (Disconnect) Kind() MessageKind   { return MessageKind_Disconnect }
func (Heartbeat) Kind() MessageKind    { return MessageKind_Heartbeat }
func (Authenticate) Kind() MessageKind { return MessageKind_Authenticate }

func (Connect) isPayload()      {}
func (Disconnect) isPayload()   {}
func (Heartbeat) isPayload()    {}
func (Authenticate) isPayload() {}

func encodeConnect(w *wireWriter, p *Connect) {
	w.str("DisplayName", p.DisplayName)
	w.u16(p.ProtocolVersion)
	w.boolean(p.Accepted)
	w.str("Reason", p.Reason)
}

func decodeConnect(r *wireReader) *Connect {
	return &Connect{
		DisplayName:     r.str(),
		ProtocolVersion: r.u16(),
		Accepted:        r.boolean(),
		Reason:          r.str(),
	}
}

func encodeDisconnect(w *wireWriter, p *Disconnect) {
	w.str("Reason", p.Reason)
}

func decodeDisconnect(r *wireReader) *Disconnect {
	return &Disconnect{Reason: r.str()}
}

func encodeAuthenticate(w *wireWriter, p *Authenticate) {
	w.str("Token", p.Token)
	w.boolean(p.Accepted)
	w.str("Reason", p.Reason)
}

func decodeAuthenticate(r *wireReader) *Authenticate {
	return &Authenticate{
		Token:    r.str(),
		Accepted: r.boolean(),
		Reason:   r.str(),
	}
}
