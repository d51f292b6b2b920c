package message

type EnterQueue struct {
	Mode        string
	Region      string
	SkillRating int32
}

type LeaveQueue struct{}

type MatchFound struct {
	MatchId              string
	PlayerIds            []string
	AcceptDeadlineMillis uint32
}

type MatchAccept struct {
	MatchId string
}

type MatchDecline struct {
	MatchId string
}

func (EnterQueue) Kind() MessageKind   { return MessageKind_EnterQueue }
func (LeaveQueue) Kind() MessageKind   { return MessageKind_LeaveQueue }
func (MatchFound) Kind() MessageKind   { return MessageKind_MatchFound }
func (MatchAccept) Kind() MessageKind  { return MessageKind_MatchAccept }
func (MatchDecline) Kind() MessageKind { return MessageKind_MatchDecline }

func (EnterQueue) isPayload()   {}
func (LeaveQueue) isPayload()   {}
func (MatchFound) isPayload()   {}
func (MatchAccept) isPayload()  {}
func (MatchDecline) isPayload() {}

func encodeEnterQueue(w *wireWriter, p *EnterQueue) {
	w.str("Mode", p.Mode)
	w.str("Region", p.Region)
	w.i32(p.SkillRating)
}

func decodeEnterQueue(r *wireReader) *EnterQueue {
	return &EnterQueue{
		Mode:        r.str(),
		Region:      r.str(),
		SkillRating: r.i32(),
	}
}

func encodeMatchFound(w *wireWriter, p *MatchFound) {
	w.str("MatchId", p.MatchId)
	if w.count("PlayerIds", len(p.PlayerIds)) {
		for _, id := range p.PlayerIds {
			w.str("PlayerIds", id)
		}
	}
	w.u32(p.AcceptDeadlineMillis)
}

func decodeMatchFound(r *wireReader) *MatchFound {
	p := &MatchFound{MatchId: r.str()}
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		p.PlayerIds = append(p.PlayerIds, r.str())
	}
	p.AcceptDeadlineMillis = r.u32()
	return p
}

func encodeMatchAccept(w *wireWriter, p *MatchAccept) {
	w.str("MatchId", p.MatchId)
}

func decodeMatchAccept(r *wireReader) *MatchAccept {
	return &MatchAccept{MatchId: r.str()}
}

func encodeMatchDecline(w *wireWriter, p *MatchDecline) {
	w.str("MatchId", p.MatchId)
}

func decodeMatchDecline(r *wireReader) *MatchDecline {
	return &MatchDecline{MatchId: r.str()}
}
