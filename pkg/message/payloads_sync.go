package message

// StateSnapshot is a full, already-compressed authoritative state blob.
type StateSnapshot struct {
	Turn     uint32
	Checksum string
	State    []byte
}

// StateDelta applies on top of the state at BaseTurn and yields Checksum.
type StateDelta struct {
	BaseTurn uint32
	Turn     uint32
	Checksum string
	Delta    []byte
}

type SyncRequest struct {
	LastKnownTurn     uint32
	LastKnownChecksum string
}

type SyncResponse struct {
	Turn     uint32
	Checksum string
	State    []byte
}

type Checksum struct {
	Turn     uint32
	Checksum string
}

func (StateSnapshot) Kind() MessageKind { return MessageKind_StateSnapshot }
func (StateDelta) Kind() MessageKind    { return MessageKind_StateDelta }
func (SyncRequest) Kind() MessageKind   { return MessageKind_SyncRequest }
func (SyncResponse) Kind() MessageKind  { return MessageKind_SyncResponse }
func (Checksum) Kind() MessageKind      { return MessageKind_Checksum }

func (StateSnapshot) isPayload() {}
func (StateDelta) isPayload()    {}
func (SyncRequest) isPayload()   {}
func (SyncResponse) isPayload()  {}
func (Checksum) isPayload()      {}

func encodeStateSnapshot(w *wireWriter, p *StateSnapshot) {
	w.u32(p.Turn)
	w.str("Checksum", p.Checksum)
	w.blob("State", p.State)
}

func decodeStateSnapshot(r *wireReader) *StateSnapshot {
	return &StateSnapshot{
		Turn:     r.u32(),
		Checksum: r.str(),
		State:    r.blob(),
	}
}

func encodeStateDelta(w *wireWriter, p *StateDelta) {
	w.u32(p.BaseTurn)
	w.u32(p.Turn)
	w.str("Checksum", p.Checksum)
	w.blob("Delta", p.Delta)
}

func decodeStateDelta(r *wireReader) *StateDelta {
	return &StateDelta{
		BaseTurn: r.u32(),
		Turn:     r.u32(),
		Checksum: r.str(),
		Delta:    r.blob(),
	}
}

func encodeSyncRequest(w *wireWriter, p *SyncRequest) {
	w.u32(p.LastKnownTurn)
	w.str("LastKnownChecksum", p.LastKnownChecksum)
}

func decodeSyncRequest(r *wireReader) *SyncRequest {
	return &SyncRequest{
		LastKnownTurn:     r.u32(),
		LastKnownChecksum: r.str(),
	}
}

func encodeSyncResponse(w *wireWriter, p *SyncResponse) {
	w.u32(p.Turn)
	w.str("Checksum", p.Checksum)
	w.blob("State", p.State)
}

func decodeSyncResponse(r *wireReader) *SyncResponse {
	return &SyncResponse{
		Turn:     r.u32(),
		Checksum: r.str(),
		State:    r.blob(),
	}
}

func encodeChecksum(w *wireWriter, p *Checksum) {
	w.u32(p.Turn)
	w.str("Checksum", p.Checksum)
}

func decodeChecksum(r *wireReader) *Checksum {
	return &Checksum{
		Turn:     r.u32(),
		Checksum: r.str(),
	}
}
