package message

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/sessamekesh/turnlink/pkg/errors"
)

const (
	DefaultCompressionThreshold = 256
	DefaultMaxDecompressedSize  = 1 << 20

	// headerMinSize is kind + reliability + senderId length + timestamp + sequence.
	headerMinSize = 1 + 1 + 2 + 8 + 2
)

type WireFlags uint8

const (
	WireFlags_Compressed WireFlags = 0x1

	wireFlags_Known = WireFlags_Compressed
)

type MessageSerializerParams struct {
	// CompressionThreshold is the encoded size above which packets are
	// compressed. Zero means DefaultCompressionThreshold, negative disables.
	CompressionThreshold int

	// MaxDecompressedSize bounds the size a compressed packet may expand to.
	MaxDecompressedSize int
}

// MessageSerializer turns messages into self-delimiting packets and back.
// It is safe for concurrent use.
type MessageSerializer struct {
	compressionThreshold int
	maxDecompressedSize  int

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func CreateMessageSerializer(params MessageSerializerParams) (*MessageSerializer, error) {
	threshold := params.CompressionThreshold
	if threshold == 0 {
		threshold = DefaultCompressionThreshold
	}
	maxDecompressed := params.MaxDecompressedSize
	if maxDecompressed <= 0 {
		maxDecompressed = DefaultMaxDecompressedSize
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(uint64(maxDecompressed)))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &MessageSerializer{
		compressionThreshold: threshold,
		maxDecompressedSize:  maxDecompressed,
		encoder:              encoder,
		decoder:              decoder,
	}, nil
}

func (s *MessageSerializer) Serialize(msg *Message) ([]byte, error) {
	if msg == nil || msg.Payload == nil {
		return nil, &errors.ProtocolError{
			Op: "encode",
			Err: &errors.MissingFieldError{
				MessageName: "Message",
				FieldName:   "Payload",
			},
		}
	}
	if msg.Payload.Kind() != msg.Kind {
		return nil, &errors.ProtocolError{
			Op:  "encode",
			Err: fmt.Errorf("header kind %s does not match payload kind %s", msg.Kind, msg.Payload.Kind()),
		}
	}
	if !msg.Reliability.IsValid() {
		return nil, &errors.ProtocolError{
			Op: "encode",
			Err: &errors.InvalidEnumValue{
				EnumName: "Reliability",
				IntValue: uint8(msg.Reliability),
			},
		}
	}

	w := &wireWriter{
		out:         make([]byte, 1, 64),
		messageName: msg.Kind.String(),
	}
	w.u8(uint8(msg.Kind))
	w.u8(uint8(msg.Reliability))
	w.str("SenderId", msg.SenderId)
	w.i64(msg.Timestamp)
	w.u16(msg.Sequence)

	if err := encodePayload(w, msg.Payload); err != nil {
		return nil, &errors.ProtocolError{Op: "encode", Err: err}
	}
	if w.err != nil {
		return nil, &errors.ProtocolError{Op: "encode", Err: w.err}
	}

	body := w.out[1:]
	if s.compressionThreshold > 0 && len(body) > s.compressionThreshold {
		compressed := s.encoder.EncodeAll(body, make([]byte, 1, len(body)))
		if len(compressed) < len(w.out) {
			compressed[0] = uint8(WireFlags_Compressed)
			return compressed, nil
		}
	}

	w.out[0] = 0
	return w.out, nil
}

func (s *MessageSerializer) Parse(packet []byte) (*Message, error) {
	if len(packet) < 1 {
		return nil, &errors.ProtocolError{
			Op: "decode",
			Err: &errors.Underflow{
				MessageName: "Message",
				MsgSize:     len(packet),
				MinimumSize: 1 + headerMinSize,
			},
		}
	}

	flags := WireFlags(packet[0])
	if flags&^wireFlags_Known != 0 {
		return nil, &errors.ProtocolError{
			Op: "decode",
			Err: &errors.InvalidEnumValue{
				EnumName: "WireFlags",
				IntValue: uint8(flags),
			},
		}
	}

	body := packet[1:]
	if flags&WireFlags_Compressed != 0 {
		decompressed, err := s.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, &errors.ProtocolError{Op: "decompress", Err: err}
		}
		if len(decompressed) > s.maxDecompressedSize {
			return nil, &errors.ProtocolError{
				Op: "decompress",
				Err: &errors.FieldTooLong{
					MessageName: "Message",
					FieldName:   "Body",
					Length:      len(decompressed),
					MaxLength:   s.maxDecompressedSize,
				},
			}
		}
		body = decompressed
	}

	r := &wireReader{msg: body, messageName: "Header"}
	kindByte := r.u8()
	reliabilityByte := r.u8()
	header := Header{
		Kind:        MessageKind(kindByte),
		Reliability: Reliability(reliabilityByte),
		SenderId:    r.str(),
		Timestamp:   r.i64(),
		Sequence:    r.u16(),
	}
	if r.err != nil {
		return nil, &errors.ProtocolError{Op: "decode", Err: r.err}
	}
	if !header.Kind.IsValid() {
		return nil, &errors.ProtocolError{
			Op:  "decode",
			Err: &errors.UnknownMessageKind{KindByte: kindByte},
		}
	}
	if !header.Reliability.IsValid() {
		return nil, &errors.ProtocolError{
			Op: "decode",
			Err: &errors.InvalidEnumValue{
				EnumName: "Reliability",
				IntValue: reliabilityByte,
			},
		}
	}

	r.messageName = header.Kind.String()
	payload, err := decodePayload(header.Kind, r)
	if err != nil {
		return nil, &errors.ProtocolError{Op: "decode", Err: err}
	}
	if r.err != nil {
		return nil, &errors.ProtocolError{Op: "decode", Err: r.err}
	}
	if extra := r.remaining(); extra != 0 {
		return nil, &errors.ProtocolError{
			Op: "decode",
			Err: &errors.TrailingBytes{
				MessageName: header.Kind.String(),
				Extra:       extra,
			},
		}
	}

	return &Message{
		Header:  header,
		Payload: payload,
	}, nil
}

func encodePayload(w *wireWriter, payload Payload) error {
	switch p := payload.(type) {
	case *Connect:
		encodeConnect(w, p)
	case *Disconnect:
		encodeDisconnect(w, p)
	case *Heartbeat:
	case *Authenticate:
		encodeAuthenticate(w, p)
	case *CreateLobby:
		encodeCreateLobby(w, p)
	case *JoinLobby:
		encodeJoinLobby(w, p)
	case *LeaveLobby:
		encodeLeaveLobby(w, p)
	case *LobbyUpdate:
		encodeLobbyUpdate(w, p)
	case *PlayerReady:
		encodePlayerReady(w, p)
	case *KickPlayer:
		encodeKickPlayer(w, p)
	case *LobbyChat:
		encodeLobbyChat(w, p)
	case *LobbySettings:
		encodeLobbySettings(w, p)
	case *GameStart:
		encodeGameStart(w, p)
	case *GameEnd:
		encodeGameEnd(w, p)
	case *TurnStart:
		encodeTurnStart(w, p)
	case *TurnEnd:
		encodeTurnEnd(w, p)
	case *GameAction:
		encodeGameAction(w, p)
	case *GameState:
		encodeGameState(w, p)
	case *GameChat:
		encodeGameChat(w, p)
	case *StateSnapshot:
		encodeStateSnapshot(w, p)
	case *StateDelta:
		encodeStateDelta(w, p)
	case *SyncRequest:
		encodeSyncRequest(w, p)
	case *SyncResponse:
		encodeSyncResponse(w, p)
	case *Checksum:
		encodeChecksum(w, p)
	case *EnterQueue:
		encodeEnterQueue(w, p)
	case *LeaveQueue:
	case *MatchFound:
		encodeMatchFound(w, p)
	case *MatchAccept:
		encodeMatchAccept(w, p)
	case *MatchDecline:
		encodeMatchDecline(w, p)
	case *ErrorReport:
		encodeErrorReport(w, p)
	case *Ping:
		encodePing(w, p)
	case *Pong:
		encodePong(w, p)
	case *ServerInfo:
		encodeServerInfo(w, p)
	case *ClientInfo:
		encodeClientInfo(w, p)
	case *Custom:
		encodeCustom(w, p)
	default:
		return fmt.Errorf("unsupported payload type %T (payloads must be pointers)", payload)
	}
	return nil
}

func decodePayload(kind MessageKind, r *wireReader) (Payload, error) {
	switch kind {
	case MessageKind_Connect:
		return decodeConnect(r), nil
	case MessageKind_Disconnect:
		return decodeDisconnect(r), nil
	case MessageKind_Heartbeat:
		return &Heartbeat{}, nil
	case MessageKind_Authenticate:
		return decodeAuthenticate(r), nil
	case MessageKind_CreateLobby:
		return decodeCreateLobby(r), nil
	case MessageKind_JoinLobby:
		return decodeJoinLobby(r), nil
	case MessageKind_LeaveLobby:
		return decodeLeaveLobby(r), nil
	case MessageKind_LobbyUpdate:
		return decodeLobbyUpdate(r), nil
	case MessageKind_PlayerReady:
		return decodePlayerReady(r), nil
	case MessageKind_KickPlayer:
		return decodeKickPlayer(r), nil
	case MessageKind_LobbyChat:
		return decodeLobbyChat(r), nil
	case MessageKind_LobbySettings:
		return decodeLobbySettings(r), nil
	case MessageKind_GameStart:
		return decodeGameStart(r), nil
	case MessageKind_GameEnd:
		return decodeGameEnd(r), nil
	case MessageKind_TurnStart:
		return decodeTurnStart(r), nil
	case MessageKind_TurnEnd:
		return decodeTurnEnd(r), nil
	case MessageKind_GameAction:
		return decodeGameAction(r), nil
	case MessageKind_GameState:
		return decodeGameState(r), nil
	case MessageKind_GameChat:
		return decodeGameChat(r), nil
	case MessageKind_StateSnapshot:
		return decodeStateSnapshot(r), nil
	case MessageKind_StateDelta:
		return decodeStateDelta(r), nil
	case MessageKind_SyncRequest:
		return decodeSyncRequest(r), nil
	case MessageKind_SyncResponse:
		return decodeSyncResponse(r), nil
	case MessageKind_Checksum:
		return decodeChecksum(r), nil
	case MessageKind_EnterQueue:
		return decodeEnterQueue(r), nil
	case MessageKind_LeaveQueue:
		return &LeaveQueue{}, nil
	case MessageKind_MatchFound:
		return decodeMatchFound(r), nil
	case MessageKind_MatchAccept:
		return decodeMatchAccept(r), nil
	case MessageKind_MatchDecline:
		return decodeMatchDecline(r), nil
	case MessageKind_Error:
		return decodeErrorReport(r), nil
	case MessageKind_Ping:
		return decodePing(r), nil
	case MessageKind_Pong:
		return decodePong(r), nil
	case MessageKind_ServerInfo:
		return decodeServerInfo(r), nil
	case MessageKind_ClientInfo:
		return decodeClientInfo(r), nil
	case MessageKind_Custom:
		return decodeCustom(r), nil
	}

	return nil, &errors.UnknownMessageKind{KindByte: uint8(kind)}
}
