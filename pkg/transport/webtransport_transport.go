package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"
	"github.com/sessamekesh/turnlink/pkg/errors"
	"github.com/sessamekesh/turnlink/pkg/message"
	utils "github.com/sessamekesh/turnlink/pkg/util"
	"go.uber.org/zap"
)

type WebtransportTransportParams struct {
	Path string

	// TLSClientConfig is cloned for every dial. The h3 ALPN is always set.
	TLSClientConfig *tls.Config
	KeepAlivePeriod time.Duration

	IncomingQueueLength int
	OutgoingQueueLength int
	MaxMessageSize      int

	Logger *zap.Logger
}

type wtSession struct {
	dialer  *webtransport.Dialer
	session *webtransport.Session
	stream  webtransport.Stream

	incoming chan []byte
	outgoing chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *zap.Logger
}

// WebtransportTransport sends unreliable modes as QUIC datagrams and reliable
// modes over a single length-framed bidirectional stream.
type WebtransportTransport struct {
	params WebtransportTransportParams

	mut_session sync.RWMutex
	session     *wtSession

	log       *zap.Logger
	stringGen *utils.RandomStringGenerator
}

func CreateWebtransportTransport(params WebtransportTransportParams) *WebtransportTransport {
	logger := params.Logger
	if logger == nil {
		logger = zap.Must(zap.NewDevelopment())
	}
	if params.Path == "" {
		params.Path = "/"
	}
	if params.IncomingQueueLength <= 0 {
		params.IncomingQueueLength = DefaultIncomingQueueLength
	}
	if params.OutgoingQueueLength <= 0 {
		params.OutgoingQueueLength = DefaultOutgoingQueueLength
	}
	if params.MaxMessageSize <= 0 {
		params.MaxMessageSize = DefaultMaxMessageSize
	}

	return &WebtransportTransport{
		params:    params,
		log:       logger.With(zap.String("transport", "WebTransport")),
		stringGen: utils.CreateRandomstringGenerator(time.Now().UnixMicro()),
	}
}

func (wt *WebtransportTransport) url(address string, port int) string {
	u := url.URL{
		Scheme: "https",
		Host:   net.JoinHostPort(address, strconv.Itoa(port)),
		Path:   wt.params.Path,
	}
	return u.String()
}

func (wt *WebtransportTransport) tlsConfig() *tls.Config {
	var tlsConfig *tls.Config
	if wt.params.TLSClientConfig != nil {
		tlsConfig = wt.params.TLSClientConfig.Clone()
	} else {
		tlsConfig = &tls.Config{}
	}
	if !utils.Contains(http3.NextProtoH3, tlsConfig.NextProtos) {
		tlsConfig.NextProtos = append(tlsConfig.NextProtos, http3.NextProtoH3)
	}
	return tlsConfig
}

func (wt *WebtransportTransport) Connect(ctx context.Context, address string, port int, timeout time.Duration) error {
	wt.Disconnect()

	target := wt.url(address, port)
	log := wt.log.With(zap.String("wtConnId", wt.stringGen.GetRandomString(6)), zap.String("url", target))

	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := &webtransport.Dialer{
		TLSClientConfig: wt.tlsConfig(),
		QUICConfig: &quic.Config{
			EnableDatagrams: true,
			KeepAlivePeriod: wt.params.KeepAlivePeriod,
		},
	}

	_, session, err := dialer.Dial(dialCtx, target, nil)
	if err != nil {
		dialer.Close()
		log.Warn("WebTransport dial failed", zap.Error(err))
		return fmt.Errorf("dialing %s: %w", target, err)
	}

	stream, err := session.OpenStreamSync(dialCtx)
	if err != nil {
		session.CloseWithError(0, "failed to open stream")
		dialer.Close()
		log.Warn("Failed to open reliable stream", zap.Error(err))
		return fmt.Errorf("opening stream to %s: %w", target, err)
	}

	if ctx.Err() != nil {
		stream.Close()
		session.CloseWithError(0, "connect cancelled")
		dialer.Close()
		log.Info("Connect cancelled after dial, discarding session")
		return ctx.Err()
	}

	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	s := &wtSession{
		dialer:   dialer,
		session:  session,
		stream:   stream,
		incoming: make(chan []byte, wt.params.IncomingQueueLength),
		outgoing: make(chan []byte, wt.params.OutgoingQueueLength),
		ctx:      sessionCtx,
		cancel:   sessionCancel,
		log:      log,
	}

	s.wg.Add(3)
	go wt.readDatagrams(s)
	go wt.readStream(s)
	go wt.writeStream(s)

	wt.mut_session.Lock()
	previous := wt.session
	wt.session = s
	wt.mut_session.Unlock()

	if previous != nil {
		previous.close()
	}

	log.Info("WebTransport connected")
	return nil
}

func (wt *WebtransportTransport) readDatagrams(s *wtSession) {
	defer s.wg.Done()
	defer s.cancel()

	for {
		data, err := s.session.ReceiveDatagram(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Warn("Datagram read failed", zap.Error(err))
			}
			return
		}
		if !queuePush(s.incoming, data) {
			s.log.Warn("Incoming queue full, dropping datagram", zap.Int("size", len(data)))
		}
	}
}

func (wt *WebtransportTransport) readStream(s *wtSession) {
	defer s.wg.Done()
	defer s.cancel()

	for {
		data, err := readFrame(s.stream, wt.params.MaxMessageSize)
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Warn("Stream read failed", zap.Error(err))
			}
			return
		}
		if !queuePush(s.incoming, data) {
			s.log.Warn("Incoming queue full, dropping stream frame", zap.Int("size", len(data)))
		}
	}
}

func (wt *WebtransportTransport) writeStream(s *wtSession) {
	defer s.wg.Done()
	defer s.cancel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.session.Context().Done():
			return
		case data := <-s.outgoing:
			if err := writeFrame(s.stream, data); err != nil {
				s.log.Warn("Stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func (wt *WebtransportTransport) Disconnect() {
	wt.mut_session.Lock()
	s := wt.session
	wt.session = nil
	wt.mut_session.Unlock()

	if s == nil {
		return
	}
	s.close()
}

func (s *wtSession) close() {
	s.cancel()
	s.stream.Close()
	s.session.CloseWithError(0, "client disconnect")
	s.wg.Wait()
	s.dialer.Close()
	s.log.Info("WebTransport disconnected")
}

func (wt *WebtransportTransport) current() *wtSession {
	wt.mut_session.RLock()
	defer wt.mut_session.RUnlock()
	return wt.session
}

func (wt *WebtransportTransport) IsConnected() bool {
	s := wt.current()
	return s != nil && s.ctx.Err() == nil && s.session.Context().Err() == nil
}

func (wt *WebtransportTransport) HasPendingMessages() bool {
	s := wt.current()
	return s != nil && len(s.incoming) > 0
}

func (wt *WebtransportTransport) SendMessage(data []byte, reliability message.Reliability) error {
	s := wt.current()
	if s == nil || s.ctx.Err() != nil {
		return &errors.NotConnected{TransportName: "WebTransport"}
	}

	if !reliability.IsReliable() {
		err := s.session.SendDatagram(data)
		if err == nil {
			return nil
		}
		// Oversized datagrams still reach the server, just reliably.
		s.log.Debug("Datagram send failed, using stream", zap.Error(err), zap.Int("size", len(data)))
	}

	if !queuePush(s.outgoing, data) {
		return &errors.QueueFull{TransportName: "WebTransport", QueueName: "outgoing"}
	}
	return nil
}

func (wt *WebtransportTransport) ReceiveMessage() ([]byte, bool) {
	s := wt.current()
	if s == nil {
		return nil, false
	}
	return queuePop(s.incoming)
}
