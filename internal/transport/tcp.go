package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/internal/observability"
)

// streamSender is the shared persistent-connection machinery behind the
// TCP and TLS variants. It connects lazily on the first send, marks the
// connection dead on any write failure, and re-establishes at most one
// connection per send attempt. Failed payloads are never buffered or
// replayed.
type streamSender struct {
	name    string
	dial    func(ctx context.Context) (net.Conn, error)
	timeout time.Duration
	log     logging.Logger
	metrics *observability.BeaconCollector

	conn net.Conn
}

// Send writes one newline-delimited payload. On failure the connection is
// dropped and the error returned; the next Send redials.
func (s *streamSender) Send(ctx context.Context, payload []byte) error {
	if s.conn == nil {
		dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		conn, err := s.dial(dialCtx)
		if err != nil {
			s.metrics.IncSendFailure(s.name)
			return fmt.Errorf("%s connect: %w", s.name, err)
		}
		s.conn = conn
		s.metrics.IncConnect(s.name)
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, '\n')

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		s.dropConn()
		s.metrics.IncSendFailure(s.name)
		return fmt.Errorf("%s set deadline: %w", s.name, err)
	}
	if _, err := s.conn.Write(framed); err != nil {
		s.dropConn()
		s.metrics.IncSendFailure(s.name)
		return fmt.Errorf("%s send: %w", s.name, err)
	}
	return nil
}

// Close tears down the connection if one is open.
func (s *streamSender) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *streamSender) dropConn() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn(context.Background(), "close dead connection failed",
				logging.String("transport", s.name), logging.String("error", err.Error()))
		}
		s.conn = nil
	}
}

// TCPSender is the plain persistent-stream variant.
type TCPSender struct {
	streamSender
}

func newTCPSender(cfg Config, log logging.Logger) *TCPSender {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.SendTimeout}
	if cfg.BindIP != "" {
		dialer.LocalAddr = &net.TCPAddr{IP: net.ParseIP(cfg.BindIP)}
	}
	return &TCPSender{streamSender{
		name: string(ModeTCP),
		dial: func(ctx context.Context) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", addr)
		},
		timeout: cfg.SendTimeout,
		log:     log,
		metrics: cfg.Metrics,
	}}
}
