// Package transport delivers serialized events over one of three channels:
// connectionless UDP multicast, a persistent TCP stream, or a mutually
// authenticated TLS stream.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/internal/observability"
)

// ErrInvalidConfig is a package-level sentinel wrapped by all
// construction-time configuration failures.
var ErrInvalidConfig = errors.New("invalid transport configuration")

// Mode selects the transport variant.
type Mode string

const (
	ModeMulticast Mode = "multicast"
	ModeTCP       Mode = "tcp"
	ModeTLS       Mode = "tls"
)

// Sender accepts one serialized event per call and delivers it best
// effort. A failed Send is reported to the caller and retried on the next
// scheduled tick, never within the call. Senders are not safe for
// concurrent use; the broadcast loop is the sole owner.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Config selects and parameterizes a transport variant. Construction-time
// validation is the only place variant-specific checks happen; after New,
// callers treat every Sender uniformly.
type Config struct {
	Mode Mode

	// Multicast options.
	Group       string // destination multicast group address
	InterfaceIP string // outbound multicast interface address, optional
	TTL         int    // defaults to 1 (local subnet)

	// Stream options.
	Host string

	// Shared options.
	Port   int
	BindIP string // optional local bind address

	// SendTimeout bounds connects and writes on stream variants.
	// Defaults to 5s.
	SendTimeout time.Duration

	// Identity configures the TLS variant's client identity and trust.
	Identity TLSIdentity

	// Metrics receives transport counters; nil disables recording.
	Metrics *observability.BeaconCollector
}

// ApplyDefaults fills zero fields with defaults.
func (c Config) ApplyDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 1
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	return c
}

// New constructs the Sender variant selected by cfg.Mode. Configuration
// errors are fatal here; no connection is attempted yet for stream
// variants (they connect lazily on first send).
func New(cfg Config, log logging.Logger) (Sender, error) {
	if log == nil {
		log = logging.Noop()
	}
	cfg = cfg.ApplyDefaults()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, cfg.Port)
	}

	switch cfg.Mode {
	case ModeMulticast:
		return newMulticastSender(cfg, log)
	case ModeTCP:
		if cfg.Host == "" {
			return nil, fmt.Errorf("%w: tcp mode requires a host", ErrInvalidConfig)
		}
		return newTCPSender(cfg, log), nil
	case ModeTLS:
		if cfg.Host == "" {
			return nil, fmt.Errorf("%w: tls mode requires a host", ErrInvalidConfig)
		}
		return newTLSSender(cfg, log)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}
}
