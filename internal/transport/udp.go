package transport

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/internal/observability"
)

// MulticastSender is the connectionless variant: sends are fire-and-forget
// and there is no connection to recover, so failures are only reported.
type MulticastSender struct {
	conn    *net.UDPConn
	dst     *net.UDPAddr
	log     logging.Logger
	metrics *observability.BeaconCollector
}

func newMulticastSender(cfg Config, log logging.Logger) (*MulticastSender, error) {
	group := net.ParseIP(cfg.Group)
	if group == nil || !group.IsMulticast() {
		return nil, fmt.Errorf("%w: %q is not a multicast group address", ErrInvalidConfig, cfg.Group)
	}

	laddr := &net.UDPAddr{Port: 0}
	if cfg.BindIP != "" {
		ip := net.ParseIP(cfg.BindIP)
		if ip == nil {
			return nil, fmt.Errorf("%w: bad bind address %q", ErrInvalidConfig, cfg.BindIP)
		}
		laddr.IP = ip
	}

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("open multicast socket: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(cfg.TTL); err != nil {
		log.Warn(context.Background(), "set multicast ttl failed",
			logging.Int("ttl", cfg.TTL), logging.String("error", err.Error()))
	}
	if cfg.InterfaceIP != "" {
		if ifi, err := interfaceForIP(cfg.InterfaceIP); err != nil {
			// Keep going on the default interface, as a bad interface hint
			// should not prevent startup.
			log.Warn(context.Background(), "multicast interface not found, using default",
				logging.String("interface_ip", cfg.InterfaceIP), logging.String("error", err.Error()))
		} else if err := pc.SetMulticastInterface(ifi); err != nil {
			log.Warn(context.Background(), "set multicast interface failed",
				logging.String("interface", ifi.Name), logging.String("error", err.Error()))
		}
	}

	return &MulticastSender{
		conn:    conn,
		dst:     &net.UDPAddr{IP: group, Port: cfg.Port},
		log:     log,
		metrics: cfg.Metrics,
	}, nil
}

// Send transmits one datagram to the group. Never retried.
func (s *MulticastSender) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.conn.WriteToUDP(payload, s.dst); err != nil {
		s.metrics.IncSendFailure(string(ModeMulticast))
		return fmt.Errorf("multicast send to %s: %w", s.dst, err)
	}
	return nil
}

// Close releases the socket.
func (s *MulticastSender) Close() error {
	return s.conn.Close()
}

// interfaceForIP finds the network interface carrying the given unicast
// address.
func interfaceForIP(addr string) (*net.Interface, error) {
	want := net.ParseIP(addr)
	if want == nil {
		return nil, fmt.Errorf("bad interface address %q", addr)
	}
	ifis, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifis {
		addrs, err := ifis[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.Equal(want) {
				return &ifis[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface carries %s", addr)
}
