package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/signalsfoundry/trackbeacon/internal/logging"
)

// TLSIdentity configures the encrypted variant's client identity and
// server trust. The client identity comes either from a PEM
// certificate/key pair or from a password-protected PKCS#12 bundle, not
// both.
type TLSIdentity struct {
	CAFile string

	CertFile string
	KeyFile  string

	P12File     string
	P12Password string

	// Insecure disables server certificate verification. Testing only.
	Insecure bool
}

// TLSSender is the encrypted mutually-authenticated stream variant.
// Reconnection repeats the full handshake.
type TLSSender struct {
	streamSender
}

func newTLSSender(cfg Config, log logging.Logger) (*TLSSender, error) {
	tlsCfg, err := buildTLSConfig(cfg.Host, cfg.Identity)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	netDialer := &net.Dialer{Timeout: cfg.SendTimeout}
	if cfg.BindIP != "" {
		netDialer.LocalAddr = &net.TCPAddr{IP: net.ParseIP(cfg.BindIP)}
	}
	dialer := &tls.Dialer{NetDialer: netDialer, Config: tlsCfg}

	s := &TLSSender{streamSender{
		name:    string(ModeTLS),
		timeout: cfg.SendTimeout,
		log:     log,
		metrics: cfg.Metrics,
	}}
	s.dial = func(ctx context.Context) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			// Identity/trust failures indicate misconfiguration and are
			// surfaced loudly; the loop still retries on its interval.
			var verifyErr *tls.CertificateVerificationError
			if errors.As(err, &verifyErr) {
				log.Error(ctx, "tls handshake rejected; check certificate configuration",
					logging.String("host", cfg.Host), logging.String("error", err.Error()))
			}
			return nil, err
		}
		return conn, nil
	}
	return s, nil
}

// buildTLSConfig assembles the client tls.Config from the identity
// options, failing fast on contradictory or unreadable material.
func buildTLSConfig(host string, id TLSIdentity) (*tls.Config, error) {
	if id.P12File != "" && id.CertFile != "" {
		return nil, fmt.Errorf("%w: both a PEM pair and a PKCS#12 bundle were given", ErrInvalidConfig)
	}
	if id.CertFile != "" && id.KeyFile == "" {
		return nil, fmt.Errorf("%w: client certificate without a private key", ErrInvalidConfig)
	}

	cfg := &tls.Config{ServerName: host}
	if id.Insecure {
		cfg.InsecureSkipVerify = true
	}

	if id.CAFile != "" {
		pem, err := os.ReadFile(id.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read CA file: %v", ErrInvalidConfig, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in CA file %s", ErrInvalidConfig, id.CAFile)
		}
		cfg.RootCAs = pool
	}

	switch {
	case id.CertFile != "":
		cert, err := tls.LoadX509KeyPair(id.CertFile, id.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: load client certificate: %v", ErrInvalidConfig, err)
		}
		cfg.Certificates = []tls.Certificate{cert}

	case id.P12File != "":
		data, err := os.ReadFile(id.P12File)
		if err != nil {
			return nil, fmt.Errorf("%w: read identity bundle: %v", ErrInvalidConfig, err)
		}
		key, leaf, caCerts, err := pkcs12.DecodeChain(data, id.P12Password)
		if err != nil {
			return nil, fmt.Errorf("%w: decode identity bundle: %v", ErrInvalidConfig, err)
		}
		chain := [][]byte{leaf.Raw}
		for _, ca := range caCerts {
			chain = append(chain, ca.Raw)
		}
		cfg.Certificates = []tls.Certificate{{
			Certificate: chain,
			PrivateKey:  key,
			Leaf:        leaf,
		}}
		// A bundle often carries the server trust root too.
		if cfg.RootCAs == nil && len(caCerts) > 0 {
			pool := x509.NewCertPool()
			for _, ca := range caCerts {
				pool.AddCert(ca)
			}
			cfg.RootCAs = pool
		}
	}

	return cfg, nil
}
