package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestNew_ConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown mode", Config{Mode: "carrier-pigeon", Port: 6969}},
		{"port zero", Config{Mode: ModeMulticast, Group: "239.2.3.1", Port: 0}},
		{"port out of range", Config{Mode: ModeTCP, Host: "example.com", Port: 70000}},
		{"tcp without host", Config{Mode: ModeTCP, Port: 6969}},
		{"tls without host", Config{Mode: ModeTLS, Port: 6969}},
		{"unicast group", Config{Mode: ModeMulticast, Group: "10.0.0.1", Port: 6969}},
		{"garbage group", Config{Mode: ModeMulticast, Group: "not-an-ip", Port: 6969}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg, nil); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestBuildTLSConfig_ContradictoryIdentity(t *testing.T) {
	_, err := buildTLSConfig("example.com", TLSIdentity{
		CertFile: "client.pem",
		KeyFile:  "client.key",
		P12File:  "client.p12",
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("PEM pair plus PKCS#12 bundle: err = %v, want ErrInvalidConfig", err)
	}
}

func TestBuildTLSConfig_CertWithoutKey(t *testing.T) {
	_, err := buildTLSConfig("example.com", TLSIdentity{CertFile: "client.pem"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestBuildTLSConfig_ServerNameAndInsecure(t *testing.T) {
	cfg, err := buildTLSConfig("tak.example.com", TLSIdentity{Insecure: true})
	if err != nil {
		t.Fatalf("buildTLSConfig: %v", err)
	}
	if cfg.ServerName != "tak.example.com" {
		t.Errorf("ServerName = %q", cfg.ServerName)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not set")
	}
}

// lineServer accepts one connection at a time and forwards each received
// line. Closing acceptNext drops the current connection.
func lineServer(t *testing.T) (addr *net.TCPAddr, lines <-chan string, closeConn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan string, 16)
	conns := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				ch <- sc.Text()
			}
		}
	}()
	drop := func() {
		select {
		case conn := <-conns:
			conn.Close()
		case <-time.After(time.Second):
			t.Fatal("no server-side connection to drop")
		}
	}
	return ln.Addr().(*net.TCPAddr), ch, drop
}

func recvLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return ""
	}
}

func TestTCPSender_SendsNewlineFramedPayloads(t *testing.T) {
	addr, lines, _ := lineServer(t)

	sender, err := New(Config{Mode: ModeTCP, Host: "127.0.0.1", Port: addr.Port}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sender.Close()

	ctx := context.Background()
	if err := sender.Send(ctx, []byte("<event/>")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := recvLine(t, lines); got != "<event/>" {
		t.Errorf("received %q, want %q", got, "<event/>")
	}
}

func TestTCPSender_ReconnectsOnNextSendAfterFailure(t *testing.T) {
	addr, lines, drop := lineServer(t)

	sender, err := New(Config{Mode: ModeTCP, Host: "127.0.0.1", Port: addr.Port, SendTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sender.Close()

	ctx := context.Background()
	if err := sender.Send(ctx, []byte("one")); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	recvLine(t, lines)

	drop()

	// The dead connection may need a write or two to surface the reset;
	// each failed Send drops the connection without redialing inside the
	// call, then the following Send re-establishes.
	deadline := time.Now().Add(2 * time.Second)
	failed := false
	for time.Now().Before(deadline) {
		if err := sender.Send(ctx, []byte("probe")); err != nil {
			failed = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !failed {
		t.Fatal("Send never failed after the server dropped the connection")
	}

	if err := sender.Send(ctx, []byte("two")); err != nil {
		t.Fatalf("Send after reconnect: %v", err)
	}
	if got := recvLine(t, lines); got != "two" {
		t.Errorf("received %q after reconnect, want %q", got, "two")
	}
}

func TestTCPSender_LazyConnectFailureIsReturned(t *testing.T) {
	// Grab a port with no listener on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender, err := New(Config{Mode: ModeTCP, Host: "127.0.0.1", Port: port, SendTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("construction must not dial: %v", err)
	}
	defer sender.Close()

	if err := sender.Send(context.Background(), []byte("x")); err == nil {
		t.Fatal("Send to a dead port should fail")
	}
}

func TestMulticastSender_SendAndClose(t *testing.T) {
	sender, err := New(Config{Mode: ModeMulticast, Group: "239.2.3.1", Port: 16969}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sender.Send(context.Background(), []byte("<event/>")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Send(ctx, []byte("late")); err == nil {
		t.Error("Send with cancelled context should fail")
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
