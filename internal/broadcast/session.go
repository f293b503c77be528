// Package broadcast owns the process lifecycle: it queries the position
// source on a fixed interval, encodes the state as CoT events, and pushes
// them through the configured transport until interrupted.
package broadcast

import (
	"github.com/google/uuid"

	"github.com/signalsfoundry/trackbeacon/internal/transport"
)

// Session is process-scoped broadcast state: the persistent identifier of
// the relative-bearing link object, generated once and stable for the
// process lifetime, and the active transport handle. It is constructed
// explicitly and passed where needed, never held in package globals.
type Session struct {
	LinkUID string
	Sender  transport.Sender
}

// NewSession generates the session's link identifier and binds the
// transport.
func NewSession(sender transport.Sender) *Session {
	return &Session{
		LinkUID: uuid.NewString(),
		Sender:  sender,
	}
}

// Close releases the transport.
func (s *Session) Close() error {
	return s.Sender.Close()
}
