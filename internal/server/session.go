package server

import (
	"net"
	"sync"

	"github.com/frjnn/wordquizzle/internal/protocol"
)

// Session is the server-side state bound to one client control
// connection. Its remote ephemeral port is the key the rest of the
// server uses to identify the connection; it is stable for the
// connection's lifetime.
//
// A session alternates between read-armed and read-disabled: the reactor
// reads exactly one frame, hands it to a task and then parks until the
// mailman (or a finishing match task) re-arms it. That gives every
// connection strict request serialization.
type Session struct {
	conn       net.Conn
	remotePort int
	buf        []byte

	rearm chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSession(conn net.Conn, bufSize int) *Session {
	return &Session{
		conn:       conn,
		remotePort: conn.RemoteAddr().(*net.TCPAddr).Port,
		buf:        make([]byte, bufSize),
		rearm:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// RemotePort returns the client's ephemeral port, the session key.
func (s *Session) RemotePort() int {
	return s.remotePort
}

// RemoteIP returns the client's IP address.
func (s *Session) RemoteIP() net.IP {
	return s.conn.RemoteAddr().(*net.TCPAddr).IP
}

// ReadFrame reads the next frame from the connection into the session
// buffer.
func (s *Session) ReadFrame() (string, error) {
	return protocol.ReadFrame(s.conn, s.buf)
}

// Write drains msg onto the connection.
func (s *Session) Write(msg string) error {
	return protocol.WriteFrame(s.conn, msg)
}

// Rearm re-enables reading. Idempotent: a session is re-armed at most
// once per outstanding task.
func (s *Session) Rearm() {
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

// AwaitRearm blocks until the session is re-armed. Returns false if the
// session was closed instead.
func (s *Session) AwaitRearm() bool {
	select {
	case <-s.rearm:
		return true
	case <-s.done:
		return false
	}
}

// Close closes the connection and releases anyone parked in AwaitRearm.
// Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
