package server

import (
	"errors"
	"net"
	"sync"
)

// Login failure reasons.
var (
	ErrNickOnline = errors.New("nickname already logged in")
	ErrPortBound  = errors.New("connection already bound to an account")
)

// Registry tracks who is online. It pairs the two process-wide maps of
// the server: remote ephemeral port → nickname, and nickname → UDP
// address for match invitations. Both are mutated under one lock so a
// user is always in both or in neither, and each nickname maps to at
// most one connection.
type Registry struct {
	mu     sync.Mutex
	byPort map[int]string
	book   map[string]*net.UDPAddr
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPort: make(map[int]string),
		book:   make(map[string]*net.UDPAddr),
	}
}

// Login binds the connection's remote port to the nickname and records
// the invitation address. Fails if the nickname is logged in elsewhere
// or the port already carries a login.
func (r *Registry) Login(port int, nick string, addr *net.UDPAddr) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, online := r.book[nick]; online {
		return ErrNickOnline
	}
	if _, bound := r.byPort[port]; bound {
		return ErrPortBound
	}
	r.byPort[port] = nick
	r.book[nick] = addr
	return nil
}

// Logout removes the login bound to the port, if any, from both maps.
// Returns the nickname that was logged out. Idempotent.
func (r *Registry) Logout(port int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nick, ok := r.byPort[port]
	if !ok {
		return "", false
	}
	delete(r.byPort, port)
	delete(r.book, nick)
	return nick, true
}

// Nickname returns the nickname logged in on the given remote port.
func (r *Registry) Nickname(port int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nick, ok := r.byPort[port]
	return nick, ok
}

// Online reports whether the nickname is logged in.
func (r *Registry) Online(nick string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.book[nick]
	return ok
}

// InviteAddr returns the UDP address recorded for the nickname at login.
func (r *Registry) InviteAddr(nick string) (*net.UDPAddr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.book[nick]
	return addr, ok
}

// Count returns the number of logged-in users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPort)
}
