// Package registration exposes the synchronous user-registration RPC.
// The endpoint lives on its own well-known port under the service name
// REGISTRATION; the wire contract towards clients is only the four
// response strings.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"strings"
	"sync"

	"github.com/frjnn/wordquizzle/internal/store"
)

// ServiceName is the name the register method is published under.
const ServiceName = "REGISTRATION"

// Response strings. These are the whole cross-language contract.
const (
	MsgInvalidUsername = "Invalid username."
	MsgInvalidPassword = "Invalid password."
	MsgNicknameTaken   = "Nickname already taken."
	MsgRegistered      = "Registration succeeded."
)

// Args carries the register call parameters.
type Args struct {
	Username string
	Password string
}

// Handler implements the REGISTRATION service over the user store.
type Handler struct {
	store *store.Store
}

// Register validates the credentials and inserts the user. All outcomes
// are reported through the reply string; the error return is always nil
// so every result travels back as a normal response.
func (h *Handler) Register(args Args, reply *string) error {
	switch {
	case strings.TrimSpace(args.Username) == "":
		*reply = MsgInvalidUsername
	case args.Password == "":
		*reply = MsgInvalidPassword
	case !h.store.Register(args.Username, args.Password):
		*reply = MsgNicknameTaken
	default:
		*reply = MsgRegistered
		slog.Info("user registered", "nickname", args.Username)
	}
	return nil
}

// Endpoint is the RPC listener hosting the Handler.
type Endpoint struct {
	store       *store.Store
	bindAddress string
	port        int

	mu       sync.Mutex
	listener net.Listener
}

// NewEndpoint creates a registration endpoint on the given bind address
// and port.
func NewEndpoint(st *store.Store, bindAddress string, port int) *Endpoint {
	return &Endpoint{store: st, bindAddress: bindAddress, port: port}
}

// Addr returns the listener address, or nil if the endpoint is not
// running yet.
func (e *Endpoint) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Run binds the registry port and serves RPC connections until ctx is
// cancelled.
func (e *Endpoint) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", e.bindAddress, e.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on registry address %s: %w", addr, err)
	}

	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	return e.Serve(ctx, ln)
}

// Serve accepts RPC connections on a ready listener. Used by tests with
// an ephemeral port.
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, &Handler{store: e.store}); err != nil {
		return fmt.Errorf("registering RPC service: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("registration endpoint started", "address", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("registration accept failed", "err", err)
			continue
		}
		go srv.ServeConn(conn)
	}
}
