// Package server implements the WordQuizzle request multiplexer: the
// reactor that owns the client connections, the worker pool the reactor
// dispatches tasks to, the mailman that serializes replies back onto the
// connections, and the per-command tasks themselves.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/frjnn/wordquizzle/internal/config"
	"github.com/frjnn/wordquizzle/internal/protocol"
	"github.com/frjnn/wordquizzle/internal/store"
	"github.com/frjnn/wordquizzle/internal/words"
)

// Server is the process-wide context: every task receives it by handle
// instead of reaching for globals.
type Server struct {
	cfg        config.Server
	store      *store.Store
	registry   *Registry
	depot      *Depot
	pool       *Pool
	dict       *words.Dictionary
	translator words.Translator

	mu       sync.Mutex
	listener net.Listener
}

// New creates a server over its collaborators.
func New(cfg config.Server, st *store.Store, dict *words.Dictionary, tr words.Translator) *Server {
	return &Server{
		cfg:        cfg,
		store:      st,
		registry:   NewRegistry(),
		depot:      NewDepot(),
		pool:       NewPool(cfg.Workers),
		dict:       dict,
		translator: tr,
	}
}

// Registry exposes the online-user registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// MatchDuration is the configured wall-clock bound of a match.
func (s *Server) MatchDuration() time.Duration {
	return time.Duration(s.cfg.MatchMinutes) * time.Minute
}

// InviteTimeout is the configured invitation time to live.
func (s *Server) InviteTimeout() time.Duration {
	return time.Duration(s.cfg.InvitationSeconds) * time.Second
}

// Addr returns the TCP listen address, or nil if the server is not
// running yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run binds the control TCP port and the UDP discovery port, then serves
// until ctx is cancelled. Bind failures are fatal.
func (s *Server) Run(ctx context.Context) error {
	tcpAddr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.TCPPort)
	ln, err := net.Listen("tcp", tcpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", tcpAddr, err)
	}

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.ParseIP(s.cfg.BindAddress),
		Port: s.cfg.UDPPort,
	})
	if err != nil {
		ln.Close()
		return fmt.Errorf("listening on udp port %d: %w", s.cfg.UDPPort, err)
	}

	return s.Serve(ctx, ln, udpConn)
}

// Serve runs the server over ready sockets. Used by tests with ephemeral
// ports.
func (s *Server) Serve(ctx context.Context, ln net.Listener, udpConn *net.UDPConn) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	go func() {
		<-gctx.Done()
		ln.Close()
		udpConn.Close()
	}()

	s.pool.Start(gctx)

	g.Go(func() error {
		return NewMailman(s.depot).Run(gctx)
	})

	g.Go(func() error {
		return s.discoveryLoop(udpConn, ln.Addr().(*net.TCPAddr).Port)
	})

	g.Go(func() error {
		slog.Info("listening for connections", "address", ln.Addr())
		return s.acceptLoop(gctx, ln)
	})

	err := g.Wait()
	s.pool.Wait()
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("accept failed", "err", err)
			continue
		}
		slog.Info("accepted connection", "remote", conn.RemoteAddr())

		sess := newSession(conn, s.cfg.ReadBufferSize)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, sess)
		}()
	}
}

// serveConn is the per-connection slice of the reactor: read one frame,
// dispatch one task, park until re-armed. A failed read is the crash
// signal and runs the brutal logout path.
func (s *Server) serveConn(ctx context.Context, sess *Session) {
	defer sess.Close()

	// Shutdown closes the session, which unblocks both the read below
	// and any park in AwaitRearm.
	stop := context.AfterFunc(ctx, sess.Close)
	defer stop()

	for {
		frame, err := sess.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				slog.Debug("connection read failed", "port", sess.RemotePort(), "err", err)
			}
			s.pool.Submit(&logoutTask{srv: s, session: sess, brutal: true})
			return
		}

		req, err := protocol.ParseRequest([]byte(frame))
		if err != nil {
			slog.Debug("dropping malformed frame", "port", sess.RemotePort(), "err", err)
			continue
		}

		s.pool.Submit(s.taskFor(ctx, req, sess))

		// Read interest stays off until the reply has been delivered.
		if !sess.AwaitRearm() {
			return
		}
	}
}

func (s *Server) taskFor(ctx context.Context, req protocol.Request, sess *Session) Task {
	switch req.Op {
	case protocol.OpLogin:
		return &loginTask{srv: s, session: sess, nickname: req.Nickname, password: req.Password, udpPort: req.UDPPort}
	case protocol.OpLogout:
		return &logoutTask{srv: s, session: sess}
	case protocol.OpAddFriend:
		return &addFriendTask{srv: s, session: sess, friend: req.Friend}
	case protocol.OpFriendList:
		return &friendListTask{srv: s, session: sess}
	case protocol.OpScore:
		return &scoreTask{srv: s, session: sess}
	case protocol.OpScoreboard:
		return &scoreboardTask{srv: s, session: sess}
	case protocol.OpMatch:
		return &matchTask{srv: s, ctx: ctx, session: sess, friend: req.Friend}
	default:
		// ParseRequest already rejected unknown opcodes.
		panic(fmt.Sprintf("unhandled opcode %d", req.Op))
	}
}

// discoveryLoop answers every datagram on the discovery socket with the
// server's TCP port in decimal ASCII.
func (s *Server) discoveryLoop(conn *net.UDPConn, tcpPort int) error {
	reply := []byte(strconv.Itoa(tcpPort))
	buf := make([]byte, 64)

	for {
		_, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			slog.Error("discovery read failed", "err", err)
			continue
		}
		if _, err := conn.WriteToUDP(reply, addr); err != nil {
			slog.Error("discovery reply failed", "remote", addr, "err", err)
		}
	}
}
