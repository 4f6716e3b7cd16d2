package server

import (
	"log/slog"
	"net"
	"slices"

	"github.com/frjnn/wordquizzle/internal/protocol"
)

// loginTask binds a session to a user. On success the user enters the
// registry: the port→nickname map and the invitation address book are
// updated together.
type loginTask struct {
	srv      *Server
	session  *Session
	nickname string
	password string
	udpPort  int
}

func (t *loginTask) Run() {
	reply := func(msg string) {
		t.srv.depot.Put(Mail{Session: t.session, Payload: msg})
	}

	user, ok := t.srv.store.Get(t.nickname)
	if !ok {
		reply(protocol.UserNotFound(t.nickname))
		return
	}

	port := t.session.RemotePort()
	if t.srv.registry.Online(t.nickname) {
		reply(protocol.AlreadyLogged(t.nickname))
		return
	}
	if _, bound := t.srv.registry.Nickname(port); bound {
		reply(protocol.MsgAlreadyLogged2)
		return
	}
	if !user.CheckPassword(t.password) {
		reply(protocol.MsgWrongPassword)
		return
	}

	addr := &net.UDPAddr{IP: t.session.RemoteIP(), Port: t.udpPort}
	if err := t.srv.registry.Login(port, t.nickname, addr); err != nil {
		// Lost a race with a concurrent login; report it like the
		// pre-checks would have.
		if err == ErrNickOnline {
			reply(protocol.AlreadyLogged(t.nickname))
		} else {
			reply(protocol.MsgAlreadyLogged2)
		}
		return
	}

	slog.Info("user logged in", "nickname", t.nickname, "port", port, "udpPort", t.udpPort)
	reply(protocol.MsgLoginOK)
}

// logoutTask removes the session's login from the registry. The
// graceful mode replies with the logout sentinel, which makes the
// mailman close the connection after delivery. The brutal mode runs on
// detected peer crash: same cleanup, no reply, connection closed here.
type logoutTask struct {
	srv     *Server
	session *Session
	brutal  bool
}

func (t *logoutTask) Run() {
	nick, ok := t.srv.registry.Logout(t.session.RemotePort())

	if t.brutal {
		if ok {
			slog.Info("user crashed, brutal logout", "nickname", nick)
		}
		t.session.Close()
		return
	}

	if ok {
		slog.Info("user logged out", "nickname", nick)
	}
	t.srv.depot.Put(Mail{Session: t.session, Payload: protocol.MsgLogoutOK})
}

// addFriendTask makes the session's user and the target friends of each
// other. The mutation is symmetric and persisted before the reply.
type addFriendTask struct {
	srv     *Server
	session *Session
	friend  string
}

func (t *addFriendTask) Run() {
	nickname, ok := t.srv.registry.Nickname(t.session.RemotePort())
	if !ok {
		t.srv.depot.Put(Mail{Session: t.session})
		return
	}

	var msg string
	switch {
	case !t.srv.storeHas(t.friend):
		msg = protocol.FriendNotFound(t.friend)
	case nickname == t.friend:
		msg = protocol.MsgSelfFriend
	case t.srv.store.AddFriend(nickname, t.friend):
		msg = protocol.FriendAdded(t.friend)
	default:
		msg = protocol.AlreadyFriends(t.friend)
	}
	t.srv.depot.Put(Mail{Session: t.session, Payload: msg})
}

func (s *Server) storeHas(nick string) bool {
	_, ok := s.store.Get(nick)
	return ok
}

// friendListTask replies with the user's current friend list.
type friendListTask struct {
	srv     *Server
	session *Session
}

func (t *friendListTask) Run() {
	nickname, ok := t.srv.registry.Nickname(t.session.RemotePort())
	if !ok {
		t.srv.depot.Put(Mail{Session: t.session})
		return
	}

	user, _ := t.srv.store.Get(nickname)
	t.srv.depot.Put(Mail{Session: t.session, Payload: protocol.FriendList(user.Friends)})
}

// scoreTask replies with the user's score.
type scoreTask struct {
	srv     *Server
	session *Session
}

func (t *scoreTask) Run() {
	nickname, ok := t.srv.registry.Nickname(t.session.RemotePort())
	if !ok {
		t.srv.depot.Put(Mail{Session: t.session})
		return
	}

	user, _ := t.srv.store.Get(nickname)
	t.srv.depot.Put(Mail{Session: t.session, Payload: protocol.ScoreOf(nickname, user.Score)})
}

// scoreboardTask replies with the user plus all friends sorted by score,
// highest first. Ties keep the iteration order: friends in list order,
// the caller last.
type scoreboardTask struct {
	srv     *Server
	session *Session
}

func (t *scoreboardTask) Run() {
	nickname, ok := t.srv.registry.Nickname(t.session.RemotePort())
	if !ok {
		t.srv.depot.Put(Mail{Session: t.session})
		return
	}

	user, _ := t.srv.store.Get(nickname)
	entries := make([]protocol.ScoreEntry, 0, len(user.Friends)+1)
	for _, f := range user.Friends {
		if friend, ok := t.srv.store.Get(f); ok {
			entries = append(entries, protocol.ScoreEntry{Nickname: friend.Nickname, Score: friend.Score})
		}
	}
	entries = append(entries, protocol.ScoreEntry{Nickname: user.Nickname, Score: user.Score})

	slices.SortStableFunc(entries, func(a, b protocol.ScoreEntry) int {
		return b.Score - a.Score
	})

	t.srv.depot.Put(Mail{Session: t.session, Payload: protocol.Scoreboard(entries)})
}
