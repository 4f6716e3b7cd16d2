package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frjnn/wordquizzle/internal/match"
	"github.com/frjnn/wordquizzle/internal/protocol"
)

// matchTask runs a whole duel on one worker: pre-checks, invitation,
// rendezvous, play and scoring. While it runs it owns the challenger's
// primary connection — messages to the challenger are written directly,
// and re-arming the session is the task's final action.
type matchTask struct {
	srv     *Server
	ctx     context.Context
	session *Session
	friend  string
}

func (t *matchTask) Run() {
	defer t.session.Rearm()

	write := func(msg string) {
		if err := t.session.Write(msg); err != nil {
			slog.Error("writing to challenger failed", "port", t.session.RemotePort(), "err", err)
		}
	}

	nickname, ok := t.srv.registry.Nickname(t.session.RemotePort())
	if !ok {
		return
	}

	if nickname == t.friend {
		write(protocol.MsgSelfChallenge)
		return
	}

	user, ok := t.srv.store.Get(nickname)
	if !ok || !user.HasFriend(t.friend) {
		write(protocol.NotFriends(t.friend))
		return
	}

	inviteAddr, ok := t.srv.registry.InviteAddr(t.friend)
	if !ok {
		write(protocol.FriendOffline(t.friend))
		return
	}
	chalAddr, ok := t.srv.registry.InviteAddr(nickname)
	if !ok {
		return
	}

	cfg := match.Config{
		Challenger:    nickname,
		Challenged:    t.friend,
		ChallengerIP:  chalAddr.IP,
		ChallengedIP:  inviteAddr.IP,
		InviteAddr:    inviteAddr,
		NumWords:      t.srv.cfg.NumWords,
		PlayDuration:  t.srv.MatchDuration(),
		InviteTimeout: t.srv.InviteTimeout(),
	}

	slog.Info("match invitation sent", "challenger", nickname, "challenged", t.friend)
	res, err := match.Run(t.ctx, cfg, t.srv.dict, t.srv.translator, func(port int) {
		write(protocol.InvitationAccepted(t.friend, port))
	})

	switch {
	case errors.Is(err, match.ErrInviteTimeout):
		write(protocol.InvitationTimedOut(t.friend))
	case errors.Is(err, match.ErrRefused):
		write(protocol.InvitationRefused(t.friend))
	case err != nil:
		slog.Error("match aborted", "challenger", nickname, "challenged", t.friend, "err", err)
	case res.Played:
		t.srv.store.UpdateScore(nickname, res.ChallengerScore)
		t.srv.store.UpdateScore(t.friend, res.ChallengedScore)
		slog.Info("match finished",
			"challenger", nickname, "challengerScore", res.ChallengerScore,
			"challenged", t.friend, "challengedScore", res.ChallengedScore,
			"timedOut", res.TimedOut)
	}
}
