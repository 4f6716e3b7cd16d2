// Package match implements the two-player translation duel: the UDP
// invitation, the rendezvous on an ephemeral TCP acceptor, the play loop
// feeding words and collecting answers, and the final scoring.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/frjnn/wordquizzle/internal/model"
	"github.com/frjnn/wordquizzle/internal/protocol"
	"github.com/frjnn/wordquizzle/internal/words"
)

// Invitation outcomes surfaced to the caller.
var (
	ErrInviteTimeout = errors.New("match: invitation timed out")
	ErrRefused       = errors.New("match: invitation refused")
)

// Config carries everything a duel needs. IPs come from the match book:
// they attribute the two inbound rendezvous connections to the players.
type Config struct {
	Challenger string
	Challenged string

	ChallengerIP net.IP
	ChallengedIP net.IP
	InviteAddr   *net.UDPAddr

	NumWords      int
	PlayDuration  time.Duration
	InviteTimeout time.Duration
}

// Result is the terminal state of a duel. Played is false when the
// translation service was unreachable: both players were informed and
// nothing is scored.
type Result struct {
	ChallengerScore int
	ChallengedScore int
	TimedOut        bool
	Played          bool
}

const (
	challenger = 0
	challenged = 1
)

// Run drives one duel from invitation to scoring. onAccepted fires as
// soon as the challenged user says yes, with the rendezvous port the
// challenger must be told on their primary connection.
func Run(ctx context.Context, cfg Config, dict *words.Dictionary, tr words.Translator, onAccepted func(port int)) (Result, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return Result{}, fmt.Errorf("binding match acceptor: %w", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if err := invite(cfg, port); err != nil {
		return Result{}, err
	}
	onAccepted(port)

	conns, err := awaitJoins(ctx, cfg, ln)
	if err != nil {
		return Result{}, err
	}
	defer conns[challenger].Close()
	defer conns[challenged].Close()

	cards, err := pickCards(ctx, dict, tr, cfg.NumWords)
	if err != nil {
		slog.Warn("translation service unavailable", "err", err)
		abortUnavailable(conns, cfg.PlayDuration)
		return Result{Played: false}, nil
	}

	return play(ctx, cfg, conns, cards)
}

// invite sends the invitation datagram and waits for the single-byte
// verdict until the invitation expires.
func invite(cfg Config, port int) error {
	inv, err := net.ListenUDP("udp", nil)
	if err != nil {
		return fmt.Errorf("binding invitation socket: %w", err)
	}
	defer inv.Close()

	payload := []byte(protocol.Invitation(cfg.Challenger, port))
	if _, err := inv.WriteToUDP(payload, cfg.InviteAddr); err != nil {
		return fmt.Errorf("sending invitation: %w", err)
	}

	inv.SetReadDeadline(time.Now().Add(cfg.InviteTimeout))
	buf := make([]byte, 16)
	n, _, err := inv.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// Tell the challenged client to purge its pending entry.
			expired := []byte(protocol.InvitationTimeout(cfg.Challenger))
			if _, err := inv.WriteToUDP(expired, cfg.InviteAddr); err != nil {
				slog.Error("sending invitation expiry failed", "err", err)
			}
			return ErrInviteTimeout
		}
		return fmt.Errorf("receiving invitation response: %w", err)
	}

	// Anything but an explicit yes counts as a refusal.
	if strings.TrimRight(string(buf[:n]), "\x00\r\n") != "Y" {
		return ErrRefused
	}
	return nil
}

// awaitJoins accepts inbound connections until both players are present,
// attributing each by its remote IP. There is no join deadline; a
// cancelled context closes the acceptor and aborts.
func awaitJoins(ctx context.Context, cfg Config, ln net.Listener) ([2]net.Conn, error) {
	var conns [2]net.Conn

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for conns[challenger] == nil || conns[challenged] == nil {
		conn, err := ln.Accept()
		if err != nil {
			if conns[challenger] != nil {
				conns[challenger].Close()
			}
			if conns[challenged] != nil {
				conns[challenged].Close()
			}
			return conns, fmt.Errorf("accepting match join: %w", err)
		}

		ip := conn.RemoteAddr().(*net.TCPAddr).IP
		switch {
		case conns[challenger] == nil && ip.Equal(cfg.ChallengerIP):
			conns[challenger] = conn
		case conns[challenged] == nil && ip.Equal(cfg.ChallengedIP):
			conns[challenged] = conn
		default:
			conn.Close()
		}
	}
	return conns, nil
}

// pickCards draws the match vocabulary and translates it.
func pickCards(ctx context.Context, dict *words.Dictionary, tr words.Translator, n int) ([]model.WordCard, error) {
	italians, err := dict.Pick(n)
	if err != nil {
		return nil, err
	}

	translations, err := tr.Translate(ctx, italians)
	if err != nil {
		return nil, err
	}

	cards := make([]model.WordCard, n)
	for i, w := range italians {
		cards[i] = model.WordCard{Italian: w, English: translations[w]}
	}
	return cards, nil
}

// abortUnavailable answers each player's first frame with the sorry
// message and ends the match unscored. Bounded by the play deadline: a
// joined player that never sends anything must not park the worker.
func abortUnavailable(conns [2]net.Conn, deadline time.Duration) {
	events := make(chan frameEvent, 8)
	stop := make(chan struct{})
	defer close(stop)
	go readLoop(conns[challenger], challenger, events, stop)
	go readLoop(conns[challenged], challenged, events, stop)

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var told [2]bool
	for !told[challenger] || !told[challenged] {
		select {
		case <-timer.C:
			return
		case ev := <-events:
			if !ev.eof {
				protocol.WriteFrame(conns[ev.player], protocol.MsgSvcUnavailable)
			}
			told[ev.player] = true
		}
	}
}

// frameEvent is one occurrence on the per-match reactor: a frame from a
// player, or that player's crash.
type frameEvent struct {
	player int
	text   string
	eof    bool
}

func readLoop(conn net.Conn, player int, events chan<- frameEvent, stop <-chan struct{}) {
	buf := make([]byte, 256)
	for {
		text, err := protocol.ReadFrame(conn, buf)
		if err != nil {
			select {
			case events <- frameEvent{player: player, eof: true}:
			case <-stop:
			}
			return
		}
		select {
		case events <- frameEvent{player: player, text: text}:
		case <-stop:
			return
		}
	}
}

// play runs the duel proper. Per-player state: the index of the next
// word to hand out (a START counts as receiving the first word, so after
// START the index is 1) and the answer slots. The loop ends when the
// wall-clock deadline fires or both indices have moved past the last
// word.
func play(ctx context.Context, cfg Config, conns [2]net.Conn, cards []model.WordCard) (Result, error) {
	n := len(cards)
	names := [2]string{cfg.Challenger, cfg.Challenged}
	var idx [2]int
	answers := [2][]string{make([]string, n), make([]string, n)}

	events := make(chan frameEvent, 16)
	stop := make(chan struct{})
	defer close(stop)
	go readLoop(conns[challenger], challenger, events, stop)
	go readLoop(conns[challenged], challenged, events, stop)

	timer := time.NewTimer(cfg.PlayDuration)
	defer timer.Stop()

	timedOut := false
loop:
	for idx[challenger] <= n || idx[challenged] <= n {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()

		case <-timer.C:
			timedOut = true
			break loop

		case ev := <-events:
			if ev.eof {
				// Remaining answer slots keep their zero value and
				// score nothing.
				idx[ev.player] = n + 1
				continue
			}

			body, nick, ok := protocol.SplitMatchFrame(ev.text)
			if !ok {
				continue
			}
			// Frames are attributed by the nickname they carry, not by
			// the connection they arrived on.
			var p int
			switch nick {
			case names[challenger]:
				p = challenger
			case names[challenged]:
				p = challenged
			default:
				continue
			}

			if protocol.IsStart(body) {
				if idx[p] == 0 {
					sendWord(conns[p], cards[0].Italian)
					idx[p] = 1
				}
				continue
			}

			if idx[p] == 0 || idx[p] > n {
				continue
			}
			answers[p][idx[p]-1] = body
			if idx[p] < n {
				sendWord(conns[p], cards[idx[p]].Italian)
			}
			idx[p]++
		}
	}

	chalScore := scoreAnswers(cards, answers[challenger], idx[challenger])
	chldScore := scoreAnswers(cards, answers[challenged], idx[challenged])
	chalScore, chldScore, chalOutcome, chldOutcome := applyBonus(chalScore, chldScore)

	scores := [2]int{chalScore, chldScore}
	outcomes := [2]string{chalOutcome, chldOutcome}
	for p := range conns {
		if err := protocol.WriteFrame(conns[p], protocol.EndFrame(scores[p], outcomes[p], timedOut)); err != nil {
			slog.Debug("sending match result failed", "player", names[p], "err", err)
		}
	}

	return Result{
		ChallengerScore: chalScore,
		ChallengedScore: chldScore,
		TimedOut:        timedOut,
		Played:          true,
	}, nil
}

func sendWord(conn net.Conn, word string) {
	if err := protocol.WriteFrame(conn, protocol.WordFrame(word)); err != nil {
		slog.Debug("sending word failed", "err", err)
	}
}
