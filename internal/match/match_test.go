package match

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/frjnn/wordquizzle/internal/protocol"
	"github.com/frjnn/wordquizzle/internal/words"
)

var duelTable = map[string]string{
	"casa":  "house",
	"cane":  "dog",
	"gatto": "cat",
}

type stubTranslator struct {
	err error
}

func (s stubTranslator) Translate(_ context.Context, items []string) (map[string][]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]string, len(items))
	for _, w := range items {
		out[w] = []string{duelTable[w]}
	}
	return out, nil
}

// duelFixture plays the challenged client's side of the invitation: it
// owns the UDP socket the invitation lands on.
type duelFixture struct {
	cfg    Config
	dict   *words.Dictionary
	invite *net.UDPConn
}

func newDuelFixture(t *testing.T) *duelFixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dictionary.txt")
	if err := os.WriteFile(path, []byte("casa\ncane\ngatto\n"), 0o644); err != nil {
		t.Fatalf("writing dictionary: %v", err)
	}
	dict, err := words.LoadDictionary(path)
	if err != nil {
		t.Fatalf("loading dictionary: %v", err)
	}

	invite, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("binding invitation socket: %v", err)
	}
	t.Cleanup(func() { invite.Close() })

	return &duelFixture{
		cfg: Config{
			Challenger:    "alice",
			Challenged:    "bob",
			ChallengerIP:  net.IPv4(127, 0, 0, 1),
			ChallengedIP:  net.IPv4(127, 0, 0, 1),
			InviteAddr:    invite.LocalAddr().(*net.UDPAddr),
			NumWords:      3,
			PlayDuration:  30 * time.Second,
			InviteTimeout: 5 * time.Second,
		},
		dict:   dict,
		invite: invite,
	}
}

type runOutcome struct {
	res Result
	err error
}

func (f *duelFixture) start(t *testing.T, tr words.Translator, accepted chan int) chan runOutcome {
	t.Helper()
	outcome := make(chan runOutcome, 1)
	go func() {
		res, err := Run(context.Background(), f.cfg, f.dict, tr, func(port int) {
			accepted <- port
		})
		outcome <- runOutcome{res: res, err: err}
	}()
	return outcome
}

// awaitDatagram reads one datagram off the invitation socket.
func (f *duelFixture) awaitDatagram(t *testing.T) (string, *net.UDPAddr) {
	t.Helper()
	f.invite.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 128)
	n, addr, err := f.invite.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("reading invitation datagram: %v", err)
	}
	return string(buf[:n]), addr
}

func (f *duelFixture) acceptInvitation(t *testing.T) {
	t.Helper()
	text, from := f.awaitDatagram(t)
	if !strings.HasPrefix(text, "alice/") {
		t.Fatalf("invitation = %q; want alice/<port>", text)
	}
	if _, err := f.invite.WriteToUDP([]byte("Y"), from); err != nil {
		t.Fatalf("answering invitation: %v", err)
	}
}

func awaitOutcome(t *testing.T, outcome chan runOutcome) runOutcome {
	t.Helper()
	select {
	case out := <-outcome:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("match did not finish in time")
		return runOutcome{}
	}
}

func joinMatch(t *testing.T, accepted chan int) (chalConn, chldConn net.Conn) {
	t.Helper()
	var port int
	select {
	case port = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("acceptance callback did not fire")
	}

	// The acceptor attributes same-IP joins in arrival order, so the
	// challenger must connect first.
	chalConn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("joining as challenger: %v", err)
	}
	t.Cleanup(func() { chalConn.Close() })
	chldConn, err = net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("joining as challenged: %v", err)
	}
	t.Cleanup(func() { chldConn.Close() })
	return chalConn, chldConn
}

func mustSend(t *testing.T, conn net.Conn, frame string) {
	t.Helper()
	if err := protocol.WriteFrame(conn, frame+"\n"); err != nil {
		t.Fatalf("writing %q: %v", frame, err)
	}
}

func recvFrame(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	frame, err := protocol.ReadFrame(conn, buf)
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return frame
}

// answerAll plays a whole hand: START, then one answer per received
// word. It stops right before the final result frame.
func answerAll(t *testing.T, conn net.Conn, nick string, n int) {
	t.Helper()
	mustSend(t, conn, protocol.StartFrame(nick))
	for i := 0; i < n; i++ {
		word := recvFrame(t, conn)
		answer, ok := duelTable[word]
		if !ok {
			t.Fatalf("received unknown word %q", word)
		}
		mustSend(t, conn, answer+"/"+nick)
	}
}

func TestRunHappyPath(t *testing.T) {
	f := newDuelFixture(t)
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{}, accepted)

	f.acceptInvitation(t)
	chalConn, chldConn := joinMatch(t, accepted)

	answerAll(t, chalConn, "alice", 3)
	answerAll(t, chldConn, "bob", 3)

	wantEnd := strings.TrimSuffix(protocol.EndFrame(6, "drew", false), "\n")
	if got := recvFrame(t, chalConn); got != wantEnd {
		t.Errorf("challenger result = %q; want %q", got, wantEnd)
	}
	if got := recvFrame(t, chldConn); got != wantEnd {
		t.Errorf("challenged result = %q; want %q", got, wantEnd)
	}

	out := awaitOutcome(t, outcome)
	if out.err != nil {
		t.Fatalf("Run returned error: %v", out.err)
	}
	want := Result{ChallengerScore: 6, ChallengedScore: 6, Played: true}
	if out.res != want {
		t.Errorf("result = %+v; want %+v", out.res, want)
	}
}

func TestRunChallengerCrash(t *testing.T) {
	f := newDuelFixture(t)
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{}, accepted)

	f.acceptInvitation(t)
	chalConn, chldConn := joinMatch(t, accepted)

	chalConn.Close()
	answerAll(t, chldConn, "bob", 3)

	wantEnd := strings.TrimSuffix(protocol.EndFrame(9, "won", false), "\n")
	if got := recvFrame(t, chldConn); got != wantEnd {
		t.Errorf("challenged result = %q; want %q", got, wantEnd)
	}

	out := awaitOutcome(t, outcome)
	if out.err != nil {
		t.Fatalf("Run returned error: %v", out.err)
	}
	want := Result{ChallengerScore: 0, ChallengedScore: 9, Played: true}
	if out.res != want {
		t.Errorf("result = %+v; want %+v", out.res, want)
	}
}

func TestRunPlayTimeout(t *testing.T) {
	f := newDuelFixture(t)
	f.cfg.PlayDuration = 200 * time.Millisecond
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{}, accepted)

	f.acceptInvitation(t)
	chalConn, chldConn := joinMatch(t, accepted)

	// Both ask for the first word and then stall.
	mustSend(t, chalConn, protocol.StartFrame("alice"))
	mustSend(t, chldConn, protocol.StartFrame("bob"))
	recvFrame(t, chalConn)
	recvFrame(t, chldConn)

	wantEnd := strings.TrimSuffix(protocol.EndFrame(0, "drew", true), "\n")
	if got := recvFrame(t, chalConn); got != wantEnd {
		t.Errorf("challenger result = %q; want %q", got, wantEnd)
	}
	if got := recvFrame(t, chldConn); got != wantEnd {
		t.Errorf("challenged result = %q; want %q", got, wantEnd)
	}

	out := awaitOutcome(t, outcome)
	if out.err != nil {
		t.Fatalf("Run returned error: %v", out.err)
	}
	want := Result{TimedOut: true, Played: true}
	if out.res != want {
		t.Errorf("result = %+v; want %+v", out.res, want)
	}
}

func TestRunTranslatorUnavailable(t *testing.T) {
	f := newDuelFixture(t)
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{err: errors.New("vendor down")}, accepted)

	f.acceptInvitation(t)
	chalConn, chldConn := joinMatch(t, accepted)

	mustSend(t, chalConn, protocol.StartFrame("alice"))
	mustSend(t, chldConn, protocol.StartFrame("bob"))

	wantMsg := strings.TrimSuffix(protocol.MsgSvcUnavailable, "\n")
	if got := recvFrame(t, chalConn); got != wantMsg {
		t.Errorf("challenger got %q; want %q", got, wantMsg)
	}
	if got := recvFrame(t, chldConn); got != wantMsg {
		t.Errorf("challenged got %q; want %q", got, wantMsg)
	}

	out := awaitOutcome(t, outcome)
	if out.err != nil {
		t.Fatalf("Run returned error: %v", out.err)
	}
	if out.res.Played {
		t.Error("match counted as played without a vocabulary")
	}
}

func TestRunTranslatorUnavailableSilentPlayer(t *testing.T) {
	f := newDuelFixture(t)
	f.cfg.PlayDuration = 200 * time.Millisecond
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{err: errors.New("vendor down")}, accepted)

	f.acceptInvitation(t)
	chalConn, _ := joinMatch(t, accepted)

	// Only the challenger speaks; the challenged player joins and goes
	// quiet. The match must still wind down on the deadline.
	mustSend(t, chalConn, protocol.StartFrame("alice"))
	wantMsg := strings.TrimSuffix(protocol.MsgSvcUnavailable, "\n")
	if got := recvFrame(t, chalConn); got != wantMsg {
		t.Errorf("challenger got %q; want %q", got, wantMsg)
	}

	out := awaitOutcome(t, outcome)
	if out.err != nil {
		t.Fatalf("Run returned error: %v", out.err)
	}
	if out.res.Played {
		t.Error("match counted as played without a vocabulary")
	}
}

func TestRunInvitationRefused(t *testing.T) {
	f := newDuelFixture(t)
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{}, accepted)

	_, from := f.awaitDatagram(t)
	if _, err := f.invite.WriteToUDP([]byte("N"), from); err != nil {
		t.Fatalf("refusing invitation: %v", err)
	}

	out := awaitOutcome(t, outcome)
	if !errors.Is(out.err, ErrRefused) {
		t.Fatalf("err = %v; want ErrRefused", out.err)
	}
	if len(accepted) != 0 {
		t.Error("acceptance callback fired on a refused invitation")
	}
}

func TestRunInvitationTimeout(t *testing.T) {
	f := newDuelFixture(t)
	f.cfg.InviteTimeout = 200 * time.Millisecond
	accepted := make(chan int, 1)
	outcome := f.start(t, stubTranslator{}, accepted)

	// Swallow the invitation and never answer.
	f.awaitDatagram(t)

	out := awaitOutcome(t, outcome)
	if !errors.Is(out.err, ErrInviteTimeout) {
		t.Fatalf("err = %v; want ErrInviteTimeout", out.err)
	}

	// The expiry datagram tells the challenged client to drop the entry.
	text, _ := f.awaitDatagram(t)
	if text != protocol.InvitationTimeout("alice") {
		t.Errorf("expiry datagram = %q; want %q", text, protocol.InvitationTimeout("alice"))
	}
}
