package protocol

import (
	"fmt"
	"strings"
)

// Fixed response strings. MsgLogoutOK doubles as the sentinel the mailman
// recognizes to close the connection after delivery.
const (
	MsgLoginOK        = "Login successful.\n"
	MsgLogoutOK       = "Logout successful.\n"
	MsgAlreadyLogged2 = "Login error: you are already logged with another account.\n"
	MsgWrongPassword  = "Login error: wrong password.\n"
	MsgNoFriends      = "You currently have no friends, add some!\n"
	MsgSelfFriend     = "Add friend error: you cannot add yourself as a friend.\n"
	MsgSelfChallenge  = "Match error: you cannot challenge yourself.\n"
	MsgSvcUnavailable = "Sorry, the translation service is unavailable. Try later.\n"
)

// Login/logout responses.

func UserNotFound(nick string) string {
	return fmt.Sprintf("Login error: user %s not found. Please register.\n", nick)
}

func AlreadyLogged(nick string) string {
	return fmt.Sprintf("Login error: %s is already logged in.\n", nick)
}

// Friend responses.

func FriendNotFound(friend string) string {
	return fmt.Sprintf("Add friend error: user %s not found.\n", friend)
}

func FriendAdded(friend string) string {
	return fmt.Sprintf("%s is now your friend.\n", friend)
}

func AlreadyFriends(friend string) string {
	return fmt.Sprintf("Add friend error: you and %s are already friends.\n", friend)
}

// FriendList joins the friend nicknames with single spaces. The empty
// list gets its own message; neither variant carries a dangling space.
func FriendList(friends []string) string {
	if len(friends) == 0 {
		return MsgNoFriends
	}
	return "Your friends are: " + strings.Join(friends, " ") + "\n"
}

// Score responses.

func ScoreOf(nick string, score int) string {
	return fmt.Sprintf("%s, your score is: %d\n", nick, score)
}

// Scoreboard emits "<nick> <score> " pairs in the given order. The
// trailing space is part of the historical format and is kept.
func Scoreboard(pairs []ScoreEntry) string {
	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s %d ", p.Nickname, p.Score)
	}
	b.WriteString("\n")
	return b.String()
}

// ScoreEntry is one scoreboard line item.
type ScoreEntry struct {
	Nickname string
	Score    int
}

// Match responses on the primary connection.

func NotFriends(friend string) string {
	return fmt.Sprintf("Match error: user %s and you are not friends.\n", friend)
}

func FriendOffline(friend string) string {
	return fmt.Sprintf("Match error: %s is offline\n", friend)
}

func InvitationTimedOut(friend string) string {
	return fmt.Sprintf("Match error: invitation to %s timed out.\n", friend)
}

func InvitationRefused(friend string) string {
	return fmt.Sprintf("%s refused your match invitation.\n", friend)
}

func InvitationAccepted(friend string, port int) string {
	return fmt.Sprintf("%s accepted your match invitation./%d\n", friend, port)
}

// UDP invitation datagrams.

func Invitation(challenger string, port int) string {
	return fmt.Sprintf("%s/%d", challenger, port)
}

func InvitationTimeout(challenger string) string {
	return "TIMEOUT/" + challenger
}

// Match channel frames.

const startBody = "START"

// StartFrame is the sentinel a player sends to request the first word.
func StartFrame(nick string) string {
	return startBody + "/" + nick
}

// IsStart reports whether body is the first-word request sentinel.
func IsStart(body string) bool {
	return body == startBody
}

// SplitMatchFrame splits a "<body>/<nick>" match frame. The body may
// itself contain slashes; the nickname is everything after the last one.
func SplitMatchFrame(frame string) (body, nick string, ok bool) {
	i := strings.LastIndexByte(frame, '/')
	if i < 0 {
		return "", "", false
	}
	return frame[:i], frame[i+1:], true
}

// WordFrame is the server's next-word message to a player.
func WordFrame(word string) string {
	return word + "\n"
}

// EndFrame is the terminal match result message. timedOut prefixes the
// text with the time-out marker.
func EndFrame(score int, outcome string, timedOut bool) string {
	if timedOut {
		return fmt.Sprintf("END/Time out: you have scored: %d points. You %s.\n", score, outcome)
	}
	return fmt.Sprintf("END/You have scored: %d points. You %s.\n", score, outcome)
}
