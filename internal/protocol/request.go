// Package protocol implements the WordQuizzle wire protocol: the
// space-separated command frames clients send on the control connection,
// the slash-separated frames of the match channel and the response
// strings the server emits.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode identifies the operation requested by a control frame.
type Opcode int

const (
	OpLogin Opcode = iota
	OpLogout
	OpAddFriend
	OpFriendList
	OpScore
	OpScoreboard
	OpMatch
)

// Request is the decoded form of one control frame. Which fields are
// populated depends on Op.
type Request struct {
	Op       Opcode
	Nickname string // OpLogin
	Password string // OpLogin
	UDPPort  int    // OpLogin: client port for match invitations
	Friend   string // OpAddFriend, OpMatch
}

// ParseRequest decodes a control frame. The frame is ASCII,
// space-separated, led by the numeric opcode; a trailing newline and any
// NUL padding are tolerated (legacy clients send neither delimiter and
// rely on one frame per read).
func ParseRequest(frame []byte) (Request, error) {
	text := strings.TrimRight(string(frame), "\x00\r\n")
	args := strings.Split(text, " ")
	if len(args) == 0 || args[0] == "" {
		return Request{}, fmt.Errorf("empty frame")
	}

	code, err := strconv.Atoi(args[0])
	if err != nil {
		return Request{}, fmt.Errorf("parsing opcode %q: %w", args[0], err)
	}

	req := Request{Op: Opcode(code)}
	switch req.Op {
	case OpLogin:
		if len(args) != 4 {
			return Request{}, fmt.Errorf("login expects 3 arguments, got %d", len(args)-1)
		}
		port, err := strconv.Atoi(args[3])
		if err != nil {
			return Request{}, fmt.Errorf("parsing login UDP port %q: %w", args[3], err)
		}
		req.Nickname = args[1]
		req.Password = args[2]
		req.UDPPort = port

	case OpLogout, OpFriendList, OpScore, OpScoreboard:
		if len(args) != 1 {
			return Request{}, fmt.Errorf("opcode %d expects no arguments, got %d", code, len(args)-1)
		}

	case OpAddFriend, OpMatch:
		if len(args) != 2 {
			return Request{}, fmt.Errorf("opcode %d expects 1 argument, got %d", code, len(args)-1)
		}
		req.Friend = args[1]

	default:
		return Request{}, fmt.Errorf("unknown opcode %d", code)
	}

	return req, nil
}
