// Package model holds the persistent domain types of the WordQuizzle server.
package model

import (
	"slices"
	"unicode/utf16"
)

// User is one registered player. The JSON field names are the on-disk
// format of Database.json and must not change: existing databases are
// reloaded with these exact keys.
type User struct {
	Nickname string   `json:"nickname"`
	PwdHash  int32    `json:"pwdHash"`
	Score    int      `json:"score"`
	Friends  []string `json:"friends"`
}

// NewUser creates a user with the given nickname and password, zero score
// and no friends.
func NewUser(nickname, password string) *User {
	return &User{
		Nickname: nickname,
		PwdHash:  HashPassword(password),
		Friends:  []string{},
	}
}

// HasFriend returns true if nick is in the user's friend list.
func (u *User) HasFriend(nick string) bool {
	return slices.Contains(u.Friends, nick)
}

// CheckPassword compares the stored hash against the given password.
func (u *User) CheckPassword(password string) bool {
	return u.PwdHash == HashPassword(password)
}

// HashPassword computes the 32-bit credential comparator stored in
// Database.json: h = 31*h + c over the UTF-16 code units of the password.
// Not a security primitive — kept for compatibility with databases
// written by earlier versions of the server.
func HashPassword(password string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(password)) {
		h = 31*h + int32(c)
	}
	return h
}
