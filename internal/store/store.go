// Package store implements the persistent user database of the
// WordQuizzle server: an in-memory map of users snapshotted to a single
// JSON document after every mutation.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/frjnn/wordquizzle/internal/model"
)

// Store maps nicknames to users. Reads go straight to the concurrent
// map; mutations additionally serialize a full snapshot to disk before
// returning, so a reply to a client always follows durability.
// Thread-safe.
type Store struct {
	users sync.Map // map[string]*model.User

	// snapMu serializes snapshots so concurrent mutations cannot
	// interleave partial writes of the database file.
	snapMu sync.Mutex
	path   string
}

// Open loads the database at path, or starts an empty one if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading database %s: %w", path, err)
	}

	var users map[string]*model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parsing database %s: %w", path, err)
	}
	for nick, u := range users {
		if u.Friends == nil {
			u.Friends = []string{}
		}
		s.users.Store(nick, u)
	}

	slog.Info("database loaded", "path", path, "users", len(users))
	return s, nil
}

// Get returns a copy of the user with the given nickname. The copy is
// taken under the mutation lock, so a score or friend-list update
// finishing on another goroutine is either fully visible or not at all;
// callers never observe or share live record state.
func (s *Store) Get(nickname string) (model.User, bool) {
	u, ok := s.load(nickname)
	if !ok {
		return model.User{}, false
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	out := *u
	out.Friends = slices.Clone(u.Friends)
	return out, true
}

// load returns the live record. Its mutable fields must only be touched
// under snapMu.
func (s *Store) load(nickname string) (*model.User, bool) {
	v, ok := s.users.Load(nickname)
	if !ok {
		return nil, false
	}
	return v.(*model.User), true
}

// Register inserts a new user if the nickname is free. Returns false if
// the nickname is already taken.
func (s *Store) Register(nickname, password string) bool {
	u := model.NewUser(nickname, password)
	if _, loaded := s.users.LoadOrStore(nickname, u); loaded {
		return false
	}
	s.snapshot()
	return true
}

// AddFriend adds each nickname to the other's friend list. Returns false
// if they are already friends. Both users must exist.
func (s *Store) AddFriend(a, b string) bool {
	ua, ok := s.load(a)
	if !ok {
		return false
	}
	ub, ok := s.load(b)
	if !ok {
		return false
	}

	s.snapMu.Lock()
	if ua.HasFriend(b) {
		s.snapMu.Unlock()
		return false
	}
	ua.Friends = append(ua.Friends, b)
	ub.Friends = append(ub.Friends, a)
	s.snapMu.Unlock()

	s.snapshot()
	return true
}

// UpdateScore adds delta to the user's score.
func (s *Store) UpdateScore(nickname string, delta int) {
	u, ok := s.load(nickname)
	if !ok {
		return
	}
	s.snapMu.Lock()
	u.Score += delta
	s.snapMu.Unlock()

	s.snapshot()
}

// snapshot writes the whole map to the database file. The write goes to
// a temp file first and is renamed over the target, so readers never see
// a half-written document. Failures are logged: the in-memory mutation
// stands and the next successful snapshot subsumes it.
func (s *Store) snapshot() {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	users := make(map[string]*model.User)
	s.users.Range(func(k, v any) bool {
		users[k.(string)] = v.(*model.User)
		return true
	})

	data, err := json.Marshal(users)
	if err != nil {
		slog.Error("database snapshot failed", "path", s.path, "err", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("database snapshot failed", "path", s.path, "err", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("database snapshot failed", "path", s.path, "err", err)
		return
	}
}

// Path returns the on-disk location of the database file.
func (s *Store) Path() string {
	return filepath.Clean(s.path)
}
