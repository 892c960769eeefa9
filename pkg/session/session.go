package session

import (
	"sync"
	"time"
)

// AdminState tracks progress through the admin login and the admin mode.
type AdminState int

const (
	Idle AdminState = iota
	AwaitingUsername
	AwaitingPassword
	Active
)

func (s AdminState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingUsername:
		return "awaiting-username"
	case AwaitingPassword:
		return "awaiting-password"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Mode returns the coarse admin mode: "" when idle, "auth" during login,
// "active" once authenticated.
func (s AdminState) Mode() string {
	switch s {
	case AwaitingUsername, AwaitingPassword:
		return "auth"
	case Active:
		return "active"
	default:
		return ""
	}
}

// Step is only meaningful while Mode is "auth".
func (s AdminState) Step() string {
	switch s {
	case AwaitingUsername:
		return "username"
	case AwaitingPassword:
		return "password"
	default:
		return ""
	}
}

// Authenticating reports whether the session is in one of the login steps.
func (s AdminState) Authenticating() bool {
	return s == AwaitingUsername || s == AwaitingPassword
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleBot   = "bot"
)

type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Session is the state of one conversation. Admin state lives only in
// memory; the message history can be persisted by the Manager.
type Session struct {
	mu       sync.Mutex
	key      string
	admin    AdminState
	messages []Message
	created  time.Time
	updated  time.Time
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		key:      key,
		messages: []Message{},
		created:  now,
		updated:  now,
	}
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) AdminState() AdminState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

func (s *Session) SetAdminState(state AdminState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = state
	s.updated = time.Now()
}

func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.messages = append(s.messages, Message{Role: role, Content: content, Time: now})
	s.updated = now
}

// History returns a copy of the whole conversation.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Recent returns at most the last n messages. n <= 0 returns nothing.
func (s *Session) Recent(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return []Message{}
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// Reset clears history and admin state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = Idle
	s.messages = []Message{}
	s.updated = time.Now()
}

func (s *Session) Updated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Session) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return snapshot{
		Key:      s.key,
		Messages: msgs,
		Created:  s.created,
		Updated:  s.updated,
	}
}

// snapshot is the on-disk form of a session.
type snapshot struct {
	Key      string    `json:"key"`
	Messages []Message `json:"messages"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}
