// Package session keeps per-conversation state: admin login progress and
// the message history.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ciaohost/concierge/pkg/logger"
)

type Manager struct {
	sessions map[string]*Session
	mu       sync.Mutex
	storage  string
}

// NewManager creates a manager. When storage is non-empty, a history saved
// there by a previous run is loaded back the first time its key is used;
// admin state never is.
func NewManager(storage string) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		storage:  storage,
	}

	if storage != "" {
		if err := os.MkdirAll(storage, 0o755); err != nil {
			logger.WarnCF("session", "Cannot create session storage", map[string]any{
				"path":  storage,
				"error": err.Error(),
			})
		}
	}

	return m
}

func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.lookupLocked(key); ok {
		return s
	}
	s := newSession(key)
	m.sessions[key] = s
	return s
}

func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(key)
}

// lookupLocked returns the in-memory session or the one saved on disk.
func (m *Manager) lookupLocked(key string) (*Session, bool) {
	if s, ok := m.sessions[key]; ok {
		return s, true
	}
	s, ok := m.load(key)
	if ok {
		m.sessions[key] = s
	}
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Reset clears the session stored under key, if any.
func (m *Manager) Reset(key string) {
	if s, ok := m.Get(key); ok {
		s.Reset()
	}
}

// Evict saves and drops from memory the idle sessions not updated for
// maxIdle. Sessions in the middle of an admin login or in admin mode stay.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Session
	for key, s := range m.sessions {
		if s.AdminState() == Idle && s.Updated().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		if err := m.write(s); err != nil {
			logger.WarnCF("session", "Failed to save evicted session", map[string]any{
				"session": s.Key(),
				"error":   err.Error(),
			})
		}
	}
	return len(idle)
}

// sanitizeFilename converts a session key into a safe filename. Keys look
// like "channel:chatID", and ':' is not allowed in Windows paths.
func sanitizeFilename(key string) string {
	return strings.ReplaceAll(key, ":", "_")
}

func (m *Manager) sessionPath(key string) (string, error) {
	filename := sanitizeFilename(key)
	if filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return "", os.ErrInvalid
	}
	return filepath.Join(m.storage, filename+".json"), nil
}

// Save writes the history of one session. It is a no-op without storage.
func (m *Manager) Save(key string) error {
	if m.storage == "" {
		return nil
	}
	s, ok := m.Get(key)
	if !ok {
		return nil
	}
	return m.write(s)
}

func (m *Manager) write(s *Session) error {
	if m.storage == "" {
		return nil
	}
	path, err := m.sessionPath(s.Key())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (m *Manager) load(key string) (*Session, bool) {
	if m.storage == "" {
		return nil, false
	}
	path, err := m.sessionPath(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Key != key {
		logger.DebugCF("session", "Skipping unreadable session file", map[string]any{
			"file": filepath.Base(path),
		})
		return nil, false
	}

	s := newSession(snap.Key)
	if snap.Messages != nil {
		s.messages = snap.Messages
	}
	if !snap.Created.IsZero() {
		s.created = snap.Created
	}
	if !snap.Updated.IsZero() {
		s.updated = snap.Updated
	}
	return s, true
}
