// Package audit keeps a tamper-evident trail of admin activity: logins,
// admin mode exits and catalog mutations. Events are appended as JSON lines,
// each signed with an HMAC that chains to the previous event.
package audit

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAuthSuccess      EventType = "auth_success"
	EventAuthFailure      EventType = "auth_failure"
	EventAdminExit        EventType = "admin_exit"
	EventPropertyAdded    EventType = "property_added"
	EventPropertyModified EventType = "property_modified"
	EventPropertyDeleted  EventType = "property_deleted"
	EventUserRegistered   EventType = "user_registered"
	EventRateLimitHit     EventType = "rate_limit_hit"
)

type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	EventType    EventType      `json:"event_type"`
	Actor        string         `json:"actor,omitempty"`    // session key that triggered the event
	Resource     string         `json:"resource,omitempty"` // property id or user email
	Details      map[string]any `json:"details,omitempty"`
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	Hash         string         `json:"hash,omitempty"`
	PreviousHash string         `json:"previous_hash,omitempty"`
}

type Config struct {
	Enabled       bool
	Path          string
	RetentionDays int
	// SecretKey signs events. When empty a random key is generated, so the
	// chain can only be verified by the process that wrote it.
	SecretKey []byte
}

// Logger appends events to the audit file. A nil *Logger is valid and
// discards everything.
type Logger struct {
	config   Config
	file     *os.File
	mu       sync.Mutex
	lastHash string
}

// New opens (or creates) the audit file and resumes the hash chain from its
// last event.
func New(config Config) (*Logger, error) {
	l := &Logger{config: config}
	if !config.Enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	if len(l.config.SecretKey) == 0 {
		key, err := generateSecretKey()
		if err != nil {
			return nil, err
		}
		l.config.SecretKey = key
	}

	l.lastHash = readLastHash(config.Path)

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	l.file = file
	return l, nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Log records an event, filling in its id and timestamp when missing.
func (l *Logger) Log(event Event) error {
	if l == nil || !l.config.Enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit log is closed")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	event.PreviousHash = l.lastHash
	event.Hash = l.computeHash(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}

	l.lastHash = event.Hash
	return nil
}

func (l *Logger) computeHash(event Event) string {
	signData := strings.Join([]string{
		event.ID,
		event.Timestamp.Format(time.RFC3339Nano),
		string(event.EventType),
		event.Actor,
		event.Resource,
		fmt.Sprintf("%v", event.Success),
		event.PreviousHash,
	}, "|")

	h := hmac.New(sha256.New, l.config.SecretKey)
	h.Write([]byte(signData))
	return hex.EncodeToString(h.Sum(nil))
}

func generateSecretKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate audit key: %w", err)
	}
	return key, nil
}

// ReadEvents returns every event in the audit file, oldest first.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(text), &event); err != nil {
			return nil, fmt.Errorf("failed to parse event at line %d: %w", line, err)
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// VerifyChain checks every hash and every back-link of the audit file.
func (l *Logger) VerifyChain() (bool, error) {
	if l == nil || !l.config.Enabled {
		return false, fmt.Errorf("audit logger not enabled")
	}

	events, err := ReadEvents(l.config.Path)
	if err != nil {
		return false, err
	}

	var prevHash string
	for i, event := range events {
		if i > 0 && event.PreviousHash != prevHash {
			return false, fmt.Errorf("hash chain broken at event %d", i+1)
		}
		if event.Hash != l.computeHash(event) {
			return false, fmt.Errorf("event hash mismatch at event %d", i+1)
		}
		prevHash = event.Hash
	}
	return true, nil
}

// CleanupOldLogs drops events older than the retention period.
func (l *Logger) CleanupOldLogs() error {
	if l == nil || !l.config.Enabled || l.config.RetentionDays <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -l.config.RetentionDays)
	var kept strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if event.Timestamp.After(cutoff) {
			kept.WriteString(line)
			kept.WriteByte('\n')
		}
	}

	return os.WriteFile(l.config.Path, []byte(kept.String()), 0o600)
}

func readLastHash(path string) string {
	events, err := ReadEvents(path)
	if err != nil || len(events) == 0 {
		return ""
	}
	return events[len(events)-1].Hash
}
