package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ciaohost/concierge/pkg/logger"
)

var (
	errNotObject = errors.New("top level is not a JSON object")
	errNotScalar = errors.New("password is not a scalar value")
)

// Persister saves the whole catalog after a mutation.
type Persister interface {
	Save(c *Catalog) error
}

// Store reads and writes the catalog document at a fixed path. Writes
// overwrite the file in full; there is no locking between processes.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the catalog. A missing file, or one whose top level is not a
// JSON object, yields an empty catalog which is written back immediately.
// Malformed entries inside a valid document are skipped one by one. The
// returned catalog is never nil, and the error reports only a failure of
// the rewrite.
func (s *Store) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		var doc Document
		if doc, err = decodeDocument(data); err == nil {
			return FromDocument(doc), nil
		}
	}

	reason := "missing"
	if !errors.Is(err, os.ErrNotExist) {
		reason = err.Error()
	}
	logger.WarnCF("catalog", "Database unusable, starting empty", map[string]any{
		"path":   s.path,
		"reason": reason,
	})

	c := New()
	if saveErr := s.Save(c); saveErr != nil {
		return c, saveErr
	}
	return c, nil
}

// decodeDocument decodes the two top-level sections entry by entry, so a
// single bad record does not cost the rest of the file.
func decodeDocument(data []byte) (Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return Document{}, err
	}
	if top == nil {
		return Document{}, errNotObject
	}

	doc := Document{
		Properties: make(map[string]Property),
		Users:      make(map[string]string),
	}
	for id, raw := range decodeSection(top, "properties") {
		var p Property
		if err := json.Unmarshal(raw, &p); err != nil {
			warnSkipped("properties", id, err)
			continue
		}
		doc.Properties[id] = p
	}
	for email, raw := range decodeSection(top, "users") {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			warnSkipped("users", email, err)
			continue
		}
		switch v.(type) {
		case string, float64, bool:
			doc.Users[email] = asString(v)
		default:
			warnSkipped("users", email, errNotScalar)
		}
	}
	return doc, nil
}

func decodeSection(top map[string]json.RawMessage, name string) map[string]json.RawMessage {
	raw, ok := top[name]
	if !ok {
		return nil
	}
	var section map[string]json.RawMessage
	if err := json.Unmarshal(raw, &section); err != nil {
		logger.WarnCF("catalog", "Ignoring malformed section", map[string]any{
			"section": name,
			"error":   err.Error(),
		})
		return nil
	}
	return section
}

func warnSkipped(section, key string, err error) {
	logger.WarnCF("catalog", "Skipping malformed entry", map[string]any{
		"section": section,
		"key":     key,
		"error":   err.Error(),
	})
}

// Save writes the catalog as indented UTF-8 JSON. Non-ASCII text and
// characters such as '&' are written literally.
func (s *Store) Save(c *Catalog) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c.Document()); err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("saving catalog: %w", err)
		}
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	return nil
}
