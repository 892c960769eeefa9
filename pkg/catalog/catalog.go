// Package catalog holds the managed properties and registered user
// credentials, and persists them as a single JSON document.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Catalog is the in-memory mirror of the database file. It is shared by
// every session of the process, so all access goes through its lock.
type Catalog struct {
	mu         sync.RWMutex
	properties map[string]Property
	users      map[string]string
}

// Document is the on-disk layout of the catalog.
type Document struct {
	Properties map[string]Property `json:"properties"`
	Users      map[string]string   `json:"users"`
}

func New() *Catalog {
	return &Catalog{
		properties: make(map[string]Property),
		users:      make(map[string]string),
	}
}

// FromDocument builds a catalog from a decoded document. Nil sections
// become empty maps.
func FromDocument(doc Document) *Catalog {
	c := New()
	for id, p := range doc.Properties {
		p.ID = id
		c.properties[id] = p.clone()
	}
	for email, password := range doc.Users {
		c.users[email] = password
	}
	return c
}

// Document returns a deep copy suitable for serialization.
func (c *Catalog) Document() Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc := Document{
		Properties: make(map[string]Property, len(c.properties)),
		Users:      make(map[string]string, len(c.users)),
	}
	for id, p := range c.properties {
		doc.Properties[id] = p.clone()
	}
	for email, password := range c.users {
		doc.Users[email] = password
	}
	return doc
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.properties)
}

// nextIDLocked starts from count+1 and walks upward past ids already taken,
// so holes left by deletions never cause a collision.
func (c *Catalog) nextIDLocked() string {
	n := len(c.properties) + 1
	id := strconv.Itoa(n)
	for {
		if _, taken := c.properties[id]; !taken {
			return id
		}
		n++
		id = strconv.Itoa(n)
	}
}

// Add inserts p under a freshly allocated id and returns the stored copy.
// An empty status is set to StatusAvailable.
func (c *Catalog) Add(p Property) Property {
	c.mu.Lock()
	defer c.mu.Unlock()

	p = p.clone()
	p.ID = c.nextIDLocked()
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if p.Services == nil {
		p.Services = []string{}
	}
	c.properties[p.ID] = p
	return p.clone()
}

func (c *Catalog) Get(id string) (Property, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.properties[id]
	if !ok {
		return Property{}, false
	}
	return p.clone(), true
}

// Delete removes the property stored under the exact key id.
func (c *Catalog) Delete(id string) (Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.properties[id]
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(c.properties, id)
	return p, nil
}

// Modify sets one field of a property from its textual form.
func (c *Catalog) Modify(id, field, value string) (Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.properties[id]
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p = p.clone()

	switch strings.ToLower(field) {
	case "name":
		p.Name = value
	case "type":
		p.Type = value
	case "location":
		p.Location = value
	case "phone":
		p.Phone = value
	case "status":
		p.Status = value
	case "services":
		p.Services = ParseServices(value)
	case "price":
		price, err := ParsePrice(value)
		if err != nil {
			return Property{}, err
		}
		p.Price = price
	default:
		return Property{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	c.properties[id] = p
	return p.clone(), nil
}

// Properties returns every property ordered by id.
func (c *Catalog) Properties() []Property {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Property, 0, len(c.properties))
	for _, p := range c.properties {
		out = append(out, p.clone())
	}
	sortByID(out)
	return out
}

// Available returns the properties that can be offered to guests.
func (c *Catalog) Available() []Property {
	all := c.Properties()
	out := all[:0]
	for _, p := range all {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Search filters available properties by a case-insensitive substring of
// name, type or location. When nothing matches, every available property is
// returned and fallback is true.
func (c *Catalog) Search(term string) (results []Property, fallback bool) {
	available := c.Available()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return available, false
	}

	for _, p := range available {
		if strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Type), term) ||
			strings.Contains(strings.ToLower(p.Location), term) {
			results = append(results, p)
		}
	}
	if len(results) == 0 {
		return available, true
	}
	return results, false
}

func sortByID(props []Property) {
	sort.Slice(props, func(i, j int) bool {
		return idLess(props[i].ID, props[j].ID)
	})
}

// idLess orders numeric ids numerically, ahead of any non-numeric id.
func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
