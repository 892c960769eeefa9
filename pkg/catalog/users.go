package catalog

import (
	"sort"
	"strings"
)

const minPasswordLength = 6

// User is one registered credential pair. Passwords are kept in clear, as
// the rest of the application expects.
type User struct {
	Email    string
	Password string
}

// Credentials is the admin login pair from configuration.
type Credentials struct {
	Username string
	Password string
}

// Identity is the result of a successful login.
type Identity struct {
	Email string
	Admin bool
}

// Users returns every registered credential ordered by email.
func (c *Catalog) Users() []User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]User, 0, len(c.users))
	for email, password := range c.users {
		out = append(out, User{Email: email, Password: password})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func (c *Catalog) UserCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// Register adds a new user. reserved is the admin username, which can never
// be registered as an email.
func (c *Catalog) Register(email, password, reserved string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.hasUserLocked(email):
		return ErrEmailTaken
	case email == reserved:
		return ErrReservedEmail
	case !strings.Contains(email, "@") || !strings.Contains(email, "."):
		return ErrInvalidEmail
	case len(password) < minPasswordLength:
		return ErrWeakPassword
	}

	c.users[email] = password
	return nil
}

// Login checks the admin pair first, then the registered users.
func (c *Catalog) Login(email, password string, admin Credentials) (Identity, error) {
	if admin.Username != "" && email == admin.Username && password == admin.Password {
		return Identity{Email: admin.Username, Admin: true}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if stored, ok := c.users[email]; ok && stored == password {
		return Identity{Email: email}, nil
	}
	return Identity{}, ErrInvalidCredentials
}

func (c *Catalog) hasUserLocked(email string) bool {
	_, ok := c.users[email]
	return ok
}
