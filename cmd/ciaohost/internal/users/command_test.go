package users

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "db.json")
	cfg.Audit.Path = filepath.Join(dir, "audit.log")
	return cfg
}

func TestNewUsersCommand(t *testing.T) {
	cmd := NewUsersCommand()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.Equal(t, map[string]bool{"register": true, "list": true, "login": true}, names)
}

func TestRegisterListLogin(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	require.NoError(t, runRegister(cfg, &out, "mario@example.it", "segreto1"))
	assert.Contains(t, out.String(), "mario@example.it")

	err := runRegister(cfg, &out, "mario@example.it", "segreto1")
	assert.ErrorIs(t, err, catalog.ErrEmailTaken)

	out.Reset()
	require.NoError(t, runList(cfg, &out))
	assert.Equal(t, "1 utenti registrati:\n  • mario@example.it\n", out.String())

	out.Reset()
	require.NoError(t, runLogin(cfg, &out, "mario@example.it", "segreto1"))
	assert.Contains(t, out.String(), "Accesso effettuato")

	out.Reset()
	require.NoError(t, runLogin(cfg, &out, "admin", "root"))
	assert.Contains(t, out.String(), "Accesso admin")

	assert.ErrorIs(t, runLogin(cfg, &out, "mario@example.it", "sbagliata"), catalog.ErrInvalidCredentials)

	events, err := audit.ReadEvents(cfg.Audit.Path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventUserRegistered, events[0].EventType)
}

func TestListEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runList(testConfig(t), &out))
	assert.Equal(t, "Nessun utente registrato.\n", out.String())
}
