// Package commands implements the admin command surface: the login state
// machine driven by /admin and the catalog commands available once
// authenticated.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/session"
)

var (
	ErrFormat         = errors.New("malformed command")
	ErrUnknownCommand = errors.New("unknown admin command")
	ErrAuth           = errors.New("admin authentication failed")
	ErrPersistence    = errors.New("saving catalog failed")
)

type Outcome int

const (
	// OutcomePassthrough means the text was not consumed and should be
	// forwarded to the conversational collaborator.
	OutcomePassthrough Outcome = iota
	OutcomeHandled
)

type ExecuteResult struct {
	Outcome Outcome
	Command string
	Reply   string
	Err     error
}

// Auditor receives admin events. *audit.Logger satisfies it.
type Auditor interface {
	Log(event audit.Event) error
}

// Interpreter consumes one line of text for a session. It borrows the
// shared catalog, mutates it, and saves it after every change.
type Interpreter struct {
	catalog *catalog.Catalog
	store   catalog.Persister
	admin   catalog.Credentials
	auditor Auditor
	reg     *Registry
}

// NewInterpreter builds an interpreter over cat. store may be nil, in which
// case mutations stay in memory.
func NewInterpreter(cat *catalog.Catalog, store catalog.Persister, admin catalog.Credentials) *Interpreter {
	it := &Interpreter{
		catalog: cat,
		store:   store,
		admin:   admin,
	}
	it.reg = NewRegistry(it.adminDefinitions())
	return it
}

// SetAuditor enables the audit trail. A nil auditor disables it.
func (it *Interpreter) SetAuditor(a Auditor) {
	it.auditor = a
}

func (it *Interpreter) Registry() *Registry {
	return it.reg
}

// Execute advances the admin state machine of sess with text. "/admin"
// restarts the login from any state; the login steps always consume their
// input; in admin mode only slash-prefixed text is consumed.
func (it *Interpreter) Execute(ctx context.Context, sess *session.Session, text string) ExecuteResult {
	if strings.EqualFold(strings.TrimSpace(text), "/admin") {
		sess.SetAdminState(session.AwaitingUsername)
		return handled("admin", msgAskUsername, nil)
	}

	switch sess.AdminState() {
	case session.AwaitingUsername:
		if text == it.admin.Username {
			sess.SetAdminState(session.AwaitingPassword)
			return handled("admin", msgAskPassword, nil)
		}
		sess.SetAdminState(session.Idle)
		it.record(sess, audit.Event{EventType: audit.EventAuthFailure, Details: map[string]any{"step": "username"}})
		return handled("admin", msgWrongUsername, fmt.Errorf("%w: wrong username", ErrAuth))

	case session.AwaitingPassword:
		if text == it.admin.Password {
			sess.SetAdminState(session.Active)
			it.record(sess, audit.Event{EventType: audit.EventAuthSuccess, Success: true})
			logger.InfoCF("commands", "Admin mode enabled", map[string]any{"session": sess.Key()})
			return handled("admin", msgAccessGranted+it.reg.Menu(), nil)
		}
		sess.SetAdminState(session.Idle)
		it.record(sess, audit.Event{EventType: audit.EventAuthFailure, Details: map[string]any{"step": "password"}})
		return handled("admin", msgWrongPassword, fmt.Errorf("%w: wrong password", ErrAuth))

	case session.Active:
		return it.dispatch(ctx, sess, text)
	}

	return ExecuteResult{Outcome: OutcomePassthrough}
}

func (it *Interpreter) dispatch(ctx context.Context, sess *session.Session, text string) ExecuteResult {
	cmd := Parse(text)
	if cmd.Kind == KindNone {
		return ExecuteResult{Outcome: OutcomePassthrough}
	}

	def, ok := it.reg.Lookup(cmd.Kind)
	if !ok || def.Handler == nil {
		reply := msgUnknownPrefix + strings.Join(it.reg.Names(), ", ") + "."
		return handled(cmd.Name, reply, fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd.Name))
	}

	reply, err := def.Handler(ctx, Request{Session: sess, Command: cmd})
	if err != nil {
		logger.DebugCF("commands", "Admin command rejected", map[string]any{
			"command": def.Name,
			"error":   err.Error(),
		})
	}
	return handled(def.Name, reply, err)
}

// persist saves the catalog after a mutation. On failure the in-memory change
// is kept and the error is appended to the reply.
func (it *Interpreter) persist(reply string) (string, error) {
	if it.store == nil {
		return reply, nil
	}
	if err := it.store.Save(it.catalog); err != nil {
		logger.ErrorCF("commands", "Failed to save catalog", map[string]any{"error": err.Error()})
		return reply + fmt.Sprintf(msgSaveFailed, err), fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return reply, nil
}

func (it *Interpreter) record(sess *session.Session, event audit.Event) {
	if it.auditor == nil {
		return
	}
	event.Actor = sess.Key()
	if err := it.auditor.Log(event); err != nil {
		logger.WarnCF("commands", "Audit write failed", map[string]any{
			"event": string(event.EventType),
			"error": err.Error(),
		})
	}
}

func handled(command, reply string, err error) ExecuteResult {
	return ExecuteResult{Outcome: OutcomeHandled, Command: command, Reply: reply, Err: err}
}
