// Package concierge routes each incoming message either to the admin command
// interpreter or to the text-generation collaborator.
package concierge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/commands"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/providers"
	"github.com/ciaohost/concierge/pkg/ratelimit"
	"github.com/ciaohost/concierge/pkg/session"
)

var ErrCollaborator = errors.New("collaborator call failed")

const (
	msgModelUnavailable = "🤖 Il modello AI non è disponibile al momento."
	msgApology          = "🤖 Scusa, ho riscontrato un errore: %v"
	maskedPassword      = "********"
	msgThrottled        = "⏳ Stai inviando troppi messaggi. Attendi qualche secondo e riprova."

	defaultHistoryTurns = 10
)

// Options tunes the collaborator requests.
type Options struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	HistoryTurns int
}

type Loop struct {
	catalog     *catalog.Catalog
	sessions    *session.Manager
	interpreter *commands.Interpreter
	provider    providers.LLMProvider
	limiter     *ratelimit.Limiter
	auditor     commands.Auditor
	opts        Options
}

// New builds a loop. provider may be nil, in which case pass-through messages
// get the "model unavailable" reply.
func New(
	cat *catalog.Catalog,
	sessions *session.Manager,
	interpreter *commands.Interpreter,
	provider providers.LLMProvider,
	opts Options,
) *Loop {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	if opts.Model == "" && provider != nil {
		opts.Model = provider.GetDefaultModel()
	}
	return &Loop{
		catalog:     cat,
		sessions:    sessions,
		interpreter: interpreter,
		provider:    provider,
		opts:        opts,
	}
}

func (l *Loop) SetRateLimiter(limiter *ratelimit.Limiter) {
	l.limiter = limiter
}

func (l *Loop) SetAuditor(a commands.Auditor) {
	l.auditor = a
}

// Process handles one message of the conversation identified by sessionKey
// and returns the reply to show. Every message is recorded in the session
// history together with its reply.
func (l *Loop) Process(ctx context.Context, sessionKey, text string) (string, error) {
	sess := l.sessions.GetOrCreate(sessionKey)
	if l.ExpectsSecret(sessionKey) {
		sess.AddMessage(session.RoleUser, maskedPassword)
	} else {
		sess.AddMessage(session.RoleUser, text)
	}
	defer l.save(sessionKey)

	result := l.interpreter.Execute(ctx, sess, text)
	if result.Outcome == commands.OutcomeHandled {
		sess.AddMessage(session.RoleAdmin, result.Reply)
		return result.Reply, nil
	}

	if sess.AdminState().Authenticating() {
		return "", nil
	}

	reply, err := l.converse(ctx, sess)
	sess.AddMessage(session.RoleBot, reply)
	return reply, err
}

func (l *Loop) converse(ctx context.Context, sess *session.Session) (string, error) {
	if l.provider == nil {
		return msgModelUnavailable, nil
	}

	if !l.limiter.Allow(sess.Key()) {
		logger.WarnCF("concierge", "Rate limit hit", map[string]any{"session": sess.Key()})
		if l.auditor != nil {
			if err := l.auditor.Log(audit.Event{EventType: audit.EventRateLimitHit, Actor: sess.Key()}); err != nil {
				logger.WarnCF("concierge", "Audit write failed", map[string]any{
					"event": string(audit.EventRateLimitHit),
					"error": err.Error(),
				})
			}
		}
		return msgThrottled, nil
	}

	messages := BuildMessages(l.catalog.Properties(), sess.Recent(l.opts.HistoryTurns))
	options := map[string]any{}
	if l.opts.MaxTokens > 0 {
		options["max_tokens"] = l.opts.MaxTokens
	}
	if l.opts.Temperature > 0 {
		options["temperature"] = l.opts.Temperature
	}

	logger.DebugCF("concierge", "Calling collaborator", map[string]any{
		"session":  sess.Key(),
		"model":    l.opts.Model,
		"messages": len(messages),
	})

	resp, err := l.provider.Chat(ctx, messages, l.opts.Model, options)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		logger.ErrorCF("concierge", "Collaborator call failed", map[string]any{
			"session": sess.Key(),
			"error":   err.Error(),
		})
		return fmt.Sprintf(msgApology, err), fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// ExpectsSecret reports whether the next message of the conversation is
// the admin password.
func (l *Loop) ExpectsSecret(sessionKey string) bool {
	sess, ok := l.sessions.Get(sessionKey)
	return ok && sess.AdminState() == session.AwaitingPassword
}

// Reset clears the history and admin state of a conversation.
func (l *Loop) Reset(sessionKey string) {
	l.sessions.Reset(sessionKey)
	l.limiter.Forget(sessionKey)
	l.save(sessionKey)
}

func (l *Loop) save(sessionKey string) {
	if err := l.sessions.Save(sessionKey); err != nil {
		logger.WarnCF("concierge", "Failed to save session", map[string]any{
			"session": sessionKey,
			"error":   err.Error(),
		})
	}
}

// Run consumes inbound messages until ctx is done or the bus is closed,
// processing them one at a time and publishing each reply to the channel
// the message came from.
func (l *Loop) Run(ctx context.Context, mb *bus.MessageBus) error {
	logger.InfoC("concierge", "Concierge loop started")
	for {
		msg, ok := mb.ConsumeInbound(ctx)
		if !ok {
			logger.InfoC("concierge", "Concierge loop stopped")
			return ctx.Err()
		}

		reply, err := l.Process(ctx, msg.Key(), msg.Content)
		if err != nil {
			logger.DebugCF("concierge", "Message processed with error", map[string]any{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"error":   err.Error(),
			})
		}
		if reply == "" {
			continue
		}

		if err := mb.PublishOutbound(ctx, bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: reply,
		}); err != nil {
			return err
		}
	}
}
