// Package channels connects chat transports to the message bus.
package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/logger"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
}

// MessageLengthProvider is implemented by channels whose messages have a
// maximum length in runes.
type MessageLengthProvider interface {
	MaxMessageLength() int
}

type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowList []string
	running   atomic.Bool
}

func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) setRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed checks senderID against the allow-list. An empty list allows
// everyone. Senders may be compound ("id|username"); either part matches,
// and usernames may be listed with a leading '@'.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart, userPart := splitSender(senderID)
	for _, allowed := range c.allowList {
		allowed = strings.TrimPrefix(strings.TrimSpace(allowed), "@")
		allowedID, allowedUser := splitSender(allowed)

		if senderID == allowed || idPart == allowed || idPart == allowedID {
			return true
		}
		if userPart != "" && (userPart == allowed || userPart == allowedUser) {
			return true
		}
	}
	return false
}

func splitSender(s string) (id, user string) {
	if i := strings.IndexByte(s, '|'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// HandleMessage publishes an inbound message for chatID when senderID is
// allowed. Rejected senders are dropped silently.
func (c *BaseChannel) HandleMessage(ctx context.Context, senderID, chatID, content string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		logger.DebugCF(c.name, "Message rejected by allowlist", map[string]any{
			"sender_id": senderID,
		})
		return
	}

	msg := bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Metadata: metadata,
	}
	if err := c.bus.PublishInbound(ctx, msg); err != nil {
		logger.WarnCF(c.name, "Dropping inbound message", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
}
