package bus

// InboundMessage is a guest or admin message received by a channel.
type InboundMessage struct {
	Channel    string            `json:"channel"`
	SenderID   string            `json:"sender_id"`
	ChatID     string            `json:"chat_id"`
	Content    string            `json:"content"`
	SessionKey string            `json:"session_key"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Key returns the session key of the conversation, "<channel>:<chat_id>"
// unless the channel supplied its own.
func (m InboundMessage) Key() string {
	if m.SessionKey != "" {
		return m.SessionKey
	}
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is a reply addressed to one chat of one channel.
type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}
