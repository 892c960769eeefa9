package providers

import (
	"context"

	"github.com/ciaohost/concierge/pkg/providers/protocoltypes"
)

type (
	Message     = protocoltypes.Message
	LLMResponse = protocoltypes.LLMResponse
	UsageInfo   = protocoltypes.UsageInfo
)

// LLMProvider is a text-generation backend. options understands
// "max_tokens" and "temperature".
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]any) (*LLMResponse, error)
	GetDefaultModel() string
}
