package providers

import (
	"errors"
	"fmt"
	"strings"

	anthropicprovider "github.com/ciaohost/concierge/pkg/providers/anthropic"
	"github.com/ciaohost/concierge/pkg/providers/gemini_sdk"
	"github.com/ciaohost/concierge/pkg/providers/openai_sdk"
)

// ErrNoCredentials is returned when a provider is selected without an API key.
var ErrNoCredentials = errors.New("no API key configured")

const defaultOpenAIAPIBase = "https://api.openai.com/v1"

// Settings selects and configures one provider.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	APIBase  string
	Proxy    string
}

// CreateProvider builds the provider named by s.Provider and returns it with
// the model to use. A model such as "gpt-4o" or "claude-..." selects the
// provider when s.Provider is empty.
func CreateProvider(s Settings) (LLMProvider, string, error) {
	name := strings.ToLower(strings.TrimSpace(s.Provider))
	if name == "" {
		name = providerFromModel(s.Model)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, "", fmt.Errorf("%s: %w", name, ErrNoCredentials)
	}

	var p LLMProvider
	switch name {
	case "gemini", "google":
		p = gemini_sdk.NewProvider(s.APIKey, s.APIBase, s.Proxy)
	case "openai":
		base := s.APIBase
		if base == "" {
			base = defaultOpenAIAPIBase
		}
		p = openai_sdk.NewProvider(s.APIKey, base, s.Proxy)
	case "anthropic", "claude":
		p = anthropicprovider.NewProviderWithBaseURL(s.APIKey, s.APIBase)
	default:
		return nil, "", fmt.Errorf("unknown provider %q", s.Provider)
	}

	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = p.GetDefaultModel()
	}
	return p, model, nil
}

func providerFromModel(model string) string {
	lower := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(lower, "openai/"), strings.HasPrefix(lower, "gpt-"):
		return "openai"
	case strings.HasPrefix(lower, "anthropic/"), strings.HasPrefix(lower, "claude"):
		return "anthropic"
	default:
		return "gemini"
	}
}
