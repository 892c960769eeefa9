package providers

import (
	"errors"
	"testing"

	anthropicprovider "github.com/ciaohost/concierge/pkg/providers/anthropic"
	"github.com/ciaohost/concierge/pkg/providers/gemini_sdk"
	"github.com/ciaohost/concierge/pkg/providers/openai_sdk"
)

func TestCreateProvider_SelectsByName(t *testing.T) {
	tests := []struct {
		settings Settings
		check    func(LLMProvider) bool
		model    string
	}{
		{
			Settings{Provider: "gemini", APIKey: "k"},
			func(p LLMProvider) bool { _, ok := p.(*gemini_sdk.Provider); return ok },
			"gemini-2.5-flash",
		},
		{
			Settings{Provider: "OpenAI", APIKey: "k", Model: "gpt-4o-mini"},
			func(p LLMProvider) bool { _, ok := p.(*openai_sdk.Provider); return ok },
			"gpt-4o-mini",
		},
		{
			Settings{Provider: "anthropic", APIKey: "k"},
			func(p LLMProvider) bool { _, ok := p.(*anthropicprovider.Provider); return ok },
			"claude-sonnet-4-5",
		},
		{
			Settings{Model: "claude-3-5-haiku-latest", APIKey: "k"},
			func(p LLMProvider) bool { _, ok := p.(*anthropicprovider.Provider); return ok },
			"claude-3-5-haiku-latest",
		},
	}

	for _, tt := range tests {
		p, model, err := CreateProvider(tt.settings)
		if err != nil {
			t.Fatalf("CreateProvider(%+v) error: %v", tt.settings, err)
		}
		if !tt.check(p) {
			t.Errorf("CreateProvider(%+v) returned %T", tt.settings, p)
		}
		if model != tt.model {
			t.Errorf("CreateProvider(%+v) model = %q, want %q", tt.settings, model, tt.model)
		}
	}
}

func TestCreateProvider_Errors(t *testing.T) {
	if _, _, err := CreateProvider(Settings{Provider: "gemini"}); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("missing key: err = %v", err)
	}
	if _, _, err := CreateProvider(Settings{Provider: "mistral", APIKey: "k"}); err == nil {
		t.Fatal("unknown provider should fail")
	}
}
