package gemini_sdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiSDKProvider_Chat_BasicContentAndOptions(t *testing.T) {
	var (
		requestPath string
		requestBody map[string]any
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[
				{
					"content":{"parts":[{"text":"Benvenuto "},{"text":"a CiaoHost!"}],"role":"model"},
					"finishReason":"STOP"
				}
			],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":3,"totalTokenCount":15}
		}`))
	}))
	defer server.Close()

	p := NewProvider("test-key", server.URL, "")
	resp, err := p.Chat(
		t.Context(),
		[]Message{
			{Role: "system", Content: "Sei un assistente immobiliare."},
			{Role: "user", Content: "ciao"},
			{Role: "assistant", Content: "ciao!"},
			{Role: "user", Content: "che case avete?"},
		},
		"google/gemini-2.5-flash",
		map[string]any{"max_tokens": 123, "temperature": 0.2},
	)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if requestPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("path = %q", requestPath)
	}
	gen, _ := requestBody["generationConfig"].(map[string]any)
	if gen["maxOutputTokens"] != float64(123) {
		t.Fatalf("generationConfig.maxOutputTokens = %v, want 123", gen["maxOutputTokens"])
	}
	if _, ok := requestBody["systemInstruction"]; !ok {
		t.Fatal("expected systemInstruction in request")
	}
	contents, _ := requestBody["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents = %d entries, want 3", len(contents))
	}
	if role := contents[1].(map[string]any)["role"]; role != "model" {
		t.Fatalf("assistant turn role = %v, want model", role)
	}

	if resp.Content != "Benvenuto a CiaoHost!" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Fatalf("FinishReason = %q, want stop", resp.FinishReason)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Fatalf("Usage = %+v, want total 15", resp.Usage)
	}
}

func TestGeminiSDKProvider_Chat_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	p := NewProvider("bad-key", server.URL, "")
	_, err := p.Chat(t.Context(), []Message{{Role: "user", Content: "hi"}}, "gemini-2.5-flash", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Gemini API request failed") {
		t.Fatalf("error = %v", err)
	}
}

func TestNormalizeAPIBase(t *testing.T) {
	tests := []struct {
		in      string
		base    string
		version string
	}{
		{"", defaultGeminiAPIBase, ""},
		{"https://generativelanguage.googleapis.com/v1beta/", "https://generativelanguage.googleapis.com", "v1beta"},
		{"https://proxy.example.com/gemini", "https://proxy.example.com/gemini", ""},
		{"https://proxy.example.com/gemini/v1", "https://proxy.example.com/gemini", "v1"},
	}
	for _, tt := range tests {
		base, version := normalizeAPIBase(tt.in)
		if base != tt.base || version != tt.version {
			t.Errorf("normalizeAPIBase(%q) = (%q, %q), want (%q, %q)", tt.in, base, version, tt.base, tt.version)
		}
	}
}
