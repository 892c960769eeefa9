package gemini_sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/providers/protocoltypes"
)

type (
	LLMResponse = protocoltypes.LLMResponse
	UsageInfo   = protocoltypes.UsageInfo
	Message     = protocoltypes.Message
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultRequestTimeout = 120 * time.Second
	defaultGeminiAPIBase  = "https://generativelanguage.googleapis.com"
)

var apiVersionPattern = regexp.MustCompile(`^v[0-9]+(?:(?:alpha|beta)[0-9]*)?$`)

type Provider struct {
	apiBase    string
	apiVersion string
	httpClient *http.Client
	client     *genai.Client
	initErr    error
}

type Option func(*Provider)

func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

func NewProvider(apiKey, apiBase, proxy string, opts ...Option) *Provider {
	httpClient := &http.Client{Timeout: defaultRequestTimeout}
	if proxy != "" {
		parsed, err := url.Parse(proxy)
		if err == nil {
			httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
		} else {
			logger.WarnCF("gemini", "Invalid proxy URL", map[string]any{"proxy": proxy, "error": err.Error()})
		}
	}

	baseURL, apiVersion := normalizeAPIBase(apiBase)
	p := &Provider{
		apiBase:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: p.apiBase,
		},
	}
	if p.apiVersion != "" {
		clientConfig.HTTPOptions.APIVersion = p.apiVersion
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		p.initErr = err
		logger.ErrorCF("gemini", "Failed to initialize genai client", map[string]any{"error": err.Error()})
		return p
	}
	p.client = client
	return p
}

func (p *Provider) GetDefaultModel() string {
	return defaultModel
}

func (p *Provider) Chat(ctx context.Context, messages []Message, model string, options map[string]any) (*LLMResponse, error) {
	if p.initErr != nil {
		return nil, fmt.Errorf("failed to initialize Gemini SDK client: %w", p.initErr)
	}
	if p.client == nil {
		return nil, fmt.Errorf("Gemini SDK client not initialized")
	}

	contents, systemInstruction := buildGeminiContents(messages)
	config := &genai.GenerateContentConfig{}
	hasConfig := false
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
		hasConfig = true
	}
	if applyOptions(config, options) {
		hasConfig = true
	}
	if !hasConfig {
		config = nil
	}

	resp, err := p.client.Models.GenerateContent(ctx, normalizeModel(model), contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf(
				"Gemini API request failed (status=%d): %s",
				apiErr.Code,
				strings.TrimSpace(apiErr.Message),
			)
		}
		return nil, fmt.Errorf("Gemini API request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return &LLMResponse{FinishReason: "stop", Usage: mapUsage(resp)}, nil
	}

	choice := resp.Candidates[0]
	return &LLMResponse{
		Content:      candidateText(choice),
		FinishReason: mapFinishReason(choice.FinishReason),
		Usage:        mapUsage(resp),
	}, nil
}

// normalizeAPIBase splits a trailing API version ("/v1beta") off the base URL.
func normalizeAPIBase(apiBase string) (string, string) {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if base == "" {
		return defaultGeminiAPIBase, ""
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return base, ""
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return strings.TrimRight(parsed.String(), "/"), ""
	}

	parts := strings.Split(path, "/")
	version := parts[len(parts)-1]
	if !apiVersionPattern.MatchString(version) {
		return strings.TrimRight(parsed.String(), "/"), ""
	}

	parts = parts[:len(parts)-1]
	if len(parts) == 0 {
		parsed.Path = ""
	} else {
		parsed.Path = "/" + strings.Join(parts, "/")
	}

	return strings.TrimRight(parsed.String(), "/"), version
}

func normalizeModel(model string) string {
	trimmed := strings.TrimSpace(model)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "gemini/"):
		return trimmed[len("gemini/"):]
	case strings.HasPrefix(lower, "google/"):
		return trimmed[len("google/"):]
	default:
		return trimmed
	}
}

// buildGeminiContents maps assistant turns to the model role and folds every
// system message into one system instruction.
func buildGeminiContents(messages []Message) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemTexts []string

	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case "system":
			systemTexts = append(systemTexts, msg.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	var systemInstruction *genai.Content
	if len(systemTexts) > 0 {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(strings.Join(systemTexts, "\n\n"))},
		}
	}
	return contents, systemInstruction
}

func candidateText(candidate *genai.Candidate) string {
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func mapFinishReason(reason genai.FinishReason) string {
	if reason == genai.FinishReasonMaxTokens {
		return "length"
	}
	return "stop"
}

func mapUsage(resp *genai.GenerateContentResponse) *UsageInfo {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	usage := resp.UsageMetadata
	if usage.PromptTokenCount == 0 && usage.CandidatesTokenCount == 0 && usage.TotalTokenCount == 0 {
		return nil
	}
	return &UsageInfo{
		PromptTokens:     int(usage.PromptTokenCount),
		CompletionTokens: int(usage.CandidatesTokenCount),
		TotalTokens:      int(usage.TotalTokenCount),
	}
}

func applyOptions(config *genai.GenerateContentConfig, options map[string]any) bool {
	changed := false
	if maxTokens, ok := protocoltypes.IntOption(options, "max_tokens"); ok && maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
		changed = true
	}
	if temperature, ok := protocoltypes.FloatOption(options, "temperature"); ok {
		temp := float32(temperature)
		config.Temperature = &temp
		changed = true
	}
	return changed
}
