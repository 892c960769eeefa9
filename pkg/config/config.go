package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Admin      AdminConfig      `json:"admin"`
	Database   DatabaseConfig   `json:"database"`
	LLM        LLMConfig        `json:"llm"`
	Pricing    PricingConfig    `json:"pricing"`
	Channels   ChannelsConfig   `json:"channels"`
	RateLimits RateLimitsConfig `json:"rate_limits"`
	Audit      AuditConfig      `json:"audit"`
	Log        LogConfig        `json:"log"`
	mu         sync.RWMutex
}

// AdminConfig holds the single admin credential pair checked by /admin.
type AdminConfig struct {
	Username string `json:"username" env:"CIAOHOST_ADMIN_USERNAME"`
	Password string `json:"password" env:"CIAOHOST_ADMIN_PASSWORD"`
}

type DatabaseConfig struct {
	Path string `json:"path" env:"CIAOHOST_DATABASE_PATH"`
}

type LLMConfig struct {
	Provider     string  `json:"provider" env:"CIAOHOST_LLM_PROVIDER"`
	Model        string  `json:"model" env:"CIAOHOST_LLM_MODEL"`
	APIKey       string  `json:"api_key" env:"CIAOHOST_LLM_API_KEY"`
	APIBase      string  `json:"api_base" env:"CIAOHOST_LLM_API_BASE"`
	Proxy        string  `json:"proxy" env:"CIAOHOST_LLM_PROXY"`
	MaxTokens    int     `json:"max_tokens" env:"CIAOHOST_LLM_MAX_TOKENS"`
	Temperature  float64 `json:"temperature" env:"CIAOHOST_LLM_TEMPERATURE"`
	HistoryTurns int     `json:"history_turns" env:"CIAOHOST_LLM_HISTORY_TURNS"`
}

// PricingConfig lets the pricing recommender use a different provider or
// model than the chat concierge. Empty fields fall back to LLMConfig.
// SeasonsPath is the season calendar file, by default in the runtime home.
type PricingConfig struct {
	Provider    string `json:"provider" env:"CIAOHOST_PRICING_PROVIDER"`
	Model       string `json:"model" env:"CIAOHOST_PRICING_MODEL"`
	APIKey      string `json:"api_key" env:"CIAOHOST_PRICING_API_KEY"`
	SeasonsPath string `json:"seasons_path" env:"CIAOHOST_PRICING_SEASONS_PATH"`
}

type ChannelsConfig struct {
	WebSocket WebSocketConfig `json:"websocket"`
	Telegram  TelegramConfig  `json:"telegram"`
}

type WebSocketConfig struct {
	Enabled   bool                `json:"enabled" env:"CIAOHOST_CHANNELS_WEBSOCKET_ENABLED"`
	Host      string              `json:"host" env:"CIAOHOST_CHANNELS_WEBSOCKET_HOST"`
	Port      int                 `json:"port" env:"CIAOHOST_CHANNELS_WEBSOCKET_PORT"`
	Path      string              `json:"path" env:"CIAOHOST_CHANNELS_WEBSOCKET_PATH"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"CIAOHOST_CHANNELS_WEBSOCKET_ALLOW_FROM"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled" env:"CIAOHOST_CHANNELS_TELEGRAM_ENABLED"`
	Token     string              `json:"token" env:"CIAOHOST_CHANNELS_TELEGRAM_TOKEN"`
	Proxy     string              `json:"proxy" env:"CIAOHOST_CHANNELS_TELEGRAM_PROXY"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"CIAOHOST_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type RateLimitsConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" env:"CIAOHOST_RATE_LIMITS_REQUESTS_PER_MINUTE"`
	Burst             int `json:"burst" env:"CIAOHOST_RATE_LIMITS_BURST"`
}

// AuditConfig controls the admin audit trail. Without a secret, a random
// HMAC key is used per run and chains cannot be verified across restarts.
// RetentionDays prunes older events while the gateway runs; 0 keeps all.
type AuditConfig struct {
	Enabled       bool   `json:"enabled" env:"CIAOHOST_AUDIT_ENABLED"`
	Path          string `json:"path" env:"CIAOHOST_AUDIT_PATH"`
	Secret        string `json:"secret" env:"CIAOHOST_AUDIT_SECRET"`
	RetentionDays int    `json:"retention_days" env:"CIAOHOST_AUDIT_RETENTION_DAYS"`
}

type LogConfig struct {
	Level string `json:"level" env:"CIAOHOST_LOG_LEVEL"`
	File  string `json:"file" env:"CIAOHOST_LOG_FILE"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }

// DatabasePath returns the catalog file location, defaulting to the
// runtime home directory when none is configured.
func (c *Config) DatabasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := expandHome(c.Database.Path); p != "" {
		return p
	}
	return ResolveRuntimePaths().DatabasePath
}

func (c *Config) AuditPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := expandHome(c.Audit.Path); p != "" {
		return p
	}
	return ResolveRuntimePaths().AuditPath
}

func (c *Config) SeasonsPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p := expandHome(c.Pricing.SeasonsPath); p != "" {
		return p
	}
	return ResolveRuntimePaths().SeasonsPath
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
