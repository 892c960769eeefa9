package config

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "root"
	DefaultDatabaseFile  = "DatabaseCiaoHostProprieta.json"
)

// DefaultConfig returns the default configuration for CiaoHost.
func DefaultConfig() *Config {
	return &Config{
		Admin: AdminConfig{
			Username: DefaultAdminUsername,
			Password: DefaultAdminPassword,
		},
		LLM: LLMConfig{
			Provider:     "gemini",
			Model:        "gemini-2.5-flash",
			MaxTokens:    2048,
			Temperature:  0.7,
			HistoryTurns: 10,
		},
		Channels: ChannelsConfig{
			WebSocket: WebSocketConfig{
				Enabled:   true,
				Host:      "127.0.0.1",
				Port:      18793,
				Path:      "/ws",
				AllowFrom: FlexibleStringSlice{},
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
		},
		RateLimits: RateLimitsConfig{
			RequestsPerMinute: 15,
			Burst:             3,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
