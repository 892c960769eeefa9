package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvCiaoHostConfig = "CIAOHOST_CONFIG"
	EnvCiaoHostHome   = "CIAOHOST_HOME"
)

type RuntimePaths struct {
	HomeDir      string
	ConfigPath   string
	DatabasePath string
	AuditPath    string
	HistoryFile  string
	SessionsDir  string
	SeasonsPath  string
}

func ResolveRuntimePaths() RuntimePaths {
	if configPath := expandHome(strings.TrimSpace(os.Getenv(EnvCiaoHostConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := expandHome(strings.TrimSpace(os.Getenv(EnvCiaoHostHome)))
	if homeDir == "" {
		homeDir = defaultCiaoHostHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultCiaoHostHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".ciaohost"
	}
	return filepath.Join(home, ".ciaohost")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:      homeDir,
		ConfigPath:   configPath,
		DatabasePath: filepath.Join(homeDir, DefaultDatabaseFile),
		AuditPath:    filepath.Join(homeDir, "audit.log"),
		HistoryFile:  filepath.Join(homeDir, ".chat_history"),
		SessionsDir:  filepath.Join(homeDir, "sessions"),
		SeasonsPath:  filepath.Join(homeDir, "pricing_seasons.json"),
	}
}
