package internal

import (
	"fmt"
	"runtime"

	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

const Logo = "🏡"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

func GetConfigPath() string {
	return config.ResolveRuntimePaths().ConfigPath
}

// LoadConfig reads the config file and applies its log settings.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if level, ok := logger.ParseLevel(cfg.Log.Level); ok {
		logger.SetLevel(level)
	} else {
		logger.WarnCF("config", "Unknown log level, using info", map[string]any{"level": cfg.Log.Level})
	}
	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
