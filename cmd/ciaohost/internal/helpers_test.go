package internal

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ciaohost/concierge/pkg/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv(config.EnvCiaoHostConfig, "")
	t.Setenv(config.EnvCiaoHostHome, "/tmp/ciaohome")

	got := GetConfigPath()
	want := filepath.Join("/tmp/ciaohome", "config.json")
	if got != want {
		t.Fatalf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestFormatVersion(t *testing.T) {
	oldVersion, oldGit := version, gitCommit
	t.Cleanup(func() { version, gitCommit = oldVersion, oldGit })

	version, gitCommit = "1.2.3", ""
	if got := FormatVersion(); got != "1.2.3" {
		t.Fatalf("FormatVersion() = %q", got)
	}

	gitCommit = "abc123"
	if got := FormatVersion(); got != "1.2.3 (git: abc123)" {
		t.Fatalf("FormatVersion() = %q", got)
	}
}

func TestFormatBuildInfo_DefaultsGoVersion(t *testing.T) {
	oldBuildTime, oldGoVersion := buildTime, goVersion
	t.Cleanup(func() { buildTime, goVersion = oldBuildTime, oldGoVersion })

	buildTime, goVersion = "", ""
	build, goVer := FormatBuildInfo()
	if build != "" || goVer != runtime.Version() {
		t.Fatalf("FormatBuildInfo() = %q, %q", build, goVer)
	}
}

func TestNewApp_WithoutAPIKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvCiaoHostConfig, "")
	t.Setenv(config.EnvCiaoHostHome, home)

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(home, "db.json")
	cfg.Audit.Path = filepath.Join(home, "audit.log")

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if app.Provider != nil {
		t.Fatal("provider should be disabled without an API key")
	}
	reply, err := app.Loop.Process(t.Context(), "cli:test", "ciao")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reply != "🤖 Il modello AI non è disponibile al momento." {
		t.Fatalf("reply = %q", reply)
	}
}

func TestSweep_ReleasesIdleStateAndPrunesAudit(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvCiaoHostConfig, "")
	t.Setenv(config.EnvCiaoHostHome, home)

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(home, "db.json")
	cfg.Audit.Path = filepath.Join(home, "audit.log")
	cfg.Audit.RetentionDays = 30

	old := `{"id":"old","timestamp":"2020-01-01T00:00:00Z","event_type":"auth_success","success":true}` + "\n"
	if err := os.WriteFile(cfg.Audit.Path, []byte(old), 0o600); err != nil {
		t.Fatal(err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	app.Limiter.Allow("ws:one")
	app.Sessions.GetOrCreate("ws:one").AddMessage("user", "ciao")
	if app.Limiter.Len() != 1 || app.Sessions.Len() != 1 {
		t.Fatalf("buckets=%d sessions=%d, want 1 and 1", app.Limiter.Len(), app.Sessions.Len())
	}

	// a negative idle time puts the cutoff in the future
	app.Sweep(-time.Minute)

	if app.Limiter.Len() != 0 || app.Sessions.Len() != 0 {
		t.Fatalf("buckets=%d sessions=%d, want 0 and 0", app.Limiter.Len(), app.Sessions.Len())
	}
	data, err := os.ReadFile(cfg.Audit.Path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"id":"old"`) {
		t.Fatal("expired audit event was kept")
	}
	if _, ok := app.Sessions.Get("ws:one"); !ok {
		t.Fatal("evicted session should reload from disk")
	}
}
