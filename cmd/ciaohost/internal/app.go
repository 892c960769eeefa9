package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/commands"
	"github.com/ciaohost/concierge/pkg/concierge"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/pricing"
	"github.com/ciaohost/concierge/pkg/providers"
	"github.com/ciaohost/concierge/pkg/ratelimit"
	"github.com/ciaohost/concierge/pkg/session"
)

// App bundles the components shared by the chat and gateway commands.
type App struct {
	Config      *config.Config
	Store       *catalog.Store
	Catalog     *catalog.Catalog
	Sessions    *session.Manager
	Interpreter *commands.Interpreter
	Provider    providers.LLMProvider
	Model       string
	Loop        *concierge.Loop
	Limiter     *ratelimit.Limiter
	Audit       *audit.Logger
}

// OpenCatalog loads the catalog file named by cfg.
func OpenCatalog(cfg *config.Config) (*catalog.Store, *catalog.Catalog, error) {
	store := catalog.NewStore(cfg.DatabasePath())
	cat, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading catalog: %w", err)
	}
	return store, cat, nil
}

// NewProvider builds the chat collaborator. A missing API key is not an
// error: the concierge then answers that the model is unavailable.
func NewProvider(cfg *config.Config) (providers.LLMProvider, string, error) {
	p, model, err := providers.CreateProvider(providers.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		APIBase:  cfg.LLM.APIBase,
		Proxy:    cfg.LLM.Proxy,
	})
	if errors.Is(err, providers.ErrNoCredentials) {
		logger.WarnC("providers", "No API key configured, collaborator disabled")
		return nil, "", nil
	}
	return p, model, err
}

// NewPricingRecommender builds the pricing collaborator, falling back to the
// chat settings for every empty pricing field.
func NewPricingRecommender(cfg *config.Config) (*pricing.Recommender, error) {
	s := providers.Settings{
		Provider: cfg.Pricing.Provider,
		Model:    cfg.Pricing.Model,
		APIKey:   cfg.Pricing.APIKey,
		APIBase:  cfg.LLM.APIBase,
		Proxy:    cfg.LLM.Proxy,
	}
	if s.Provider == "" {
		s.Provider = cfg.LLM.Provider
		if s.Model == "" {
			s.Model = cfg.LLM.Model
		}
	}
	if s.APIKey == "" {
		s.APIKey = cfg.LLM.APIKey
	}

	p, model, err := providers.CreateProvider(s)
	if err != nil && !errors.Is(err, providers.ErrNoCredentials) {
		return nil, err
	}
	return pricing.NewRecommender(p, model), nil
}

// NewApp wires catalog, sessions, interpreter, audit trail and collaborator
// from cfg. Close releases the audit file.
func NewApp(cfg *config.Config) (*App, error) {
	store, cat, err := OpenCatalog(cfg)
	if err != nil {
		return nil, err
	}

	paths := config.ResolveRuntimePaths()
	sessions := session.NewManager(paths.SessionsDir)

	it := commands.NewInterpreter(cat, store, catalog.Credentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})

	auditLog, err := audit.New(AuditConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening audit trail: %w", err)
	}
	it.SetAuditor(auditLog)

	provider, model, err := NewProvider(cfg)
	if err != nil {
		auditLog.Close()
		return nil, err
	}

	loop := concierge.New(cat, sessions, it, provider, concierge.Options{
		Model:        model,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		HistoryTurns: cfg.LLM.HistoryTurns,
	})
	loop.SetAuditor(auditLog)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimits.RequestsPerMinute,
		Burst:             cfg.RateLimits.Burst,
	})
	loop.SetRateLimiter(limiter)

	return &App{
		Config:      cfg,
		Store:       store,
		Catalog:     cat,
		Sessions:    sessions,
		Interpreter: it,
		Provider:    provider,
		Model:       model,
		Loop:        loop,
		Limiter:     limiter,
		Audit:       auditLog,
	}, nil
}

func AuditConfig(cfg *config.Config) audit.Config {
	return audit.Config{
		Enabled:       cfg.Audit.Enabled,
		Path:          cfg.AuditPath(),
		RetentionDays: cfg.Audit.RetentionDays,
		SecretKey:     []byte(cfg.Audit.Secret),
	}
}

const (
	MaintenanceInterval = 10 * time.Minute
	idleTimeout         = 30 * time.Minute
)

// RunMaintenance sweeps once, then every interval until ctx is done.
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	a.Sweep(idleTimeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(idleTimeout)
		}
	}
}

// Sweep frees rate-limit buckets and in-memory sessions idle for longer
// than maxIdle, and prunes audit events past their retention.
func (a *App) Sweep(maxIdle time.Duration) {
	buckets := a.Limiter.Cleanup(maxIdle)
	sessions := a.Sessions.Evict(maxIdle)
	if buckets > 0 || sessions > 0 {
		logger.DebugCF("gateway", "Released idle conversations", map[string]any{
			"buckets":         buckets,
			"sessions":        sessions,
			"active_buckets":  a.Limiter.Len(),
			"active_sessions": a.Sessions.Len(),
		})
	}
	if err := a.Audit.CleanupOldLogs(); err != nil {
		logger.WarnCF("audit", "Audit retention cleanup failed", map[string]any{"error": err.Error()})
	}
}

func (a *App) Close() error {
	return a.Audit.Close()
}
