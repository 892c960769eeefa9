package concierge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciaohost/concierge/pkg/audit"
	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/catalog"
	"github.com/ciaohost/concierge/pkg/commands"
	"github.com/ciaohost/concierge/pkg/logger"
	"github.com/ciaohost/concierge/pkg/providers"
	"github.com/ciaohost/concierge/pkg/ratelimit"
	"github.com/ciaohost/concierge/pkg/session"
)

type fakeProvider struct {
	mu      sync.Mutex
	calls   [][]providers.Message
	model   string
	options map[string]any
	reply   string
	err     error
}

func (f *fakeProvider) Chat(_ context.Context, messages []providers.Message, model string, options map[string]any) (*providers.LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	f.model = model
	f.options = options
	if f.err != nil {
		return nil, f.err
	}
	return &providers.LLMResponse{Content: f.reply, FinishReason: "stop"}, nil
}

func (f *fakeProvider) GetDefaultModel() string { return "fake-model" }

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	loop     *Loop
	catalog  *catalog.Catalog
	sessions *session.Manager
}

func newFixture(t *testing.T, provider providers.LLMProvider, opts Options) fixture {
	t.Helper()
	store := catalog.NewStore(filepath.Join(t.TempDir(), "db.json"))
	cat, err := store.Load()
	require.NoError(t, err)
	sessions := session.NewManager("")
	it := commands.NewInterpreter(cat, store, catalog.Credentials{Username: "admin", Password: "root"})
	return fixture{
		loop:     New(cat, sessions, it, provider, opts),
		catalog:  cat,
		sessions: sessions,
	}
}

func TestProcess_PassthroughCallsCollaborator(t *testing.T) {
	p := &fakeProvider{reply: "  Abbiamo una villa a Roma.  "}
	f := newFixture(t, p, Options{MaxTokens: 256, Temperature: 0.4})
	f.catalog.Add(catalog.Property{Name: "Villa Sole", Type: "Villa", Location: "Roma", Price: 120})

	reply, err := f.loop.Process(t.Context(), "cli:guest", "avete case a Roma?")
	require.NoError(t, err)
	assert.Equal(t, "Abbiamo una villa a Roma.", reply)

	require.Equal(t, 1, p.callCount())
	msgs := p.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "CiaoHost")
	assert.Contains(t, msgs[0].Content, "1 proprietà nel database:\n- ID 1: Villa Sole (Villa) a Roma\n")
	assert.Equal(t, providers.Message{Role: "user", Content: "avete case a Roma?"}, msgs[1])
	assert.Equal(t, "fake-model", p.model)
	assert.Equal(t, 256, p.options["max_tokens"])

	sess, ok := f.sessions.Get("cli:guest")
	require.True(t, ok)
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, session.RoleBot, history[1].Role)
}

func TestProcess_HistoryIsTrimmedAndMapped(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	f := newFixture(t, p, Options{HistoryTurns: 3})

	for _, text := range []string{"uno", "due", "tre"} {
		_, err := f.loop.Process(t.Context(), "cli:guest", text)
		require.NoError(t, err)
	}

	last := p.calls[len(p.calls)-1]
	require.Len(t, last, 4)
	assert.Equal(t, providers.Message{Role: "user", Content: "due"}, last[1])
	assert.Equal(t, providers.Message{Role: "assistant", Content: "ok"}, last[2])
	assert.Equal(t, providers.Message{Role: "user", Content: "tre"}, last[3])
}

func TestProcess_AdminFlowNeverReachesCollaborator(t *testing.T) {
	p := &fakeProvider{reply: "should not be used"}
	f := newFixture(t, p, Options{})

	reply, err := f.loop.Process(t.Context(), "cli:admin", "/admin")
	require.NoError(t, err)
	assert.Contains(t, reply, "username")

	_, err = f.loop.Process(t.Context(), "cli:admin", "admin")
	require.NoError(t, err)
	reply, err = f.loop.Process(t.Context(), "cli:admin", "root")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "🔓 Accesso admin consentito!"))

	reply, err = f.loop.Process(t.Context(), "cli:admin", `/add_property "Villa Sole" Villa 120 Roma 3331234567 wifi,piscina`)
	require.NoError(t, err)
	assert.Equal(t, "✅ Proprietà 'Villa Sole' aggiunta con ID 1.", reply)
	assert.Equal(t, 0, p.callCount())

	sess, _ := f.sessions.Get("cli:admin")
	history := sess.History()
	assert.Equal(t, session.RoleAdmin, history[len(history)-1].Role)
	for _, m := range history {
		assert.NotEqual(t, "root", m.Content, "password must not be stored")
	}

	// Plain text in admin mode still goes to the collaborator.
	reply, err = f.loop.Process(t.Context(), "cli:admin", "ciao")
	require.NoError(t, err)
	assert.Equal(t, "should not be used", reply)
	assert.Equal(t, 1, p.callCount())
}

func TestProcess_NoProvider(t *testing.T) {
	f := newFixture(t, nil, Options{})
	reply, err := f.loop.Process(t.Context(), "cli:guest", "ciao")
	require.NoError(t, err)
	assert.Equal(t, msgModelUnavailable, reply)
}

func TestProcess_CollaboratorFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("quota exceeded")}
	f := newFixture(t, p, Options{})

	reply, err := f.loop.Process(t.Context(), "cli:guest", "ciao")
	require.ErrorIs(t, err, ErrCollaborator)
	assert.Equal(t, "🤖 Scusa, ho riscontrato un errore: quota exceeded", reply)
}

func TestProcess_RateLimited(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	f := newFixture(t, p, Options{})
	f.loop.SetRateLimiter(ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1, Burst: 1}))

	_, err := f.loop.Process(t.Context(), "cli:guest", "uno")
	require.NoError(t, err)
	reply, err := f.loop.Process(t.Context(), "cli:guest", "due")
	require.NoError(t, err)
	assert.Equal(t, msgThrottled, reply)
	assert.Equal(t, 1, p.callCount())

	// Another conversation has its own budget.
	reply, err = f.loop.Process(t.Context(), "cli:other", "uno")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestProcess_RateLimitAuditFailureIsLogged(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	f := newFixture(t, p, Options{})
	f.loop.SetRateLimiter(ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1, Burst: 1}))

	trail, err := audit.New(audit.Config{Enabled: true, Path: filepath.Join(t.TempDir(), "audit.log"), SecretKey: []byte("k")})
	require.NoError(t, err)
	require.NoError(t, trail.Close())
	f.loop.SetAuditor(trail)

	logPath := filepath.Join(t.TempDir(), "ciaohost.log")
	require.NoError(t, logger.EnableFileLogging(logPath))
	t.Cleanup(logger.DisableFileLogging)

	_, err = f.loop.Process(t.Context(), "cli:guest", "uno")
	require.NoError(t, err)
	reply, err := f.loop.Process(t.Context(), "cli:guest", "due")
	require.NoError(t, err)
	assert.Equal(t, msgThrottled, reply)

	logger.DisableFileLogging()
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Audit write failed"`)
	assert.Contains(t, string(data), `"event":"rate_limit_hit"`)
}

func TestExpectsSecret(t *testing.T) {
	f := newFixture(t, nil, Options{})
	assert.False(t, f.loop.ExpectsSecret("cli:admin"))

	_, _ = f.loop.Process(t.Context(), "cli:admin", "/admin")
	assert.False(t, f.loop.ExpectsSecret("cli:admin"))
	_, _ = f.loop.Process(t.Context(), "cli:admin", "admin")
	assert.True(t, f.loop.ExpectsSecret("cli:admin"))
	_, _ = f.loop.Process(t.Context(), "cli:admin", "root")
	assert.False(t, f.loop.ExpectsSecret("cli:admin"))
}

func TestReset(t *testing.T) {
	f := newFixture(t, &fakeProvider{reply: "ok"}, Options{})
	_, _ = f.loop.Process(t.Context(), "cli:admin", "/admin")

	f.loop.Reset("cli:admin")
	sess, _ := f.sessions.Get("cli:admin")
	assert.Equal(t, session.Idle, sess.AdminState())
	assert.Empty(t, sess.History())
}

func TestPropertySummary(t *testing.T) {
	assert.Equal(t, "Nessuna proprietà nel database.", PropertySummary(nil))
	got := PropertySummary([]catalog.Property{
		{ID: "1", Name: "Villa Sole", Type: "Villa", Location: "Roma"},
		{ID: "2", Name: "Loft"},
	})
	assert.Equal(t, "2 proprietà nel database:\n- ID 1: Villa Sole (Villa) a Roma\n- ID 2: Loft (N/A) a N/A\n", got)
}

func TestRun_PublishesReplies(t *testing.T) {
	f := newFixture(t, &fakeProvider{reply: "benvenuto"}, Options{})
	mb := bus.NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx, mb) }()

	require.NoError(t, mb.PublishInbound(ctx, bus.InboundMessage{Channel: "websocket", ChatID: "ws:1", Content: "ciao"}))

	out, ok := mb.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, bus.OutboundMessage{Channel: "websocket", ChatID: "ws:1", Content: "benvenuto"}, out)

	_, exists := f.sessions.Get("websocket:ws:1")
	assert.True(t, exists)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
