package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/config"
)

type fakeChannel struct {
	*BaseChannel
	maxLen int
	mu     sync.Mutex
	sent   []bus.OutboundMessage
	got    chan struct{}
}

func newFakeChannel(name string, maxLen int) *fakeChannel {
	return &fakeChannel{
		BaseChannel: NewBaseChannel(name, nil, nil),
		maxLen:      maxLen,
		got:         make(chan struct{}, 16),
	}
}

func (f *fakeChannel) Start(context.Context) error { f.setRunning(true); return nil }
func (f *fakeChannel) Stop(context.Context) error  { f.setRunning(false); return nil }
func (f *fakeChannel) MaxMessageLength() int       { return f.maxLen }

func (f *fakeChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func waitFor(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i+1)
		}
	}
}

func TestManager_RoutesByChannelName(t *testing.T) {
	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	a := newFakeChannel("a", 0)
	b := newFakeChannel("b", 0)
	m := NewManager(msgBus)
	m.RegisterChannel(a)
	m.RegisterChannel(b)

	if err := m.StartAll(t.Context()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	defer m.StopAll(context.Background())

	_ = msgBus.PublishOutbound(t.Context(), bus.OutboundMessage{Channel: "unknown", ChatID: "1", Content: "lost"})
	_ = msgBus.PublishOutbound(t.Context(), bus.OutboundMessage{Channel: "b", ChatID: "7", Content: "ciao"})
	waitFor(t, b.got, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) != 1 || b.sent[0].ChatID != "7" {
		t.Fatalf("b.sent = %+v", b.sent)
	}
	if len(a.sent) != 0 {
		t.Fatalf("a should receive nothing, got %+v", a.sent)
	}
	if !a.IsRunning() {
		t.Fatal("channel a should be running")
	}
}

func TestManager_SplitsLongMessages(t *testing.T) {
	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	ch := newFakeChannel("short", 5)
	m := NewManager(msgBus)
	m.RegisterChannel(ch)
	_ = m.StartAll(t.Context())
	defer m.StopAll(context.Background())

	_ = msgBus.PublishOutbound(t.Context(), bus.OutboundMessage{Channel: "short", ChatID: "1", Content: "uno due tre"})
	waitFor(t, ch.got, 3)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	want := []string{"uno", "due", "tre"}
	for i, msg := range ch.sent {
		if msg.Content != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, msg.Content, want[i])
		}
	}
}

func TestNewManagerFromConfig(t *testing.T) {
	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	m, err := NewManagerFromConfig(config.ChannelsConfig{
		WebSocket: config.WebSocketConfig{Enabled: true, Host: "127.0.0.1"},
	}, msgBus)
	if err != nil {
		t.Fatalf("NewManagerFromConfig: %v", err)
	}
	if got := m.EnabledChannels(); len(got) != 1 || got[0] != WebSocketName {
		t.Fatalf("EnabledChannels = %v", got)
	}

	if _, err := NewManagerFromConfig(config.ChannelsConfig{
		Telegram: config.TelegramConfig{Enabled: true},
	}, msgBus); err == nil {
		t.Fatal("expected error for telegram without token")
	}
}
