package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

const defaultChannelQueueSize = 100

type channelWorker struct {
	ch    Channel
	queue chan bus.OutboundMessage
	done  chan struct{}
}

// Manager owns the enabled channels and routes outbound messages from the
// bus to the channel they name.
type Manager struct {
	channels map[string]Channel
	workers  map[string]*channelWorker
	bus      *bus.MessageBus
	cancel   context.CancelFunc
	mu       sync.RWMutex
}

func NewManager(messageBus *bus.MessageBus) *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		workers:  make(map[string]*channelWorker),
		bus:      messageBus,
	}
}

// NewManagerFromConfig registers every channel enabled in cfg.
func NewManagerFromConfig(cfg config.ChannelsConfig, messageBus *bus.MessageBus) (*Manager, error) {
	m := NewManager(messageBus)

	if cfg.WebSocket.Enabled {
		m.RegisterChannel(NewWebSocketChannel(cfg.WebSocket, messageBus))
	}
	if cfg.Telegram.Enabled {
		if cfg.Telegram.Token == "" {
			return nil, fmt.Errorf("telegram channel enabled without a token")
		}
		tg, err := NewTelegramChannel(cfg.Telegram, messageBus)
		if err != nil {
			return nil, err
		}
		m.RegisterChannel(tg)
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]any{
		"enabled_channels": len(m.channels),
	})
	return m, nil
}

func (m *Manager) RegisterChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
	m.workers[ch.Name()] = &channelWorker{
		ch:    ch,
		queue: make(chan bus.OutboundMessage, defaultChannelQueueSize),
		done:  make(chan struct{}),
	}
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

func (m *Manager) EnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts every channel and the outbound dispatcher. A channel that
// fails to start is logged and skipped.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.channels) == 0 {
		logger.WarnC("channels", "No channels enabled")
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
	for name, w := range m.workers {
		go m.runWorker(dispatchCtx, name, w)
	}
	go m.dispatchOutbound(dispatchCtx)
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		for _, w := range m.workers {
			<-w.done
		}
	}

	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}
	return nil
}

func (m *Manager) runWorker(ctx context.Context, name string, w *channelWorker) {
	defer close(w.done)
	for {
		select {
		case msg := <-w.queue:
			chunks := []string{msg.Content}
			if mlp, ok := w.ch.(MessageLengthProvider); ok {
				chunks = SplitMessage(msg.Content, mlp.MaxMessageLength())
			}
			for _, chunk := range chunks {
				out := msg
				out.Content = chunk
				if err := w.ch.Send(ctx, out); err != nil {
					logger.ErrorCF("channels", "Error sending message", map[string]any{
						"channel": name,
						"error":   err.Error(),
					})
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		m.mu.RLock()
		w, exists := m.workers[msg.Channel]
		m.mu.RUnlock()
		if !exists {
			logger.WarnCF("channels", "Unknown channel for outbound message", map[string]any{
				"channel": msg.Channel,
			})
			continue
		}

		select {
		case w.queue <- msg:
		case <-ctx.Done():
			return
		}
	}
}
