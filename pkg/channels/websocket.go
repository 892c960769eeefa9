package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ciaohost/concierge/pkg/bus"
	"github.com/ciaohost/concierge/pkg/config"
	"github.com/ciaohost/concierge/pkg/logger"
)

const WebSocketName = "websocket"

// wsIncoming is the JSON frame sent by a web client.
type wsIncoming struct {
	Content  string `json:"content"`
	SenderID string `json:"sender_id,omitempty"`
}

// wsOutgoing is the JSON frame sent back to a web client.
type wsOutgoing struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// WebSocketChannel serves web chat clients. Each connection is one
// conversation with chat id "ws:<client_id>".
type WebSocketChannel struct {
	*BaseChannel
	config    config.WebSocketConfig
	server    *http.Server
	listener  net.Listener
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]string // conn -> chatID
	chatConns map[string]*websocket.Conn // chatID -> conn
	writeMu   sync.Mutex
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWebSocketChannel(cfg config.WebSocketConfig, msgBus *bus.MessageBus) *WebSocketChannel {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	return &WebSocketChannel{
		BaseChannel: NewBaseChannel(WebSocketName, msgBus, cfg.AllowFrom),
		config:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]string),
		chatConns: make(map[string]*websocket.Conn),
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (c *WebSocketChannel) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(c.config.Path, c.handleWS)
	return mux
}

func (c *WebSocketChannel) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", addr, err)
	}
	c.listener = ln
	c.server = &http.Server{Handler: c.Handler()}
	c.setRunning(true)

	logger.InfoCF("websocket", "WebSocket server listening", map[string]any{
		"addr": ln.Addr().String(),
		"path": c.config.Path,
	})

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("websocket", "Server error", map[string]any{"error": err.Error()})
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (c *WebSocketChannel) Addr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *WebSocketChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	for conn := range c.clients {
		conn.Close()
	}
	c.clients = make(map[*websocket.Conn]string)
	c.chatConns = make(map[string]*websocket.Conn)
	c.mu.Unlock()

	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("websocket shutdown: %w", err)
		}
	}
	logger.InfoC("websocket", "WebSocket channel stopped")
	return nil
}

func (c *WebSocketChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return errors.New("websocket channel not running")
	}

	c.mu.RLock()
	conn, ok := c.chatConns[msg.ChatID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no connection for chat %s", msg.ChatID)
	}

	data, err := json.Marshal(wsOutgoing{Content: msg.Content, Type: "message"})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.ErrorCF("websocket", "Failed to send message", map[string]any{
			"chat_id": msg.ChatID,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}

func (c *WebSocketChannel) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("websocket", "Upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	chatID := "ws:" + clientID

	c.mu.Lock()
	if old, ok := c.chatConns[chatID]; ok {
		delete(c.clients, old)
		old.Close()
	}
	c.clients[conn] = chatID
	c.chatConns[chatID] = conn
	c.mu.Unlock()

	logger.InfoCF("websocket", "New WebSocket connection", map[string]any{
		"client_id":   clientID,
		"remote_addr": r.RemoteAddr,
	})

	go c.readPump(conn, clientID, chatID)
}

func (c *WebSocketChannel) readPump(conn *websocket.Conn, clientID, chatID string) {
	defer func() {
		c.mu.Lock()
		if c.chatConns[chatID] == conn {
			delete(c.chatConns, chatID)
		}
		delete(c.clients, conn)
		c.mu.Unlock()
		conn.Close()
		logger.InfoCF("websocket", "Client disconnected", map[string]any{"client_id": clientID})
	}()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnCF("websocket", "Read error", map[string]any{
					"client_id": clientID,
					"error":     err.Error(),
				})
			}
			return
		}

		var in wsIncoming
		if err := json.Unmarshal(data, &in); err != nil {
			logger.WarnCF("websocket", "Invalid JSON message", map[string]any{
				"client_id": clientID,
				"error":     err.Error(),
			})
			continue
		}

		senderID := clientID
		if in.SenderID != "" {
			senderID = in.SenderID
		}
		c.HandleMessage(ctx, senderID, chatID, in.Content, nil)
	}
}
