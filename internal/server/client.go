package server

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dum-man/messenger/internal/events"
	"github.com/dum-man/messenger/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Rate limits per minute
type RateLimits struct {
	MaxMarkRead     int
	MaxPingMessages int
}

var DefaultRateLimits = RateLimits{
	MaxMarkRead:     120,
	MaxPingMessages: 60,
}

// ClientRateLimiter tracks rate limits per client
type ClientRateLimiter struct {
	markReadTokens int
	pingTokens     int
	lastRefill     time.Time
	mu             sync.Mutex
}

func NewClientRateLimiter() *ClientRateLimiter {
	return &ClientRateLimiter{
		markReadTokens: DefaultRateLimits.MaxMarkRead,
		pingTokens:     DefaultRateLimits.MaxPingMessages,
		lastRefill:     time.Now(),
	}
}

func (rl *ClientRateLimiter) Allow(msgType string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastRefill) >= time.Minute {
		rl.markReadTokens = DefaultRateLimits.MaxMarkRead
		rl.pingTokens = DefaultRateLimits.MaxPingMessages
		rl.lastRefill = now
	}

	switch msgType {
	case "mark_read":
		if rl.markReadTokens > 0 {
			rl.markReadTokens--
			return true
		}
	case "ping":
		if rl.pingTokens > 0 {
			rl.pingTokens--
			return true
		}
	}
	return false
}

// Client represents a single WebSocket subscriber connection. It owns an
// authorized bus subscription; events flow subscription -> eventPump ->
// send -> writePump -> wire.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	sess         *session.Session
	userID       uuid.UUID
	clientID     string
	subscription *events.FilteredSubscription
	rateLimiter  *ClientRateLimiter
	closeOnce    sync.Once
	lastActivity atomic.Int64 // unix nanos, written by readPump, read by writePump
	logger       *WebSocketLogger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
}

// ServerFrame is the wire shape of a delivered event.
type ServerFrame struct {
	Type    events.EventType `json:"type"`
	Payload events.Event     `json:"payload"`
}

func NewClient(hub *Hub, conn *websocket.Conn, sess *session.Session, subscription *events.FilteredSubscription, clientID string, logger *WebSocketLogger) *Client {
	c := &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		sess:         sess,
		userID:       sess.User.ID,
		clientID:     clientID,
		subscription: subscription,
		rateLimiter:  NewClientRateLimiter(),
		logger:       logger,
	}
	c.touchActivity()
	return c
}

func (c *Client) touchActivity() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

// eventPump forwards authorized bus events onto the connection.
func (c *Client) eventPump() {
	for event := range c.subscription.Events() {
		data, err := json.Marshal(ServerFrame{Type: event.Type(), Payload: event})
		if err != nil {
			c.logger.Error("marshal event frame", c.userID, c.clientID, err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		default:
			c.logger.Warn("client send buffer full", c.userID, c.clientID)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touchActivity()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket unexpected close", c.userID, c.clientID, err)
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.touchActivity()

		if err := c.handleMessage(message); err != nil {
			c.logger.Error("websocket handle message failed", c.userID, c.clientID, err)
		}
	}
}

func (c *Client) handleMessage(message []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}

	if !c.rateLimiter.Allow(msg.Type) {
		c.logger.Warn("rate limit exceeded", c.userID, c.clientID, zap.String("msg_type", msg.Type))
		return nil
	}

	switch msg.Type {
	case "mark_read":
		return c.handleMarkRead(msg)
	case "ping":
		return c.handlePing()
	default:
		c.logger.Warn("unknown message type", c.userID, c.clientID, zap.String("msg_type", msg.Type))
		return nil
	}
}

func (c *Client) handleMarkRead(msg ClientMessage) error {
	if c.hub.conversationService == nil {
		return nil
	}
	return c.hub.conversationService.MarkAsRead(
		context.Background(),
		c.sess,
		c.userID,
		msg.ConversationID,
	)
}

func (c *Client) handlePing() error {
	select {
	case c.send <- []byte(`{"type":"pong"}`):
	case <-c.done:
	}
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			if c.idleFor() > pongWait*2 {
				c.logger.Info("client idle timeout", c.userID, c.clientID)
				return
			}
		}
	}
}
