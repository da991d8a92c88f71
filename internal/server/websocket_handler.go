package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dum-man/messenger/internal/events"
	"github.com/dum-man/messenger/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades subscribe requests into hub connections.
type WebSocketHandler struct {
	hub      *Hub
	bus      events.Bus
	provider session.Provider
	logger   *WebSocketLogger
}

func NewWebSocketHandler(hub *Hub, bus events.Bus, provider session.Provider, logger *WebSocketLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		bus:      bus,
		provider: provider,
		logger:   logger,
	}
}

// Handle authenticates the subscribe attempt, creates the authorized bus
// subscription and upgrades the connection. An unauthenticated subscribe
// attempt is rejected here, before any event can flow.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := h.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	sess, err := h.provider.SessionFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	topics := parseTopics(c.Query("topics"))

	subscription, err := events.SubscribeAuthorized(h.bus, sess, events.ParticipantFilter, topics...)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		subscription.Close()
		h.logger.Error("websocket upgrade failed", sess.User.ID, "", err)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(h.hub, conn, sess, subscription, clientID, h.logger)

	h.hub.register <- client
}

// parseTopics reads a comma separated topic list, defaulting to every
// event type.
func parseTopics(raw string) []events.EventType {
	if raw == "" {
		return events.AllTypes()
	}

	valid := make(map[events.EventType]struct{})
	for _, t := range events.AllTypes() {
		valid[t] = struct{}{}
	}

	var topics []events.EventType
	for _, part := range strings.Split(raw, ",") {
		t := events.EventType(strings.TrimSpace(part))
		if _, ok := valid[t]; ok {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return events.AllTypes()
	}
	return topics
}

func (h *WebSocketHandler) extractToken(c *gin.Context) string {
	// Check query parameter
	token := c.Query("token")
	if token != "" {
		return token
	}

	// Check Authorization header
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return ""
}
