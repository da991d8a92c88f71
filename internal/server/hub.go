package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/services"
)

// Hub maintains the set of active subscriber connections. Fan-out itself
// happens on each client's own event pump: every connection owns an
// authorized bus subscription, so the hub only tracks lifecycle.
type Hub struct {
	clients             map[uuid.UUID]map[string]*Client
	register            chan *Client
	unregister          chan *Client
	conversationService *services.ConversationService
	rateLimiter         *ConnectionRateLimiter
	logger              *WebSocketLogger
	mu                  sync.RWMutex
	stopChan            chan struct{}
	stopOnce            sync.Once
}

const maxConnectionsPerUser = 10

// ConnectionRateLimiter tracks connection attempts per user over a
// sliding one minute window.
type ConnectionRateLimiter struct {
	connectionsPerUser map[uuid.UUID][]time.Time
	mu                 sync.Mutex
}

func NewConnectionRateLimiter() *ConnectionRateLimiter {
	return &ConnectionRateLimiter{
		connectionsPerUser: make(map[uuid.UUID][]time.Time),
	}
}

func (w *ConnectionRateLimiter) AllowConnection(userID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-1 * time.Minute)

	valid := w.connectionsPerUser[userID][:0]
	for _, t := range w.connectionsPerUser[userID] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= maxConnectionsPerUser {
		w.connectionsPerUser[userID] = valid
		return false
	}

	w.connectionsPerUser[userID] = append(valid, now)
	return true
}

func NewHub(conversationService *services.ConversationService, logger *WebSocketLogger) *Hub {
	return &Hub{
		clients:             make(map[uuid.UUID]map[string]*Client),
		register:            make(chan *Client, 256),
		unregister:          make(chan *Client, 256),
		conversationService: conversationService,
		rateLimiter:         NewConnectionRateLimiter(),
		logger:              logger,
		stopChan:            make(chan struct{}),
	}
}

// Run processes connection lifecycle until Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.rateLimiter.AllowConnection(client.userID) {
		h.logger.Warn("connection rate limit exceeded", client.userID, client.clientID)
		h.closeClient(client)
		return
	}

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[string]*Client)
	}

	if len(h.clients[client.userID]) >= maxConnectionsPerUser {
		h.logger.Warn("max connections per user reached", client.userID, client.clientID)
		for id, c := range h.clients[client.userID] {
			h.closeClient(c)
			delete(h.clients[client.userID], id)
			break
		}
	}

	h.clients[client.userID][client.clientID] = client
	h.logger.Info("client connected", client.userID, client.clientID)

	go client.writePump()
	go client.readPump()
	go client.eventPump()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.userID]; ok {
		if _, ok := userClients[client.clientID]; ok {
			delete(userClients, client.clientID)
			h.closeClient(client)

			if len(userClients) == 0 {
				delete(h.clients, client.userID)
			}

			h.logger.Info("client disconnected", client.userID, client.clientID)
		}
	}
}

func (h *Hub) closeClient(client *Client) {
	client.closeOnce.Do(func() {
		client.subscription.Close()
		close(client.done)
		client.conn.Close()
	})
}

// Stop shuts down the hub and every open connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for _, client := range userClients {
			h.closeClient(client)
		}
	}
	h.clients = make(map[uuid.UUID]map[string]*Client)
}
