package clientstate

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/domain"
	"github.com/dum-man/messenger/internal/events"
)

// State of the conversation list view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePopulated
)

// MarkReadFunc issues the mark-as-read mutation for the local user. The
// manager has already mirrored the flag locally by the time it runs.
type MarkReadFunc func(conversationID uuid.UUID)

// Manager is the local cache of one user's view: the conversation list
// and per-conversation message feeds. Two event sources feed it, user
// initiated optimistic updates and server confirmed events, merged by a
// deterministic reconciliation keyed on message id.
type Manager struct {
	mu       sync.Mutex
	userID   uuid.UUID
	state    State
	convs    []domain.Conversation
	messages map[uuid.UUID][]domain.Message
	seen     map[uuid.UUID]struct{}
	open     uuid.UUID
	markRead MarkReadFunc
}

func NewManager(userID uuid.UUID, markRead MarkReadFunc) *Manager {
	if markRead == nil {
		markRead = func(uuid.UUID) {}
	}
	return &Manager{
		userID:   userID,
		state:    StateIdle,
		messages: make(map[uuid.UUID][]domain.Message),
		seen:     make(map[uuid.UUID]struct{}),
		markRead: markRead,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BeginLoad marks the initial query in flight.
func (m *Manager) BeginLoad() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		m.state = StateLoading
	}
}

// Populate installs the initial query result.
func (m *Manager) Populate(conversations []domain.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs = append([]domain.Conversation(nil), conversations...)
	m.state = StatePopulated
}

// Conversations returns the list newest activity first. Order is derived
// by sorting on UpdatedAt, never by insertion order.
func (m *Manager) Conversations() []domain.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]domain.Conversation(nil), m.convs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Messages returns the conversation's feed, newest first.
func (m *Manager) Messages(conversationID uuid.UUID) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.messages[conversationID]...)
}

// PopulateMessages installs a conversation's query result.
func (m *Manager) PopulateMessages(conversationID uuid.UUID, messages []domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[conversationID] = append([]domain.Message(nil), messages...)
	for _, msg := range messages {
		m.seen[msg.ID] = struct{}{}
	}
}

// Open marks a conversation as the one being viewed. Viewing an unread
// conversation mirrors a mark-as-read locally before the mutation runs.
func (m *Manager) Open(conversationID uuid.UUID) {
	m.mu.Lock()
	m.open = conversationID
	unread := m.localUnread(conversationID)
	if unread {
		m.setLocalSeen(conversationID, true)
	}
	m.mu.Unlock()

	if unread {
		m.markRead(conversationID)
	}
}

// OpenID returns the currently open conversation, uuid.Nil when none.
func (m *Manager) OpenID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// OptimisticSend splices a locally synthesized message into the view
// before the round trip resolves. The same id travels to the pipeline,
// so the authoritative event is recognized as this entity.
func (m *Manager) OptimisticSend(msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.seen[msg.ID]; dup {
		return
	}
	m.seen[msg.ID] = struct{}{}
	m.messages[msg.ConversationID] = append([]domain.Message{msg}, m.messages[msg.ConversationID]...)

	for i := range m.convs {
		if m.convs[i].ID != msg.ConversationID {
			continue
		}
		m.convs[i].LatestMessage = &msg
		m.convs[i].LatestMessageID = uuid.NullUUID{UUID: msg.ID, Valid: true}
		m.convs[i].UpdatedAt = msg.CreatedAt
		for j := range m.convs[i].Participants {
			m.convs[i].Participants[j].HasSeenLatestMessage = m.convs[i].Participants[j].UserID == m.userID
		}
	}
}

// ApplyEvent patches the local view with an authoritative server event.
func (m *Manager) ApplyEvent(event events.Event) {
	switch e := event.(type) {
	case events.ConversationCreated:
		m.applyCreated(e.Conversation)
	case events.ConversationUpdated:
		m.applyUpdated(e.Conversation)
	case events.ConversationDeleted:
		m.applyDeleted(e.ID)
	case events.MessageSent:
		m.applyMessage(e.Message)
	}
}

func (m *Manager) applyCreated(conv domain.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.convs {
		if existing.ID == conv.ID {
			return
		}
	}
	m.convs = append([]domain.Conversation{conv}, m.convs...)
}

func (m *Manager) applyUpdated(conv domain.Conversation) {
	m.mu.Lock()
	found := false
	for i := range m.convs {
		if m.convs[i].ID == conv.ID {
			m.convs[i] = conv
			found = true
			break
		}
	}
	if !found {
		m.convs = append(m.convs, conv)
	}

	// Updates for the conversation currently on screen mean the viewer
	// has effectively seen the new message already.
	viewing := m.open == conv.ID && m.localUnread(conv.ID)
	if viewing {
		m.setLocalSeen(conv.ID, true)
	}
	m.mu.Unlock()

	if viewing {
		m.markRead(conv.ID)
	}
}

func (m *Manager) applyDeleted(conversationID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.convs[:0]
	for _, conv := range m.convs {
		if conv.ID != conversationID {
			kept = append(kept, conv)
		}
	}
	m.convs = kept
	delete(m.messages, conversationID)

	if m.open == conversationID {
		m.open = uuid.Nil
	}
}

func (m *Manager) applyMessage(msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The sender's own messages are already on screen from the
	// optimistic splice; the id check keeps exactly one copy.
	if _, dup := m.seen[msg.ID]; dup {
		return
	}
	m.seen[msg.ID] = struct{}{}
	m.messages[msg.ConversationID] = append([]domain.Message{msg}, m.messages[msg.ConversationID]...)
}

// localUnread reports whether the local user's participant row in the
// cached conversation is unseen. Callers hold m.mu.
func (m *Manager) localUnread(conversationID uuid.UUID) bool {
	for _, conv := range m.convs {
		if conv.ID != conversationID {
			continue
		}
		for _, p := range conv.Participants {
			if p.UserID == m.userID {
				return !p.HasSeenLatestMessage
			}
		}
	}
	return false
}

// setLocalSeen patches the local user's participant row. Callers hold m.mu.
func (m *Manager) setLocalSeen(conversationID uuid.UUID, seen bool) {
	for i := range m.convs {
		if m.convs[i].ID != conversationID {
			continue
		}
		for j := range m.convs[i].Participants {
			if m.convs[i].Participants[j].UserID == m.userID {
				m.convs[i].Participants[j].HasSeenLatestMessage = seen
			}
		}
	}
}
