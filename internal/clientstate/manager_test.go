package clientstate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dum-man/messenger/internal/domain"
	"github.com/dum-man/messenger/internal/events"
)

func conversationWith(userIDs ...uuid.UUID) domain.Conversation {
	conv := domain.Conversation{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, id := range userIDs {
		conv.Participants = append(conv.Participants, domain.Participant{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         id,
		})
	}
	return conv
}

func TestManagerStateTransitions(t *testing.T) {
	m := NewManager(uuid.New(), nil)
	assert.Equal(t, StateIdle, m.State())

	m.BeginLoad()
	assert.Equal(t, StateLoading, m.State())

	m.Populate(nil)
	assert.Equal(t, StatePopulated, m.State())
}

func TestManagerConversationsSortedByActivity(t *testing.T) {
	user := uuid.New()
	m := NewManager(user, nil)

	older := conversationWith(user)
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := conversationWith(user)
	newer.UpdatedAt = time.Now()

	// Insertion order deliberately oldest-last so the sort has to work.
	m.Populate([]domain.Conversation{older, newer})

	got := m.Conversations()
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestManagerOptimisticSendDedup(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	m := NewManager(user, nil)

	conv := conversationWith(user, other)
	m.Populate([]domain.Conversation{conv})

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       user,
		Body:           "hello",
		CreatedAt:      time.Now(),
	}
	m.OptimisticSend(msg)

	// The confirmed event echoes back with the same id. Exactly one copy
	// survives.
	m.ApplyEvent(events.MessageSent{Message: msg, Participants: []uuid.UUID{user, other}})

	feed := m.Messages(conv.ID)
	require.Len(t, feed, 1)
	assert.Equal(t, msg.ID, feed[0].ID)
}

func TestManagerOptimisticSendUpdatesConversation(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	m := NewManager(user, nil)

	conv := conversationWith(user, other)
	conv.UpdatedAt = time.Now().Add(-time.Hour)
	m.Populate([]domain.Conversation{conv})

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       user,
		Body:           "hello",
		CreatedAt:      time.Now(),
	}
	m.OptimisticSend(msg)

	got := m.Conversations()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].LatestMessage)
	assert.Equal(t, msg.ID, got[0].LatestMessage.ID)
	for _, p := range got[0].Participants {
		if p.UserID == user {
			assert.True(t, p.HasSeenLatestMessage)
		} else {
			assert.False(t, p.HasSeenLatestMessage)
		}
	}
}

func TestManagerOpenUnreadTriggersMarkRead(t *testing.T) {
	user := uuid.New()
	var marked []uuid.UUID
	m := NewManager(user, func(id uuid.UUID) { marked = append(marked, id) })

	conv := conversationWith(user)
	m.Populate([]domain.Conversation{conv})

	m.Open(conv.ID)
	require.Len(t, marked, 1)
	assert.Equal(t, conv.ID, marked[0])

	// Already read now, reopening does not mark again.
	m.Open(conv.ID)
	assert.Len(t, marked, 1)

	got := m.Conversations()
	assert.True(t, got[0].Participants[0].HasSeenLatestMessage)
}

func TestManagerUpdateWhileOpenMirrorsMarkRead(t *testing.T) {
	user := uuid.New()
	other := uuid.New()
	var marked []uuid.UUID
	m := NewManager(user, func(id uuid.UUID) { marked = append(marked, id) })

	conv := conversationWith(user, other)
	conv.Participants[0].HasSeenLatestMessage = true
	m.Populate([]domain.Conversation{conv})
	m.Open(conv.ID)
	require.Empty(t, marked)

	// The other side sends a message: the update arrives with our row
	// unseen, but we are looking at the conversation.
	updated := conv
	updated.Participants = append([]domain.Participant(nil), conv.Participants...)
	updated.Participants[0].HasSeenLatestMessage = false
	updated.UpdatedAt = time.Now()
	m.ApplyEvent(events.ConversationUpdated{Conversation: updated})

	require.Len(t, marked, 1)
	assert.Equal(t, conv.ID, marked[0])

	got := m.Conversations()
	assert.True(t, got[0].Participants[0].HasSeenLatestMessage)
}

func TestManagerUpdateWhileClosedStaysUnread(t *testing.T) {
	user := uuid.New()
	var marked []uuid.UUID
	m := NewManager(user, func(id uuid.UUID) { marked = append(marked, id) })

	conv := conversationWith(user)
	conv.Participants[0].HasSeenLatestMessage = true
	m.Populate([]domain.Conversation{conv})

	updated := conv
	updated.Participants = append([]domain.Participant(nil), conv.Participants...)
	updated.Participants[0].HasSeenLatestMessage = false
	m.ApplyEvent(events.ConversationUpdated{Conversation: updated})

	assert.Empty(t, marked)
	got := m.Conversations()
	assert.False(t, got[0].Participants[0].HasSeenLatestMessage)
}

func TestManagerCreatedEventDedup(t *testing.T) {
	user := uuid.New()
	m := NewManager(user, nil)

	conv := conversationWith(user)
	m.Populate([]domain.Conversation{conv})

	m.ApplyEvent(events.ConversationCreated{Conversation: conv})
	assert.Len(t, m.Conversations(), 1)

	other := conversationWith(user)
	m.ApplyEvent(events.ConversationCreated{Conversation: other})
	assert.Len(t, m.Conversations(), 2)
}

func TestManagerDeleteNavigatesAway(t *testing.T) {
	user := uuid.New()
	m := NewManager(user, nil)

	conv := conversationWith(user)
	conv.Participants[0].HasSeenLatestMessage = true
	m.Populate([]domain.Conversation{conv})
	m.PopulateMessages(conv.ID, []domain.Message{{ID: uuid.New(), ConversationID: conv.ID}})
	m.Open(conv.ID)
	require.Equal(t, conv.ID, m.OpenID())

	m.ApplyEvent(events.ConversationDeleted{ID: conv.ID, Participants: []uuid.UUID{user}})

	assert.Empty(t, m.Conversations())
	assert.Empty(t, m.Messages(conv.ID))
	assert.Equal(t, uuid.Nil, m.OpenID())
}

func TestManagerIncomingMessagePrepends(t *testing.T) {
	user := uuid.New()
	m := NewManager(user, nil)

	conv := conversationWith(user)
	m.Populate([]domain.Conversation{conv})

	first := domain.Message{ID: uuid.New(), ConversationID: conv.ID, Body: "first"}
	second := domain.Message{ID: uuid.New(), ConversationID: conv.ID, Body: "second"}
	m.ApplyEvent(events.MessageSent{Message: first})
	m.ApplyEvent(events.MessageSent{Message: second})

	feed := m.Messages(conv.ID)
	require.Len(t, feed, 2)
	assert.Equal(t, "second", feed[0].Body)
	assert.Equal(t, "first", feed[1].Body)
}
