package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	// SearchUsers matches usernames by case-insensitive substring,
	// excluding the searching user.
	SearchUsers(ctx context.Context, query string, excludeUserID uuid.UUID) ([]domain.User, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error
}

type ConversationRepository interface {
	// Create persists the conversation together with its participant rows.
	Create(ctx context.Context, c *domain.Conversation) error
	// GetByID returns the conversation populated with participants (and
	// their users) and the latest message.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	// GetUserConversations returns every populated conversation the user
	// participates in, newest activity first.
	GetUserConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (domain.Participant, error)
	SetParticipantSeen(ctx context.Context, participantID uuid.UUID, seen bool) error
	// SaveReadStates bulk-writes the HasSeenLatestMessage flag of each
	// given participant row.
	SaveReadStates(ctx context.Context, participants []domain.Participant) error
	// SetLatestMessage points the conversation at its newest message and
	// refreshes UpdatedAt.
	SetLatestMessage(ctx context.Context, conversationID, messageID uuid.UUID, at time.Time) error
	// Delete removes the conversation, its participants and its messages.
	// Callers wanting atomicity run it inside a transaction.
	Delete(ctx context.Context, id uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// GetConversationMessages returns the conversation's messages newest
	// first, each populated with its sender.
	GetConversationMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}
