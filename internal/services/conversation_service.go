package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dum-man/messenger/internal/domain"
	"github.com/dum-man/messenger/internal/events"
	"github.com/dum-man/messenger/internal/repository"
	"github.com/dum-man/messenger/internal/session"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
	"github.com/dum-man/messenger/pkg/logger"
)

// ConversationService orchestrates conversation mutations: storage write
// first, bus publish only after the write is committed.
type ConversationService struct {
	db   *gorm.DB
	repo repository.ConversationRepository
	bus  events.Bus
	log  *logger.Logger
}

func NewConversationService(db *gorm.DB, repo repository.ConversationRepository, bus events.Bus, log *logger.Logger) *ConversationService {
	return &ConversationService{db: db, repo: repo, bus: bus, log: log}
}

// inTransaction runs fn against a transaction-bound repository. With no
// database attached (unit tests inject fakes) fn runs directly.
func (s *ConversationService) inTransaction(ctx context.Context, fn func(repo repository.ConversationRepository) error) error {
	if s.db == nil {
		return fn(s.repo)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.NewConversationRepository(tx))
	})
}

// List returns every conversation the session user participates in,
// populated with participants and the latest message.
func (s *ConversationService) List(ctx context.Context, sess *session.Session) ([]domain.Conversation, error) {
	if !sess.Authenticated() {
		return nil, messenger_errors.ErrUnauthorized
	}
	return s.repo.GetUserConversations(ctx, sess.User.ID)
}

// Create creates a conversation with one participant row per id. The
// creator's row is seeded as already-seen, everyone else's as unseen.
// Publishes conversation.created after commit and returns the new id.
func (s *ConversationService) Create(ctx context.Context, sess *session.Session, participantIDs []uuid.UUID) (uuid.UUID, error) {
	if !sess.Authenticated() {
		return uuid.Nil, messenger_errors.ErrUnauthorized
	}
	if len(participantIDs) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no participants", messenger_errors.ErrInvalidInput)
	}

	now := time.Now()
	conv := domain.Conversation{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	seen := make(map[uuid.UUID]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conv.Participants = append(conv.Participants, domain.Participant{
			ID:                   uuid.New(),
			ConversationID:       conv.ID,
			UserID:               id,
			HasSeenLatestMessage: id == sess.User.ID,
			CreatedAt:            now,
		})
	}

	var populated domain.Conversation
	err := s.inTransaction(ctx, func(repo repository.ConversationRepository) error {
		if err := repo.Create(ctx, &conv); err != nil {
			return err
		}
		// Re-read inside the transaction so the published payload carries
		// participant users.
		full, err := repo.GetByID(ctx, conv.ID)
		if err != nil {
			return err
		}
		populated = full
		return nil
	})
	if err != nil {
		s.log.Errorf("create conversation: %v", err)
		return uuid.Nil, fmt.Errorf("error creating conversation: %w", messenger_errors.ErrOperationFailed)
	}

	if err := s.bus.Publish(ctx, events.ConversationCreated{Conversation: populated}); err != nil {
		s.log.Errorf("publish conversation.created: %v", err)
	}
	return conv.ID, nil
}

// MarkAsRead sets the caller's own HasSeenLatestMessage flag. Idempotent:
// marking an already-read conversation succeeds without a write. No bus
// event is published; the caller's view updates locally.
func (s *ConversationService) MarkAsRead(ctx context.Context, sess *session.Session, userID, conversationID uuid.UUID) error {
	if !sess.Authenticated() {
		return messenger_errors.ErrUnauthorized
	}
	if userID != sess.User.ID {
		return messenger_errors.ErrUnauthorized
	}

	participant, err := s.repo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if participant.HasSeenLatestMessage {
		return nil
	}
	return s.repo.SetParticipantSeen(ctx, participant.ID, true)
}

// Delete removes the conversation with its participants and messages as
// one atomic unit, then publishes conversation.deleted carrying the
// participant snapshot taken before the cascade. Any participant may
// delete.
func (s *ConversationService) Delete(ctx context.Context, sess *session.Session, conversationID uuid.UUID) error {
	if !sess.Authenticated() {
		return messenger_errors.ErrUnauthorized
	}

	var snapshot domain.Conversation
	err := s.inTransaction(ctx, func(repo repository.ConversationRepository) error {
		conv, err := repo.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		snapshot = conv
		return repo.Delete(ctx, conversationID)
	})
	if err != nil {
		if errors.Is(err, messenger_errors.ErrNotFound) {
			return messenger_errors.ErrConversationNotFound
		}
		s.log.Errorf("delete conversation %s: %v", conversationID, err)
		return fmt.Errorf("error deleting conversation: %w", messenger_errors.ErrOperationFailed)
	}

	if err := s.bus.Publish(ctx, events.ConversationDeleted{
		ID:           conversationID,
		Participants: snapshot.ParticipantIDs(),
	}); err != nil {
		s.log.Errorf("publish conversation.deleted: %v", err)
	}
	return nil
}
