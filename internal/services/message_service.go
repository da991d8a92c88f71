package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

type MessageService struct {
	db          *gorm.DB
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	bus         events.Bus
	log         *logger.Logger
}

func NewMessageService(db *gorm.DB, messageRepo repository.MessageRepository, convRepo repository.ConversationRepository, bus events.Bus, log *logger.Logger) *MessageService {
	return &MessageService{
		db:          db,
		messageRepo: messageRepo,
		convRepo:    convRepo,
		bus:         bus,
		log:         log,
	}
}

// SendMessageInput carries a send request. ID is generated by the client
// and becomes the message primary key, which is what lets the optimistic
// local record and the authoritative row be recognized as one entity.
type SendMessageInput struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string
}

func (in SendMessageInput) validate() error {
	if in.ID == uuid.Nil || in.ConversationID == uuid.Nil || in.SenderID == uuid.Nil {
		return fmt.Errorf("%w: missing id", messenger_errors.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return fmt.Errorf("%w: empty body", messenger_errors.ErrInvalidInput)
	}
	return nil
}

func (s *MessageService) inTransaction(ctx context.Context, fn func(msgs repository.MessageRepository, convs repository.ConversationRepository) error) error {
	if s.db == nil {
		return fn(s.messageRepo, s.convRepo)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.NewMessageRepository(tx), repository.NewConversationRepository(tx))
	})
}

// Send creates the message, repoints the conversation's latest message,
// applies the read-state rule to every participant and publishes
// message.sent followed by conversation.updated, in that order, only
// after the whole write has committed. A duplicate client-supplied
// message id is a retry and succeeds without effect.
func (s *MessageService) Send(ctx context.Context, sess *session.Session, input SendMessageInput) error {
	if !sess.Authenticated() {
		return messenger_errors.ErrUnauthorized
	}
	if input.SenderID != sess.User.ID {
		return messenger_errors.ErrUnauthorized
	}
	if err := input.validate(); err != nil {
		return err
	}

	now := time.Now()
	msg := domain.Message{
		ID:             input.ID,
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Body:           input.Body,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var (
		duplicate bool
		populated domain.Conversation
	)
	err := s.inTransaction(ctx, func(msgs repository.MessageRepository, convs repository.ConversationRepository) error {
		if _, err := convs.GetParticipant(ctx, input.ConversationID, input.SenderID); err != nil {
			return err
		}

		if err := msgs.Create(ctx, &msg); err != nil {
			if errors.Is(err, messenger_errors.ErrAlreadyExists) {
				duplicate = true
				return nil
			}
			return err
		}

		if err := convs.SetLatestMessage(ctx, input.ConversationID, msg.ID, now); err != nil {
			return err
		}

		conv, err := convs.GetByID(ctx, input.ConversationID)
		if err != nil {
			return err
		}
		ApplyReadState(conv.Participants, input.SenderID)
		if err := convs.SaveReadStates(ctx, conv.Participants); err != nil {
			return err
		}

		conv.UpdatedAt = now
		conv.LatestMessageID = uuid.NullUUID{UUID: msg.ID, Valid: true}
		conv.LatestMessage = &msg
		populated = conv
		return nil
	})
	if err != nil {
		if errors.Is(err, messenger_errors.ErrParticipantNotFound) {
			return messenger_errors.ErrParticipantNotFound
		}
		s.log.Errorf("send message %s: %v", input.ID, err)
		return fmt.Errorf("error sending message: %w", messenger_errors.ErrOperationFailed)
	}
	if duplicate {
		return nil
	}

	// The published message carries its sender, resolved from the
	// populated participant set.
	for _, p := range populated.Participants {
		if p.UserID == msg.SenderID {
			msg.Sender = p.User
			break
		}
	}
	populated.LatestMessage = &msg

	if err := s.bus.Publish(ctx, events.MessageSent{
		Message:      msg,
		Participants: populated.ParticipantIDs(),
	}); err != nil {
		s.log.Errorf("publish message.sent: %v", err)
	}
	if err := s.bus.Publish(ctx, events.ConversationUpdated{Conversation: populated}); err != nil {
		s.log.Errorf("publish conversation.updated: %v", err)
	}
	return nil
}

// List returns the conversation's messages newest first. Only
// participants may view them.
func (s *MessageService) List(ctx context.Context, sess *session.Session, conversationID uuid.UUID) ([]domain.Message, error) {
	if !sess.Authenticated() {
		return nil, messenger_errors.ErrUnauthorized
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, messenger_errors.ErrNotFound) {
			return nil, messenger_errors.ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(sess.User.ID) {
		return nil, messenger_errors.ErrUnauthorized
	}

	return s.messageRepo.GetConversationMessages(ctx, conversationID)
}
