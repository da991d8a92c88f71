package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dum-man/messenger/internal/domain"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return messenger_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, messenger_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetUserConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	subQuery := r.db.Model(&domain.Participant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	var conversations []domain.Conversation
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Preload("Participants.User").
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		Where("id IN (?)", subQuery).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Participant{}, messenger_errors.ErrParticipantNotFound
		}
		return domain.Participant{}, err
	}
	return p, nil
}

func (r *PostgresConversationRepository) SetParticipantSeen(ctx context.Context, participantID uuid.UUID, seen bool) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("id = ?", participantID).
		Update("has_seen_latest_message", seen)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return messenger_errors.ErrParticipantNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SaveReadStates(ctx context.Context, participants []domain.Participant) error {
	for _, p := range participants {
		res := r.db.WithContext(ctx).
			Model(&domain.Participant{}).
			Where("id = ?", p.ID).
			Update("has_seen_latest_message", p.HasSeenLatestMessage)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return messenger_errors.ErrParticipantNotFound
		}
	}
	return nil
}

func (r *PostgresConversationRepository) SetLatestMessage(ctx context.Context, conversationID, messageID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"latest_message_id": messageID,
			"updated_at":        at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return messenger_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Clear the latest-message pointer first so the message delete does
	// not trip the foreign key.
	if err := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("latest_message_id", nil).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Delete(&domain.Message{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", id).
		Delete(&domain.Participant{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&domain.Conversation{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return messenger_errors.ErrNotFound
	}
	return nil
}
