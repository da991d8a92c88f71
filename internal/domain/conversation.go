package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents the conversations table. LatestMessage is a
// non-owning reference to the newest message, null until the first send.
type Conversation struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	LatestMessageID uuid.NullUUID `gorm:"type:uuid" json:"-"`
	CreatedAt       time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Participants  []Participant `gorm:"foreignKey:ConversationID" json:"participants"`
	LatestMessage *Message      `gorm:"foreignKey:LatestMessageID" json:"latest_message"`
}

// Participant is the join row binding one user to one conversation.
// Exactly one row exists per (conversation, user) pair.
type Participant struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participants_pair" json:"conversation_id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participants_pair" json:"user_id"`
	HasSeenLatestMessage bool      `gorm:"not null;default:false" json:"has_seen_latest_message"`
	CreatedAt            time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Participant) TableName() string {
	return "participants"
}

// ParticipantIDs returns the user ids of every participant.
func (c Conversation) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// HasParticipant reports whether userID is a participant of the conversation.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
