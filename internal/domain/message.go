package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents the messages table. The primary key is supplied by
// the sending client and doubles as an idempotency key, so the optimistic
// local record and the authoritative row are the same entity.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_conversation" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Sender User `gorm:"foreignKey:SenderID" json:"sender"`
}

func (Message) TableName() string {
	return "messages"
}
