package events

import (
	"github.com/google/uuid"

	"github.com/dum-man/messenger/internal/domain"
)

// EventType follows the format: domain.action
type EventType string

const (
	EventConversationCreated EventType = "conversation.created"
	EventConversationUpdated EventType = "conversation.updated"
	EventConversationDeleted EventType = "conversation.deleted"
	EventMessageSent         EventType = "message.sent"
)

// AllTypes lists every event type carried on the bus.
func AllTypes() []EventType {
	return []EventType{
		EventConversationCreated,
		EventConversationUpdated,
		EventConversationDeleted,
		EventMessageSent,
	}
}

// Event is a domain event carried on the bus. Every event exposes the
// participant snapshot of its conversation taken at publish time, so
// delivery can be authorized without a storage read. The deletion event
// snapshots participants before the cascade removes them.
type Event interface {
	Type() EventType
	ConversationID() uuid.UUID
	ParticipantIDs() []uuid.UUID
}

// ConversationCreated carries the fully populated new conversation.
type ConversationCreated struct {
	Conversation domain.Conversation `json:"conversation"`
}

func (e ConversationCreated) Type() EventType { return EventConversationCreated }
func (e ConversationCreated) ConversationID() uuid.UUID { return e.Conversation.ID }
func (e ConversationCreated) ParticipantIDs() []uuid.UUID { return e.Conversation.ParticipantIDs() }

// ConversationUpdated carries the populated conversation after a mutation
// refreshed it (currently only message sends).
type ConversationUpdated struct {
	Conversation domain.Conversation `json:"conversation"`
}

func (e ConversationUpdated) Type() EventType { return EventConversationUpdated }
func (e ConversationUpdated) ConversationID() uuid.UUID { return e.Conversation.ID }
func (e ConversationUpdated) ParticipantIDs() []uuid.UUID { return e.Conversation.ParticipantIDs() }

// ConversationDeleted carries the deleted conversation id plus a snapshot
// of the participant set captured inside the delete transaction.
type ConversationDeleted struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participants"`
}

func (e ConversationDeleted) Type() EventType { return EventConversationDeleted }
func (e ConversationDeleted) ConversationID() uuid.UUID { return e.ID }
func (e ConversationDeleted) ParticipantIDs() []uuid.UUID { return e.Participants }

// MessageSent carries the populated message and the participant snapshot
// of its conversation.
type MessageSent struct {
	Message      domain.Message `json:"message"`
	Participants []uuid.UUID    `json:"participants"`
}

func (e MessageSent) Type() EventType { return EventMessageSent }
func (e MessageSent) ConversationID() uuid.UUID { return e.Message.ConversationID }
func (e MessageSent) ParticipantIDs() []uuid.UUID { return e.Participants }
