package httpdto

import (
	"time"

	"github.com/dum-man/messenger/internal/domain"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewSuccessResponse(data interface{}) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}

func NewErrorResponse(message, code string) ErrorResponse {
	return ErrorResponse{Success: false, Error: ErrorBody{Message: message, Code: code}}
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Image    string `json:"image"`
}

type Participant struct {
	ID                   string `json:"id"`
	User                 User   `json:"user"`
	HasSeenLatestMessage bool   `json:"has_seen_latest_message"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Sender         User      `json:"sender"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Conversation struct {
	ID            string        `json:"id"`
	Participants  []Participant `json:"participants"`
	LatestMessage *Message      `json:"latest_message"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func FromUser(u domain.User) User {
	username := ""
	if u.Username != nil {
		username = *u.Username
	}
	return User{
		ID:       u.ID.String(),
		Username: username,
		Image:    u.Image,
	}
}

func FromUserSlice(users []domain.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}

func FromMessage(m domain.Message) Message {
	return Message{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Sender:         FromUser(m.Sender),
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func FromMessageSlice(messages []domain.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m))
	}
	return out
}

func FromConversation(c domain.Conversation) Conversation {
	participants := make([]Participant, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, Participant{
			ID:                   p.ID.String(),
			User:                 FromUser(p.User),
			HasSeenLatestMessage: p.HasSeenLatestMessage,
		})
	}
	var latest *Message
	if c.LatestMessage != nil {
		m := FromMessage(*c.LatestMessage)
		latest = &m
	}
	return Conversation{
		ID:            c.ID.String(),
		Participants:  participants,
		LatestMessage: latest,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func FromConversationSlice(conversations []domain.Conversation) []Conversation {
	out := make([]Conversation, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, FromConversation(c))
	}
	return out
}
