package httpdto

type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participant_ids" binding:"required,min=1"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessageRequest struct {
	ID             string `json:"id" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
	SenderID       string `json:"sender_id" binding:"required"`
	Body           string `json:"body" binding:"required"`
}

type MarkAsReadRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type CreateUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateUsernameResponse mirrors the success-or-error shape of the
// username claim operation.
type CreateUsernameResponse struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type SearchUsersResponse struct {
	Users []User `json:"users"`
}
