package messenger_errors

import "errors"

// Common errors
var (
	ErrUnauthorized         = errors.New("not authorized")
	ErrNotFound             = errors.New("not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrParticipantNotFound  = errors.New("participant does not exist")
	ErrConflict             = errors.New("conflict")
	ErrAlreadyExists        = errors.New("already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrOperationFailed      = errors.New("operation failed")
)
