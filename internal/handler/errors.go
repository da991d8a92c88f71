package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dum-man/messenger/internal/transport/httpdto"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

// respondError maps pipeline errors onto HTTP status codes and the
// shared error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messenger_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("not authorized", "UNAUTHORIZED"))
	case errors.Is(err, messenger_errors.ErrParticipantNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("participant does not exist", "PARTICIPANT_NOT_FOUND"))
	case errors.Is(err, messenger_errors.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("conversation not found", "NOT_FOUND"))
	case errors.Is(err, messenger_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, messenger_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, messenger_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "OPERATION_FAILED"))
	}
}
