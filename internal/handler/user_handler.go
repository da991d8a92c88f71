package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dum-man/messenger/internal/services"
	"github.com/dum-man/messenger/internal/session"
	"github.com/dum-man/messenger/internal/transport/httpdto"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

type UserHandler struct {
	service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Search(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())

	users, err := h.service.Search(c.Request.Context(), sess, c.Query("username"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SearchUsersResponse{
		Users: httpdto.FromUserSlice(users),
	}))
}

func (h *UserHandler) CreateUsername(c *gin.Context) {
	var req httpdto.CreateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	sess := session.FromContext(c.Request.Context())

	err := h.service.CreateUsername(c.Request.Context(), sess, req.Username)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, httpdto.CreateUsernameResponse{Success: true})
	case errors.Is(err, messenger_errors.ErrConflict):
		c.JSON(http.StatusOK, httpdto.CreateUsernameResponse{
			Error: fmt.Sprintf("%s already taken. Try another", req.Username),
		})
	default:
		respondError(c, err)
	}
}
